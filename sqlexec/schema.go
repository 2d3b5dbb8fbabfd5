package sqlexec

import (
	"context"
	"fmt"
	"strings"

	qg "github.com/meikuraledutech/querygraph"
)

// TableFields returns the ordered columns of table.
func (d *DB) TableFields(ctx context.Context, table string) ([]qg.Field, error) {
	var (
		fields []qg.Field
		err    error
	)
	if d.engine == SQLite {
		fields, err = d.sqliteFields(ctx, table)
	} else {
		fields, err = d.informationSchemaFields(ctx, table)
	}
	if err != nil {
		return nil, fmt.Errorf("querygraph: discover %s: %w", table, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w %q", qg.ErrTableNotFound, table)
	}
	return fields, nil
}

func (d *DB) sqliteFields(ctx context.Context, table string) ([]qg.Field, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name, type, "notnull" FROM pragma_table_info(?) ORDER BY cid`, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []qg.Field
	for rows.Next() {
		var (
			name, typ string
			notNull   bool
		)
		if err := rows.Scan(&name, &typ, &notNull); err != nil {
			return nil, err
		}
		fields = append(fields, qg.Field{Name: name, Type: qg.ParseFieldType(typ), Nullable: !notNull})
	}
	return fields, rows.Err()
}

func (d *DB) informationSchemaFields(ctx context.Context, table string) ([]qg.Field, error) {
	schema, name := "", table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}

	current := "current_schema()"
	placeholder := func(n int) string { return fmt.Sprintf("$%d", n) }
	if d.engine == MySQL {
		current = "DATABASE()"
		placeholder = func(int) string { return "?" }
	}
	query := `SELECT column_name, data_type, is_nullable FROM information_schema.columns` +
		` WHERE table_name = ` + placeholder(1) +
		` AND table_schema = COALESCE(NULLIF(` + placeholder(2) + `, ''), ` + current + `)` +
		` ORDER BY ordinal_position`

	rows, err := d.db.QueryContext(ctx, query, name, schema)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var fields []qg.Field
	for rows.Next() {
		var name, typ, nullable string
		if err := rows.Scan(&name, &typ, &nullable); err != nil {
			return nil, err
		}
		fields = append(fields, qg.Field{Name: name, Type: qg.ParseFieldType(typ), Nullable: strings.EqualFold(nullable, "YES")})
	}
	return fields, rows.Err()
}
