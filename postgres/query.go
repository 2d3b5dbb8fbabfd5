package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	qg "github.com/meikuraledutech/querygraph"
)

// Execute runs generated SQL and returns its rows keyed by column name.
// Errors from the database are returned unwrapped.
func (s *PGStore) Execute(ctx context.Context, sql string) (*qg.QueryResult, error) {
	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fds := rows.FieldDescriptions()
	res := &qg.QueryResult{
		Rows:   []map[string]any{},
		Schema: make([]qg.Column, len(fds)),
	}
	tm := rows.Conn().TypeMap()
	for i, fd := range fds {
		res.Schema[i] = qg.Column{Name: fd.Name, Type: typeName(tm, fd.DataTypeOID)}
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]any, len(vals))
		for i, v := range vals {
			row[fds[i].Name] = normalize(v)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func typeName(tm *pgtype.Map, oid uint32) string {
	if t, ok := tm.TypeForOID(oid); ok {
		return string(qg.ParseFieldType(t.Name))
	}
	return fmt.Sprintf("OID(%d)", oid)
}

// normalize converts pgx-specific values into plain Go values so results
// serialize cleanly and numeric columns can be scored.
func normalize(v any) any {
	switch t := v.(type) {
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case [16]byte:
		return uuid.UUID(t).String()
	}
	return v
}

// TableFields reads a table's columns from information_schema in ordinal
// order. A "schema.table" reference selects the schema; otherwise the
// session's current schema is used.
func (s *PGStore) TableFields(ctx context.Context, table string) ([]qg.Field, error) {
	schema, name := "", table
	if i := strings.IndexByte(table, '.'); i >= 0 {
		schema, name = table[:i], table[i+1:]
	}

	rows, err := s.db.Query(ctx, `
		SELECT column_name, data_type, is_nullable = 'YES'
		FROM information_schema.columns
		WHERE table_name = $1
		  AND table_schema = COALESCE(NULLIF($2, ''), current_schema())
		ORDER BY ordinal_position`, name, schema)
	if err != nil {
		return nil, fmt.Errorf("querygraph: discover %s: %w", table, err)
	}
	fields, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (qg.Field, error) {
		var (
			f        qg.Field
			dataType string
		)
		err := row.Scan(&f.Name, &dataType, &f.Nullable)
		f.Type = qg.ParseFieldType(dataType)
		return f, err
	})
	if err != nil {
		return nil, fmt.Errorf("querygraph: discover %s: %w", table, err)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w %q", qg.ErrTableNotFound, table)
	}
	return fields, nil
}
