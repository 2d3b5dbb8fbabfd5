// Package sqlexec runs generated SQL through database/sql and discovers table
// schemas, for the embedded SQLite engine as well as PostgreSQL and MySQL.
package sqlexec

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	qg "github.com/meikuraledutech/querygraph"
)

// Engine names a supported database/sql backend.
type Engine string

const (
	SQLite   Engine = "sqlite"
	Postgres Engine = "postgres"
	MySQL    Engine = "mysql"
)

// driverName maps an engine to its registered database/sql driver.
func (e Engine) driverName() (string, error) {
	switch e {
	case SQLite:
		return "sqlite", nil
	case Postgres:
		return "postgres", nil
	case MySQL:
		return "mysql", nil
	}
	return "", fmt.Errorf("querygraph: unsupported engine %q", e)
}

// DB executes queries and discovers schemas on one database.
type DB struct {
	db     *sql.DB
	engine Engine
}

var (
	_ qg.Executor     = (*DB)(nil)
	_ qg.SchemaSource = (*DB)(nil)
)

// Open connects to dsn with the driver for engine.
func Open(engine Engine, dsn string) (*DB, error) {
	driver, err := engine.driverName()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("querygraph: open %s: %w", engine, err)
	}
	return &DB{db: db, engine: engine}, nil
}

// New wraps an existing handle.
func New(db *sql.DB, engine Engine) *DB {
	return &DB{db: db, engine: engine}
}

// DB returns the underlying handle.
func (d *DB) DB() *sql.DB { return d.db }

// Close closes the underlying handle.
func (d *DB) Close() error { return d.db.Close() }

// Execute runs generated SQL and returns its rows keyed by column name.
// Errors from the driver are returned unwrapped.
func (d *DB) Execute(ctx context.Context, query string) (*qg.QueryResult, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	res := &qg.QueryResult{
		Rows:   []map[string]any{},
		Schema: make([]qg.Column, len(cols)),
	}
	for i, c := range cols {
		res.Schema[i] = qg.Column{Name: c.Name(), Type: string(qg.ParseFieldType(c.DatabaseTypeName()))}
	}

	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c.Name()] = normalize(vals[i], res.Schema[i].Type)
		}
		res.Rows = append(res.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// normalize turns driver byte slices into strings, or numbers for numeric
// columns, so results serialize as JSON values rather than base64.
func normalize(v any, colType string) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	if qg.FieldType(colType).Class() == qg.ClassNumeric {
		if f, ok := parseNumber(s); ok {
			return f
		}
	}
	return s
}

func parseNumber(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return f, err == nil
}
