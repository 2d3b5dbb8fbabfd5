// Package postgres implements querygraph.Repository, querygraph.Executor and
// querygraph.SchemaSource on a pgx connection pool.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	qg "github.com/meikuraledutech/querygraph"
)

// PGStore persists graphs in PostgreSQL and runs generated SQL against it.
type PGStore struct {
	db *pgxpool.Pool
}

var (
	_ qg.Repository   = (*PGStore)(nil)
	_ qg.Executor     = (*PGStore)(nil)
	_ qg.SchemaSource = (*PGStore)(nil)
)

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}
