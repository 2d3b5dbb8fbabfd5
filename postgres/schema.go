package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS query_graphs (
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS query_nodes (
    id       TEXT NOT NULL,
    graph_id TEXT NOT NULL REFERENCES query_graphs(id) ON DELETE CASCADE,
    seq      INTEGER NOT NULL,
    kind     TEXT NOT NULL,
    pos_x    DOUBLE PRECISION NOT NULL DEFAULT 0,
    pos_y    DOUBLE PRECISION NOT NULL DEFAULT 0,
    data     JSONB NOT NULL DEFAULT '{}',
    PRIMARY KEY (graph_id, id)
);

CREATE TABLE IF NOT EXISTS query_edges (
    id        TEXT NOT NULL,
    graph_id  TEXT NOT NULL REFERENCES query_graphs(id) ON DELETE CASCADE,
    seq       INTEGER NOT NULL,
    source_id TEXT NOT NULL,
    target_id TEXT NOT NULL,
    PRIMARY KEY (graph_id, id)
);

CREATE INDEX IF NOT EXISTS idx_query_nodes_graph ON query_nodes(graph_id, seq);
CREATE INDEX IF NOT EXISTS idx_query_edges_graph ON query_edges(graph_id, seq);
`

// CreateSchema creates the graph tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the graph tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS query_edges, query_nodes, query_graphs CASCADE;`)
	return err
}
