package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	qg "github.com/meikuraledutech/querygraph"
)

// SaveGraph writes a full graph (nodes + edges) in one transaction, replacing
// any previous version. A graph without an id gets a UUID. Node and edge
// order is preserved through the seq column.
func (s *PGStore) SaveGraph(ctx context.Context, g *qg.Graph) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("querygraph: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO query_graphs (id) VALUES ($1)
		 ON CONFLICT (id) DO UPDATE SET updated_at = NOW()`, g.ID); err != nil {
		return fmt.Errorf("querygraph: upsert graph: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM query_edges WHERE graph_id = $1`, g.ID); err != nil {
		return fmt.Errorf("querygraph: delete edges: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM query_nodes WHERE graph_id = $1`, g.ID); err != nil {
		return fmt.Errorf("querygraph: delete nodes: %w", err)
	}

	if err := insertNodes(ctx, tx, g.ID, g.Nodes); err != nil {
		return err
	}
	if err := insertEdges(ctx, tx, g.ID, g.Edges); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("querygraph: commit: %w", err)
	}
	return nil
}

// LoadGraph retrieves a full graph by its ID.
// Returns nil, nil if the graph doesn't exist.
func (s *PGStore) LoadGraph(ctx context.Context, graphID string) (*qg.Graph, error) {
	var id string
	err := s.db.QueryRow(ctx, `SELECT id FROM query_graphs WHERE id = $1`, graphID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querygraph: get graph: %w", err)
	}

	g := &qg.Graph{ID: id}
	if g.Nodes, err = s.listNodes(ctx, id); err != nil {
		return nil, err
	}
	if g.Edges, err = s.listEdges(ctx, id); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGraph removes a graph; nodes and edges cascade.
// No error if the graph doesn't exist.
func (s *PGStore) DeleteGraph(ctx context.Context, graphID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM query_graphs WHERE id = $1`, graphID); err != nil {
		return fmt.Errorf("querygraph: delete graph: %w", err)
	}
	return nil
}

// ListGraphs returns every stored graph id, most recently updated first.
func (s *PGStore) ListGraphs(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM query_graphs ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("querygraph: list graphs: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("querygraph: scan graphs: %w", err)
	}
	return ids, nil
}

func insertNodes(ctx context.Context, tx pgx.Tx, graphID string, nodes []qg.Node) error {
	for i, n := range nodes {
		data, err := json.Marshal(n.Payload)
		if err != nil {
			return fmt.Errorf("querygraph: encode node %s: %w", n.ID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO query_nodes (id, graph_id, seq, kind, pos_x, pos_y, data) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			n.ID, graphID, i, string(n.Kind()), n.Position.X, n.Position.Y, data,
		); err != nil {
			return fmt.Errorf("querygraph: insert node %s: %w", n.ID, err)
		}
	}
	return nil
}

func insertEdges(ctx context.Context, tx pgx.Tx, graphID string, edges []qg.Edge) error {
	for i, e := range edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO query_edges (id, graph_id, seq, source_id, target_id) VALUES ($1, $2, $3, $4, $5)`,
			e.ID, graphID, i, e.Source, e.Target,
		); err != nil {
			return fmt.Errorf("querygraph: insert edge %s: %w", e.ID, err)
		}
	}
	return nil
}

func (s *PGStore) listNodes(ctx context.Context, graphID string) ([]qg.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, kind, pos_x, pos_y, data FROM query_nodes WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("querygraph: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []qg.Node{}
	for rows.Next() {
		var (
			n    qg.Node
			kind string
			data []byte
		)
		if err := rows.Scan(&n.ID, &kind, &n.Position.X, &n.Position.Y, &data); err != nil {
			return nil, fmt.Errorf("querygraph: scan node: %w", err)
		}
		if n.Payload, err = qg.DecodePayload(qg.Kind(kind), data); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querygraph: rows nodes: %w", err)
	}
	return nodes, nil
}

func (s *PGStore) listEdges(ctx context.Context, graphID string) ([]qg.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, source_id, target_id FROM query_edges WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("querygraph: list edges: %w", err)
	}
	defer rows.Close()

	edges := []qg.Edge{}
	for rows.Next() {
		var e qg.Edge
		if err := rows.Scan(&e.ID, &e.Source, &e.Target); err != nil {
			return nil, fmt.Errorf("querygraph: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querygraph: rows edges: %w", err)
	}
	return edges, nil
}
