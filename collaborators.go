package querygraph

import (
	"context"
	"time"
)

// Column describes one result column as reported by the engine.
type Column struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// QueryResult is what the execution engine returns for generated SQL.
type QueryResult struct {
	Rows   []map[string]any `json:"rows"`
	Schema []Column         `json:"schema"`
}

// Executor runs generated SQL. Failures are surfaced to the caller untouched.
type Executor interface {
	Execute(ctx context.Context, sql string) (*QueryResult, error)
}

// SchemaSource discovers the ordered fields of a table, used to populate
// Table nodes before validation runs.
type SchemaSource interface {
	TableFields(ctx context.Context, table string) ([]Field, error)
}

// ScoreRequest is the numeric input to anomaly scoring.
type ScoreRequest struct {
	RowKeys  []string    `json:"rowKeys"`
	Features [][]float64 `json:"features"`
}

// Budget constrains a scoring run. The scorer, not this package, enforces it.
type Budget struct {
	PreferGPU bool          `json:"preferGpu"`
	Timeout   time.Duration `json:"timeout"`
}

// ScoreResult carries one score and flag per row key.
type ScoreResult struct {
	RowKeys []string  `json:"rowKeys"`
	Scores  []float64 `json:"scores"`
	Flags   []bool    `json:"flags"`
}

// Scorer computes anomaly scores over already-fetched rows.
type Scorer interface {
	Score(ctx context.Context, req ScoreRequest, budget Budget) (*ScoreResult, error)
}

// Visualization hints the UI at how to render a result.
type Visualization string

const (
	VisualizationTable   Visualization = "table"
	VisualizationScatter Visualization = "scatter"
	VisualizationRadar   Visualization = "radar"
)

// AnalysisResult is a post-processed query result stored on the End node.
type AnalysisResult struct {
	Operator      Operator         `json:"operator"`
	SQL           string           `json:"sql"`
	Rows          []map[string]any `json:"rows"`
	Schema        []Column         `json:"schema"`
	Visualization Visualization    `json:"visualization"`
	Anomalies     *ScoreResult     `json:"anomalies,omitempty"`
}

// Repository persists graphs between editing sessions.
type Repository interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Graphs
	SaveGraph(ctx context.Context, g *Graph) error
	LoadGraph(ctx context.Context, graphID string) (*Graph, error)
	DeleteGraph(ctx context.Context, graphID string) error
	ListGraphs(ctx context.Context) ([]string, error)
}
