package sqlgen

import (
	"context"
	"fmt"

	qg "github.com/meikuraledutech/querygraph"
	"github.com/meikuraledutech/querygraph/validate"
)

// Strategy compiles and post-processes queries for one analysis operator.
type Strategy struct {
	op       qg.Operator
	required []qg.Kind
	clauses  []clause
	viz      qg.Visualization
}

// Lookup resolves the strategy for op. The operator set is closed; anything
// else fails with ErrUnknownOperator.
func Lookup(op qg.Operator) (Strategy, error) {
	switch op {
	case qg.OperatorAssociation:
		return Strategy{
			op:       op,
			required: []qg.Kind{qg.KindTable},
			clauses:  []clause{SelectClause, FromClause, JoinClauses, WhereClause, GroupByClause},
			viz:      qg.VisualizationTable,
		}, nil
	case qg.OperatorAnomaly:
		return Strategy{
			op:       op,
			required: []qg.Kind{qg.KindTable, qg.KindSelect},
			clauses:  []clause{SelectClause, FromClause, JoinClauses, WhereClause},
			viz:      qg.VisualizationScatter,
		}, nil
	case qg.OperatorClustering:
		return Strategy{
			op:       op,
			required: []qg.Kind{qg.KindTable, qg.KindSelect},
			clauses:  []clause{SelectClause, FromClause, JoinClauses, WhereClause, GroupByClause},
			viz:      qg.VisualizationRadar,
		}, nil
	}
	return Strategy{}, fmt.Errorf("%w %q", qg.ErrUnknownOperator, op)
}

// Operator returns the operator the strategy serves.
func (s Strategy) Operator() qg.Operator { return s.op }

// RequiredKinds lists the node kinds the operator cannot run without.
func (s Strategy) RequiredKinds() []qg.Kind {
	return append([]qg.Kind(nil), s.required...)
}

// Validate runs the graph rules plus the operator's required-kind check.
// A SelectAggregate node satisfies a Select requirement.
func (s Strategy) Validate(g *qg.Graph) []qg.Diagnostic {
	diags := validate.Graph(g)
	return append(diags, s.MissingKinds(g)...)
}

// MissingKinds reports one error per required kind absent from g, attached
// to the End node when there is one.
func (s Strategy) MissingKinds(g *qg.Graph) []qg.Diagnostic {
	end, hasEnd := g.EndNode()
	var diags []qg.Diagnostic
	for _, k := range s.required {
		n := g.CountKind(k)
		if k == qg.KindSelect {
			n += g.CountKind(qg.KindSelectAggregate)
		}
		if n > 0 {
			continue
		}
		if hasEnd {
			diags = append(diags, qg.Errorf(end, "%s requires a %s node", s.op, k))
		} else {
			diags = append(diags, qg.GraphErrorf("%s requires a %s node", s.op, k))
		}
	}
	return diags
}

// BuildSQL assembles the operator's clauses, one per line, skipping empty ones.
// Only meaningful on a graph Validate accepted.
func (s Strategy) BuildSQL(g *qg.Graph) string {
	return assemble(g, s.clauses)
}

// PostProcess turns raw engine output into an analysis result. Only the
// anomaly operator calls the scorer; its errors are returned unchanged.
func (s Strategy) PostProcess(ctx context.Context, raw *qg.QueryResult, scorer qg.Scorer, budget qg.Budget) (*qg.AnalysisResult, error) {
	if raw == nil {
		raw = &qg.QueryResult{}
	}
	res := &qg.AnalysisResult{
		Operator:      s.op,
		Rows:          raw.Rows,
		Schema:        raw.Schema,
		Visualization: s.viz,
	}
	switch s.op {
	case qg.OperatorAssociation, qg.OperatorClustering:
		return res, nil
	case qg.OperatorAnomaly:
		return scoreAnomalies(ctx, res, scorer, budget)
	}
	return nil, fmt.Errorf("%w %q", qg.ErrUnknownOperator, s.op)
}
