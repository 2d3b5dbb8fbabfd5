package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	qg "github.com/meikuraledutech/querygraph"
	"github.com/meikuraledutech/querygraph/sqlgen"
)

// CanExecute reports whether the End node carries no blocking errors.
func (s *Store) CanExecute() bool {
	end, ok := s.graph.EndNode()
	return ok && !qg.HasErrors(end.End().Diagnostics)
}

// CompileSQL lowers the graph with the strategy chosen on the End node.
// It refuses while any ERROR diagnostic is present.
func (s *Store) CompileSQL() (string, error) {
	strat, err := s.strategy()
	if err != nil {
		return "", err
	}
	return strat.BuildSQL(s.graph), nil
}

func (s *Store) strategy() (sqlgen.Strategy, error) {
	end, ok := s.graph.EndNode()
	if !ok {
		return sqlgen.Strategy{}, qg.ErrNoEndNode
	}
	if errs := qg.Errors(s.diags); len(errs) > 0 {
		return sqlgen.Strategy{}, fmt.Errorf("%w: %d error(s), first: %s", qg.ErrGraphInvalid, len(errs), errs[0].Message)
	}
	return sqlgen.Lookup(end.End().Operator)
}

// Execute compiles the graph, runs it on the configured executor,
// post-processes the rows and stores the result on the End node.
// Executor and scorer failures are returned as they are.
func (s *Store) Execute(ctx context.Context) (*qg.AnalysisResult, error) {
	strat, err := s.strategy()
	if err != nil {
		return nil, err
	}
	if s.exec == nil {
		return nil, qg.ErrNoExecutor
	}
	sql := strat.BuildSQL(s.graph)

	end, _ := s.graph.EndNode()
	e := end.End()
	e.Executing = true
	defer func() { e.Executing = false }()

	s.log.Info("executing query", zap.String("graph", s.graph.ID), zap.String("operator", string(strat.Operator())))
	raw, err := s.exec.Execute(ctx, sql)
	if err != nil {
		s.log.Warn("query failed", zap.String("graph", s.graph.ID), zap.Error(err))
		return nil, err
	}
	res, err := strat.PostProcess(ctx, raw, s.scorer, s.budget)
	if err != nil {
		s.log.Warn("post-processing failed", zap.String("graph", s.graph.ID), zap.Error(err))
		return nil, err
	}
	res.SQL = sql
	e.Result = res
	return res, nil
}

// DiscoverTable fills a Table node's fields from src, looked up by the
// node's table name, then revalidates the node.
func (s *Store) DiscoverTable(ctx context.Context, src qg.SchemaSource, nodeID string) error {
	n, ok := s.graph.Node(nodeID)
	if !ok {
		return fmt.Errorf("%w %q", qg.ErrNodeNotFound, nodeID)
	}
	t := n.Table()
	if t == nil {
		return fmt.Errorf("%w: node %s is %s, not table", qg.ErrKindMismatch, nodeID, n.Kind())
	}
	fields, err := src.TableFields(ctx, t.Name)
	if err != nil {
		return err
	}
	return s.UpdateNode(nodeID, qg.TablePatch{Fields: &fields})
}
