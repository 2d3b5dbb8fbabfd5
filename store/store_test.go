package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qg "github.com/meikuraledutech/querygraph"
)

func usersNode(id, alias string) qg.Node {
	return qg.Node{ID: id, Payload: &qg.Table{Name: "users", Alias: alias, Fields: []qg.Field{
		{Name: "id", Type: qg.TypeInteger},
		{Name: "name", Type: qg.TypeVarchar},
	}}}
}

func ordersNode(id, alias string) qg.Node {
	return qg.Node{ID: id, Payload: &qg.Table{Name: "orders", Alias: alias, Fields: []qg.Field{
		{Name: "id", Type: qg.TypeInteger},
		{Name: "user_id", Type: qg.TypeInteger},
	}}}
}

// newValidStore builds users + select-all + end(association).
func newValidStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s := New("g1", opts...)
	mustAdd(t, s, usersNode("users", ""))
	mustAdd(t, s, qg.Node{ID: "select", Payload: &qg.Select{All: true}})
	mustAdd(t, s, qg.Node{ID: "end", Payload: &qg.End{Operator: qg.OperatorAssociation}})
	require.False(t, qg.HasErrors(s.Diagnostics()), "%v", s.Diagnostics())
	return s
}

func mustAdd(t *testing.T, s *Store, n qg.Node) {
	t.Helper()
	_, err := s.AddNode(n)
	require.NoError(t, err)
}

func messages(diags []qg.Diagnostic) string {
	var b strings.Builder
	for _, d := range diags {
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	return b.String()
}

func TestNew(t *testing.T) {
	s := New("")
	assert.NotEmpty(t, s.ID())
	assert.True(t, qg.HasErrors(s.Diagnostics()))
	assert.Contains(t, messages(s.Diagnostics()), "at least one table")
}

func TestAddNode(t *testing.T) {
	s := newValidStore(t)

	t.Run("generates ids", func(t *testing.T) {
		id, err := s.AddNode(qg.Node{Payload: &qg.Start{}})
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		_, ok := s.Graph().Node(id)
		assert.True(t, ok)
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		_, err := s.AddNode(usersNode("users", ""))
		assert.ErrorIs(t, err, qg.ErrDuplicateNode)
	})

	t.Run("rejects nodes without payload", func(t *testing.T) {
		_, err := s.AddNode(qg.Node{ID: "x"})
		assert.ErrorIs(t, err, qg.ErrUnknownKind)
	})

	t.Run("stores a copy", func(t *testing.T) {
		n := ordersNode("orders", "")
		mustAdd(t, s, n)
		n.Table().Name = "mutated"
		got, _ := s.Graph().Node("orders")
		assert.Equal(t, "orders", got.Table().Name)
	})
}

func TestAddNode_FullRevalidation(t *testing.T) {
	s := newValidStore(t)
	mustAdd(t, s, ordersNode("orders", ""))
	assert.Contains(t, messages(qg.Errors(s.Diagnostics())), "need at least one join")

	mustAdd(t, s, qg.Node{ID: "join", Payload: &qg.Join{
		Type:       qg.JoinInner,
		RightTable: "users",
		Order:      1,
		Conditions: []qg.JoinCondition{{LeftTable: "orders", LeftField: "user_id", RightTable: "users", RightField: "id"}},
	}})
	assert.False(t, qg.HasErrors(s.Diagnostics()), messages(s.Diagnostics()))
}

func TestRemoveNode_CascadesEdges(t *testing.T) {
	s := newValidStore(t)
	_, err := s.AddEdge(qg.Edge{ID: "e1", Source: "users", Target: "select"})
	require.NoError(t, err)
	_, err = s.AddEdge(qg.Edge{ID: "e2", Source: "select", Target: "end"})
	require.NoError(t, err)
	s.SetSelectedNode("select")

	require.NoError(t, s.RemoveNode("select"))

	g := s.Graph()
	assert.Empty(t, g.Edges)
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, s.SelectedNode())
	assert.ErrorIs(t, s.RemoveNode("select"), qg.ErrNodeNotFound)
}

func TestEdges_RevalidateBothWays(t *testing.T) {
	s := newValidStore(t)
	_, err := s.AddEdge(qg.Edge{ID: "a", Source: "users", Target: "select"})
	require.NoError(t, err)
	_, err = s.AddEdge(qg.Edge{ID: "b", Source: "select", Target: "users"})
	require.NoError(t, err)
	assert.Contains(t, messages(s.Diagnostics()), "cycle")

	require.NoError(t, s.RemoveEdge("b"))
	assert.NotContains(t, messages(s.Diagnostics()), "cycle")

	assert.ErrorIs(t, s.RemoveEdge("b"), qg.ErrEdgeNotFound)
	_, err = s.AddEdge(qg.Edge{ID: "a"})
	assert.ErrorIs(t, err, qg.ErrDuplicateEdge)
}

func TestUpdateNode_NarrowRevalidation(t *testing.T) {
	s := newValidStore(t)
	mustAdd(t, s, ordersNode("orders", "o"))
	mustAdd(t, s, qg.Node{ID: "join", Payload: &qg.Join{
		Type:       qg.JoinInner,
		RightTable: "users",
		Order:      1,
		Conditions: []qg.JoinCondition{{LeftTable: "orders", LeftField: "user_id", RightTable: "users", RightField: "id"}},
	}})
	require.NoError(t, s.UpdateNode("users", qg.TablePatch{Alias: ptr("u")}))
	require.False(t, qg.HasErrors(s.Diagnostics()))

	// users takes orders' alias: only users' diagnostics are recomputed.
	require.NoError(t, s.UpdateNode("users", qg.TablePatch{Alias: ptr("o")}))
	errs := qg.Errors(s.Diagnostics())
	require.Len(t, errs, 1)
	assert.Equal(t, "users", errs[0].NodeID)
	assert.Contains(t, errs[0].Message, `alias "o"`)

	// orders moves away; users' finding is now stale and stays until a full pass.
	require.NoError(t, s.UpdateNode("orders", qg.TablePatch{Alias: ptr("x")}))
	assert.Len(t, qg.Errors(s.Diagnostics()), 1)

	_, err := s.AddEdge(qg.Edge{Source: "users", Target: "select"})
	require.NoError(t, err)
	assert.False(t, qg.HasErrors(s.Diagnostics()), messages(s.Diagnostics()))
}

func TestUpdateNode_DuplicateAliasAfterFullPass(t *testing.T) {
	s := newValidStore(t)
	mustAdd(t, s, ordersNode("orders", "x"))
	require.NoError(t, s.UpdateNode("users", qg.TablePatch{Alias: ptr("x")}))

	mustAdd(t, s, qg.Node{ID: "join", Payload: &qg.Join{
		Type:       qg.JoinInner,
		RightTable: "users",
		Order:      1,
		Conditions: []qg.JoinCondition{{LeftTable: "orders", LeftField: "user_id", RightTable: "users", RightField: "id"}},
	}})

	assert.Contains(t, messages(qg.Errors(s.Diagnostics())), `alias "x"`)
}

func TestUpdateNode_Errors(t *testing.T) {
	s := newValidStore(t)
	assert.ErrorIs(t, s.UpdateNode("missing", qg.TablePatch{}), qg.ErrNodeNotFound)
	assert.ErrorIs(t, s.UpdateNode("users", qg.SelectPatch{All: ptr(false)}), qg.ErrKindMismatch)
}

func TestUpdateNode_EndTriggersFullPass(t *testing.T) {
	s := newValidStore(t)
	require.NoError(t, s.RemoveNode("select"))
	require.False(t, qg.HasErrors(s.Diagnostics()))

	op := qg.OperatorClustering
	require.NoError(t, s.UpdateNode("end", qg.EndPatch{Operator: &op}))

	assert.Contains(t, messages(qg.Errors(s.Diagnostics())), "clustering requires a select node")
}

func TestSetOperatorType(t *testing.T) {
	s := New("g")
	assert.ErrorIs(t, s.SetOperatorType(qg.OperatorAnomaly), qg.ErrNoEndNode)

	s = newValidStore(t)
	require.NoError(t, s.RemoveNode("select"))
	require.NoError(t, s.SetOperatorType(qg.OperatorAnomaly))

	errs := qg.Errors(s.Diagnostics())
	require.Len(t, errs, 1)
	assert.Equal(t, "end", errs[0].NodeID)
	assert.False(t, s.CanExecute())

	end, _ := s.Graph().EndNode()
	assert.Equal(t, qg.OperatorAnomaly, end.End().Operator)
	assert.Equal(t, s.Diagnostics(), end.End().Diagnostics)
}

func TestUIState(t *testing.T) {
	s := New("g")
	diags := s.Diagnostics()

	s.SetSelectedNode("n1")
	s.OpenPanel()
	assert.Equal(t, "n1", s.SelectedNode())
	assert.True(t, s.PanelOpen())
	s.ClosePanel()
	assert.False(t, s.PanelOpen())
	assert.Equal(t, diags, s.Diagnostics())
}

func TestSubscribe(t *testing.T) {
	s := New("g")
	var calls int
	var last []qg.Diagnostic
	cancel := s.Subscribe(func(d []qg.Diagnostic) {
		calls++
		last = d
	})

	mustAdd(t, s, usersNode("users", ""))
	assert.Equal(t, 1, calls)
	assert.Equal(t, s.Diagnostics(), last)

	cancel()
	mustAdd(t, s, ordersNode("orders", ""))
	assert.Equal(t, 1, calls)
}

func TestLoad(t *testing.T) {
	s := New("g")
	s.Load(&qg.Graph{Nodes: []qg.Node{
		usersNode("users", ""),
		{ID: "end", Payload: &qg.End{Operator: qg.OperatorAssociation}},
	}})

	assert.Equal(t, "g", s.ID())
	assert.False(t, qg.HasErrors(s.Diagnostics()))
	assert.True(t, s.CanExecute())
}

func TestCompileSQL(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := newValidStore(t)
		sql, err := s.CompileSQL()
		require.NoError(t, err)
		assert.Equal(t, "SELECT *\nFROM users", sql)
	})

	t.Run("blocked by errors", func(t *testing.T) {
		s := newValidStore(t)
		mustAdd(t, s, ordersNode("orders", ""))
		_, err := s.CompileSQL()
		assert.ErrorIs(t, err, qg.ErrGraphInvalid)
	})

	t.Run("no end node", func(t *testing.T) {
		s := New("g")
		mustAdd(t, s, usersNode("users", ""))
		_, err := s.CompileSQL()
		assert.ErrorIs(t, err, qg.ErrNoEndNode)
	})
}

type fakeExecutor struct {
	sql    string
	result *qg.QueryResult
	err    error
	seen   func()
}

func (f *fakeExecutor) Execute(_ context.Context, sql string) (*qg.QueryResult, error) {
	f.sql = sql
	if f.seen != nil {
		f.seen()
	}
	return f.result, f.err
}

type fakeScorer struct{ res *qg.ScoreResult }

func (f fakeScorer) Score(context.Context, qg.ScoreRequest, qg.Budget) (*qg.ScoreResult, error) {
	return f.res, nil
}

func TestExecute(t *testing.T) {
	rows := &qg.QueryResult{
		Rows:   []map[string]any{{"id": int64(1), "name": "ann"}},
		Schema: []qg.Column{{Name: "id", Type: "INTEGER"}, {Name: "name", Type: "TEXT"}},
	}

	t.Run("stores result on end node", func(t *testing.T) {
		exec := &fakeExecutor{result: rows}
		s := newValidStore(t, WithExecutor(exec))
		exec.seen = func() {
			end, _ := s.graph.EndNode()
			assert.True(t, end.End().Executing)
		}

		res, err := s.Execute(context.Background())

		require.NoError(t, err)
		assert.Equal(t, "SELECT *\nFROM users", exec.sql)
		assert.Equal(t, exec.sql, res.SQL)
		assert.Equal(t, qg.VisualizationTable, res.Visualization)
		end, _ := s.Graph().EndNode()
		assert.False(t, end.End().Executing)
		require.NotNil(t, end.End().Result)
		assert.Equal(t, rows.Rows, end.End().Result.Rows)
	})

	t.Run("anomaly uses scorer", func(t *testing.T) {
		exec := &fakeExecutor{result: rows}
		scorer := fakeScorer{res: &qg.ScoreResult{RowKeys: []string{"1"}, Scores: []float64{4.2}, Flags: []bool{true}}}
		s := newValidStore(t, WithExecutor(exec), WithScorer(scorer, qg.Budget{}))
		require.NoError(t, s.SetOperatorType(qg.OperatorAnomaly))

		res, err := s.Execute(context.Background())

		require.NoError(t, err)
		assert.Equal(t, qg.VisualizationScatter, res.Visualization)
		assert.Equal(t, true, res.Rows[0]["is_anomaly"])
	})

	t.Run("executor error passes through", func(t *testing.T) {
		boom := errors.New("engine down")
		s := newValidStore(t, WithExecutor(&fakeExecutor{err: boom}))
		_, err := s.Execute(context.Background())
		assert.Same(t, boom, err)
		end, _ := s.Graph().EndNode()
		assert.False(t, end.End().Executing)
		assert.Nil(t, end.End().Result)
	})

	t.Run("no executor", func(t *testing.T) {
		s := newValidStore(t)
		_, err := s.Execute(context.Background())
		assert.ErrorIs(t, err, qg.ErrNoExecutor)
	})
}

type fakeSource map[string][]qg.Field

func (f fakeSource) TableFields(_ context.Context, table string) ([]qg.Field, error) {
	fields, ok := f[table]
	if !ok {
		return nil, errors.New("no such table")
	}
	return fields, nil
}

func TestDiscoverTable(t *testing.T) {
	s := newValidStore(t)
	mustAdd(t, s, qg.Node{ID: "orders", Payload: &qg.Table{Name: "orders"}})
	assert.Contains(t, messages(s.Diagnostics()), `table "orders" has no fields`)

	src := fakeSource{"orders": {{Name: "id", Type: qg.TypeInteger}}}
	require.NoError(t, s.DiscoverTable(context.Background(), src, "orders"))

	n, _ := s.Graph().Node("orders")
	assert.Equal(t, src["orders"], n.Table().Fields)
	assert.NotContains(t, messages(s.Diagnostics()), "has no fields")

	assert.ErrorIs(t, s.DiscoverTable(context.Background(), src, "select"), qg.ErrKindMismatch)
	assert.ErrorIs(t, s.DiscoverTable(context.Background(), src, "nope"), qg.ErrNodeNotFound)
	require.NoError(t, s.UpdateNode("orders", qg.TablePatch{Name: ptr("ghost")}))
	assert.EqualError(t, s.DiscoverTable(context.Background(), src, "orders"), "no such table")
}

func ptr[T any](v T) *T { return &v }
