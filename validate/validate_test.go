package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qg "github.com/meikuraledutech/querygraph"
)

func validGraph() *qg.Graph {
	return graph(
		table("t1", "users", field("id", qg.TypeInteger), field("name", qg.TypeVarchar)),
		selectAll("s1"),
		end("e1", qg.OperatorAssociation),
	)
}

func TestGraph_Valid(t *testing.T) {
	diags := Graph(validGraph())
	assert.Empty(t, diags)
}

func TestGraph_NilGraph(t *testing.T) {
	diags := Graph(nil)
	assert.NotEmpty(t, errorsContaining(diags, "at least one table"))
}

func TestGraph_RequiredNodes(t *testing.T) {
	tests := []struct {
		name  string
		graph *qg.Graph
		want  string
	}{
		{
			name:  "no table",
			graph: graph(selectAll("s1"), end("e1", qg.OperatorAssociation)),
			want:  "at least one table",
		},
		{
			name:  "no end",
			graph: graph(table("t1", "users", field("id", qg.TypeInteger)), selectAll("s1")),
			want:  "needs an end node",
		},
		{
			name: "two ends",
			graph: graph(
				table("t1", "users", field("id", qg.TypeInteger)),
				end("e1", qg.OperatorAssociation),
				end("e2", qg.OperatorAssociation),
			),
			want: "2 end nodes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Graph(tt.graph)
			found := errorsContaining(diags, tt.want)
			require.Len(t, found, 1)
			assert.Empty(t, found[0].NodeID)
		})
	}
}

func TestGraph_TableCompleteness(t *testing.T) {
	g := graph(
		table("t1", ""),
		selectAll("s1"),
		end("e1", qg.OperatorAssociation),
	)

	diags := Graph(g)

	assert.Len(t, errorsContaining(diags, "table name is required"), 1)
	assert.Len(t, errorsContaining(diags, "has no fields"), 1)
	for _, d := range qg.Errors(diags) {
		assert.Equal(t, "t1", d.NodeID)
		assert.Equal(t, qg.KindTable, d.NodeKind)
	}
}

func TestGraph_DuplicateAliasReportedOnLaterTable(t *testing.T) {
	g := graph(
		aliased(table("t1", "orders", field("user_id", qg.TypeInteger)), "x"),
		aliased(table("t2", "users", field("id", qg.TypeInteger)), "x"),
		join("j1", on("orders", "user_id", "users", "id")),
		selectAll("s1"),
		end("e1", qg.OperatorAssociation),
	)

	found := errorsContaining(Graph(g), `alias "x"`)

	require.Len(t, found, 1)
	assert.Equal(t, "t2", found[0].NodeID)
}

func TestGraph_JoinRequirement(t *testing.T) {
	t.Run("single table needs no join", func(t *testing.T) {
		diags := Graph(validGraph())
		assert.Empty(t, errorsContaining(diags, "join"))
	})

	t.Run("two tables without join", func(t *testing.T) {
		g := graph(
			table("t1", "orders", field("user_id", qg.TypeInteger)),
			table("t2", "users", field("id", qg.TypeInteger)),
			selectAll("s1"),
			end("e1", qg.OperatorAssociation),
		)
		assert.Len(t, errorsContaining(Graph(g), "need at least one join"), 1)
	})

	t.Run("join without conditions", func(t *testing.T) {
		g := graph(
			table("t1", "orders", field("user_id", qg.TypeInteger)),
			table("t2", "users", field("id", qg.TypeInteger)),
			join("j1"),
			selectAll("s1"),
			end("e1", qg.OperatorAssociation),
		)
		found := errorsContaining(Graph(g), "join has no conditions")
		require.Len(t, found, 1)
		assert.Equal(t, "j1", found[0].NodeID)
	})
}

func TestGraph_JoinConditionReferences(t *testing.T) {
	g := graph(
		table("t1", "orders", field("user_id", qg.TypeInteger)),
		table("t2", "users", field("id", qg.TypeInteger)),
		join("j1",
			on("orders", "user_id", "accounts", "id"),
			on("orders", "missing", "users", "id"),
		),
		selectAll("s1"),
		end("e1", qg.OperatorAssociation),
	)

	diags := Graph(g)

	assert.Len(t, errorsContaining(diags, `condition 1: table "accounts" not found`), 1)
	assert.Len(t, errorsContaining(diags, `condition 2: field "missing" not found on table "orders"`), 1)
	assert.Empty(t, errorsContaining(diags, "type mismatch"))
}

func TestGraph_JoinSideTables(t *testing.T) {
	build := func(left, right string) *qg.Graph {
		users := aliased(table("t2", "users", field("id", qg.TypeInteger)), "u")
		j := join("j1", on("orders", "user_id", "users", "id"))
		j.Join().LeftTable = left
		j.Join().RightTable = right
		return graph(table("t1", "orders", field("user_id", qg.TypeInteger)), users, j, selectAll("s1"), end("e1", qg.OperatorAssociation))
	}

	ok := Graph(build("orders", "u"))
	assert.Empty(t, errorsContaining(ok, "table"), "%v", ok)

	diags := Graph(build("invoices", "accounts"))
	left := errorsContaining(diags, `left table "invoices" not found`)
	require.Len(t, left, 1)
	assert.Equal(t, "j1", left[0].NodeID)
	assert.Len(t, errorsContaining(diags, `joined table "accounts" not found`), 1)

	g := build("invoices", "")
	assert.Len(t, errorsContaining(Node(g.Nodes[2], g), `left table "invoices" not found`), 1)
}

func TestGraph_JoinTypeCompatibility(t *testing.T) {
	tests := []struct {
		name     string
		left     qg.FieldType
		right    qg.FieldType
		mismatch bool
	}{
		{"integer vs varchar", qg.TypeInteger, qg.TypeVarchar, true},
		{"bigint vs text", qg.TypeBigInt, qg.TypeText, true},
		{"integer vs double", qg.TypeInteger, qg.TypeDouble, false},
		{"decimal vs smallint", qg.TypeDecimal, qg.TypeSmallInt, false},
		{"varchar vs char", qg.TypeVarchar, qg.TypeChar, false},
		{"date vs timestamp", qg.TypeDate, qg.TypeTimestamp, false},
		{"date vs integer", qg.TypeDate, qg.TypeInteger, true},
		{"engine spelling int4 vs float8", "int4", "float8", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := graph(
				table("t1", "orders", field("user_id", tt.left)),
				table("t2", "users", field("id", tt.right)),
				join("j1", on("orders", "user_id", "users", "id")),
				selectAll("s1"),
				end("e1", qg.OperatorAssociation),
			)
			found := errorsContaining(Graph(g), "type mismatch")
			if tt.mismatch {
				assert.Len(t, found, 1)
			} else {
				assert.Empty(t, found)
			}
		})
	}
}

func TestGraph_UnknownJoinType(t *testing.T) {
	j := join("j1", on("orders", "user_id", "users", "id"))
	j.Join().Type = "OUTER"
	g := graph(
		table("t1", "orders", field("user_id", qg.TypeInteger)),
		table("t2", "users", field("id", qg.TypeInteger)),
		j,
		selectAll("s1"),
		end("e1", qg.OperatorAssociation),
	)

	assert.Len(t, errorsContaining(Graph(g), `unknown join type "OUTER"`), 1)
}

func TestGraph_Conditions(t *testing.T) {
	tests := []struct {
		name string
		node qg.Node
		want []string
	}{
		{
			name: "complete",
			node: condition("c1", "users", "name", qg.OpEq, qg.Scalar("bob")),
		},
		{
			name: "null check needs no value",
			node: condition("c1", "users", "name", qg.OpIsNull, qg.Null()),
		},
		{
			name: "missing table",
			node: condition("c1", "", "name", qg.OpEq, qg.Scalar("bob")),
			want: []string{"condition table is required"},
		},
		{
			name: "unknown table",
			node: condition("c1", "accounts", "name", qg.OpEq, qg.Scalar("bob")),
			want: []string{`table "accounts" not found`},
		},
		{
			name: "unknown field",
			node: condition("c1", "users", "age", qg.OpEq, qg.Scalar("3")),
			want: []string{`field "age" not found`},
		},
		{
			name: "missing operator and value",
			node: condition("c1", "users", "name", "", qg.Null()),
			want: []string{"operator is required", "a value is required"},
		},
		{
			name: "empty list for IN",
			node: condition("c1", "users", "name", qg.OpIn, qg.List()),
			want: []string{"a value is required"},
		},
		{
			name: "unknown operator",
			node: condition("c1", "users", "name", "~=", qg.Scalar("x")),
			want: []string{`unknown operator "~="`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGraph()
			g.Nodes = append(g.Nodes, tt.node)
			errs := qg.Errors(Graph(g))
			require.Len(t, errs, len(tt.want))
			for i, want := range tt.want {
				assert.Contains(t, errs[i].Message, want)
				assert.Equal(t, "c1", errs[i].NodeID)
			}
		})
	}
}

func TestGraph_ConditionGroups(t *testing.T) {
	g := validGraph()
	g.Nodes = append(g.Nodes,
		condition("c1", "users", "name", qg.OpEq, qg.Scalar("bob")),
		qg.Node{ID: "grp", Payload: &qg.ConditionGroup{Connective: "XOR", Members: []string{"c1", "s1", "nope"}}},
		qg.Node{ID: "empty", Payload: &qg.ConditionGroup{Connective: qg.Or}},
	)

	diags := Graph(g)

	assert.Len(t, errorsContaining(diags, `unknown logical operator "XOR"`), 1)
	assert.Len(t, errorsContaining(diags, `member "s1"`), 1)
	assert.Len(t, errorsContaining(diags, `member "nope"`), 1)
	assert.Contains(t, diags, qg.Diagnostic{NodeID: "empty", NodeKind: qg.KindConditionGroup, Message: "condition group is empty", Severity: qg.SeverityWarning})
}

func TestGraph_Selects(t *testing.T) {
	t.Run("no select is a warning", func(t *testing.T) {
		g := graph(table("t1", "users", field("id", qg.TypeInteger)), end("e1", qg.OperatorAssociation))
		diags := Graph(g)
		require.Len(t, diags, 1)
		assert.Equal(t, qg.SeverityWarning, diags[0].Severity)
		assert.False(t, qg.HasErrors(diags))
	})

	t.Run("empty select", func(t *testing.T) {
		g := graph(
			table("t1", "users", field("id", qg.TypeInteger)),
			qg.Node{ID: "s1", Payload: &qg.Select{}},
			end("e1", qg.OperatorAssociation),
		)
		assert.Len(t, errorsContaining(Graph(g), "select-all or at least one field"), 1)
	})

	t.Run("empty aggregate", func(t *testing.T) {
		g := graph(
			table("t1", "users", field("id", qg.TypeInteger)),
			qg.Node{ID: "s1", Payload: &qg.SelectAggregate{GroupBy: []string{"users.id"}}},
			end("e1", qg.OperatorAssociation),
		)
		assert.Len(t, errorsContaining(Graph(g), "aggregate select needs at least one field"), 1)
	})

	t.Run("unknown aggregate", func(t *testing.T) {
		g := graph(
			table("t1", "users", field("id", qg.TypeInteger)),
			qg.Node{ID: "s1", Payload: &qg.SelectAggregate{Fields: []qg.AggregateField{{Table: "users", Field: "id", Func: "MEDIAN"}}}},
			end("e1", qg.OperatorAssociation),
		)
		assert.Len(t, errorsContaining(Graph(g), `unknown aggregate "MEDIAN"`), 1)
	})
}

func TestGraph_EndOperator(t *testing.T) {
	g := validGraph()
	g.Nodes[2] = end("e1", "")
	found := errorsContaining(Graph(g), "operator type must be selected")
	require.Len(t, found, 1)
	assert.Equal(t, "e1", found[0].NodeID)

	g.Nodes[2] = end("e1", "forecast")
	assert.Len(t, errorsContaining(Graph(g), `unknown operator "forecast"`), 1)
}

func TestGraph_Cycles(t *testing.T) {
	tests := []struct {
		name   string
		edges  []qg.Edge
		cycles int
	}{
		{"acyclic chain", []qg.Edge{{ID: "a", Source: "t1", Target: "s1"}, {ID: "b", Source: "s1", Target: "e1"}}, 0},
		{"diamond", []qg.Edge{
			{ID: "a", Source: "t1", Target: "s1"},
			{ID: "b", Source: "t1", Target: "e1"},
			{ID: "c", Source: "s1", Target: "e1"},
		}, 0},
		{"self loop", []qg.Edge{{ID: "a", Source: "s1", Target: "s1"}}, 1},
		{"three cycle", []qg.Edge{
			{ID: "a", Source: "t1", Target: "s1"},
			{ID: "b", Source: "s1", Target: "e1"},
			{ID: "c", Source: "e1", Target: "t1"},
		}, 1},
		{"two disjoint cycles still one error", []qg.Edge{
			{ID: "a", Source: "t1", Target: "s1"},
			{ID: "b", Source: "s1", Target: "t1"},
			{ID: "c", Source: "e1", Target: "e1"},
		}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGraph()
			g.Edges = tt.edges
			assert.Len(t, errorsContaining(Graph(g), "cycle"), tt.cycles)
		})
	}
}

func TestGraph_DanglingEdges(t *testing.T) {
	g := validGraph()
	g.Edges = []qg.Edge{
		{ID: "a", Source: "t1", Target: "ghost"},
		{ID: "b", Source: "nobody", Target: "nowhere"},
	}

	diags := Graph(g)

	target := errorsContaining(diags, `edge a: target node "ghost" not found`)
	require.Len(t, target, 1)
	assert.Equal(t, "t1", target[0].NodeID)
	assert.Len(t, errorsContaining(diags, "edge b:"), 2)
}

func TestGraph_DuplicateNodeIDs(t *testing.T) {
	g := validGraph()
	g.Nodes = append(g.Nodes, selectAll("s1"))
	assert.Len(t, errorsContaining(Graph(g), `duplicate node id "s1"`), 1)
}

func TestGraph_RuleOrder(t *testing.T) {
	g := graph(qg.Node{ID: "s1", Payload: &qg.Select{}}, end("e1", ""))
	g.Edges = []qg.Edge{{ID: "a", Source: "s1", Target: "s1"}}

	errs := qg.Errors(Graph(g))

	require.Len(t, errs, 4)
	assert.Contains(t, errs[0].Message, "at least one table")
	assert.Contains(t, errs[1].Message, "select-all")
	assert.Contains(t, errs[2].Message, "operator type")
	assert.Contains(t, errs[3].Message, "cycle")
}

func TestNode_ScopedToNode(t *testing.T) {
	g := graph(
		aliased(table("t1", "orders", field("user_id", qg.TypeInteger)), "o"),
		aliased(table("t2", "users", field("id", qg.TypeInteger)), "o"),
		selectAll("s1"),
	)
	g.Edges = []qg.Edge{{ID: "a", Source: "t1", Target: "ghost"}}

	t.Run("table sees its alias clash and its edges", func(t *testing.T) {
		diags := Node(g.Nodes[0], g)
		require.Len(t, diags, 2)
		assert.Contains(t, diags[0].Message, `alias "o"`)
		assert.Contains(t, diags[1].Message, "ghost")
	})

	t.Run("cross-node rules are skipped", func(t *testing.T) {
		diags := Node(g.Nodes[2], g)
		assert.Empty(t, diags)
	})
}
