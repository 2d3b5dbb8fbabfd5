package sqlgen

import (
	"sort"
	"strings"

	qg "github.com/meikuraledutech/querygraph"
)

// clause renders one SQL fragment, or "" when the clause does not apply.
type clause func(g *qg.Graph) string

func column(table, field string) string {
	if table == "" {
		return field
	}
	return table + "." + field
}

func withAlias(expr, alias string) string {
	if alias == "" {
		return expr
	}
	return expr + " AS " + alias
}

// SelectClause emits SELECT * when any Select node selects all columns, and
// otherwise projects the fields of the first Select or SelectAggregate node.
// Later projecting nodes are ignored.
func SelectClause(g *qg.Graph) string {
	for _, n := range g.Nodes {
		if s := n.Select(); s != nil && s.All {
			return "SELECT *"
		}
	}

	var exprs []string
	for _, n := range g.Nodes {
		if s := n.Select(); s != nil {
			for _, f := range s.Fields {
				exprs = append(exprs, withAlias(column(f.Table, f.Field), f.Alias))
			}
			break
		}
		if s := n.SelectAggregate(); s != nil {
			for _, f := range s.Fields {
				expr := column(f.Table, f.Field)
				if f.Func != "" {
					expr = string(f.Func) + "(" + expr + ")"
				}
				exprs = append(exprs, withAlias(expr, f.Alias))
			}
			break
		}
	}
	if len(exprs) == 0 {
		return "SELECT *"
	}
	return "SELECT " + strings.Join(exprs, ", ")
}

// FromClause names the first Table node only; other tables enter via JOIN.
func FromClause(g *qg.Graph) string {
	for _, n := range g.Nodes {
		if t := n.Table(); t != nil {
			return withAlias("FROM "+t.Name, t.Alias)
		}
	}
	return ""
}

// JoinClauses emits one line per Join node, ordered by Join.Order. Equal
// orders keep graph order.
func JoinClauses(g *qg.Graph) string {
	joins := make([]*qg.Join, 0)
	for _, n := range g.Nodes {
		if j := n.Join(); j != nil {
			joins = append(joins, j)
		}
	}
	sort.SliceStable(joins, func(a, b int) bool { return joins[a].Order < joins[b].Order })

	lines := make([]string, 0, len(joins))
	for _, j := range joins {
		lines = append(lines, joinLine(g, j))
	}
	return strings.Join(lines, "\n")
}

// joinLine renders one join. A right table known to the graph is written
// with its alias, like FROM.
func joinLine(g *qg.Graph, j *qg.Join) string {
	right := j.RightTable
	if right == "" && len(j.Conditions) > 0 {
		right = j.Conditions[0].RightTable
	}
	if t := g.FindTable(right); t != nil {
		right = withAlias(t.Name, t.Alias)
	}
	line := string(j.Type) + " JOIN " + right
	if j.Type == qg.JoinCross || len(j.Conditions) == 0 {
		return line
	}
	on := make([]string, 0, len(j.Conditions))
	for _, c := range j.Conditions {
		on = append(on, column(c.LeftTable, c.LeftField)+" = "+column(c.RightTable, c.RightField))
	}
	return line + " ON " + strings.Join(on, " AND ")
}

// WhereClause renders every Condition node in graph order and joins them with
// the first condition's connective. Connectives on later conditions are not
// consulted.
func WhereClause(g *qg.Graph) string {
	var (
		parts      []string
		connective qg.Connective
	)
	for _, n := range g.Nodes {
		c := n.Condition()
		if c == nil {
			continue
		}
		if len(parts) == 0 {
			connective = c.Connective
		}
		parts = append(parts, renderCondition(c))
	}
	if len(parts) == 0 {
		return ""
	}
	if !connective.Valid() {
		connective = qg.And
	}
	return "WHERE " + strings.Join(parts, " "+string(connective)+" ")
}

func renderCondition(c *qg.Condition) string {
	op := strings.Join(strings.Fields(strings.ToUpper(string(c.Op))), " ")
	lhs := column(c.Table, c.Field)
	switch {
	case c.Op.IsNullCheck():
		return lhs + " " + op
	case c.Value.IsList() || c.Op.IsSetMembership():
		items := c.Value.Items()
		quoted := make([]string, len(items))
		for i, v := range items {
			quoted[i] = QuoteValue(v)
		}
		return lhs + " " + op + " (" + strings.Join(quoted, ", ") + ")"
	}
	return lhs + " " + op + " " + QuoteValue(c.Value.Scalar())
}

// GroupByClause emits the group keys of the first SelectAggregate node that
// has any, verbatim and in order.
func GroupByClause(g *qg.Graph) string {
	for _, n := range g.Nodes {
		if s := n.SelectAggregate(); s != nil && len(s.GroupBy) > 0 {
			return "GROUP BY " + strings.Join(s.GroupBy, ", ")
		}
	}
	return ""
}

func assemble(g *qg.Graph, clauses []clause) string {
	var parts []string
	for _, c := range clauses {
		if s := c(g); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}
