// Package validate checks a query graph against structural and semantic
// rules. Findings are returned as diagnostics; the functions never fail.
package validate

import (
	qg "github.com/meikuraledutech/querygraph"
)

// rule is one independent checker over the whole graph.
type rule func(g *qg.Graph) []qg.Diagnostic

// rules run in this order and their findings are concatenated as-is.
var rules = []rule{
	requiredNodes,
	tables,
	joins,
	conditions,
	conditionGroups,
	selects,
	ends,
	cycles,
	edges,
	duplicateIDs,
}

// Graph runs every rule over g.
func Graph(g *qg.Graph) []qg.Diagnostic {
	diags := []qg.Diagnostic{}
	if g == nil {
		g = &qg.Graph{}
	}
	for _, r := range rules {
		diags = append(diags, r(g)...)
	}
	return diags
}

// Node runs only the checks scoped to n: its own kind's field rules, alias
// uniqueness for tables, and the integrity of edges touching it. Cross-node
// rules (required nodes, join requirement, cycles) are left to Graph.
func Node(n qg.Node, g *qg.Graph) []qg.Diagnostic {
	if g == nil {
		g = &qg.Graph{}
	}
	var diags []qg.Diagnostic
	switch n.Kind() {
	case qg.KindTable:
		diags = checkTable(n, hasOtherAlias(n, g))
	case qg.KindJoin:
		diags = checkJoin(n, g)
	case qg.KindCondition:
		diags = checkCondition(n, g)
	case qg.KindConditionGroup:
		diags = checkConditionGroup(n, g)
	case qg.KindSelect, qg.KindSelectAggregate:
		diags = checkSelect(n)
	case qg.KindEnd:
		diags = checkEnd(n)
	}
	for _, e := range g.Edges {
		if e.Source == n.ID || e.Target == n.ID {
			diags = append(diags, checkEdge(e, g)...)
		}
	}
	return diags
}

func requiredNodes(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	if g.CountKind(qg.KindTable) == 0 {
		diags = append(diags, qg.GraphErrorf("graph needs at least one table node"))
	}
	switch ends := g.CountKind(qg.KindEnd); {
	case ends == 0:
		diags = append(diags, qg.GraphErrorf("graph needs an end node"))
	case ends > 1:
		diags = append(diags, qg.GraphErrorf("graph has %d end nodes; exactly one is allowed", ends))
	}
	return diags
}

func selects(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	found := false
	for _, n := range g.Nodes {
		if k := n.Kind(); k == qg.KindSelect || k == qg.KindSelectAggregate {
			found = true
			diags = append(diags, checkSelect(n)...)
		}
	}
	if !found {
		diags = append(diags, qg.GraphWarnf("graph has no select node; every column will be returned"))
	}
	return diags
}

func checkSelect(n qg.Node) []qg.Diagnostic {
	if s := n.Select(); s != nil {
		if !s.All && len(s.Fields) == 0 {
			return []qg.Diagnostic{qg.Errorf(n, "select needs select-all or at least one field")}
		}
		return nil
	}
	s := n.SelectAggregate()
	if s == nil {
		return nil
	}
	if len(s.Fields) == 0 {
		return []qg.Diagnostic{qg.Errorf(n, "aggregate select needs at least one field")}
	}
	var diags []qg.Diagnostic
	for i, f := range s.Fields {
		switch f.Func {
		case "", qg.AggSum, qg.AggCount, qg.AggAvg, qg.AggMin, qg.AggMax:
		default:
			diags = append(diags, qg.Errorf(n, "field %d: unknown aggregate %q", i+1, f.Func))
		}
	}
	return diags
}

func ends(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	for _, n := range g.NodesOfKind(qg.KindEnd) {
		diags = append(diags, checkEnd(n)...)
	}
	return diags
}

func checkEnd(n qg.Node) []qg.Diagnostic {
	e := n.End()
	switch {
	case e.Operator == "":
		return []qg.Diagnostic{qg.Errorf(n, "an operator type must be selected")}
	case !e.Operator.Valid():
		return []qg.Diagnostic{qg.Errorf(n, "unknown operator %q", e.Operator)}
	}
	return nil
}

func duplicateIDs(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if seen[n.ID] {
			diags = append(diags, qg.Errorf(n, "duplicate node id %q", n.ID))
		}
		seen[n.ID] = true
	}
	return diags
}
