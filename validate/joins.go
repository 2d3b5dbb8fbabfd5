package validate

import (
	qg "github.com/meikuraledutech/querygraph"
)

func joins(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	joinNodes := g.NodesOfKind(qg.KindJoin)
	if tables := g.CountKind(qg.KindTable); tables > 1 && len(joinNodes) == 0 {
		diags = append(diags, qg.GraphErrorf("%d tables need at least one join node", tables))
	}
	for _, n := range joinNodes {
		diags = append(diags, checkJoin(n, g)...)
	}
	return diags
}

func checkJoin(n qg.Node, g *qg.Graph) []qg.Diagnostic {
	j := n.Join()
	var diags []qg.Diagnostic
	if j.LeftTable != "" && g.FindTable(j.LeftTable) == nil {
		diags = append(diags, qg.Errorf(n, "left table %q not found", j.LeftTable))
	}
	if j.RightTable != "" && g.FindTable(j.RightTable) == nil {
		diags = append(diags, qg.Errorf(n, "joined table %q not found", j.RightTable))
	}
	if len(j.Conditions) == 0 {
		diags = append(diags, qg.Errorf(n, "join has no conditions"))
	}
	for i, c := range j.Conditions {
		diags = append(diags, checkJoinCondition(n, g, i+1, c)...)
	}
	if !j.Type.Valid() {
		diags = append(diags, qg.Errorf(n, "unknown join type %q", j.Type))
	}
	return diags
}

func checkJoinCondition(n qg.Node, g *qg.Graph, idx int, c qg.JoinCondition) []qg.Diagnostic {
	var diags []qg.Diagnostic
	left, ld := resolveField(n, g, idx, c.LeftTable, c.LeftField)
	right, rd := resolveField(n, g, idx, c.RightTable, c.RightField)
	diags = append(diags, ld...)
	diags = append(diags, rd...)
	if left != nil && right != nil && !qg.Compatible(left.Type, right.Type) {
		diags = append(diags, qg.Errorf(n, "condition %d: type mismatch between %s.%s (%s) and %s.%s (%s)",
			idx, c.LeftTable, c.LeftField, left.Type, c.RightTable, c.RightField, right.Type))
	}
	return diags
}

func resolveField(n qg.Node, g *qg.Graph, idx int, table, field string) (*qg.Field, []qg.Diagnostic) {
	t := g.FindTable(table)
	if t == nil {
		return nil, []qg.Diagnostic{qg.Errorf(n, "condition %d: table %q not found", idx, table)}
	}
	f := t.Field(field)
	if f == nil {
		return nil, []qg.Diagnostic{qg.Errorf(n, "condition %d: field %q not found on table %q", idx, field, table)}
	}
	return f, nil
}
