package validate

import (
	"strings"

	qg "github.com/meikuraledutech/querygraph"
)

func conditions(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	for _, n := range g.NodesOfKind(qg.KindCondition) {
		diags = append(diags, checkCondition(n, g)...)
	}
	return diags
}

func checkCondition(n qg.Node, g *qg.Graph) []qg.Diagnostic {
	c := n.Condition()
	var diags []qg.Diagnostic

	var table *qg.Table
	if strings.TrimSpace(c.Table) == "" {
		diags = append(diags, qg.Errorf(n, "condition table is required"))
	} else if table = g.FindTable(c.Table); table == nil {
		diags = append(diags, qg.Errorf(n, "table %q not found", c.Table))
	}

	switch {
	case strings.TrimSpace(c.Field) == "":
		diags = append(diags, qg.Errorf(n, "condition field is required"))
	case table != nil && table.Field(c.Field) == nil:
		diags = append(diags, qg.Errorf(n, "field %q not found on table %q", c.Field, c.Table))
	}

	switch {
	case strings.TrimSpace(string(c.Op)) == "":
		diags = append(diags, qg.Errorf(n, "condition operator is required"))
	case !c.Op.Valid():
		diags = append(diags, qg.Errorf(n, "unknown operator %q", c.Op))
	}

	if !c.Op.IsNullCheck() && c.Value.IsEmpty() {
		diags = append(diags, qg.Errorf(n, "a value is required for operator %q", c.Op))
	}
	return diags
}

func conditionGroups(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	for _, n := range g.NodesOfKind(qg.KindConditionGroup) {
		diags = append(diags, checkConditionGroup(n, g)...)
	}
	return diags
}

func checkConditionGroup(n qg.Node, g *qg.Graph) []qg.Diagnostic {
	grp := n.ConditionGroup()
	var diags []qg.Diagnostic
	if !grp.Connective.Valid() {
		diags = append(diags, qg.Errorf(n, "unknown logical operator %q", grp.Connective))
	}
	if len(grp.Members) == 0 {
		diags = append(diags, qg.Warnf(n, "condition group is empty"))
	}
	for _, id := range grp.Members {
		m, ok := g.Node(id)
		if !ok || m.Kind() != qg.KindCondition {
			diags = append(diags, qg.Errorf(n, "member %q is not a condition node", id))
		}
	}
	return diags
}
