package validate

import (
	"strings"

	qg "github.com/meikuraledutech/querygraph"
)

func tables(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	seen := make(map[string]bool)
	for _, n := range g.NodesOfKind(qg.KindTable) {
		alias := strings.TrimSpace(n.Table().Alias)
		dup := alias != "" && seen[alias]
		if alias != "" {
			seen[alias] = true
		}
		diags = append(diags, checkTable(n, dup)...)
	}
	return diags
}

func checkTable(n qg.Node, duplicateAlias bool) []qg.Diagnostic {
	t := n.Table()
	var diags []qg.Diagnostic
	if strings.TrimSpace(t.Name) == "" {
		diags = append(diags, qg.Errorf(n, "table name is required"))
	}
	if len(t.Fields) == 0 {
		diags = append(diags, qg.Errorf(n, "table %q has no fields", t.Name))
	}
	if duplicateAlias {
		diags = append(diags, qg.Errorf(n, "alias %q is already used by another table", t.Alias))
	}
	return diags
}

// hasOtherAlias reports whether any other table node shares n's alias.
func hasOtherAlias(n qg.Node, g *qg.Graph) bool {
	alias := strings.TrimSpace(n.Table().Alias)
	if alias == "" {
		return false
	}
	for _, other := range g.NodesOfKind(qg.KindTable) {
		if other.ID != n.ID && strings.TrimSpace(other.Table().Alias) == alias {
			return true
		}
	}
	return false
}
