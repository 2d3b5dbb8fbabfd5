package validate

import (
	qg "github.com/meikuraledutech/querygraph"
)

// cycles reports a single graph-wide error for the first cycle found.
func cycles(g *qg.Graph) []qg.Diagnostic {
	if hasCycle(g) {
		return []qg.Diagnostic{qg.GraphErrorf("graph contains a cycle")}
	}
	return nil
}

// hasCycle runs a coloring DFS from every node, including ids that only
// appear as edge endpoints.
func hasCycle(g *qg.Graph) bool {
	adj := make(map[string][]string)
	for _, e := range g.Edges {
		adj[e.Source] = append(adj[e.Source], e.Target)
	}

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	state := make(map[string]int)
	var order []string
	add := func(id string) {
		if _, ok := state[id]; !ok {
			state[id] = unvisited
			order = append(order, id)
		}
	}
	for _, n := range g.Nodes {
		add(n.ID)
	}
	for _, e := range g.Edges {
		add(e.Source)
		add(e.Target)
	}

	var dfs func(id string) bool
	dfs = func(id string) bool {
		state[id] = visiting
		for _, next := range adj[id] {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		return false
	}

	for _, id := range order {
		if state[id] == unvisited && dfs(id) {
			return true
		}
	}
	return false
}

func edges(g *qg.Graph) []qg.Diagnostic {
	var diags []qg.Diagnostic
	for _, e := range g.Edges {
		diags = append(diags, checkEdge(e, g)...)
	}
	return diags
}

// checkEdge reports dangling endpoints against the endpoint that does exist,
// so a node-scoped revalidation can replace them.
func checkEdge(e qg.Edge, g *qg.Graph) []qg.Diagnostic {
	src, srcOK := g.Node(e.Source)
	dst, dstOK := g.Node(e.Target)
	var diags []qg.Diagnostic
	if !srcOK {
		diags = append(diags, edgeDiag(dst, dstOK, "edge %s: source node %q not found", e.ID, e.Source))
	}
	if !dstOK {
		diags = append(diags, edgeDiag(src, srcOK, "edge %s: target node %q not found", e.ID, e.Target))
	}
	return diags
}

func edgeDiag(anchor qg.Node, ok bool, format string, args ...any) qg.Diagnostic {
	if ok {
		return qg.Errorf(anchor, format, args...)
	}
	return qg.GraphErrorf(format, args...)
}
