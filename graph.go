// Package querygraph models a visual SQL query as a directed graph of typed
// nodes. Validation lives in the validate package, SQL generation in sqlgen
// and the owning reactive store in store.
package querygraph

import (
	"encoding/json"
	"fmt"
)

// Kind identifies what a node represents on the canvas.
type Kind string

const (
	KindStart           Kind = "start"
	KindTable           Kind = "table"
	KindJoin            Kind = "join"
	KindCondition       Kind = "condition"
	KindConditionGroup  Kind = "conditionGroup"
	KindSelect          Kind = "select"
	KindSelectAggregate Kind = "selectAggregate"
	KindEnd             Kind = "end"
)

// Kinds lists every node kind in declaration order.
var Kinds = []Kind{
	KindStart, KindTable, KindJoin, KindCondition,
	KindConditionGroup, KindSelect, KindSelectAggregate, KindEnd,
}

// Graph is one in-progress visual query.
// Node order is significant: clause builders consult the first node of a kind.
type Graph struct {
	ID    string `json:"id"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Position is where the node sits on the canvas. It never affects compilation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a vertex of the graph. Its kind is carried by the payload variant,
// so a node can never disagree with its own payload.
type Node struct {
	ID       string
	Position Position
	Payload  Payload
}

// Edge is a directed connection between two nodes.
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// NewNode returns a node of the given kind carrying an empty payload.
func NewNode(id string, kind Kind) (Node, error) {
	p, err := NewPayload(kind)
	if err != nil {
		return Node{}, err
	}
	return Node{ID: id, Payload: p}, nil
}

// Kind returns the node kind, or "" when the node has no payload.
func (n Node) Kind() Kind {
	if n.Payload == nil {
		return ""
	}
	return n.Payload.Kind()
}

// Table returns the table payload, or nil when n is not a Table node.
func (n Node) Table() *Table {
	t, _ := n.Payload.(*Table)
	return t
}

// Join returns the join payload, or nil when n is not a Join node.
func (n Node) Join() *Join {
	j, _ := n.Payload.(*Join)
	return j
}

// Condition returns the condition payload, or nil when n is not a Condition node.
func (n Node) Condition() *Condition {
	c, _ := n.Payload.(*Condition)
	return c
}

// ConditionGroup returns the group payload, or nil when n is not a ConditionGroup node.
func (n Node) ConditionGroup() *ConditionGroup {
	g, _ := n.Payload.(*ConditionGroup)
	return g
}

// Select returns the select payload, or nil when n is not a Select node.
func (n Node) Select() *Select {
	s, _ := n.Payload.(*Select)
	return s
}

// SelectAggregate returns the aggregate payload, or nil when n is not a SelectAggregate node.
func (n Node) SelectAggregate() *SelectAggregate {
	s, _ := n.Payload.(*SelectAggregate)
	return s
}

// End returns the end payload, or nil when n is not an End node.
func (n Node) End() *End {
	e, _ := n.Payload.(*End)
	return e
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	if n.Payload != nil {
		n.Payload = n.Payload.clone()
	}
	return n
}

type nodeJSON struct {
	ID       string          `json:"id"`
	Kind     Kind            `json:"kind"`
	Position Position        `json:"position"`
	Data     json.RawMessage `json:"data,omitempty"`
}

// MarshalJSON writes the node with its payload under "data".
func (n Node) MarshalJSON() ([]byte, error) {
	out := nodeJSON{ID: n.ID, Kind: n.Kind(), Position: n.Position}
	if n.Payload != nil {
		data, err := json.Marshal(n.Payload)
		if err != nil {
			return nil, fmt.Errorf("querygraph: marshal %s payload: %w", n.Kind(), err)
		}
		out.Data = data
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes "data" into the payload variant selected by "kind".
func (n *Node) UnmarshalJSON(b []byte) error {
	var in nodeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	p, err := DecodePayload(in.Kind, in.Data)
	if err != nil {
		return err
	}
	*n = Node{ID: in.ID, Position: in.Position, Payload: p}
	return nil
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	if i := g.NodeIndex(id); i >= 0 {
		return g.Nodes[i], true
	}
	return Node{}, false
}

// NodeIndex returns the position of the node in g.Nodes, or -1.
func (g *Graph) NodeIndex(id string) int {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// EdgeIndex returns the position of the edge in g.Edges, or -1.
func (g *Graph) EdgeIndex(id string) int {
	for i := range g.Edges {
		if g.Edges[i].ID == id {
			return i
		}
	}
	return -1
}

// NodesOfKind returns the nodes of one kind in graph order.
func (g *Graph) NodesOfKind(kind Kind) []Node {
	var out []Node
	for _, n := range g.Nodes {
		if n.Kind() == kind {
			out = append(out, n)
		}
	}
	return out
}

// CountKind returns how many nodes of the kind the graph holds.
func (g *Graph) CountKind(kind Kind) int {
	c := 0
	for _, n := range g.Nodes {
		if n.Kind() == kind {
			c++
		}
	}
	return c
}

// FindTable resolves a table reference by table name or, when set, alias.
func (g *Graph) FindTable(ref string) *Table {
	if ref == "" {
		return nil
	}
	for _, n := range g.Nodes {
		t := n.Table()
		if t == nil {
			continue
		}
		if t.Name == ref || (t.Alias != "" && t.Alias == ref) {
			return t
		}
	}
	return nil
}

// EndNode returns the first End node.
func (g *Graph) EndNode() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind() == KindEnd {
			return n, true
		}
	}
	return Node{}, false
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	out := &Graph{ID: g.ID}
	if g.Nodes != nil {
		out.Nodes = make([]Node, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	if g.Edges != nil {
		out.Edges = append([]Edge(nil), g.Edges...)
	}
	return out
}
