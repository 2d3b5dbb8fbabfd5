// Package store owns one live query graph, keeps its diagnostics current as
// the graph is edited, and gates SQL generation and execution on them.
//
// A Store is not safe for concurrent use; callers serialize access to it.
package store

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	qg "github.com/meikuraledutech/querygraph"
	"github.com/meikuraledutech/querygraph/sqlgen"
	"github.com/meikuraledutech/querygraph/validate"
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for revalidation and execution events.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithExecutor sets the engine Execute sends generated SQL to.
func WithExecutor(e qg.Executor) Option {
	return func(s *Store) { s.exec = e }
}

// WithScorer sets the anomaly scorer and the budget passed to it.
func WithScorer(sc qg.Scorer, b qg.Budget) Option {
	return func(s *Store) {
		s.scorer = sc
		s.budget = b
	}
}

// Store is the sole mutator of one graph.
type Store struct {
	graph *qg.Graph
	diags []qg.Diagnostic

	selected  string
	panelOpen bool

	exec   qg.Executor
	scorer qg.Scorer
	budget qg.Budget
	log    *zap.Logger

	subs    map[int]func([]qg.Diagnostic)
	nextSub int
}

// New returns a store holding an empty graph. An empty id is replaced by a UUID.
func New(graphID string, opts ...Option) *Store {
	if graphID == "" {
		graphID = uuid.NewString()
	}
	s := &Store{
		graph: &qg.Graph{ID: graphID},
		log:   zap.NewNop(),
		subs:  make(map[int]func([]qg.Diagnostic)),
	}
	for _, o := range opts {
		o(s)
	}
	s.revalidate("new")
	return s
}

// ID returns the graph id.
func (s *Store) ID() string { return s.graph.ID }

// Graph returns a deep copy of the live graph.
func (s *Store) Graph() *qg.Graph { return s.graph.Clone() }

// Diagnostics returns the current findings.
func (s *Store) Diagnostics() []qg.Diagnostic {
	return append([]qg.Diagnostic{}, s.diags...)
}

// Load replaces the graph wholesale and revalidates it. The loaded graph
// keeps its own id when it has one.
func (s *Store) Load(g *qg.Graph) {
	c := g.Clone()
	if c.ID == "" {
		c.ID = s.graph.ID
	}
	s.graph = c
	s.revalidate("load")
}

// Subscribe registers fn to receive the diagnostics after every
// revalidation. The returned func unregisters it.
func (s *Store) Subscribe(fn func([]qg.Diagnostic)) (cancel func()) {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

// AddNode inserts a node and revalidates the whole graph.
// A node without an id gets a UUID; the id is returned.
func (s *Store) AddNode(n qg.Node) (string, error) {
	if n.Payload == nil {
		return "", fmt.Errorf("%w: node %q has no payload", qg.ErrUnknownKind, n.ID)
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if s.graph.NodeIndex(n.ID) >= 0 {
		return "", fmt.Errorf("%w %q", qg.ErrDuplicateNode, n.ID)
	}
	s.graph.Nodes = append(s.graph.Nodes, n.Clone())
	s.revalidate("addNode")
	return n.ID, nil
}

// RemoveNode deletes a node together with every edge touching it.
func (s *Store) RemoveNode(id string) error {
	i := s.graph.NodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w %q", qg.ErrNodeNotFound, id)
	}
	s.graph.Nodes = append(s.graph.Nodes[:i], s.graph.Nodes[i+1:]...)

	edges := s.graph.Edges[:0]
	for _, e := range s.graph.Edges {
		if e.Source != id && e.Target != id {
			edges = append(edges, e)
		}
	}
	s.graph.Edges = edges

	if s.selected == id {
		s.selected = ""
	}
	s.revalidate("removeNode")
	return nil
}

// AddEdge inserts an edge and revalidates the whole graph. Endpoints are
// not checked here; dangling ones surface as diagnostics.
func (s *Store) AddEdge(e qg.Edge) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if s.graph.EdgeIndex(e.ID) >= 0 {
		return "", fmt.Errorf("%w %q", qg.ErrDuplicateEdge, e.ID)
	}
	s.graph.Edges = append(s.graph.Edges, e)
	s.revalidate("addEdge")
	return e.ID, nil
}

// RemoveEdge deletes an edge and revalidates the whole graph, like AddEdge.
func (s *Store) RemoveEdge(id string) error {
	i := s.graph.EdgeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w %q", qg.ErrEdgeNotFound, id)
	}
	s.graph.Edges = append(s.graph.Edges[:i], s.graph.Edges[i+1:]...)
	s.revalidate("removeEdge")
	return nil
}

// UpdateNode merges p into the node's payload and revalidates only that
// node: its previous diagnostics are replaced, all others are kept even if
// the edit made them stale. End nodes are the exception and trigger a full
// pass, since the operator decides which node kinds are required.
func (s *Store) UpdateNode(id string, p qg.Patch) error {
	i := s.graph.NodeIndex(id)
	if i < 0 {
		return fmt.Errorf("%w %q", qg.ErrNodeNotFound, id)
	}
	n, err := qg.ApplyPatch(s.graph.Nodes[i], p)
	if err != nil {
		return err
	}
	s.graph.Nodes[i] = n
	if n.Kind() == qg.KindEnd {
		s.revalidate("updateNode")
		return nil
	}
	s.revalidateNode(n)
	return nil
}

// SetOperatorType chooses the analysis on the End node and revalidates.
func (s *Store) SetOperatorType(op qg.Operator) error {
	end, ok := s.graph.EndNode()
	if !ok {
		return qg.ErrNoEndNode
	}
	end.End().Operator = op
	s.revalidate("setOperatorType")
	return nil
}

// SetSelectedNode records which node the editor has focused.
func (s *Store) SetSelectedNode(id string) { s.selected = id }

// SelectedNode returns the focused node id, or "".
func (s *Store) SelectedNode() string { return s.selected }

// OpenPanel opens the node property panel.
func (s *Store) OpenPanel() { s.panelOpen = true }

// ClosePanel closes the node property panel.
func (s *Store) ClosePanel() { s.panelOpen = false }

// PanelOpen reports whether the property panel is open.
func (s *Store) PanelOpen() bool { return s.panelOpen }

func (s *Store) revalidate(trigger string) {
	diags := validate.Graph(s.graph)
	if end, ok := s.graph.EndNode(); ok {
		if strat, err := sqlgen.Lookup(end.End().Operator); err == nil {
			diags = append(diags, strat.MissingKinds(s.graph)...)
		}
	}
	s.diags = diags
	s.publish(trigger)
}

func (s *Store) revalidateNode(n qg.Node) {
	fresh := validate.Node(n, s.graph)
	kept := make([]qg.Diagnostic, 0, len(s.diags)+len(fresh))
	for _, d := range s.diags {
		if d.NodeID != n.ID {
			kept = append(kept, d)
		}
	}
	s.diags = append(kept, fresh...)
	s.publish("updateNode")
}

// publish mirrors the diagnostics onto the End node and notifies subscribers.
func (s *Store) publish(trigger string) {
	for _, n := range s.graph.Nodes {
		if e := n.End(); e != nil {
			e.Diagnostics = append([]qg.Diagnostic(nil), s.diags...)
		}
	}
	s.log.Debug("graph revalidated",
		zap.String("graph", s.graph.ID),
		zap.String("trigger", trigger),
		zap.Int("nodes", len(s.graph.Nodes)),
		zap.Int("edges", len(s.graph.Edges)),
		zap.Int("errors", len(qg.Errors(s.diags))),
	)
	for _, fn := range s.subs {
		fn(s.Diagnostics())
	}
}
