package main

import (
	"sync"

	"go.uber.org/zap"

	qg "github.com/meikuraledutech/querygraph"
	"github.com/meikuraledutech/querygraph/store"
)

// session is one open editor. A Store is single-writer, so every request
// touching it holds mu.
type session struct {
	mu       sync.Mutex
	st       *store.Store
	revision int
}

func newSession(st *store.Store) *session {
	s := &session{st: st}
	st.Subscribe(func([]qg.Diagnostic) { s.revision++ })
	return s
}

type sessions struct {
	mu   sync.RWMutex
	byID map[string]*session
	opts []store.Option
	log  *zap.Logger
}

func newSessions(log *zap.Logger, opts ...store.Option) *sessions {
	return &sessions{byID: make(map[string]*session), opts: opts, log: log}
}

// open creates a session for graphID, or a fresh id when empty.
// It returns false when the id is already open.
func (ss *sessions) open(graphID string) (*session, bool) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.byID[graphID]; ok && graphID != "" {
		return nil, false
	}
	s := newSession(store.New(graphID, ss.opts...))
	ss.byID[s.st.ID()] = s
	ss.log.Info("session opened", zap.String("graph", s.st.ID()))
	return s, true
}

// put replaces or creates the session for g.ID with g loaded.
func (ss *sessions) put(g *qg.Graph) *session {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if s, ok := ss.byID[g.ID]; ok {
		s.mu.Lock()
		s.st.Load(g)
		s.mu.Unlock()
		return s
	}
	s := newSession(store.New(g.ID, ss.opts...))
	s.st.Load(g)
	ss.byID[g.ID] = s
	return s
}

func (ss *sessions) get(id string) (*session, bool) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	s, ok := ss.byID[id]
	return s, ok
}

func (ss *sessions) close(id string) bool {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if _, ok := ss.byID[id]; !ok {
		return false
	}
	delete(ss.byID, id)
	ss.log.Info("session closed", zap.String("graph", id))
	return true
}

func (ss *sessions) ids() []string {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	out := make([]string, 0, len(ss.byID))
	for id := range ss.byID {
		out = append(out, id)
	}
	return out
}
