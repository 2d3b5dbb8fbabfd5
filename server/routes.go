package main

import (
	"errors"
	"sort"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	qg "github.com/meikuraledutech/querygraph"
	"github.com/meikuraledutech/querygraph/store"
)

// api is everything the handlers need. repo and schema may be nil; the
// routes that depend on them then answer 503.
type api struct {
	sessions *sessions
	repo     qg.Repository
	schema   qg.SchemaSource
	log      *zap.Logger
}

// status maps package errors onto HTTP codes.
func status(err error) int {
	switch {
	case errors.Is(err, qg.ErrNodeNotFound),
		errors.Is(err, qg.ErrEdgeNotFound),
		errors.Is(err, qg.ErrTableNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, qg.ErrDuplicateNode),
		errors.Is(err, qg.ErrDuplicateEdge):
		return fiber.StatusConflict
	case errors.Is(err, qg.ErrKindMismatch),
		errors.Is(err, qg.ErrUnknownKind):
		return fiber.StatusBadRequest
	case errors.Is(err, qg.ErrGraphInvalid),
		errors.Is(err, qg.ErrNoEndNode),
		errors.Is(err, qg.ErrUnknownOperator):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, qg.ErrNoExecutor),
		errors.Is(err, qg.ErrNoScorer):
		return fiber.StatusServiceUnavailable
	}
	return fiber.StatusInternalServerError
}

func (a *api) fail(c fiber.Ctx, err error) error {
	code := status(err)
	if code >= fiber.StatusInternalServerError {
		a.log.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

// view is the JSON shape of an open graph.
func view(s *session) fiber.Map {
	return fiber.Map{
		"graph":       s.st.Graph(),
		"diagnostics": s.st.Diagnostics(),
		"canExecute":  s.st.CanExecute(),
		"revision":    s.revision,
		"selected":    s.st.SelectedNode(),
		"panelOpen":   s.st.PanelOpen(),
	}
}

// locked runs fn on the session named by :id while holding its lock.
func (a *api) locked(c fiber.Ctx, fn func(s *session) error) error {
	s, ok := a.sessions.get(c.Params("id"))
	if !ok {
		return c.Status(404).JSON(fiber.Map{"error": "graph not found"})
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s)
}

func newApp(a *api) *fiber.App {
	app := fiber.New()

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if a.repo == nil {
			return c.Status(503).JSON(fiber.Map{"error": "persistence not configured"})
		}
		if err := a.repo.CreateSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if a.repo == nil {
			return c.Status(503).JSON(fiber.Map{"error": "persistence not configured"})
		}
		if err := a.repo.DropSchema(c.Context()); err != nil {
			return a.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Graphs ────────────────────────────────────────────────────────
	app.Get("/graphs", func(c fiber.Ctx) error {
		open := a.sessions.ids()
		sort.Strings(open)
		out := fiber.Map{"open": open}
		if a.repo != nil {
			saved, err := a.repo.ListGraphs(c.Context())
			if err != nil {
				return a.fail(c, err)
			}
			out["saved"] = saved
		}
		return c.JSON(out)
	})

	app.Post("/graphs", func(c fiber.Ctx) error {
		var g qg.Graph
		if len(c.Body()) > 0 {
			if err := c.Bind().JSON(&g); err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
			}
		}
		s, ok := a.sessions.open(g.ID)
		if !ok {
			return c.Status(409).JSON(fiber.Map{"error": "graph already open"})
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		if len(g.Nodes) > 0 || len(g.Edges) > 0 {
			g.ID = s.st.ID()
			s.st.Load(&g)
		}
		return c.Status(201).JSON(view(s))
	})

	app.Get("/graphs/:id", func(c fiber.Ctx) error {
		return a.locked(c, func(s *session) error {
			return c.JSON(view(s))
		})
	})

	// ?purge=true also deletes the saved copy.
	app.Delete("/graphs/:id", func(c fiber.Ctx) error {
		id := c.Params("id")
		purge := c.Query("purge") == "true" && a.repo != nil
		if purge {
			if err := a.repo.DeleteGraph(c.Context(), id); err != nil {
				return a.fail(c, err)
			}
		}
		if !a.sessions.close(id) && !purge {
			return c.Status(404).JSON(fiber.Map{"error": "graph not found"})
		}
		return c.SendStatus(204)
	})

	app.Put("/graphs/:id/selection", func(c fiber.Ctx) error {
		var body struct {
			NodeID    string `json:"nodeId"`
			PanelOpen bool   `json:"panelOpen"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		return a.locked(c, func(s *session) error {
			if _, ok := s.st.Graph().Node(body.NodeID); body.NodeID != "" && !ok {
				return c.Status(404).JSON(fiber.Map{"error": "node not found"})
			}
			s.st.SetSelectedNode(body.NodeID)
			if body.PanelOpen {
				s.st.OpenPanel()
			} else {
				s.st.ClosePanel()
			}
			return c.SendStatus(204)
		})
	})

	// ── Nodes ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/nodes", func(c fiber.Ctx) error {
		var n qg.Node
		if err := c.Bind().JSON(&n); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": err.Error()})
		}
		return a.locked(c, func(s *session) error {
			id, err := s.st.AddNode(n)
			if err != nil {
				return a.fail(c, err)
			}
			return c.Status(201).JSON(fiber.Map{"id": id, "diagnostics": s.st.Diagnostics()})
		})
	})

	app.Patch("/graphs/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		return a.locked(c, func(s *session) error {
			nodeID := c.Params("nodeID")
			n, ok := s.st.Graph().Node(nodeID)
			if !ok {
				return c.Status(404).JSON(fiber.Map{"error": "node not found"})
			}
			p, err := qg.DecodePatch(n.Kind(), c.Body())
			if err != nil {
				if status(err) == fiber.StatusInternalServerError {
					return c.Status(400).JSON(fiber.Map{"error": err.Error()})
				}
				return a.fail(c, err)
			}
			if err := s.st.UpdateNode(nodeID, p); err != nil {
				return a.fail(c, err)
			}
			return c.JSON(fiber.Map{"diagnostics": s.st.Diagnostics()})
		})
	})

	app.Delete("/graphs/:id/nodes/:nodeID", func(c fiber.Ctx) error {
		return a.locked(c, func(s *session) error {
			if err := s.st.RemoveNode(c.Params("nodeID")); err != nil {
				return a.fail(c, err)
			}
			return c.SendStatus(204)
		})
	})

	app.Post("/graphs/:id/nodes/:nodeID/discover", func(c fiber.Ctx) error {
		if a.schema == nil {
			return c.Status(503).JSON(fiber.Map{"error": "schema discovery not configured"})
		}
		return a.locked(c, func(s *session) error {
			if err := s.st.DiscoverTable(c.Context(), a.schema, c.Params("nodeID")); err != nil {
				return a.fail(c, err)
			}
			n, _ := s.st.Graph().Node(c.Params("nodeID"))
			return c.JSON(fiber.Map{"node": n, "diagnostics": s.st.Diagnostics()})
		})
	})

	// ── Edges ─────────────────────────────────────────────────────────
	app.Post("/graphs/:id/edges", func(c fiber.Ctx) error {
		var e qg.Edge
		if err := c.Bind().JSON(&e); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		return a.locked(c, func(s *session) error {
			id, err := s.st.AddEdge(e)
			if err != nil {
				return a.fail(c, err)
			}
			return c.Status(201).JSON(fiber.Map{"id": id, "diagnostics": s.st.Diagnostics()})
		})
	})

	app.Delete("/graphs/:id/edges/:edgeID", func(c fiber.Ctx) error {
		return a.locked(c, func(s *session) error {
			if err := s.st.RemoveEdge(c.Params("edgeID")); err != nil {
				return a.fail(c, err)
			}
			return c.SendStatus(204)
		})
	})

	// ── Analysis ──────────────────────────────────────────────────────
	app.Put("/graphs/:id/operator", func(c fiber.Ctx) error {
		var body struct {
			Operator qg.Operator `json:"operator"`
		}
		if err := c.Bind().JSON(&body); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		return a.locked(c, func(s *session) error {
			if err := s.st.SetOperatorType(body.Operator); err != nil {
				return a.fail(c, err)
			}
			return c.JSON(fiber.Map{"diagnostics": s.st.Diagnostics()})
		})
	})

	app.Get("/graphs/:id/diagnostics", func(c fiber.Ctx) error {
		return a.locked(c, func(s *session) error {
			return c.JSON(fiber.Map{
				"diagnostics": s.st.Diagnostics(),
				"canExecute":  s.st.CanExecute(),
				"revision":    s.revision,
			})
		})
	})

	app.Get("/graphs/:id/sql", func(c fiber.Ctx) error {
		return a.locked(c, func(s *session) error {
			sql, err := s.st.CompileSQL()
			if err != nil {
				return a.invalid(c, s.st, err)
			}
			return c.JSON(fiber.Map{"sql": sql})
		})
	})

	app.Post("/graphs/:id/execute", func(c fiber.Ctx) error {
		return a.locked(c, func(s *session) error {
			res, err := s.st.Execute(c.Context())
			if err != nil {
				return a.invalid(c, s.st, err)
			}
			return c.JSON(res)
		})
	})

	// ── Persistence ───────────────────────────────────────────────────
	app.Post("/graphs/:id/save", func(c fiber.Ctx) error {
		if a.repo == nil {
			return c.Status(503).JSON(fiber.Map{"error": "persistence not configured"})
		}
		return a.locked(c, func(s *session) error {
			if err := a.repo.SaveGraph(c.Context(), s.st.Graph()); err != nil {
				return a.fail(c, err)
			}
			return c.JSON(fiber.Map{"message": "graph saved"})
		})
	})

	app.Post("/graphs/:id/restore", func(c fiber.Ctx) error {
		if a.repo == nil {
			return c.Status(503).JSON(fiber.Map{"error": "persistence not configured"})
		}
		g, err := a.repo.LoadGraph(c.Context(), c.Params("id"))
		if err != nil {
			return a.fail(c, err)
		}
		if g == nil {
			return c.Status(404).JSON(fiber.Map{"error": "graph not found"})
		}
		s := a.sessions.put(g)
		s.mu.Lock()
		defer s.mu.Unlock()
		return c.JSON(view(s))
	})

	return app
}

// invalid answers compile and execute failures. Blocking diagnostics are
// returned alongside the error so the editor can show them.
func (a *api) invalid(c fiber.Ctx, st *store.Store, err error) error {
	if errors.Is(err, qg.ErrGraphInvalid) {
		return c.Status(422).JSON(fiber.Map{
			"error":       err.Error(),
			"diagnostics": qg.Errors(st.Diagnostics()),
		})
	}
	code := status(err)
	if code == fiber.StatusInternalServerError {
		// executor and scorer failures
		a.log.Warn("execution failed", zap.String("path", c.Path()), zap.Error(err))
		code = fiber.StatusBadGateway
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
