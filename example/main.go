package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"go.uber.org/zap"

	qg "github.com/meikuraledutech/querygraph"
	"github.com/meikuraledutech/querygraph/scoring"
	"github.com/meikuraledutech/querygraph/sqlexec"
	"github.com/meikuraledutech/querygraph/store"
)

func main() {
	ctx := context.Background()

	db, err := sqlexec.Open(sqlexec.SQLite, ":memory:")
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	defer db.Close()
	// Each pooled connection would get its own in-memory database.
	db.DB().SetMaxOpenConns(1)

	// 1. Seed a tiny warehouse
	for _, stmt := range []string{
		`CREATE TABLE customers (id INTEGER PRIMARY KEY, name TEXT NOT NULL, country TEXT)`,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, customer_id INTEGER NOT NULL, total REAL)`,
		`INSERT INTO customers VALUES (1, 'Ada', 'UK'), (2, 'Grace', 'US'), (3, 'Linus', 'FI')`,
		`INSERT INTO orders VALUES (1, 1, 20), (2, 1, 22), (3, 2, 19), (4, 3, 21), (5, 3, 950)`,
	} {
		if _, err := db.DB().ExecContext(ctx, stmt); err != nil {
			log.Fatalf("seed: %v", err)
		}
	}
	fmt.Println("warehouse seeded")

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	s := store.New("customer-orders",
		store.WithLogger(logger),
		store.WithExecutor(db),
		store.WithScorer(scoring.New(1.5), qg.Budget{}),
	)
	s.Subscribe(func(d []qg.Diagnostic) {
		fmt.Printf("  diagnostics: %d (%d errors)\n", len(d), len(qg.Errors(d)))
	})

	// ── Build the graph node by node ──────────────────────────────────
	mustAdd(s, qg.Node{ID: "customers", Payload: &qg.Table{Name: "customers", Alias: "c"}})
	mustAdd(s, qg.Node{ID: "orders", Payload: &qg.Table{Name: "orders", Alias: "o"}})

	// Fields come from the engine, not the user.
	for _, id := range []string{"customers", "orders"} {
		if err := s.DiscoverTable(ctx, db, id); err != nil {
			log.Fatalf("discover %s: %v", id, err)
		}
	}

	mustAdd(s, qg.Node{ID: "join", Payload: &qg.Join{
		Type:       qg.JoinInner,
		LeftTable:  "c",
		RightTable: "o",
		Conditions: []qg.JoinCondition{{LeftTable: "c", LeftField: "id", RightTable: "o", RightField: "customer_id"}},
	}})
	mustAdd(s, qg.Node{ID: "select", Payload: &qg.Select{Fields: []qg.SelectField{
		{Table: "o", Field: "id"},
		{Table: "c", Field: "name"},
		{Table: "o", Field: "total"},
	}}})
	mustAdd(s, qg.Node{ID: "end", Payload: &qg.End{Operator: qg.OperatorAssociation}})
	for _, e := range [][2]string{{"customers", "join"}, {"orders", "join"}, {"join", "select"}, {"select", "end"}} {
		if _, err := s.AddEdge(qg.Edge{Source: e[0], Target: e[1]}); err != nil {
			log.Fatalf("add edge: %v", err)
		}
	}

	sql, err := s.CompileSQL()
	if err != nil {
		log.Fatalf("compile: %v", err)
	}
	fmt.Printf("\nassociation SQL:\n%s\n", sql)

	res, err := s.Execute(ctx)
	if err != nil {
		log.Fatalf("execute: %v", err)
	}
	printJSON(res.Rows)

	// ── Same graph, anomaly analysis ──────────────────────────────────
	if err := s.SetOperatorType(qg.OperatorAnomaly); err != nil {
		log.Fatalf("operator: %v", err)
	}
	res, err = s.Execute(ctx)
	if err != nil {
		log.Fatalf("execute: %v", err)
	}
	fmt.Println("\nanomaly scores:")
	printJSON(res.Anomalies)

	// ── A broken edit is reported, not executed ───────────────────────
	mustAdd(s, qg.Node{ID: "big", Payload: &qg.Condition{
		Table: "o", Field: "amount", Op: qg.OpGt, Value: qg.Scalar("100"),
	}})
	if _, err := s.CompileSQL(); err != nil {
		fmt.Printf("\ncompile refused: %v\n", err)
	}
}

func mustAdd(s *store.Store, n qg.Node) {
	if _, err := s.AddNode(n); err != nil {
		log.Fatalf("add node %s: %v", n.ID, err)
	}
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
