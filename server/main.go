package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	qg "github.com/meikuraledutech/querygraph"
	"github.com/meikuraledutech/querygraph/config"
	"github.com/meikuraledutech/querygraph/postgres"
	"github.com/meikuraledutech/querygraph/scoring"
	"github.com/meikuraledutech/querygraph/sqlexec"
	"github.com/meikuraledutech/querygraph/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &api{log: logger}
	var exec qg.Executor

	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("connect", zap.Error(err))
		}
		defer pool.Close()
		pg := postgres.New(pool)
		a.repo = pg
		// Queries against the persistence database go through pgx directly.
		if cfg.Engine == string(sqlexec.Postgres) && cfg.EngineDSN == cfg.DatabaseURL {
			exec, a.schema = pg, pg
		}
	} else {
		logger.Info("DATABASE_URL is not set; graphs will not be persisted")
	}

	if exec == nil {
		engine, err := sqlexec.Open(sqlexec.Engine(cfg.Engine), cfg.EngineDSN)
		if err != nil {
			logger.Fatal("open engine", zap.Error(err))
		}
		defer engine.Close()
		exec, a.schema = engine, engine
	}

	budget := qg.Budget{PreferGPU: cfg.PreferGPU, Timeout: cfg.ScoreTimeout}
	a.sessions = newSessions(logger,
		store.WithLogger(logger),
		store.WithExecutor(exec),
		store.WithScorer(scoring.New(cfg.ScoreThreshold), budget),
	)

	app := newApp(a)

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.ListenAddr), zap.String("engine", cfg.Engine))
	if err := app.Listen(cfg.ListenAddr); err != nil {
		logger.Fatal("listen", zap.Error(err))
	}
}

// newLogger builds a development logger at debug level and a production
// logger otherwise.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zc := zap.NewProductionConfig()
	if lvl.Level() == zap.DebugLevel {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = lvl
	return zc.Build()
}
