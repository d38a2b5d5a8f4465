// backfill-categories assigns a category to every question that lacks one,
// using the rule-based classifier, against either the Convex deployment or
// the Postgres database.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"icebackfill/config"
	"icebackfill/internal/convex"
	"icebackfill/internal/repository"
	"icebackfill/internal/service"
	"icebackfill/internal/store"
	"icebackfill/internal/taxonomy"
	"icebackfill/pkg/db"
	"icebackfill/pkg/logger"
	"icebackfill/pkg/mq"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		storeName  = flag.String("store", "", `backend: "convex" or "postgres" (overrides config)`)
		limit      = flag.Int("limit", 0, "max questions to classify, 0 for all")
		batchSize  = flag.Int("batch-size", 0, "updates per batch (overrides config)")
		dryRun     = flag.Bool("dry-run", false, "classify without writing")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.NewLogger()
	defer logg.Sync()

	backend := cfg.Backfill.Store
	if *storeName != "" {
		backend = *storeName
	}

	ctx := context.Background()

	var categories store.CategoryStore
	switch backend {
	case "convex":
		if err := cfg.RequireConvex(); err != nil {
			logg.Fatal("Configuration error", zap.Error(err))
		}
		categories = convex.NewClient(cfg.Convex, logg)
	case "postgres":
		if err := cfg.RequireDB(); err != nil {
			logg.Fatal("Configuration error", zap.Error(err))
		}
		pool, err := db.NewConnection(cfg.DB, logg)
		if err != nil {
			logg.Fatal("Failed to init DB", zap.Error(err))
		}
		defer pool.Close()
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			logg.Fatal("Failed to ensure schema", zap.Error(err))
		}
		categories = repository.NewQuestionRepository(pool, logg)
	default:
		logg.Fatal("Unknown store backend", zap.String("store", backend))
	}

	var publisher service.EventPublisher
	if cfg.MQ.URL != "" {
		p, err := mq.NewPublisher(cfg.MQ.URL)
		if err != nil {
			logg.Warn("MQ unavailable, events disabled", zap.Error(err))
		} else {
			defer p.Close()
			publisher = p
		}
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, logg)
	}

	opts := service.Options{
		DryRun:    *dryRun,
		Limit:     *limit,
		BatchSize: cfg.Backfill.BatchSize,
	}
	if *batchSize > 0 {
		opts.BatchSize = *batchSize
	}

	backfill := service.NewBackfill(
		categories, nil,
		taxonomy.NewClassifier(nil), nil,
		publisher, nil,
		logg, opts,
	)

	if _, err := backfill.RunClassify(ctx); err != nil {
		logg.Fatal("Category backfill failed", zap.Error(err))
	}
}

func serveMetrics(addr string, logg *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	logg.Info("Serving metrics", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, mux); err != nil {
		logg.Warn("Metrics listener stopped", zap.Error(err))
	}
}
