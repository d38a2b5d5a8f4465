// backfill-tags generates tags for questions with zero tag associations via
// the Gemini API and links them in Postgres, creating each tag row at most
// once.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"icebackfill/config"
	"icebackfill/internal/repository"
	"icebackfill/internal/service"
	"icebackfill/internal/suggest"
	"icebackfill/pkg/db"
	"icebackfill/pkg/logger"
	"icebackfill/pkg/mq"
	"icebackfill/pkg/redis"
	"icebackfill/pkg/util"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to config file")
		limit      = flag.Int("limit", 0, "max questions to process, 0 for all")
		dryRun     = flag.Bool("dry-run", false, "generate tags without writing")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logg := logger.NewLogger()
	defer logg.Sync()

	if err := cfg.RequireDB(); err != nil {
		logg.Fatal("Configuration error", zap.Error(err))
	}
	if err := cfg.RequireGemini(); err != nil {
		logg.Fatal("Configuration error", zap.Error(err))
	}

	ctx := context.Background()

	pool, err := db.NewConnection(cfg.DB, logg)
	if err != nil {
		logg.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	if err := repository.EnsureSchema(ctx, pool); err != nil {
		logg.Fatal("Failed to ensure schema", zap.Error(err))
	}

	suggester, err := suggest.NewGeminiSuggester(ctx, cfg.Gemini, logg)
	if err != nil {
		logg.Fatal("Failed to init tag suggester", zap.Error(err))
	}

	var claimer service.Claimer
	if cfg.Redis.Addr != "" {
		rdb := redis.NewRedisClient(cfg.Redis)
		claimer = util.NewDeduper(rdb, time.Hour, logg)
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
		DryRun: *dryRun,
		Limit:  *limit,
		Delay:  time.Duration(cfg.Backfill.DelayMS) * time.Millisecond,
	}

	backfill := service.NewBackfill(
		nil, repository.NewTagRepository(pool, logg),
		nil, suggester,
		publisher, claimer,
		logg, opts,
	)

	if _, err := backfill.RunTagGeneration(ctx); err != nil {
		logg.Fatal("Tag backfill failed", zap.Error(err))
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
