package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deduper claims question IDs in redis so overlapping tag-generation runs do
// not both call the suggestion service for the same record. The store's own
// anti-join filter remains the source of truth; this only saves duplicate
// external calls.
type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to claim (scope, id). It returns true when this caller
// is the first to process the record, false on a duplicate. When redis is
// unavailable it fails open and allows processing: the claim is an
// optimization, never a correctness gate.
func (d *Deduper) AcquireOnce(ctx context.Context, scope, id string) bool {
	key := fmt.Sprintf("backfill:dedup:%s:%s", scope, id)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("scope", scope),
				zap.String("id", id),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped already-claimed record",
			zap.String("scope", scope),
			zap.String("id", id),
		)
	}
	return ok
}
