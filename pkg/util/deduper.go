package util

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deduper struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewDeduper(rdb *redis.Client, ttl time.Duration) *Deduper {
	return &Deduper{
		rdb: rdb,
		ttl: ttl,
	}
}

// NewDeduperWithLogger creates a deduper with logger support
func NewDeduperWithLogger(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Deduper {
	return &Deduper{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// AcquireOnce tries to acquire a dedup marker for a handler + job key
// (identity plus provider message id). Returns true if this is the FIRST
// time processing, false if it's a duplicate delivery.
func (d *Deduper) AcquireOnce(ctx context.Context, handler, jobKey string) bool {
	key := fmt.Sprintf("dedup:%s:%s", handler, jobKey)

	ok, err := d.rdb.SetNX(ctx, key, 1, d.ttl).Result()
	if err != nil {
		// Redis 挂了？为了安全：当 redis 不可用时，不阻止处理，返回 true
		if d.logger != nil {
			d.logger.Warn("Redis dedup check failed, allowing processing",
				zap.String("handler", handler),
				zap.String("job_key", jobKey),
				zap.Error(err),
			)
		}
		return true
	}

	if !ok && d.logger != nil {
		d.logger.Info("Skipped duplicated event",
			zap.String("handler", handler),
			zap.String("job_key", jobKey),
			zap.String("dedup_key", key),
		)
	}

	return ok
}

// Release drops the dedup marker so a later redelivery can run the job
// again (used when processing fails before any side effect).
func (d *Deduper) Release(ctx context.Context, handler, jobKey string) {
	key := fmt.Sprintf("dedup:%s:%s", handler, jobKey)
	if err := d.rdb.Del(ctx, key).Err(); err != nil && d.logger != nil {
		d.logger.Warn("Failed to release dedup marker",
			zap.String("dedup_key", key),
			zap.Error(err),
		)
	}
}
