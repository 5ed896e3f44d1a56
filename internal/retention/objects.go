package retention

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/fixora/tracker/internal/logger"
	"github.com/fixora/tracker/internal/ports"
)

// objectDeleter removes remote blobs with a bounded retry. It never returns
// an error: keys that cannot be deleted are reported back as orphans.
type objectDeleter struct {
	store    ports.ObjectStore
	attempts int
	interval time.Duration
	logger   logger.Logger
	metrics  *Metrics
}

// deleteAll attempts every key and returns the keys left behind
func (d *objectDeleter) deleteAll(ctx context.Context, keys []string) []string {
	var orphaned []string
	for _, key := range keys {
		if key == "" {
			continue
		}
		if !d.delete(ctx, key) {
			orphaned = append(orphaned, key)
		}
	}
	return orphaned
}

func (d *objectDeleter) delete(ctx context.Context, key string) bool {
	if d.store == nil {
		return true
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = d.interval
	b.MaxInterval = 10 * d.interval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if err := d.store.Delete(ctx, key); err != nil {
			d.logger.Warn(ctx, "Object delete attempt failed", map[string]interface{}{
				"object_key":   key,
				"attempt":      attempt,
				"max_attempts": d.attempts,
				"error":        err.Error(),
			})
			return struct{}{}, err
		}
		return struct{}{}, nil
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(d.attempts)),
	)
	if err == nil {
		return true
	}

	d.metrics.recordObjectFailure()
	d.logger.Warn(ctx, "Giving up on object delete, blob left orphaned", map[string]interface{}{
		"object_key": key,
		"attempts":   attempt,
		"error":      err.Error(),
	})
	return false
}
