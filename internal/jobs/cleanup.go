// Package jobs holds background maintenance loops that run for the lifetime of
// the server process.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Purger is the slice of the booking layer the cleanup job needs.
type Purger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// Cleanup periodically deletes expired bookings: pending requests whose date
// has passed and terminal bookings beyond the retention window. Blocks until
// ctx is cancelled; run it in its own goroutine.
func Cleanup(ctx context.Context, purger Purger, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("booking cleanup job started", zap.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("booking cleanup job stopped")
			return
		case <-ticker.C:
			n, err := purger.PurgeExpired(ctx)
			if err != nil {
				logger.Error("booking cleanup failed", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Info("expired bookings purged", zap.Int64("count", n))
			}
		}
	}
}
