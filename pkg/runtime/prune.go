package runtime

import (
	"context"
	"time"

	"github.com/marmos91/dittoio/internal/logger"
)

// pruneLoop drops terminal records older than retention every interval.
func (r *Runtime) pruneLoop(ctx context.Context, retention, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.tracker.Prune(ctx, retention)
			if err != nil {
				logger.Warn("Failed to prune transfer records", logger.Err(err))
				continue
			}
			if n > 0 {
				logger.Info("Pruned transfer records", "count", n, "retention", retention.String())
			}
		}
	}
}
