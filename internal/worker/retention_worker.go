package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/application"
	"github.com/DanielPopoola/giftcard-webhook-gateway/internal/metrics"
)

// maxBatchesPerRun keeps one tick from monopolising the store after a long outage.
const maxBatchesPerRun = 100

// RetentionWorker deletes idempotency records older than the retention
// window. Processors stop redelivering long before it elapses.
type RetentionWorker struct {
	purger    application.IdempotencyPurger
	retention time.Duration
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	now       func() time.Time
}

func NewRetentionWorker(
	purger application.IdempotencyPurger,
	retention time.Duration,
	interval time.Duration,
	batchSize int,
	logger *slog.Logger,
) *RetentionWorker {
	return &RetentionWorker{
		purger:    purger,
		retention: retention,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger,
		now:       time.Now,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	w.logger.Info("retention worker started", "interval", w.interval, "retention", w.retention)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("retention worker stopping")
			return
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RetentionWorker) runOnce(ctx context.Context) {
	purged, err := w.Purge(ctx)
	if err != nil {
		w.logger.Error("retention purge failed", "purged", purged, "error", err)
		return
	}
	if purged > 0 {
		w.logger.Info("purged expired webhook records", "purged", purged)
	}
}

// Purge removes expired records in batches until a short batch comes back.
func (w *RetentionWorker) Purge(ctx context.Context) (int64, error) {
	cutoff := w.now().Add(-w.retention)

	var total int64
	for i := 0; i < maxBatchesPerRun; i++ {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := w.purger.PurgeBefore(ctx, cutoff, w.batchSize)
		if err != nil {
			return total, err
		}
		total += n
		metrics.RecordsPurged.Add(float64(n))

		if n < int64(w.batchSize) {
			break
		}
	}
	return total, nil
}
