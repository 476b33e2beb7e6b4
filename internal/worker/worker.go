// Package worker drains the message queue in bounded batches. One batch runs
// at a time across all processes, guarded by a shared lock; a contended lock
// skips the cycle instead of piling up.
package worker

import (
	"context"
	"errors"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/lock"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
	"github.com/Shafi-prog/money-tracker-sub001/internal/pipeline"
)

// QueueStore is the queue surface the worker needs.
type QueueStore interface {
	FetchNew(ctx context.Context, limit int) ([]models.QueueItem, error)
	UpdateStatus(ctx context.Context, id, status, fingerprint string) error
}

// Processor runs one message through the pipeline.
type Processor interface {
	Process(ctx context.Context, msg models.RawMessage) (pipeline.Outcome, error)
}

var _ Processor = (*pipeline.Pipeline)(nil)

// Options tune batch behavior. Zero values fall back to defaults.
type Options struct {
	BatchSize int           // items per batch, default 15
	LockWait  time.Duration // bounded wait for the batch lock, default 20s
	Interval  time.Duration // polling interval for Run, default 30s
}

func (o *Options) fill() {
	if o.BatchSize <= 0 {
		o.BatchSize = 15
	}
	if o.LockWait <= 0 {
		o.LockWait = 20 * time.Second
	}
	if o.Interval <= 0 {
		o.Interval = 30 * time.Second
	}
}

// maxErrReason bounds the reason text stored on an ERR status row.
const maxErrReason = 120

// Worker drains the queue.
type Worker struct {
	queue     QueueStore
	processor Processor
	locker    lock.Locker
	opts      Options
	logger    logging.Logger
}

// New creates a worker.
func New(queue QueueStore, processor Processor, locker lock.Locker, opts Options, logger logging.Logger) *Worker {
	if logger == nil {
		logger = logging.GetLogger()
	}
	opts.fill()
	return &Worker{
		queue:     queue,
		processor: processor,
		locker:    locker,
		opts:      opts,
		logger:    logger,
	}
}

// BatchResult counts what one batch did.
type BatchResult struct {
	Fetched    int
	Processed  int
	Duplicates int
	Failed     int
	Skipped    bool // lock contention, nothing attempted
}

// RunBatch processes up to BatchSize NEW items. Lock contention is not an
// error: another process is draining, so this cycle yields.
func (w *Worker) RunBatch(ctx context.Context) (BatchResult, error) {
	release, err := w.locker.Acquire(ctx, w.opts.LockWait)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			w.logger.Debug("Batch lock contended, skipping cycle")
			return BatchResult{Skipped: true}, nil
		}
		return BatchResult{}, err
	}
	defer release()

	items, err := w.queue.FetchNew(ctx, w.opts.BatchSize)
	if err != nil {
		return BatchResult{}, err
	}

	res := BatchResult{Fetched: len(items)}
	for _, item := range items {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		w.processItem(ctx, item, &res)
	}

	if res.Fetched > 0 {
		w.logger.WithFields(
			logging.Field{Key: logging.FieldCount, Value: res.Fetched},
			logging.Field{Key: "ok", Value: res.Processed},
			logging.Field{Key: "duplicates", Value: res.Duplicates},
			logging.Field{Key: "failed", Value: res.Failed},
		).Info("Batch finished")
	}
	return res, nil
}

// processItem walks one queue row through NEW → RUN → terminal status. The
// status write happens before and after processing so a crash mid-item is
// visible as a stuck RUN row.
func (w *Worker) processItem(ctx context.Context, item models.QueueItem, res *BatchResult) {
	if err := w.queue.UpdateStatus(ctx, item.ID, models.StatusRunning, ""); err != nil {
		w.logger.WithError(err).WithField(logging.FieldItemID, item.ID).
			Error("Failed to mark item running, leaving for next batch")
		return
	}

	out, err := w.processor.Process(ctx, models.RawMessage{
		Text:        item.Text,
		Source:      item.Source,
		ReceivedAt:  item.ReceivedAt,
		RoutingMeta: item.MetaJSON,
	})

	var status string
	switch {
	case err != nil:
		status = models.StatusErr + ": " + truncate(err.Error(), maxErrReason)
		res.Failed++
		w.logger.WithError(err).WithFields(
			logging.Field{Key: logging.FieldItemID, Value: item.ID},
			logging.Field{Key: logging.FieldFingerprint, Value: out.Fingerprint},
		).Error("Item processing failed")
	case out.Status == models.StatusSkipDup:
		status = models.StatusSkipDup
		res.Duplicates++
	default:
		status = models.StatusOK
		res.Processed++
	}

	if err := w.queue.UpdateStatus(ctx, item.ID, status, out.Fingerprint); err != nil {
		w.logger.WithError(err).WithField(logging.FieldItemID, item.ID).
			Error("Failed to record item status")
	}
}

// Run loops RunBatch until the context ends. Batch errors are logged, not
// fatal; the queue is durable and the next tick retries.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			w.logger.WithError(err).Error("Batch run failed")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
