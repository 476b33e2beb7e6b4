// Package dedup decides whether a notification has been seen before. Two
// layers run before any extraction work: a short-TTL in-memory cache and an
// append-only persistent fingerprint log scanned over a bounded window.
//
// The gate fails OPEN: when the lock cannot be acquired or the log cannot be
// read, the message is treated as new. Losing a transaction to a dropped
// duplicate check is worse than double-processing one, and the tradeoff is
// deliberate.
package dedup

import (
	"context"
	"math/rand"
	"time"

	"github.com/Shafi-prog/money-tracker-sub001/internal/lock"
	"github.com/Shafi-prog/money-tracker-sub001/internal/logging"
	"github.com/Shafi-prog/money-tracker-sub001/internal/models"
)

// Repository is the persistent append-only fingerprint log.
type Repository interface {
	// Recent returns up to limit records, most recently appended first.
	Recent(ctx context.Context, limit int) ([]models.DedupRecord, error)
	// Append adds a record to the log.
	Append(ctx context.Context, rec models.DedupRecord) error
	// PruneBefore removes records older than cutoff, scanning from the
	// oldest end, and returns how many were removed.
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// Options tune the gate. Zero values fall back to defaults.
type Options struct {
	CacheTTL       time.Duration // fast layer TTL, default 1h
	LookbackWindow int           // persisted fingerprints scanned, default 2500
	RecordTTL      time.Duration // log retention, default 72h
	LockWait       time.Duration // bounded lock wait, default 20s
	PruneChance    float64       // per-call prune probability, default 0.1
}

func (o *Options) fill() {
	if o.CacheTTL <= 0 {
		o.CacheTTL = time.Hour
	}
	if o.LookbackWindow <= 0 {
		o.LookbackWindow = 2500
	}
	if o.RecordTTL <= 0 {
		o.RecordTTL = 72 * time.Hour
	}
	if o.LockWait <= 0 {
		o.LockWait = 20 * time.Second
	}
	if o.PruneChance <= 0 {
		o.PruneChance = 0.1
	}
}

// Gate is the two-tier duplicate detector.
type Gate struct {
	repo   Repository
	locker lock.Locker
	cache  *ttlCache
	opts   Options
	logger logging.Logger
	rand   func() float64
	now    func() time.Time
}

// NewGate creates a dedup gate over the given log and lock.
func NewGate(repo Repository, locker lock.Locker, opts Options, logger logging.Logger) *Gate {
	opts.fill()
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Gate{
		repo:   repo,
		locker: locker,
		cache:  newTTLCache(opts.CacheTTL),
		opts:   opts,
		logger: logger,
		rand:   rand.Float64,
		now:    time.Now,
	}
}

// Seen reports whether the fingerprint was processed before, recording it as
// seen when it was not. Any failure along the way is logged and treated as
// "not seen".
func (g *Gate) Seen(ctx context.Context, fp string) bool {
	if g.cache.checkAndStore(fp) {
		g.logger.WithField(logging.FieldFingerprint, fp).Debug("Duplicate caught by fast cache")
		return true
	}
	return g.seenPersistent(ctx, fp)
}

func (g *Gate) seenPersistent(ctx context.Context, fp string) bool {
	release, err := g.locker.Acquire(ctx, g.opts.LockWait)
	if err != nil {
		// Fail open: the lock holder is taking too long, and blocking
		// ingestion on strict dedup loses messages.
		g.logger.WithError(err).WithField(logging.FieldFingerprint, fp).
			Warn("Dedup lock not acquired, treating as not duplicate")
		return false
	}
	defer release()

	records, err := g.repo.Recent(ctx, g.opts.LookbackWindow)
	if err != nil {
		g.logger.WithError(err).Error("Dedup log scan failed, treating as not duplicate")
		return false
	}
	for _, rec := range records {
		if rec.Fingerprint == fp {
			return true
		}
	}

	if err := g.repo.Append(ctx, models.DedupRecord{
		Fingerprint: fp,
		SeenAt:      g.now(),
		Status:      "OK",
	}); err != nil {
		g.logger.WithError(err).Error("Dedup log append failed")
		return false
	}

	// Opportunistic pruning keeps the log bounded without paying the scan
	// on every call.
	if g.rand() < g.opts.PruneChance {
		cutoff := g.now().Add(-g.opts.RecordTTL)
		if n, err := g.repo.PruneBefore(ctx, cutoff); err != nil {
			g.logger.WithError(err).Warn("Dedup log prune failed")
		} else if n > 0 {
			g.logger.WithField(logging.FieldCount, n).Debug("Pruned expired dedup records")
		}
	}

	return false
}
