// Package sweeper closes import sessions that a client abandoned halfway
// through the batch protocol. Only one instance sweeps at a time.
package sweeper

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/metrics"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/redis"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"github.com/robfig/cron/v3"
)

const (
	DefaultSchedule   = "@every 10m"
	DefaultStaleAfter = 2 * time.Hour
	lockKey           = "sweeper:sessions"
	lockTTL           = 5 * time.Minute
)

type AuditLog interface {
	SweepStale(ctx context.Context, olderThan time.Duration) ([]models.SyncLog, error)
}

type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error
}

type Config struct {
	Schedule   string
	StaleAfter time.Duration
}

type Sweeper struct {
	audit  AuditLog
	locker Locker
	cfg    Config
	logger ectologger.Logger

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

func New(audit AuditLog, locker Locker, cfg Config, logger ectologger.Logger) *Sweeper {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = DefaultStaleAfter
	}
	return &Sweeper{
		audit:  audit,
		locker: locker,
		cfg:    cfg,
		logger: logger,
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
	}
}

// Start schedules the sweep. Stop or cancelling ctx ends it.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return fmt.Errorf("sweeper already running")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.Sweep(s.ctx); err != nil {
			s.logger.WithContext(s.ctx).WithError(err).Error("Failed to sweep stale import sessions")
		}
	}); err != nil {
		s.cancel()
		s.cancel = nil
		return fmt.Errorf("invalid sweeper schedule %q: %w", s.cfg.Schedule, err)
	}
	s.cron.Start()

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"schedule":    s.cfg.Schedule,
		"stale_after": s.cfg.StaleAfter.String(),
	}).Info("Session sweeper started")
	return nil
}

// Stop waits for a running sweep to end.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.cron.Stop().Done()
	s.cancel = nil
	s.logger.Info("Session sweeper stopped")
}

// Sweep closes stale sessions once. It returns zero without error when
// another instance holds the sweep lock.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "sweeper.Sweep")
	defer span.End()

	var closed int
	err := s.locker.WithLock(ctx, lockKey, lockTTL, func(ctx context.Context) error {
		logs, err := s.audit.SweepStale(ctx, s.cfg.StaleAfter)
		closed = len(logs)
		return err
	})
	if stderrors.Is(err, redis.ErrLockNotAcquired) {
		s.logger.WithContext(ctx).Debug("Sweep skipped, another instance holds the lock")
		return 0, nil
	}
	metrics.SessionsSwept.Add(float64(closed))
	// swept sessions never reach Finish or Fail, which is where the gauge drops
	metrics.ActiveImports.Sub(float64(closed))
	return closed, err
}
