package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/clock"
	"github.com/wemaster/booking-core/internal/domain"
	bookingdomain "github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase/appeal"
)

type Completer interface {
	Execute(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
}

type Settler interface {
	Execute(ctx context.Context, bookingID uuid.UUID) (bool, error)
}

type AppealSweeper interface {
	Execute(ctx context.Context, limit int) (appeal.SweepResult, error)
}

type Reconciler interface {
	Reconcile(ctx context.Context, limit int) (int, error)
}

type Summary struct {
	Expired   int
	Completed int
	Settled   int
	Escalated int
	Overdue   int
	Retried   int
	Failed    int
}

func (s Summary) empty() bool {
	return s == Summary{}
}

// Sweeper drives everything that happens because time passed: unconfirmed
// lessons starting, lessons ending, appeal deadlines, settlement and payment retries. Every step is
// idempotent, so overlapping runs on several nodes are harmless.
type Sweeper struct {
	store    domain.Store
	clock    clock.Clock
	policy   bookingdomain.Policy
	expire   Completer
	complete Completer
	settle   Settler
	appeals  AppealSweeper
	payments Reconciler
	interval time.Duration
	batch    int
	logger   *zap.Logger
	stopChan chan struct{}
	done     chan struct{}
}

type Config struct {
	Interval  time.Duration
	BatchSize int
}

func NewSweeper(
	store domain.Store,
	clk clock.Clock,
	policy bookingdomain.Policy,
	expire Completer,
	complete Completer,
	settle Settler,
	appeals AppealSweeper,
	payments Reconciler,
	cfg Config,
	logger *zap.Logger,
) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}

	return &Sweeper{
		store:    store,
		clock:    clk,
		policy:   policy,
		expire:   expire,
		complete: complete,
		settle:   settle,
		appeals:  appeals,
		payments: payments,
		interval: cfg.Interval,
		batch:    cfg.BatchSize,
		logger:   logger,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs a pass immediately and then on every tick until Stop is
// called or ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("starting deadline sweeper", zap.Duration("interval", s.interval))
	go s.run(ctx)
}

func (s *Sweeper) Stop() {
	s.logger.Info("stopping deadline sweeper")
	close(s.stopChan)
	<-s.done
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)

	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-s.stopChan:
			s.logger.Info("deadline sweeper stopped")
			return
		case <-ctx.Done():
			s.logger.Info("deadline sweeper cancelled")
			return
		}
	}
}

// RunOnce performs one full pass.
func (s *Sweeper) RunOnce(ctx context.Context) Summary {
	var sum Summary

	s.expireUnpaid(ctx, &sum)
	s.completeEnded(ctx, &sum)
	s.sweepAppeals(ctx, &sum)
	s.settleLapsed(ctx, &sum)
	s.reconcilePayments(ctx, &sum)

	if !sum.empty() {
		s.logger.Info("sweep finished",
			zap.Int("expired", sum.Expired),
			zap.Int("completed", sum.Completed),
			zap.Int("settled", sum.Settled),
			zap.Int("escalated", sum.Escalated),
			zap.Int("overdue", sum.Overdue),
			zap.Int("retried", sum.Retried),
			zap.Int("failed", sum.Failed),
		)
	}
	return sum
}

func (s *Sweeper) expireUnpaid(ctx context.Context, sum *Summary) {
	due, err := s.store.Bookings().ListDueForExpiry(ctx, s.clock.Now(), s.batch)
	if err != nil {
		s.logger.Error("list bookings due for expiry", zap.Error(err))
		sum.Failed++
		return
	}

	for _, b := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.expire.Execute(ctx, b.ID); err != nil {
			s.logger.Warn("expire booking", zap.String("booking_id", b.ID.String()), zap.Error(err))
			sum.Failed++
			continue
		}
		sum.Expired++
	}
}

func (s *Sweeper) completeEnded(ctx context.Context, sum *Summary) {
	due, err := s.store.Bookings().ListDueForCompletion(ctx, s.clock.Now(), s.batch)
	if err != nil {
		s.logger.Error("list bookings due for completion", zap.Error(err))
		sum.Failed++
		return
	}

	for _, b := range due {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.complete.Execute(ctx, b.ID); err != nil {
			s.logger.Warn("complete booking", zap.String("booking_id", b.ID.String()), zap.Error(err))
			sum.Failed++
			continue
		}
		sum.Completed++
	}
}

func (s *Sweeper) sweepAppeals(ctx context.Context, sum *Summary) {
	res, err := s.appeals.Execute(ctx, s.batch)
	if err != nil {
		s.logger.Error("sweep appeals", zap.Error(err))
		sum.Failed++
	}
	sum.Escalated += res.Escalated
	sum.Overdue += res.Overdue
}

func (s *Sweeper) settleLapsed(ctx context.Context, sum *Summary) {
	before := s.clock.Now().Add(-s.policy.AppealWindow())

	due, err := s.store.Bookings().ListDueForSettlement(ctx, before, s.batch)
	if err != nil {
		s.logger.Error("list bookings due for settlement", zap.Error(err))
		sum.Failed++
		return
	}

	for _, b := range due {
		if ctx.Err() != nil {
			return
		}
		settled, err := s.settle.Execute(ctx, b.ID)
		if err != nil {
			s.logger.Warn("settle booking", zap.String("booking_id", b.ID.String()), zap.Error(err))
			sum.Failed++
			continue
		}
		if settled {
			sum.Settled++
		}
	}
}

func (s *Sweeper) reconcilePayments(ctx context.Context, sum *Summary) {
	retried, err := s.payments.Reconcile(ctx, s.batch)
	if err != nil {
		s.logger.Error("reconcile payments", zap.Error(err))
		sum.Failed++
	}
	sum.Retried += retried
}
