package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/async"
	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/clock"
	"github.com/wemaster/booking-core/internal/domain"
)

// Deps are the collaborators every use case shares.
type Deps struct {
	Store  domain.Store
	Locker domain.Locker
	Events audit.Publisher
	Async  async.Runner
	Clock  clock.Clock
	Log    *zap.Logger
}

// WithLock runs fn while holding the named entity lock.
func (d Deps) WithLock(ctx context.Context, key string, fn func() error) error {
	unlock, err := d.Locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("lock %s: %w", key, err)
	}
	defer unlock()

	return fn()
}

// LockBooking is the lock every booking-mutating flow takes, appeals and
// payment callbacks included.
func (d Deps) LockBooking(ctx context.Context, id uuid.UUID, fn func() error) error {
	return d.WithLock(ctx, domain.BookingKey(id.String()), fn)
}

// Emit is called after commit.
func (d Deps) Emit(actorID *uuid.UUID, action, entity string, entityID uuid.UUID, metadata any) {
	d.Events.Dispatch(audit.Event{
		ActorID:    actorID,
		Action:     action,
		Entity:     entity,
		EntityID:   entityID,
		Metadata:   metadata,
		OccurredAt: d.Clock.Now(),
	})
}

// After collects work that must run once the store transaction committed
// and the entity lock is released: event dispatch and async jobs.
type After struct {
	fns []func()
}

func (a *After) Do(fn func()) {
	a.fns = append(a.fns, fn)
}

func (a *After) Run() {
	for _, fn := range a.fns {
		fn()
	}
	a.fns = nil
}

// EmitAfter queues an event for after commit.
func (d Deps) EmitAfter(a *After, actorID *uuid.UUID, action, entity string, entityID uuid.UUID, metadata any) {
	a.Do(func() { d.Emit(actorID, action, entity, entityID, metadata) })
}
