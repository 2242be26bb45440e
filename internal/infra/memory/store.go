package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type tables struct {
	slots        map[uuid.UUID]models.TimeSlot
	courses      map[uuid.UUID]models.Course
	bookings     map[uuid.UUID]models.Booking
	reschedules  map[uuid.UUID]models.RescheduleRequest
	payments     map[uuid.UUID]models.PaymentRecord
	appeals      map[uuid.UUID]models.Appeal
	evidence     map[uuid.UUID]models.AppealEvidence
	balances     map[uuid.UUID]models.WalletBalance
	transactions map[uuid.UUID]models.WalletTransaction
}

func newTables() *tables {
	return &tables{
		slots:        map[uuid.UUID]models.TimeSlot{},
		courses:      map[uuid.UUID]models.Course{},
		bookings:     map[uuid.UUID]models.Booking{},
		reschedules:  map[uuid.UUID]models.RescheduleRequest{},
		payments:     map[uuid.UUID]models.PaymentRecord{},
		appeals:      map[uuid.UUID]models.Appeal{},
		evidence:     map[uuid.UUID]models.AppealEvidence{},
		balances:     map[uuid.UUID]models.WalletBalance{},
		transactions: map[uuid.UUID]models.WalletTransaction{},
	}
}

func cloneMap[T any](m map[uuid.UUID]T) map[uuid.UUID]T {
	out := make(map[uuid.UUID]T, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t *tables) clone() *tables {
	return &tables{
		slots:        cloneMap(t.slots),
		courses:      cloneMap(t.courses),
		bookings:     cloneMap(t.bookings),
		reschedules:  cloneMap(t.reschedules),
		payments:     cloneMap(t.payments),
		appeals:      cloneMap(t.appeals),
		evidence:     cloneMap(t.evidence),
		balances:     cloneMap(t.balances),
		transactions: cloneMap(t.transactions),
	}
}

// Store keeps every table in maps behind one RWMutex. Transactions are
// serialised and rolled back by restoring a snapshot taken at begin.
type Store struct {
	txMu  sync.Mutex
	mutex sync.RWMutex
	t     *tables
}

var _ domain.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{t: newTables()}
}

func (s *Store) Bookings() booking.Repository { return &bookingRepository{db: s} }
func (s *Store) Appeals() appeal.Repository { return &appealRepository{db: s} }
func (s *Store) Wallets() wallet.Repository { return &walletRepository{db: s} }

func (s *Store) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	s.mutex.RLock()
	snapshot := s.t.clone()
	s.mutex.RUnlock()

	if err := fn(txStore{s}); err != nil {
		s.mutex.Lock()
		s.t = snapshot
		s.mutex.Unlock()
		return err
	}
	return nil
}

// txStore flattens nested WithinTx calls into the outer transaction.
type txStore struct {
	*Store
}

func (s txStore) WithinTx(_ context.Context, fn func(tx domain.Store) error) error {
	return fn(s)
}

func notFound(entity string, id any) error {
	return fmt.Errorf("%w: %s %v", httperr.ErrNotFound, entity, id)
}

// ======================================================
// Seeding helpers for tests and local runs
// ======================================================

func (s *Store) PutCourse(c models.Course) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.t.courses[c.ID] = c
}

func (s *Store) PutSlot(slot models.TimeSlot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.t.slots[slot.ID] = slot
}
