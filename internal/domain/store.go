package domain

import (
	"context"
	"time"

	"github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
)

// Store groups the repositories that a use case may touch in one unit of
// work. Repositories obtained from the Store passed to fn share fn's
// transaction; returning an error from fn rolls everything back.
type Store interface {
	Bookings() booking.Repository
	Appeals() appeal.Repository
	Wallets() wallet.Repository

	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// Locker serialises work on one entity across goroutines and API nodes.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// Deduper remembers delivery ids for at least ttl. Forget lets a failed
// delivery be processed again on redelivery.
type Deduper interface {
	FirstSeen(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Forget(ctx context.Context, key string) error
}

func BookingKey(id string) string { return "booking:" + id }
func SlotKey(id string) string { return "slot:" + id }
func AppealKey(id string) string { return "appeal:" + id }
func StudentKey(id string) string { return "student:" + id }
func TutorKey(id string) string { return "tutor:" + id }
func WalletKey(id string) string { return "wallet:" + id }
