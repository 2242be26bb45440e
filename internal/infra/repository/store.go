package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/wemaster/booking-core/internal/domain"
	"github.com/wemaster/booking-core/internal/domain/appeal"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
)

// GormStore hands out repositories bound to one *gorm.DB, which is the
// open transaction inside WithinTx.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Bookings() booking.Repository {
	return NewBookingGormRepository(s.db)
}

func (s *GormStore) Appeals() appeal.Repository {
	return NewAppealGormRepository(s.db)
}

func (s *GormStore) Wallets() wallet.Repository {
	return NewWalletGormRepository(s.db)
}

// WithinTx nests as a savepoint when s is already transactional.
func (s *GormStore) WithinTx(ctx context.Context, fn func(tx domain.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}

// Compile-time check
var _ domain.Store = (*GormStore)(nil)

// --------------------------------------------------
// Error translation
// --------------------------------------------------

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func isUniqueViolation(err error) bool {
	return pgCode(err) == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	return pgCode(err) == pgForeignKeyViolation
}

func notFound(entity string, id any) error {
	return fmt.Errorf("%w: %s %v", httperr.ErrNotFound, entity, id)
}

// first maps gorm.ErrRecordNotFound to httperr.ErrNotFound.
func first(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(entity, id)
	}
	return err
}

// optional maps gorm.ErrRecordNotFound to (false, nil).
func optional(err error) (bool, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
