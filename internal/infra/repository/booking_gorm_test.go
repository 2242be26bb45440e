package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/wemaster/booking-core/internal/domain/booking"
)

// renderedQuery runs fn against a dry-run postgres session and returns the
// SQL and vars of its last query.
func renderedQuery(t *testing.T, fn func(r *BookingGormRepository) error) (string, []any) {
	t.Helper()

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}), &gorm.Config{
		DryRun:               true,
		DisableAutomaticPing: true,
		Logger:               gormlogger.Discard,
	})
	require.NoError(t, err)

	var (
		sql  string
		vars []any
	)
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:capture", func(tx *gorm.DB) {
		sql = tx.Statement.SQL.String()
		vars = append([]any(nil), tx.Statement.Vars...)
	}))

	require.NoError(t, fn(NewBookingGormRepository(db)))
	return sql, vars
}

func TestListPaymentRetriesQuery(t *testing.T) {
	sql, vars := renderedQuery(t, func(r *BookingGormRepository) error {
		_, err := r.ListPaymentRetries(context.Background(), 25)
		return err
	})

	assert.Contains(t, sql, `WHERE (payment_status = $1 AND status <> $2) OR payment_status = $3`)
	assert.Contains(t, sql, "ORDER BY slot_end_time ASC")
	require.Len(t, vars, 4)
	assert.Equal(t, booking.PaymentIntentFailed, vars[0])
	assert.Equal(t, booking.StatusCancelled, vars[1])
	assert.Equal(t, booking.PaymentRefundFailed, vars[2])
	assert.Equal(t, 25, vars[3])
}

func TestListDueForExpiryQuery(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	sql, vars := renderedQuery(t, func(r *BookingGormRepository) error {
		_, err := r.ListDueForExpiry(context.Background(), now, 10)
		return err
	})

	assert.Contains(t, sql, `WHERE status = $1 AND slot_start_time <= $2`)
	require.Len(t, vars, 3)
	assert.Equal(t, booking.StatusPending, vars[0])
	assert.Equal(t, now, vars[1])
}
