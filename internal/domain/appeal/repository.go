package appeal

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/models"
)

type Repository interface {
	// CreateAppeal fails with ErrInvalidTransition when the booking already
	// has an active appeal.
	CreateAppeal(
		ctx context.Context,
		a *models.Appeal,
	) error

	// GetAppeal loads the evidence too.
	GetAppeal(
		ctx context.Context,
		id uuid.UUID,
	) (*models.Appeal, error)

	// GetActiveForBooking returns nil, nil when there is none.
	GetActiveForBooking(
		ctx context.Context,
		bookingID uuid.UUID,
	) (*models.Appeal, error)

	UpdateAppeal(
		ctx context.Context,
		a *models.Appeal,
	) error

	AddEvidence(
		ctx context.Context,
		ev *models.AppealEvidence,
	) error

	// ListDue returns active appeals whose current deadline has lapsed.
	ListDue(
		ctx context.Context,
		now time.Time,
		limit int,
	) ([]models.Appeal, error)
}
