package booking

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

const maxSlotLength = 8 * time.Hour

func NewSlot(tutorID uuid.UUID, start, end, now time.Time) (*models.TimeSlot, error) {
	start, end = start.UTC(), end.UTC()

	if !end.After(start) {
		return nil, fmt.Errorf("%w: end_time must be after start_time", httperr.ErrInvalidInput)
	}
	if end.Sub(start) > maxSlotLength {
		return nil, fmt.Errorf("%w: slot longer than %s", httperr.ErrInvalidInput, maxSlotLength)
	}
	if !start.After(now) {
		return nil, fmt.Errorf("%w: slot starts in the past", httperr.ErrInvalidInput)
	}

	return &models.TimeSlot{
		ID:        uuid.New(),
		TutorID:   tutorID,
		StartTime: start,
		EndTime:   end,
	}, nil
}
