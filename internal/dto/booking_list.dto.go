package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/models"
)

type BookingListDTO struct {
	ID            uuid.UUID `json:"id"`
	StudentID     uuid.UUID `json:"student_id"`
	TutorID       uuid.UUID `json:"tutor_id"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"payment_status"`
	TotalPrice    int64     `json:"total_price"`
}

func NewBookingList(bookings []models.Booking) []BookingListDTO {
	out := make([]BookingListDTO, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingListDTO{
			ID:            b.ID,
			StudentID:     b.StudentID,
			TutorID:       b.TutorID,
			StartTime:     b.TimeSlot.StartTime,
			EndTime:       b.TimeSlot.EndTime,
			Status:        b.Status,
			PaymentStatus: b.PaymentStatus,
			TotalPrice:    b.Price.TotalPrice,
		})
	}
	return out
}
