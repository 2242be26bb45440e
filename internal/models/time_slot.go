package models

import (
	"time"

	"github.com/google/uuid"
)

type TimeSlot struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TutorID uuid.UUID `gorm:"type:uuid;index;not null" json:"tutor_id"`

	StartTime time.Time `gorm:"index;not null" json:"start_time"`
	EndTime   time.Time `gorm:"not null" json:"end_time"`

	IsBooked  bool       `gorm:"not null;default:false" json:"is_booked"`
	BookingID *uuid.UUID `gorm:"type:uuid" json:"booking_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s TimeSlot) Snapshot() SlotSnapshot {
	return SlotSnapshot{
		SlotID:    s.ID,
		StartTime: s.StartTime,
		EndTime:   s.EndTime,
	}
}
