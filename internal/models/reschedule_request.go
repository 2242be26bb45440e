package models

import (
	"time"

	"github.com/google/uuid"
)

type RescheduleRequest struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;index;not null" json:"booking_id"`
	StudentID uuid.UUID `gorm:"type:uuid;not null" json:"student_id"`
	TutorID   uuid.UUID `gorm:"type:uuid;not null" json:"tutor_id"`

	RequestedBy uuid.UUID `gorm:"type:uuid;not null" json:"requested_by"`

	OriginalTimeSlot SlotSnapshot `gorm:"embedded;embeddedPrefix:original_" json:"original_time_slot"`
	ProposedTimeSlot SlotSnapshot `gorm:"embedded;embeddedPrefix:proposed_" json:"proposed_time_slot"`

	Status          string  `gorm:"size:20;not null;default:'pending'" json:"status"`
	Reason          string  `gorm:"size:255" json:"reason"`
	ResponseMessage *string `gorm:"size:255" json:"response_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
