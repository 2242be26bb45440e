package models

import (
	"time"

	"github.com/google/uuid"
)

// SlotSnapshot is the copy of a TimeSlot a booking keeps, so later slot
// edits never rewrite booking history.
type SlotSnapshot struct {
	SlotID    uuid.UUID `gorm:"type:uuid;column:id" json:"slot_id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Overlaps reports whether the two windows share any instant.
func (s SlotSnapshot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && s.EndTime.After(start)
}

type PriceSnapshot struct {
	BasePrice      int64 `json:"base_price"`
	PlatformFee    int64 `json:"platform_fee"`
	TotalPrice     int64 `json:"total_price"`
	GiftCardAmount int64 `json:"gift_card_amount"`
	CouponAmount   int64 `json:"coupon_amount"`
}

// AmountDue is what the student is charged through the processor.
func (p PriceSnapshot) AmountDue() int64 {
	return p.TotalPrice - p.GiftCardAmount - p.CouponAmount
}

type Booking struct {
	ID uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	StudentID uuid.UUID `gorm:"type:uuid;index;not null" json:"student_id"`
	TutorID   uuid.UUID `gorm:"type:uuid;index;not null" json:"tutor_id"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null" json:"course_id"`

	TimeSlot         SlotSnapshot  `gorm:"embedded;embeddedPrefix:slot_" json:"time_slot"`
	OriginalTimeSlot *SlotSnapshot `gorm:"serializer:json;type:jsonb" json:"original_time_slot,omitempty"`

	Status        string `gorm:"size:20;index;not null;default:'pending'" json:"status"`
	PaymentStatus string `gorm:"size:30;index;not null;default:'none'" json:"payment_status"`

	Price PriceSnapshot `gorm:"embedded;embeddedPrefix:price_" json:"price"`

	CancelReason *string `gorm:"size:255" json:"cancel_reason,omitempty"`
	CancelledBy  *string `gorm:"size:64" json:"cancelled_by,omitempty"`
	RefundAmount *int64  `json:"refund_amount,omitempty"`

	TutorConfirmedAt *time.Time `json:"tutor_confirmed_at,omitempty"`
	ConfirmedAt      *time.Time `json:"confirmed_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	CancelledAt      *time.Time `json:"cancelled_at,omitempty"`
	SettledAt        *time.Time `json:"settled_at,omitempty"`

	Version int64 `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
