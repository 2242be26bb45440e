package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentRecord is the processor-side view of a booking payment.
type PaymentRecord struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`

	Provider     string `gorm:"size:30;not null" json:"provider"`
	ProviderRef  string `gorm:"size:100;index" json:"provider_ref"`
	ChargeRef    string `gorm:"size:100;index" json:"charge_ref,omitempty"`
	ClientSecret string `gorm:"size:255" json:"-"`
	Amount       int64  `gorm:"not null" json:"amount"`
	Currency     string `gorm:"size:3;not null" json:"currency"`
	Status       string `gorm:"size:30;not null" json:"status"`

	RefundRef    string  `gorm:"size:100" json:"refund_ref,omitempty"`
	RefundAmount int64   `gorm:"not null;default:0" json:"refund_amount"`
	LastError    *string `gorm:"size:255" json:"last_error,omitempty"`
	Attempts     int     `gorm:"not null;default:0" json:"attempts"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
