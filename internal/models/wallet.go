package models

import (
	"time"

	"github.com/google/uuid"
)

type WalletTransaction struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	Type        string     `gorm:"size:30;index;not null" json:"type"`
	Amount      int64      `gorm:"not null" json:"amount"`
	Status      string     `gorm:"size:20;index;not null" json:"status"`
	FundsStatus string     `gorm:"size:20;not null" json:"funds_status"`
	RelatedID   *uuid.UUID `gorm:"type:uuid;index" json:"related_id,omitempty"`
	Description string     `gorm:"size:255" json:"description"`
	ExternalRef *string    `gorm:"size:100;uniqueIndex" json:"external_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WalletBalance struct {
	UserID uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`

	AvailableBalance int64 `gorm:"not null;default:0" json:"available_balance"`
	FrozenBalance    int64 `gorm:"not null;default:0" json:"frozen_balance"`
	LockedBalance    int64 `gorm:"not null;default:0" json:"locked_balance"`
	TotalBalance     int64 `gorm:"not null;default:0" json:"total_balance"`

	Version int64 `gorm:"not null;default:0" json:"version"`

	UpdatedAt time.Time `json:"updated_at"`
}
