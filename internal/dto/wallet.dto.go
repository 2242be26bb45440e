package dto

import (
	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/models"
)

type BalanceDTO struct {
	UserID           uuid.UUID `json:"user_id"`
	AvailableBalance int64     `json:"available_balance"`
	FrozenBalance    int64     `json:"frozen_balance"`
	LockedBalance    int64     `json:"locked_balance"`
	TotalBalance     int64     `json:"total_balance"`
	Currency         string    `json:"currency"`
}

func NewBalance(b *models.WalletBalance, currency string) BalanceDTO {
	return BalanceDTO{
		UserID:           b.UserID,
		AvailableBalance: b.AvailableBalance,
		FrozenBalance:    b.FrozenBalance,
		LockedBalance:    b.LockedBalance,
		TotalBalance:     b.TotalBalance,
		Currency:         currency,
	}
}

type CourseQuoteDTO struct {
	Course   *models.Course      `json:"course"`
	Price    pricing.CoursePrice `json:"price"`
	Currency string              `json:"currency"`
}
