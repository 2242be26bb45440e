package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wemaster/booking-core/internal/domain/actor"
	"github.com/wemaster/booking-core/internal/domain/booking"
	"github.com/wemaster/booking-core/internal/domain/pricing"
	"github.com/wemaster/booking-core/internal/dto"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/httpresp"
	"github.com/wemaster/booking-core/internal/middleware"
	ucBooking "github.com/wemaster/booking-core/internal/usecase/booking"
	ucWallet "github.com/wemaster/booking-core/internal/usecase/wallet"
)

type MeHandler struct {
	balance  *ucWallet.GetBalance
	bookings *ucBooking.ListBookings
	currency string
	now      func() time.Time
}

func NewMeHandler(balance *ucWallet.GetBalance, bookings *ucBooking.ListBookings, currency string, now func() time.Time) *MeHandler {
	return &MeHandler{balance: balance, bookings: bookings, currency: currency, now: now}
}

type MonthlyBonusDTO struct {
	Month      string `json:"month"`
	Lessons    int    `json:"lessons"`
	BaseIncome int64  `json:"base_income"`
	Percent    int64  `json:"percent"`
	Amount     int64  `json:"amount"`
}

// GetMe returns the caller as read from the token, their wallet and, for
// tutors, the bonus tier reached in the current month.
func (h *MeHandler) GetMe(c *gin.Context) {
	me := middleware.CurrentActor(c)
	ctx := c.Request.Context()

	bal, err := h.balance.Execute(ctx, me.ID)
	if err != nil {
		httperr.Respond(c, err)
		return
	}

	resp := gin.H{
		"user": gin.H{
			"id":   me.ID,
			"role": me.Role,
		},
		"wallet": dto.NewBalance(bal, h.currency),
	}

	if me.Role == actor.RoleTutor {
		bonus, err := h.monthlyBonus(ctx, me)
		if err != nil {
			httperr.Respond(c, err)
			return
		}
		resp["monthly_bonus"] = bonus
	}

	httpresp.OK(c, resp)
}

func (h *MeHandler) monthlyBonus(ctx context.Context, tutor actor.Actor) (MonthlyBonusDTO, error) {
	now := h.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	out := MonthlyBonusDTO{Month: from.Format("2006-01")}
	filter := booking.ListFilter{
		Statuses: []booking.Status{booking.StatusCompleted},
		From:     &from,
		To:       &to,
		Limit:    maxLimit,
	}

	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := h.bookings.Execute(ctx, tutor, filter)
		if err != nil {
			return out, err
		}
		for _, b := range items {
			out.Lessons++
			out.BaseIncome += b.Price.BasePrice
		}
		if len(items) == 0 || int64(out.Lessons) >= total {
			break
		}
	}

	out.Percent, out.Amount = pricing.MonthlyBonus(out.Lessons, out.BaseIncome)
	return out, nil
}
