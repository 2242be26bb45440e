package pricing

import (
	"fmt"
	"time"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

// Config is derived once from app config and passed by value.
type Config struct {
	PlatformFeePercent int64
	Currency           string
	TaxIncluded        bool
}

func DefaultConfig() Config {
	return Config{
		PlatformFeePercent: 25,
		Currency:           "BRL",
		TaxIncluded:        true,
	}
}

type CoursePrice struct {
	BasePrice   int64 `json:"base_price"`
	PlatformFee int64 `json:"platform_fee"`
	TotalPrice  int64 `json:"total_price"`
	TaxIncluded bool  `json:"tax_included"`
}

// CoursePrice grosses the tutor's base price up so that the platform keeps
// PlatformFeePercent of the total: total = ceil(base / (1 - rate)).
func (c Config) CoursePrice(base int64) (CoursePrice, error) {
	if base <= 0 {
		return CoursePrice{}, fmt.Errorf("%w: base price must be positive", httperr.ErrInvalidAmount)
	}
	if c.PlatformFeePercent < 0 || c.PlatformFeePercent >= 100 {
		return CoursePrice{}, fmt.Errorf("%w: fee percent %d", httperr.ErrInvalidInput, c.PlatformFeePercent)
	}

	keep := 100 - c.PlatformFeePercent
	total := (base*100 + keep - 1) / keep

	return CoursePrice{
		BasePrice:   base,
		PlatformFee: total - base,
		TotalPrice:  total,
		TaxIncluded: c.TaxIncluded,
	}, nil
}

// Snapshot prices one lesson of the course and applies the discounts the
// student allocated to it.
func (c Config) Snapshot(course *models.Course, giftCard, coupon int64) (models.PriceSnapshot, error) {
	price, err := c.CoursePrice(course.BasePrice)
	if err != nil {
		return models.PriceSnapshot{}, err
	}
	if giftCard < 0 || coupon < 0 {
		return models.PriceSnapshot{}, fmt.Errorf("%w: discounts must not be negative", httperr.ErrInvalidAmount)
	}
	if giftCard+coupon > price.TotalPrice {
		return models.PriceSnapshot{}, fmt.Errorf("%w: discounts exceed total price", httperr.ErrInvalidAmount)
	}

	return models.PriceSnapshot{
		BasePrice:      price.BasePrice,
		PlatformFee:    price.PlatformFee,
		TotalPrice:     price.TotalPrice,
		GiftCardAmount: giftCard,
		CouponAmount:   coupon,
	}, nil
}

// ===============================
// Refunds
// ===============================

type RefundInput struct {
	TutorBasePrice    int64
	TotalLessons      int
	CompletedLessons  int
	GiftCardAllocated int64
	CouponAllocated   int64
}

type RefundCalculation struct {
	RefundInput
	RefundAmount int64
}

// CalculateRefund never returns the platform fee; that needs an override.
func CalculateRefund(in RefundInput) (RefundCalculation, error) {
	if in.TutorBasePrice < 0 || in.GiftCardAllocated < 0 || in.CouponAllocated < 0 {
		return RefundCalculation{}, fmt.Errorf("%w: negative refund input", httperr.ErrInvalidAmount)
	}
	if in.CompletedLessons < 0 || in.CompletedLessons > in.TotalLessons {
		return RefundCalculation{}, fmt.Errorf("%w: completed lessons out of range", httperr.ErrInvalidInput)
	}

	remaining := int64(in.TotalLessons - in.CompletedLessons)
	amount := in.TutorBasePrice*remaining - in.GiftCardAllocated - in.CouponAllocated
	if amount < 0 {
		amount = 0
	}

	return RefundCalculation{RefundInput: in, RefundAmount: amount}, nil
}

// Refundable is what a single unused lesson gives back.
func Refundable(p models.PriceSnapshot) int64 {
	calc, err := CalculateRefund(RefundInput{
		TutorBasePrice:    p.BasePrice,
		TotalLessons:      1,
		GiftCardAllocated: p.GiftCardAmount,
		CouponAllocated:   p.CouponAmount,
	})
	if err != nil {
		return 0
	}
	return calc.RefundAmount
}

type leadTimeTier struct {
	minLead time.Duration
	percent int64
}

var leadTimeTiers = []leadTimeTier{
	{24 * time.Hour, 100},
	{12 * time.Hour, 80},
	{6 * time.Hour, 50},
}

func LeadTimeRefundPercent(lead time.Duration) int64 {
	for _, t := range leadTimeTiers {
		if lead >= t.minLead {
			return t.percent
		}
	}
	return 0
}

// CancellationRefund applies the lead-time tier to the refundable amount.
func CancellationRefund(p models.PriceSnapshot, lead time.Duration) int64 {
	return Refundable(p) * LeadTimeRefundPercent(lead) / 100
}

// AppealRefundCap is the most an appeal may return to the student. Only a
// platform override reaches into the fee.
func AppealRefundCap(p models.PriceSnapshot, overrideFee bool) int64 {
	if overrideFee {
		return p.AmountDue()
	}
	return Refundable(p)
}

// ===============================
// Tutor bonus
// ===============================

type bonusTier struct {
	minLessons int
	percent    int64
}

var bonusTiers = []bonusTier{
	{50, 7},
	{30, 5},
	{10, 3},
}

// MonthlyBonus returns the bonus percent and amount for a tutor's month.
func MonthlyBonus(lessons int, baseIncome int64) (int64, int64) {
	for _, t := range bonusTiers {
		if lessons >= t.minLessons {
			return t.percent, baseIncome * t.percent / 100
		}
	}
	return 0, 0
}
