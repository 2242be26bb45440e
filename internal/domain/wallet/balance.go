package wallet

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

func NewBalance(userID uuid.UUID) *models.WalletBalance {
	return &models.WalletBalance{UserID: userID}
}

func bucketPtr(b *models.WalletBalance, bucket Bucket) (*int64, error) {
	switch bucket {
	case Available:
		return &b.AvailableBalance, nil
	case Frozen:
		return &b.FrozenBalance, nil
	case Locked:
		return &b.LockedBalance, nil
	}
	return nil, fmt.Errorf("%w: unknown bucket %q", httperr.ErrInvalidInput, bucket)
}

func Amount(b *models.WalletBalance, bucket Bucket) int64 {
	p, err := bucketPtr(b, bucket)
	if err != nil {
		return 0
	}
	return *p
}

func positive(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: amount must be positive", httperr.ErrInvalidAmount)
	}
	return nil
}

// Move transfers between two buckets. Total is unchanged.
func Move(b *models.WalletBalance, from, to Bucket, amount int64) error {
	if err := positive(amount); err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: source and destination are both %s", httperr.ErrInvalidInput, from)
	}
	src, err := bucketPtr(b, from)
	if err != nil {
		return err
	}
	dst, err := bucketPtr(b, to)
	if err != nil {
		return err
	}
	if *src < amount {
		return fmt.Errorf("%w: %s balance %d < %d", httperr.ErrInsufficientFunds, from, *src, amount)
	}

	*src -= amount
	*dst += amount
	return nil
}

// Credit brings money in from outside the platform.
func Credit(b *models.WalletBalance, to Bucket, amount int64) error {
	if err := positive(amount); err != nil {
		return err
	}
	dst, err := bucketPtr(b, to)
	if err != nil {
		return err
	}

	*dst += amount
	b.TotalBalance += amount
	return nil
}

// Debit sends money out of the platform.
func Debit(b *models.WalletBalance, from Bucket, amount int64) error {
	if err := positive(amount); err != nil {
		return err
	}
	src, err := bucketPtr(b, from)
	if err != nil {
		return err
	}
	if *src < amount {
		return fmt.Errorf("%w: %s balance %d < %d", httperr.ErrInsufficientFunds, from, *src, amount)
	}

	*src -= amount
	b.TotalBalance -= amount
	return nil
}

// CheckInvariant verifies available + frozen + locked == total and that no
// bucket is negative.
func CheckInvariant(b *models.WalletBalance) error {
	if b.AvailableBalance < 0 || b.FrozenBalance < 0 || b.LockedBalance < 0 {
		return fmt.Errorf("wallet %s: negative bucket", b.UserID)
	}
	if b.AvailableBalance+b.FrozenBalance+b.LockedBalance != b.TotalBalance {
		return fmt.Errorf(
			"wallet %s: %d + %d + %d != %d",
			b.UserID, b.AvailableBalance, b.FrozenBalance, b.LockedBalance, b.TotalBalance,
		)
	}
	return nil
}
