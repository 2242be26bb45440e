package wallet

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

// Ledger applies bucket moves and transaction records against a
// repository that is already inside a store transaction.
type Ledger struct {
	repo Repository
	now  time.Time
}

func NewLedger(repo Repository, now time.Time) *Ledger {
	return &Ledger{repo: repo, now: now}
}

func (l *Ledger) apply(
	ctx context.Context,
	userID uuid.UUID,
	fn func(b *models.WalletBalance) error,
) (*models.WalletBalance, error) {
	bal, err := l.repo.GetBalanceForUpdate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(bal); err != nil {
		return nil, err
	}
	if err := CheckInvariant(bal); err != nil {
		return nil, err
	}

	bal.UpdatedAt = l.now
	if err := l.repo.SaveBalance(ctx, bal); err != nil {
		return nil, err
	}
	return bal, nil
}

// ======================================================
// Bucket operations
// ======================================================

func (l *Ledger) Freeze(ctx context.Context, userID uuid.UUID, amount int64) (*models.WalletBalance, error) {
	return l.apply(ctx, userID, func(b *models.WalletBalance) error {
		return Move(b, Available, Frozen, amount)
	})
}

func (l *Ledger) Lock(ctx context.Context, userID uuid.UUID, amount int64) (*models.WalletBalance, error) {
	return l.apply(ctx, userID, func(b *models.WalletBalance) error {
		return Move(b, Frozen, Locked, amount)
	})
}

func (l *Ledger) Unlock(ctx context.Context, userID uuid.UUID, amount int64) (*models.WalletBalance, error) {
	return l.apply(ctx, userID, func(b *models.WalletBalance) error {
		return Move(b, Locked, Frozen, amount)
	})
}

func (l *Ledger) Release(ctx context.Context, userID uuid.UUID, from Bucket, amount int64) (*models.WalletBalance, error) {
	if from != Frozen && from != Locked {
		return nil, fmt.Errorf("%w: release from %q", httperr.ErrInvalidInput, from)
	}
	return l.apply(ctx, userID, func(b *models.WalletBalance) error {
		return Move(b, from, Available, amount)
	})
}

func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, to Bucket, amount int64) (*models.WalletBalance, error) {
	return l.apply(ctx, userID, func(b *models.WalletBalance) error {
		return Credit(b, to, amount)
	})
}

func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, from Bucket, amount int64) (*models.WalletBalance, error) {
	return l.apply(ctx, userID, func(b *models.WalletBalance) error {
		return Debit(b, from, amount)
	})
}

func (l *Ledger) Balance(ctx context.Context, userID uuid.UUID) (*models.WalletBalance, error) {
	return l.repo.GetBalanceForUpdate(ctx, userID)
}

// ======================================================
// Transactions
// ======================================================

type RecordInput struct {
	UserID      uuid.UUID
	Type        TxType
	Amount      int64
	RelatedID   *uuid.UUID
	Description string
}

// Record appends a pending transaction and applies its bucket effect in
// the same store transaction.
func (l *Ledger) Record(ctx context.Context, in RecordInput) (*models.WalletTransaction, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: transaction type %q", httperr.ErrInvalidInput, in.Type)
	}
	if err := positive(in.Amount); err != nil {
		return nil, err
	}

	funds := Available
	if bucket, credit, ok := EffectOf(in.Type); ok {
		funds = bucket
		var err error
		if credit {
			_, err = l.Credit(ctx, in.UserID, bucket, in.Amount)
		} else {
			_, err = l.Debit(ctx, in.UserID, bucket, in.Amount)
		}
		if err != nil {
			return nil, err
		}
	}

	tx := &models.WalletTransaction{
		ID:          uuid.New(),
		UserID:      in.UserID,
		Type:        string(in.Type),
		Amount:      in.Amount,
		Status:      string(TxPending),
		FundsStatus: string(funds),
		RelatedID:   in.RelatedID,
		Description: in.Description,
		CreatedAt:   l.now,
		UpdatedAt:   l.now,
	}
	if err := l.repo.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// restoreBucket is where a failed debit puts the money back. Refund debits
// were carved out of an earning that has since been released, so they go
// back to available with the rest of it.
func restoreBucket(tx *models.WalletTransaction) Bucket {
	switch TxType(tx.Type) {
	case TxCourseRefund, TxAppealRefund:
		return Available
	}
	return Bucket(tx.FundsStatus)
}

// Settle moves a pending or processing transaction to a final status. A
// completed deposit credits available; a failed or cancelled transaction
// reverses its record-time effect.
func (l *Ledger) Settle(ctx context.Context, id uuid.UUID, status TxStatus) (*models.WalletTransaction, error) {
	if !status.IsFinal() {
		return nil, fmt.Errorf("%w: settle to %q", httperr.ErrInvalidInput, status)
	}

	tx, err := l.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if TxStatus(tx.Status) == status {
		return tx, nil
	}
	if TxStatus(tx.Status).IsFinal() {
		return nil, fmt.Errorf("%w: transaction is %s", httperr.ErrInvalidTransition, tx.Status)
	}

	txType := TxType(tx.Type)
	switch status {
	case TxCompleted:
		if txType == TxDeposit {
			if _, err := l.Credit(ctx, tx.UserID, Available, tx.Amount); err != nil {
				return nil, err
			}
		}
	default:
		if _, credit, ok := EffectOf(txType); ok {
			if credit {
				_, err = l.Debit(ctx, tx.UserID, Bucket(tx.FundsStatus), tx.Amount)
			} else {
				bucket := restoreBucket(tx)
				_, err = l.Credit(ctx, tx.UserID, bucket, tx.Amount)
				tx.FundsStatus = string(bucket)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	tx.Status = string(status)
	tx.UpdatedAt = l.now
	if err := l.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// MarkProcessing records the processor reference of a transaction whose
// outcome arrives later.
func (l *Ledger) MarkProcessing(ctx context.Context, id uuid.UUID, externalRef string) (*models.WalletTransaction, error) {
	tx, err := l.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if TxStatus(tx.Status) != TxPending {
		return nil, fmt.Errorf("%w: transaction is %s", httperr.ErrInvalidTransition, tx.Status)
	}

	tx.Status = string(TxProcessing)
	tx.ExternalRef = &externalRef
	tx.UpdatedAt = l.now
	if err := l.repo.UpdateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	return tx, nil
}

// ======================================================
// Course earnings
// ======================================================

// Earning returns the tutor's earning for a booking, or nil when the
// booking was never paid.
func (l *Ledger) Earning(ctx context.Context, tutorID, bookingID uuid.UUID) (*models.WalletTransaction, error) {
	return l.repo.FindTransaction(ctx, tutorID, TxCourseEarning, bookingID)
}

func (l *Ledger) moveEarning(
	ctx context.Context,
	tutorID, bookingID uuid.UUID,
	from, to Bucket,
) (*models.WalletTransaction, error) {
	earning, err := l.Earning(ctx, tutorID, bookingID)
	if err != nil || earning == nil {
		return nil, err
	}
	if Bucket(earning.FundsStatus) == to {
		return earning, nil
	}
	if Bucket(earning.FundsStatus) != from {
		return nil, fmt.Errorf(
			"%w: earning funds are %s, expected %s",
			httperr.ErrInvalidTransition, earning.FundsStatus, from,
		)
	}

	if _, err := l.apply(ctx, tutorID, func(b *models.WalletBalance) error {
		return Move(b, from, to, earning.Amount)
	}); err != nil {
		return nil, err
	}

	earning.FundsStatus = string(to)
	if to == Available {
		earning.Status = string(TxCompleted)
	}
	earning.UpdatedAt = l.now
	if err := l.repo.UpdateTransaction(ctx, earning); err != nil {
		return nil, err
	}
	return earning, nil
}

// LockEarning holds the earning while an appeal is open.
func (l *Ledger) LockEarning(ctx context.Context, tutorID, bookingID uuid.UUID) (*models.WalletTransaction, error) {
	return l.moveEarning(ctx, tutorID, bookingID, Frozen, Locked)
}

func (l *Ledger) UnlockEarning(ctx context.Context, tutorID, bookingID uuid.UUID) (*models.WalletTransaction, error) {
	return l.moveEarning(ctx, tutorID, bookingID, Locked, Frozen)
}

// ReleaseEarning pays the tutor out from wherever the earning sits.
func (l *Ledger) ReleaseEarning(ctx context.Context, tutorID, bookingID uuid.UUID) (*models.WalletTransaction, error) {
	earning, err := l.Earning(ctx, tutorID, bookingID)
	if err != nil || earning == nil {
		return nil, err
	}
	return l.moveEarning(ctx, tutorID, bookingID, Bucket(earning.FundsStatus), Available)
}

// RefundFromEarning takes up to refund out of the tutor's earning with a
// refund transaction of txType, then releases what is left of the
// earning to available. The platform absorbs any refund beyond the
// earning. It returns the refund transaction, nil when nothing was debited.
func (l *Ledger) RefundFromEarning(
	ctx context.Context,
	tutorID, bookingID uuid.UUID,
	refund int64,
	txType TxType,
	description string,
) (*models.WalletTransaction, error) {
	earning, err := l.Earning(ctx, tutorID, bookingID)
	if err != nil || earning == nil {
		return nil, err
	}

	bucket, credit, ok := EffectOf(txType)
	if !ok || credit {
		return nil, fmt.Errorf("%w: %s is not a refund", httperr.ErrInvalidInput, txType)
	}
	if Bucket(earning.FundsStatus) != bucket {
		return nil, fmt.Errorf(
			"%w: earning funds are %s, %s debits %s",
			httperr.ErrInvalidTransition, earning.FundsStatus, txType, bucket,
		)
	}

	debit := min(refund, earning.Amount)

	var refundTx *models.WalletTransaction
	if debit > 0 {
		related := bookingID
		refundTx, err = l.Record(ctx, RecordInput{
			UserID:      tutorID,
			Type:        txType,
			Amount:      debit,
			RelatedID:   &related,
			Description: description,
		})
		if err != nil {
			return nil, err
		}
	}

	if rest := earning.Amount - debit; rest > 0 {
		if _, err := l.apply(ctx, tutorID, func(b *models.WalletBalance) error {
			return Move(b, bucket, Available, rest)
		}); err != nil {
			return nil, err
		}
	}

	earning.Status = string(TxCompleted)
	earning.FundsStatus = string(Available)
	earning.UpdatedAt = l.now
	if err := l.repo.UpdateTransaction(ctx, earning); err != nil {
		return nil, err
	}
	return refundTx, nil
}
