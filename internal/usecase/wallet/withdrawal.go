package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wemaster/booking-core/internal/audit"
	"github.com/wemaster/booking-core/internal/domain"
	walletdomain "github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase"
)

// ======================================================
// Request
// ======================================================

type WithdrawalInput struct {
	UserID      uuid.UUID
	Amount      int64
	Destination string
}

type RequestWithdrawal struct {
	Deps
}

func NewRequestWithdrawal(deps Deps) *RequestWithdrawal {
	return &RequestWithdrawal{Deps: deps}
}

// Execute debits available and asks the processor for a payout. The
// transaction stays processing until the payout callback settles it; a
// payout the processor refuses outright is re-credited at once.
func (uc *RequestWithdrawal) Execute(ctx context.Context, in WithdrawalInput) (*models.WalletTransaction, error) {
	in.Destination = strings.TrimSpace(in.Destination)
	if in.Destination == "" {
		return nil, fmt.Errorf("%w: payout destination is required", httperr.ErrInvalidInput)
	}

	var (
		t       *models.WalletTransaction
		callErr error
	)

	err := uc.WithLock(ctx, domain.WalletKey(in.UserID.String()), func() error {
		err := uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			var err error
			t, err = walletdomain.NewLedger(tx.Wallets(), uc.Clock.Now()).Record(ctx, walletdomain.RecordInput{
				UserID:      in.UserID,
				Type:        walletdomain.TxWithdrawal,
				Amount:      in.Amount,
				Description: "withdrawal",
			})
			return err
		})
		if err != nil {
			return err
		}

		res, err := uc.Payouts.CreatePayout(ctx, gateway.Payout{
			Reference:   t.ID,
			UserID:      in.UserID,
			Amount:      in.Amount,
			Currency:    uc.Currency,
			Destination: in.Destination,
			Description: "tutor withdrawal",
		})
		callErr = err

		return uc.Store.WithinTx(ctx, func(tx domain.Store) error {
			ledger := walletdomain.NewLedger(tx.Wallets(), uc.Clock.Now())

			var err error
			switch {
			case callErr != nil:
				t, err = ledger.Settle(ctx, t.ID, walletdomain.TxFailed)
			case res.Status == gateway.ChargeFailed:
				callErr = errors.New("payout rejected by processor")
				t, err = ledger.Settle(ctx, t.ID, walletdomain.TxFailed)
			default:
				t, err = ledger.MarkProcessing(ctx, t.ID, res.PayoutRef)
				if err == nil && res.Status == gateway.ChargeSucceeded {
					t, err = ledger.Settle(ctx, t.ID, walletdomain.TxCompleted)
				}
			}
			return err
		})
	})
	if err != nil {
		return nil, err
	}

	var after usecase.After
	if callErr != nil {
		uc.Log.Error("payout failed",
			zap.String("transaction_id", t.ID.String()),
			zap.String("user_id", in.UserID.String()),
			zap.Error(callErr),
		)
		uc.EmitAfter(&after, &in.UserID, audit.WithdrawalFailed, audit.EntityTransaction, t.ID, map[string]any{
			"amount": in.Amount,
		})
		after.Run()
		return nil, fmt.Errorf("%w: payout: %v", httperr.ErrExternalServiceFailure, callErr)
	}

	uc.Log.Info("withdrawal requested",
		zap.String("transaction_id", t.ID.String()),
		zap.String("user_id", in.UserID.String()),
		zap.Int64("amount", in.Amount),
		zap.String("status", t.Status),
	)

	uc.EmitAfter(&after, &in.UserID, audit.WithdrawalRequested, audit.EntityTransaction, t.ID, map[string]any{
		"amount": in.Amount,
		"status": t.Status,
	})
	if walletdomain.TxStatus(t.Status) == walletdomain.TxCompleted {
		uc.EmitAfter(&after, nil, audit.WithdrawalCompleted, audit.EntityTransaction, t.ID, map[string]any{"amount": t.Amount})
	}
	after.Run()

	return t, nil
}

// ======================================================
// Settle from the processor callback
// ======================================================

type SettleWithdrawal struct {
	Deps
}

func NewSettleWithdrawal(deps Deps) *SettleWithdrawal {
	return &SettleWithdrawal{Deps: deps}
}

// Execute applies a verified payout outcome. The transaction is found by
// the payout reference, or by the wallet transaction id the payout carried
// when the reference was never stored. Pending outcomes and repeats are
// no-ops.
func (uc *SettleWithdrawal) Execute(
	ctx context.Context,
	payoutRef string,
	reference uuid.UUID,
	status gateway.ChargeStatus,
) (*models.WalletTransaction, error) {

	found, err := uc.Store.Wallets().FindTransactionByExternalRef(ctx, payoutRef)
	if errors.Is(err, httperr.ErrNotFound) && reference != uuid.Nil {
		found, err = uc.Store.Wallets().GetTransaction(ctx, reference)
	}
	if err != nil {
		return nil, err
	}
	if walletdomain.TxType(found.Type) != walletdomain.TxWithdrawal {
		return nil, fmt.Errorf("%w: transaction %s is not a withdrawal", httperr.ErrInvalidInput, found.ID)
	}

	to := walletdomain.TxCompleted
	switch status {
	case gateway.ChargeSucceeded:
	case gateway.ChargeFailed:
		to = walletdomain.TxFailed
	default:
		return found, nil
	}

	var (
		t       *models.WalletTransaction
		changed bool
	)
	err = uc.withWallet(ctx, found.UserID, func(l *walletdomain.Ledger, tx domain.Store) error {
		current, err := tx.Wallets().GetTransaction(ctx, found.ID)
		if err != nil {
			return err
		}
		if walletdomain.TxStatus(current.Status).IsFinal() {
			t = current
			return nil
		}
		changed = true
		t, err = l.Settle(ctx, current.ID, to)
		return err
	})
	if err != nil || !changed {
		return t, err
	}

	uc.Log.Info("withdrawal settled",
		zap.String("transaction_id", t.ID.String()),
		zap.String("payout_ref", payoutRef),
		zap.String("status", t.Status),
	)

	action := audit.WithdrawalCompleted
	if to == walletdomain.TxFailed {
		action = audit.WithdrawalFailed
	}
	var after usecase.After
	uc.EmitAfter(&after, nil, action, audit.EntityTransaction, t.ID, map[string]any{"amount": t.Amount})
	after.Run()

	return t, nil
}
