package wallet

import (
	"context"
	"fmt"

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

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Deps is shared by the wallet use cases. Direct wallet operations take
// the wallet lock; booking and appeal flows reach the same rows under the
// booking lock and are serialised by the balance version instead.
type Deps struct {
	usecase.Deps

	Payouts  gateway.Payouter
	Currency string
}

func (d Deps) withWallet(
	ctx context.Context,
	userID uuid.UUID,
	fn func(l *walletdomain.Ledger, tx domain.Store) error,
) error {
	return d.WithLock(ctx, domain.WalletKey(userID.String()), func() error {
		now := d.Clock.Now()
		return d.Store.WithinTx(ctx, func(tx domain.Store) error {
			return fn(walletdomain.NewLedger(tx.Wallets(), now), tx)
		})
	})
}

// ======================================================
// Record
// ======================================================

type RecordTransaction struct {
	Deps
}

func NewRecordTransaction(deps Deps) *RecordTransaction {
	return &RecordTransaction{Deps: deps}
}

func (uc *RecordTransaction) Execute(
	ctx context.Context,
	in walletdomain.RecordInput,
) (*models.WalletTransaction, error) {

	var t *models.WalletTransaction
	err := uc.withWallet(ctx, in.UserID, func(l *walletdomain.Ledger, _ domain.Store) error {
		var err error
		t, err = l.Record(ctx, in)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("wallet transaction recorded",
		zap.String("transaction_id", t.ID.String()),
		zap.String("user_id", t.UserID.String()),
		zap.String("type", t.Type),
		zap.Int64("amount", t.Amount),
	)

	var after usecase.After
	uc.EmitAfter(&after, nil, audit.WalletTransactionRecorded, audit.EntityTransaction, t.ID, t)
	after.Run()

	return t, nil
}

// ======================================================
// Settle
// ======================================================

type SettleTransaction struct {
	Deps
}

func NewSettleTransaction(deps Deps) *SettleTransaction {
	return &SettleTransaction{Deps: deps}
}

// Execute moves a pending transaction to completed, failed or cancelled.
// Settling to the status it already has is a no-op.
func (uc *SettleTransaction) Execute(
	ctx context.Context,
	transactionID uuid.UUID,
	status walletdomain.TxStatus,
) (*models.WalletTransaction, error) {

	found, err := uc.Store.Wallets().GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	var t *models.WalletTransaction
	err = uc.withWallet(ctx, found.UserID, func(l *walletdomain.Ledger, _ domain.Store) error {
		var err error
		t, err = l.Settle(ctx, transactionID, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("wallet transaction settled",
		zap.String("transaction_id", t.ID.String()),
		zap.String("status", t.Status),
	)

	var after usecase.After
	uc.EmitAfter(&after, nil, audit.WalletTransactionSettled, audit.EntityTransaction, t.ID, map[string]any{
		"status": t.Status,
	})
	after.Run()

	return t, nil
}

// ======================================================
// Bucket moves
// ======================================================

type Op string

const (
	OpFreeze  Op = "freeze"
	OpLock    Op = "lock"
	OpRelease Op = "release"
	OpCredit  Op = "credit"
	OpDebit   Op = "debit"
)

type MoveInput struct {
	UserID    uuid.UUID
	Op        Op
	Bucket    walletdomain.Bucket
	Amount    int64
	RelatedID *uuid.UUID
}

type MoveFunds struct {
	Deps
}

func NewMoveFunds(deps Deps) *MoveFunds {
	return &MoveFunds{Deps: deps}
}

// Execute applies one bucket operation. Bucket is the source for release
// and debit and the destination for credit; freeze and lock ignore it.
func (uc *MoveFunds) Execute(ctx context.Context, in MoveInput) (*models.WalletBalance, error) {
	var bal *models.WalletBalance

	err := uc.withWallet(ctx, in.UserID, func(l *walletdomain.Ledger, _ domain.Store) error {
		var err error
		switch in.Op {
		case OpFreeze:
			bal, err = l.Freeze(ctx, in.UserID, in.Amount)
		case OpLock:
			bal, err = l.Lock(ctx, in.UserID, in.Amount)
		case OpRelease:
			bal, err = l.Release(ctx, in.UserID, in.Bucket, in.Amount)
		case OpCredit:
			bal, err = l.Credit(ctx, in.UserID, in.Bucket, in.Amount)
		case OpDebit:
			bal, err = l.Debit(ctx, in.UserID, in.Bucket, in.Amount)
		default:
			err = fmt.Errorf("%w: wallet operation %q", httperr.ErrInvalidInput, in.Op)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	uc.Log.Info("wallet funds moved",
		zap.String("user_id", in.UserID.String()),
		zap.String("op", string(in.Op)),
		zap.Int64("amount", in.Amount),
	)

	var after usecase.After
	uc.EmitAfter(&after, nil, audit.WalletFundsMoved, audit.EntityWallet, in.UserID, map[string]any{
		"op":         in.Op,
		"bucket":     in.Bucket,
		"amount":     in.Amount,
		"related_id": in.RelatedID,
	})
	after.Run()

	return bal, nil
}

// ======================================================
// Read models
// ======================================================

type GetBalance struct {
	Deps
}

func NewGetBalance(deps Deps) *GetBalance {
	return &GetBalance{Deps: deps}
}

func (uc *GetBalance) Execute(ctx context.Context, userID uuid.UUID) (*models.WalletBalance, error) {
	var bal *models.WalletBalance
	err := uc.Store.WithinTx(ctx, func(tx domain.Store) error {
		var err error
		bal, err = walletdomain.NewLedger(tx.Wallets(), uc.Clock.Now()).Balance(ctx, userID)
		return err
	})
	return bal, err
}

type ListTransactions struct {
	Deps
}

func NewListTransactions(deps Deps) *ListTransactions {
	return &ListTransactions{Deps: deps}
}

func (uc *ListTransactions) Execute(
	ctx context.Context,
	filter walletdomain.TxFilter,
) ([]models.WalletTransaction, int64, error) {

	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	for _, t := range filter.Types {
		if !t.Valid() {
			return nil, 0, fmt.Errorf("%w: transaction type %q", httperr.ErrInvalidInput, t)
		}
	}

	return uc.Store.Wallets().ListTransactions(ctx, filter)
}
