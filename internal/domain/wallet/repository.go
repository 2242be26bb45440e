package wallet

import (
	"context"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/models"
)

type TxFilter struct {
	UserID   uuid.UUID
	Types    []TxType
	Statuses []TxStatus
	Page     int
	Limit    int
}

type Repository interface {
	// GetBalanceForUpdate returns the stored balance row locked for the
	// current transaction, or a zero balance when the user has none yet.
	GetBalanceForUpdate(
		ctx context.Context,
		userID uuid.UUID,
	) (*models.WalletBalance, error)

	// SaveBalance inserts or updates with a version check.
	SaveBalance(
		ctx context.Context,
		b *models.WalletBalance,
	) error

	CreateTransaction(
		ctx context.Context,
		tx *models.WalletTransaction,
	) error

	GetTransaction(
		ctx context.Context,
		id uuid.UUID,
	) (*models.WalletTransaction, error)

	// FindTransactionByExternalRef wraps httperr.ErrNotFound when no
	// transaction carries the processor reference.
	FindTransactionByExternalRef(
		ctx context.Context,
		ref string,
	) (*models.WalletTransaction, error)

	// UpdateTransaction only persists Status, FundsStatus and ExternalRef.
	UpdateTransaction(
		ctx context.Context,
		tx *models.WalletTransaction,
	) error

	// FindTransaction returns nil, nil when nothing matches.
	FindTransaction(
		ctx context.Context,
		userID uuid.UUID,
		txType TxType,
		relatedID uuid.UUID,
	) (*models.WalletTransaction, error)

	ListTransactions(
		ctx context.Context,
		filter TxFilter,
	) ([]models.WalletTransaction, int64, error)

	ListTransactionsByRelated(
		ctx context.Context,
		relatedID uuid.UUID,
	) ([]models.WalletTransaction, error)
}
