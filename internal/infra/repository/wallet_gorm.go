package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type WalletGormRepository struct {
	db *gorm.DB
}

func NewWalletGormRepository(db *gorm.DB) *WalletGormRepository {
	return &WalletGormRepository{db: db}
}

// --------------------------------------------------
// Balances
// --------------------------------------------------

func (r *WalletGormRepository) GetBalanceForUpdate(
	ctx context.Context,
	userID uuid.UUID,
) (*models.WalletBalance, error) {

	var b models.WalletBalance
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&b).Error

	found, err := optional(err)
	if err != nil {
		return nil, err
	}
	if !found {
		return wallet.NewBalance(userID), nil
	}
	return &b, nil
}

func (r *WalletGormRepository) SaveBalance(
	ctx context.Context,
	b *models.WalletBalance,
) error {

	next := *b
	next.Version = b.Version + 1

	if b.Version == 0 {
		err := r.db.WithContext(ctx).Create(&next).Error
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: wallet %s", httperr.ErrConcurrentUpdate, b.UserID)
		}
		if err != nil {
			return err
		}
		*b = next
		return nil
	}

	res := r.db.WithContext(ctx).
		Model(&models.WalletBalance{}).
		Where("user_id = ? AND version = ?", b.UserID, b.Version).
		Select("*").
		Omit("user_id").
		Updates(&next)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: wallet %s", httperr.ErrConcurrentUpdate, b.UserID)
	}

	*b = next
	return nil
}

// --------------------------------------------------
// Transactions
// --------------------------------------------------

func (r *WalletGormRepository) CreateTransaction(
	ctx context.Context,
	tx *models.WalletTransaction,
) error {
	return r.db.WithContext(ctx).Create(tx).Error
}

func (r *WalletGormRepository) GetTransaction(
	ctx context.Context,
	id uuid.UUID,
) (*models.WalletTransaction, error) {

	var tx models.WalletTransaction
	if err := r.db.WithContext(ctx).First(&tx, "id = ?", id).Error; err != nil {
		return nil, first(err, "transaction", id)
	}
	return &tx, nil
}

func (r *WalletGormRepository) UpdateTransaction(
	ctx context.Context,
	tx *models.WalletTransaction,
) error {

	res := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("id = ?", tx.ID).
		Updates(map[string]any{
			"status":       tx.Status,
			"funds_status": tx.FundsStatus,
			"external_ref": tx.ExternalRef,
			"updated_at":   tx.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return notFound("transaction", tx.ID)
	}
	return nil
}

func (r *WalletGormRepository) FindTransactionByExternalRef(
	ctx context.Context,
	ref string,
) (*models.WalletTransaction, error) {

	var tx models.WalletTransaction
	if err := r.db.WithContext(ctx).First(&tx, "external_ref = ?", ref).Error; err != nil {
		return nil, first(err, "transaction", ref)
	}
	return &tx, nil
}

func (r *WalletGormRepository) FindTransaction(
	ctx context.Context,
	userID uuid.UUID,
	txType wallet.TxType,
	relatedID uuid.UUID,
) (*models.WalletTransaction, error) {

	var tx models.WalletTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND related_id = ?", userID, txType, relatedID).
		First(&tx).Error

	found, err := optional(err)
	if !found {
		return nil, err
	}
	return &tx, nil
}

func (r *WalletGormRepository) ListTransactions(
	ctx context.Context,
	f wallet.TxFilter,
) ([]models.WalletTransaction, int64, error) {

	q := r.db.WithContext(ctx).
		Model(&models.WalletTransaction{}).
		Where("user_id = ?", f.UserID)
	if len(f.Types) > 0 {
		q = q.Where("type IN ?", f.Types)
	}
	if len(f.Statuses) > 0 {
		q = q.Where("status IN ?", f.Statuses)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	out := []models.WalletTransaction{}
	q = q.Order("created_at DESC").Order("id ASC")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
		if f.Page > 1 {
			q = q.Offset((f.Page - 1) * f.Limit)
		}
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *WalletGormRepository) ListTransactionsByRelated(
	ctx context.Context,
	relatedID uuid.UUID,
) ([]models.WalletTransaction, error) {

	out := []models.WalletTransaction{}
	if err := r.db.WithContext(ctx).
		Where("related_id = ?", relatedID).
		Order("created_at DESC").
		Order("id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Compile-time check
var _ wallet.Repository = (*WalletGormRepository)(nil)
