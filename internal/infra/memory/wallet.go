package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/google/uuid"

	"github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
)

type walletRepository struct {
	db *Store
}

var _ wallet.Repository = (*walletRepository)(nil)

func (r *walletRepository) GetBalanceForUpdate(_ context.Context, userID uuid.UUID) (*models.WalletBalance, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	if b, ok := r.db.t.balances[userID]; ok {
		return &b, nil
	}
	return wallet.NewBalance(userID), nil
}

func (r *walletRepository) SaveBalance(_ context.Context, b *models.WalletBalance) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	stored, ok := r.db.t.balances[b.UserID]
	if (ok && stored.Version != b.Version) || (!ok && b.Version != 0) {
		return fmt.Errorf("%w: wallet %s", httperr.ErrConcurrentUpdate, b.UserID)
	}

	b.Version++
	r.db.t.balances[b.UserID] = *b
	return nil
}

func (r *walletRepository) CreateTransaction(_ context.Context, tx *models.WalletTransaction) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	r.db.t.transactions[tx.ID] = *tx
	return nil
}

func (r *walletRepository) GetTransaction(_ context.Context, id uuid.UUID) (*models.WalletTransaction, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	tx, ok := r.db.t.transactions[id]
	if !ok {
		return nil, notFound("transaction", id)
	}
	return &tx, nil
}

func (r *walletRepository) UpdateTransaction(_ context.Context, tx *models.WalletTransaction) error {
	r.db.mutex.Lock()
	defer r.db.mutex.Unlock()

	stored, ok := r.db.t.transactions[tx.ID]
	if !ok {
		return notFound("transaction", tx.ID)
	}

	stored.Status = tx.Status
	stored.FundsStatus = tx.FundsStatus
	stored.ExternalRef = tx.ExternalRef
	stored.UpdatedAt = tx.UpdatedAt
	r.db.t.transactions[tx.ID] = stored
	return nil
}

func (r *walletRepository) FindTransactionByExternalRef(_ context.Context, ref string) (*models.WalletTransaction, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, tx := range r.db.t.transactions {
		if tx.ExternalRef != nil && *tx.ExternalRef == ref {
			return &tx, nil
		}
	}
	return nil, notFound("transaction", ref)
}

func (r *walletRepository) FindTransaction(
	_ context.Context,
	userID uuid.UUID,
	txType wallet.TxType,
	relatedID uuid.UUID,
) (*models.WalletTransaction, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	for _, tx := range r.db.t.transactions {
		if tx.UserID == userID && tx.Type == string(txType) && tx.RelatedID != nil && *tx.RelatedID == relatedID {
			return &tx, nil
		}
	}
	return nil, nil
}

func sortNewestFirst(txs []models.WalletTransaction) {
	sort.Slice(txs, func(i, j int) bool {
		if txs[i].CreatedAt.Equal(txs[j].CreatedAt) {
			return txs[i].ID.String() < txs[j].ID.String()
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}

func (r *walletRepository) ListTransactions(_ context.Context, f wallet.TxFilter) ([]models.WalletTransaction, int64, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	all := []models.WalletTransaction{}
	for _, tx := range r.db.t.transactions {
		if tx.UserID != f.UserID {
			continue
		}
		if len(f.Types) > 0 && !slices.Contains(f.Types, wallet.TxType(tx.Type)) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, wallet.TxStatus(tx.Status)) {
			continue
		}
		all = append(all, tx)
	}
	sortNewestFirst(all)

	total := int64(len(all))
	offset := 0
	if f.Page > 1 {
		offset = (f.Page - 1) * f.Limit
	}
	start := min(offset, len(all))
	end := len(all)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(all))
	}
	return all[start:end], total, nil
}

func (r *walletRepository) ListTransactionsByRelated(_ context.Context, relatedID uuid.UUID) ([]models.WalletTransaction, error) {
	r.db.mutex.RLock()
	defer r.db.mutex.RUnlock()

	out := []models.WalletTransaction{}
	for _, tx := range r.db.t.transactions {
		if tx.RelatedID != nil && *tx.RelatedID == relatedID {
			out = append(out, tx)
		}
	}
	sortNewestFirst(out)
	return out, nil
}
