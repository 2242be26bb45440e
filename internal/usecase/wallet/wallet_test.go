package wallet_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wemaster/booking-core/internal/audit"
	walletdomain "github.com/wemaster/booking-core/internal/domain/wallet"
	"github.com/wemaster/booking-core/internal/httperr"
	"github.com/wemaster/booking-core/internal/models"
	"github.com/wemaster/booking-core/internal/usecase/usecasetest"
	"github.com/wemaster/booking-core/internal/usecase/wallet"
)

func setup(t *testing.T) (*usecasetest.Env, wallet.Deps) {
	env := usecasetest.New(t)
	return env, wallet.Deps{Deps: env.Deps, Payouts: env.Gateway, Currency: env.Pricing.Currency}
}

func balanced(t *testing.T, b *models.WalletBalance) {
	t.Helper()
	assert.Equal(t, b.TotalBalance, b.AvailableBalance+b.FrozenBalance+b.LockedBalance)
}

func deposit(t *testing.T, deps wallet.Deps, userID uuid.UUID, amount int64) {
	t.Helper()
	ctx := context.Background()

	tx, err := wallet.NewRecordTransaction(deps).Execute(ctx, walletdomain.RecordInput{
		UserID: userID,
		Type:   walletdomain.TxDeposit,
		Amount: amount,
	})
	require.NoError(t, err)

	_, err = wallet.NewSettleTransaction(deps).Execute(ctx, tx.ID, walletdomain.TxCompleted)
	require.NoError(t, err)
}

func TestDepositCreditsOnSettlement(t *testing.T) {
	env, deps := setup(t)
	ctx := context.Background()
	user := uuid.New()

	tx, err := wallet.NewRecordTransaction(deps).Execute(ctx, walletdomain.RecordInput{
		UserID: user,
		Type:   walletdomain.TxDeposit,
		Amount: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, string(walletdomain.TxPending), tx.Status)
	assert.Zero(t, env.Balance(t, user).TotalBalance)

	settled, err := wallet.NewSettleTransaction(deps).Execute(ctx, tx.ID, walletdomain.TxCompleted)
	require.NoError(t, err)
	assert.Equal(t, string(walletdomain.TxCompleted), settled.Status)

	bal := env.Balance(t, user)
	assert.Equal(t, int64(5000), bal.AvailableBalance)
	balanced(t, bal)

	// Settling again to the same status changes nothing.
	_, err = wallet.NewSettleTransaction(deps).Execute(ctx, tx.ID, walletdomain.TxCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), env.Balance(t, user).AvailableBalance)

	_, err = wallet.NewSettleTransaction(deps).Execute(ctx, tx.ID, walletdomain.TxFailed)
	assert.ErrorIs(t, err, httperr.ErrInvalidTransition)

	assert.Contains(t, env.Events.Actions(), audit.WalletTransactionSettled)
}

func TestFailedWithdrawalIsRecredited(t *testing.T) {
	env, deps := setup(t)
	ctx := context.Background()
	user := uuid.New()
	deposit(t, deps, user, 5000)

	tx, err := wallet.NewRecordTransaction(deps).Execute(ctx, walletdomain.RecordInput{
		UserID: user,
		Type:   walletdomain.TxWithdrawal,
		Amount: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), env.Balance(t, user).AvailableBalance)

	_, err = wallet.NewSettleTransaction(deps).Execute(ctx, tx.ID, walletdomain.TxFailed)
	require.NoError(t, err)

	bal := env.Balance(t, user)
	assert.Equal(t, int64(5000), bal.AvailableBalance)
	balanced(t, bal)
}

func TestFailedRefundDebitsReturnToAvailable(t *testing.T) {
	cases := []struct {
		name   string
		hold   wallet.Op
		txType walletdomain.TxType
	}{
		{"appeal refund out of locked", wallet.OpLock, walletdomain.TxAppealRefund},
		{"course refund out of frozen", wallet.OpFreeze, walletdomain.TxCourseRefund},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, deps := setup(t)
			ctx := context.Background()
			user := uuid.New()
			deposit(t, deps, user, 10000)

			_, err := wallet.NewMoveFunds(deps).Execute(ctx, wallet.MoveInput{UserID: user, Op: tc.hold, Amount: 4000})
			require.NoError(t, err)

			tx, err := wallet.NewRecordTransaction(deps).Execute(ctx, walletdomain.RecordInput{
				UserID: user,
				Type:   tc.txType,
				Amount: 3000,
			})
			require.NoError(t, err)

			settled, err := wallet.NewSettleTransaction(deps).Execute(ctx, tx.ID, walletdomain.TxFailed)
			require.NoError(t, err)
			assert.Equal(t, string(walletdomain.Available), settled.FundsStatus)

			bal := env.Balance(t, user)
			assert.Equal(t, int64(9000), bal.AvailableBalance)
			assert.Equal(t, int64(1000), bal.FrozenBalance+bal.LockedBalance, "only the untouched hold remains")
			assert.Equal(t, int64(10000), bal.TotalBalance)
			balanced(t, bal)
		})
	}
}

func TestWithdrawalBeyondAvailableFails(t *testing.T) {
	env, deps := setup(t)
	user := uuid.New()
	deposit(t, deps, user, 1000)

	_, err := wallet.NewRecordTransaction(deps).Execute(context.Background(), walletdomain.RecordInput{
		UserID: user,
		Type:   walletdomain.TxWithdrawal,
		Amount: 1001,
	})
	assert.ErrorIs(t, err, httperr.ErrInsufficientFunds)

	bal := env.Balance(t, user)
	assert.Equal(t, int64(1000), bal.AvailableBalance)

	txs, total, err := wallet.NewListTransactions(deps).Execute(context.Background(), walletdomain.TxFilter{UserID: user})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total, "nothing is left behind by the failed withdrawal")
	assert.Len(t, txs, 1)
}

func TestMoveFunds(t *testing.T) {
	env, deps := setup(t)
	ctx := context.Background()
	user := uuid.New()
	deposit(t, deps, user, 10000)

	move := wallet.NewMoveFunds(deps)
	steps := []struct {
		in                          wallet.MoveInput
		wantAvail, wantFroz, wantLk int64
		wantTotal                   int64
		wantErr                     error
	}{
		{wallet.MoveInput{Op: wallet.OpFreeze, Amount: 6000}, 4000, 6000, 0, 10000, nil},
		{wallet.MoveInput{Op: wallet.OpLock, Amount: 2500}, 4000, 3500, 2500, 10000, nil},
		{wallet.MoveInput{Op: wallet.OpRelease, Bucket: walletdomain.Locked, Amount: 500}, 4500, 3500, 2000, 10000, nil},
		{wallet.MoveInput{Op: wallet.OpRelease, Bucket: walletdomain.Frozen, Amount: 3500}, 8000, 0, 2000, 10000, nil},
		{wallet.MoveInput{Op: wallet.OpLock, Amount: 1}, 8000, 0, 2000, 10000, httperr.ErrInsufficientFunds},
		{wallet.MoveInput{Op: wallet.OpRelease, Bucket: walletdomain.Available, Amount: 1}, 8000, 0, 2000, 10000, httperr.ErrInvalidInput},
		{wallet.MoveInput{Op: wallet.OpCredit, Bucket: walletdomain.Frozen, Amount: 700}, 8000, 700, 2000, 10700, nil},
		{wallet.MoveInput{Op: wallet.OpDebit, Bucket: walletdomain.Locked, Amount: 2000}, 8000, 700, 0, 8700, nil},
		{wallet.MoveInput{Op: wallet.OpFreeze, Amount: -5}, 8000, 700, 0, 8700, httperr.ErrInvalidAmount},
		{wallet.MoveInput{Op: "teleport", Amount: 5}, 8000, 700, 0, 8700, httperr.ErrInvalidInput},
	}

	for i, st := range steps {
		st.in.UserID = user
		_, err := move.Execute(ctx, st.in)
		if st.wantErr != nil {
			assert.ErrorIs(t, err, st.wantErr, "step %d", i)
		} else {
			require.NoError(t, err, "step %d", i)
		}

		bal := env.Balance(t, user)
		assert.Equal(t, st.wantAvail, bal.AvailableBalance, "step %d available", i)
		assert.Equal(t, st.wantFroz, bal.FrozenBalance, "step %d frozen", i)
		assert.Equal(t, st.wantLk, bal.LockedBalance, "step %d locked", i)
		assert.Equal(t, st.wantTotal, bal.TotalBalance, "step %d total", i)
		balanced(t, bal)
	}
}

func TestListTransactionsPaginates(t *testing.T) {
	_, deps := setup(t)
	user := uuid.New()
	for i := 0; i < 5; i++ {
		deposit(t, deps, user, 100)
	}

	list := wallet.NewListTransactions(deps)

	page, total, err := list.Execute(context.Background(), walletdomain.TxFilter{UserID: user, Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, page, 2)

	_, _, err = list.Execute(context.Background(), walletdomain.TxFilter{UserID: user, Types: []walletdomain.TxType{"bonus"}})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)
}

func TestGetBalanceForNewUserIsZero(t *testing.T) {
	_, deps := setup(t)

	bal, err := wallet.NewGetBalance(deps).Execute(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Zero(t, bal.TotalBalance)
	balanced(t, bal)
}
