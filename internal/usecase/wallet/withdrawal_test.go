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
	gateway "github.com/wemaster/booking-core/internal/infra/payment"
	"github.com/wemaster/booking-core/internal/usecase/payment"
	"github.com/wemaster/booking-core/internal/usecase/wallet"
)

func TestWithdrawalCompletesOnPayoutCallback(t *testing.T) {
	env, deps := setup(t)
	ctx := context.Background()
	tutor := uuid.New()
	deposit(t, deps, tutor, 10000)

	tx, err := wallet.NewRequestWithdrawal(deps).Execute(ctx, wallet.WithdrawalInput{
		UserID:      tutor,
		Amount:      4000,
		Destination: " pix:tutor@example.com ",
	})
	require.NoError(t, err)
	assert.Equal(t, string(walletdomain.TxWithdrawal), tx.Type)
	assert.Equal(t, string(walletdomain.TxProcessing), tx.Status)
	require.NotNil(t, tx.ExternalRef)
	assert.Equal(t, int64(6000), env.Balance(t, tutor).AvailableBalance)

	payouts := env.Gateway.PayoutCalls()
	require.Len(t, payouts, 1)
	assert.Equal(t, tx.ID, payouts[0].Reference)
	assert.Equal(t, int64(4000), payouts[0].Amount)
	assert.Equal(t, "pix:tutor@example.com", payouts[0].Destination)

	// Still pending at the processor: the callback changes nothing.
	require.NoError(t, env.Payments.HandleNotification(ctx, payment.Notification{
		EventID:   "evt_po_1",
		Kind:      payment.KindPayout,
		PayoutRef: *tx.ExternalRef,
		Status:    gateway.ChargeFailed,
	}))
	got, err := env.Store.Wallets().GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, string(walletdomain.TxProcessing), got.Status)

	env.Gateway.SettlePayout(*tx.ExternalRef, gateway.ChargeSucceeded)
	require.NoError(t, env.Payments.HandleNotification(ctx, payment.Notification{
		EventID:   "evt_po_2",
		Kind:      payment.KindPayout,
		PayoutRef: *tx.ExternalRef,
	}))

	got, err = env.Store.Wallets().GetTransaction(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, string(walletdomain.TxCompleted), got.Status)

	bal := env.Balance(t, tutor)
	assert.Equal(t, int64(6000), bal.AvailableBalance)
	assert.Equal(t, int64(6000), bal.TotalBalance)
	balanced(t, bal)

	assert.Contains(t, env.Events.Actions(), audit.WithdrawalRequested)
	assert.Contains(t, env.Events.Actions(), audit.WithdrawalCompleted)
}

func TestFailedPayoutCallbackRecredits(t *testing.T) {
	env, deps := setup(t)
	ctx := context.Background()
	tutor := uuid.New()
	deposit(t, deps, tutor, 10000)

	tx, err := wallet.NewRequestWithdrawal(deps).Execute(ctx, wallet.WithdrawalInput{
		UserID:      tutor,
		Amount:      4000,
		Destination: "pix:tutor@example.com",
	})
	require.NoError(t, err)

	env.Gateway.SettlePayout(*tx.ExternalRef, gateway.ChargeFailed)
	settle := wallet.NewSettleWithdrawal(deps)

	got, err := settle.Execute(ctx, *tx.ExternalRef, uuid.Nil, gateway.ChargeFailed)
	require.NoError(t, err)
	assert.Equal(t, string(walletdomain.TxFailed), got.Status)
	assert.Equal(t, int64(10000), env.Balance(t, tutor).AvailableBalance)

	// A repeated callback does not credit twice.
	_, err = settle.Execute(ctx, *tx.ExternalRef, uuid.Nil, gateway.ChargeFailed)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), env.Balance(t, tutor).AvailableBalance)
	assert.Contains(t, env.Events.Actions(), audit.WithdrawalFailed)
}

func TestRefusedPayoutRecreditsImmediately(t *testing.T) {
	env, deps := setup(t)
	tutor := uuid.New()
	deposit(t, deps, tutor, 10000)
	env.Gateway.SetFailPayouts(true)

	_, err := wallet.NewRequestWithdrawal(deps).Execute(context.Background(), wallet.WithdrawalInput{
		UserID:      tutor,
		Amount:      4000,
		Destination: "pix:tutor@example.com",
	})
	assert.ErrorIs(t, err, httperr.ErrExternalServiceFailure)

	bal := env.Balance(t, tutor)
	assert.Equal(t, int64(10000), bal.AvailableBalance)
	balanced(t, bal)

	txs, _, err := wallet.NewListTransactions(deps).Execute(context.Background(), walletdomain.TxFilter{
		UserID: tutor,
		Types:  []walletdomain.TxType{walletdomain.TxWithdrawal},
	})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, string(walletdomain.TxFailed), txs[0].Status)
}

func TestWithdrawalValidation(t *testing.T) {
	env, deps := setup(t)
	tutor := uuid.New()
	deposit(t, deps, tutor, 1000)
	request := wallet.NewRequestWithdrawal(deps)

	_, err := request.Execute(context.Background(), wallet.WithdrawalInput{UserID: tutor, Amount: 500, Destination: "  "})
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)

	_, err = request.Execute(context.Background(), wallet.WithdrawalInput{UserID: tutor, Amount: 1001, Destination: "pix:x"})
	assert.ErrorIs(t, err, httperr.ErrInsufficientFunds)

	assert.Empty(t, env.Gateway.PayoutCalls())
	assert.Equal(t, int64(1000), env.Balance(t, tutor).AvailableBalance)
}

func TestSettleWithdrawalRejectsOtherTransactions(t *testing.T) {
	_, deps := setup(t)
	ctx := context.Background()
	user := uuid.New()

	tx, err := wallet.NewRecordTransaction(deps).Execute(ctx, walletdomain.RecordInput{
		UserID: user,
		Type:   walletdomain.TxDeposit,
		Amount: 100,
	})
	require.NoError(t, err)

	_, err = wallet.NewSettleWithdrawal(deps).Execute(ctx, "po_unknown", tx.ID, gateway.ChargeSucceeded)
	assert.ErrorIs(t, err, httperr.ErrInvalidInput)

	_, err = wallet.NewSettleWithdrawal(deps).Execute(ctx, "po_unknown", uuid.Nil, gateway.ChargeSucceeded)
	assert.ErrorIs(t, err, httperr.ErrNotFound)
}
