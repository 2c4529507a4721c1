package ledger

import (
	"context"
	"testing"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestWithdrawal_ApproveTwiceIsAlreadyProcessed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "USDT", "100")

	w1, hold, err := svc.CreateWithdrawalRequest(ctx, "u1", "USDT", decimal.NewFromInt(20), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, w1.Status)
	assert.Equal(t, hold.Id, w1.HoldAdjustmentId)
	assert.Equal(t, models.AdjustmentWithdrawalHold, hold.Type)
	requireDecimal(t, "80", balanceOf(t, svc, "u1", "USDT"))

	approved, err := svc.ApproveWithdrawal(ctx, w1.Id, "0xhash1", adminId)
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, approved.Status)
	assert.Equal(t, "0xhash1", approved.TxHash)
	require.NotNil(t, approved.ProcessedAt)
	requireDecimal(t, "80", balanceOf(t, svc, "u1", "USDT"))

	_, err = svc.ApproveWithdrawal(ctx, w1.Id, "0xhash2", adminId)
	require.ErrorIs(t, err, store.ErrAlreadyProcessed)
	assert.Equal(t, models.KindAlreadyProcessed, store.KindOf(err))
	requireDecimal(t, "80", balanceOf(t, svc, "u1", "USDT"))

	stored, err := svc.GetRequest(ctx, w1.Id)
	require.NoError(t, err)
	assert.Equal(t, "0xhash1", stored.TxHash)

	history, err := svc.GetAdjustmentHistory(ctx, "u1", "USDT", 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestWithdrawal_RejectRefundsOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "USDT", "50")

	w2, _, err := svc.CreateWithdrawalRequest(ctx, "u1", "USDT", decimal.NewFromInt(20), "0xabc")
	require.NoError(t, err)
	requireDecimal(t, "30", balanceOf(t, svc, "u1", "USDT"))

	rejected, refund, err := svc.RejectWithdrawal(ctx, w2.Id, "invalid address", adminId)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, rejected.Status)
	require.NotNil(t, refund)
	assert.Equal(t, models.AdjustmentWithdrawalRefund, refund.Type)
	requireDecimal(t, "20", refund.SignedAmount)
	assert.Equal(t, w2.Id, refund.RelatedId)
	requireDecimal(t, "50", balanceOf(t, svc, "u1", "USDT"))

	_, _, err = svc.RejectWithdrawal(ctx, w2.Id, "again", adminId)
	require.ErrorIs(t, err, store.ErrAlreadyProcessed)
	_, err = svc.ApproveWithdrawal(ctx, w2.Id, "0xhash", adminId)
	require.ErrorIs(t, err, store.ErrAlreadyProcessed)
	requireDecimal(t, "50", balanceOf(t, svc, "u1", "USDT"))

	history, err := svc.GetAdjustmentHistory(ctx, "u1", "USDT", 10, 0)
	require.NoError(t, err)
	assert.Len(t, history, 3, "seed, hold and exactly one refund")
}

func TestWithdrawal_HoldIsStrict(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "USDT", "10")

	_, _, err := svc.CreateWithdrawalRequest(ctx, "u1", "USDT", decimal.NewFromInt(20), "0xabc")
	require.ErrorIs(t, err, store.ErrInsufficientFunds)
	requireDecimal(t, "10", balanceOf(t, svc, "u1", "USDT"))

	requests, err := svc.ListRequests(ctx, store.RequestFilter{UserId: "u1"})
	require.NoError(t, err)
	assert.Empty(t, requests)
}

func TestWithdrawal_SuspendedAccount(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "USDT", "10")

	_, err := svc.SetAccountStatus(ctx, "u1", models.AccountSuspended, "review", adminId)
	require.NoError(t, err)

	_, _, err = svc.CreateWithdrawalRequest(ctx, "u1", "USDT", decimal.NewFromInt(5), "0xabc")
	require.ErrorIs(t, err, store.ErrInvalidInput)
	requireDecimal(t, "10", balanceOf(t, svc, "u1", "USDT"))
}

func TestDeposit_ApproveCreditsAndRejectDoesNot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")

	d1, err := svc.CreateDepositRequest(ctx, "u1", "eth", decimal.RequireFromString("1.5"))
	require.NoError(t, err)
	assert.Equal(t, "ETH", d1.Asset)
	d2, err := svc.CreateDepositRequest(ctx, "u1", "ETH", decimal.NewFromInt(3))
	require.NoError(t, err)
	requireDecimal(t, "0", balanceOf(t, svc, "u1", "ETH"))

	_, credit, err := svc.ApproveDeposit(ctx, d1.Id, "confirmed on chain", adminId)
	require.NoError(t, err)
	require.NotNil(t, credit)
	assert.Equal(t, models.AdjustmentDeposit, credit.Type)
	requireDecimal(t, "1.5", balanceOf(t, svc, "u1", "ETH"))

	rejected, err := svc.RejectDeposit(ctx, d2.Id, "no transfer received", adminId)
	require.NoError(t, err)
	assert.Equal(t, "no transfer received", rejected.AdminNotes)
	requireDecimal(t, "1.5", balanceOf(t, svc, "u1", "ETH"))

	_, _, err = svc.ApproveDeposit(ctx, d2.Id, "", adminId)
	require.ErrorIs(t, err, store.ErrAlreadyProcessed)

	pending, err := svc.ListRequests(ctx, store.RequestFilter{Status: models.RequestPending})
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestTransition_TypeMismatch(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "USDT", "100")

	w, _, err := svc.CreateWithdrawalRequest(ctx, "u1", "USDT", decimal.NewFromInt(20), "0xabc")
	require.NoError(t, err)

	_, _, err = svc.ApproveDeposit(ctx, w.Id, "", adminId)
	require.ErrorIs(t, err, store.ErrInvalidInput)

	stored, err := svc.GetRequest(ctx, w.Id)
	require.NoError(t, err)
	assert.Equal(t, models.RequestPending, stored.Status)
}

func TestTransition_NotFound(t *testing.T) {
	svc, _ := newTestLedger(t, models.DebitClamp)

	_, err := svc.RejectDeposit(context.Background(), "missing", "nope", adminId)
	require.ErrorIs(t, err, store.ErrRequestNotFound)
}

func TestDeposit_ConcurrentApprovalsCreditOnce(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")

	d, err := svc.CreateDepositRequest(ctx, "u1", "USDT", decimal.NewFromInt(40))
	require.NoError(t, err)

	const admins = 8
	results := make(chan error, admins)
	var g errgroup.Group
	for i := 0; i < admins; i++ {
		g.Go(func() error {
			_, _, err := svc.ApproveDeposit(ctx, d.Id, "", adminId)
			results <- err
			return nil
		})
	}
	require.NoError(t, g.Wait())
	close(results)

	var succeeded, already int
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case store.KindOf(err) == models.KindAlreadyProcessed:
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, admins-1, already)
	requireDecimal(t, "40", balanceOf(t, svc, "u1", "USDT"))
}

func TestCreateRequest_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")

	_, err := svc.CreateDepositRequest(ctx, "u1", "USDT", decimal.NewFromInt(-1))
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.CreateDepositRequest(ctx, "ghost", "USDT", decimal.NewFromInt(1))
	require.ErrorIs(t, err, store.ErrUserNotFound)

	_, _, err = svc.CreateWithdrawalRequest(ctx, "u1", "USDT", decimal.NewFromInt(1), " ")
	require.ErrorIs(t, err, store.ErrInvalidInput)

	_, err = svc.ApproveWithdrawal(ctx, "any", "", adminId)
	require.ErrorIs(t, err, store.ErrInvalidInput)
}
