package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"ledger-admin-go/internal/database"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

const adminId = "admin-1"

func newTestLedger(t *testing.T, policy models.DebitPolicy) (*Service, store.LedgerStore) {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 8,
		MaxIdleConns: 8,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  10 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	svc := NewService(db, nil, models.LedgerConfig{DebitPolicy: policy, MaxRetries: 20})
	return svc, db
}

func provision(t *testing.T, svc *Service, userId string) {
	t.Helper()
	_, err := svc.ProvisionAccount(context.Background(), userId, userId+"@example.com", "Test "+userId)
	require.NoError(t, err)
}

func fund(t *testing.T, svc *Service, userId, asset, amount string) {
	t.Helper()
	_, err := svc.AdjustBalance(context.Background(), AdjustParams{
		UserId:       userId,
		Asset:        asset,
		SignedAmount: decimal.RequireFromString(amount),
		Reason:       "seed",
		ActorId:      adminId,
		Type:         models.AdjustmentAdminCredit,
	})
	require.NoError(t, err)
}

func balanceOf(t *testing.T, svc *Service, userId, asset string) decimal.Decimal {
	t.Helper()
	b, err := svc.GetBalance(context.Background(), userId, asset)
	require.NoError(t, err)
	return b
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual.String())
}

func TestAdjustBalance_Credit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "USDT", "100.00")

	adj, err := svc.AdjustBalance(ctx, AdjustParams{
		UserId:       "u1",
		Asset:        "usdt",
		SignedAmount: decimal.NewFromInt(50),
		Reason:       "bonus",
		ActorId:      adminId,
	})
	require.NoError(t, err)

	requireDecimal(t, "100", adj.PreviousBalance)
	requireDecimal(t, "150", adj.NewBalance)
	requireDecimal(t, "50", adj.SignedAmount)
	assert.Equal(t, "USDT", adj.Asset)
	assert.Equal(t, models.AdjustmentManual, adj.Type)
	assert.False(t, adj.Clamped())
	requireDecimal(t, "150", balanceOf(t, svc, "u1", "USDT"))

	history, err := svc.GetAdjustmentHistory(ctx, "u1", "USDT", 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, adj.Id, history[0].Id)
	assert.Equal(t, "bonus", history[0].Reason)
}

func TestAdjustBalance_DebitPolicies(t *testing.T) {
	tests := []struct {
		name        string
		policy      models.DebitPolicy
		wantErr     error
		wantBalance string
	}{
		{name: "clamp to zero", policy: models.DebitClamp, wantBalance: "0"},
		{name: "strict rejects", policy: models.DebitStrict, wantErr: store.ErrInsufficientFunds, wantBalance: "30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			svc, _ := newTestLedger(t, tt.policy)
			provision(t, svc, "u1")
			fund(t, svc, "u1", "USDT", "30.00")

			adj, err := svc.AdjustBalance(ctx, AdjustParams{
				UserId:       "u1",
				Asset:        "USDT",
				SignedAmount: decimal.NewFromInt(-50),
				Reason:       "penalty",
				ActorId:      adminId,
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, models.KindInsufficientFunds, store.KindOf(err))
				history, err := svc.GetAdjustmentHistory(ctx, "u1", "USDT", 10, 0)
				require.NoError(t, err)
				assert.Len(t, history, 1, "failed debit must not write an adjustment")
			} else {
				require.NoError(t, err)
				requireDecimal(t, "30", adj.PreviousBalance)
				requireDecimal(t, "0", adj.NewBalance)
				requireDecimal(t, "-50", adj.SignedAmount)
				requireDecimal(t, "-30", adj.AppliedAmount)
				assert.True(t, adj.Clamped())
			}
			requireDecimal(t, tt.wantBalance, balanceOf(t, svc, "u1", "USDT"))
		})
	}
}

func TestAdjustBalance_PolicyOverride(t *testing.T) {
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "BTC", "0.5")

	_, err := svc.AdjustBalance(context.Background(), AdjustParams{
		UserId:       "u1",
		Asset:        "BTC",
		SignedAmount: decimal.NewFromInt(-1),
		Reason:       "settlement loss",
		ActorId:      "settlement",
		Type:         models.AdjustmentSettlement,
		Policy:       models.DebitStrict,
	})
	require.ErrorIs(t, err, store.ErrInsufficientFunds)
	requireDecimal(t, "0.5", balanceOf(t, svc, "u1", "BTC"))
}

func TestAdjustBalance_Validation(t *testing.T) {
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")

	tests := []struct {
		name   string
		params AdjustParams
		want   error
	}{
		{
			name:   "zero amount",
			params: AdjustParams{UserId: "u1", Asset: "USDT", SignedAmount: decimal.Zero, ActorId: adminId},
			want:   store.ErrInvalidInput,
		},
		{
			name:   "unknown asset",
			params: AdjustParams{UserId: "u1", Asset: "DOGE", SignedAmount: decimal.NewFromInt(1), ActorId: adminId},
			want:   store.ErrInvalidInput,
		},
		{
			name:   "excess precision",
			params: AdjustParams{UserId: "u1", Asset: "USDT", SignedAmount: decimal.RequireFromString("0.0000001"), ActorId: adminId},
			want:   store.ErrInvalidInput,
		},
		{
			name:   "missing actor",
			params: AdjustParams{UserId: "u1", Asset: "USDT", SignedAmount: decimal.NewFromInt(1)},
			want:   store.ErrInvalidInput,
		},
		{
			name:   "unknown user",
			params: AdjustParams{UserId: "ghost", Asset: "USDT", SignedAmount: decimal.NewFromInt(1), ActorId: adminId},
			want:   store.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AdjustBalance(context.Background(), tt.params)
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAdjustBalance_ConcurrentCreditsAreNotLost(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")
	fund(t, svc, "u1", "USDT", "10")

	const workers = 20
	amount := decimal.RequireFromString("2.5")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := svc.AdjustBalance(gctx, AdjustParams{
				UserId:       "u1",
				Asset:        "USDT",
				SignedAmount: amount,
				Reason:       "concurrent credit",
				ActorId:      adminId,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	expected := decimal.NewFromInt(10).Add(amount.Mul(decimal.NewFromInt(workers)))
	require.True(t, expected.Equal(balanceOf(t, svc, "u1", "USDT")))

	history, err := svc.GetAdjustmentHistory(ctx, "u1", "USDT", 100, 0)
	require.NoError(t, err)
	assert.Len(t, history, workers+1)
}

func TestConservation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestLedger(t, models.DebitClamp)
	provision(t, svc, "u1")

	amounts := []string{"100", "-30", "-200", "45.5", "-0.25", "12"}
	for _, a := range amounts {
		_, err := svc.AdjustBalance(ctx, AdjustParams{
			UserId:       "u1",
			Asset:        "USDC",
			SignedAmount: decimal.RequireFromString(a),
			Reason:       "sequence",
			ActorId:      adminId,
		})
		require.NoError(t, err)
	}

	history, err := svc.GetAdjustmentHistory(ctx, "u1", "USDC", 100, 0)
	require.NoError(t, err)
	require.Len(t, history, len(amounts))

	// oldest last; each record chains to the next
	for i := len(history) - 1; i > 0; i-- {
		assert.True(t, history[i].NewBalance.Equal(history[i-1].PreviousBalance))
	}
	for _, h := range history {
		assert.False(t, h.NewBalance.IsNegative())
		assert.True(t, h.PreviousBalance.Add(h.AppliedAmount).Equal(h.NewBalance))
	}

	rec, err := svc.ReconcileBalance(ctx, "u1", "USDC")
	require.NoError(t, err)
	assert.True(t, rec.Consistent)
	assert.Equal(t, int64(len(amounts)), rec.Adjustments)
	requireDecimal(t, "57.25", rec.Balance)

	all, err := svc.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].Consistent)
}

func TestGetBalance_UnknownUser(t *testing.T) {
	svc, _ := newTestLedger(t, models.DebitClamp)

	_, err := svc.GetBalance(context.Background(), "ghost", "USDT")
	require.ErrorIs(t, err, store.ErrUserNotFound)

	_, err = svc.GetBalances(context.Background(), "ghost")
	require.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(nil, nil, models.LedgerConfig{DebitPolicy: "bogus"})
	assert.Equal(t, models.DebitClamp, svc.DebitPolicy())
	assert.Equal(t, defaultMaxRetries, svc.maxRetries)
	assert.Equal(t, []string{"BTC", "ETH", "USDC", "USDT"}, svc.Assets().Symbols())
}
