package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func setupTestService(t *testing.T) *Service {
	t.Helper()
	service, err := NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
		PingTimeout:  5 * time.Second,
		BusyTimeout:  5 * time.Second,
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func createTestAccount(t *testing.T, service *Service, userId string) {
	t.Helper()
	_, err := service.CreateAccount(context.Background(), store.CreateAccountParams{
		UserId:      userId,
		Email:       userId + "@example.com",
		DisplayName: "Test User",
	})
	if err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}
}

func TestCreateAccount_Defaults(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")

	account, err := service.GetAccount(context.Background(), "user1")
	if err != nil {
		t.Fatalf("GetAccount failed: %v", err)
	}
	if account.KYCStatus != models.KYCPending {
		t.Errorf("Expected kyc pending, got %s", account.KYCStatus)
	}
	if account.AccountStatus != models.AccountActive {
		t.Errorf("Expected status active, got %s", account.AccountStatus)
	}
	if account.TradeOutcomeMode != models.OutcomeDefault || account.TradeOutcomeScope != models.ScopeNewTrades {
		t.Errorf("Unexpected outcome flag %s/%s", account.TradeOutcomeMode, account.TradeOutcomeScope)
	}
}

func TestCreateAccount_Duplicate(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")

	_, err := service.CreateAccount(context.Background(), store.CreateAccountParams{
		UserId: "user1",
		Email:  "other@example.com",
	})
	if !errors.Is(err, store.ErrDuplicateAccount) {
		t.Fatalf("Expected ErrDuplicateAccount, got %v", err)
	}
}

func TestGetAccount_NotFound(t *testing.T) {
	service := setupTestService(t)

	_, err := service.GetAccount(context.Background(), "missing")
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestGetUserBalance_NoBalance(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")

	balance, err := service.GetUserBalance(context.Background(), "user1", "BTC")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.Equal(decimal.Zero) {
		t.Errorf("Expected balance 0, got %s", balance.String())
	}
}

func TestGetBalanceForUpdate_CreatesZeroRow(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")
	ctx := context.Background()

	err := service.WithTx(ctx, func(tx store.Tx) error {
		balance, err := tx.GetBalanceForUpdate(ctx, "user1", "USDT")
		if err != nil {
			return err
		}
		if !balance.Balance.IsZero() || balance.Version != 1 {
			t.Errorf("Expected zero balance at version 1, got %s at %d", balance.Balance, balance.Version)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTx failed: %v", err)
	}

	balances, err := service.GetAllUserBalances(ctx, "user1")
	if err != nil {
		t.Fatalf("GetAllUserBalances failed: %v", err)
	}
	if len(balances) != 1 || balances[0].Asset != "USDT" {
		t.Fatalf("Expected one USDT row, got %+v", balances)
	}
}

func TestUpdateBalance_StaleVersion(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")
	ctx := context.Background()

	err := service.WithTx(ctx, func(tx store.Tx) error {
		balance, err := tx.GetBalanceForUpdate(ctx, "user1", "USDT")
		if err != nil {
			return err
		}
		if err := tx.UpdateBalance(ctx, balance.Id, decimal.NewFromInt(10), "adj-1", balance.Version); err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, balance.Id, decimal.NewFromInt(20), "adj-2", balance.Version)
	})
	if !errors.Is(err, store.ErrConcurrentModification) {
		t.Fatalf("Expected ErrConcurrentModification, got %v", err)
	}

	// The whole unit of work rolled back
	balance, err := service.GetUserBalance(ctx, "user1", "USDT")
	if err != nil {
		t.Fatalf("GetUserBalance failed: %v", err)
	}
	if !balance.IsZero() {
		t.Errorf("Expected rollback to leave no balance, got %s", balance)
	}
}

func TestAdjustmentRoundTrip(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")
	ctx := context.Background()

	adj := &models.Adjustment{
		Id:              uuid.New().String(),
		ActorId:         "admin1",
		UserId:          "user1",
		Asset:           "USDT",
		Type:            models.AdjustmentAdminDebit,
		SignedAmount:    decimal.RequireFromString("-50"),
		AppliedAmount:   decimal.RequireFromString("-30.25"),
		Reason:          "penalty",
		PreviousBalance: decimal.RequireFromString("30.25"),
		NewBalance:      decimal.Zero,
		CreatedAt:       time.Now().UTC(),
	}
	if err := service.WithTx(ctx, func(tx store.Tx) error { return tx.InsertAdjustment(ctx, adj) }); err != nil {
		t.Fatalf("InsertAdjustment failed: %v", err)
	}

	history, err := service.GetAdjustmentHistory(ctx, "user1", "", 10, 0)
	if err != nil {
		t.Fatalf("GetAdjustmentHistory failed: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 adjustment, got %d", len(history))
	}
	got := history[0]
	if !got.SignedAmount.Equal(adj.SignedAmount) || !got.AppliedAmount.Equal(adj.AppliedAmount) {
		t.Errorf("Amounts did not round-trip: %s / %s", got.SignedAmount, got.AppliedAmount)
	}
	if !got.Clamped() {
		t.Error("Expected adjustment to report clamped")
	}

	total, count, err := service.SumAppliedAmounts(ctx, "user1", "USDT")
	if err != nil {
		t.Fatalf("SumAppliedAmounts failed: %v", err)
	}
	if count != 1 || !total.Equal(decimal.RequireFromString("-30.25")) {
		t.Errorf("Expected total -30.25 over 1 row, got %s over %d", total, count)
	}
}

func TestTransitionFundsRequest_OnlyFromPending(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")
	ctx := context.Background()

	req := &models.FundsRequest{
		Id:        "W1",
		Type:      models.RequestWithdrawal,
		UserId:    "user1",
		Asset:     "USDT",
		Amount:    decimal.NewFromInt(20),
		Status:    models.RequestPending,
		CreatedAt: time.Now().UTC(),
	}
	if err := service.WithTx(ctx, func(tx store.Tx) error { return tx.InsertFundsRequest(ctx, req) }); err != nil {
		t.Fatalf("InsertFundsRequest failed: %v", err)
	}

	transition := func(txHash string) error {
		return service.WithTx(ctx, func(tx store.Tx) error {
			return tx.TransitionFundsRequest(ctx, store.TransitionParams{
				RequestId:   "W1",
				Status:      models.RequestApproved,
				ProcessedBy: "admin1",
				ProcessedAt: time.Now().UTC(),
				TxHash:      txHash,
			})
		})
	}

	if err := transition("0xabc"); err != nil {
		t.Fatalf("First transition failed: %v", err)
	}
	if err := transition("0xdef"); !errors.Is(err, store.ErrAlreadyProcessed) {
		t.Fatalf("Expected ErrAlreadyProcessed, got %v", err)
	}

	stored, err := service.GetFundsRequest(ctx, "W1")
	if err != nil {
		t.Fatalf("GetFundsRequest failed: %v", err)
	}
	if stored.Status != models.RequestApproved || stored.TxHash != "0xabc" {
		t.Errorf("Expected approved with first hash, got %s %s", stored.Status, stored.TxHash)
	}
	if stored.ProcessedAt == nil || stored.ProcessedBy != "admin1" {
		t.Errorf("Expected processed metadata, got %+v", stored)
	}

	pending, err := service.ListFundsRequests(ctx, store.RequestFilter{Status: models.RequestPending})
	if err != nil {
		t.Fatalf("ListFundsRequests failed: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("Expected no pending requests, got %d", len(pending))
	}
}

func TestGetFundsRequest_NotFound(t *testing.T) {
	service := setupTestService(t)

	_, err := service.GetFundsRequest(context.Background(), "nope")
	if !errors.Is(err, store.ErrRequestNotFound) {
		t.Fatalf("Expected ErrRequestNotFound, got %v", err)
	}
}

func TestNotificationLifecycle(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	for _, id := range []string{"n1", "n2"} {
		err := service.InsertNotification(ctx, &models.Notification{
			Id:        id,
			UserId:    "user1",
			Kind:      models.NotifyBalanceAdjusted,
			Title:     "Balance updated",
			Message:   "Your USDT balance changed",
			Payload:   map[string]string{"asset": "USDT"},
			CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("InsertNotification failed: %v", err)
		}
	}

	if err := service.MarkNotificationDelivered(ctx, "n1", time.Now()); err != nil {
		t.Fatalf("MarkNotificationDelivered failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := service.MarkNotificationFailed(ctx, "n2", "sink down", 2); err != nil {
			t.Fatalf("MarkNotificationFailed failed: %v", err)
		}
	}

	pending, err := service.ListPendingNotifications(ctx, 10)
	if err != nil {
		t.Fatalf("ListPendingNotifications failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("Expected no pending notifications after delivery and exhaustion, got %+v", pending)
	}
}

func TestGetPlatformStats(t *testing.T) {
	service := setupTestService(t)
	createTestAccount(t, service, "user1")
	createTestAccount(t, service, "user2")
	ctx := context.Background()

	err := service.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.UpdateTradeOutcome(ctx, "user2", models.OutcomeForceWin, models.ScopeAllTrades); err != nil {
			return err
		}
		if err := tx.UpdateAccountStatus(ctx, "user2", models.AccountSuspended); err != nil {
			return err
		}
		for i, amount := range []string{"10.5", "4.5"} {
			if err := tx.InsertFundsRequest(ctx, &models.FundsRequest{
				Id:        uuid.New().String(),
				Type:      models.RequestDeposit,
				UserId:    []string{"user1", "user2"}[i],
				Asset:     "USDT",
				Amount:    decimal.RequireFromString(amount),
				Status:    models.RequestPending,
				CreatedAt: time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		balance, err := tx.GetBalanceForUpdate(ctx, "user1", "BTC")
		if err != nil {
			return err
		}
		return tx.UpdateBalance(ctx, balance.Id, decimal.RequireFromString("0.5"), "adj", balance.Version)
	})
	if err != nil {
		t.Fatalf("Seeding failed: %v", err)
	}

	stats, err := service.GetPlatformStats(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("GetPlatformStats failed: %v", err)
	}
	if stats.TotalAccounts != 2 || stats.ActiveAccounts != 1 || stats.SuspendedAccounts != 1 {
		t.Errorf("Unexpected account counts: %+v", stats)
	}
	if stats.OverriddenAccounts != 1 || stats.PendingKYC != 2 {
		t.Errorf("Unexpected override/kyc counts: %+v", stats)
	}
	if len(stats.PendingDeposits) != 1 || stats.PendingDeposits[0].Count != 2 ||
		!stats.PendingDeposits[0].Total.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Unexpected pending deposits: %+v", stats.PendingDeposits)
	}
	if len(stats.BalancesByAsset) != 1 || stats.BalancesByAsset[0].Asset != "BTC" {
		t.Errorf("Unexpected balances by asset: %+v", stats.BalancesByAsset)
	}
}

func TestUpdateTradeOutcome_UnknownUser(t *testing.T) {
	service := setupTestService(t)
	ctx := context.Background()

	err := service.WithTx(ctx, func(tx store.Tx) error {
		return tx.UpdateTradeOutcome(ctx, "ghost", models.OutcomeForceLoss, models.ScopeAllTrades)
	})
	if !errors.Is(err, store.ErrUserNotFound) {
		t.Fatalf("Expected ErrUserNotFound, got %v", err)
	}
}
