package store

import (
	"context"
	"time"

	"ledger-admin-go/internal/models"

	"github.com/shopspring/decimal"
)

// CreateAccountParams contains the parameters for provisioning an account.
type CreateAccountParams struct {
	UserId      string
	Email       string
	DisplayName string
}

// AccountFilter narrows ListAccounts. Empty fields match everything.
type AccountFilter struct {
	KYCStatus     models.KYCStatus
	AccountStatus models.AccountStatus
	Limit         int
	Offset        int
}

// RequestFilter narrows ListFundsRequests. Empty fields match everything.
type RequestFilter struct {
	Type   models.RequestType
	Status models.RequestStatus
	UserId string
	Limit  int
	Offset int
}

// TransitionParams moves a pending funds request to a terminal status.
type TransitionParams struct {
	RequestId   string
	Status      models.RequestStatus
	ProcessedBy string
	ProcessedAt time.Time
	AdminNotes  string
	TxHash      string
}

// Tx is one unit of work. Every balance mutation and its audit row are
// written through the same Tx so they commit or roll back together.
type Tx interface {
	// --- Accounts ---
	GetAccountForUpdate(ctx context.Context, userId string) (*models.Account, error)
	UpdateTradeOutcome(ctx context.Context, userId string, mode models.OutcomeMode, scope models.OutcomeScope) error
	UpdateKYCStatus(ctx context.Context, userId string, status models.KYCStatus) error
	UpdateAccountStatus(ctx context.Context, userId string, status models.AccountStatus) error

	// --- Balances ---
	// GetBalanceForUpdate returns the balance row for (userId, asset), creating a
	// zero row first if none exists, and locks it for the rest of the Tx.
	GetBalanceForUpdate(ctx context.Context, userId, asset string) (*models.AccountBalance, error)
	// UpdateBalance is a compare-and-swap on version; a stale version yields
	// ErrConcurrentModification.
	UpdateBalance(ctx context.Context, balanceId string, newBalance decimal.Decimal, adjustmentId string, expectedVersion int64) error
	InsertAdjustment(ctx context.Context, adj *models.Adjustment) error

	// --- Funds requests ---
	InsertFundsRequest(ctx context.Context, req *models.FundsRequest) error
	GetFundsRequestForUpdate(ctx context.Context, id string) (*models.FundsRequest, error)
	// TransitionFundsRequest only succeeds when the row is still pending;
	// otherwise it returns ErrAlreadyProcessed.
	TransitionFundsRequest(ctx context.Context, params TransitionParams) error

	// --- Audit ---
	InsertTradeOutcomeLog(ctx context.Context, log *models.TradeOutcomeLog) error
	InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error
}

// LedgerStore defines the contract that every backend (SQLite, PostgreSQL) must satisfy.
type LedgerStore interface {
	// WithTx runs fn inside a single database transaction. It commits when fn
	// returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// --- Accounts ---
	CreateAccount(ctx context.Context, params CreateAccountParams) (*models.Account, error)
	GetAccount(ctx context.Context, userId string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	ListAccounts(ctx context.Context, filter AccountFilter) ([]models.Account, error)

	// --- Balances ---
	GetUserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error)
	GetAllUserBalances(ctx context.Context, userId string) ([]models.AccountBalance, error)
	ListBalances(ctx context.Context) ([]models.AccountBalance, error)
	GetAdjustmentHistory(ctx context.Context, userId, asset string, limit, offset int) ([]models.Adjustment, error)
	SumAppliedAmounts(ctx context.Context, userId, asset string) (decimal.Decimal, int64, error)

	// --- Funds requests ---
	GetFundsRequest(ctx context.Context, id string) (*models.FundsRequest, error)
	ListFundsRequests(ctx context.Context, filter RequestFilter) ([]models.FundsRequest, error)

	// --- Audit ---
	GetTradeOutcomeLogs(ctx context.Context, userId string, limit int) ([]models.TradeOutcomeLog, error)
	GetAuditLog(ctx context.Context, userId string, limit int) ([]models.AuditEntry, error)

	// --- Stats ---
	GetPlatformStats(ctx context.Context, since time.Time) (*models.PlatformStats, error)

	// --- Notifications ---
	InsertNotification(ctx context.Context, n *models.Notification) error
	ListPendingNotifications(ctx context.Context, limit int) ([]models.Notification, error)
	MarkNotificationDelivered(ctx context.Context, id string, at time.Time) error
	MarkNotificationFailed(ctx context.Context, id string, lastError string, maxAttempts int) error

	// --- Lifecycle ---
	Close()
}
