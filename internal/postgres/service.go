package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

// Service is the PostgreSQL backend. Mutations lock the rows they touch with
// SELECT ... FOR UPDATE.
type Service struct {
	pool *pgxpool.Pool
}

// NewService creates a connection pool. Migrations are applied separately
// with MigrateUp.
func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL cannot be empty")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	if cfg.ConnMaxIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.ConnMaxIdleTime
	}
	poolConfig.ConnConfig.RuntimeParams["timezone"] = "UTC"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	zap.L().Info("PostgreSQL service initialized successfully")
	return &Service{pool: pool}, nil
}

func (s *Service) Close() {
	s.pool.Close()
}

// WithTx executes fn within a database transaction. If fn returns an error
// the transaction is rolled back, otherwise it is committed.
func (s *Service) WithTx(ctx context.Context, fn func(tx store.Tx) error) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				zap.L().Warn("Failed to roll back transaction", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(&txStore{tx: tx}); err != nil {
		return classify(err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", classify(err))
	}
	return nil
}

// --- Accounts ---

func (s *Service) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	zap.L().Info("Creating account",
		zap.String("user_id", params.UserId),
		zap.String("name", params.DisplayName),
		zap.String("email", params.Email))

	ts := time.Now().UTC()
	account := &models.Account{
		UserId:            params.UserId,
		Email:             params.Email,
		DisplayName:       params.DisplayName,
		KYCStatus:         models.KYCPending,
		AccountStatus:     models.AccountActive,
		TradeOutcomeMode:  models.OutcomeDefault,
		TradeOutcomeScope: models.ScopeNewTrades,
		CreatedAt:         ts,
		UpdatedAt:         ts,
	}

	_, err := s.pool.Exec(ctx, queryInsertAccount,
		account.UserId, account.Email, account.DisplayName, string(account.KYCStatus), string(account.AccountStatus),
		string(account.TradeOutcomeMode), string(account.TradeOutcomeScope), account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateAccount, params.Email)
		}
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, userId string) (*models.Account, error) {
	return getAccount(ctx, s.pool, queryGetAccount, userId)
}

func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	account, err := scanAccount(s.pool.QueryRow(ctx, queryGetAccountByEmail, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("unable to query account by email: %w", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, filter store.AccountFilter) ([]models.Account, error) {
	rows, err := s.pool.Query(ctx, queryListAccounts,
		string(filter.KYCStatus), string(filter.AccountStatus), normalizeLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	return collect(rows, scanAccount)
}

// --- Balances ---

func (s *Service) GetUserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error) {
	var balanceStr string
	err := s.pool.QueryRow(ctx, queryGetBalance, userId, asset).Scan(&balanceStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return parseDecimal("balance", balanceStr)
}

func (s *Service) GetAllUserBalances(ctx context.Context, userId string) ([]models.AccountBalance, error) {
	rows, err := s.pool.Query(ctx, queryGetAllUserBalances, userId)
	if err != nil {
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	return collect(rows, scanBalance)
}

func (s *Service) ListBalances(ctx context.Context) ([]models.AccountBalance, error) {
	rows, err := s.pool.Query(ctx, queryListBalances)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	return collect(rows, scanBalance)
}

func (s *Service) GetAdjustmentHistory(ctx context.Context, userId, asset string, limit, offset int) ([]models.Adjustment, error) {
	rows, err := s.pool.Query(ctx, queryGetAdjustmentHistory, userId, asset, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustment history: %w", err)
	}
	return collect(rows, scanAdjustment)
}

func (s *Service) SumAppliedAmounts(ctx context.Context, userId, asset string) (decimal.Decimal, int64, error) {
	var totalStr string
	var count int64
	if err := s.pool.QueryRow(ctx, querySumAppliedAmounts, userId, asset).Scan(&totalStr, &count); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to sum adjustments: %w", err)
	}
	total, err := parseDecimal("applied_amount", totalStr)
	return total, count, err
}

// --- Funds requests ---

func (s *Service) GetFundsRequest(ctx context.Context, id string) (*models.FundsRequest, error) {
	return getFundsRequest(ctx, s.pool, queryGetFundsRequest, id)
}

func (s *Service) ListFundsRequests(ctx context.Context, filter store.RequestFilter) ([]models.FundsRequest, error) {
	rows, err := s.pool.Query(ctx, queryListFundsRequests,
		string(filter.Type), string(filter.Status), filter.UserId, normalizeLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds requests: %w", err)
	}
	return collect(rows, scanFundsRequest)
}

// --- Audit ---

func (s *Service) GetTradeOutcomeLogs(ctx context.Context, userId string, limit int) ([]models.TradeOutcomeLog, error) {
	rows, err := s.pool.Query(ctx, queryGetTradeOutcomeLogs, userId, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get trade outcome logs: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*models.TradeOutcomeLog, error) {
		var l models.TradeOutcomeLog
		err := row.Scan(&l.Id, &l.AdminId, &l.UserId, &l.PreviousMode, &l.NewMode, &l.PreviousScope, &l.Scope, &l.Reason, &l.CreatedAt)
		return &l, err
	})
}

func (s *Service) GetAuditLog(ctx context.Context, userId string, limit int) ([]models.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, queryGetAuditLog, userId, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*models.AuditEntry, error) {
		var e models.AuditEntry
		err := row.Scan(&e.Id, &e.ActorId, &e.UserId, &e.Action, &e.PreviousValue, &e.NewValue, &e.Reason, &e.CreatedAt)
		return &e, err
	})
}

// --- Stats ---

func (s *Service) GetPlatformStats(ctx context.Context, since time.Time) (*models.PlatformStats, error) {
	stats := &models.PlatformStats{GeneratedAt: time.Now().UTC()}

	err := s.pool.QueryRow(ctx, queryAccountCounts).Scan(
		&stats.TotalAccounts, &stats.ActiveAccounts, &stats.SuspendedAccounts,
		&stats.BannedAccounts, &stats.PendingKYC, &stats.OverriddenAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	if stats.PendingDeposits, err = s.assetTotals(ctx, queryPendingRequestTotals, string(models.RequestDeposit)); err != nil {
		return nil, err
	}
	if stats.PendingWithdrawals, err = s.assetTotals(ctx, queryPendingRequestTotals, string(models.RequestWithdrawal)); err != nil {
		return nil, err
	}
	if stats.BalancesByAsset, err = s.assetTotals(ctx, queryBalanceTotals); err != nil {
		return nil, err
	}

	if err := s.pool.QueryRow(ctx, queryAdjustmentsSince, since).Scan(&stats.AdjustmentsLast24h); err != nil {
		return nil, fmt.Errorf("failed to count adjustments: %w", err)
	}
	if err := s.pool.QueryRow(ctx, queryActiveTradersSince, since).Scan(&stats.ActiveTradersLast24h); err != nil {
		return nil, fmt.Errorf("failed to count active traders: %w", err)
	}
	return stats, nil
}

func (s *Service) assetTotals(ctx context.Context, query string, args ...any) ([]models.AssetAmount, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate by asset: %w", err)
	}
	totals, err := collect(rows, func(row pgx.Row) (*models.AssetAmount, error) {
		var a models.AssetAmount
		var totalStr string
		if err := row.Scan(&a.Asset, &a.Count, &totalStr); err != nil {
			return nil, err
		}
		total, err := parseDecimal("total", totalStr)
		a.Total = total
		return &a, err
	})
	if totals == nil && err == nil {
		totals = []models.AssetAmount{}
	}
	return totals, err
}

// --- Notifications ---

func (s *Service) InsertNotification(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode notification payload: %w", err)
	}
	_, err = s.pool.Exec(ctx, queryInsertNotification,
		n.Id, n.UserId, string(n.Kind), n.Title, n.Message, string(payload), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Service) ListPendingNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := s.pool.Query(ctx, queryListPendingNotifications, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	return collect(rows, func(row pgx.Row) (*models.Notification, error) {
		var n models.Notification
		var payload string
		if err := row.Scan(&n.Id, &n.UserId, &n.Kind, &n.Title, &n.Message, &payload,
			&n.Status, &n.Attempts, &n.LastError, &n.CreatedAt, &n.DeliveredAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			zap.L().Warn("Discarding malformed notification payload", zap.String("notification_id", n.Id), zap.Error(err))
		}
		return &n, nil
	})
}

func (s *Service) MarkNotificationDelivered(ctx context.Context, id string, at time.Time) error {
	if _, err := s.pool.Exec(ctx, queryMarkNotificationDelivered, at, id); err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return nil
}

func (s *Service) MarkNotificationFailed(ctx context.Context, id string, lastError string, maxAttempts int) error {
	if _, err := s.pool.Exec(ctx, queryMarkNotificationFailed, lastError, maxAttempts, id); err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

// --- helpers ---

// queryer is satisfied by both *pgxpool.Pool and pgx.Tx.
type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()

	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return out, nil
}

func getAccount(ctx context.Context, q queryer, query, userId string) (*models.Account, error) {
	account, err := scanAccount(q.QueryRow(ctx, query, userId))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return account, nil
}

func getFundsRequest(ctx context.Context, q queryer, query, id string) (*models.FundsRequest, error) {
	req, err := scanFundsRequest(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrRequestNotFound, id)
		}
		return nil, fmt.Errorf("unable to query funds request: %w", err)
	}
	return req, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// classify maps serialization failures and deadlocks onto
// ErrConcurrentModification so the ledger retries the unit of work.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %v", store.ErrConcurrentModification, err)
	}
	return err
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	}
	return limit
}
