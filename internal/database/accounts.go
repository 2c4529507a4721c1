package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

func (s *Service) CreateAccount(ctx context.Context, params store.CreateAccountParams) (*models.Account, error) {
	zap.L().Info("Creating account",
		zap.String("user_id", params.UserId),
		zap.String("name", params.DisplayName),
		zap.String("email", params.Email))

	ts := now()
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

	_, err := s.db.ExecContext(ctx, queryInsertAccount,
		account.UserId, account.Email, account.DisplayName, account.KYCStatus, account.AccountStatus,
		account.TradeOutcomeMode, account.TradeOutcomeScope, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", store.ErrDuplicateAccount, params.Email)
		}
		zap.L().Error("Failed to insert account", zap.String("email", params.Email), zap.Error(err))
		return nil, fmt.Errorf("unable to insert account: %w", err)
	}

	zap.L().Info("Account created successfully", zap.String("user_id", account.UserId))
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, userId string) (*models.Account, error) {
	zap.L().Debug("Querying account by ID", zap.String("user_id", userId))
	return getAccount(ctx, s.db, userId)
}

func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	zap.L().Debug("Querying account by email", zap.String("email", email))

	account, err := scanAccount(s.db.QueryRowContext(ctx, queryGetAccountByEmail, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, email)
		}
		return nil, fmt.Errorf("unable to query account by email: %w", err)
	}
	return account, nil
}

func (s *Service) ListAccounts(ctx context.Context, filter store.AccountFilter) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx, queryListAccounts,
		filter.KYCStatus, filter.KYCStatus, filter.AccountStatus, filter.AccountStatus,
		normalizeLimit(filter.Limit), filter.Offset)
	if err != nil {
		zap.L().Error("Failed to query accounts", zap.Error(err))
		return nil, fmt.Errorf("unable to query accounts: %w", err)
	}
	defer closeRows(rows)

	var accounts []models.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("unable to scan account row: %w", err)
		}
		accounts = append(accounts, *account)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during account row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating account rows: %w", err)
	}

	zap.L().Debug("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}

func getAccount(ctx context.Context, q querier, userId string) (*models.Account, error) {
	account, err := scanAccount(q.QueryRowContext(ctx, queryGetAccount, userId))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
		}
		zap.L().Error("Failed to query account", zap.String("user_id", userId), zap.Error(err))
		return nil, fmt.Errorf("unable to query account: %w", err)
	}
	return account, nil
}

func updateAccount(ctx context.Context, q querier, query string, userId string, args ...any) error {
	result, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	return nil
}
