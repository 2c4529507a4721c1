package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger-admin-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetUserBalance returns current balance for a user and asset
func (s *Service) GetUserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error) {
	var balanceStr string
	err := s.db.QueryRowContext(ctx, queryGetBalance, userId, asset).Scan(&balanceStr)
	if errors.Is(err, sql.ErrNoRows) {
		// No balance record means zero balance
		return decimal.Zero, nil
	}
	if err != nil {
		zap.L().Error("Failed to get balance", zap.String("user_id", userId), zap.String("asset", asset), zap.Error(err))
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := parseDecimal("balance", balanceStr)
	if err != nil {
		return decimal.Zero, err
	}

	zap.L().Debug("Retrieved balance", zap.String("user_id", userId), zap.String("asset", asset), zap.String("balance", balance.String()))
	return balance, nil
}

// GetAllUserBalances returns every balance row for a user
func (s *Service) GetAllUserBalances(ctx context.Context, userId string) ([]models.AccountBalance, error) {
	zap.L().Debug("Getting all balances", zap.String("user_id", userId))
	return s.queryBalances(ctx, queryGetAllUserBalances, userId)
}

// ListBalances returns every balance row on the platform
func (s *Service) ListBalances(ctx context.Context) ([]models.AccountBalance, error) {
	return s.queryBalances(ctx, queryListBalances)
}

func (s *Service) queryBalances(ctx context.Context, query string, args ...any) ([]models.AccountBalance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		zap.L().Error("Failed to get balances", zap.Error(err))
		return nil, fmt.Errorf("failed to get balances: %w", err)
	}
	defer closeRows(rows)

	var balances []models.AccountBalance
	for rows.Next() {
		balance, err := scanBalance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balances = append(balances, *balance)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance rows: %w", err)
	}

	return balances, nil
}

// SumAppliedAmounts totals every applied adjustment for (user, asset). For a
// consistent ledger the total equals the current balance.
func (s *Service) SumAppliedAmounts(ctx context.Context, userId, asset string) (decimal.Decimal, int64, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAppliedAmounts, userId, asset)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to query adjustments: %w", err)
	}
	defer closeRows(rows)

	total := decimal.Zero
	var count int64
	for rows.Next() {
		var appliedStr string
		if err := rows.Scan(&appliedStr); err != nil {
			return decimal.Zero, 0, fmt.Errorf("failed to scan applied amount: %w", err)
		}
		applied, err := parseDecimal("applied_amount", appliedStr)
		if err != nil {
			return decimal.Zero, 0, err
		}
		total = total.Add(applied)
		count++
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, 0, fmt.Errorf("error iterating adjustment rows: %w", err)
	}
	return total, count, nil
}
