package database

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ledger-admin-go/internal/models"

	"github.com/shopspring/decimal"
)

// GetPlatformStats aggregates dashboard figures. Decimal sums are computed in
// Go because amounts are stored as TEXT.
func (s *Service) GetPlatformStats(ctx context.Context, since time.Time) (*models.PlatformStats, error) {
	stats := &models.PlatformStats{GeneratedAt: now()}

	err := s.db.QueryRowContext(ctx, queryAccountCounts).Scan(
		&stats.TotalAccounts, &stats.ActiveAccounts, &stats.SuspendedAccounts,
		&stats.BannedAccounts, &stats.PendingKYC, &stats.OverriddenAccounts)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}

	deposits, withdrawals := assetTally{}, assetTally{}
	rows, err := s.db.QueryContext(ctx, queryPendingRequestAmounts)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending requests: %w", err)
	}
	defer closeRows(rows)
	for rows.Next() {
		var requestType models.RequestType
		var asset, amountStr string
		if err := rows.Scan(&requestType, &asset, &amountStr); err != nil {
			return nil, fmt.Errorf("failed to scan pending request: %w", err)
		}
		amount, err := parseDecimal("amount", amountStr)
		if err != nil {
			return nil, err
		}
		if requestType == models.RequestDeposit {
			deposits.add(asset, amount)
		} else {
			withdrawals.add(asset, amount)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending requests: %w", err)
	}

	balances := assetTally{}
	balanceRows, err := s.db.QueryContext(ctx, queryBalanceAmounts)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer closeRows(balanceRows)
	for balanceRows.Next() {
		var asset, balanceStr string
		if err := balanceRows.Scan(&asset, &balanceStr); err != nil {
			return nil, fmt.Errorf("failed to scan balance: %w", err)
		}
		balance, err := parseDecimal("balance", balanceStr)
		if err != nil {
			return nil, err
		}
		if balance.IsPositive() {
			balances.add(asset, balance)
		}
	}
	if err := balanceRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balances: %w", err)
	}

	if err := s.db.QueryRowContext(ctx, queryAdjustmentsSince, since.UTC()).Scan(&stats.AdjustmentsLast24h); err != nil {
		return nil, fmt.Errorf("failed to count adjustments: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, queryActiveTradersSince, since.UTC()).Scan(&stats.ActiveTradersLast24h); err != nil {
		return nil, fmt.Errorf("failed to count active traders: %w", err)
	}

	stats.PendingDeposits = deposits.sorted()
	stats.PendingWithdrawals = withdrawals.sorted()
	stats.BalancesByAsset = balances.sorted()
	return stats, nil
}

type assetTally map[string]*models.AssetAmount

func (t assetTally) add(asset string, amount decimal.Decimal) {
	entry, ok := t[asset]
	if !ok {
		entry = &models.AssetAmount{Asset: asset, Total: decimal.Zero}
		t[asset] = entry
	}
	entry.Count++
	entry.Total = entry.Total.Add(amount)
}

func (t assetTally) sorted() []models.AssetAmount {
	out := make([]models.AssetAmount, 0, len(t))
	for _, entry := range t {
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}
