/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"flag"
	"fmt"

	"ledger-admin-go/internal/common"
	"ledger-admin-go/internal/config"
	"ledger-admin-go/internal/ledger"
	"ledger-admin-go/internal/models"

	"go.uber.org/zap"
)

type balanceStats struct {
	totalUsers        int
	totalBalances     int
	usersWithBalances int
}

func printBalances(balances []models.UserBalance) {
	for i, balance := range balances {
		fmt.Printf("%s %-10s: %24s\n", common.BoxPrefix(i == len(balances)-1), balance.Asset, balance.Balance.String())
	}
}

func printHistory(history []models.AdjustmentRecord) {
	fmt.Printf("│\n│  Recent adjustments:\n")
	for i, adj := range history {
		createdAt := adj.CreatedAt
		fmt.Printf("%s %s %-18s %-6s %14s -> %-14s by %s (%s)\n",
			common.BoxPrefix(i == len(history)-1),
			common.FormatTime(&createdAt),
			adj.Type,
			adj.Asset,
			adj.AppliedAmount.String(),
			adj.NewBalance.String(),
			common.ShortId(adj.ActorId),
			adj.Reason)
	}
}

func printUserHeader(account models.Account, balanceCount int) {
	fmt.Printf("\n┌─ User: %s (%s)\n", account.DisplayName, account.Email)
	fmt.Printf("│  ID: %s\n", account.UserId)
	fmt.Printf("│  Status: %s, KYC: %s, Outcome: %s\n", account.AccountStatus, account.KYCStatus, account.TradeOutcomeMode)
	fmt.Printf("│  Assets: %d\n", balanceCount)
	common.PrintBoxSeparator(78)
}

func processUser(ctx context.Context, account models.Account, ledgerService *ledger.Service, historyLimit int) (int, error) {
	balances, err := ledgerService.GetBalances(ctx, account.UserId)
	if err != nil {
		return 0, fmt.Errorf("failed to get balances: %w", err)
	}
	if len(balances) == 0 {
		return 0, nil
	}

	printUserHeader(account, len(balances))
	printBalances(balances)

	if historyLimit > 0 {
		history, err := ledgerService.GetAdjustmentHistory(ctx, account.UserId, "", historyLimit, 0)
		if err != nil {
			return len(balances), fmt.Errorf("failed to get adjustment history: %w", err)
		}
		if len(history) > 0 {
			printHistory(history)
		}
	}

	return len(balances), nil
}

func main() {
	ctx := context.Background()

	emailFlag := flag.String("email", "", "Filter by specific user email (optional)")
	historyFlag := flag.Int("history", 5, "Number of recent adjustments to show per user (0 to hide)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	logger, loggerCleanup := common.InitializeLogger(cfg.Log)
	defer loggerCleanup()

	logger.Info("Starting balance query")

	services, err := common.InitializeServices(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize services", zap.Error(err))
	}
	defer services.Close()

	accounts, err := common.InitializeUsers(ctx, services.Store, *emailFlag)
	if err != nil {
		logger.Fatal("Failed to initialize users", zap.Error(err))
	}

	common.PrintHeader("USER BALANCE REPORT", common.WideWidth)

	stats := balanceStats{}
	for _, account := range accounts {
		stats.totalUsers++

		count, err := processUser(ctx, account, services.Ledger, *historyFlag)
		if err != nil {
			logger.Error("Failed to process user",
				zap.String("user_id", account.UserId),
				zap.Error(err))
			continue
		}
		if count > 0 {
			stats.usersWithBalances++
			stats.totalBalances += count
		}
	}

	summary := fmt.Sprintf("SUMMARY: %d users with balances (%d total balances across %d users queried)",
		stats.usersWithBalances, stats.totalBalances, stats.totalUsers)
	common.PrintFooter(summary, common.WideWidth)

	logger.Info("Balance query completed",
		zap.Int("users_queried", stats.totalUsers),
		zap.Int("users_with_balances", stats.usersWithBalances),
		zap.Int("total_balances", stats.totalBalances))
}
