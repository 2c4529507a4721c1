package common

import (
	"context"
	"fmt"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

const accountPageSize = 500

// InitializeUsers retrieves accounts based on an optional email filter.
// If emailFilter is provided, returns a single account with that email.
// If emailFilter is empty, returns all accounts.
func InitializeUsers(ctx context.Context, ledgerStore store.LedgerStore, emailFilter string) ([]models.Account, error) {
	if emailFilter != "" {
		zap.L().Info("Looking up account by email", zap.String("email", emailFilter))
		account, err := ledgerStore.GetAccountByEmail(ctx, emailFilter)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		return []models.Account{*account}, nil
	}

	var accounts []models.Account
	for offset := 0; ; offset += accountPageSize {
		page, err := ledgerStore.ListAccounts(ctx, store.AccountFilter{Limit: accountPageSize, Offset: offset})
		if err != nil {
			return nil, fmt.Errorf("failed to list accounts: %w", err)
		}
		accounts = append(accounts, page...)
		if len(page) < accountPageSize {
			break
		}
	}

	zap.L().Info("Retrieved accounts", zap.Int("count", len(accounts)))
	return accounts, nil
}
