package formance

import (
	"context"
	"fmt"
	"math/big"

	v3 "github.com/formancehq/formance-sdk-go/v3"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GetUserBalance returns the mirrored balance for a user and asset.
// Queries the single users:{userId} account directly.
func (m *Mirror) GetUserBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error) {
	vols, err := m.getAccountVolumes(ctx, "users:"+userId)
	if err != nil {
		return decimal.Zero, err
	}
	if bal := volumeBalance(vols, m.formanceAsset(asset)); bal != nil {
		return m.bigIntToDecimal(bal, asset), nil
	}
	return decimal.Zero, nil
}

// GetUserBalances returns every non-zero mirrored balance for a user keyed
// by asset symbol.
func (m *Mirror) GetUserBalances(ctx context.Context, userId string) (map[string]decimal.Decimal, error) {
	vols, err := m.getAccountVolumes(ctx, "users:"+userId)
	if err != nil {
		return nil, err
	}
	balances := make(map[string]decimal.Decimal, len(vols))
	for fAsset, vol := range vols {
		bal := volumeBalance(map[string]shared.V2Volume{fAsset: vol}, fAsset)
		if bal == nil || bal.Sign() == 0 {
			continue
		}
		symbol := assetSymbol(fAsset)
		balances[symbol] = m.bigIntToDecimal(bal, symbol)
	}
	return balances, nil
}

// getAccountVolumes fetches volumes for a single account via GetAccount.
func (m *Mirror) getAccountVolumes(ctx context.Context, address string) (map[string]shared.V2Volume, error) {
	resp, err := m.client.Ledger.V2.GetAccount(ctx, operations.V2GetAccountRequest{
		Ledger:  m.ledger,
		Address: address,
		Expand:  v3.Pointer("volumes"),
	})
	if err != nil {
		zap.L().Warn("Failed to get account volumes", zap.String("address", address), zap.Error(err))
		return nil, fmt.Errorf("failed to get volumes for %s: %w", address, err)
	}
	return resp.V2AccountResponse.Data.Volumes, nil
}

// volumeBalance extracts the balance for a specific asset from volumes.
func volumeBalance(vols map[string]shared.V2Volume, fAsset string) *big.Int {
	vol, ok := vols[fAsset]
	if !ok {
		return nil
	}
	if vol.Balance != nil {
		return vol.Balance
	}
	if vol.Input == nil {
		return nil
	}
	result := new(big.Int).Set(vol.Input)
	if vol.Output != nil {
		result.Sub(result, vol.Output)
	}
	return result
}

// bigIntToDecimal converts a *big.Int in smallest-unit to a human-readable decimal.
func (m *Mirror) bigIntToDecimal(raw *big.Int, symbol string) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -m.precisionFor(symbol))
}

// assetSymbol extracts the symbol from a Formance asset like "USDC/6".
func assetSymbol(fAsset string) string {
	for i, c := range fAsset {
		if c == '/' {
			return fAsset[:i]
		}
	}
	return fAsset
}
