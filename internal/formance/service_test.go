package formance

import (
	"context"
	"math/big"
	"testing"

	"ledger-admin-go/internal/models"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
)

// ---------- Unit tests for pure helpers (no Formance stack needed) ----------

func testMirror() *Mirror {
	return &Mirror{ledger: "test", assets: models.NewAssetRegistry(models.DefaultAssets)}
}

func TestFormanceAsset(t *testing.T) {
	m := testMirror()
	tests := []struct {
		symbol string
		want   string
	}{
		{"USDC", "USDC/6"},
		{"BTC", "BTC/8"},
		{"ETH", "ETH/18"},
		{"UNKNOWN", "UNKNOWN/6"}, // default precision
	}
	for _, tt := range tests {
		if got := m.formanceAsset(tt.symbol); got != tt.want {
			t.Errorf("formanceAsset(%q) = %q, want %q", tt.symbol, got, tt.want)
		}
	}
}

func TestAssetSymbol(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"USDC/6", "USDC"},
		{"BTC/8", "BTC"},
		{"ETH/18", "ETH"},
		{"PLAIN", "PLAIN"},
	}
	for _, tt := range tests {
		if got := assetSymbol(tt.input); got != tt.want {
			t.Errorf("assetSymbol(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestSmallestUnits(t *testing.T) {
	m := testMirror()
	if got := m.smallestUnits("USDT", decimal.RequireFromString("12.5")); got != "12500000" {
		t.Errorf("expected 12500000, got %s", got)
	}
	if got := m.smallestUnits("BTC", decimal.RequireFromString("0.00000001")); got != "1" {
		t.Errorf("expected 1, got %s", got)
	}
}

func TestBigIntToDecimal(t *testing.T) {
	m := testMirror()

	// 1_000_000 smallest units of USDC (precision 6) = 1.0
	result := m.bigIntToDecimal(big.NewInt(1_000_000), "USDC")
	if !result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1.0, got %s", result.String())
	}

	// 100_000_000 smallest units of BTC (precision 8) = 1.0
	result = m.bigIntToDecimal(big.NewInt(100_000_000), "BTC")
	if !result.Equal(decimal.NewFromInt(1)) {
		t.Errorf("expected 1.0, got %s", result.String())
	}

	// nil should return zero
	result = m.bigIntToDecimal(nil, "USDC")
	if !result.IsZero() {
		t.Errorf("expected 0, got %s", result.String())
	}
}

func TestVolumeBalance(t *testing.T) {
	vols := map[string]shared.V2Volume{
		"USDT/6": {Input: big.NewInt(500), Output: big.NewInt(200)},
		"BTC/8":  {Input: big.NewInt(1), Output: big.NewInt(0), Balance: big.NewInt(7)},
	}
	if got := volumeBalance(vols, "USDT/6"); got.Cmp(big.NewInt(300)) != 0 {
		t.Errorf("expected 300, got %s", got)
	}
	if got := volumeBalance(vols, "BTC/8"); got.Cmp(big.NewInt(7)) != 0 {
		t.Errorf("expected explicit balance 7, got %s", got)
	}
	if got := volumeBalance(vols, "ETH/18"); got != nil {
		t.Errorf("expected nil for missing asset, got %s", got)
	}
}

func TestIsConflictError(t *testing.T) {
	// nil error should not be a conflict
	if isConflictError(nil) {
		t.Error("nil should not be a conflict error")
	}
}

func TestPostAdjustment_SkipsZeroAndRejectsIncomplete(t *testing.T) {
	m := testMirror()

	// a zero applied amount never reaches the client
	err := m.PostAdjustment(context.Background(), Posting{
		AdjustmentId: "adj-1", UserId: "u1", Asset: "USDT", AppliedAmount: decimal.Zero,
	})
	if err != nil {
		t.Fatalf("expected nil for zero amount, got %v", err)
	}

	if err := m.PostAdjustment(context.Background(), Posting{UserId: "u1", Asset: "USDT", AppliedAmount: decimal.NewFromInt(1)}); err == nil {
		t.Fatal("expected error for missing adjustment id")
	}
}
