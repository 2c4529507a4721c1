package formance

import (
	"context"
	"fmt"

	"github.com/formancehq/formance-sdk-go/v3/pkg/models/operations"
	"github.com/formancehq/formance-sdk-go/v3/pkg/models/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Numscript templates. All metadata is set inside the script via
// set_tx_meta() so the Formance transaction is fully self-describing.

const numscriptCredit = `vars {
  asset $asset
  number $amount
  account $user_id
  string $adjustment_id
  string $adjustment_type
  string $actor_id
  string $amount_human
}

send [$asset $amount] (
  source = @platform:adjustments allowing unbounded overdraft
  destination = @users:$user_id
)

set_tx_meta("event_type", "balance_credit")
set_tx_meta("adjustment_id", $adjustment_id)
set_tx_meta("adjustment_type", $adjustment_type)
set_tx_meta("actor_id", $actor_id)
set_tx_meta("amount_human", $amount_human)
`

const numscriptDebit = `vars {
  asset $asset
  number $amount
  account $user_id
  string $adjustment_id
  string $adjustment_type
  string $actor_id
  string $amount_human
}

send [$asset $amount] (
  source = @users:$user_id allowing unbounded overdraft
  destination = @platform:adjustments
)

set_tx_meta("event_type", "balance_debit")
set_tx_meta("adjustment_id", $adjustment_id)
set_tx_meta("adjustment_type", $adjustment_type)
set_tx_meta("actor_id", $actor_id)
set_tx_meta("amount_human", $amount_human)
`

// Posting is one applied balance change to mirror.
type Posting struct {
	AdjustmentId   string
	AdjustmentType string
	UserId         string
	ActorId        string
	Asset          string
	// AppliedAmount is signed: positive credits the user, negative debits.
	AppliedAmount decimal.Decimal
}

// PostAdjustment records p in the Formance ledger under the adjustment id as
// reference. A conflict means the adjustment was already mirrored and is not
// an error.
func (m *Mirror) PostAdjustment(ctx context.Context, p Posting) error {
	if p.AdjustmentId == "" || p.UserId == "" || p.Asset == "" {
		return fmt.Errorf("posting requires adjustment id, user id and asset")
	}
	if p.AppliedAmount.IsZero() {
		return nil
	}

	script := numscriptCredit
	if p.AppliedAmount.IsNegative() {
		script = numscriptDebit
	}
	magnitude := p.AppliedAmount.Abs()

	_, err := m.client.Ledger.V2.CreateTransaction(ctx, operations.V2CreateTransactionRequest{
		Ledger: m.ledger,
		V2PostTransaction: shared.V2PostTransaction{
			Reference: strPtr(p.AdjustmentId),
			Script: &shared.V2PostTransactionScript{
				Plain: script,
				Vars: map[string]string{
					"asset":           m.formanceAsset(p.Asset),
					"amount":          m.smallestUnits(p.Asset, magnitude),
					"user_id":         p.UserId,
					"adjustment_id":   p.AdjustmentId,
					"adjustment_type": p.AdjustmentType,
					"actor_id":        p.ActorId,
					"amount_human":    magnitude.String(),
				},
			},
		},
	})
	if err != nil {
		if isConflictError(err) {
			zap.L().Debug("Adjustment already mirrored", zap.String("adjustment_id", p.AdjustmentId))
			return nil
		}
		return fmt.Errorf("error mirroring adjustment %s: %w", p.AdjustmentId, err)
	}

	zap.L().Info("Adjustment mirrored in Formance",
		zap.String("adjustment_id", p.AdjustmentId),
		zap.String("user_id", p.UserId),
		zap.String("asset", p.Asset),
		zap.String("amount", p.AppliedAmount.String()))
	return nil
}

// smallestUnits converts a human amount into the integer string Numscript expects.
func (m *Mirror) smallestUnits(symbol string, amount decimal.Decimal) string {
	return amount.Shift(m.precisionFor(symbol)).BigInt().String()
}
