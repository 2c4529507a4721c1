package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AdjustParams describes one signed balance change.
type AdjustParams struct {
	UserId       string
	Asset        string
	SignedAmount decimal.Decimal
	Reason       string
	ActorId      string
	Type         models.AdjustmentType
	RelatedId    string
	RelatedType  string
	// Policy overrides the service default when set.
	Policy models.DebitPolicy
}

// AdjustBalance applies a signed amount to (user, asset) and appends exactly
// one adjustment record in the same transaction. A debit larger than the
// balance clamps to zero under DebitClamp and fails with ErrInsufficientFunds
// under DebitStrict.
func (s *Service) AdjustBalance(ctx context.Context, params AdjustParams) (*models.Adjustment, error) {
	if err := s.normalizeAdjust(&params); err != nil {
		return nil, err
	}

	zap.L().Info("Processing adjustment",
		zap.String("user_id", params.UserId),
		zap.String("asset", params.Asset),
		zap.String("type", string(params.Type)),
		zap.String("amount", params.SignedAmount.String()),
		zap.String("actor_id", params.ActorId))

	var adj *models.Adjustment
	err := s.inTx(ctx, "adjust balance", func(tx store.Tx) error {
		if _, err := tx.GetAccountForUpdate(ctx, params.UserId); err != nil {
			return err
		}
		var err error
		adj, err = s.applyAdjustment(ctx, tx, params)
		return err
	})
	if err != nil {
		zap.L().Warn("Adjustment failed",
			zap.String("user_id", params.UserId),
			zap.String("asset", params.Asset),
			zap.String("amount", params.SignedAmount.String()),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Adjustment processed successfully",
		zap.String("adjustment_id", adj.Id),
		zap.String("user_id", adj.UserId),
		zap.String("asset", adj.Asset),
		zap.String("old_balance", adj.PreviousBalance.String()),
		zap.String("new_balance", adj.NewBalance.String()),
		zap.Bool("clamped", adj.Clamped()))
	return adj, nil
}

func (s *Service) normalizeAdjust(params *AdjustParams) error {
	if strings.TrimSpace(params.UserId) == "" {
		return invalid("user id is required")
	}
	if strings.TrimSpace(params.ActorId) == "" {
		return invalid("actor id is required")
	}
	if params.SignedAmount.IsZero() {
		return invalid("amount must be non-zero")
	}
	asset, amount, err := s.assets.Normalize(params.Asset, params.SignedAmount)
	if err != nil {
		return invalid("%v", err)
	}
	params.Asset = asset
	params.SignedAmount = amount

	if params.Type == "" {
		params.Type = models.AdjustmentManual
	}
	if params.Policy == "" {
		params.Policy = s.policy
	}
	if !params.Policy.Valid() {
		return invalid("unknown debit policy %q", params.Policy)
	}
	return nil
}

// applyAdjustment is the single balance write path. The caller must already
// hold the transaction and must have checked that the account exists.
func (s *Service) applyAdjustment(ctx context.Context, tx store.Tx, params AdjustParams) (*models.Adjustment, error) {
	balance, err := tx.GetBalanceForUpdate(ctx, params.UserId, params.Asset)
	if err != nil {
		return nil, err
	}

	previous := balance.Balance
	newBalance := previous.Add(params.SignedAmount)
	if newBalance.IsNegative() {
		if params.Policy == models.DebitStrict {
			return nil, fmt.Errorf("%w: debit of %s %s exceeds balance %s",
				store.ErrInsufficientFunds, params.SignedAmount.Neg().String(), params.Asset, previous.String())
		}
		newBalance = decimal.Zero
	}

	adj := &models.Adjustment{
		Id:              uuid.New().String(),
		ActorId:         params.ActorId,
		UserId:          params.UserId,
		Asset:           params.Asset,
		Type:            params.Type,
		SignedAmount:    params.SignedAmount,
		AppliedAmount:   newBalance.Sub(previous),
		Reason:          params.Reason,
		PreviousBalance: previous,
		NewBalance:      newBalance,
		RelatedId:       params.RelatedId,
		RelatedType:     params.RelatedType,
		CreatedAt:       time.Now().UTC(),
	}

	if err := tx.InsertAdjustment(ctx, adj); err != nil {
		return nil, err
	}
	if err := tx.UpdateBalance(ctx, balance.Id, newBalance, adj.Id, balance.Version); err != nil {
		return nil, err
	}
	return adj, nil
}
