package ledger

import (
	"context"
	"time"

	"ledger-admin-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) GetBalance(ctx context.Context, userId, asset string) (decimal.Decimal, error) {
	cfg, ok := s.assets.Lookup(asset)
	if !ok {
		return decimal.Zero, invalid("unrecognized asset %q", asset)
	}
	if _, err := s.store.GetAccount(ctx, userId); err != nil {
		return decimal.Zero, err
	}
	return s.store.GetUserBalance(ctx, userId, cfg.Symbol)
}

func (s *Service) GetBalances(ctx context.Context, userId string) ([]models.UserBalance, error) {
	if _, err := s.store.GetAccount(ctx, userId); err != nil {
		return nil, err
	}
	rows, err := s.store.GetAllUserBalances(ctx, userId)
	if err != nil {
		return nil, err
	}
	balances := make([]models.UserBalance, 0, len(rows))
	for _, r := range rows {
		balances = append(balances, models.UserBalance{Asset: r.Asset, Balance: r.Balance})
	}
	return balances, nil
}

// GetAdjustmentHistory returns a user's adjustments newest first. An empty
// asset returns every asset.
func (s *Service) GetAdjustmentHistory(ctx context.Context, userId, asset string, limit, offset int) ([]models.AdjustmentRecord, error) {
	if asset != "" {
		cfg, ok := s.assets.Lookup(asset)
		if !ok {
			return nil, invalid("unrecognized asset %q", asset)
		}
		asset = cfg.Symbol
	}
	if _, err := s.store.GetAccount(ctx, userId); err != nil {
		return nil, err
	}

	adjustments, err := s.store.GetAdjustmentHistory(ctx, userId, asset, limit, offset)
	if err != nil {
		return nil, err
	}
	records := make([]models.AdjustmentRecord, 0, len(adjustments))
	for _, a := range adjustments {
		records = append(records, models.AdjustmentRecord{
			Id:              a.Id,
			Type:            a.Type,
			Asset:           a.Asset,
			SignedAmount:    a.SignedAmount,
			AppliedAmount:   a.AppliedAmount,
			PreviousBalance: a.PreviousBalance,
			NewBalance:      a.NewBalance,
			Reason:          a.Reason,
			ActorId:         a.ActorId,
			CreatedAt:       a.CreatedAt,
		})
	}
	return records, nil
}

// ReconcileBalance checks that the stored balance equals the sum of applied
// amounts over every adjustment for the pair.
func (s *Service) ReconcileBalance(ctx context.Context, userId, asset string) (*models.Reconciliation, error) {
	balance, err := s.GetBalance(ctx, userId, asset)
	if err != nil {
		return nil, err
	}
	cfg, _ := s.assets.Lookup(asset)
	computed, count, err := s.store.SumAppliedAmounts(ctx, userId, cfg.Symbol)
	if err != nil {
		return nil, err
	}

	rec := &models.Reconciliation{
		UserId:      userId,
		Asset:       cfg.Symbol,
		Balance:     balance,
		Computed:    computed,
		Adjustments: count,
		Consistent:  balance.Equal(computed),
	}
	if !rec.Consistent {
		zap.L().Error("Balance does not match adjustment log",
			zap.String("user_id", userId),
			zap.String("asset", rec.Asset),
			zap.String("balance", balance.String()),
			zap.String("computed", computed.String()),
			zap.Int64("adjustments", count))
	}
	return rec, nil
}

// ReconcileAll reconciles every stored balance row.
func (s *Service) ReconcileAll(ctx context.Context) ([]models.Reconciliation, error) {
	rows, err := s.store.ListBalances(ctx)
	if err != nil {
		return nil, err
	}
	results := make([]models.Reconciliation, 0, len(rows))
	for _, r := range rows {
		computed, count, err := s.store.SumAppliedAmounts(ctx, r.UserId, r.Asset)
		if err != nil {
			return nil, err
		}
		results = append(results, models.Reconciliation{
			UserId:      r.UserId,
			Asset:       r.Asset,
			Balance:     r.Balance,
			Computed:    computed,
			Adjustments: count,
			Consistent:  r.Balance.Equal(computed),
		})
	}
	return results, nil
}

func (s *Service) GetPlatformStats(ctx context.Context) (*models.PlatformStats, error) {
	return s.store.GetPlatformStats(ctx, time.Now().UTC().Add(-24*time.Hour))
}
