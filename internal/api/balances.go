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

package api

import (
	"context"
	"fmt"

	"ledger-admin-go/internal/ledger"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/notify"
	"ledger-admin-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddFunds credits a positive amount to a user's balance
func (s *AdminService) AddFunds(ctx context.Context, actor models.Actor, userId, asset string, amount decimal.Decimal, reason string) *models.AdjustmentResult {
	if !amount.IsPositive() {
		return adjustmentFailure("add funds", fmt.Errorf("%w: amount must be positive", store.ErrInvalidInput), userId, asset)
	}
	return s.adjust(ctx, actor, "add funds", s.requireAdmin, ledger.AdjustParams{
		UserId:       userId,
		Asset:        asset,
		SignedAmount: amount,
		Reason:       reason,
		Type:         models.AdjustmentAdminCredit,
	}, false)
}

// RemoveFunds debits a positive amount from a user's balance under the
// configured debit policy
func (s *AdminService) RemoveFunds(ctx context.Context, actor models.Actor, userId, asset string, amount decimal.Decimal, reason string) *models.AdjustmentResult {
	if !amount.IsPositive() {
		return adjustmentFailure("remove funds", fmt.Errorf("%w: amount must be positive", store.ErrInvalidInput), userId, asset)
	}
	return s.adjust(ctx, actor, "remove funds", s.requireAdmin, ledger.AdjustParams{
		UserId:       userId,
		Asset:        asset,
		SignedAmount: amount.Neg(),
		Reason:       reason,
		Type:         models.AdjustmentAdminDebit,
	}, true)
}

// AdjustBalance applies a signed amount on behalf of an admin
func (s *AdminService) AdjustBalance(ctx context.Context, actor models.Actor, userId, asset string, signedAmount decimal.Decimal, reason string) *models.AdjustmentResult {
	return s.adjust(ctx, actor, "adjust balance", s.requireAdmin, ledger.AdjustParams{
		UserId:       userId,
		Asset:        asset,
		SignedAmount: signedAmount,
		Reason:       reason,
		Type:         models.AdjustmentManual,
	}, true)
}

// SettleAdjustment realizes trade P&L for the settlement process. It goes
// through the same ledger path as admin adjustments.
func (s *AdminService) SettleAdjustment(ctx context.Context, actor models.Actor, userId, asset string, signedAmount decimal.Decimal, reason, tradeId string) *models.AdjustmentResult {
	return s.adjust(ctx, actor, "settle trade", s.requireService, ledger.AdjustParams{
		UserId:       userId,
		Asset:        asset,
		SignedAmount: signedAmount,
		Reason:       reason,
		Type:         models.AdjustmentSettlement,
		RelatedId:    tradeId,
		RelatedType:  "trade",
	}, true)
}

func (s *AdminService) adjust(
	ctx context.Context,
	actor models.Actor,
	action string,
	authorize func(models.Actor, string) error,
	params ledger.AdjustParams,
	reasonRequired bool,
) *models.AdjustmentResult {
	if err := authorize(actor, action); err != nil {
		return adjustmentFailure(action, err, params.UserId, params.Asset)
	}
	if reasonRequired {
		if err := requireReason(params.Reason); err != nil {
			return adjustmentFailure(action, err, params.UserId, params.Asset)
		}
	}

	params.ActorId = actor.Id
	adj, err := s.ledger.AdjustBalance(ctx, params)
	if err != nil {
		return adjustmentFailure(action, err, params.UserId, params.Asset)
	}

	s.notify(ctx, notify.ForAdjustment(adj))

	return &models.AdjustmentResult{
		ActionResult:    success(),
		UserId:          adj.UserId,
		Asset:           adj.Asset,
		PreviousBalance: adj.PreviousBalance,
		NewBalance:      adj.NewBalance,
		Adjustment:      adj,
	}
}

func adjustmentFailure(action string, err error, userId, asset string) *models.AdjustmentResult {
	return &models.AdjustmentResult{
		ActionResult: failure(action, err, zap.String("user_id", userId), zap.String("asset", asset)),
		UserId:       userId,
		Asset:        asset,
	}
}

// MyBalances returns the caller's own balances
func (s *AdminService) MyBalances(ctx context.Context, actor models.Actor) ([]models.UserBalance, error) {
	if err := s.requireUser(actor, "my balances"); err != nil {
		return nil, err
	}
	return s.ledger.GetBalances(ctx, actor.Id)
}

// GetUserBalances returns every balance row for a user
func (s *AdminService) GetUserBalances(ctx context.Context, actor models.Actor, userId string) ([]models.UserBalance, error) {
	if err := s.requireAdmin(actor, "get balances"); err != nil {
		return nil, err
	}
	return s.ledger.GetBalances(ctx, userId)
}

const maxHistoryLimit = 100

// GetAdjustmentHistory returns paginated adjustment history for a user and
// optionally one asset
func (s *AdminService) GetAdjustmentHistory(ctx context.Context, actor models.Actor, userId, asset string, limit, offset int) ([]models.AdjustmentRecord, error) {
	if err := s.requireAdmin(actor, "adjustment history"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	} else if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}
	return s.ledger.GetAdjustmentHistory(ctx, userId, asset, limit, offset)
}

// ReconcileBalance compares the stored balance with its adjustment log
func (s *AdminService) ReconcileBalance(ctx context.Context, actor models.Actor, userId, asset string) (*models.Reconciliation, error) {
	if err := s.requireAdmin(actor, "reconcile balance"); err != nil {
		return nil, err
	}
	return s.ledger.ReconcileBalance(ctx, userId, asset)
}

func (s *AdminService) GetPlatformStats(ctx context.Context, actor models.Actor) (*models.PlatformStats, error) {
	if err := s.requireAdmin(actor, "platform stats"); err != nil {
		return nil, err
	}
	return s.ledger.GetPlatformStats(ctx)
}
