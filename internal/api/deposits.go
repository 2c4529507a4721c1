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

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/notify"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RequestDeposit queues a deposit for the caller's own account
func (s *AdminService) RequestDeposit(ctx context.Context, actor models.Actor, asset string, amount decimal.Decimal) *models.RequestResult {
	const action = "request deposit"
	if err := s.requireUser(actor, action); err != nil {
		return requestFailure(action, err, "")
	}

	req, err := s.ledger.CreateDepositRequest(ctx, actor.Id, asset, amount)
	if err != nil {
		return requestFailure(action, err, "", zap.String("user_id", actor.Id), zap.String("asset", asset))
	}

	s.notify(ctx, notify.ForRequest(req, nil))
	return &models.RequestResult{ActionResult: success(), Request: req}
}

// ApproveDeposit moves a pending deposit to approved and credits the user
func (s *AdminService) ApproveDeposit(ctx context.Context, actor models.Actor, requestId, notes string) *models.RequestResult {
	const action = "approve deposit"
	if err := s.requireAdmin(actor, action); err != nil {
		return requestFailure(action, err, requestId)
	}

	req, adj, err := s.ledger.ApproveDeposit(ctx, requestId, notes, actor.Id)
	if err != nil {
		return requestFailure(action, err, requestId)
	}

	s.notify(ctx, notify.ForRequest(req, adj))
	return &models.RequestResult{ActionResult: success(), Request: req, Adjustment: adj}
}

// RejectDeposit moves a pending deposit to rejected without touching balances
func (s *AdminService) RejectDeposit(ctx context.Context, actor models.Actor, requestId, reason string) *models.RequestResult {
	const action = "reject deposit"
	if err := s.requireAdmin(actor, action); err != nil {
		return requestFailure(action, err, requestId)
	}
	if err := requireReason(reason); err != nil {
		return requestFailure(action, err, requestId)
	}

	req, err := s.ledger.RejectDeposit(ctx, requestId, reason, actor.Id)
	if err != nil {
		return requestFailure(action, err, requestId)
	}

	s.notify(ctx, notify.ForRequest(req, nil))
	return &models.RequestResult{ActionResult: success(), Request: req}
}

func requestFailure(action string, err error, requestId string, fields ...zap.Field) *models.RequestResult {
	if requestId != "" {
		fields = append(fields, zap.String("request_id", requestId))
	}
	return &models.RequestResult{ActionResult: failure(action, err, fields...)}
}
