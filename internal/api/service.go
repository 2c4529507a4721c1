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
	"strings"

	"ledger-admin-go/internal/ledger"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

// Notifier queues a user notification after an action has committed.
type Notifier interface {
	Enqueue(ctx context.Context, n *models.Notification) error
}

// AdminService is the single entry surface for the admin console, the
// settlement process and signed-in users. It checks the caller's role,
// validates input and delegates to the ledger.
type AdminService struct {
	ledger   *ledger.Service
	notifier Notifier
}

func NewAdminService(ledgerService *ledger.Service, notifier Notifier) *AdminService {
	return &AdminService{
		ledger:   ledgerService,
		notifier: notifier,
	}
}

func (s *AdminService) HealthCheck(ctx context.Context) error {
	_, err := s.ledger.ListAccounts(ctx, store.AccountFilter{Limit: 1})
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (s *AdminService) requireAdmin(actor models.Actor, action string) error {
	if actor.Id != "" && actor.IsAdmin() {
		return nil
	}
	return s.deny(actor, action, "admin role required")
}

func (s *AdminService) requireService(actor models.Actor, action string) error {
	if actor.Id != "" && (actor.IsService() || actor.IsAdmin()) {
		return nil
	}
	return s.deny(actor, action, "service role required")
}

func (s *AdminService) requireUser(actor models.Actor, action string) error {
	if actor.Id != "" {
		return nil
	}
	return s.deny(actor, action, "authentication required")
}

func (s *AdminService) deny(actor models.Actor, action, reason string) error {
	zap.L().Warn("Unauthorized action rejected",
		zap.String("action", action),
		zap.String("actor_id", actor.Id),
		zap.String("actor_email", actor.Email),
		zap.String("actor_role", string(actor.Role)),
		zap.String("reason", reason))
	return fmt.Errorf("%w: %s", store.ErrUnauthorized, reason)
}

// failure converts an error into a structured result and logs it at the
// level its kind deserves.
func failure(action string, err error, fields ...zap.Field) models.ActionResult {
	kind := store.KindOf(err)
	fields = append(fields, zap.String("action", action), zap.String("kind", string(kind)), zap.Error(err))
	switch kind {
	case models.KindPartialFailure:
		zap.L().Error("Action failed", fields...)
	case models.KindUnauthorized:
		// already logged by deny
	default:
		zap.L().Info("Action rejected", fields...)
	}
	return models.Failure(kind, err.Error())
}

func success() models.ActionResult {
	return models.ActionResult{Success: true}
}

func requireReason(reason string) error {
	if strings.TrimSpace(reason) == "" {
		return fmt.Errorf("%w: reason is required", store.ErrInvalidInput)
	}
	return nil
}

// notify is best-effort: a failed enqueue is logged and never fails the
// action that triggered it.
func (s *AdminService) notify(ctx context.Context, n *models.Notification) {
	if s.notifier == nil || n == nil {
		return
	}
	if err := s.notifier.Enqueue(ctx, n); err != nil {
		zap.L().Warn("Failed to queue notification",
			zap.String("user_id", n.UserId),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
	}
}
