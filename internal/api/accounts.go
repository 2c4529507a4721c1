package api

import (
	"context"
	"errors"
	"fmt"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/notify"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

// ProvisionSelf creates the caller's account on first sign-in and returns
// the existing one afterwards.
func (s *AdminService) ProvisionSelf(ctx context.Context, actor models.Actor, displayName string) *models.AccountResult {
	const action = "provision account"
	if err := s.requireUser(actor, action); err != nil {
		return accountFailure(action, err, actor.Id)
	}

	account, err := s.ledger.ProvisionAccount(ctx, actor.Id, actor.Email, displayName)
	if errors.Is(err, store.ErrDuplicateAccount) {
		if existing, getErr := s.ledger.GetAccount(ctx, actor.Id); getErr == nil {
			return &models.AccountResult{ActionResult: success(), Account: existing}
		}
	}
	if err != nil {
		return accountFailure(action, err, actor.Id)
	}
	return &models.AccountResult{ActionResult: success(), Account: account}
}

// SetTradeOutcome forces the resolution of a user's trades. The settlement
// process reads the flag; nothing here touches balances.
func (s *AdminService) SetTradeOutcome(ctx context.Context, actor models.Actor, userId string, mode models.OutcomeMode, scope models.OutcomeScope, reason string) *models.OverrideResult {
	const action = "set trade outcome"
	if err := s.requireAdmin(actor, action); err != nil {
		return &models.OverrideResult{ActionResult: failure(action, err, zap.String("user_id", userId))}
	}
	if err := requireReason(reason); err != nil {
		return &models.OverrideResult{ActionResult: failure(action, err, zap.String("user_id", userId))}
	}

	entry, err := s.ledger.SetTradeOutcome(ctx, userId, mode, scope, reason, actor.Id)
	if err != nil {
		return &models.OverrideResult{ActionResult: failure(action, err,
			zap.String("user_id", userId),
			zap.String("mode", string(mode)))}
	}
	return &models.OverrideResult{ActionResult: success(), Log: entry}
}

// GetTradeOutcome is called by the settlement process when closing a trade
func (s *AdminService) GetTradeOutcome(ctx context.Context, actor models.Actor, userId string) (*models.TradeOutcome, error) {
	if err := s.requireService(actor, "get trade outcome"); err != nil {
		return nil, err
	}
	return s.ledger.GetTradeOutcome(ctx, userId)
}

func (s *AdminService) GetTradeOutcomeLogs(ctx context.Context, actor models.Actor, userId string, limit int) ([]models.TradeOutcomeLog, error) {
	if err := s.requireAdmin(actor, "trade outcome logs"); err != nil {
		return nil, err
	}
	return s.ledger.GetTradeOutcomeLogs(ctx, userId, limit)
}

func (s *AdminService) SetKYCStatus(ctx context.Context, actor models.Actor, userId string, status models.KYCStatus, reason string) *models.AccountResult {
	const action = "set kyc status"
	if err := s.requireAdmin(actor, action); err != nil {
		return accountFailure(action, err, userId)
	}
	if err := requireReason(reason); err != nil {
		return accountFailure(action, err, userId)
	}

	account, err := s.ledger.SetKYCStatus(ctx, userId, status, reason, actor.Id)
	if err != nil {
		return accountFailure(action, err, userId)
	}

	s.notify(ctx, notify.ForAccount(account, models.NotifyKYCStatus, reason))
	return &models.AccountResult{ActionResult: success(), Account: account}
}

func (s *AdminService) SetAccountStatus(ctx context.Context, actor models.Actor, userId string, status models.AccountStatus, reason string) *models.AccountResult {
	const action = "set account status"
	if err := s.requireAdmin(actor, action); err != nil {
		return accountFailure(action, err, userId)
	}
	if err := requireReason(reason); err != nil {
		return accountFailure(action, err, userId)
	}
	if actor.Id == userId {
		return accountFailure(action, fmt.Errorf("%w: admins cannot change their own account status", store.ErrInvalidInput), userId)
	}

	account, err := s.ledger.SetAccountStatus(ctx, userId, status, reason, actor.Id)
	if err != nil {
		return accountFailure(action, err, userId)
	}

	s.notify(ctx, notify.ForAccount(account, models.NotifyAccountStatus, reason))
	return &models.AccountResult{ActionResult: success(), Account: account}
}

func (s *AdminService) ListAccounts(ctx context.Context, actor models.Actor, filter store.AccountFilter) ([]models.Account, error) {
	if err := s.requireAdmin(actor, "list accounts"); err != nil {
		return nil, err
	}
	return s.ledger.ListAccounts(ctx, filter)
}

func (s *AdminService) GetAccount(ctx context.Context, actor models.Actor, userId string) (*models.Account, error) {
	if err := s.requireAdmin(actor, "get account"); err != nil {
		return nil, err
	}
	return s.ledger.GetAccount(ctx, userId)
}

func (s *AdminService) GetAuditLog(ctx context.Context, actor models.Actor, userId string, limit int) ([]models.AuditEntry, error) {
	if err := s.requireAdmin(actor, "audit log"); err != nil {
		return nil, err
	}
	return s.ledger.GetAuditLog(ctx, userId, limit)
}

// Me returns the caller's own account
func (s *AdminService) Me(ctx context.Context, actor models.Actor) (*models.Account, error) {
	if err := s.requireUser(actor, "me"); err != nil {
		return nil, err
	}
	return s.ledger.GetAccount(ctx, actor.Id)
}

func accountFailure(action string, err error, userId string) *models.AccountResult {
	return &models.AccountResult{ActionResult: failure(action, err, zap.String("user_id", userId))}
}
