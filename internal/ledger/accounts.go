package ledger

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	auditActionKYC    = "kyc_status"
	auditActionStatus = "account_status"
)

// ProvisionAccount creates the account row for a user on first sign-in.
// A second call for the same user or email yields ErrDuplicateAccount.
func (s *Service) ProvisionAccount(ctx context.Context, userId, email, displayName string) (*models.Account, error) {
	userId = strings.TrimSpace(userId)
	if userId == "" {
		return nil, invalid("user id is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, invalid("invalid email %q", email)
	}

	account, err := s.store.CreateAccount(ctx, store.CreateAccountParams{
		UserId:      userId,
		Email:       addr.Address,
		DisplayName: strings.TrimSpace(displayName),
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Account provisioned",
		zap.String("user_id", account.UserId),
		zap.String("email", account.Email))
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, userId string) (*models.Account, error) {
	return s.store.GetAccount(ctx, userId)
}

func (s *Service) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.store.GetAccountByEmail(ctx, email)
}

func (s *Service) ListAccounts(ctx context.Context, filter store.AccountFilter) ([]models.Account, error) {
	if filter.KYCStatus != "" && !filter.KYCStatus.Valid() {
		return nil, invalid("unknown kyc status %q", filter.KYCStatus)
	}
	if filter.AccountStatus != "" && !filter.AccountStatus.Valid() {
		return nil, invalid("unknown account status %q", filter.AccountStatus)
	}
	return s.store.ListAccounts(ctx, filter)
}

// SetKYCStatus changes the KYC status and writes an audit entry in the same
// transaction.
func (s *Service) SetKYCStatus(ctx context.Context, userId string, status models.KYCStatus, reason, actorId string) (*models.Account, error) {
	if !status.Valid() {
		return nil, invalid("unknown kyc status %q", status)
	}
	return s.updateAccount(ctx, userId, actorId, reason, auditActionKYC, string(status),
		func(a *models.Account) string { return string(a.KYCStatus) },
		func(tx store.Tx, a *models.Account) error {
			a.KYCStatus = status
			return tx.UpdateKYCStatus(ctx, userId, status)
		})
}

// SetAccountStatus changes the account status and writes an audit entry in
// the same transaction. Suspended and banned accounts cannot request
// withdrawals.
func (s *Service) SetAccountStatus(ctx context.Context, userId string, status models.AccountStatus, reason, actorId string) (*models.Account, error) {
	if !status.Valid() {
		return nil, invalid("unknown account status %q", status)
	}
	return s.updateAccount(ctx, userId, actorId, reason, auditActionStatus, string(status),
		func(a *models.Account) string { return string(a.AccountStatus) },
		func(tx store.Tx, a *models.Account) error {
			a.AccountStatus = status
			return tx.UpdateAccountStatus(ctx, userId, status)
		})
}

func (s *Service) GetAuditLog(ctx context.Context, userId string, limit int) ([]models.AuditEntry, error) {
	if _, err := s.store.GetAccount(ctx, userId); err != nil {
		return nil, err
	}
	return s.store.GetAuditLog(ctx, userId, limit)
}

func (s *Service) updateAccount(
	ctx context.Context,
	userId, actorId, reason, action, newValue string,
	current func(a *models.Account) string,
	apply func(tx store.Tx, a *models.Account) error,
) (*models.Account, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, invalid("user id is required")
	}
	if strings.TrimSpace(actorId) == "" {
		return nil, invalid("actor id is required")
	}

	var account *models.Account
	var previous string
	err := s.inTx(ctx, "set "+action, func(tx store.Tx) error {
		a, err := tx.GetAccountForUpdate(ctx, userId)
		if err != nil {
			return err
		}
		previous = current(a)
		if err := apply(tx, a); err != nil {
			return err
		}
		now := time.Now().UTC()
		a.UpdatedAt = now
		account = a
		return tx.InsertAuditEntry(ctx, &models.AuditEntry{
			Id:            uuid.New().String(),
			ActorId:       actorId,
			UserId:        userId,
			Action:        action,
			PreviousValue: previous,
			NewValue:      newValue,
			Reason:        reason,
			CreatedAt:     now,
		})
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Account updated",
		zap.String("user_id", userId),
		zap.String("action", action),
		zap.String("previous", previous),
		zap.String("new", newValue),
		zap.String("actor_id", actorId))
	return account, nil
}
