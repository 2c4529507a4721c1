package postgres

import (
	"context"
	"fmt"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// txStore implements store.Tx with row-level locks.
type txStore struct {
	tx pgx.Tx
}

var _ store.Tx = (*txStore)(nil)

func (t *txStore) GetAccountForUpdate(ctx context.Context, userId string) (*models.Account, error) {
	return getAccount(ctx, t.tx, queryGetAccountForUpdate, userId)
}

func (t *txStore) UpdateTradeOutcome(ctx context.Context, userId string, mode models.OutcomeMode, scope models.OutcomeScope) error {
	return t.updateAccount(ctx, queryUpdateTradeOutcome, userId, string(mode), string(scope), userId)
}

func (t *txStore) UpdateKYCStatus(ctx context.Context, userId string, status models.KYCStatus) error {
	return t.updateAccount(ctx, queryUpdateKYCStatus, userId, string(status), userId)
}

func (t *txStore) UpdateAccountStatus(ctx context.Context, userId string, status models.AccountStatus) error {
	return t.updateAccount(ctx, queryUpdateAccountStatus, userId, string(status), userId)
}

func (t *txStore) updateAccount(ctx context.Context, query, userId string, args ...any) error {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, userId)
	}
	return nil
}

func (t *txStore) GetBalanceForUpdate(ctx context.Context, userId, asset string) (*models.AccountBalance, error) {
	if _, err := t.tx.Exec(ctx, queryEnsureBalance, uuid.New().String(), userId, asset); err != nil {
		return nil, fmt.Errorf("failed to create account balance: %w", err)
	}

	balance, err := scanBalance(t.tx.QueryRow(ctx, queryGetBalanceForUpdate, userId, asset))
	if err != nil {
		return nil, fmt.Errorf("failed to lock balance: %w", err)
	}
	return balance, nil
}

func (t *txStore) UpdateBalance(ctx context.Context, balanceId string, newBalance decimal.Decimal, adjustmentId string, expectedVersion int64) error {
	tag, err := t.tx.Exec(ctx, queryUpdateBalance, newBalance.String(), adjustmentId, balanceId, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}
	return nil
}

func (t *txStore) InsertAdjustment(ctx context.Context, adj *models.Adjustment) error {
	_, err := t.tx.Exec(ctx, queryInsertAdjustment,
		adj.Id, adj.ActorId, adj.UserId, adj.Asset, string(adj.Type),
		adj.SignedAmount.String(), adj.AppliedAmount.String(), adj.Reason,
		adj.PreviousBalance.String(), adj.NewBalance.String(),
		adj.RelatedId, adj.RelatedType, adj.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert adjustment: %w", err)
	}
	return nil
}

func (t *txStore) InsertFundsRequest(ctx context.Context, req *models.FundsRequest) error {
	_, err := t.tx.Exec(ctx, queryInsertFundsRequest,
		req.Id, string(req.Type), req.UserId, req.Asset, req.Amount.String(), string(req.Status),
		req.DestinationAddress, req.TxHash, req.HoldAdjustmentId, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert funds request: %w", err)
	}
	return nil
}

func (t *txStore) GetFundsRequestForUpdate(ctx context.Context, id string) (*models.FundsRequest, error) {
	return getFundsRequest(ctx, t.tx, queryGetFundsRequestForUpdate, id)
}

func (t *txStore) TransitionFundsRequest(ctx context.Context, params store.TransitionParams) error {
	tag, err := t.tx.Exec(ctx, queryTransitionFundsRequest,
		string(params.Status), params.ProcessedBy, params.ProcessedAt, params.AdminNotes, params.TxHash, params.RequestId)
	if err != nil {
		return fmt.Errorf("failed to transition funds request: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", store.ErrAlreadyProcessed, params.RequestId)
	}
	return nil
}

func (t *txStore) InsertTradeOutcomeLog(ctx context.Context, log *models.TradeOutcomeLog) error {
	_, err := t.tx.Exec(ctx, queryInsertTradeOutcomeLog,
		log.Id, log.AdminId, log.UserId, string(log.PreviousMode), string(log.NewMode),
		string(log.PreviousScope), string(log.Scope), log.Reason, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade outcome log: %w", err)
	}
	return nil
}

func (t *txStore) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	_, err := t.tx.Exec(ctx, queryInsertAuditEntry,
		entry.Id, entry.ActorId, entry.UserId, entry.Action, entry.PreviousValue, entry.NewValue, entry.Reason, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}
