package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// txStore implements store.Tx on top of one BEGIN IMMEDIATE transaction.
// SQLite has no row locks; the immediate write lock covers the whole Tx.
type txStore struct {
	tx *sql.Tx
}

var _ store.Tx = (*txStore)(nil)

func (t *txStore) GetAccountForUpdate(ctx context.Context, userId string) (*models.Account, error) {
	return getAccount(ctx, t.tx, userId)
}

func (t *txStore) UpdateTradeOutcome(ctx context.Context, userId string, mode models.OutcomeMode, scope models.OutcomeScope) error {
	return updateAccount(ctx, t.tx, queryUpdateTradeOutcome, userId, mode, scope, now(), userId)
}

func (t *txStore) UpdateKYCStatus(ctx context.Context, userId string, status models.KYCStatus) error {
	return updateAccount(ctx, t.tx, queryUpdateKYCStatus, userId, status, now(), userId)
}

func (t *txStore) UpdateAccountStatus(ctx context.Context, userId string, status models.AccountStatus) error {
	return updateAccount(ctx, t.tx, queryUpdateAccountStatus, userId, status, now(), userId)
}

func (t *txStore) GetBalanceForUpdate(ctx context.Context, userId, asset string) (*models.AccountBalance, error) {
	if _, err := t.tx.ExecContext(ctx, queryEnsureBalance, uuid.New().String(), userId, asset, now()); err != nil {
		return nil, fmt.Errorf("failed to create account balance: %w", classifyBusy(err))
	}

	balance, err := scanBalance(t.tx.QueryRowContext(ctx, queryGetBalanceRow, userId, asset))
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}
	return balance, nil
}

func (t *txStore) UpdateBalance(ctx context.Context, balanceId string, newBalance decimal.Decimal, adjustmentId string, expectedVersion int64) error {
	result, err := t.tx.ExecContext(ctx, queryUpdateBalance, newBalance.String(), adjustmentId, now(), balanceId, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", classifyBusy(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}
	return nil
}

func (t *txStore) InsertAdjustment(ctx context.Context, adj *models.Adjustment) error {
	_, err := t.tx.ExecContext(ctx, queryInsertAdjustment,
		adj.Id, adj.ActorId, adj.UserId, adj.Asset, adj.Type,
		adj.SignedAmount.String(), adj.AppliedAmount.String(), adj.Reason,
		adj.PreviousBalance.String(), adj.NewBalance.String(),
		adj.RelatedId, adj.RelatedType, adj.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert adjustment: %w", classifyBusy(err))
	}
	return nil
}

func (t *txStore) InsertFundsRequest(ctx context.Context, req *models.FundsRequest) error {
	_, err := t.tx.ExecContext(ctx, queryInsertFundsRequest,
		req.Id, req.Type, req.UserId, req.Asset, req.Amount.String(), req.Status,
		req.DestinationAddress, req.TxHash, req.HoldAdjustmentId, req.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert funds request: %w", classifyBusy(err))
	}
	return nil
}

func (t *txStore) GetFundsRequestForUpdate(ctx context.Context, id string) (*models.FundsRequest, error) {
	return getFundsRequest(ctx, t.tx, id)
}

func (t *txStore) TransitionFundsRequest(ctx context.Context, params store.TransitionParams) error {
	result, err := t.tx.ExecContext(ctx, queryTransitionFundsRequest,
		params.Status, params.ProcessedBy, params.ProcessedAt, params.AdminNotes, params.TxHash, params.RequestId)
	if err != nil {
		return fmt.Errorf("failed to transition funds request: %w", classifyBusy(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrAlreadyProcessed, params.RequestId)
	}
	return nil
}

func (t *txStore) InsertTradeOutcomeLog(ctx context.Context, log *models.TradeOutcomeLog) error {
	_, err := t.tx.ExecContext(ctx, queryInsertTradeOutcomeLog,
		log.Id, log.AdminId, log.UserId, log.PreviousMode, log.NewMode, log.PreviousScope, log.Scope, log.Reason, log.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trade outcome log: %w", classifyBusy(err))
	}
	return nil
}

func (t *txStore) InsertAuditEntry(ctx context.Context, entry *models.AuditEntry) error {
	_, err := t.tx.ExecContext(ctx, queryInsertAuditEntry,
		entry.Id, entry.ActorId, entry.UserId, entry.Action, entry.PreviousValue, entry.NewValue, entry.Reason, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", classifyBusy(err))
	}
	return nil
}

func getFundsRequest(ctx context.Context, q querier, id string) (*models.FundsRequest, error) {
	req, err := scanFundsRequest(q.QueryRowContext(ctx, queryGetFundsRequest, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrRequestNotFound, id)
		}
		return nil, fmt.Errorf("unable to query funds request: %w", err)
	}
	return req, nil
}
