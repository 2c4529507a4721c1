package database

import (
	"context"
	"fmt"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

// GetAdjustmentHistory returns a user's adjustments, newest first. An empty
// asset returns every asset.
func (s *Service) GetAdjustmentHistory(ctx context.Context, userId, asset string, limit, offset int) ([]models.Adjustment, error) {
	zap.L().Debug("Getting adjustment history",
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetAdjustmentHistory, userId, asset, asset, normalizeLimit(limit), offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get adjustment history: %w", err)
	}
	defer closeRows(rows)

	var adjustments []models.Adjustment
	for rows.Next() {
		adj, err := scanAdjustment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		adjustments = append(adjustments, *adj)
	}

	// Check for errors during iteration
	if err := rows.Err(); err != nil {
		zap.L().Error("Error during adjustment row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating adjustment rows: %w", err)
	}
	return adjustments, nil
}

func (s *Service) GetFundsRequest(ctx context.Context, id string) (*models.FundsRequest, error) {
	return getFundsRequest(ctx, s.db, id)
}

func (s *Service) ListFundsRequests(ctx context.Context, filter store.RequestFilter) ([]models.FundsRequest, error) {
	rows, err := s.db.QueryContext(ctx, queryListFundsRequests,
		filter.Type, filter.Type, filter.Status, filter.Status, filter.UserId, filter.UserId,
		normalizeLimit(filter.Limit), filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds requests: %w", err)
	}
	defer closeRows(rows)

	var requests []models.FundsRequest
	for rows.Next() {
		req, err := scanFundsRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan funds request: %w", err)
		}
		requests = append(requests, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating funds request rows: %w", err)
	}
	return requests, nil
}

func (s *Service) GetTradeOutcomeLogs(ctx context.Context, userId string, limit int) ([]models.TradeOutcomeLog, error) {
	rows, err := s.db.QueryContext(ctx, queryGetTradeOutcomeLogs, userId, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get trade outcome logs: %w", err)
	}
	defer closeRows(rows)

	var logs []models.TradeOutcomeLog
	for rows.Next() {
		var l models.TradeOutcomeLog
		if err := rows.Scan(&l.Id, &l.AdminId, &l.UserId, &l.PreviousMode, &l.NewMode,
			&l.PreviousScope, &l.Scope, &l.Reason, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan trade outcome log: %w", err)
		}
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade outcome log rows: %w", err)
	}
	return logs, nil
}

func (s *Service) GetAuditLog(ctx context.Context, userId string, limit int) ([]models.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx, queryGetAuditLog, userId, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log: %w", err)
	}
	defer closeRows(rows)

	var entries []models.AuditEntry
	for rows.Next() {
		var e models.AuditEntry
		if err := rows.Scan(&e.Id, &e.ActorId, &e.UserId, &e.Action, &e.PreviousValue,
			&e.NewValue, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}
	return entries, nil
}
