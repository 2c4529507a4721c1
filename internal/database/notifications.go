package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"ledger-admin-go/internal/models"

	"go.uber.org/zap"
)

func (s *Service) InsertNotification(ctx context.Context, n *models.Notification) error {
	payload, err := json.Marshal(n.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode notification payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, queryInsertNotification,
		n.Id, n.UserId, n.Kind, n.Title, n.Message, string(payload), n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *Service) ListPendingNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	rows, err := s.db.QueryContext(ctx, queryListPendingNotifications, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending notifications: %w", err)
	}
	defer closeRows(rows)

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var payload string
		var deliveredAt sql.NullTime
		if err := rows.Scan(&n.Id, &n.UserId, &n.Kind, &n.Title, &n.Message, &payload,
			&n.Status, &n.Attempts, &n.LastError, &n.CreatedAt, &deliveredAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if err := json.Unmarshal([]byte(payload), &n.Payload); err != nil {
			zap.L().Warn("Discarding malformed notification payload", zap.String("notification_id", n.Id), zap.Error(err))
		}
		if deliveredAt.Valid {
			t := deliveredAt.Time
			n.DeliveredAt = &t
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

func (s *Service) MarkNotificationDelivered(ctx context.Context, id string, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, queryMarkNotificationDelivered, at.UTC(), id); err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	return nil
}

func (s *Service) MarkNotificationFailed(ctx context.Context, id string, lastError string, maxAttempts int) error {
	if _, err := s.db.ExecContext(ctx, queryMarkNotificationFailed, lastError, maxAttempts, id); err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}
