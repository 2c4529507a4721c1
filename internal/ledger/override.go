package ledger

import (
	"context"
	"strings"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SetTradeOutcome updates the user's override flag and appends a
// TradeOutcomeLog carrying the previous mode, both in one transaction.
// Any mode may follow any other mode, including itself.
func (s *Service) SetTradeOutcome(ctx context.Context, userId string, mode models.OutcomeMode, scope models.OutcomeScope, reason, actorId string) (*models.TradeOutcomeLog, error) {
	if strings.TrimSpace(userId) == "" {
		return nil, invalid("user id is required")
	}
	if strings.TrimSpace(actorId) == "" {
		return nil, invalid("actor id is required")
	}
	if !mode.Valid() {
		return nil, invalid("unknown trade outcome mode %q", mode)
	}
	if scope == "" {
		scope = models.ScopeNewTrades
	}
	if !scope.Valid() {
		return nil, invalid("unknown trade outcome scope %q", scope)
	}

	var entry *models.TradeOutcomeLog
	err := s.inTx(ctx, "set trade outcome", func(tx store.Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, userId)
		if err != nil {
			return err
		}
		if err := tx.UpdateTradeOutcome(ctx, userId, mode, scope); err != nil {
			return err
		}
		entry = &models.TradeOutcomeLog{
			Id:            uuid.New().String(),
			AdminId:       actorId,
			UserId:        userId,
			PreviousMode:  account.TradeOutcomeMode,
			NewMode:       mode,
			PreviousScope: account.TradeOutcomeScope,
			Scope:         scope,
			Reason:        reason,
			CreatedAt:     time.Now().UTC(),
		}
		return tx.InsertTradeOutcomeLog(ctx, entry)
	})
	if err != nil {
		zap.L().Warn("Failed to set trade outcome",
			zap.String("user_id", userId),
			zap.String("mode", string(mode)),
			zap.Error(err))
		return nil, err
	}

	zap.L().Info("Trade outcome updated",
		zap.String("user_id", userId),
		zap.String("previous_mode", string(entry.PreviousMode)),
		zap.String("new_mode", string(mode)),
		zap.String("scope", string(scope)),
		zap.String("admin_id", actorId))
	return entry, nil
}

// GetTradeOutcome is read by the settlement process when it closes a trade.
func (s *Service) GetTradeOutcome(ctx context.Context, userId string) (*models.TradeOutcome, error) {
	account, err := s.store.GetAccount(ctx, userId)
	if err != nil {
		return nil, err
	}
	return &models.TradeOutcome{
		UserId: account.UserId,
		Mode:   account.TradeOutcomeMode,
		Scope:  account.TradeOutcomeScope,
	}, nil
}

func (s *Service) GetTradeOutcomeLogs(ctx context.Context, userId string, limit int) ([]models.TradeOutcomeLog, error) {
	if _, err := s.store.GetAccount(ctx, userId); err != nil {
		return nil, err
	}
	return s.store.GetTradeOutcomeLogs(ctx, userId, limit)
}
