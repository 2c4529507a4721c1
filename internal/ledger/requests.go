package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateDepositRequest queues a pending deposit. Nothing is credited until
// an admin approves it.
func (s *Service) CreateDepositRequest(ctx context.Context, userId, asset string, amount decimal.Decimal) (*models.FundsRequest, error) {
	asset, amount, err := s.normalizeRequest(userId, asset, amount)
	if err != nil {
		return nil, err
	}

	req := &models.FundsRequest{
		Id:        uuid.New().String(),
		Type:      models.RequestDeposit,
		UserId:    userId,
		Asset:     asset,
		Amount:    amount,
		Status:    models.RequestPending,
		CreatedAt: time.Now().UTC(),
	}

	err = s.inTx(ctx, "create deposit request", func(tx store.Tx) error {
		if _, err := tx.GetAccountForUpdate(ctx, userId); err != nil {
			return err
		}
		return tx.InsertFundsRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	zap.L().Info("Deposit request created",
		zap.String("request_id", req.Id),
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.String("amount", amount.String()))
	return req, nil
}

// CreateWithdrawalRequest queues a pending withdrawal and holds the funds in
// the same transaction. The hold never clamps: a withdrawal larger than the
// balance fails with ErrInsufficientFunds.
func (s *Service) CreateWithdrawalRequest(ctx context.Context, userId, asset string, amount decimal.Decimal, destination string) (*models.FundsRequest, *models.Adjustment, error) {
	asset, amount, err := s.normalizeRequest(userId, asset, amount)
	if err != nil {
		return nil, nil, err
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, nil, invalid("destination address is required")
	}

	req := &models.FundsRequest{
		Id:                 uuid.New().String(),
		Type:               models.RequestWithdrawal,
		UserId:             userId,
		Asset:              asset,
		Amount:             amount,
		Status:             models.RequestPending,
		DestinationAddress: destination,
		CreatedAt:          time.Now().UTC(),
	}

	var hold *models.Adjustment
	err = s.inTx(ctx, "create withdrawal request", func(tx store.Tx) error {
		account, err := tx.GetAccountForUpdate(ctx, userId)
		if err != nil {
			return err
		}
		if account.AccountStatus != models.AccountActive {
			return invalid("account is %s", account.AccountStatus)
		}

		hold, err = s.applyAdjustment(ctx, tx, AdjustParams{
			UserId:       userId,
			Asset:        asset,
			SignedAmount: amount.Neg(),
			Reason:       "withdrawal requested",
			ActorId:      userId,
			Type:         models.AdjustmentWithdrawalHold,
			RelatedId:    req.Id,
			RelatedType:  string(models.RequestWithdrawal),
			Policy:       models.DebitStrict,
		})
		if err != nil {
			return err
		}
		req.HoldAdjustmentId = hold.Id
		return tx.InsertFundsRequest(ctx, req)
	})
	if err != nil {
		return nil, nil, err
	}

	zap.L().Info("Withdrawal request created with hold",
		zap.String("request_id", req.Id),
		zap.String("user_id", userId),
		zap.String("asset", asset),
		zap.String("amount", amount.String()),
		zap.String("new_balance", hold.NewBalance.String()))
	return req, hold, nil
}

// ApproveDeposit moves a pending deposit to approved and credits the amount.
func (s *Service) ApproveDeposit(ctx context.Context, id, notes, actorId string) (*models.FundsRequest, *models.Adjustment, error) {
	return s.transition(ctx, transition{
		id:          id,
		requestType: models.RequestDeposit,
		status:      models.RequestApproved,
		actorId:     actorId,
		notes:       notes,
		effect: func(req *models.FundsRequest) *AdjustParams {
			return &AdjustParams{
				SignedAmount: req.Amount,
				Reason:       joinReason("deposit approved", notes),
				Type:         models.AdjustmentDeposit,
			}
		},
	})
}

// RejectDeposit moves a pending deposit to rejected. No ledger effect.
func (s *Service) RejectDeposit(ctx context.Context, id, reason, actorId string) (*models.FundsRequest, error) {
	req, _, err := s.transition(ctx, transition{
		id:          id,
		requestType: models.RequestDeposit,
		status:      models.RequestRejected,
		actorId:     actorId,
		notes:       reason,
	})
	return req, err
}

// ApproveWithdrawal finalizes a pending withdrawal and records the on-chain
// transaction hash. The funds were held when the request was created.
func (s *Service) ApproveWithdrawal(ctx context.Context, id, txHash, actorId string) (*models.FundsRequest, error) {
	txHash = strings.TrimSpace(txHash)
	if txHash == "" {
		return nil, invalid("transaction hash is required")
	}
	req, _, err := s.transition(ctx, transition{
		id:          id,
		requestType: models.RequestWithdrawal,
		status:      models.RequestApproved,
		actorId:     actorId,
		txHash:      txHash,
	})
	return req, err
}

// RejectWithdrawal moves a pending withdrawal to rejected and refunds the
// held amount with one compensating adjustment.
func (s *Service) RejectWithdrawal(ctx context.Context, id, reason, actorId string) (*models.FundsRequest, *models.Adjustment, error) {
	return s.transition(ctx, transition{
		id:          id,
		requestType: models.RequestWithdrawal,
		status:      models.RequestRejected,
		actorId:     actorId,
		notes:       reason,
		effect: func(req *models.FundsRequest) *AdjustParams {
			if req.HoldAdjustmentId == "" {
				// nothing was held, so nothing to refund
				return nil
			}
			return &AdjustParams{
				SignedAmount: req.Amount,
				Reason:       joinReason("withdrawal rejected", reason),
				Type:         models.AdjustmentWithdrawalRefund,
			}
		},
	})
}

func (s *Service) GetRequest(ctx context.Context, id string) (*models.FundsRequest, error) {
	return s.store.GetFundsRequest(ctx, id)
}

func (s *Service) ListRequests(ctx context.Context, filter store.RequestFilter) ([]models.FundsRequest, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, invalid("unknown request type %q", filter.Type)
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown request status %q", filter.Status)
	}
	return s.store.ListFundsRequests(ctx, filter)
}

type transition struct {
	id          string
	requestType models.RequestType
	status      models.RequestStatus
	actorId     string
	notes       string
	txHash      string
	// effect returns the ledger change for the request, or nil for none.
	effect func(req *models.FundsRequest) *AdjustParams
}

// transition flips a pending request to a terminal status and applies its
// ledger effect in the same transaction. A request that is no longer pending
// yields ErrAlreadyProcessed and writes nothing.
func (s *Service) transition(ctx context.Context, t transition) (*models.FundsRequest, *models.Adjustment, error) {
	if strings.TrimSpace(t.id) == "" {
		return nil, nil, invalid("request id is required")
	}
	if strings.TrimSpace(t.actorId) == "" {
		return nil, nil, invalid("actor id is required")
	}

	op := fmt.Sprintf("%s %s", t.status, t.requestType)
	var req *models.FundsRequest
	var adj *models.Adjustment
	err := s.inTx(ctx, op, func(tx store.Tx) error {
		current, err := tx.GetFundsRequestForUpdate(ctx, t.id)
		if err != nil {
			return err
		}
		if current.Type != t.requestType {
			return invalid("request %s is a %s, not a %s", t.id, current.Type, t.requestType)
		}
		if current.Status != models.RequestPending {
			return fmt.Errorf("%w: request %s is %s", store.ErrAlreadyProcessed, t.id, current.Status)
		}

		processedAt := time.Now().UTC()
		err = tx.TransitionFundsRequest(ctx, store.TransitionParams{
			RequestId:   current.Id,
			Status:      t.status,
			ProcessedBy: t.actorId,
			ProcessedAt: processedAt,
			AdminNotes:  t.notes,
			TxHash:      t.txHash,
		})
		if err != nil {
			return err
		}

		adj = nil
		if t.effect != nil {
			if params := t.effect(current); params != nil {
				if _, err := tx.GetAccountForUpdate(ctx, current.UserId); err != nil {
					return err
				}
				params.UserId = current.UserId
				params.Asset = current.Asset
				params.ActorId = t.actorId
				params.RelatedId = current.Id
				params.RelatedType = string(current.Type)
				params.Policy = models.DebitStrict
				if adj, err = s.applyAdjustment(ctx, tx, *params); err != nil {
					return err
				}
			}
		}

		current.Status = t.status
		current.ProcessedAt = &processedAt
		current.ProcessedBy = t.actorId
		current.AdminNotes = t.notes
		current.TxHash = t.txHash
		req = current
		return nil
	})
	if err != nil {
		zap.L().Warn("Request transition failed",
			zap.String("request_id", t.id),
			zap.String("target_status", string(t.status)),
			zap.String("actor_id", t.actorId),
			zap.Error(err))
		return nil, nil, err
	}

	fields := []zap.Field{
		zap.String("request_id", req.Id),
		zap.String("type", string(req.Type)),
		zap.String("status", string(req.Status)),
		zap.String("user_id", req.UserId),
		zap.String("actor_id", t.actorId),
	}
	if adj != nil {
		fields = append(fields, zap.String("adjustment_id", adj.Id), zap.String("new_balance", adj.NewBalance.String()))
	}
	zap.L().Info("Request processed", fields...)
	return req, adj, nil
}

func (s *Service) normalizeRequest(userId, asset string, amount decimal.Decimal) (string, decimal.Decimal, error) {
	if strings.TrimSpace(userId) == "" {
		return "", decimal.Zero, invalid("user id is required")
	}
	if !amount.IsPositive() {
		return "", decimal.Zero, invalid("amount must be positive")
	}
	symbol, amount, err := s.assets.Normalize(asset, amount)
	if err != nil {
		return "", decimal.Zero, invalid("%v", err)
	}
	return symbol, amount, nil
}

func joinReason(prefix, detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return prefix
	}
	return prefix + ": " + detail
}
