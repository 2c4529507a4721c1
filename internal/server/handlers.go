package server

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"ledger-admin-go/internal/api"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type handlers struct {
	admin *api.AdminService
}

type amountBody struct {
	Asset  string          `json:"asset" binding:"required"`
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason"`
}

type settlementBody struct {
	UserId  string          `json:"user_id" binding:"required"`
	Asset   string          `json:"asset" binding:"required"`
	Amount  decimal.Decimal `json:"amount"`
	Reason  string          `json:"reason"`
	TradeId string          `json:"trade_id"`
}

type withdrawalBody struct {
	Asset       string          `json:"asset" binding:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Destination string          `json:"destination_address"`
}

type decisionBody struct {
	Notes  string `json:"notes"`
	Reason string `json:"reason"`
	TxHash string `json:"tx_hash"`
}

type statusBody struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

type outcomeBody struct {
	Mode   string `json:"mode" binding:"required"`
	Scope  string `json:"scope"`
	Reason string `json:"reason"`
}

type provisionBody struct {
	DisplayName string `json:"display_name"`
}

func (h *handlers) health(c *gin.Context) {
	if err := h.admin.HealthCheck(c.Request.Context()); err != nil {
		respondError(c, models.KindPartialFailure, "unhealthy")
		return
	}
	respondOK(c, "healthy", nil)
}

// --- self-service ---

func (h *handlers) provisionSelf(c *gin.Context) {
	var body provisionBody
	if err := bindOptionalJSON(c, &body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.ProvisionSelf(c.Request.Context(), mustActor(c), body.DisplayName)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) me(c *gin.Context) {
	account, err := h.admin.Me(c.Request.Context(), mustActor(c))
	respondRead(c, account, err)
}

func (h *handlers) myBalances(c *gin.Context) {
	balances, err := h.admin.MyBalances(c.Request.Context(), mustActor(c))
	respondRead(c, balances, err)
}

func (h *handlers) myRequests(c *gin.Context) {
	filter, err := requestFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	requests, err := h.admin.MyRequests(c.Request.Context(), mustActor(c), filter)
	respondRead(c, requests, err)
}

func (h *handlers) requestDeposit(c *gin.Context) {
	var body amountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.RequestDeposit(c.Request.Context(), mustActor(c), body.Asset, body.Amount)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) requestWithdrawal(c *gin.Context) {
	var body withdrawalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.RequestWithdrawal(c.Request.Context(), mustActor(c), body.Asset, body.Amount, body.Destination)
	respondAction(c, result.ActionResult, result)
}

// --- admin: balances ---

func (h *handlers) addFunds(c *gin.Context) {
	var body amountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.AddFunds(c.Request.Context(), mustActor(c), c.Param("userId"), body.Asset, body.Amount, body.Reason)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) removeFunds(c *gin.Context) {
	var body amountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.RemoveFunds(c.Request.Context(), mustActor(c), c.Param("userId"), body.Asset, body.Amount, body.Reason)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) adjustBalance(c *gin.Context) {
	var body amountBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.AdjustBalance(c.Request.Context(), mustActor(c), c.Param("userId"), body.Asset, body.Amount, body.Reason)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) userBalances(c *gin.Context) {
	balances, err := h.admin.GetUserBalances(c.Request.Context(), mustActor(c), c.Param("userId"))
	respondRead(c, balances, err)
}

func (h *handlers) adjustmentHistory(c *gin.Context) {
	limit, offset, err := paging(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	history, err := h.admin.GetAdjustmentHistory(c.Request.Context(), mustActor(c), c.Param("userId"), c.Query("asset"), limit, offset)
	respondRead(c, history, err)
}

func (h *handlers) reconcile(c *gin.Context) {
	result, err := h.admin.ReconcileBalance(c.Request.Context(), mustActor(c), c.Param("userId"), c.Param("asset"))
	respondRead(c, result, err)
}

func (h *handlers) stats(c *gin.Context) {
	stats, err := h.admin.GetPlatformStats(c.Request.Context(), mustActor(c))
	respondRead(c, stats, err)
}

// --- admin: accounts ---

func (h *handlers) listAccounts(c *gin.Context) {
	limit, offset, err := paging(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	accounts, err := h.admin.ListAccounts(c.Request.Context(), mustActor(c), store.AccountFilter{
		KYCStatus:     models.KYCStatus(c.Query("kyc_status")),
		AccountStatus: models.AccountStatus(c.Query("account_status")),
		Limit:         limit,
		Offset:        offset,
	})
	respondRead(c, accounts, err)
}

func (h *handlers) getAccount(c *gin.Context) {
	account, err := h.admin.GetAccount(c.Request.Context(), mustActor(c), c.Param("userId"))
	respondRead(c, account, err)
}

func (h *handlers) auditLog(c *gin.Context) {
	limit, _, err := paging(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	entries, err := h.admin.GetAuditLog(c.Request.Context(), mustActor(c), c.Param("userId"), limit)
	respondRead(c, entries, err)
}

func (h *handlers) setKYCStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.SetKYCStatus(c.Request.Context(), mustActor(c), c.Param("userId"), models.KYCStatus(body.Status), body.Reason)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) setAccountStatus(c *gin.Context) {
	var body statusBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.SetAccountStatus(c.Request.Context(), mustActor(c), c.Param("userId"), models.AccountStatus(body.Status), body.Reason)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) setTradeOutcome(c *gin.Context) {
	var body outcomeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.SetTradeOutcome(c.Request.Context(), mustActor(c), c.Param("userId"),
		models.OutcomeMode(body.Mode), models.OutcomeScope(body.Scope), body.Reason)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) tradeOutcomeLogs(c *gin.Context) {
	limit, _, err := paging(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	logs, err := h.admin.GetTradeOutcomeLogs(c.Request.Context(), mustActor(c), c.Param("userId"), limit)
	respondRead(c, logs, err)
}

// --- admin: queue ---

func (h *handlers) listRequests(c *gin.Context) {
	filter, err := requestFilter(c)
	if err != nil {
		badRequest(c, err)
		return
	}
	filter.UserId = c.Query("user_id")
	requests, err := h.admin.ListRequests(c.Request.Context(), mustActor(c), filter)
	respondRead(c, requests, err)
}

func (h *handlers) getRequest(c *gin.Context) {
	req, err := h.admin.GetRequest(c.Request.Context(), mustActor(c), c.Param("id"))
	respondRead(c, req, err)
}

func (h *handlers) decide(c *gin.Context, fn func(actor models.Actor, id string, body decisionBody) *models.RequestResult) {
	var body decisionBody
	if err := bindOptionalJSON(c, &body); err != nil {
		badRequest(c, err)
		return
	}
	result := fn(mustActor(c), c.Param("id"), body)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) approveDeposit(c *gin.Context) {
	h.decide(c, func(actor models.Actor, id string, body decisionBody) *models.RequestResult {
		return h.admin.ApproveDeposit(c.Request.Context(), actor, id, body.Notes)
	})
}

func (h *handlers) rejectDeposit(c *gin.Context) {
	h.decide(c, func(actor models.Actor, id string, body decisionBody) *models.RequestResult {
		return h.admin.RejectDeposit(c.Request.Context(), actor, id, body.Reason)
	})
}

func (h *handlers) approveWithdrawal(c *gin.Context) {
	h.decide(c, func(actor models.Actor, id string, body decisionBody) *models.RequestResult {
		return h.admin.ApproveWithdrawal(c.Request.Context(), actor, id, body.TxHash)
	})
}

func (h *handlers) rejectWithdrawal(c *gin.Context) {
	h.decide(c, func(actor models.Actor, id string, body decisionBody) *models.RequestResult {
		return h.admin.RejectWithdrawal(c.Request.Context(), actor, id, body.Reason)
	})
}

// --- settlement ---

func (h *handlers) settle(c *gin.Context) {
	var body settlementBody
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	result := h.admin.SettleAdjustment(c.Request.Context(), mustActor(c), body.UserId, body.Asset, body.Amount, body.Reason, body.TradeId)
	respondAction(c, result.ActionResult, result)
}

func (h *handlers) tradeOutcome(c *gin.Context) {
	outcome, err := h.admin.GetTradeOutcome(c.Request.Context(), mustActor(c), c.Param("userId"))
	respondRead(c, outcome, err)
}

func requestFilter(c *gin.Context) (store.RequestFilter, error) {
	limit, offset, err := paging(c)
	if err != nil {
		return store.RequestFilter{}, err
	}
	return store.RequestFilter{
		Type:   models.RequestType(c.Query("type")),
		Status: models.RequestStatus(c.Query("status")),
		Limit:  limit,
		Offset: offset,
	}, nil
}

func paging(c *gin.Context) (int, int, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return 0, 0, err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return 0, 0, err
	}
	return limit, offset, nil
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return v, nil
}

// bindOptionalJSON binds the body when one is sent. An empty body leaves obj
// untouched, a malformed one is an error.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
