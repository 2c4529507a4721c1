package server

import (
	"net/http"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API reply
type Response struct {
	Status  int              `json:"status"`
	Message string           `json:"message"`
	Data    interface{}      `json:"data"`
	Kind    models.ErrorKind `json:"kind,omitempty"`
}

func statusForKind(kind models.ErrorKind) int {
	switch kind {
	case models.KindNone:
		return http.StatusOK
	case models.KindInvalidInput:
		return http.StatusBadRequest
	case models.KindUnauthorized:
		return http.StatusForbidden
	case models.KindUserNotFound, models.KindRequestNotFound:
		return http.StatusNotFound
	case models.KindAlreadyProcessed, models.KindDuplicateAccount:
		return http.StatusConflict
	case models.KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case models.KindPartialFailure:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondOK(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, Response{Status: http.StatusOK, Message: message, Data: data})
}

func respondError(c *gin.Context, kind models.ErrorKind, message string) {
	status := statusForKind(kind)
	c.AbortWithStatusJSON(status, Response{Status: status, Message: message, Kind: kind})
}

// respondRead renders the outcome of a read-only façade call
func respondRead(c *gin.Context, data interface{}, err error) {
	if err != nil {
		respondError(c, store.KindOf(err), err.Error())
		return
	}
	respondOK(c, "ok", data)
}

// respondAction renders a structured action result. Failures keep the full
// result as data so clients see the kind and retryable flag.
func respondAction(c *gin.Context, result models.ActionResult, data interface{}) {
	if result.Success {
		respondOK(c, "ok", data)
		return
	}
	status := statusForKind(result.Kind)
	c.JSON(status, Response{Status: status, Message: result.Error, Data: data, Kind: result.Kind})
}

func badRequest(c *gin.Context, err error) {
	respondError(c, models.KindInvalidInput, err.Error())
}
