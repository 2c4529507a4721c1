package store

import (
	"errors"

	"ledger-admin-go/internal/models"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrUserNotFound           = errors.New("user not found")
	ErrRequestNotFound        = errors.New("request not found")
	ErrInsufficientFunds      = errors.New("insufficient funds")
	ErrAlreadyProcessed       = errors.New("request already processed")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrInvalidInput           = errors.New("invalid input")
	ErrDuplicateAccount       = errors.New("account already exists")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrPartialFailure         = errors.New("action rolled back, retry")
)

// KindOf classifies err for callers. Anything unrecognized happened inside a
// rolled-back unit of work and is reported as a retryable partial failure.
func KindOf(err error) models.ErrorKind {
	switch {
	case err == nil:
		return models.KindNone
	case errors.Is(err, ErrUserNotFound):
		return models.KindUserNotFound
	case errors.Is(err, ErrRequestNotFound):
		return models.KindRequestNotFound
	case errors.Is(err, ErrInsufficientFunds):
		return models.KindInsufficientFunds
	case errors.Is(err, ErrAlreadyProcessed):
		return models.KindAlreadyProcessed
	case errors.Is(err, ErrUnauthorized):
		return models.KindUnauthorized
	case errors.Is(err, ErrInvalidInput):
		return models.KindInvalidInput
	case errors.Is(err, ErrDuplicateAccount):
		return models.KindDuplicateAccount
	default:
		return models.KindPartialFailure
	}
}
