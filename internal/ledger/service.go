package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

const defaultMaxRetries = 5

// Service is the only code path that changes balances, transitions funds
// requests, or writes the trade-outcome flag. Every operation runs in one
// store transaction and is retried as a whole on a version conflict.
type Service struct {
	store      store.LedgerStore
	assets     *models.AssetRegistry
	policy     models.DebitPolicy
	maxRetries int
}

func NewService(ledgerStore store.LedgerStore, assets *models.AssetRegistry, cfg models.LedgerConfig) *Service {
	policy := cfg.DebitPolicy
	if !policy.Valid() {
		policy = models.DebitClamp
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	if assets == nil {
		assets = models.NewAssetRegistry(models.DefaultAssets)
	}

	return &Service{
		store:      ledgerStore,
		assets:     assets,
		policy:     policy,
		maxRetries: maxRetries,
	}
}

// DebitPolicy returns the policy applied to admin adjustments that do not
// name one explicitly.
func (s *Service) DebitPolicy() models.DebitPolicy {
	return s.policy
}

func (s *Service) Assets() *models.AssetRegistry {
	return s.assets
}

// inTx runs fn in a transaction, retrying the whole unit of work with
// exponential backoff while the store reports ErrConcurrentModification.
// Errors that are not a known domain failure come back wrapped in
// ErrPartialFailure: the transaction was rolled back and the caller may retry.
func (s *Service) inTx(ctx context.Context, op string, fn func(tx store.Tx) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := s.store.WithTx(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, store.ErrConcurrentModification) {
			zap.L().Debug("Retrying after concurrent modification",
				zap.String("operation", op),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(newBackOff(), uint64(s.maxRetries)), ctx))
	if err == nil {
		return nil
	}
	if store.KindOf(err) == models.KindPartialFailure && !errors.Is(err, store.ErrPartialFailure) {
		zap.L().Error("Unit of work rolled back",
			zap.String("operation", op),
			zap.Int("attempts", attempt),
			zap.Error(err))
		return fmt.Errorf("%s: %w: %w", op, store.ErrPartialFailure, err)
	}
	return err
}

func newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Millisecond
	b.MaxInterval = 200 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second
	return b
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", store.ErrInvalidInput, fmt.Sprintf(format, args...))
}
