package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/notify"
	"ledger-admin-go/internal/store"

	"go.uber.org/zap"
)

const (
	defaultPollingInterval = 5 * time.Second
	defaultCleanupInterval = 10 * time.Minute
	defaultBatchSize       = 100
	defaultMaxAttempts     = 5
	dedupeWindow           = time.Hour
)

// Config contains configuration for Relay
type Config struct {
	Store           store.LedgerStore
	Sinks           []notify.Sink
	PollingInterval time.Duration
	CleanupInterval time.Duration
	BatchSize       int
	MaxAttempts     int
}

// Relay polls the notification outbox and hands each pending row to every
// sink. A row is marked delivered only when all sinks accept it.
type Relay struct {
	store store.LedgerStore
	sinks []notify.Sink

	// State management for delivered notifications
	deliveredIds    map[string]time.Time
	mutex           sync.RWMutex
	pollingInterval time.Duration
	cleanupInterval time.Duration
	batchSize       int
	maxAttempts     int

	// Control channels
	stopChan chan struct{}
	doneChan chan struct{}
	stopOnce sync.Once
}

func New(cfg Config) *Relay {
	r := &Relay{
		store:           cfg.Store,
		sinks:           cfg.Sinks,
		deliveredIds:    make(map[string]time.Time),
		pollingInterval: cfg.PollingInterval,
		cleanupInterval: cfg.CleanupInterval,
		batchSize:       cfg.BatchSize,
		maxAttempts:     cfg.MaxAttempts,
		stopChan:        make(chan struct{}),
		doneChan:        make(chan struct{}),
	}
	if r.pollingInterval <= 0 {
		r.pollingInterval = defaultPollingInterval
	}
	if r.cleanupInterval <= 0 {
		r.cleanupInterval = defaultCleanupInterval
	}
	if r.batchSize <= 0 {
		r.batchSize = defaultBatchSize
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = defaultMaxAttempts
	}
	if len(r.sinks) == 0 {
		r.sinks = []notify.Sink{notify.LogSink{}}
	}
	return r
}

// Start begins polling in the background
func (r *Relay) Start(ctx context.Context) {
	sinkNames := make([]string, 0, len(r.sinks))
	for _, s := range r.sinks {
		sinkNames = append(sinkNames, s.Name())
	}

	go r.pollLoop(ctx)
	go r.cleanupLoop(ctx)

	zap.L().Info("Notification relay started",
		zap.Duration("polling_interval", r.pollingInterval),
		zap.Int("batch_size", r.batchSize),
		zap.Int("max_attempts", r.maxAttempts),
		zap.Strings("sinks", sinkNames))
}

// Stop gracefully stops the relay and waits for the current batch to finish
func (r *Relay) Stop() {
	r.stopOnce.Do(func() {
		zap.L().Info("Stopping notification relay")
		close(r.stopChan)
	})
	<-r.doneChan
	zap.L().Info("Notification relay stopped")
}

// pollLoop runs the main polling loop
func (r *Relay) pollLoop(ctx context.Context) {
	defer close(r.doneChan)

	ticker := time.NewTicker(r.pollingInterval)
	defer ticker.Stop()

	r.poll(ctx)

	for {
		select {
		case <-ticker.C:
			r.poll(ctx)
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) poll(ctx context.Context) {
	if _, err := r.DeliverPending(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zap.L().Error("Failed to deliver pending notifications", zap.Error(err))
	}
}

// DeliverPending delivers one batch of pending notifications and returns how
// many were marked delivered.
func (r *Relay) DeliverPending(ctx context.Context) (int, error) {
	pending, err := r.store.ListPendingNotifications(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending notifications: %w", err)
	}

	delivered := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if r.isDelivered(n.Id) {
			// delivered but the mark failed last time
			if err := r.store.MarkNotificationDelivered(ctx, n.Id, time.Now().UTC()); err == nil {
				delivered++
			}
			continue
		}

		if err := r.deliver(ctx, n); err != nil {
			zap.L().Warn("Notification delivery failed",
				zap.String("notification_id", n.Id),
				zap.String("kind", string(n.Kind)),
				zap.Int("attempt", n.Attempts+1),
				zap.Error(err))
			if markErr := r.store.MarkNotificationFailed(ctx, n.Id, err.Error(), r.maxAttempts); markErr != nil {
				zap.L().Error("Failed to record delivery failure",
					zap.String("notification_id", n.Id),
					zap.Error(markErr))
			}
			continue
		}

		r.markDelivered(n.Id)
		if err := r.store.MarkNotificationDelivered(ctx, n.Id, time.Now().UTC()); err != nil {
			zap.L().Error("Failed to mark notification delivered",
				zap.String("notification_id", n.Id),
				zap.Error(err))
			continue
		}
		delivered++
	}

	if delivered > 0 {
		zap.L().Debug("Delivered notifications",
			zap.Int("delivered", delivered),
			zap.Int("batch", len(pending)))
	}
	return delivered, nil
}

// deliver hands n to every sink. Sinks are idempotent on n.Id, so a partial
// success is retried as a whole.
func (r *Relay) deliver(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, sink := range r.sinks {
		if err := sink.Deliver(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// isDelivered checks if this process already delivered the notification
func (r *Relay) isDelivered(id string) bool {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	_, exists := r.deliveredIds[id]
	return exists
}

func (r *Relay) markDelivered(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.deliveredIds[id] = time.Now()
}

// cleanupLoop periodically forgets old delivered ids
func (r *Relay) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanupDelivered()
		case <-r.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (r *Relay) cleanupDelivered() {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	cutoff := time.Now().Add(-dedupeWindow)
	cleaned := 0

	for id, deliveredAt := range r.deliveredIds {
		if deliveredAt.Before(cutoff) {
			delete(r.deliveredIds, id)
			cleaned++
		}
	}

	if cleaned > 0 {
		zap.L().Debug("Cleaned up delivered notification ids",
			zap.Int("cleaned", cleaned),
			zap.Int("remaining", len(r.deliveredIds)))
	}
}
