package relay

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"ledger-admin-go/internal/database"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/notify"
	"ledger-admin-go/internal/store"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu        sync.Mutex
	delivered []string
	err       error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Deliver(_ context.Context, n models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.delivered = append(s.delivered, n.Id)
	return nil
}

func (s *recordingSink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.delivered...)
}

func newTestStore(t *testing.T) *database.Service {
	t.Helper()
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "relay.db"),
		MaxOpenConns: 2,
		PingTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.CreateAccount(context.Background(), store.CreateAccountParams{UserId: "u1", Email: "u1@example.com"})
	require.NoError(t, err)
	return db
}

func enqueue(t *testing.T, db *database.Service, n int) []string {
	t.Helper()
	outbox := notify.NewOutbox(db)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		note := notify.ForAdjustment(&models.Adjustment{
			Id:            "adj",
			UserId:        "u1",
			Asset:         "USDT",
			Type:          models.AdjustmentAdminCredit,
			SignedAmount:  decimal.NewFromInt(10),
			AppliedAmount: decimal.NewFromInt(10),
			NewBalance:    decimal.NewFromInt(10),
			CreatedAt:     time.Now().UTC(),
		})
		require.NoError(t, outbox.Enqueue(context.Background(), note))
		ids = append(ids, note.Id)
	}
	return ids
}

func TestDeliverPending(t *testing.T) {
	db := newTestStore(t)
	ids := enqueue(t, db, 3)
	sink := &recordingSink{}

	r := New(Config{Store: db, Sinks: []notify.Sink{sink}, BatchSize: 10})
	delivered, err := r.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, delivered)
	assert.ElementsMatch(t, ids, sink.ids())

	pending, err := db.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	// nothing left to send
	delivered, err = r.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)
	assert.Len(t, sink.ids(), 3)
}

func TestDeliverPendingRespectsBatchSize(t *testing.T) {
	db := newTestStore(t)
	enqueue(t, db, 5)
	sink := &recordingSink{}

	r := New(Config{Store: db, Sinks: []notify.Sink{sink}, BatchSize: 2})
	delivered, err := r.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, delivered)

	pending, err := db.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 3)
}

func TestFailedDeliveryIsRetriedUntilMaxAttempts(t *testing.T) {
	db := newTestStore(t)
	enqueue(t, db, 1)
	sink := &recordingSink{err: errors.New("broker unavailable")}

	r := New(Config{Store: db, Sinks: []notify.Sink{sink}, MaxAttempts: 2})

	delivered, err := r.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)

	pending, err := db.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].Attempts)
	assert.Contains(t, pending[0].LastError, "broker unavailable")

	_, err = r.DeliverPending(context.Background())
	require.NoError(t, err)

	pending, err = db.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "notification should be parked as failed")
}

func TestOneFailingSinkKeepsNotificationPending(t *testing.T) {
	db := newTestStore(t)
	enqueue(t, db, 1)
	ok := &recordingSink{}
	broken := &recordingSink{err: errors.New("down")}

	r := New(Config{Store: db, Sinks: []notify.Sink{ok, broken}, MaxAttempts: 5})
	delivered, err := r.DeliverPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, delivered)

	pending, err := db.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestStartAndStop(t *testing.T) {
	db := newTestStore(t)
	ids := enqueue(t, db, 2)
	sink := &recordingSink{}

	r := New(Config{Store: db, Sinks: []notify.Sink{sink}, PollingInterval: 10 * time.Millisecond})
	r.Start(context.Background())

	assert.Eventually(t, func() bool {
		return len(sink.ids()) == len(ids)
	}, 2*time.Second, 10*time.Millisecond)

	r.Stop()
	// a second stop must not block or panic
	r.Stop()
}

func TestCleanupDelivered(t *testing.T) {
	r := New(Config{})
	r.markDelivered("fresh")
	r.deliveredIds["stale"] = time.Now().Add(-2 * dedupeWindow)

	r.cleanupDelivered()

	assert.True(t, r.isDelivered("fresh"))
	assert.False(t, r.isDelivered("stale"))
}
