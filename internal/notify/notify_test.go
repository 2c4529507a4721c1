package notify

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ledger-admin-go/internal/database"
	"ledger-admin-go/internal/formance"
	"ledger-admin-go/internal/models"
	"ledger-admin-go/internal/store"

	"github.com/nats-io/nats.go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAdjustment() *models.Adjustment {
	return &models.Adjustment{
		Id:              "adj-1",
		ActorId:         "admin-1",
		UserId:          "u1",
		Asset:           "USDT",
		Type:            models.AdjustmentAdminDebit,
		SignedAmount:    decimal.NewFromInt(-50),
		AppliedAmount:   decimal.NewFromInt(-30),
		PreviousBalance: decimal.NewFromInt(30),
		NewBalance:      decimal.Zero,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestForAdjustment(t *testing.T) {
	n := ForAdjustment(testAdjustment())
	require.NotNil(t, n)
	assert.Equal(t, "u1", n.UserId)
	assert.Equal(t, models.NotifyBalanceAdjusted, n.Kind)
	assert.Contains(t, n.Message, "-30")
	assert.Equal(t, "adj-1", n.Payload[KeyAdjustmentId])
	assert.Equal(t, "-30", n.Payload[KeyAppliedAmount])

	assert.Nil(t, ForAdjustment(nil))
}

func TestForRequestKinds(t *testing.T) {
	base := models.FundsRequest{Id: "r1", UserId: "u1", Asset: "BTC", Amount: decimal.RequireFromString("0.1")}

	tests := []struct {
		requestType models.RequestType
		status      models.RequestStatus
		want        models.NotificationKind
	}{
		{models.RequestDeposit, models.RequestPending, models.NotifyDepositRequested},
		{models.RequestDeposit, models.RequestApproved, models.NotifyDepositApproved},
		{models.RequestDeposit, models.RequestRejected, models.NotifyDepositRejected},
		{models.RequestWithdrawal, models.RequestPending, models.NotifyWithdrawalHeld},
		{models.RequestWithdrawal, models.RequestApproved, models.NotifyWithdrawalSent},
		{models.RequestWithdrawal, models.RequestRejected, models.NotifyWithdrawalRefund},
	}
	for _, tt := range tests {
		t.Run(string(tt.want), func(t *testing.T) {
			req := base
			req.Type = tt.requestType
			req.Status = tt.status
			n := ForRequest(&req, nil)
			require.NotNil(t, n)
			assert.Equal(t, tt.want, n.Kind)
			assert.Equal(t, "r1", n.Payload[KeyRequestId])
			assert.Empty(t, n.Payload[KeyAdjustmentId])
		})
	}

	req := base
	req.Type = models.RequestWithdrawal
	req.Status = models.RequestRejected
	n := ForRequest(&req, testAdjustment())
	assert.Equal(t, "adj-1", n.Payload[KeyAdjustmentId])
}

func TestOutboxEnqueue(t *testing.T) {
	db, err := database.NewService(context.Background(), models.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "outbox.db"),
		MaxOpenConns: 2,
		PingTimeout:  5 * time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.CreateAccount(context.Background(), store.CreateAccountParams{UserId: "u1", Email: "u1@example.com"})
	require.NoError(t, err)

	outbox := NewOutbox(db)
	n := ForAdjustment(testAdjustment())
	require.NoError(t, outbox.Enqueue(context.Background(), n))
	assert.NotEmpty(t, n.Id)

	pending, err := db.ListPendingNotifications(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, n.Id, pending[0].Id)
	assert.Equal(t, "adj-1", pending[0].Payload[KeyAdjustmentId])

	assert.NoError(t, outbox.Enqueue(context.Background(), nil))
}

type fakePublisher struct {
	subjects []string
	data     [][]byte
	err      error
}

func (f *fakePublisher) Publish(subj string, data []byte, _ ...nats.PubOpt) (*nats.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.subjects = append(f.subjects, subj)
	f.data = append(f.data, data)
	return &nats.PubAck{Stream: "TEST", Sequence: uint64(len(f.data))}, nil
}

func TestNATSSink(t *testing.T) {
	pub := &fakePublisher{}
	sink := NewNATSSink(pub, "ledger.events.")
	assert.Equal(t, "ledger.events.balance_adjusted", sink.Subject(models.NotifyBalanceAdjusted))

	n := ForAdjustment(testAdjustment())
	n.Id = "n-1"
	require.NoError(t, sink.Deliver(context.Background(), *n))
	require.Len(t, pub.subjects, 1)
	assert.Equal(t, "ledger.events.balance_adjusted", pub.subjects[0])

	var msg natsMessage
	require.NoError(t, json.Unmarshal(pub.data[0], &msg))
	assert.Equal(t, "n-1", msg.Id)
	assert.Equal(t, "u1", msg.UserId)

	pub.err = errors.New("no responders")
	assert.Error(t, sink.Deliver(context.Background(), *n))

	assert.Equal(t, "ledger.notifications.kyc_status_changed", NewNATSSink(pub, "").Subject(models.NotifyKYCStatus))
}

type fakePoster struct {
	postings []formance.Posting
}

func (f *fakePoster) PostAdjustment(_ context.Context, p formance.Posting) error {
	f.postings = append(f.postings, p)
	return nil
}

func TestFormanceSink(t *testing.T) {
	poster := &fakePoster{}
	sink := NewFormanceSink(poster)

	require.NoError(t, sink.Deliver(context.Background(), *ForAdjustment(testAdjustment())))
	require.Len(t, poster.postings, 1)
	p := poster.postings[0]
	assert.Equal(t, "adj-1", p.AdjustmentId)
	assert.Equal(t, "u1", p.UserId)
	assert.True(t, p.AppliedAmount.Equal(decimal.NewFromInt(-30)))

	// no adjustment, nothing to mirror
	account := &models.Account{UserId: "u1", KYCStatus: models.KYCApproved}
	require.NoError(t, sink.Deliver(context.Background(), *ForAccount(account, models.NotifyKYCStatus, "ok")))
	assert.Len(t, poster.postings, 1)

	bad := models.Notification{Id: "n", Payload: map[string]string{KeyAdjustmentId: "adj", KeyAppliedAmount: "abc"}}
	assert.Error(t, sink.Deliver(context.Background(), bad))
}
