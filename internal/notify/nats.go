package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ledger-admin-go/internal/models"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const defaultSubjectPrefix = "ledger.notifications"

// Publisher is the subset of nats.JetStreamContext the sink needs.
type Publisher interface {
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATSSink publishes notifications to JetStream on <prefix>.<kind>. The
// notification id is sent as the message id so the stream drops redeliveries
// inside its duplicate window.
type NATSSink struct {
	js     Publisher
	prefix string
}

func NewNATSSink(js Publisher, subjectPrefix string) *NATSSink {
	if subjectPrefix == "" {
		subjectPrefix = defaultSubjectPrefix
	}
	return &NATSSink{js: js, prefix: strings.TrimSuffix(subjectPrefix, ".")}
}

func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject a notification kind is published on
func (s *NATSSink) Subject(kind models.NotificationKind) string {
	return s.prefix + "." + string(kind)
}

type natsMessage struct {
	Id        string            `json:"id"`
	UserId    string            `json:"user_id"`
	Kind      string            `json:"kind"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Payload   map[string]string `json:"payload,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (s *NATSSink) Deliver(ctx context.Context, n models.Notification) error {
	data, err := json.Marshal(natsMessage{
		Id:        n.Id,
		UserId:    n.UserId,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Message:   n.Message,
		Payload:   n.Payload,
		CreatedAt: n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification %s: %w", n.Id, err)
	}

	subject := s.Subject(n.Kind)
	ack, err := s.js.Publish(subject, data, nats.MsgId(n.Id), nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("failed to publish notification to %s: %w", subject, err)
	}

	zap.L().Debug("Published notification to NATS",
		zap.String("subject", subject),
		zap.String("notification_id", n.Id),
		zap.String("stream", ack.Stream),
		zap.Uint64("sequence", ack.Sequence),
		zap.Bool("duplicate", ack.Duplicate))
	return nil
}

// ConnectJetStream dials NATS and makes sure the notification stream exists.
func ConnectJetStream(cfg models.NATSConfig) (*nats.Conn, nats.JetStreamContext, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("ledger-admin"),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				zap.L().Error("NATS disconnected with error", zap.Error(err))
			} else {
				zap.L().Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			zap.L().Info("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	prefix := cfg.SubjectPrefix
	if prefix == "" {
		prefix = defaultSubjectPrefix
	}
	stream := cfg.Stream
	if stream == "" {
		stream = "LEDGER_NOTIFICATIONS"
	}
	if _, err := js.StreamInfo(stream); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:        stream,
			Subjects:    []string{prefix + ".>"},
			Retention:   nats.LimitsPolicy,
			MaxAge:      7 * 24 * time.Hour,
			Storage:     nats.FileStorage,
			Replicas:    1,
			Duplicates:  10 * time.Minute,
			Description: "User notifications from the ledger admin service",
		})
		if err != nil {
			nc.Close()
			return nil, nil, fmt.Errorf("failed to create stream %s: %w", stream, err)
		}
		zap.L().Info("Created JetStream stream", zap.String("stream", stream), zap.String("subjects", prefix+".>"))
	}

	zap.L().Info("Connected to NATS with JetStream", zap.String("url", cfg.URL))
	return nc, js, nil
}
