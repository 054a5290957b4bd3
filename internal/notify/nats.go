// Package notify publishes terminal job outcomes observed by this client.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/mmcdole/ebookctl/internal/adapter"
	"github.com/mmcdole/ebookctl/internal/domain"
)

// publisher is the subset of *nats.Conn used here
type publisher interface {
	PublishMsg(m *nats.Msg) error
}

// Completion is the JSON message published for each observed outcome
type Completion struct {
	JobID      string            `json:"job_id"`
	BookID     string            `json:"book_id,omitempty"`
	Status     domain.BookStatus `json:"status"`
	Resume     bool              `json:"resume"`
	ObservedAt time.Time         `json:"observed_at"`
}

// NATSNotifier implements domain.Notifier over a NATS connection
type NATSNotifier struct {
	nc      *nats.Conn
	pub     publisher
	subject string
	logger  *slog.Logger
}

// Connect dials the NATS server at url
func Connect(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("ebookctl"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &NATSNotifier{nc: nc, pub: nc, subject: subject, logger: logger}, nil
}

// New returns a NATS notifier when cfg names a server, else a no-op.
// The returned close function is always safe to call.
func New(cfg adapter.NotifyConfig, logger *slog.Logger) (domain.Notifier, func(), error) {
	if cfg.NATSURL == "" {
		return domain.NoOpNotifier{}, func() {}, nil
	}
	n, err := Connect(cfg.NATSURL, cfg.Subject, logger)
	if err != nil {
		return nil, func() {}, err
	}
	return n, n.Close, nil
}

// NotifyCompletion publishes rec. The message id dedupes repeated
// observations of the same outcome on JetStream subjects.
func (n *NATSNotifier) NotifyCompletion(ctx context.Context, rec domain.JobRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(Completion{
		JobID:      rec.JobID,
		BookID:     rec.BookID,
		Status:     rec.Outcome,
		Resume:     rec.Resume,
		ObservedAt: rec.UpdatedAt,
	})
	if err != nil {
		return err
	}

	msg := nats.NewMsg(n.subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, rec.JobID+":"+string(rec.Outcome))

	if err := n.pub.PublishMsg(msg); err != nil {
		n.logger.Warn("failed to publish completion", "job", rec.JobID, "subject", n.subject, "error", err)
		return fmt.Errorf("publish completion: %w", err)
	}
	n.logger.Debug("published completion", "job", rec.JobID, "status", rec.Outcome, "subject", n.subject)
	return nil
}

// Close drains the connection
func (n *NATSNotifier) Close() {
	if n.nc != nil {
		_ = n.nc.Drain()
	}
}
