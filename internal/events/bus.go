// Package events carries domain notifications over NATS. Every service
// publishes through the Bus so subscribers (the syndication pipeline, the
// stats dashboard, external tooling) see a single subject namespace.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Subjects published by the suite's services.
const (
	SubjectTodoCompleted    = "todo.completed"
	SubjectTicketRedeemed   = "ticket.redeemed"
	SubjectArticlePublished = "article.published"
)

// Bus publishes and subscribes to JSON-encoded domain events. A nil *Bus
// is valid and silently drops publishes, so services never need to branch
// on whether NATS is configured.
type Bus struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// Connect dials the NATS server and returns a Bus. The connection retries
// in the background if the server is not up yet.
func Connect(url string, logger *zap.Logger) (*Bus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(1*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS at %s: %w", url, err)
	}
	logger.Info("connected to NATS", zap.String("url", url))
	return &Bus{nc: nc, logger: logger}, nil
}

// NewBus wraps an existing connection, mainly for tests.
func NewBus(nc *nats.Conn, logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{nc: nc, logger: logger}
}

// Publish JSON-encodes v and publishes it on subject. A nil Bus drops the
// event.
func (b *Bus) Publish(ctx context.Context, subject string, v any) error {
	if b == nil || b.nc == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding event for %s: %w", subject, err)
	}
	if err := b.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	b.logger.Debug("event published",
		zap.String("event.subject", subject),
		zap.Int("event.bytes", len(data)))
	return nil
}

// Subscribe registers handler for subject. The raw payload is passed
// through so handlers pick their own decode type.
func (b *Bus) Subscribe(subject string, handler func(subject string, data []byte)) (*nats.Subscription, error) {
	if b == nil || b.nc == nil {
		return nil, fmt.Errorf("event bus is not connected")
	}
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %s: %w", subject, err)
	}
	return sub, nil
}

// Close drains the connection. Safe on a nil Bus.
func (b *Bus) Close() {
	if b == nil || b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.logger.Warn("draining nats connection", zap.Error(err))
	}
}
