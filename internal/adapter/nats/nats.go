// Package nats publishes gamification actions on NATS JetStream.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/Strob0t/crowdin-gamification/internal/config"
	"github.com/Strob0t/crowdin-gamification/internal/domain/event"
	"github.com/Strob0t/crowdin-gamification/internal/logger"
	"github.com/Strob0t/crowdin-gamification/internal/port/broadcast"
)

// HeaderDeliveryID carries the webhook delivery an action came from.
const HeaderDeliveryID = "Crowdin-Delivery-Id"

// Handler consumes one action. A returned error naks the message.
type Handler func(ctx context.Context, action event.Action) error

// Broadcaster implements broadcast.Broadcaster using NATS JetStream.
type Broadcaster struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	stream string
	prefix string
}

var _ broadcast.Broadcaster = (*Broadcaster)(nil)

// Connect establishes a connection to NATS and ensures the action stream exists.
func Connect(ctx context.Context, cfg config.NATS) (*Broadcaster, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name("crowdin-connector"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	prefix := strings.TrimSuffix(cfg.SubjectPrefix, ".")
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     cfg.Stream,
		Subjects: []string{prefix + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", cfg.URL, "stream", cfg.Stream, "subjects", prefix+".>")
	return &Broadcaster{nc: nc, js: js, stream: cfg.Stream, prefix: prefix}, nil
}

// Subject returns the subject an action of kind is published on.
func (b *Broadcaster) Subject(kind event.ActionKind) string {
	if kind == event.ActionCancel {
		return b.prefix + ".cancel"
	}
	return b.prefix + ".generic"
}

// Broadcast publishes action and waits for the stream acknowledgement.
func (b *Broadcaster) Broadcast(ctx context.Context, action event.Action) error {
	data, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("marshal action: %w", err)
	}
	msg := nats.NewMsg(b.Subject(action.Kind))
	msg.Data = data
	if id := logger.DeliveryID(ctx); id != "" {
		msg.Header.Set(HeaderDeliveryID, id)
	}
	if _, err := b.js.PublishMsg(ctx, msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}
	return nil
}

// Subscribe consumes the actions published on subject until the returned
// stop function is called.
func (b *Broadcaster) Subscribe(ctx context.Context, subject string, handler Handler) (func(), error) {
	consumer, err := b.js.CreateOrUpdateConsumer(ctx, b.stream, jetstream.ConsumerConfig{
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return nil, fmt.Errorf("nats consumer create: %w", err)
	}

	cons, err := consumer.Consume(func(msg jetstream.Msg) {
		var action event.Action
		if err := json.Unmarshal(msg.Data(), &action); err != nil {
			slog.Error("discarding malformed action", "subject", msg.Subject(), "error", err)
			if termErr := msg.Term(); termErr != nil {
				slog.Error("nats term failed", "error", termErr)
			}
			return
		}
		msgCtx := ctx
		if id := msg.Headers().Get(HeaderDeliveryID); id != "" {
			msgCtx = logger.WithDeliveryID(ctx, id)
		}
		if err := handler(msgCtx, action); err != nil {
			slog.ErrorContext(msgCtx, "action handler failed", "subject", msg.Subject(), "error", err)
			if nakErr := msg.Nak(); nakErr != nil {
				slog.Error("nats nak failed", "error", nakErr)
			}
			return
		}
		if ackErr := msg.Ack(); ackErr != nil {
			slog.Error("nats ack failed", "error", ackErr)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("nats consume: %w", err)
	}
	return cons.Stop, nil
}

// Healthy reports whether the connection is up.
func (b *Broadcaster) Healthy() bool {
	return b.nc.IsConnected()
}

// Close drains pending publishes and closes the connection.
func (b *Broadcaster) Close() error {
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
		return fmt.Errorf("nats drain: %w", err)
	}
	return nil
}
