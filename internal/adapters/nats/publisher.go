package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/parkpass/internal/core/domain"
	"github.com/samirrijal/parkpass/internal/core/ports"
)

// Route event subjects.
const (
	SubjectRoutesAll      = "parking.routes.>"
	SubjectRoutesComputed = "parking.routes.computed"
	SubjectRoutesFailed   = "parking.routes.failed"

	streamName = "PARKING_ROUTES"
)

var _ ports.EventPublisher = (*Publisher)(nil)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStream(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStream(js nats.JetStreamContext) error {
	cfg := &nats.StreamConfig{
		Name:       streamName,
		Subjects:   []string{SubjectRoutesAll},
		Retention:  nats.LimitsPolicy,
		MaxAge:     24 * time.Hour,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute,
	}
	if _, err := js.AddStream(cfg); err != nil {
		// Stream may already exist, try update
		if _, err := js.UpdateStream(cfg); err != nil {
			return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// SubjectFor returns the subject an event is published on.
func SubjectFor(event *domain.RouteEvent) string {
	if event.Result.OK {
		return SubjectRoutesComputed
	}
	return SubjectRoutesFailed
}

// PublishRouteEvent publishes event on its outcome subject and waits for
// the JetStream ack.
func (p *Publisher) PublishRouteEvent(ctx context.Context, event *domain.RouteEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode route event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := p.js.Publish(SubjectFor(event), data, publishOpts(ctx, event)...); err != nil {
		return fmt.Errorf("publish route event: %w", err)
	}
	return nil
}

// publishOpts sets the event ID as the JetStream message ID so the stream
// drops duplicate publishes inside its dedup window.
func publishOpts(ctx context.Context, event *domain.RouteEvent) []nats.PubOpt {
	opts := []nats.PubOpt{nats.Context(ctx)}
	if event.ID != "" {
		opts = append(opts, nats.MsgId(event.ID))
	}
	return opts
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("parkpass"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
