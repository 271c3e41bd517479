package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Subject suffixes appended to the configured prefix.
const (
	SubjectCreated  = "created"
	SubjectResolved = "resolved"
)

// NATSChannel publishes notifications to NATS subjects under a configurable
// prefix (e.g. "sentinel.incidents.created").
type NATSChannel struct {
	conn   *nats.Conn
	prefix string
}

// NATSConfig holds NATS channel configuration.
type NATSConfig struct {
	URL           string
	Name          string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns a NATSConfig with sensible defaults.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Name:          "mfa-sentinel",
		SubjectPrefix: "sentinel.incidents",
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewNATSChannel connects to NATS with the given configuration.
func NewNATSChannel(cfg NATSConfig) (*NATSChannel, error) {
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	return &NATSChannel{conn: conn, prefix: cfg.SubjectPrefix}, nil
}

func (n *NATSChannel) Type() string {
	return "nats"
}

func (n *NATSChannel) Publish(ctx context.Context, subject string, message interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	full := subject
	if n.prefix != "" {
		full = n.prefix + "." + subject
	}
	if err := n.conn.Publish(full, data); err != nil {
		return fmt.Errorf("publish to %s: %w", full, err)
	}
	return nil
}

// Close drains and closes the NATS connection.
func (n *NATSChannel) Close() error {
	return n.conn.Drain()
}
