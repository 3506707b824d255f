package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/squadlink-dev/squadlink/go/internal/team/events"
)

const subjectPrefix = "team.events."

// NATSConfig holds connection settings for the NATS bus.
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// DefaultNATSConfig returns settings suitable for a local broker:
// reconnect forever, two seconds between attempts.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		MaxReconnects: -1,
		ReconnectWait: 2 * time.Second,
	}
}

// NATS publishes events to team.events.<type> subjects and fans
// subscriptions in from team.events.>.
type NATS struct {
	nc *nats.Conn
}

// NewNATS connects to the broker.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATS{nc: nc}, nil
}

func (b *NATS) Publish(ctx context.Context, e *events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.nc.Publish(subjectPrefix+string(e.Type), data); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	return nil
}

func (b *NATS) Subscribe(ctx context.Context, h Handler) error {
	_, err := b.nc.Subscribe(subjectPrefix+">", func(msg *nats.Msg) {
		var e events.Event
		if err := json.Unmarshal(msg.Data, &e); err != nil {
			log.Error().Err(err).Str("subject", msg.Subject).Msg("failed to unmarshal event")
			return
		}
		h(ctx, &e)
	})
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

func (b *NATS) Close() error {
	b.nc.Close()
	return nil
}
