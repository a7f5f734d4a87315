// Package broadcast publishes auction events for spectators.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/draftworks/auctioneer/internal/auction"
)

const (
	subjectPrefix = "auction.events"

	maxReconnects = 10
	reconnectWait = 2 * time.Second
)

// Connect dials NATS with reconnect handling.
func Connect(natsURL string) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.MaxReconnects(maxReconnects),
		nats.ReconnectWait(reconnectWait),
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

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// NATSPublisher is a NATS-backed auction.Broadcaster.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

// Broadcast publishes one event to auction.events.<draftID>.<type>.
func (p *NATSPublisher) Broadcast(ctx context.Context, draftID uuid.UUID, event auction.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	subject := Subject(draftID, event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", event.ID).
		Int("size", len(data)).
		Msg("event published")
	return nil
}

// Subject builds the per-draft, per-type event subject.
func Subject(draftID uuid.UUID, eventType auction.EventType) string {
	return fmt.Sprintf("%s.%s.%s", subjectPrefix, draftID, eventType)
}
