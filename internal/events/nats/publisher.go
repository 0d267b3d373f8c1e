// Package nats publishes domain events to a NATS server
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// DefaultSubjectPrefix is prepended to every event type
const DefaultSubjectPrefix = "friends.events"

// Config holds NATS connection configuration
type Config struct {
	URL           string
	SubjectPrefix string
	Name          string
}

// conn is the subset of *nats.Conn the publisher needs
type conn interface {
	Publish(subject string, data []byte) error
}

// Publisher emits domain events as JSON messages. Core NATS publishes are
// buffered by the client, so Emit never waits on the network.
type Publisher struct {
	conn   conn
	close  func()
	prefix string
	logger *slog.Logger
}

// wireEvent is the JSON form of a model.Event
type wireEvent struct {
	Type         string    `json:"type"`
	Timestamp    time.Time `json:"timestamp"`
	RoomName     string    `json:"room_name,omitempty"`
	IdentityID   string    `json:"identity_id,omitempty"`
	ConnectionID string    `json:"connection_id,omitempty"`
	Payload      any       `json:"payload,omitempty"`
}

// Connect dials the NATS server and returns a Publisher
func Connect(cfg Config, logger *slog.Logger) (*Publisher, error) {
	name := cfg.Name
	if name == "" {
		name = "friends-server"
	}

	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", slog.Any("error", err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	p := newPublisher(nc, cfg.SubjectPrefix, logger)
	p.close = func() {
		if err := nc.Drain(); err != nil {
			nc.Close()
		}
	}
	return p, nil
}

func newPublisher(c conn, prefix string, logger *slog.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{
		conn:   c,
		close:  func() {},
		prefix: prefix,
		logger: logger.With(slog.String("component", "nats")),
	}
}

// Subject returns the subject an event type is published on
func (p *Publisher) Subject(t model.EventType) string {
	return p.prefix + "." + string(t)
}

// Emit publishes the event. Failures are logged and dropped.
func (p *Publisher) Emit(ctx context.Context, event model.Event) {
	data, err := json.Marshal(wireEvent{
		Type:         string(event.Type),
		Timestamp:    event.Timestamp,
		RoomName:     event.RoomName,
		IdentityID:   string(event.IdentityID),
		ConnectionID: string(event.ConnectionID),
		Payload:      wirePayload(event.Payload),
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode event", slog.String("type", string(event.Type)), slog.Any("error", err))
		return
	}

	if err := p.conn.Publish(p.Subject(event.Type), data); err != nil {
		p.logger.WarnContext(ctx, "failed to publish event",
			slog.String("type", string(event.Type)),
			slog.Any("error", err),
		)
	}
}

// Close drains pending messages and closes the connection
func (p *Publisher) Close() {
	p.close()
}

func wirePayload(payload any) any {
	switch v := payload.(type) {
	case model.IdentityPayload:
		return map[string]any{
			"username":            v.Username,
			"previous_connection": string(v.PreviousConnection),
		}
	case model.OccupantPayload:
		return map[string]any{
			"username":  v.Username,
			"game_id":   string(v.GameID),
			"occupancy": v.Occupancy,
		}
	case model.GameStartedPayload:
		return map[string]any{
			"game_id": string(v.GameID),
			"players": v.Players,
		}
	default:
		return v
	}
}
