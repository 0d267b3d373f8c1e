// Package events delivers domain events to interested sinks
package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// Sink receives domain events. Emit is called while the emitting component
// still holds its locks, so implementations must not block.
type Sink interface {
	Emit(ctx context.Context, event model.Event)
}

// SinkFunc adapts a function to the Sink interface
type SinkFunc func(ctx context.Context, event model.Event)

// Emit calls f(ctx, event)
func (f SinkFunc) Emit(ctx context.Context, event model.Event) {
	f(ctx, event)
}

// Nop discards every event
var Nop Sink = SinkFunc(func(context.Context, model.Event) {})

// Multi fans one event out to several sinks in order
type Multi struct {
	mu    sync.RWMutex
	sinks []Sink
}

// NewMulti creates a Multi over the given sinks. Nil sinks are skipped.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add appends a sink
func (m *Multi) Add(s Sink) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// Emit delivers the event to every sink
func (m *Multi) Emit(ctx context.Context, event model.Event) {
	m.mu.RLock()
	sinks := m.sinks
	m.mu.RUnlock()

	for _, s := range sinks {
		s.Emit(ctx, event)
	}
}

// LogSink writes every event to a structured logger
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger.With(slog.String("component", "events"))}
}

// Emit logs the event at info level
func (l *LogSink) Emit(ctx context.Context, event model.Event) {
	attrs := []any{
		slog.String("type", string(event.Type)),
		slog.Time("timestamp", event.Timestamp),
	}
	if event.RoomName != "" {
		attrs = append(attrs, slog.String("room", event.RoomName))
	}
	if event.IdentityID != "" {
		attrs = append(attrs, slog.String("identity_id", string(event.IdentityID)))
	}
	if event.ConnectionID != "" {
		attrs = append(attrs, slog.String("connection_id", string(event.ConnectionID)))
	}
	l.logger.InfoContext(ctx, "domain event", attrs...)
}
