package sse

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time between keepalive comments
	pingPeriod = 30 * time.Second
)

// Feed streams fanout audiences to spectators as server-sent events
type Feed struct {
	fanout     *broadcast.Fanout
	renderer   *Renderer
	logger     *slog.Logger
	pingPeriod time.Duration
}

// NewFeed creates a Feed. Each message is followed by its HTML fragments
// when renderer is set.
func NewFeed(fanout *broadcast.Fanout, renderer *Renderer, logger *slog.Logger) *Feed {
	return &Feed{
		fanout:     fanout,
		renderer:   renderer,
		logger:     logger.With(slog.String("component", "sse")),
		pingPeriod: pingPeriod,
	}
}

// Serve streams one audience until the client disconnects or the fanout
// drops the subscriber. Spectators are registered under a generated id so
// they never collide with WebSocket connections.
func (f *Feed) Serve(w http.ResponseWriter, r *http.Request, aud broadcast.Audience) {
	rc := http.NewResponseController(w)

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	id := model.ConnectionID("sse-" + uuid.NewString())
	sub := f.fanout.Register(id)
	defer f.fanout.Remove(id)
	if aud != broadcast.Global {
		f.fanout.Unsubscribe(broadcast.Global, id)
		f.fanout.Subscribe(aud, id)
	}

	connectedAt := time.Now()
	f.logger.Debug("spectator connected", slog.String("audience", string(aud)), slog.String("id", string(id)))
	defer func() {
		f.logger.Debug("spectator disconnected",
			slog.String("audience", string(aud)),
			slog.String("id", string(id)),
			slog.Duration("connection_duration", time.Since(connectedAt)),
			slog.Int("dropped", sub.Dropped()),
		)
	}()

	write := func(frame []byte) bool {
		_ = rc.SetWriteDeadline(time.Now().Add(writeWait))
		if _, err := w.Write(frame); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !write(Format("connected", []byte(`{"status":"connected"}`))) {
		return
	}

	ticker := time.NewTicker(f.pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C():
			if !ok {
				return
			}
			if !write(FormatMessage(msg)) {
				return
			}
			for _, frame := range f.fragments(r.Context(), aud, msg) {
				if !write(frame) {
					return
				}
			}

		case <-ticker.C:
			if !write([]byte(": keepalive\n\n")) {
				return
			}

		case <-r.Context().Done():
			return
		}
	}
}

func (f *Feed) fragments(ctx context.Context, aud broadcast.Audience, msg []byte) [][]byte {
	if f.renderer == nil {
		return nil
	}
	events, err := f.renderer.RenderMessage(ctx, aud, msg)
	if err != nil {
		f.logger.Warn("failed to render fragment", slog.String("audience", string(aud)), slog.Any("error", err))
		return nil
	}
	frames := make([][]byte, 0, len(events))
	for _, e := range events {
		frames = append(frames, Format(e.EventName, []byte(e.HTML)))
	}
	return frames
}
