// Package ws serves the client protocol over WebSocket
package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/dispatch"
)

// Config holds transport limits
type Config struct {
	ReadLimit      int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	RateLimit      float64 // messages per second
	RateBurst      int
	AllowedOrigins []string
}

// DefaultConfig returns the default transport configuration
func DefaultConfig() Config {
	return Config{
		ReadLimit:  8192,
		WriteWait:  10 * time.Second,
		PongWait:   60 * time.Second,
		PingPeriod: 54 * time.Second,
		RateLimit:  20,
		RateBurst:  40,
	}
}

// Server upgrades HTTP requests and pumps frames between the socket and the
// dispatcher
type Server struct {
	dispatcher *dispatch.Dispatcher
	cfg        Config
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	mu     sync.Mutex
	conns  map[*websocket.Conn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// NewServer creates a WebSocket Server
func NewServer(dispatcher *dispatch.Dispatcher, cfg Config, logger *slog.Logger) *Server {
	defaults := DefaultConfig()
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = defaults.ReadLimit
	}
	if cfg.WriteWait <= 0 {
		cfg.WriteWait = defaults.WriteWait
	}
	if cfg.PongWait <= 0 {
		cfg.PongWait = defaults.PongWait
	}
	if cfg.PingPeriod <= 0 || cfg.PingPeriod >= cfg.PongWait {
		cfg.PingPeriod = cfg.PongWait * 9 / 10
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaults.RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = defaults.RateBurst
	}

	s := &Server{
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger.With(slog.String("component", "ws")),
		conns:      make(map[*websocket.Conn]struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.cfg.AllowedOrigins) == 0 || slices.Contains(s.cfg.AllowedOrigins, "*") {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(s.cfg.AllowedOrigins, origin)
}

// ServeHTTP upgrades the request and serves the connection until it closes.
// Teardown completes before ServeHTTP returns.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	if !s.track(conn) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(s.cfg.WriteWait))
		_ = conn.Close()
		return
	}
	defer s.untrack(conn)

	ctx := context.WithoutCancel(r.Context())
	sess, sub, err := s.dispatcher.Open(ctx)
	if err != nil {
		s.logger.Error("failed to open session", slog.Any("error", err))
		_ = conn.Close()
		return
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writePump(conn, sub)
	}()

	s.readPump(ctx, conn, sess)

	s.dispatcher.Close(ctx, sess)
	<-writerDone
	_ = conn.Close()
}

func (s *Server) readPump(ctx context.Context, conn *websocket.Conn, sess *dispatch.Session) {
	limiter := rate.NewLimiter(rate.Limit(s.cfg.RateLimit), s.cfg.RateBurst)

	conn.SetReadLimit(s.cfg.ReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.logger.Warn("websocket read failed",
					slog.String("connection_id", string(sess.ID())),
					slog.Any("error", err),
				)
			}
			return
		}
		if msgType != websocket.TextMessage && msgType != websocket.BinaryMessage {
			continue
		}
		if !limiter.Allow() {
			s.logger.Warn("message dropped by rate limit", slog.String("connection_id", string(sess.ID())))
			continue
		}
		s.dispatcher.Dispatch(ctx, sess, data)
	}
}

func (s *Server) writePump(conn *websocket.Conn, sub *broadcast.Subscriber) {
	ticker := time.NewTicker(s.cfg.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-sub.C():
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				s.logger.Debug("websocket write failed", slog.String("connection_id", string(sub.ID())), slog.Any("error", err))
				// Unblock the reader so teardown runs
				_ = conn.Close()
				s.discard(sub)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = conn.Close()
				s.discard(sub)
				return
			}
		}
	}
}

// discard drains a queue nobody will write until the dispatcher closes it
func (s *Server) discard(sub *broadcast.Subscriber) {
	for range sub.C() {
	}
}

func (s *Server) track(conn *websocket.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(conn *websocket.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	s.wg.Done()
}

// ActiveConnections returns the number of open sockets
func (s *Server) ActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown closes every socket and waits for their teardown, or for ctx
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	deadline := time.Now().Add(s.cfg.WriteWait)
	for conn := range s.conns {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		_ = conn.Close()
	}
	count := len(s.conns)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("websocket connections closed", slog.Int("count", count))
		return nil
	case <-ctx.Done():
		return errors.Join(errors.New("websocket shutdown incomplete"), ctx.Err())
	}
}
