// Package dispatch routes inbound client messages to handlers and manages
// the lifetime of connection sessions
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/auth"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
)

// HandlerFunc processes one message for a session
type HandlerFunc func(ctx context.Context, sess *Session, msg Message) error

// Descriptor binds a handler to the message types it accepts
type Descriptor struct {
	Name string
	// Types lists the accepted message types. Empty means every type.
	Types []string
	// ErrorType is the reply type used when the handler fails
	ErrorType string
	Handle    HandlerFunc
}

// Matches reports whether the descriptor accepts a message type
func (d Descriptor) Matches(msgType string) bool {
	if len(d.Types) == 0 {
		return true
	}
	for _, t := range d.Types {
		if t == msgType {
			return true
		}
	}
	return false
}

// Dispatcher owns the descriptor list and the session lifecycle
type Dispatcher struct {
	auth        *auth.Service
	directory   *room.Directory
	fanout      *broadcast.Fanout
	registry    *Registry
	descriptors []Descriptor
	logger      *slog.Logger
}

// New creates a Dispatcher with the standard descriptor list
func New(
	authService *auth.Service,
	directory *room.Directory,
	fanout *broadcast.Fanout,
	registry *Registry,
	logger *slog.Logger,
) *Dispatcher {
	d := &Dispatcher{
		auth:      authService,
		directory: directory,
		fanout:    fanout,
		registry:  registry,
		logger:    logger.With(slog.String("component", "dispatch")),
	}
	d.descriptors = []Descriptor{
		{Name: "authenticate", Types: []string{TypeAuthenticate}, ErrorType: ErrorAuthenticate, Handle: d.handleAuthenticate},
		{Name: "create_user", Types: []string{TypeCreateUser}, ErrorType: ErrorAuthenticate, Handle: d.handleCreateUser},
		{Name: "activity", ErrorType: ErrorMessage, Handle: d.handleActivity},
		{Name: "room_info", Types: []string{TypeRoomInfo}, ErrorType: ErrorRoom, Handle: d.handleRoomInfo},
		{Name: "join_room", Types: []string{TypeJoinRoom}, ErrorType: ErrorRoom, Handle: d.handleJoinRoom},
		{Name: "leave_room", Types: []string{TypeLeaveRoom}, ErrorType: ErrorLeaveRoom, Handle: d.handleLeaveRoom},
		{Name: "game_info", Types: []string{TypeGameInfo}, ErrorType: ErrorGame, Handle: d.handleGameInfo},
	}
	return d
}

// Descriptors returns the handlers in dispatch order
func (d *Dispatcher) Descriptors() []Descriptor {
	return d.descriptors
}

// Open records a new connection, registers its outbound queue and greets it
func (d *Dispatcher) Open(ctx context.Context) (*Session, *broadcast.Subscriber, error) {
	conn, err := d.auth.Connect(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("recording connection: %w", err)
	}

	sub := d.fanout.Register(conn.ID)
	sess := newSession(conn.ID, d.fanout)
	d.registry.Add(sess)

	if err := sess.Reply(ClientCreated{
		Type:       ReplyClientCreated,
		ClientName: string(conn.ID),
		Message:    clientCreatedMessage,
	}); err != nil {
		return nil, nil, err
	}

	d.logger.Info("connection opened", slog.String("connection_id", string(conn.ID)))
	return sess, sub, nil
}

// Close tears a session down: the identity is unbound, the connection is
// marked disconnected and its queue leaves every audience and is closed.
func (d *Dispatcher) Close(ctx context.Context, sess *Session) {
	d.registry.Remove(sess.ID())
	sess.Unbind()

	if err := d.auth.Disconnect(ctx, sess.ID()); err != nil {
		d.logger.Error("failed to mark connection disconnected",
			slog.String("connection_id", string(sess.ID())),
			slog.Any("error", err),
		)
	}
	d.fanout.Remove(sess.ID())
	d.logger.Info("connection closed", slog.String("connection_id", string(sess.ID())))
}

// Dispatch parses a frame and runs every matching handler in order. A
// failing or panicking handler does not stop the ones after it.
func (d *Dispatcher) Dispatch(ctx context.Context, sess *Session, data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		d.logger.Debug("malformed message", slog.String("connection_id", string(sess.ID())))
		d.replyError(sess, ErrorMessage, err)
		return
	}

	for _, desc := range d.descriptors {
		if !desc.Matches(msg.Type) {
			continue
		}
		if err := d.run(ctx, desc, sess, msg); err != nil {
			d.handleError(sess, desc, msg, err)
		}
	}
}

func (d *Dispatcher) run(ctx context.Context, desc Descriptor, sess *Session, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("handler panic recovered",
				slog.String("handler", desc.Name),
				slog.String("connection_id", string(sess.ID())),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			err = nil
		}
	}()
	return desc.Handle(ctx, sess, msg)
}

func (d *Dispatcher) handleError(sess *Session, desc Descriptor, msg Message, err error) {
	switch model.KindOf(err) {
	case model.KindAuthRequired:
		d.logger.Debug("unauthenticated message ignored",
			slog.String("handler", desc.Name),
			slog.String("type", msg.Type),
			slog.String("connection_id", string(sess.ID())),
		)
		return
	case model.KindInternal:
		d.logger.Error("handler failed",
			slog.String("handler", desc.Name),
			slog.String("type", msg.Type),
			slog.String("connection_id", string(sess.ID())),
			slog.Any("error", err),
		)
	default:
		d.logger.Debug("request rejected",
			slog.String("handler", desc.Name),
			slog.String("type", msg.Type),
			slog.Any("error", err),
		)
	}
	d.replyError(sess, desc.ErrorType, err)
}

func (d *Dispatcher) replyError(sess *Session, errorType string, err error) {
	if rerr := sess.Reply(ErrorReply{Type: errorType, Error: ErrorText(err)}); rerr != nil {
		d.logger.Error("failed to send error reply", slog.Any("error", rerr))
	}
}
