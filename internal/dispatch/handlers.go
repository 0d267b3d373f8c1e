package dispatch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

func requireIdentity(sess *Session) (*model.Identity, error) {
	identity := sess.Identity()
	if identity == nil {
		return nil, model.ErrNotAuthenticated
	}
	return identity, nil
}

// handleAuthenticate reclaims an identity by username and prior client name
func (d *Dispatcher) handleAuthenticate(ctx context.Context, sess *Session, msg Message) error {
	prior := sess.Identity()
	identity, previous, err := d.auth.Authenticate(ctx, msg.Username, model.ConnectionID(msg.ClientName), sess.ID())
	if err != nil {
		return err
	}

	if previous != sess.ID() {
		d.supersede(previous)
	}
	sess.Bind(identity)
	d.release(ctx, prior, identity)

	current, err := d.directory.RoomOf(ctx, identity.ID)
	switch {
	case err == nil:
		d.fanout.Subscribe(broadcast.RoomAudience(current.Name), sess.ID())
	case !errors.Is(err, model.ErrRoomNotFound):
		return err
	}

	return sess.Reply(Authenticated{
		Type:       ReplyAuthenticated,
		Username:   identity.Username,
		ClientName: string(sess.ID()),
	})
}

// supersede detaches an identity from a connection that is still live in
// this process after the identity was reclaimed elsewhere. The old socket is
// closed since its connection record is gone.
func (d *Dispatcher) supersede(connID model.ConnectionID) {
	old := d.registry.Get(connID)
	if old == nil {
		return
	}
	old.Unbind()
	d.fanout.Remove(connID)
	d.logger.Info("session superseded", slog.String("connection_id", string(connID)))
}

// release drops the identity a session held before it was rebound. The old
// identity leaves its room and is deleted.
func (d *Dispatcher) release(ctx context.Context, prior, current *model.Identity) {
	if prior == nil || prior.ID == current.ID {
		return
	}
	logger := d.logger.With(slog.String("identity_id", string(prior.ID)))

	if _, err := d.directory.LeaveRoom(ctx, prior); err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		logger.Error("failed to remove replaced identity from room", slog.Any("error", err))
	}
	if err := d.auth.Discard(ctx, prior); err != nil {
		logger.Error("failed to delete replaced identity", slog.Any("error", err))
	}
}

// handleCreateUser creates a fresh identity for the connection
func (d *Dispatcher) handleCreateUser(ctx context.Context, sess *Session, _ Message) error {
	prior := sess.Identity()
	identity, err := d.auth.CreateIdentity(ctx, sess.ID())
	if err != nil {
		return err
	}
	sess.Bind(identity)
	d.release(ctx, prior, identity)

	return sess.Reply(Authenticated{
		Type:       ReplyAuthenticated,
		Username:   identity.Username,
		ClientName: string(sess.ID()),
	})
}

// handleActivity runs for every message and records authenticated activity
func (d *Dispatcher) handleActivity(ctx context.Context, sess *Session, _ Message) error {
	if sess.Identity() == nil {
		return nil
	}
	return d.auth.Touch(ctx, sess.ID())
}

func (d *Dispatcher) handleRoomInfo(ctx context.Context, sess *Session, _ Message) error {
	if _, err := requireIdentity(sess); err != nil {
		return err
	}
	summaries, err := d.directory.Summaries(ctx)
	if err != nil {
		return err
	}
	return sess.Reply(NewRoomInfo(summaries))
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, sess *Session, msg Message) error {
	identity, err := requireIdentity(sess)
	if err != nil {
		return err
	}
	if msg.RoomName == "" {
		return model.MissingField("room_name")
	}

	if _, _, err := d.directory.JoinRoom(ctx, identity, msg.RoomName); err != nil {
		return err
	}
	return sess.Reply(RoomChange{Type: ReplyJoinedRoom, RoomName: msg.RoomName})
}

func (d *Dispatcher) handleLeaveRoom(ctx context.Context, sess *Session, _ Message) error {
	identity, err := requireIdentity(sess)
	if err != nil {
		return err
	}

	left, err := d.directory.LeaveRoom(ctx, identity)
	if err != nil {
		return err
	}
	return sess.Reply(RoomChange{Type: ReplyLeftRoom, RoomName: left.Name})
}

func (d *Dispatcher) handleGameInfo(ctx context.Context, sess *Session, msg Message) error {
	identity, err := requireIdentity(sess)
	if err != nil {
		return err
	}
	if msg.RoomName == "" {
		return model.MissingField("room_name")
	}

	info, err := d.directory.GameInfo(ctx, identity.ID, msg.RoomName)
	if err != nil {
		return err
	}
	return sess.Reply(GameInfo{Type: ReplyGameInfo, Game: info})
}
