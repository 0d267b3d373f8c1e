package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/clock"
	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/random"
	"github.com/rileyL6122428/FriEnds-backend/internal/events"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// NamePool is the set of base names generated usernames are drawn from
var NamePool = []string{
	"Sigurd", "Erika", "Ephraim", "Lyn", "Hector", "Roy", "Marth", "Alm", "Celica",
	"Tiki", "Ike", "Micaiah", "Lucina", "Robin", "Corrin", "Azura", "Fjorm",
}

// NameSuffixLimit bounds the numeric suffix of generated usernames
const NameSuffixLimit = 10000

// Service handles connection records and ephemeral identities
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	events  events.Sink
	logger  *slog.Logger
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, random random.Random, sink events.Sink, logger *slog.Logger) *Service {
	if sink == nil {
		sink = events.Nop
	}
	return &Service{
		storage: storage,
		clock:   clock,
		random:  random,
		events:  sink,
		logger:  logger.With(slog.String("component", "auth")),
	}
}

// Connect records a new live connection
func (s *Service) Connect(ctx context.Context) (*model.Connection, error) {
	conn := &model.Connection{
		ID:          model.ConnectionID(s.random.UUID()),
		Connected:   true,
		ConnectedAt: s.clock.Now(),
	}
	if err := s.storage.SaveConnection(ctx, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// Disconnect marks a connection as no longer live. Its identity binding is
// kept so the identity can be reclaimed or reaped later. A connection that
// no longer exists is ignored.
func (s *Service) Disconnect(ctx context.Context, connID model.ConnectionID) error {
	conn, err := s.storage.GetConnection(ctx, connID)
	if errors.Is(err, model.ErrConnectionNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	conn.Connected = false
	return s.storage.SaveConnection(ctx, conn)
}

// Connection returns a connection record by ID
func (s *Service) Connection(ctx context.Context, connID model.ConnectionID) (*model.Connection, error) {
	return s.storage.GetConnection(ctx, connID)
}

// Identity returns an identity by ID
func (s *Service) Identity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	return s.storage.GetIdentity(ctx, id)
}

// GenerateUsername picks a base name from the pool and appends a number.
// Collisions are possible and not checked.
func (s *Service) GenerateUsername() string {
	base := NamePool[s.random.Intn(len(NamePool))]
	return fmt.Sprintf("%s%d", base, s.random.Intn(NameSuffixLimit))
}

// CreateIdentity makes a fresh identity and binds it to the connection
func (s *Service) CreateIdentity(ctx context.Context, connID model.ConnectionID) (*model.Identity, error) {
	conn, err := s.storage.GetConnection(ctx, connID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	identity := &model.Identity{
		ID:           model.IdentityID(s.random.UUID()),
		Username:     s.GenerateUsername(),
		ConnectionID: connID,
		CreatedAt:    now,
	}
	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, err
	}

	conn.IdentityID = identity.ID
	conn.LastAuthedAt = now
	if err := s.storage.SaveConnection(ctx, conn); err != nil {
		return nil, err
	}

	s.logger.Info("identity created",
		slog.String("identity_id", string(identity.ID)),
		slog.String("username", identity.Username),
		slog.String("connection_id", string(connID)),
	)
	s.events.Emit(ctx, model.Event{
		Type:         model.EventIdentityCreated,
		Timestamp:    now,
		IdentityID:   identity.ID,
		ConnectionID: connID,
		Payload:      model.IdentityPayload{Username: identity.Username},
	})
	return identity, nil
}

// Authenticate reclaims the identity last bound to priorConnID under
// username and rebinds it to connID. The stale connection record is deleted.
// previous is the connection the identity was bound to before.
func (s *Service) Authenticate(
	ctx context.Context,
	username string,
	priorConnID model.ConnectionID,
	connID model.ConnectionID,
) (identity *model.Identity, previous model.ConnectionID, err error) {
	if username == "" {
		return nil, "", model.MissingField("username")
	}
	if priorConnID == "" {
		return nil, "", model.MissingField("client_name")
	}

	identity, err = s.storage.FindIdentity(ctx, username, priorConnID)
	if err != nil {
		return nil, "", err
	}

	conn, err := s.storage.GetConnection(ctx, connID)
	if err != nil {
		return nil, "", err
	}

	previous = identity.ConnectionID
	if previous != connID {
		if err := s.storage.DeleteConnection(ctx, previous); err != nil && !errors.Is(err, model.ErrConnectionNotFound) {
			return nil, "", fmt.Errorf("deleting superseded connection: %w", err)
		}
	}

	now := s.clock.Now()
	identity.ConnectionID = connID
	if err := s.storage.SaveIdentity(ctx, identity); err != nil {
		return nil, "", err
	}

	conn.IdentityID = identity.ID
	conn.LastAuthedAt = now
	if err := s.storage.SaveConnection(ctx, conn); err != nil {
		return nil, "", err
	}

	s.logger.Info("identity reclaimed",
		slog.String("identity_id", string(identity.ID)),
		slog.String("connection_id", string(connID)),
		slog.String("previous_connection_id", string(previous)),
	)
	s.events.Emit(ctx, model.Event{
		Type:         model.EventIdentityReclaimed,
		Timestamp:    now,
		IdentityID:   identity.ID,
		ConnectionID: connID,
		Payload:      model.IdentityPayload{Username: identity.Username, PreviousConnection: previous},
	})
	return identity, previous, nil
}

// Discard deletes an identity its connection has replaced. An identity that
// no longer exists is ignored.
func (s *Service) Discard(ctx context.Context, identity *model.Identity) error {
	if err := s.storage.DeleteIdentity(ctx, identity.ID); err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return err
	}
	s.logger.Info("identity discarded",
		slog.String("identity_id", string(identity.ID)),
		slog.String("connection_id", string(identity.ConnectionID)),
	)
	return nil
}

// Touch records authenticated activity on the connection
func (s *Service) Touch(ctx context.Context, connID model.ConnectionID) error {
	conn, err := s.storage.GetConnection(ctx, connID)
	if err != nil {
		return err
	}
	if !conn.Authenticated() {
		return model.ErrNotAuthenticated
	}
	conn.LastAuthedAt = s.clock.Now()
	return s.storage.SaveConnection(ctx, conn)
}
