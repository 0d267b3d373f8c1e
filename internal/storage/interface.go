package storage

import (
	"context"
	"time"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
)

// Storage defines the interface for data persistence.
// Implementations return copies; mutating a returned value never changes
// stored state until it is saved again.
type Storage interface {
	// Connection operations
	SaveConnection(ctx context.Context, conn *model.Connection) error
	GetConnection(ctx context.Context, id model.ConnectionID) (*model.Connection, error)
	DeleteConnection(ctx context.Context, id model.ConnectionID) error
	DeleteConnections(ctx context.Context, filter StaleFilter) ([]*model.Connection, error)

	// Identity operations
	SaveIdentity(ctx context.Context, identity *model.Identity) error
	GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error)
	DeleteIdentity(ctx context.Context, id model.IdentityID) error
	FindIdentity(ctx context.Context, username string, connID model.ConnectionID) (*model.Identity, error)

	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, name string) (*model.Room, error)
	ListRooms(ctx context.Context) ([]*model.Room, error)
	FindRoomByOccupant(ctx context.Context, id model.IdentityID) (*model.Room, error)

	// Game operations
	SaveGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
}

// StaleKind selects which class of disconnected connection a StaleFilter matches
type StaleKind int

const (
	// StaleAnonymous matches connections that never authenticated
	StaleAnonymous StaleKind = iota
	// StaleAbandoned matches identity-bound connections with no recent activity
	StaleAbandoned
)

func (k StaleKind) String() string {
	switch k {
	case StaleAnonymous:
		return "anonymous"
	case StaleAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// StaleFilter selects disconnected connections older than a threshold.
// A connected connection never matches.
type StaleFilter struct {
	Kind   StaleKind
	Before time.Time
}

// Matches reports whether the connection is selected by the filter
func (f StaleFilter) Matches(c *model.Connection) bool {
	if c.Connected {
		return false
	}
	switch f.Kind {
	case StaleAnonymous:
		return c.IdentityID == "" && c.LastAuthedAt.IsZero() && !c.ConnectedAt.After(f.Before)
	case StaleAbandoned:
		return c.IdentityID != "" && !c.LastAuthedAt.IsZero() && !c.LastAuthedAt.After(f.Before)
	default:
		return false
	}
}
