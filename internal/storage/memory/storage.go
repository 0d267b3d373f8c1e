package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	connections map[model.ConnectionID]*model.Connection
	identities  map[model.IdentityID]*model.Identity
	loginIndex  map[loginKey]model.IdentityID
	rooms       map[string]*model.Room
	games       map[model.GameID]*model.Game
}

type loginKey struct {
	username string
	connID   model.ConnectionID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		connections: make(map[model.ConnectionID]*model.Connection),
		identities:  make(map[model.IdentityID]*model.Identity),
		loginIndex:  make(map[loginKey]model.IdentityID),
		rooms:       make(map[string]*model.Room),
		games:       make(map[model.GameID]*model.Game),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Connection operations

func (s *Storage) SaveConnection(ctx context.Context, conn *model.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connections[conn.ID] = conn.Clone()
	return nil
}

func (s *Storage) GetConnection(ctx context.Context, id model.ConnectionID) (*model.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conn, ok := s.connections[id]
	if !ok {
		return nil, model.ErrConnectionNotFound
	}
	return conn.Clone(), nil
}

func (s *Storage) DeleteConnection(ctx context.Context, id model.ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connections, id)
	return nil
}

func (s *Storage) DeleteConnections(ctx context.Context, filter storage.StaleFilter) ([]*model.Connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var deleted []*model.Connection
	for id, conn := range s.connections {
		if filter.Matches(conn) {
			deleted = append(deleted, conn.Clone())
			delete(s.connections, id)
		}
	}
	return deleted, nil
}

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.identities[identity.ID]; ok {
		delete(s.loginIndex, loginKey{prev.Username, prev.ConnectionID})
	}
	s.identities[identity.ID] = identity.Clone()
	s.loginIndex[loginKey{identity.Username, identity.ConnectionID}] = identity.ID
	return nil
}

func (s *Storage) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return identity.Clone(), nil
}

func (s *Storage) DeleteIdentity(ctx context.Context, id model.IdentityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.identities[id]; ok {
		delete(s.loginIndex, loginKey{prev.Username, prev.ConnectionID})
		delete(s.identities, id)
	}
	return nil
}

func (s *Storage) FindIdentity(ctx context.Context, username string, connID model.ConnectionID) (*model.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.loginIndex[loginKey{username, connID}]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	identity, ok := s.identities[id]
	if !ok {
		return nil, model.ErrUserNotFound
	}
	return identity.Clone(), nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.Name] = room.Clone()
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, name string) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[name]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*model.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room.Clone())
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].Name < rooms[j].Name })
	return rooms, nil
}

func (s *Storage) FindRoomByOccupant(ctx context.Context, id model.IdentityID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, room := range s.rooms {
		if room.HasOccupant(id) {
			return room.Clone(), nil
		}
	}
	return nil, model.ErrRoomNotFound
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}
