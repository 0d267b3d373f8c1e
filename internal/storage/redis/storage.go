package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Connection operations

func (s *Storage) SaveConnection(ctx context.Context, conn *model.Connection) error {
	data, err := json.Marshal(conn)
	if err != nil {
		return err
	}

	key := connectionKey(conn.ID)
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, s.cfg.ConnectionTTL)
	pipe.SAdd(ctx, connectionsIndexKey(), key)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetConnection(ctx context.Context, id model.ConnectionID) (*model.Connection, error) {
	data, err := s.client.Get(ctx, connectionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrConnectionNotFound
		}
		return nil, err
	}

	var conn model.Connection
	if err := json.Unmarshal(data, &conn); err != nil {
		return nil, err
	}
	return &conn, nil
}

func (s *Storage) DeleteConnection(ctx context.Context, id model.ConnectionID) error {
	key := connectionKey(id)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.SRem(ctx, connectionsIndexKey(), key)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *Storage) DeleteConnections(ctx context.Context, filter storage.StaleFilter) ([]*model.Connection, error) {
	keys, err := s.client.SMembers(ctx, connectionsIndexKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	var deleted []*model.Connection
	pipe := s.client.TxPipeline()
	pending := 0
	for i, val := range values {
		if val == nil {
			// Expired; drop the dangling index entry
			pipe.SRem(ctx, connectionsIndexKey(), keys[i])
			pending++
			continue
		}
		raw, ok := val.(string)
		if !ok {
			continue
		}
		var conn model.Connection
		if err := json.Unmarshal([]byte(raw), &conn); err != nil {
			continue
		}
		if !filter.Matches(&conn) {
			continue
		}
		pipe.Del(ctx, keys[i])
		pipe.SRem(ctx, connectionsIndexKey(), keys[i])
		pending++
		deleted = append(deleted, &conn)
	}

	if pending > 0 {
		if _, err := pipe.Exec(ctx); err != nil {
			return nil, err
		}
	}
	return deleted, nil
}

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return err
	}

	prev, err := s.GetIdentity(ctx, identity.ID)
	if err != nil && !errors.Is(err, model.ErrUserNotFound) {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	if prev != nil {
		pipe.Del(ctx, loginIndexKey(prev.Username, prev.ConnectionID))
	}
	pipe.Set(ctx, identityKey(identity.ID), data, s.cfg.IdentityTTL)
	pipe.Set(ctx, loginIndexKey(identity.Username, identity.ConnectionID), string(identity.ID), s.cfg.IdentityTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	data, err := s.client.Get(ctx, identityKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}

	var identity model.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, err
	}
	return &identity, nil
}

func (s *Storage) DeleteIdentity(ctx context.Context, id model.IdentityID) error {
	prev, err := s.GetIdentity(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return nil
		}
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, identityKey(id))
	pipe.Del(ctx, loginIndexKey(prev.Username, prev.ConnectionID))
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) FindIdentity(ctx context.Context, username string, connID model.ConnectionID) (*model.Identity, error) {
	// Look up identity ID from login index
	idStr, err := s.client.Get(ctx, loginIndexKey(username, connID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	return s.GetIdentity(ctx, model.IdentityID(idStr))
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}

	prev, err := s.GetRoom(ctx, room.Name)
	if err != nil && !errors.Is(err, model.ErrRoomNotFound) {
		return err
	}

	pipe := s.client.TxPipeline()
	if prev != nil {
		for _, id := range prev.Occupants {
			if !room.HasOccupant(id) {
				pipe.Del(ctx, occupantIndexKey(id))
			}
		}
	}
	for _, id := range room.Occupants {
		pipe.Set(ctx, occupantIndexKey(id), room.Name, 0)
	}
	pipe.Set(ctx, roomKey(room.Name), data, 0)
	pipe.ZAdd(ctx, roomsIndexKey(), redis.Z{Score: 0, Member: room.Name})
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Storage) GetRoom(ctx context.Context, name string) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(name)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	return decodeRoom(data)
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	// Equal scores order members lexicographically
	names, err := s.client.ZRange(ctx, roomsIndexKey(), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return []*model.Room{}, nil
	}

	keys := make([]string, len(names))
	for i, name := range names {
		keys[i] = roomKey(name)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	rooms := make([]*model.Room, 0, len(values))
	for _, val := range values {
		raw, ok := val.(string)
		if !ok {
			continue
		}
		room, err := decodeRoom([]byte(raw))
		if err != nil {
			continue // Skip invalid data
		}
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (s *Storage) FindRoomByOccupant(ctx context.Context, id model.IdentityID) (*model.Room, error) {
	name, err := s.client.Get(ctx, occupantIndexKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	room, err := s.GetRoom(ctx, name)
	if err != nil {
		return nil, err
	}
	// Guard against an index entry left behind by a partial write
	if !room.HasOccupant(id) {
		return nil, model.ErrRoomNotFound
	}
	return room, nil
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, gameKey(game.ID), data, 0).Err()
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	data, err := s.client.Get(ctx, gameKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrGameNotFound
		}
		return nil, err
	}

	var game model.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, err
	}
	return &game, nil
}

func decodeRoom(data []byte) (*model.Room, error) {
	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	if room.Occupants == nil {
		room.Occupants = []model.IdentityID{}
	}
	return &room, nil
}
