package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
)

// Storage is a PostgreSQL-backed implementation of the storage interface
type Storage struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, applying migrations first when configured
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Storage, error) {
	if cfg.AutoMigrate {
		if err := Migrate(cfg.URL, logger); err != nil {
			return nil, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse postgres url: %w", err)
	}
	poolCfg.MaxConns = cfg.MaxConns
	poolCfg.MinConns = cfg.MinConns
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}

	// Verify connection
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Storage{pool: pool}, nil
}

// NewWithPool creates a storage around an existing pool (for testing)
func NewWithPool(pool *pgxpool.Pool) *Storage {
	return &Storage{pool: pool}
}

// Close releases the connection pool
func (s *Storage) Close() error {
	s.pool.Close()
	return nil
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Connection operations

const connectionColumns = `id, identity_id, connected, connected_at, last_authed_at`

func (s *Storage) SaveConnection(ctx context.Context, conn *model.Connection) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO connections (`+connectionColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			identity_id = EXCLUDED.identity_id,
			connected = EXCLUDED.connected,
			connected_at = EXCLUDED.connected_at,
			last_authed_at = EXCLUDED.last_authed_at`,
		string(conn.ID), nullText(string(conn.IdentityID)), conn.Connected,
		conn.ConnectedAt, nullTime(conn.LastAuthedAt))
	return err
}

func (s *Storage) GetConnection(ctx context.Context, id model.ConnectionID) (*model.Connection, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+connectionColumns+` FROM connections WHERE id = $1`, string(id))
	conn, err := scanConnection(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrConnectionNotFound
		}
		return nil, err
	}
	return conn, nil
}

func (s *Storage) DeleteConnection(ctx context.Context, id model.ConnectionID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM connections WHERE id = $1`, string(id))
	return err
}

func (s *Storage) DeleteConnections(ctx context.Context, filter storage.StaleFilter) ([]*model.Connection, error) {
	var query string
	switch filter.Kind {
	case storage.StaleAnonymous:
		query = `DELETE FROM connections
			WHERE connected = FALSE AND identity_id IS NULL AND last_authed_at IS NULL
			AND connected_at <= $1
			RETURNING ` + connectionColumns
	case storage.StaleAbandoned:
		query = `DELETE FROM connections
			WHERE connected = FALSE AND identity_id IS NOT NULL AND last_authed_at IS NOT NULL
			AND last_authed_at <= $1
			RETURNING ` + connectionColumns
	default:
		return nil, fmt.Errorf("unknown stale filter kind %d", filter.Kind)
	}

	rows, err := s.pool.Query(ctx, query, filter.Before)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var deleted []*model.Connection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, err
		}
		deleted = append(deleted, conn)
	}
	return deleted, rows.Err()
}

func scanConnection(row pgx.Row) (*model.Connection, error) {
	var (
		conn       model.Connection
		id         string
		identityID pgtype.Text
		lastAuthed pgtype.Timestamptz
	)
	if err := row.Scan(&id, &identityID, &conn.Connected, &conn.ConnectedAt, &lastAuthed); err != nil {
		return nil, err
	}
	conn.ID = model.ConnectionID(id)
	conn.IdentityID = model.IdentityID(identityID.String)
	if lastAuthed.Valid {
		conn.LastAuthedAt = lastAuthed.Time
	}
	return &conn, nil
}

// Identity operations

func (s *Storage) SaveIdentity(ctx context.Context, identity *model.Identity) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO identities (id, username, connection_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			connection_id = EXCLUDED.connection_id`,
		string(identity.ID), identity.Username, string(identity.ConnectionID), identity.CreatedAt)
	return err
}

func (s *Storage) GetIdentity(ctx context.Context, id model.IdentityID) (*model.Identity, error) {
	row := s.pool.QueryRow(ctx, `SELECT id, username, connection_id, created_at FROM identities WHERE id = $1`, string(id))
	return scanIdentity(row)
}

func (s *Storage) DeleteIdentity(ctx context.Context, id model.IdentityID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM identities WHERE id = $1`, string(id))
	return err
}

func (s *Storage) FindIdentity(ctx context.Context, username string, connID model.ConnectionID) (*model.Identity, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, username, connection_id, created_at FROM identities
		WHERE username = $1 AND connection_id = $2
		LIMIT 1`,
		username, string(connID))
	return scanIdentity(row)
}

func scanIdentity(row pgx.Row) (*model.Identity, error) {
	var identity model.Identity
	var id, connID string
	if err := row.Scan(&id, &identity.Username, &connID, &identity.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, err
	}
	identity.ID = model.IdentityID(id)
	identity.ConnectionID = model.ConnectionID(connID)
	return &identity, nil
}

// Room operations

const roomColumns = `name, occupants, game_id, created_at, updated_at`

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	occupants := make([]string, len(room.Occupants))
	for i, id := range room.Occupants {
		occupants[i] = string(id)
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (name) DO UPDATE SET
			occupants = EXCLUDED.occupants,
			game_id = EXCLUDED.game_id,
			updated_at = EXCLUDED.updated_at`,
		room.Name, occupants, string(room.GameID), room.CreatedAt, room.UpdatedAt)
	return err
}

func (s *Storage) GetRoom(ctx context.Context, name string) (*model.Room, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE name = $1`, name)
	return scanRoom(row)
}

func (s *Storage) ListRooms(ctx context.Context) ([]*model.Room, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []*model.Room{}
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (s *Storage) FindRoomByOccupant(ctx context.Context, id model.IdentityID) (*model.Room, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM rooms WHERE occupants @> ARRAY[$1::text] LIMIT 1`, string(id))
	return scanRoom(row)
}

func scanRoom(row pgx.Row) (*model.Room, error) {
	var (
		room      model.Room
		occupants []string
		gameID    string
	)
	if err := row.Scan(&room.Name, &occupants, &gameID, &room.CreatedAt, &room.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}
	room.GameID = model.GameID(gameID)
	room.Occupants = make([]model.IdentityID, len(occupants))
	for i, o := range occupants {
		room.Occupants[i] = model.IdentityID(o)
	}
	return &room, nil
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO games (id, room_name, state, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			state = EXCLUDED.state,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		string(game.ID), game.RoomName, string(game.State), data, game.CreatedAt, game.UpdatedAt)
	return err
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	var data []byte
	if err := s.pool.QueryRow(ctx, `SELECT data FROM games WHERE id = $1`, string(id)).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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

func nullText(v string) pgtype.Text {
	return pgtype.Text{String: v, Valid: v != ""}
}

func nullTime(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: !t.IsZero()}
}
