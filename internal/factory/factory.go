package factory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/rileyL6122428/FriEnds-backend/internal/broadcast"
	"github.com/rileyL6122428/FriEnds-backend/internal/config"
	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/clock"
	"github.com/rileyL6122428/FriEnds-backend/internal/dependencies/random"
	"github.com/rileyL6122428/FriEnds-backend/internal/dispatch"
	"github.com/rileyL6122428/FriEnds-backend/internal/events"
	natsevents "github.com/rileyL6122428/FriEnds-backend/internal/events/nats"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/auth"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/board"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/reaper"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage"
	"github.com/rileyL6122428/FriEnds-backend/internal/storage/memory"
	pgstorage "github.com/rileyL6122428/FriEnds-backend/internal/storage/postgres"
	redisstorage "github.com/rileyL6122428/FriEnds-backend/internal/storage/redis"
	"github.com/rileyL6122428/FriEnds-backend/internal/ws"
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Domain events fan out to every sink added here
	Events *events.Multi

	// Services
	BoardService   *board.Service
	GameController *game.Controller
	Directory      *room.Directory
	AuthService    *auth.Service
	Reaper         *reaper.Reaper
	Scheduler      *reaper.Scheduler

	// Client delivery
	Fanout      *broadcast.Fanout
	Sessions    *dispatch.Registry
	Dispatcher  *dispatch.Dispatcher
	Broadcaster *dispatch.Broadcaster
	WebSocket   *ws.Server

	logger  *slog.Logger
	closers []func() error
}

// New creates a new application from configuration with all dependencies
// wired. The caller owns the returned App and must Close it.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Use no-op logger if not provided
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if cfg == nil {
		cfg = config.Default()
	}

	store, closeStore, err := newStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}

	app := newWithDependencies(store, clock.New(), random.New(), cfg, logger)
	if closeStore != nil {
		app.closers = append(app.closers, closeStore)
	}

	if cfg.Events.NatsURL != "" {
		publisher, err := natsevents.Connect(natsevents.Config{
			URL:           cfg.Events.NatsURL,
			SubjectPrefix: cfg.Events.SubjectPrefix,
		}, logger)
		if err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("connecting event bus: %w", err)
		}
		app.Events.Add(publisher)
		app.closers = append(app.closers, func() error {
			publisher.Close()
			return nil
		})
	}

	return app, nil
}

func newStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (storage.Storage, func() error, error) {
	switch cfg.Type {
	case "", config.StorageMemory:
		return memory.New(), nil, nil
	case config.StorageRedis:
		if cfg.Redis.URL == "" {
			return nil, nil, errors.New("redis url required when storage type is redis")
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = cfg.Redis.URL
		if cfg.Redis.PoolSize > 0 {
			redisCfg.PoolSize = cfg.Redis.PoolSize
		}
		redisCfg.ConnectionTTL = cfg.Redis.ConnectionTTL
		redisCfg.IdentityTTL = cfg.Redis.IdentityTTL
		store, err := redisstorage.New(redisCfg)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case config.StoragePostgres:
		if cfg.Postgres.URL == "" {
			return nil, nil, errors.New("postgres url required when storage type is postgres")
		}
		pgCfg := pgstorage.DefaultConfig()
		pgCfg.URL = cfg.Postgres.URL
		if cfg.Postgres.MaxConns > 0 {
			pgCfg.MaxConns = cfg.Postgres.MaxConns
		}
		pgCfg.AutoMigrate = cfg.Postgres.AutoMigrate
		store, err := pgstorage.New(ctx, pgCfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("invalid storage type %q", cfg.Type)
	}
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, cfg *config.Config, logger *slog.Logger) *App {
	sink := events.NewMulti()
	if cfg.Events.Log {
		sink.Add(events.NewLogSink(logger))
	}

	boardService := board.New(rnd, logger)
	gameController := game.NewController(store, boardService, clk, rnd, game.Config{
		Rows:            cfg.Game.Rows,
		Cols:            cfg.Game.Cols,
		Movement:        cfg.Game.Movement,
		RequiredPlayers: cfg.Game.RequiredPlayers,
	}, logger)
	directory := room.NewDirectory(store, gameController, clk, sink, logger)
	authService := auth.New(store, clk, rnd, sink, logger)

	fanout := broadcast.New(cfg.Broadcast.QueueSize, logger)
	sessions := dispatch.NewRegistry()
	dispatcher := dispatch.New(authService, directory, fanout, sessions, logger)
	broadcaster := dispatch.NewBroadcaster(directory, fanout, logger)
	sink.Add(broadcaster)

	wsCfg := ws.DefaultConfig()
	wsCfg.ReadLimit = cfg.WebSocket.ReadLimit
	wsCfg.RateLimit = cfg.WebSocket.RateLimit
	wsCfg.RateBurst = cfg.WebSocket.RateBurst
	wsCfg.AllowedOrigins = cfg.Server.AllowedOrigins
	wsServer := ws.NewServer(dispatcher, wsCfg, logger)

	evict := func(ctx context.Context, identity *model.Identity) error {
		_, err := directory.LeaveRoom(ctx, identity)
		return err
	}
	sweeper := reaper.New(store, evict, clk, cfg.Reaper.Grace, sink, logger)
	scheduler := reaper.NewScheduler(sweeper, cfg.Reaper.Interval, logger)

	return &App{
		Storage:        store,
		Clock:          clk,
		Random:         rnd,
		Events:         sink,
		BoardService:   boardService,
		GameController: gameController,
		Directory:      directory,
		AuthService:    authService,
		Reaper:         sweeper,
		Scheduler:      scheduler,
		Fanout:         fanout,
		Sessions:       sessions,
		Dispatcher:     dispatcher,
		Broadcaster:    broadcaster,
		WebSocket:      wsServer,
		logger:         logger,
	}
}

// Seed ensures each named room exists. With reset, existing rooms are
// emptied and their occupants' identities deleted.
func (a *App) Seed(ctx context.Context, rooms []string, reset bool) error {
	for _, name := range rooms {
		_, created, err := a.Directory.EnsureRoom(ctx, name)
		if err != nil {
			return fmt.Errorf("seeding room %s: %w", name, err)
		}
		if created {
			a.logger.Info("room seeded", slog.String("room", name))
			continue
		}
		if !reset {
			continue
		}
		removed, err := a.Directory.Reset(ctx, name)
		if err != nil {
			return fmt.Errorf("resetting room %s: %w", name, err)
		}
		a.logger.Info("room reset", slog.String("room", name), slog.Int("removed", removed))
	}
	return nil
}

// Close releases the fanout, event bus and storage
func (a *App) Close() error {
	a.Fanout.Close()

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
