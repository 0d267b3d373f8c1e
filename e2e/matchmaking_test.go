package e2e_test

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyL6122428/FriEnds-backend/internal/api"
	"github.com/rileyL6122428/FriEnds-backend/internal/config"
	"github.com/rileyL6122428/FriEnds-backend/internal/factory"
	"github.com/rileyL6122428/FriEnds-backend/internal/testutil"
)

// testServer runs the full application on a real listener
type testServer struct {
	app    *factory.App
	server *api.Server
	addr   string
	done   chan error
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := config.Default()
	cfg.Events.Log = false
	cfg.Rooms = []string{"ellios", "zephiel"}

	ctx := context.Background()
	app, err := factory.New(ctx, cfg, testutil.NopLogger())
	require.NoError(t, err)
	require.NoError(t, app.Seed(ctx, cfg.Rooms, false))

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := api.NewServer(app.Handler(), api.DefaultServerConfig(), testutil.NopLogger())
	server.OnShutdownStart(app.Fanout.Close)
	server.OnShutdown(app.WebSocket.Shutdown)

	ts := &testServer{app: app, server: server, addr: listener.Addr().String(), done: make(chan error, 1)}
	go func() { ts.done <- server.Serve(listener) }()

	t.Cleanup(func() {
		_ = server.Shutdown(context.Background())
		_ = app.Close()
	})
	return ts
}

// player is one WebSocket client
type player struct {
	t        *testing.T
	conn     *websocket.Conn
	username string
	client   string
}

type frame struct {
	Type       string          `json:"type"`
	Username   string          `json:"username"`
	ClientName string          `json:"client_name"`
	RoomName   string          `json:"room_name"`
	Error      string          `json:"error"`
	Rooms      []roomView      `json:"rooms"`
	Game       json.RawMessage `json:"game"`
}

type roomView struct {
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	Occupants []string `json:"occupants"`
}

type gameView struct {
	State   string `json:"state"`
	Players []struct {
		Name string `json:"name"`
	} `json:"players"`
	BoardPieces []struct {
		Name string `json:"name"`
		Row  int    `json:"row"`
		Col  int    `json:"col"`
	} `json:"boardPieces"`
}

func (ts *testServer) dial(t *testing.T) *player {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ts.addr+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	p := &player{t: t, conn: conn}
	created := p.await(func(f frame) bool { return f.Type == "client_created" })
	p.client = created.ClientName
	require.NotEmpty(t, p.client)
	return p
}

func (p *player) send(msg map[string]string) {
	p.t.Helper()
	require.NoError(p.t, p.conn.WriteJSON(map[string]any{"message": msg}))
}

// await reads frames until match accepts one
func (p *player) await(match func(frame) bool) frame {
	p.t.Helper()

	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var f frame
		require.NoError(p.t, p.conn.ReadJSON(&f))
		if match(f) {
			return f
		}
	}
}

func (p *player) createUser() {
	p.t.Helper()
	p.send(map[string]string{"type": "create_user"})
	f := p.await(func(f frame) bool { return f.Type == "authenticated" })
	p.username = f.Username
	require.NotEmpty(p.t, p.username)
}

func (p *player) awaitGame(state string, players int) gameView {
	p.t.Helper()
	var game gameView
	p.await(func(f frame) bool {
		if f.Type != "game_info" {
			return false
		}
		require.NoError(p.t, json.Unmarshal(f.Game, &game))
		return game.State == state && len(game.Players) == players
	})
	return game
}

func TestMatchmakingOverWebSocket(t *testing.T) {
	ts := startTestServer(t)

	lyn := ts.dial(t)
	roy := ts.dial(t)
	lyn.createUser()
	roy.createUser()

	lyn.send(map[string]string{"type": "join_room", "room_name": "ellios"})
	lyn.await(func(f frame) bool { return f.Type == "joined_room" && f.RoomName == "ellios" })
	lyn.awaitGame("waiting", 2)

	roy.send(map[string]string{"type": "join_room", "room_name": "ellios"})
	roy.await(func(f frame) bool { return f.Type == "joined_room" })

	// Both occupants see the game start
	game := lyn.awaitGame("playing", 3)
	roy.awaitGame("playing", 3)

	names := []string{}
	for _, pl := range game.Players {
		names = append(names, pl.Name)
	}
	assert.Equal(t, []string{"Environment", lyn.username, roy.username}, names)
	assert.Len(t, game.BoardPieces, 3)

	// A third player finds the room full
	zoe := ts.dial(t)
	zoe.createUser()
	zoe.send(map[string]string{"type": "join_room", "room_name": "ellios"})
	f := zoe.await(func(f frame) bool { return f.Type == "room error" })
	assert.Equal(t, "Room is full", f.Error)

	// Leaving frees the seat for everyone to see
	lyn.send(map[string]string{"type": "leave_room"})
	lyn.await(func(f frame) bool { return f.Type == "left_room" && f.RoomName == "ellios" })
	info := zoe.await(func(f frame) bool {
		return f.Type == "room_info" && len(f.Rooms) > 0 && len(f.Rooms[0].Occupants) == 1
	})
	assert.Equal(t, "ellios", info.Rooms[0].Name)
	assert.Equal(t, []string{roy.username}, info.Rooms[0].Occupants)
}

func TestReclaimIdentityAfterReconnect(t *testing.T) {
	ts := startTestServer(t)

	first := ts.dial(t)
	first.createUser()
	first.send(map[string]string{"type": "join_room", "room_name": "zephiel"})
	first.await(func(f frame) bool { return f.Type == "joined_room" })
	require.NoError(t, first.conn.Close())

	second := ts.dial(t)
	second.send(map[string]string{"type": "authenticate", "username": first.username, "client_name": first.client})
	f := second.await(func(f frame) bool { return f.Type == "authenticated" })
	assert.Equal(t, first.username, f.Username)
	assert.Equal(t, second.client, f.ClientName)

	// The reclaimed identity still holds its seat
	second.send(map[string]string{"type": "game_info", "room_name": "zephiel"})
	game := second.awaitGame("waiting", 2)
	assert.Equal(t, first.username, game.Players[1].Name)
}

func TestReclaimClosesLiveSocket(t *testing.T) {
	ts := startTestServer(t)

	first := ts.dial(t)
	first.createUser()
	first.send(map[string]string{"type": "join_room", "room_name": "ellios"})
	first.await(func(f frame) bool { return f.Type == "joined_room" })

	second := ts.dial(t)
	second.send(map[string]string{"type": "authenticate", "username": first.username, "client_name": first.client})
	second.await(func(f frame) bool { return f.Type == "authenticated" })

	require.NoError(t, first.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := first.conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
	}
	assert.Eventually(t, func() bool { return ts.app.WebSocket.ActiveConnections() == 1 }, 5*time.Second, 10*time.Millisecond)

	// The seat moved with the identity
	second.send(map[string]string{"type": "game_info", "room_name": "ellios"})
	game := second.awaitGame("waiting", 2)
	assert.Equal(t, first.username, game.Players[1].Name)
}

func TestAPIReflectsSocketActivity(t *testing.T) {
	ts := startTestServer(t)

	p := ts.dial(t)
	p.createUser()
	p.send(map[string]string{"type": "join_room", "room_name": "ellios"})
	p.await(func(f frame) bool { return f.Type == "joined_room" })

	resp, err := http.Get("http://" + ts.addr + "/api/v1/rooms/ellios")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var room roomView
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	assert.Equal(t, []string{p.username}, room.Occupants)

	health, err := http.Get("http://" + ts.addr + "/api/v1/health")
	require.NoError(t, err)
	defer func() { _ = health.Body.Close() }()
	var body struct {
		Connections int `json:"connections"`
	}
	require.NoError(t, json.NewDecoder(health.Body).Decode(&body))
	assert.Equal(t, 1, body.Connections)
}

func TestShutdownClosesSockets(t *testing.T) {
	ts := startTestServer(t)

	p := ts.dial(t)
	p.createUser()

	require.NoError(t, ts.server.Shutdown(context.Background()))
	require.NoError(t, <-ts.done)

	require.NoError(t, p.conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		if _, _, err := p.conn.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway), err.Error())
			break
		}
	}
	assert.Equal(t, 0, ts.app.WebSocket.ActiveConnections())
}
