package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyL6122428/FriEnds-backend/internal/api"
	"github.com/rileyL6122428/FriEnds-backend/internal/api/apierr"
	"github.com/rileyL6122428/FriEnds-backend/internal/api/response"
	"github.com/rileyL6122428/FriEnds-backend/internal/factory"
	"github.com/rileyL6122428/FriEnds-backend/internal/model"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/game"
	"github.com/rileyL6122428/FriEnds-backend/internal/services/room"
	"github.com/rileyL6122428/FriEnds-backend/internal/testutil"
)

// testServer creates a test server with all dependencies
type testServer struct {
	handler http.Handler
	app     *factory.TestApp
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })
	require.NoError(t, app.Seed(context.Background(), []string{"ellios", "zephiel"}, false))

	router := api.NewRouter(api.RouterConfig{
		Logger:      testutil.NopLogger(),
		Rooms:       app.Directory,
		WebSocket:   app.WebSocket,
		Connections: app.WebSocket,
	})

	return &testServer{handler: router, app: app}
}

func (ts *testServer) request(method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// join puts a fresh identity named username into a room
func (ts *testServer) join(t *testing.T, username, roomName string) {
	t.Helper()
	ctx := context.Background()

	conn, err := ts.app.AuthService.Connect(ctx)
	require.NoError(t, err)
	identity := &model.Identity{
		ID:           model.IdentityID("id-" + username),
		Username:     username,
		ConnectionID: conn.ID,
	}
	require.NoError(t, ts.app.Storage.SaveIdentity(ctx, identity))
	_, _, err = ts.app.Directory.JoinRoom(ctx, identity, roomName)
	require.NoError(t, err)
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))

	var resp response.Health
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Zero(t, resp.Connections)
}

func TestListRooms(t *testing.T) {
	ts := newTestServer(t)
	ts.join(t, "Lyn42", "ellios")

	rr := ts.request(http.MethodGet, "/api/v1/rooms")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.RoomList
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Rooms, 2)

	assert.Equal(t, response.Room{
		Name:      "ellios",
		Capacity:  model.RoomCapacity,
		Occupants: []string{"Lyn42"},
		State:     string(model.GameStateWaiting),
	}, resp.Rooms[0])
	assert.Equal(t, "zephiel", resp.Rooms[1].Name)
	assert.Empty(t, resp.Rooms[1].Occupants)
}

func TestListRoomsEncodesEmptyOccupantsAsArray(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"occupants":[]`)
}

func TestGetRoom(t *testing.T) {
	ts := newTestServer(t)
	ts.join(t, "Lyn42", "ellios")
	ts.join(t, "Roy7", "ellios")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/ellios")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp response.Room
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, []string{"Lyn42", "Roy7"}, resp.Occupants)
	assert.Equal(t, string(model.GameStatePlaying), resp.State)
}

func TestGetUnknownRoom(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/api/v1/rooms/nowhere")
	assert.Equal(t, http.StatusNotFound, rr.Code)

	var resp apierr.ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, apierr.CodeRoomNotFound, resp.Error.Code)
}

func TestGetRoomGame(t *testing.T) {
	ts := newTestServer(t)
	ts.join(t, "Lyn42", "ellios")

	rr := ts.request(http.MethodGet, "/api/v1/rooms/ellios/game")
	require.Equal(t, http.StatusOK, rr.Code)

	var resp struct {
		Room string    `json:"room"`
		Game game.Info `json:"game"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ellios", resp.Room)
	assert.Equal(t, model.GameStateWaiting, resp.Game.State)
	assert.Equal(t, []game.InfoPlayer{{Name: "Environment"}, {Name: "Lyn42"}}, resp.Game.Players)
	assert.Equal(t, game.InfoGrid{Cols: 10, Rows: 10}, resp.Game.Grid)
	assert.Len(t, resp.Game.BoardPieces, 2)

	rr = ts.request(http.MethodGet, "/api/v1/rooms/nowhere/game")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodPost, "/api/v1/rooms")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.request(http.MethodGet, "/ws")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

type failingRooms struct{}

func (failingRooms) Summaries(context.Context) ([]room.Summary, error) {
	panic("storage exploded")
}

func (failingRooms) Summary(context.Context, string) (room.Summary, error) {
	return room.Summary{}, context.DeadlineExceeded
}

func (failingRooms) RoomGameInfo(context.Context, string) (game.Info, error) {
	return game.Info{}, model.ErrGameNotFound
}

func TestErrorsAndPanicsBecomeJSON(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{Logger: testutil.NopLogger(), Rooms: failingRooms{}})

	tests := []struct {
		path   string
		status int
		code   string
	}{
		{"/api/v1/rooms", http.StatusInternalServerError, apierr.CodeInternalError},
		{"/api/v1/rooms/ellios", http.StatusInternalServerError, apierr.CodeInternalError},
		{"/api/v1/rooms/ellios/game", http.StatusNotFound, apierr.CodeGameNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rr.Code)
			var resp apierr.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, apierr.Status(model.ErrRoomNotFound))
	assert.Equal(t, http.StatusBadRequest, apierr.Status(model.MissingField("room_name")))
	assert.Equal(t, http.StatusConflict, apierr.Status(model.ErrRoomFull))
	assert.Equal(t, http.StatusBadRequest, apierr.Status(apierr.NewInvalidRequestError("bad")))
}
