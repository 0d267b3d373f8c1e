package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/rileyL6122428/FriEnds-backend/internal/factory"
)

type CLISuite struct {
	suite.Suite
	app          *factory.TestApp
	server       *httptest.Server
	identityFile string
}

func TestCLISuite(t *testing.T) {
	suite.Run(t, new(CLISuite))
}

func (s *CLISuite) SetupTest() {
	s.app = factory.NewTestApp()
	s.app.MockRandom.QueueIntn(0)
	s.Require().NoError(s.app.Seed(context.Background(), []string{"ellios", "zephiel"}, false))

	s.server = httptest.NewServer(s.app.Handler())
	s.identityFile = filepath.Join(s.T().TempDir(), "identity.yaml")
}

func (s *CLISuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(s.app.Close())
}

// run executes fectl against the test server and returns stdout
func (s *CLISuite) run(args ...string) (string, error) {
	fullArgs := append([]string{
		"--server", s.server.URL,
		"--identity-file", s.identityFile,
	}, args...)

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetArgs(fullArgs)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

// frames decodes JSON lines printed by connect --output json
func (s *CLISuite) frames(out string) []Frame {
	var frames []Frame
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var f Frame
		s.Require().NoError(json.Unmarshal([]byte(line), &f), line)
		frames = append(frames, f)
	}
	return frames
}

func (s *CLISuite) TestHealth() {
	out, err := s.run("health")
	s.Require().NoError(err)
	s.Contains(out, "Status: ok")
	s.Contains(out, "Connections: 0")

	out, err = s.run("health", "-o", "json")
	s.Require().NoError(err)
	var result HealthResult
	s.Require().NoError(json.Unmarshal([]byte(out), &result))
	s.Equal("ok", result.Status)
}

func (s *CLISuite) TestRoomsList() {
	out, err := s.run("rooms", "list", "-o", "json")
	s.Require().NoError(err)

	var result RoomList
	s.Require().NoError(json.Unmarshal([]byte(out), &result))
	s.Require().Len(result.Rooms, 2)
	s.Equal("ellios", result.Rooms[0].Name)
	s.Equal(2, result.Rooms[0].Capacity)
	s.Empty(result.Rooms[0].Occupants)

	out, err = s.run("rooms", "list")
	s.Require().NoError(err)
	s.Contains(out, "ellios")
	s.Contains(out, "0/2")
}

func (s *CLISuite) TestRoomsGetUnknown() {
	_, err := s.run("rooms", "get", "nowhere")
	s.Require().Error(err)
	s.Contains(err.Error(), "ROOM_NOT_FOUND")
}

func (s *CLISuite) TestConnectCreatesAndJoins() {
	s.app.MockRandom.QueueIntn(3, 42)

	out, err := s.run("connect", "--join", "ellios", "--game", "--until", "game_info", "-o", "json")
	s.Require().NoError(err)

	frames := s.frames(out)
	s.Require().GreaterOrEqual(len(frames), 3)
	s.Equal(frameClientCreated, frames[0].Type())
	s.Equal(frameAuthenticated, frames[1].Type())
	s.Equal("Lyn42", frames[1].Field("username"))

	// The room's game_info broadcast may arrive before the join reply
	last := frames[len(frames)-1]
	s.Equal("game_info", last.Type())
	data, err := json.Marshal(last["game"])
	s.Require().NoError(err)
	var game GameInfo
	s.Require().NoError(json.Unmarshal(data, &game))
	s.Equal("waiting", game.State)
	s.Equal([]GamePlayer{{Name: "Environment"}, {Name: "Lyn42"}}, game.Players)

	saved, err := cfg.LoadIdentity()
	s.Require().NoError(err)
	s.Require().NotNil(saved)
	s.Equal("Lyn42", saved.Username)
	s.Equal(frames[1].Field("client_name"), saved.ClientName)

	// The identity keeps its seat after the socket closes
	out, err = s.run("rooms", "get", "ellios")
	s.Require().NoError(err)
	s.Contains(out, "Occupants: Lyn42")
}

func (s *CLISuite) TestConnectReclaimsSavedIdentity() {
	s.app.MockRandom.QueueIntn(5, 7)

	_, err := s.run("connect", "--until", "authenticated", "-o", "json")
	s.Require().NoError(err)

	out, err := s.run("connect", "--reclaim", "--until", "authenticated", "-o", "json")
	s.Require().NoError(err)

	frames := s.frames(out)
	s.Require().Len(frames, 2)
	s.Equal(frameAuthenticated, frames[1].Type())
	s.Equal("Roy7", frames[1].Field("username"))
}

func (s *CLISuite) TestConnectReclaimWithoutSavedIdentity() {
	_, err := s.run("connect", "--reclaim")
	s.Require().Error(err)
	s.Contains(err.Error(), "no saved identity")
}

func (s *CLISuite) TestConnectGameRequiresJoin() {
	_, err := s.run("connect", "--game")
	s.Require().Error(err)
	s.Contains(err.Error(), "--game requires --join")
}

func (s *CLISuite) TestConnectReportsRoomErrors() {
	out, err := s.run("connect", "--join", "nowhere", "--until", "room error")
	s.Require().NoError(err)
	s.Contains(out, "room error: Room not found")
}

func (s *CLISuite) TestGameShowsBoard() {
	out, err := s.run("game", "ellios")
	s.Require().NoError(err)
	s.Contains(out, "Room: ellios")
	s.Contains(out, "State: waiting")
	s.Contains(out, "Players: Environment")
	s.Contains(out, "B Brigand (0,0)")
}

func (s *CLISuite) TestWatchLobbyFeed() {
	out, err := s.run("watch", "--count", "1", "--json")
	s.Require().NoError(err)

	var evt SSEEvent
	s.Require().NoError(json.Unmarshal([]byte(strings.TrimSpace(out)), &evt))
	s.Equal("connected", evt.Event)
	s.JSONEq(`{"status":"connected"}`, string(evt.Data))
}

func (s *CLISuite) TestWatchUnknownRoom() {
	_, err := s.run("watch", "nowhere")
	s.Require().Error(err)
	s.Contains(err.Error(), "unexpected status: 404")
}

func (s *CLISuite) TestSeedAndReap() {
	path := filepath.Join(s.T().TempDir(), "friends.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("storage:\n  type: memory\nrooms:\n  - ellios\n  - zephiel\n"), 0600))

	out, err := s.run("seed", "--config", path)
	s.Require().NoError(err)
	s.Equal("Seeded rooms: ellios, zephiel\n", out)

	out, err = s.run("seed", "--config", path, "--reset", "-o", "json", "lobby")
	s.Require().NoError(err)
	var seeded SeedResult
	s.Require().NoError(json.Unmarshal([]byte(out), &seeded))
	s.Equal(SeedResult{Rooms: []string{"lobby"}, Reset: true}, seeded)

	out, err = s.run("reap", "--config", path)
	s.Require().NoError(err)
	s.Contains(out, "Anonymous connections deleted: 0")
	s.Contains(out, "Evicted from rooms: 0")
}

func (s *CLISuite) TestMaintenanceRejectsInvalidConfig() {
	path := filepath.Join(s.T().TempDir(), "friends.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("storage:\n  type: cassandra\n"), 0600))

	_, err := s.run("reap", "--config", path)
	s.Require().Error(err)
}

func TestWebSocketURL(t *testing.T) {
	tests := []struct {
		server  string
		want    string
		wantErr bool
	}{
		{server: "http://localhost:8080", want: "ws://localhost:8080/ws"},
		{server: "https://friends.example.com/", want: "wss://friends.example.com/ws"},
		{server: "ws://127.0.0.1:9000", want: "ws://127.0.0.1:9000/ws"},
		{server: "ftp://example.com", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.server, func(t *testing.T) {
			got, err := NewClient(tt.server).WebSocketURL()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadIdentityMissingFile(t *testing.T) {
	c := DefaultConfig()
	c.IdentityFile = filepath.Join(t.TempDir(), "missing", "identity.yaml")

	id, err := c.LoadIdentity()
	require.NoError(t, err)
	assert.Nil(t, id)

	require.NoError(t, c.SaveIdentity(SavedIdentity{Username: "Lyn42", ClientName: "uuid-1"}))
	id, err = c.LoadIdentity()
	require.NoError(t, err)
	assert.Equal(t, &SavedIdentity{Username: "Lyn42", ClientName: "uuid-1"}, id)
}
