package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter writing to w
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintf(o.w, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		_, _ = fmt.Fprintln(o.w, string(data))
	} else {
		_, _ = fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	if _, ok := data.(Frame); !ok {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case Room:
		o.printRoom(v)
	case RoomList:
		o.printRoomList(v)
	case RoomGame:
		o.printRoomGame(v)
	case Frame:
		o.printFrame(v)
	case SeedResult:
		o.printSeedResult(v)
	case ReapResult:
		o.printReapResult(v)
	default:
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// Room response type
type Room struct {
	Name      string   `json:"name"`
	Capacity  int      `json:"capacity"`
	Occupants []string `json:"occupants"`
	State     string   `json:"state,omitempty"`
}

// RoomList response type
type RoomList struct {
	Rooms []Room `json:"rooms"`
}

// RoomGame response type
type RoomGame struct {
	Room string   `json:"room"`
	Game GameInfo `json:"game"`
}

// GameInfo is a room's game as the server reports it
type GameInfo struct {
	State           string       `json:"state"`
	Players         []GamePlayer `json:"players"`
	RequiredPlayers int          `json:"requiredPlayers"`
	Grid            GameGrid     `json:"grid"`
	BoardPieces     []GamePiece  `json:"boardPieces"`
}

// GamePlayer response type
type GamePlayer struct {
	Name string `json:"name"`
}

// GameGrid response type
type GameGrid struct {
	Cols int `json:"cols"`
	Rows int `json:"rows"`
}

// GamePiece response type
type GamePiece struct {
	Name   string     `json:"name"`
	Row    int        `json:"row"`
	Col    int        `json:"col"`
	Player GamePlayer `json:"player"`
}

// Frame is one message received over the socket
type Frame map[string]any

// Type returns the frame's message type
func (f Frame) Type() string {
	t, _ := f["type"].(string)
	return t
}

// Field returns the named field when it holds a string
func (f Frame) Field(key string) string {
	s, _ := f[key].(string)
	return s
}

// SeedResult reports the rooms a seed run touched
type SeedResult struct {
	Rooms []string `json:"rooms"`
	Reset bool     `json:"reset"`
}

// ReapResult reports one reaper pass
type ReapResult struct {
	Anonymous int      `json:"anonymous"`
	Abandoned int      `json:"abandoned"`
	Evicted   int      `json:"evicted"`
	Reaped    []string `json:"reaped"`
}

func (o *Output) printHealthResult(h HealthResult) {
	_, _ = fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	_, _ = fmt.Fprintf(o.w, "Connections: %d\n", h.Connections)
}

func (o *Output) printRoom(r Room) {
	_, _ = fmt.Fprintf(o.w, "Room: %s\n", r.Name)
	_, _ = fmt.Fprintf(o.w, "Seats: %d/%d\n", len(r.Occupants), r.Capacity)
	if r.State != "" {
		_, _ = fmt.Fprintf(o.w, "Game: %s\n", r.State)
	}
	if len(r.Occupants) > 0 {
		_, _ = fmt.Fprintf(o.w, "Occupants: %s\n", strings.Join(r.Occupants, ", "))
	}
}

func (o *Output) printRoomList(l RoomList) {
	if len(l.Rooms) == 0 {
		_, _ = fmt.Fprintln(o.w, "No rooms")
		return
	}
	for _, r := range l.Rooms {
		occupants := "-"
		if len(r.Occupants) > 0 {
			occupants = strings.Join(r.Occupants, ", ")
		}
		_, _ = fmt.Fprintf(o.w, "%-16s %d/%d  %s\n", r.Name, len(r.Occupants), r.Capacity, occupants)
	}
}

func (o *Output) printRoomGame(g RoomGame) {
	_, _ = fmt.Fprintf(o.w, "Room: %s\n", g.Room)
	_, _ = fmt.Fprintf(o.w, "State: %s\n", g.Game.State)
	names := make([]string, 0, len(g.Game.Players))
	for _, p := range g.Game.Players {
		names = append(names, p.Name)
	}
	_, _ = fmt.Fprintf(o.w, "Players: %s\n", strings.Join(names, ", "))
	_, _ = fmt.Fprintln(o.w)
	o.printBoard(g.Game)
}

func (o *Output) printBoard(g GameInfo) {
	rows, cols := g.Grid.Rows, g.Grid.Cols
	if rows == 0 || cols == 0 {
		return
	}

	cells := make([][]string, rows)
	for r := range cells {
		cells[r] = make([]string, cols)
	}
	for _, p := range g.BoardPieces {
		if p.Row >= 0 && p.Row < rows && p.Col >= 0 && p.Col < cols {
			cells[p.Row][p.Col] = p.Name
		}
	}

	// Column headers
	_, _ = fmt.Fprint(o.w, "    ")
	for col := 0; col < cols; col++ {
		_, _ = fmt.Fprintf(o.w, " %d ", col%10)
	}
	_, _ = fmt.Fprintln(o.w)

	border := "   +" + strings.Repeat("---", cols) + "+"
	_, _ = fmt.Fprintln(o.w, border)
	for row := 0; row < rows; row++ {
		_, _ = fmt.Fprintf(o.w, "%2d |", row)
		for col := 0; col < cols; col++ {
			name := cells[row][col]
			if name == "" {
				_, _ = fmt.Fprint(o.w, " . ")
			} else {
				_, _ = fmt.Fprintf(o.w, " %c ", []rune(name)[0])
			}
		}
		_, _ = fmt.Fprintln(o.w, "|")
	}
	_, _ = fmt.Fprintln(o.w, border)

	for _, p := range g.BoardPieces {
		_, _ = fmt.Fprintf(o.w, "  %c %s (%d,%d)\n", []rune(p.Name)[0], p.Name, p.Row, p.Col)
	}
}

func (o *Output) printFrame(f Frame) {
	switch f.Type() {
	case "client_created":
		_, _ = fmt.Fprintf(o.w, "connected as client %s\n", f.Field("client_name"))
	case "authenticated":
		_, _ = fmt.Fprintf(o.w, "authenticated: %s\n", f.Field("username"))
	case "joined_room":
		_, _ = fmt.Fprintf(o.w, "joined room %s\n", f.Field("room_name"))
	case "left_room":
		_, _ = fmt.Fprintf(o.w, "left room %s\n", f.Field("room_name"))
	default:
		if msg := f.Field("error"); msg != "" {
			_, _ = fmt.Fprintf(o.w, "%s: %s\n", f.Type(), msg)
			return
		}
		data, _ := json.Marshal(f)
		_, _ = fmt.Fprintf(o.w, "%s: %s\n", f.Type(), data)
	}
}

func (o *Output) printSeedResult(s SeedResult) {
	verb := "Seeded"
	if s.Reset {
		verb = "Reset"
	}
	_, _ = fmt.Fprintf(o.w, "%s rooms: %s\n", verb, strings.Join(s.Rooms, ", "))
}

func (o *Output) printReapResult(r ReapResult) {
	_, _ = fmt.Fprintf(o.w, "Anonymous connections deleted: %d\n", r.Anonymous)
	_, _ = fmt.Fprintf(o.w, "Abandoned connections deleted: %d\n", r.Abandoned)
	_, _ = fmt.Fprintf(o.w, "Evicted from rooms: %d\n", r.Evicted)
	if len(r.Reaped) > 0 {
		_, _ = fmt.Fprintf(o.w, "Identities reaped: %s\n", strings.Join(r.Reaped, ", "))
	}
}
