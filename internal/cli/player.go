package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

// Frame types the session reacts to
const (
	frameClientCreated = "client_created"
	frameAuthenticated = "authenticated"
	frameJoinedRoom    = "joined_room"
)

// sessionOptions controls what a socket session does after connecting
type sessionOptions struct {
	Reclaim bool
	Join    string
	Game    bool
	Until   string
	Count   int
}

func newConnectCmd() *cobra.Command {
	var (
		opts    sessionOptions
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Open a player session over the WebSocket",
		Long: `Connect to the server's WebSocket endpoint as a player.

A fresh identity is created unless --reclaim is given, in which case the
identity saved by a previous session is reclaimed. The issued identity is
written to the identity file either way.

Every frame the server sends is printed. The session ends on Ctrl+C, after
--count frames, or once a frame of type --until arrives.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Game && opts.Join == "" {
				return errors.New("--game requires --join")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			wsURL, err := client.WebSocketURL()
			if err != nil {
				return err
			}
			return runSession(ctx, wsURL, opts, NewOutput(cfg.Output, cmd.OutOrStdout()))
		},
	}

	cmd.Flags().BoolVar(&opts.Reclaim, "reclaim", false, "Reclaim the saved identity instead of creating one")
	cmd.Flags().StringVar(&opts.Join, "join", "", "Room to join once authenticated")
	cmd.Flags().BoolVar(&opts.Game, "game", false, "Request the joined room's game")
	cmd.Flags().StringVar(&opts.Until, "until", "", "Exit after the first frame of this type")
	cmd.Flags().IntVar(&opts.Count, "count", 0, "Exit after this many frames (0 runs until interrupted)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Give up after this long (0 waits forever)")

	return cmd
}

func runSession(ctx context.Context, wsURL string, opts sessionOptions, out *Output) error {
	var saved *SavedIdentity
	if opts.Reclaim {
		var err error
		if saved, err = cfg.LoadIdentity(); err != nil {
			return err
		}
		if saved == nil {
			return fmt.Errorf("no saved identity in %s", cfg.IdentityFile)
		}
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("connection failed: %w", err)
	}
	defer func() { _ = conn.Close() }()

	// Closing the connection unblocks the read below
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	received := 0
	for {
		var frame Frame
		if err := conn.ReadJSON(&frame); err != nil {
			if ctx.Err() != nil {
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return fmt.Errorf("timed out after %d frames", received)
				}
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		out.Print(frame)
		received++

		if err := react(conn, frame, saved, opts); err != nil {
			return err
		}

		if opts.Until != "" && frame.Type() == opts.Until {
			return closeSession(conn)
		}
		if opts.Count > 0 && received >= opts.Count {
			return closeSession(conn)
		}
	}
}

// react sends the next request of the session in response to a frame
func react(conn *websocket.Conn, frame Frame, saved *SavedIdentity, opts sessionOptions) error {
	switch frame.Type() {
	case frameClientCreated:
		if saved != nil {
			return send(conn, map[string]string{
				"type":        "authenticate",
				"username":    saved.Username,
				"client_name": saved.ClientName,
			})
		}
		return send(conn, map[string]string{"type": "create_user"})

	case frameAuthenticated:
		if err := cfg.SaveIdentity(SavedIdentity{
			Username:   frame.Field("username"),
			ClientName: frame.Field("client_name"),
		}); err != nil {
			return fmt.Errorf("failed to save identity: %w", err)
		}
		if opts.Join != "" {
			return send(conn, map[string]string{"type": "join_room", "room_name": opts.Join})
		}

	case frameJoinedRoom:
		if opts.Game {
			return send(conn, map[string]string{"type": "game_info", "room_name": frame.Field("room_name")})
		}
	}
	return nil
}

func send(conn *websocket.Conn, msg map[string]string) error {
	if err := conn.WriteJSON(map[string]any{"message": msg}); err != nil {
		return fmt.Errorf("send %s: %w", msg["type"], err)
	}
	return nil
}

func closeSession(conn *websocket.Conn) error {
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return nil
}
