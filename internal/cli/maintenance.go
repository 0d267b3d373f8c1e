package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rileyL6122428/FriEnds-backend/internal/config"
	"github.com/rileyL6122428/FriEnds-backend/internal/factory"
)

// openApp builds the application from the server configuration. Logs go
// to logs so they never mix with command output.
func openApp(ctx context.Context, logs io.Writer) (*factory.App, *config.Config, error) {
	serverCfg, err := config.Load(cfg.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Verbose {
		serverCfg.Log.Level = "warn"
	}
	app, err := factory.New(ctx, serverCfg, serverCfg.Log.NewLoggerTo(logs))
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return app, serverCfg, nil
}

func newSeedCmd() *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "seed [room...]",
		Short: "Create rooms that do not exist yet",
		Long: `Create each named room, or the rooms listed in the configuration when
none are named. Existing rooms are left alone unless --reset is given, which
empties them and deletes their occupants' identities.

Runs directly against the configured storage backend, not the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, serverCfg, err := openApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			rooms := args
			if len(rooms) == 0 {
				rooms = serverCfg.Rooms
			}
			if err := app.Seed(ctx, rooms, reset); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(SeedResult{Rooms: rooms, Reset: reset})
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "Empty rooms that already exist")

	return cmd
}

func newReapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reap",
		Short: "Run one staleness sweep against the configured storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			app, _, err := openApp(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()

			result, err := app.Reaper.Run(ctx)
			if err != nil {
				return err
			}

			reaped := make([]string, 0, len(result.Reaped))
			for _, identity := range result.Reaped {
				reaped = append(reaped, identity.Username)
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(ReapResult{
				Anonymous: result.AnonymousDeleted,
				Abandoned: result.AbandonedDeleted,
				Evicted:   result.Evicted,
				Reaped:    reaped,
			})
			return nil
		},
	}
}
