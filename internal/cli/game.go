package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newGameCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "game <room>",
		Short: "Show a room's game and board",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result RoomGame

			if err := client.Get("/api/v1/rooms/"+url.PathEscape(args[0])+"/game", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output, cmd.OutOrStdout())
			out.Print(result)
			return nil
		},
	}
}
