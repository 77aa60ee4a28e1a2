package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newPresenceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Online presence commands",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List online players",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Presence

			if err := client.Get("/api/v1/presence", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <true|false>",
		Short: "Mark yourself online or offline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			online, err := strconv.ParseBool(args[0])
			if err != nil {
				return fmt.Errorf("invalid online flag %q", args[0])
			}

			var result Presence
			if err := client.Put("/api/v1/presence", map[string]bool{"online": online}, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	})

	return cmd
}
