package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session commands",
	}

	cmd.AddCommand(newSessionListCmd())
	cmd.AddCommand(newSessionActiveCmd())
	cmd.AddCommand(newSessionGetCmd())
	cmd.AddCommand(newSessionMovesCmd())
	cmd.AddCommand(newSessionMoveCmd())
	for _, action := range []string{"finish", "pause", "resume"} {
		cmd.AddCommand(newSessionLifecycleCmd(action))
	}

	return cmd
}

func parseSessionArg(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid session id %q", arg)
	}
	return id, nil
}

func newSessionListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []Session

			if err := client.Get("/api/v1/sessions", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionActiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show your active session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Session

			if err := client.Get("/api/v1/sessions/active", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionArg(args[0])
			if err != nil {
				return err
			}

			var result Session
			if err := client.Get(fmt.Sprintf("/api/v1/sessions/%d", id), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionMovesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "moves <id>",
		Short: "List the moves of a session in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionArg(args[0])
			if err != nil {
				return err
			}

			var result []Move
			if err := client.Get(fmt.Sprintf("/api/v1/sessions/%d/moves", id), &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newSessionMoveCmd() *cobra.Command {
	var piece string

	cmd := &cobra.Command{
		Use:   "move <id> <from> <to>",
		Short: "Submit a move",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionArg(args[0])
			if err != nil {
				return err
			}

			req := map[string]string{
				"from":  args[1],
				"to":    args[2],
				"piece": piece,
			}
			var result Move

			if err := client.Post(fmt.Sprintf("/api/v1/sessions/%d/moves", id), req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&piece, "piece", "", "Piece being moved (required)")
	_ = cmd.MarkFlagRequired("piece")

	return cmd
}

func newSessionLifecycleCmd(action string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <id>",
		Short: fmt.Sprintf("%s a session", capitalize(action)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseSessionArg(args[0])
			if err != nil {
				return err
			}

			var result Session
			if err := client.Post(fmt.Sprintf("/api/v1/sessions/%d/%s", id, action), nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
