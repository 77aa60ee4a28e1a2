package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newInviteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Invitation handshake commands",
	}

	cmd.AddCommand(newInviteSendCmd())
	cmd.AddCommand(newInviteRespondCmd("accept", true))
	cmd.AddCommand(newInviteRespondCmd("decline", false))

	return cmd
}

func newInviteSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <player-id>",
		Short: "Invite an online player to a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/invites", map[string]string{"to": args[0]}, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Invite sent to %s", args[0]))
			return nil
		},
	}
}

func newInviteRespondCmd(use string, accept bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <proposer-id>",
		Short: fmt.Sprintf("%s an invite", capitalize(use)),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{"from": args[0], "accept": accept}
			var result InviteResult

			if err := client.Post("/api/v1/invites/respond", req, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
