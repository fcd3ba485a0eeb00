package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var inboxCmd = &cobra.Command{
	Use:   "inbox",
	Short: "Process unread inbox messages once and exit",
	Long: `Inbox fetches and acts on unread messages to the bot account once: rule
updates, Standards Cache updates, the owner's sleep command, and moderator
invitations. "automod run" does this continuously as part of its poll
loop; this command is for manually draining the queue or debugging
command authorization without starting the full loop.

  automod inbox`,
	RunE: inboxCommand,
}

func init() {
	rootCmd.AddCommand(inboxCmd)
}

func inboxCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("starting up: %w", err)
	}
	defer a.OpLog.Close()

	result, err := a.Inbox.Process(context.Background(), a.Config.LastInboxMessage)
	if err != nil {
		return fmt.Errorf("processing inbox: %w", err)
	}

	fmt.Printf("processed %d message(s)\n", result.Processed)
	if len(result.Updated) > 0 {
		fmt.Printf("  rule sets updated: %v\n", result.Updated)
	}
	if result.StandardsUsed {
		fmt.Println("  standards cache refreshed")
	}
	if len(result.InvitesAccepted) > 0 {
		fmt.Printf("  invitations accepted: %v\n", result.InvitesAccepted)
	}
	return nil
}
