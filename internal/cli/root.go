package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "automod",
	Short: "automod - a community moderation bot",
	Long: `automod polls a set of moderated communities' submission, comment,
spam, and report queues, evaluates each item against a YAML rule document
published on the community's wiki, and takes the matching action: remove,
approve, report, flair, comment, or message. Credentials and poll
intervals come from AUTOMOD_* environment variables; see "automod status".`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
