package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modwiki/automod/internal/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show automod status — config, communities, standards, log size",
	Long: `Check automod's configuration and persisted state: which communities
are enabled, whether the Standards Cache has content, and how large the
action and operational logs have grown.

  automod status`,
	RunE: statusCommand,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func statusCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	fmt.Println("automod status")
	fmt.Printf("  version:     %s\n", Version)
	fmt.Printf("  owner:       %s\n", orNone(cfg.Owner))
	fmt.Printf("  storage dir: %s\n", cfg.StorageDir)
	fmt.Printf("  poll interval: %s\n", cfg.PollInterval)
	fmt.Println()

	a, err := newApp()
	if err != nil {
		fmt.Printf("  ⬚  could not open storage: %v\n", err)
		return nil
	}
	defer a.OpLog.Close()

	communities, err := a.Store.ListCommunities()
	if err != nil {
		fmt.Printf("  ⬚  could not list communities: %v\n", err)
	} else {
		fmt.Println("Communities:")
		if len(communities) == 0 {
			fmt.Println("  (none yet — accept a moderator invite to add one)")
		}
		for _, c := range communities {
			state := "disabled"
			if c.Enabled {
				state = "enabled"
			}
			fmt.Printf("  %-20s %s\n", c.Name, state)
		}
	}
	fmt.Println()

	fmt.Println("Standards Cache:")
	fmt.Printf("  version: %d\n", a.Context.Standards.Version())
	fmt.Println()

	fmt.Println("Logs:")
	checkLogFile("action log", cfg.StorageDir+"/actionlog.jsonl")
	checkLogFile("operational log", cfg.StorageDir+"/operations.jsonl")

	fmt.Println()
	fmt.Printf("Metrics endpoint: http://%s%s\n", cfg.MetricsListen, cfg.MetricsPath)

	return nil
}

func checkLogFile(name, path string) {
	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("  ⬚  %-16s not yet created\n", name)
		return
	}
	fmt.Printf("  ✅ %-16s %s (%d KB)\n", name, path, info.Size()/1024)
}

func orNone(s string) string {
	if s == "" {
		return "(none configured)"
	}
	return s
}
