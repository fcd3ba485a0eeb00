package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/modwiki/automod/internal/config"
	"github.com/modwiki/automod/internal/logger"
)

var (
	logFilterCommunity string
	logFilterAction    string
	logFilterSkipped   bool
	logLast            int
	logSummary         bool
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "View and filter the operational log",
	Long: `View automod's operational log with filtering and summary options.

Examples:
  automod log                            # show all entries
  automod log --last 20                  # show last 20 entries
  automod log --community askhistory     # show one community's entries
  automod log --action remove            # show only removals
  automod log --skipped                  # show only skipped entries
  automod log --summary                  # show counts by action`,
	RunE: logCommand,
}

func init() {
	logCmd.Flags().StringVar(&logFilterCommunity, "community", "", "Filter by community name")
	logCmd.Flags().StringVar(&logFilterAction, "action", "", "Filter by action (remove, approve, report, ...)")
	logCmd.Flags().BoolVar(&logFilterSkipped, "skipped", false, "Show only skipped entries")
	logCmd.Flags().IntVar(&logLast, "last", 0, "Show last N entries")
	logCmd.Flags().BoolVar(&logSummary, "summary", false, "Show summary statistics")
	rootCmd.AddCommand(logCmd)
}

func logCommand(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	events, err := readOperationalLog(filepath.Join(cfg.StorageDir, "operations.jsonl"))
	if err != nil {
		return fmt.Errorf("reading operational log: %w", err)
	}
	if len(events) == 0 {
		fmt.Println("No log entries found.")
		return nil
	}

	filtered := filterEvents(events)
	if logLast > 0 && logLast < len(filtered) {
		filtered = filtered[len(filtered)-logLast:]
	}

	if logSummary {
		printLogSummary(events)
		return nil
	}
	printLogEvents(filtered)
	return nil
}

func readOperationalLog(path string) ([]logger.Event, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var events []logger.Event
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		var e logger.Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

func filterEvents(events []logger.Event) []logger.Event {
	if logFilterCommunity == "" && logFilterAction == "" && !logFilterSkipped {
		return events
	}
	var out []logger.Event
	for _, e := range events {
		if logFilterCommunity != "" && !strings.EqualFold(e.Community, logFilterCommunity) {
			continue
		}
		if logFilterAction != "" && !strings.EqualFold(e.Action, logFilterAction) {
			continue
		}
		if logFilterSkipped && !e.Skipped {
			continue
		}
		out = append(out, e)
	}
	return out
}

func printLogEvents(events []logger.Event) {
	for _, e := range events {
		marker := "✓"
		if e.Skipped {
			marker = "·"
		}
		fmt.Printf("%s %s %-14s %-10s %s\n", marker, e.Timestamp, e.Community, e.Action, e.ItemFullname)
		if e.SkipReason != "" {
			fmt.Printf("     skipped: %s\n", e.SkipReason)
		}
		if e.Error != "" {
			fmt.Printf("     error: %s\n", e.Error)
		}
	}
}

func printLogSummary(events []logger.Event) {
	counts := map[string]int{}
	skipped := 0
	errored := 0
	for _, e := range events {
		counts[e.Action]++
		if e.Skipped {
			skipped++
		}
		if e.Error != "" {
			errored++
		}
	}

	fmt.Println("Operational log summary")
	fmt.Printf("  total entries: %d\n", len(events))
	for action, n := range counts {
		fmt.Printf("  %-14s %d\n", action, n)
	}
	fmt.Printf("  skipped:       %d\n", skipped)
	fmt.Printf("  errors:        %d\n", errored)
}
