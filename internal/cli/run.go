package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/modwiki/automod/internal/config"
	"github.com/modwiki/automod/internal/metrics"
)

// inboxPollInterval is fixed rather than config-driven: the inbox is
// cheap to poll (one request for unread messages) and spec §6 gives it
// no separate interval of its own.
const inboxPollInterval = 30 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the moderation poll loop",
	Long: `Run starts automod's polling loop: every AUTOMOD_POLL_INTERVAL it walks
every enabled community's submission, comment, spam, and report queues,
evaluates each new item against that community's published rule set, and
applies the winning condition's action. Runs until interrupted.

  automod run`,
	RunE: runCommand,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runCommand(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return fmt.Errorf("starting up: %w", err)
	}
	defer a.OpLog.Close()

	if err := ensureStorageDir(a.Config); err != nil {
		return fmt.Errorf("preparing storage directory: %w", err)
	}

	communities, err := a.enabledCommunities(context.Background())
	if err != nil {
		return fmt.Errorf("listing enabled communities: %w", err)
	}
	for _, c := range communities {
		if c.ConditionsYAML == "" {
			continue
		}
		if err := a.refreshCommunity(context.Background(), c.Name, "startup"); err != nil {
			slog.Default().Warn("compiling rule set at startup, community disabled until next update", "community", c.Name, "error", err)
		}
	}

	if srv := metrics.StartServer(a.Config.MetricsListen, a.Config.MetricsPath, a.Metrics, slog.Default()); srv != nil {
		defer srv.Shutdown()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go inboxLoop(ctx, a)

	a.Scheduler.RunForever(ctx, a.enabledCommunities, a.Config.PollInterval)
	return nil
}

func inboxLoop(ctx context.Context, a *app) {
	for {
		result, err := a.Inbox.Process(ctx, a.Config.LastInboxMessage)
		if err != nil {
			slog.Default().Warn("processing inbox", "error", err)
		} else if !result.NewCursor.IsZero() {
			a.Config.LastInboxMessage = result.NewCursor
			if err := config.SaveState(a.Config.StateFile, config.State{LastInboxMessage: result.NewCursor}); err != nil {
				slog.Default().Warn("persisting inbox cursor", "error", err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(inboxPollInterval):
		}
	}
}
