package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync tick, or keep syncing with --watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		watch, _ := cmd.Flags().GetBool("watch")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		statusCh := app.engine.StatusChanges(16)
		go func() {
			for ev := range statusCh {
				app.logger.Info("sync status", "status", ev.Status)
			}
		}()

		if !watch {
			return app.engine.SyncNow(ctx)
		}

		if err := app.coord.WatchSettingsFile(ctx, app.store.Path()); err != nil {
			app.logger.Warn("settings watch unavailable", "err", err)
		}
		fmt.Printf("Syncing every %s. Press Ctrl+C to stop.\n", app.cfg.RemoteLoopWait)
		app.engine.Run(ctx)
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync configuration and pending changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		settings := app.settings.Get()
		if settings.Configured() {
			fmt.Printf("Endpoint:        %s\n", *settings.APIUrl)
		} else {
			fmt.Println("Endpoint:        not configured")
		}
		if settings.LastPulledAt != nil {
			fmt.Printf("Last pulled at:  %s\n", settings.LastPulledAt.Local())
		} else {
			fmt.Println("Last pulled at:  never")
		}
		fmt.Printf("Pending changes: %d\n", app.queue.Len())

		if settings.Configured() {
			if err := app.engine.HealthCheck(cmd.Context()); err != nil {
				fmt.Printf("Server health:   unreachable (%v)\n", err)
			} else {
				fmt.Println("Server health:   ok")
			}
		}
		return nil
	},
}

var pushAllCmd = &cobra.Command{
	Use:   "push-all",
	Short: "Push every local symptom and metric in one bulk call",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := openApp()
		if err != nil {
			return err
		}
		defer app.close()

		result, err := app.engine.PushAll(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("Symptoms: %d pushed, %d failed\n", len(result.Symptoms.Succeeded), len(result.Symptoms.Failed))
		fmt.Printf("Metrics:  %d pushed, %d failed\n", len(result.Metrics.Succeeded), len(result.Metrics.Failed))
		for _, f := range result.Symptoms.Failed {
			fmt.Printf("  failed symptom %s: %s\n", f.ID, f.Error)
		}
		for _, f := range result.Metrics.Failed {
			fmt.Printf("  failed metric %s: %s\n", f.ID, f.Error)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().Bool("watch", false, "Keep syncing on the configured interval until interrupted")
	rootCmd.AddCommand(syncCmd, statusCmd, pushAllCmd)
}
