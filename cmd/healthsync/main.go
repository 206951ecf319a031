// Command healthsync is an operator surface over the health-tracking
// client: record symptoms and metrics, inspect local state, and drive
// the sync engine by hand. The embedding UI is out of scope; this
// binary exists so the engine is reachable end-to-end without one.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dtgoitia/healthsync/internal/changequeue"
	"github.com/dtgoitia/healthsync/internal/config"
	"github.com/dtgoitia/healthsync/internal/coordinator"
	"github.com/dtgoitia/healthsync/internal/kv"
	"github.com/dtgoitia/healthsync/internal/localstore"
	"github.com/dtgoitia/healthsync/internal/metricstore"
	"github.com/dtgoitia/healthsync/internal/settingsstore"
	"github.com/dtgoitia/healthsync/internal/symptomstore"
	"github.com/dtgoitia/healthsync/internal/syncengine"
	"github.com/dtgoitia/healthsync/internal/trie"
)

var (
	dataDir     string
	configPath  string
	verboseFlag bool
)

var rootCmd = &cobra.Command{
	Use:           "healthsync",
	Short:         "Offline-first symptom and metric tracker with remote sync",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	home, _ := os.UserHomeDir()
	defaultDir := filepath.Join(home, ".healthsync")

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDir, "Directory holding the local data file")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", filepath.Join(defaultDir, "config.yaml"), "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// appState is everything a subcommand needs: the wired store graph
// with the coordinator already draining events in the background.
type appState struct {
	cfg      config.Config
	store    *kv.FileStore
	local    *localstore.Store
	symptoms *symptomstore.Store
	metrics  *metricstore.Store
	settings *settingsstore.Store
	queue    *changequeue.Queue
	engine   *syncengine.Engine
	coord    *coordinator.Coordinator
	logger   *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// openApp loads the persisted snapshot, initializes the stores from
// it, and starts the coordinator. Callers must defer app.close() so
// mutations made just before exit still reach disk.
func openApp() (*appState, error) {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	store, err := kv.NewFileStore(filepath.Join(dataDir, "healthsync.json"))
	if err != nil {
		return nil, err
	}
	local := localstore.New(store, cfg.StoragePrefix)

	snapshot, err := local.LoadAll()
	if err != nil {
		return nil, err
	}
	seedSettingsFromFile(&snapshot.Settings, configPath)

	symptoms := symptomstore.New(trie.New())
	if err := symptoms.Initialize(snapshot.Symptoms); err != nil {
		return nil, err
	}
	metrics := metricstore.New()
	if err := metrics.Initialize(snapshot.Metrics); err != nil {
		return nil, err
	}
	settings := settingsstore.New()
	settings.Initialize(snapshot.Settings)

	queue := changequeue.Load(snapshot.Queue)
	engine := syncengine.New(newSettingsRemote(settings, logger), local, symptoms, metrics, settings, queue, cfg, logger)
	coord := coordinator.New(local, symptoms, metrics, settings, engine, logger)

	ctx, cancel := context.WithCancel(context.Background())
	app := &appState{
		cfg: cfg, store: store, local: local,
		symptoms: symptoms, metrics: metrics, settings: settings,
		queue: queue, engine: engine, coord: coord, logger: logger,
		cancel: cancel, done: make(chan struct{}),
	}
	go func() {
		coord.Run(ctx)
		close(app.done)
	}()
	return app, nil
}

// close stops the coordinator and waits for its final event drain.
func (a *appState) close() {
	a.cancel()
	<-a.done
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
