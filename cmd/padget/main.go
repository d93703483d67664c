package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"padget/internal/config"
	"padget/internal/history"
	"padget/internal/logging"
	"padget/internal/store"
)

var (
	// Global flags
	verbose    bool
	configPath string
	dataPath   string

	cfg      *config.Config
	logger   *zap.Logger
	activity *history.Log
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "padget",
	Short: "PAdGET - shared catalogue of presentation links",
	Long: `padget keeps a shared catalogue of presentation links (Google Slides decks and
web presentations) in a single JSON document.

Every change rewrites the document. Other padget processes pointed at the same
file pick the change up on their next poll; the last save wins.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zc := zap.NewProductionConfig()
		if verbose {
			zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zc.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dataPath != "" {
			cfg.Store.Path = dataPath
		}
		if verbose {
			cfg.Logging.DebugMode = true
			cfg.Logging.Level = "debug"
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config %s: %w", configPath, err)
		}
		if err := logging.Initialize(cfg.Logging.Dir, cfg.Logging.Options()); err != nil {
			logger.Warn("Category logging disabled", zap.Error(err))
		}
		logging.Boot("command %q store=%s", cmd.CommandPath(), cfg.Store.Path)
		logger.Debug("Configuration loaded",
			zap.String("config", configPath),
			zap.String("store", cfg.Store.Path))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeActivity()
		logging.CloseAll()
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Config file")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "Record document (overrides store.path)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(touchCmd)
	rootCmd.AddCommand(removeCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore loads the configured document. A malformed document is reported
// rather than silently treated as empty. With history enabled every change
// made through the store lands in the activity log.
func openStore() (*store.Store, error) {
	st, err := store.Open(cfg.Store.Path, store.WithFileLock(cfg.Store.Lock))
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}
	logger.Debug("Store opened", zap.String("path", st.Path()), zap.Int("records", st.Len()))

	if cfg.History.Enabled {
		hist, err := openActivity()
		if err != nil {
			logger.Warn("Activity log unavailable", zap.Error(err))
		} else {
			hist.Subscribe(st)
		}
	}
	return st, nil
}

// openActivity opens the activity log once per process.
func openActivity() (*history.Log, error) {
	if activity != nil {
		return activity, nil
	}
	hist, err := history.Open(cfg.History.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open activity log: %w", err)
	}
	activity = hist
	return activity, nil
}

func closeActivity() {
	if activity == nil {
		return
	}
	if err := activity.Close(); err != nil {
		logger.Warn("Failed to close activity log", zap.Error(err))
	}
	activity = nil
}
