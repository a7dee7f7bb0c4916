package main

import (
	"fmt"
	"os"
	"time"

	"pathing/internal/config"
	"pathing/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	verbose    bool
	configPath string
	timeout    time.Duration

	// Resolved in PersistentPreRunE
	cfg    *config.Config
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "pathing",
	Short: "pathing - marker pack overlay core",
	Long: `pathing loads marker packs, tracks which markers the player has hidden
and keeps the live entity set in step with pack and category changes.

Hidden markers are persisted to SQLite so timed hides survive restarts.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}

		opts := cfg.Logging.Options()
		opts.Verbose = verbose
		if err := logging.Initialize(opts); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = logging.Root()
		logging.Boot("config loaded from %s", configPath)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logging.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "pathing.yaml", "Config file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	loadCmd.Flags().IntVar(&loadTicks, "ticks", 1, "Update ticks to run after loading")
	loadCmd.Flags().IntVar(&loadMap, "map", 0, "Current map id")
	interactCmd.Flags().IntVar(&loadMap, "map", 0, "Current map id")
	configCmd.Flags().BoolVar(&configWrite, "write", false, "Write the effective config to --config")

	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(interactCmd)
	rootCmd.AddCommand(hiddenCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
