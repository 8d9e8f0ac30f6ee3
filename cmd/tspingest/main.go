package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/frederic-klein/tspingest/internal/config"
	"github.com/frederic-klein/tspingest/internal/logging"
)

// app carries state shared by every subcommand once the root command has
// loaded configuration.
type app struct {
	configPath  string
	logLevel    string
	database    string
	verbose     bool
	development bool

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "tspingest",
		Short: "Parse and catalogue TSPLIB routing problems",
		Long: "tspingest parses TSPLIB-style problem files (TSP, ATSP, VRP, HCP, SOP and tours) " +
			"into a canonical record, stores them in SQLite and answers distance queries.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (default ./"+config.DefaultFile+" if present)")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	flags.StringVar(&a.database, "database", "", "SQLite database path")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Verbose output (debug logging)")
	flags.BoolVar(&a.development, "dev", false, "Human readable console logs")

	rootCmd.AddCommand(
		a.parseCmd(),
		a.ingestCmd(),
		a.watchCmd(),
		a.fetchCmd(),
		a.listCmd(),
		a.showCmd(),
		a.distanceCmd(),
	)
	return rootCmd
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	if a.verbose {
		cfg.LogLevel = "debug"
	}
	if a.database != "" {
		cfg.Database = a.database
	}
	if a.development {
		cfg.Development = true
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers, _ = cmd.Flags().GetInt("workers")
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.MetricsFile, _ = cmd.Flags().GetString("metrics-file")
	}
	if cmd.Flags().Changed("mirror") {
		cfg.Mirror, _ = cmd.Flags().GetString("mirror")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	logger.Debug("configuration loaded",
		zap.String("database", cfg.Database),
		zap.Int("workers", cfg.Workers),
		zap.Strings("include", cfg.Include),
	)
	return nil
}
