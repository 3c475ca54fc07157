package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"satellite-catalog/pkg/catalog"
	"satellite-catalog/pkg/settings"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	envFile string
	dbPath  string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "catalog",
		Short:         "Satellite product catalog",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "optional env file with catalog settings")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "catalog database path (overrides CATALOG_DB_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "set debug logging level")

	rootCmd.AddCommand(
		newInitCmd(opts),
		newHistoryCmd(opts),
		newMigrateCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}

func (o *rootOptions) settings() (*settings.Settings, error) {
	s, err := settings.Load(o.envFile)
	if err != nil {
		return nil, err
	}
	if o.dbPath != "" {
		s.DBPath = o.dbPath
	}
	return s, nil
}

func (o *rootOptions) openCatalog(log *slog.Logger) (*catalog.Handler, *settings.Settings, error) {
	s, err := o.settings()
	if err != nil {
		return nil, nil, err
	}
	if err := s.EnsureDirectories(); err != nil {
		return nil, nil, err
	}
	h, err := catalog.New(catalog.Options{Settings: s, Logger: log})
	if err != nil {
		return nil, nil, err
	}
	return h, s, nil
}
