package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pbaricco/kimai-cli/internal/config"
	"github.com/pbaricco/kimai-cli/internal/logger"
	"github.com/pbaricco/kimai-cli/internal/storage"
)

var (
	configPath string
	dbPath     string
	verbose    bool
	logFile    string

	cfg      config.Config
	log      = zap.NewNop()
	closeLog = func() error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "kimai-cli",
	Short: "kimai-cli – timesheet export and git based gap filling",
	Long: `kimai-cli works on a local Kimai-style timesheet database.

It exports timesheets in several formats (optionally by e-mail) and offers an
interactive day-by-day review that puts git commits next to logged timesheets
so missing entries can be added.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute is the entry point called from main.
func Execute() {
	err := rootCmd.Execute()
	_ = log.Sync()
	_ = closeLog()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.kimai-cli/config.json)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Timesheet database (default from config, else ~/.kimai-cli/kimai.db)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug diagnostics")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Write diagnostics to this file instead of stderr")

	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(fillGapsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(dbCmd)
}

// setup loads .env, the config file and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	var err error
	cfg, err = config.Load(configPath)
	if err != nil {
		return err
	}

	_ = closeLog()
	log, closeLog, err = logger.New(verbose, logFile)
	if err != nil {
		return err
	}
	log.Debug("configuration loaded",
		zap.String("config", configPath),
		zap.Int("customers", len(cfg.Git.Repositories)))
	return nil
}

// openStore opens the database chosen by --db, the config file or the default.
func openStore() (*storage.Store, error) {
	path := dbPath
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		p, err := storage.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	log.Debug("opening database", zap.String("path", path))
	return storage.Open(path)
}
