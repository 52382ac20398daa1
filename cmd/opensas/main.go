// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (c) 2023-2026 Nicholas R. Perez

// Command opensas runs DATA step programs against a dataset catalog.
package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iamafool/opensas-sub001/internal/config"
	"github.com/iamafool/opensas-sub001/pkg/opensas"
)

// version is set by the build.
var version = "dev"

var (
	cfgFile   string
	dbPath    string
	logLevel  string
	errorMode string
)

var rootCmd = &cobra.Command{
	Use:   "opensas",
	Short: "DATA step interpreter",
	Long: `opensas runs DATA step programs. Datasets live in an in-memory
catalog or, with --db, in a SQLite file that persists between runs.

Examples:
  opensas run report.sas --db work.db
  opensas import people people.csv --db work.db
  opensas print people --db work.db
  opensas repl`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runREPL(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $"+config.EnvVar+", ./opensas.toml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite catalog path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&errorMode, "error-mode", "", "runtime error policy: skip_row, skip_statement, abort")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgFile != "" {
		cfg, err = config.Load(cfgFile)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Catalog.Driver = "sqlite"
		cfg.Catalog.Path = dbPath
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if errorMode != "" {
		cfg.Engine.ErrorMode = errorMode
	}
	return cfg, cfg.Validate()
}

// newLogger builds the diagnostics logger described by cfg.
func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	if cfg.Log.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(cfg.LogLevel()).With().Timestamp().Logger()
}

// openSession builds a session from the config and flags.
func openSession(cmd *cobra.Command) (*opensas.Session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	opts := []opensas.Option{
		opensas.WithLogger(newLogger(cfg, cmd.ErrOrStderr())),
		opensas.WithErrorMode(cfg.ErrorMode()),
		opensas.WithStepTimeout(cfg.Engine.StepTimeout.Duration),
	}
	if cfg.Catalog.Driver == "sqlite" {
		opts = append(opts, opensas.WithSQLiteCatalog(cfg.Catalog.Path))
	} else {
		opts = append(opts, opensas.WithMemoryCatalog())
	}
	s, err := opensas.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	return s, nil
}
