package main

import (
	"context"
	"errors"
	"os"

	"github.com/desertthunder/topspot/internal/shared"
	"github.com/joho/godotenv"
)

func main() {
	logger := shared.NewLogger(nil)

	// Client credentials may live in .env next to config.toml.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	config, err := shared.LoadConfigOrDefault(defaultConfigPath)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "error", err)
		config = shared.DefaultConfig()
	}

	if level, err := shared.ParseLogLevel(config.Log.Level); err != nil {
		logger.Warn("ignoring log level", "error", err)
	} else {
		shared.SetLogLevel(logger, level)
	}

	runner := NewRunner(RunnerOpts{
		Config:     config,
		ConfigPath: defaultConfigPath,
		Logger:     logger,
	})

	err = runner.command().Run(context.Background(), os.Args)
	runner.Close()

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}
