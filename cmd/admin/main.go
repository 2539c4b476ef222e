package main

import (
	"context"
	"fmt"
	"os"

	"github.com/C4T-BuT-S4D/trialbot/internal/config"
	"github.com/C4T-BuT-S4D/trialbot/internal/logging"
	"github.com/C4T-BuT-S4D/trialbot/internal/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	_ = godotenv.Load()

	config.SetupCommon()
	logging.Init()

	if err := newRootCmd(openStorage).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStorage(ctx context.Context) (AdminStore, error) {
	cfg := config.New()
	if err := cfg.ValidateDatabase(); err != nil {
		return nil, fmt.Errorf("invalid database config: %w", err)
	}
	logrus.Debugf("using %s database", cfg.DatabaseDriver)

	db, err := storage.Open(cfg)
	if err != nil {
		return nil, err
	}

	store := storage.New(db)
	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return store, nil
}
