// Command migrate applies the GORM schema and checks the connection.
package main

import (
	"fmt"
	"os"

	"github.com/sahilchouksey/kpi-tracker-api/config"
	"github.com/sahilchouksey/kpi-tracker-api/database"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadENV(); err != nil {
		return err
	}
	env, err := config.Get()
	if err != nil {
		return err
	}

	log, err := logger.New(env.GO_ENV)
	if err != nil {
		return err
	}
	defer log.Sync()

	store, err := database.StartGORM(env, log)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return err
	}
	if err := store.HealthCheck(); err != nil {
		return fmt.Errorf("health check: %w", err)
	}

	log.Info("migrations applied", "tables", len(database.Models()))
	return nil
}
