package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sahilchouksey/kpi-tracker-api/config"
	"github.com/sahilchouksey/kpi-tracker-api/database"
	"github.com/sahilchouksey/kpi-tracker-api/utils/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Seeding failed: %v\n", err)
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

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("KPI Tracker - Database Seeding")
	fmt.Println(separator)

	if err := store.Init(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if err := database.NewSeeder(store.DB(), env, log).SeedAll(); err != nil {
		return err
	}

	fmt.Println(separator)
	fmt.Println("🎉 Seeding completed successfully!")
	fmt.Println(separator)
	return nil
}
