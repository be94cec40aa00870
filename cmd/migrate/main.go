package main

import (
	"errors"
	"flag"
	"os"

	"github.com/Dhoini/Donation-platform/config"
	"github.com/Dhoini/Donation-platform/pkg/logger"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Применяет миграции схемы базы данных.
//
//	go run ./cmd/migrate            - накатить все миграции
//	go run ./cmd/migrate -down      - откатить одну миграцию
func main() {
	log := logger.New(logger.INFO)

	down := flag.Bool("down", false, "roll back the most recent migration")
	source := flag.String("source", "file://migrations", "migrations source URL")
	flag.Parse()

	cfg, err := config.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load configuration: %v", err)
	}

	dsn := cfg.Database.DSN
	if dsn == "" {
		log.Fatal("DATABASE_DSN is not configured")
	}

	m, err := migrate.New(*source, dsn)
	if err != nil {
		log.Fatal("Failed to initialize migrator: %v", err)
	}
	defer m.Close()

	if *down {
		err = m.Steps(-1)
	} else {
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("No schema changes to apply")
			os.Exit(0)
		}
		log.Fatal("Migration failed: %v", err)
	}

	log.Info("Migrations applied successfully")
}
