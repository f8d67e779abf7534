package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"github.com/farxc/pgben-schema/internal/db"
	"github.com/farxc/pgben-schema/internal/diagnose"
	"github.com/farxc/pgben-schema/internal/env"
	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/schema"
	"github.com/farxc/pgben-schema/internal/store"
)

const component = "Main"

func main() {
	appLogger := logger.New(os.Stderr, logger.LevelWarn)

	if err := env.LoadDotEnv(); err != nil {
		appLogger.Warn(component, "Could not read .env: error=%v", err)
	}

	jsonPtr := flag.Bool("json", false, "Print the report as JSON")
	strictPtr := flag.Bool("strict", false, "Exit with status 1 when problems are found")
	logLevelPtr := flag.String("loglevel", env.GetString("LOG_LEVEL", "warn"), "Log level: debug, info, warn, error")
	flag.Parse()

	level, err := logger.ParseLevel(*logLevelPtr)
	if err != nil {
		appLogger.Warn(component, "Falling back to info level: error=%v", err)
	}
	appLogger.SetLogLevel(level)

	ctx := context.Background()

	cfg, err := db.LoadConfig()
	if err != nil {
		appLogger.Fatal(component, "Failed to load configuration: error=%v", err)
	}
	database, err := db.New(cfg)
	if err != nil {
		appLogger.Fatal(component, "Database connection failed: dsn=%s error=%v", cfg.Redacted(), err)
	}
	defer database.Close()

	storage := store.NewStorage(database)
	runner := migrate.New(database, schema.Registry(), migrate.WithLogger(appLogger))

	report, err := diagnose.Collect(ctx, storage.Catalog, runner)
	if err != nil {
		appLogger.Fatal(component, "Failed to collect report: error=%v", err)
	}

	if *jsonPtr {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(report)
	} else {
		err = report.WriteText(os.Stdout)
	}
	if err != nil {
		appLogger.Fatal(component, "Failed to write report: error=%v", err)
	}

	if problems := report.Problems(); *strictPtr && len(problems) > 0 {
		appLogger.Error(component, "Schema has problems: count=%d", len(problems))
		database.Close()
		os.Exit(1)
	}
}
