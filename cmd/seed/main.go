package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/farxc/pgben-schema/internal/db"
	"github.com/farxc/pgben-schema/internal/env"
	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/metrics"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/schema"
	"github.com/farxc/pgben-schema/internal/seed"
	"github.com/farxc/pgben-schema/internal/telemetry"
)

const component = "Main"

func main() {
	appLogger := logger.New(os.Stdout, logger.LevelInfo)

	if err := env.LoadDotEnv(); err != nil {
		appLogger.Warn(component, "Could not read .env: error=%v", err)
	}

	setsPtr := flag.String("sets", "", "Comma-separated seed sets to apply (default: all)")
	logLevelPtr := flag.String("loglevel", env.GetString("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	level, err := logger.ParseLevel(*logLevelPtr)
	if err != nil {
		appLogger.Warn(component, "Falling back to info level: error=%v", err)
	}
	appLogger.SetLogLevel(level)

	started := time.Now()
	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, "pgben-schema-seed")
	if err != nil {
		appLogger.Warn(component, "Tracing disabled: error=%v", err)
	}
	defer shutdown(ctx)

	cfg, err := db.LoadConfig()
	if err != nil {
		appLogger.Fatal(component, "Failed to load configuration: error=%v", err)
	}
	database, err := db.New(cfg)
	if err != nil {
		appLogger.Fatal(component, "Database connection failed: dsn=%s error=%v", cfg.Redacted(), err)
	}
	defer database.Close()

	var names []string
	if *setsPtr != "" {
		names = strings.Split(*setsPtr, ",")
	}

	runner := migrate.New(database, schema.Registry(), migrate.WithLogger(appLogger))
	seeder := seed.New(database, runner,
		seed.WithLogger(appLogger),
		seed.WithObserver(metrics.Default()))

	results, err := seeder.Run(ctx, names...)
	if err != nil {
		appLogger.Fatal(component, "Seeding failed: error=%v", err)
	}

	total := 0
	for _, r := range results {
		total += r.Rows
	}
	appLogger.Info(component, "Completed successfully: sets=%d rows=%d duration=%.2f seconds",
		len(results), total, time.Since(started).Seconds())
}
