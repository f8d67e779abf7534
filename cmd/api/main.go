package main

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/farxc/pgben-schema/internal/db"
	"github.com/farxc/pgben-schema/internal/env"
	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/metrics"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/schema"
	"github.com/farxc/pgben-schema/internal/store"
	"github.com/farxc/pgben-schema/internal/telemetry"
)

const component = "API"

func main() {
	appLogger := logger.New(os.Stdout, logger.LevelInfo)

	dbCfg, err := db.LoadConfig()
	if err != nil {
		appLogger.Fatal(component, "Failed to load configuration: error=%v", err)
	}
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		appLogger.Fatal(component, "Failed to parse configuration: error=%v", err)
	}
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		appLogger.Warn(component, "Falling back to info level: error=%v", err)
	}
	appLogger.SetLogLevel(level)

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, "pgben-schema-api")
	if err != nil {
		appLogger.Warn(component, "Tracing disabled: error=%v", err)
	}
	defer shutdown(ctx)

	database, err := db.New(dbCfg)
	if err != nil {
		appLogger.Fatal(component, "Database connection failed: dsn=%s error=%v", dbCfg.Redacted(), err)
	}
	defer database.Close()
	appLogger.Info(component, "Database connection pool established")

	storage := store.NewStorage(database)
	runner := migrate.New(database, schema.Registry(),
		migrate.WithLogger(appLogger),
		migrate.WithObserver(metrics.Default()))

	app := &application{
		config:     cfg,
		db:         database,
		catalog:    storage.Catalog,
		migrations: runner,
		metrics:    promhttp.Handler(),
		logger:     appLogger,
	}

	if err := app.run(app.mount()); err != nil {
		appLogger.Fatal(component, "Server stopped: error=%v", err)
	}
}
