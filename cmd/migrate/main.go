package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/farxc/pgben-schema/internal/db"
	"github.com/farxc/pgben-schema/internal/env"
	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/metrics"
	"github.com/farxc/pgben-schema/internal/migrate"
	"github.com/farxc/pgben-schema/internal/schema"
	"github.com/farxc/pgben-schema/internal/telemetry"
)

const component = "Main"

func main() {
	appLogger := logger.New(os.Stdout, logger.LevelInfo)

	if err := env.LoadDotEnv(); err != nil {
		appLogger.Warn(component, "Could not read .env: error=%v", err)
	}

	downPtr := flag.Int("down", 0, "Revert the last N applied units")
	redoPtr := flag.Bool("redo", false, "Revert and re-apply the last applied unit")
	statusPtr := flag.Bool("status", false, "Print the status of every unit and exit")
	continuePtr := flag.Bool("continue-on-error", false, "Keep applying later units after one fails")
	noWaitPtr := flag.Bool("nowait", false, "Fail instead of waiting when another runner holds the lock")
	logLevelPtr := flag.String("loglevel", env.GetString("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	level, err := logger.ParseLevel(*logLevelPtr)
	if err != nil {
		appLogger.Warn(component, "Falling back to info level: error=%v", err)
	}
	appLogger.SetLogLevel(level)

	started := time.Now()
	ctx := context.Background()

	shutdown, err := telemetry.Setup(ctx, "pgben-schema-migrate")
	if err != nil {
		appLogger.Warn(component, "Tracing disabled: error=%v", err)
	}
	defer shutdown(ctx)

	cfg, err := db.LoadConfig()
	if err != nil {
		appLogger.Fatal(component, "Failed to load configuration: error=%v", err)
	}
	if cfg.MaxOpenConns < 2 {
		cfg.MaxOpenConns = 2
	}
	database, err := db.New(cfg)
	if err != nil {
		appLogger.Fatal(component, "Database connection failed: dsn=%s error=%v", cfg.Redacted(), err)
	}
	defer database.Close()
	appLogger.Info(component, "Database connection pool established: dsn=%s", cfg.Redacted())

	opts := []migrate.Option{
		migrate.WithLogger(appLogger),
		migrate.WithObserver(metrics.Default()),
		migrate.WithContinueOnError(*continuePtr),
	}
	if *noWaitPtr {
		opts = append(opts, migrate.WithLockNoWait())
	}
	runner := migrate.New(database, schema.Registry(), opts...)

	var res *migrate.Result
	switch {
	case *statusPtr:
		if err := printStatus(ctx, runner); err != nil {
			appLogger.Fatal(component, "Failed to read status: error=%v", err)
		}
		return
	case *redoPtr:
		res, err = runner.Redo(ctx)
	case *downPtr > 0:
		res, err = runner.Down(ctx, *downPtr)
	default:
		res, err = runner.Up(ctx)
	}

	if res != nil {
		appLogger.Info(component, "Run summary: applied=%d reverted=%d skipped=%d failed=%d",
			len(res.Applied), len(res.Reverted), len(res.Skipped), len(res.Failed))
	}
	if err != nil {
		appLogger.Fatal(component, "Migration run failed: error=%v", err)
	}
	appLogger.Info(component, "Completed successfully: duration=%.2f seconds", time.Since(started).Seconds())
}

func printStatus(ctx context.Context, runner *migrate.Runner) error {
	statuses, err := runner.Status(ctx)
	if err != nil {
		return err
	}
	for _, st := range statuses {
		state := "pending"
		switch {
		case st.Orphan:
			state = "orphan"
		case st.Applied:
			state = "applied"
		}
		fmt.Printf("%d  %-32s %s\n", st.Version, st.Name, state)
	}
	return nil
}
