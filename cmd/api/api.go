package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/farxc/pgben-schema/internal/diagnose"
	"github.com/farxc/pgben-schema/internal/logger"
	"github.com/farxc/pgben-schema/internal/migrate"
)

type application struct {
	config     config
	db         pinger
	catalog    diagnose.Catalog
	migrations migrationLister
	metrics    http.Handler
	logger     *logger.Logger
}

type config struct {
	Addr     string `env:"ADDR" envDefault:":8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

type pinger interface {
	PingContext(ctx context.Context) error
}

// migrationLister is the read-only side of *migrate.Runner.
type migrationLister interface {
	Status(ctx context.Context) ([]migrate.Status, error)
	Pending(ctx context.Context) ([]migrate.Status, error)
}

func (app *application) mount() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	if app.metrics != nil {
		r.Handle("/metrics", app.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", app.healthCheckHandler)
		r.Route("/migrations", func(r chi.Router) {
			r.Get("/", app.handleGetMigrations)
			r.Get("/pending", app.handleGetPendingMigrations)
		})
		r.Get("/schema/report", app.handleGetSchemaReport)
	})

	return r
}

func (app *application) run(mux http.Handler) error {
	srv := &http.Server{
		Addr:         app.config.Addr,
		Handler:      mux,
		WriteTimeout: time.Second * 120,
		ReadTimeout:  time.Second * 40,
		IdleTimeout:  time.Minute,
	}

	app.logger.Info(component, "Server started: addr=%s", app.config.Addr)
	return srv.ListenAndServe()
}
