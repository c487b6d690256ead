package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"weather_favorites/internal/config"
	"weather_favorites/internal/handlers"
	"weather_favorites/internal/logger"
	"weather_favorites/internal/repository"
	"weather_favorites/internal/repository/db"
	"weather_favorites/internal/server"
	"weather_favorites/internal/service"
)

const (
	configDir       = "configs"
	shutdownTimeout = 10 * time.Second
)

// @title                       Weather Favorites API
// @version                     1.0
// @description                 Accounts, saved locations, Open-Meteo proxy and AI weather advice.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	// load .env + configs/config.yml + environment
	cfg, err := config.Load(configDir)
	if err != nil {
		logger.Get(logger.InfoLevel, logger.ConsoleFormat).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	// open DB
	conn, dialect, err := openDB(cfg, log)
	if err != nil {
		log.Fatalw("failed to open database", "driver", cfg.DB.Driver, "err", err)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close database", "err", cerr)
		}
	}()

	// wire dependencies
	repos := repository.NewRepository(conn, dialect)
	services := service.NewService(repos, cfg)
	apiHandler := handlers.NewHandler(services, log, handlers.Options{
		LocationsRequireAuth: cfg.Locations.RequireAuth,
		AllowedOrigins:       cfg.CORS.AllowedOrigins,
		StreamInterval:       cfg.Weather.StreamInterval,
	})

	// start HTTP server
	srv := server.New(cfg.Port, apiHandler.InitRoutes())
	runHTTPServer(srv, log)
	log.Infow("server started", "port", cfg.Port, "db_driver", string(dialect), "locations_require_auth", cfg.Locations.RequireAuth)

	// graceful shutdown
	waitForShutdown(srv, log)
}

// openDB opens the configured store and makes sure the schema exists.
func openDB(cfg *config.Config, log *logger.Logger) (*sql.DB, db.Dialect, error) {
	dialect, err := db.ParseDialect(cfg.DB.Driver)
	if err != nil {
		return nil, dialect, err
	}
	if dialect == db.SQLite && cfg.DB.DSN == "" {
		log.Infow("db.dsn not set in config; using default file", "default", "app.db")
	}
	conn, err := db.Open(dialect, cfg.DB.DSN)
	return conn, dialect, err
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, log *logger.Logger) {
	go func() {
		if err := srv.Run(); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// open forecast streams and AI calls get a bounded grace period
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
