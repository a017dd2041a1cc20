package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/mattn/go-isatty"
	_ "modernc.org/sqlite"

	"github.com/cineclub/cineforum/cliparse"
	"github.com/cineclub/cineforum/db"
	"github.com/cineclub/cineforum/live"
	"github.com/cineclub/cineforum/middleware"
	"github.com/cineclub/cineforum/oracle"
	"github.com/cineclub/cineforum/router"
	"github.com/cineclub/cineforum/session"
)

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	// Text logs for terminals, JSON for anything collecting them
	if isatty.IsTerminal(os.Stdout.Fd()) {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, nil)))
	} else {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	driver := "postgres"
	if cfg.DatabaseType == "sqlite" {
		driver = "sqlite"
	}
	dbConn, err := sql.Open(driver, cfg.DatabaseURL)
	if err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	defer dbConn.Close()

	if cfg.DatabaseType == "sqlite" {
		// sqlite allows one writer; a single connection avoids
		// SQLITE_BUSY under concurrent transactions
		dbConn.SetMaxOpenConns(1)
	}

	if err := dbConn.Ping(); err != nil {
		slog.Error("database ping failed", "error", err)
		os.Exit(1)
	}

	if err := db.CreateSchema(dbConn); err != nil {
		slog.Error("schema creation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "driver", driver)

	store := session.NewStore(dbConn)

	var routerOracle router.Oracle
	if cfg.OracleURL != "" {
		client := oracle.NewClient(cfg.OracleURL, cfg.OracleTimeout)
		routerOracle = router.Oracle{Decider: client, Text: client}
		slog.Info("Consensus oracle configured", "url", cfg.OracleURL)
	} else {
		slog.Warn("No consensus oracle configured; slot resolution and moderator lines disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := live.NewHub()
	go hub.Run(ctx)

	mux := router.NewRouter(store, cfg, routerOracle, hub)

	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		cancel()
		server.Close()
	}()

	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
