package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"

	"github.com/dukerupert/homecrew/internal/auth"
	"github.com/dukerupert/homecrew/internal/config"
	"github.com/dukerupert/homecrew/internal/database"
	"github.com/dukerupert/homecrew/internal/logging"
	"github.com/dukerupert/homecrew/internal/server"
)

// runContext is passed to every command's Run method.
type runContext struct {
	cfg    *config.Config
	logger *slog.Logger
}

var cli struct {
	EnvFile string `help:"Optional .env file read before the environment." default:".env" type:"path"`

	Serve   serveCmd   `cmd:"" default:"1" help:"Run the HTTP API."`
	Migrate migrateCmd `cmd:"" help:"Apply database migrations and print the schema version."`
	Token   tokenCmd   `cmd:"" help:"Mint a bearer token for a user id."`
}

type serveCmd struct{}

func (serveCmd) Run(rc *runContext) error {
	if err := rc.cfg.RequireSecrets(); err != nil {
		return err
	}
	db, err := database.Open(rc.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := server.New(db, server.Config{
		JWTSecret:     rc.cfg.JWTSecret,
		CursorSecret:  rc.cfg.CursorSecret,
		PINTTL:        rc.cfg.PINTTL,
		JoinRateLimit: rc.cfg.JoinRateLimit,
	}, rc.logger)

	httpServer := &http.Server{
		Addr:              ":" + rc.cfg.Port,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go srv.RateLimiter().RunCleanup(cleanupCtx, 10*time.Minute)

	errCh := make(chan error, 1)
	go func() {
		rc.logger.Info("homecrew starting", "addr", httpServer.Addr, "db", rc.cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}

	rc.logger.Info("shutting down")
	cleanupCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

type migrateCmd struct{}

func (migrateCmd) Run(rc *runContext) error {
	// Open applies pending migrations.
	db, err := database.Open(rc.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	v, err := database.Version(context.Background(), db)
	if err != nil {
		return err
	}
	rc.logger.Info("database migrated", "db", rc.cfg.DBPath, "version", v)
	return nil
}

type tokenCmd struct {
	User string        `help:"User id (UUID) to mint the token for." required:""`
	TTL  time.Duration `help:"Token lifetime." default:"24h"`
}

func (c tokenCmd) Validate() error {
	if err := uuid.Validate(c.User); err != nil {
		return fmt.Errorf("--user must be a UUID")
	}
	if c.TTL <= 0 {
		return fmt.Errorf("--ttl must be positive")
	}
	return nil
}

func (c tokenCmd) Run(rc *runContext) error {
	if err := rc.cfg.RequireSecrets(); err != nil {
		return err
	}
	token, err := auth.NewTokens(rc.cfg.JWTSecret).Mint(c.User, c.TTL)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	kctx := kong.Parse(&cli,
		kong.Name("homecrew"),
		kong.Description("Household chore tracker API."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(cli.EnvFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	if err := kctx.Run(&runContext{cfg: cfg, logger: logger}); err != nil {
		logger.Error("command failed", "command", kctx.Command(), "error", err)
		os.Exit(1)
	}
}
