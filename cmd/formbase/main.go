package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/formbase/formbase/internal/auth"
	"github.com/formbase/formbase/internal/catalog"
	"github.com/formbase/formbase/internal/config"
	"github.com/formbase/formbase/internal/crud"
	"github.com/formbase/formbase/internal/database/postgres"
	"github.com/formbase/formbase/internal/logging"
	"github.com/formbase/formbase/internal/schema"
	"github.com/formbase/formbase/internal/server"
)

func main() {
	configDir := flag.String("config", "", "directory containing formbase.yaml")
	flag.Parse()

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, cleanup := logging.Setup(cfg.Logging)
	defer cleanup()

	driver := postgres.New(cfg.Database.MaxConns, cfg.Database.MinConns)

	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.Connect(connectCtx, cfg.Database.DSN()); err != nil {
		log.Error("database connection failed", "host", cfg.Database.Host, "error", err)
		os.Exit(1)
	}
	defer driver.Close()
	log.Info("connected", "database", driver.DatabaseName())

	cat := catalog.New(driver, log)
	if err := cat.EnsureSchema(connectCtx); err != nil {
		log.Error("catalog schema setup failed", "error", err)
		os.Exit(1)
	}
	if err := cat.Reload(connectCtx); err != nil {
		log.Error("catalog reload failed", "error", err)
		os.Exit(1)
	}

	engine := schema.NewEngine(driver, cat, log)
	crudSvc := crud.NewService(driver, log)
	authSvc := auth.NewService(auth.Config{
		Username:     cfg.Auth.Username,
		PasswordHash: cfg.Auth.PasswordHash,
		Secret:       cfg.Auth.Secret,
		TokenTTL:     cfg.Auth.TokenTTL,
	})

	srv := server.New(cfg.Server, driver, engine, crudSvc, cat, authSvc, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Listen(cfg.Server.Addr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error("server stopped", "error", err)
			os.Exit(1)
		}
	case sig := <-stop:
		log.Info("shutting down", "signal", sig.String())
		if err := srv.Shutdown(); err != nil {
			log.Error("shutdown failed", "error", err)
		}
	}
}
