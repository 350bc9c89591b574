package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/congo-pay/abank/internal/clock"
	"github.com/congo-pay/abank/internal/config"
	"github.com/congo-pay/abank/internal/idgen"
	"github.com/congo-pay/abank/internal/infra"
	"github.com/congo-pay/abank/internal/ledger"
	"github.com/congo-pay/abank/internal/logging"
	"github.com/congo-pay/abank/internal/notification"
	"github.com/congo-pay/abank/internal/routes"
	"github.com/congo-pay/abank/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})

	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	backends, err := infra.Open(connectCtx, cfg, logger)
	cancelConnect()
	if err != nil {
		logger.Error("open store", "error", err)
		os.Exit(1)
	}
	defer backends.Close(logger)

	var notifier notification.Notifier = notification.NewLoggerNotifier(logger)
	if cfg.SMTP.Host != "" {
		notifier = notification.Multi{notifier, notification.NewSMTPNotifier(notification.SMTPConfig(cfg.SMTP))}
	}

	srv, err := server.New(cfg, routes.Deps{
		Repo:     ledger.NewRepository(backends.Store, logger),
		DB:       backends.DB,
		Cache:    backends.Cache,
		Logger:   logger,
		Notifier: notifier,
		Clock:    clock.System{},
		IDs:      idgen.UUID{},
	})
	if err != nil {
		logger.Error("build server", "error", err)
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server exited cleanly")
}
