package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/ciwatch/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/ciwatch/internal/adapter/driving/web"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the notification loop and the local web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	notifications := a.notificationService(false)
	go notifications.Start(ctx)

	mux := http.NewServeMux()
	apiHandler := httphandler.NewHandler(a.repoStore, a.prStore, a.settingsStore, a.muteStore, a.history,
		notifications, a.checks, a.credentials, a.logger)
	httphandler.RegisterAPIRoutes(mux, apiHandler)
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(a.checks, a.history, a.logger))

	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, a.logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server starting", "addr", a.cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	a.logger.Info("ciwatch started",
		"version", version,
		"listen_addr", a.cfg.ListenAddr,
		"poll_interval", a.cfg.PollInterval,
	)

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		return err
	}
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("http server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}
