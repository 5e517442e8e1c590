package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/inferx-io/inferx-console/internal/api"
	"github.com/inferx-io/inferx-console/internal/config"
	"github.com/inferx-io/inferx-console/internal/console"
	"github.com/inferx-io/inferx-console/internal/session"
	"github.com/inferx-io/inferx-console/internal/storage"
)

const logFileName = "inferx-console.log"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	config.LoadEnvFile()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// JOURNAL_STREAM is set by systemd when running as a service. Skip file
	// logging under systemd; journald handles it.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	} else {
		// Local development: log to both stderr and file
		logFile, err := os.OpenFile(logFileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open log file")
		}
		defer logFile.Close()

		consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}
		fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
		log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	}

	store, err := storage.NewSQLiteStore(cfg.DBPath, storage.DeriveKey(cfg.TokenKey))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize session store")
	}
	defer store.Close()
	log.Info().Str("dbPath", cfg.DBPath).Msg("session store initialized")

	// The client and the session manager reference each other: the client
	// pulls tokens through the manager, the manager refreshes through the
	// client.
	client := api.NewClient(api.ClientOpts{BaseURL: cfg.APIBaseURL})
	manager := session.NewManager(session.ManagerOpts{
		Store:     store,
		Refresher: client,
		OnExpired: func() {
			log.Warn().Msg("session expired, log in again from the console")
		},
	})
	client.SetTokenSource(manager)

	manager.Resume()

	srv, err := console.NewServer(client, manager)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize console")
	}

	// Create context that cancels on SIGINT or SIGTERM
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	httpServer := &http.Server{Addr: cfg.ListenAddr, Handler: srv.Router()}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("console listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return manager.Run(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error().Err(err).Msg("shutdown with error")
	} else {
		log.Info().Msg("shutdown complete")
	}
}
