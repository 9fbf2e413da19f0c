// Copyright 2026 The Wavelink Authors
// SPDX-License-Identifier: Apache-2.0

// Wavelink-daemon is the session-hosting process. It keeps every
// configured messaging session connected to the relay gateway, exposes
// the local REST API for pairing and status queries, archives inbound
// messages, and answers the built-in chat commands.
//
// On startup:
//  1. Loads configuration (WAVELINK_CONFIG / --config, env overrides).
//  2. Opens the credential store and the message archive.
//  3. Redeploys every session that already has credentials on disk.
//  4. Serves the API until SIGINT/SIGTERM, then drains sessions.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/wavelink-chat/wavelink/command"
	"github.com/wavelink-chat/wavelink/credstore"
	"github.com/wavelink-chat/wavelink/gateway"
	"github.com/wavelink-chat/wavelink/lib/config"
	"github.com/wavelink-chat/wavelink/lib/version"
	"github.com/wavelink-chat/wavelink/msglog"
	"github.com/wavelink-chat/wavelink/protocol/wire"
	"github.com/wavelink-chat/wavelink/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		showVersion bool
	)
	pflag.StringVar(&configPath, "config", "", "path to wavelink.yaml (overrides WAVELINK_CONFIG)")
	pflag.BoolVar(&showVersion, "version", false, "print version information and exit")
	pflag.Parse()

	if showVersion {
		fmt.Printf("wavelink-daemon %s\n", version.Info())
		return nil
	}

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	pairingTimeout, err := cfg.PairingTimeoutDuration()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := credstore.New(cfg.CredentialsDir(), logger)
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}

	archive, err := msglog.Open(msglog.Config{
		Path:   cfg.MessageLogPath(),
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("opening message archive: %w", err)
	}
	defer archive.Close()

	manager := session.NewManager(session.ManagerConfig{
		Store:  store,
		Dialer: &wire.Dialer{GatewayURL: cfg.GatewayURL, Logger: logger},
		Handler: session.Chain(
			archive,
			&command.Handler{OwnerContact: cfg.OwnerContact, Logger: logger},
		),
		Logger: logger,
	})

	redeployPaired(ctx, store, manager, logger)

	api := gateway.NewAPI(gateway.APIConfig{
		Manager:        manager,
		PairingTimeout: pairingTimeout,
		Logger:         logger,
	})
	server := gateway.NewServer(gateway.ServerConfig{
		Address: cfg.ListenAddr(),
		Handler: api,
		Logger:  logger,

		// The generate endpoint blocks for up to the pairing
		// timeout before it writes anything.
		WriteTimeout: pairingTimeout + 30*time.Second,
	})

	logger.Info("wavelink daemon starting",
		"version", version.Info(),
		"port", cfg.Port,
		"gateway", cfg.GatewayURL,
		"data_dir", cfg.DataDir,
	)

	serveErr := server.Serve(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := manager.Shutdown(shutdownCtx); err != nil {
		logger.Error("session shutdown incomplete", "error", err)
	}
	return serveErr
}

// redeployPaired restarts every session that already holds credentials
// on disk. Pairing survives daemon restarts; callers should not need
// to POST /api/deploy after every boot.
func redeployPaired(ctx context.Context, store *credstore.Store, manager *session.Manager, logger *slog.Logger) {
	paired, err := store.Paired()
	if err != nil {
		logger.Error("scanning for paired sessions", "error", err)
		return
	}
	for _, sessionID := range paired {
		if _, err := manager.EnsureStarted(ctx, sessionID); err != nil {
			// A failed boot deploy is not fatal; the session can
			// be deployed again through the API.
			logger.Error("redeploying session", "session_id", sessionID, "error", err)
			continue
		}
		logger.Info("redeployed session", "session_id", sessionID)
	}
}
