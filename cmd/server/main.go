// Crewdeck - Project Management and Team Collaboration
// Copyright 2026 Crewdeck Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/crewdeck/crewdeck

// Command server runs the Crewdeck API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crewdeck/crewdeck/internal/api"
	"github.com/crewdeck/crewdeck/internal/audit"
	"github.com/crewdeck/crewdeck/internal/auth"
	"github.com/crewdeck/crewdeck/internal/authz"
	"github.com/crewdeck/crewdeck/internal/config"
	"github.com/crewdeck/crewdeck/internal/logging"
	"github.com/crewdeck/crewdeck/internal/models"
	"github.com/crewdeck/crewdeck/internal/store"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	if err := os.MkdirAll(cfg.Storage.Dir, 0o700); err != nil {
		return fmt.Errorf("failed to create storage directory: %w", err)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := bootstrapAdmin(context.Background(), cfg, st); err != nil {
		return err
	}

	tokens, err := auth.NewTokenManager(&cfg.Security)
	if err != nil {
		return err
	}
	tracker := auth.NewLockoutTracker(st.Users, auth.LockoutConfig{
		Threshold: cfg.Security.LockoutThreshold,
		Duration:  cfg.Security.LockoutDuration,
	})
	resolver := auth.NewResolver(st.Users)
	authMW := auth.NewMiddleware(tokens, resolver)

	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		return err
	}
	defer enforcer.Close()

	recorder := audit.NewRecorder(st.Audit)
	handlers := api.NewHandlers(cfg, st, tokens, tracker, recorder)
	router := api.NewRouter(cfg, handlers, authMW, authz.NewMiddleware(enforcer))

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().
			Str("addr", server.Addr).
			Str("environment", cfg.Server.Environment).
			Msg("Server listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// bootstrapAdmin seeds the first admin account when the user table is
// empty. There is no self-registration; without this seed a fresh
// deployment has no way in.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, st *store.Store) error {
	n, err := st.Users.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	email := cfg.Security.BootstrapAdminEmail
	password := cfg.Security.BootstrapAdminPassword
	if email == "" || password == "" {
		return errors.New("user table is empty and no bootstrap admin is configured")
	}
	if len(password) < cfg.Security.MinPasswordLength {
		return errors.New("bootstrap admin password is too short")
	}

	hash, err := auth.HashPassword(password, cfg.Security.BcryptCost)
	if err != nil {
		return err
	}
	admin := &models.User{
		Email:        email,
		Name:         "Administrator",
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		Active:       true,
	}
	if err := st.Users.CreateUser(ctx, admin); err != nil {
		return err
	}

	logging.Info().Str("email", admin.Email).Msg("Bootstrap admin created")
	return nil
}
