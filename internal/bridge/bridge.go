// Package bridge wires the activity bridge together: store, connection
// lifecycle manager, event router, reply dispatcher and observer hub.
// One Session exists per process, constructed at startup and torn down
// at shutdown; there are no package-level globals.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nothingworksright/unblinkingbot/internal/config"
	"github.com/nothingworksright/unblinkingbot/internal/observer"
	"github.com/nothingworksright/unblinkingbot/internal/retention"
	"github.com/nothingworksright/unblinkingbot/internal/router"
	"github.com/nothingworksright/unblinkingbot/internal/slack"
	"github.com/nothingworksright/unblinkingbot/internal/store"
	"github.com/nothingworksright/unblinkingbot/internal/web"
)

// Session is the process-wide context: every component the bridge is
// made of, held by reference and shared explicitly.
type Session struct {
	Config  *config.Config
	Store   *store.Store
	Hub     *observer.Hub
	Manager *slack.Manager
	Router  *router.Router

	logger *slog.Logger
}

// New constructs a session from configuration. factory supplies the
// chat platform connection; production callers pass slack.RTMFactory.
func New(cfg *config.Config, factory slack.Factory, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	st, err := store.Open(store.Config{Path: cfg.DatabasePath, Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("bridge: %w", err)
	}

	hub := observer.NewHub(logger)
	manager := slack.NewManager(factory, hub, logger)
	dispatcher := router.NewDispatcher(manager, logger)
	rt := router.New(
		router.Config{BotName: cfg.BotName, Retain: cfg.RetainCount},
		st,
		store.NewKeyer(cfg.ActivityPrefix),
		manager,
		dispatcher,
		manager.Self,
		hub,
		logger,
	)

	return &Session{
		Config:  cfg,
		Store:   st,
		Hub:     hub,
		Manager: manager,
		Router:  rt,
		logger:  logger,
	}, nil
}

// StartSlack runs the startup sequence for the chat connection: reset
// any stale connection, read the stored token, connect and start the
// handshake. A missing or empty token is a configuration error the
// caller decides how to surface; no connection attempt is made.
func (s *Session) StartSlack(ctx context.Context) error {
	s.Manager.Disconnect("startup reset")

	token, err := s.Store.Get(ctx, slack.TokenKey)
	if errors.Is(err, store.ErrNotFound) || (err == nil && len(token) == 0) {
		return fmt.Errorf("bridge: no Slack token stored under %s; set one with: unblinkingbot token <value>", slack.TokenKey)
	}
	if err != nil {
		return fmt.Errorf("bridge: reading token: %w", err)
	}

	if err := s.Manager.Connect(string(token)); err != nil {
		return err
	}
	s.Manager.Start()
	return nil
}

// Run starts the router loop and the web surface, attempts the chat
// connection, and blocks until ctx is cancelled. A token configuration
// error is surfaced in the log but does not stop the web surface, so
// the token can still be set while the process runs.
func (s *Session) Run(ctx context.Context) error {
	go s.Router.Run(ctx, s.Manager.Events())

	sweep := retention.NewService(s.Store, s.Config.ActivityPrefix, s.Config.RetainCount, 0, s.logger)
	go sweep.Run(ctx)

	if err := s.StartSlack(ctx); err != nil {
		s.logger.Error("slack startup skipped", "err", err)
	}

	srv := web.New(s.Config.Addr(), s.Hub, s.Manager, s.logger)
	return srv.Run(ctx)
}

// Close tears the session down: connection first, then observers, then
// storage.
func (s *Session) Close() {
	s.Manager.Disconnect("shutdown")
	s.Hub.Close()
	if err := s.Store.Close(); err != nil {
		s.logger.Warn("closing store", "err", err)
	}
}
