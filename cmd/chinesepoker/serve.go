package main

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lox/chinesepoker/cmd/chinesepoker/shared"
	"github.com/lox/chinesepoker/internal/chinese"
	"github.com/lox/chinesepoker/internal/history"
	"github.com/lox/chinesepoker/internal/randutil"
	"github.com/lox/chinesepoker/internal/server"
	"github.com/lox/chinesepoker/internal/store"
)

// ServeCmd runs the websocket server
type ServeCmd struct {
	Config     string `short:"c" default:"chinesepoker-server.hcl" help:"Path to HCL configuration file"`
	Addr       string `short:"a" help:"Listen address, e.g. :8080 (overrides config)"`
	Debug      bool   `help:"Enable debug logging"`
	Seed       *int64 `help:"Deterministic RNG seed for room shuffles (optional)"`
	DataDir    string `help:"Directory for room snapshots (overrides config)"`
	HistoryDir string `help:"Directory for round history records (overrides config)"`
	Strict     bool   `help:"Reject out of range placements instead of ignoring them"`
}

// options turns the loaded configuration into server options and the rooms to preload.
func (c *ServeCmd) options(cfg *server.ServerConfig, seed int64) ([]server.Option, []string) {
	opts := []server.Option{server.WithSeed(seed)}
	if cfg.Server.StrictPlacement {
		opts = append(opts, server.WithPolicy(chinese.PolicyStrict))
	}
	if cfg.Server.DataDir != "" {
		opts = append(opts,
			server.WithStore(store.New(cfg.Server.DataDir)),
			server.WithAutosave(cfg.AutosaveInterval()),
		)
	}
	if cfg.Server.HistoryDir != "" {
		opts = append(opts, server.WithHistory(history.NewWriter(cfg.Server.HistoryDir)))
	}

	rooms := make([]string, 0, len(cfg.Rooms))
	for _, room := range cfg.Rooms {
		rooms = append(rooms, room.Name)
		if room.Seed != nil {
			opts = append(opts, server.WithRoomSeed(room.Name, *room.Seed))
		}
	}
	return opts, rooms
}

// load reads the config file and applies command line overrides.
func (c *ServeCmd) load() (*server.ServerConfig, error) {
	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if c.Debug {
		cfg.Server.LogLevel = "debug"
	}
	if c.DataDir != "" {
		cfg.Server.DataDir = c.DataDir
	}
	if c.HistoryDir != "" {
		cfg.Server.HistoryDir = c.HistoryDir
	}
	if c.Strict {
		cfg.Server.StrictPlacement = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *ServeCmd) Run() error {
	cfg, err := c.load()
	if err != nil {
		return err
	}
	logger := shared.SetupLoggerLevel(cfg.Server.LogLevel)

	seed, fixed := randutil.Seed(c.Seed)
	if fixed {
		logger.Info("Using deterministic seed", "seed", seed)
	} else {
		logger.Info("Using random seed", "seed", seed)
	}

	addr := cfg.GetServerAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	opts, rooms := c.options(cfg, seed)
	srv := server.NewServer(addr, logger, opts...)
	if err := srv.Preload(rooms...); err != nil {
		_ = srv.Stop(context.Background())
		return fmt.Errorf("failed to load rooms: %w", err)
	}

	logger.Info("Starting Chinese Poker server",
		"addr", addr,
		"rooms", len(srv.Rooms()),
		"strict", cfg.Server.StrictPlacement,
		"data_dir", cfg.Server.DataDir,
		"history_dir", cfg.Server.HistoryDir)

	ctx := shared.SetupSignalHandlerWithLogger(logger)
	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}
