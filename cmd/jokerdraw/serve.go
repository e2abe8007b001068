package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardtable/jokerdraw/internal/deck"
	"github.com/cardtable/jokerdraw/internal/game"
	"github.com/cardtable/jokerdraw/internal/room"
	"github.com/cardtable/jokerdraw/internal/server"
)

// ServeCmd runs the online room server.
type ServeCmd struct {
	Addr   string `kong:"help='Listen address, overrides the config file'"`
	Config string `kong:"default='jokerdraw.hcl',help='Path to HCL config file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	Seed   *int64 `kong:"help='Deterministic shuffle seed (testing only)'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := server.LoadConfig(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := setupLogger(c.Debug, cfg.Server.LogLevel)

	addr := cfg.ListenAddress()
	if c.Addr != "" {
		addr = c.Addr
	}

	var src deck.RandSource
	if c.Seed != nil {
		logger.Warn("using deterministic shuffle seed", "seed", *c.Seed)
		src = deck.SeededSource(*c.Seed)
	} else {
		src = deck.CryptoSource()
	}

	gameOpts := []game.Option{
		game.WithAnte(cfg.Game.Ante),
		game.WithStartingChips(cfg.Game.StartingChips),
		game.WithMaxHands(cfg.Game.MaxHands),
		game.WithRandSource(src),
	}

	autoAdvance, idle := cfg.Timings()
	s := server.NewServer(addr, logger)
	manager := room.NewManager(s, logger,
		room.WithGameOptions(gameOpts...),
		room.WithTimings(autoAdvance, idle))
	s.SetManager(manager)

	logger.Info("starting jokerdraw server",
		"addr", addr,
		"ante", cfg.Game.Ante,
		"starting_chips", cfg.Game.StartingChips,
		"max_hands", cfg.Game.MaxHands)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = s.Start(ctx)
	if ctx.Err() != nil {
		logger.Info("shut down cleanly")
		// Give in-flight close frames a moment before the process exits.
		time.Sleep(100 * time.Millisecond)
		return nil
	}
	return err
}
