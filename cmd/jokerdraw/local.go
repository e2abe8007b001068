package main

import (
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/cardtable/jokerdraw/internal/deck"
	"github.com/cardtable/jokerdraw/internal/game"
	"github.com/cardtable/jokerdraw/internal/local"
)

// LocalCmd runs a same-device match.
type LocalCmd struct {
	Ante     int    `kong:"default='5',help='Ante per hand'"`
	Chips    int    `kong:"default='100',help='Starting chip count'"`
	Hands    int    `kong:"default='10',help='Hands per match'"`
	Seed     *int64 `kong:"help='Deterministic shuffle seed (testing only)'"`
	DebugLog string `kong:"help='Write debug logs to this file'"`
}

func (c *LocalCmd) Run() error {
	// The TUI owns the terminal, so logs go to a file or nowhere.
	logger := log.New(io.Discard)
	if c.DebugLog != "" {
		f, err := openLogFile(c.DebugLog)
		if err != nil {
			return err
		}
		defer f.Close()
		logger = log.New(f)
		logger.SetLevel(log.DebugLevel)
	}

	var src deck.RandSource
	if c.Seed != nil {
		src = deck.SeededSource(*c.Seed)
	} else {
		src = deck.CryptoSource()
	}

	return local.Run(logger,
		game.WithAnte(c.Ante),
		game.WithStartingChips(c.Chips),
		game.WithMaxHands(c.Hands),
		game.WithRandSource(src),
	)
}

func openLogFile(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
