package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Config is the complete server configuration.
type Config struct {
	Server ServerSettings `hcl:"server,block"`
	Game   GameSettings   `hcl:"game,block"`
	Rooms  *RoomSettings  `hcl:"rooms,block"`
}

// ServerSettings contains listener-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// GameSettings contains the match parameters applied to every room.
type GameSettings struct {
	Ante          int `hcl:"ante,optional"`
	StartingChips int `hcl:"starting_chips,optional"`
	MaxHands      int `hcl:"max_hands,optional"`
}

// RoomSettings tunes room lifecycle timers. The block is optional; zero
// fields keep the built-in defaults.
type RoomSettings struct {
	AutoAdvanceSeconds int `hcl:"auto_advance_seconds,optional"`
	IdleTimeoutSeconds int `hcl:"idle_timeout_seconds,optional"`
}

// Timings converts the optional block into durations, zero meaning default.
func (c *Config) Timings() (autoAdvance, idle time.Duration) {
	if c.Rooms == nil {
		return 0, 0
	}
	return time.Duration(c.Rooms.AutoAdvanceSeconds) * time.Second,
		time.Duration(c.Rooms.IdleTimeoutSeconds) * time.Second
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Game: GameSettings{
			Ante:          5,
			StartingChips: 100,
			MaxHands:      10,
		},
	}
}

// LoadConfig loads configuration from an HCL file, falling back to defaults
// when the file does not exist.
func LoadConfig(filename string) (*Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config Config
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	defaults := DefaultConfig()
	if config.Server.Address == "" {
		config.Server.Address = defaults.Server.Address
	}
	if config.Server.Port == 0 {
		config.Server.Port = defaults.Server.Port
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = defaults.Server.LogLevel
	}
	if config.Game.Ante == 0 {
		config.Game.Ante = defaults.Game.Ante
	}
	if config.Game.StartingChips == 0 {
		config.Game.StartingChips = defaults.Game.StartingChips
	}
	if config.Game.MaxHands == 0 {
		config.Game.MaxHands = defaults.Game.MaxHands
	}

	return &config, nil
}

// Validate checks the configuration for contradictions.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Game.Ante <= 0 {
		return fmt.Errorf("ante must be positive, got %d", c.Game.Ante)
	}
	if c.Game.StartingChips < c.Game.Ante {
		return fmt.Errorf("starting chips %d cannot cover the ante %d", c.Game.StartingChips, c.Game.Ante)
	}
	if c.Game.MaxHands < 1 {
		return fmt.Errorf("max hands must be at least 1, got %d", c.Game.MaxHands)
	}
	if c.Rooms != nil {
		if c.Rooms.AutoAdvanceSeconds < 0 {
			return fmt.Errorf("auto_advance_seconds cannot be negative")
		}
		if c.Rooms.IdleTimeoutSeconds < 0 {
			return fmt.Errorf("idle_timeout_seconds cannot be negative")
		}
	}
	return nil
}

// ListenAddress returns the host:port the server binds to.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
