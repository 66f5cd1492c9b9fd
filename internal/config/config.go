package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/danmuck/deckctl/internal/deck"
	"github.com/danmuck/deckctl/internal/transport"
)

// DriverConfig is the host-side driver configuration. Port path and baud rate
// come from whoever discovered the device; everything else has defaults.
type DriverConfig struct {
	Port     string
	BaudRate int
	// Brightness is a backlight percent applied once after connecting.
	// Negative leaves the panel at whatever the device booted with.
	Brightness int
	Deck       deck.Config
}

type fileConfig struct {
	Port           string `toml:"port"`
	BaudRate       int    `toml:"baud_rate"`
	ConnectTimeout string `toml:"connect_timeout"`
	CommandTimeout string `toml:"command_timeout"`
	Brightness     int    `toml:"brightness"`
}

func Default() DriverConfig {
	return DriverConfig{
		BaudRate:   transport.DefaultBaudRate,
		Brightness: -1,
		Deck:       deck.DefaultConfig(),
	}
}

// Load reads a TOML driver config, applying defaults for absent keys.
func Load(path string) (DriverConfig, error) {
	cfg := Default()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return DriverConfig{}, fmt.Errorf("load driver config: %w", err)
	}

	cfg.Port = strings.TrimSpace(raw.Port)
	if meta.IsDefined("baud_rate") {
		cfg.BaudRate = raw.BaudRate
	}
	if meta.IsDefined("connect_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.ConnectTimeout))
		if err != nil {
			return DriverConfig{}, fmt.Errorf("parse connect_timeout: %w", err)
		}
		cfg.Deck.ConnectTimeout = d
	}
	if meta.IsDefined("brightness") {
		cfg.Brightness = raw.Brightness
	}
	if meta.IsDefined("command_timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CommandTimeout))
		if err != nil {
			return DriverConfig{}, fmt.Errorf("parse command_timeout: %w", err)
		}
		cfg.Deck.CommandTimeout = d
	}

	if err := Validate(cfg); err != nil {
		return DriverConfig{}, err
	}
	return cfg, nil
}

func Validate(cfg DriverConfig) error {
	if strings.TrimSpace(cfg.Port) == "" {
		return fmt.Errorf("driver config: missing port")
	}
	if cfg.BaudRate <= 0 {
		return fmt.Errorf("driver config: invalid baud_rate %d", cfg.BaudRate)
	}
	if cfg.Brightness > 100 {
		return fmt.Errorf("driver config: brightness %d exceeds 100", cfg.Brightness)
	}
	if cfg.Deck.ConnectTimeout <= 0 {
		return fmt.Errorf("driver config: invalid connect_timeout")
	}
	if cfg.Deck.CommandTimeout <= 0 {
		return fmt.Errorf("driver config: invalid command_timeout")
	}
	return nil
}
