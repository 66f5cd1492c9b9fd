package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danmuck/deckctl/internal/config"
	"github.com/danmuck/deckctl/internal/deck"
	"github.com/danmuck/deckctl/internal/display"
	"github.com/danmuck/deckctl/internal/logging"
	"github.com/danmuck/deckctl/internal/protocol"
	"github.com/danmuck/deckctl/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "deckctl: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "path to TOML driver config")
		port       = flag.String("port", "", "serial device path (overrides config)")
		baud       = flag.Int("baud", 0, "baud rate (overrides config)")
		demo       = flag.Bool("demo", false, "push a test pattern after connecting")
	)
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *port != "" {
		cfg.Port = *port
	}
	if *baud > 0 {
		cfg.BaudRate = *baud
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	for attempt := 1; ; attempt++ {
		d, err := connect(cfg)
		if err != nil {
			delay := deck.NextBackoffDelay(cfg.Deck.Backoff, attempt, rng)
			log.Warn().Err(err).Int("attempt", attempt).Dur("retry_in", delay).Msg("connect failed")
			select {
			case <-stop:
				return nil
			case <-time.After(delay):
				continue
			}
		}
		attempt = 0

		if *demo {
			if err := pushDemo(d); err != nil {
				log.Warn().Err(err).Msg("demo pattern failed")
			}
		}

		select {
		case <-stop:
			return d.Close()
		case <-waitDisconnect(d):
			log.Warn().Msg("device disconnected, reconnecting")
		}
	}
}

func connect(cfg config.DriverConfig) (*deck.Deck, error) {
	sp, err := transport.OpenSerial(cfg.Port, cfg.BaudRate)
	if err != nil {
		return nil, err
	}
	d, err := deck.Open(sp, cfg.Deck)
	if err != nil {
		return nil, err
	}

	d.OnEvent(func(ev protocol.InputEvent) {
		switch e := ev.(type) {
		case protocol.ButtonEvent:
			log.Info().Stringer("button", e.Button).Bool("pressed", e.Pressed).Msg("button")
		case protocol.KnobEvent:
			log.Info().Stringer("knob", e.Knob).Int8("delta", e.Delta).Msg("knob")
		case protocol.TouchEvent:
			log.Info().Str("phase", e.Phase.String()).
				Uint16("x", e.X).Uint16("y", e.Y).Uint8("id", e.ID).Msg("touch")
		case protocol.UnknownEvent:
			log.Warn().Stringer("type", e.Type).Int("len", len(e.Payload)).Msg("unknown message")
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Deck.CommandTimeout)
	defer cancel()
	serial, err := d.SerialNumber(ctx)
	if err == nil {
		log.Info().Str("serial", serial).Msg("connected")
	}
	if cfg.Brightness >= 0 {
		if err := d.SetBrightness(ctx, cfg.Brightness); err != nil {
			log.Warn().Err(err).Int("percent", cfg.Brightness).Msg("apply configured brightness")
		}
	}
	return d, nil
}

// waitDisconnect turns engine state polling into a channel for select.
func waitDisconnect(d *deck.Deck) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		for d.State() != deck.StateDisconnected {
			time.Sleep(250 * time.Millisecond)
		}
	}()
	return ch
}

// pushDemo lights the knob buttons and fills each tile with a flat color, a
// quick visual check that chunked uploads land where they should.
func pushDemo(d *deck.Deck) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := d.SetBrightness(ctx, 70); err != nil {
		return err
	}
	for _, b := range []protocol.Button{protocol.KnobTL, protocol.KnobCL, protocol.KnobBL} {
		if err := d.SetButtonColor(ctx, b, 0, 90, 200); err != nil {
			return err
		}
	}

	for i := 0; i < display.TileCols*display.TileRows; i++ {
		target, err := display.Tile(i)
		if err != nil {
			return err
		}
		buf := display.NewPixelBuffer(target.Width, target.Height)
		for y := 0; y < buf.Height; y++ {
			for x := 0; x < buf.Width; x++ {
				buf.SetRGB(x, y, uint8(20*i), uint8(255-20*i), 128)
			}
		}
		if err := d.SendDisplayUpdate(target, buf); err != nil {
			return err
		}
	}
	return d.Vibrate(ctx, protocol.HapticShort)
}
