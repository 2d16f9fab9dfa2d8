package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/after5cst/gracecam/lib/camera"
	"github.com/after5cst/gracecam/lib/clock"
	"github.com/after5cst/gracecam/lib/config"
	"github.com/after5cst/gracecam/lib/dispatch"
	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/handlers"
	"github.com/after5cst/gracecam/lib/journal"
	"github.com/after5cst/gracecam/lib/midiio"
	"github.com/after5cst/gracecam/lib/orchestrator"
	"github.com/after5cst/gracecam/lib/streamdeck"
	"github.com/after5cst/gracecam/lib/switcher"
	"github.com/after5cst/gracecam/lib/trigger"
	"github.com/after5cst/gracecam/lib/web"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func run(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log)
	defer midi.CloseDriver()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sw, err := switcher.Dial(cfg.Switcher.Host, cfg.Switcher.Port, cfg.Switcher.ConnectTimeout)
	if err != nil {
		return err
	}
	defer sw.Close()
	sw.ME = cfg.Switcher.ME
	version, err := sw.Version()
	if err != nil {
		return fmt.Errorf("switcher handshake: %w", err)
	}
	logger.Info("switcher connected", "host", cfg.Switcher.Host, "version", version)

	cams := make([]*camera.Camera, len(cfg.Cameras))
	for i, c := range cfg.Cameras {
		cams[i] = camera.New(c.Source, c.Name, c.Address)
	}
	clk := clock.Real{}
	fleet := camera.NewFleet(cams, camera.NewPTZOptics(cfg.Camera.RequestTimeout), clk, cfg.Camera.MoveDelay, logger)

	orchCfg, err := cfg.OrchestratorConfig()
	if err != nil {
		return err
	}
	bus := event.NewBus()
	defer bus.Wait()
	orch := orchestrator.New(fleet, sw, clk, orchCfg, bus, logger)
	if _, err := orch.Init(ctx); err != nil {
		return err
	}

	table, err := cfg.NoteTable()
	if err != nil {
		return err
	}
	rules, err := cfg.TriggerRules()
	if err != nil {
		return err
	}
	mapper, err := trigger.NewMapper(table, rules)
	if err != nil {
		return err
	}

	queue := dispatch.NewQueue()

	src, err := midiio.Open(cfg.MIDI.Port, logger)
	if err != nil {
		fmt.Println("Available MIDI input ports:")
		for _, p := range midiio.ListPorts() {
			fmt.Printf("  %s\n", p)
		}
		return err
	}
	defer src.Close()
	logger.Info("listening", "port", src.Port)

	sinks := handlers.Sinks{}

	var jr *journal.Journal
	if cfg.Journal.Path != "" {
		jr, err = journal.Open(cfg.Journal.Path)
		if err != nil {
			return err
		}
		defer jr.Close()
		sinks.Journal = jr
	}

	hub := web.NewHub(logger)
	board := web.NewBoard(hub, fleet)
	hub.Snapshot = func() any { return board.Snapshot() }
	sinks.Board = board
	go hub.Run(ctx)

	srv := web.NewServer(queue, board, hub, jr, cfg.HTTP.MinInterval, logger)
	go func() {
		if err := srv.ListenAndServe(ctx, cfg.HTTP.Addr); err != nil {
			logger.Error("http server", "error", err)
			stop()
		}
	}()

	if cfg.Deck.Enabled {
		panel, err := openDeck(cfg, queue, logger)
		if err != nil {
			logger.Warn("stream deck disabled", "error", err)
		} else {
			sinks.Deck = panel
			go func() {
				if err := panel.Run(ctx); err != nil {
					logger.Warn("stream deck stopped", "error", err)
				}
			}()
		}
	}

	handlers.RegisterEventHandlers(bus, sinks, logger)

	go dispatch.Pump(ctx, src, queue, cfg.MIDI.ReadTimeout, logger)

	loop := dispatch.NewLoop(queue, orch, mapper, cfg.Loop.PollInterval, bus, logger)
	go loop.WatchSwitcher(ctx, sw.Updates())
	return loop.Run(ctx)
}

func openDeck(cfg *config.Config, queue *dispatch.Queue, logger *slog.Logger) (*streamdeck.Panel, error) {
	positions, err := cfg.DeckPositions()
	if err != nil {
		return nil, err
	}
	dev, err := streamdeck.Open()
	if err != nil {
		return nil, err
	}
	if err := dev.SetBrightness(byte(cfg.Deck.Brightness)); err != nil {
		logger.Warn("stream deck brightness", "error", err)
	}
	if err := dev.ClearAllKeys(); err != nil {
		dev.Close()
		return nil, err
	}
	logger.Info("stream deck opened", "model", dev.Model().Name, "serial", dev.SerialNumber())
	return streamdeck.NewPanel(dev, positions, queue, logger), nil
}
