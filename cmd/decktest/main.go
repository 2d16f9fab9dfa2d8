package main

import (
	"flag"
	"fmt"
	"image/color"
	"os"
	"os/signal"
	"syscall"

	"github.com/after5cst/gracecam/lib/config"
	"github.com/after5cst/gracecam/lib/position"
	"github.com/after5cst/gracecam/lib/streamdeck"
)

// decktest paints the configured deck layout and reports key presses
// without connecting to the switcher or cameras.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	var positions []position.Position
	if cfg, err := config.LoadConfig(*configPath); err == nil {
		positions, _ = cfg.DeckPositions()
	} else {
		fmt.Fprintf(os.Stderr, "Warning: %v, labelling keys by number\n", err)
	}

	dev, err := streamdeck.Open()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer dev.Close()

	fmt.Printf("Connected to: Stream Deck %s (serial: %s)\n", dev.Model().Name, dev.SerialNumber())

	dev.SetBrightness(80)

	label := func(key int) string {
		if key < len(positions) {
			return positions[key].String()
		}
		return fmt.Sprintf("Key %d", key)
	}
	idle := color.RGBA{0x20, 0x20, 0x20, 0xff}
	lit := color.RGBA{0xc0, 0x00, 0x00, 0xff}

	for i := 0; i < dev.KeyCount(); i++ {
		dev.SetKeyText(i, idle, color.White, label(i))
	}

	keys := make(chan streamdeck.KeyEvent, 64)
	go func() {
		if err := dev.ReadKeys(keys); err != nil {
			fmt.Fprintf(os.Stderr, "Read error: %v\n", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev := <-keys:
			bg := idle
			if ev.Pressed {
				bg = lit
			}
			dev.SetKeyText(ev.Key, bg, color.White, label(ev.Key))
			fmt.Printf("Key %d (%s) pressed=%v\n", ev.Key, label(ev.Key), ev.Pressed)
		case <-sig:
			fmt.Println()
			return
		}
	}
}
