package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gitlab.com/gomidi/midi/v2"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/after5cst/gracecam/lib/config"
	"github.com/after5cst/gracecam/lib/midiio"
	"github.com/after5cst/gracecam/lib/trigger"
)

// miditest prints every note from the configured port and the position
// gracecam would map it to.
func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	port := flag.String("port", "", "MIDI input port substring (overrides config)")
	flag.Parse()

	defer midi.CloseDriver()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.MIDI.Port = *port
	}

	table, err := cfg.NoteTable()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	rules, err := cfg.TriggerRules()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	mapper, err := trigger.NewMapper(table, rules)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	src, err := midiio.Open(cfg.MIDI.Port, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		fmt.Println("Available MIDI input ports:")
		for _, p := range midiio.ListPorts() {
			fmt.Printf("  %s\n", p)
		}
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
		os.Exit(1)
	}
	defer src.Close()

	fmt.Printf("Listening on: %s\n", src.Port)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	var deb trigger.Debouncer
	for {
		select {
		case <-sig:
			fmt.Println()
			return
		default:
		}

		n, ok := src.Get(200 * time.Millisecond)
		if !ok {
			continue
		}
		verdict := deb.Feed(n)
		if p, mapped := mapper.Lookup(n); mapped {
			fmt.Printf("%-24s %-8s -> %s\n", n, verdict, p)
		} else {
			fmt.Printf("%-24s %-8s -> (unmapped)\n", n, verdict)
		}
	}
}
