package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/after5cst/gracecam/lib/event"
	"github.com/after5cst/gracecam/lib/position"
)

type console struct {
	base   string
	client *http.Client
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:5000", "gracecam HTTP address")
	flag.Parse()

	c := &console{
		base:   strings.TrimRight(*addr, "/"),
		client: &http.Client{Timeout: 5 * time.Second},
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "."
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "gracecam> ",
		HistoryFile:  filepath.Join(homeDir, ".gracecam_history"),
		AutoComplete: completer(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if !c.handle(fields) {
			return
		}
	}
}

func completer() readline.AutoCompleter {
	var shots []readline.PrefixCompleterInterface
	for _, p := range position.All() {
		shots = append(shots, readline.PcItem(strings.ToLower(p.String())))
	}
	return readline.NewPrefixCompleter(
		readline.PcItem("go", shots...),
		readline.PcItem("stations"),
		readline.PcItem("history"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
}

func (c *console) handle(fields []string) bool {
	var err error
	switch fields[0] {
	case "exit", "quit":
		return false
	case "help":
		fmt.Println("go <position|slot>   put a shot on program")
		fmt.Println("stations             show what each camera is doing")
		fmt.Println("history [n]          show recent switching decisions")
		fmt.Println("exit")
	case "go":
		if len(fields) != 2 {
			fmt.Println("usage: go <position>")
			return true
		}
		err = c.preset(fields[1])
	case "stations":
		err = c.stations()
	case "history":
		n := "10"
		if len(fields) > 1 {
			n = fields[1]
		}
		err = c.history(n)
	default:
		// A bare position name is shorthand for go.
		if _, perr := position.Parse(fields[0]); perr == nil {
			err = c.preset(fields[0])
		} else {
			fmt.Printf("unknown command %q, try help\n", fields[0])
		}
	}
	if err != nil {
		fmt.Printf("error: %v\n", err)
	}
	return true
}

func (c *console) get(method, path string, out any) error {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *console) preset(sel string) error {
	var resp struct {
		ID       string `json:"id"`
		Position string `json:"position"`
	}
	if err := c.get(http.MethodPost, "/preset/"+sel, &resp); err != nil {
		return err
	}
	fmt.Printf("queued %s (%s)\n", resp.Position, resp.ID)
	return nil
}

func (c *console) stations() error {
	var state struct {
		Last    *event.Report `json:"last"`
		Cameras []struct {
			Name   string `json:"name"`
			Source int    `json:"source"`
			State  string `json:"state"`
			Preset string `json:"preset"`
		} `json:"cameras"`
		Drifts int `json:"drifts"`
	}
	if err := c.get(http.MethodGet, "/api/stations", &state); err != nil {
		return err
	}
	for _, cam := range state.Cameras {
		fmt.Printf("  %-8s src %d  %-8s %s\n", cam.Name, cam.Source, cam.State, cam.Preset)
	}
	if state.Last != nil {
		fmt.Printf("last: %s %s\n  %s\n", state.Last.Action, state.Last.Target, state.Last.After)
	}
	if state.Drifts > 0 {
		fmt.Printf("drift detected %d times\n", state.Drifts)
	}
	return nil
}

func (c *console) history(n string) error {
	var reports []event.Report
	if err := c.get(http.MethodGet, "/api/history?limit="+n, &reports); err != nil {
		return err
	}
	for _, r := range reports {
		fmt.Printf("%s  %-13s %-7s %6s  %s\n",
			r.Time.Local().Format("15:04:05"), r.Action, r.Target, r.Duration.Round(time.Millisecond), r.After)
	}
	return nil
}
