package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/after5cst/gracecam/lib/switcher"
)

// switchersim stands in for the switcher bridge so gracecam can run without
// hardware. Typing "program N" on stdin simulates an operator taking a
// source by hand.
func main() {
	addr := flag.String("addr", "127.0.0.1:9910", "listen address")
	flag.Parse()

	srv, err := switcher.NewMockServerAddr(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer srv.Close()
	fmt.Printf("Switcher simulator on %s\n", srv.Addr())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	for {
		select {
		case <-sig:
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				<-sig
				return
			}
			command(srv, strings.Fields(line))
		}
	}
}

func command(srv *switcher.MockServer, fields []string) {
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "state":
		st := srv.State()
		fmt.Printf("program=%d preview=%d autos=%d\n", st.Program, st.Preview, st.Autos)
	case "program", "preview":
		if len(fields) != 2 {
			fmt.Printf("usage: %s <source>\n", fields[0])
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Printf("bad source %q\n", fields[1])
			return
		}
		if fields[0] == "program" {
			srv.SetProgram(n)
		} else {
			srv.SetPreview(n)
		}
	default:
		fmt.Println("commands: state, program <n>, preview <n>")
	}
}
