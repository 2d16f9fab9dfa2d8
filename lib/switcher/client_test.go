package switcher

import (
	"bytes"
	"encoding/json"
	"net"
	"strconv"
	"testing"
	"time"
)

func setupTest(t *testing.T) (*MockServer, *Client) {
	t.Helper()
	mock, err := NewMockServer()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { mock.Close() })

	client, err := Dial("127.0.0.1", mock.Port(), time.Second)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { client.Close() })

	return mock, client
}

func TestVersion(t *testing.T) {
	mock, client := setupTest(t)
	mock.Version = "8.6.1"

	v, err := client.Version()
	if err != nil {
		t.Fatal(err)
	}
	if v != "8.6.1" {
		t.Errorf("got %q, want %q", v, "8.6.1")
	}
}

func TestProgramPreview(t *testing.T) {
	_, client := setupTest(t)

	prog, err := client.Program()
	if err != nil {
		t.Fatal(err)
	}
	prev, err := client.Preview()
	if err != nil {
		t.Fatal(err)
	}
	if prog != 1 || prev != 2 {
		t.Errorf("got program=%d preview=%d, want 1 and 2", prog, prev)
	}
}

func TestSetPreviewThenRead(t *testing.T) {
	mock, client := setupTest(t)

	if err := client.SetPreview(3); err != nil {
		t.Fatal(err)
	}
	prev, err := client.Preview()
	if err != nil {
		t.Fatal(err)
	}
	if prev != 3 {
		t.Errorf("got %d, want 3", prev)
	}
	if got := mock.State().Preview; got != 3 {
		t.Errorf("mock preview = %d, want 3", got)
	}
}

func TestAutoSwapsBuses(t *testing.T) {
	mock, client := setupTest(t)

	if err := client.Auto(); err != nil {
		t.Fatal(err)
	}
	prog, err := client.Program()
	if err != nil {
		t.Fatal(err)
	}
	if prog != 2 {
		t.Errorf("got program %d, want 2", prog)
	}
	st := mock.State()
	if st.Autos != 1 || st.Preview != 1 {
		t.Errorf("got %+v, want one auto and preview 1", st)
	}
}

func TestUpdates(t *testing.T) {
	mock, client := setupTest(t)

	// Ensure connection is fully established
	if _, err := client.Version(); err != nil {
		t.Fatal(err)
	}

	mock.SetProgram(4)

	select {
	case u := <-client.Updates():
		if u.Address != "/update/me/0/program" || u.Source != 4 {
			t.Errorf("got %+v, want program update to 4", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for update")
	}
}

// slowBridge answers each request only when the next one arrives, so the
// first reply is always late.
func slowBridge(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		buf := make([]byte, 0, 4096)
		tmp := make([]byte, 4096)
		var held []string
		for {
			n, err := conn.Read(tmp)
			if err != nil {
				return
			}
			buf = append(buf, tmp[:n]...)
			for {
				frame, rest, ok := extractSLIPFrame(buf)
				if !ok {
					break
				}
				buf = rest
				addr, args, err := parseOSC(frame)
				if err != nil || len(args) == 0 {
					continue
				}
				id, _ := args[0].(string)
				held = append(held, id)
				if len(held) < 2 {
					continue
				}
				for i, id := range held {
					reply, _ := json.Marshal(Reply{ID: id, Address: addr, Status: "ok", Data: json.RawMessage(strconv.Itoa(7 + i))})
					conn.Write(slipEncode(buildOSC("/reply"+addr, string(reply))))
				}
				held = nil
			}
		}
	}()
	return ln.Addr().String()
}

func TestLateReplyIsNotReused(t *testing.T) {
	host, port, _ := net.SplitHostPort(slowBridge(t))
	p, _ := strconv.Atoi(port)
	client, err := Dial(host, p, time.Second)
	if err != nil {
		t.Fatal(err)
	}
	defer client.Close()
	client.Timeout = 50 * time.Millisecond

	if _, err := client.Program(); err == nil {
		t.Fatal("expected the first request to time out")
	}
	client.Timeout = time.Second
	prog, err := client.Program()
	if err != nil {
		t.Fatal(err)
	}
	if prog != 8 {
		t.Errorf("got %d, want 8 (7 answered the timed-out request)", prog)
	}
}

func TestUnknownAddress(t *testing.T) {
	_, client := setupTest(t)
	client.ME = 0

	if _, err := client.request("/nope"); err == nil {
		t.Fatal("expected error for unknown address")
	}
}

func TestClosedConnection(t *testing.T) {
	mock, client := setupTest(t)
	if _, err := client.Version(); err != nil {
		t.Fatal(err)
	}
	mock.Close()

	if _, err := client.Program(); err == nil {
		t.Fatal("expected error after bridge closed")
	}
}

func TestSLIPRoundTrip(t *testing.T) {
	msg := buildOSC("/me/0/program", int32(3))
	msg = append(msg, slipEnd, slipEsc)
	frame, rest, ok := extractSLIPFrame(slipEncode(msg))
	if !ok {
		t.Fatal("no frame extracted")
	}
	if len(rest) != 0 {
		t.Errorf("got %d trailing bytes, want 0", len(rest))
	}
	if !bytes.Equal(frame, msg) {
		t.Errorf("got %x, want %x", frame, msg)
	}
}

func TestParseOSC(t *testing.T) {
	addr, args, err := parseOSC(buildOSC("/me/1/preview", int32(7), "x", true))
	if err != nil {
		t.Fatal(err)
	}
	if addr != "/me/1/preview" {
		t.Errorf("got %q, want %q", addr, "/me/1/preview")
	}
	if len(args) != 3 || args[0] != int32(7) || args[1] != "x" || args[2] != true {
		t.Errorf("got %v", args)
	}
}
