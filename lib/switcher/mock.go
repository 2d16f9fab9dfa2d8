package switcher

import (
	"encoding/json"
	"net"
	"strconv"
	"strings"
	"sync"
)

// MockServer is an in-process switcher bridge. Auto swaps program and
// preview the way a mix effect bus does.
type MockServer struct {
	listener net.Listener
	mu       sync.Mutex
	conns    []net.Conn

	Version string
	program map[int]int
	preview map[int]int
	autos   int
}

type MockState struct {
	Program int
	Preview int
	Autos   int
}

func NewMockServer() (*MockServer, error) {
	return NewMockServerAddr("127.0.0.1:0")
}

func NewMockServerAddr(addr string) (*MockServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	m := &MockServer{
		listener: ln,
		Version:  "mock-1.0",
		program:  map[int]int{0: 1},
		preview:  map[int]int{0: 2},
	}
	go m.serve()
	return m, nil
}

func (m *MockServer) Port() int {
	return m.listener.Addr().(*net.TCPAddr).Port
}

func (m *MockServer) Addr() string {
	return m.listener.Addr().String()
}

func (m *MockServer) Close() error {
	err := m.listener.Close()
	m.mu.Lock()
	for _, conn := range m.conns {
		conn.Close()
	}
	m.mu.Unlock()
	return err
}

// State reports bus 0.
func (m *MockServer) State() MockState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MockState{Program: m.program[0], Preview: m.preview[0], Autos: m.autos}
}

// SetProgram changes bus 0 as an operator at the panel would, and notifies
// connected clients.
func (m *MockServer) SetProgram(source int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.program[0] = source
	m.broadcast("/update/me/0/program", source)
}

func (m *MockServer) SetPreview(source int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.preview[0] = source
	m.broadcast("/update/me/0/preview", source)
}

// broadcast is called with m.mu held.
func (m *MockServer) broadcast(addr string, source int) {
	encoded := slipEncode(buildOSC(addr, int32(source)))
	for _, conn := range m.conns {
		conn.Write(encoded)
	}
}

func (m *MockServer) serve() {
	for {
		conn, err := m.listener.Accept()
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conns = append(m.conns, conn)
		m.mu.Unlock()
		go m.handleConn(conn)
	}
}

func (m *MockServer) handleConn(conn net.Conn) {
	buf := make([]byte, 0, 65536)
	tmp := make([]byte, 4096)
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
			if err != nil {
				continue
			}
			m.handleRequest(conn, addr, args)
		}
	}
}

func (m *MockServer) sendReply(conn net.Conn, id, addr string, status string, data any) {
	jsonData, _ := json.Marshal(data)
	replyJSON, _ := json.Marshal(Reply{ID: id, Address: addr, Status: status, Data: jsonData})
	conn.Write(slipEncode(buildOSC("/reply"+addr, string(replyJSON))))
}

func (m *MockServer) handleRequest(conn net.Conn, addr string, args []any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// A string argument is a request id to echo; an int32 sets a bus.
	var id string
	set, hasSet := int32(0), false
	for _, a := range args {
		switch v := a.(type) {
		case string:
			id = v
		case int32:
			set, hasSet = v, true
		}
	}

	if addr == "/version" {
		m.sendReply(conn, id, addr, "ok", m.Version)
		return
	}

	parts := strings.Split(addr, "/")
	if len(parts) != 4 || parts[1] != "me" {
		m.sendReply(conn, id, addr, "not found", nil)
		return
	}
	me, err := strconv.Atoi(parts[2])
	if err != nil {
		m.sendReply(conn, id, addr, "bad mix effect", nil)
		return
	}

	switch parts[3] {
	case "program", "preview":
		bus := m.program
		if parts[3] == "preview" {
			bus = m.preview
		}
		if !hasSet {
			m.sendReply(conn, id, addr, "ok", bus[me])
			return
		}
		bus[me] = int(set)
		if me == 0 {
			m.broadcast("/update"+addr, int(set))
		}
	case "auto":
		m.program[me], m.preview[me] = m.preview[me], m.program[me]
		m.autos++
		if me == 0 {
			m.broadcast("/update/me/0/program", m.program[me])
			m.broadcast("/update/me/0/preview", m.preview[me])
		}
	default:
		m.sendReply(conn, id, addr, "not found", nil)
	}
}
