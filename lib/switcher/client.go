package switcher

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

const DefaultPort = 9910

var ErrClosed = errors.New("switcher: connection closed")

// Reply is the JSON payload of a /reply message from the bridge. ID echoes
// the string argument of the request.
type Reply struct {
	ID      string          `json:"id"`
	Address string          `json:"address"`
	Status  string          `json:"status"`
	Data    json.RawMessage `json:"data"`
}

// Update is pushed by the bridge when a bus changes, whoever changed it.
type Update struct {
	Address string
	Source  int
}

// Client talks to a switcher bridge over TCP with SLIP-framed OSC. One Client
// controls one mix effect bus.
type Client struct {
	ME      int
	Timeout time.Duration

	conn    net.Conn
	mu      sync.Mutex
	seq     uint64
	pending map[string]chan *Reply
	updates chan Update
	done    chan struct{}
}

func Dial(host string, port int, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, fmt.Sprint(port)), timeout)
	if err != nil {
		return nil, fmt.Errorf("switcher: dial: %w", err)
	}
	c := &Client{
		Timeout: 5 * time.Second,
		conn:    conn,
		pending: make(map[string]chan *Reply),
		updates: make(chan Update, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Updates() <-chan Update {
	return c.updates
}

func (c *Client) readLoop() {
	defer close(c.done)
	buf := make([]byte, 0, 65536)
	tmp := make([]byte, 4096)
	for {
		n, err := c.conn.Read(tmp)
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
			c.handleFrame(frame)
		}
	}
}

func (c *Client) handleFrame(frame []byte) {
	addr, args, err := parseOSC(frame)
	if err != nil {
		return
	}

	if strings.HasPrefix(addr, "/update/") {
		u := Update{Address: addr}
		if len(args) > 0 {
			if v, ok := args[0].(int32); ok {
				u.Source = int(v)
			}
		}
		select {
		case c.updates <- u:
		default:
		}
		return
	}

	if strings.HasPrefix(addr, "/reply") {
		if len(args) == 0 {
			return
		}
		jsonStr, ok := args[0].(string)
		if !ok {
			return
		}
		var reply Reply
		if err := json.Unmarshal([]byte(jsonStr), &reply); err != nil {
			return
		}
		// A reply to a request that already timed out finds no waiter.
		c.mu.Lock()
		ch, exists := c.pending[reply.ID]
		if exists {
			delete(c.pending, reply.ID)
		}
		c.mu.Unlock()
		if exists {
			ch <- &reply
		}
	}
}

func (c *Client) send(addr string, args ...any) error {
	encoded := slipEncode(buildOSC(addr, args...))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, err := c.conn.Write(encoded); err != nil {
		return fmt.Errorf("switcher: %s: %w", addr, err)
	}
	return nil
}

func (c *Client) request(addr string) (*Reply, error) {
	ch := make(chan *Reply, 1)
	c.mu.Lock()
	c.seq++
	id := strconv.FormatUint(c.seq, 10)
	c.pending[id] = ch
	c.mu.Unlock()

	forget := func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}

	if err := c.send(addr, id); err != nil {
		forget()
		return nil, err
	}

	select {
	case reply := <-ch:
		if reply.Status != "ok" {
			return reply, fmt.Errorf("switcher: %s: %s", addr, reply.Status)
		}
		return reply, nil
	case <-c.done:
		forget()
		return nil, ErrClosed
	case <-time.After(c.Timeout):
		forget()
		return nil, fmt.Errorf("switcher: %s: timeout", addr)
	}
}

func (c *Client) meAddr(bus string) string {
	return fmt.Sprintf("/me/%d/%s", c.ME, bus)
}

func (c *Client) getSource(bus string) (int, error) {
	reply, err := c.request(c.meAddr(bus))
	if err != nil {
		return 0, err
	}
	var src int
	if err := json.Unmarshal(reply.Data, &src); err != nil {
		return 0, fmt.Errorf("switcher: %s: %w", bus, err)
	}
	return src, nil
}

func (c *Client) Version() (string, error) {
	reply, err := c.request("/version")
	if err != nil {
		return "", err
	}
	var v string
	if err := json.Unmarshal(reply.Data, &v); err != nil {
		return "", err
	}
	return v, nil
}

func (c *Client) Program() (int, error) {
	return c.getSource("program")
}

func (c *Client) Preview() (int, error) {
	return c.getSource("preview")
}

// SetPreview returns once the command is written; the bridge does not
// acknowledge it.
func (c *Client) SetPreview(source int) error {
	return c.send(c.meAddr("preview"), int32(source))
}

// Auto runs the configured transition from preview to program.
func (c *Client) Auto() error {
	return c.send(c.meAddr("auto"))
}
