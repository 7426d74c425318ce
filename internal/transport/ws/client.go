package ws

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"distworld.dev/internal/protocol"
)

// Client is the remote side of the gateway bridge: it implements
// do.Transport over a websocket, so a client process runs the same
// repository/frame-loop machinery as an in-process endpoint.
type Client struct {
	conn *websocket.Conn
	log  *log.Logger

	channel uint64
	in      chan protocol.Frame

	writeMu sync.Mutex

	closeOnce sync.Once
	closeMu   sync.Mutex
	onClose   func(err error)
}

// SetOnClose installs a callback that fires once when the read side ends
// (nil error on clean close).
func (c *Client) SetOnClose(fn func(err error)) {
	c.closeMu.Lock()
	c.onClose = fn
	c.closeMu.Unlock()
}

// Dial connects, handshakes, and starts the read pump. The returned client's
// channel is the client-agent channel the cluster knows this connection by.
func Dial(url, name string, logger *log.Logger) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{conn: conn, log: logger, in: make(chan protocol.Frame, 1024)}

	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: name}
	if err := c.writeJSON(hello); err != nil {
		_ = conn.Close()
		return nil, err
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: %w", err)
	}
	var welcome protocol.WelcomeMsg
	if err := json.Unmarshal(msg, &welcome); err != nil || welcome.Type != protocol.TypeWelcome {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: expected WELCOME")
	}
	if welcome.ProtocolVersion != protocol.Version {
		_ = conn.Close()
		return nil, fmt.Errorf("handshake: protocol version mismatch: %s", welcome.ProtocolVersion)
	}
	c.channel = welcome.Channel

	go c.readLoop()
	return c, nil
}

func (c *Client) Channel() uint64 { return c.channel }

func (c *Client) readLoop() {
	var readErr error
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				readErr = err
			}
			break
		}
		f, err := protocol.DecodeFrame(msg)
		if err != nil || f.Type != protocol.TypeFrame {
			continue
		}
		select {
		case c.in <- f:
		default:
			c.log.Printf("inbound queue full, dropping %s", f.Kind)
		}
	}
	close(c.in)
	c.closeOnce.Do(func() {
		c.closeMu.Lock()
		fn := c.onClose
		c.closeMu.Unlock()
		if fn != nil {
			fn(readErr)
		}
	})
}

// Recv implements do.Transport. After the connection ends it keeps returning
// false.
func (c *Client) Recv() (protocol.Frame, bool) {
	select {
	case f, ok := <-c.in:
		if !ok {
			return protocol.Frame{}, false
		}
		return f, true
	default:
		return protocol.Frame{}, false
	}
}

// Send implements do.Transport.
func (c *Client) Send(f protocol.Frame) {
	f.Type = protocol.TypeFrame
	f.ProtocolVersion = protocol.Version
	if err := c.writeJSON(f); err != nil {
		c.log.Printf("send %s: %v", f.Kind, err)
	}
}

func (c *Client) writeJSON(v any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Close ends the connection voluntarily.
func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}
