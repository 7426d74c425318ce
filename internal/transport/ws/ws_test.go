package ws

import (
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"distworld.dev/internal/bus"
	"distworld.dev/internal/protocol"
)

func startGateway(t *testing.T) (*bus.Bus, string) {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	b := bus.New(logger)
	srv := httptest.NewServer(NewGateway(b, logger).Handler())
	t.Cleanup(srv.Close)
	return b, "ws" + strings.TrimPrefix(srv.URL, "http")
}

// waitFrame polls the client transport until a frame arrives.
func waitFrame(t *testing.T, c *Client) protocol.Frame {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if f, ok := c.Recv(); ok {
			return f
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no frame within deadline")
	return protocol.Frame{}
}

func TestDial_Handshake(t *testing.T) {
	b, url := startGateway(t)
	c, err := Dial(url, "itest", log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	if c.Channel() == 0 {
		t.Fatalf("no channel assigned")
	}
	if got := b.ConnectionState(c.Channel()); got != protocol.StateNew {
		t.Fatalf("fresh connection state: got %d want %d", got, protocol.StateNew)
	}
}

func TestHandshake_RejectsBadVersion(t *testing.T) {
	_, url := startGateway(t)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	err = conn.WriteJSON(protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: "0.9", ClientName: "old"})
	if err != nil {
		t.Fatalf("write hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatalf("expected close on version mismatch")
	}
}

func TestBridge_GrantedInterestDeliversEnter(t *testing.T) {
	b, url := startGateway(t)
	logger := log.New(io.Discard, "", 0)
	svc := b.AttachInternal(300000, "svc")
	if err := b.CreateObject(svc.Channel(), "DistributedWorld", 42, 100, 0); err != nil {
		t.Fatalf("create: %v", err)
	}

	c, err := Dial(url, "itest", logger)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	// A self-sent interest frame must never yield visibility.
	c.Send(protocol.Frame{Kind: protocol.KindInterest, DoID: 1, InterestID: 7, ParentID: 100, ZoneID: 0})
	time.Sleep(100 * time.Millisecond)
	if f, ok := c.Recv(); ok {
		t.Fatalf("self-registered interest delivered %+v", f)
	}

	b.AddClientInterest(c.Channel(), 7, 100, 0)

	f := waitFrame(t, c)
	if f.Kind != protocol.KindEnter || f.DoID != 42 {
		t.Fatalf("enter frame: %+v", f)
	}
	if f.Class != "DistributedWorld" {
		t.Fatalf("class: %q", f.Class)
	}
}

func TestBridge_EjectIsLastFrame(t *testing.T) {
	b, url := startGateway(t)
	c, err := Dial(url, "itest", log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer c.Close()

	closed := make(chan error, 1)
	c.SetOnClose(func(err error) { closed <- err })

	b.Eject(c.Channel(), protocol.ReasonCredentials, "Bad credentials")

	f := waitFrame(t, c)
	if f.Kind != protocol.KindEject || f.Code != protocol.ReasonCredentials {
		t.Fatalf("eject frame: %+v", f)
	}
	select {
	case <-closed:
	case <-time.After(2 * time.Second):
		t.Fatalf("connection not closed after eject")
	}
}
