package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"distworld.dev/internal/bus"
	"distworld.dev/internal/protocol"
)

// Gateway is the client-agent's network face: it accepts websocket
// connections, performs the HELLO/WELCOME handshake, and bridges frames
// between the connection and a bus client endpoint.
type Gateway struct {
	bus *bus.Bus
	log *log.Logger

	upgrader websocket.Upgrader
}

func NewGateway(b *bus.Bus, logger *log.Logger) *Gateway {
	return &Gateway{
		bus: b,
		log: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (g *Gateway) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := g.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ep := g.handshake(conn)
		if ep == nil {
			return
		}
		defer g.bus.DisconnectClient(ep.Channel())

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Writer: pump cluster notifications down the socket. An eject is
		// the last frame a connection sees.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case f := <-ep.Frames():
					f.Type = protocol.TypeFrame
					f.ProtocolVersion = protocol.Version
					if err := writeJSON(conn, f); err != nil {
						cancel()
						return
					}
					if f.Kind == protocol.KindEject {
						cancel()
						return
					}
				}
			}
		}()

		// Reader: client operations onto the bus. Interest frames are not
		// accepted from connections; client visibility is granted
		// server-side during provisioning.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				return
			}
			f, err := protocol.DecodeFrame(msg)
			if err != nil || f.Type != protocol.TypeFrame {
				continue
			}
			switch f.Kind {
			case protocol.KindUpdate:
				ep.Send(f)
			case protocol.KindDisconnect:
				cancel()
				return
			}
		}
	}
}

func (g *Gateway) handshake(conn *websocket.Conn) *bus.Endpoint {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return nil
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return nil
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return nil
	}
	name := hello.ClientName
	if name == "" {
		name = conn.RemoteAddr().String()
	}
	ep := g.bus.ConnectClient(name)
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Channel:         ep.Channel(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		g.bus.DisconnectClient(ep.Channel())
		return nil
	}
	return ep
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
