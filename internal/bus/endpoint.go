package bus

import (
	"distworld.dev/internal/protocol"
)

// Endpoint is one process's attachment to the bus. Inbound notifications are
// buffered on a channel and drained cooperatively via Recv; outbound
// operations go through Send. Endpoint implements do.Transport.
type Endpoint struct {
	bus     *Bus
	channel uint64
	client  bool // external client connection (subject to client-agent rules)
	name    string

	queue chan protocol.Frame

	// client-agent connection state; guarded by bus.mu.
	state   int
	ejected bool
}

func (e *Endpoint) Channel() uint64 { return e.channel }

// Frames exposes the raw notification queue. The websocket gateway pumps it
// toward remote clients; in-process repositories should use Recv instead.
func (e *Endpoint) Frames() <-chan protocol.Frame { return e.queue }

// Recv pops one buffered notification, non-blocking.
func (e *Endpoint) Recv() (protocol.Frame, bool) {
	select {
	case f := <-e.queue:
		return f, true
	default:
		return protocol.Frame{}, false
	}
}

// Send carries an operation from the endpoint's process into the cluster.
func (e *Endpoint) Send(f protocol.Frame) {
	switch f.Kind {
	case protocol.KindUpdate:
		e.bus.routeUpdate(e, f)
	case protocol.KindInterest:
		e.bus.addInterest(e, f)
	case protocol.KindDisconnect:
		e.bus.DisconnectClient(e.channel)
	}
}

// push enqueues a notification toward the endpoint's process. Called with
// bus.mu held. A full queue drops the frame; the queue is sized so that only
// a stalled process can hit this.
func (e *Endpoint) push(f protocol.Frame) {
	select {
	case e.queue <- f:
	default:
		e.bus.log.Printf("endpoint %d (%s): queue full, dropping %s", e.channel, e.name, f.Kind)
	}
}
