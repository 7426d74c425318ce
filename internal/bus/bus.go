package bus

import (
	"fmt"
	"log"
	"sync"

	"distworld.dev/internal/do"
	"distworld.dev/internal/protocol"
)

const queueDepth = 4096

// Recorder receives cluster lifecycle events (logins, ejects, object
// lifecycle). Optional.
type Recorder interface {
	Record(event string, fields map[string]any)
}

type object struct {
	class    string
	doID     uint32
	parentID uint32
	zoneID   uint32
	global   bool
	owner    uint64
	// endpoints that have been delivered this object (creator included);
	// updates and leaving notifications fan out to these.
	holders map[uint64]struct{}
}

type interestReg struct {
	channel    uint64
	interestID uint32
	container  uint32
	zone       uint32
	delivered  do.Role
}

// Bus is the in-process message director, state server and client agent: it
// tracks the cluster-wide object table, matches interest registrations, and
// routes update/notification frames between endpoints. All delivery is
// asynchronous: frames land in per-endpoint queues and are observed when the
// receiving process drains.
type Bus struct {
	mu  sync.Mutex
	log *log.Logger
	rec Recorder

	nextClient uint64
	endpoints  map[uint64]*Endpoint
	objects    map[uint32]*object
	interests  []*interestReg
	sessions   map[uint64][]uint32
}

func New(logger *log.Logger) *Bus {
	return &Bus{
		log:        logger,
		nextClient: 1_000_000_000,
		endpoints:  make(map[uint64]*Endpoint),
		objects:    make(map[uint32]*object),
		sessions:   make(map[uint64][]uint32),
	}
}

func (b *Bus) SetRecorder(r Recorder) { b.rec = r }

func (b *Bus) record(event string, fields map[string]any) {
	if b.rec != nil {
		b.rec.Record(event, fields)
	}
}

// AttachInternal attaches a services process under a configured channel.
func (b *Bus) AttachInternal(channel uint64, name string) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	e := &Endpoint{bus: b, channel: channel, name: name, queue: make(chan protocol.Frame, queueDepth)}
	b.endpoints[channel] = e
	return e
}

// ConnectClient attaches an external client connection and allocates its
// channel. New connections start in state New: until the login workflow marks
// them Established they may only reach global objects.
func (b *Bus) ConnectClient(name string) *Endpoint {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextClient++
	e := &Endpoint{
		bus:     b,
		channel: b.nextClient,
		client:  true,
		name:    name,
		state:   protocol.StateNew,
		queue:   make(chan protocol.Frame, queueDepth),
	}
	b.endpoints[e.channel] = e
	b.record("client_connected", map[string]any{"channel": e.channel, "name": name})
	return e
}

// CreateObject records a new distributed object under (parentID, zoneID) and
// asynchronously delivers enter notifications to every matching interest.
// The creating endpoint becomes a holder so updates route back to it.
func (b *Bus) CreateObject(creator uint64, class string, doID, parentID, zoneID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[doID]; ok {
		return fmt.Errorf("%w: %d", do.ErrDuplicateObject, doID)
	}
	o := &object{
		class:    class,
		doID:     doID,
		parentID: parentID,
		zoneID:   zoneID,
		holders:  map[uint64]struct{}{creator: {}},
	}
	b.objects[doID] = o
	b.record("object_created", map[string]any{"class": class, "do_id": doID, "parent_id": parentID, "zone_id": zoneID})
	for _, reg := range b.interests {
		if reg.container == parentID && reg.zone == zoneID {
			b.deliverEnter(reg, o)
		}
	}
	return nil
}

// CreateGlobal records a globally-reachable object (no container/zone).
// Anonymous clients may send updates to globals before being established.
func (b *Bus) CreateGlobal(creator uint64, class string, doID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.objects[doID]; ok {
		return fmt.Errorf("%w: %d", do.ErrDuplicateObject, doID)
	}
	b.objects[doID] = &object{
		class:   class,
		doID:    doID,
		global:  true,
		holders: map[uint64]struct{}{creator: {}},
	}
	b.record("object_created", map[string]any{"class": class, "do_id": doID, "global": true})
	return nil
}

// DestroyObject removes the object and delivers leaving notifications to
// every holder (the creator included, so its authority view is torn down on
// the next drain).
func (b *Bus) DestroyObject(doID uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.destroyLocked(doID)
}

func (b *Bus) destroyLocked(doID uint32) error {
	o, ok := b.objects[doID]
	if !ok {
		return fmt.Errorf("%w: %d", do.ErrNotFound, doID)
	}
	delete(b.objects, doID)
	for ch := range o.holders {
		if e, ok := b.endpoints[ch]; ok {
			e.push(protocol.Frame{Kind: protocol.KindLeaving, DoID: doID})
		}
	}
	b.record("object_destroyed", map[string]any{"class": o.class, "do_id": doID})
	return nil
}

// HasObject reports whether doID is live anywhere in the cluster.
func (b *Bus) HasObject(doID uint32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.objects[doID]
	return ok
}

func (b *Bus) addInterest(e *Endpoint, f protocol.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e.client {
		// Clients never pick their own visibility. Their registrations are
		// granted server-side through AddClientInterest.
		b.log.Printf("client %d: dropping self-registered interest in (%d, %d)", e.channel, f.ParentID, f.ZoneID)
		return
	}
	role, _ := do.RoleFromTag(f.Role)
	reg := &interestReg{
		channel:    e.channel,
		interestID: f.InterestID,
		container:  f.ParentID,
		zone:       f.ZoneID,
		delivered:  do.DeliveredRole(role),
	}
	b.interests = append(b.interests, reg)
	for _, o := range b.objects {
		if !o.global && o.parentID == reg.container && o.zoneID == reg.zone {
			b.deliverEnter(reg, o)
		}
	}
}

// AddClientInterest grants a client interest in (containerID, zoneID) on the
// server's authority; the client sees plain views.
func (b *Bus) AddClientInterest(channel uint64, interestID, containerID, zoneID uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	reg := &interestReg{
		channel:    channel,
		interestID: interestID,
		container:  containerID,
		zone:       zoneID,
		delivered:  do.RolePlain,
	}
	b.interests = append(b.interests, reg)
	for _, o := range b.objects {
		if !o.global && o.parentID == reg.container && o.zoneID == reg.zone {
			b.deliverEnter(reg, o)
		}
	}
}

// deliverEnter enqueues one enter notification for o toward reg's endpoint.
// Called with mu held.
func (b *Bus) deliverEnter(reg *interestReg, o *object) {
	e, ok := b.endpoints[reg.channel]
	if !ok {
		return
	}
	o.holders[reg.channel] = struct{}{}
	e.push(protocol.Frame{
		Kind:       protocol.KindEnter,
		Class:      o.class,
		DoID:       o.doID,
		ParentID:   o.parentID,
		ZoneID:     o.zoneID,
		Role:       reg.delivered.Tag(),
		InterestID: reg.interestID,
	})
}

// routeUpdate fans a named update out to every holder endpoint. The sending
// role travels with the frame; receiving repositories skip views of that
// role, so an update never echoes to its sender while still reaching other
// roles in the same process.
func (b *Bus) routeUpdate(from *Endpoint, f protocol.Frame) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[f.DoID]
	if !ok {
		return
	}
	if from.client {
		if from.state != protocol.StateEstablished && !o.global {
			b.log.Printf("client %d: dropping %q to %d before establish", from.channel, f.Method, f.DoID)
			return
		}
		f.From = from.channel
		// Clients hold plain and owner views only; the claimed sending role
		// is kept just when it is the owner role on an object the sender
		// actually owns. Anything else (an authority claim in particular)
		// is stamped down to plain.
		if role, ok := do.RoleFromTag(f.Role); !ok || role != do.RoleOwner || o.owner != from.channel {
			f.Role = do.RolePlain.Tag()
		}
	}
	for ch := range o.holders {
		if e, ok := b.endpoints[ch]; ok {
			e.push(f)
		}
	}
}

// SetConnectionState moves a client connection between client-agent states.
func (b *Bus) SetConnectionState(channel uint64, state int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.endpoints[channel]
	if !ok {
		return
	}
	e.state = state
	e.push(protocol.Frame{Kind: protocol.KindState, State: state})
	b.record("connection_state", map[string]any{"channel": channel, "state": state})
}

// ConnectionState reports a client's client-agent state.
func (b *Bus) ConnectionState(channel uint64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.endpoints[channel]; ok {
		return e.state
	}
	return protocol.StateNew
}

// Eject delivers a disconnect-with-reason to one client. The connection
// itself is dropped by whoever pumps the client's frames (the gateway or the
// client loop); cluster-side cleanup happens in DisconnectClient.
func (b *Bus) Eject(channel uint64, code uint16, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.endpoints[channel]
	if !ok {
		return
	}
	e.ejected = true
	e.push(protocol.Frame{Kind: protocol.KindEject, Code: code, Reason: reason})
	b.record("eject", map[string]any{"channel": channel, "code": code, "reason": reason})
}

// Ejected reports whether the client has been told to go away.
func (b *Bus) Ejected(channel uint64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.endpoints[channel]; ok {
		return e.ejected
	}
	return false
}

// SetOwner grants ownership of doID to a client: an owner-role view enters on
// the owning client's side.
func (b *Bus) SetOwner(doID uint32, channel uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.objects[doID]
	if !ok {
		return
	}
	o.owner = channel
	e, ok := b.endpoints[channel]
	if !ok {
		return
	}
	o.holders[channel] = struct{}{}
	e.push(protocol.Frame{
		Kind:     protocol.KindEnter,
		Class:    o.class,
		DoID:     o.doID,
		ParentID: o.parentID,
		ZoneID:   o.zoneID,
		Role:     do.RoleOwner.Tag(),
	})
	b.record("set_owner", map[string]any{"do_id": doID, "channel": channel})
}

// Owner reports the owning client channel of doID (zero when unowned).
func (b *Bus) Owner(doID uint32) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.objects[doID]; ok {
		return o.owner
	}
	return 0
}

// MarkSessionObject ties doID's lifetime to the client connection: when the
// connection goes away, so does the object.
func (b *Bus) MarkSessionObject(doID uint32, channel uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sessions[channel] = append(b.sessions[channel], doID)
	b.record("session_object", map[string]any{"do_id": doID, "channel": channel})
}

// SessionObjects reports the objects bound to a client connection.
func (b *Bus) SessionObjects(channel uint64) []uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]uint32, len(b.sessions[channel]))
	copy(out, b.sessions[channel])
	return out
}

// DisconnectClient detaches a client endpoint, drops its interest
// registrations and destroys its session objects.
func (b *Bus) DisconnectClient(channel uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.endpoints[channel]; !ok {
		return
	}
	for _, doID := range b.sessions[channel] {
		if err := b.destroyLocked(doID); err != nil {
			b.log.Printf("session object %d: %v", doID, err)
		}
	}
	delete(b.sessions, channel)
	kept := b.interests[:0]
	for _, reg := range b.interests {
		if reg.channel != channel {
			kept = append(kept, reg)
		}
	}
	b.interests = kept
	for _, o := range b.objects {
		delete(o.holders, channel)
	}
	delete(b.endpoints, channel)
	b.record("client_disconnected", map[string]any{"channel": channel})
}
