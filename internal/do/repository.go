package do

import (
	"log"

	"distworld.dev/internal/protocol"
)

// Transport is the middleware surface a repository talks to: Recv drains one
// buffered inbound notification (non-blocking), Send carries an operation
// (update, interest, disconnect) toward the cluster.
type Transport interface {
	Recv() (protocol.Frame, bool)
	Send(f protocol.Frame)
}

// Repository is the per-process runtime around a Registry: it drains the
// transport's pending notifications and dispatches them to views. All methods
// run on the process's single cooperative loop.
type Repository struct {
	reg *Registry
	tr  Transport
	log *log.Logger

	interests map[uint32]View // interest_id -> requesting view

	// OnEnter fires after any enter notification materializes a view,
	// regardless of which interest produced it. OnEject and OnState report
	// client-agent control frames. All are optional.
	OnEnter func(v View)
	OnEject func(code uint16, reason string)
	OnState func(state int)
}

func NewRepository(classes *ClassTable, tr Transport, logger *log.Logger) *Repository {
	r := &Repository{
		tr:        tr,
		log:       logger,
		interests: make(map[uint32]View),
	}
	r.reg = NewRegistry(classes, r)
	return r
}

func (r *Repository) Registry() *Registry { return r.reg }

// CreateView instantiates a local view of an object this process already
// knows about (e.g. the client's anonymous-contact projection).
func (r *Repository) CreateView(class string, doID, parentID, zoneID uint32, role Role) (View, error) {
	return r.reg.Create(class, doID, parentID, zoneID, role)
}

// AddInterest declares interest in (containerID, zoneID) on behalf of view.
// Matching objects, present or future, produce one asynchronous enter
// callback each on the requesting view.
func (r *Repository) AddInterest(view View, containerID, zoneID, interestID uint32) {
	r.interests[interestID] = view
	r.tr.Send(protocol.Frame{
		Kind:       protocol.KindInterest,
		DoID:       view.DoID(),
		Role:       view.Role().Tag(),
		InterestID: interestID,
		ParentID:   containerID,
		ZoneID:     zoneID,
	})
}

// SendUpdate implements Sender: fire-and-forget routing of a named update to
// the other-role views of the same logical object.
func (r *Repository) SendUpdate(view View, method string, args ...any) {
	r.tr.Send(protocol.Frame{
		Kind:   protocol.KindUpdate,
		DoID:   view.DoID(),
		Role:   view.Role().Tag(),
		Method: method,
		Args:   args,
	})
}

// SendDisconnect voluntarily ends the connection.
func (r *Repository) SendDisconnect() {
	r.tr.Send(protocol.Frame{Kind: protocol.KindDisconnect})
}

// PollTillEmpty fully drains pending inbound notifications. The schedulers
// call it once per tick/frame before running any callback, so callbacks
// observe a registry that is up to date for that tick.
func (r *Repository) PollTillEmpty() {
	for {
		f, ok := r.tr.Recv()
		if !ok {
			return
		}
		r.dispatch(f)
	}
}

func (r *Repository) dispatch(f protocol.Frame) {
	switch f.Kind {
	case protocol.KindEnter:
		r.handleEnter(f)
	case protocol.KindLeaving:
		if err := r.reg.Destroy(f.DoID); err != nil {
			r.log.Printf("leaving %d: %v", f.DoID, err)
		}
	case protocol.KindUpdate:
		r.handleUpdate(f)
	case protocol.KindEject:
		if r.OnEject != nil {
			r.OnEject(f.Code, f.Reason)
		}
	case protocol.KindState:
		if r.OnState != nil {
			r.OnState(f.State)
		}
	}
}

func (r *Repository) handleEnter(f protocol.Frame) {
	role, ok := RoleFromTag(f.Role)
	if !ok {
		r.log.Printf("enter %d: unknown role tag %q", f.DoID, f.Role)
		return
	}
	v, err := r.reg.LookupRole(f.DoID, role)
	if err != nil {
		v, err = r.reg.Create(f.Class, f.DoID, f.ParentID, f.ZoneID, role)
		if err != nil {
			r.log.Printf("enter %d (%s %s): %v", f.DoID, f.Class, role, err)
			return
		}
	}
	if req, ok := r.interests[f.InterestID]; ok {
		if h, ok := req.(InterestHandler); ok {
			h.OnInterestEnter(v, f.DoID, f.ParentID, f.ZoneID)
		}
	}
	if r.OnEnter != nil {
		r.OnEnter(v)
	}
}

func (r *Repository) handleUpdate(f protocol.Frame) {
	senderRole, _ := RoleFromTag(f.Role)
	for _, v := range r.reg.Views(f.DoID) {
		if v.Role() == senderRole {
			continue
		}
		v.HandleUpdate(f.From, f.Method, f.Args)
	}
}
