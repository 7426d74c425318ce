package do

// Sender routes a named, argument-typed update from one view of a logical
// object to its other-role views. Implemented by the message bus (in-process)
// and by the websocket transport (remote clients).
type Sender interface {
	SendUpdate(view View, method string, args ...any)
}

// View is one role-specific local projection of a logical distributed object.
type View interface {
	DoID() uint32
	ParentID() uint32
	ZoneID() uint32
	Role() Role

	// OnInit runs synchronously inside Registry.Create, after identity is
	// bound. OnDelete runs synchronously inside Registry.Destroy, before
	// removal.
	OnInit()
	OnDelete()

	// HandleUpdate dispatches a routed update. from is the sending client
	// channel (zero for server-internal senders). Unknown methods are
	// ignored.
	HandleUpdate(from uint64, method string, args []any)
}

// InterestHandler is implemented by views that declare interest and want the
// asynchronous enter callbacks.
type InterestHandler interface {
	OnInterestEnter(v View, doID, parentID, zoneID uint32)
}

// Core carries the identity shared by every view; concrete views embed it.
type Core struct {
	doID     uint32
	parentID uint32
	zoneID   uint32
	role     Role
	sender   Sender
}

func (c *Core) bind(doID, parentID, zoneID uint32, role Role, s Sender) {
	c.doID, c.parentID, c.zoneID, c.role, c.sender = doID, parentID, zoneID, role, s
}

func (c *Core) DoID() uint32     { return c.doID }
func (c *Core) ParentID() uint32 { return c.parentID }
func (c *Core) ZoneID() uint32   { return c.zoneID }
func (c *Core) Role() Role       { return c.role }

// Send routes a named update to the other roles of this object.
func (c *Core) Send(self View, method string, args ...any) {
	if c.sender != nil {
		c.sender.SendUpdate(self, method, args...)
	}
}

// Default hooks; concrete views override what they need.
func (c *Core) OnInit()   {}
func (c *Core) OnDelete() {}

func (c *Core) HandleUpdate(from uint64, method string, args []any) {}

// Capability interfaces. Role-specific behavior is composed from these
// instead of inheritance chains.

// Authoritative views hold the single writable copy of simulation state.
type Authoritative interface {
	View
	Authoritative()
}

// OwnerFacing views are instantiated client-side on ownership grants.
type OwnerFacing interface {
	View
	OwnerFacing()
}

// EdgeRelaying views relay calls between the client edge and the authority.
type EdgeRelaying interface {
	View
	EdgeRelaying()
}

// Privileged views may drive client-agent operations (eject, state, grants).
type Privileged interface {
	View
	Privileged()
}
