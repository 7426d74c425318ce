package game

import (
	"distworld.dev/internal/do"
	"distworld.dev/internal/protocol"
)

// WorldEdge relays avatar provisioning requests to the world authority.
type WorldEdge struct {
	do.Core
}

func (w *WorldEdge) EdgeRelaying() {}

func (w *WorldEdge) CreateAvatar(channel uint64) {
	w.Send(w, "create_avatar", channel)
}

// WorldAI holds all avatars in its zone and provisions new ones: it
// allocates a do_id, creates the avatar's authority view, and grants the
// client interest, ownership and session binding. The three grants are
// unordered from the client's point of view.
type WorldAI struct {
	do.Core
	deps  *Deps
	alloc *Allocator
}

func (w *WorldAI) Authoritative() {}

func (w *WorldAI) OnInit() {
	w.deps.Log.Printf("WorldAI init %d in (%d, %d)", w.DoID(), w.ParentID(), w.ZoneID())
	w.alloc = NewAllocator(w.deps.Cfg.Avatar.IDRangeStart, w.deps.Cfg.Avatar.IDRangeEnd)
}

func (w *WorldAI) HandleUpdate(from uint64, method string, args []any) {
	if method != "create_avatar" {
		return
	}
	channel, ok := argChan(args, 0)
	if !ok {
		w.deps.Log.Printf("create_avatar: bad channel argument")
		return
	}
	w.CreateAvatar(channel)
}

func (w *WorldAI) CreateAvatar(channel uint64) {
	w.deps.Log.Printf("WorldAI.create_avatar(%d)", channel)

	doID, err := w.alloc.Next(w.deps.Repo.Registry().Contains)
	if err != nil {
		// Fatal for this provisioning attempt only.
		w.deps.Log.Printf("avatar allocation for client %d: %v", channel, err)
		w.deps.Agent.Eject(channel, protocol.ReasonServiceNotReady, "No avatar slots available.")
		return
	}
	if err := w.deps.Creator.CreateDistObj(ClassAvatar, doID, w.DoID(), avatarZone); err != nil {
		w.deps.Log.Printf("create avatar %d: %v", doID, err)
		w.deps.Agent.Eject(channel, protocol.ReasonServiceNotReady, "Avatar creation failed.")
		return
	}

	// The client cannot see this container, so it cannot (and should not be
	// allowed to) request this interest itself.
	w.deps.Agent.AddClientInterest(channel, 0, w.DoID(), avatarZone)
	// Ownership makes the client's repository instantiate the owner view.
	w.deps.Agent.SetOwner(doID, channel)
	// Tie the avatar's lifetime to the connection.
	w.deps.Agent.MarkSessionObject(doID, channel)
}
