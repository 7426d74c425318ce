package game

import (
	"distworld.dev/internal/do"
	"distworld.dev/internal/protocol"
)

// LoginManagerAI is the canonical login manager object. All the behavior
// lives in the edge projection; the authority view only anchors the object in
// the login zone so interest can discover it.
type LoginManagerAI struct {
	do.Core
}

// AvatarProvisioner is what the login manager needs from the world's edge
// view.
type AvatarProvisioner interface {
	CreateAvatar(channel uint64)
}

// LoginManagerEdge authenticates clients and asks the world to provision an
// avatar for each success. The world reference arrives asynchronously via
// interest in the world zone.
type LoginManagerEdge struct {
	do.Core
	deps *Deps

	world AvatarProvisioner // nil until the world zone interest fires
}

func (m *LoginManagerEdge) EdgeRelaying() {}

func (m *LoginManagerEdge) OnInit() {
	m.deps.Log.Printf("LoginManagerEdge init %d", m.DoID())
	m.deps.Repo.AddInterest(m, m.deps.Cfg.IDs.Root, m.deps.Cfg.Zones.World, interestWorldZone)
}

func (m *LoginManagerEdge) OnInterestEnter(v do.View, doID, parentID, zoneID uint32) {
	if doID != m.deps.Cfg.IDs.World {
		return
	}
	if w, ok := v.(AvatarProvisioner); ok {
		m.deps.Log.Printf("LoginManagerEdge learned of World %d", doID)
		m.world = w
	}
}

// Login validates the credentials and either establishes the connection and
// requests an avatar, or ejects the client. Called by the privileged contact
// view; the failure leg never crashes the process.
func (m *LoginManagerEdge) Login(channel uint64, username, password string) {
	m.deps.Log.Printf("LoginManagerEdge.login(%s, <password>) for client %d", username, channel)

	if m.world == nil {
		// Same startup race as the contact's missing login manager: the
		// world may not have entered yet.
		m.deps.Agent.Eject(channel, protocol.ReasonServiceNotReady, "World isn't available yet.")
		return
	}

	ok, err := m.deps.Accounts.Authenticate(username, password)
	if err != nil {
		m.deps.Log.Printf("account store: %v", err)
		m.deps.Agent.Eject(channel, protocol.ReasonServiceNotReady, "Authentication backend unavailable.")
		return
	}
	if !ok {
		m.deps.Log.Printf("ejecting client %d for bad credentials (user: %s)", channel, username)
		m.deps.Agent.Eject(channel, protocol.ReasonCredentials, "Bad credentials")
		return
	}

	m.deps.Agent.SetConnectionState(channel, protocol.StateEstablished)
	m.world.CreateAvatar(channel)
	m.deps.Log.Printf("login successful (user: %s)", username)
}
