package game

import (
	"log"

	"distworld.dev/internal/config"
	"distworld.dev/internal/do"
	"distworld.dev/internal/sim"
)

// Class names, matching the cluster's object class catalog.
const (
	ClassRoot             = "Root"
	ClassAnonymousContact = "AnonymousContact"
	ClassLoginManager     = "LoginManager"
	ClassWorld            = "DistributedWorld"
	ClassAvatar           = "DistributedAvatar"
)

// Interest registrations used by the services process. Clients are granted
// interest id 0 by the world authority (client id spaces are per-connection,
// so a fixed id is fine).
const (
	interestLoginZone uint32 = 1
	interestWorldZone uint32 = 2
)

// Avatars live in zone 0 under the world container.
const avatarZone uint32 = 0

// ClientAgent is the privileged surface of the transport collaborator:
// connection state, ejection and the provisioning grants. Implemented by the
// bus.
type ClientAgent interface {
	SetConnectionState(channel uint64, state int)
	Eject(channel uint64, code uint16, reason string)
	AddClientInterest(channel uint64, interestID, containerID, zoneID uint32)
	SetOwner(doID uint32, channel uint64)
	MarkSessionObject(doID uint32, channel uint64)
}

// ObjectCreator lets the world authority instruct creation of a new
// distributed object (local authority view plus cluster-wide announcement).
type ObjectCreator interface {
	CreateDistObj(class string, doID, parentID, zoneID uint32) error
}

// CredentialChecker is the account store surface the login manager uses.
type CredentialChecker interface {
	Authenticate(username, password string) (bool, error)
}

// Deps carries the collaborators the services-side views need. Repo, Sched
// and Creator are bound by NewServices after the class table exists.
type Deps struct {
	Cfg      config.Config
	Log      *log.Logger
	Agent    ClientAgent
	Accounts CredentialChecker
	Tuning   sim.Tuning

	Repo    *do.Repository
	Sched   *sim.Scheduler
	Creator ObjectCreator
}

// ServerClasses builds the class table for the services process (privileged,
// edge and authority roles).
func ServerClasses(deps *Deps) *do.ClassTable {
	t := do.NewClassTable()
	t.Register(ClassRoot, do.RoleAuthority, func() do.View { return &Root{log: deps.Log} })
	t.Register(ClassAnonymousContact, do.RolePrivileged, func() do.View { return &AnonymousContactUD{deps: deps} })
	t.Register(ClassLoginManager, do.RoleAuthority, func() do.View { return &LoginManagerAI{} })
	t.Register(ClassLoginManager, do.RoleEdgeEntry, func() do.View { return &LoginManagerEdge{deps: deps} })
	t.Register(ClassWorld, do.RoleAuthority, func() do.View { return &WorldAI{deps: deps} })
	t.Register(ClassWorld, do.RoleEdgeAuthority, func() do.View { return &WorldEdge{} })
	t.Register(ClassAvatar, do.RoleAuthority, func() do.View { return &AvatarAI{deps: deps} })
	return t
}

// ClientClasses builds the class table for a connecting client (plain and
// owner roles only).
func ClientClasses(cfg config.Config, logger *log.Logger) *do.ClassTable {
	t := do.NewClassTable()
	t.Register(ClassRoot, do.RolePlain, func() do.View { return &Root{log: logger} })
	t.Register(ClassAnonymousContact, do.RolePlain, func() do.View { return &AnonymousContact{} })
	t.Register(ClassWorld, do.RolePlain, func() do.View { return &World{} })
	t.Register(ClassAvatar, do.RolePlain, func() do.View { return &Avatar{precision: cfg.Avatar.PosPrecision} })
	t.Register(ClassAvatar, do.RoleOwner, func() do.View { return &AvatarOV{precision: cfg.Avatar.PosPrecision} })
	return t
}
