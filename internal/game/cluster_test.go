package game

import (
	"io"
	"log"
	"math"
	"testing"

	"distworld.dev/internal/bus"
	"distworld.dev/internal/config"
	"distworld.dev/internal/do"
	"distworld.dev/internal/protocol"
)

// cluster wires a full in-process deployment: the services process on the
// bus, one connected client with its own repository, and the client's plain
// contact view. Ticks are driven manually.
type cluster struct {
	t   *testing.T
	cfg config.Config

	bus *bus.Bus
	svc *Services

	ep      *bus.Endpoint
	crepo   *do.Repository
	contact *AnonymousContact

	ejects []ejectCall
}

func newCluster(t *testing.T) *cluster {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	cfg := config.Defaults()
	b := bus.New(logger)
	svc, err := NewServices(cfg, logger, b, stubAccounts{"guest": "guest"})
	if err != nil {
		t.Fatalf("NewServices: %v", err)
	}

	ep := b.ConnectClient("test-client")
	crepo := do.NewRepository(ClientClasses(cfg, logger), ep, logger)

	c := &cluster{t: t, cfg: cfg, bus: b, svc: svc, ep: ep, crepo: crepo}
	crepo.OnEject = func(code uint16, reason string) {
		c.ejects = append(c.ejects, ejectCall{c.ep.Channel(), code, reason})
	}

	// First ticks satisfy the services-side interest registrations (login
	// manager edge, world edge).
	c.pump(2)

	v, err := crepo.CreateView(ClassAnonymousContact, cfg.IDs.AnonymousContact, 0, 0, do.RolePlain)
	if err != nil {
		t.Fatalf("contact view: %v", err)
	}
	c.contact = v.(*AnonymousContact)
	return c
}

// pump runs n server ticks, draining the client after each one.
func (c *cluster) pump(n int) {
	for i := 0; i < n; i++ {
		c.svc.Sched.Tick()
		c.crepo.PollTillEmpty()
	}
}

func (c *cluster) login(username, password string) {
	c.t.Helper()
	c.contact.Login(username, password)
	c.pump(3)
}

func (c *cluster) ownerView(doID uint32) *AvatarOV {
	c.t.Helper()
	v, err := c.crepo.Registry().LookupRole(doID, do.RoleOwner)
	if err != nil {
		c.t.Fatalf("owner view %d: %v", doID, err)
	}
	return v.(*AvatarOV)
}

func (c *cluster) authorityView(doID uint32) *AvatarAI {
	c.t.Helper()
	v, err := c.svc.Repo.Registry().LookupRole(doID, do.RoleAuthority)
	if err != nil {
		c.t.Fatalf("authority view %d: %v", doID, err)
	}
	return v.(*AvatarAI)
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestCluster_LoginProvisionsOneAvatar(t *testing.T) {
	c := newCluster(t)
	avatarID := c.cfg.Avatar.IDRangeStart

	c.login("guest", "guest")

	if len(c.ejects) != 0 {
		t.Fatalf("unexpected ejects: %+v", c.ejects)
	}
	if got := c.bus.ConnectionState(c.ep.Channel()); got != protocol.StateEstablished {
		t.Fatalf("connection state: got %d want %d", got, protocol.StateEstablished)
	}
	if !c.svc.Repo.Registry().Contains(avatarID) {
		t.Fatalf("no authority avatar at %d", avatarID)
	}
	if c.svc.Repo.Registry().Contains(avatarID + 1) {
		t.Fatalf("more than one avatar provisioned")
	}
	if got := c.svc.Sched.Len(); got != 1 {
		t.Fatalf("scheduler tasks: got %d want 1", got)
	}

	// The client holds both the zone projection and the owner projection.
	ov := c.ownerView(avatarID)
	if got := ov.Pose; got.X != 0 || got.Y != 0 || got.Z != 0 || got.H != 0 {
		t.Fatalf("fresh avatar pose not at origin: %+v", got)
	}
	if _, err := c.crepo.Registry().LookupRole(avatarID, do.RolePlain); err != nil {
		t.Fatalf("plain view: %v", err)
	}

	if got := c.bus.Owner(avatarID); got != c.ep.Channel() {
		t.Fatalf("owner: got %d want %d", got, c.ep.Channel())
	}
	sess := c.bus.SessionObjects(c.ep.Channel())
	if len(sess) != 1 || sess[0] != avatarID {
		t.Fatalf("session objects: %v", sess)
	}
}

func TestCluster_BadCredentials(t *testing.T) {
	c := newCluster(t)

	c.login("guest", "wrong")

	if len(c.ejects) != 1 {
		t.Fatalf("ejects: got %d want 1", len(c.ejects))
	}
	if got := c.ejects[0].code; got != protocol.ReasonCredentials {
		t.Fatalf("eject code: got %d want %d", got, protocol.ReasonCredentials)
	}
	if got := c.bus.ConnectionState(c.ep.Channel()); got != protocol.StateNew {
		t.Fatalf("connection state moved: %d", got)
	}
	if c.svc.Repo.Registry().Contains(c.cfg.Avatar.IDRangeStart) {
		t.Fatalf("avatar provisioned for bad credentials")
	}
	if !c.bus.Ejected(c.ep.Channel()) {
		t.Fatalf("client not marked ejected")
	}
}

func TestCluster_UnknownAccount(t *testing.T) {
	c := newCluster(t)

	c.login("intruder", "guest")

	if len(c.ejects) != 1 || c.ejects[0].code != protocol.ReasonCredentials {
		t.Fatalf("ejects: %+v", c.ejects)
	}
}

func TestCluster_IntentMovesAvatarAndMirrorsPose(t *testing.T) {
	c := newCluster(t)
	avatarID := c.cfg.Avatar.IDRangeStart
	c.login("guest", "guest")
	ai := c.authorityView(avatarID)
	ov := c.ownerView(avatarID)

	// Idle avatar publishes nothing.
	c.pump(3)
	if got := ov.Pose; got.X != 0 || got.Y != 0 || got.H != 0 {
		t.Fatalf("idle avatar moved: %+v", got)
	}

	// Straight ahead for one tick: 3.0 units/s at 30 Hz is 0.1 per tick.
	ov.IndicateIntent(0, 1)
	c.pump(1)

	if got := ai.Pose().Y; !near(got, -0.1) {
		t.Fatalf("authority y: got %v want -0.1", got)
	}
	if got := ov.Pose.Y; !near(got, -0.1) {
		t.Fatalf("owner mirror y: got %v want -0.1", got)
	}
	if got := ai.Pose().Z; got != 0 {
		t.Fatalf("z moved: %v", got)
	}

	// Plain zone projection mirrors too.
	pv, err := c.crepo.Registry().LookupRole(avatarID, do.RolePlain)
	if err != nil {
		t.Fatalf("plain view: %v", err)
	}
	if got := pv.(*Avatar).Pose.Y; !near(got, -0.1) {
		t.Fatalf("plain mirror y: got %v want -0.1", got)
	}

	// Stop: the stored intent is replaced and publication ceases.
	ov.IndicateIntent(0, 0)
	c.pump(1)
	stopped := ai.Pose()
	c.pump(3)
	if got := ai.Pose(); got != stopped {
		t.Fatalf("avatar kept moving after stop: %+v", got)
	}
}

func TestCluster_TurningWrapsHeading(t *testing.T) {
	c := newCluster(t)
	avatarID := c.cfg.Avatar.IDRangeStart
	c.login("guest", "guest")
	ai := c.authorityView(avatarID)
	ov := c.ownerView(avatarID)

	// Full left turn: 90°/s at 30 Hz is 3° per tick.
	ov.IndicateIntent(1, 0)
	c.pump(1)
	if got := ai.Pose().H; !near(got, 3) {
		t.Fatalf("heading after one tick: got %v want 3", got)
	}
	c.pump(119)
	if got := ai.Pose().H; got < 0 || got >= 360 {
		t.Fatalf("heading left [0, 360): %v", got)
	}
}

func TestCluster_OutOfRangeIntentEjects(t *testing.T) {
	c := newCluster(t)
	avatarID := c.cfg.Avatar.IDRangeStart
	c.login("guest", "guest")
	ai := c.authorityView(avatarID)
	ov := c.ownerView(avatarID)

	ov.IndicateIntent(0, 1)
	c.pump(1)

	ov.IndicateIntent(1.5, 1)
	c.pump(1)

	if len(c.ejects) != 1 {
		t.Fatalf("ejects: got %d want 1", len(c.ejects))
	}
	if got := c.ejects[0].code; got != protocol.ReasonRuleViolation {
		t.Fatalf("eject code: got %d want %d", got, protocol.ReasonRuleViolation)
	}
	if got := ai.Intent(); got.Turn != 0 || got.Forward != 1 {
		t.Fatalf("stored intent changed on rejection: %+v", got)
	}
}

func TestCluster_DisconnectDestroysSessionAvatar(t *testing.T) {
	c := newCluster(t)
	avatarID := c.cfg.Avatar.IDRangeStart
	c.login("guest", "guest")

	c.crepo.SendDisconnect()
	c.svc.Sched.Tick()

	if c.bus.HasObject(avatarID) {
		t.Fatalf("session avatar survived disconnect")
	}
	if c.svc.Repo.Registry().Contains(avatarID) {
		t.Fatalf("authority view survived disconnect")
	}
	if got := c.svc.Sched.Len(); got != 0 {
		t.Fatalf("movement task survived disconnect: %d left", got)
	}
}

func TestCluster_SecondClientSeesFirstAvatar(t *testing.T) {
	c := newCluster(t)
	avatarID := c.cfg.Avatar.IDRangeStart
	c.login("guest", "guest")

	logger := log.New(io.Discard, "", 0)
	ep2 := c.bus.ConnectClient("test-client-2")
	crepo2 := do.NewRepository(ClientClasses(c.cfg, logger), ep2, logger)
	v, err := crepo2.CreateView(ClassAnonymousContact, c.cfg.IDs.AnonymousContact, 0, 0, do.RolePlain)
	if err != nil {
		t.Fatalf("contact view: %v", err)
	}
	v.(*AnonymousContact).Login("guest", "guest")
	for i := 0; i < 3; i++ {
		c.svc.Sched.Tick()
		c.crepo.PollTillEmpty()
		crepo2.PollTillEmpty()
	}

	secondID := avatarID + 1
	if !c.svc.Repo.Registry().Contains(secondID) {
		t.Fatalf("no second avatar at %d", secondID)
	}
	// Each client sees the other's avatar as a plain projection only.
	if _, err := crepo2.Registry().LookupRole(avatarID, do.RolePlain); err != nil {
		t.Fatalf("second client cannot see first avatar: %v", err)
	}
	if _, err := crepo2.Registry().LookupRole(avatarID, do.RoleOwner); err == nil {
		t.Fatalf("second client got an owner view of a foreign avatar")
	}
	if _, err := c.crepo.Registry().LookupRole(secondID, do.RolePlain); err != nil {
		t.Fatalf("first client cannot see second avatar: %v", err)
	}

	// First avatar's movement reaches the second client.
	ai := c.authorityView(avatarID)
	ov := c.ownerView(avatarID)
	ov.IndicateIntent(0, 1)
	for i := 0; i < 2; i++ {
		c.svc.Sched.Tick()
		c.crepo.PollTillEmpty()
		crepo2.PollTillEmpty()
	}
	pv, err := crepo2.Registry().LookupRole(avatarID, do.RolePlain)
	if err != nil {
		t.Fatalf("plain view: %v", err)
	}
	if got, want := pv.(*Avatar).Pose.Y, ai.Pose().Y; !near(got, want) {
		t.Fatalf("remote mirror y: got %v want %v", got, want)
	}
}
