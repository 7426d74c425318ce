package game

import (
	"distworld.dev/internal/do"
	"distworld.dev/internal/protocol"
)

// AnonymousContact is the only global object and the only one a player can
// reach before logging in. The plain view forwards login requests to the
// privileged counterpart.
type AnonymousContact struct {
	do.Core
}

func (c *AnonymousContact) Login(username, password string) {
	c.Send(c, "login", username, password)
}

// LoginRelay is what the privileged contact needs from the login manager's
// edge view.
type LoginRelay interface {
	Login(channel uint64, username, password string)
}

// AnonymousContactUD redirects player logins to the login manager, once one
// has been discovered. The reference is filled asynchronously by an interest
// enter; until then login requests are rejected, never queued.
type AnonymousContactUD struct {
	do.Core
	deps *Deps

	loginManager LoginRelay // nil until the login zone interest fires
}

func (c *AnonymousContactUD) Privileged() {}

func (c *AnonymousContactUD) OnInit() {
	c.deps.Log.Printf("AnonymousContactUD init %d", c.DoID())
	c.deps.Repo.AddInterest(c, c.deps.Cfg.IDs.Root, c.deps.Cfg.Zones.Login, interestLoginZone)
}

func (c *AnonymousContactUD) OnInterestEnter(v do.View, doID, parentID, zoneID uint32) {
	if doID != c.deps.Cfg.IDs.LoginManager {
		return
	}
	if lm, ok := v.(LoginRelay); ok {
		c.deps.Log.Printf("AnonymousContactUD learned of LoginManager %d", doID)
		c.loginManager = lm
	}
}

func (c *AnonymousContactUD) HandleUpdate(from uint64, method string, args []any) {
	if method != "login" {
		return
	}
	username, ok1 := argStr(args, 0)
	password, ok2 := argStr(args, 1)
	if !ok1 || !ok2 {
		c.deps.Agent.Eject(from, protocol.ReasonRuleViolation, "Malformed login arguments.")
		return
	}
	if c.loginManager == nil {
		// The login manager has not entered yet; this is a real race at
		// cluster startup, not a bug.
		c.deps.Log.Printf("dropping client %d: no LoginManager yet", from)
		c.deps.Agent.Eject(from, protocol.ReasonServiceNotReady, "Server isn't ready for authentication.")
		return
	}
	c.loginManager.Login(from, username, password)
}

func argStr(args []any, i int) (string, bool) {
	if i >= len(args) {
		return "", false
	}
	return protocol.Str(args[i])
}

func argNum(args []any, i int) (float64, bool) {
	if i >= len(args) {
		return 0, false
	}
	return protocol.Num(args[i])
}

func argChan(args []any, i int) (uint64, bool) {
	if i >= len(args) {
		return 0, false
	}
	return protocol.Chan(args[i])
}
