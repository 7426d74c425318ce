package game

import (
	"distworld.dev/internal/do"
	"distworld.dev/internal/protocol"
	"distworld.dev/internal/sim"
)

// Avatar is the plain projection other clients see: it mirrors the quantized
// pose the authority publishes.
type Avatar struct {
	do.Core
	precision int
	Pose      sim.Pose
}

func (a *Avatar) HandleUpdate(from uint64, method string, args []any) {
	if method == "set_xyzh" {
		applyPose(&a.Pose, args, a.precision)
	}
}

// AvatarOV is the owner's projection: it can indicate movement intent and
// mirrors the published pose.
type AvatarOV struct {
	do.Core
	precision int
	Pose      sim.Pose
}

func (a *AvatarOV) OwnerFacing() {}

// IndicateIntent sends the control intent to the authority. Values are
// validated server-side; out-of-range values get the connection ejected.
func (a *AvatarOV) IndicateIntent(turn, forward float64) {
	a.Send(a, "indicate_intent", turn, forward)
}

func (a *AvatarOV) HandleUpdate(from uint64, method string, args []any) {
	if method == "set_xyzh" {
		applyPose(&a.Pose, args, a.precision)
	}
}

func applyPose(p *sim.Pose, args []any, precision int) {
	x, ok1 := argNum(args, 0)
	y, ok2 := argNum(args, 1)
	z, ok3 := argNum(args, 2)
	h, ok4 := argNum(args, 3)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}
	p.X = protocol.DequantizePos(int64(x), precision)
	p.Y = protocol.DequantizePos(int64(y), precision)
	p.Z = protocol.DequantizePos(int64(z), precision)
	p.H = h
}

// AvatarAI owns the canonical simulation state. It registers a movement task
// with the authority scheduler on creation and deregisters on destruction;
// no other role ever touches the pose.
type AvatarAI struct {
	do.Core
	deps *Deps

	pose   sim.Pose
	intent sim.Intent
	task   sim.TaskID
}

func (a *AvatarAI) Authoritative() {}

func (a *AvatarAI) OnInit() {
	a.deps.Log.Printf("AvatarAI init %d in (%d, %d)", a.DoID(), a.ParentID(), a.ZoneID())
	a.task = a.deps.Sched.Add(a.updatePosition)
}

func (a *AvatarAI) OnDelete() {
	a.deps.Log.Printf("AvatarAI delete %d", a.DoID())
	a.deps.Sched.Remove(a.task)
}

// Pose exposes the canonical pose for inspection (tests, admin surfaces).
func (a *AvatarAI) Pose() sim.Pose { return a.pose }

// Intent exposes the stored control intent.
func (a *AvatarAI) Intent() sim.Intent { return a.intent }

func (a *AvatarAI) HandleUpdate(from uint64, method string, args []any) {
	if method != "indicate_intent" {
		return
	}
	turn, ok1 := argNum(args, 0)
	forward, ok2 := argNum(args, 1)
	next := sim.Intent{Turn: turn, Forward: forward}
	if !ok1 || !ok2 || !next.Valid() {
		// The client is out of its programmed range: a rules violation.
		// Stored intent stays as it was.
		a.deps.Agent.Eject(from, protocol.ReasonRuleViolation, "Argument values out of range.")
		return
	}
	// Takes effect on the next tick; no immediate re-simulation.
	a.intent = next
}

func (a *AvatarAI) updatePosition() {
	dt := 1.0 / float64(a.deps.Cfg.TickRateHz)
	if !sim.Step(&a.pose, a.intent, dt, a.deps.Tuning) {
		return
	}
	x, y, z, h := a.pose.Quantize(a.deps.Cfg.Avatar.PosPrecision)
	a.Send(a, "set_xyzh", x, y, z, h)
}
