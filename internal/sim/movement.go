package sim

import (
	"math"

	"distworld.dev/internal/protocol"
)

// Tuning holds the movement constants, passed in from configuration.
type Tuning struct {
	Speed         float64 // world units per second
	RotationSpeed float64 // degrees per second
	Precision     int     // decimal places kept per position component
	Bound         float64 // |x| and |y| are clamped to this
}

// Pose is the canonical avatar state. It lives in the authority-role view
// only; no other role ever mutates it.
type Pose struct {
	X, Y, Z float64
	H       float64 // heading in degrees, always in [0, 360)
}

// Intent is the player-supplied control state, each component in [-1, 1].
type Intent struct {
	Turn    float64
	Forward float64
}

// Valid reports whether both components are in range. Out-of-range intents
// are a rules violation: the sending client gets ejected.
func (i Intent) Valid() bool {
	return i.Turn >= -1 && i.Turn <= 1 && i.Forward >= -1 && i.Forward <= 1
}

// WrapHeading folds h into [0, 360): below zero it wraps up by 360, at or
// above 360 it wraps down by 360. Idempotent on already-wrapped values.
func WrapHeading(h float64) float64 {
	if h >= 360 {
		return h - 360
	}
	if h < 0 {
		return h + 360
	}
	return h
}

// roundTo rounds half away from zero to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	f := math.Pow(10, float64(places))
	return math.Round(v*f) / f
}

// Step integrates one tick of control intent into the pose and reports
// whether anything changed. A zero intent is a no-op: no state change, no
// publication.
//
// The heading delta is (turn * rotation_speed * dt) modulo 360, where the
// modulus keeps the sign of turn; the new heading wraps into [0, 360). The
// displacement is the local forward vector (0, -speed*forward*dt, 0) rotated
// about the vertical axis by the new heading. Each displacement component is
// rounded to Precision decimals before accumulation; afterwards x and y are
// clamped to [-Bound, Bound]. z is deliberately not clamped: planar movement
// never displaces it, so clamping stays confined to the axes the integrator
// can move.
func Step(p *Pose, in Intent, dt float64, tun Tuning) bool {
	if in.Turn == 0 && in.Forward == 0 {
		return false
	}

	degrees := 360.0
	if in.Turn < 0 {
		degrees = -360.0
	}
	added := math.Mod(in.Turn*tun.RotationSpeed*dt, degrees)
	p.H = WrapHeading(p.H + added)

	rads := p.H * math.Pi / 180
	sin, cos := math.Sin(rads), math.Cos(rads)
	ly := -tun.Speed * in.Forward * dt
	dx := -sin * ly
	dy := cos * ly

	p.X += roundTo(dx, tun.Precision)
	p.Y += roundTo(dy, tun.Precision)

	p.X = clamp(p.X, -tun.Bound, tun.Bound)
	p.Y = clamp(p.Y, -tun.Bound, tun.Bound)
	return true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Quantize converts the pose to the fixed-point wire form: each coordinate
// scaled by 10^precision and truncated. The heading deliberately skips the
// precision factor and goes out as truncated whole degrees; both ends must
// agree on this asymmetry.
func (p Pose) Quantize(precision int) (x, y, z, h int64) {
	x = protocol.QuantizePos(p.X, precision)
	y = protocol.QuantizePos(p.Y, precision)
	z = protocol.QuantizePos(p.Z, precision)
	h = int64(p.H)
	return
}
