// Package engine advances a world by one time delta: velocity integration,
// wall containment, then a single pairwise collision pass.
//
// Overlapping bodies only exchange momentum; they are never pushed apart, so
// an overlap can persist over several steps. The separating-velocity check
// keeps such a pair from being resolved twice.
package engine

import (
	"github.com/zeusync/simcore/internal/core/sim/world"
)

// Restitution of every collision. 1 is perfectly elastic.
const Restitution = 1.0

// Step mutates w's bodies in place and returns w with the events of this step,
// bounces first (in body order) then collisions (in pair order). Callers that
// still need the input must pass w.Clone().
func Step(w world.World, dt float64) (world.World, []Event) {
	var events []Event
	for i := range w.Bodies {
		events = integrate(&w.Bodies[i], w.Width, w.Height, dt, events)
	}
	events = collide(w.Bodies, events)
	return w, events
}

func integrate(b *world.Body, width, height, dt float64, events []Event) []Event {
	b.X += b.VX * dt
	b.Y += b.VY * dt

	// Each wall is checked on its own: a corner hit yields two bounces.
	if b.X-b.R < 0 {
		b.X = b.R
		b.VX = -b.VX
		events = append(events, Bounce(SideLeft))
	}
	if b.X+b.R > width {
		b.X = width - b.R
		b.VX = -b.VX
		events = append(events, Bounce(SideRight))
	}
	if b.Y-b.R < 0 {
		b.Y = b.R
		b.VY = -b.VY
		events = append(events, Bounce(SideTop))
	}
	if b.Y+b.R > height {
		b.Y = height - b.R
		b.VY = -b.VY
		events = append(events, Bounce(SideBottom))
	}
	return events
}

func collide(bodies []world.Body, events []Event) []Event {
	for i := 0; i < len(bodies); i++ {
		for j := i + 1; j < len(bodies); j++ {
			if !Overlaps(bodies[i], bodies[j]) {
				continue
			}
			if Resolve(&bodies[i], &bodies[j]) {
				events = append(events, Collision(i, j))
			}
		}
	}
	return events
}

// Overlaps reports whether two circles touch or intersect.
func Overlaps(a, b world.Body) bool {
	d := b.Position().Sub(a.Position())
	rsum := a.R + b.R
	return d.LenSq() <= rsum*rsum
}

// Resolve applies an elastic impulse along the line of centres and reports
// whether it did. Coincident centres and pairs already separating are left
// untouched.
func Resolve(a, b *world.Body) bool {
	d := b.Position().Sub(a.Position())
	dist := d.Len()
	if dist == 0 {
		return false
	}
	n := d.Div(dist)

	relVel := b.Velocity().Sub(a.Velocity()).Dot(n)
	if relVel > 0 {
		return false
	}

	j := -(1 + Restitution) * relVel / (1/a.Mass + 1/b.Mass)
	impulse := n.Scale(j)
	a.SetVelocity(a.Velocity().Sub(impulse.Div(a.Mass)))
	b.SetVelocity(b.Velocity().Add(impulse.Div(b.Mass)))
	return true
}
