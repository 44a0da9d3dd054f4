// Package world holds the data the simulation operates on: the arena
// dimensions and the ordered body collection.
package world

import (
	"fmt"

	"github.com/zeusync/simcore/internal/core/physics"
)

// Body is a circular point mass. R > 0 and Mass > 0 are assumed by the engine
// but only checked by Validate.
type Body struct {
	X    float64 `json:"x" yaml:"x"`
	Y    float64 `json:"y" yaml:"y"`
	VX   float64 `json:"vx" yaml:"vx"`
	VY   float64 `json:"vy" yaml:"vy"`
	R    float64 `json:"r" yaml:"r"`
	Mass float64 `json:"mass" yaml:"mass"`
}

func (b Body) Position() physics.Vec2 { return physics.V(b.X, b.Y) }
func (b Body) Velocity() physics.Vec2 { return physics.V(b.VX, b.VY) }

func (b *Body) SetVelocity(v physics.Vec2) {
	b.VX, b.VY = v.X, v.Y
}

// World is the simulation state. Body indices are what collision events
// refer to, so order is preserved by every operation.
type World struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
	Bodies []Body  `json:"bodies" yaml:"bodies"`
}

// New returns a world with a copy of bodies.
func New(width, height float64, bodies ...Body) World {
	w := World{Width: width, Height: height, Bodies: make([]Body, len(bodies))}
	copy(w.Bodies, bodies)
	return w
}

// Clone returns a world that shares no memory with w.
func (w World) Clone() World {
	return New(w.Width, w.Height, w.Bodies...)
}

func (w World) Len() int { return len(w.Bodies) }

// Validate checks the invariants the engine relies on. Callers run it before
// stepping untrusted input; the engine itself never does.
func (w World) Validate() error {
	if !physics.Finite(w.Width, w.Height) || w.Width <= 0 || w.Height <= 0 {
		return fmt.Errorf("%w: arena %vx%v must be finite and positive", ErrInvalidWorld, w.Width, w.Height)
	}
	for i, b := range w.Bodies {
		if !physics.Finite(b.X, b.Y, b.VX, b.VY, b.R, b.Mass) {
			return fmt.Errorf("%w: body %d has a non-finite field", ErrInvalidWorld, i)
		}
		if b.R <= 0 {
			return fmt.Errorf("%w: body %d radius %v must be positive", ErrInvalidWorld, i, b.R)
		}
		if b.Mass <= 0 {
			return fmt.Errorf("%w: body %d mass %v must be positive", ErrInvalidWorld, i, b.Mass)
		}
	}
	return nil
}
