// Package metrics reduces a world snapshot to aggregate physical quantities.
// Nothing here mutates its input.
package metrics

import (
	"github.com/zeusync/simcore/internal/core/physics"
	"github.com/zeusync/simcore/internal/core/sim/world"
)

// Result is the wire shape of a metrics response.
type Result struct {
	Bodies        uint64  `json:"bodies"`
	KineticEnergy float64 `json:"kinetic_energy"`
}

func Evaluate(w world.World) Result {
	return Result{
		Bodies:        uint64(len(w.Bodies)),
		KineticEnergy: KineticEnergy(w),
	}
}

// KineticEnergy is the sum of 0.5*m*|v|^2. NaN and Inf propagate.
func KineticEnergy(w world.World) float64 {
	var k float64
	for _, b := range w.Bodies {
		v2 := b.VX*b.VX + b.VY*b.VY
		k += 0.5 * b.Mass * v2
	}
	return k
}

// Momentum is the total linear momentum of the world.
func Momentum(w world.World) physics.Vec2 {
	var p physics.Vec2
	for _, b := range w.Bodies {
		p = p.Add(b.Velocity().Scale(b.Mass))
	}
	return p
}
