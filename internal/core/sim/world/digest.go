package world

import (
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"
)

// Digest fingerprints the numeric state of w. Two worlds have the same digest
// iff every field is bit-identical (modulo hash collisions), so it is a cheap
// determinism check across runs.
func (w World) Digest() uint64 {
	d := xxhash.New()
	var buf [8]byte
	put := func(f float64) {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(f))
		_, _ = d.Write(buf[:])
	}
	put(w.Width)
	put(w.Height)
	binary.LittleEndian.PutUint64(buf[:], uint64(len(w.Bodies)))
	_, _ = d.Write(buf[:])
	for _, b := range w.Bodies {
		put(b.X)
		put(b.Y)
		put(b.VX)
		put(b.VY)
		put(b.R)
		put(b.Mass)
	}
	return d.Sum64()
}
