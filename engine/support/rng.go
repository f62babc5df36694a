// Package support holds the injected collaborators of the engine: random
// sources, the cancellation token, the progress sink and the logger sink.
// Nothing in here reaches for global state; callers construct and pass them.
package support

import (
	"encoding/binary"
	"math/rand/v2"

	"lukechampine.com/frand"
)

// Source is a seeded random source. Implementations are not safe for
// concurrent use; give each worker its own.
type Source interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
	Uint64() uint64
}

// NewPCG returns the default source, a PCG generator from math/rand/v2.
func NewPCG(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// chacha adapts frand's ChaCha RNG to Source.
type chacha struct {
	r *frand.RNG
}

// NewChaCha returns a ChaCha8-based source. The 64-bit seed is expanded to
// the 32-byte key with SplitMix64.
func NewChaCha(seed uint64) Source {
	var key [32]byte
	s := seed
	for i := 0; i < 4; i++ {
		s = SplitMix(s)
		binary.LittleEndian.PutUint64(key[i*8:], s)
	}
	return &chacha{r: frand.NewCustom(key[:], 1024, 8)}
}

func (c *chacha) IntN(n int) int { return c.r.Intn(n) }
func (c *chacha) Shuffle(n int, swap func(i, j int)) { c.r.Shuffle(n, swap) }
func (c *chacha) Uint64() uint64 { return c.r.Uint64n(^uint64(0)) }

// SplitMix is one step of the SplitMix64 sequence. It derives independent
// per-sample seeds from a query seed: seed_i = SplitMix(seed + i).
func SplitMix(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// SourceFactory builds a fresh source from a seed.
type SourceFactory func(seed uint64) Source

// Factory returns the source constructor for a name: "pcg" (default) or "chacha".
func Factory(name string) (SourceFactory, bool) {
	switch name {
	case "", "pcg":
		return NewPCG, true
	case "chacha":
		return NewChaCha, true
	}
	return nil, false
}
