// Package detrand provides deterministic, per-subsystem random number
// generation, for reproducible topology synthesis and scheduler tie-break
// testing: a master seed plus FNV-1a-hashed per-subsystem derivation, every
// subsystem XORing the master seed with its own name hash uniformly.
package detrand

import (
	"hash/fnv"
	"math/rand"
)

// PartitionedRNG hands out one *rand.Rand per named subsystem, all
// deterministically derived from one master seed. Not thread-safe: callers
// needing per-LP RNGs should hold one PartitionedRNG per LP, or serialize
// access.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// New constructs a PartitionedRNG from a master seed.
func New(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the deterministically-seeded RNG for name, caching
// it on first use so repeated calls with the same name return the same
// instance. Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	derived := p.seed ^ fnv1a64(name)
	rng := rand.New(rand.NewSource(derived))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed this PartitionedRNG was built from.
func (p *PartitionedRNG) Seed() int64 { return p.seed }

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
