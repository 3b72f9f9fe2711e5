package workload

import (
	"hash/fnv"
	"math/rand"
)

// Subsystem prefixes. Every source and every resource draws from its own
// stream so adding a resource does not perturb the arrivals of a source.
const (
	SubsystemArrivals = "arrivals"
	SubsystemService  = "service"
)

// SubsystemFor names the stream of one source or resource, e.g. "service/Teller".
func SubsystemFor(prefix, name string) string {
	return prefix + "/" + name
}

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
// The seed of a subsystem is masterSeed XOR fnv1a64(name).
//
// NOT thread-safe. The simulation runs on one logical thread.
type PartitionedRNG struct {
	seed       int64
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a master seed.
func NewPartitionedRNG(seed int64) *PartitionedRNG {
	return &PartitionedRNG{
		seed:       seed,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns the RNG for name. The same name always returns the
// same *rand.Rand instance.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(p.seed ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Seed returns the master seed.
func (p *PartitionedRNG) Seed() int64 {
	return p.seed
}

func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
