package workload

import (
	"testing"
)

func TestPartitionedRNG_SameSubsystem_ReturnsSameInstance(t *testing.T) {
	// GIVEN a PartitionedRNG
	p := NewPartitionedRNG(42)

	// WHEN the same subsystem is requested twice
	a := p.ForSubsystem(SubsystemFor(SubsystemService, "Teller"))
	b := p.ForSubsystem(SubsystemFor(SubsystemService, "Teller"))

	// THEN the cached instance is returned
	if a != b {
		t.Error("ForSubsystem returned different instances for the same name")
	}
}

func TestPartitionedRNG_SubsystemsAreIsolated(t *testing.T) {
	// GIVEN two RNGs with the same seed
	p1 := NewPartitionedRNG(7)
	p2 := NewPartitionedRNG(7)

	// WHEN p1 draws heavily from one stream before touching another
	for i := 0; i < 1000; i++ {
		p1.ForSubsystem("service/Teller").Float64()
	}
	got := p1.ForSubsystem("arrivals/Customer").Float64()
	want := p2.ForSubsystem("arrivals/Customer").Float64()

	// THEN the other stream is unaffected
	if got != want {
		t.Errorf("arrivals stream perturbed: got %v, want %v", got, want)
	}
	if p1.ForSubsystem("a").Int63() == p1.ForSubsystem("b").Int63() {
		t.Error("distinct subsystems produced the same first draw")
	}
	if p1.Seed() != 7 {
		t.Errorf("Seed: got %d, want 7", p1.Seed())
	}
}
