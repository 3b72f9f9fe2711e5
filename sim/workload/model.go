package workload

import (
	"fmt"
	"maps"
	"math/rand"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/stats"
)

// SubsystemDelay names the streams of route delays, one per source kind.
const SubsystemDelay = "delay"

// Model is a scenario instantiated against a run: its resources and sources,
// ready to start.
type Model struct {
	Scenario  *Scenario
	Registry  *stats.Registry
	Resources []*stats.Resource
	Sources   []*stats.Source

	byName map[string]*stats.Resource
}

// step is a compiled route step.
type step struct {
	resource *stats.Resource
	priority *int
	delay    Sampler
	rng      *rand.Rand
}

// Build instantiates s against reg. The scenario must have been validated.
func Build(s *Scenario, reg *stats.Registry) (*Model, error) {
	rngs := NewPartitionedRNG(s.Seed)
	env := reg.Env()
	m := &Model{
		Scenario: s,
		Registry: reg,
		byName:   make(map[string]*stats.Resource, len(s.Resources)),
	}

	for _, spec := range s.Resources {
		st, err := serviceTime(spec, rngs.ForSubsystem(SubsystemFor(SubsystemService, spec.Name)))
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", spec.Name, err)
		}
		r, err := stats.NewResource(env, spec.Name, spec.Capacity, st)
		if err != nil {
			return nil, err
		}
		m.Resources = append(m.Resources, r)
		m.byName[spec.Name] = r
	}

	for i := range s.Sources {
		src, err := m.buildSource(&s.Sources[i], rngs)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", s.Sources[i].Kind, err)
		}
		m.Sources = append(m.Sources, src)
	}
	return m, nil
}

// Start launches every source.
func (m *Model) Start() {
	for _, src := range m.Sources {
		src.Start()
	}
}

// Resource returns the resource named name.
func (m *Model) Resource(name string) (*stats.Resource, bool) {
	r, ok := m.byName[name]
	return r, ok
}

func (m *Model) buildSource(spec *SourceSpec, rngs *PartitionedRNG) (*stats.Source, error) {
	arrivals, err := NewSampler(spec.Interarrival)
	if err != nil {
		return nil, err
	}
	arrivalRNG := rngs.ForSubsystem(SubsystemFor(SubsystemArrivals, spec.Kind))
	delayRNG := rngs.ForSubsystem(SubsystemFor(SubsystemDelay, spec.Kind))

	steps := make([]step, 0, len(spec.Route))
	for _, rs := range spec.Route {
		if rs.Delay != nil {
			d, err := NewSampler(*rs.Delay)
			if err != nil {
				return nil, err
			}
			steps = append(steps, step{delay: d, rng: delayRNG})
			continue
		}
		r, ok := m.byName[rs.Resource]
		if !ok {
			return nil, fmt.Errorf("unknown resource %q", rs.Resource)
		}
		steps = append(steps, step{resource: r, priority: rs.Priority})
	}

	process := routeProcess(steps)
	attrs := stats.Attributes(maps.Clone(spec.Attributes))
	reg := m.Registry
	return stats.NewSource(reg, stats.SourceConfig{
		FirstCreation: spec.FirstArrival,
		Limit:         spec.Limit,
		Interarrival:  func() float64 { return arrivals.Sample(arrivalRNG) },
		Build: func() (*stats.Entity, error) {
			return stats.NewEntity(reg, spec.Kind, attrs, process)
		},
	})
}

// routeProcess visits every step in order: queue, serve and release at a
// resource, or pause for a delay.
func routeProcess(steps []step) stats.ProcessFunc {
	return func(p *sim.Process, e *stats.Entity) error {
		for _, st := range steps {
			if st.delay != nil {
				p.Wait(e.Wait(st.delay.Sample(st.rng)))
				continue
			}
			var req *sim.Request
			if st.priority != nil {
				req = e.WaitForResourceWithPriority(st.resource, *st.priority)
			} else {
				req = e.WaitForResource(st.resource)
			}
			p.Wait(req)
			done, err := e.ProcessAtResource(st.resource)
			if err != nil {
				return err
			}
			p.Wait(done)
			e.ReleaseResource(st.resource)
		}
		return nil
	}
}

func serviceTime(spec ResourceSpec, rng *rand.Rand) (stats.ServiceTime, error) {
	sampler, err := NewSampler(spec.Service.DistSpec)
	if err != nil {
		return nil, err
	}
	if spec.Service.ScaleBy == "" {
		return stats.FixedServiceTime(func() float64 { return sampler.Sample(rng) }), nil
	}
	attr := spec.Service.ScaleBy
	return stats.EntityServiceTime(func(e *stats.Entity) float64 {
		v, ok := e.Attribute(attr)
		if !ok {
			panic(fmt.Sprintf("%s has no attribute %q", e.Name, attr))
		}
		var factor float64
		switch n := v.(type) {
		case int:
			factor = float64(n)
		case float64:
			factor = n
		default:
			panic(fmt.Sprintf("%s attribute %q is not numeric: %v", e.Name, attr, v))
		}
		return sampler.Sample(rng) * factor
	}), nil
}
