package stats

import (
	"fmt"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/debug"
)

// Interarrival draws the delay until the next entity arrives.
type Interarrival func() float64

// EntityBuilder creates the next entity. Identity and creation time are
// stamped by the Source.
type EntityBuilder func() (*Entity, error)

// SourceConfig configures an arrival source.
type SourceConfig struct {
	// FirstCreation, when set, replaces the first interarrival draw.
	FirstCreation *float64
	// Limit caps the number of entities created. Zero or negative is unlimited.
	Limit int
	// Interarrival is required.
	Interarrival Interarrival
	// Build is required.
	Build EntityBuilder
}

// Source generates entities at interarrival delays and runs each of them,
// disposing every entity automatically once its process returns.
type Source struct {
	registry *Registry
	cfg      SourceConfig
	count    int
}

// NewSource validates cfg and returns a Source feeding registry's run.
func NewSource(registry *Registry, cfg SourceConfig) (*Source, error) {
	if cfg.Interarrival == nil {
		return nil, fmt.Errorf("source: %w: an interarrival time function is required", ErrNotImplemented)
	}
	if cfg.Build == nil {
		return nil, fmt.Errorf("source: %w: an entity builder is required", ErrNotImplemented)
	}
	if cfg.FirstCreation != nil && *cfg.FirstCreation < 0 {
		return nil, fmt.Errorf("source: first creation must be non-negative, got %v", *cfg.FirstCreation)
	}
	return &Source{registry: registry, cfg: cfg}, nil
}

// BuildCount returns the number of emissions attempted so far. Once the limit
// is reached it is one past the limit.
func (s *Source) BuildCount() int {
	return s.count
}

// Now returns the current simulated time.
func (s *Source) Now() float64 {
	return s.registry.Env().Now()
}

// next advances the arrival state machine. It returns the delay before the
// next entity and the entity itself, or ok=false once the limit is exceeded.
func (s *Source) next() (delay float64, e *Entity, ok bool, err error) {
	s.count++
	if s.cfg.Limit > 0 && s.count > s.cfg.Limit {
		return 0, nil, false, nil
	}
	if s.count == 1 && s.cfg.FirstCreation != nil {
		delay = *s.cfg.FirstCreation
	} else {
		delay = s.cfg.Interarrival()
	}
	if delay < 0 {
		return 0, nil, false, fmt.Errorf("source: interarrival time must be non-negative, got %v", delay)
	}

	e, err = s.cfg.Build()
	if err != nil {
		return 0, nil, false, fmt.Errorf("source: building entity %d: %w", s.count, err)
	}
	if e == nil {
		return 0, nil, false, fmt.Errorf("source: building entity %d: %w: builder returned no entity", s.count, ErrNotImplemented)
	}
	kind := e.Kind
	if kind == "" {
		kind = "Entity"
	}
	e.setCreationTime(s.Now() + delay)
	e.Name = fmt.Sprintf("%s %d", kind, s.count)
	e.attributes[AttrType] = kind
	s.registry.Add(e)
	return delay, e, true, nil
}

// Start begins the run and launches the arrival loop. Entities created before
// the limit is reached run to completion.
func (s *Source) Start() *sim.Process {
	env := s.registry.Env()
	return env.Process(func(p *sim.Process) error {
		s.registry.Begin()
		for {
			delay, e, ok, err := s.next()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			p.Timeout(delay)
			debug.Infof("%s", e)
			env.Process(e.Run).AddCallback(func(*sim.Event) { e.Dispose() })
		}
	})
}
