package stats

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/series"
)

// serveAt returns a process that visits each resource in turn:
// queue, get served, release.
func serveAt(resources ...*Resource) ProcessFunc {
	return func(p *sim.Process, e *Entity) error {
		for _, r := range resources {
			p.Wait(e.WaitForResource(r))
			done, err := e.ProcessAtResource(r)
			if err != nil {
				return err
			}
			p.Wait(done)
			e.ReleaseResource(r)
		}
		return nil
	}
}

func newTestResource(t *testing.T, env *sim.Environment, name string, capacity int, st ServiceTime) *Resource {
	t.Helper()
	r, err := NewResource(env, name, capacity, st)
	require.NoError(t, err)
	return r
}

func newTestEntity(t *testing.T, reg *Registry, kind string, attrs Attributes, process ProcessFunc) *Entity {
	t.Helper()
	e, err := NewEntity(reg, kind, attrs, process)
	require.NoError(t, err)
	return e
}

// arriveAt registers e now and runs it from time at, disposing it when done.
func arriveAt(reg *Registry, e *Entity, at float64) {
	env := reg.Env()
	e.setCreationTime(at)
	reg.Add(e)
	env.Process(func(p *sim.Process) error {
		p.Timeout(at)
		return e.Run(p)
	}).AddCallback(func(*sim.Event) { e.Dispose() })
}

// constantSource builds a source of n entities of kind arriving every gap,
// the first one at first.
func constantSource(t *testing.T, reg *Registry, kind string, attrs Attributes, first, gap float64, n int, process ProcessFunc) *Source {
	t.Helper()
	src, err := NewSource(reg, SourceConfig{
		FirstCreation: &first,
		Limit:         n,
		Interarrival:  func() float64 { return gap },
		Build: func() (*Entity, error) {
			return NewEntity(reg, kind, attrs, process)
		},
	})
	require.NoError(t, err)
	return src
}

func runAll(t *testing.T, env *sim.Environment, until float64) {
	t.Helper()
	require.NoError(t, env.Run(until))
	t.Cleanup(env.Close)
}

type recordedEvent struct {
	resource string
	kind     series.Kind
	at       float64
	queue    int
	active   int
}

type fakeObserver struct {
	events    []recordedEvent
	disposals []float64
}

func (o *fakeObserver) ObserveResource(resource string, kind series.Kind, at float64, queueLen, active, _ int) {
	o.events = append(o.events, recordedEvent{resource, kind, at, queueLen, active})
}

func (o *fakeObserver) ObserveDisposal(_ string, _, timeInSystem float64) {
	o.disposals = append(o.disposals, timeInSystem)
}
