package stats

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/series"
)

// Observer receives every logged resource event and every disposal.
type Observer interface {
	ObserveResource(resource string, kind series.Kind, at float64, queueLen, active, capacity int)
	ObserveDisposal(kind string, at, timeInSystem float64)
}

// Registry is the context of one simulation run. It holds every entity created
// during the run and every resource they touched, and answers aggregate queries.
//
// A run begins with Begin (called by Source.Start). Queries made before that
// fail with ErrNoRun.
type Registry struct {
	env       *sim.Environment
	runID     string
	begun     bool
	entities  []*Entity
	resources map[string]*Resource
	observer  Observer
}

// NewRegistry creates a registry for runs on env.
func NewRegistry(env *sim.Environment) *Registry {
	if env == nil {
		panic("NewRegistry: env must not be nil")
	}
	return &Registry{
		env:       env,
		resources: make(map[string]*Resource),
	}
}

// Env returns the environment the run executes in.
func (r *Registry) Env() *sim.Environment {
	return r.env
}

// Begin starts a run, discarding anything recorded before it. Several sources
// may share one run: once begun, further calls are no-ops until Reset.
func (r *Registry) Begin() string {
	if r.begun {
		return r.runID
	}
	r.entities = nil
	r.resources = make(map[string]*Resource)
	r.runID = uuid.NewString()
	r.begun = true
	logrus.WithField("run", r.runID).Debugf("Simulation run started at %v", r.env.Now())
	return r.runID
}

// Reset discards the current run. The next Begin starts a new one.
func (r *Registry) Reset() {
	r.entities = nil
	r.resources = make(map[string]*Resource)
	r.runID = ""
	r.begun = false
}

// RunID identifies the current run, empty before Begin.
func (r *Registry) RunID() string {
	return r.runID
}

// SetObserver attaches o to every resource of the run, present and future.
func (r *Registry) SetObserver(o Observer) {
	r.observer = o
	for _, res := range r.resources {
		res.observer = o
	}
}

// Add registers an entity with the run. Its creation time defaults to now.
func (r *Registry) Add(e *Entity) {
	if !e.created {
		e.setCreationTime(r.env.Now())
	}
	r.entities = append(r.entities, e)
}

func (r *Registry) addResource(res *Resource) {
	if _, ok := r.resources[res.Name()]; ok {
		return
	}
	r.resources[res.Name()] = res
	if r.observer != nil {
		res.observer = r.observer
	}
}

func (r *Registry) observeDisposal(e *Entity) {
	if r.observer == nil || !e.created {
		return
	}
	r.observer.ObserveDisposal(e.Kind, e.disposalTime, e.disposalTime-e.creationTime)
}

func (r *Registry) check() error {
	if !r.begun {
		return ErrNoRun
	}
	return nil
}

// Entities returns every disposed entity in creation order.
func (r *Registry) Entities() ([]*Entity, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	out := make([]*Entity, 0, len(r.entities))
	for _, e := range r.entities {
		if e.IsDisposed() {
			out = append(out, e)
		}
	}
	return out, nil
}

// InFlight returns entities that have been created but not yet disposed.
func (r *Registry) InFlight() ([]*Entity, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	var out []*Entity
	for _, e := range r.entities {
		if !e.IsDisposed() && e.creationTime <= r.env.Now() {
			out = append(out, e)
		}
	}
	return out, nil
}

// Resource returns the tracked resource registered under name.
func (r *Registry) Resource(name string) (*Resource, bool) {
	res, ok := r.resources[name]
	return res, ok
}

// Query selects entities for aggregate duration queries.
type Query struct {
	// Resource restricts durations to one resource. Entities that never
	// visited it are left out of the result.
	Resource *Resource
	// Attributes keeps entities whose attributes contain every key with an equal value.
	Attributes Attributes
	// IncludeInFlight adds entities still in the system, measured as if they
	// left now (see Entity.Snapshot).
	IncludeInFlight bool
}

func (r *Registry) filter(q Query) ([]*Entity, error) {
	selected, err := r.Entities()
	if err != nil {
		return nil, err
	}
	if q.IncludeInFlight {
		inFlight, _ := r.InFlight()
		for _, e := range inFlight {
			selected = append(selected, e.Snapshot())
		}
	}
	if len(q.Attributes) == 0 {
		return selected, nil
	}
	out := selected[:0]
	for _, e := range selected {
		if e.MatchesAttributes(q.Attributes) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *Registry) collect(q Query, whole func(*Entity) (float64, error), at func(*Entity, *Resource) (float64, error)) ([]float64, error) {
	entities, err := r.filter(q)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(entities))
	for _, e := range entities {
		var v float64
		if q.Resource == nil {
			v, err = whole(e)
		} else {
			v, err = at(e, q.Resource)
			if errors.Is(err, ErrNoData) {
				continue
			}
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// TotalTimes returns time in system per entity, or time at q.Resource when set.
func (r *Registry) TotalTimes(q Query) ([]float64, error) {
	return r.collect(q, (*Entity).TotalTime, (*Entity).TimeAt)
}

// WaitingTimes returns time spent queued per entity.
func (r *Registry) WaitingTimes(q Query) ([]float64, error) {
	return r.collect(q, (*Entity).TotalWaitingTime, (*Entity).WaitingTimeAt)
}

// ProcessingTimes returns time spent in service per entity.
func (r *Registry) ProcessingTimes(q Query) ([]float64, error) {
	return r.collect(q, (*Entity).TotalProcessingTime, (*Entity).ProcessingTimeAt)
}

func (r *Registry) overTime(res *Resource, f series.Frequency, sample func(*Resource, series.Frequency) ([]float64, error)) ([]float64, error) {
	if err := r.check(); err != nil {
		return nil, err
	}
	tracked, ok := r.resources[res.Name()]
	if !ok {
		out, err := res.Zeros(f)
		if err != nil {
			return nil, fmt.Errorf("resource %q: %w", res.Name(), err)
		}
		return out, nil
	}
	out, err := sample(tracked, f)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", res.Name(), err)
	}
	return out, nil
}

// QueueSizeOverTime samples the queue length of res. A resource no entity
// visited yields an all-zero series of the same framing.
func (r *Registry) QueueSizeOverTime(res *Resource, f series.Frequency) ([]float64, error) {
	return r.overTime(res, f, (*Resource).QueueSizeOverTime)
}

// UtilizationOverTime samples the fraction of res in use.
func (r *Registry) UtilizationOverTime(res *Resource, f series.Frequency) ([]float64, error) {
	return r.overTime(res, f, (*Resource).UtilizationOverTime)
}

// NumberBeingProcessedOverTime samples the number of units of res in use.
func (r *Registry) NumberBeingProcessedOverTime(res *Resource, f series.Frequency) ([]float64, error) {
	return r.overTime(res, f, (*Resource).NumberBeingProcessedOverTime)
}
