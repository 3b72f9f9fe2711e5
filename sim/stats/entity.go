package stats

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/debug"
)

// DefaultPriority is the priority of entities that do not set one. Zero is
// served before one, which leaves room to bump entities ahead of the default class.
const DefaultPriority = 1

// Attribute keys with a meaning to the library.
const (
	AttrPriority = "priority"
	AttrType     = "type"
)

// Attributes are arbitrary named properties of an entity.
type Attributes map[string]any

// ProcessFunc is what an entity does during its lifetime.
type ProcessFunc func(p *sim.Process, e *Entity) error

// VisitRecord is a copy of an entity's timestamps at one resource.
// len(Arrivals) >= len(Starts) >= len(Finishes), differing by at most one.
type VisitRecord struct {
	Arrivals    []float64
	Starts      []float64
	Finishes    []float64
	Outstanding bool // a request is held or queued
}

type visit struct {
	arrivals []float64
	starts   []float64
	finishes []float64
	request  *sim.Request
}

// Entity is a simulated actor with a lifecycle from creation to disposal.
// It records every visit to every resource so waiting and processing
// durations can be derived once it has been disposed.
type Entity struct {
	Name string
	Kind string

	attributes   Attributes
	env          *sim.Environment
	registry     *Registry
	process      ProcessFunc
	creationTime float64
	disposalTime float64
	created      bool
	disposed     bool
	visits       map[string]*visit
	order        []string // resource names in order of first visit
}

// NewEntity creates an entity of the given kind bound to a run.
// attrs is copied; a missing priority attribute defaults to DefaultPriority.
func NewEntity(registry *Registry, kind string, attrs Attributes, process ProcessFunc) (*Entity, error) {
	if process == nil {
		return nil, fmt.Errorf("entity %q: %w: a process function is required", kind, ErrNotImplemented)
	}
	if registry == nil {
		panic("NewEntity: registry must not be nil")
	}
	a := make(Attributes, len(attrs)+1)
	maps.Copy(a, attrs)
	if _, ok := a[AttrPriority]; !ok {
		a[AttrPriority] = DefaultPriority
	}
	if _, err := toInt(a[AttrPriority]); err != nil {
		return nil, fmt.Errorf("entity %q: priority attribute: %w", kind, err)
	}
	return &Entity{
		Name:       kind,
		Kind:       kind,
		attributes: a,
		env:        registry.Env(),
		registry:   registry,
		process:    process,
		visits:     make(map[string]*visit),
	}, nil
}

// This method returns a human-readable string representation of an Entity.
func (e *Entity) String() string {
	created := "<nil>"
	if e.created {
		created = fmt.Sprint(e.creationTime)
	}
	return fmt.Sprintf("%s created_at: %s attributes: %v", e.Name, created, e.attributes)
}

// Run executes the entity's process.
func (e *Entity) Run(p *sim.Process) error {
	return e.process(p, e)
}

// Priority returns the entity's default request priority.
func (e *Entity) Priority() int {
	p, err := toInt(e.attributes[AttrPriority])
	if err != nil {
		panic(fmt.Sprintf("entity %s: priority attribute: %v", e.Name, err))
	}
	return p
}

// Attribute returns one attribute.
func (e *Entity) Attribute(name string) (any, bool) {
	v, ok := e.attributes[name]
	return v, ok
}

// Attributes returns a copy of all attributes.
func (e *Entity) Attributes() Attributes {
	return maps.Clone(e.attributes)
}

// SetAttribute records an arbitrary property. Resources may use attributes to
// decide how an entity is served. The priority attribute must be an integer.
func (e *Entity) SetAttribute(name string, value any) error {
	if name == AttrPriority {
		if _, err := toInt(value); err != nil {
			return fmt.Errorf("entity %s: priority attribute: %w", e.Name, err)
		}
	}
	e.attributes[name] = value
	return nil
}

// MatchesAttributes reports whether every key in filter is present and equal.
func (e *Entity) MatchesAttributes(filter Attributes) bool {
	for k, want := range filter {
		got, ok := e.attributes[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

// Now returns the current simulated time.
func (e *Entity) Now() float64 {
	return e.env.Now()
}

// Wait returns a timeout event for a pause that is not spent at any resource.
func (e *Entity) Wait(delay float64) *sim.Event {
	return e.env.Timeout(delay)
}

// CreationTime returns when the entity entered the system, if it has.
func (e *Entity) CreationTime() (float64, bool) {
	return e.creationTime, e.created
}

// DisposalTime returns when the entity left the system, if it has.
func (e *Entity) DisposalTime() (float64, bool) {
	return e.disposalTime, e.disposed
}

func (e *Entity) setCreationTime(t float64) {
	e.creationTime = t
	e.created = true
}

// IsDisposed reports whether Dispose has been called.
func (e *Entity) IsDisposed() bool {
	return e.disposed
}

// DidVisitResource reports whether the entity ever requested the named resource.
func (e *Entity) DidVisitResource(name string) bool {
	_, ok := e.visits[name]
	return ok
}

// VisitedResources returns resource names in order of first visit.
func (e *Entity) VisitedResources() []string {
	return append([]string(nil), e.order...)
}

// Visit returns a copy of the timestamps recorded at the named resource.
func (e *Entity) Visit(name string) (VisitRecord, bool) {
	v, ok := e.visits[name]
	if !ok {
		return VisitRecord{}, false
	}
	return VisitRecord{
		Arrivals:    append([]float64(nil), v.arrivals...),
		Starts:      append([]float64(nil), v.starts...),
		Finishes:    append([]float64(nil), v.finishes...),
		Outstanding: v.request != nil,
	}, true
}

// WaitForResource logs an arrival at r and requests a unit at the entity's
// own priority. The caller waits on the returned request.
func (e *Entity) WaitForResource(r *Resource) *sim.Request {
	return e.WaitForResourceWithPriority(r, e.Priority())
}

// WaitForResourceWithPriority is WaitForResource with a one-off priority,
// the only way to move an entity ahead of its class.
func (e *Entity) WaitForResourceWithPriority(r *Resource, priority int) *sim.Request {
	debug.Infof("%s requesting %s: %v", e.Name, r.Name(), e.env.Now())

	v := e.visitFor(r)
	v.arrivals = append(v.arrivals, e.env.Now())
	v.request = r.Request(priority)
	return v.request
}

// ProcessAtResource logs the start of service at r and returns a timeout for
// the service duration. Errors from the service time function name the resource.
func (e *Entity) ProcessAtResource(r *Resource) (*sim.Event, error) {
	v, ok := e.visits[r.Name()]
	if !ok || v.request == nil || len(v.starts) >= len(v.arrivals) {
		return nil, fmt.Errorf("%s at %q: %w", e.Name, r.Name(), ErrNotRequested)
	}
	if !v.request.Granted() {
		return nil, fmt.Errorf("%s at %q: %w: request is still queued", e.Name, r.Name(), ErrNotRequested)
	}
	debug.Infof("%s started processing at %s : %v", e.Name, r.Name(), e.env.Now())

	v.starts = append(v.starts, e.env.Now())
	r.StartProcessing()
	d, err := r.serviceDuration(e)
	if err != nil {
		return nil, err
	}
	return e.env.Timeout(d), nil
}

// ReleaseResource logs the end of service at r and hands the unit back.
// A request still queued is withdrawn and its arrival forgotten, so the
// abandoned wait counts toward neither waiting nor processing time.
// Releasing twice only writes a diagnostic.
func (e *Entity) ReleaseResource(r *Resource) {
	v, ok := e.visits[r.Name()]
	if !ok || v.request == nil {
		debug.Infof("resource %s has already been released by %s", r.Name(), e.Name)
		return
	}
	if !v.request.Granted() {
		debug.Infof("%s withdrew from %s: %v", e.Name, r.Name(), e.env.Now())
		r.Withdraw(v.request)
		v.arrivals = v.arrivals[:len(v.arrivals)-1]
		v.request = nil
		return
	}
	debug.Infof("%s finished at %s: %v", e.Name, r.Name(), e.env.Now())

	v.finishes = append(v.finishes, e.env.Now())
	r.Release(v.request)
	v.request = nil
}

// Dispose marks the entity as finished. Calling it again re-stamps the disposal time.
func (e *Entity) Dispose() float64 {
	e.disposalTime = e.env.Now()
	e.disposed = true
	debug.Infof("%s disposed: %v", e.Name, e.disposalTime)
	e.registry.observeDisposal(e)
	return e.disposalTime
}

func (e *Entity) visitFor(r *Resource) *visit {
	e.registry.addResource(r)
	v, ok := e.visits[r.Name()]
	if !ok {
		v = &visit{}
		e.visits[r.Name()] = v
		e.order = append(e.order, r.Name())
	}
	return v
}

// TotalTime is the time from creation to disposal.
func (e *Entity) TotalTime() (float64, error) {
	if !e.disposed {
		return 0, fmt.Errorf("total time of %s: %w", e.Name, ErrNotDisposed)
	}
	if !e.created {
		return 0, fmt.Errorf("total time of %s: %w", e.Name, ErrNotCreated)
	}
	return e.disposalTime - e.creationTime, nil
}

// TotalWaitingTime is the time spent queued across all resources.
func (e *Entity) TotalWaitingTime() (float64, error) {
	if !e.disposed {
		return 0, fmt.Errorf("waiting time of %s: %w", e.Name, ErrNotDisposed)
	}
	total := 0.0
	for _, name := range e.order {
		total += e.visits[name].waiting()
	}
	return total, nil
}

// TotalProcessingTime is the time spent in service across all resources.
func (e *Entity) TotalProcessingTime() (float64, error) {
	if !e.disposed {
		return 0, fmt.Errorf("processing time of %s: %w", e.Name, ErrNotDisposed)
	}
	total := 0.0
	for _, name := range e.order {
		total += e.visits[name].processing()
	}
	return total, nil
}

// WaitingTimeAt is the time spent queued at r, or ErrNoData if r was never visited.
func (e *Entity) WaitingTimeAt(r *Resource) (float64, error) {
	v, err := e.visitAt(r, "waiting time")
	if err != nil {
		return 0, err
	}
	return v.waiting(), nil
}

// ProcessingTimeAt is the time spent in service at r, or ErrNoData if r was never visited.
func (e *Entity) ProcessingTimeAt(r *Resource) (float64, error) {
	v, err := e.visitAt(r, "processing time")
	if err != nil {
		return 0, err
	}
	return v.processing(), nil
}

// TimeAt is waiting plus processing time at r.
func (e *Entity) TimeAt(r *Resource) (float64, error) {
	v, err := e.visitAt(r, "time")
	if err != nil {
		return 0, err
	}
	return v.waiting() + v.processing(), nil
}

func (e *Entity) visitAt(r *Resource, what string) (*visit, error) {
	if !e.disposed {
		return nil, fmt.Errorf("%s of %s at %q: %w", what, e.Name, r.Name(), ErrNotDisposed)
	}
	v, ok := e.visits[r.Name()]
	if !ok {
		return nil, fmt.Errorf("%s of %s at %q: %w", what, e.Name, r.Name(), ErrNoData)
	}
	return v, nil
}

// Snapshot returns a detached, disposed copy of the entity as if it left the
// system now: a visit still holding or awaiting a unit gets its missing start
// and finish stamped with the current time. The entity itself is unchanged.
func (e *Entity) Snapshot() *Entity {
	now := e.env.Now()
	cp := *e
	cp.attributes = maps.Clone(e.attributes)
	cp.order = append([]string(nil), e.order...)
	cp.visits = make(map[string]*visit, len(e.visits))
	for name, v := range e.visits {
		c := &visit{
			arrivals: append([]float64(nil), v.arrivals...),
			starts:   append([]float64(nil), v.starts...),
			finishes: append([]float64(nil), v.finishes...),
		}
		if v.request != nil {
			if len(c.starts) < len(c.arrivals) {
				c.starts = append(c.starts, now)
			}
			if len(c.finishes) < len(c.arrivals) {
				c.finishes = append(c.finishes, now)
			}
		}
		cp.visits[name] = c
	}
	if !cp.disposed {
		cp.disposalTime = now
		cp.disposed = true
	}
	return &cp
}

func (v *visit) waiting() float64 {
	total := 0.0
	for i := 0; i < len(v.starts) && i < len(v.arrivals); i++ {
		total += v.starts[i] - v.arrivals[i]
	}
	return total
}

func (v *visit) processing() float64 {
	total := 0.0
	for i := 0; i < len(v.finishes) && i < len(v.starts); i++ {
		total += v.finishes[i] - v.starts[i]
	}
	return total
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case int32:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("want an integer, got %v (%T)", v, v)
}
