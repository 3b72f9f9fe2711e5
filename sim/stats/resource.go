package stats

import (
	"fmt"
	"math"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/series"
)

// ServiceTime computes how long a resource holds an entity.
// It has exactly two variants: FixedServiceTime and EntityServiceTime.
type ServiceTime interface {
	duration(e *Entity) float64
}

// FixedServiceTime depends only on the resource's own configuration.
type FixedServiceTime func() float64

func (f FixedServiceTime) duration(*Entity) float64 { return f() }

// EntityServiceTime depends on the entity being served.
type EntityServiceTime func(e *Entity) float64

func (f EntityServiceTime) duration(e *Entity) float64 { return f(e) }

// Constant returns a FixedServiceTime that always takes d.
func Constant(d float64) FixedServiceTime {
	return func() float64 { return d }
}

// Resource instruments a PriorityResource. Every request, service start and
// release is logged with the queue length and the number of units in use, and
// the logs are sampled into time series on demand.
type Resource struct {
	name        string
	env         *sim.Environment
	res         *sim.PriorityResource
	serviceTime ServiceTime
	queueLog    series.Log
	activeLog   series.Log
	observer    Observer
}

// NewResource creates an instrumented resource. The name is its only identity
// in a Registry.
func NewResource(env *sim.Environment, name string, capacity int, st ServiceTime) (*Resource, error) {
	switch f := st.(type) {
	case nil:
		return nil, fmt.Errorf("resource %q: %w: a service time function is required", name, ErrNotImplemented)
	case FixedServiceTime:
		if f == nil {
			return nil, fmt.Errorf("resource %q: %w: a service time function is required", name, ErrNotImplemented)
		}
	case EntityServiceTime:
		if f == nil {
			return nil, fmt.Errorf("resource %q: %w: a service time function is required", name, ErrNotImplemented)
		}
	}
	if capacity <= 0 {
		return nil, fmt.Errorf("resource %q: capacity must be positive, got %d", name, capacity)
	}
	return &Resource{
		name:        name,
		env:         env,
		res:         sim.NewPriorityResource(env, capacity),
		serviceTime: st,
	}, nil
}

// Name returns the resource's registry key.
func (r *Resource) Name() string { return r.name }

// Capacity returns the number of units.
func (r *Resource) Capacity() int { return r.res.Capacity() }

// Count returns the number of units in use.
func (r *Resource) Count() int { return r.res.Count() }

// QueueLen returns the number of requests waiting.
func (r *Resource) QueueLen() int { return r.res.QueueLen() }

// Now returns the current simulated time.
func (r *Resource) Now() float64 { return r.env.Now() }

// Request claims a unit at priority and logs the resulting queue and occupancy.
func (r *Resource) Request(priority int) *sim.Request {
	req := r.res.Request(priority)
	r.check(series.KindRequest)
	return req
}

// Release hands back the unit held by req and logs the occupancy afterwards.
func (r *Resource) Release(req *sim.Request) *sim.Event {
	ev := r.res.Release(req)
	r.activeLog.Append(r.env.Now(), float64(r.res.Count()), series.KindRelease)
	r.notify(series.KindRelease)
	return ev
}

// Withdraw removes a request that is still queued and logs the shorter queue.
func (r *Resource) Withdraw(req *sim.Request) {
	r.res.Release(req)
	r.queueLog.Append(r.env.Now(), float64(r.res.QueueLen()), series.KindRelease)
	r.notify(series.KindRelease)
}

// StartProcessing logs that a granted entity has begun service.
func (r *Resource) StartProcessing() {
	r.check(series.KindStart)
}

func (r *Resource) check(kind series.Kind) {
	now := r.env.Now()
	r.activeLog.Append(now, float64(r.res.Count()), kind)
	r.queueLog.Append(now, float64(r.res.QueueLen()), kind)
	r.notify(kind)
}

func (r *Resource) notify(kind series.Kind) {
	if r.observer == nil {
		return
	}
	r.observer.ObserveResource(r.name, kind, r.env.Now(), r.res.QueueLen(), r.res.Count(), r.res.Capacity())
}

// QueueSizeOverTime samples the number of waiting requests.
func (r *Resource) QueueSizeOverTime(f series.Frequency) ([]float64, error) {
	return series.Sample(r.queueLog.Points(), r.env.Now(), f)
}

// NumberBeingProcessedOverTime samples the number of units in use.
func (r *Resource) NumberBeingProcessedOverTime(f series.Frequency) ([]float64, error) {
	return series.Sample(r.activeLog.Points(), r.env.Now(), f)
}

// UtilizationOverTime samples the fraction of units in use.
func (r *Resource) UtilizationOverTime(f series.Frequency) ([]float64, error) {
	return series.Sample(series.Ratio(r.activeLog.Points(), float64(r.res.Capacity())), r.env.Now(), f)
}

// Zeros returns an all-zero series framed like the sampled ones.
func (r *Resource) Zeros(f series.Frequency) ([]float64, error) {
	return series.Zeros(r.env.Now(), f)
}

// QueueLog returns the raw queue length events.
func (r *Resource) QueueLog() []series.Point { return r.queueLog.Points() }

// ActivityLog returns the raw occupancy events.
func (r *Resource) ActivityLog() []series.Point { return r.activeLog.Points() }

func (r *Resource) serviceDuration(e *Entity) (d float64, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("resource %q: %w: %v", r.name, ErrServiceTime, rec)
		}
	}()
	d = r.serviceTime.duration(e)
	if d < 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return 0, fmt.Errorf("resource %q: %w: invalid duration %v", r.name, ErrServiceTime, d)
	}
	return d, nil
}
