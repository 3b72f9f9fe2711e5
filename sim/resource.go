package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// PriorityResource is a shared resource with a fixed number of units.
// Pending requests are granted in priority order (numerically lower first),
// ties broken by the order the requests were made.
type PriorityResource struct {
	env      *Environment
	capacity int
	users    []*Request
	waitQ    *WaitQueue
	seq      uint64
}

// NewPriorityResource creates a resource with capacity units.
func NewPriorityResource(env *Environment, capacity int) *PriorityResource {
	if capacity <= 0 {
		panic(fmt.Sprintf("NewPriorityResource: capacity must be positive, got %d", capacity))
	}
	return &PriorityResource{
		env:      env,
		capacity: capacity,
		waitQ:    &WaitQueue{},
	}
}

// Capacity returns the number of units.
func (r *PriorityResource) Capacity() int { return r.capacity }

// Count returns the number of units currently held.
func (r *PriorityResource) Count() int { return len(r.users) }

// QueueLen returns the number of requests waiting for a unit.
func (r *PriorityResource) QueueLen() int { return r.waitQ.Len() }

// Queue returns the waiting requests in grant order. The slice MUST NOT be modified.
func (r *PriorityResource) Queue() []*Request { return r.waitQ.Items() }

// Request claims one unit. A free unit is granted immediately, so Count
// already reflects the request when this returns.
func (r *PriorityResource) Request(priority int) *Request {
	r.seq++
	req := &Request{
		Priority: priority,
		Time:     r.env.now,
		State:    StateQueued,
		seq:      r.seq,
		resource: r,
		granted:  &Event{env: r.env},
	}
	r.waitQ.Enqueue(req)
	r.grant()
	return req
}

// Release returns the unit held by req. Releasing a request that is still
// queued withdraws it. Waiting requests are granted by the returned event,
// so Count reflects the release alone when this returns.
func (r *PriorityResource) Release(req *Request) *Event {
	released := &Event{env: r.env}
	for i, u := range r.users {
		if u == req {
			r.users = append(r.users[:i], r.users[i+1:]...)
			req.State = StateReleased
			released.AddCallback(func(*Event) { r.grant() })
			return released.Succeed(req)
		}
	}
	if r.waitQ.Remove(req) {
		req.State = StateReleased
	} else {
		logrus.Debugf("Release: request %v does not belong to this resource", req)
	}
	return released.Succeed(req)
}

func (r *PriorityResource) grant() {
	for len(r.users) < r.capacity && r.waitQ.Len() > 0 {
		req := r.waitQ.Dequeue()
		req.State = StateGranted
		r.users = append(r.users, req)
		req.granted.Succeed(req)
	}
}
