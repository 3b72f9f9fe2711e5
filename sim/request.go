// Defines the Request struct that models one claim on a PriorityResource.
// Tracks priority, the time it was made and whether it has been granted.

package sim

import (
	"fmt"
)

// RequestState represents the lifecycle state of a request.
type RequestState string

const (
	StateQueued   RequestState = "queued"
	StateGranted  RequestState = "granted"
	StateReleased RequestState = "released"
)

// Request is a claim on one unit of a PriorityResource. It is Awaitable:
// waiting on it resumes once the unit has been granted.
type Request struct {
	Priority int          // Lower values are granted first
	Time     float64      // Simulated time the request was made
	State    RequestState // queued, granted, released

	seq      uint64
	resource *PriorityResource
	granted  *Event
}

func (req *Request) event() *Event { return req.granted }

// Granted reports whether the resource has handed a unit to this request.
func (req *Request) Granted() bool {
	return req.granted.Triggered()
}

// Resource returns the resource the request was made against.
func (req *Request) Resource() *PriorityResource {
	return req.resource
}

// before reports whether req must be granted ahead of other.
func (req *Request) before(other *Request) bool {
	if req.Priority != other.Priority {
		return req.Priority < other.Priority
	}
	return req.seq < other.seq
}

// This method returns a human-readable string representation of a Request.
func (req Request) String() string {
	return fmt.Sprintf("Request: (Priority: %d, State: %s, Time: %v)", req.Priority, req.State, req.Time)
}
