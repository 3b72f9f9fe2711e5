package stats

import "errors"

var (
	// ErrNotImplemented is returned when an author-supplied behaviour
	// (entity process, service time, interarrival time, entity builder) is missing.
	ErrNotImplemented = errors.New("not implemented")

	// ErrNoRun is returned by registry queries made before a run has begun.
	ErrNoRun = errors.New("no simulation has been run yet")

	// ErrNotDisposed is returned by duration accessors on entities still in the system.
	ErrNotDisposed = errors.New("entity has not been disposed")

	// ErrNotCreated is returned by TotalTime for an entity that never entered
	// the system through a Registry or a Source.
	ErrNotCreated = errors.New("entity has no creation time")

	// ErrNoData is returned by per-resource accessors for a resource the entity never visited.
	ErrNoData = errors.New("no data for resource")

	// ErrServiceTime wraps any failure of a resource's service time function.
	ErrServiceTime = errors.New("service time function failed")

	// ErrNotRequested is returned when processing starts at a resource without a pending request.
	ErrNotRequested = errors.New("resource was not requested")
)
