// sim/simulator.go
package sim

import (
	"container/heap"

	"github.com/sirupsen/logrus"
)

const (
	// priorityUrgent events (process start, resource grants) run before normal
	// events scheduled for the same instant.
	priorityUrgent = 0
	priorityNormal = 1
)

type scheduledEvent struct {
	time     float64
	priority int
	seq      uint64
	ev       *Event
}

// EventQueue implements heap.Interface and orders events deterministically.
// Order by: timestamp → priority → insertion sequence.
type EventQueue []*scheduledEvent

func (eq EventQueue) Len() int { return len(eq) }
func (eq EventQueue) Less(i, j int) bool {
	if eq[i].time != eq[j].time {
		return eq[i].time < eq[j].time
	}
	if eq[i].priority != eq[j].priority {
		return eq[i].priority < eq[j].priority
	}
	return eq[i].seq < eq[j].seq
}
func (eq EventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *EventQueue) Push(x any) {
	*eq = append(*eq, x.(*scheduledEvent))
}

func (eq *EventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}

// Environment holds simulated time and the event loop.
type Environment struct {
	now    float64
	queue  EventQueue
	seq    uint64
	yield  chan struct{}
	parked map[*Process]struct{}
	err    error
}

// NewEnvironment returns an Environment with its clock at zero.
func NewEnvironment() *Environment {
	return &Environment{
		queue:  make(EventQueue, 0),
		yield:  make(chan struct{}),
		parked: make(map[*Process]struct{}),
	}
}

// Now returns the current simulated time.
func (env *Environment) Now() float64 {
	return env.now
}

func (env *Environment) schedule(ev *Event, delay float64, priority int) {
	env.seq++
	heap.Push(&env.queue, &scheduledEvent{
		time:     env.now + delay,
		priority: priority,
		seq:      env.seq,
		ev:       ev,
	})
}

// Peek returns the time of the next scheduled event and false if none is scheduled.
func (env *Environment) Peek() (float64, bool) {
	if len(env.queue) == 0 {
		return 0, false
	}
	return env.queue[0].time, true
}

// Step processes the next event. It returns false when no event is scheduled.
func (env *Environment) Step() bool {
	if len(env.queue) == 0 {
		return false
	}
	next := heap.Pop(&env.queue).(*scheduledEvent)
	if next.time < env.now {
		logrus.Panicf("Step: event scheduled at %v is in the past (now %v)", next.time, env.now)
	}
	env.now = next.time
	logrus.Tracef("[t=%.4f] processing event #%d", env.now, next.seq)
	next.ev.process()
	return true
}

// Run processes events until none are left or the next event would happen at or
// after until. A non-positive until runs until the queue drains. When until is
// positive the clock finishes exactly at until.
// The first error returned (or panic raised) by a process body stops the run.
func (env *Environment) Run(until float64) error {
	for env.err == nil {
		t, ok := env.Peek()
		if !ok || (until > 0 && t >= until) {
			break
		}
		env.Step()
	}
	if env.err != nil {
		return env.err
	}
	if until > env.now {
		env.now = until
	}
	logrus.Debugf("[t=%.4f] Simulation ended", env.now)
	return nil
}

// Close unwinds every process still suspended on an event so that no goroutine
// outlives the environment. The environment must not be run afterwards.
func (env *Environment) Close() {
	for p := range env.parked {
		delete(env.parked, p)
		p.killed = true
		p.resume <- struct{}{}
		<-env.yield
	}
}

func (env *Environment) fail(err error) {
	if env.err == nil {
		env.err = err
	}
}
