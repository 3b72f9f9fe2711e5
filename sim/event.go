package sim

import (
	"fmt"
	"math"
)

type eventState int

const (
	statePending eventState = iota
	stateTriggered
	stateProcessed
)

// Event is something that happens at a point in simulated time.
// Processes suspend on events; callbacks run when the event is processed.
type Event struct {
	env       *Environment
	state     eventState
	value     any
	callbacks []func(*Event)
}

// Awaitable is anything a Process can suspend on: events, requests and other processes.
type Awaitable interface {
	event() *Event
}

func (ev *Event) event() *Event { return ev }

// NewEvent returns a pending event. It is processed once Succeed is called.
func (env *Environment) NewEvent() *Event {
	return &Event{env: env}
}

// Timeout returns an event that is processed delay time units from now.
func (env *Environment) Timeout(delay float64) *Event {
	if delay < 0 || math.IsNaN(delay) {
		panic(fmt.Sprintf("Timeout: delay must be non-negative, got %v", delay))
	}
	ev := &Event{env: env, state: stateTriggered}
	env.schedule(ev, delay, priorityNormal)
	return ev
}

// Succeed triggers the event with value. It is processed at the current time,
// after the events already scheduled for this instant.
func (ev *Event) Succeed(value any) *Event {
	if ev.state != statePending {
		panic("Succeed: event has already been triggered")
	}
	ev.state = stateTriggered
	ev.value = value
	ev.env.schedule(ev, 0, priorityNormal)
	return ev
}

// AddCallback registers fn to run when the event is processed.
// Callbacks added to an already processed event run immediately.
func (ev *Event) AddCallback(fn func(*Event)) {
	if ev.state == stateProcessed {
		fn(ev)
		return
	}
	ev.callbacks = append(ev.callbacks, fn)
}

// Triggered reports whether the event has been scheduled for processing.
func (ev *Event) Triggered() bool { return ev.state >= stateTriggered }

// Processed reports whether the event's callbacks have run.
func (ev *Event) Processed() bool { return ev.state == stateProcessed }

// Value returns the value the event was triggered with.
func (ev *Event) Value() any { return ev.value }

func (ev *Event) process() {
	ev.state = stateProcessed
	callbacks := ev.callbacks
	ev.callbacks = nil
	for _, fn := range callbacks {
		fn(ev)
	}
}
