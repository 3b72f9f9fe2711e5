package sim

import (
	"fmt"
	"runtime"
)

// ProcessFunc is the body of a process. Returning a non-nil error stops the run.
type ProcessFunc func(p *Process) error

// Process is a cooperatively scheduled task. Its body runs on a dedicated goroutine
// that only executes while the event loop has handed control to it.
// A Process is itself Awaitable: waiting on it resumes once the body has returned.
type Process struct {
	env    *Environment
	fn     ProcessFunc
	done   *Event
	resume chan struct{}
	killed bool
}

// Process schedules fn to start at the current time and returns its handle.
func (env *Environment) Process(fn ProcessFunc) *Process {
	if fn == nil {
		panic("Process: fn must not be nil")
	}
	p := &Process{
		env:    env,
		fn:     fn,
		done:   &Event{env: env},
		resume: make(chan struct{}),
	}
	start := &Event{env: env, state: stateTriggered}
	start.callbacks = append(start.callbacks, func(*Event) { p.start() })
	env.schedule(start, 0, priorityUrgent)
	return p
}

func (p *Process) event() *Event { return p.done }

// AddCallback registers fn to run once the process body has returned.
func (p *Process) AddCallback(fn func(*Event)) {
	p.done.AddCallback(fn)
}

// Done reports whether the process body has returned and its completion was processed.
func (p *Process) Done() bool {
	return p.done.Processed()
}

// Err returns the error the body returned, if it has finished.
func (p *Process) Err() error {
	err, _ := p.done.Value().(error)
	return err
}

// Env returns the environment the process runs in.
func (p *Process) Env() *Environment {
	return p.env
}

// Now returns the current simulated time.
func (p *Process) Now() float64 {
	return p.env.now
}

// Wait suspends the process until a has been processed and returns its value.
func (p *Process) Wait(a Awaitable) any {
	ev := a.event()
	if ev.Processed() {
		return ev.value
	}
	ev.callbacks = append(ev.callbacks, func(*Event) { p.env.transfer(p) })
	p.park()
	return ev.value
}

// Timeout suspends the process for delay time units.
func (p *Process) Timeout(delay float64) {
	p.Wait(p.env.Timeout(delay))
}

func (p *Process) start() {
	go p.run()
	<-p.env.yield
}

func (p *Process) run() {
	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("process panicked: %v", r)
		}
		if !p.killed {
			if err != nil {
				p.env.fail(err)
			}
			p.done.Succeed(err)
		}
		p.env.yield <- struct{}{}
	}()
	err = p.fn(p)
}

func (p *Process) park() {
	p.env.parked[p] = struct{}{}
	p.env.yield <- struct{}{}
	<-p.resume
	if p.killed {
		runtime.Goexit()
	}
}

func (env *Environment) transfer(p *Process) {
	delete(env.parked, p)
	p.resume <- struct{}{}
	<-env.yield
}
