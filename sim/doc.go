// Package sim provides the small discrete-event kernel the statistics layer runs on.
//
// # Reading Guide
//
// Start with these files to understand the kernel:
//   - event.go: Event states (pending → triggered → processed) and callbacks
//   - simulator.go: the Environment clock and the heap-ordered event loop
//   - process.go: cooperative processes that suspend on events
//   - resource.go: PriorityResource, a capacity-limited queue with FIFO tie-break
//
// # Execution Model
//
// Every process body runs on its own goroutine, but the Environment hands control
// to exactly one goroutine at a time. A process runs until it calls Wait, at which
// point control returns to the event loop. Shared state therefore never needs locks
// as long as it is only touched from process bodies and event callbacks.
//
// # Sub-packages
//   - sim/debug/: process-wide diagnostic toggle
//   - sim/series/: sampling of irregular event logs into regular time series
//   - sim/stats/: entities, instrumented resources, arrival sources, run registry
//   - sim/metrics/: Prometheus collector fed by the stats observer hook
//   - sim/workload/: distributions, partitioned RNG and YAML scenarios
package sim
