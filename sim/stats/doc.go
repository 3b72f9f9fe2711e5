// Package stats records what happens to entities and resources during a
// simulation run and answers aggregate questions about it afterwards.
//
// A Source creates entities and registers them with a Registry. Each entity
// logs its arrival, start and finish at every instrumented Resource it visits;
// each Resource logs its queue length and occupancy at every request, start and
// release. The Registry filters entities and turns the logs into duration
// samples and regularly sampled time series.
package stats
