package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/bambielli/simhelpers/sim"
	"github.com/bambielli/simhelpers/sim/metrics"
	"github.com/bambielli/simhelpers/sim/stats"
	"github.com/bambielli/simhelpers/sim/workload"
)

var reportedMetrics = []stats.Metric{stats.MetricTotalTime, stats.MetricWaitingTime, stats.MetricProcessingTime}

// Report is the outcome of one scenario run.
type Report struct {
	Scenario      string                                    `json:"scenario,omitempty"`
	RunID         string                                    `json:"run_id"`
	SimulatedTime float64                                   `json:"simulated_time"`
	Disposed      int                                       `json:"disposed_entities"`
	InFlight      int                                       `json:"in_flight_entities"`
	Durations     map[stats.Metric]stats.Summary            `json:"durations"`
	ByKind        map[string]map[stats.Metric]stats.Summary `json:"by_kind"`
	Resources     []ResourceReport                          `json:"resources"`
}

// ResourceReport holds the time-averaged series of one resource.
type ResourceReport struct {
	Name            string        `json:"name"`
	Capacity        int           `json:"capacity"`
	MeanQueueLength float64       `json:"mean_queue_length"`
	MeanInService   float64       `json:"mean_in_service"`
	MeanUtilization float64       `json:"mean_utilization"`
	Waiting         stats.Summary `json:"waiting_time"`
	Processing      stats.Summary `json:"processing_time"`
}

// runScenario builds and runs s. When collector is non-nil it observes every
// resource event and disposal.
func runScenario(s *workload.Scenario, collector *metrics.Collector) (*Report, error) {
	env := sim.NewEnvironment()
	defer env.Close()

	reg := stats.NewRegistry(env)
	if collector != nil {
		reg.SetObserver(collector)
	}
	model, err := workload.Build(s, reg)
	if err != nil {
		return nil, err
	}
	model.Start()
	if err := env.Run(s.Horizon); err != nil {
		return nil, fmt.Errorf("simulation failed at t=%v: %w", env.Now(), err)
	}
	return buildReport(model)
}

func buildReport(m *workload.Model) (*Report, error) {
	reg := m.Registry
	f, err := m.Scenario.Frequency()
	if err != nil {
		return nil, err
	}
	disposed, err := reg.Entities()
	if err != nil {
		return nil, err
	}
	inFlight, err := reg.InFlight()
	if err != nil {
		return nil, err
	}

	r := &Report{
		Scenario:      m.Scenario.Name,
		RunID:         reg.RunID(),
		SimulatedTime: reg.Env().Now(),
		Disposed:      len(disposed),
		InFlight:      len(inFlight),
		Durations:     make(map[stats.Metric]stats.Summary, len(reportedMetrics)),
		ByKind:        make(map[string]map[stats.Metric]stats.Summary),
	}
	for _, metric := range reportedMetrics {
		if r.Durations[metric], err = reg.Summarize(metric, stats.Query{}); err != nil {
			return nil, err
		}
	}
	for _, src := range m.Scenario.Sources {
		byMetric := make(map[stats.Metric]stats.Summary, len(reportedMetrics))
		q := stats.Query{Attributes: stats.Attributes{stats.AttrType: src.Kind}}
		for _, metric := range reportedMetrics {
			if byMetric[metric], err = reg.Summarize(metric, q); err != nil {
				return nil, err
			}
		}
		r.ByKind[src.Kind] = byMetric
	}

	for _, res := range m.Resources {
		rr := ResourceReport{Name: res.Name(), Capacity: res.Capacity()}
		queue, err := reg.QueueSizeOverTime(res, f)
		if err != nil {
			return nil, err
		}
		inService, err := reg.NumberBeingProcessedOverTime(res, f)
		if err != nil {
			return nil, err
		}
		util, err := reg.UtilizationOverTime(res, f)
		if err != nil {
			return nil, err
		}
		rr.MeanQueueLength = stats.SeriesMean(queue)
		rr.MeanInService = stats.SeriesMean(inService)
		rr.MeanUtilization = stats.SeriesMean(util)
		if rr.Waiting, err = reg.Summarize(stats.MetricWaitingTime, stats.Query{Resource: res}); err != nil {
			return nil, err
		}
		if rr.Processing, err = reg.Summarize(stats.MetricProcessingTime, stats.Query{Resource: res}); err != nil {
			return nil, err
		}
		r.Resources = append(r.Resources, rr)
	}
	sort.Slice(r.Resources, func(i, j int) bool { return r.Resources[i].Name < r.Resources[j].Name })
	return r, nil
}

// Print writes the report as indented JSON under a header.
func (r *Report) Print(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling report: %w", err)
	}
	if _, err := fmt.Fprintln(w, "=== Simulation Statistics ==="); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
