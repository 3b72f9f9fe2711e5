package stats

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Metric names an entity duration.
type Metric string

const (
	MetricTotalTime      Metric = "total_time"
	MetricWaitingTime    Metric = "waiting_time"
	MetricProcessingTime Metric = "processing_time"
)

// Summary aggregates a sample of durations.
type Summary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	P50    float64 `json:"p50"`
	P95    float64 `json:"p95"`
}

// Summarize computes a Summary of values. An empty sample yields the zero Summary.
func Summarize(values []float64) Summary {
	if len(values) == 0 {
		return Summary{}
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	s := Summary{
		Count: len(sorted),
		Mean:  stat.Mean(sorted, nil),
		Min:   floats.Min(sorted),
		Max:   floats.Max(sorted),
		P50:   stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:   stat.Quantile(0.95, stat.Empirical, sorted, nil),
	}
	if len(sorted) > 1 {
		s.StdDev = stat.StdDev(sorted, nil)
	}
	return s
}

// Summarize aggregates one duration metric over the entities selected by q.
func (r *Registry) Summarize(m Metric, q Query) (Summary, error) {
	var (
		values []float64
		err    error
	)
	switch m {
	case MetricTotalTime:
		values, err = r.TotalTimes(q)
	case MetricWaitingTime:
		values, err = r.WaitingTimes(q)
	case MetricProcessingTime:
		values, err = r.ProcessingTimes(q)
	default:
		return Summary{}, fmt.Errorf("unknown metric %q", m)
	}
	if err != nil {
		return Summary{}, err
	}
	return Summarize(values), nil
}

// SeriesMean is the time average of a regularly sampled series, e.g. the mean
// queue length. An empty series averages to zero.
func SeriesMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
