package metrics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bambielli/simhelpers/sim/series"
)

func TestCollector_ObserveResource_UpdatesGaugesAndCounters(t *testing.T) {
	// GIVEN a collector on a private registry
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	// WHEN a request and a start are observed on a capacity-2 resource
	c.ObserveResource("Teller", series.KindRequest, 1.5, 3, 2, 2)
	c.ObserveResource("Teller", series.KindStart, 2, 1, 1, 2)

	// THEN the gauges hold the last observation and the counter counts both
	assert.Equal(t, 1.0, testutil.ToFloat64(c.QueueLength.WithLabelValues("Teller")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.InService.WithLabelValues("Teller")))
	assert.Equal(t, 0.5, testutil.ToFloat64(c.Utilization.WithLabelValues("Teller")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Events.WithLabelValues("Teller", "request")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Events.WithLabelValues("Teller", "start")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SimulatedTime))
}

func TestCollector_ObserveDisposal_FeedsHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)

	c.ObserveDisposal("Customer", 10, 4)
	c.ObserveDisposal("Customer", 12, 6)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Disposed.WithLabelValues("Customer")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "sim_entity_time_in_system" {
			hist = mf.GetMetric()[0].GetHistogram()
		}
	}
	require.NotNil(t, hist)
	assert.Equal(t, uint64(2), hist.GetSampleCount())
	assert.Equal(t, 10.0, hist.GetSampleSum())
}

func TestNewCollector_RegisteredTwice_ReusesExisting(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewCollector(reg)
	require.NoError(t, err)
	second, err := NewCollector(reg)
	require.NoError(t, err)

	first.ObserveResource("Machine", series.KindRelease, 1, 0, 0, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.Events.WithLabelValues("Machine", "release")))
}

func TestCollector_Nil_IsSafe(t *testing.T) {
	var c *Collector
	c.ObserveResource("X", series.KindRequest, 0, 0, 0, 1)
	c.ObserveDisposal("X", 0, 0)
	assert.Nil(t, c.Gatherer())
}

func TestCollector_WriteSnapshot_ListsSamples(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewCollector(reg)
	require.NoError(t, err)
	c.ObserveResource("Teller", series.KindRequest, 1, 2, 1, 1)
	c.ObserveDisposal("Customer", 3, 2)

	var buf bytes.Buffer
	require.NoError(t, c.WriteSnapshot(&buf))

	out := buf.String()
	assert.Contains(t, out, "# TYPE sim_resource_queue_length gauge\n")
	assert.Contains(t, out, `sim_resource_queue_length{resource="Teller"} 2`)
	assert.Contains(t, out, `sim_resource_events_total{kind="request",resource="Teller"} 1`)
	assert.Contains(t, out, "# TYPE sim_entity_time_in_system histogram\n")
	assert.Contains(t, out, `sim_entity_time_in_system_bucket{type="Customer",le="2.5"} 1`)
	assert.Contains(t, out, `sim_entity_time_in_system_bucket{type="Customer",le="+Inf"} 1`)
	assert.Contains(t, out, `sim_entity_time_in_system_count{type="Customer"} 1`)
	assert.Less(t, strings.Index(out, "sim_clock"), strings.Index(out, "sim_entities_disposed_total"))
}
