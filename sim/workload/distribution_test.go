package workload

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"
)

func draw(t *testing.T, spec DistSpec, n int) []float64 {
	t.Helper()
	s, err := NewSampler(spec)
	require.NoError(t, err)
	rng := rand.New(rand.NewSource(42))
	out := make([]float64, n)
	for i := range out {
		out[i] = s.Sample(rng)
	}
	return out
}

func TestNewSampler_MeanMatches(t *testing.T) {
	tests := []struct {
		name string
		spec DistSpec
		mean float64
	}{
		{"exponential", DistSpec{Type: "exponential", Params: map[string]float64{"mean": 4}}, 4},
		{"uniform", DistSpec{Type: "uniform", Params: map[string]float64{"min": 2, "max": 6}}, 4},
		{"gamma bursty", DistSpec{Type: "gamma", Params: map[string]float64{"mean": 4, "cv": 2}}, 4},
		{"gamma smooth", DistSpec{Type: "gamma", Params: map[string]float64{"mean": 4, "cv": 0.5}}, 4},
		{"weibull", DistSpec{Type: "weibull", Params: map[string]float64{"mean": 4, "cv": 1.5}}, 4},
		{"gaussian", DistSpec{Type: "gaussian", Params: map[string]float64{"mean": 10, "std_dev": 1}}, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// GIVEN 50k draws
			samples := draw(t, tt.spec, 50000)

			// THEN the sample mean is within 5% and nothing is negative
			assert.InEpsilon(t, tt.mean, stat.Mean(samples, nil), 0.05)
			for _, v := range samples {
				if v < 0 {
					t.Fatalf("negative draw %v", v)
				}
			}
		})
	}
}

func TestNewSampler_GammaCV(t *testing.T) {
	samples := draw(t, DistSpec{Type: "gamma", Params: map[string]float64{"mean": 1, "cv": 2}}, 100000)
	mean, std := stat.MeanStdDev(samples, nil)
	assert.InEpsilon(t, 2.0, std/mean, 0.1)
}

func TestNewSampler_Constant(t *testing.T) {
	samples := draw(t, DistSpec{Type: "constant", Params: map[string]float64{"value": 2.5}}, 10)
	for _, v := range samples {
		assert.Equal(t, 2.5, v)
	}
}

func TestNewSampler_UniformStaysInBounds(t *testing.T) {
	for _, v := range draw(t, DistSpec{Type: "uniform", Params: map[string]float64{"min": 1, "max": 2}}, 1000) {
		assert.GreaterOrEqual(t, v, 1.0)
		assert.Less(t, v, 2.0)
	}
}

func TestNewSampler_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec DistSpec
	}{
		{"unknown type", DistSpec{Type: "zipf"}},
		{"missing mean", DistSpec{Type: "exponential"}},
		{"missing value", DistSpec{Type: "constant", Params: map[string]float64{"mean": 1}}},
		{"inverted uniform", DistSpec{Type: "uniform", Params: map[string]float64{"min": 3, "max": 1}}},
		{"missing std_dev", DistSpec{Type: "gaussian", Params: map[string]float64{"mean": 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSampler(tt.spec)
			assert.Error(t, err)
		})
	}
}

func TestWeibullShapeFromCV_RoundTrips(t *testing.T) {
	for _, cv := range []float64{0.5, 1, 2} {
		k := weibullShapeFromCV(cv)
		assert.InDelta(t, cv, weibullCV(k), 0.001)
	}
	// CV=1 is the exponential case
	assert.InDelta(t, 1.0, weibullShapeFromCV(1), 0.01)
}

func TestValidateDistSpec_RejectsNonFiniteAndNegative(t *testing.T) {
	assert.Error(t, validateDistSpec("x", &DistSpec{Type: "constant", Params: map[string]float64{"value": math.Inf(1)}}))
	assert.Error(t, validateDistSpec("x", &DistSpec{Type: "constant", Params: map[string]float64{"value": -1}}))
	assert.NoError(t, validateDistSpec("x", &DistSpec{Type: "constant", Params: map[string]float64{"value": 0}}))
}
