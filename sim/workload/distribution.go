package workload

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/sirupsen/logrus"
)

// Sampler draws non-negative durations in simulated time units.
type Sampler interface {
	Sample(rng *rand.Rand) float64
}

// DistSpec describes a duration distribution in a scenario file.
type DistSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params,omitempty"`
}

var validDistTypes = map[string]bool{
	"constant": true, "exponential": true, "uniform": true, "gaussian": true, "gamma": true, "weibull": true,
}

// ConstantSampler always returns the same value.
type ConstantSampler struct {
	value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) float64 {
	return s.value
}

// ExponentialSampler draws memoryless durations (CV=1), the Poisson arrival case.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * s.mean
}

// UniformSampler draws from [min, max).
type UniformSampler struct {
	min, max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	return s.min + rng.Float64()*(s.max-s.min)
}

// GaussianSampler draws normal durations clamped at zero.
type GaussianSampler struct {
	mean, stdDev float64
}

func (s *GaussianSampler) Sample(rng *rand.Rand) float64 {
	return math.Max(0, rng.NormFloat64()*s.stdDev+s.mean)
}

// GammaSampler draws Gamma-distributed durations. CV > 1 gives bursty arrivals.
type GammaSampler struct {
	shape float64 // 1/CV²
	scale float64 // mean*CV²
}

func (s *GammaSampler) Sample(rng *rand.Rand) float64 {
	return gammaRand(rng, s.shape, s.scale)
}

// gammaRand samples from Gamma(shape, scale) using Marsaglia-Tsang's method.
// For shape < 1: Gamma(shape) = Gamma(shape+1) * U^(1/shape).
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)
	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// WeibullSampler draws Weibull-distributed durations by inverse CDF.
type WeibullSampler struct {
	shape float64 // k
	scale float64 // λ
}

func (s *WeibullSampler) Sample(rng *rand.Rand) float64 {
	u := rng.Float64()
	if u == 0 {
		u = math.SmallestNonzeroFloat64
	}
	return s.scale * math.Pow(-math.Log(u), 1.0/s.shape)
}

// weibullShapeFromCV finds k such that CV² = Γ(1+2/k)/Γ(1+1/k)² - 1, by bisection
// over k ∈ [0.1, 100].
func weibullShapeFromCV(targetCV float64) float64 {
	lo, hi := 0.1, 100.0
	for i := 0; i < 100; i++ {
		mid := (lo + hi) / 2.0
		cv := weibullCV(mid)
		if math.Abs(cv-targetCV) < 0.001 {
			return mid
		}
		// CV is monotonically decreasing in k
		if cv > targetCV {
			lo = mid
		} else {
			hi = mid
		}
	}
	logrus.Warnf("weibullShapeFromCV: bisection did not converge for CV=%.3f after 100 iterations; using k=%.3f", targetCV, (lo+hi)/2.0)
	return (lo + hi) / 2.0
}

func weibullCV(k float64) float64 {
	g1 := math.Gamma(1.0 + 1.0/k)
	g2 := math.Gamma(1.0 + 2.0/k)
	return math.Sqrt(g2/(g1*g1) - 1.0)
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// cvParam returns the optional cv parameter, defaulting to 1.
func cvParam(params map[string]float64) float64 {
	cv, ok := params["cv"]
	if !ok || cv <= 0 {
		return 1.0
	}
	return cv
}

// NewSampler creates a Sampler from a DistSpec. Gamma and Weibull are
// parameterised by mean and coefficient of variation.
func NewSampler(spec DistSpec) (Sampler, error) {
	switch spec.Type {
	case "constant":
		if err := requireParam(spec.Params, "value"); err != nil {
			return nil, err
		}
		return &ConstantSampler{value: spec.Params["value"]}, nil

	case "exponential":
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		return &ExponentialSampler{mean: spec.Params["mean"]}, nil

	case "uniform":
		if err := requireParam(spec.Params, "min", "max"); err != nil {
			return nil, err
		}
		if spec.Params["max"] < spec.Params["min"] {
			return nil, fmt.Errorf("uniform: max %v is below min %v", spec.Params["max"], spec.Params["min"])
		}
		return &UniformSampler{min: spec.Params["min"], max: spec.Params["max"]}, nil

	case "gaussian":
		if err := requireParam(spec.Params, "mean", "std_dev"); err != nil {
			return nil, err
		}
		return &GaussianSampler{mean: spec.Params["mean"], stdDev: spec.Params["std_dev"]}, nil

	case "gamma":
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		cv := cvParam(spec.Params)
		shape := 1.0 / (cv * cv)
		if shape < 0.01 {
			logrus.Warnf("Gamma shape %.4f (CV=%.1f) is very small; falling back to exponential", shape, cv)
			return &ExponentialSampler{mean: spec.Params["mean"]}, nil
		}
		return &GammaSampler{shape: shape, scale: spec.Params["mean"] * cv * cv}, nil

	case "weibull":
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		k := weibullShapeFromCV(cvParam(spec.Params))
		return &WeibullSampler{shape: k, scale: spec.Params["mean"] / math.Gamma(1.0+1.0/k)}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}

func validateDistSpec(prefix string, d *DistSpec) error {
	if !validDistTypes[d.Type] {
		return fmt.Errorf("%s: unknown distribution type %q; valid: constant, exponential, uniform, gaussian, gamma, weibull", prefix, d.Type)
	}
	for name, val := range d.Params {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%s.params.%s must be a finite number, got %f", prefix, name, val)
		}
		if val < 0 {
			return fmt.Errorf("%s.params.%s must be non-negative, got %f", prefix, name, val)
		}
	}
	if _, err := NewSampler(*d); err != nil {
		return fmt.Errorf("%s: %w", prefix, err)
	}
	return nil
}
