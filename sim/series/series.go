// Package series turns sparse, irregularly timed event logs into regularly
// sampled step series.
//
// A series is sampled on the grid round(arange(0, now, f), decimals(f)). At each
// grid point the value becomes that of the last event whose rounded timestamp
// equals the grid coordinate; between events the previous value persists. The
// initial value is zero.
package series

import (
	"errors"
	"fmt"
	"math"
)

// Frequency is the simulated-time step between two samples.
type Frequency float64

const (
	Hundredths Frequency = 0.01
	Tenths     Frequency = 0.1
	Units      Frequency = 1
)

// ErrUnsupportedFrequency is returned for any frequency outside ValidFrequencies.
var ErrUnsupportedFrequency = errors.New("unsupported sampling resolution")

// decimals maps each frequency to the precision timestamps are rounded to.
var decimals = map[Frequency]int{
	Hundredths: 2,
	Tenths:     1,
	Units:      0,
}

// ValidFrequencies returns the supported sampling frequencies, finest first.
func ValidFrequencies() []Frequency {
	return []Frequency{Hundredths, Tenths, Units}
}

// Decimals returns the number of decimal digits timestamps are rounded to at f.
func (f Frequency) Decimals() (int, error) {
	d, ok := decimals[f]
	if !ok {
		return 0, fmt.Errorf("%w %v: pick a sample frequency in %v", ErrUnsupportedFrequency, float64(f), ValidFrequencies())
	}
	return d, nil
}

// Validate returns an error wrapping ErrUnsupportedFrequency for unknown frequencies.
func (f Frequency) Validate() error {
	_, err := f.Decimals()
	return err
}

// ParseFrequency converts a raw step into a Frequency.
func ParseFrequency(step float64) (Frequency, error) {
	f := Frequency(step)
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return f, nil
}

// Round rounds x to the given number of decimals, halves to even.
func Round(x float64, decimals int) float64 {
	scale := math.Pow10(decimals)
	return math.RoundToEven(x*scale) / scale
}

// Len returns the number of grid points in [0, now) at f.
func Len(now float64, f Frequency) (int, error) {
	if err := f.Validate(); err != nil {
		return 0, err
	}
	return gridLen(now, float64(f)), nil
}

func gridLen(now, step float64) int {
	if now <= 0 {
		return 0
	}
	return int(math.Ceil(now / step))
}

// Grid returns the rounded sampling coordinates in [0, now) at f.
func Grid(now float64, f Frequency) ([]float64, error) {
	d, err := f.Decimals()
	if err != nil {
		return nil, err
	}
	grid := make([]float64, gridLen(now, float64(f)))
	for i := range grid {
		grid[i] = Round(float64(i)*float64(f), d)
	}
	return grid, nil
}

// Zeros returns an all-zero series with the same length as Sample would produce.
func Zeros(now float64, f Frequency) ([]float64, error) {
	n, err := Len(now, f)
	if err != nil {
		return nil, err
	}
	return make([]float64, n), nil
}

// Sample converts chronologically ordered points into a step series over [0, now).
// Points sharing a rounded timestamp resolve to the last one.
func Sample(points []Point, now float64, f Frequency) ([]float64, error) {
	d, err := f.Decimals()
	if err != nil {
		return nil, err
	}
	scale := math.Pow10(d)
	latest := make(map[int64]float64, len(points))
	for _, pt := range points {
		latest[tick(pt.Time, scale)] = pt.Value
	}

	out := make([]float64, gridLen(now, float64(f)))
	current := 0.0
	for i := range out {
		if v, ok := latest[tick(float64(i)*float64(f), scale)]; ok {
			current = v
		}
		out[i] = current
	}
	return out, nil
}

func tick(t, scale float64) int64 {
	return int64(math.RoundToEven(t * scale))
}
