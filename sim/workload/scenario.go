// Package workload describes queueing scenarios in YAML and builds them into
// runnable resources and sources.
package workload

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/bambielli/simhelpers/sim/series"
)

// Scenario describes a queueing network: the resources, the sources feeding
// it and the route every entity of a source takes.
type Scenario struct {
	Name            string         `yaml:"name,omitempty"`
	Seed            int64          `yaml:"seed"`
	Horizon         float64        `yaml:"horizon,omitempty"`          // 0 = run until no events remain
	SampleFrequency float64        `yaml:"sample_frequency,omitempty"` // 0 = 1 time unit
	Resources       []ResourceSpec `yaml:"resources"`
	Sources         []SourceSpec   `yaml:"sources"`
}

// ResourceSpec is one capacity-limited resource.
type ResourceSpec struct {
	Name     string      `yaml:"name"`
	Capacity int         `yaml:"capacity"`
	Service  ServiceSpec `yaml:"service"`
}

// ServiceSpec is a service time distribution. With ScaleBy set, every draw is
// multiplied by that numeric attribute of the entity being served.
type ServiceSpec struct {
	DistSpec `yaml:",inline"`
	ScaleBy  string `yaml:"scale_by,omitempty"`
}

// SourceSpec is one arrival source.
type SourceSpec struct {
	Kind         string         `yaml:"kind"`
	FirstArrival *float64       `yaml:"first_arrival,omitempty"`
	Limit        int            `yaml:"limit,omitempty"` // 0 = unlimited
	Interarrival DistSpec       `yaml:"interarrival"`
	Attributes   map[string]any `yaml:"attributes,omitempty"`
	Route        []StepSpec     `yaml:"route"`
}

// StepSpec is one step of a route: a visit to a resource, or a delay spent
// outside any resource. Exactly one of Resource and Delay is set.
type StepSpec struct {
	Resource string    `yaml:"resource,omitempty"`
	Priority *int      `yaml:"priority,omitempty"` // overrides the entity's priority for this visit
	Delay    *DistSpec `yaml:"delay,omitempty"`
}

// LoadScenario reads and parses a YAML scenario file.
// Uses strict parsing: unrecognized keys (typos) are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	return &s, nil
}

// Frequency returns the sampling frequency of the scenario's time series.
func (s *Scenario) Frequency() (series.Frequency, error) {
	if s.SampleFrequency == 0 {
		return series.Units, nil
	}
	return series.ParseFrequency(s.SampleFrequency)
}

// Validate checks that all fields in the scenario are valid.
func (s *Scenario) Validate() error {
	if math.IsNaN(s.Horizon) || math.IsInf(s.Horizon, 0) || s.Horizon < 0 {
		return fmt.Errorf("horizon must be a finite non-negative number, got %v", s.Horizon)
	}
	if _, err := s.Frequency(); err != nil {
		return fmt.Errorf("sample_frequency: %w", err)
	}
	if len(s.Resources) == 0 {
		return fmt.Errorf("at least one resource required")
	}
	if len(s.Sources) == 0 {
		return fmt.Errorf("at least one source required")
	}

	names := make(map[string]bool, len(s.Resources))
	for i, r := range s.Resources {
		prefix := fmt.Sprintf("resources[%d]", i)
		if r.Name == "" {
			return fmt.Errorf("%s: name required", prefix)
		}
		if names[r.Name] {
			return fmt.Errorf("%s: duplicate resource name %q", prefix, r.Name)
		}
		names[r.Name] = true
		if r.Capacity <= 0 {
			return fmt.Errorf("%s: capacity must be positive, got %d", prefix, r.Capacity)
		}
		if err := validateDistSpec(prefix+".service", &r.Service.DistSpec); err != nil {
			return err
		}
	}

	for i, src := range s.Sources {
		if err := validateSource(&src, i, names); err != nil {
			return err
		}
		if src.Limit <= 0 && s.Horizon == 0 {
			return fmt.Errorf("sources[%d]: an unlimited source needs a positive horizon", i)
		}
	}
	return nil
}

func validateSource(src *SourceSpec, idx int, resources map[string]bool) error {
	prefix := fmt.Sprintf("sources[%d]", idx)
	if src.Kind == "" {
		return fmt.Errorf("%s: kind required", prefix)
	}
	if src.Limit < 0 {
		return fmt.Errorf("%s: limit must be non-negative, got %d", prefix, src.Limit)
	}
	if src.FirstArrival != nil && (*src.FirstArrival < 0 || math.IsNaN(*src.FirstArrival)) {
		return fmt.Errorf("%s: first_arrival must be non-negative, got %v", prefix, *src.FirstArrival)
	}
	if err := validateDistSpec(prefix+".interarrival", &src.Interarrival); err != nil {
		return err
	}
	if p, ok := src.Attributes["priority"]; ok {
		if _, isInt := p.(int); !isInt {
			return fmt.Errorf("%s.attributes.priority must be an integer, got %v", prefix, p)
		}
	}
	if len(src.Route) == 0 {
		return fmt.Errorf("%s: route must have at least one step", prefix)
	}
	for j, step := range src.Route {
		stepPrefix := fmt.Sprintf("%s.route[%d]", prefix, j)
		switch {
		case step.Resource != "" && step.Delay != nil:
			return fmt.Errorf("%s: set either resource or delay, not both", stepPrefix)
		case step.Resource != "":
			if !resources[step.Resource] {
				return fmt.Errorf("%s: unknown resource %q", stepPrefix, step.Resource)
			}
		case step.Delay != nil:
			if step.Priority != nil {
				return fmt.Errorf("%s: priority only applies to resource visits", stepPrefix)
			}
			if err := validateDistSpec(stepPrefix+".delay", step.Delay); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%s: resource or delay required", stepPrefix)
		}
	}
	return nil
}
