package world

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// Scenario describes a multi-frame run: the initial world, the time delta and
// how many frames to advance.
type Scenario struct {
	Name   string  `json:"name,omitempty" yaml:"name,omitempty"`
	World  World   `json:"world" yaml:"world"`
	DT     float64 `json:"dt" yaml:"dt"`
	Frames int     `json:"frames" yaml:"frames"`
}

// LoadJSON loads a scenario from a JSON reader.
func LoadJSON(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode json scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadYAML loads a scenario from a YAML reader.
func LoadYAML(r io.Reader) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode yaml scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) Validate() error {
	if s.Frames < 0 {
		return fmt.Errorf("%w: frames %d is negative", ErrInvalidScenario, s.Frames)
	}
	if err := s.World.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidScenario, err)
	}
	return nil
}
