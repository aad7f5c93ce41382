package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance scenario: an initial state, a stream
// of events, and the expected final state. Scenarios run against a
// fresh memory-backed store with a deterministic clock.
type Scenario struct {
	// Name uniquely identifies this scenario; it is also the golden
	// file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Initial overrides the default persistent state. A ResetEvent in
	// the stream restores this state, not the zero value.
	Initial *StateSpec `yaml:"initial,omitempty"`

	// Events is the stream to dispatch, in order.
	Events []EventStep `yaml:"events"`

	// Expect is the expected final persistent state.
	Expect *StateSpec `yaml:"expect,omitempty"`
}

// StateSpec describes a demo persistent state in YAML.
type StateSpec struct {
	Counter int    `yaml:"counter"`
	Name    string `yaml:"name"`
}

// EventStep is one event in the scenario stream.
type EventStep struct {
	// Kind selects the event type: set-counter, increment, set-name,
	// or reset.
	Kind string `yaml:"kind"`

	// Value is the absolute counter value (set-counter).
	Value int `yaml:"value,omitempty"`

	// Delta is the counter delta (increment).
	Delta int `yaml:"delta,omitempty"`

	// Name is the new name (set-name).
	Name string `yaml:"name,omitempty"`
}

// Event kinds accepted in scenario files.
const (
	StepSetCounter = "set-counter"
	StepIncrement  = "increment"
	StepSetName    = "set-name"
	StepReset      = "reset"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed, contains
// unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "event:" vs "events:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("events list is required and must be non-empty")
	}

	for i, step := range s.Events {
		switch step.Kind {
		case StepSetCounter, StepIncrement, StepSetName, StepReset:
		case "":
			return fmt.Errorf("events[%d]: kind is required", i)
		default:
			return fmt.Errorf("events[%d]: unknown kind %q", i, step.Kind)
		}
	}

	return nil
}
