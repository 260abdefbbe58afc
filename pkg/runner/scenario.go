package runner

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// DefaultDT is the tick length used when a scenario does not set one.
const DefaultDT float32 = 1.0 / 30

// DefaultTolerance is the allowed difference when comparing parameter values.
const DefaultTolerance float32 = 1e-4

// Scenario is a scripted sequence of animator inputs and checks.
type Scenario struct {
	Name       string `mapstructure:"name"`
	Controller string `mapstructure:"controller"`
	// DT is the default tick length in seconds.
	DT    float32 `mapstructure:"dt"`
	Steps []Step  `mapstructure:"steps"`
}

// Step is one scenario entry. Its actions run in field order: Set, Reset,
// Transit, Tick, Expect.
type Step struct {
	Name    string             `mapstructure:"name"`
	Set     map[string]float32 `mapstructure:"set"`
	Reset   bool               `mapstructure:"reset"`
	Transit *TransitStep       `mapstructure:"transit"`
	// Tick advances the clock this many times.
	Tick int `mapstructure:"tick"`
	// DT overrides the scenario tick length for this step.
	DT     float32      `mapstructure:"dt"`
	Expect *Expectation `mapstructure:"expect"`
}

// TransitStep forces a layer into a state. An empty layer is the base layer.
type TransitStep struct {
	Layer    string  `mapstructure:"layer"`
	State    string  `mapstructure:"state"`
	Offset   float32 `mapstructure:"offset"`
	Duration float32 `mapstructure:"duration"`
	Atomic   bool    `mapstructure:"atomic"`
}

// Expectation checks the animator after a step.
type Expectation struct {
	// States maps layer names to the expected current state.
	States map[string]string `mapstructure:"states"`
	// Parameters maps parameter names to expected values.
	Parameters map[string]float32 `mapstructure:"parameters"`
	// Events lists time event names that must have fired since the previous
	// expectation, in any order.
	Events    []string `mapstructure:"events"`
	Tolerance float32  `mapstructure:"tolerance"`
}

// Label returns the step name, or its 1-based position.
func (s Step) Label(i int) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("#%d", i+1)
}

// ParseScenario decodes a YAML scenario. Unknown keys are rejected.
func ParseScenario(data []byte) (*Scenario, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse scenario yaml: %w", err)
	}

	var sc Scenario
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &sc,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode scenario: %w", err)
	}

	if sc.DT == 0 {
		sc.DT = DefaultDT
	}
	if sc.DT < 0 {
		return nil, fmt.Errorf("scenario dt must be positive, got %v", sc.DT)
	}
	for i, st := range sc.Steps {
		if st.Tick < 0 || st.DT < 0 {
			return nil, fmt.Errorf("step %s: tick and dt must not be negative", st.Label(i))
		}
		if st.Transit != nil && st.Transit.State == "" {
			return nil, fmt.Errorf("step %s: transit needs a state", st.Label(i))
		}
	}
	return &sc, nil
}
