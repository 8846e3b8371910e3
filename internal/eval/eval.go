package eval

import (
	"fmt"
	"os"
	"strings"

	"github.com/rohan/claimpilot/internal/workflow"
	"gopkg.in/yaml.v3"
)

// Scenario is one regression case: a run started at EntryStep must visit
// exactly the Expected step identifiers, in order.
type Scenario struct {
	Name      string   `yaml:"name"`
	EntryStep string   `yaml:"entry_step"`
	Expected  []string `yaml:"expected"`
	Status    string   `yaml:"status,omitempty"`
}

// LoadScenarios reads a YAML file with a top-level "scenarios" list.
func LoadScenarios(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenarios: %v", err)
	}

	var doc struct {
		Scenarios []Scenario `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scenarios: %v", err)
	}
	return doc.Scenarios, nil
}

// Validate compares a run's trace against the expected step sequence.
func (s Scenario) Validate(res *workflow.OrchestrationResult) error {
	got := res.StepIDs()
	if len(got) != len(s.Expected) {
		return fmt.Errorf("scenario %q: expected %d steps [%s], got %d [%s]",
			s.Name, len(s.Expected), strings.Join(s.Expected, ", "),
			len(got), strings.Join(got, ", "))
	}
	for i := range got {
		if got[i] != s.Expected[i] {
			return fmt.Errorf("scenario %q: step %d: expected %q, got %q",
				s.Name, i+1, s.Expected[i], got[i])
		}
	}
	if s.Status != "" && string(res.Status) != s.Status {
		return fmt.Errorf("scenario %q: expected status %q, got %q",
			s.Name, s.Status, res.Status)
	}
	return nil
}
