package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rewind/internal/undo"
)

// Scenario defines a scripted editing session.
type Scenario struct {
	// Name uniquely identifies this scenario. Also the journal session ID and
	// the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Kinds lists the value kinds to track, in registration order.
	Kinds []string `yaml:"kinds"`

	// Capacity overrides the history capacity (0 keeps the default).
	Capacity int `yaml:"capacity,omitempty"`

	// DebounceTicks overrides the debounce window (0 keeps the default).
	DebounceTicks int `yaml:"debounce_ticks,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	// Spawn creates an entity through the engine and names it.
	Spawn string `yaml:"spawn,omitempty"`

	// Despawn destroys the named entity through the engine.
	Despawn string `yaml:"despawn,omitempty"`

	// Insert writes a whole value directly to the world.
	Insert *ValueStep `yaml:"insert,omitempty"`

	// Remove deletes a value directly from the world.
	Remove *ValueStep `yaml:"remove,omitempty"`

	// Set writes one field of a live value in place, like a tool would.
	Set *SetStep `yaml:"set,omitempty"`

	// Tick runs the engine this many times.
	Tick int `yaml:"tick,omitempty"`

	// Undo requests this many undos, then ticks once.
	Undo int `yaml:"undo,omitempty"`

	// Redo requests this many redos, then ticks once.
	Redo int `yaml:"redo,omitempty"`

	// Settle ticks until pending edits commit and debounce windows expire.
	Settle bool `yaml:"settle,omitempty"`

	// Expect checks state mid-run.
	Expect []Assertion `yaml:"expect,omitempty"`
}

// ValueStep addresses one value of one entity.
type ValueStep struct {
	Entity string         `yaml:"entity"`
	Kind   string         `yaml:"kind"`
	Value  map[string]any `yaml:"value,omitempty"`
}

// SetStep writes one field. Field is a dotted path of YAML field names.
type SetStep struct {
	Entity string `yaml:"entity"`
	Kind   string `yaml:"kind"`
	Field  string `yaml:"field"`
	Value  any    `yaml:"value"`
}

// Assertion validates world, history or journal state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "value": the entity's value (or one field of it) equals Equals
	// - "absent": the entity lacks Kind, or no longer exists when Kind is empty
	// - "exists": the entity exists
	// - "history": undo/redo stack depths
	// - "journal_ops": the journal's ops, in order
	// - "reference": an identity field points at Target's current identity
	Type string `yaml:"type"`

	Entity string `yaml:"entity,omitempty"`
	Kind   string `yaml:"kind,omitempty"`
	Field  string `yaml:"field,omitempty"`
	Equals any    `yaml:"equals,omitempty"`
	Target string `yaml:"target,omitempty"`

	Undo *int `yaml:"undo,omitempty"`
	Redo *int `yaml:"redo,omitempty"`

	Ops []string `yaml:"ops,omitempty"`
}

// Assertion type constants.
const (
	AssertValue      = "value"
	AssertAbsent     = "absent"
	AssertExists     = "exists"
	AssertHistory    = "history"
	AssertJournalOps = "journal_ops"
	AssertReference  = "reference"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:".
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
	if len(s.Kinds) == 0 {
		return fmt.Errorf("kinds list is required and must be non-empty")
	}
	for _, k := range s.Kinds {
		if _, ok := lookupKind(k); !ok {
			return fmt.Errorf("unknown kind %q", k)
		}
	}
	if s.Capacity < 0 {
		return fmt.Errorf("capacity must be >= 0, got %d", s.Capacity)
	}
	if s.DebounceTicks != 0 && s.DebounceTicks < undo.MinDebounceTicks {
		return fmt.Errorf("debounce_ticks must be at least %d, got %d", undo.MinDebounceTicks, s.DebounceTicks)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, &step); err != nil {
			return err
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(fmt.Sprintf("assertions[%d]", i), &a); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(index int, s *Step) error {
	set := 0
	for _, on := range []bool{
		s.Spawn != "", s.Despawn != "", s.Insert != nil, s.Remove != nil, s.Set != nil,
		s.Tick > 0, s.Undo > 0, s.Redo > 0, s.Settle, len(s.Expect) > 0,
	} {
		if on {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one action is required, got %d", index, set)
	}
	if s.Tick < 0 || s.Undo < 0 || s.Redo < 0 {
		return fmt.Errorf("steps[%d]: counts must be positive", index)
	}

	for _, vs := range []*ValueStep{s.Insert, s.Remove} {
		if vs == nil {
			continue
		}
		if vs.Entity == "" || vs.Kind == "" {
			return fmt.Errorf("steps[%d]: entity and kind are required", index)
		}
		if _, ok := lookupKind(vs.Kind); !ok {
			return fmt.Errorf("steps[%d]: unknown kind %q", index, vs.Kind)
		}
	}
	if s.Set != nil {
		if s.Set.Entity == "" || s.Set.Kind == "" || s.Set.Field == "" {
			return fmt.Errorf("steps[%d]: set needs entity, kind and field", index)
		}
		if _, ok := lookupKind(s.Set.Kind); !ok {
			return fmt.Errorf("steps[%d]: unknown kind %q", index, s.Set.Kind)
		}
	}
	for i, a := range s.Expect {
		if err := validateAssertion(fmt.Sprintf("steps[%d].expect[%d]", index, i), &a); err != nil {
			return err
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(where string, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("%s: type is required", where)
	}
	if a.Kind != "" {
		if _, ok := lookupKind(a.Kind); !ok {
			return fmt.Errorf("%s: unknown kind %q", where, a.Kind)
		}
	}

	switch a.Type {
	case AssertValue:
		if a.Entity == "" || a.Kind == "" || a.Equals == nil {
			return fmt.Errorf("%s: entity, kind and equals are required for value", where)
		}
	case AssertAbsent, AssertExists:
		if a.Entity == "" {
			return fmt.Errorf("%s: entity is required for %s", where, a.Type)
		}
	case AssertHistory:
		if a.Undo == nil && a.Redo == nil {
			return fmt.Errorf("%s: undo or redo is required for history", where)
		}
	case AssertJournalOps:
		if a.Ops == nil {
			return fmt.Errorf("%s: ops is required for journal_ops", where)
		}
	case AssertReference:
		if a.Entity == "" || a.Kind == "" || a.Field == "" || a.Target == "" {
			return fmt.Errorf("%s: entity, kind, field and target are required for reference", where)
		}
	default:
		return fmt.Errorf("%s: unknown assertion type %q", where, a.Type)
	}
	return nil
}
