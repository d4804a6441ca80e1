package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/rubric/internal/rubric"
)

// Scenario defines an editing scenario.
// Scenarios replay edit steps against a session and assert on the result.
type Scenario struct {
	// Name uniquely identifies this scenario.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// OrgName is the organization display name. Defaults to "Harness Org".
	OrgName string `yaml:"org_name,omitempty"`

	// Template optionally seeds the document from a compiled CUE template.
	// The file path is relative to the scenario file location.
	Template *TemplateRef `yaml:"template,omitempty"`

	// Steps are the edit operations, executed in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the final document and session.
	Assertions []Assertion `yaml:"assertions"`
}

// TemplateRef names a template inside a CUE file.
type TemplateRef struct {
	File string `yaml:"file"`
	Name string `yaml:"name"`
}

// Step is one edit operation. Exactly one operation field is set.
type Step struct {
	Insert     *BlockSpec  `yaml:"insert,omitempty"`
	Move       *MoveSpec   `yaml:"move,omitempty"`
	Delete     *OrderSpec  `yaml:"delete,omitempty"`
	Update     *UpdateSpec `yaml:"update,omitempty"`
	SetTitle   *string     `yaml:"set_title,omitempty"`
	OrgDefault *bool       `yaml:"org_default,omitempty"`
	Save       *struct{}   `yaml:"save,omitempty"`
	Reload     *struct{}   `yaml:"reload,omitempty"`

	// Expect optionally checks the step outcome.
	Expect *StepExpect `yaml:"expect,omitempty"`
}

// BlockSpec describes a block to insert. Exactly one field is set.
type BlockSpec struct {
	Heading string      `yaml:"heading,omitempty" json:"heading,omitempty"`
	Text    string      `yaml:"text,omitempty" json:"text,omitempty"`
	Prompt  *PromptSpec `yaml:"prompt,omitempty" json:"prompt,omitempty"`
}

// PromptSpec describes a prompt block. Options are display texts; keys
// are derived from them.
type PromptSpec struct {
	Type     string   `yaml:"type" json:"type"`
	Text     string   `yaml:"text" json:"text"`
	Required bool     `yaml:"required,omitempty" json:"required,omitempty"`
	Options  []string `yaml:"options,omitempty" json:"options,omitempty"`
}

// MoveSpec is the argument of a move step.
type MoveSpec struct {
	Order     int    `yaml:"order" json:"order"`
	Direction string `yaml:"direction" json:"direction"`
}

// OrderSpec is the argument of a delete step.
type OrderSpec struct {
	Order int `yaml:"order" json:"order"`
}

// UpdateSpec replaces the block at Order.
type UpdateSpec struct {
	Order     int `yaml:"order" json:"order"`
	BlockSpec `yaml:",inline"`
}

// StepExpect checks a step outcome. Unset fields are not checked.
type StepExpect struct {
	Changed *bool  `yaml:"changed,omitempty"`
	Order   *int   `yaml:"order,omitempty"`
	Error   string `yaml:"error,omitempty"` // substring of the step error
}

// Assertion validates the final document.
type Assertion struct {
	// Type specifies the assertion type:
	// - "view": merged view renders exactly as Blocks
	// - "count": Variant appears exactly Count times
	// - "valid": document passes validation
	// - "invalid": validation reports Code
	// - "state": session is in State
	// - "persisted": stored copy renders the same view
	Type string `yaml:"type"`

	// Blocks are the expected view lines (used by view).
	Blocks []string `yaml:"blocks,omitempty"`

	// Variant and Count are used by count.
	Variant string `yaml:"variant,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Code is the expected validation code (used by invalid).
	Code string `yaml:"code,omitempty"`

	// State is the expected session state (used by state).
	State string `yaml:"state,omitempty"`
}

// Assertion type constants.
const (
	AssertView      = "view"
	AssertCount     = "count"
	AssertValid     = "valid"
	AssertInvalid   = "invalid"
	AssertState     = "state"
	AssertPersisted = "persisted"
)

// Op returns the name of the step's operation, or "" when none or more
// than one is set.
func (s Step) Op() string {
	ops := make([]string, 0, 1)
	if s.Insert != nil {
		ops = append(ops, "insert")
	}
	if s.Move != nil {
		ops = append(ops, "move")
	}
	if s.Delete != nil {
		ops = append(ops, "delete")
	}
	if s.Update != nil {
		ops = append(ops, "update")
	}
	if s.SetTitle != nil {
		ops = append(ops, "set_title")
	}
	if s.OrgDefault != nil {
		ops = append(ops, "org_default")
	}
	if s.Save != nil {
		ops = append(ops, "save")
	}
	if s.Reload != nil {
		ops = append(ops, "reload")
	}
	if len(ops) != 1 {
		return ""
	}
	return ops[0]
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The template path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Template != nil && !filepath.IsAbs(scenario.Template.File) {
		scenario.Template.File = filepath.Join(filepath.Dir(path), scenario.Template.File)
	}
	if scenario.Template != nil {
		if _, err := os.Stat(scenario.Template.File); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: template file not found: %s", scenario.Template.File)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
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

	if len(s.Steps) == 0 && s.Template == nil {
		return fmt.Errorf("steps list is required unless a template is given")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.Template != nil && (s.Template.File == "" || s.Template.Name == "") {
		return fmt.Errorf("template: file and name are required")
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

func validateStep(index int, step Step) error {
	op := step.Op()
	if op == "" {
		return fmt.Errorf("steps[%d]: exactly one operation is required", index)
	}

	switch op {
	case "insert":
		return validateBlockSpec(index, *step.Insert)
	case "update":
		return validateBlockSpec(index, step.Update.BlockSpec)
	case "move":
		if _, ok := rubric.ParseDirection(step.Move.Direction); !ok {
			return fmt.Errorf("steps[%d]: direction must be up or down, got %q", index, step.Move.Direction)
		}
	}
	return nil
}

func validateBlockSpec(index int, b BlockSpec) error {
	n := 0
	if b.Heading != "" {
		n++
	}
	if b.Text != "" {
		n++
	}
	if b.Prompt != nil {
		n++
	}
	if n != 1 {
		return fmt.Errorf("steps[%d]: block needs exactly one of heading, text or prompt", index)
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertView:
		if a.Blocks == nil {
			return fmt.Errorf("assertions[%d]: blocks is required for view (use [] for empty)", index)
		}
	case AssertCount:
		if !rubric.ValidVariants[rubric.Variant(a.Variant)] {
			return fmt.Errorf("assertions[%d]: unknown variant %q for count", index, a.Variant)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertInvalid:
		if a.Code == "" {
			return fmt.Errorf("assertions[%d]: code is required for invalid", index)
		}
	case AssertState:
		if a.State == "" {
			return fmt.Errorf("assertions[%d]: state is required for state", index)
		}
	case AssertValid, AssertPersisted:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
