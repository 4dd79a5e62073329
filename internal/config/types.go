// Package config decodes and validates the declarative workflow document
// that drives forgeflow: GENERAL defaults, PROFILES, PROFILE_GROUPS, and
// the WORKFLOW mapping of step name to step definition (§3).
package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// Config is the root document: GENERAL, PROFILES, PROFILE_GROUPS,
// WORKFLOW, and the optional OVERVIEW/DEFAULT_WORKFLOW_STEP. Missing
// sections default to empty (§6).
type Config struct {
	General            GeneralConfig            `yaml:"GENERAL"`
	Profiles           map[string]ProfileConfig `yaml:"PROFILES"`
	ProfileGroups      map[string][]string      `yaml:"PROFILE_GROUPS"`
	Workflow           WorkflowDef              `yaml:"WORKFLOW"`
	Overview           string                   `yaml:"OVERVIEW"`
	DefaultWorkflowStep string                  `yaml:"DEFAULT_WORKFLOW_STEP"`
}

// GeneralConfig holds process-wide defaults: arbitrary template context
// variables (including the reserved INPUT_DIRECTORY/INPUT_FILES) plus
// MAX_WORKERS and per-rule PARAMETERS overlays.
type GeneralConfig struct {
	Context        *Params
	MaxWorkers     int
	RuleParameters map[string]*Params
}

// reservedGeneralKey reports whether key is pulled out into a typed field.
// PARAMETERS is kept out of the generic template Context; MAX_WORKERS is
// copied into Context as well.
func reservedGeneralKey(key string) bool {
	switch key {
	case "MAX_WORKERS", "PARAMETERS":
		return true
	default:
		return false
	}
}

// UnmarshalYAML splits the GENERAL mapping into its reserved fields
// (MAX_WORKERS, PARAMETERS) and the remaining free-form template context,
// preserving the context's key order. MAX_WORKERS also stays in the
// context so templates can reference it.
func (g *GeneralConfig) UnmarshalYAML(node *yaml.Node) error {
	*g = GeneralConfig{Context: NewParams(), RuleParameters: make(map[string]*Params)}
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("general: expected a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("general: decode key: %w", err)
		}
		valNode := node.Content[i+1]

		switch key {
		case "MAX_WORKERS":
			var n int
			if err := valNode.Decode(&n); err != nil {
				return fmt.Errorf("general.MAX_WORKERS: %w", err)
			}
			g.MaxWorkers = n
			g.Context.Set(key, n)
		case "PARAMETERS":
			var perRule map[string]*Params
			if err := valNode.Decode(&perRule); err != nil {
				return fmt.Errorf("general.PARAMETERS: %w", err)
			}
			g.RuleParameters = perRule
		default:
			var value interface{}
			if err := valNode.Decode(&value); err != nil {
				return fmt.Errorf("general.%s: %w", key, err)
			}
			g.Context.Set(key, value)
		}
	}
	return nil
}

// ProfileConfig is a named parameter overlay: free-form context
// variables plus a per-rule PARAMETERS overlay, same shape as GENERAL.
type ProfileConfig struct {
	Context        *Params
	RuleParameters map[string]*Params
}

// UnmarshalYAML mirrors GeneralConfig's split, minus MAX_WORKERS.
func (p *ProfileConfig) UnmarshalYAML(node *yaml.Node) error {
	*p = ProfileConfig{Context: NewParams(), RuleParameters: make(map[string]*Params)}
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("profile: expected a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var key string
		if err := node.Content[i].Decode(&key); err != nil {
			return fmt.Errorf("profile: decode key: %w", err)
		}
		valNode := node.Content[i+1]

		if key == "PARAMETERS" {
			var perRule map[string]*Params
			if err := valNode.Decode(&perRule); err != nil {
				return fmt.Errorf("profile.PARAMETERS: %w", err)
			}
			p.RuleParameters = perRule
			continue
		}

		var value interface{}
		if err := valNode.Decode(&value); err != nil {
			return fmt.Errorf("profile.%s: %w", key, err)
		}
		p.Context.Set(key, value)
	}
	return nil
}

// WorkflowDef is the WORKFLOW mapping, decoded in document order so the
// dependency graph can break topological-sort ties by insertion order
// (§4.1) instead of an arbitrary or alphabetical order.
type WorkflowDef struct {
	names []string
	steps map[string]*StepDef
}

// UnmarshalYAML walks the mapping node directly to capture key order.
func (w *WorkflowDef) UnmarshalYAML(node *yaml.Node) error {
	*w = WorkflowDef{steps: make(map[string]*StepDef)}
	if node == nil || node.Kind == 0 {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("workflow: expected a mapping")
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("workflow: decode step name: %w", err)
		}
		if _, exists := w.steps[name]; exists {
			return workflowerrors.NewConfigError(name, fmt.Sprintf("duplicate step name %q", name), nil)
		}
		step := &StepDef{}
		if err := node.Content[i+1].Decode(step); err != nil {
			return fmt.Errorf("workflow.%s: %w", name, err)
		}
		step.Name = name
		w.names = append(w.names, name)
		w.steps[name] = step
	}
	return nil
}

// Names returns step names in declaration order.
func (w *WorkflowDef) Names() []string {
	if w == nil {
		return nil
	}
	return w.names
}

// Get returns the step definition for name, if any.
func (w *WorkflowDef) Get(name string) (*StepDef, bool) {
	if w == nil || w.steps == nil {
		return nil, false
	}
	s, ok := w.steps[name]
	return s, ok
}

// Len reports the number of declared steps.
func (w *WorkflowDef) Len() int {
	if w == nil {
		return 0
	}
	return len(w.names)
}

// StepDef is a single named step in the workflow (§3).
type StepDef struct {
	Name                string    `yaml:"-"`
	Rule                RuleDef   `yaml:"RULE"`
	Inputs              StringList `yaml:"INPUTS"`
	Output              string    `yaml:"OUTPUT"`
	Parameters          *Params   `yaml:"PARAMETERS"`
	Requires            []string  `yaml:"REQUIRES"`
	PositionalFilenames StringList `yaml:"POSITIONAL_FILENAMES"`
	Description         string    `yaml:"DESCRIPTION"`
}

// RuleDef is the reusable command template a step binds to (§3).
type RuleDef struct {
	Name               string   `yaml:"NAME"`
	Command            string   `yaml:"COMMAND"`
	Dash               string   `yaml:"DASH"`
	InputStyle         string   `yaml:"INPUT_STYLE"`
	InputSwitchName    string   `yaml:"INPUT_SWITCH_NAME"`
	InputQuoted        *bool    `yaml:"INPUT_QUOTED"`
	UnquotedParams     []string `yaml:"UNQUOTED_PARAMS"`
	UnquotedPositionals bool    `yaml:"UNQUOTED_POSITIONALS"`
}

// DashPrefix returns the configured flag prefix, defaulting to "-".
func (r RuleDef) DashPrefix() string {
	if r.Dash == "" {
		return "-"
	}
	return r.Dash
}

// Style returns the configured input style, defaulting to "positional".
func (r RuleDef) Style() string {
	if r.InputStyle == "" {
		return "positional"
	}
	return r.InputStyle
}

// InputsQuoted reports whether resolved inputs should be shell-quoted;
// true unless INPUT_QUOTED is explicitly false.
func (r RuleDef) InputsQuoted() bool {
	if r.InputQuoted == nil {
		return true
	}
	return *r.InputQuoted
}

// IsUnquotedParam reports whether a parameter key is exempt from
// shell-quoting when rendered as a flag value.
func (r RuleDef) IsUnquotedParam(key string) bool {
	for _, k := range r.UnquotedParams {
		if k == key {
			return true
		}
	}
	return false
}

// StringList is a template-string field that accepts either a single
// scalar string or a YAML sequence of strings, normalized to a slice.
type StringList []string

// UnmarshalYAML accepts a bare scalar or a sequence.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	if node == nil || node.Kind == 0 {
		*s = nil
		return nil
	}
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*s = StringList(list)
		return nil
	default:
		return fmt.Errorf("expected a scalar or sequence, got kind %d", node.Kind)
	}
}
