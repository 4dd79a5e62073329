package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	stepNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()
		_ = v.RegisterValidation("step_name", func(fl validator.FieldLevel) bool {
			return stepNamePattern.MatchString(fl.Field().String())
		})
		validateInst = v
	})
	return validateInst
}

// stepSchema is validated independently of graph/template concerns: it
// catches the structurally-required fields (§3) before planning ever
// begins. Placeholder resolution, REQUIRES existence, and cycles are
// validated later by the graph and generator packages per §4.1/§4.2,
// which can attribute a precise reason to the failure.
type stepSchema struct {
	Name       string `validate:"required,step_name"`
	RuleName   string `validate:"required"`
	Command    string `validate:"required"`
	Output     string `validate:"required"`
	InputStyle string `validate:"omitempty,oneof=positional switch"`
}

// Validate performs schema-level validation on the whole configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return workflowerrors.NewConfigError("", "configuration is nil", nil)
	}

	v := validatorInstance()
	for _, name := range cfg.Workflow.Names() {
		step, _ := cfg.Workflow.Get(name)
		schema := stepSchema{
			Name:       step.Name,
			RuleName:   step.Rule.Name,
			Command:    step.Rule.Command,
			Output:     step.Output,
			InputStyle: step.Rule.InputStyle,
		}
		if err := v.Struct(schema); err != nil {
			return convertValidationError(step.Name, err)
		}

		if step.Rule.Style() == "switch" && step.Rule.InputSwitchName == "" {
			return workflowerrors.NewConfigError(step.Name, "rule input_style=switch requires input_switch_name", nil)
		}

		for _, field := range forbiddenLateBoundFields(step) {
			return workflowerrors.NewConfigError(step.Name, fmt.Sprintf("parameters may not reference late-bound placeholder %s", field), nil)
		}
	}

	return nil
}

var lateBoundPlaceholders = []string{"{OUTPUT}", "{INPUTS}", "{PARAMETERS}", "{POSITIONAL_FILENAMES}"}

// forbiddenLateBoundFields scans a step's local PARAMETERS values for the
// late-bound placeholders disallowed by §4.2 and returns the offending
// tokens (empty if none).
func forbiddenLateBoundFields(step *StepDef) []string {
	if step.Parameters == nil {
		return nil
	}
	var hits []string
	for _, key := range step.Parameters.Keys() {
		value, _ := step.Parameters.Get(key)
		s, ok := value.(string)
		if !ok {
			continue
		}
		for _, placeholder := range lateBoundPlaceholders {
			if strings.Contains(s, placeholder) {
				hits = append(hits, placeholder)
			}
		}
	}
	return hits
}

func convertValidationError(step string, err error) error {
	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		fe := ves[0]
		return workflowerrors.NewConfigError(step, fmt.Sprintf("%s failed validation for tag %q", fe.Field(), fe.Tag()), err)
	}
	return workflowerrors.NewConfigError(step, err.Error(), err)
}
