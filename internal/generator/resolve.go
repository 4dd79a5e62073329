package generator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/aidanmoss/forgeflow/internal/config"
	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// Hashes are the three SHA-256 digests the planner compares against
// persisted state (§4.2).
type Hashes struct {
	Command string `json:"command"`
	Inputs  string `json:"inputs"`
	Params  string `json:"params"`
}

// Resolved is a step's fully rendered command plus the data the planner
// and executor need: resolved output path, resolved input paths (for
// staleness checks), the hashes, and any non-fatal warnings.
type Resolved struct {
	StepName string
	Command  string
	Output   string
	Inputs   []string
	Hashes   Hashes
	Warnings []string
}

var (
	requiresIndexPattern = regexp.MustCompile(`^\{REQUIRES\[(\d+)\]\}$`)
	inputsIndexPattern   = regexp.MustCompile(`\{INPUTS\[(\d+)\]\}`)
)

// Generate resolves step into its final shell command and hashes, given
// the per-profile configuration and the outputs already resolved for
// earlier steps in topological order (for {REQUIRES[i]} substitution).
func Generate(cfg *config.Config, profile string, step *config.StepDef, resolvedOutputs map[string]string) (*Resolved, error) {
	ctx := MergedContext(cfg, profile, step.Rule.Name, step)
	preprocessInputFiles(ctx)

	resolvedInputs, err := resolveInputs(step, ctx, resolvedOutputs)
	if err != nil {
		return nil, err
	}

	resolvedOutput, err := ExpandTemplate(step.Name, step.Output, ctx)
	if err != nil {
		return nil, err
	}

	mergedParams := mergedParameters(cfg, profile, step)

	resolvedParams, err := templateParameters(step.Name, mergedParams, ctx)
	if err != nil {
		return nil, err
	}

	command, warnings, err := assembleCommand(step, ctx, resolvedInputs, resolvedOutput, resolvedParams)
	if err != nil {
		return nil, err
	}

	if _, err := shlex.Split(command); err != nil {
		return nil, workflowerrors.NewConfigError(step.Name, fmt.Sprintf("rendered command failed shell-lex validation: %q", command), err)
	}

	hashes, err := computeHashes(step.Rule.Command, resolvedInputs, resolvedParams)
	if err != nil {
		return nil, err
	}

	return &Resolved{
		StepName: step.Name,
		Command:  command,
		Output:   resolvedOutput,
		Inputs:   resolvedInputs,
		Hashes:   hashes,
		Warnings: warnings,
	}, nil
}

// preprocessInputFiles rewrites INPUT_FILES entries to be joined against
// INPUT_DIRECTORY when both are present in the merged context (§4.2).
func preprocessInputFiles(ctx *config.Params) {
	dirVal, hasDir := ctx.Get("INPUT_DIRECTORY")
	filesVal, hasFiles := ctx.Get("INPUT_FILES")
	if !hasDir || !hasFiles {
		return
	}
	dir, ok := dirVal.(string)
	if !ok {
		return
	}
	files := toStringSlice(filesVal)
	joined := make([]string, len(files))
	for i, f := range files {
		joined[i] = filepath.Join(dir, f)
	}
	ctx.Set("INPUT_FILES", joined)
}

// resolveInputs implements the three-step input resolution order of §4.2.
func resolveInputs(step *config.StepDef, ctx *config.Params, resolvedOutputs map[string]string) ([]string, error) {
	var resolved []string

	for _, tmpl := range step.Inputs {
		if m := requiresIndexPattern.FindStringSubmatch(tmpl); m != nil {
			idx, _ := strconv.Atoi(m[1])
			if idx < 0 || idx >= len(step.Requires) {
				return nil, workflowerrors.NewConfigError(step.Name, fmt.Sprintf("REQUIRES[%d] out of range (len=%d)", idx, len(step.Requires)), nil)
			}
			depName := step.Requires[idx]
			output, ok := resolvedOutputs[depName]
			if !ok {
				return nil, workflowerrors.NewConfigError(step.Name, fmt.Sprintf("REQUIRES[%d] (%s) has no resolved output yet", idx, depName), nil)
			}
			resolved = append(resolved, output)
			continue
		}

		if tmpl == "{INPUT_FILES}" {
			if v, ok := ctx.Get("INPUT_FILES"); ok {
				resolved = append(resolved, toStringSlice(v)...)
			}
			continue
		}

		expanded, err := ExpandTemplate(step.Name, tmpl, ctx)
		if err != nil {
			return nil, err
		}
		if isSinglePlaceholder(tmpl) {
			if raw, ok := ctx.Get(tmpl[1 : len(tmpl)-1]); ok {
				if list := toStringSliceIfList(raw); list != nil {
					resolved = append(resolved, list...)
					continue
				}
			}
		}
		resolved = append(resolved, expanded)
	}

	return resolved, nil
}

// isSinglePlaceholder reports whether s is exactly one uppercase-led
// placeholder token with nothing else around it.
func isSinglePlaceholder(s string) bool {
	m := placeholderPattern.FindString(s)
	return m != "" && m == s
}

func toStringSliceIfList(v interface{}) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []interface{}:
		out := make([]string, len(list))
		for i, item := range list {
			out[i] = stringify(item)
		}
		return out
	default:
		return nil
	}
}

func toStringSlice(v interface{}) []string {
	if list := toStringSliceIfList(v); list != nil {
		return list
	}
	if s, ok := v.(string); ok {
		return []string{s}
	}
	return nil
}

// mergedParameters merges the GENERAL/PROFILE/step PARAMETERS layers for
// this step's rule, identical in scope to MergedContext's rule-parameter
// portion but kept separate since PARAMETERS is hashed on its own.
func mergedParameters(cfg *config.Config, profile string, step *config.StepDef) *config.Params {
	merged := config.NewParams()

	if rp, ok := cfg.General.RuleParameters[step.Rule.Name]; ok {
		merged = merged.Merge(rp)
	}
	if profile != "" {
		if p, ok := cfg.Profiles[profile]; ok {
			if rp, ok := p.RuleParameters[step.Rule.Name]; ok {
				merged = merged.Merge(rp)
			}
		}
	}
	if step.Parameters != nil {
		merged = merged.Merge(step.Parameters)
	}

	return merged
}

// templateParameters deep-templates a merged PARAMETERS mapping's string
// (and string-list) values against ctx, mirroring the original's
// `_merge_parameters` returning `_deep_template(node_name, merged,
// context)`. The merged mapping is hashed and rendered only after this
// step, so a parameter like `opt: "{LEVEL}"` tracks changes to LEVEL in
// both hashes.params and the rendered command (§4.2).
func templateParameters(stepName string, params *config.Params, ctx *config.Params) (*config.Params, error) {
	resolved := config.NewParams()
	for _, key := range params.Keys() {
		value, _ := params.Get(key)
		templated, err := templateParamValue(stepName, value, ctx)
		if err != nil {
			return nil, err
		}
		resolved.Set(key, templated)
	}
	return resolved, nil
}

// templateParamValue deep-templates a single parameter value: strings are
// expanded directly, string lists are expanded element-wise, and any other
// value (bool, number, nil) is returned unchanged.
func templateParamValue(stepName string, value interface{}, ctx *config.Params) (interface{}, error) {
	switch v := value.(type) {
	case string:
		expanded, err := ExpandTemplate(stepName, v, ctx)
		if err != nil {
			return nil, err
		}
		return expanded, nil
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			expanded, err := ExpandTemplate(stepName, item, ctx)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			expanded, err := ExpandTemplate(stepName, stringify(item), ctx)
			if err != nil {
				return nil, err
			}
			out[i] = expanded
		}
		return out, nil
	default:
		return value, nil
	}
}

// assembleCommand renders the final command string from the rule's
// template: required-placeholder checks, input/parameter/positional
// rendering, {INPUTS[i]} indexing, and a final generic expansion pass
// for any remaining context placeholders (§4.2).
func assembleCommand(step *config.StepDef, ctx *config.Params, resolvedInputs []string, resolvedOutput string, params *config.Params) (string, []string, error) {
	tmpl := step.Rule.Command
	var warnings []string

	if !strings.Contains(tmpl, "{OUTPUT}") {
		return "", nil, workflowerrors.NewConfigError(step.Name, "rule COMMAND must contain {OUTPUT}", nil)
	}
	if params.Len() > 0 && !strings.Contains(tmpl, "{PARAMETERS}") {
		return "", nil, workflowerrors.NewConfigError(step.Name, "PARAMETERS is non-empty but rule COMMAND has no {PARAMETERS}", nil)
	}
	if len(step.PositionalFilenames) > 0 && !strings.Contains(tmpl, "{POSITIONAL_FILENAMES}") {
		return "", nil, workflowerrors.NewConfigError(step.Name, "POSITIONAL_FILENAMES is non-empty but rule COMMAND has no {POSITIONAL_FILENAMES}", nil)
	}
	if !strings.Contains(tmpl, "{INPUTS}") && !inputsIndexPattern.MatchString(tmpl) && !strings.Contains(tmpl, "{POSITIONAL_FILENAMES}") {
		warnings = append(warnings, fmt.Sprintf("step %s: rule COMMAND references no inputs placeholder", step.Name))
	}

	rendered := tmpl

	if strings.Contains(rendered, "{INPUTS}") {
		rendered = strings.ReplaceAll(rendered, "{INPUTS}", renderInputs(step, resolvedInputs))
	}

	rendered = inputsIndexPattern.ReplaceAllStringFunc(rendered, func(token string) string {
		m := inputsIndexPattern.FindStringSubmatch(token)
		idx, _ := strconv.Atoi(m[1])
		if idx < 0 || idx >= len(resolvedInputs) {
			return token
		}
		return shellQuote(resolvedInputs[idx])
	})
	if m := inputsIndexPattern.FindString(rendered); m != "" {
		idx, _ := strconv.Atoi(inputsIndexPattern.FindStringSubmatch(m)[1])
		return "", nil, workflowerrors.NewConfigError(step.Name, fmt.Sprintf("INPUTS[%d] out of range (len=%d)", idx, len(resolvedInputs)), nil)
	}

	if strings.Contains(rendered, "{PARAMETERS}") {
		rendered = strings.ReplaceAll(rendered, "{PARAMETERS}", renderParameters(step.Rule, params))
	}

	if strings.Contains(rendered, "{POSITIONAL_FILENAMES}") {
		rendered = strings.ReplaceAll(rendered, "{POSITIONAL_FILENAMES}", renderPositionalFilenames(step))
	}

	rendered = strings.ReplaceAll(rendered, "{OUTPUT}", resolvedOutput)

	final, err := ExpandTemplate(step.Name, rendered, ctx)
	if err != nil {
		return "", nil, err
	}

	return final, warnings, nil
}

// renderInputs renders the {INPUTS} block per RULE.INPUT_STYLE.
func renderInputs(step *config.StepDef, resolvedInputs []string) string {
	quote := func(s string) string {
		if step.Rule.InputsQuoted() {
			return shellQuote(s)
		}
		return s
	}

	switch step.Rule.Style() {
	case "switch":
		parts := make([]string, 0, len(resolvedInputs)*2)
		for _, in := range resolvedInputs {
			parts = append(parts, step.Rule.InputSwitchName, quote(in))
		}
		return strings.Join(parts, " ")
	default:
		parts := make([]string, len(resolvedInputs))
		for i, in := range resolvedInputs {
			parts[i] = quote(in)
		}
		return strings.Join(parts, " ")
	}
}

// renderPositionalFilenames space-joins POSITIONAL_FILENAMES, quoted
// unless RULE.UNQUOTED_POSITIONALS is true.
func renderPositionalFilenames(step *config.StepDef) string {
	parts := make([]string, len(step.PositionalFilenames))
	for i, f := range step.PositionalFilenames {
		if step.Rule.UnquotedPositionals {
			parts[i] = f
		} else {
			parts[i] = shellQuote(f)
		}
	}
	return strings.Join(parts, " ")
}

// renderParameters renders the merged PARAMETERS mapping as DASH-prefixed
// flags in insertion order (§4.2).
func renderParameters(rule config.RuleDef, params *config.Params) string {
	var parts []string
	dash := rule.DashPrefix()

	for _, key := range params.Keys() {
		value, _ := params.Get(key)
		flag := dash + key
		quoteValue := func(s string) string {
			if rule.IsUnquotedParam(key) {
				return s
			}
			return shellQuote(s)
		}

		switch v := value.(type) {
		case nil:
			continue
		case bool:
			if v {
				parts = append(parts, flag)
			}
		case []string:
			for _, item := range v {
				parts = append(parts, flag, quoteValue(item))
			}
		case []interface{}:
			for _, item := range v {
				parts = append(parts, flag, quoteValue(stringify(item)))
			}
		default:
			parts = append(parts, flag, quoteValue(stringify(v)))
		}
	}

	return strings.Join(parts, " ")
}

// computeHashes produces the three SHA-256 digests over canonical JSON
// (§4.2): the raw command template, the lexicographically sorted
// resolved inputs, and the merged resolved parameters. encoding/json
// already sorts map keys when marshaling, so no extra canonicalization
// library is needed (see DESIGN.md).
func computeHashes(rawCommand string, resolvedInputs []string, params *config.Params) (Hashes, error) {
	commandJSON, err := json.Marshal(rawCommand)
	if err != nil {
		return Hashes{}, fmt.Errorf("hash command: %w", err)
	}
	commandHash := sha256Hex(commandJSON)

	sortedInputs := append([]string(nil), resolvedInputs...)
	sort.Strings(sortedInputs)
	inputsJSON, err := json.Marshal(sortedInputs)
	if err != nil {
		return Hashes{}, fmt.Errorf("hash inputs: %w", err)
	}

	paramsJSON, err := json.Marshal(params.Map())
	if err != nil {
		return Hashes{}, fmt.Errorf("hash params: %w", err)
	}

	return Hashes{
		Command: commandHash,
		Inputs:  sha256Hex(inputsJSON),
		Params:  sha256Hex(paramsJSON),
	}, nil
}

func sha256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
