// Package generator resolves a step's template context into its final
// shell command and the three hashes the planner compares against
// persisted state (§4.2).
package generator

import (
	"github.com/aidanmoss/forgeflow/internal/config"
)

// MergedContext merges the five template-context layers in the order
// §4.2 requires: GENERAL, active PROFILE, per-rule PARAMETERS from
// GENERAL, per-rule PARAMETERS from PROFILE, step-local PARAMETERS. Each
// later layer overrides keys in place and appends new keys, mirroring
// Python's dict.update semantics via config.Params.Merge.
func MergedContext(cfg *config.Config, profile, ruleName string, step *config.StepDef) *config.Params {
	merged := config.NewParams()
	merged = merged.Merge(cfg.General.Context)

	if profile != "" {
		if p, ok := cfg.Profiles[profile]; ok {
			merged = merged.Merge(p.Context)
		}
	}

	if rp, ok := cfg.General.RuleParameters[ruleName]; ok {
		merged = merged.Merge(rp)
	}

	if profile != "" {
		if p, ok := cfg.Profiles[profile]; ok {
			if rp, ok := p.RuleParameters[ruleName]; ok {
				merged = merged.Merge(rp)
			}
		}
	}

	if step.Parameters != nil {
		merged = merged.Merge(step.Parameters)
	}

	return merged
}
