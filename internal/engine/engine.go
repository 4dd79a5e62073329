// Package engine is the facade tying configuration, planning, execution,
// and reporting into the single entry point a CLI or embedder calls
// (§4.7). It owns construction-time validation (INPUT_DIRECTORY) and the
// success/error banners the spec requires.
package engine

import (
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/aidanmoss/forgeflow/internal/config"
	"github.com/aidanmoss/forgeflow/internal/executor"
	"github.com/aidanmoss/forgeflow/internal/logger"
	"github.com/aidanmoss/forgeflow/internal/planner"
	"github.com/aidanmoss/forgeflow/internal/reporter"
	"github.com/aidanmoss/forgeflow/internal/state"
	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// DefaultStatePath is used when no state file path is supplied (§6).
const DefaultStatePath = ".build_state.json"

// Engine is constructed from a parsed configuration and owns the state
// file path for the lifetime of a process.
type Engine struct {
	cfg       *config.Config
	statePath string
}

// Load parses configPath, applies cliOverrides to GENERAL's context, and
// validates INPUT_DIRECTORY if set (§4.7: "the path must exist and be a
// directory; otherwise fail with a precise file/not-a-directory error").
func Load(configPath string, cliOverrides map[string]interface{}, statePath string) (*Engine, error) {
	cfg, err := config.ParseConfig(configPath, cliOverrides)
	if err != nil {
		return nil, err
	}

	if inputDir, ok := cfg.General.Context.Get("INPUT_DIRECTORY"); ok {
		if dir, ok := inputDir.(string); ok && dir != "" {
			info, statErr := os.Stat(dir)
			if statErr != nil {
				return nil, workflowerrors.NewConfigError("", fmt.Sprintf("INPUT_DIRECTORY %q does not exist", dir), statErr)
			}
			if !info.IsDir() {
				return nil, workflowerrors.NewConfigError("", fmt.Sprintf("INPUT_DIRECTORY %q is not a directory", dir), nil)
			}
		}
	}

	if statePath == "" {
		statePath = DefaultStatePath
	}

	return &Engine{cfg: cfg, statePath: statePath}, nil
}

// SetMaxWorkers overrides GENERAL.MAX_WORKERS for the lifetime of this
// Engine, e.g. from a CLI --workers flag. A non-positive value is ignored.
func (e *Engine) SetMaxWorkers(n int) {
	if n > 0 {
		e.cfg.General.MaxWorkers = n
	}
}

// HasProfile reports whether name is a declared profile or profile group
// (§4.7). An empty name (no profile selected) is accepted.
func (e *Engine) HasProfile(name string) bool {
	if name == "" {
		return true
	}
	if _, ok := e.cfg.Profiles[name]; ok {
		return true
	}
	_, ok := e.cfg.ProfileGroups[name]
	return ok
}

// ProfileNames returns the declared profile names, sorted for a
// deterministic `forgeflow profiles` listing.
func (e *Engine) ProfileNames() []string {
	names := make([]string, 0, len(e.cfg.Profiles))
	for name := range e.cfg.Profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// resolveProfile maps a caller-supplied profile/group name through
// PROFILE_GROUPS when present, otherwise treats it as a direct profile
// name. Empty stays empty (no profile selected).
func (e *Engine) resolveProfile(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if _, ok := e.cfg.Profiles[name]; ok {
		return name, nil
	}
	if group, ok := e.cfg.ProfileGroups[name]; ok && len(group) > 0 {
		return group[0], nil
	}
	return "", workflowerrors.NewConfigError("", fmt.Sprintf("unknown profile or profile group %q", name), nil)
}

// finalStep resolves the caller's requested final step, defaulting to
// the top-level DEFAULT_WORKFLOW_STEP when unset.
func (e *Engine) finalStep(requested string) string {
	if requested != "" {
		return requested
	}
	return e.cfg.DefaultWorkflowStep
}

// Plan builds a BuildPlan for the given profile and optional final step.
func (e *Engine) Plan(profileOrGroup, finalStep string) (*planner.BuildPlan, error) {
	profile, err := e.resolveProfile(profileOrGroup)
	if err != nil {
		return nil, err
	}

	st := state.New(e.statePath).Load()
	return planner.Plan(e.cfg, st, profile, e.finalStep(finalStep))
}

// Describe returns the Reporter's markdown description of the plan for
// profile (§4.7).
func (e *Engine) Describe(profileOrGroup, finalStep string) (string, error) {
	resolvedFinal := e.finalStep(finalStep)
	plan, err := e.Plan(profileOrGroup, finalStep)
	if err != nil {
		return "", err
	}

	finalOutput := ""
	if resolvedFinal != "" {
		if node, ok := plan.Nodes[resolvedFinal]; ok {
			finalOutput = node.Resolved.Output
		}
	}

	return reporter.Describe(e.cfg, plan, profileOrGroup, finalOutput, time.Now()), nil
}

// Execute orchestrates one build end to end: plan, run, persist, report
// (§4.7). status may be nil.
func (e *Engine) Execute(finalStep, profileOrGroup string, log *logger.Logger, status executor.StatusFunc) (bool, reporter.TimingReport, error) {
	profile, err := e.resolveProfile(profileOrGroup)
	if err != nil {
		return false, reporter.TimingReport{}, err
	}

	resolvedFinal := e.finalStep(finalStep)
	store := state.New(e.statePath)
	st := store.Load()

	plan, err := planner.Plan(e.cfg, st, profile, resolvedFinal)
	if err != nil {
		log.Error(err, "build failed during planning")
		return false, reporter.TimingReport{}, err
	}

	maxWorkers := e.cfg.General.MaxWorkers

	ok, report, err := executor.Run(plan, st, log, maxWorkers, status, e.statePath)
	if err != nil {
		log.Error(err, "build failed persisting state")
		return false, reporter.TimingReport{}, err
	}

	if ok {
		log.Log("build succeeded")
		log.Log(reporter.FormatTimingReport(report))
	} else {
		log.Log("build failed: see step errors above")
	}

	return ok, report, nil
}
