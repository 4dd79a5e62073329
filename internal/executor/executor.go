// Package executor runs a BuildPlan's steps: within a generation, up to
// MAX_WORKERS steps execute concurrently; between generations, a strict
// barrier ensures generation k+1 never observes the filesystem before
// every worker of generation k has exited (§4.5, §5).
package executor

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aidanmoss/forgeflow/internal/logger"
	"github.com/aidanmoss/forgeflow/internal/planner"
	"github.com/aidanmoss/forgeflow/internal/reporter"
	"github.com/aidanmoss/forgeflow/internal/state"
	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
)

// defaultMaxWorkers is used when GENERAL.MAX_WORKERS is unset or zero.
const defaultMaxWorkers = 4

// StatusKind distinguishes the two status-callback event families (§6).
type StatusKind string

const (
	StatusProfile StatusKind = "profile"
	StatusStep    StatusKind = "step"
)

// StatusState is the callback's "state" field (§6).
type StatusState string

const (
	StateStarted StatusState = "started"
	StateDone    StatusState = "done"
	StateError   StatusState = "error"
)

// StatusFunc is the optional status callback contract from §6.
type StatusFunc func(kind StatusKind, current, total int, state StatusState)

// TaskResult is the per-step outcome the executor accumulates (§4.5).
type TaskResult struct {
	StepName   string
	Executed   bool
	OutputPath string
	Hashes     state.Entry
	Elapsed    time.Duration
	Err        error
}

// Run executes plan's steps_to_run generation by generation, persisting
// state after each generation and halting further generations on first
// failure while letting already-dispatched siblings finish (§4.5).
// Returns whether the run succeeded and the final timing report.
func Run(plan *planner.BuildPlan, st state.Map, log *logger.Logger, maxWorkers int, status StatusFunc, statePath string) (bool, reporter.TimingReport, error) {
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	toRun := make(map[string]bool, len(plan.StepsToRun))
	for _, name := range plan.StepsToRun {
		toRun[name] = true
	}

	total := len(plan.StepsToRun)
	current := 0
	var durations []reporter.StepDuration
	succeeded := true

	store := state.New(statePath)
	wallStart := time.Now()

	if status != nil && total > 0 {
		status(StatusProfile, 0, total, StateStarted)
	}

generations:
	for _, generation := range plan.Generations {
		var runnable []string
		for _, name := range generation {
			if toRun[name] {
				runnable = append(runnable, name)
			}
		}
		if len(runnable) == 0 {
			continue
		}

		group := &errgroup.Group{}
		group.SetLimit(maxWorkers)

		results := make([]*TaskResult, len(runnable))
		var mu sync.Mutex

		for i, name := range runnable {
			i, name := i, name
			node := plan.Nodes[name]
			group.Go(func() error {
				result := runTask(node, log)
				mu.Lock()
				results[i] = result
				mu.Unlock()
				return nil
			})
		}
		_ = group.Wait()

		failed := false
		for _, result := range results {
			current++
			if result.Err != nil {
				failed = true
				if status != nil {
					status(StatusStep, current, total, StateError)
				}
				continue
			}
			durations = append(durations, reporter.StepDuration{StepName: result.StepName, Elapsed: result.Elapsed})
			st[result.OutputPath] = result.Hashes
			if status != nil {
				status(StatusStep, current, total, StateDone)
			}
		}

		if saveErr := store.Save(st); saveErr != nil {
			return false, reporter.TimingReport{}, saveErr
		}

		if failed {
			succeeded = false
			break generations
		}
	}

	wall := time.Since(wallStart)
	report := reporter.BuildTimingReport(durations, wall)

	if status != nil {
		final := StateDone
		if !succeeded {
			final = StateError
		}
		status(StatusProfile, current, total, final)
	}

	return succeeded, report, nil
}

// runTask executes one step in the current worker: logs its header,
// creates the output's parent directory, streams its subprocess output
// line by line through log (prefixed with the step name), and converts any
// failure into a FAILED TaskResult rather than propagating it across the
// worker boundary (§4.5).
func runTask(node *planner.Node, log *logger.Logger) *TaskResult {
	stepLog := log.WithFields(map[string]interface{}{"step": node.Name})
	stepLog.Log(headerFor(node))

	start := time.Now()
	runErr := os.MkdirAll(filepath.Dir(node.Resolved.Output), 0o755)
	if runErr == nil {
		runErr = runShellStreaming(node.Resolved.Command, stepLog.Log)
	}
	elapsed := time.Since(start)

	if runErr != nil {
		stepLog.Error(runErr, "step failed")
		return &TaskResult{StepName: node.Name, Err: workflowerrors.NewExecutionError(node.Name, runErr)}
	}

	info, statErr := os.Stat(node.Resolved.Output)
	if statErr != nil {
		stepLog.Error(statErr, "step produced no output")
		return &TaskResult{StepName: node.Name, Err: workflowerrors.NewExecutionError(node.Name, statErr)}
	}

	return &TaskResult{
		StepName:   node.Name,
		Executed:   true,
		OutputPath: node.Resolved.Output,
		Hashes: state.Entry{
			Hashes: node.Resolved.Hashes,
			Mtime:  float64(info.ModTime().UnixNano()) / 1e9,
		},
		Elapsed: elapsed,
	}
}

func headerFor(node *planner.Node) string {
	reason := string(node.Code)
	cmd := node.Resolved.Command
	const maxLen = 200
	if len(cmd) > maxLen {
		cmd = cmd[:maxLen/2] + "…" + cmd[len(cmd)-maxLen/2:]
	}
	return node.Name + " [" + reason + "]: " + cmd
}
