// Package planner builds a BuildPlan: for each node in the execution
// subgraph, its resolved command and an UpdateCode describing whether it
// is stale, plus the ordered partition into steps to run and skip (§4.4).
package planner

import (
	"os"
	"time"

	"github.com/aidanmoss/forgeflow/internal/config"
	"github.com/aidanmoss/forgeflow/internal/generator"
	"github.com/aidanmoss/forgeflow/internal/graph"
	workflowerrors "github.com/aidanmoss/forgeflow/pkg/errors"
	"github.com/aidanmoss/forgeflow/internal/state"
)

// SettleDelay is slept once before the first mtime read of a planning
// pass, to tolerate filesystems that have just been written (§4.4, §9).
// Tests override this to zero to avoid the real wait.
var SettleDelay = 100 * time.Millisecond

// UpdateCode classifies why a node is or isn't scheduled to run.
type UpdateCode string

const (
	MissingOutput UpdateCode = "MISSING_OUTPUT"
	NotTracked    UpdateCode = "NOT_TRACKED"
	CommandChanged UpdateCode = "COMMAND_CHANGED"
	InputsChanged UpdateCode = "INPUTS_CHANGED"
	ParamsChanged UpdateCode = "PARAMS_CHANGED"
	MissingInput  UpdateCode = "MISSING_INPUT"
	NewerInput    UpdateCode = "NEWER_INPUT"
	UpToDate      UpdateCode = "UP_TO_DATE"
	StaleTarget   UpdateCode = "STALE_TARGET"
)

// Node is one entry in a BuildPlan.
type Node struct {
	Name     string
	Resolved *generator.Resolved
	Code     UpdateCode
	// Context carries the UpdateCode's supporting detail, e.g. the
	// offending input path for NEWER_INPUT/MISSING_INPUT.
	Context string
}

// BuildPlan is the full result of planning a build for one profile and
// optional final step.
type BuildPlan struct {
	Graph         *graph.Graph
	Order         []string
	Generations   [][]string
	Nodes         map[string]*Node
	StepsToRun    []string
	StepsToSkip   []string
}

// Plan builds the execution subgraph for finalStep (or the whole
// workflow, if empty), generates every node's command, and classifies
// each node's staleness against persisted state (§4.4).
func Plan(cfg *config.Config, st state.Map, profile, finalStep string) (*BuildPlan, error) {
	full, err := graph.Build(&cfg.Workflow)
	if err != nil {
		return nil, err
	}

	sub, err := graph.ExecutionSubgraph(full, finalStep)
	if err != nil {
		return nil, err
	}

	order, err := graph.TopologicalOrder(sub)
	if err != nil {
		return nil, err
	}
	generations, err := graph.TopologicalGenerations(sub)
	if err != nil {
		return nil, err
	}

	nodes := make(map[string]*Node, len(order))
	resolvedOutputs := make(map[string]string, len(order))

	for _, name := range order {
		gn, _ := sub.Node(name)
		resolved, err := generator.Generate(cfg, profile, gn.Step, resolvedOutputs)
		if err != nil {
			return nil, workflowerrors.NewConfigError(name, "command generation failed: "+err.Error(), err)
		}
		resolvedOutputs[name] = resolved.Output
		nodes[name] = &Node{Name: name, Resolved: resolved}
	}

	if SettleDelay > 0 {
		time.Sleep(SettleDelay)
	}

	for _, name := range order {
		node := nodes[name]
		code, ctxDetail := isOutdated(node.Resolved, st)
		node.Code = code
		node.Context = ctxDetail
	}

	propagateStaleness(sub, order, nodes)

	var toRun, toSkip []string
	for _, name := range order {
		if nodes[name].Code == UpToDate {
			toSkip = append(toSkip, name)
		} else {
			toRun = append(toRun, name)
		}
	}

	return &BuildPlan{
		Graph:       sub,
		Order:       order,
		Generations: generations,
		Nodes:       nodes,
		StepsToRun:  toRun,
		StepsToSkip: toSkip,
	}, nil
}

// isOutdated implements the ordered staleness checks of §4.4; the first
// trigger wins.
func isOutdated(resolved *generator.Resolved, st state.Map) (UpdateCode, string) {
	if _, statErr := os.Stat(resolved.Output); statErr != nil {
		return MissingOutput, resolved.Output
	}

	entry, tracked := st[resolved.Output]
	if !tracked {
		return NotTracked, resolved.Output
	}

	if entry.Hashes.Command != resolved.Hashes.Command {
		return CommandChanged, resolved.Output
	}
	if entry.Hashes.Inputs != resolved.Hashes.Inputs {
		return InputsChanged, resolved.Output
	}
	if entry.Hashes.Params != resolved.Hashes.Params {
		return ParamsChanged, resolved.Output
	}

	for _, input := range resolved.Inputs {
		if _, err := os.Stat(input); err != nil {
			return MissingInput, input
		}
	}
	for _, input := range resolved.Inputs {
		inputInfo, err := os.Stat(input)
		if err != nil {
			return MissingInput, input
		}
		inputMtime := float64(inputInfo.ModTime().UnixNano()) / 1e9
		if inputMtime > entry.Mtime {
			return NewerInput, input
		}
	}

	return UpToDate, ""
}

// propagateStaleness extends the initially outdated set to every
// descendant in the subgraph; descendants that were themselves
// up-to-date are marked STALE_TARGET (§4.4).
func propagateStaleness(g *graph.Graph, order []string, nodes map[string]*Node) {
	for _, name := range order {
		node := nodes[name]
		if node.Code != UpToDate {
			continue
		}
		gn, _ := g.Node(name)
		for _, dep := range gn.DependsOn {
			if nodes[dep].Code != UpToDate {
				node.Code = StaleTarget
				break
			}
		}
	}
}
