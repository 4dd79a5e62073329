// Package reporter renders a BuildPlan as a human-readable markdown
// document: a header block, an optional project overview, a Mermaid
// diagram of the dependency graph, and a per-step section (§4.6).
package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/aidanmoss/forgeflow/internal/config"
	"github.com/aidanmoss/forgeflow/internal/planner"
)

// Describe renders plan as markdown for the given profile, final output,
// and generation timestamp.
func Describe(cfg *config.Config, plan *planner.BuildPlan, profile, finalOutput string, generatedAt time.Time) string {
	var b strings.Builder

	writeHeader(&b, cfg, profile, finalOutput, generatedAt)

	if cfg.Overview != "" {
		b.WriteString("## Overview\n\n")
		b.WriteString(cfg.Overview)
		b.WriteString("\n\n")
	}

	writeDiagram(&b, plan)
	writeSteps(&b, cfg, plan)

	return b.String()
}

func writeHeader(b *strings.Builder, cfg *config.Config, profile, finalOutput string, generatedAt time.Time) {
	b.WriteString("# Build Plan\n\n")
	fmt.Fprintf(b, "- **Profile**: %s\n", displayOrDefault(profile, "(none)"))
	fmt.Fprintf(b, "- **Final output**: %s\n", displayOrDefault(finalOutput, "(full workflow)"))
	fmt.Fprintf(b, "- **Generated**: %s\n\n", generatedAt.Format(time.RFC3339))
	_ = cfg
}

func displayOrDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// writeDiagram renders a Mermaid flowchart of the plan's subgraph, with
// source nodes (no dependencies) styled distinctly from process nodes.
func writeDiagram(b *strings.Builder, plan *planner.BuildPlan) {
	b.WriteString("## Dependency Graph\n\n")
	b.WriteString("```mermaid\nflowchart TD\n")

	for _, name := range plan.Order {
		node, _ := plan.Graph.Node(name)
		fmt.Fprintf(b, "    %s[%q]\n", mermaidID(name), name)
		if len(node.DependsOn) == 0 {
			fmt.Fprintf(b, "    class %s sourceNode\n", mermaidID(name))
		} else {
			fmt.Fprintf(b, "    class %s processNode\n", mermaidID(name))
		}
		for _, dep := range node.DependsOn {
			fmt.Fprintf(b, "    %s --> %s\n", mermaidID(dep), mermaidID(name))
		}
	}

	b.WriteString("    classDef sourceNode fill:#d4f7d4,stroke:#2f9e44;\n")
	b.WriteString("    classDef processNode fill:#d0ebff,stroke:#1971c2;\n")
	b.WriteString("```\n\n")
}

func mermaidID(name string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '_'
	}, name)
}

// writeSteps emits one section per step in topological order: its
// description or rule name, resolved inputs, output, and final rendered
// command.
func writeSteps(b *strings.Builder, cfg *config.Config, plan *planner.BuildPlan) {
	b.WriteString("## Steps\n\n")

	for _, name := range plan.Order {
		step, _ := cfg.Workflow.Get(name)
		node := plan.Nodes[name]

		fmt.Fprintf(b, "### %s\n\n", name)
		if step.Description != "" {
			fmt.Fprintf(b, "%s\n\n", step.Description)
		} else {
			fmt.Fprintf(b, "Rule: `%s`\n\n", step.Rule.Name)
		}

		fmt.Fprintf(b, "- **Inputs**: %s\n", joinOrNone(node.Resolved.Inputs))
		fmt.Fprintf(b, "- **Output**: %s\n", node.Resolved.Output)
		fmt.Fprintf(b, "- **Status**: %s\n\n", node.Code)
		b.WriteString("```sh\n")
		b.WriteString(node.Resolved.Command)
		b.WriteString("\n```\n\n")
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
