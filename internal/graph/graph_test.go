package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aidanmoss/forgeflow/internal/config"
)

func workflowFrom(t *testing.T, yamlDoc string) *config.WorkflowDef {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "workflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))
	cfg, err := config.ParseConfig(path, nil)
	require.NoError(t, err)
	return &cfg.Workflow
}

const linearWorkflow = `
WORKFLOW:
  install_git:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/install_git"
  clone_repo:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/clone_repo"
    REQUIRES: [install_git]
  configure:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/configure"
    REQUIRES: [clone_repo]
`

func TestBuildGeneratesGenerations(t *testing.T) {
	t.Parallel()

	g, err := Build(workflowFrom(t, linearWorkflow))
	require.NoError(t, err)

	generations, err := TopologicalGenerations(g)
	require.NoError(t, err)
	require.Len(t, generations, 3)
	require.Equal(t, []string{"install_git"}, generations[0])
	require.Equal(t, []string{"clone_repo"}, generations[1])
	require.Equal(t, []string{"configure"}, generations[2])
}

const fanInWorkflow = `
WORKFLOW:
  install_git:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/install_git"
  install_curl:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/install_curl"
  clone_repo:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/clone_repo"
    REQUIRES: [install_git, install_curl]
`

func TestBuildAllowsParallelGeneration(t *testing.T) {
	t.Parallel()

	g, err := Build(workflowFrom(t, fanInWorkflow))
	require.NoError(t, err)

	generations, err := TopologicalGenerations(g)
	require.NoError(t, err)
	require.Len(t, generations, 2)
	require.Equal(t, []string{"install_git", "install_curl"}, generations[0])
	require.Equal(t, []string{"clone_repo"}, generations[1])
}

func TestGenerationTiesBreakByDeclarationOrder(t *testing.T) {
	t.Parallel()

	// b and c are declared before a but both depend on nothing; a also
	// depends on nothing. Declaration order is b, c, a so generation 0
	// must preserve that order rather than sorting alphabetically.
	doc := `
WORKFLOW:
  b:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/b"
  c:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/c"
  a:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/a"
`
	g, err := Build(workflowFrom(t, doc))
	require.NoError(t, err)

	generations, err := TopologicalGenerations(g)
	require.NoError(t, err)
	require.Len(t, generations, 1)
	require.Equal(t, []string{"b", "c", "a"}, generations[0])
}

const cyclicWorkflow = `
WORKFLOW:
  a:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/a"
    REQUIRES: [c]
  b:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/b"
    REQUIRES: [a]
  c:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/c"
    REQUIRES: [b]
`

func TestTopologicalGenerationsDetectsCycle(t *testing.T) {
	t.Parallel()

	g, err := Build(workflowFrom(t, cyclicWorkflow))
	require.NoError(t, err)

	_, err = TopologicalGenerations(g)
	require.Error(t, err)
	require.Contains(t, err.Error(), "cycle")
}

func TestBuildErrorsOnUnknownRequires(t *testing.T) {
	t.Parallel()

	doc := `
WORKFLOW:
  a:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/a"
    REQUIRES: [missing]
`
	_, err := Build(workflowFrom(t, doc))
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing")
}

func TestExecutionSubgraphReturnsAncestorsOnly(t *testing.T) {
	t.Parallel()

	doc := `
WORKFLOW:
  a:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/a"
  b:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/b"
    REQUIRES: [a]
  unrelated:
    RULE:
      NAME: noop
      COMMAND: "echo {OUTPUT}"
    OUTPUT: "out/unrelated"
`
	full, err := Build(workflowFrom(t, doc))
	require.NoError(t, err)

	sub, err := ExecutionSubgraph(full, "b")
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"a", "b"}, sub.Names())
}

func TestExecutionSubgraphRejectsUnknownFinalStep(t *testing.T) {
	t.Parallel()

	full, err := Build(workflowFrom(t, linearWorkflow))
	require.NoError(t, err)

	_, err = ExecutionSubgraph(full, "does_not_exist")
	require.Error(t, err)
}
