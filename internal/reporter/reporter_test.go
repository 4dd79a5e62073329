package reporter

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aidanmoss/forgeflow/internal/config"
	"github.com/aidanmoss/forgeflow/internal/planner"
	"github.com/aidanmoss/forgeflow/internal/state"
)

func TestDescribeIncludesHeaderDiagramAndSteps(t *testing.T) {
	planner.SettleDelay = 0

	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))

	docPath := filepath.Join(dir, "workflow.yaml")
	doc := `
OVERVIEW: "Builds the example project."
WORKFLOW:
  A:
    RULE:
      NAME: touch
      COMMAND: "touch {OUTPUT}"
    OUTPUT: "out/a.txt"
    DESCRIPTION: "Creates the seed file."
  B:
    RULE:
      NAME: touch
      COMMAND: "touch {OUTPUT}"
    OUTPUT: "out/b.txt"
    REQUIRES: [A]
    INPUTS: "{REQUIRES[0]}"
`
	require.NoError(t, os.WriteFile(docPath, []byte(doc), 0o644))
	cfg, err := config.ParseConfig(docPath, nil)
	require.NoError(t, err)

	plan, err := planner.Plan(cfg, state.Map{}, "", "")
	require.NoError(t, err)

	out := Describe(cfg, plan, "release", "out/b.txt", time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))

	require.Contains(t, out, "release")
	require.Contains(t, out, "out/b.txt")
	require.Contains(t, out, "Builds the example project.")
	require.Contains(t, out, "```mermaid")
	require.Contains(t, out, "Creates the seed file.")
	require.Contains(t, out, "touch out/a.txt")
}
