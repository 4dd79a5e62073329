package executor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aidanmoss/forgeflow/internal/config"
	"github.com/aidanmoss/forgeflow/internal/logger"
	"github.com/aidanmoss/forgeflow/internal/planner"
	"github.com/aidanmoss/forgeflow/internal/state"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Options{Writer: os.Stderr, HumanReadable: true})
	require.NoError(t, err)
	return log
}

func TestRunExecutesStepsAndPersistsState(t *testing.T) {
	planner.SettleDelay = 0

	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "out"), 0o755))

	docPath := filepath.Join(dir, "workflow.yaml")
	doc := `
WORKFLOW:
  A:
    RULE:
      NAME: touch
      COMMAND: "touch {OUTPUT}"
    OUTPUT: "out/a.txt"
`
	require.NoError(t, os.WriteFile(docPath, []byte(doc), 0o644))
	cfg, err := config.ParseConfig(docPath, nil)
	require.NoError(t, err)

	plan, err := planner.Plan(cfg, state.Map{}, "", "")
	require.NoError(t, err)

	statePath := filepath.Join(dir, ".build_state.json")
	st := state.Map{}
	ok, report, err := Run(plan, st, testLogger(t), 2, nil, statePath)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, report.StepDurations, 1)

	_, statErr := os.Stat(filepath.Join(dir, "out", "a.txt"))
	require.NoError(t, statErr)

	reloaded := state.New(statePath).Load()
	require.Contains(t, reloaded, "out/a.txt")
}

func TestRunHaltsAfterGenerationFailure(t *testing.T) {
	planner.SettleDelay = 0

	dir := t.TempDir()
	require.NoError(t, os.Chdir(dir))

	docPath := filepath.Join(dir, "workflow.yaml")
	doc := `
WORKFLOW:
  A:
    RULE:
      NAME: fail
      COMMAND: "exit 1; : {OUTPUT}"
    OUTPUT: "out/a.txt"
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

	statePath := filepath.Join(dir, ".build_state.json")
	ok, _, err := Run(plan, state.Map{}, testLogger(t), 2, nil, statePath)
	require.NoError(t, err)
	require.False(t, ok)

	_, statErr := os.Stat(filepath.Join(dir, "out", "b.txt"))
	require.True(t, os.IsNotExist(statErr))
}
