package errors

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigErrorIncludesStepContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("unresolved placeholder {REGION}")
	err := NewConfigError("render_region", "unresolved placeholder", underlying)

	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	require.Equal(t, "render_region", configErr.Step)
	require.True(t, stdErrors.Is(err, underlying))
	require.Contains(t, err.Error(), "render_region")
}

func TestConfigErrorWithoutStepOmitsBrackets(t *testing.T) {
	t.Parallel()

	err := NewConfigError("", "unknown final step \"deploy\"", nil)
	require.NotContains(t, err.Error(), "[]")
	require.Contains(t, err.Error(), "unknown final step")
}

func TestStateErrorWrapsUnderlying(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("permission denied")
	err := NewStateError(".build_state.json", "write failed", underlying)

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, ".build_state.json", stateErr.Path)
	require.True(t, stdErrors.Is(err, underlying))
}

func TestExecutionErrorIncludesStepContext(t *testing.T) {
	t.Parallel()

	underlying := stdErrors.New("exit status 1")
	err := NewExecutionError("compile", underlying)

	var executionErr *ExecutionError
	require.ErrorAs(t, err, &executionErr)
	require.Equal(t, "compile", executionErr.Step)
	require.True(t, stdErrors.Is(err, underlying))
}
