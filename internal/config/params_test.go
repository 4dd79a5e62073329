package config

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParamsPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	var p Params
	err := yaml.Unmarshal([]byte("zeta: 1\nalpha: 2\nmike: 3\n"), &p)
	require.NoError(t, err)
	require.Equal(t, []string{"zeta", "alpha", "mike"}, p.Keys())
}

func TestParamsMergeUpdatesInPlaceAndAppendsNew(t *testing.T) {
	t.Parallel()

	base := NewParams()
	base.Set("verbose", true)
	base.Set("level", "info")

	override := NewParams()
	override.Set("level", "debug")
	override.Set("retries", 3)

	merged := base.Merge(override)
	require.Equal(t, []string{"verbose", "level", "retries"}, merged.Keys())

	level, _ := merged.Get("level")
	require.Equal(t, "debug", level)

	verbose, _ := merged.Get("verbose")
	require.Equal(t, true, verbose)
}

func TestParamsMergeHandlesNilReceivers(t *testing.T) {
	t.Parallel()

	var nilParams *Params
	other := NewParams()
	other.Set("a", 1)

	merged := nilParams.Merge(other)
	require.Equal(t, []string{"a"}, merged.Keys())

	merged2 := other.Merge(nil)
	require.Equal(t, []string{"a"}, merged2.Keys())
}
