package state

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aidanmoss/forgeflow/internal/generator"
)

func TestLoadReturnsEmptyMapWhenFileMissing(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "missing.json"))
	require.Empty(t, s.Load())
}

func TestLoadReturnsEmptyMapWhenFileMalformed(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".build_state.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	s := New(path)
	require.Empty(t, s.Load())
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, ".build_state.json")
	s := New(path)

	m := Map{
		"out/a.o": Entry{
			Hashes: generator.Hashes{Command: "c1", Inputs: "i1", Params: "p1"},
			Mtime:  1234.5,
		},
	}

	require.NoError(t, s.Save(m))

	loaded := s.Load()
	require.Equal(t, m, loaded)
}
