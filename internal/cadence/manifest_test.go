package cadence

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	entries := []Entry{
		{Filenames: []string{"a.0000.h5", "b.0000.h5", "a.0001.h5", "c.0000.h5", "a.0002.h5", "d.0000.h5"}},
		{Filenames: []string{"a.0003.h5", "b.0001.h5", "a.0004.h5", "c.0001.h5", "a.0005.h5", "d.0001.h5"}},
	}
	path := filepath.Join(t.TempDir(), "cadences.json")

	require.NoError(t, WriteManifest(path, entries))

	got, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, entries, got)
}

func TestLoadManifestMissingFileErrors(t *testing.T) {
	_, err := LoadManifest(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
