package cadence

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	return path
}

func TestDetectFindsOneCadence(t *testing.T) {
	dir := t.TempDir()
	sources := map[string]string{
		"f0.0000.h5": "HIP1",
		"f1.0000.h5": "HIP2",
		"f2.0000.h5": "HIP1",
		"f3.0000.h5": "HIP3",
		"f4.0000.h5": "HIP1",
		"f5.0000.h5": "HIP4",
	}
	timestamps := map[string]float64{
		"f0.0000.h5": 1, "f1.0000.h5": 2, "f2.0000.h5": 3,
		"f3.0000.h5": 4, "f4.0000.h5": 5, "f5.0000.h5": 6,
	}
	for name := range sources {
		touch(t, dir, name)
	}

	lookup := func(path string) (FileInfo, error) {
		name := filepath.Base(path)
		return FileInfo{Timestamp: timestamps[name], SourceName: sources[name]}, nil
	}

	entries, err := Detect(dir, lookup)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0].Filenames, CadenceSize)
}

func TestDetectSlidesPastSpuriousFile(t *testing.T) {
	dir := t.TempDir()
	// A spurious leading file, then a real cadence: the window should
	// slide forward one file rather than discarding the real cadence.
	names := []string{"spurious.0000.h5", "f0.0000.h5", "f1.0000.h5", "f2.0000.h5", "f3.0000.h5", "f4.0000.h5", "f5.0000.h5"}
	sourceFor := map[string]string{
		"spurious.0000.h5": "NOISE",
		"f0.0000.h5":        "HIP1",
		"f1.0000.h5":        "HIP2",
		"f2.0000.h5":        "HIP1",
		"f3.0000.h5":        "HIP3",
		"f4.0000.h5":        "HIP1",
		"f5.0000.h5":        "HIP4",
	}
	for i, n := range names {
		touch(t, dir, n)
		_ = i
	}

	lookup := func(path string) (FileInfo, error) {
		name := filepath.Base(path)
		ts := 0.0
		for i, n := range names {
			if n == name {
				ts = float64(i)
			}
		}
		return FileInfo{Timestamp: ts, SourceName: sourceFor[name]}, nil
	}

	entries, err := Detect(dir, lookup)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "f0.0000.h5", filepath.Base(entries[0].Filenames[0]))
}

func TestDetectIgnoresNonFirstScanFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "f0.0001.h5")

	entries, err := Detect(dir, func(string) (FileInfo, error) {
		return FileInfo{}, fmt.Errorf("lookup should not be called")
	})
	require.NoError(t, err)
	assert.Empty(t, entries)
}
