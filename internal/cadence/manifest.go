// Package cadence implements the cadence manifest schema of spec §6
// ("cadence manifest") and cadence detection over a flat directory of
// spectrogram files, supplementing the distillation with the behavior
// of original_source/detect_cadences.py.
package cadence

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
)

// Entry is one line of a cadences.json manifest: the six filenames of
// an A/B/A/C/A/D cadence, in order.
type Entry struct {
	Filenames []string `json:"filenames"`
}

// LoadManifest reads an NDJSON cadence manifest (spec §6: one JSON
// object per line, each holding a "filenames" list).
func LoadManifest(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cadence: open %s: %w", path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("cadence: decode %s: %w", path, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cadence: read %s: %w", path, err)
	}
	return entries, nil
}

// WriteManifest writes entries to path as NDJSON, one cadence per line,
// matching the layout original_source/detect_cadences.py produces.
func WriteManifest(path string, entries []Entry) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cadence: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("cadence: encode %s: %w", path, err)
		}
	}
	return w.Flush()
}
