package cadence

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CadenceSize mirrors event.CadenceSize; kept independent so this
// package does not need to import internal/event.
const CadenceSize = 6

// FileInfo is the file-identifying metadata Detect needs: the
// observation start time and the target source name, both of which
// the spectrogram format stores in its header (spec §6). Detect takes
// a lookup function rather than a concrete reader since this package
// has no HDF5 binding of its own (internal/spectro.Source is the
// reader collaborator).
type FileInfo struct {
	Timestamp  float64 // MJD
	SourceName string
}

// firstFileSuffix is the filename suffix original_source/detect_cadences.py
// keys a cadence's first file off of.
const firstFileSuffix = ".0000.h5"

// Detect scans directory for first-scan spectrogram files and groups
// them into A/B/A/C/A/D cadences, following
// original_source/detect_cadences.py: candidates are taken six at a
// time from the timestamp-sorted list; a window is a cadence only if
// slots 0, 2, 4 share a source name that is absent from slots 1, 3, 5.
// Non-matching windows slide forward one file at a time rather than
// being discarded whole, so a spurious file does not eat six
// candidates' worth of real cadences.
func Detect(directory string, lookup func(filename string) (FileInfo, error)) ([]Entry, error) {
	entries, err := os.ReadDir(directory)
	if err != nil {
		return nil, err
	}

	type candidate struct {
		timestamp float64
		source    string
		filename  string
	}

	var info []candidate
	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), firstFileSuffix) {
			continue
		}
		filename := filepath.Join(directory, de.Name())
		fi, err := lookup(filename)
		if err != nil {
			return nil, err
		}
		info = append(info, candidate{timestamp: fi.Timestamp, source: fi.SourceName, filename: filename})
	}

	sort.Slice(info, func(i, j int) bool {
		if info[i].timestamp != info[j].timestamp {
			return info[i].timestamp < info[j].timestamp
		}
		if info[i].source != info[j].source {
			return info[i].source < info[j].source
		}
		return info[i].filename < info[j].filename
	})

	var cadences []Entry
	for len(info) >= CadenceSize {
		window := info[:CadenceSize]
		target := window[0].source
		offTarget := map[string]bool{window[1].source: true, window[3].source: true, window[5].source: true}
		if target == window[2].source && target == window[4].source && !offTarget[target] {
			filenames := make([]string, CadenceSize)
			for i, c := range window {
				filenames[i] = c.filename
			}
			cadences = append(cadences, Entry{Filenames: filenames})
			info = info[CadenceSize:]
		} else {
			info = info[1:]
		}
	}

	return cadences, nil
}
