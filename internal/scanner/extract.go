// Package scanner implements the per-coarse-channel detection driver of
// spec §4.3 and §4.5: hit-window extraction, grouping by proximity, the
// noise cap, and the per-chunk scan loop that ties the dsp kernels and
// the fitter together into hits.
package scanner

import (
	"sort"

	"github.com/lacker-peti/peti/internal/dsp"
	"github.com/lacker-peti/peti/internal/fit"
)

// HitWindow is a single-row horizontal run of above-threshold pixels,
// chunk-relative (spec §3).
type HitWindow struct {
	Row      int
	FirstCol int
	LastCol  int
}

// ExtractHitWindows thresholds pixelSNR and pairSNR and merges adjacent
// same-row above-threshold pixels into hit windows (spec §4.3).
func ExtractHitWindows(pixelSNR, pairSNR dsp.Matrix, theta1, theta2 float64) []HitWindow {
	var windows []HitWindow

	for r := 0; r < pixelSNR.Rows; r++ {
		pRow := pixelSNR.Row(r)
		qRow := pairSNR.Row(r)

		inRun := false
		runStart := 0
		for c := 0; c < pixelSNR.Cols; c++ {
			hit := pRow[c] > theta1 || qRow[c] > theta2
			switch {
			case hit && !inRun:
				inRun = true
				runStart = c
			case !hit && inRun:
				inRun = false
				windows = append(windows, HitWindow{Row: r, FirstCol: runStart, LastCol: c - 1})
			}
		}
		if inRun {
			windows = append(windows, HitWindow{Row: r, FirstCol: runStart, LastCol: pixelSNR.Cols - 1})
		}
	}

	return windows
}

// RawHit is a group of hit windows likely belonging to the same
// narrow-band signal, before fitting (spec §3 "Hit", built by grouping).
type RawHit struct {
	FirstCol int
	LastCol  int
	Windows  []HitWindow
}

// GroupHitWindows sorts windows by FirstCol and merges windows within
// margin of the running group into a single RawHit (spec §4.3), keeping
// only groups with at least minWindows members.
func GroupHitWindows(windows []HitWindow, margin, minWindows int) []RawHit {
	sorted := append([]HitWindow(nil), windows...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].FirstCol < sorted[j].FirstCol })

	var groups []RawHit
	var pending *RawHit

	flush := func() {
		if pending != nil && len(pending.Windows) >= minWindows {
			groups = append(groups, *pending)
		}
		pending = nil
	}

	for _, w := range sorted {
		if pending == nil {
			pending = &RawHit{FirstCol: w.FirstCol, LastCol: w.LastCol, Windows: []HitWindow{w}}
			continue
		}
		if pending.LastCol+margin >= w.FirstCol {
			pending.Windows = append(pending.Windows, w)
			if w.LastCol > pending.LastCol {
				pending.LastCol = w.LastCol
			}
		} else {
			flush()
			pending = &RawHit{FirstCol: w.FirstCol, LastCol: w.LastCol, Windows: []HitWindow{w}}
		}
	}
	flush()

	return groups
}

// NoiseCap enforces the spec §4.3 cap: while more than maxGroups hits
// remain, successively merge the closest-neighboring pair (by the gap
// between one hit's LastCol and the next hit's FirstCol) until the count
// is at most maxGroups. Merged hits carry no fit data yet, since they
// are merged before fitting runs.
func NoiseCap(hits []RawHit, maxGroups int) []RawHit {
	if len(hits) <= maxGroups {
		return hits
	}

	merged := append([]RawHit(nil), hits...)
	for len(merged) > maxGroups {
		bestIdx := 0
		bestGap := merged[1].FirstCol - merged[0].LastCol
		for i := 1; i < len(merged)-1; i++ {
			gap := merged[i+1].FirstCol - merged[i].LastCol
			if gap < bestGap {
				bestGap = gap
				bestIdx = i
			}
		}

		a, b := merged[bestIdx], merged[bestIdx+1]
		joined := RawHit{
			FirstCol: minInt(a.FirstCol, b.FirstCol),
			LastCol:  maxInt(a.LastCol, b.LastCol),
			Windows:  append(append([]HitWindow(nil), a.Windows...), b.Windows...),
		}

		next := make([]RawHit, 0, len(merged)-1)
		next = append(next, merged[:bestIdx]...)
		next = append(next, joined)
		next = append(next, merged[bestIdx+2:]...)
		merged = next
	}

	return merged
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func toFitWindows(windows []HitWindow) []fit.Window {
	out := make([]fit.Window, len(windows))
	for i, w := range windows {
		out[i] = fit.Window{Row: w.Row, FirstCol: w.FirstCol, LastCol: w.LastCol}
	}
	return out
}
