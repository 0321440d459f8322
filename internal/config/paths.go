package config

import (
	"strconv"
	"strings"
)

// Paths implements the path-rewriting convention of spec §6 ("path
// conventions"): a generated file's path mirrors its source h5 file's
// path below H5Root, rooted under the relevant output directory
// instead, with the suffix swapped. Grounded on original_source's
// config.make_relative_filename/make_hit_map_filename/make_plot_filename.
type Paths struct {
	H5Root     string
	HitMapRoot string
	EventRoot  string
	ImageRoot  string
}

// FromWorkerConfig builds a Paths from the roots in a WorkerConfig.
func FromWorkerConfig(cfg WorkerConfig) Paths {
	return Paths{H5Root: cfg.H5Root, HitMapRoot: cfg.HitMapRoot, EventRoot: cfg.EventRoot}
}

func relativeFilename(h5Filename, rootDir, newSuffix, h5Root string) string {
	rel := strings.TrimPrefix(h5Filename, h5Root)
	rel = strings.TrimSuffix(rel, ".h5")
	return rootDir + rel + newSuffix
}

// HitMapFilename returns the ".hitmap" path for an h5 file.
func (p Paths) HitMapFilename(h5Filename string) string {
	return relativeFilename(h5Filename, p.HitMapRoot, ".hitmap", p.H5Root)
}

// EventsFilename returns the ".events" path for a cadence's first file.
func (p Paths) EventsFilename(firstH5Filename string) string {
	return relativeFilename(firstH5Filename, p.EventRoot, ".events", p.H5Root)
}

// PlotFilename returns the PNG path for an event built from
// firstH5Filename, suffixed with its absolute start column (spec §6:
// "suffix .<absolute_start_column>.png"), as returned by
// event.Event.AbsoluteStartColumn.
func (p Paths) PlotFilename(firstH5Filename string, absoluteStartColumn int64) string {
	suffix := "." + strconv.FormatInt(absoluteStartColumn, 10) + ".png"
	return relativeFilename(firstH5Filename, p.ImageRoot, suffix, p.H5Root)
}
