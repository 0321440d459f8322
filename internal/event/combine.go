package event

import "sort"

// CombineEventStreams merges several already-ranked ".events" streams
// (typically one per worker or one per night's run) into a single
// stream under the same total order as Assemble (spec §5: descending
// score, ties broken by ascending absolute start column), supplementing
// the per-cadence ranking of Assemble with the corpus-wide combine step
// of original_source's combine_cadences.py. The tie-break uses
// AbsoluteStartColumn rather than the unexported firstCol field, since
// streams read back from ".events" files (the common case) never
// carry firstCol across the round trip.
func CombineEventStreams(streams ...[]Event) []Event {
	var total int
	for _, s := range streams {
		total += len(s)
	}
	combined := make([]Event, 0, total)
	for _, s := range streams {
		combined = append(combined, s...)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].Score != combined[j].Score {
			return combined[i].Score > combined[j].Score
		}
		return combined[i].AbsoluteStartColumn() < combined[j].AbsoluteStartColumn()
	})
	return combined
}
