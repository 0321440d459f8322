// Package event implements the cross-cadence event assembler of spec
// §4.6, its scoring (§4.7), and the ".events" serialization of §6.
package event

import "github.com/lacker-peti/peti/internal/hitmap"

// Event is a cross-spectrogram grouping of hits in one coarse channel,
// ranked as a candidate signal (spec §3). Hits is indexed by cadence
// position (0..len(Filenames)-1); a nil entry means no hit contributed
// from that spectrogram. Hit column fields here are chunk-relative, per
// the ".events" schema of spec §6 (unlike the absolute columns stored
// in a HitMap).
type Event struct {
	Filenames      []string
	Tstarts        []float64
	SourceName     string
	Fch1           float64
	Foff           float64
	Nchans         int
	CoarseChannels int
	CoarseChannel  int
	Hits           []*hitmap.Hit
	Score          float64

	// firstCol is the group's absolute first column, kept only to
	// implement the total ordering of spec §5 ("breaking ties by
	// ascending first_col"); it is not part of the serialized schema.
	firstCol int64
}

// CadenceSize is the number of spectrograms in one cadence (A B A C A D).
const CadenceSize = 6

// OnTargetIndices and OffTargetIndices are the cadence slot roles of
// spec §4.7, for the standard 6-element A/B/A/C/A/D pattern.
var (
	OnTargetIndices  = []int{0, 2, 4}
	OffTargetIndices = []int{1, 3, 5}
)

// NonNullHits returns the non-null hits at the given cadence indices.
func (e Event) NonNullHits(indices []int) []*hitmap.Hit {
	var out []*hitmap.Hit
	for _, i := range indices {
		if i < len(e.Hits) && e.Hits[i] != nil {
			out = append(out, e.Hits[i])
		}
	}
	return out
}

// AbsoluteStartColumn returns the event's absolute (file-level) first
// column: the coarse channel's offset plus the lowest chunk-relative
// FirstCol among its non-null hits (spec §6, the plot path convention's
// "absolute_start_column"). It is recomputed from the persisted,
// chunk-relative Hits fields rather than relying on firstCol, so it
// still holds after a round trip through ReadFile.
func (e Event) AbsoluteStartColumn() int64 {
	var chunkSize int64
	if e.CoarseChannels > 0 {
		chunkSize = int64(e.Nchans / e.CoarseChannels)
	}
	offset := int64(e.CoarseChannel) * chunkSize

	var lo int64 = -1
	for _, h := range e.Hits {
		if h == nil {
			continue
		}
		if lo == -1 || h.FirstCol < lo {
			lo = h.FirstCol
		}
	}
	if lo == -1 {
		return offset
	}
	return offset + lo
}
