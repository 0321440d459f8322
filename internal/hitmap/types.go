// Package hitmap implements the Hit/HitMap data model of spec §3 and
// the binary ".hitmap" record container of spec §6.
package hitmap

import "fmt"

// Hit is one fitted (or merged) narrow-band detection within a single
// coarse channel. Columns are absolute frequency-bin positions, matching
// the persisted ".hitmap" schema (spec §6); the scanner converts from
// chunk-relative coordinates when it appends a hit to a HitMap.
//
// A Hit never retains a reference to the Chunk it came from — only the
// numeric fields below survive into a HitMap (spec §9 "cyclic
// references").
type Hit struct {
	CoarseChannel int
	FirstCol      int64
	LastCol       int64
	DriftRate     float64 // bins/row
	DriftStart    float64 // absolute fractional bin
	SNR           float64
	MSE           float64
	Area          float64 // pixel count, stored as float to match schema
}

// Validate checks the per-hit invariants of spec §8.
func (h Hit) Validate(nchans int, chunkSize int) error {
	if h.FirstCol < 0 || h.FirstCol > h.LastCol || h.LastCol >= int64(nchans) {
		return fmt.Errorf("hitmap: hit columns out of range: [%d,%d] nchans=%d", h.FirstCol, h.LastCol, nchans)
	}
	if h.FirstCol/int64(chunkSize) != h.LastCol/int64(chunkSize) {
		return fmt.Errorf("hitmap: hit [%d,%d] spans more than one coarse channel (size %d)", h.FirstCol, h.LastCol, chunkSize)
	}
	return nil
}

// Metadata mirrors spectro.Metadata plus the fields a HitMap adds on
// top (nsamples, the source file name). Kept as an independent type so
// this package does not need to import spectro.
type Metadata struct {
	H5Filename     string
	SourceName     string
	Fch1           float64
	Foff           float64
	Nchans         int
	Tstart         float64
	Tsamp          float64
	Nsamples       int
	CoarseChannels int
}

func (m Metadata) ChunkSize() int { return m.Nchans / m.CoarseChannels }

// HitMap is all hits from one spectrogram together with its metadata
// (spec §3). Hits are kept sorted by absolute FirstCol.
type HitMap struct {
	Metadata Metadata
	Hits     []Hit
}

// Validate checks the HitMap-level invariants of spec §3 and §8.
func (hm HitMap) Validate() error {
	if hm.Metadata.CoarseChannels <= 0 || hm.Metadata.Nchans%hm.Metadata.CoarseChannels != 0 {
		return fmt.Errorf("hitmap: nchans %d not divisible by coarse_channels %d", hm.Metadata.Nchans, hm.Metadata.CoarseChannels)
	}
	chunkSize := hm.Metadata.ChunkSize()
	for i, h := range hm.Hits {
		if err := h.Validate(hm.Metadata.Nchans, chunkSize); err != nil {
			return fmt.Errorf("hitmap: hit %d: %w", i, err)
		}
		if i > 0 && hm.Hits[i-1].FirstCol > h.FirstCol {
			return fmt.Errorf("hitmap: hits not sorted by column at index %d", i)
		}
	}
	return nil
}
