package spectro

import (
	"fmt"

	"github.com/lacker-peti/peti/internal/dsp"
)

// MemSource is an in-memory Source, used by tests: the full spectrogram
// lives in one matrix and is sliced into coarse channels on demand.
type MemSource struct {
	filename string
	meta     Metadata
	full     dsp.Matrix
}

var _ Source = (*MemSource)(nil)

// NewMemSource builds a Source over full, which must have
// meta.Nchans columns (meta.CoarseChannels must divide it evenly).
func NewMemSource(filename string, meta Metadata, full dsp.Matrix) (*MemSource, error) {
	if meta.Nchans != full.Cols {
		return nil, fmt.Errorf("spectro: metadata Nchans=%d does not match matrix cols=%d", meta.Nchans, full.Cols)
	}
	if meta.CoarseChannels <= 0 || meta.Nchans%meta.CoarseChannels != 0 {
		return nil, fmt.Errorf("spectro: nchans %d not divisible by coarse_channels %d", meta.Nchans, meta.CoarseChannels)
	}
	return &MemSource{filename: filename, meta: meta, full: full}, nil
}

func (s *MemSource) Filename() string   { return s.filename }
func (s *MemSource) Metadata() Metadata { return s.meta }

func (s *MemSource) Shape() (rows, totalCols int) {
	return s.full.Rows, s.full.Cols
}

func (s *MemSource) NumChunks() int {
	return s.meta.CoarseChannels
}

func (s *MemSource) GetChunk(i int) (dsp.Matrix, error) {
	if i < 0 || i >= s.NumChunks() {
		return dsp.Matrix{}, fmt.Errorf("spectro: chunk index %d out of range [0,%d)", i, s.NumChunks())
	}
	chunkSize := s.meta.ChunkSize()
	out := dsp.NewMatrix(s.full.Rows, chunkSize)
	offset := i * chunkSize
	for r := 0; r < s.full.Rows; r++ {
		src := s.full.Row(r)[offset : offset+chunkSize]
		copy(out.Row(r), src)
	}
	out.MaskDCSpike()
	return out, nil
}
