// Package spectro describes the spectrogram-source collaborator (spec
// §6) and the Chunk/materialization model (spec §3, §9 "lazily
// populated instance fields"). It does not implement HDF5 itself — no
// HDF5 binding appears anywhere in the example pack to ground one on —
// but it defines the interface a real reader plugs into, plus an
// in-memory reference implementation (MemSource) used by the tests.
package spectro

import (
	"fmt"

	"github.com/lacker-peti/peti/internal/dsp"
)

// Metadata is the fixed set of spectrogram attributes the pipeline
// needs, copied verbatim into every HitMap and Event (spec §3, §6).
type Metadata struct {
	Fch1           float64 // MHz, frequency of channel 1
	Foff           float64 // MHz/bin, may be negative
	Nchans         int
	Tstart         float64 // MJD
	Tsamp          float64 // seconds
	SourceName     string
	CoarseChannels int
}

// ChunkSize returns the width, in frequency bins, of one coarse channel.
// Nchans must divide evenly by CoarseChannels (spec §3 invariant).
func (m Metadata) ChunkSize() int {
	return m.Nchans / m.CoarseChannels
}

// FreqAtColumn converts an absolute frequency-bin column to MHz.
func (m Metadata) FreqAtColumn(col float64) float64 {
	return m.Fch1 + m.Foff*col
}

// Source is the external spectrogram collaborator (spec §6): something
// that can report its shape, its metadata, and materialize one coarse
// channel at a time.
type Source interface {
	Filename() string
	Metadata() Metadata
	Shape() (rows, totalCols int)
	NumChunks() int
	// GetChunk returns a rows x chunk_size matrix for coarse channel i,
	// with the center column already DC-spike-masked.
	GetChunk(i int) (dsp.Matrix, error)
}

// SourceID identifies a materialized chunk without retaining a
// reference to its Source or array data, breaking the hit/chunk/file
// reference cycle described in spec §9.
type SourceID struct {
	Filename string
	Offset   int // absolute frequency-bin offset of the chunk's first column
}

func (id SourceID) String() string {
	return fmt.Sprintf("%s@%d", id.Filename, id.Offset)
}

// Chunk is a materialized coarse channel: the descriptor (SourceID,
// metadata) plus the loaded array. It is the "materialized object" of
// spec §9's two-phase construction note; HitMap only ever persists the
// SourceID-shaped descriptor fields of a Hit, never a Chunk.
type Chunk struct {
	ID       SourceID
	Index    int // coarse channel index within the file
	Metadata Metadata
	Data     dsp.Matrix
}

// Materialize loads coarse channel i of src into a Chunk, masking the DC
// spike per the Chunk invariant in spec §3.
func Materialize(src Source, i int) (Chunk, error) {
	m := src.Metadata()
	data, err := src.GetChunk(i)
	if err != nil {
		return Chunk{}, fmt.Errorf("spectro: get chunk %d of %s: %w", i, src.Filename(), err)
	}
	data.MaskDCSpike()

	chunkSize := m.ChunkSize()
	return Chunk{
		ID:       SourceID{Filename: src.Filename(), Offset: i * chunkSize},
		Index:    i,
		Metadata: m,
		Data:     data,
	}, nil
}

// Cache is an external, process-local mapping from SourceID to a loaded
// Chunk, used to loan an already-materialized chunk to consecutive
// events during plot rendering (spec §3 Ownership, §5 shared-resource
// policy). It is not safe for concurrent use.
type Cache struct {
	entries map[SourceID]Chunk
}

func NewCache() *Cache {
	return &Cache{entries: make(map[SourceID]Chunk)}
}

// Loan returns the cached chunk for id if present.
func (c *Cache) Loan(id SourceID) (Chunk, bool) {
	ch, ok := c.entries[id]
	return ch, ok
}

// Put stores ch, replacing any previously cached chunk for the same id.
// The cache holds at most one entry: a second chunk is only ever live
// transiently while a new one displaces the old (spec §5).
func (c *Cache) Put(ch Chunk) {
	c.entries = map[SourceID]Chunk{ch.ID: ch}
}
