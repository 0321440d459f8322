package scanner

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lacker-peti/peti/internal/array"
	"github.com/lacker-peti/peti/internal/dsp"
	"github.com/lacker-peti/peti/internal/spectro"
)

// rngGaussian is a tiny deterministic normal-variate generator (Box-Muller
// over a linear congruential stream), used so the end-to-end scenarios of
// spec §8 are reproducible without a third-party RNG dependency.
type rngGaussian struct {
	state uint64
}

func (g *rngGaussian) uniform() float64 {
	g.state = g.state*6364136223846793005 + 1442695040888963407
	return float64(g.state>>11) / float64(1<<53)
}

func (g *rngGaussian) next(mean, std float64) float64 {
	u1, u2 := g.uniform(), g.uniform()
	if u1 < 1e-12 {
		u1 = 1e-12
	}
	z := math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
	return mean + std*z
}

func noiseChunk(rows, cols int, mean, std float64, seed uint64) dsp.Matrix {
	g := &rngGaussian{state: seed}
	m := dsp.NewMatrix(rows, cols)
	for i := range m.Data {
		m.Data[i] = g.next(mean, std)
	}
	return m
}

func newScanner() *Scanner {
	return New(array.CPU{}, DefaultConfig())
}

func TestHitGroupingMarginRule(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		margin := rapid.IntRange(0, 20).Draw(t, "margin")
		gap := rapid.IntRange(0, 40).Draw(t, "gap")

		a := HitWindow{Row: 0, FirstCol: 100, LastCol: 120}
		b := HitWindow{Row: 1, FirstCol: a.LastCol + gap, LastCol: a.LastCol + gap + 5}
		c := HitWindow{Row: 2, FirstCol: b.FirstCol + 1, LastCol: b.LastCol + 1}

		groups := GroupHitWindows([]HitWindow{a, b, c}, margin, 1)

		sameGroup := false
		for _, g := range groups {
			hasA, hasB := false, false
			for _, w := range g.Windows {
				if w == a {
					hasA = true
				}
				if w == b {
					hasB = true
				}
			}
			if hasA && hasB {
				sameGroup = true
			}
		}

		if gap <= margin {
			assert.True(t, sameGroup, "gap=%d margin=%d should merge", gap, margin)
		} else {
			assert.False(t, sameGroup, "gap=%d margin=%d should not merge", gap, margin)
		}
	})
}

// These scenarios follow spec §8's concrete end-to-end cases; the chunk
// width is reduced from the spec's literal 2^20 bins to keep the test
// suite fast, the window size scaled down to match.

func smallScanner() *Scanner {
	cfg := DefaultConfig()
	cfg.WindowSize = 64
	return New(array.CPU{}, cfg)
}

func TestEmptyNoiseFloorYieldsNoHits(t *testing.T) {
	chunkData := noiseChunk(16, 4096, 100, 5, 42)
	chunkData.MaskDCSpike()

	s := smallScanner()
	hits, err := s.ScanChunk(spectro.Chunk{Index: 0, Data: chunkData})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSingleNonDriftingTone(t *testing.T) {
	rows, cols := 16, 4096
	chunkData := noiseChunk(rows, cols, 100, 5, 7)
	col := 2048
	for r := 0; r < rows; r++ {
		chunkData.Set(r, col, 100+200)
	}
	chunkData.MaskDCSpike()

	s := smallScanner()
	hits, err := s.ScanChunk(spectro.Chunk{Index: 0, Data: chunkData})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	h := hits[0]
	assert.Equal(t, int64(col), h.FirstCol)
	assert.Equal(t, int64(col), h.LastCol)
	assert.InDelta(t, 0, h.DriftRate, 0.05)
	assert.GreaterOrEqual(t, h.Area, 16.0)
	assert.GreaterOrEqual(t, h.SNR, 10.0)
}

func TestLinearDrifter(t *testing.T) {
	rows, cols := 16, 4096
	chunkData := noiseChunk(rows, cols, 100, 5, 99)
	rate := 0.5
	startCol := 2000
	for r := 0; r < rows; r++ {
		col := startCol + int(rate*float64(r))
		chunkData.Set(r, col, 100+200)
	}
	chunkData.MaskDCSpike()

	s := smallScanner()
	hits, err := s.ScanChunk(spectro.Chunk{Index: 0, Data: chunkData})
	require.NoError(t, err)
	require.Len(t, hits, 1)

	assert.InDelta(t, rate, hits[0].DriftRate, 0.1)
}
