package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestWindowStatsReshapeEquivalence(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rapid.IntRange(1, 4).Draw(t, "rows")
		cols := rapid.IntRange(2, 30).Draw(t, "cols")
		w := rapid.IntRange(2, cols).Draw(t, "w")

		a := NewMatrix(rows, cols)
		for i := range a.Data {
			a.Data[i] = rapid.Float64Range(-10, 10).Draw(t, "v")
		}

		mean, _ := WindowStats(a, w)
		require.Equal(t, cols-w+1, mean.Cols)

		for r := 0; r < rows; r++ {
			row := a.Row(r)
			for i := 0; i < mean.Cols; i++ {
				var sum float64
				for k := 0; k < w; k++ {
					sum += row[i+k]
				}
				want := sum / float64(w)
				assert.InDeltaf(t, want, mean.At(r, i), 1e-9, "row=%d i=%d", r, i)
			}
		}
	})
}

func TestWindowStatsVarianceAndFloor(t *testing.T) {
	rows, cols, w := 1, 100000, 50
	a := NewMatrix(rows, cols)
	// Deterministic pseudo-uniform samples in [0, 1).
	seed := uint64(12345)
	for i := range a.Data {
		seed = seed*6364136223846793005 + 1442695040888963407
		a.Data[i] = float64(seed>>11) / float64(1<<53)
	}

	mean, std := WindowStats(a, w)
	for i := 0; i < mean.Cols; i++ {
		row := a.Row(0)[i : i+w]
		var sum, sumSq float64
		for _, v := range row {
			sum += v
			sumSq += v * v
		}
		m := sum / float64(w)
		wantVar := sumSq/float64(w) - m*m
		gotVar := std.At(0, i) * std.At(0, i)
		if wantVar > MinStdDev*MinStdDev {
			rel := math.Abs(gotVar-wantVar) / wantVar
			assert.Lessf(t, rel, 1e-9, "variance mismatch at %d", i)
		}
		assert.GreaterOrEqual(t, std.At(0, i), MinStdDev)
	}
}

func TestPixelSNRConstantImageIsZero(t *testing.T) {
	rows, cols, w := 3, 40, 8
	a := NewMatrix(rows, cols)
	for i := range a.Data {
		a.Data[i] = 100
	}

	mean, std := WindowStats(a, w)
	snr := PixelSNR(a, mean, std, w)

	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			assert.Zerof(t, snr.At(r, c), "row=%d col=%d", r, c)
		}
	}
}
