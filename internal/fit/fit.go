// Package fit implements the iterative sigma-clip + least-squares line
// fitter of spec §4.4: given a hit's hit-windows and the chunk they came
// from, it estimates a noise floor, fits a drifting line through the
// remaining signal pixels, and reports drift rate, origin, area, MSE and
// SNR.
package fit

import (
	"fmt"
	"math"

	"github.com/lacker-peti/peti/internal/array"
	"github.com/lacker-peti/peti/internal/dsp"
)

// Config carries the fitter's tunable constants (spec §4.4, §9 "magic
// numbers ... exposed as configuration with the given defaults").
type Config struct {
	Margin     int     // padding added around the hit's column span
	MaxColumns int     // skip fitting if the padded region is wider than this
	Alpha      float64 // sigma-clip threshold multiplier
}

// DefaultConfig returns the spec's default fitter constants.
func DefaultConfig() Config {
	return Config{Margin: 10, MaxColumns: 1000, Alpha: 3.5}
}

// Window is the chunk-relative row/column span of one hit window, the
// fitter's view of scanner.HitWindow (kept independent to avoid an
// import cycle between scanner and fit).
type Window struct {
	Row      int
	FirstCol int
	LastCol  int
}

// Result is the fit output of spec §4.4. Ok is false when the hit was
// too wide to fit (treated as noisy, not an error).
type Result struct {
	Ok         bool
	DriftRate  float64
	DriftStart float64
	Area       float64
	MSE        float64
	SNR        float64
}

// ErrDegenerate signals the sigma-clip loop's mask grew instead of
// shrinking, an invariant violation (spec §4.4 step 3d, §7
// FitDegenerate) rather than a recoverable condition.
var ErrDegenerate = fmt.Errorf("fit: sigma-clip mask grew, invariant violated")

// Fit runs the sigma-clip + least-squares procedure of spec §4.4 for one
// hit. chunk is the full coarse-channel matrix; chunkOffsetInFile is the
// chunk's absolute starting column in the source file (spectro.SourceID
// .Offset); windows are the hit's chunk-relative hit windows, spanning
// firstCol..lastCol.
func Fit(backend array.Backend, chunk dsp.Matrix, chunkOffsetInFile int, firstCol, lastCol int, windows []Window, cfg Config) (Result, error) {
	regionStart := firstCol - cfg.Margin
	if regionStart < 0 {
		regionStart = 0
	}
	regionEnd := lastCol + cfg.Margin
	if regionEnd >= chunk.Cols {
		regionEnd = chunk.Cols - 1
	}
	width := regionEnd - regionStart + 1

	if width > cfg.MaxColumns {
		return Result{Ok: false}, nil
	}

	rows := chunk.Rows
	region := make([][]float64, rows)
	mask := make([][]bool, rows) // true = counted as noise
	for r := 0; r < rows; r++ {
		row := chunk.Row(r)[regionStart : regionEnd+1]
		cp := backend.Copy(row)
		region[r] = cp
		m := make([]bool, width)
		for i := range m {
			m[i] = true
		}
		mask[r] = m
	}

	// Exclude the strongest pixel per hit window's row from the initial
	// noise estimate (spec §4.4 step 2).
	for _, w := range windows {
		if w.Row < 0 || w.Row >= rows {
			continue
		}
		idx := backend.ArgMax(region[w.Row])
		if idx >= 0 {
			mask[w.Row][idx] = false
		}
	}

	mu, sigma, err := clipToConvergence(backend, region, mask, cfg.Alpha)
	if err != nil {
		return Result{}, err
	}

	var rIdx, cIdx []float64
	for r := 0; r < rows; r++ {
		for i := 0; i < width; i++ {
			if !mask[r][i] {
				rIdx = append(rIdx, float64(r))
				cIdx = append(cIdx, float64(i))
			}
		}
	}

	slope, intercept, rss := backend.LeastSquares(rIdx, cIdx)
	area := float64(len(rIdx))

	var mse float64
	if area > 0 {
		mse = rss / area
	}

	rowMaxima := make([]float64, rows)
	for r := 0; r < rows; r++ {
		rowMaxima[r] = region[r][backend.ArgMax(region[r])]
	}
	snr := (mean(rowMaxima) - mu) / sigma

	return Result{
		Ok:         true,
		DriftRate:  slope,
		DriftStart: float64(regionStart+chunkOffsetInFile) + intercept,
		Area:       area,
		MSE:        mse,
		SNR:        snr,
	}, nil
}

// clipToConvergence repeatedly tightens mask (true entries only) until
// it stops shrinking, returning the final noise mean and std-dev.
func clipToConvergence(backend array.Backend, region [][]float64, mask [][]bool, alpha float64) (mu, sigma float64, err error) {
	prevCount := countTrue(mask)

	for {
		mu, sigma = maskedMeanStd(region, mask)
		threshold := mu + alpha*sigma

		next := make([][]bool, len(mask))
		for r := range mask {
			row := make([]bool, len(mask[r]))
			for i := range mask[r] {
				row[i] = mask[r][i] && region[r][i] < threshold
			}
			next[r] = row
		}

		count := countTrue(next)
		if count > prevCount {
			return 0, 0, ErrDegenerate
		}
		if count == prevCount {
			return mu, sigma, nil
		}
		mask = next
		prevCount = count
	}
}

func countTrue(mask [][]bool) int {
	n := 0
	for _, row := range mask {
		for _, v := range row {
			if v {
				n++
			}
		}
	}
	return n
}

func maskedMeanStd(region [][]float64, mask [][]bool) (mean, std float64) {
	var sum, sumSq, n float64
	for r := range region {
		for i, v := range region[r] {
			if mask[r][i] {
				sum += v
				sumSq += v * v
				n++
			}
		}
	}
	if n == 0 {
		return 0, 0
	}
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	std = math.Sqrt(variance)
	if std < dsp.MinStdDev {
		std = dsp.MinStdDev
	}
	return mean, std
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
