package dsp

import "math"

// MinStdDev is the floor applied to every computed window standard
// deviation, so that division by it downstream never produces an
// infinity (spec §4.1).
const MinStdDev = 0.01

// WindowStats computes, for every row of a independently, the sliding
// window mean and population standard deviation along the column axis
// with window size w. Output matrices have a.Cols-w+1 columns.
//
// Both are computed via a prefix-sum of a and of a^2 and a shifted
// subtraction, avoiding an O(rows*cols*w) inner loop.
func WindowStats(a Matrix, w int) (mean, std Matrix) {
	if w < 2 {
		panic("dsp: window size must be >= 2")
	}
	outCols := a.Cols - w + 1
	if outCols < 1 {
		return Matrix{Rows: a.Rows, Cols: 0}, Matrix{Rows: a.Rows, Cols: 0}
	}

	mean = NewMatrix(a.Rows, outCols)
	std = NewMatrix(a.Rows, outCols)

	prefix := make([]float64, a.Cols+1)
	prefixSq := make([]float64, a.Cols+1)

	for r := 0; r < a.Rows; r++ {
		row := a.Row(r)

		prefix[0] = 0
		prefixSq[0] = 0
		for c := 0; c < a.Cols; c++ {
			v := row[c]
			prefix[c+1] = prefix[c] + v
			prefixSq[c+1] = prefixSq[c] + v*v
		}

		mRow := mean.Row(r)
		sRow := std.Row(r)
		winF := float64(w)
		for i := 0; i < outCols; i++ {
			sum := prefix[i+w] - prefix[i]
			sumSq := prefixSq[i+w] - prefixSq[i]

			m := sum / winF
			variance := sumSq/winF - m*m
			if variance < 0 {
				// Can only happen from floating point cancellation.
				variance = 0
			}

			mRow[i] = m
			d := math.Sqrt(variance)
			if d < MinStdDev {
				d = MinStdDev
			}
			sRow[i] = d
		}
	}

	return mean, std
}
