package dsp

// PixelSNR computes the single-pixel SNR of spec §4.2, given the
// original array a and the window mean/std matrices produced by
// WindowStats(a, w). The result has the same shape as a; columns where
// neither side's window is available are zero.
func PixelSNR(a, mean, std Matrix, w int) Matrix {
	out := NewMatrix(a.Rows, a.Cols)

	for r := 0; r < a.Rows; r++ {
		row := a.Row(r)
		mRow := mean.Row(r)
		sRow := std.Row(r)
		oRow := out.Row(r)

		for c := 0; c < a.Cols; c++ {
			var left, right float64
			haveLeft, haveRight := false, false

			if li := c - w; c >= w && li >= 0 && li < mean.Cols {
				left = (row[c] - mRow[li]) / sRow[li]
				haveLeft = true
			}
			if ri := c + 1; ri < mean.Cols {
				right = (row[c] - mRow[ri]) / sRow[ri]
				haveRight = true
			}

			switch {
			case haveLeft && haveRight:
				if left > right {
					oRow[c] = left
				} else {
					oRow[c] = right
				}
			case haveLeft:
				oRow[c] = maxf(left, 0)
			case haveRight:
				oRow[c] = maxf(right, 0)
			default:
				oRow[c] = 0
			}
		}
	}

	return out
}

// PairSNR computes the consecutive-pair SNR of spec §4.2: the signal at
// column c is the average of a[r,c] and a[r,c+1], compared against the
// window immediately to the left (ending at c-1) or right (starting at
// c+2), whichever is better, then smeared onto its two member pixels.
func PairSNR(a, mean, std Matrix, w int) Matrix {
	out := NewMatrix(a.Rows, a.Cols)
	if a.Cols < 2 {
		return out
	}

	pair := make([]float64, a.Cols-1) // pair[c] is the score for columns (c, c+1)

	for r := 0; r < a.Rows; r++ {
		row := a.Row(r)
		mRow := mean.Row(r)
		sRow := std.Row(r)

		for c := 0; c < a.Cols-1; c++ {
			signal := (row[c] + row[c+1]) / 2

			var left, right float64
			haveLeft, haveRight := false, false

			if li := c - w; c >= w && li >= 0 && li < mean.Cols {
				left = (signal - mRow[li]) / sRow[li]
				haveLeft = true
			}
			if ri := c + 2; ri < mean.Cols {
				right = (signal - mRow[ri]) / sRow[ri]
				haveRight = true
			}

			switch {
			case haveLeft && haveRight:
				pair[c] = maxf(left, right)
			case haveLeft:
				pair[c] = maxf(left, 0)
			case haveRight:
				pair[c] = maxf(right, 0)
			default:
				pair[c] = 0
			}
		}

		oRow := out.Row(r)
		for c := 0; c < a.Cols; c++ {
			var below, at float64
			if c-1 >= 0 && c-1 < len(pair) {
				below = pair[c-1]
			}
			if c < len(pair) {
				at = pair[c]
			}
			oRow[c] = maxf(below, at)
		}
	}

	return out
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
