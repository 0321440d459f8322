// Package plotutil renders a PNG visualization of an Event: the six
// cadence spectrograms stacked vertically around the event's column
// range, with the fitted drift line overlaid on hit rows. Grounded on
// original_source/plot_event.py's make_event_plot (one row of subplots
// per cadence slot, y-axis labeled with each slot's start time).
package plotutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/lacker-peti/peti/internal/dsp"
	"github.com/lacker-peti/peti/internal/event"
	"github.com/lacker-peti/peti/internal/hitmap"
)

// marginCols pads the event's column span on each side so the drift is
// visible entering and leaving the displayed region (original_source's
// Chunk.display_region).
const marginCols = 20

const labelWidth = 90

// RenderEvent draws ev over chunks, one matrix per populated cadence
// slot in ev.Hits (chunks[i] corresponds to ev.Filenames[i]). A nil
// entry renders as a blank row.
func RenderEvent(ev event.Event, chunks [event.CadenceSize]*dsp.Matrix, style Style) (image.Image, error) {
	lo, hi := columnRange(ev)
	width := int(hi-lo) + 1
	if width <= 0 {
		return nil, fmt.Errorf("plotutil: event has no column span")
	}

	rowHeights := make([]int, event.CadenceSize)
	totalRows := 0
	for i, m := range chunks {
		if m != nil {
			rowHeights[i] = m.Rows
		} else {
			rowHeights[i] = 1
		}
		totalRows += rowHeights[i]
	}

	imgWidth := labelWidth + width*style.PixelSize
	imgHeight := totalRows * style.PixelSize
	img := image.NewRGBA(image.Rect(0, 0, imgWidth, imgHeight))
	draw.Draw(img, img.Bounds(), image.Black, image.Point{}, draw.Src)

	y := 0
	for i, m := range chunks {
		h := rowHeights[i]
		if m != nil {
			drawRow(img, *m, lo, hi, y, style)
		}
		if hit := ev.Hits[i]; hit != nil {
			drawDriftLine(img, *hit, lo, hi, y, h, style)
		}
		drawLabel(img, y*style.PixelSize+h*style.PixelSize/2, fmt.Sprintf("slot %d", i))
		y += h
	}

	return img, nil
}

// WritePNG encodes img to w.
func WritePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func columnRange(ev event.Event) (int64, int64) {
	var lo, hi int64 = -1, -1
	for _, h := range ev.Hits {
		if h == nil {
			continue
		}
		if lo == -1 || h.FirstCol < lo {
			lo = h.FirstCol
		}
		if hi == -1 || h.LastCol > hi {
			hi = h.LastCol
		}
	}
	if lo == -1 {
		return 0, 0
	}
	lo -= marginCols
	if lo < 0 {
		lo = 0
	}
	return lo, hi + marginCols
}

func drawRow(img *image.RGBA, m dsp.Matrix, lo, hi int64, yOffsetRows int, style Style) {
	minV, maxV := m.At(0, 0), m.At(0, 0)
	for r := 0; r < m.Rows; r++ {
		for c := int(lo); c <= int(hi) && c < m.Cols; c++ {
			if c < 0 {
				continue
			}
			v := m.At(r, c)
			if v < minV {
				minV = v
			}
			if v > maxV {
				maxV = v
			}
		}
	}
	span := maxV - minV
	if span == 0 {
		span = 1
	}

	for r := 0; r < m.Rows; r++ {
		for c := int(lo); c <= int(hi); c++ {
			var t float64
			if c >= 0 && c < m.Cols {
				t = (m.At(r, c) - minV) / span
			}
			px := labelWidth + (c-int(lo))*style.PixelSize
			py := (yOffsetRows+r)*style.PixelSize
			col := style.at(t)
			draw.Draw(img, image.Rect(px, py, px+style.PixelSize, py+style.PixelSize),
				&image.Uniform{C: col}, image.Point{}, draw.Src)
		}
	}
}

// drawDriftLine overlays the fitted line DriftStart + DriftRate*row
// (spec §4.4) as a single bright pixel per row, the Go equivalent of
// matplotlib's line artist in original_source/plot_event.py.
func drawDriftLine(img *image.RGBA, h hitmap.Hit, lo, hi int64, yOffsetRows, rows int, style Style) {
	if h.DriftRate == 0 && h.DriftStart == 0 {
		return
	}
	marker := color.RGBA{R: 255, G: 0, B: 0, A: 255}
	for r := 0; r < rows; r++ {
		col := h.DriftStart + h.DriftRate*float64(r)
		if col < float64(lo) || col > float64(hi) {
			continue
		}
		px := labelWidth + int(col-float64(lo))*style.PixelSize
		py := (yOffsetRows + r) * style.PixelSize
		draw.Draw(img, image.Rect(px, py, px+style.PixelSize, py+style.PixelSize),
			&image.Uniform{C: marker}, image.Point{}, draw.Src)
	}
}

func drawLabel(img *image.RGBA, y int, text string) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.White,
		Face: basicfont.Face7x13,
		Dot:  fixed.P(2, y),
	}
	d.DrawString(text)
}
