package plotutil

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"
)

// Style configures the cosmetic knobs of event plots: colormap
// endpoints and pixel scale. It has no bearing on detection semantics,
// only how a rendered PNG looks, so it is read from an optional YAML
// sidecar rather than the JSON worker config (spec §9.4/§11, grounded
// on original_source/plot.py's imshow colormap choice).
type Style struct {
	LowColor  [3]uint8 `yaml:"low_color"`
	HighColor [3]uint8 `yaml:"high_color"`
	PixelSize int      `yaml:"pixel_size"`
}

// DefaultStyle approximates matplotlib's "viridis" endpoints (dark
// purple to yellow) at 1 screen pixel per frequency bin.
func DefaultStyle() Style {
	return Style{
		LowColor:  [3]uint8{68, 1, 84},
		HighColor: [3]uint8{253, 231, 37},
		PixelSize: 1,
	}
}

// LoadStyle reads a YAML style sidecar, falling back to DefaultStyle
// if path is empty or does not exist.
func LoadStyle(path string) (Style, error) {
	style := DefaultStyle()
	if path == "" {
		return style, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return style, nil
	}
	if err != nil {
		return Style{}, fmt.Errorf("plotutil: read style %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &style); err != nil {
		return Style{}, fmt.Errorf("plotutil: decode style %s: %w", path, err)
	}
	return style, nil
}

// at returns the interpolated color for a normalized intensity in [0,1].
func (s Style) at(t float64) color.RGBA {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + t*(float64(b)-float64(a)))
	}
	return color.RGBA{
		R: lerp(s.LowColor[0], s.HighColor[0]),
		G: lerp(s.LowColor[1], s.HighColor[1]),
		B: lerp(s.LowColor[2], s.HighColor[2]),
		A: 255,
	}
}
