package scanner

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lacker-peti/peti/internal/array"
	"github.com/lacker-peti/peti/internal/dsp"
	"github.com/lacker-peti/peti/internal/fit"
	"github.com/lacker-peti/peti/internal/hitmap"
	"github.com/lacker-peti/peti/internal/spectro"
)

// Config carries the scanner's tunable constants (spec §4.3, §9 "magic
// numbers"). The zero value is not usable; use DefaultConfig.
type Config struct {
	WindowSize int     // noise-window width for dsp.WindowStats
	Theta1     float64 // single-pixel SNR threshold
	Theta2     float64 // pair SNR threshold
	Margin     int     // hit-window grouping margin
	MinWindows int     // minimum hit windows to keep a group
	MaxGroups  int     // noise cap
	Fit        fit.Config
}

// DefaultConfig returns the spec's default thresholds.
func DefaultConfig() Config {
	return Config{
		WindowSize: 512,
		Theta1:     6,
		Theta2:     4,
		Margin:     10,
		MinWindows: 3,
		MaxGroups:  1000,
		Fit:        fit.DefaultConfig(),
	}
}

// Scanner drives one spectrogram through the kernels, hit extraction
// and fitter of spec §4.1–§4.4 (per-chunk) and §4.5 (per-file).
type Scanner struct {
	Backend array.Backend
	Config  Config
}

// New builds a Scanner over the given backend and configuration.
func New(backend array.Backend, cfg Config) *Scanner {
	return &Scanner{Backend: backend, Config: cfg}
}

// ErrFitDegenerate is returned when the fitter's sigma-clip loop
// detects a mask-growth invariant violation. Per spec §7 this aborts
// the worker, unlike chunk-local errors which are contained.
var ErrFitDegenerate = fit.ErrDegenerate

// ScanChunk runs the full per-chunk pipeline (spec §4.1–§4.4) and
// returns the chunk's hits with absolute (file-level) columns, in
// ascending-first_col order.
func (s *Scanner) ScanChunk(chunk spectro.Chunk) ([]hitmap.Hit, error) {
	cfg := s.Config

	mean, std := dsp.WindowStats(chunk.Data, cfg.WindowSize)
	pixelSNR := dsp.PixelSNR(chunk.Data, mean, std, cfg.WindowSize)
	pairSNR := dsp.PairSNR(chunk.Data, mean, std, cfg.WindowSize)

	windows := ExtractHitWindows(pixelSNR, pairSNR, cfg.Theta1, cfg.Theta2)
	rawHits := GroupHitWindows(windows, cfg.Margin, cfg.MinWindows)
	rawHits = NoiseCap(rawHits, cfg.MaxGroups)

	sort.Slice(rawHits, func(i, j int) bool { return rawHits[i].FirstCol < rawHits[j].FirstCol })

	hits := make([]hitmap.Hit, 0, len(rawHits))
	for _, rh := range rawHits {
		res, err := fit.Fit(s.Backend, chunk.Data, chunk.ID.Offset, rh.FirstCol, rh.LastCol, toFitWindows(rh.Windows), cfg.Fit)
		if err != nil {
			if errors.Is(err, fit.ErrDegenerate) {
				return nil, fmt.Errorf("scanner: chunk %d: %w", chunk.Index, err)
			}
			return nil, fmt.Errorf("scanner: chunk %d: fit hit [%d,%d]: %w", chunk.Index, rh.FirstCol, rh.LastCol, err)
		}

		h := hitmap.Hit{
			CoarseChannel: chunk.Index,
			FirstCol:      int64(chunk.ID.Offset + rh.FirstCol),
			LastCol:       int64(chunk.ID.Offset + rh.LastCol),
		}
		if res.Ok {
			h.DriftRate = res.DriftRate
			h.DriftStart = res.DriftStart
			h.SNR = res.SNR
			h.MSE = res.MSE
			h.Area = res.Area
		} else {
			// Region too wide to fit: recorded as noisy, with no
			// reliable drift/SNR, per spec §4.4 step 1.
			h.Area = float64(windowPixelCount(rh.Windows))
		}
		hits = append(hits, h)
	}

	return hits, nil
}

func windowPixelCount(windows []HitWindow) int {
	n := 0
	for _, w := range windows {
		n += w.LastCol - w.FirstCol + 1
	}
	return n
}

// ScanFile runs ScanChunk over every coarse channel of src in ascending
// order and persists the resulting HitMap to outPath (spec §4.5). It is
// idempotent: if outPath already exists, it returns ErrSkipIdempotent
// without touching the file or re-scanning (spec §4.8, §7).
func (s *Scanner) ScanFile(src spectro.Source, outPath string) error {
	if hitmap.Exists(outPath) {
		return ErrSkipIdempotent
	}

	meta := src.Metadata()
	hm := hitmap.HitMap{
		Metadata: hitmap.Metadata{
			H5Filename:     src.Filename(),
			SourceName:     meta.SourceName,
			Fch1:           meta.Fch1,
			Foff:           meta.Foff,
			Nchans:         meta.Nchans,
			Tstart:         meta.Tstart,
			Tsamp:          meta.Tsamp,
			CoarseChannels: meta.CoarseChannels,
		},
	}
	rows, _ := src.Shape()
	hm.Metadata.Nsamples = rows

	for i := 0; i < src.NumChunks(); i++ {
		chunk, err := spectro.Materialize(src, i)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}

		hits, err := s.ScanChunk(chunk)
		if err != nil {
			return err
		}
		hm.Hits = append(hm.Hits, hits...)
	}

	if err := hitmap.WriteFile(outPath, hm); err != nil {
		return fmt.Errorf("scanner: write hit map: %w", err)
	}
	return nil
}

// ErrSkipIdempotent and ErrMalformedInput are the scanner-facing
// sentinels of spec §7's error-kind design.
var (
	ErrSkipIdempotent = errors.New("scanner: hit map already exists, skipping")
	ErrMalformedInput = errors.New("scanner: malformed spectrogram input")
)
