package event

import (
	"github.com/lacker-peti/peti/internal/config"
	"github.com/lacker-peti/peti/internal/hitmap"
)

// Score implements spec §4.7. It returns 0 for any disqualifying
// condition, otherwise the combined SNR.
func Score(e Event, cfg config.ScoreConfig) float64 {
	onHits := e.NonNullHits(OnTargetIndices)
	offHits := e.NonNullHits(OffTargetIndices)

	if len(onHits) < cfg.MinOnHits {
		return 0
	}
	if len(offHits) > cfg.MaxOffHits {
		return 0
	}

	totalColumns := onSpan(onHits)
	if totalColumns <= int64(cfg.MinTotalColumns) || totalColumns > int64(cfg.MaxTotalColumns) {
		return 0
	}

	if notched(e, onHits, cfg.Notches) {
		return 0
	}

	combinedSNR := combinedSNR(onHits, offHits)
	if combinedSNR < cfg.MinCombinedSNR {
		return 0
	}

	return combinedSNR
}

// onSpan is total_columns: the span of the combined non-null on-target
// hits (spec §4.7).
func onSpan(onHits []*hitmap.Hit) int64 {
	if len(onHits) == 0 {
		return 0
	}
	lo, hi := onHits[0].FirstCol, onHits[0].LastCol
	for _, h := range onHits[1:] {
		if h.FirstCol < lo {
			lo = h.FirstCol
		}
		if h.LastCol > hi {
			hi = h.LastCol
		}
	}
	return hi - lo + 1
}

func combinedSNR(onHits, offHits []*hitmap.Hit) float64 {
	var sum float64
	for _, h := range onHits {
		sum += h.SNR
	}
	onMean := sum / float64(len(onHits))

	var maxOff float64 // max(0, max(off.snr)): starts at the floor of 0
	for _, h := range offHits {
		if h.SNR > maxOff {
			maxOff = h.SNR
		}
	}

	return onMean - maxOff
}

// notched reports whether the on-target hits' combined frequency range
// falls fully inside any configured notch filter (spec §4.7, §9 Open
// Questions: "fully inside", not "intersects").
func notched(e Event, onHits []*hitmap.Hit, notches []config.NotchFilter) bool {
	if len(onHits) == 0 || len(notches) == 0 {
		return false
	}

	lo, hi := onHits[0].FirstCol, onHits[0].LastCol
	for _, h := range onHits[1:] {
		if h.FirstCol < lo {
			lo = h.FirstCol
		}
		if h.LastCol > hi {
			hi = h.LastCol
		}
	}

	chunkSize := e.Nchans / e.CoarseChannels
	offset := int64(e.CoarseChannel * chunkSize)
	f1 := e.Fch1 + e.Foff*float64(offset+lo)
	f2 := e.Fch1 + e.Foff*float64(offset+hi)
	loF, hiF := f1, f2
	if loF > hiF {
		loF, hiF = hiF, loF
	}

	for _, n := range notches {
		if loF >= n.LowMHz && hiF <= n.HighMHz {
			return true
		}
	}
	return false
}
