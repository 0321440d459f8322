package event

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lacker-peti/peti/internal/config"
	"github.com/lacker-peti/peti/internal/hitmap"
)

func baseEvent() Event {
	return Event{
		Fch1:           8000,
		Foff:           -1e-6,
		Nchans:         4096,
		CoarseChannels: 4,
		CoarseChannel:  1,
		Hits:           make([]*hitmap.Hit, CadenceSize),
	}
}

func TestScoreZeroWithTooFewOnHits(t *testing.T) {
	ev := baseEvent()
	ev.Hits[0] = &hitmap.Hit{FirstCol: 10, LastCol: 15, SNR: 20}

	cfg := config.DefaultScoreConfig()
	assert.Zero(t, Score(ev, cfg))
}

func TestScoreZeroWithTooManyOffHits(t *testing.T) {
	ev := baseEvent()
	for _, i := range []int{0, 2, 4} {
		ev.Hits[i] = &hitmap.Hit{FirstCol: 10, LastCol: 15, SNR: 20}
	}
	for _, i := range []int{1, 3} {
		ev.Hits[i] = &hitmap.Hit{FirstCol: 10, LastCol: 15, SNR: 20}
	}

	cfg := config.DefaultScoreConfig()
	assert.Zero(t, Score(ev, cfg))
}

func TestScorePositiveForCleanOnTargetEvent(t *testing.T) {
	ev := baseEvent()
	for _, i := range []int{0, 2, 4} {
		ev.Hits[i] = &hitmap.Hit{FirstCol: 10, LastCol: 20, SNR: 15}
	}

	cfg := config.DefaultScoreConfig()
	score := Score(ev, cfg)
	assert.InDelta(t, 15, score, 1e-9)
}

func TestScoreZeroWhenNotched(t *testing.T) {
	ev := baseEvent()
	chunkSize := ev.Nchans / ev.CoarseChannels
	offset := int64(ev.CoarseChannel * chunkSize)
	for _, i := range []int{0, 2, 4} {
		ev.Hits[i] = &hitmap.Hit{FirstCol: 10, LastCol: 20, SNR: 15}
	}

	loF := ev.Fch1 + ev.Foff*float64(offset+10)
	hiF := ev.Fch1 + ev.Foff*float64(offset+20)
	if loF > hiF {
		loF, hiF = hiF, loF
	}

	cfg := config.DefaultScoreConfig()
	cfg.Notches = []config.NotchFilter{{LowMHz: loF - 1, HighMHz: hiF + 1}}

	assert.Zero(t, Score(ev, cfg))
}

func TestOnSpanEmpty(t *testing.T) {
	assert.Zero(t, onSpan(nil))
}
