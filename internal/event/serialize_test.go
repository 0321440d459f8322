package event

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacker-peti/peti/internal/hitmap"
)

func sampleEvents() []Event {
	hit := &hitmap.Hit{CoarseChannel: 2, FirstCol: 40, LastCol: 60, DriftRate: 0.3, DriftStart: 41.5, SNR: 12.5, MSE: 0.1, Area: 20}
	ev := Event{
		Filenames:      []string{"a.h5", "b.h5", "a.h5", "c.h5", "a.h5", "d.h5"},
		Tstarts:        []float64{1, 2, 3, 4, 5, 6},
		SourceName:     "HIP1",
		Fch1:           8000,
		Foff:           -1e-6,
		Nchans:         4096,
		CoarseChannels: 4,
		CoarseChannel:  2,
		Score:          7.5,
		Hits:           []*hitmap.Hit{hit, nil, hit, nil, nil, nil},
	}
	return []Event{ev}
}

func TestEventFileRoundTrip(t *testing.T) {
	events := sampleEvents()
	path := filepath.Join(t.TempDir(), "cadence.events")

	require.NoError(t, WriteFile(path, events))
	assert.True(t, Exists(path))

	got, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	want := events[0]
	gotEv := got[0]
	assert.Equal(t, want.Filenames, gotEv.Filenames)
	assert.Equal(t, want.Tstarts, gotEv.Tstarts)
	assert.Equal(t, want.SourceName, gotEv.SourceName)
	assert.InDelta(t, want.Fch1, gotEv.Fch1, 1e-9)
	assert.InDelta(t, want.Foff, gotEv.Foff, 1e-12)
	assert.Equal(t, want.Nchans, gotEv.Nchans)
	assert.Equal(t, want.CoarseChannels, gotEv.CoarseChannels)
	assert.Equal(t, want.CoarseChannel, gotEv.CoarseChannel)
	assert.InDelta(t, want.Score, gotEv.Score, 1e-9)

	require.NotNil(t, gotEv.Hits[0])
	assert.Equal(t, want.Hits[0].FirstCol, gotEv.Hits[0].FirstCol)
	assert.Nil(t, gotEv.Hits[1])
	require.NotNil(t, gotEv.Hits[2])
	assert.Nil(t, gotEv.Hits[3])
}

func TestEventFileReadMissingFileErrors(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.events"))
	assert.Error(t, err)
}
