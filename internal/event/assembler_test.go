package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lacker-peti/peti/internal/config"
	"github.com/lacker-peti/peti/internal/hitmap"
)

func baseMetadata() hitmap.Metadata {
	return hitmap.Metadata{
		H5Filename:     "a.h5",
		SourceName:     "HIP1",
		Fch1:           8000,
		Foff:           -1e-6,
		Nchans:         4096,
		Tstart:         58000,
		Tsamp:          18,
		CoarseChannels: 4,
	}
}

func cadenceWithOnOffHits() Cadence {
	meta := baseMetadata()
	chunkSize := meta.ChunkSize()
	var c Cadence
	for i := 0; i < CadenceSize; i++ {
		hm := hitmap.HitMap{Metadata: meta}
		c.Filenames[i] = meta.H5Filename
		// on-target slots (0, 2, 4) carry a matching hit at the same
		// column; off-target slots (1, 3, 5) are empty.
		if i%2 == 0 {
			hm.Hits = append(hm.Hits, hitmap.Hit{
				CoarseChannel: 1,
				FirstCol:      int64(chunkSize + 100),
				LastCol:       int64(chunkSize + 105),
				DriftStart:    float64(chunkSize + 100),
				SNR:           10,
			})
		}
		c.HitMaps[i] = hm
	}
	return c
}

func TestAssembleGroupsOnTargetHitsIntoOneEvent(t *testing.T) {
	c := cadenceWithOnOffHits()
	cfg := config.DefaultScoreConfig()

	events := Assemble(c, cfg)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, 1, ev.CoarseChannel)
	require.NotNil(t, ev.Hits[0])
	require.NotNil(t, ev.Hits[2])
	require.NotNil(t, ev.Hits[4])
	assert.Nil(t, ev.Hits[1])
	assert.Nil(t, ev.Hits[3])
	assert.Nil(t, ev.Hits[5])

	// Columns must be chunk-relative, not absolute.
	chunkSize := c.HitMaps[0].Metadata.ChunkSize()
	assert.Less(t, int(ev.Hits[0].FirstCol), chunkSize)
	assert.Greater(t, ev.Score, 0.0)
}

func TestAssembleDropsSingletonGroups(t *testing.T) {
	meta := baseMetadata()
	var c Cadence
	for i := 0; i < CadenceSize; i++ {
		c.Filenames[i] = meta.H5Filename
		c.HitMaps[i] = hitmap.HitMap{Metadata: meta}
	}
	// A single isolated hit in one slot can never form a cross-cadence
	// event.
	c.HitMaps[0].Hits = append(c.HitMaps[0].Hits, hitmap.Hit{
		CoarseChannel: 0, FirstCol: 10, LastCol: 12,
	})

	events := Assemble(c, config.DefaultScoreConfig())
	assert.Empty(t, events)
}

func TestPlausibleNextColumnWidensWithHitSpan(t *testing.T) {
	narrow := hitmap.Hit{FirstCol: 100, LastCol: 101}
	wide := hitmap.Hit{FirstCol: 100, LastCol: 200}

	assert.Less(t, plausibleNextColumn(narrow, 10), plausibleNextColumn(wide, 10))
}

func TestAssembleRanksByDescendingScore(t *testing.T) {
	meta := baseMetadata()
	chunkSize := meta.ChunkSize()

	var c Cadence
	for i := 0; i < CadenceSize; i++ {
		c.Filenames[i] = meta.H5Filename
		c.HitMaps[i] = hitmap.HitMap{Metadata: meta}
	}
	// Strong event in coarse channel 0.
	for _, i := range []int{0, 2, 4} {
		c.HitMaps[i].Hits = append(c.HitMaps[i].Hits, hitmap.Hit{
			CoarseChannel: 0, FirstCol: 50, LastCol: 55, SNR: 20,
		})
	}
	// Weaker event in coarse channel 1.
	for _, i := range []int{0, 2, 4} {
		c.HitMaps[i].Hits = append(c.HitMaps[i].Hits, hitmap.Hit{
			CoarseChannel: 1, FirstCol: int64(chunkSize + 50), LastCol: int64(chunkSize + 55), SNR: 3,
		})
	}

	events := Assemble(c, config.DefaultScoreConfig())
	require.Len(t, events, 2)
	assert.GreaterOrEqual(t, events[0].Score, events[1].Score)
}
