package event

import (
	"sort"

	"github.com/lacker-peti/peti/internal/config"
	"github.com/lacker-peti/peti/internal/hitmap"
)

// labeledHit is a hit together with the cadence slot it came from.
type labeledHit struct {
	mapIndex int
	hit      hitmap.Hit
}

// group is a pending cross-cadence cluster under construction.
type group struct {
	nextCol int64
	items   map[int]hitmap.Hit // mapIndex -> hit (at most one per index)
}

func plausibleNextColumn(h hitmap.Hit, margin int64) int64 {
	return h.LastCol + 2*(h.LastCol-h.FirstCol) + margin
}

// Cadence is the six HitMaps of one cadence (A B A C A D), already
// loaded from their ".hitmap" files.
type Cadence struct {
	HitMaps   [CadenceSize]hitmap.HitMap
	Filenames [CadenceSize]string
}

// Assemble implements spec §4.6: for each coarse channel, it collects,
// sorts, groups, filters, scores and ranks candidate events across the
// cadence's six hit-maps. The returned events are sorted by descending
// score, ties broken by ascending first_col (spec §5).
func Assemble(c Cadence, cfg config.ScoreConfig) []Event {
	coarseChannels := c.HitMaps[0].Metadata.CoarseChannels

	var all []Event
	for ch := 0; ch < coarseChannels; ch++ {
		evs := assembleChannel(c, ch, cfg)
		all = append(all, evs...)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].firstCol < all[j].firstCol
	})

	return all
}

func assembleChannel(c Cadence, ch int, cfg config.ScoreConfig) []Event {
	var labeled []labeledHit
	for mi, hm := range c.HitMaps {
		for _, h := range hm.Hits {
			if h.CoarseChannel == ch {
				labeled = append(labeled, labeledHit{mapIndex: mi, hit: h})
			}
		}
	}
	if len(labeled) == 0 {
		return nil
	}

	sort.Slice(labeled, func(i, j int) bool { return labeled[i].hit.FirstCol < labeled[j].hit.FirstCol })

	var groups []group
	var pending *group

	flush := func() {
		if pending != nil {
			groups = append(groups, *pending)
		}
		pending = nil
	}

	for _, lh := range labeled {
		if pending == nil {
			g := newGroup(lh, cfg.GroupMargin)
			pending = &g
			continue
		}
		if pending.nextCol >= lh.hit.FirstCol {
			admit(pending, lh, cfg.GroupMargin)
		} else {
			flush()
			g := newGroup(lh, cfg.GroupMargin)
			pending = &g
		}
	}
	flush()

	var events []Event
	for _, g := range groups {
		if len(g.items) <= 1 {
			continue
		}

		ev := buildEvent(c, ch, g)
		ev.Score = Score(ev, cfg)
		events = append(events, ev)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Score != events[j].Score {
			return events[i].Score > events[j].Score
		}
		return events[i].firstCol < events[j].firstCol
	})
	if len(events) > cfg.MaxEventsPerChannel {
		events = events[:cfg.MaxEventsPerChannel]
	}

	return events
}

func newGroup(lh labeledHit, margin int64) group {
	return group{
		nextCol: plausibleNextColumn(lh.hit, margin),
		items:   map[int]hitmap.Hit{lh.mapIndex: lh.hit},
	}
}

func admit(g *group, lh labeledHit, margin int64) {
	if existing, ok := g.items[lh.mapIndex]; ok {
		g.items[lh.mapIndex] = joinHits(existing, lh.hit)
	} else {
		g.items[lh.mapIndex] = lh.hit
	}
	next := plausibleNextColumn(lh.hit, margin)
	if next > g.nextCol {
		g.nextCol = next
	}
}

// joinHits merges two colliding hits for the same map index within a
// group into a single span-covering hit with no reliable fit data
// (spec §4.6 step 4).
func joinHits(a, b hitmap.Hit) hitmap.Hit {
	first, last := a.FirstCol, a.LastCol
	if b.FirstCol < first {
		first = b.FirstCol
	}
	if b.LastCol > last {
		last = b.LastCol
	}
	return hitmap.Hit{
		CoarseChannel: a.CoarseChannel,
		FirstCol:      first,
		LastCol:       last,
		Area:          a.Area + b.Area,
	}
}

func buildEvent(c Cadence, ch int, g group) Event {
	hits := make([]*hitmap.Hit, CadenceSize)
	var minFirst int64 = -1
	for idx, h := range g.items {
		hCopy := h
		hits[idx] = &hCopy
		if minFirst == -1 || h.FirstCol < minFirst {
			minFirst = h.FirstCol
		}
	}

	meta := c.HitMaps[0].Metadata
	filenames := make([]string, CadenceSize)
	tstarts := make([]float64, CadenceSize)
	for i := 0; i < CadenceSize; i++ {
		filenames[i] = c.Filenames[i]
		tstarts[i] = c.HitMaps[i].Metadata.Tstart
	}

	chunkSize := meta.ChunkSize()
	offset := int64(ch) * int64(chunkSize)
	for _, h := range hits {
		if h == nil {
			continue
		}
		h.FirstCol -= offset
		h.LastCol -= offset
		h.DriftStart -= float64(offset)
	}

	return Event{
		Filenames:      filenames,
		Tstarts:        tstarts,
		SourceName:     meta.SourceName,
		Fch1:           meta.Fch1,
		Foff:           meta.Foff,
		Nchans:         meta.Nchans,
		CoarseChannels: meta.CoarseChannels,
		CoarseChannel:  ch,
		Hits:           hits,
		firstCol:       minFirst,
	}
}
