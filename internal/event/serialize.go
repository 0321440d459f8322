package event

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lacker-peti/peti/internal/hitmap"
)

// Magic and version of the ".events" binary container, following the
// same header-plus-fixed-records layout as the ".hitmap" format
// (internal/hitmap/serialize.go), generalized to one event per record
// holding CadenceSize optional hits instead of one HitMap's flat list.
const (
	magic         = "EVNT"
	formatVersion = uint8(1)
)

// Exists reports whether an events file already exists at path, used by
// the worker's idempotent-skip check before it assembles a cadence
// (spec §4.8: "events file already present: skip the whole cadence").
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFile serializes events to path via a temp-file-then-rename, so
// readers never observe a partial file (spec §4.8, §7).
func WriteFile(path string, events []Event) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".events-*.tmp")
	if err != nil {
		return fmt.Errorf("event: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = writeEvents(w, events); err != nil {
		return fmt.Errorf("event: encode: %w", err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("event: flush: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("event: close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("event: rename into place: %w", err)
	}
	return nil
}

func writeEvents(w io.Writer, events []Event) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(events))); err != nil {
		return err
	}
	for _, e := range events {
		if err := writeEvent(w, e); err != nil {
			return err
		}
	}
	return nil
}

func writeEvent(w io.Writer, e Event) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Filenames))); err != nil {
		return err
	}
	for _, f := range e.Filenames {
		if err := writeString(w, f); err != nil {
			return err
		}
	}
	// One tstart per filename, the count readEvent expects; a missing
	// entry is written as 0.
	for i := range e.Filenames {
		var t float64
		if i < len(e.Tstarts) {
			t = e.Tstarts[i]
		}
		if err := binary.Write(w, binary.LittleEndian, t); err != nil {
			return err
		}
	}
	if err := writeString(w, e.SourceName); err != nil {
		return err
	}
	for _, v := range []float64{e.Fch1, e.Foff, e.Score} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, v := range []uint32{uint32(e.Nchans), uint32(e.CoarseChannels), uint32(e.CoarseChannel)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(e.Hits))); err != nil {
		return err
	}
	for _, h := range e.Hits {
		present := h != nil
		if err := binary.Write(w, binary.LittleEndian, present); err != nil {
			return err
		}
		if !present {
			continue
		}
		if err := writeHitFields(w, *h); err != nil {
			return err
		}
	}
	return nil
}

func writeHitFields(w io.Writer, h hitmap.Hit) error {
	if err := binary.Write(w, binary.LittleEndian, int32(h.CoarseChannel)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.FirstCol); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.LastCol); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, float32(h.DriftRate)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h.DriftStart); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, float32(h.SNR)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, float32(h.MSE)); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, float32(h.Area))
}

// ReadFile deserializes an ".events" file written by WriteFile.
func ReadFile(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("event: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	events, err := readEvents(r)
	if err != nil {
		return nil, fmt.Errorf("event: %s: %w", path, err)
	}
	return events, nil
}

func readEvents(r io.Reader) ([]Event, error) {
	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(gotMagic) != magic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrSchemaMismatch, gotMagic)
	}

	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrSchemaMismatch, version)
	}

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	events := make([]Event, count)
	for i := range events {
		e, err := readEvent(r)
		if err != nil {
			return nil, err
		}
		events[i] = e
	}
	return events, nil
}

func readEvent(r io.Reader) (Event, error) {
	var e Event

	var nfiles uint32
	if err := binary.Read(r, binary.LittleEndian, &nfiles); err != nil {
		return Event{}, err
	}
	e.Filenames = make([]string, nfiles)
	for i := range e.Filenames {
		s, err := readString(r)
		if err != nil {
			return Event{}, err
		}
		e.Filenames[i] = s
	}
	e.Tstarts = make([]float64, nfiles)
	for i := range e.Tstarts {
		if err := binary.Read(r, binary.LittleEndian, &e.Tstarts[i]); err != nil {
			return Event{}, err
		}
	}

	var err error
	if e.SourceName, err = readString(r); err != nil {
		return Event{}, err
	}

	floats := make([]float64, 3)
	for i := range floats {
		if err := binary.Read(r, binary.LittleEndian, &floats[i]); err != nil {
			return Event{}, err
		}
	}
	e.Fch1, e.Foff, e.Score = floats[0], floats[1], floats[2]

	var nchans, coarseChannels, coarseChannel uint32
	if err := binary.Read(r, binary.LittleEndian, &nchans); err != nil {
		return Event{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &coarseChannels); err != nil {
		return Event{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &coarseChannel); err != nil {
		return Event{}, err
	}
	e.Nchans, e.CoarseChannels, e.CoarseChannel = int(nchans), int(coarseChannels), int(coarseChannel)

	var nhits uint32
	if err := binary.Read(r, binary.LittleEndian, &nhits); err != nil {
		return Event{}, err
	}
	e.Hits = make([]*hitmap.Hit, nhits)
	for i := range e.Hits {
		var present bool
		if err := binary.Read(r, binary.LittleEndian, &present); err != nil {
			return Event{}, err
		}
		if !present {
			continue
		}
		h, err := readHitFields(r)
		if err != nil {
			return Event{}, err
		}
		e.Hits[i] = &h
	}

	return e, nil
}

func readHitFields(r io.Reader) (hitmap.Hit, error) {
	var h hitmap.Hit
	var coarseChan int32
	if err := binary.Read(r, binary.LittleEndian, &coarseChan); err != nil {
		return hitmap.Hit{}, err
	}
	h.CoarseChannel = int(coarseChan)
	if err := binary.Read(r, binary.LittleEndian, &h.FirstCol); err != nil {
		return hitmap.Hit{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &h.LastCol); err != nil {
		return hitmap.Hit{}, err
	}
	var driftRate float32
	if err := binary.Read(r, binary.LittleEndian, &driftRate); err != nil {
		return hitmap.Hit{}, err
	}
	h.DriftRate = float64(driftRate)
	if err := binary.Read(r, binary.LittleEndian, &h.DriftStart); err != nil {
		return hitmap.Hit{}, err
	}
	var snr, mse, area float32
	if err := binary.Read(r, binary.LittleEndian, &snr); err != nil {
		return hitmap.Hit{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &mse); err != nil {
		return hitmap.Hit{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &area); err != nil {
		return hitmap.Hit{}, err
	}
	h.SNR, h.MSE, h.Area = float64(snr), float64(mse), float64(area)
	return h, nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// ErrSchemaMismatch is returned when a persisted events file does not
// match the expected schema (spec §7 SchemaMismatch).
var ErrSchemaMismatch = fmt.Errorf("event: schema mismatch")
