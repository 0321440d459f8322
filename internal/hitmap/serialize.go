package hitmap

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Magic and version of the ".hitmap" binary container: a small
// self-describing header record followed by one fixed-width record per
// hit, in the spirit of the teacher's AggHeader+PutRow layout
// (common.go) generalized from trade rows to fitted hits.
const (
	magic          = "HMAP"
	formatVersion  = uint8(1)
	hitRecordBytes = 4 + 8 + 8 + 4 + 8 + 4 + 4 + 4 // CoarseChannel,FirstCol,LastCol,DriftRate,DriftStart,SNR,MSE,Area
)

// Exists reports whether a hit-map already exists at path, used by the
// scanner's idempotent-skip check (spec §4.5, §4.8).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// WriteFile serializes hm to path. It writes to a temporary sibling
// file and renames it into place so that readers never observe a
// partial file; on any error the temporary file is removed (spec §4.8,
// §7 "Serialization errors ... must not leave a partial file visible").
func WriteFile(path string, hm HitMap) (err error) {
	if err := hm.Validate(); err != nil {
		return fmt.Errorf("hitmap: refusing to write invalid hit map: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".hitmap-*.tmp")
	if err != nil {
		return fmt.Errorf("hitmap: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = writeHitMap(w, hm); err != nil {
		return fmt.Errorf("hitmap: encode: %w", err)
	}
	if err = w.Flush(); err != nil {
		return fmt.Errorf("hitmap: flush: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("hitmap: close temp file: %w", err)
	}
	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("hitmap: rename into place: %w", err)
	}
	return nil
}

func writeHitMap(w io.Writer, hm HitMap) error {
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, formatVersion); err != nil {
		return err
	}

	m := hm.Metadata
	if err := writeString(w, m.H5Filename); err != nil {
		return err
	}
	if err := writeString(w, m.SourceName); err != nil {
		return err
	}
	for _, v := range []float64{m.Fch1, m.Foff, m.Tstart, m.Tsamp} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}
	for _, v := range []uint32{uint32(m.Nchans), uint32(m.Nsamples), uint32(m.CoarseChannels)} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(hm.Hits))); err != nil {
		return err
	}
	for _, h := range hm.Hits {
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
		if err := binary.Write(w, binary.LittleEndian, float32(h.Area)); err != nil {
			return err
		}
	}
	return nil
}

// ReadFile deserializes a ".hitmap" file written by WriteFile.
func ReadFile(path string) (HitMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return HitMap{}, fmt.Errorf("hitmap: open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	hm, err := readHitMap(r)
	if err != nil {
		return HitMap{}, fmt.Errorf("hitmap: %s: %w", path, err)
	}
	return hm, nil
}

func readHitMap(r io.Reader) (HitMap, error) {
	gotMagic := make([]byte, len(magic))
	if _, err := io.ReadFull(r, gotMagic); err != nil {
		return HitMap{}, fmt.Errorf("read magic: %w", err)
	}
	if string(gotMagic) != magic {
		return HitMap{}, fmt.Errorf("%w: bad magic %q", ErrSchemaMismatch, gotMagic)
	}

	var version uint8
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return HitMap{}, err
	}
	if version != formatVersion {
		return HitMap{}, fmt.Errorf("%w: unsupported version %d", ErrSchemaMismatch, version)
	}

	var m Metadata
	var err error
	if m.H5Filename, err = readString(r); err != nil {
		return HitMap{}, err
	}
	if m.SourceName, err = readString(r); err != nil {
		return HitMap{}, err
	}
	floats := make([]float64, 4)
	for i := range floats {
		if err := binary.Read(r, binary.LittleEndian, &floats[i]); err != nil {
			return HitMap{}, err
		}
	}
	m.Fch1, m.Foff, m.Tstart, m.Tsamp = floats[0], floats[1], floats[2], floats[3]

	var nchans, nsamples, coarse uint32
	if err := binary.Read(r, binary.LittleEndian, &nchans); err != nil {
		return HitMap{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &nsamples); err != nil {
		return HitMap{}, err
	}
	if err := binary.Read(r, binary.LittleEndian, &coarse); err != nil {
		return HitMap{}, err
	}
	m.Nchans, m.Nsamples, m.CoarseChannels = int(nchans), int(nsamples), int(coarse)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return HitMap{}, err
	}

	hits := make([]Hit, count)
	for i := range hits {
		var coarseChan int32
		if err := binary.Read(r, binary.LittleEndian, &coarseChan); err != nil {
			return HitMap{}, err
		}
		h := Hit{CoarseChannel: int(coarseChan)}
		if err := binary.Read(r, binary.LittleEndian, &h.FirstCol); err != nil {
			return HitMap{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &h.LastCol); err != nil {
			return HitMap{}, err
		}
		var driftRate float32
		if err := binary.Read(r, binary.LittleEndian, &driftRate); err != nil {
			return HitMap{}, err
		}
		h.DriftRate = float64(driftRate)
		if err := binary.Read(r, binary.LittleEndian, &h.DriftStart); err != nil {
			return HitMap{}, err
		}
		var snr, mse, area float32
		if err := binary.Read(r, binary.LittleEndian, &snr); err != nil {
			return HitMap{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &mse); err != nil {
			return HitMap{}, err
		}
		if err := binary.Read(r, binary.LittleEndian, &area); err != nil {
			return HitMap{}, err
		}
		h.SNR, h.MSE, h.Area = float64(snr), float64(mse), float64(area)
		hits[i] = h
	}

	return HitMap{Metadata: m, Hits: hits}, nil
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

// ErrSchemaMismatch is returned when a persisted hit-map does not
// validate the expected schema (spec §7 SchemaMismatch).
var ErrSchemaMismatch = fmt.Errorf("hitmap: schema mismatch")
