// Package worker implements the supervisor loop of spec §5 and §6: one
// process per GPU-equipped machine, walking its configured directories,
// detecting and scanning cadences, and stopping cooperatively at a
// configured deadline. Grounded on original_source/worker.py's Config.run
// loop, generalized from a single GPU machine's CuPy memory pool check
// to a context.Context cancellation signal.
package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lacker-peti/peti/internal/cadence"
	"github.com/lacker-peti/peti/internal/config"
	"github.com/lacker-peti/peti/internal/event"
	"github.com/lacker-peti/peti/internal/hitmap"
	"github.com/lacker-peti/peti/internal/scanner"
	"github.com/lacker-peti/peti/internal/spectro"
)

// doneMarker is the completion marker of spec §6: its presence in a
// directory means the worker should skip it entirely on future passes.
const doneMarker = "peti.done"

// manifestName is the cadence manifest spec §6 describes.
const manifestName = "cadences.json"

// ErrOutOfTime is returned by Run when cfg.StopTime has passed. It marks
// a cooperative stop rather than a failure: petictl's run command logs
// it and exits successfully; it does not sleep and retry.
var ErrOutOfTime = errors.New("worker: out of time")

// SourceOpener opens a spectrogram file by path as a spectro.Source.
// Injected so this package carries no HDF5 binding of its own.
type SourceOpener func(path string) (spectro.Source, error)

// Supervisor runs the directory-processing loop of spec §5: detect
// cadences, scan each into a HitMap, assemble events, and mark each
// directory done. The deadline is checked before each directory and
// before each cadence; it is not checked between coarse channels while
// a file is being scanned.
type Supervisor struct {
	Config  config.WorkerConfig
	Scanner *scanner.Scanner
	Open    SourceOpener
	Logger  *log.Logger
}

// Run processes every configured directory once, returning ErrOutOfTime
// if the deadline is hit partway through (spec §5, §7 "Deadline").
func (s *Supervisor) Run(ctx context.Context) error {
	stop, err := s.Config.StopTime()
	if err != nil {
		return err
	}

	for _, dir := range s.Config.Directories {
		if err := s.checkTime(stop); err != nil {
			return err
		}

		donefile := filepath.Join(dir, doneMarker)
		if _, err := os.Stat(donefile); err == nil {
			s.Logger.Debug("directory already done, skipping", "dir", dir)
			continue
		}

		if err := s.processDirectory(ctx, dir, stop); err != nil {
			return err
		}

		if err := os.WriteFile(donefile, nil, 0o644); err != nil {
			return err
		}
	}

	return nil
}

func (s *Supervisor) checkTime(stop time.Time) error {
	if time.Now().UTC().Before(stop) {
		return nil
	}
	return ErrOutOfTime
}

func (s *Supervisor) processDirectory(ctx context.Context, dir string, stop time.Time) error {
	manifestPath := filepath.Join(dir, manifestName)
	if _, err := os.Stat(manifestPath); err != nil {
		entries, err := cadence.Detect(dir, s.lookupFileInfo)
		if err != nil {
			return err
		}
		if err := cadence.WriteManifest(manifestPath, entries); err != nil {
			return err
		}
	}

	entries, err := cadence.LoadManifest(manifestPath)
	if err != nil {
		return err
	}

	paths := config.FromWorkerConfig(s.Config)
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := s.checkTime(stop); err != nil {
			return err
		}
		if err := s.processCadence(paths, entry); err != nil {
			return err
		}
	}

	return nil
}

func (s *Supervisor) processCadence(paths config.Paths, entry cadence.Entry) error {
	eventsPath := paths.EventsFilename(entry.Filenames[0])
	if event.Exists(eventsPath) {
		return nil
	}

	var c event.Cadence
	for i, h5Filename := range entry.Filenames {
		c.Filenames[i] = h5Filename

		hmPath := paths.HitMapFilename(h5Filename)

		src, err := s.Open(h5Filename)
		if err != nil {
			return err
		}
		err = s.Scanner.ScanFile(src, hmPath)
		if err != nil && !errors.Is(err, scanner.ErrSkipIdempotent) {
			return err
		}

		hm, err := hitmap.ReadFile(hmPath)
		if err != nil {
			return err
		}
		c.HitMaps[i] = hm
	}

	events := event.Assemble(c, s.Config.Score)
	return event.WriteFile(eventsPath, events)
}

func (s *Supervisor) lookupFileInfo(filename string) (cadence.FileInfo, error) {
	src, err := s.Open(filename)
	if err != nil {
		return cadence.FileInfo{}, err
	}
	m := src.Metadata()
	return cadence.FileInfo{Timestamp: m.Tstart, SourceName: m.SourceName}, nil
}
