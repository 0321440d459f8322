// Command petictl is the operator-facing CLI: scan spectrograms into
// hit maps, assemble cadences into ranked events, combine several event
// streams, replot events to PNGs, run the long-lived worker supervisor,
// serve the read-only web browser, and clear a session for reprocessing.
// Dispatch follows the teacher's flat os.Args[1] switch (shared.go),
// generalized to parse each subcommand's own flag set with pflag rather
// than reading hardcoded constants.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/lacker-peti/peti/internal/array"
	"github.com/lacker-peti/peti/internal/config"
	"github.com/lacker-peti/peti/internal/dsp"
	"github.com/lacker-peti/peti/internal/event"
	"github.com/lacker-peti/peti/internal/hitmap"
	"github.com/lacker-peti/peti/internal/logging"
	"github.com/lacker-peti/peti/internal/plotutil"
	"github.com/lacker-peti/peti/internal/scanner"
	"github.com/lacker-peti/peti/internal/spectro"
	"github.com/lacker-peti/peti/internal/webui"
	"github.com/lacker-peti/peti/internal/worker"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "scan":
		err = runScan(os.Args[2:])
	case "assemble":
		err = runAssemble(os.Args[2:])
	case "combine":
		err = runCombine(os.Args[2:])
	case "replot":
		err = runReplot(os.Args[2:])
	case "run", "worker":
		err = runWorker(os.Args[2:])
	case "serve-ui":
		err = runServeUI(os.Args[2:])
	case "clear-session":
		err = runClearSession(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "[err] %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: petictl <command> [flags]")
	fmt.Println("Commands:")
	fmt.Println("  scan           - scan one h5 file into a .hitmap")
	fmt.Println("  assemble       - assemble a cadence's hit maps into a .events file")
	fmt.Println("  combine        - merge several .events streams into one ranked stream")
	fmt.Println("  replot         - render PNGs for the events in a .events file")
	fmt.Println("  run            - run the long-lived worker supervisor")
	fmt.Println("  serve-ui       - serve the read-only events web browser")
	fmt.Println("  clear-session  - delete a session's generated output for reprocessing")
}

func runScan(args []string) error {
	fs := pflag.NewFlagSet("scan", pflag.ExitOnError)
	h5Path := fs.String("h5", "", "path to the spectrogram file to scan")
	outPath := fs.String("out", "", "path to write the .hitmap file (defaults to replacing .h5 with .hitmap)")
	dat := fs.Bool("dat", false, "also export a turboSETI-style .dat file alongside the .hitmap")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *h5Path == "" {
		return fmt.Errorf("scan: --h5 is required")
	}

	logger := logging.New("scan", logging.ParseLevel(*verbose, false), nil)

	out := *outPath
	if out == "" {
		out = trimExt(*h5Path) + ".hitmap"
	}

	src, err := openSource(*h5Path)
	if err != nil {
		return err
	}

	s := scanner.New(array.CPU{}, scanner.DefaultConfig())
	if err := s.ScanFile(src, out); err != nil {
		if err == scanner.ErrSkipIdempotent {
			logger.Info("hit map already exists, skipping", "path", out)
			return nil
		}
		return err
	}
	logger.Info("wrote hit map", "path", out)

	if *dat {
		hm, err := hitmap.ReadFile(out)
		if err != nil {
			return err
		}
		datPath := trimExt(out) + ".dat"
		if err := hitmap.ExportDAT(datPath, hm); err != nil {
			return err
		}
		logger.Info("wrote dat export", "path", datPath)
	}
	return nil
}

func runAssemble(args []string) error {
	fs := pflag.NewFlagSet("assemble", pflag.ExitOnError)
	hitMapPaths := fs.StringSlice("hitmap", nil, "the six .hitmap files of one cadence, in A B A C A D order")
	outPath := fs.String("out", "", "path to write the .events file")
	notch := fs.StringArray("notch", nil, "notch filter as low:high in MHz, repeatable")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(*hitMapPaths) != event.CadenceSize {
		return fmt.Errorf("assemble: expected %d --hitmap flags, got %d", event.CadenceSize, len(*hitMapPaths))
	}
	if *outPath == "" {
		return fmt.Errorf("assemble: --out is required")
	}

	logger := logging.New("assemble", logging.ParseLevel(*verbose, false), nil)

	scoreCfg := config.DefaultScoreConfig()
	notches, err := parseNotches(*notch)
	if err != nil {
		return err
	}
	scoreCfg.Notches = notches

	var c event.Cadence
	for i, p := range *hitMapPaths {
		hm, err := hitmap.ReadFile(p)
		if err != nil {
			return err
		}
		c.HitMaps[i] = hm
		c.Filenames[i] = hm.Metadata.H5Filename
	}

	events := event.Assemble(c, scoreCfg)
	if err := event.WriteFile(*outPath, events); err != nil {
		return err
	}
	logger.Info("assembled cadence", "events", len(events), "out", *outPath)
	return nil
}

// runCombine merges several already-written ".events" streams, typically
// one per worker or one per night's run, into a single stream under the
// combine-cadences order of spec §5 (SPEC_FULL §11.3).
func runCombine(args []string) error {
	fs := pflag.NewFlagSet("combine", pflag.ExitOnError)
	eventsPaths := fs.StringArray("events", nil, "an .events file to combine, repeatable")
	outPath := fs.String("out", "", "path to write the combined .events file")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if len(*eventsPaths) == 0 {
		return fmt.Errorf("combine: at least one --events is required")
	}
	if *outPath == "" {
		return fmt.Errorf("combine: --out is required")
	}

	logger := logging.New("combine", logging.ParseLevel(*verbose, false), nil)

	streams := make([][]event.Event, len(*eventsPaths))
	for i, p := range *eventsPaths {
		evs, err := event.ReadFile(p)
		if err != nil {
			return err
		}
		streams[i] = evs
	}

	combined := event.CombineEventStreams(streams...)
	if err := event.WriteFile(*outPath, combined); err != nil {
		return err
	}
	logger.Info("combined event streams", "streams", len(streams), "events", len(combined), "out", *outPath)
	return nil
}

// runReplot renders a PNG per event in an ".events" file, materializing
// chunks through a spectro.Cache (see loadEventChunks for when a cached
// chunk is reused).
func runReplot(args []string) error {
	fs := pflag.NewFlagSet("replot", pflag.ExitOnError)
	eventsPath := fs.String("events", "", "path to the .events file to render")
	h5Root := fs.String("h5-root", "", "root directory spectrogram paths are rewritten relative to")
	imageRoot := fs.String("image-root", "", "root directory to write rendered PNGs under")
	stylePath := fs.String("style", "", "path to a plot style YAML sidecar (defaults to the built-in style)")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventsPath == "" || *h5Root == "" || *imageRoot == "" {
		return fmt.Errorf("replot: --events, --h5-root and --image-root are required")
	}

	logger := logging.New("replot", logging.ParseLevel(*verbose, false), nil)

	style, err := plotutil.LoadStyle(*stylePath)
	if err != nil {
		return err
	}

	events, err := event.ReadFile(*eventsPath)
	if err != nil {
		return err
	}

	paths := config.Paths{H5Root: *h5Root, ImageRoot: *imageRoot}
	cache := spectro.NewCache()

	for _, ev := range events {
		chunks, err := loadEventChunks(ev, cache)
		if err != nil {
			return err
		}

		img, err := plotutil.RenderEvent(ev, chunks, style)
		if err != nil {
			logger.Warn("skip event with no column span", "source", ev.SourceName, "coarse_channel", ev.CoarseChannel)
			continue
		}

		out := paths.PlotFilename(ev.Filenames[0], ev.AbsoluteStartColumn())
		if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
			return err
		}
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		writeErr := plotutil.WritePNG(f, img)
		closeErr := f.Close()
		if writeErr != nil {
			return writeErr
		}
		if closeErr != nil {
			return closeErr
		}
		logger.Info("rendered event", "out", out)
	}
	return nil
}

// loadEventChunks materializes one Chunk per cadence slot of ev that
// names a file. The cache keeps only the most recently stored chunk, so
// a chunk is loaned instead of re-materialized only when the same file
// and coarse channel is requested again before any other chunk is
// stored; chunks of an earlier event's other slots are not kept.
func loadEventChunks(ev event.Event, cache *spectro.Cache) ([event.CadenceSize]*dsp.Matrix, error) {
	var chunks [event.CadenceSize]*dsp.Matrix
	for i, filename := range ev.Filenames {
		if filename == "" {
			continue
		}
		src, err := openSource(filename)
		if err != nil {
			return chunks, err
		}

		id := spectro.SourceID{Filename: filename, Offset: ev.CoarseChannel * src.Metadata().ChunkSize()}
		chunk, ok := cache.Loan(id)
		if !ok {
			chunk, err = spectro.Materialize(src, ev.CoarseChannel)
			if err != nil {
				return chunks, err
			}
			cache.Put(chunk)
		}
		data := chunk.Data
		chunks[i] = &data
	}
	return chunks, nil
}

func runWorker(args []string) error {
	fs := pflag.NewFlagSet("run", pflag.ExitOnError)
	configPath := fs.String("config", "", "path to the worker config JSON file")
	verbose := fs.BoolP("verbose", "v", false, "debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		return fmt.Errorf("run: --config is required")
	}

	logger := logging.New("worker", logging.ParseLevel(*verbose, false), nil)

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup := &worker.Supervisor{
		Config:  cfg,
		Scanner: scanner.New(array.CPU{}, scanner.DefaultConfig()),
		Open:    openSource,
		Logger:  logger,
	}

	if err := sup.Run(ctx); err != nil {
		if err == worker.ErrOutOfTime {
			logger.Info("reached configured stop time")
			return nil
		}
		return err
	}
	logger.Info("all configured directories processed")
	return nil
}

func runServeUI(args []string) error {
	fs := pflag.NewFlagSet("serve-ui", pflag.ExitOnError)
	addr := fs.String("addr", ":9000", "address to listen on")
	eventRoot := fs.String("event-root", "", "root directory of .events files, one subdirectory per session")
	imageRoot := fs.String("image-root", "", "root directory of rendered event PNGs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *eventRoot == "" || *imageRoot == "" {
		return fmt.Errorf("serve-ui: --event-root and --image-root are required")
	}

	logger := logging.New("webui", log.InfoLevel, nil)
	srv := webui.New(*eventRoot, *imageRoot, logger)
	logger.Info("serving", "addr", *addr)
	return http.ListenAndServe(*addr, srv)
}

// sessionPattern matches the Green Bank session-name convention
// original_source/clear_session.py validates against, so a typo'd
// session argument cannot be turned into a destructive path.
var sessionPattern = regexp.MustCompile(`^AGBT[A-Za-z0-9]+_[A-Za-z0-9]+_[0-9]+$`)

func runClearSession(args []string) error {
	fs := pflag.NewFlagSet("clear-session", pflag.ExitOnError)
	session := fs.String("session", "", "session name to clear, e.g. AGBT21B_999_01")
	hitMapRoot := fs.String("hitmap-root", "", "hit map root directory")
	eventRoot := fs.String("event-root", "", "event root directory")
	imageRoot := fs.String("image-root", "", "image root directory")
	dryRun := fs.Bool("dry-run", true, "print what would be deleted without deleting it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *session == "" {
		return fmt.Errorf("clear-session: --session is required")
	}
	if !sessionPattern.MatchString(*session) {
		return fmt.Errorf("clear-session: bad session name: %s", *session)
	}

	logger := logging.New("clear-session", log.InfoLevel, nil)
	for _, root := range []string{*hitMapRoot, *eventRoot, *imageRoot} {
		if root == "" {
			continue
		}
		dir := filepath.Join(root, *session)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if *dryRun {
			logger.Info("would delete", "dir", dir)
			continue
		}
		logger.Info("deleting", "dir", dir)
		if err := os.RemoveAll(dir); err != nil {
			return err
		}
	}
	return nil
}

func parseNotches(raw []string) ([]config.NotchFilter, error) {
	var notches []config.NotchFilter
	for _, s := range raw {
		var low, high float64
		if _, err := fmt.Sscanf(s, "%f:%f", &low, &high); err != nil {
			return nil, fmt.Errorf("bad --notch value %q (want low:high): %w", s, err)
		}
		notches = append(notches, config.NotchFilter{LowMHz: low, HighMHz: high})
	}
	return notches, nil
}

func trimExt(path string) string {
	ext := filepath.Ext(path)
	return path[:len(path)-len(ext)]
}

// openSource is the worker.SourceOpener this binary wires in. No HDF5
// binding appears anywhere in the example pack to ground one on, so it
// always fails; a real deployment replaces this with a reader that
// satisfies spectro.Source (see internal/spectro's package doc and
// DESIGN.md).
func openSource(path string) (spectro.Source, error) {
	return nil, fmt.Errorf("petictl: no spectrogram reader configured for %s", path)
}
