package hitmap

import (
	"bufio"
	"fmt"
	"os"
)

// ExportDAT writes a plain-text ".dat" rendering of hm alongside the
// primary binary ".hitmap" container, for compatibility with external
// turboSETI-style tooling that expects that format (supplemented from
// original_source/dat_file.py; see SPEC_FULL.md §11).
func ExportDAT(path string, hm HitMap) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("hitmap: create dat file: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "# source_name: %s\n", hm.Metadata.SourceName)
	fmt.Fprintf(w, "# fch1(MHz): %.6f  foff(MHz): %.9f  nchans: %d  coarse_channels: %d\n",
		hm.Metadata.Fch1, hm.Metadata.Foff, hm.Metadata.Nchans, hm.Metadata.CoarseChannels)
	fmt.Fprintf(w, "# tstart(MJD): %.8f  tsamp(s): %.6f\n", hm.Metadata.Tstart, hm.Metadata.Tsamp)
	fmt.Fprintln(w, "# coarse_channel\tfirst_column\tlast_column\tdrift_rate\tdrift_start\tsnr\tmse\tarea")

	for _, h := range hm.Hits {
		fmt.Fprintf(w, "%d\t%d\t%d\t%.6f\t%.6f\t%.3f\t%.6f\t%.1f\n",
			h.CoarseChannel, h.FirstCol, h.LastCol, h.DriftRate, h.DriftStart, h.SNR, h.MSE, h.Area)
	}

	return w.Flush()
}
