// Package config holds the JSON-decoded configuration surfaces of
// spec §6 (worker config, cadence manifest schema is in internal/cadence)
// plus the scoring/notch constants of spec §4.7 and §9, which the
// source treated as magic numbers but this spec exposes as
// configuration with the given defaults.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// NotchFilter is a configured frequency range that suppresses events
// fully contained within it (spec §4.7, §9 Open Questions: "fully
// inside", not "intersects").
type NotchFilter struct {
	LowMHz  float64 `json:"low_mhz"`
	HighMHz float64 `json:"high_mhz"`
}

// ScoreConfig carries the event scorer's tunable constants.
type ScoreConfig struct {
	MinTotalColumns int           `json:"min_total_columns"`
	MaxTotalColumns int           `json:"max_total_columns"`
	MinOnHits       int           `json:"min_on_hits"`
	MaxOffHits      int           `json:"max_off_hits"`
	MinCombinedSNR  float64       `json:"min_combined_snr"`
	MaxEventsPerChannel int       `json:"max_events_per_channel"`
	GroupMargin     int64         `json:"group_margin"`
	Notches         []NotchFilter `json:"notches"`
}

// DefaultScoreConfig returns the spec §4.7/§9 default coefficients.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		MinTotalColumns:     3,
		MaxTotalColumns:     300,
		MinOnHits:           2,
		MaxOffHits:          1,
		MinCombinedSNR:      2,
		MaxEventsPerChannel: 50,
		GroupMargin:         10,
	}
}

// WorkerConfig is the JSON worker configuration of spec §6: the
// machine identity, the directories to walk, and a deadline the
// supervisor checks before each directory and each cadence.
type WorkerConfig struct {
	Machine     string   `json:"machine"`
	Directories []string `json:"directories"`
	Stop        string   `json:"stop"` // ISO-8601 UTC, must carry an offset

	H5Root     string `json:"h5_root"`
	HitMapRoot string `json:"hit_map_root"`
	EventRoot  string `json:"event_root"`

	Score ScoreConfig `json:"score"`
}

// StopTime parses Stop and validates that it carries a UTC offset, per
// spec §6 ("must carry UTC offset; any other offset is a configuration
// error").
func (c WorkerConfig) StopTime() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.Stop)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: stop %q is not RFC3339: %w", c.Stop, err)
	}
	if _, offset := t.Zone(); offset != 0 {
		return time.Time{}, fmt.Errorf("config: stop %q must carry a UTC (+00:00/Z) offset, got offset %ds", c.Stop, offset)
	}
	return t, nil
}

// Load reads and decodes a WorkerConfig from path, layering it over
// defaults (spec §9 "worker config" combined with the §4.7 score
// defaults it embeds).
func Load(path string) (WorkerConfig, error) {
	cfg := WorkerConfig{Score: DefaultScoreConfig()}

	data, err := os.ReadFile(path)
	if err != nil {
		return WorkerConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return WorkerConfig{}, fmt.Errorf("config: decode %s: %w", path, err)
	}

	if len(cfg.Directories) == 0 {
		return WorkerConfig{}, fmt.Errorf("config: %s declares no directories", path)
	}
	if _, err := cfg.StopTime(); err != nil {
		return WorkerConfig{}, err
	}

	return cfg, nil
}
