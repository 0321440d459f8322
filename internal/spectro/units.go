package spectro

import "time"

// mjdEpoch is the Unix time of MJD 0 (1858-11-17T00:00:00Z).
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// MJDToTime converts a Modified Julian Date to an absolute UTC time.
// tzneal/coordconv (the pack's conversion library) covers lat/long/UTM,
// not time scales, so this pair of pure functions is hand-written rather
// than wired to it — see DESIGN.md.
func MJDToTime(mjd float64) time.Time {
	return mjdEpoch.Add(time.Duration(mjd * float64(24*time.Hour)))
}

// TimeToMJD is the inverse of MJDToTime.
func TimeToMJD(t time.Time) float64 {
	return t.Sub(mjdEpoch).Hours() / 24
}
