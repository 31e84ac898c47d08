package perf

import (
	"fmt"
	"time"
)

// timestampLayout renders second-resolution local wall-clock time for
// artifact names, e.g. 20250314_151205.
const timestampLayout = "20060102_150405"

// TimestampedName returns "<base>_<YYYYMMDD_HHMMSS>.<ext>" using the current
// local time. Collision resistance is the timestamp alone: two calls within
// the same second yield the same name, so each cycle generates every
// required name exactly once.
func TimestampedName(base, ext string) string {
	return TimestampedNameAt(time.Now(), base, ext)
}

// TimestampedNameAt is the injectable core of TimestampedName.
func TimestampedNameAt(t time.Time, base, ext string) string {
	return fmt.Sprintf("%s_%s.%s", base, t.Format(timestampLayout), ext)
}
