package report

import (
	"fmt"
	"time"
)

// FormatTimestamp returns a RFC3339 UTC timestamp string.
func FormatTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// FormatDuration renders d as hh:mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", s/3600, (s/60)%60, s%60)
}

const tableTime = "2006-01-02 15:04:05"
