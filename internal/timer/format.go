package timer

import (
	"fmt"
	"time"
)

// FormatElapsed renders d as HH:MM:SS, truncating to whole seconds. Hours
// grow past two digits when needed.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// FormatCountdown renders d as MM:SS, rounding up so a countdown shows 00:00
// only once it is over.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
