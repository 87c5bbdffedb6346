package state

import "time"

const (
	defaultResubscribeBase = 2 * time.Second
	maxBackoff             = 30 * time.Second
)

// calculateBackoff returns base × 2^failures, capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	backoff := base
	for i := 0; i < failures; i++ {
		backoff *= 2
		if backoff >= maxBackoff {
			return maxBackoff
		}
	}
	return backoff
}
