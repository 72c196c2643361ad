package race

import (
	"math"
	"time"
)

// SuppressionWindow decides whether a tap at now is a probable double tap of
// the team's last accepted lap. The window is per team: only one swimmer of
// a team is ever in the water. A zero last time or timeoutSeconds <= 0 never
// suppresses.
//
// When suppressing, retryAfter is ceil(timeout - elapsed), clamped to
// [1, timeout].
func SuppressionWindow(last time.Time, timeoutSeconds int, now time.Time) (suppress bool, retryAfter int) {
	if timeoutSeconds <= 0 || last.IsZero() {
		return false, 0
	}

	elapsed := now.Sub(last).Seconds()
	timeout := float64(timeoutSeconds)
	if elapsed >= timeout {
		return false, 0
	}

	retryAfter = int(math.Ceil(timeout - elapsed))
	retryAfter = max(retryAfter, 1)
	retryAfter = min(retryAfter, timeoutSeconds)
	return true, retryAfter
}
