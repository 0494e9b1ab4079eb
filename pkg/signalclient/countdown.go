package signalclient

import "time"

// Countdown describes where a signal sits inside its trade window.
type Countdown struct {
	Remaining time.Duration
	Progress  float64
	Expired   bool
}

// CountdownAt derives the countdown for a signal at the given instant.
// Remaining never goes negative. Progress runs from 0 at entry to 1 at
// expiry and is clamped on both ends; a degenerate window (expiry at or
// before entry) counts as fully elapsed.
func CountdownAt(s *Signal, now time.Time) Countdown {
	span := s.ExpireAt.Sub(s.EnterAt)
	remaining := s.ExpireAt.Sub(now)
	if remaining < 0 {
		remaining = 0
	}

	var progress float64
	if span <= 0 {
		progress = 1.0
	} else {
		progress = float64(span-remaining) / float64(span)
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
	}

	return Countdown{
		Remaining: remaining,
		Progress:  progress,
		Expired:   remaining == 0,
	}
}
