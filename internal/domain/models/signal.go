package models

import (
	"strings"
	"time"
)

// Direction is the predicted price movement of a signal.
type Direction string

const (
	DirectionUp   Direction = "UP"
	DirectionDown Direction = "DOWN"
)

// ParseDirection normalizes raw webhook payload values ("buy"/"sell",
// "up"/"down", "call"/"put") into a Direction.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "UP", "BUY", "CALL", "LONG":
		return DirectionUp, true
	case "DOWN", "SELL", "PUT", "SHORT":
		return DirectionDown, true
	default:
		return "", false
	}
}

// Verdict is the settled outcome of a signal.
type Verdict string

const (
	VerdictWin  Verdict = "WIN"
	VerdictLoss Verdict = "LOSS"
	VerdictSkip Verdict = "SKIP"
)

// Signal is a single trading signal as ingested from the webhook and
// served to clients. EnterAt and ExpireAt are derived from the webhook
// timestamp, not carried on the wire. The JSON field names are the API
// contract consumed by the polling clients; the timeframe travels as
// "tf" and the webhook timestamp as "generated_at".
type Signal struct {
	ID         int64     `db:"id" json:"id"`
	Symbol     string    `db:"symbol" json:"symbol"`
	Timeframe  string    `db:"timeframe" json:"tf"`
	Direction  Direction `db:"direction" json:"direction"`
	Price      float64   `db:"price" json:"price"`
	Confidence *float64  `db:"confidence" json:"confidence"`
	Timestamp  time.Time `db:"ts" json:"generated_at"`
	EnterAt    time.Time `db:"enter_at" json:"enter_at"`
	ExpireAt   time.Time `db:"expire_at" json:"expire_at"`
	Verdict    *Verdict  `db:"verdict" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"-"`
}

// Active reports whether the signal's trade window is still open at now.
func (s *Signal) Active(now time.Time) bool {
	return now.Before(s.ExpireAt)
}

// Stats summarizes recent signal performance for a (symbol, timeframe)
// pair over a rolling window of settled signals.
type Stats struct {
	Symbol       string    `json:"symbol"`
	Timeframe    string    `json:"tf"`
	WinRateLastN float64   `json:"winrate_last_n"`
	N            int       `json:"n"`
	BreakEvenAt  float64   `json:"break_even_at"`
	SignalsCount int       `json:"signals_count"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	Skips        int       `json:"skips"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ComputeWinRate fills WinRateLastN, N and BreakEvenAt from the verdict
// counters. N is the number of settled signals in the window; skips do
// not count toward the rate.
func (s *Stats) ComputeWinRate(breakEven float64) {
	s.BreakEvenAt = breakEven
	s.N = s.Wins + s.Losses + s.Skips
	decided := s.Wins + s.Losses
	if decided == 0 {
		s.WinRateLastN = 0
		return
	}
	s.WinRateLastN = float64(s.Wins) / float64(decided)
}

// AboveBreakEven reports whether the rolling win rate beats the
// break-even threshold.
func (s *Stats) AboveBreakEven() bool {
	return s.Wins+s.Losses > 0 && s.WinRateLastN > s.BreakEvenAt
}

// PerformanceStats summarizes settled outcomes for a pair over a fixed
// date range rather than the rolling window.
type PerformanceStats struct {
	Symbol       string  `json:"symbol"`
	Timeframe    string  `json:"tf"`
	TotalSignals int     `json:"total_signals"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	Skips        int     `json:"skips"`
	WinRate      float64 `json:"winrate"`
	AvgHoldTime  float64 `json:"avg_hold_time"` // seconds
	PeriodDays   int     `json:"period_days"`
}

// HourBucket is one hour-of-day slice of the market-hours breakdown.
type HourBucket struct {
	Total   int     `json:"total"`
	Wins    int     `json:"wins"`
	Losses  int     `json:"losses"`
	WinRate float64 `json:"winrate"`
}

// timeframeDurations maps a timeframe label to the length of its trade
// window. Unknown labels fall back to five minutes.
var timeframeDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"3m":  3 * time.Minute,
	"5m":  5 * time.Minute,
	"7m":  7 * time.Minute,
	"15m": 15 * time.Minute,
	"30m": 30 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

const defaultTimeframeDuration = 5 * time.Minute

// TimeframeDuration returns the trade window length for a timeframe label.
func TimeframeDuration(tf string) time.Duration {
	if d, ok := timeframeDurations[tf]; ok {
		return d
	}
	return defaultTimeframeDuration
}

// IsValidTimeframe reports whether tf is a supported timeframe label.
func IsValidTimeframe(tf string) bool {
	_, ok := timeframeDurations[tf]
	return ok
}

// ComputeSignalTimes derives the entry and expiry instants for a signal
// emitted at ts: entry opens after enterDelay and the window runs for
// the timeframe's duration.
func ComputeSignalTimes(ts time.Time, tf string, enterDelay time.Duration) (enterAt, expireAt time.Time) {
	enterAt = ts.Add(enterDelay)
	expireAt = enterAt.Add(TimeframeDuration(tf))
	return enterAt, expireAt
}
