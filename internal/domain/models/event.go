package models

import "time"

// SignalEvent is published to Kafka whenever a new signal is accepted.
type SignalEvent struct {
	Type      string    `json:"type"` // "signal.created" | "signal.settled"
	Symbol    string    `json:"symbol"`
	Timeframe string    `json:"timeframe"`
	Direction Direction `json:"direction"`
	Price     float64   `json:"price"`
	Timestamp time.Time `json:"timestamp"`
	EnterAt   time.Time `json:"enter_at"`
	ExpireAt  time.Time `json:"expire_at"`
	Verdict   *Verdict  `json:"verdict,omitempty"`
}

const (
	EventSignalCreated = "signal.created"
	EventSignalSettled = "signal.settled"
)

// NewSignalCreatedEvent builds the event for a freshly ingested signal.
func NewSignalCreatedEvent(s *Signal) *SignalEvent {
	return &SignalEvent{
		Type:      EventSignalCreated,
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		Direction: s.Direction,
		Price:     s.Price,
		Timestamp: s.Timestamp,
		EnterAt:   s.EnterAt,
		ExpireAt:  s.ExpireAt,
	}
}

// NewSignalSettledEvent builds the event for a settled signal.
func NewSignalSettledEvent(s *Signal) *SignalEvent {
	return &SignalEvent{
		Type:      EventSignalSettled,
		Symbol:    s.Symbol,
		Timeframe: s.Timeframe,
		Direction: s.Direction,
		Price:     s.Price,
		Timestamp: s.Timestamp,
		EnterAt:   s.EnterAt,
		ExpireAt:  s.ExpireAt,
		Verdict:   s.Verdict,
	}
}
