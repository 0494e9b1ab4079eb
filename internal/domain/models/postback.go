package models

import "time"

// PostbackLog is one affiliate callback as received, kept for auditing.
// Unmatched postbacks are logged too, with a nil UserID.
type PostbackLog struct {
	ID           int64     `db:"id" json:"id"`
	UserID       *int64    `db:"user_id" json:"user_id"`
	EventType    string    `db:"event_type" json:"event_type"`
	TraderID     string    `db:"trader_id" json:"trader_id"`
	ClickID      string    `db:"click_id" json:"click_id"`
	DepositSum   float64   `db:"deposit_sum" json:"deposit_sum"`
	TotalDeposit float64   `db:"total_deposit" json:"total_deposit"`
	RawQuery     string    `db:"raw_query" json:"raw_query"`
	ReceivedAt   time.Time `db:"received_at" json:"received_at"`
}
