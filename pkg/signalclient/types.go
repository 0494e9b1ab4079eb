package signalclient

import "time"

// Signal is the payload served by GET /api/signal.
type Signal struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Timeframe   string    `json:"tf"`
	Direction   string    `json:"direction"`
	Price       float64   `json:"price"`
	Confidence  *float64  `json:"confidence"`
	GeneratedAt time.Time `json:"generated_at"`
	EnterAt     time.Time `json:"enter_at"`
	ExpireAt    time.Time `json:"expire_at"`
}

// Stats is the payload served by GET /api/stats.
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

// AccessStatus is the payload served by GET /api/auth/can-access-signals.
type AccessStatus struct {
	CanAccess      bool    `json:"can_access"`
	AccessLevel    string  `json:"access_level"`
	EmailVerified  bool    `json:"is_verified"`
	HasTraderID    bool    `json:"has_pocket_option_id"`
	BrokerVerified bool    `json:"pocket_option_verified"`
	HasMinDeposit  bool    `json:"has_min_deposit"`
	Balance        float64 `json:"balance"`
	MinRequired    float64 `json:"min_required"`
	Message        string  `json:"message"`
}

// User is the payload served by GET /api/auth/me.
type User struct {
	ID             int64   `json:"id"`
	Email          string  `json:"email"`
	EmailVerified  bool    `json:"is_verified"`
	TraderID       *string `json:"pocket_option_id,omitempty"`
	BrokerVerified bool    `json:"pocket_option_verified"`
	Balance        float64 `json:"balance"`
	AccessLevel    string  `json:"access_level"`
}

// Token is the payload served by POST /api/auth/login.
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// SymbolList is the payload served by GET /api/symbols.
type SymbolList struct {
	Symbols    []string `json:"symbols"`
	Timeframes []string `json:"timeframes"`
}
