package models

import (
	"fmt"
	"strconv"
	"time"
)

// AccessLevel describes what a user may see based on broker deposits.
type AccessLevel string

const (
	AccessNone          AccessLevel = "none"
	AccessLimited       AccessLevel = "limited"
	AccessUnlimitedMain AccessLevel = "unlimited_main"
	AccessUnlimitedAll  AccessLevel = "unlimited_all"
)

// Deposit thresholds in USD for each access level.
const (
	MinDepositLimited       = 10.0
	MinDepositUnlimitedMain = 50.0
	MinDepositUnlimitedAll  = 150.0
)

// LevelForDeposit maps a total deposit amount to an access level.
func LevelForDeposit(total float64) AccessLevel {
	switch {
	case total >= MinDepositUnlimitedAll:
		return AccessUnlimitedAll
	case total >= MinDepositUnlimitedMain:
		return AccessUnlimitedMain
	case total >= MinDepositLimited:
		return AccessLimited
	default:
		return AccessNone
	}
}

// User is a registered subscriber account. The JSON names follow the
// account API contract: verification travels as "is_verified" and the
// broker linkage fields carry the pocket_option_* names.
type User struct {
	ID                int64       `db:"id" json:"id"`
	Email             string      `db:"email" json:"email"`
	PasswordHash      string      `db:"password_hash" json:"-"`
	EmailVerified     bool        `db:"email_verified" json:"is_verified"`
	VerificationToken *string     `db:"verification_token" json:"-"`
	TraderID          *string     `db:"trader_id" json:"pocket_option_id"`
	BrokerVerified    bool        `db:"broker_verified" json:"pocket_option_verified"`
	TotalDeposit      float64     `db:"total_deposit" json:"balance"`
	AccessLevel       AccessLevel `db:"access_level" json:"access_level"`
	CreatedAt         time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time   `db:"updated_at" json:"-"`
}

// AccessStatus is the server-side answer to "can this user see signals".
// The field set is the can-access-signals wire contract; clients route
// the user to the right onboarding step from the boolean flags and show
// Message verbatim.
type AccessStatus struct {
	CanAccess      bool        `json:"can_access"`
	AccessLevel    AccessLevel `json:"access_level"`
	EmailVerified  bool        `json:"is_verified"`
	HasTraderID    bool        `json:"has_pocket_option_id"`
	BrokerVerified bool        `json:"pocket_option_verified"`
	HasMinDeposit  bool        `json:"has_min_deposit"`
	Balance        float64     `json:"balance"`
	MinRequired    float64     `json:"min_required"`
	Message        string      `json:"message"`
}

// AccessStatusFor derives the gate answer for a user against minDeposit.
func AccessStatusFor(u *User, minDeposit float64) AccessStatus {
	st := AccessStatus{
		AccessLevel:    u.AccessLevel,
		EmailVerified:  u.EmailVerified,
		HasTraderID:    u.TraderID != nil,
		BrokerVerified: u.BrokerVerified,
		HasMinDeposit:  u.TotalDeposit >= minDeposit,
		Balance:        u.TotalDeposit,
		MinRequired:    minDeposit,
	}
	switch {
	case !u.EmailVerified:
		st.Message = "Please verify your email address"
	case !u.BrokerVerified:
		st.Message = "Link your Pocket Option account to continue"
	case !st.HasMinDeposit:
		st.Message = fmt.Sprintf("Balance $%s, minimum $%s",
			formatAmount(u.TotalDeposit), formatAmount(minDeposit))
	default:
		st.CanAccess = true
		st.Message = accessLevelMessage(u.AccessLevel)
	}
	return st
}

func accessLevelMessage(level AccessLevel) string {
	switch level {
	case AccessUnlimitedAll:
		return "Unlimited signals on all assets (majors + OTC)"
	case AccessUnlimitedMain:
		return "Unlimited signals on major currency pairs"
	case AccessLimited:
		return "1 signal per day"
	default:
		return "Signals unlocked"
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
