package signalclient

import "context"

// GateState is where a user sits in the onboarding funnel. The states
// are strictly ordered; each one unlocks exactly one next step.
type GateState int

const (
	// GateEmailUnverified: the account exists but the email link was
	// never clicked. Next step: verify email.
	GateEmailUnverified GateState = iota
	// GateBrokerUnlinked: email verified, no broker account attached.
	// Next step: link a Pocket Option trader id.
	GateBrokerUnlinked
	// GateDepositInsufficient: broker linked, cumulative deposit below
	// the threshold. Next step: deposit.
	GateDepositInsufficient
	// GateFullAccess: all requirements met; signals are visible.
	GateFullAccess
)

func (s GateState) String() string {
	switch s {
	case GateEmailUnverified:
		return "email_unverified"
	case GateBrokerUnlinked:
		return "broker_unlinked"
	case GateDepositInsufficient:
		return "deposit_insufficient"
	case GateFullAccess:
		return "full_access"
	default:
		return "unknown"
	}
}

// Allowed reports whether signals may be shown in this state.
func (s GateState) Allowed() bool { return s == GateFullAccess }

// DeriveGateState maps the server's access answer onto the funnel. It is
// a pure function of the payload. Full access additionally requires the
// deposit flag, so a payload that grants access while reporting the
// balance below minimum still lands on the deposit step.
func DeriveGateState(st *AccessStatus) GateState {
	switch {
	case st.CanAccess && st.HasMinDeposit:
		return GateFullAccess
	case !st.EmailVerified:
		return GateEmailUnverified
	case !st.BrokerVerified:
		return GateBrokerUnlinked
	default:
		return GateDepositInsufficient
	}
}

// Gate answers "may this user see signals" by asking the server and
// failing closed: any error means no access.
type Gate struct {
	client *Client
}

func NewGate(client *Client) *Gate {
	return &Gate{client: client}
}

// Check fetches the access status and derives the funnel state. On any
// error the gate reports the most restrictive state alongside the error,
// so callers that ignore the error still deny access.
func (g *Gate) Check(ctx context.Context) (GateState, *AccessStatus, error) {
	st, err := g.client.CanAccessSignals(ctx)
	if err != nil {
		return GateEmailUnverified, nil, err
	}
	return DeriveGateState(st), st, nil
}
