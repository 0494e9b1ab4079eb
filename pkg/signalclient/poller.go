package signalclient

import (
	"context"
	"errors"
	"sync"
	"time"
)

const (
	defaultPollInterval = 5 * time.Second
	defaultTickInterval = time.Second
)

// State is one consistent snapshot of what a subscriber should render:
// the current signal (nil when none), its countdown, the rolling stats
// and the last fetch error.
type State struct {
	Symbol    string
	Timeframe string

	Signal    *Signal
	Countdown Countdown
	Stats     *Stats

	// Err is the last fetch failure. A nil Signal with a nil Err means
	// the server reported no signal for the pair.
	Err error

	UpdatedAt time.Time
}

// Poller keeps the signal and stats for one selected (symbol, timeframe)
// pair fresh. Switching pairs supersedes any fetch still in flight, so a
// slow response for the old pair can never overwrite the new one.
type Poller struct {
	client *Client

	pollEvery time.Duration
	tickEvery time.Duration
	onUpdate  func(State)

	mu          sync.Mutex
	generation  uint64
	state       State
	refetched   bool // expiry refetch already fired for the current signal
	cancelFetch context.CancelFunc

	pairCh chan struct{}
}

type PollerOption func(*Poller)

// WithPollInterval sets how often the server is asked for fresh data.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.pollEvery = d
		}
	}
}

// WithTickInterval sets how often the countdown is re-derived locally.
func WithTickInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.tickEvery = d
		}
	}
}

// WithUpdateFunc registers a callback invoked with every state change.
// It runs on the poller goroutine and must not block.
func WithUpdateFunc(fn func(State)) PollerOption {
	return func(p *Poller) { p.onUpdate = fn }
}

func NewPoller(client *Client, symbol, timeframe string, opts ...PollerOption) *Poller {
	p := &Poller{
		client:    client,
		pollEvery: defaultPollInterval,
		tickEvery: defaultTickInterval,
		state:     State{Symbol: symbol, Timeframe: timeframe},
		pairCh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetPair switches the subscription to a new pair. The previous pair's
// state is cleared immediately and any in-flight fetch is superseded.
func (p *Poller) SetPair(symbol, timeframe string) {
	p.mu.Lock()
	if p.state.Symbol == symbol && p.state.Timeframe == timeframe {
		p.mu.Unlock()
		return
	}
	p.generation++
	p.state = State{Symbol: symbol, Timeframe: timeframe}
	p.refetched = false
	if p.cancelFetch != nil {
		// Abort any fetch still in flight for the old pair.
		p.cancelFetch()
	}
	p.mu.Unlock()

	// Nudge the run loop to fetch the new pair right away.
	select {
	case p.pairCh <- struct{}{}:
	default:
	}
}

// Snapshot returns the current state.
func (p *Poller) Snapshot() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run polls until ctx is cancelled. It fetches immediately on start and
// after every pair switch, then on the poll interval; between polls the
// countdown is re-derived locally every tick.
func (p *Poller) Run(ctx context.Context) error {
	p.fetch(ctx)

	poll := time.NewTicker(p.pollEvery)
	tick := time.NewTicker(p.tickEvery)
	defer poll.Stop()
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-p.pairCh:
			p.fetch(ctx)
			poll.Reset(p.pollEvery)
		case <-poll.C:
			p.fetch(ctx)
		case <-tick.C:
			if p.advanceCountdown() {
				// The signal just ran out; ask the server once for a
				// successor instead of waiting out the poll interval.
				p.fetch(ctx)
			}
		}
	}
}

// advanceCountdown recomputes the countdown from the wall clock. It
// returns true exactly once per signal, at the moment the window closes.
func (p *Poller) advanceCountdown() (justExpired bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.Signal == nil {
		return false
	}
	cd := CountdownAt(p.state.Signal, time.Now())
	p.state.Countdown = cd
	if cd.Expired && !p.refetched {
		p.refetched = true
		justExpired = true
	}
	p.notifyLocked()
	return justExpired
}

// fetch pulls the signal and stats for the pair selected at call time and
// applies the result only if no pair switch happened in the meantime.
func (p *Poller) fetch(ctx context.Context) {
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p.mu.Lock()
	gen := p.generation
	symbol, tf := p.state.Symbol, p.state.Timeframe
	p.cancelFetch = cancel
	p.mu.Unlock()

	signal, sigErr := p.client.GetSignal(fctx, symbol, tf)
	stats, statsErr := p.client.GetStats(fctx, symbol, tf)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.generation != gen {
		// Superseded by a pair switch; drop the stale response.
		return
	}

	now := time.Now()
	p.state.UpdatedAt = now

	switch {
	case sigErr == nil:
		if p.state.Signal == nil || !p.state.Signal.GeneratedAt.Equal(signal.GeneratedAt) {
			p.refetched = false
		}
		p.state.Signal = signal
		p.state.Countdown = CountdownAt(signal, now)
		p.state.Err = nil
	case errors.Is(sigErr, ErrNoSignal):
		// An empty pair, not a failure.
		p.state.Signal = nil
		p.state.Countdown = Countdown{}
		p.state.Err = nil
		p.refetched = false
	default:
		// Unknown data: clear it rather than show something stale.
		p.state.Signal = nil
		p.state.Countdown = Countdown{}
		p.state.Err = sigErr
		p.refetched = false
	}

	if statsErr == nil {
		p.state.Stats = stats
	} else if !errors.Is(statsErr, context.Canceled) {
		p.state.Stats = nil
		if p.state.Err == nil && !errors.Is(statsErr, ErrNoSignal) {
			p.state.Err = statsErr
		}
	}

	p.notifyLocked()
}

func (p *Poller) notifyLocked() {
	if p.onUpdate != nil {
		p.onUpdate(p.state)
	}
}
