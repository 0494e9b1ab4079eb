package usecase

import (
	"context"
	"sync"
	"time"

	"tradevision/internal/domain/models"
	domrepo "tradevision/internal/domain/repository"
)

type fakeSignalStore struct {
	mu      sync.Mutex
	signals []*models.Signal
	nextID  int64
	failAll bool
}

func (f *fakeSignalStore) Init(context.Context) error { return nil }
func (f *fakeSignalStore) Close() error               { return nil }
func (f *fakeSignalStore) Health(context.Context) error {
	return nil
}

func (f *fakeSignalStore) Insert(_ context.Context, s *models.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errTestBoom
	}
	for _, existing := range f.signals {
		if existing.Symbol == s.Symbol && existing.Timeframe == s.Timeframe && existing.Timestamp.Equal(s.Timestamp) {
			return domrepo.ErrDuplicate
		}
	}
	f.nextID++
	s.ID = f.nextID
	s.CreatedAt = time.Now()
	copied := *s
	f.signals = append(f.signals, &copied)
	return nil
}

func (f *fakeSignalStore) Latest(_ context.Context, symbol, tf string) (*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest *models.Signal
	for _, s := range f.signals {
		if s.Symbol != symbol || s.Timeframe != tf {
			continue
		}
		if latest == nil || s.Timestamp.After(latest.Timestamp) {
			latest = s
		}
	}
	if latest == nil {
		return nil, domrepo.ErrNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeSignalStore) Recent(_ context.Context, symbol, tf string, limit int) ([]*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Signal
	for i := len(f.signals) - 1; i >= 0 && len(out) < limit; i-- {
		s := f.signals[i]
		if s.Symbol == symbol && s.Timeframe == tf {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeSignalStore) Between(_ context.Context, symbol, tf string, from, to time.Time) ([]*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Signal
	for _, s := range f.signals {
		if s.Symbol != symbol || s.Timeframe != tf {
			continue
		}
		if s.Timestamp.Before(from) || s.Timestamp.After(to) {
			continue
		}
		copied := *s
		out = append(out, &copied)
	}
	return out, nil
}

func (f *fakeSignalStore) Settle(_ context.Context, id int64, verdict models.Verdict) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.signals {
		if s.ID == id && s.Verdict == nil {
			v := verdict
			s.Verdict = &v
			return nil
		}
	}
	return domrepo.ErrNotFound
}

func (f *fakeSignalStore) UnsettledExpiredBefore(_ context.Context, cutoff time.Time) ([]*models.Signal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Signal
	for _, s := range f.signals {
		if s.Verdict == nil && s.ExpireAt.Before(cutoff) {
			copied := *s
			out = append(out, &copied)
		}
	}
	return out, nil
}

type fakeUserStore struct {
	mu              sync.Mutex
	users           map[string]*models.User // by email
	nextID          int64
	postbacks       []*models.PostbackLog
	traderLookupErr error
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.User)}
}

func (f *fakeUserStore) Init(context.Context) error { return nil }

func (f *fakeUserStore) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.Email]; ok {
		return domrepo.ErrDuplicate
	}
	f.nextID++
	u.ID = f.nextID
	u.AccessLevel = models.AccessNone
	copied := *u
	f.users[u.Email] = &copied
	return nil
}

func (f *fakeUserStore) ByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[email]
	if !ok {
		return nil, domrepo.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserStore) ByVerificationToken(_ context.Context, token string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.VerificationToken != nil && *u.VerificationToken == token {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domrepo.ErrNotFound
}

func (f *fakeUserStore) ByTraderID(_ context.Context, traderID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.traderLookupErr != nil {
		return nil, f.traderLookupErr
	}
	for _, u := range f.users {
		if u.TraderID != nil && *u.TraderID == traderID {
			copied := *u
			return &copied, nil
		}
	}
	return nil, domrepo.ErrNotFound
}

func (f *fakeUserStore) update(id int64, fn func(*models.User)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == id {
			fn(u)
			return nil
		}
	}
	return domrepo.ErrNotFound
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, id int64) error {
	return f.update(id, func(u *models.User) {
		u.EmailVerified = true
		u.VerificationToken = nil
	})
}

func (f *fakeUserStore) SetVerificationToken(_ context.Context, id int64, token string) error {
	return f.update(id, func(u *models.User) { u.VerificationToken = &token })
}

func (f *fakeUserStore) SetPasswordHash(_ context.Context, id int64, hash string) error {
	return f.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (f *fakeUserStore) LinkBroker(_ context.Context, id int64, traderID string) error {
	return f.update(id, func(u *models.User) {
		u.TraderID = &traderID
		u.BrokerVerified = true
	})
}

func (f *fakeUserStore) UpdateDeposit(_ context.Context, id int64, total float64, level models.AccessLevel) error {
	return f.update(id, func(u *models.User) {
		u.TotalDeposit = total
		u.AccessLevel = level
	})
}

func (f *fakeUserStore) LogPostback(_ context.Context, entry *models.PostbackLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry.ID = int64(len(f.postbacks) + 1)
	entry.ReceivedAt = time.Now()
	copied := *entry
	f.postbacks = append(f.postbacks, &copied)
	return nil
}

func (f *fakeUserStore) postbackLogs() []*models.PostbackLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.PostbackLog(nil), f.postbacks...)
}

type fakeBroker struct {
	registered map[string]float64 // trader id -> total deposit
	err        error
}

func (f *fakeBroker) VerifyTrader(_ context.Context, traderID string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	_, ok := f.registered[traderID]
	return ok, nil
}

func (f *fakeBroker) TotalDeposit(_ context.Context, traderID string) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.registered[traderID], nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*models.SignalEvent
}

func (p *capturePublisher) Publish(_ context.Context, ev *models.SignalEvent) error {
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func (p *capturePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

type nopMetrics struct{}

func (nopMetrics) RecordSignalIngested(string, string) {}
func (nopMetrics) RecordDuplicate(string)              {}
func (nopMetrics) RecordCacheOp(string)                {}
func (nopMetrics) RecordError(string)                  {}
func (nopMetrics) RecordBrokerCheck(string)            {}
func (nopMetrics) RecordPostback(string, string)       {}
func (nopMetrics) RecordVerdict(string)                {}

type captureMailer struct {
	mu   sync.Mutex
	sent []string // "email:token"
}

func (m *captureMailer) SendVerification(_ context.Context, to, token string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to+":"+token)
	m.mu.Unlock()
	return nil
}

var errTestBoom = errBoom{}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }
