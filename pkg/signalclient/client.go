package signalclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const defaultTimeout = 15 * time.Second

// Client is the typed HTTP client for the signals API. It is safe for
// concurrent use.
type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string

	onAuthExpired func()
}

type Option func(*Client)

// WithHTTPClient swaps the underlying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken seeds the bearer token, e.g. from a state file.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithAuthExpiredHook registers a callback fired once per rejected token.
func WithAuthExpiredHook(fn func()) Option {
	return func(c *Client) { c.onAuthExpired = fn }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetToken replaces the bearer token after a login.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the current bearer token.
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, dest interface{}) error {
	var reader io.Reader
	contentType := ""
	switch v := body.(type) {
	case nil:
	case url.Values:
		reader = strings.NewReader(v.Encode())
		contentType = "application/x-www-form-urlencoded"
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = strings.NewReader(string(b))
		contentType = "application/json"
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if tok := c.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		if c.onAuthExpired != nil {
			c.onAuthExpired()
		}
		return ErrAuthExpired
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeAPIError(resp)
	}
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Detail string `json:"detail"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)
	return &APIError{Status: resp.StatusCode, Detail: body.Detail}
}

func pairQuery(symbol, tf string) url.Values {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("tf", tf)
	return q
}

// GetSignal fetches the latest signal for a pair. ErrNoSignal means the
// pair has no signal yet; it is the 404 answer, not a failure.
func (c *Client) GetSignal(ctx context.Context, symbol, tf string) (*Signal, error) {
	var s Signal
	if err := c.do(ctx, http.MethodGet, "/api/signal", pairQuery(symbol, tf), nil, &s); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, ErrNoSignal
		}
		return nil, err
	}
	return &s, nil
}

// GetStats fetches the rolling performance stats for a pair.
func (c *Client) GetStats(ctx context.Context, symbol, tf string) (*Stats, error) {
	var st Stats
	if err := c.do(ctx, http.MethodGet, "/api/stats", pairQuery(symbol, tf), nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// GetSymbols fetches the tradable universe.
func (c *Client) GetSymbols(ctx context.Context) (*SymbolList, error) {
	var sl SymbolList
	if err := c.do(ctx, http.MethodGet, "/api/symbols", nil, nil, &sl); err != nil {
		return nil, err
	}
	return &sl, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, email, password string) (*User, error) {
	var u User
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login exchanges credentials for a bearer token and stores it on the
// client. The endpoint takes form-encoded password-grant fields.
func (c *Client) Login(ctx context.Context, email, password string) (*Token, error) {
	form := url.Values{}
	form.Set("username", email)
	form.Set("password", password)

	var tok Token
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, form, &tok); err != nil {
		return nil, err
	}
	c.SetToken(tok.AccessToken)
	return &tok, nil
}

// Me fetches the authenticated account.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CanAccessSignals asks the server-side access gate.
func (c *Client) CanAccessSignals(ctx context.Context) (*AccessStatus, error) {
	var st AccessStatus
	if err := c.do(ctx, http.MethodGet, "/api/auth/can-access-signals", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// VerifyPocketOption links a broker trader id to the account.
func (c *Client) VerifyPocketOption(ctx context.Context, traderID string) (*AccessStatus, error) {
	var st AccessStatus
	body := map[string]string{"pocket_option_id": traderID}
	if err := c.do(ctx, http.MethodPost, "/api/auth/verify-pocket-option", nil, body, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// CheckBalance refreshes the deposit total from the broker.
func (c *Client) CheckBalance(ctx context.Context) (*AccessStatus, error) {
	var st AccessStatus
	if err := c.do(ctx, http.MethodPost, "/api/auth/check-balance", nil, nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// ResendVerification asks for a fresh verification email.
func (c *Client) ResendVerification(ctx context.Context, email string) error {
	body := map[string]string{"email": email}
	return c.do(ctx, http.MethodPost, "/api/auth/resend-verification", nil, body, nil)
}

// ChangePassword rotates the account password.
func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"old_password": current, "new_password": next}
	return c.do(ctx, http.MethodPost, "/api/auth/change-password", nil, body, nil)
}

// Logout invalidates the session server-side and drops the local token.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
	c.SetToken("")
	return err
}
