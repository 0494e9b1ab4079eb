package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	domain "tradevision/internal/domain/repository"
	httpclient "tradevision/pkg/http"
	"tradevision/pkg/logger"
)

// ErrUnavailable is returned when the affiliate API is unreachable or the
// circuit is open. Callers must treat it as "cannot verify right now",
// never as a negative answer.
var ErrUnavailable = errors.New("broker api unavailable")

// Client calls the Pocket Option affiliate API. All calls run through a
// circuit breaker so a flapping upstream does not stall auth flows.
type Client struct {
	http    *httpclient.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
	apiKey  string
	metrics domain.Metrics
	log     *logger.Logger
}

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

func NewClient(cfg Config, metrics domain.Metrics, log *logger.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	settings := gobreaker.Settings{
		Name:    "pocket-option",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("broker breaker state change",
				logger.String("from", from.String()),
				logger.String("to", to.String()))
		},
	}
	return &Client{
		http:    httpclient.NewClient(httpclient.WithTimeout(timeout)),
		breaker: gobreaker.NewCircuitBreaker(settings),
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		metrics: metrics,
		log:     log,
	}
}

type traderResponse struct {
	TraderID     string  `json:"trader_id"`
	Registered   bool    `json:"registered"`
	TotalDeposit float64 `json:"total_deposit"`
}

func (c *Client) fetchTrader(ctx context.Context, traderID string) (*traderResponse, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		var resp traderResponse
		err := c.http.DoJSON(ctx, &httpclient.RequestOptions{
			Method: http.MethodGet,
			URL:    fmt.Sprintf("%s/v1/traders/%s", c.baseURL, url.PathEscape(traderID)),
			Headers: map[string]string{
				"Authorization": "Bearer " + c.apiKey,
			},
		}, &resp)
		if err != nil {
			var se *httpclient.StatusError
			if errors.As(err, &se) && se.Status == http.StatusNotFound {
				// Unknown trader is a definitive answer, not a failure.
				return &traderResponse{TraderID: traderID}, nil
			}
			return nil, err
		}
		return &resp, nil
	})
	if err != nil {
		c.metrics.RecordBrokerCheck("error")
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out.(*traderResponse), nil
}

// VerifyTrader reports whether the trader id is registered under the
// affiliate account.
func (c *Client) VerifyTrader(ctx context.Context, traderID string) (bool, error) {
	resp, err := c.fetchTrader(ctx, traderID)
	if err != nil {
		return false, err
	}
	if resp.Registered {
		c.metrics.RecordBrokerCheck("registered")
	} else {
		c.metrics.RecordBrokerCheck("unknown")
	}
	return resp.Registered, nil
}

// TotalDeposit returns the trader's cumulative deposit in USD.
func (c *Client) TotalDeposit(ctx context.Context, traderID string) (float64, error) {
	resp, err := c.fetchTrader(ctx, traderID)
	if err != nil {
		return 0, err
	}
	c.metrics.RecordBrokerCheck("balance")
	return resp.TotalDeposit, nil
}
