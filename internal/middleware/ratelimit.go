package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	xhttp "tradevision/pkg/http"
)

// RateLimit applies a per-client-IP token bucket. Idle limiters are
// dropped after ten minutes without traffic.
func RateLimit(rps float64, burst int) echo.MiddlewareFunc {
	type visitor struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}
	var (
		mu        sync.Mutex
		visitors  = make(map[string]*visitor)
		lastSweep = time.Now()
	)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			now := time.Now()
			mu.Lock()
			if now.Sub(lastSweep) > time.Minute {
				lastSweep = now
				for addr, v := range visitors {
					if now.Sub(v.lastSeen) > 10*time.Minute {
						delete(visitors, addr)
					}
				}
			}
			v, ok := visitors[ip]
			if !ok {
				v = &visitor{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
				visitors[ip] = v
			}
			v.lastSeen = now
			allowed := v.limiter.Allow()
			mu.Unlock()

			if !allowed {
				return xhttp.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
