package server

import (
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/goliatone/go-jobportal"
	"github.com/goliatone/go-router"
	"golang.org/x/time/rate"
)

// RequestLogger logs one line per request. Chain errors are rendered
// here so the logged status matches the response.
func RequestLogger(logger auth.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		args := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", c.Response().StatusCode(),
			"latency", time.Since(start).String(),
			"request_id", requestID(c),
		}
		if c.Response().StatusCode() >= fiber.StatusInternalServerError {
			logger.Error("request", args...)
		} else {
			logger.Info("request", args...)
		}
		return nil
	}
}

func requestID(c *fiber.Ctx) string {
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		return id
	}
	return ""
}

// RateLimitConfig holds configuration for the rate limiter middleware.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate (tokens added per second).
	RequestsPerSecond float64
	// Burst is the maximum number of requests allowed in a burst.
	Burst int
	// IdleTTL drops limiters of clients not seen for this long.
	IdleTTL time.Duration
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterSet struct {
	cfg       RateLimitConfig
	mu        sync.Mutex
	clients   map[string]*clientLimiter
	lastSweep time.Time
	now       func() time.Time
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastSweep) > s.cfg.IdleTTL {
		for k, cl := range s.clients {
			if now.Sub(cl.lastSeen) > s.cfg.IdleTTL {
				delete(s.clients, k)
			}
		}
		s.lastSweep = now
	}

	cl, ok := s.clients[key]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(rate.Limit(s.cfg.RequestsPerSecond), s.cfg.Burst)}
		s.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimiter enforces a per client IP token bucket. Rejected requests
// fail with auth.ErrTooManyRequests and a Retry-After header.
func RateLimiter(cfg RateLimitConfig, logger auth.Logger) router.MiddlewareFunc {
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 1
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	set := &limiterSet{cfg: cfg, clients: map[string]*clientLimiter{}, now: time.Now}

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			limiter := set.get(ctx.IP())

			reservation := limiter.Reserve()
			if !reservation.OK() {
				return auth.ErrTooManyRequests
			}

			if delay := reservation.Delay(); delay > 0 {
				reservation.Cancel()
				ctx.SetHeader(fiber.HeaderRetryAfter, strconv.Itoa(int(delay.Seconds())+1))
				logger.Warn("rate limit exceeded", "ip", ctx.IP(), "path", ctx.Path())
				return auth.WithDetails(auth.ErrTooManyRequests, nil, map[string]any{"ip": ctx.IP()})
			}

			ctx.SetHeader("X-RateLimit-Limit", strconv.Itoa(cfg.Burst))
			ctx.SetHeader("X-RateLimit-Remaining", strconv.Itoa(int(limiter.Tokens())))
			return next(ctx)
		}
	}
}
