package middleware

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/llmkit-go/llmkit/llmkiterr"
)

// OnDeny selects what a denied admission does.
type OnDeny int

const (
	// OnDenyWait blocks until the token bucket admits the request or ctx
	// expires. This is the default (zero value).
	OnDenyWait OnDeny = iota
	// OnDenyFailFast returns a RateLimited error immediately instead of
	// waiting for the bucket to refill.
	OnDenyFailFast
)

// RateLimitConfig configures the token-bucket rate limiter. Limit and Burst
// are the defaults; GroupLimit/GroupBurst override them per group key, so
// e.g. separate budgets can apply per model or per API key.
//
// Domain dependency golang.org/x/time/rate was already present in the
// teacher's go.mod but unwired; this is its first exercised use.
type RateLimitConfig struct {
	Limit rate.Limit
	Burst int

	// GroupKey extracts a grouping key from a request (e.g. model ID). If
	// nil, a single shared limiter is used for every request.
	GroupKey func(req any) string

	GroupLimit map[string]rate.Limit
	GroupBurst map[string]int

	// OnDeny selects wait-vs-fail-fast behavior for a denied admission.
	OnDeny OnDeny

	// MaxInFlight caps concurrent in-flight requests across all groups via
	// a separate semaphore, independent of the token-bucket rate. Zero
	// means no cap.
	MaxInFlight int
}

type limiterSet struct {
	mu       sync.Mutex
	cfg      RateLimitConfig
	limiters map[string]*rate.Limiter
}

func newLimiterSet(cfg RateLimitConfig) *limiterSet {
	return &limiterSet{cfg: cfg, limiters: map[string]*rate.Limiter{}}
}

func (s *limiterSet) get(key string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.limiters[key]; ok {
		return l
	}
	limit := s.cfg.Limit
	burst := s.cfg.Burst
	if gl, ok := s.cfg.GroupLimit[key]; ok {
		limit = gl
	}
	if gb, ok := s.cfg.GroupBurst[key]; ok {
		burst = gb
	}
	l := rate.NewLimiter(limit, burst)
	s.limiters[key] = l
	return l
}

// RateLimit returns a Layer admitting each request through a token bucket
// for its group, and through a shared MaxInFlight semaphore if configured.
// A denied admission either waits for the bucket to refill (OnDenyWait,
// the default) or fails immediately with a RateLimited error
// (OnDenyFailFast), per cfg.OnDeny.
func RateLimit[Req, Res any](cfg RateLimitConfig) Layer[Req, Res] {
	set := newLimiterSet(cfg)
	var sem chan struct{}
	if cfg.MaxInFlight > 0 {
		sem = make(chan struct{}, cfg.MaxInFlight)
	}

	return LayerFunc[Req, Res](func(next Service[Req, Res]) Service[Req, Res] {
		return ServiceFunc[Req, Res](func(ctx context.Context, req Req) (Res, error) {
			key := ""
			if cfg.GroupKey != nil {
				key = cfg.GroupKey(req)
			}
			limiter := set.get(key)

			var zero Res
			switch cfg.OnDeny {
			case OnDenyFailFast:
				if !limiter.Allow() {
					return zero, llmkiterr.NewRateLimited(nil, "rate limit exceeded for group %q", key)
				}
			default:
				if err := limiter.Wait(ctx); err != nil {
					return zero, llmkiterr.NewRateLimited(nil, "rate limit wait: %v", err)
				}
			}

			if sem != nil {
				select {
				case sem <- struct{}{}:
					defer func() { <-sem }()
				case <-ctx.Done():
					return zero, llmkiterr.NewRateLimited(nil, "max in-flight wait cancelled: %v", ctx.Err())
				}
			}

			return next.Handle(ctx, req)
		})
	})
}
