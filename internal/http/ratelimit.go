package http

import (
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"bookkeeper/internal/log"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// newRateLimiter builds an in-memory per-client limiter.
func newRateLimiter(rate limiter.Rate) *limiter.Limiter {
	return limiter.New(memory.NewStore(), rate)
}

// withRateLimit rejects writes from clients over their budget. Reads are not
// limited.
func (s *Server) withRateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil || r.Method != http.MethodPost {
			next(w, r)
			return
		}

		logger := log.FromContext(r.Context())
		ip := extractClientIP(r)
		lctx, err := s.limiter.Get(r.Context(), ip)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to get rate limit context", log.FieldClientIP, ip, log.FieldError, err)
			writeError(w, http.StatusInternalServerError, "Internal server error during rate limit check")
			return
		}

		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			atomic.AddInt64(&s.metrics.rateLimitHits, 1)
			logger.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, ip,
				"limit", lctx.Limit)
			retry := time.Until(time.Unix(lctx.Reset, 0))
			if retry < time.Second {
				retry = time.Second
			}
			w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		next(w, r)
	}
}
