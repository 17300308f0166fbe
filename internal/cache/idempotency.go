package cache

import (
	"context"
	"log/slog"
	"time"

	"bookkeeper/internal/core"
)

// Idempotency remembers the confirmation returned for a caller supplied key
// so a retried submission is answered without appending twice. Keys are
// scoped to the session that sent them.
type Idempotency struct {
	lru *LRU[string]
}

func NewIdempotency(capacity int, ttl time.Duration) *Idempotency {
	return &Idempotency{lru: NewLRU[string](capacity, ttl)}
}

func idempotencyKey(s core.Session, key string) string {
	return s.Key() + "#" + key
}

// Lookup returns the confirmation stored for key in session s.
func (i *Idempotency) Lookup(s core.Session, key string) (string, bool) {
	if key == "" {
		return "", false
	}
	return i.lru.Get(idempotencyKey(s, key))
}

// Remember stores confirmation for key. If another request stored one
// first, that earlier confirmation is returned instead.
func (i *Idempotency) Remember(s core.Session, key, confirmation string) string {
	if key == "" {
		return confirmation
	}
	stored, _ := i.lru.Add(idempotencyKey(s, key), confirmation)
	return stored
}

func (i *Idempotency) CleanExpired() int {
	return i.lru.CleanExpired()
}

func (i *Idempotency) Len() int {
	return i.lru.Len()
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// RunJanitor cleans every cache on each tick until ctx is done.
func RunJanitor(ctx context.Context, interval time.Duration, caches ...Cleaner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", total)
			}
		case <-ctx.Done():
			return
		}
	}
}
