package ratelimit

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter *rate.Limiter
	last    time.Time
}

// PerKey keeps one token bucket per client key (usually the remote IP) in a
// bounded LRU. Keys idle for longer than ttl start over with a full bucket.
type PerKey struct {
	mu       sync.Mutex
	visitors *lru.Cache[string, *visitor]
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
}

// New starts a janitor that drops idle keys until ctx is done.
func New(ctx context.Context, rps, burst, cacheSize int, ttl time.Duration) (*PerKey, error) {
	cache, err := lru.New[string, *visitor](cacheSize)
	if err != nil {
		return nil, err
	}
	l := &PerKey{
		visitors: cache,
		limit:    rate.Limit(rps),
		burst:    burst,
		ttl:      ttl,
		now:      time.Now,
	}
	go l.janitor(ctx)
	return l, nil
}

func (l *PerKey) Allow(key string) bool {
	l.mu.Lock()
	now := l.now()
	v, ok := l.visitors.Get(key)
	if !ok || now.Sub(v.last) > l.ttl {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors.Add(key, v)
	}
	v.last = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

func (l *PerKey) Len() int { return l.visitors.Len() }

func (l *PerKey) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for _, key := range l.visitors.Keys() {
		if v, ok := l.visitors.Peek(key); ok && now.Sub(v.last) > l.ttl {
			l.visitors.Remove(key)
		}
	}
}

func (l *PerKey) janitor(ctx context.Context) {
	ticker := time.NewTicker(l.ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictIdle()
		}
	}
}
