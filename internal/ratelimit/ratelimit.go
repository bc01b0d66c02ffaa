// Package ratelimit counts attempts per key in fixed time windows.
package ratelimit

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Limiter decides whether another attempt is allowed for a key.
type Limiter interface {
	Allow(key string) bool
}

// FixedWindow allows Limit attempts per key in each window. A window starts
// with the first attempt for the key and ends Window later.
type FixedWindow struct {
	limit  int
	window time.Duration
	counts *cache.Cache
}

// NewFixedWindow creates a fixed-window limiter.
func NewFixedWindow(limit int, window time.Duration) *FixedWindow {
	return &FixedWindow{
		limit:  limit,
		window: window,
		counts: cache.New(window, 2*window),
	}
}

// Allow records an attempt and reports whether it is within the limit.
func (l *FixedWindow) Allow(key string) bool {
	if err := l.counts.Add(key, 1, l.window); err == nil {
		return l.limit >= 1
	}

	n, err := l.counts.IncrementInt(key, 1)
	if err != nil {
		// the window expired between Add and IncrementInt
		l.counts.Set(key, 1, l.window)
		return l.limit >= 1
	}

	return n <= l.limit
}

// Reset forgets every key.
func (l *FixedWindow) Reset() {
	l.counts.Flush()
}
