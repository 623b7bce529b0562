// Package ratelimit implements per-identifier fixed-window attempt counters.
package ratelimit

import (
	"sync"
	"time"
)

// Limiter caps repeated actions per identifier.
type Limiter interface {
	// Allow records an attempt for key and reports whether it is within max per window.
	Allow(key string, max int, window time.Duration) bool
	// Reset clears the window for key, typically after a successful submission.
	Reset(key string)
}

type window struct {
	count int
	start time.Time
	span  time.Duration
}

// Memory is a process-local fixed-window limiter. State is lost on restart and is
// not shared between replicas.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	windows map[string]window
	calls   int
}

// Option configures a Memory limiter.
type Option func(*Memory)

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(m *Memory) {
		if fn != nil {
			m.now = fn
		}
	}
}

func NewMemory(opts ...Option) *Memory {
	m := &Memory{
		now:     time.Now,
		windows: make(map[string]window),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

const sweepEvery = 1024

func (m *Memory) Allow(key string, max int, span time.Duration) bool {
	if max < 1 {
		max = 1
	}
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.calls%sweepEvery == 0 {
		m.sweep(now)
	}

	w, ok := m.windows[key]
	if !ok || now.Sub(w.start) > span {
		m.windows[key] = window{count: 1, start: now, span: span}
		return true
	}
	w.count++
	w.span = span
	m.windows[key] = w
	return w.count <= max
}

func (m *Memory) Reset(key string) {
	m.mu.Lock()
	delete(m.windows, key)
	m.mu.Unlock()
}

// Len reports the number of tracked windows.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}

func (m *Memory) sweep(now time.Time) {
	for k, w := range m.windows {
		if now.Sub(w.start) > w.span {
			delete(m.windows, k)
		}
	}
}
