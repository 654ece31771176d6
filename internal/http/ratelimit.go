package http

import (
	"sync"
	"time"
)

const (
	rateWindow    = time.Minute
	sweepInterval = 5 * time.Minute
)

// rateLimiter counts mutating requests per client IP in fixed one-minute
// windows. A limit of zero or less lets every request through.
type rateLimiter struct {
	limit int
	now   func() time.Time

	mu      sync.Mutex
	windows map[string]*ipWindow

	done     chan struct{}
	stopOnce sync.Once
}

type ipWindow struct {
	start time.Time
	count int
}

func newRateLimiter(limit int) *rateLimiter {
	rl := &rateLimiter{
		limit:   limit,
		now:     time.Now,
		windows: make(map[string]*ipWindow),
		done:    make(chan struct{}),
	}
	if limit > 0 {
		go rl.sweepLoop()
	}
	return rl
}

func (rl *rateLimiter) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.sweep()
		case <-rl.done:
			return
		}
	}
}

// sweep forgets clients whose window closed more than one window ago.
func (rl *rateLimiter) sweep() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-2 * rateWindow)
	for ip, w := range rl.windows {
		if w.start.Before(cutoff) {
			delete(rl.windows, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.done) })
}

// allow records one request from ip and reports whether it fits the budget.
func (rl *rateLimiter) allow(ip string) bool {
	if rl.limit <= 0 {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[ip]
	if !ok || now.Sub(w.start) >= rateWindow {
		rl.windows[ip] = &ipWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= rl.limit
}
