package middleware

import (
	"sync"
	"time"
)

type clientInfo struct {
	start time.Time
	count int
}

// localLimiter is a fixed-window counter kept in process. It backs the Redis
// limiter whenever Redis is not configured or fails.
type localLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	now     func() time.Time
}

func newLocalLimiter() *localLimiter {
	return &localLimiter{clients: make(map[string]*clientInfo), now: time.Now}
}

// allow counts one hit for key and reports the running count in the window.
func (l *localLimiter) allow(key string, window time.Duration) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) >= window {
		if len(l.clients) > 10000 {
			l.sweep(now, window)
		}
		l.clients[key] = &clientInfo{start: now, count: 1}
		return 1
	}
	ci.count++
	return int64(ci.count)
}

func (l *localLimiter) sweep(now time.Time, window time.Duration) {
	for k, ci := range l.clients {
		if now.Sub(ci.start) >= window {
			delete(l.clients, k)
		}
	}
}
