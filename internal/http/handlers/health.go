package handlers

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc checks one dependency.
type PingFunc func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	checks  map[string]PingFunc
	primary string
	started time.Time
	version string
}

// NewHealthHandler creates a health handler. primary names the check /health
// relies on; all checks feed /readyz.
func NewHealthHandler(version, primary string, checks map[string]PingFunc) *HealthHandler {
	return &HealthHandler{
		checks:  checks,
		primary: primary,
		started: time.Now(),
		version: version,
	}
}

type checkResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency"`
}

type readiness struct {
	Status   string        `json:"status"`
	Version  string        `json:"version,omitempty"`
	Uptime   string        `json:"uptime"`
	At       time.Time     `json:"at"`
	AllocMB  uint64        `json:"alloc_mb"`
	Routines int           `json:"goroutines"`
	Checks   []checkResult `json:"checks"`
}

// Liveness answers as long as the process serves requests.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness pings every dependency concurrently; any failure is a 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	results := h.runChecks(ctx)
	resp := readiness{
		Status:   "ready",
		Version:  h.version,
		Uptime:   time.Since(h.started).Round(time.Second).String(),
		At:       time.Now().UTC(),
		Routines: runtime.NumGoroutine(),
		Checks:   results,
	}
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	resp.AllocMB = m.Alloc >> 20

	code := http.StatusOK
	for _, r := range results {
		if !r.Healthy {
			resp.Status = "not_ready"
			code = http.StatusServiceUnavailable
			break
		}
	}
	c.JSON(code, resp)
}

func (h *HealthHandler) runChecks(ctx context.Context) []checkResult {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make([]checkResult, 0, len(h.checks))
	)
	for name, ping := range h.checks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			start := time.Now()
			err := ping(ctx)
			r := checkResult{Name: name, Healthy: err == nil, Latency: time.Since(start).Round(time.Microsecond).String()}
			if err != nil {
				r.Error = err.Error()
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}
	wg.Wait()
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

// Health checks only the primary store.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	if ping, ok := h.checks[h.primary]; ok {
		if err := ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": h.primary + " unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": h.version})
}
