package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/arbywatch/arbywatch/internal/logging"
)

// Status represents the health status of a component.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

type Check struct {
	Name        string        `json:"name"`
	Status      Status        `json:"status"`
	Message     string        `json:"message,omitempty"`
	LastChecked time.Time     `json:"last_checked"`
	Duration    time.Duration `json:"duration_ms"`
}

type Response struct {
	Status    Status            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    []Check           `json:"checks"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Checker is a single component health probe.
type Checker interface {
	Check(ctx context.Context) Check
}

// Handler serves liveness, readiness and per-component health.
// Readiness doubles as the startup gate: the scheduler is not started
// until the handler is marked ready.
type Handler struct {
	mu       sync.RWMutex
	checkers map[string]Checker
	metadata map[string]string
	logger   *logging.Logger
	ready    bool
}

func NewHandler(logger *logging.Logger) *Handler {
	return &Handler{
		checkers: make(map[string]Checker),
		metadata: make(map[string]string),
		logger:   logger,
	}
}

func (h *Handler) RegisterChecker(name string, checker Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers[name] = checker
}

func (h *Handler) SetMetadata(key, value string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.metadata[key] = value
}

func (h *Handler) SetReady(ready bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ready = ready
}

func (h *Handler) IsReady() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ready
}

func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	h.mu.RLock()
	checkers := make(map[string]Checker, len(h.checkers))
	for k, v := range h.checkers {
		checkers[k] = v
	}
	metadata := make(map[string]string, len(h.metadata))
	for k, v := range h.metadata {
		metadata[k] = v
	}
	h.mu.RUnlock()

	response := Response{
		Timestamp: time.Now(),
		Checks:    []Check{},
		Metadata:  metadata,
	}

	overall := StatusHealthy
	for name, checker := range checkers {
		check := checker.Check(ctx)
		check.Name = name
		response.Checks = append(response.Checks, check)
		if check.Status == StatusUnhealthy {
			overall = StatusUnhealthy
		} else if check.Status == StatusDegraded && overall == StatusHealthy {
			overall = StatusDegraded
		}
	}
	response.Status = overall

	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}

func (h *Handler) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	ready := h.ready
	h.mu.RUnlock()

	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]interface{}{"ready": ready, "timestamp": time.Now()})
}

func (h *Handler) LivenessHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{"alive": true, "timestamp": time.Now()})
}

// UpstreamChecker probes one of the fixed upstream endpoints with a HEAD
// request. A slow or erroring upstream degrades rather than fails the
// service: the pipeline still runs and reports Unknown fields.
type UpstreamChecker struct {
	url string
	hc  *http.Client
}

func NewUpstreamChecker(url string, hc *http.Client) *UpstreamChecker {
	return &UpstreamChecker{url: url, hc: hc}
}

func (c *UpstreamChecker) Check(ctx context.Context) Check {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return Check{Status: StatusUnhealthy, Message: err.Error(), LastChecked: time.Now(), Duration: time.Since(start) / time.Millisecond}
	}
	resp, err := c.hc.Do(req)
	duration := time.Since(start)
	if err != nil {
		return Check{Status: StatusDegraded, Message: "upstream unreachable: " + err.Error(), LastChecked: time.Now(), Duration: duration / time.Millisecond}
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Check{Status: StatusDegraded, Message: "upstream returned " + resp.Status, LastChecked: time.Now(), Duration: duration / time.Millisecond}
	}
	return Check{Status: StatusHealthy, Message: "upstream OK", LastChecked: time.Now(), Duration: duration / time.Millisecond}
}

// RedisChecker reports connectivity of the redis channel store.
type RedisChecker struct {
	checkFunc func(ctx context.Context) error
}

func NewRedisChecker(checkFunc func(ctx context.Context) error) *RedisChecker {
	return &RedisChecker{checkFunc: checkFunc}
}

func (c *RedisChecker) Check(ctx context.Context) Check {
	start := time.Now()
	if c.checkFunc == nil {
		return Check{Status: StatusHealthy, Message: "redis not configured", LastChecked: time.Now(), Duration: time.Since(start) / time.Millisecond}
	}
	if err := c.checkFunc(ctx); err != nil {
		return Check{Status: StatusUnhealthy, Message: "redis connection failed: " + err.Error(), LastChecked: time.Now(), Duration: time.Since(start) / time.Millisecond}
	}
	return Check{Status: StatusHealthy, Message: "redis connection OK", LastChecked: time.Now(), Duration: time.Since(start) / time.Millisecond}
}
