package healthcheck

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Probe checks one dependency; a nil error means healthy.
type Probe func(ctx context.Context) error

// Status is the last known state of one dependency.
type Status struct {
	Name         string    `json:"name"`
	Healthy      bool      `json:"healthy"`
	FailureCount int       `json:"failure_count"`
	LastCheck    time.Time `json:"last_check"`
	LastError    string    `json:"last_error,omitempty"`
}

type Config struct {
	Interval    time.Duration // default 10s
	Timeout     time.Duration // per probe, default 2s
	MaxFailures int           // consecutive failures before unhealthy, default 2
}

// Checker probes dependencies in the background so health requests read a
// cached result instead of hitting the database on every call.
type Checker struct {
	mu          sync.RWMutex
	probes      map[string]Probe
	status      map[string]*Status
	interval    time.Duration
	timeout     time.Duration
	maxFailures int
	log         *slog.Logger
}

func NewChecker(cfg Config, log *slog.Logger) *Checker {
	if cfg.Interval <= 0 {
		cfg.Interval = 10 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 2
	}

	return &Checker{
		probes:      make(map[string]Probe),
		status:      make(map[string]*Status),
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		maxFailures: cfg.MaxFailures,
		log:         log,
	}
}

// Register adds a dependency. It starts out healthy.
func (c *Checker) Register(name string, probe Probe) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.probes[name] = probe
	c.status[name] = &Status{Name: name, Healthy: true}
}

// Start runs one round immediately, then every interval until ctx is done.
func (c *Checker) Start(ctx context.Context) {
	c.CheckAll(ctx)

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.CheckAll(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// CheckAll probes every dependency concurrently and waits for the results.
func (c *Checker) CheckAll(ctx context.Context) {
	c.mu.RLock()
	probes := make(map[string]Probe, len(c.probes))
	for name, p := range c.probes {
		probes[name] = p
	}
	c.mu.RUnlock()

	var wg sync.WaitGroup
	for name, probe := range probes {
		wg.Add(1)
		go func() {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, c.timeout)
			defer cancel()
			c.record(name, probe(probeCtx))
		}()
	}
	wg.Wait()
}

func (c *Checker) record(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := c.status[name]
	status.LastCheck = time.Now()

	if err == nil {
		if !status.Healthy {
			c.log.Info("dependency_recovered", "dependency", name)
		}
		status.Healthy = true
		status.FailureCount = 0
		status.LastError = ""
		return
	}

	status.FailureCount++
	status.LastError = err.Error()
	if status.Healthy && status.FailureCount >= c.maxFailures {
		c.log.Warn("dependency_unhealthy",
			"dependency", name,
			"failures", status.FailureCount,
			"error", err.Error(),
		)
		status.Healthy = false
	}
}

// Statuses returns a copy of every dependency's status, sorted by name.
func (c *Checker) Statuses() []Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Status, 0, len(c.status))
	for _, s := range c.status {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Healthy reports whether every dependency is healthy.
func (c *Checker) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, s := range c.status {
		if !s.Healthy {
			return false
		}
	}
	return true
}
