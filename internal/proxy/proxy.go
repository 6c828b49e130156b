package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/circuitbreaker"
)

var errUpstreamStatus = errors.New("upstream returned a server error")

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	Breaker circuitbreaker.Config
}

// Upstream forwards generation requests to the model provider with the
// service's own credentials, behind a circuit breaker.
type Upstream struct {
	target  *url.URL
	apiKey  string
	timeout time.Duration
	proxy   *httputil.ReverseProxy
	breaker *circuitbreaker.Breaker
	log     *slog.Logger
}

func New(cfg Config, log *slog.Logger) (*Upstream, error) {
	target, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("invalid upstream url: %q", cfg.BaseURL)
	}

	u := &Upstream{
		target:  target,
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
		breaker: circuitbreaker.New(cfg.Breaker),
		log:     log,
	}

	u.proxy = &httputil.ReverseProxy{
		Rewrite: u.rewrite,
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: cfg.Timeout,
			IdleConnTimeout:       90 * time.Second,
			MaxIdleConnsPerHost:   32,
		},
		ErrorHandler: u.handleError,
	}

	return u, nil
}

// Configured reports whether an upstream credential is set.
func (u *Upstream) Configured() bool {
	return u.apiKey != ""
}

func (u *Upstream) rewrite(pr *httputil.ProxyRequest) {
	pr.SetURL(u.target)
	pr.SetXForwarded()

	// the caller's KLYA key never leaves this service
	pr.Out.Header.Del("X-API-Key")
	pr.Out.Header.Del("Cookie")
	pr.Out.Header.Set("Authorization", "Bearer "+u.apiKey)
}

func (u *Upstream) handleError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}

	u.log.Error("upstream_request_failed",
		"path", r.URL.Path,
		"error", err.Error(),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"Upstream request failed"}`))
}

// Forward returns a handler that relays the request to upstreamPath.
func (u *Upstream) Forward(upstreamPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !u.Configured() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Generation upstream is not configured",
			})
			return
		}

		err := u.breaker.Do(func() error {
			ctx := c.Request.Context()
			if u.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, u.timeout)
				defer cancel()
			}

			req := c.Request.Clone(ctx)
			req.URL.Path = upstreamPath
			req.URL.RawPath = ""

			u.proxy.ServeHTTP(c.Writer, req)

			if c.Writer.Status() >= http.StatusInternalServerError {
				return errUpstreamStatus
			}
			return nil
		})

		if errors.Is(err, circuitbreaker.ErrOpen) {
			retryAfter := int(math.Ceil(u.breaker.RetryAfter().Seconds()))
			u.log.Warn("upstream_circuit_open", "path", upstreamPath)

			c.Header("Retry-After", fmt.Sprintf("%d", retryAfter))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Service temporarily unavailable",
			})
		}
	}
}

// Status reports the breaker state for the health endpoint.
func (u *Upstream) Status() circuitbreaker.Snapshot {
	return u.breaker.Snapshot()
}
