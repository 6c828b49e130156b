package proxy

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/circuitbreaker"
	"github.com/klya-ai/klya-api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(t *testing.T, backend *httptest.Server, apiKey string, maxFailures int) (*gin.Engine, *Upstream) {
	t.Helper()

	upstream, err := New(Config{
		BaseURL: backend.URL,
		APIKey:  apiKey,
		Timeout: time.Second,
		Breaker: circuitbreaker.Config{MaxFailures: maxFailures, Cooldown: time.Minute},
	}, logger.Discard())
	require.NoError(t, err)

	r := gin.New()
	r.POST("/v1/content/generate", upstream.Forward("/v1/chat/completions"))
	return r, upstream
}

func TestForward_RewritesPathAndCredentials(t *testing.T) {
	var gotPath, gotAuth, gotAPIKey, gotBody string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotAPIKey = r.Header.Get("X-API-Key")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id":"chatcmpl-1"}`))
	}))
	defer backend.Close()

	r, _ := newRouter(t, backend, "sk-upstream", 5)

	req := httptest.NewRequest(http.MethodPost, "/v1/content/generate", strings.NewReader(`{"prompt":"hi"}`))
	req.Header.Set("X-API-Key", "klya_secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"chatcmpl-1"}`, w.Body.String())
	assert.Equal(t, "/v1/chat/completions", gotPath)
	assert.Equal(t, "Bearer sk-upstream", gotAuth)
	assert.Empty(t, gotAPIKey)
	assert.Equal(t, `{"prompt":"hi"}`, gotBody)
}

func TestForward_NotConfigured(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("upstream must not be called")
	}))
	defer backend.Close()

	r, upstream := newRouter(t, backend, "", 5)
	assert.False(t, upstream.Configured())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/content/generate", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestForward_BreakerOpensOnServerErrors(t *testing.T) {
	calls := 0
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer backend.Close()

	r, upstream := newRouter(t, backend, "sk-upstream", 2)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/content/generate", nil))
		codes = append(codes, w.Code)
		if i == 2 {
			assert.NotEmpty(t, w.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusBadGateway, http.StatusBadGateway, http.StatusServiceUnavailable}, codes)
	assert.Equal(t, 2, calls)
	assert.Equal(t, "open", upstream.Status().State)
}

func TestForward_UnreachableUpstream(t *testing.T) {
	backend := httptest.NewServer(http.NotFoundHandler())
	backend.Close()

	r, _ := newRouter(t, backend, "sk-upstream", 5)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/content/generate", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"}, logger.Discard())
	assert.Error(t, err)
}
