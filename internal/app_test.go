package internal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tally/internal/controllers"
	"tally/internal/providers"
	"tally/internal/testutil"

	"github.com/stretchr/testify/assert"
)

func TestNewHandler_InfrastructureRoutes(t *testing.T) {
	conf := testutil.Config()
	conf.Metrics.Enabled = true
	router := providers.NewRouterProvider()
	router.Get("/counter", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))

	h := NewHandler(controllers.NewHealthController(testutil.NewStore(t)), conf, router, &testutil.MockMetrics{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, strings.Contains(rr.Body.String(), "go_goroutines"))

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/counter", nil))
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNewHandler_MetricsDisabled(t *testing.T) {
	conf := testutil.Config()
	h := NewHandler(controllers.NewHealthController(testutil.NewStore(t)), conf, providers.NewRouterProvider(), &testutil.MockMetrics{})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
