package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalLab/pkg/http/middleware"
)

type echoRequest struct {
	Text  string `json:"text" validate:"required"`
	Limit int    `json:"limit" default:"5" validate:"gte=1,lte=10"`
}

type testHandler struct{}

func (testHandler) RegisterRoutes(e *echo.Echo) {
	e.POST("/echo", func(c echo.Context) error {
		req := &echoRequest{}
		if verr := ReadAndValidateRequest(c, req); verr != nil {
			return BadRequestResponse(c, verr)
		}
		return SuccessResponse(c, req)
	})
	e.GET("/boom", func(c echo.Context) error {
		panic("boom")
	})
	e.GET("/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundError("nothing here"))
	})
	e.GET("/opaque", func(c echo.Context) error {
		return AppErrorResponse(c, errors.New("driver exploded"))
	})
}

func do(t *testing.T, s *Server, method, path, body string) (*httptest.ResponseRecorder, APIResponse) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	var env APIResponse
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func newTestServer(opts ...ServerOption) *Server {
	opts = append([]ServerOption{WithMetrics("", nil, nil)}, opts...)
	return NewServer(testHandler{}, opts...)
}

func TestValidationUsesWireNamesAndDefaults(t *testing.T) {
	s := newTestServer()

	rec, env := do(t, s, http.MethodPost, "/echo", `{"limit":50}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, http.StatusBadRequest, env.Status)
	assert.Contains(t, rec.Body.String(), `"field":"text"`)
	assert.Contains(t, rec.Body.String(), `"ERR_REQUIRED"`)
	assert.Contains(t, rec.Body.String(), `"ERR_LTE"`)

	rec, _ = do(t, s, http.MethodPost, "/echo", `{"text":"hi"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"limit":5`)

	rec, _ = do(t, s, http.MethodPost, "/echo", `{"text":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "ERR_UNKNOWN")
}

func TestAppErrorResponse(t *testing.T) {
	s := newTestServer()

	rec, env := do(t, s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", env.Message)
	assert.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")

	rec, _ = do(t, s, http.MethodGet, "/opaque", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "driver exploded")
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	s := newTestServer()
	rec, env := do(t, s, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, http.StatusInternalServerError, env.Status)
}

func TestHealthReportsComponents(t *testing.T) {
	s := newTestServer(
		WithHealthCheck("redis", func(context.Context) error { return nil }),
	)
	rec, _ := do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redis":"ok"`)

	s = newTestServer(
		WithHealthCheck("clickhouse", func(context.Context) error { return errors.New("dial tcp: refused") }),
	)
	rec, _ = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "degraded")
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer()
	req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set(echo.HeaderOrigin, "http://localhost:3000")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	assert.Contains(t, rec.Header().Get(echo.HeaderAccessControlAllowMethods), http.MethodPost)
}

type denyAfter struct{ left int }

func (d *denyAfter) Allow(string) bool {
	d.left--
	return d.left >= 0
}

func TestRateLimitMiddleware(t *testing.T) {
	s := newTestServer(WithMiddleware(middleware.RateLimit(&denyAfter{left: 1}, ClientKey, func(c echo.Context) bool {
		return c.Path() == "/healthz"
	})))

	rec, _ := do(t, s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	rec, _ = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewServer(testHandler{}, WithMetrics("/metrics", reg, reg))

	do(t, s, http.MethodGet, "/missing", "")
	rec, _ := do(t, s, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="GET",route="/missing",status="404"} 1`)
}
