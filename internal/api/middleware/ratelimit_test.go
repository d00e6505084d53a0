package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargepath/chargepath/internal/api/middleware"
	"github.com/chargepath/chargepath/internal/api/models"
)

func fromIP(path, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, http.NoBody)
	req.RemoteAddr = addr
	return req
}

func TestRateLimitByIP_BudgetPerClient(t *testing.T) {
	h := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(status(http.StatusOK))

	for i := range 2 {
		assert.Equal(t, http.StatusOK, do(h, fromIP("/v1/trips:plan", "172.16.0.1:1000")).Code, "request %d", i+1)
	}
	assert.Equal(t, http.StatusTooManyRequests, do(h, fromIP("/v1/trips:plan", "172.16.0.1:1000")).Code)
	assert.Equal(t, http.StatusOK, do(h, fromIP("/v1/trips:plan", "172.16.0.2:1000")).Code, "other clients keep their budget")
}

func TestRateLimitByIP_Problem(t *testing.T) {
	h := middleware.RequestID(
		middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 10 * time.Second})(status(http.StatusOK)),
	)

	require.Equal(t, http.StatusOK, do(h, fromIP("/v1/stations", "203.0.113.1:5000")).Code)
	rec := do(h, fromIP("/v1/stations", "203.0.113.1:5000"))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))

	var problem models.Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
	assert.Equal(t, models.ProblemTypeTooManyRequests, problem.Type)
	assert.Equal(t, "/v1/stations", problem.Instance)
	assert.Equal(t, rec.Header().Get(middleware.RequestIDHeader), problem.TraceID)
}

func TestRateLimitByIP_SubSecondWindowAdvertisesOneSecond(t *testing.T) {
	h := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 500 * time.Millisecond})(status(http.StatusOK))

	do(h, fromIP("/v1/charging:estimate", "198.51.100.7:4000"))
	rec := do(h, fromIP("/v1/charging:estimate", "198.51.100.7:4000"))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimitBudgets(t *testing.T) {
	assert.Less(t, middleware.PlanningRateLimit.RequestLimit, middleware.ExpensiveRateLimit.RequestLimit)
	assert.Less(t, middleware.ExpensiveRateLimit.RequestLimit, middleware.StandardRateLimit.RequestLimit)
	for _, cfg := range []middleware.RateLimitConfig{middleware.PlanningRateLimit, middleware.ExpensiveRateLimit, middleware.StandardRateLimit} {
		assert.Equal(t, time.Minute, cfg.WindowLength)
	}
}
