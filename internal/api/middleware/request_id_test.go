package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chargepath/chargepath/internal/api/middleware"
)

func TestRequestID(t *testing.T) {
	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "missing", incoming: "", keep: false},
		{name: "caller supplied", incoming: "trip-7f3a", keep: true},
		{name: "too long", incoming: strings.Repeat("x", 129), keep: false},
		{name: "max length", incoming: strings.Repeat("x", 128), keep: true},
		{name: "contains space", incoming: "plan 42", keep: false},
		{name: "control character", incoming: "plan\x0142", keep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = middleware.GetRequestID(r.Context())
			}))

			req := httptest.NewRequest(http.MethodPost, "/v1/trips:plan", http.NoBody)
			if tt.incoming != "" {
				req.Header.Set(middleware.RequestIDHeader, tt.incoming)
			}
			rec := do(h, req)

			got := rec.Header().Get(middleware.RequestIDHeader)
			assert.Equal(t, seen, got, "context and header must agree")
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.True(t, strings.HasPrefix(got, "req_"), got)
			}
		})
	}
}

func TestRequestID_Unique(t *testing.T) {
	h := middleware.RequestID(status(http.StatusOK))
	seen := make(map[string]bool)
	for range 50 {
		id := do(h, httptest.NewRequest(http.MethodGet, "/v1/stations", http.NoBody)).Header().Get(middleware.RequestIDHeader)
		assert.False(t, seen[id], "duplicate request ID %s", id)
		seen[id] = true
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(httptest.NewRequest(http.MethodGet, "/", http.NoBody).Context()))
}
