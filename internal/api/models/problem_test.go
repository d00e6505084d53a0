package models_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chargepath/chargepath/internal/api/models"
)

func TestProblem_Builders(t *testing.T) {
	p := models.NewProblem(models.ProblemTypeValidation, "Validation error", http.StatusBadRequest, "req_1").
		WithDetail("evMaxRangeKm must be a positive number").
		WithInstance("/v1/trips:plan").
		WithErrors([]models.FieldError{{Field: "evMaxRangeKm", Message: "must be a positive number", Code: models.FieldCodeOutOfRange}})

	assert.Equal(t, models.ProblemTypeValidation, p.Type)
	assert.Equal(t, http.StatusBadRequest, p.Status)
	assert.Equal(t, "req_1", p.TraceID)
	assert.Equal(t, "/v1/trips:plan", p.Instance)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "evMaxRangeKm", p.Errors[0].Field)
	assert.Empty(t, p.Code)
}

func TestProblem_Write(t *testing.T) {
	p := models.NewUnprocessable("req_2", "no-chargers-found", "no charging station found for leg 1 of 2")
	p.Instance = "/v1/trips:plan"

	w := httptest.NewRecorder()
	p.Write(w)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))
	assert.Equal(t, "req_2", w.Header().Get("X-Request-Id"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, models.ProblemTypeUnprocessable, body["type"])
	assert.Equal(t, "no-chargers-found", body["code"])
	assert.Equal(t, "no charging station found for leg 1 of 2", body["detail"])
	assert.Equal(t, float64(422), body["status"])
	assert.NotContains(t, body, "errors")
}

func TestProblem_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		p      *models.Problem
		status int
		typ    string
	}{
		{"bad request", models.NewBadRequest("t", "d", nil), http.StatusBadRequest, models.ProblemTypeValidation},
		{"not found", models.NewNotFound("t", "d"), http.StatusNotFound, models.ProblemTypeNotFound},
		{"unsupported media", models.NewUnsupportedMediaType("t", "d"), http.StatusUnsupportedMediaType, models.ProblemTypeUnsupportedMedia},
		{"unprocessable", models.NewUnprocessable("t", "invalid-location", "d"), http.StatusUnprocessableEntity, models.ProblemTypeUnprocessable},
		{"too many", models.NewTooManyRequests("t", "d"), http.StatusTooManyRequests, models.ProblemTypeTooManyRequests},
		{"internal", models.NewInternalError("t", "d"), http.StatusInternalServerError, models.ProblemTypeInternal},
		{"bad gateway", models.NewBadGateway("t", "network-error", "d"), http.StatusBadGateway, models.ProblemTypeBadGateway},
		{"unavailable", models.NewServiceUnavailable("t", "d"), http.StatusServiceUnavailable, models.ProblemTypeUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.p.Status)
			assert.Equal(t, tt.typ, tt.p.Type)
			assert.Equal(t, "d", tt.p.Detail)
			assert.NotEmpty(t, tt.p.Title)
		})
	}
}
