// Package response writes JSON and RFC 7807 problem responses.
package response

import (
	"encoding/json"
	"net/http"

	"github.com/chargepath/chargepath/internal/api/middleware"
	"github.com/chargepath/chargepath/internal/api/models"
	"github.com/chargepath/chargepath/internal/planner"
)

// JSON writes data as JSON with the given status code and echoes the request
// ID for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Error writes problem with the request path as its instance.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Instance = r.URL.Path
	problem.Write(w)
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

// BadRequest writes a 400 validation problem.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

// NotFound writes a 404 problem.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

// Unprocessable writes a 422 problem carrying a machine-readable code.
func Unprocessable(w http.ResponseWriter, r *http.Request, code, detail string) {
	Error(w, r, models.NewUnprocessable(traceID(r), code, detail))
}

// TooManyRequests writes a 429 problem.
func TooManyRequests(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewTooManyRequests(traceID(r), detail))
}

// InternalError writes a 500 problem.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

// BadGateway writes a 502 problem carrying a machine-readable code.
func BadGateway(w http.ResponseWriter, r *http.Request, code, detail string) {
	Error(w, r, models.NewBadGateway(traceID(r), code, detail))
}

// ServiceUnavailable writes a 503 problem.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewServiceUnavailable(traceID(r), detail))
}

// PlannerError maps err to a problem response, classifying it first when it
// is not already a *planner.Error. The planner message is surfaced
// verbatim as the detail, except for unknown errors which may leak
// internals.
//
//	invalid-location, route-not-found, no-chargers-found -> 422
//	missing-credentials                                  -> 503
//	network-error                                        -> 502
//	unknown                                              -> 500
func PlannerError(w http.ResponseWriter, r *http.Request, err error) {
	perr := planner.Classify(err)
	code := string(perr.Code)

	var problem *models.Problem
	switch perr.Code {
	case planner.CodeInvalidLocation, planner.CodeRouteNotFound, planner.CodeNoChargersFound:
		problem = models.NewUnprocessable(traceID(r), code, perr.Message)
	case planner.CodeMissingCredentials:
		problem = models.NewServiceUnavailable(traceID(r), perr.Message).WithCode(code)
	case planner.CodeNetworkError:
		problem = models.NewBadGateway(traceID(r), code, perr.Message)
	default:
		problem = models.NewInternalError(traceID(r), "internal server error").WithCode(code)
	}
	Error(w, r, problem)
}
