package models

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProblem_Write(t *testing.T) {
	rec := httptest.NewRecorder()
	p := NewRoutingFailure("req_123", "NO_PATH", "no connected road path between the given points")
	p.Instance = "/v1/route"
	p.Write(rec)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "req_123", rec.Header().Get("X-Request-Id"))

	var decoded Problem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Equal(t, ProblemTypeRouting, decoded.Type)
	assert.Equal(t, "NO_PATH", decoded.Code)
	assert.Equal(t, "/v1/route", decoded.Instance)
	assert.Equal(t, http.StatusUnprocessableEntity, decoded.Status)
}

func TestNewBadRequest_CarriesFieldErrors(t *testing.T) {
	p := NewBadRequest("req_9", "invalid request", []FieldError{
		{Field: "start", Message: "must be lon,lat", Code: "invalid_coordinate"},
	})

	assert.Equal(t, http.StatusBadRequest, p.Status)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "start", p.Errors[0].Field)
}

func TestProblemBuilders_StatusCodes(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, NewNotFound("t", "d").Status)
	assert.Equal(t, http.StatusTooManyRequests, NewTooManyRequests("t", "d").Status)
	assert.Equal(t, http.StatusInternalServerError, NewInternalError("t", "d").Status)
	assert.Equal(t, http.StatusServiceUnavailable, NewServiceUnavailable("t", "d").Status)
}

func TestProblem_CodeOmittedWhenEmpty(t *testing.T) {
	data, err := json.Marshal(NewNotFound("t", "d"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"code"`)
}
