package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestParseFloatGte(t *testing.T) {
	testCases := []struct {
		name         string
		query        string
		expected     float64
		expectedOK   bool
		expectedCode int
	}{
		{name: "integer", query: "?maxPrice=50000", expected: 50000, expectedOK: true},
		{name: "decimal", query: "?maxPrice=499.99", expected: 499.99, expectedOK: true},
		{name: "zero is allowed", query: "?maxPrice=0", expected: 0, expectedOK: true},
		{name: "missing", query: "", expectedCode: http.StatusBadRequest},
		{name: "negative", query: "?maxPrice=-1", expectedCode: http.StatusBadRequest},
		{name: "not a number", query: "?maxPrice=cheap", expectedCode: http.StatusBadRequest},
		{name: "NaN", query: "?maxPrice=NaN", expectedCode: http.StatusBadRequest},
		{name: "infinity", query: "?maxPrice=Inf", expectedCode: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/products"+tc.query, nil)
			w := httptest.NewRecorder()

			value, ok := ParseFloatGte(r, w, discardLogger, "maxPrice", 0)

			assert.Equal(t, tc.expectedOK, ok)
			if tc.expectedOK {
				assert.Equal(t, tc.expected, value)
				return
			}
			assert.Equal(t, tc.expectedCode, w.Code)
		})
	}
}

func TestParseOptionalFloatGte(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ratings", nil)
	w := httptest.NewRecorder()
	value, ok := ParseOptionalFloatGte(r, w, discardLogger, "minAvgRating", 0, 4.0)
	require.True(t, ok)
	assert.Equal(t, 4.0, value)

	r = httptest.NewRequest(http.MethodGet, "/ratings?minAvgRating=3.5", nil)
	value, ok = ParseOptionalFloatGte(r, w, discardLogger, "minAvgRating", 0, 4.0)
	require.True(t, ok)
	assert.Equal(t, 3.5, value)

	r = httptest.NewRequest(http.MethodGet, "/ratings?minAvgRating=-2", nil)
	w = httptest.NewRecorder()
	_, ok = ParseOptionalFloatGte(r, w, discardLogger, "minAvgRating", 0, 4.0)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestIDInjector(t *testing.T) {
	var seen string
	handler := RequestIDInjector(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = middleware.GetReqID(r.Context())
	}))

	// generated
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, seen)
	assert.Equal(t, seen, w.Header().Get(RequestIDHeader))

	// propagated
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(RequestIDHeader, "upstream-id")
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, "upstream-id", seen)
	assert.Equal(t, "upstream-id", w.Header().Get(RequestIDHeader))
}

func TestRecoverer(t *testing.T) {
	handler := Recoverer(discardLogger)(http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRespondValidationError(t *testing.T) {
	type payload struct {
		User   string  `validate:"required"`
		Rating float64 `validate:"min=1,max=5"`
	}
	err := validator.New().Struct(payload{Rating: 7})
	require.Error(t, err)
	w := httptest.NewRecorder()

	RespondValidationError(w, discardLogger, err)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body struct {
		ValidationErrors map[string]string `json:"validation_errors"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "failed on rule: required", body.ValidationErrors["User"])
	assert.Equal(t, "failed on rule: max", body.ValidationErrors["Rating"])
}
