package web

import (
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
)

// ParamValidator is a function type that validates a parameter.
type ParamValidator func(valueToTest float64) bool

func newComparisonValidator(valueInClosure float64, compareFn func(argValue, closedValue float64) bool) ParamValidator {
	return func(argValue float64) bool {
		return compareFn(argValue, valueInClosure)
	}
}

// gte returns a ParamValidator that checks if the argument is greater than or equal to the value captured in the closure.
func gte(valToCompareAgainst float64) ParamValidator {
	return newComparisonValidator(valToCompareAgainst, func(argValue, closedValue float64) bool {
		return argValue >= closedValue
	})
}

// ParseFloatGte reads a required query parameter that must be a finite number >= value.
func ParseFloatGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, value float64) (float64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return 0, false
	}
	return parseValidate(w, logger, key, raw, gte(value))
}

// ParseOptionalFloatGte is ParseFloatGte with a fallback used when the parameter is absent.
func ParseOptionalFloatGte(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string, value, fallback float64) (float64, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, true
	}
	return parseValidate(w, logger, key, raw, gte(value))
}

// ParseRequiredString reads a query parameter that must be present and non-empty.
func ParseRequiredString(r *http.Request, w http.ResponseWriter, logger *slog.Logger, key string) (string, bool) {
	value := r.URL.Query().Get(key)
	if value == "" {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("%s url parameter is required", key))
		return "", false
	}
	return value, true
}

func parseValidate(w http.ResponseWriter, logger *slog.Logger, key, raw string, pValidator ParamValidator) (float64, bool) {
	floatValue, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(floatValue) || math.IsInf(floatValue, 0) || !pValidator(floatValue) {
		RespondError(w, logger, http.StatusBadRequest, fmt.Sprintf("Invalid %s number: %s", key, raw))
		return 0, false
	}
	return floatValue, true
}
