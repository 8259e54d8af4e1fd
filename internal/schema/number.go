package schema

import (
	"math"
)

// NumberSchema validates a numeric answer.  Currency strings such as
// “£1,200” are accepted and coerced to float64.
type NumberSchema struct {
	min, max *float64
	integer  bool
}

// Number returns an unconstrained number schema.
func Number() *NumberSchema { return &NumberSchema{} }

// Min sets an inclusive lower bound.
func (s *NumberSchema) Min(n float64) *NumberSchema { s.min = &n; return s }

// Max sets an inclusive upper bound.
func (s *NumberSchema) Max(n float64) *NumberSchema { s.max = &n; return s }

// Integer rejects fractional values.
func (s *NumberSchema) Integer() *NumberSchema { s.integer = true; return s }

// Validate implements Schema.
func (s *NumberSchema) Validate(v any, _ Context) Outcome {
	n, isNum := ParseAmount(v)
	if !isNum || math.IsNaN(n) || math.IsInf(n, 0) {
		return outcome(v, fail(TypeNumberBase, nil))
	}

	var details []Detail
	if s.integer && n != math.Trunc(n) {
		details = append(details, fail(TypeInteger, nil))
	}
	if s.min != nil && n < *s.min {
		details = append(details, fail(TypeNumberMin, map[string]any{"limit": *s.min}))
	}
	if s.max != nil && n > *s.max {
		details = append(details, fail(TypeNumberMax, map[string]any{"limit": *s.max}))
	}
	return outcome(n, details...)
}
