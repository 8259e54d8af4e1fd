package schema

import (
	"regexp"
	"strconv"
	"strings"
)

// StringSchema validates a scalar text answer.  The zero value accepts any
// string; use String() and the chainable constraints.
type StringSchema struct {
	min, max           int
	minWords, maxWords int
	email              bool
	postcode           bool
	phone              bool
	pattern            *regexp.Regexp
	patternName        string
	valid              []string
	invalid            []string
}

// String returns an unconstrained string schema.
func String() *StringSchema { return &StringSchema{} }

func (s *StringSchema) Min(n int) *StringSchema      { s.min = n; return s }
func (s *StringSchema) Max(n int) *StringSchema      { s.max = n; return s }
func (s *StringSchema) MinWords(n int) *StringSchema { s.minWords = n; return s }
func (s *StringSchema) MaxWords(n int) *StringSchema { s.maxWords = n; return s }
func (s *StringSchema) Email() *StringSchema         { s.email = true; return s }
func (s *StringSchema) Postcode() *StringSchema      { s.postcode = true; return s }
func (s *StringSchema) Phone() *StringSchema         { s.phone = true; return s }

// Pattern requires the value to match re.  name is reported in the detail
// context so messages can tell patterns apart.
func (s *StringSchema) Pattern(re *regexp.Regexp, name string) *StringSchema {
	s.pattern, s.patternName = re, name
	return s
}

// Valid restricts the value to an allow-list (case-sensitive).
func (s *StringSchema) Valid(values ...string) *StringSchema {
	s.valid = append(make([]string, 0, len(values)), values...)
	return s
}

// Invalid rejects specific values (case-insensitive).
func (s *StringSchema) Invalid(values ...string) *StringSchema {
	s.invalid = append([]string(nil), values...)
	return s
}

// Validate implements Schema.
func (s *StringSchema) Validate(v any, _ Context) Outcome {
	str, isScalar := AsString(v)
	if !isScalar {
		return outcome(v, fail(TypeStringBase, nil))
	}

	if s.valid != nil {
		for _, allowed := range s.valid {
			if str == allowed {
				return ok(str)
			}
		}
		return outcome(str, fail(TypeOnly, map[string]any{"valids": s.valid}))
	}
	if containsFold(s.invalid, str) {
		return outcome(str, fail(TypeInvalid, map[string]any{"invalids": s.invalid}))
	}

	var details []Detail
	if s.min > 0 && !check(str, "min="+strconv.Itoa(s.min)) {
		details = append(details, fail(TypeStringMin, map[string]any{"limit": s.min}))
	}
	if s.max > 0 && !check(str, "max="+strconv.Itoa(s.max)) {
		details = append(details, fail(TypeStringMax, map[string]any{"limit": s.max}))
	}
	if s.email && !check(str, "email") {
		details = append(details, fail(TypeEmail, nil))
	}
	if s.postcode {
		if check(str, "postcode") {
			str = NormalizePostcode(str)
		} else {
			details = append(details, fail(TypePostcode, nil))
		}
	}
	if s.phone && !check(str, "ukphone") {
		details = append(details, fail(TypePhone, nil))
	}
	if s.pattern != nil && !s.pattern.MatchString(str) {
		details = append(details, fail(TypePattern, map[string]any{"name": s.patternName}))
	}
	if s.minWords > 0 || s.maxWords > 0 {
		n := CountWords(str)
		if s.minWords > 0 && n < s.minWords {
			details = append(details, fail(TypeMinWords, map[string]any{"limit": s.minWords, "count": n}))
		}
		if s.maxWords > 0 && n > s.maxWords {
			details = append(details, fail(TypeMaxWords, map[string]any{"limit": s.maxWords, "count": n}))
		}
	}
	return outcome(str, details...)
}

// CountWords counts runs of non-whitespace characters.
func CountWords(s string) int { return len(strings.Fields(s)) }
