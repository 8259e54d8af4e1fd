// internal/schema/schema.go
//
// Apply – validation engine: core types.
//
// Context
//   Each form field contributes one Schema.  A Schema is a pure function of
//   the submitted value and a Context snapshot (locale, the full accumulated
//   form data, and the clock).  Field schemas are composed into an Aggregate
//   for a step or a whole form and executed once, collecting every violation
//   rather than stopping at the first.
//
// Workflow
//   •  Base schemas (String, Number, DateParts, Object, Budget, …) check the
//      shape and constraints of a present value and return a coerced copy.
//   •  Presence wrappers (Required, Optional, Strip) decide what happens when
//      the value is empty.
//   •  Conditional wrappers (When, Differs, AtLeast) read sibling values from
//      Context.Data by name and declare those names through DependsOn.
//   •  Aggregate prefixes every Detail path with the field name and strips
//      keys it does not know about.
//
//------------------------------------------------------------------------------

package schema

import (
	"strings"
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
)

// -----------------------------------------------------------------------------
// Error details
// -----------------------------------------------------------------------------

// Error types.  Names follow the “<family>.<rule>” convention so message
// tables can target a whole family or a single rule.
const (
	TypeBase     = "base" // message fallback only, never emitted
	TypeRequired = "any.required"
	TypeOnly     = "any.only"
	TypeInvalid  = "any.invalid"

	TypeStringBase = "string.base"
	TypeStringMin  = "string.min"
	TypeStringMax  = "string.max"
	TypeEmail      = "string.email"
	TypePostcode   = "string.postcode"
	TypePhone      = "string.phone"
	TypePattern    = "string.pattern.base"
	TypeMinWords   = "string.minWords"
	TypeMaxWords   = "string.maxWords"

	TypeNumberBase = "number.base"
	TypeNumberMin  = "number.min"
	TypeNumberMax  = "number.max"
	TypeInteger    = "number.integer"

	TypeObjectBase  = "object.base"
	TypeObjectEqual = "object.isEqual"
	TypeArrayBase   = "array.base"
	TypeArrayMax    = "array.max"

	TypeDateBase = "date.base"
	TypeDateMin  = "date.min"
	TypeDateMax  = "date.max"
	TypeMinAge   = "dateParts.minAge"

	TypeRangeIncomplete   = "dateRange.incomplete"
	TypeRangeMinDate      = "dateRange.minDate"
	TypeRangeBeforeStart  = "dateRange.endDate.beforeStartDate"
	TypeRangeOutsideLimit = "dateRange.endDate.outsideLimit"

	TypeUnderBudget = "budgetItems.underBudget"
	TypeOverBudget  = "budgetItems.overBudget"

	TypeFileType = "file.type"
	TypeFileSize = "file.size"
)

// Detail describes a single violation.  Path starts with the field name once
// the Detail leaves an Aggregate; nested keys follow.  Context carries rule
// parameters such as "limit" and, for composite values, "key".
type Detail struct {
	Type    string         `json:"type"`
	Path    []string       `json:"path"`
	Context map[string]any `json:"context,omitempty"`
}

// Field returns the top-level field name, or "" for form-level details.
func (d Detail) Field() string {
	if len(d.Path) == 0 {
		return ""
	}
	return d.Path[0]
}

// Key returns the sub-field the detail refers to, e.g. "postcode" for an
// address.  Empty for scalar fields.
func (d Detail) Key() string {
	if k, ok := d.Context["key"].(string); ok {
		return k
	}
	if len(d.Path) > 1 {
		return d.Path[len(d.Path)-1]
	}
	return ""
}

// Error wraps the details of a failed validation.  It satisfies error so
// callers can return it and detect it with errors.As.
type Error struct {
	Details []Detail `json:"details"`
}

func (e *Error) Error() string {
	if e == nil || len(e.Details) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, strings.Join(d.Path, ".")+": "+d.Type)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Result is the outcome of executing an Aggregate.  Value always holds the
// merged data, including what the user typed for fields that failed, so a
// wizard can re-render it.  Error is nil iff every field passed.
type Result struct {
	Value map[string]any `json:"value"`
	Error *Error         `json:"error"`
}

// Valid reports whether the result carries no error.
func (r Result) Valid() bool { return r.Error == nil }

// -----------------------------------------------------------------------------
// Schema contract
// -----------------------------------------------------------------------------

// Context is the immutable snapshot a schema is evaluated against.
type Context struct {
	Locale locale.Locale
	Data   map[string]any // full flattened form data, current step merged in
	Now    time.Time

	// Parent is the composite value whose members are being validated, set
	// by ObjectSchema for member-level conditions.
	Parent map[string]any
}

// Lookup returns the raw value of a sibling field.
func (c Context) Lookup(name string) any {
	if c.Data == nil {
		return nil
	}
	return c.Data[name]
}

// Today returns Now truncated to a UTC calendar day.
func (c Context) Today() time.Time {
	now := c.Now
	if now.IsZero() {
		now = time.Now()
	}
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Outcome is what a Schema returns for one value.  Paths inside Details are
// relative to the value being validated.
type Outcome struct {
	Value   any
	Omit    bool
	Details []Detail
}

// Failed reports whether the outcome carries details.
func (o Outcome) Failed() bool { return len(o.Details) > 0 }

// Schema validates and coerces a single value.
type Schema interface {
	Validate(v any, c Context) Outcome
}

// Dependent is implemented by schemas that read other fields.  Form loading
// uses it to reject references to fields that do not exist.
type Dependent interface {
	DependsOn() []string
}

// DependsOn returns the sibling field names s reads, or nil.
func DependsOn(s Schema) []string {
	if d, ok := s.(Dependent); ok {
		return d.DependsOn()
	}
	return nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func fail(typ string, ctx map[string]any, path ...string) Detail {
	return Detail{Type: typ, Path: path, Context: ctx}
}

func outcome(v any, details ...Detail) Outcome {
	return Outcome{Value: v, Details: details}
}

func ok(v any) Outcome { return Outcome{Value: v} }

// nest prefixes every detail path with key and records the key in context
// when the detail does not name one already.
func nest(key string, details []Detail) []Detail {
	out := make([]Detail, 0, len(details))
	for _, d := range details {
		ctx := make(map[string]any, len(d.Context)+1)
		for k, v := range d.Context {
			ctx[k] = v
		}
		if _, set := ctx["key"]; !set {
			ctx["key"] = key
		}
		out = append(out, Detail{
			Type:    d.Type,
			Path:    append([]string{key}, d.Path...),
			Context: ctx,
		})
	}
	return out
}
