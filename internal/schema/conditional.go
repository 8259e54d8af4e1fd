// internal/schema/conditional.go
//
// Apply – validation engine: rules that read sibling fields.
//
// Context
//   Conditional behaviour is resolved while the schema runs, against the
//   Context snapshot, never against state captured when the definition was
//   loaded.  Each wrapper names the field it reads so form loading can reject
//   dangling references.
//
//   When matching, the first case whose values match the referenced field
//   wins.  If nothing matches the Otherwise schema applies, and a nil
//   Otherwise strips the value.  A failed match never leaves a field
//   required by accident.
//
//------------------------------------------------------------------------------

package schema

import (
	"strings"
)

// Case is one branch of a When.  A case matches when the referenced value
// (or any element of it, for multi-choice answers) is in In, or, when NotIn
// is set, when no element is in NotIn.
type Case struct {
	In    []string
	NotIn []string
	Then  Schema
}

// Matches reports whether the case applies to the referenced value.
func (c Case) Matches(ref any) bool {
	values := AsStrings(ref)
	if len(c.In) > 0 {
		for _, v := range values {
			if contains(c.In, v) {
				return true
			}
		}
		return false
	}
	if len(c.NotIn) > 0 {
		for _, v := range values {
			if contains(c.NotIn, v) {
				return false
			}
		}
		return true
	}
	return false
}

// WhenSchema switches between schemas on the value of another field.
type WhenSchema struct {
	ref       string
	cases     []Case
	otherwise Schema
	member    bool
}

// When builds a conditional schema over the field named ref.  A nil
// otherwise strips the value when no case matches.
func When(ref string, otherwise Schema, cases ...Case) *WhenSchema {
	return &WhenSchema{ref: ref, cases: cases, otherwise: otherwise}
}

// WhenMember is When over a sibling member of the enclosing Object rather
// than a top-level field, e.g. a previous address that is only needed when
// the current one is too recent.
func WhenMember(ref string, otherwise Schema, cases ...Case) *WhenSchema {
	return &WhenSchema{ref: ref, cases: cases, otherwise: otherwise, member: true}
}

// Resolve returns the schema that applies for the snapshot c.
func (w *WhenSchema) Resolve(c Context) Schema {
	ref := c.Lookup(w.ref)
	if w.member {
		ref = c.Parent[w.ref]
	}
	for _, cs := range w.cases {
		if cs.Matches(ref) {
			return cs.Then
		}
	}
	if w.otherwise == nil {
		return Strip()
	}
	return w.otherwise
}

// Validate implements Schema.
func (w *WhenSchema) Validate(v any, c Context) Outcome {
	return w.Resolve(c).Validate(v, c)
}

// DependsOn implements Dependent.
func (w *WhenSchema) DependsOn() []string {
	var deps []string
	if !w.member {
		deps = append(deps, w.ref)
	}
	for _, cs := range w.cases {
		deps = append(deps, DependsOn(cs.Then)...)
	}
	if w.otherwise != nil {
		deps = append(deps, DependsOn(w.otherwise)...)
	}
	return deps
}

// -----------------------------------------------------------------------------
// Cross-field comparisons
// -----------------------------------------------------------------------------

// DiffersSchema requires a value to differ from another field's value.
// Strings compare case-insensitively after trimming; composite values compare
// on the listed keys only.
type DiffersSchema struct {
	inner Schema
	ref   string
	keys  []string
}

// Differs wraps inner with a “must not equal ref” rule.  The rule only runs
// once inner has passed and the referenced field has a value.
func Differs(inner Schema, ref string, keys ...string) *DiffersSchema {
	return &DiffersSchema{inner: inner, ref: ref, keys: keys}
}

// Validate implements Schema.
func (s *DiffersSchema) Validate(v any, c Context) Outcome {
	o := s.inner.Validate(v, c)
	if o.Failed() || o.Omit {
		return o
	}
	other := c.Lookup(s.ref)
	if IsEmpty(other) || !s.same(o.Value, other) {
		return o
	}
	typ := TypeInvalid
	if len(s.keys) > 0 {
		typ = TypeObjectEqual
	}
	o.Details = append(o.Details, fail(typ, map[string]any{"ref": s.ref}))
	return o
}

func (s *DiffersSchema) same(a, b any) bool {
	if len(s.keys) == 0 {
		x, okA := AsString(a)
		y, okB := AsString(b)
		return okA && okB && strings.EqualFold(x, y)
	}
	ma, okA := AsMap(a)
	mb, okB := AsMap(b)
	if !okA || !okB {
		return false
	}
	for _, k := range s.keys {
		x, _ := AsString(ma[k])
		y, _ := AsString(mb[k])
		if !strings.EqualFold(x, y) {
			return false
		}
	}
	return true
}

// DependsOn implements Dependent.
func (s *DiffersSchema) DependsOn() []string {
	return append([]string{s.ref}, DependsOn(s.inner)...)
}

// AtLeastSchema requires a numeric value to be no lower than a figure
// derived from another field, e.g. total project cost ≥ budget total.
type AtLeastSchema struct {
	inner  Schema
	ref    string
	derive func(any) float64
}

// AtLeast wraps inner.  derive turns the referenced raw value into the
// lower bound.
func AtLeast(inner Schema, ref string, derive func(any) float64) *AtLeastSchema {
	return &AtLeastSchema{inner: inner, ref: ref, derive: derive}
}

// Validate implements Schema.
func (s *AtLeastSchema) Validate(v any, c Context) Outcome {
	o := s.inner.Validate(v, c)
	if o.Failed() || o.Omit {
		return o
	}
	n, isNum := ParseAmount(o.Value)
	if !isNum {
		return o
	}
	limit := s.derive(c.Lookup(s.ref))
	if n < limit {
		o.Details = append(o.Details, fail(TypeNumberMin, map[string]any{"limit": limit, "ref": s.ref}))
	}
	return o
}

// DependsOn implements Dependent.
func (s *AtLeastSchema) DependsOn() []string {
	return append([]string{s.ref}, DependsOn(s.inner)...)
}
