// internal/field/field.go
//
// Per-request field instances.
//
// Context
// -------
// A *Field is a Def bound to one request: its labels are resolved for the
// locale, its options are filtered against the data snapshot, and its
// schema applies the definition's conditions.  Fields are cheap to build and
// are never persisted; only their values are.
//
// Workflow
// --------
//  1. New(def, locale, data) checks the definition and filters options.
//  2. Schema() returns the full rule for this field (kind rules, presence,
//     conditions, cross-field comparisons).
//  3. WithValue(raw) returns a copy carrying raw and its display string.
//  4. Message(detail) resolves a validation detail to localized text.
package field

import (
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// Option is a resolved choice of a radio or checkbox field.
type Option struct {
	Value       string `json:"value"`
	Label       string `json:"label"`
	Explanation string `json:"explanation,omitempty"`
}

// Field is one input bound to a locale and a data snapshot.
type Field struct {
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	Label        string   `json:"label"`
	Explanation  string   `json:"explanation,omitempty"`
	Required     bool     `json:"isRequired"`
	Options      []Option `json:"options,omitempty"`
	Value        any      `json:"value,omitempty"`
	DisplayValue string   `json:"displayValue"`

	def    Def
	kind   Kind
	locale locale.Locale
}

// New binds def to locale l and the snapshot data.  data is read, never
// retained beyond option filtering and presence evaluation.
func New(def Def, l locale.Locale, data map[string]any) (*Field, error) {
	if err := def.Check(); err != nil {
		return nil, err
	}
	f := &Field{
		Name:        def.Name,
		Type:        def.Type,
		Label:       def.Label.In(l),
		Explanation: def.Explanation.In(l),
		Required:    def.PresenceFor(data) == schema.PresenceRequired,
		def:         def,
		kind:        kinds[def.Type],
		locale:      l,
	}
	for _, o := range def.Options {
		if o.ShowWhen != nil && !o.ShowWhen.Matches(data) {
			continue
		}
		f.Options = append(f.Options, Option{
			Value:       o.Value,
			Label:       o.Label.In(l),
			Explanation: o.Explanation.In(l),
		})
	}
	return f, nil
}

// Def returns the static definition the field was built from.
func (f *Field) Def() Def { return f.def }

// Locale returns the locale the field was built for.
func (f *Field) Locale() locale.Locale { return f.locale }

// WithValue returns a copy of f carrying raw and its display value.
func (f *Field) WithValue(raw any) *Field {
	c := *f
	c.Value = raw
	c.DisplayValue = ""
	if !schema.IsEmpty(raw) {
		c.DisplayValue = f.kind.Display(f, raw, f.locale)
	}
	return &c
}

// Schema returns the complete validation rule for this field.
func (f *Field) Schema() schema.Schema {
	s := f.def.conditional(f.kind.Schema(f))
	if ref := f.def.DiffersFrom; ref != "" {
		var keys []string
		if k, ok := f.kind.(keyedKind); ok {
			keys = k.CompareKeys()
		}
		s = schema.Differs(s, ref, keys...)
	}
	if ref := f.def.MinFromBudget; ref != "" {
		s = schema.AtLeast(s, ref, schema.BudgetTotal)
	}
	return s
}

// Messages returns the definition's messages followed by the kind defaults.
func (f *Field) Messages() []Message {
	defaults := f.kind.Messages(f)
	out := make([]Message, 0, len(f.def.Messages)+len(defaults))
	out = append(out, f.def.Messages...)
	return append(out, defaults...)
}

// Message resolves one validation detail for this field.
func (f *Field) Message(d schema.Detail) string {
	return Resolve(f.Messages(), d, f.locale, f.Label)
}

// DependsOn lists the sibling fields this field reads.
func (f *Field) DependsOn() []string { return f.def.References() }

// OptionLabel returns the label for value, or value itself when no option
// matches.
func (f *Field) OptionLabel(value string) string {
	for _, o := range f.Options {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
