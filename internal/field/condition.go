// internal/field/condition.go
//
// Value-driven conditional rules.
//
// Context
// -------
// A field's presence (required, optional, or stripped) may depend on the
// current value of another field.  Conditions are evaluated against the data
// snapshot the schema runs with, never against state captured when the field
// was built.  The first matching condition wins over the field's default.
// When a field declares conditions and none match, it falls back to
// `otherwise`, and an empty `otherwise` strips the field.
package field

import (
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

func (c Condition) asCase(then schema.Schema) schema.Case {
	return schema.Case{In: c.In, NotIn: c.NotIn, Then: then}
}

// Matches reports whether the condition holds for data.
func (c Condition) Matches(data map[string]any) bool {
	return c.asCase(nil).Matches(data[c.Field])
}

// basePresence is the presence a field has when it carries no conditions.
func (d *Def) basePresence() schema.Presence {
	if d.Optional {
		return schema.PresenceOptional
	}
	return schema.PresenceRequired
}

// otherwisePresence is the fallback once no condition matched.
func (d *Def) otherwisePresence() schema.Presence {
	if p, valid := schema.ParsePresence(d.Otherwise); valid {
		return p
	}
	return schema.PresenceStrip
}

// PresenceFor evaluates the definition's conditions against data.
func (d *Def) PresenceFor(data map[string]any) schema.Presence {
	if len(d.Conditions) == 0 {
		return d.basePresence()
	}
	for _, c := range d.Conditions {
		if c.Matches(data) {
			p, _ := schema.ParsePresence(c.Then)
			return p
		}
	}
	return d.otherwisePresence()
}

// conditional wraps base in the definition's presence rules.  Conditions
// referring to different fields chain so the first match still wins: each
// one falls through to the next, and the last falls through to otherwise.
func (d *Def) conditional(base schema.Schema) schema.Schema {
	if len(d.Conditions) == 0 {
		return schema.WithPresence(d.basePresence(), base)
	}
	s := schema.WithPresence(d.otherwisePresence(), base)
	for i := len(d.Conditions) - 1; i >= 0; i-- {
		c := d.Conditions[i]
		p, _ := schema.ParsePresence(c.Then)
		s = schema.When(c.Field, s, c.asCase(schema.WithPresence(p, base)))
	}
	return s
}
