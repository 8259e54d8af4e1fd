package schema

// Presence decides what an empty value means for a field.
type Presence int

const (
	PresenceRequired Presence = iota
	PresenceOptional
	PresenceStrip
)

// String implements fmt.Stringer; the names double as YAML values.
func (p Presence) String() string {
	switch p {
	case PresenceOptional:
		return "optional"
	case PresenceStrip:
		return "strip"
	default:
		return "required"
	}
}

// ParsePresence reads a YAML presence keyword.
func ParsePresence(s string) (Presence, bool) {
	switch s {
	case "required":
		return PresenceRequired, true
	case "optional":
		return PresenceOptional, true
	case "strip":
		return PresenceStrip, true
	default:
		return PresenceRequired, false
	}
}

type presenceSchema struct {
	mode  Presence
	inner Schema
}

// Required rejects empty values with any.required before delegating.
func Required(s Schema) Schema { return presenceSchema{mode: PresenceRequired, inner: s} }

// Optional omits empty values and validates anything else.
func Optional(s Schema) Schema { return presenceSchema{mode: PresenceOptional, inner: s} }

// Strip always omits the value, whatever was submitted.
func Strip() Schema { return presenceSchema{mode: PresenceStrip} }

// WithPresence wraps s according to mode.
func WithPresence(mode Presence, s Schema) Schema {
	switch mode {
	case PresenceOptional:
		return Optional(s)
	case PresenceStrip:
		return Strip()
	default:
		return Required(s)
	}
}

// Validate implements Schema.
func (p presenceSchema) Validate(v any, c Context) Outcome {
	if p.mode == PresenceStrip {
		return Outcome{Omit: true}
	}
	if IsEmpty(v) {
		if p.mode == PresenceRequired {
			return outcome(v, fail(TypeRequired, nil))
		}
		return Outcome{Omit: true}
	}
	if p.inner == nil {
		return ok(v)
	}
	return p.inner.Validate(v, c)
}

// DependsOn implements Dependent.
func (p presenceSchema) DependsOn() []string {
	if p.inner == nil {
		return nil
	}
	return DependsOn(p.inner)
}

// AnySchema accepts any value unchanged.
type AnySchema struct{}

// Any returns a schema that accepts every value.
func Any() AnySchema { return AnySchema{} }

// Validate implements Schema.
func (AnySchema) Validate(v any, _ Context) Outcome { return ok(v) }
