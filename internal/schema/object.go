package schema

// Key binds a schema to one member of a composite value.
type Key struct {
	Name   string
	Schema Schema
}

// K is shorthand for Key{name, s}.
func K(name string, s Schema) Key { return Key{Name: name, Schema: s} }

// ObjectSchema validates a composite value such as an address or a full
// name.  Unknown members are dropped from the output.
type ObjectSchema struct {
	keys []Key
}

// Object returns a composite schema over keys, evaluated in order.
func Object(keys ...Key) *ObjectSchema { return &ObjectSchema{keys: keys} }

// Validate implements Schema.
func (s *ObjectSchema) Validate(v any, c Context) Outcome {
	m, isMap := AsMap(v)
	if !isMap {
		return outcome(v, fail(TypeObjectBase, nil))
	}

	out := make(map[string]any, len(s.keys))
	var details []Detail
	inner := c
	inner.Parent = m
	for _, k := range s.keys {
		o := k.Schema.Validate(m[k.Name], inner)
		if o.Failed() {
			details = append(details, nest(k.Name, o.Details)...)
		}
		if !o.Omit && o.Value != nil {
			out[k.Name] = o.Value
		}
	}
	return outcome(out, details...)
}

// DependsOn implements Dependent.
func (s *ObjectSchema) DependsOn() []string {
	var deps []string
	for _, k := range s.keys {
		deps = append(deps, DependsOn(k.Schema)...)
	}
	return deps
}
