package schema

// Named binds a schema to a top-level field name.
type Named struct {
	Name   string
	Schema Schema
}

// Aggregate composes per-field schemas into one schema for a step or form.
type Aggregate struct {
	fields []Named
}

// NewAggregate returns an aggregate over fields, evaluated in order.
func NewAggregate(fields ...Named) *Aggregate {
	return &Aggregate{fields: fields}
}

// Add appends a field.
func (a *Aggregate) Add(name string, s Schema) {
	a.fields = append(a.fields, Named{Name: name, Schema: s})
}

// Names lists the field names in evaluation order.
func (a *Aggregate) Names() []string {
	out := make([]string, len(a.fields))
	for i, f := range a.fields {
		out[i] = f.Name
	}
	return out
}

// Validate executes every field schema against data and collects all
// details.  Keys of data that no field claims are stripped.  A failing field
// keeps its raw value in Result.Value; stripped fields are absent even when a
// value was submitted.
func (a *Aggregate) Validate(data map[string]any, c Context) Result {
	out := make(map[string]any, len(a.fields))
	var details []Detail
	for _, f := range a.fields {
		raw := data[f.Name]
		o := f.Schema.Validate(raw, c)
		if o.Omit {
			continue
		}
		if o.Failed() {
			details = append(details, prefix(f.Name, o.Details)...)
			if !IsEmpty(raw) {
				out[f.Name] = raw
			}
			continue
		}
		if o.Value != nil {
			out[f.Name] = o.Value
		}
	}

	res := Result{Value: out}
	if len(details) > 0 {
		res.Error = &Error{Details: details}
	}
	return res
}

// DependsOn returns every sibling name referenced by the aggregate's
// schemas, de-duplicated, in first-seen order.
func (a *Aggregate) DependsOn() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, f := range a.fields {
		for _, d := range DependsOn(f.Schema) {
			if _, dup := seen[d]; dup {
				continue
			}
			seen[d] = struct{}{}
			out = append(out, d)
		}
	}
	return out
}
