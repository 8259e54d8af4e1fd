// internal/form/validate.go
//
// Apply – Forms subsystem: step and whole-form validation.
//
// Context
//   Validation always runs against the full data snapshot, not just the step
//   being posted, so cross-step rules (“senior contact must differ from main
//   contact”) see every answer.  Posted step data is merged over what was
//   stored before anything is validated, which means a partial re-post never
//   loses answers the user already gave on that step.
//
// Workflow
//   •  ValidateStep merges raw into the snapshot, binds the step’s fields to
//      the merged data, and runs one aggregate schema over the step.
//   •  ValidateForm does the same across every step that applies.
//   •  FieldErrors turns a failed result into one localized message per
//      field, using the first detail reported for that field.
//   •  Steps whose condition is false are skipped, never cleared.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"

	"github.com/mattandrews/blf-test-sub000/internal/field"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// -----------------------------------------------------------------------------
// Error types
// -----------------------------------------------------------------------------

// FieldError is a field-level message ready for display next to the input.
type FieldError struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Message string `json:"message"`
	Step    int    `json:"step,omitempty"`
}

// validationError wraps []FieldError and satisfies error, so callers can
// tell user input errors from system failures via IsValidationError.
type validationError struct{ Fields []FieldError }

func (ve validationError) Error() string { return "form validation failed" }

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// ValidateStep validates step n.  raw is merged over the stored values of
// that step before validation; full is not modified.  The result's Value is
// the merged step data with coercions applied and stripped fields removed.
func (d *Definition) ValidateStep(n int, raw map[string]any, full Data, l locale.Locale) schema.Result {
	s, ok := d.Step(n)
	if !ok {
		return schema.Result{
			Value: copyMap(raw),
			Error: &schema.Error{Details: []schema.Detail{{Type: schema.TypeInvalid,
				Context: map[string]any{"step": n}}}},
		}
	}

	merged := full.Merge(StepKey(n), raw)
	flat := merged.Flatten()
	if !s.Applies(flat) {
		return schema.Result{Value: merged.Step(n)}
	}
	return d.aggregate(l, flat, s).Validate(merged[StepKey(n)], d.context(l, flat))
}

// ValidateForm validates every applicable step against the flattened
// snapshot.  The result's Value is flat, keyed by field name.
func (d *Definition) ValidateForm(full Data, l locale.Locale) schema.Result {
	flat := full.Flatten()
	var steps []*StepDef
	for i := range d.Steps {
		if d.Steps[i].Applies(flat) {
			steps = append(steps, &d.Steps[i])
		}
	}
	return d.aggregate(l, flat, steps...).Validate(flat, d.context(l, flat))
}

// FieldErrors resolves the details of res into one message per field, in
// detail order.  Only the first detail of each field is surfaced.
func (d *Definition) FieldErrors(res schema.Result, full Data, l locale.Locale) []FieldError {
	if res.Error == nil {
		return nil
	}
	flat := full.Flatten()
	seen := make(map[string]struct{})
	var out []FieldError
	for _, det := range res.Error.Details {
		name := det.Field()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		fd, known := d.FieldDef(name)
		if !known {
			out = append(out, FieldError{Name: name, Message: field.Resolve(nil, det, l, "")})
			continue
		}
		f := d.bind(fd, l, flat)
		out = append(out, FieldError{
			Name:    name,
			Label:   f.Label,
			Message: f.Message(det),
			Step:    d.StepOf(name),
		})
	}
	return out
}

// Errors wraps a failed result as an error carrying its field messages, or
// returns nil for a valid result.
func (d *Definition) Errors(res schema.Result, full Data, l locale.Locale) error {
	if res.Valid() {
		return nil
	}
	return validationError{Fields: d.FieldErrors(res, full, l)}
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (d *Definition) context(l locale.Locale, flat map[string]any) schema.Context {
	return schema.Context{Locale: l, Data: flat, Now: d.now()}
}

// aggregate binds the fields of steps to the snapshot and composes their
// schemas in declaration order.
func (d *Definition) aggregate(l locale.Locale, flat map[string]any, steps ...*StepDef) *schema.Aggregate {
	agg := schema.NewAggregate()
	for _, s := range steps {
		for _, fd := range s.Fields() {
			agg.Add(fd.Name, d.bind(fd, l, flat).Schema())
		}
	}
	return agg
}

// bind builds a request field.  Definitions are checked by Parse, so New
// can only fail for a Definition assembled by hand and never checked.
func (d *Definition) bind(fd field.Def, l locale.Locale, flat map[string]any) *field.Field {
	f, err := field.New(fd, l, flat)
	if err != nil {
		panic(fmt.Sprintf("form %s: unchecked definition: %v", d.ID, err))
	}
	return f
}
