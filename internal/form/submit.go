// internal/form/submit.go
//
// Apply – Forms subsystem: the success transition.
//
// Context
//   Submitting is the only transition that reaches outside the engine.  It
//   is allowed once every required step is complete and the review page has
//   been confirmed (its data is non-empty).  The processor then runs; if it
//   fails, the caller shows the error page and must not record the
//   application as submitted.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

var (
	// ErrNotReviewed is returned when the review page has not been confirmed.
	ErrNotReviewed = errors.New("form: review not confirmed")
	// ErrSubmission wraps processor failures.  Show the error page.
	ErrSubmission = errors.New("form: submission failed")
)

// Submit validates the whole snapshot and runs the success processor.  A
// returned validation error can be detected with IsValidationError.
func (d *Definition) Submit(ctx context.Context, full Data, l locale.Locale) (Submission, error) {
	res := d.ValidateForm(full, l)
	if !res.Valid() {
		return Submission{}, d.Errors(res, full, l)
	}
	if schema.IsEmpty(full[ReviewKey]) {
		return Submission{}, ErrNotReviewed
	}
	if d.processor == nil {
		return Submission{}, fmt.Errorf("%w: form %s has no processor bound", ErrConfig, d.ID)
	}

	sub := Submission{
		FormID:      d.ID,
		Locale:      l,
		Data:        full.Clone(),
		Value:       res.Value,
		SubmittedAt: d.now().UTC(),
	}
	if err := d.processor.Process(ctx, sub); err != nil {
		return Submission{}, fmt.Errorf("%w: %w", ErrSubmission, err)
	}
	return sub, nil
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool {
	var ve validationError
	return errors.As(err, &ve)
}

// ValidationFields extracts the field messages from a validation error.
func ValidationFields(err error) []FieldError {
	var ve validationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
