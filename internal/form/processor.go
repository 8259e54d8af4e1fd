// internal/form/processor.go
//
// Apply – Forms subsystem: success-page processors.
//
// Context
//   The success page of a form names a processor.  The processor is the one
//   place a completed application leaves the engine: it stores the
//   submission, notifies people, or hands it to a downstream system.
//   Processors are bound in Go (RegisterProcessor) because they need real
//   collaborators; YAML only names them.
//
// Notes
//   Chain runs processors in order and stops at the first failure, so a
//   failed store never triggers a confirmation email.
//
//------------------------------------------------------------------------------

package form

import (
	"context"
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
)

// Submission is what a processor receives.
type Submission struct {
	FormID      string
	Locale      locale.Locale
	Data        Data           // full stored snapshot, including review
	Value       map[string]any // validated, flattened answers
	SubmittedAt time.Time
}

// Processor completes a submission.  A returned error routes the user to
// the error page and the application stays unsubmitted.
type Processor interface {
	Process(ctx context.Context, s Submission) error
}

// ProcessorFunc adapts a function to Processor.
type ProcessorFunc func(ctx context.Context, s Submission) error

// Process implements Processor.
func (f ProcessorFunc) Process(ctx context.Context, s Submission) error { return f(ctx, s) }

// Chain returns a processor running ps in order until one fails.
func Chain(ps ...Processor) Processor {
	return ProcessorFunc(func(ctx context.Context, s Submission) error {
		for _, p := range ps {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := p.Process(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
}
