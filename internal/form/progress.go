// internal/form/progress.go
//
// Apply – Forms subsystem: progress and navigation gating.
//
// Context
//   Each step moves through not-started → in-progress → complete, and is
//   not-required whenever its condition is false.  States are recomputed
//   from the snapshot on every call; nothing is cached between requests, so
//   an answer that changes a condition takes effect immediately.
//
//   A step can only be entered once every earlier required step is complete.
//   The review page needs every required step complete.  Position
//   TotalSteps()+1 stands for the review page throughout this file.
//
//------------------------------------------------------------------------------

package form

import (
	"github.com/mattandrews/blf-test-sub000/internal/locale"
)

// State is the completion state of one step.
type State string

const (
	StateNotStarted  State = "not-started"
	StateInProgress  State = "in-progress"
	StateComplete    State = "complete"
	StateNotRequired State = "not-required"
)

// StepProgress is one row of a progress listing.
type StepProgress struct {
	Number int    `json:"number"`
	ID     string `json:"id"`
	Title  string `json:"title"`
	State  State  `json:"state"`
}

// Progress summarises a snapshot.  CurrentStepNumber is the first required
// step that is not complete, or TotalSteps+1 when the form is ready for
// review.
type Progress struct {
	CurrentStepNumber int            `json:"currentStepNumber"`
	TotalSteps        int            `json:"totalSteps"`
	CompletedSteps    int            `json:"completedSteps"`
	RequiredSteps     int            `json:"requiredSteps"`
	Steps             []StepProgress `json:"stepStates"`
}

// ReadyForReview reports whether every required step is complete.
func (p Progress) ReadyForReview() bool { return p.CurrentStepNumber > p.TotalSteps }

// StepState computes the state of step n for full.
func (d *Definition) StepState(n int, full Data, l locale.Locale) State {
	return d.stepState(n, full, full.Flatten(), l)
}

func (d *Definition) stepState(n int, full Data, flat map[string]any, l locale.Locale) State {
	s, ok := d.Step(n)
	if !ok {
		return StateNotRequired
	}
	if !s.Applies(flat) {
		return StateNotRequired
	}
	if !full.Has(StepKey(n)) {
		return StateNotStarted
	}
	res := d.aggregate(l, flat, s).Validate(full[StepKey(n)], d.context(l, flat))
	if res.Valid() {
		return StateComplete
	}
	return StateInProgress
}

// Progress computes the state of every step.
func (d *Definition) Progress(full Data, l locale.Locale) Progress {
	flat := full.Flatten()
	p := Progress{TotalSteps: len(d.Steps), CurrentStepNumber: len(d.Steps) + 1}
	for i := range d.Steps {
		n := i + 1
		st := d.stepState(n, full, flat, l)
		p.Steps = append(p.Steps, StepProgress{
			Number: n,
			ID:     d.Steps[i].ID,
			Title:  d.Steps[i].Title.In(l),
			State:  st,
		})
		if st == StateNotRequired {
			continue
		}
		p.RequiredSteps++
		if st == StateComplete {
			p.CompletedSteps++
		} else if n < p.CurrentStepNumber {
			p.CurrentStepNumber = n
		}
	}
	return p
}

// Enter decides whether position n may be shown.  When it may not, the
// returned position is where the user should be sent instead: the first
// incomplete required step before n, or, for a step that does not apply, the
// next position that does.
func (d *Definition) Enter(n int, full Data, l locale.Locale) (int, bool) {
	if n < 1 {
		return 1, false
	}
	review := len(d.Steps) + 1
	if n > review {
		n = review
	}

	p := d.Progress(full, l)
	for _, sp := range p.Steps {
		if sp.Number >= n {
			break
		}
		if sp.State != StateNotRequired && sp.State != StateComplete {
			return sp.Number, false
		}
	}
	if n < review && p.Steps[n-1].State == StateNotRequired {
		return d.next(n, p), false
	}
	return n, true
}

// Next returns the position after step n, skipping steps that do not apply.
func (d *Definition) Next(n int, full Data, l locale.Locale) int {
	return d.next(n, d.Progress(full, l))
}

func (d *Definition) next(n int, p Progress) int {
	for _, sp := range p.Steps {
		if sp.Number > n && sp.State != StateNotRequired {
			return sp.Number
		}
	}
	return len(d.Steps) + 1
}

// Previous returns the applicable step before n, or 0 for the start page.
func (d *Definition) Previous(n int, full Data, l locale.Locale) int {
	p := d.Progress(full, l)
	for i := len(p.Steps) - 1; i >= 0; i-- {
		sp := p.Steps[i]
		if sp.Number < n && sp.State != StateNotRequired {
			return sp.Number
		}
	}
	return 0
}
