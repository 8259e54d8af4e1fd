package form

import (
	"github.com/mattandrews/blf-test-sub000/internal/field"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
)

// Form is a definition bound to one request: localized titles, fields
// carrying their current values, and the progress of every step.  Build one
// per request; never cache it.
type Form struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Locale   locale.Locale `json:"locale"`
	Steps    []*Step       `json:"steps"`
	Progress Progress      `json:"progress"`
}

// Step is one bound wizard page.
type Step struct {
	Number    int        `json:"number"`
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	State     State      `json:"state"`
	Fieldsets []Fieldset `json:"fieldsets"`
}

// Fieldset is a bound group of fields.
type Fieldset struct {
	Legend       string         `json:"legend"`
	Introduction string         `json:"introduction,omitempty"`
	Fields       []*field.Field `json:"fields"`
}

// Fields returns the step's fields in order.
func (s *Step) Fields() []*field.Field {
	var out []*field.Field
	for _, set := range s.Fieldsets {
		out = append(out, set.Fields...)
	}
	return out
}

// Build binds the definition to full and l.
func (d *Definition) Build(full Data, l locale.Locale) *Form {
	flat := full.Flatten()
	f := &Form{
		ID:       d.ID,
		Title:    d.Title.In(l),
		Locale:   l,
		Progress: d.Progress(full, l),
	}
	for i := range d.Steps {
		sd := &d.Steps[i]
		s := &Step{
			Number: i + 1,
			ID:     sd.ID,
			Title:  sd.Title.In(l),
			State:  f.Progress.Steps[i].State,
		}
		for _, set := range sd.Fieldsets {
			fs := Fieldset{Legend: set.Legend.In(l), Introduction: set.Introduction.In(l)}
			for _, fd := range set.Fields {
				fs.Fields = append(fs.Fields, d.bind(fd, l, flat).WithValue(flat[fd.Name]))
			}
			s.Fieldsets = append(s.Fieldsets, fs)
		}
		f.Steps = append(f.Steps, s)
	}
	return f
}

// Step returns the bound 1-based step n.
func (f *Form) Step(n int) (*Step, bool) {
	if n < 1 || n > len(f.Steps) {
		return nil, false
	}
	return f.Steps[n-1], true
}

// -----------------------------------------------------------------------------
// Review listing
// -----------------------------------------------------------------------------

// ReviewRow is one answered question on the review page.
type ReviewRow struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// ReviewSection lists the answers of one step.
type ReviewSection struct {
	Number int         `json:"number"`
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Rows   []ReviewRow `json:"rows"`
}

// Review lists the answers that would be submitted, step by step.  Steps
// that do not apply and fields that are stripped are left out.
func (d *Definition) Review(full Data, l locale.Locale) []ReviewSection {
	flat := full.Flatten()
	kept := d.ValidateForm(full, l).Value

	var out []ReviewSection
	for i := range d.Steps {
		sd := &d.Steps[i]
		if !sd.Applies(flat) {
			continue
		}
		sec := ReviewSection{Number: i + 1, ID: sd.ID, Title: sd.Title.In(l)}
		for _, fd := range sd.Fields() {
			v, present := kept[fd.Name]
			if !present {
				continue
			}
			f := d.bind(fd, l, flat).WithValue(v)
			sec.Rows = append(sec.Rows, ReviewRow{Name: f.Name, Label: f.Label, Value: f.DisplayValue})
		}
		out = append(out, sec)
	}
	return out
}
