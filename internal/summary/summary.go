// internal/summary/summary.go
//
// Compact overview of an application for dashboards and listings.
//
// Context
// -------
// Pending and submitted applications store their answers differently (step
// data versus the flattened payload sent downstream).  Both expose the same
// flat answer map through Record, so the summary is built the same way for
// either and always has the same shape.
//
// Notes
// -----
//   - Build is pure: no I/O, no clock.
//   - Budget rows with a non-numeric cost count as zero.
//   - The trading name wins over the legal name when both are present.
package summary

import (
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// Record is anything that can hand over its answers keyed by field name.
type Record interface {
	Answers() map[string]any
}

// Answers adapts a plain map to Record.
type Answers map[string]any

// Answers implements Record.
func (a Answers) Answers() map[string]any { return a }

// View is the overview of one application.
type View struct {
	Title            string  `json:"title"`
	Untitled         bool    `json:"untitled"`
	Amount           float64 `json:"amount"`
	AmountRequested  string  `json:"amountRequested"`
	DateRange        string  `json:"dateRange,omitempty"`
	OrganisationName string  `json:"organisationName,omitempty"`
}

// Fields names the answers the overview reads.
type Fields struct {
	Title       string
	Budget      string
	DateRange   string
	TradingName string
	LegalName   string
}

// DefaultFields match the shipped application form.
var DefaultFields = Fields{
	Title:       "projectName",
	Budget:      "projectBudget",
	DateRange:   "projectDateRange",
	TradingName: "organisationTradingName",
	LegalName:   "organisationLegalName",
}

var untitled = locale.T("Untitled application", "Cais heb deitl")

// Builder builds views using a field mapping.
type Builder struct {
	Fields Fields
}

// Build summarises rec with DefaultFields.
func Build(rec Record, l locale.Locale) View {
	return Builder{Fields: DefaultFields}.Build(rec, l)
}

// Build summarises rec for locale l.
func (b Builder) Build(rec Record, l locale.Locale) View {
	var answers map[string]any
	if rec != nil {
		answers = rec.Answers()
	}

	v := View{}
	if title, _ := schema.AsString(answers[b.Fields.Title]); title != "" {
		v.Title = title
	} else {
		v.Title = untitled.In(l)
		v.Untitled = true
	}

	v.Amount = schema.BudgetTotal(answers[b.Fields.Budget])
	v.AmountRequested = locale.Currency(v.Amount, l)

	if m, ok := schema.AsMap(answers[b.Fields.DateRange]); ok {
		start, okStart := schema.PartsToTime(m["startDate"])
		end, okEnd := schema.PartsToTime(m["endDate"])
		if okStart && okEnd {
			v.DateRange = locale.DateRange(start, end, l)
		}
	}

	if name, _ := schema.AsString(answers[b.Fields.TradingName]); name != "" {
		v.OrganisationName = name
	} else {
		v.OrganisationName, _ = schema.AsString(answers[b.Fields.LegalName])
	}
	return v
}
