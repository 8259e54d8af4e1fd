// internal/form/form_test.go
//
// Tests for the form engine against testdata/small-grants.yaml.
//
// Run: go test ./internal/form -v

package form

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/suite"

	"github.com/mattandrews/blf-test-sub000/internal/field"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

var fixedNow = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.UTC)

type FormSuite struct {
	suite.Suite
	raw       string
	def       *Definition
	submitted []Submission
}

func TestFormSuite(t *testing.T) {
	suite.Run(t, new(FormSuite))
}

func (s *FormSuite) SetupTest() {
	raw, err := os.ReadFile("testdata/small-grants.yaml")
	s.Require().NoError(err)
	s.raw = string(raw)

	s.def, err = Parse(raw, "small-grants.yaml")
	s.Require().NoError(err)
	s.def.Clock = func() time.Time { return fixedNow }
	s.submitted = nil
	s.def.WithProcessor(ProcessorFunc(func(_ context.Context, sub Submission) error {
		s.submitted = append(s.submitted, sub)
		return nil
	}))
}

func parts(d, m, y int) map[string]any {
	return map[string]any{"day": d, "month": m, "year": y}
}

func complete() Data {
	return Data{
		"step-1": {
			"projectName":      "Community garden",
			"projectDateRange": map[string]any{"startDate": parts(1, 9, 2025), "endDate": parts(31, 3, 2026)},
			"projectBudget": []any{
				map[string]any{"item": "Venue", "cost": "4000"},
				map[string]any{"item": "Catering", "cost": "3000"},
			},
			"projectTotalCosts": "7500",
		},
		"step-2": {
			"organisationType":        "charity",
			"organisationLegalName":   "Plas Garden Trust",
			"organisationTradingName": "Plas Gardens",
		},
		"step-3": {
			"mainContactName":           map[string]any{"firstName": "Ann", "lastName": "Jones"},
			"mainContactEmail":          "ann@example.com",
			"mainContactDateOfBirth":    parts(1, 1, 1980),
			"mainContactAddressHistory": map[string]any{"currentAddressMeetsMinimum": "yes"},
		},
		"step-4": {
			"seniorContactName":  map[string]any{"firstName": "Bob", "lastName": "Evans"},
			"seniorContactEmail": "bob@example.com",
		},
		"step-5": {
			"bankAccountName": "Plas Garden Trust",
		},
	}
}

// -----------------------------------------------------------------------------
// Loading
// -----------------------------------------------------------------------------

func (s *FormSuite) TestParseRejectsBrokenDefinitions() {
	cases := map[string][2]string{
		"missing review": {
			"review:\n  title: { en: \"Check your answers\", cy: \"Gwiriwch eich atebion\" }\n", ""},
		"missing processor":  {"processor: test-submit", `processor: ""`},
		"dangling reference": {"differs_from: mainContactName", "differs_from: mainContactNmae"},
		"duplicate field":    {"name: bankAccountName", "name: projectName"},
		"duplicate option":   {"value: school", "value: charity"},
		"unknown type":       {"type: full-name\n            label: { en: \"Full name\", cy: \"Enw llawn\" }\n          - name: mainContactEmail", "type: fullname\n            label: { en: \"Full name\", cy: \"Enw llawn\" }\n          - name: mainContactEmail"},
		"bad step condition": {"condition: { field: organisationType", "condition: { field: organisationKind"},
	}
	for name, c := range cases {
		s.Require().Contains(s.raw, c[0], name)
		_, err := Parse([]byte(strings.Replace(s.raw, c[0], c[1], 1)), name)
		s.True(errors.Is(err, ErrConfig), "%s: got %v", name, err)
	}
}

func (s *FormSuite) TestFieldConfigErrorsKeepBothSentinels() {
	for name, c := range map[string][2]string{
		"duplicate option": {"value: school", "value: charity"},
		"unknown type":     {"type: full-name", "type: fullname"},
	} {
		s.Require().Contains(s.raw, c[0], name)
		_, err := Parse([]byte(strings.Replace(s.raw, c[0], c[1], 1)), name)
		s.Require().Error(err, name)
		s.True(errors.Is(err, ErrConfig), "%s: got %v", name, err)
		s.True(errors.Is(err, field.ErrConfig), "%s: got %v", name, err)
		s.Contains(err.Error(), "step \"", name)
	}
}

func (s *FormSuite) TestRegisterNeedsProcessor() {
	def, err := Parse([]byte(s.raw), "small-grants.yaml")
	s.Require().NoError(err)
	s.True(errors.Is(Register(def), ErrConfig))

	RegisterProcessor("test-submit", ProcessorFunc(func(context.Context, Submission) error { return nil }))
	s.Require().NoError(Register(def))
	got, ok := Get("test/small-grants")
	s.True(ok)
	s.Equal(5, got.TotalSteps())
	s.Contains(IDs(), "test/small-grants")
}

// -----------------------------------------------------------------------------
// Step validation
// -----------------------------------------------------------------------------

func (s *FormSuite) TestValidateStepMergesStoredAnswers() {
	full := Data{"step-2": {"organisationType": "charity", "organisationLegalName": "Plas Garden Trust"}}
	before := full.Clone()

	res := s.def.ValidateStep(2, map[string]any{"organisationTradingName": "Plas Gardens"}, full, locale.EN)
	s.Require().True(res.Valid(), "%v", res.Error)
	s.Equal("Plas Garden Trust", res.Value["organisationLegalName"])
	s.Equal("Plas Gardens", res.Value["organisationTradingName"])

	if diff := cmp.Diff(before, full); diff != "" {
		s.Failf("caller data mutated", "(-before +after):\n%s", diff)
	}
}

func (s *FormSuite) TestBudgetWithinBounds() {
	res := s.def.ValidateStep(1, complete()["step-1"], Data{}, locale.EN)
	s.Require().True(res.Valid(), "%v", res.Error)
	s.Equal(7000.0, schema.BudgetTotal(res.Value["projectBudget"]))

	low := complete()["step-1"]
	low["projectTotalCosts"] = "6000"
	res = s.def.ValidateStep(1, low, Data{}, locale.EN)
	s.Require().False(res.Valid())
	errs := s.def.FieldErrors(res, Data{"step-1": low}, locale.EN)
	s.Require().Len(errs, 1)
	s.Equal("projectTotalCosts", errs[0].Name)
	s.Equal("Amount must be at least £7,000", errs[0].Message)
}

func (s *FormSuite) TestNamesMustDiffer() {
	full := complete()
	raw := map[string]any{
		"seniorContactName":  map[string]any{"firstName": " ann", "lastName": "JONES"},
		"seniorContactEmail": "bob@example.com",
	}
	res := s.def.ValidateStep(4, raw, full, locale.EN)
	s.Require().False(res.Valid())
	s.Require().Len(res.Error.Details, 1)

	errs := s.def.FieldErrors(res, full.WithStep(4, raw), locale.EN)
	s.Require().Len(errs, 1)
	s.Equal("seniorContactName", errs[0].Name)
	s.Equal("Senior contact name must be different from the main contact's name", errs[0].Message)
	s.Equal(4, errs[0].Step)

	cy := s.def.FieldErrors(res, full, locale.CY)
	s.Equal("Rhaid i enw’r uwch gyswllt fod yn wahanol i enw’r prif gyswllt", cy[0].Message)
}

func (s *FormSuite) TestSchoolStripsPersonalDetails() {
	full := complete()
	full["step-2"]["organisationType"] = "school"

	res := s.def.ValidateStep(3, nil, full, locale.EN)
	s.Require().True(res.Valid(), "%v", res.Error)
	s.NotContains(res.Value, "mainContactDateOfBirth")
	s.NotContains(res.Value, "mainContactAddressHistory")
	s.Contains(res.Value, "mainContactName")

	// The same answers are required for a charity.
	full = complete()
	delete(full["step-3"], "mainContactDateOfBirth")
	res = s.def.ValidateStep(3, nil, full, locale.EN)
	s.Require().False(res.Valid())
	s.Equal("mainContactDateOfBirth", res.Error.Details[0].Field())
	s.Equal(schema.TypeRequired, res.Error.Details[0].Type)
}

func (s *FormSuite) TestValidateFormIsIdempotent() {
	first := s.def.ValidateForm(complete(), locale.EN)
	s.Require().True(first.Valid(), "%v", first.Error)

	second := s.def.ValidateForm(Data{"step-1": first.Value}, locale.EN)
	s.Require().True(second.Valid(), "%v", second.Error)
	if diff := cmp.Diff(first.Value, second.Value); diff != "" {
		s.Failf("second pass changed the value", "(-first +second):\n%s", diff)
	}
}

// -----------------------------------------------------------------------------
// Progress and navigation
// -----------------------------------------------------------------------------

func (s *FormSuite) TestProgress() {
	p := s.def.Progress(Data{}, locale.EN)
	s.Equal(1, p.CurrentStepNumber)
	s.Equal(5, p.TotalSteps)
	for _, st := range p.Steps {
		s.Equal(StateNotStarted, st.State, "step %d", st.Number)
	}

	full := Data{"step-1": complete()["step-1"], "step-2": {"organisationType": "charity"}}
	p = s.def.Progress(full, locale.EN)
	s.Equal(StateComplete, p.Steps[0].State)
	s.Equal(StateInProgress, p.Steps[1].State)
	s.Equal(StateNotStarted, p.Steps[2].State)
	s.Equal(2, p.CurrentStepNumber)

	p = s.def.Progress(complete(), locale.EN)
	s.True(p.ReadyForReview())
	s.Equal(5, p.CompletedSteps)
}

func (s *FormSuite) TestConditionalStepIsSkipped() {
	full := complete()
	full["step-2"]["organisationType"] = "statutory-body"
	delete(full, "step-5")

	p := s.def.Progress(full, locale.EN)
	s.Equal(StateNotRequired, p.Steps[4].State)
	s.Equal(4, p.RequiredSteps)
	s.True(p.ReadyForReview())

	res := s.def.ValidateForm(full, locale.EN)
	s.True(res.Valid(), "%v", res.Error)

	// Stored answers of a skipped step are kept, not cleared.
	full = full.WithStep(5, map[string]any{"bankAccountName": "Old answer"})
	s.True(s.def.ValidateForm(full, locale.EN).Valid())
	s.Equal("Old answer", full.Step(5)["bankAccountName"])

	next, ok := s.def.Enter(5, full, locale.EN)
	s.False(ok)
	s.Equal(6, next, "a skipped step forwards to review")
}

func (s *FormSuite) TestEnterRedirectsToFirstIncompleteStep() {
	full := Data{"step-1": complete()["step-1"]}

	n, ok := s.def.Enter(2, full, locale.EN)
	s.True(ok)
	s.Equal(2, n)

	n, ok = s.def.Enter(4, full, locale.EN)
	s.False(ok)
	s.Equal(2, n)

	n, ok = s.def.Enter(6, full, locale.EN)
	s.False(ok, "review needs every required step")
	s.Equal(2, n)

	n, ok = s.def.Enter(6, complete(), locale.EN)
	s.True(ok)
	s.Equal(6, n)

	s.Equal(3, s.def.Next(2, full, locale.EN))
	s.Equal(1, s.def.Previous(2, full, locale.EN))
}

// -----------------------------------------------------------------------------
// Review and submission
// -----------------------------------------------------------------------------

func (s *FormSuite) TestReview() {
	sections := s.def.Review(complete(), locale.EN)
	s.Require().Len(sections, 5)
	rows := map[string]string{}
	for _, sec := range sections {
		for _, r := range sec.Rows {
			rows[r.Name] = r.Value
		}
	}
	s.Equal("£7,000", rows["projectBudget"])
	s.Equal("Registered charity", rows["organisationType"])
	s.Equal("1 September 2025–31 March 2026", rows["projectDateRange"])
	s.Equal("Ann Jones", rows["mainContactName"])
}

func (s *FormSuite) TestSubmit() {
	ctx := context.Background()

	_, err := s.def.Submit(ctx, Data{"step-1": complete()["step-1"]}, locale.EN)
	s.True(IsValidationError(err), "incomplete form: %v", err)
	s.NotEmpty(ValidationFields(err))

	_, err = s.def.Submit(ctx, complete(), locale.EN)
	s.ErrorIs(err, ErrNotReviewed)
	s.Empty(s.submitted)

	full := complete().With(ReviewKey, map[string]any{"termsAgreement": "yes"})
	sub, err := s.def.Submit(ctx, full, locale.CY)
	s.Require().NoError(err)
	s.Require().Len(s.submitted, 1)
	s.Equal("test/small-grants", sub.FormID)
	s.Equal(locale.CY, sub.Locale)
	s.Equal(fixedNow, sub.SubmittedAt)
	s.Equal("Plas Gardens", sub.Value["organisationTradingName"])
}

func (s *FormSuite) TestSubmitFailureRoutesToErrorPage() {
	s.def.WithProcessor(Chain(
		ProcessorFunc(func(context.Context, Submission) error { return errors.New("database unavailable") }),
		ProcessorFunc(func(_ context.Context, sub Submission) error {
			s.submitted = append(s.submitted, sub)
			return nil
		}),
	))
	full := complete().With(ReviewKey, map[string]any{"termsAgreement": "yes"})
	_, err := s.def.Submit(context.Background(), full, locale.EN)
	s.ErrorIs(err, ErrSubmission)
	s.False(IsValidationError(err))
	s.Empty(s.submitted, "later processors must not run after a failure")
	s.NotEmpty(s.def.Error.Title.In(locale.EN))
}

// -----------------------------------------------------------------------------
// Data helpers
// -----------------------------------------------------------------------------

func (s *FormSuite) TestDataHelpers() {
	d := Data{"step-1": {"a": 1}}
	e := d.Merge("step-1", map[string]any{"b": 2})
	s.Equal(map[string]any{"a": 1}, d["step-1"])
	s.Equal(map[string]any{"a": 1, "b": 2}, e["step-1"])

	e = e.With(ReviewKey, map[string]any{"ok": "yes"})
	s.NotContains(e.Flatten(), "ok")

	n, ok := StepNumber("step-12")
	s.True(ok)
	s.Equal(12, n)
	_, ok = StepNumber("review")
	s.False(ok)

	m := FromMap(map[string]any{"step-1": map[string]any{"x": "y"}, "junk": "z"})
	s.Equal(Data{"step-1": {"x": "y"}}, m)
}
