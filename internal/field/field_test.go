package field

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

func opt(value, en, cy string) OptionDef {
	return OptionDef{Value: value, Label: locale.T(en, cy)}
}

func mustNew(t *testing.T, def Def, l locale.Locale, data map[string]any) *Field {
	t.Helper()
	f, err := New(def, l, data)
	require.NoError(t, err)
	return f
}

func validate(fields []*Field, data map[string]any) schema.Result {
	agg := schema.NewAggregate()
	for _, f := range fields {
		agg.Add(f.Name, f.Schema())
	}
	c := schema.Context{Locale: locale.EN, Data: data, Now: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	return agg.Validate(data, c)
}

func TestChoiceConfigErrors(t *testing.T) {
	_, err := New(Def{Name: "colour", Type: TypeRadio}, locale.EN, nil)
	assert.True(t, errors.Is(err, ErrConfig), "no options: %v", err)

	_, err = New(Def{Name: "colour", Type: TypeCheckbox, Options: []OptionDef{
		opt("red", "Red", "Coch"), opt("red", "Also red", "Coch eto"),
	}}, locale.EN, nil)
	assert.True(t, errors.Is(err, ErrConfig), "duplicate options: %v", err)

	_, err = New(Def{Name: "x", Type: "slider"}, locale.EN, nil)
	assert.True(t, errors.Is(err, ErrConfig), "unknown type: %v", err)

	_, err = New(Def{Name: "x", Type: TypeText, Conditions: []Condition{{Field: "y", In: []string{"a"}, Then: "maybe"}}}, locale.EN, nil)
	assert.True(t, errors.Is(err, ErrConfig), "bad presence: %v", err)
}

func TestDisplayValues(t *testing.T) {
	cases := []struct {
		def  Def
		l    locale.Locale
		raw  any
		want string
	}{
		{Def{Name: "a", Type: TypeAddress}, locale.EN,
			map[string]any{"line1": "1 Plas Road", "townCity": "Cardiff", "postcode": "CF10 1AA"},
			"1 Plas Road, Cardiff, CF10 1AA"},
		{Def{Name: "n", Type: TypeFullName}, locale.EN,
			map[string]any{"firstName": "Ann", "lastName": "Jones"}, "Ann Jones"},
		{Def{Name: "d", Type: TypeDateParts}, locale.CY,
			map[string]any{"day": "1", "month": "3", "year": "2025"}, "1 Mawrth 2025"},
		{Def{Name: "d", Type: TypeDate}, locale.EN, "2025-03-01", "1 March 2025"},
		{Def{Name: "r", Type: TypeDateRange}, locale.EN, map[string]any{
			"startDate": map[string]any{"day": 1, "month": 9, "year": 2025},
			"endDate":   map[string]any{"day": 31, "month": 3, "year": 2026},
		}, "1 September 2025–31 March 2026"},
		{Def{Name: "m", Type: TypeMonthYear}, locale.EN, map[string]any{"month": "4", "year": "2019"}, "April 2019"},
		{Def{Name: "m", Type: TypeDayMonth}, locale.EN, map[string]any{"day": "31", "month": "3"}, "31 March"},
		{Def{Name: "c", Type: TypeCurrency}, locale.EN, "12500", "£12,500"},
		{Def{Name: "b", Type: TypeBudget}, locale.EN, []any{
			map[string]any{"item": "Venue", "cost": "4000"},
			map[string]any{"item": "Catering", "cost": "3000"},
		}, "£7,000"},
		{Def{Name: "f", Type: TypeFile}, locale.EN, map[string]any{"filename": "accounts.pdf"}, "accounts.pdf"},
		{Def{Name: "h", Type: TypeAddressHistory}, locale.CY, map[string]any{"currentAddressMeetsMinimum": "yes"}, "Ydw"},
		{Def{Name: "t", Type: TypeText}, locale.EN, nil, ""},
		{Def{Name: "t", Type: TypeDateParts}, locale.EN, "garbage", ""},
	}
	for _, tc := range cases {
		f := mustNew(t, tc.def, tc.l, nil)
		first := f.WithValue(tc.raw)
		second := f.WithValue(tc.raw)
		assert.Equal(t, tc.want, first.DisplayValue, "%s display", tc.def.Type)
		assert.Equal(t, first.DisplayValue, second.DisplayValue, "%s display must be pure", tc.def.Type)
		assert.Nil(t, f.Value, "WithValue must not touch the receiver")
	}
}

func TestChoiceDisplay(t *testing.T) {
	def := Def{Name: "beneficiaries", Type: TypeCheckbox, Options: []OptionDef{
		opt("older-people", "Older people", "Pobl hŷn"),
		opt("disabled-people", "Disabled people", "Pobl anabl"),
	}}
	f := mustNew(t, def, locale.CY, nil)
	assert.Equal(t, "Pobl hŷn, Pobl anabl", f.WithValue([]any{"older-people", "disabled-people"}).DisplayValue)
	assert.Equal(t, "Pobl hŷn, retired", f.WithValue([]string{"older-people", "retired"}).DisplayValue,
		"unmatched values fall back to the raw value")
}

func TestOptionShowWhen(t *testing.T) {
	def := Def{Name: "organisationSubType", Type: TypeRadio, Options: []OptionDef{
		opt("parish-council", "Parish council", "Cyngor cymuned"),
		{Value: "nhs-trust", Label: locale.T("NHS trust", "Ymddiriedolaeth GIG"),
			ShowWhen: &Condition{Field: "country", In: []string{"england"}}},
	}}
	data := map[string]any{"country": "wales", "organisationSubType": "nhs-trust"}
	f := mustNew(t, def, locale.EN, data)
	require.Len(t, f.Options, 1)

	res := validate([]*Field{f}, data)
	require.False(t, res.Valid())
	assert.Equal(t, schema.TypeOnly, res.Error.Details[0].Type)

	data["country"] = "england"
	f = mustNew(t, def, locale.EN, data)
	assert.True(t, validate([]*Field{f}, data).Valid())
}

func TestMessagePrecedence(t *testing.T) {
	def := Def{Name: "mainContactAddress", Type: TypeAddress, Messages: []Message{
		Msg(schema.TypeBase, "Enter the main contact’s address", "Rhowch gyfeiriad y prif gyswllt"),
		KeyMsg("postcode", schema.TypeRequired, "Enter the main contact’s postcode", "Rhowch god post y prif gyswllt"),
	}}
	f := mustNew(t, def, locale.EN, nil)

	res := validate([]*Field{f}, map[string]any{
		"mainContactAddress": map[string]any{"line1": "1 Plas Road", "townCity": "Cardiff"},
	})
	require.False(t, res.Valid())
	d := res.Error.Details[0]
	assert.Equal(t, "postcode", d.Key())
	assert.Equal(t, "Enter the main contact’s postcode", f.Message(d))

	// Type-only beats base.
	d = schema.Detail{Type: schema.TypeStringMax, Path: []string{"mainContactAddress"}}
	assert.Equal(t, "This line of the address is too long", f.Message(d))

	// Unknown type falls to base.
	d = schema.Detail{Type: "something.else", Path: []string{"mainContactAddress"}}
	assert.Equal(t, "Enter the main contact’s address", f.Message(d))

	cy := mustNew(t, def, locale.CY, nil)
	assert.Equal(t, "Rhowch gyfeiriad y prif gyswllt", cy.Message(d))
}

func TestMessageFallbackAndInterpolation(t *testing.T) {
	assert.Equal(t, "There is a problem with this answer",
		Resolve(nil, schema.Detail{Type: schema.TypeRequired}, locale.EN, "Name"))

	f := mustNew(t, Def{Name: "projectSummary", Type: TypeTextarea, Settings: Settings{MaxWords: 300}}, locale.EN, nil)
	d := schema.Detail{Type: schema.TypeMaxWords, Context: map[string]any{"limit": 300, "count": 301}}
	assert.Equal(t, "Answer must be no more than 300 words", f.Message(d))

	f = mustNew(t, Def{Name: "projectDateRange", Type: TypeDateRange}, locale.EN, nil)
	d = schema.Detail{Type: schema.TypeRangeMinDate, Context: map[string]any{"limit": "2025-06-13", "key": "startDate"}}
	assert.Equal(t, "Date you start the project must be on or after 13 June 2025", f.Message(d))
}

func contactDefs() []Def {
	notSchool := Condition{Field: "organisationType", NotIn: []string{"school", "statutory-body"}, Then: "required"}
	return []Def{
		{Name: "organisationType", Type: TypeRadio, Options: []OptionDef{
			opt("charity", "Registered charity", "Elusen gofrestredig"),
			opt("school", "School", "Ysgol"),
			opt("statutory-body", "Statutory body", "Corff statudol"),
		}},
		{Name: "mainContactDateOfBirth", Type: TypeDateParts, Settings: Settings{MinAge: 16},
			Conditions: []Condition{notSchool}},
		{Name: "mainContactAddressHistory", Type: TypeAddressHistory,
			Conditions: []Condition{notSchool}},
	}
}

func build(t *testing.T, defs []Def, data map[string]any) []*Field {
	t.Helper()
	out := make([]*Field, len(defs))
	for i, d := range defs {
		out[i] = mustNew(t, d, locale.EN, data)
	}
	return out
}

func TestSchoolStripsContactHistory(t *testing.T) {
	data := map[string]any{
		"organisationType":          "school",
		"mainContactDateOfBirth":    map[string]any{"day": "1", "month": "1", "year": "1980"},
		"mainContactAddressHistory": map[string]any{"currentAddressMeetsMinimum": "yes"},
	}
	fields := build(t, contactDefs(), data)
	assert.False(t, fields[1].Required)
	assert.False(t, fields[2].Required)

	res := validate(fields, data)
	require.True(t, res.Valid(), "%v", res.Error)
	assert.NotContains(t, res.Value, "mainContactDateOfBirth")
	assert.NotContains(t, res.Value, "mainContactAddressHistory")

	data["organisationType"] = "charity"
	fields = build(t, contactDefs(), data)
	assert.True(t, fields[1].Required)
	res = validate(fields, data)
	require.True(t, res.Valid(), "%v", res.Error)
	assert.Contains(t, res.Value, "mainContactDateOfBirth")
	assert.Contains(t, res.Value, "mainContactAddressHistory")
}

func TestAddressHistoryNeedsPreviousAddress(t *testing.T) {
	data := map[string]any{
		"organisationType":          "charity",
		"mainContactDateOfBirth":    map[string]any{"day": "1", "month": "1", "year": "1980"},
		"mainContactAddressHistory": map[string]any{"currentAddressMeetsMinimum": "no"},
	}
	fields := build(t, contactDefs(), data)
	res := validate(fields, data)
	require.False(t, res.Valid())
	d := res.Error.Details[0]
	assert.Equal(t, "mainContactAddressHistory", d.Field())
	assert.Equal(t, "Enter a previous address", fields[2].Message(d))
}

func TestFirstMatchingConditionWins(t *testing.T) {
	def := Def{Name: "charityNumber", Type: TypeText, Conditions: []Condition{
		{Field: "organisationType", In: []string{"charity"}, Then: "required"},
		{Field: "organisationType", In: []string{"charity", "cio"}, Then: "optional"},
	}}
	data := map[string]any{"organisationType": "charity"}
	f := mustNew(t, def, locale.EN, data)
	assert.True(t, f.Required)
	assert.False(t, validate([]*Field{f}, data).Valid())

	data = map[string]any{"organisationType": "cio"}
	f = mustNew(t, def, locale.EN, data)
	assert.False(t, f.Required)
	assert.True(t, validate([]*Field{f}, data).Valid())

	// Unmatched conditions strip rather than require.
	data = map[string]any{"organisationType": "school", "charityNumber": "123"}
	f = mustNew(t, def, locale.EN, data)
	res := validate([]*Field{f}, data)
	assert.True(t, res.Valid())
	assert.NotContains(t, res.Value, "charityNumber")

	def.Otherwise = "optional"
	f = mustNew(t, def, locale.EN, data)
	assert.Equal(t, "123", validate([]*Field{f}, data).Value["charityNumber"])
}

func TestDependsOn(t *testing.T) {
	def := Def{Name: "seniorContactName", Type: TypeFullName, DiffersFrom: "mainContactName",
		Conditions: []Condition{{Field: "organisationType", NotIn: []string{"x"}, Then: "required"}}}
	f := mustNew(t, def, locale.EN, nil)
	assert.ElementsMatch(t, []string{"organisationType", "mainContactName"}, f.DependsOn())
	assert.ElementsMatch(t, []string{"organisationType", "mainContactName"}, schema.DependsOn(f.Schema()))
}

func TestTypes(t *testing.T) {
	assert.Len(t, Types(), 17)
	assert.True(t, Known(TypeBudget))
}
