// internal/field/kinds_composite.go
//
// Composite kinds: addresses, names, calendar values, and budgets.
//
// Notes
// -----
//   - Composite values are maps.  Their members are validated with
//     schema.Object, so a failing member reports its own key and the message
//     cascade can target it (e.g. key "postcode", type "any.required").
//   - Display values never fail.  A value too malformed to format shows as
//     an empty string.
package field

import (
	"strings"
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// -----------------------------------------------------------------------------
// address
// -----------------------------------------------------------------------------

var addressLines = []string{"line1", "line2", "townCity", "county", "postcode"}

func addressSchema() schema.Schema {
	return schema.Object(
		schema.K("line1", schema.Required(schema.String().Max(defaultMaxLength))),
		schema.K("line2", schema.Optional(schema.String().Max(defaultMaxLength))),
		schema.K("townCity", schema.Required(schema.String().Max(40))),
		schema.K("county", schema.Optional(schema.String().Max(80))),
		schema.K("postcode", schema.Required(schema.String().Postcode())),
	)
}

func addressMessages() []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter a full UK address", "Rhowch gyfeiriad llawn yn y DU"),
		KeyMsg("line1", schema.TypeRequired, "Enter a building and street", "Rhowch adeilad a stryd"),
		KeyMsg("townCity", schema.TypeRequired, "Enter a town or city", "Rhowch dref neu ddinas"),
		KeyMsg("postcode", schema.TypeRequired, "Enter a postcode", "Rhowch god post"),
		KeyMsg("postcode", schema.TypePostcode, "Enter a real postcode", "Rhowch god post go iawn"),
		Msg(schema.TypeStringMax, "This line of the address is too long", "Mae’r llinell hon o’r cyfeiriad yn rhy hir"),
	}
}

// FormatAddress joins the non-empty lines of an address value.
func FormatAddress(v any) string {
	m, ok := schema.AsMap(v)
	if !ok {
		return ""
	}
	parts := make([]string, 0, len(addressLines))
	for _, k := range addressLines {
		if s := displayString(m[k]); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

type addressKind struct{}

func (addressKind) Schema(*Field) schema.Schema { return addressSchema() }
func (addressKind) Messages(*Field) []Message { return addressMessages() }
func (addressKind) Display(_ *Field, v any, _ locale.Locale) string { return FormatAddress(v) }

// -----------------------------------------------------------------------------
// address-history
// -----------------------------------------------------------------------------

// addressHistoryKind asks whether the current address has been held long
// enough and, when it has not, for the previous one.
type addressHistoryKind struct{}

func (addressHistoryKind) Schema(*Field) schema.Schema {
	return schema.Object(
		schema.K("currentAddressMeetsMinimum", schema.Required(schema.String().Valid("yes", "no"))),
		schema.K("previousAddress", schema.WhenMember("currentAddressMeetsMinimum", schema.Strip(),
			schema.Case{In: []string{"no"}, Then: schema.Required(addressSchema())},
		)),
	)
}

func (addressHistoryKind) Messages(*Field) []Message {
	return append([]Message{
		KeyMsg("currentAddressMeetsMinimum", schema.TypeRequired,
			"Answer yes or no", "Atebwch ydw neu nac ydw"),
		KeyMsg("previousAddress", schema.TypeRequired,
			"Enter a previous address", "Rhowch gyfeiriad blaenorol"),
	}, addressMessages()...)
}

func (addressHistoryKind) Display(_ *Field, v any, l locale.Locale) string {
	m, ok := schema.AsMap(v)
	if !ok {
		return ""
	}
	meets := displayString(m["currentAddressMeetsMinimum"])
	if meets == "no" {
		if prev := FormatAddress(m["previousAddress"]); prev != "" {
			return prev
		}
	}
	return locale.YesNo(meets, l)
}

// -----------------------------------------------------------------------------
// full-name
// -----------------------------------------------------------------------------

type fullNameKind struct{}

func (fullNameKind) Schema(*Field) schema.Schema {
	return schema.Object(
		schema.K("firstName", schema.Required(schema.String().Max(40))),
		schema.K("lastName", schema.Required(schema.String().Max(80))),
	)
}

func (fullNameKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter first and last name", "Rhowch enw cyntaf a chyfenw"),
		KeyMsg("firstName", schema.TypeRequired, "Enter first name", "Rhowch enw cyntaf"),
		KeyMsg("lastName", schema.TypeRequired, "Enter last name", "Rhowch gyfenw"),
		Msg(schema.TypeObjectEqual, "This name must be different from the other contact",
			"Rhaid i’r enw hwn fod yn wahanol i’r cyswllt arall"),
	}
}

func (fullNameKind) Display(_ *Field, v any, _ locale.Locale) string {
	m, ok := schema.AsMap(v)
	if !ok {
		return ""
	}
	return strings.TrimSpace(displayString(m["firstName"]) + " " + displayString(m["lastName"]))
}

func (fullNameKind) CompareKeys() []string { return []string{"firstName", "lastName"} }

// -----------------------------------------------------------------------------
// date / date-parts
// -----------------------------------------------------------------------------

func dateMessages() []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter a real date", "Rhowch ddyddiad go iawn"),
		Msg(schema.TypeDateMax, "Date must be in the past", "Rhaid i’r dyddiad fod yn y gorffennol"),
		Msg(schema.TypeMinAge, "Must be at least {limit} years old", "Rhaid bod yn {limit} oed o leiaf"),
	}
}

type dateKind struct{}

func (dateKind) Schema(f *Field) schema.Schema {
	s := schema.Date()
	if f.def.Settings.Past {
		s.Past()
	}
	return s
}

func (dateKind) Messages(*Field) []Message { return dateMessages() }

func (dateKind) Display(_ *Field, v any, l locale.Locale) string {
	t, err := time.Parse("2006-01-02", displayString(v))
	if err != nil {
		return ""
	}
	return locale.Date(t, l)
}

type datePartsKind struct{}

func (datePartsKind) Schema(f *Field) schema.Schema {
	st := f.def.Settings
	s := schema.DateParts().MinAge(st.MinAge)
	if st.Past {
		s.Past()
	}
	return s
}

func (datePartsKind) Messages(*Field) []Message { return dateMessages() }

func (datePartsKind) Display(_ *Field, v any, l locale.Locale) string {
	t, ok := schema.PartsToTime(v)
	if !ok {
		return ""
	}
	return locale.Date(t, l)
}

// -----------------------------------------------------------------------------
// date-range
// -----------------------------------------------------------------------------

type dateRangeKind struct{}

func (dateRangeKind) Schema(f *Field) schema.Schema {
	st := f.def.Settings
	return schema.DateRange().MinStartDays(st.MinStartDays).MaxDurationMonths(st.MaxDurationMonths)
}

func (dateRangeKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter a project start and end date", "Rhowch ddyddiad dechrau a gorffen y prosiect"),
		Msg(schema.TypeRangeIncomplete, "Enter both a start and an end date", "Rhowch ddyddiad dechrau a dyddiad gorffen"),
		KeyMsg("startDate", schema.TypeDateBase, "Enter a real start date", "Rhowch ddyddiad dechrau go iawn"),
		KeyMsg("endDate", schema.TypeDateBase, "Enter a real end date", "Rhowch ddyddiad gorffen go iawn"),
		Msg(schema.TypeRangeMinDate, "Date you start the project must be on or after {limit}",
			"Rhaid i ddyddiad dechrau’r prosiect fod ar neu ar ôl {limit}"),
		Msg(schema.TypeRangeBeforeStart, "End date must be the same as or after the start date",
			"Rhaid i’r dyddiad gorffen fod yr un fath â’r dyddiad dechrau neu ar ei ôl"),
		Msg(schema.TypeRangeOutsideLimit, "Project must end within {limit} months of the start date",
			"Rhaid i’r prosiect orffen o fewn {limit} mis i’r dyddiad dechrau"),
	}
}

func (dateRangeKind) Display(_ *Field, v any, l locale.Locale) string {
	m, ok := schema.AsMap(v)
	if !ok {
		return ""
	}
	start, okStart := schema.PartsToTime(m["startDate"])
	end, okEnd := schema.PartsToTime(m["endDate"])
	if !okStart || !okEnd {
		return ""
	}
	return locale.DateRange(start, end, l)
}

// -----------------------------------------------------------------------------
// month-year / day-month
// -----------------------------------------------------------------------------

type monthYearKind struct{}

func (monthYearKind) Schema(*Field) schema.Schema { return schema.MonthYear() }

func (monthYearKind) Messages(*Field) []Message {
	return []Message{Msg(schema.TypeBase, "Enter a real month and year", "Rhowch fis a blwyddyn go iawn")}
}

func (monthYearKind) Display(_ *Field, v any, l locale.Locale) string {
	m, ok := schema.AsMap(v)
	if !ok {
		return ""
	}
	mo, okM := schema.AsInt(m["month"])
	y, okY := schema.AsInt(m["year"])
	if !okM || !okY || mo < 1 || mo > 12 {
		return ""
	}
	return locale.MonthYear(time.Month(mo), y, l)
}

type dayMonthKind struct{}

func (dayMonthKind) Schema(*Field) schema.Schema { return schema.DayMonth() }

func (dayMonthKind) Messages(*Field) []Message {
	return []Message{Msg(schema.TypeBase, "Enter a real day and month", "Rhowch ddiwrnod a mis go iawn")}
}

func (dayMonthKind) Display(_ *Field, v any, l locale.Locale) string {
	m, ok := schema.AsMap(v)
	if !ok {
		return ""
	}
	d, okD := schema.AsInt(m["day"])
	mo, okM := schema.AsInt(m["month"])
	if !okD || !okM || mo < 1 || mo > 12 {
		return ""
	}
	return locale.DayMonth(d, time.Month(mo), l)
}

// -----------------------------------------------------------------------------
// budget
// -----------------------------------------------------------------------------

type budgetKind struct{}

func (budgetKind) Schema(f *Field) schema.Schema {
	st := f.def.Settings
	return schema.Budget(st.MinTotal, st.MaxTotal).MaxItems(st.MaxItems)
}

func (budgetKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter a project budget", "Rhowch gyllideb prosiect"),
		KeyMsg("item", schema.TypeRequired, "Enter a description for each item", "Rhowch ddisgrifiad ar gyfer pob eitem"),
		KeyMsg("item", schema.TypeStringMax, "Item descriptions must be {limit} characters or fewer",
			"Rhaid i ddisgrifiadau eitemau fod yn {limit} nod neu lai"),
		KeyMsg("cost", schema.TypeRequired, "Enter a cost for each item", "Rhowch gost ar gyfer pob eitem"),
		KeyMsg("cost", schema.TypeNumberBase, "Enter a real cost, like 1500", "Rhowch gost go iawn, e.e. 1500"),
		KeyMsg("cost", schema.TypeNumberMin, "Each cost must be at least £1", "Rhaid i bob cost fod o leiaf £1"),
		Msg(schema.TypeUnderBudget, "Costs you would like us to fund must be at least £{limit}",
			"Rhaid i’r costau yr hoffech i ni eu hariannu fod o leiaf £{limit}"),
		Msg(schema.TypeOverBudget, "Costs you would like us to fund must be £{limit} or less",
			"Rhaid i’r costau yr hoffech i ni eu hariannu fod yn £{limit} neu lai"),
		Msg(schema.TypeArrayMax, "Enter no more than {limit} budget items", "Rhowch dim mwy na {limit} eitem yn y gyllideb"),
	}
}

func (budgetKind) Display(_ *Field, v any, l locale.Locale) string {
	if _, ok := schema.AsList(v); !ok {
		return ""
	}
	return locale.Currency(schema.BudgetTotal(v), l)
}
