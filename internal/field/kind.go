package field

import (
	"sort"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// Kind is the behaviour shared by every field of one type.  Schema returns
// the rule for a present value; presence and conditions are layered on by
// the Field.  Display must be a pure function of the value, the field's
// options, and the locale.
type Kind interface {
	Schema(f *Field) schema.Schema
	Messages(f *Field) []Message
	Display(f *Field, v any, l locale.Locale) string
}

// choiceKind marks kinds whose definitions must carry options.
type choiceKind interface {
	Kind
	choice()
}

// keyedKind is implemented by composite kinds that compare on a subset of
// their members when a field must differ from another.
type keyedKind interface {
	CompareKeys() []string
}

// Type names as written in definitions.
const (
	TypeText           = "text"
	TypeEmail          = "email"
	TypePhone          = "phone"
	TypeTextarea       = "textarea"
	TypeAddress        = "address"
	TypeAddressHistory = "address-history"
	TypeFullName       = "full-name"
	TypeDate           = "date"
	TypeDateParts      = "date-parts"
	TypeDateRange      = "date-range"
	TypeMonthYear      = "month-year"
	TypeDayMonth       = "day-month"
	TypeCurrency       = "currency"
	TypeBudget         = "budget"
	TypeRadio          = "radio"
	TypeCheckbox       = "checkbox"
	TypeFile           = "file"
)

var kinds = map[string]Kind{
	TypeText:           textKind{},
	TypeEmail:          emailKind{},
	TypePhone:          phoneKind{},
	TypeTextarea:       textareaKind{},
	TypeAddress:        addressKind{},
	TypeAddressHistory: addressHistoryKind{},
	TypeFullName:       fullNameKind{},
	TypeDate:           dateKind{},
	TypeDateParts:      datePartsKind{},
	TypeDateRange:      dateRangeKind{},
	TypeMonthYear:      monthYearKind{},
	TypeDayMonth:       dayMonthKind{},
	TypeCurrency:       currencyKind{},
	TypeBudget:         budgetKind{},
	TypeRadio:          radioKind{},
	TypeCheckbox:       checkboxKind{},
	TypeFile:           fileKind{},
}

// Types lists every known type name, sorted.
func Types() []string {
	out := make([]string, 0, len(kinds))
	for name := range kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Known reports whether typ names a registered kind.
func Known(typ string) bool {
	_, ok := kinds[typ]
	return ok
}
