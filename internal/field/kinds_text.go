// internal/field/kinds_text.go
//
// Scalar kinds: free text, contact details, money, choices, and uploads.
package field

import (
	"strings"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

const defaultMaxLength = 255

func displayString(v any) string {
	s, _ := schema.AsString(v)
	return s
}

// -----------------------------------------------------------------------------
// text
// -----------------------------------------------------------------------------

type textKind struct{}

func (textKind) Schema(f *Field) schema.Schema {
	st := f.def.Settings
	max := st.MaxLength
	if max == 0 {
		max = defaultMaxLength
	}
	s := schema.String().Min(st.MinLength).Max(max)
	if len(st.Invalid) > 0 {
		s.Invalid(st.Invalid...)
	}
	return s
}

func (textKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter an answer", "Rhowch ateb"),
		Msg(schema.TypeStringMax, "Answer must be {limit} characters or fewer",
			"Rhaid i’r ateb fod yn {limit} nod neu lai"),
		Msg(schema.TypeStringMin, "Answer must be at least {limit} characters",
			"Rhaid i’r ateb fod o leiaf {limit} nod"),
		Msg(schema.TypeInvalid, "Enter a different answer", "Rhowch ateb gwahanol"),
	}
}

func (textKind) Display(_ *Field, v any, _ locale.Locale) string { return displayString(v) }

// -----------------------------------------------------------------------------
// email / phone
// -----------------------------------------------------------------------------

type emailKind struct{}

func (emailKind) Schema(*Field) schema.Schema {
	return schema.String().Email().Max(defaultMaxLength)
}

func (emailKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter an email address", "Rhowch gyfeiriad e-bost"),
		Msg(schema.TypeEmail, "Enter an email address in the correct format, like name@example.com",
			"Rhowch gyfeiriad e-bost yn y fformat cywir, e.e. enw@example.com"),
		Msg(schema.TypeInvalid, "Enter a different email address", "Rhowch gyfeiriad e-bost gwahanol"),
	}
}

func (emailKind) Display(_ *Field, v any, _ locale.Locale) string { return displayString(v) }

type phoneKind struct{}

func (phoneKind) Schema(*Field) schema.Schema { return schema.String().Phone() }

func (phoneKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter a UK telephone number", "Rhowch rif ffôn yn y DU"),
		Msg(schema.TypePhone, "Enter a real UK telephone number", "Rhowch rif ffôn go iawn yn y DU"),
	}
}

func (phoneKind) Display(_ *Field, v any, _ locale.Locale) string { return displayString(v) }

// -----------------------------------------------------------------------------
// textarea
// -----------------------------------------------------------------------------

type textareaKind struct{}

func (textareaKind) Schema(f *Field) schema.Schema {
	st := f.def.Settings
	s := schema.String().MinWords(st.MinWords).MaxWords(st.MaxWords)
	if st.MaxLength > 0 {
		s.Max(st.MaxLength)
	}
	return s
}

func (textareaKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter an answer", "Rhowch ateb"),
		Msg(schema.TypeMinWords, "Answer must be at least {limit} words",
			"Rhaid i’r ateb fod o leiaf {limit} gair"),
		Msg(schema.TypeMaxWords, "Answer must be no more than {limit} words",
			"Rhaid i’r ateb fod dim mwy na {limit} gair"),
		Msg(schema.TypeStringMax, "Answer must be {limit} characters or fewer",
			"Rhaid i’r ateb fod yn {limit} nod neu lai"),
	}
}

func (textareaKind) Display(_ *Field, v any, _ locale.Locale) string { return displayString(v) }

// -----------------------------------------------------------------------------
// currency
// -----------------------------------------------------------------------------

type currencyKind struct{}

func (currencyKind) Schema(f *Field) schema.Schema {
	st := f.def.Settings
	s := schema.Number()
	if st.Min != nil {
		s.Min(*st.Min)
	}
	if st.Max != nil {
		s.Max(*st.Max)
	}
	if st.Integer {
		s.Integer()
	}
	return s
}

func (currencyKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Enter an amount", "Rhowch swm"),
		Msg(schema.TypeNumberBase, "Enter an amount in pounds, like 1500", "Rhowch swm mewn punnoedd, e.e. 1500"),
		Msg(schema.TypeNumberMin, "Amount must be at least £{limit}", "Rhaid i’r swm fod o leiaf £{limit}"),
		Msg(schema.TypeNumberMax, "Amount must be £{limit} or less", "Rhaid i’r swm fod yn £{limit} neu lai"),
		Msg(schema.TypeInteger, "Enter a whole number of pounds", "Rhowch nifer gyfan o bunnoedd"),
	}
}

func (currencyKind) Display(_ *Field, v any, l locale.Locale) string {
	if n, ok := schema.ParseAmount(v); ok {
		return locale.Currency(n, l)
	}
	return displayString(v)
}

// -----------------------------------------------------------------------------
// radio / checkbox
// -----------------------------------------------------------------------------

func optionValues(f *Field) []string {
	out := make([]string, len(f.Options))
	for i, o := range f.Options {
		out[i] = o.Value
	}
	return out
}

type radioKind struct{}

func (radioKind) choice() {}

func (radioKind) Schema(f *Field) schema.Schema {
	return schema.String().Valid(optionValues(f)...)
}

func (radioKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Select an option", "Dewiswch opsiwn"),
	}
}

func (radioKind) Display(f *Field, v any, _ locale.Locale) string {
	return f.OptionLabel(displayString(v))
}

type checkboxKind struct{}

func (checkboxKind) choice() {}

func (checkboxKind) Schema(f *Field) schema.Schema {
	s := schema.Strings().Valid(optionValues(f)...)
	if n := f.def.Settings.MaxItems; n > 0 {
		s.Max(n)
	}
	return s
}

func (checkboxKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Select at least one option", "Dewiswch o leiaf un opsiwn"),
		Msg(schema.TypeArrayMax, "Select no more than {limit} options", "Dewiswch dim mwy na {limit} opsiwn"),
	}
}

func (checkboxKind) Display(f *Field, v any, _ locale.Locale) string {
	values := schema.AsStrings(v)
	labels := make([]string, len(values))
	for i, val := range values {
		labels[i] = f.OptionLabel(val)
	}
	return strings.Join(labels, ", ")
}

// -----------------------------------------------------------------------------
// file
// -----------------------------------------------------------------------------

type fileKind struct{}

func (fileKind) Schema(f *Field) schema.Schema {
	st := f.def.Settings
	return schema.File(st.MaxFileSize, st.FileTypes...)
}

func (fileKind) Messages(*Field) []Message {
	return []Message{
		Msg(schema.TypeBase, "Provide a file", "Darparwch ffeil"),
		Msg(schema.TypeFileType, "Upload a file in an accepted format", "Uwchlwythwch ffeil mewn fformat derbyniol"),
		Msg(schema.TypeFileSize, "The file is too large", "Mae’r ffeil yn rhy fawr"),
	}
}

func (fileKind) Display(_ *Field, v any, _ locale.Locale) string {
	m, ok := schema.AsMap(v)
	if !ok {
		return ""
	}
	return displayString(m["filename"])
}
