// components/apply/render.go
//
// Apply – field HTML writer.
//
// Context
//   Given a bound form step (fields already carrying their values for the
//   request locale) this file converts each field into safe, accessible HTML
//   markup.  Page chrome lives in templates/; the per-kind input markup lives
//   here because every kind has its own name shape (see decode.go).
//
// Workflow
//   •  renderFields writes each fieldset as a <fieldset> with its legend and
//      introduction, then every field via writeField.
//   •  Composite kinds write one input per part using bracket names, so the
//      decoder can rebuild the nested value on POST.
//   •  A field with an error gets the error class, the message above the
//      input, and aria-describedby pointing at it.
//   •  The caller receives template.HTML so the surrounding template does not
//      double-escape the markup.
//
// Style
//   Output HTML is deliberately plain – no framework classes – so themes can
//   style via element selectors or class hooks.  Each input gets
//   id="fld-{name}" and is wrapped in <div class="form-field"> for consistent
//   styling.
//
//------------------------------------------------------------------------------

package apply

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"strconv"
	"strings"

	"github.com/mattandrews/blf-test-sub000/internal/field"
	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

const defaultBudgetRows = 10

// renderFields returns the markup for every fieldset of step.
func renderFields(step *form.Step, errs map[string]string, l locale.Locale) template.HTML {
	var buf bytes.Buffer
	for _, set := range step.Fieldsets {
		buf.WriteString("<fieldset>\n")
		if set.Legend != "" {
			buf.WriteString(`<legend>` + esc(set.Legend) + "</legend>\n")
		}
		if set.Introduction != "" {
			buf.WriteString(`<p class="fieldset-intro">` + esc(set.Introduction) + "</p>\n")
		}
		for _, f := range set.Fields {
			writeField(&buf, f, errs[f.Name], l)
		}
		buf.WriteString("</fieldset>\n")
	}
	return template.HTML(buf.String())
}

// writeField emits HTML for an individual field into buf.
func writeField(buf *bytes.Buffer, f *field.Field, errMsg string, l locale.Locale) {
	id := "fld-" + f.Name
	class := "form-field form-field--" + f.Type
	if errMsg != "" {
		class += " form-field--error"
	}
	buf.WriteString(`<div class="` + esc(class) + `">` + "\n")

	grouped := isGrouped(f.Type)
	if grouped {
		buf.WriteString(`<fieldset class="field-group" id="` + esc(id) + `">` + "\n")
		buf.WriteString(`<legend>` + esc(f.Label) + optionalMark(f, l) + "</legend>\n")
	} else {
		buf.WriteString(`<label for="` + esc(id) + `">` + esc(f.Label) + optionalMark(f, l) + "</label>\n")
	}
	if f.Explanation != "" {
		buf.WriteString(`<p class="hint" id="hint-` + esc(f.Name) + `">` + esc(f.Explanation) + "</p>\n")
	}
	described := ""
	if errMsg != "" {
		buf.WriteString(`<p class="error" id="err-` + esc(f.Name) + `">` + esc(errMsg) + "</p>\n")
		described = ` aria-describedby="err-` + esc(f.Name) + `"`
	}

	switch f.Type {
	case field.TypeText:
		writeInput(buf, id, f.Name, "text", str(f.Value), described, lengthAttrs(f))
	case field.TypeEmail:
		writeInput(buf, id, f.Name, "email", str(f.Value), described, ` autocomplete="email"`)
	case field.TypePhone:
		writeInput(buf, id, f.Name, "tel", str(f.Value), described, ` autocomplete="tel"`)
	case field.TypeCurrency:
		buf.WriteString(`<span class="currency-prefix">£</span>`)
		writeInput(buf, id, f.Name, "text", str(f.Value), described, ` inputmode="decimal"`)
	case field.TypeDate:
		writeInput(buf, id, f.Name, "date", str(f.Value), described, "")

	case field.TypeTextarea:
		buf.WriteString(`<textarea id="` + esc(id) + `" name="` + esc(f.Name) + `" rows="8"` + described + `>`)
		buf.WriteString(esc(str(f.Value)))
		buf.WriteString("</textarea>\n")
		if max := f.Def().Settings.MaxWords; max > 0 {
			words := schema.CountWords(str(f.Value))
			buf.WriteString(`<p class="word-count">` +
				esc(fmt.Sprintf(ui("wordCount").In(l), words, max)) + "</p>\n")
		}

	case field.TypeAddress:
		writeAddress(buf, f.Name, asMap(f.Value), l)

	case field.TypeAddressHistory:
		m := asMap(f.Value)
		current, _ := schema.AsString(m["currentAddressMeetsMinimum"])
		name := f.Name + "[currentAddressMeetsMinimum]"
		buf.WriteString(`<p>` + esc(ui("threeYears").In(l)) + "</p>\n")
		for i, v := range []string{"yes", "no"} {
			writeChoice(buf, "radio", fmt.Sprintf("%s-%d", id, i), name, v, locale.YesNo(v, l), current == v)
		}
		buf.WriteString(`<div class="previous-address">` + "\n")
		buf.WriteString(`<p>` + esc(ui("previousAddress").In(l)) + "</p>\n")
		writeAddress(buf, f.Name+"[previousAddress]", asMap(m["previousAddress"]), l)
		buf.WriteString("</div>\n")

	case field.TypeFullName:
		m := asMap(f.Value)
		writePart(buf, f.Name, "firstName", ui("firstName").In(l), str(m["firstName"]), "text")
		writePart(buf, f.Name, "lastName", ui("lastName").In(l), str(m["lastName"]), "text")

	case field.TypeDateParts:
		writeDateParts(buf, f.Name, asMap(f.Value), l)

	case field.TypeMonthYear:
		m := asMap(f.Value)
		writePart(buf, f.Name, "month", ui("month").In(l), str(m["month"]), "number")
		writePart(buf, f.Name, "year", ui("year").In(l), str(m["year"]), "number")

	case field.TypeDayMonth:
		m := asMap(f.Value)
		writePart(buf, f.Name, "day", ui("day").In(l), str(m["day"]), "number")
		writePart(buf, f.Name, "month", ui("month").In(l), str(m["month"]), "number")

	case field.TypeDateRange:
		m := asMap(f.Value)
		buf.WriteString(`<p class="part-heading">` + esc(ui("startDate").In(l)) + "</p>\n")
		writeDateParts(buf, f.Name+"[startDate]", asMap(m["startDate"]), l)
		buf.WriteString(`<p class="part-heading">` + esc(ui("endDate").In(l)) + "</p>\n")
		writeDateParts(buf, f.Name+"[endDate]", asMap(m["endDate"]), l)

	case field.TypeBudget:
		writeBudget(buf, f, l)

	case field.TypeRadio:
		current, _ := schema.AsString(f.Value)
		for i, o := range f.Options {
			writeChoice(buf, "radio", fmt.Sprintf("%s-%d", id, i), f.Name, o.Value, o.Label, current == o.Value)
		}

	case field.TypeCheckbox:
		chosen := map[string]bool{}
		for _, v := range schema.AsStrings(f.Value) {
			chosen[v] = true
		}
		for i, o := range f.Options {
			writeChoice(buf, "checkbox", fmt.Sprintf("%s-%d", id, i), f.Name+"[]", o.Value, o.Label, chosen[o.Value])
		}

	case field.TypeFile:
		if name := str(asMap(f.Value)["filename"]); name != "" {
			buf.WriteString(`<p class="current-file">` + esc(fmt.Sprintf(ui("currentFile").In(l), name)) + "</p>\n")
		}
		accept := ""
		if types := f.Def().Settings.FileTypes; len(types) > 0 {
			accept = ` accept="` + esc(strings.Join(types, ",")) + `"`
		}
		writeInput(buf, id, f.Name, "file", "", described, accept)

	default:
		// Unknown kinds are rejected when the form loads; plain text is a
		// safe fallback for anything added later.
		writeInput(buf, id, f.Name, "text", str(f.Value), described, "")
	}

	if grouped {
		buf.WriteString("</fieldset>\n")
	}
	buf.WriteString("</div>\n")
}

func isGrouped(kind string) bool {
	switch kind {
	case field.TypeText, field.TypeEmail, field.TypePhone, field.TypeCurrency,
		field.TypeDate, field.TypeTextarea, field.TypeFile:
		return false
	}
	return true
}

func optionalMark(f *field.Field, l locale.Locale) string {
	if f.Required {
		return ""
	}
	return ` <span class="optional">` + esc(ui("optional").In(l)) + `</span>`
}

func lengthAttrs(f *field.Field) string {
	var b strings.Builder
	if n := f.Def().Settings.MaxLength; n > 0 {
		b.WriteString(` maxlength="` + strconv.Itoa(n) + `"`)
	}
	return b.String()
}

func writeInput(buf *bytes.Buffer, id, name, typ, val, described, extra string) {
	buf.WriteString(`<input id="` + esc(id) + `" name="` + esc(name) + `" type="` + typ + `"`)
	if val != "" && typ != "file" {
		buf.WriteString(` value="` + esc(val) + `"`)
	}
	buf.WriteString(described + extra + ">\n")
}

// writePart writes one labelled sub-input named base[key].
func writePart(buf *bytes.Buffer, base, key, label, val, typ string) {
	name := base + "[" + key + "]"
	id := "fld-" + strings.NewReplacer("[", "-", "]", "").Replace(name)
	buf.WriteString(`<div class="field-part field-part--` + esc(key) + `">` + "\n")
	buf.WriteString(`<label for="` + esc(id) + `">` + esc(label) + "</label>\n")
	extra := ""
	if typ == "number" {
		typ, extra = "text", ` inputmode="numeric"`
	}
	writeInput(buf, id, name, typ, val, "", extra)
	buf.WriteString("</div>\n")
}

func writeChoice(buf *bytes.Buffer, typ, id, name, value, label string, checked bool) {
	buf.WriteString(`<div class="` + typ + `-option">` + "\n")
	buf.WriteString(`<input id="` + esc(id) + `" name="` + esc(name) + `" type="` + typ + `" value="` + esc(value) + `"`)
	if checked {
		buf.WriteString(` checked`)
	}
	buf.WriteString(">\n")
	buf.WriteString(`<label for="` + esc(id) + `">` + esc(label) + "</label>\n")
	buf.WriteString("</div>\n")
}

func writeAddress(buf *bytes.Buffer, base string, m map[string]any, l locale.Locale) {
	for _, key := range []string{"line1", "line2", "townCity", "county", "postcode"} {
		writePart(buf, base, key, ui(key).In(l), str(m[key]), "text")
	}
}

func writeDateParts(buf *bytes.Buffer, base string, m map[string]any, l locale.Locale) {
	writePart(buf, base, "day", ui("day").In(l), str(m["day"]), "number")
	writePart(buf, base, "month", ui("month").In(l), str(m["month"]), "number")
	writePart(buf, base, "year", ui("year").In(l), str(m["year"]), "number")
}

// writeBudget writes the stored rows plus one blank row, up to the item
// limit.
func writeBudget(buf *bytes.Buffer, f *field.Field, l locale.Locale) {
	rows, _ := schema.AsList(f.Value)
	limit := f.Def().Settings.MaxItems
	if limit <= 0 {
		limit = defaultBudgetRows
	}
	n := len(rows) + 1
	if n > limit {
		n = limit
	}

	buf.WriteString(`<table class="budget">` + "\n")
	buf.WriteString(`<thead><tr><th>` + esc(ui("item").In(l)) + `</th><th>` + esc(ui("cost").In(l)) + "</th></tr></thead>\n<tbody>\n")
	for i := 0; i < n; i++ {
		var row map[string]any
		if i < len(rows) {
			row = asMap(rows[i])
		}
		base := f.Name + "[" + strconv.Itoa(i) + "]"
		buf.WriteString("<tr><td>")
		buf.WriteString(`<input name="` + esc(base+"[item]") + `" type="text" aria-label="` + esc(ui("item").In(l)) + `"`)
		if v := str(row["item"]); v != "" {
			buf.WriteString(` value="` + esc(v) + `"`)
		}
		buf.WriteString("></td><td>")
		buf.WriteString(`<input name="` + esc(base+"[cost]") + `" type="text" inputmode="decimal" aria-label="` + esc(ui("cost").In(l)) + `"`)
		if v := str(row["cost"]); v != "" {
			buf.WriteString(` value="` + esc(v) + `"`)
		}
		buf.WriteString("></td></tr>\n")
	}
	buf.WriteString("</tbody>\n</table>\n")
	if len(rows) > 0 {
		buf.WriteString(`<p class="budget-total">` + esc(ui("total").In(l)) + " " +
			esc(locale.Currency(schema.BudgetTotal(rows), l)) + "</p>\n")
	}
}

//
// helpers
//

func esc(s string) string { return html.EscapeString(s) }

func str(v any) string {
	s, _ := schema.AsString(v)
	return s
}

func asMap(v any) map[string]any {
	m, _ := schema.AsMap(v)
	return m
}
