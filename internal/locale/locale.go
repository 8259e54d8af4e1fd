// internal/locale/locale.go
//
// Bilingual text resolution.
//
// Context
// -------
// Every user-facing string in the apply engine exists in English and Welsh.
// Definitions carry a `Text{EN, CY}` pair and resolve it at the last moment
// against the request locale, so the same definition serves both languages.
//
// Notes
// -----
//   - Welsh falls back to English when a translation is missing.  An empty
//     string is only returned when both halves are empty.
//   - Locale negotiation uses golang.org/x/text/language so Accept-Language
//     headers like “cy-GB;q=0.9, en;q=0.5” resolve correctly.
//   - Oxford commas, two spaces after periods.
package locale

import (
	"strings"

	"golang.org/x/text/language"
)

// Locale is one of the two supported interface languages.
type Locale string

const (
	EN Locale = "en"
	CY Locale = "cy"
)

// Default is used when nothing better can be negotiated.
const Default = EN

var (
	welsh   = language.MustParse("cy")
	matcher = language.NewMatcher([]language.Tag{language.BritishEnglish, welsh})
)

// Parse resolves a locale code or an Accept-Language header value.  Unknown
// or malformed input yields Default.
func Parse(s string) Locale {
	s = strings.TrimSpace(strings.ToLower(s))
	switch s {
	case "":
		return Default
	case string(EN):
		return EN
	case string(CY):
		return CY
	}

	tags, _, err := language.ParseAcceptLanguage(s)
	if err != nil || len(tags) == 0 {
		return Default
	}
	_, idx, conf := matcher.Match(tags...)
	if conf == language.No {
		return Default
	}
	if idx == 1 {
		return CY
	}
	return EN
}

// Valid reports whether l is a supported locale.
func (l Locale) Valid() bool { return l == EN || l == CY }

// Tag returns the x/text language tag used for number formatting.
func (l Locale) Tag() language.Tag {
	if l == CY {
		return welsh
	}
	return language.BritishEnglish
}

// Text is a bilingual value.  YAML definitions spell it as {en: …, cy: …}.
type Text struct {
	EN string `yaml:"en" json:"en"`
	CY string `yaml:"cy" json:"cy"`
}

// T is shorthand for building a Text in Go definitions.
func T(en, cy string) Text { return Text{EN: en, CY: cy} }

// In resolves t for locale l.
func (t Text) In(l Locale) string {
	if l == CY && t.CY != "" {
		return t.CY
	}
	return t.EN
}

// IsZero reports whether both translations are empty.
func (t Text) IsZero() bool { return t.EN == "" && t.CY == "" }

// UnmarshalYAML accepts either a mapping or a bare string (English only).
func (t *Text) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err == nil {
		t.EN = s
		return nil
	}
	type plain Text
	var p plain
	if err := unmarshal(&p); err != nil {
		return err
	}
	*t = Text(p)
	return nil
}
