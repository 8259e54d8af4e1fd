// internal/viewhelpers/helpers.go
//
// Template helpers shared by every component's view engine, so every
// template can call:
//
//	{{ currency .Amount .Locale }}   → £7,000 / £7,000
//	{{ date .ExpiresAt .Locale }}    → 1 March 2026 / 1 Mawrth 2026
//	{{ yesno "yes" .Locale }}        → Yes / Ydw
//	{{ otherLocale .Locale }}        → cy / en
package viewhelpers

import (
	"html/template"
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
)

// FuncMap returns the locale-aware formatting helpers.  Callers may add to
// the returned map; it is never shared.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"currency": func(amount float64, l locale.Locale) string { return locale.Currency(amount, l) },
		"number":   func(n float64, l locale.Locale) string { return locale.Number(n, l) },
		"date":     func(t time.Time, l locale.Locale) string { return locale.Date(t, l) },
		"yesno":    func(v string, l locale.Locale) string { return locale.YesNo(v, l) },
		"otherLocale": func(l locale.Locale) locale.Locale {
			if l == locale.CY {
				return locale.EN
			}
			return locale.CY
		},
		"localeName": func(l locale.Locale) string {
			if l == locale.CY {
				return "Cymraeg"
			}
			return "English"
		},
	}
}
