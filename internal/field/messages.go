// internal/field/messages.go
//
// Error-message resolution.
//
// Context
// -------
// Validation produces typed details (`string.max`, `any.required`, …), never
// prose.  Each field carries an ordered list of bilingual messages and the
// resolver picks one per detail through a fixed cascade:
//
//  1. an entry matching both the detail key and its type,
//  2. an entry matching the type with no key,
//  3. the field's `base` entry with no key.
//
// Within one tier the earliest entry wins, so definition messages override
// the kind defaults they precede.  When nothing matches, a generic sentence
// is returned so the user always sees something next to the input.
//
// Notes
// -----
//   - Message bodies may use {limit}, {count}, and {label} placeholders.
package field

import (
	"fmt"
	"strings"
	"time"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// Message is one entry of a field's message table.
type Message struct {
	Type    string      `yaml:"type"`
	Key     string      `yaml:"key,omitempty"`
	Message locale.Text `yaml:"message"`
}

// Msg is shorthand for a message with no key.
func Msg(typ string, en, cy string) Message {
	return Message{Type: typ, Message: locale.T(en, cy)}
}

// KeyMsg is shorthand for a message scoped to a composite sub-field.
func KeyMsg(key, typ string, en, cy string) Message {
	return Message{Type: typ, Key: key, Message: locale.T(en, cy)}
}

var fallbackMessage = locale.T(
	"There is a problem with this answer",
	"Mae problem gyda’r ateb hwn",
)

// Match runs the cascade over messages and returns the winning entry.
func Match(messages []Message, d schema.Detail) (Message, bool) {
	key := d.Key()
	if key != "" {
		for _, m := range messages {
			if m.Key == key && m.Type == d.Type {
				return m, true
			}
		}
	}
	for _, m := range messages {
		if m.Key == "" && m.Type == d.Type {
			return m, true
		}
	}
	for _, m := range messages {
		if m.Key == "" && m.Type == schema.TypeBase {
			return m, true
		}
	}
	return Message{}, false
}

// Resolve returns the localized message for d, never "".
func Resolve(messages []Message, d schema.Detail, l locale.Locale, label string) string {
	text := fallbackMessage
	if m, found := Match(messages, d); found && !m.Message.IsZero() {
		text = m.Message
	}
	return interpolate(text.In(l), d, l, label)
}

func interpolate(s string, d schema.Detail, l locale.Locale, label string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	pairs := []string{"{label}", label}
	for _, name := range []string{"limit", "count", "total"} {
		v, set := d.Context[name]
		if !set {
			continue
		}
		pairs = append(pairs, "{"+name+"}", formatParam(v, l))
	}
	return strings.NewReplacer(pairs...).Replace(s)
}

func formatParam(v any, l locale.Locale) string {
	switch t := v.(type) {
	case float64:
		return locale.Number(t, l)
	case int:
		return locale.Number(float64(t), l)
	case int64:
		return locale.Number(float64(t), l)
	case string:
		if d, err := time.Parse("2006-01-02", t); err == nil {
			return locale.Date(d, l)
		}
		return t
	default:
		return fmt.Sprint(t)
	}
}
