// internal/field/def.go
//
// Static field definitions.
//
// Context
// -------
// A Def is what a form author writes in YAML.  It never changes at runtime;
// every request turns it into a fresh *Field bound to the request locale and
// the current form data.  Anything that can be wrong with a Def is caught by
// Check while the form loads, so a broken definition never reaches a user.
//
// Example
// -------
//
//	- name: organisationSubType
//	  type: radio
//	  label: { en: "What type of statutory body?", cy: "Pa fath o gorff statudol?" }
//	  options:
//	    - value: parish-council
//	      label: { en: "Parish council", cy: "Cyngor cymuned" }
//	  conditions:
//	    - field: organisationType
//	      in: [statutory-body]
//	      then: required
//
// Notes
// -----
//   - A field that declares conditions is stripped when none of them match,
//     unless `otherwise` names a different presence.
//   - `differs_from` and `min_from_budget` name sibling fields; the form
//     loader checks those names exist.
package field

import (
	"errors"
	"fmt"

	"github.com/mattandrews/blf-test-sub000/internal/locale"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// ErrConfig marks a definition error.  These are programmer mistakes and
// are raised while loading, never during a user request.
var ErrConfig = errors.New("field configuration")

// Def is the YAML shape of one field.
type Def struct {
	Name        string      `yaml:"name"`
	Type        string      `yaml:"type"`
	Label       locale.Text `yaml:"label"`
	Explanation locale.Text `yaml:"explanation"`
	Optional    bool        `yaml:"optional"`
	Options     []OptionDef `yaml:"options"`
	Settings    Settings    `yaml:"settings"`

	Conditions []Condition `yaml:"conditions"`
	Otherwise  string      `yaml:"otherwise"`

	DiffersFrom   string `yaml:"differs_from"`
	MinFromBudget string `yaml:"min_from_budget"`

	Messages []Message `yaml:"messages"`
}

// OptionDef is one choice of a radio or checkbox field.
type OptionDef struct {
	Value       string      `yaml:"value"`
	Label       locale.Text `yaml:"label"`
	Explanation locale.Text `yaml:"explanation"`
	ShowWhen    *Condition  `yaml:"show_when"`
}

// Condition matches the value of another field.  Exactly one of In or NotIn
// should be set.  Then is ignored for option show_when rules.
type Condition struct {
	Field string   `yaml:"field"`
	In    []string `yaml:"in"`
	NotIn []string `yaml:"not_in"`
	Then  string   `yaml:"then"`
}

// Settings holds the per-kind constraints.  Zero means “not enforced”.
type Settings struct {
	MinLength int      `yaml:"min_length"`
	MaxLength int      `yaml:"max_length"`
	MinWords  int      `yaml:"min_words"`
	MaxWords  int      `yaml:"max_words"`
	Invalid   []string `yaml:"invalid"`

	Min     *float64 `yaml:"min"`
	Max     *float64 `yaml:"max"`
	Integer bool     `yaml:"integer"`

	MinAge            int  `yaml:"min_age"`
	Past              bool `yaml:"past"`
	MinStartDays      int  `yaml:"min_start_days"`
	MaxDurationMonths int  `yaml:"max_duration_months"`

	MinTotal float64 `yaml:"min_total"`
	MaxTotal float64 `yaml:"max_total"`
	MaxItems int     `yaml:"max_items"`

	FileTypes   []string `yaml:"file_types"`
	MaxFileSize int64    `yaml:"max_file_size"`
}

// References lists every sibling field the definition reads.
func (d *Def) References() []string {
	var refs []string
	for _, c := range d.Conditions {
		refs = append(refs, c.Field)
	}
	for _, o := range d.Options {
		if o.ShowWhen != nil {
			refs = append(refs, o.ShowWhen.Field)
		}
	}
	if d.DiffersFrom != "" {
		refs = append(refs, d.DiffersFrom)
	}
	if d.MinFromBudget != "" {
		refs = append(refs, d.MinFromBudget)
	}
	return refs
}

// Check validates the definition in isolation.  Cross-field checks (do
// referenced names exist?) belong to the form loader.
func (d *Def) Check() error {
	if d.Name == "" {
		return fmt.Errorf("%w: field with empty name (type %q)", ErrConfig, d.Type)
	}
	k, known := kinds[d.Type]
	if !known {
		return fmt.Errorf("%w: field %q: unknown type %q", ErrConfig, d.Name, d.Type)
	}
	if _, choice := k.(choiceKind); choice {
		if len(d.Options) == 0 {
			return fmt.Errorf("%w: field %q: %s field has no options", ErrConfig, d.Name, d.Type)
		}
		seen := make(map[string]struct{}, len(d.Options))
		for _, o := range d.Options {
			if _, dup := seen[o.Value]; dup {
				return fmt.Errorf("%w: field %q: duplicate option value %q", ErrConfig, d.Name, o.Value)
			}
			seen[o.Value] = struct{}{}
		}
	}
	for i, c := range d.Conditions {
		if err := c.check(true); err != nil {
			return fmt.Errorf("%w: field %q: condition %d: %v", ErrConfig, d.Name, i, err)
		}
		if c.Field == d.Name {
			return fmt.Errorf("%w: field %q: condition refers to itself", ErrConfig, d.Name)
		}
	}
	for _, o := range d.Options {
		if o.ShowWhen == nil {
			continue
		}
		if err := o.ShowWhen.check(false); err != nil {
			return fmt.Errorf("%w: field %q: option %q: %v", ErrConfig, d.Name, o.Value, err)
		}
	}
	if d.Otherwise != "" {
		if _, valid := schema.ParsePresence(d.Otherwise); !valid {
			return fmt.Errorf("%w: field %q: otherwise %q is not required, optional, or strip",
				ErrConfig, d.Name, d.Otherwise)
		}
	}
	if d.DiffersFrom == d.Name && d.Name != "" {
		return fmt.Errorf("%w: field %q: differs_from refers to itself", ErrConfig, d.Name)
	}
	return nil
}

func (c Condition) check(needThen bool) error {
	if c.Field == "" {
		return errors.New("missing field")
	}
	if len(c.In) == 0 && len(c.NotIn) == 0 {
		return errors.New("needs in or not_in")
	}
	if len(c.In) > 0 && len(c.NotIn) > 0 {
		return errors.New("in and not_in are exclusive")
	}
	if needThen {
		if _, valid := schema.ParsePresence(c.Then); !valid {
			return fmt.Errorf("then %q is not required, optional, or strip", c.Then)
		}
	}
	return nil
}

// CheckMatch validates a condition that only matches, such as a step
// condition.  Then is not consulted.
func (c Condition) CheckMatch() error { return c.check(false) }
