// internal/form/definition.go
//
// Apply – Forms subsystem: YAML definition loader.
//
// Context
//   Each application form is declared in a YAML file: its identifier, the
//   start page, an ordered list of steps (each a list of fieldsets holding
//   field definitions), the review page, the success page with the name of
//   the processor that submits the application, and the error page.  At
//   start-up every “*.yaml” under “components/<comp>/forms/” is parsed,
//   checked, and stored in an in-memory registry.  Request handlers fetch a
//   definition by ID and never mutate it.
//
// Workflow
//   •  Structs mirror the YAML schema: Definition → StepDef → FieldsetDef →
//      field.Def.
//   •  Parse decodes one document and enforces structural rules.  A broken
//      definition is a configuration error (ErrConfig), never a user error.
//   •  Register binds the named processor and adds the definition to the
//      registry.  RegisterForms walks directories; RegisterFS reads embedded
//      definitions.
//   •  Get offers read-only access to a registered definition by ID.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.  Helper comments
//   use short noun phrases.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mattandrews/blf-test-sub000/internal/field"
	"github.com/mattandrews/blf-test-sub000/internal/locale"
)

// ErrConfig marks a broken form definition or missing registration.
var ErrConfig = errors.New("form configuration")

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// Definition is one form as loaded from YAML.
//
// The ID is namespaced by component, e.g. “apply/awards-for-all”.  Steps are
// numbered from 1 in declaration order; stored step data is keyed
// “step-1”, “step-2”, and so on.
type Definition struct {
	ID         string      `yaml:"id"`
	Title      locale.Text `yaml:"title"`
	StartPage  *PageDef    `yaml:"start_page"`
	Steps      []StepDef   `yaml:"steps"`
	ReviewPage *PageDef    `yaml:"review"`
	Success    *PageDef    `yaml:"success"`
	Error      *PageDef    `yaml:"error"`

	// Clock supplies “today” for date rules.  Nil means time.Now.
	Clock func() time.Time `yaml:"-"`

	processor Processor
	byName    map[string]fieldRef
}

// PageDef describes one of the fixed pages around the steps.
type PageDef struct {
	Title     locale.Text `yaml:"title"`
	Body      locale.Text `yaml:"body"`
	Processor string      `yaml:"processor"` // success page only
}

// StepDef is one wizard page.  Condition, when set, must match for the step
// to apply; otherwise the step is not required.
type StepDef struct {
	ID        string           `yaml:"id"`
	Title     locale.Text      `yaml:"title"`
	Condition *field.Condition `yaml:"condition"`
	Fieldsets []FieldsetDef    `yaml:"fieldsets"`
}

// FieldsetDef groups fields under one legend.  It has no validation identity
// of its own.
type FieldsetDef struct {
	Legend       locale.Text `yaml:"legend"`
	Introduction locale.Text `yaml:"introduction"`
	Fields       []field.Def `yaml:"fields"`
}

// fieldRef locates a field definition by name.
type fieldRef struct {
	step, fieldset, index int
}

// Fields returns the step's field definitions in order.
func (s *StepDef) Fields() []field.Def {
	var out []field.Def
	for _, set := range s.Fieldsets {
		out = append(out, set.Fields...)
	}
	return out
}

// Applies reports whether the step's condition holds for flat data.
func (s *StepDef) Applies(flat map[string]any) bool {
	return s.Condition == nil || s.Condition.Matches(flat)
}

// TotalSteps is the number of declared steps.
func (d *Definition) TotalSteps() int { return len(d.Steps) }

// Step returns the 1-based step n.
func (d *Definition) Step(n int) (*StepDef, bool) {
	if n < 1 || n > len(d.Steps) {
		return nil, false
	}
	return &d.Steps[n-1], true
}

// FieldDef returns the definition of the named field.
func (d *Definition) FieldDef(name string) (field.Def, bool) {
	ref, ok := d.byName[name]
	if !ok {
		return field.Def{}, false
	}
	return d.Steps[ref.step].Fieldsets[ref.fieldset].Fields[ref.index], true
}

// StepOf returns the 1-based number of the step holding the named field.
func (d *Definition) StepOf(name string) int {
	if ref, ok := d.byName[name]; ok {
		return ref.step + 1
	}
	return 0
}

// Processor returns the bound success processor, or nil before Register.
func (d *Definition) Processor() Processor { return d.processor }

// WithProcessor binds p directly, bypassing the named-processor registry.
func (d *Definition) WithProcessor(p Processor) *Definition {
	d.processor = p
	return d
}

func (d *Definition) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Definition)

	processorsMu sync.RWMutex
	processors   = make(map[string]Processor)
)

// Get returns a registered definition by ID.
func Get(id string) (*Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[id]
	return d, ok
}

// IDs lists registered form IDs, sorted.
func IDs() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make([]string, 0, len(registry))
	for id := range registry {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// RegisterProcessor makes p available to success pages naming it.  Call it
// before registering the forms that use it.
func RegisterProcessor(name string, p Processor) {
	processorsMu.Lock()
	defer processorsMu.Unlock()
	processors[name] = p
}

// Register binds the definition's processor and stores it.  A success page
// naming an unregistered processor is a configuration error.
func Register(d *Definition) error {
	if d.processor == nil {
		processorsMu.RLock()
		p, ok := processors[d.Success.Processor]
		processorsMu.RUnlock()
		if !ok {
			return fmt.Errorf("%w: form %s: processor %q is not registered",
				ErrConfig, d.ID, d.Success.Processor)
		}
		d.processor = p
	}

	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.ID] = d
	return nil
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// Parse decodes one YAML document and validates it.  src names the origin
// in error messages.  It never touches the registry.
func Parse(raw []byte, src string) (*Definition, error) {
	var d Definition
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", src, err)
	}
	if err := d.check(src); err != nil {
		return nil, err
	}
	return &d, nil
}

// LoadDefinition reads and parses one YAML file.
func LoadDefinition(path string) (*Definition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read form file %s: %w", path, err)
	}
	return Parse(raw, path)
}

// MustLoad parses raw and panics on error.  For tests and init paths.
func MustLoad(raw []byte, src string) *Definition {
	d, err := Parse(raw, src)
	if err != nil {
		panic(err)
	}
	return d
}

// RegisterForms walks one or more base directories and registers every
// “*.yaml” under “components/*/forms/”.  Later directories override earlier
// ones, so pass defaults first and site overrides last.
func RegisterForms(baseDirs []string) error {
	if len(baseDirs) == 0 {
		return errors.New("RegisterForms: no base directories provided")
	}
	for _, base := range baseDirs {
		root := filepath.Join(base, "components")
		err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".yaml") ||
				filepath.Base(filepath.Dir(p)) != "forms" {
				return nil
			}
			def, err := LoadDefinition(p)
			if err != nil {
				return err
			}
			return Register(def)
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// RegisterFS registers every “*.yaml” directly under dir in fsys.  Used
// with embedded definitions shipped inside a component.
func RegisterFS(fsys fs.FS, dir string) error {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return fmt.Errorf("read forms dir %s: %w", dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		p := path.Join(dir, e.Name())
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", p, err)
		}
		def, err := Parse(raw, p)
		if err != nil {
			return err
		}
		if err := Register(def); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// check enforces structural rules YAML tags cannot express: mandatory pages,
// field checks, unique names, and references to fields that exist.
func (d *Definition) check(src string) error {
	fail := func(format string, args ...any) error {
		return fmt.Errorf("%w: form %s: %s", ErrConfig, src, fmt.Sprintf(format, args...))
	}

	if d.ID == "" {
		return fail("missing required 'id'")
	}
	if d.StartPage == nil {
		return fail("missing start_page")
	}
	if d.ReviewPage == nil {
		return fail("missing review page")
	}
	if d.Success == nil {
		return fail("missing success page")
	}
	if d.Success.Processor == "" {
		return fail("success page names no processor")
	}
	if d.Error == nil {
		d.Error = &PageDef{Title: locale.T("There was a problem submitting your application",
			"Roedd problem wrth gyflwyno eich cais")}
	}
	if len(d.Steps) == 0 {
		return fail("must have at least one step")
	}

	d.byName = make(map[string]fieldRef)
	stepIDs := make(map[string]struct{})
	for si := range d.Steps {
		s := &d.Steps[si]
		if s.ID == "" {
			s.ID = StepKey(si + 1)
		}
		if _, dup := stepIDs[s.ID]; dup {
			return fail("duplicate step id %q", s.ID)
		}
		stepIDs[s.ID] = struct{}{}

		for fi := range s.Fieldsets {
			for i := range s.Fieldsets[fi].Fields {
				fd := &s.Fieldsets[fi].Fields[i]
				if err := fd.Check(); err != nil {
					return fmt.Errorf("%w: form %s: step %q: %w", ErrConfig, src, s.ID, err)
				}
				if _, dup := d.byName[fd.Name]; dup {
					return fail("duplicate field name %q", fd.Name)
				}
				d.byName[fd.Name] = fieldRef{step: si, fieldset: fi, index: i}
			}
		}
	}

	// References are checked once every name is known, so a field may refer
	// to one declared later in the form.
	for si := range d.Steps {
		s := &d.Steps[si]
		if s.Condition != nil {
			if err := s.Condition.CheckMatch(); err != nil {
				return fail("step %q condition: %v", s.ID, err)
			}
			if _, ok := d.byName[s.Condition.Field]; !ok {
				return fail("step %q condition refers to unknown field %q", s.ID, s.Condition.Field)
			}
		}
		for _, fd := range s.Fields() {
			for _, ref := range fd.References() {
				if _, ok := d.byName[ref]; !ok {
					return fail("field %q refers to unknown field %q", fd.Name, ref)
				}
			}
		}
	}
	return nil
}
