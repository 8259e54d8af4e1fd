// internal/view/render.go
//
// Central view engine: template lookup, func-map injection, and an LRU of
// parsed *template.Template* sets.
//
// Public helpers
// --------------
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (fragments, e-mails).
//
// Every component ships its templates in an embedded fs.FS.  All *.html
// files at the root of that FS are parsed as one set so sub-templates
// ({{ template "header" . }}) work out-of-the-box.  Overrides are layered
// by passing several file systems; a later FS wins for a file of the same
// name.
//
//   • execName() chooses the best template to execute:
//       – If the set contains "<name>.html", we run that (file has no define).
//       – Else we fall back to "<name>" (root template defined via {{ define }}).
//   • Concurrent cold loads share one parse through a singleflight.Group.
//   • Render buffers the whole page before writing, so a template error never
//     leaves a half-written response behind.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/mattandrews/blf-test-sub000/internal/cache"
	"github.com/mattandrews/blf-test-sub000/internal/viewhelpers"
)

// CachePolicy hints how the caller wants this template cached.
type CachePolicy int

const (
	CacheDefault CachePolicy = iota // parse once, reuse
	CacheSkip                       // re-parse every call (template development)
)

// Engine renders one component's templates.
type Engine struct {
	layers []fs.FS
	funcs  template.FuncMap
	Policy CachePolicy

	sets *cache.LRU
	sfg  singleflight.Group
}

// New returns an engine over layers, lowest precedence first.  funcs is
// merged over the shared viewhelpers map.
func New(funcs template.FuncMap, layers ...fs.FS) *Engine {
	fm := viewhelpers.FuncMap()
	fm["dict"] = dict
	for k, v := range funcs {
		fm[k] = v
	}
	return &Engine{layers: layers, funcs: fm, sets: cache.New(64)}
}

//
// public helpers
//

// Render executes the named template and streams it to w with status.
func (e *Engine) Render(w http.ResponseWriter, status int, name string, data any) error {
	var buf bytes.Buffer
	if err := e.execute(&buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// RenderToString executes and returns HTML.  It mirrors Render, but writes
// to a buffer instead of w.
func (e *Engine) RenderToString(name string, data any) (template.HTML, error) {
	var buf bytes.Buffer
	if err := e.execute(&buf, name, data); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (e *Engine) execute(buf *bytes.Buffer, name string, data any) error {
	t, err := e.load()
	if err != nil {
		return err
	}
	return t.ExecuteTemplate(buf, execName(t, name), data)
}

//
// internal: load
//

const setKey = "set"

// load parses the template set, obeying the engine's cache policy.
func (e *Engine) load() (*template.Template, error) {
	if e.Policy == CacheSkip {
		return e.parse()
	}
	if v, ok := e.sets.Get(setKey); ok {
		return v.(*template.Template), nil
	}
	v, err, _ := e.sfg.Do(setKey, func() (any, error) {
		// Double-check after the singleflight barrier.
		if v, ok := e.sets.Get(setKey); ok {
			return v, nil
		}
		t, err := e.parse()
		if err != nil {
			return nil, err
		}
		e.sets.Add(setKey, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*template.Template), nil
}

// parse reads every layer into a fresh set.
func (e *Engine) parse() (*template.Template, error) {
	t := template.New("").Funcs(e.funcs)
	for _, layer := range e.layers {
		matches, err := fs.Glob(layer, "*.html")
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		if t, err = t.ParseFS(layer, matches...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

//
// helpers
//

// execName picks the template name to execute.
//
// Priority:
//  1. If the set has "<name>.html" (file-based template), run that.
//  2. Otherwise, fall back to "<name>" (root template defined in code).
func execName(t *template.Template, name string) string {
	if tmpl := t.Lookup(name + ".html"); tmpl != nil {
		return name + ".html"
	}
	return strings.TrimSuffix(name, ".html")
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
