// components/apply/decode.go
//
// Apply – request body decoding.
//
// Context
//   Step pages post plain HTML forms.  Composite fields use bracket names so
//   one field can carry a nested value:
//
//      projectDateRange[startDate][day]=1
//      projectBudget[0][item]=Tools   projectBudget[0][cost]=250
//      beneficiaryGroups[]=youth      beneficiaryGroups[]=older-people
//
//   decodeBody turns urlencoded, multipart, or JSON bodies into the
//   map[string]any shape the form engine validates.  Numbered keys become
//   ordered lists with blank rows dropped.  File parts become their metadata
//   ({filename, size, type}); the bytes are discarded.
//
//   Every string is passed through a strict bluemonday policy and trimmed, so
//   stored answers never carry markup.
//
//   Bodies are capped before anything parses them: 1MB for plain posts, and
//   for multipart the largest per-step sum of max_file_size plus 1MB.  An
//   over-limit body answers 413.
//
//------------------------------------------------------------------------------

package apply

import (
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mattandrews/blf-test-sub000/internal/field"
	"github.com/mattandrews/blf-test-sub000/internal/form"
	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

const (
	maxBodyBytes    = 1 << 20
	maxUploadMemory = 8 << 20

	// defaultMaxFile caps file fields that set no max_file_size.
	defaultMaxFile = 10 << 20
)

// reserved keys are page controls, never answers.
var reserved = map[string]struct{}{
	csrfField: {},
	"action":  {},
	"lang":    {},
}

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// clean strips markup and surrounding space.  StrictPolicy escapes what it
// keeps, so the result is unescaped back to plain text.
func clean(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(sanitizer().Sanitize(s)))
}

// isJSON reports whether r carries a JSON body.
func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json"
}

func isMultipart(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "multipart/form-data"
}

// uploadLimit caps a multipart body: the largest sum of file sizes any step
// of a registered form accepts, plus room for the other answers.  Bodies
// are capped before parsing, so an oversized upload never spills to disk.
func uploadLimit() int64 {
	var largest int64
	for _, id := range form.IDs() {
		def, ok := form.Get(id)
		if !ok {
			continue
		}
		for i := range def.Steps {
			var step int64
			for _, fd := range def.Steps[i].Fields() {
				if fd.Type != field.TypeFile {
					continue
				}
				if n := fd.Settings.MaxFileSize; n > 0 {
					step += n
				} else {
					step += defaultMaxFile
				}
			}
			largest = max(largest, step)
		}
	}
	return largest + maxBodyBytes
}

// parseBody parses a form body into r.PostForm (and r.MultipartForm).
func parseBody(r *http.Request) error {
	if isMultipart(r) {
		return r.ParseMultipartForm(maxUploadMemory)
	}
	return r.ParseForm()
}

// bodyError answers a body that could not be read: 413 when it is over the
// limit, 400 otherwise.
func bodyError(w http.ResponseWriter, err error) {
	status := http.StatusBadRequest
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		status = http.StatusRequestEntityTooLarge
	}
	http.Error(w, http.StatusText(status), status)
}

// decodeBody reads the answers posted in r.
func decodeBody(r *http.Request) (map[string]any, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch ct {
	case "application/json":
		var raw map[string]any
		if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return map[string]any{}, nil
			}
			return nil, fmt.Errorf("decode json body: %w", err)
		}
		out := make(map[string]any, len(raw))
		for k, v := range raw {
			if _, skip := reserved[k]; skip {
				continue
			}
			out[k] = cleanValue(v)
		}
		return out, nil

	case "multipart/form-data":
		if err := parseBody(r); err != nil {
			return nil, fmt.Errorf("decode multipart body: %w", err)
		}
		return unflatten(r.MultipartForm.Value, r.MultipartForm.File), nil

	default:
		if err := parseBody(r); err != nil {
			return nil, fmt.Errorf("decode form body: %w", err)
		}
		return unflatten(r.PostForm, nil), nil
	}
}

// cleanValue sanitises every string inside a decoded JSON value.
func cleanValue(v any) any {
	switch t := v.(type) {
	case string:
		return clean(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = cleanValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cleanValue(e)
		}
		return out
	default:
		return v
	}
}

// unflatten builds nested values from bracket-named form keys.
func unflatten(values url.Values, files map[string][]*multipart.FileHeader) map[string]any {
	root := map[string]any{}

	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if _, skip := reserved[k]; skip {
			continue
		}
		path, ok := splitKey(k)
		if !ok {
			continue
		}
		vals := make([]any, 0, len(values[k]))
		for _, v := range values[k] {
			vals = append(vals, clean(v))
		}
		assign(root, path, vals)
	}

	for k, fhs := range files {
		path, ok := splitKey(k)
		if !ok {
			continue
		}
		var vals []any
		for _, fh := range fhs {
			if fh.Filename == "" {
				continue
			}
			vals = append(vals, map[string]any{
				"filename": clean(fh.Filename),
				"size":     fh.Size,
				"type":     fh.Header.Get("Content-Type"),
			})
		}
		if len(vals) > 0 {
			assign(root, path, vals)
		}
	}

	for k, v := range root {
		root[k] = listify(v)
	}
	return root
}

// splitKey turns “a[b][0]” into [a b 0] and “a[]” into [a ""].
func splitKey(k string) ([]string, bool) {
	i := strings.IndexByte(k, '[')
	if i < 0 {
		return []string{k}, k != ""
	}
	if i == 0 {
		return nil, false
	}
	path := []string{k[:i]}
	rest := k[i:]
	for rest != "" {
		if rest[0] != '[' {
			return nil, false
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, false
		}
		path = append(path, rest[1:end])
		rest = rest[end+1:]
	}
	return path, true
}

func assign(node map[string]any, path []string, vals []any) {
	head := path[0]
	if len(path) == 1 {
		if len(vals) == 1 {
			node[head] = vals[0]
		} else {
			node[head] = vals
		}
		return
	}
	if path[1] == "" {
		existing, _ := node[head].([]any)
		node[head] = append(existing, vals...)
		return
	}
	child, ok := node[head].(map[string]any)
	if !ok {
		child = map[string]any{}
		node[head] = child
	}
	assign(child, path[1:], vals)
}

// listify converts maps keyed “0”, “1”, … into lists, dropping blank rows.
func listify(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, e := range m {
		m[k] = listify(e)
	}
	if len(m) == 0 {
		return m
	}

	type row struct {
		n   int
		key string
	}
	rows := make([]row, 0, len(m))
	for k := range m {
		n, err := strconv.Atoi(k)
		if err != nil || n < 0 {
			return m
		}
		rows = append(rows, row{n, k})
	}
	// "1" and "01" are distinct rows at the same position.
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].n != rows[j].n {
			return rows[i].n < rows[j].n
		}
		return rows[i].key < rows[j].key
	})
	out := make([]any, 0, len(rows))
	for _, r := range rows {
		e := m[r.key]
		if schema.IsEmpty(e) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// normaliseStepPost adjusts an HTML form post for step s: choice fields left
// unticked are posted as nothing, so they are cleared explicitly; file inputs
// left empty keep the file already stored.
func normaliseStepPost(s *form.StepDef, raw map[string]any) {
	for _, fd := range s.Fields() {
		switch fd.Type {
		case field.TypeCheckbox, field.TypeRadio:
			if _, posted := raw[fd.Name]; !posted {
				raw[fd.Name] = ""
			}
		case field.TypeFile:
			if schema.IsEmpty(raw[fd.Name]) {
				delete(raw, fd.Name)
			}
		}
	}
}
