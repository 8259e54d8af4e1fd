package schema

import (
	"strconv"
	"strings"
)

// StringsSchema validates a multi-choice answer.  A single string is
// accepted as a one-element list.
type StringsSchema struct {
	valid []string
	max   int
}

// Strings returns a multi-choice schema.
func Strings() *StringsSchema { return &StringsSchema{} }

// Valid restricts every element to an allow-list.
func (s *StringsSchema) Valid(values ...string) *StringsSchema {
	s.valid = append(make([]string, 0, len(values)), values...)
	return s
}

// Max caps the number of selections.
func (s *StringsSchema) Max(n int) *StringsSchema { s.max = n; return s }

// Validate implements Schema.
func (s *StringsSchema) Validate(v any, _ Context) Outcome {
	if _, isScalar := AsString(v); !isScalar {
		if _, isList := AsList(v); !isList {
			return outcome(v, fail(TypeArrayBase, nil))
		}
	}
	values := AsStrings(v)

	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	var details []Detail
	for i, val := range values {
		if _, dup := seen[val]; dup {
			continue
		}
		seen[val] = struct{}{}
		if s.valid != nil && !contains(s.valid, val) {
			details = append(details, fail(TypeOnly,
				map[string]any{"valids": s.valid, "value": val}, strconv.Itoa(i)))
			continue
		}
		out = append(out, val)
	}
	if s.max > 0 && len(out) > s.max {
		details = append(details, fail(TypeArrayMax, map[string]any{"limit": s.max}))
	}
	return outcome(out, details...)
}

func contains(list []string, s string) bool {
	for _, e := range list {
		if e == s {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------
// Budget
// -----------------------------------------------------------------------------

// BudgetSchema validates a list of {item, cost} rows.  Blank rows are
// ignored so a renderer can always offer spare rows.
type BudgetSchema struct {
	minTotal, maxTotal float64
	maxItems           int
}

// Budget returns a budget schema with inclusive total bounds.  A zero bound
// is not enforced.
func Budget(minTotal, maxTotal float64) *BudgetSchema {
	return &BudgetSchema{minTotal: minTotal, maxTotal: maxTotal}
}

// MaxItems caps the number of non-blank rows.
func (s *BudgetSchema) MaxItems(n int) *BudgetSchema { s.maxItems = n; return s }

// Validate implements Schema.
func (s *BudgetSchema) Validate(v any, c Context) Outcome {
	rows, isList := AsList(v)
	if !isList {
		return outcome(v, fail(TypeArrayBase, nil))
	}

	row := Object(
		K("item", Required(String().Max(255))),
		K("cost", Required(Number().Min(1))),
	)

	out := make([]any, 0, len(rows))
	var details []Detail
	var total float64
	for i, r := range rows {
		if IsEmpty(r) {
			continue
		}
		o := row.Validate(r, c)
		if o.Failed() {
			details = append(details, prefix(strconv.Itoa(i), o.Details)...)
			out = append(out, r)
			continue
		}
		item := o.Value.(map[string]any)
		total += item["cost"].(float64)
		out = append(out, item)
	}

	if s.maxItems > 0 && len(out) > s.maxItems {
		details = append(details, fail(TypeArrayMax, map[string]any{"limit": s.maxItems}))
	}
	if len(details) == 0 {
		if s.minTotal > 0 && total < s.minTotal {
			details = append(details, fail(TypeUnderBudget, map[string]any{"limit": s.minTotal, "total": total}))
		}
		if s.maxTotal > 0 && total > s.maxTotal {
			details = append(details, fail(TypeOverBudget, map[string]any{"limit": s.maxTotal, "total": total}))
		}
	}
	return outcome(out, details...)
}

// BudgetTotal sums the cost of every row.  Rows whose cost is not a number
// count as zero.
func BudgetTotal(v any) float64 {
	rows, isList := AsList(v)
	if !isList {
		return 0
	}
	var total float64
	for _, r := range rows {
		m, isMap := AsMap(r)
		if !isMap {
			continue
		}
		if n, isNum := ParseAmount(m["cost"]); isNum {
			total += n
		}
	}
	return total
}

// prefix prepends key to every path without touching context.
func prefix(key string, details []Detail) []Detail {
	out := make([]Detail, len(details))
	for i, d := range details {
		out[i] = Detail{Type: d.Type, Path: append([]string{key}, d.Path...), Context: d.Context}
	}
	return out
}

// -----------------------------------------------------------------------------
// File
// -----------------------------------------------------------------------------

// FileSchema validates upload metadata {filename, size, type}.  The upload
// itself is handled by the caller; only its description is stored.
type FileSchema struct {
	types    []string
	maxBytes int64
}

// File returns a file schema accepting the given MIME types.
func File(maxBytes int64, types ...string) *FileSchema {
	return &FileSchema{types: types, maxBytes: maxBytes}
}

// Validate implements Schema.
func (s *FileSchema) Validate(v any, _ Context) Outcome {
	m, isMap := AsMap(v)
	if !isMap {
		return outcome(v, fail(TypeObjectBase, nil))
	}
	name, _ := AsString(m["filename"])
	typ, _ := AsString(m["type"])
	size, _ := AsInt(m["size"])
	if name == "" {
		return outcome(v, fail(TypeRequired, map[string]any{"key": "filename"}, "filename"))
	}

	out := map[string]any{"filename": name, "size": size, "type": strings.ToLower(typ)}
	var details []Detail
	if len(s.types) > 0 && !containsFold(s.types, typ) {
		details = append(details, fail(TypeFileType, map[string]any{"valids": s.types}))
	}
	if s.maxBytes > 0 && int64(size) > s.maxBytes {
		details = append(details, fail(TypeFileSize, map[string]any{"limit": s.maxBytes}))
	}
	return outcome(out, details...)
}
