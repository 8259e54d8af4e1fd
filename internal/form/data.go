package form

import (
	"strconv"
	"strings"

	"github.com/mattandrews/blf-test-sub000/internal/schema"
)

// ReviewKey holds the data posted from the review page.
const ReviewKey = "review"

// Data is the keyed bag of step data for one application:
// {"step-1": {field: value}, "step-2": {...}, "review": {...}}.
//
// Data is treated as a snapshot.  Every helper returns a new value and never
// writes to the receiver, so the caller owns persistence and locking.
type Data map[string]map[string]any

// StepKey returns the storage key of 1-based step n.
func StepKey(n int) string { return "step-" + strconv.Itoa(n) }

// StepNumber parses a storage key back into a step number.
func StepNumber(key string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimPrefix(key, "step-"))
	if err != nil || !strings.HasPrefix(key, "step-") || n < 1 {
		return 0, false
	}
	return n, true
}

// FromMap converts a decoded JSON blob into Data.  Non-object entries are
// ignored.
func FromMap(m map[string]any) Data {
	out := make(Data, len(m))
	for k, v := range m {
		if vm, ok := schema.AsMap(v); ok {
			out[k] = vm
		}
	}
	return out
}

// Has reports whether anything was ever saved under key.
func (d Data) Has(key string) bool {
	_, ok := d[key]
	return ok
}

// Step returns a copy of the values stored for step n.
func (d Data) Step(n int) map[string]any {
	return copyMap(d[StepKey(n)])
}

// Get returns a copy of the values stored under key.
func (d Data) Get(key string) map[string]any {
	return copyMap(d[key])
}

// With returns a new snapshot with key replaced by values.
func (d Data) With(key string, values map[string]any) Data {
	out := d.Clone()
	out[key] = copyMap(values)
	return out
}

// WithStep returns a new snapshot with step n replaced by values.
func (d Data) WithStep(n int, values map[string]any) Data {
	return d.With(StepKey(n), values)
}

// Merge returns a new snapshot with raw laid over the existing values of
// key.  Keys absent from raw keep their stored values.
func (d Data) Merge(key string, raw map[string]any) Data {
	merged := copyMap(d[key])
	if merged == nil {
		merged = make(map[string]any, len(raw))
	}
	for k, v := range raw {
		merged[k] = v
	}
	out := d.Clone()
	out[key] = merged
	return out
}

// Flatten merges every step into one field-name keyed map.  The review key
// is excluded.  Field names are unique per form, so order does not matter.
func (d Data) Flatten() map[string]any {
	out := make(map[string]any)
	for k, step := range d {
		if _, isStep := StepNumber(k); !isStep {
			continue
		}
		for name, v := range step {
			out[name] = v
		}
	}
	return out
}

// Clone returns a copy deep enough that writes to the copy's step maps never
// reach the receiver.  Field values themselves are shared; they are never
// written in place.
func (d Data) Clone() Data {
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = copyMap(v)
	}
	return out
}

// Map returns d as a plain map, ready for JSON encoding.
func (d Data) Map() map[string]any {
	out := make(map[string]any, len(d))
	for k, v := range d {
		out[k] = copyMap(v)
	}
	return out
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
