// Package payload edits and cleans the dynamically shaped request body that
// a try-out form builds up: nested objects, arrays and primitive leaves
// addressed by a field name, an optional array index and an ancestor path.
package payload

import (
	"log/slog"
	"reflect"
	"strings"

	"github.com/mohae/deepcopy"
)

type undefinedValue struct{}

// Undefined marks a value that was cleared by an edit (e.g. a removed array
// element). It is removed by the clean pass and never serialized.
var Undefined any = undefinedValue{}

// Path is the ordered chain of field names from the payload root down to
// the parent of the field being edited. Paths are values: every method
// returns a new Path and none mutate the receiver.
type Path []string

func (p Path) Child(name string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = name
	return out
}

// HasPrefix reports whether q is a leading sub-path of p.
func (p Path) HasPrefix(q Path) bool {
	if len(q) > len(p) {
		return false
	}
	for i := range q {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

func (p Path) Equal(q Path) bool {
	return len(p) == len(q) && p.HasPrefix(q)
}

func (p Path) String() string {
	return strings.Join(p, ".")
}

// Index returns a pointer to i, for SetValue callers editing array elements.
func Index(i int) *int {
	return &i
}

// SetValue applies one edit to root and returns the updated root.
//
// With no ancestors and an empty field the edit targets the root itself and
// replaces it, unless value is empty. With an index, root[field] (or the
// field under the last ancestor) is treated as an array: value is assigned at
// index and falsy holes are compacted away. Nested edits create missing
// intermediate objects and merge into the last level so siblings survive.
// Maps along the path are mutated in place; ancestors is never modified.
func SetValue(root any, field string, value any, index *int, ancestors Path) any {
	if len(ancestors) == 0 {
		if field == "" {
			if IsEmpty(value) {
				slog.Error("payload: ignoring empty edit of the request root")
				return root
			}
			return value
		}
		obj := asObject(root)
		assign(obj, field, value, index)
		return obj
	}

	obj := asObject(root)
	cur := obj
	last := len(ancestors) - 1
	for i, name := range ancestors {
		if i < last {
			next, ok := cur[name].(map[string]any)
			if !ok {
				next = map[string]any{}
				cur[name] = next
			}
			cur = next
			continue
		}
		merged := map[string]any{}
		if prev, ok := cur[name].(map[string]any); ok {
			for k, v := range prev {
				merged[k] = v
			}
		}
		assign(merged, field, value, index)
		cur[name] = merged
	}
	return obj
}

func assign(obj map[string]any, field string, value any, index *int) {
	if index == nil {
		obj[field] = value
		return
	}
	arr, _ := obj[field].([]any)
	for len(arr) <= *index {
		arr = append(arr, Undefined)
	}
	arr[*index] = value
	obj[field] = compact(arr)
}

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

// compact drops falsy entries, keeping the order of the survivors. Literal
// false and 0 elements are dropped too.
func compact(arr []any) []any {
	out := make([]any, 0, len(arr))
	for _, v := range arr {
		if Truthy(v) {
			out = append(out, v)
		}
	}
	return out
}

// Truthy mirrors the truthiness a form value has when deciding whether it
// satisfies a constraint: nil, Undefined, "", false and numeric zero are falsy.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil, undefinedValue:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case float32:
		return t != 0
	}
	return true
}

// IsEmpty reports values that carry no data: nil, Undefined, "" and empty
// objects or arrays. Numbers and booleans are never empty.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil, undefinedValue:
		return true
	case string:
		return t == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}

// Copy returns a deep copy of a payload value.
func Copy(v any) any {
	if v == nil {
		return nil
	}
	return deepcopy.Copy(v)
}

// StripUndefined removes Undefined-valued object fields at every depth.
func StripUndefined(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == Undefined {
				continue
			}
			out[k] = StripUndefined(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = StripUndefined(val)
		}
		return out
	}
	return v
}

// CompactArrays drops falsy entries from arrays at every depth.
func CompactArrays(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = CompactArrays(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if Truthy(val) {
				out = append(out, CompactArrays(val))
			}
		}
		return out
	}
	return v
}

// OmitNonData removes values that cannot be serialized as data (functions,
// channels) at every depth.
func OmitNonData(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if !isData(val) {
				continue
			}
			out[k] = OmitNonData(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if isData(val) {
				out = append(out, OmitNonData(val))
			}
		}
		return out
	}
	return v
}

func isData(v any) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}

// Clean prepares a body for submission. It is idempotent.
func Clean(v any) any {
	return OmitNonData(CompactArrays(StripUndefined(v)))
}

// CleanParams drops blank parameters: nil, Undefined, whitespace-only
// strings and empty objects.
func CleanParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		switch t := v.(type) {
		case nil, undefinedValue:
			continue
		case string:
			if strings.TrimSpace(t) == "" {
				continue
			}
		case map[string]any:
			if len(t) == 0 {
				continue
			}
		}
		out[k] = v
	}
	return out
}
