// Package required tracks which required fields of an operation have been
// given a value, across parameters and arbitrarily nested body fields.
package required

import (
	"tryit/internal/model"
	"tryit/internal/payload"
)

// Field is one required field: a parameter of location In, or a body field
// under Ancestors.
type Field struct {
	Name      string
	In        model.Location
	Ancestors payload.Path
	Valid     bool
}

// Key is the dotted path of the field from the payload root.
func (f Field) Key() string {
	return f.Ancestors.Child(f.Name).String()
}

func (f *Field) at(name string, ancestors payload.Path, loc model.Location) bool {
	return f.Name == name && f.In == loc && f.Ancestors.Equal(ancestors)
}

type Tracker struct {
	fields []*Field
}

// Collect walks the flat parameter list and the active body schema depth
// first and returns a tracker with one entry per required node. Fields with
// a schema default start valid.
func Collect(params []*model.Field, body *model.Schema) *Tracker {
	t := &Tracker{}
	for _, p := range params {
		if p.Required {
			t.add(p, p.In, nil)
		}
	}
	if body != nil {
		t.walk(body.ActiveFields(), nil, map[*model.Schema]bool{body: true})
	}
	return t
}

func (t *Tracker) walk(fields []*model.Field, ancestors payload.Path, seen map[*model.Schema]bool) {
	for _, f := range fields {
		if f.Required {
			t.add(f, model.InBody, ancestors)
		}
		s := f.Schema
		// Arrays of objects are edited through a JSON editor as a whole, so
		// their item fields are not tracked individually.
		if s == nil || s.IsPrimitive || s.IsCircular || s.Type == model.TypeArray || seen[s] {
			continue
		}
		seen[s] = true
		t.walk(s.ActiveFields(), ancestors.Child(f.Name), seen)
		delete(seen, s)
	}
}

func (t *Tracker) add(f *model.Field, loc model.Location, ancestors payload.Path) {
	valid := f.Schema != nil && f.Schema.Default != nil
	t.fields = append(t.fields, &Field{Name: f.Name, In: loc, Ancestors: ancestors, Valid: valid})
}

// OnEdit records an edit of fieldName under ancestors in location loc. A
// truthy value marks the matching required field valid; array element edits
// never do. Every required ancestor on the edited path is marked valid as well.
func (t *Tracker) OnEdit(fieldName string, value any, index *int, ancestors payload.Path, loc model.Location) {
	if t == nil {
		return
	}
	if index == nil && payload.Truthy(value) {
		for _, f := range t.fields {
			if f.at(fieldName, ancestors, loc) {
				f.Valid = true
			}
		}
	}
	for i, name := range ancestors {
		chain := ancestors[:i]
		for _, f := range t.fields {
			if f.at(name, chain, loc) {
				f.Valid = true
			}
		}
	}
}

// AnyInvalid reports whether any tracked field still lacks a value.
func (t *Tracker) AnyInvalid() bool {
	return len(t.Invalid()) > 0
}

func (t *Tracker) Invalid() []Field {
	if t == nil {
		return nil
	}
	var out []Field
	for _, f := range t.fields {
		if !f.Valid {
			out = append(out, *f)
		}
	}
	return out
}

// IsValid reports the validity of the required field at ancestors/name in
// location loc. Fields that are not required are always valid.
func (t *Tracker) IsValid(name string, ancestors payload.Path, loc model.Location) bool {
	if t == nil {
		return true
	}
	for _, f := range t.fields {
		if f.at(name, ancestors, loc) {
			return f.Valid
		}
	}
	return true
}

func (t *Tracker) Fields() []Field {
	if t == nil {
		return nil
	}
	out := make([]Field, len(t.fields))
	for i, f := range t.fields {
		out[i] = *f
	}
	return out
}
