// Package form turns a schema tree into a tree of form controls. Every leaf
// control reports edits through a single EditFunc; the package never holds
// the payload itself.
package form

import (
	"fmt"
	"strings"

	"tryit/internal/model"
	"tryit/internal/payload"
)

// EditFunc is the one contract between controls and the request state.
// index is nil unless an array element is edited; loc is empty for body edits.
type EditFunc func(field string, value any, index *int, ancestors payload.Path, loc model.Location)

// SchemaError is raised for schema shapes a form cannot represent. It points
// at a bug in the schema model, not at user input.
type SchemaError struct {
	Field string
	Type  model.SchemaType
}

func (e *SchemaError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("form: field %q has no schema", e.Field)
	}
	return fmt.Sprintf("form: field %q has unsupported schema type %q", e.Field, e.Type)
}

// Discriminator binds the field named FieldName to the oneOf branches of Parent.
type Discriminator struct {
	FieldName string
	Parent    *model.Schema
	// OnSwitch is called with the newly selected branch index. Its error
	// is returned by the select that triggered it.
	OnSwitch func(idx int) error
}

type Section struct {
	Ancestors payload.Path
	Rows      []*Row
	// Note explains an empty section.
	Note string
}

type Row struct {
	Field   *model.Field
	Control Control
}

type Control interface {
	Field() *model.Field
	Ancestors() payload.Path
	// Display is the current value as shown to the user.
	Display() string
}

type base struct {
	field     *model.Field
	ancestors payload.Path
	emit      EditFunc
}

func (b *base) Field() *model.Field     { return b.field }
func (b *base) Ancestors() payload.Path { return b.ancestors }

func (b *base) edit(value any, index *int) {
	if b.emit != nil {
		b.emit(b.field.Name, value, index, b.ancestors, b.field.In)
	}
}

// node is the closed set of shapes a field can take.
type node interface{ isNode() }

type (
	stringNode     struct{ binary, discriminator bool }
	integerNode    struct{}
	booleanNode    struct{}
	arrayNode      struct{ items *model.Schema }
	objectNode     struct{}
	dictionaryNode struct{}
	oneOfNode      struct{}
)

func (stringNode) isNode()     {}
func (integerNode) isNode()    {}
func (booleanNode) isNode()    {}
func (arrayNode) isNode()      {}
func (objectNode) isNode()     {}
func (dictionaryNode) isNode() {}
func (oneOfNode) isNode()      {}

func classify(f *model.Field, disc *Discriminator) (node, error) {
	s := f.Schema
	if s == nil {
		return nil, &SchemaError{Field: f.Name}
	}
	switch {
	case s.IsDictionary():
		return dictionaryNode{}, nil
	case len(s.OneOf) > 0:
		return oneOfNode{}, nil
	}
	switch s.Type {
	case model.TypeString, model.TypeAny:
		return stringNode{
			binary:        s.Format == "binary",
			discriminator: disc != nil && disc.FieldName != "" && disc.FieldName == f.Name,
		}, nil
	case model.TypeInteger, model.TypeNumber:
		return integerNode{}, nil
	case model.TypeBoolean:
		return booleanNode{}, nil
	case model.TypeArray:
		return arrayNode{items: s.Items}, nil
	case model.TypeObject:
		return objectNode{}, nil
	default:
		return nil, &SchemaError{Field: f.Name, Type: s.Type}
	}
}

// Render builds the controls for fields living under ancestors.
func Render(fields []*model.Field, ancestors payload.Path, disc *Discriminator, onEdit EditFunc) (*Section, error) {
	sec := &Section{Ancestors: ancestors}
	for _, f := range fields {
		c, err := renderField(f, ancestors, disc, onEdit)
		if err != nil {
			return nil, err
		}
		sec.Rows = append(sec.Rows, &Row{Field: f, Control: c})
	}
	return sec, nil
}

func renderField(f *model.Field, ancestors payload.Path, disc *Discriminator, onEdit EditFunc) (Control, error) {
	n, err := classify(f, disc)
	if err != nil {
		return nil, err
	}
	b := base{field: f, ancestors: ancestors, emit: onEdit}

	switch n := n.(type) {
	case stringNode:
		switch {
		case n.discriminator:
			return newDiscriminatorSelect(b, disc), nil
		case n.binary:
			return &FilePicker{base: b}, nil
		default:
			return &TextInput{base: b, Hint: f.Schema.Format, Placeholder: placeholder(f)}, nil
		}
	case integerNode:
		return &NumberInput{base: b, Placeholder: placeholder(f)}, nil
	case booleanNode:
		return newBoolSelect(b), nil
	case arrayNode:
		if scalarItems(n.items) {
			return newArrayInput(b), nil
		}
		return &JSONEditor{base: b}, nil
	case dictionaryNode:
		return newDictionary(b), nil
	case objectNode, oneOfNode:
		return newObject(b, onEdit)
	}
	return nil, &SchemaError{Field: f.Name, Type: f.Schema.Type}
}

func scalarItems(items *model.Schema) bool {
	if items == nil {
		return false
	}
	switch items.Type {
	case model.TypeString, model.TypeNumber, model.TypeInteger:
		return len(items.Fields) == 0 && len(items.OneOf) == 0
	}
	return false
}

func placeholder(f *model.Field) string {
	for _, v := range []any{f.Example, f.Description, f.Schema.Default} {
		if v == nil {
			continue
		}
		if s := strings.TrimSpace(fmt.Sprint(v)); s != "" {
			return s
		}
	}
	return ""
}

// RenderParams builds the controls for the parameters of one location.
func RenderParams(params []*model.Field, onEdit EditFunc) (*Section, error) {
	return Render(params, nil, nil, onEdit)
}

const noFieldsNote = "Body has no fields, that usually means expected payload is binary (e.g. uploading images)"

// RenderBody builds the body form for the active media type. onSwitch is
// called when the discriminator of the top-level oneOf changes.
func RenderBody(media *model.MediaType, onEdit EditFunc, onSwitch func(idx int) error) (*Section, error) {
	if media == nil || media.Schema == nil {
		return &Section{}, nil
	}
	s := media.Schema
	root := &model.Field{Name: "", Schema: s}
	b := base{field: root, emit: onEdit}

	if strings.EqualFold(strings.TrimSpace(media.Name), "text/plain") {
		return &Section{Rows: []*Row{{Field: root, Control: &TextInput{base: b}}}}, nil
	}

	fields := s.ActiveFields()
	if len(fields) == 0 {
		var c Control
		switch {
		case s.Type == model.TypeString && s.Format == "binary":
			c = &FilePicker{base: b}
		case s.Type == model.TypeString:
			c = &TextInput{base: b, Hint: s.Format}
		default:
			c = &JSONEditor{base: b}
		}
		return &Section{Rows: []*Row{{Field: root, Control: c}}, Note: noFieldsNote}, nil
	}

	disc := &Discriminator{FieldName: s.DiscriminatorProp, Parent: s, OnSwitch: onSwitch}
	return Render(fields, nil, disc, onEdit)
}
