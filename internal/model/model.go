package model

import "strings"

type Location string

type SchemaType string

const (
	ParamInPath   Location = "path"
	ParamInQuery  Location = "query"
	ParamInHeader Location = "header"
	ParamInCookie Location = "cookie"
	// InBody is the zero location; edits without a parameter location target the body.
	InBody Location = ""

	TypeString  SchemaType = "string"
	TypeInteger SchemaType = "integer"
	TypeNumber  SchemaType = "number"
	TypeBoolean SchemaType = "boolean"
	TypeArray   SchemaType = "array"
	TypeObject  SchemaType = "object"
	TypeAny     SchemaType = "any"
)

// Schema is one node of a request or response schema tree.
type Schema struct {
	Type        SchemaType
	Title       string
	Format      string
	Description string
	Default     any
	Enum        []any

	Fields []*Field
	Items  *Schema

	OneOf             []*Schema
	ActiveOneOf       int
	DiscriminatorProp string

	// AdditionalProperties is set for dictionary-shaped objects.
	AdditionalProperties *Schema

	MinItems int
	// MaxItems of 0 means unbounded.
	MaxItems int

	IsPrimitive bool
	// IsCircular nodes refer back to one of their ancestors and are never expanded.
	IsCircular bool
}

// ActiveFields returns the fields a form renders for s: the active oneOf
// branch, else its own fields, else the fields of its array items.
func (s *Schema) ActiveFields() []*Field {
	if s == nil {
		return nil
	}
	if len(s.OneOf) > 0 {
		if br := s.ActiveBranch(); br != nil {
			return br.Fields
		}
		return nil
	}
	if len(s.Fields) > 0 {
		return s.Fields
	}
	if s.Items != nil {
		return s.Items.Fields
	}
	return nil
}

func (s *Schema) ActiveBranch() *Schema {
	if s == nil || s.ActiveOneOf < 0 || s.ActiveOneOf >= len(s.OneOf) {
		return nil
	}
	return s.OneOf[s.ActiveOneOf]
}

// SetActiveOneOf switches the selected oneOf branch and reports whether it changed.
func (s *Schema) SetActiveOneOf(idx int) bool {
	if s == nil || idx < 0 || idx >= len(s.OneOf) || idx == s.ActiveOneOf {
		return false
	}
	s.ActiveOneOf = idx
	return true
}

// BranchIndex finds the oneOf branch whose title matches name, case-insensitively.
func (s *Schema) BranchIndex(name string) int {
	for i, br := range s.OneOf {
		if br != nil && strings.EqualFold(br.Title, name) {
			return i
		}
	}
	return -1
}

func (s *Schema) IsDictionary() bool {
	return s != nil && s.AdditionalProperties != nil && len(s.Fields) == 0
}

// DisplayType is the short type label shown for collapsed objects.
func (s *Schema) DisplayType() string {
	if s == nil {
		return ""
	}
	switch {
	case s.Type == TypeArray && s.Items != nil:
		return "[" + s.Items.DisplayType() + "]"
	case s.Title != "":
		return string(s.Type) + " (" + s.Title + ")"
	default:
		return string(s.Type)
	}
}

type Field struct {
	Name        string
	Required    bool
	In          Location
	Expanded    bool
	Example     any
	Description string
	Schema      *Schema
}

func (f *Field) Toggle() {
	f.Expanded = !f.Expanded
}

// Expandable reports whether the field has a sub-schema that can be opened.
func (f *Field) Expandable() bool {
	return f != nil && f.Schema != nil && !f.Schema.IsPrimitive && !f.Schema.IsCircular
}

type MediaType struct {
	Name   string
	Schema *Schema
}

type RequestBody struct {
	Required bool
	Content  []MediaType
	Active   int
}

func (rb *RequestBody) ActiveMedia() *MediaType {
	if rb == nil || rb.Active < 0 || rb.Active >= len(rb.Content) {
		return nil
	}
	return &rb.Content[rb.Active]
}

type Response struct {
	Code        string
	Description string
	MediaTypes  []string
}

type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string
	Tags        []string

	Parameters  []*Field
	RequestBody *RequestBody
	Responses   []Response
	Security    []string
}

// ParamsIn returns the parameters declared at loc, in declaration order.
func (op *Operation) ParamsIn(loc Location) []*Field {
	var out []*Field
	for _, p := range op.Parameters {
		if p.In == loc {
			out = append(out, p)
		}
	}
	return out
}

type SecurityScheme struct {
	Name        string
	Type        string
	Scheme      string
	In          string
	ParamName   string
	TokenURL    string
	Description string
}

// File is a binary leaf value picked for a `format: binary` field.
type File struct {
	Name    string
	Content []byte
}
