package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"tryit/internal/model"
)

var methodOrder = []string{
	http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
	http.MethodDelete, http.MethodHead, http.MethodOptions, http.MethodTrace,
}

// LocationError reports a parameter declared at a location the form cannot edit.
type LocationError struct {
	Operation string
	Param     string
	In        string
}

func (e *LocationError) Error() string {
	return fmt.Sprintf("operation %s: parameter %q has unknown location %q", e.Operation, e.Param, e.In)
}

// ExtractOperations returns every operation of doc ordered by path, then by
// method.
func ExtractOperations(doc *openapi3.T) ([]*model.Operation, error) {
	var out []*model.Operation
	if doc == nil || doc.Paths == nil {
		return out, nil
	}
	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range methodOrder {
			op := ops[method]
			if op == nil {
				continue
			}
			mo, err := extractOperation(doc, path, method, item.Parameters, op)
			if err != nil {
				return nil, err
			}
			out = append(out, mo)
		}
	}
	return out, nil
}

func extractOperation(doc *openapi3.T, path, method string, common openapi3.Parameters, op *openapi3.Operation) (*model.Operation, error) {
	mo := &model.Operation{
		ID:          strings.TrimSpace(op.OperationID),
		Method:      method,
		Path:        path,
		Summary:     strings.TrimSpace(op.Summary),
		Description: strings.TrimSpace(op.Description),
		Tags:        op.Tags,
	}
	if mo.ID == "" {
		mo.ID = method + " " + path
	}

	params, err := extractParams(mo.ID, common, op.Parameters)
	if err != nil {
		return nil, err
	}
	mo.Parameters = params

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		rb := op.RequestBody.Value
		body := &model.RequestBody{Required: rb.Required}
		for _, name := range mediaNames(rb.Content) {
			body.Content = append(body.Content, model.MediaType{
				Name:   name,
				Schema: newConverter().schema(rb.Content[name].Schema),
			})
		}
		if len(body.Content) > 0 {
			mo.RequestBody = body
		}
	}

	for code, ref := range op.Responses.Map() {
		r := model.Response{Code: code}
		if ref != nil && ref.Value != nil {
			if ref.Value.Description != nil {
				r.Description = strings.TrimSpace(*ref.Value.Description)
			}
			r.MediaTypes = mediaNames(ref.Value.Content)
		}
		mo.Responses = append(mo.Responses, r)
	}
	sort.Slice(mo.Responses, func(i, j int) bool { return mo.Responses[i].Code < mo.Responses[j].Code })

	security := doc.Security
	if op.Security != nil {
		security = *op.Security
	}
	seen := map[string]bool{}
	for _, req := range security {
		for name := range req {
			if !seen[name] {
				seen[name] = true
				mo.Security = append(mo.Security, name)
			}
		}
	}
	sort.Strings(mo.Security)
	return mo, nil
}

// extractParams merges path-level and operation-level parameters; an
// operation parameter replaces a path-level one with the same name and location.
func extractParams(opID string, common, own openapi3.Parameters) ([]*model.Field, error) {
	type key struct{ in, name string }
	var order []key
	byKey := map[key]*openapi3.Parameter{}
	for _, list := range []openapi3.Parameters{common, own} {
		for _, ref := range list {
			if ref == nil || ref.Value == nil {
				continue
			}
			k := key{ref.Value.In, ref.Value.Name}
			if _, ok := byKey[k]; !ok {
				order = append(order, k)
			}
			byKey[k] = ref.Value
		}
	}

	var out []*model.Field
	for _, k := range order {
		p := byKey[k]
		loc, ok := location(p.In)
		if !ok {
			return nil, &LocationError{Operation: opID, Param: p.Name, In: p.In}
		}
		ref := p.Schema
		if ref == nil {
			for _, name := range mediaNames(p.Content) {
				ref = p.Content[name].Schema
				break
			}
		}
		out = append(out, &model.Field{
			Name:        p.Name,
			Required:    p.Required,
			In:          loc,
			Example:     p.Example,
			Description: strings.TrimSpace(p.Description),
			Schema:      newConverter().schema(ref),
		})
	}
	return out, nil
}

func location(in string) (model.Location, bool) {
	switch strings.ToLower(in) {
	case openapi3.ParameterInPath:
		return model.ParamInPath, true
	case openapi3.ParameterInQuery:
		return model.ParamInQuery, true
	case openapi3.ParameterInHeader:
		return model.ParamInHeader, true
	case openapi3.ParameterInCookie:
		return model.ParamInCookie, true
	}
	return "", false
}

// mediaNames sorts media types by name with application/json first.
func mediaNames(content openapi3.Content) []string {
	names := make([]string, 0, len(content))
	for name, mt := range content {
		if mt != nil {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ji, jj := names[i] == "application/json", names[j] == "application/json"
		if ji != jj {
			return ji
		}
		return names[i] < names[j]
	})
	return names
}

// converter turns kin-openapi schemas into model trees. A schema already on
// the current descent path becomes a circular leaf.
type converter struct {
	stack map[*openapi3.Schema]bool
}

func newConverter() *converter {
	return &converter{stack: map[*openapi3.Schema]bool{}}
}

func (c *converter) schema(ref *openapi3.SchemaRef) *model.Schema {
	if ref == nil || ref.Value == nil {
		return &model.Schema{Type: model.TypeAny, IsPrimitive: true}
	}
	s := ref.Value
	title := s.Title
	if title == "" {
		title = refName(ref.Ref)
	}
	if c.stack[s] {
		return &model.Schema{Type: typeOf(s), Title: title, Description: s.Description, IsCircular: true}
	}
	c.stack[s] = true
	defer delete(c.stack, s)

	if len(s.AllOf) > 0 {
		s = c.mergeAllOf(s)
	}

	out := &model.Schema{
		Type:        typeOf(s),
		Title:       title,
		Format:      s.Format,
		Description: strings.TrimSpace(s.Description),
		Default:     s.Default,
		Enum:        s.Enum,
		MinItems:    int(s.MinItems),
	}
	if s.MaxItems != nil {
		out.MaxItems = int(*s.MaxItems)
	}

	required := map[string]bool{}
	for _, name := range s.Required {
		required[name] = true
	}
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		prop := s.Properties[name]
		f := &model.Field{Name: name, Required: required[name], Schema: c.schema(prop)}
		if prop != nil && prop.Value != nil {
			f.Description = strings.TrimSpace(prop.Value.Description)
			f.Example = prop.Value.Example
		}
		out.Fields = append(out.Fields, f)
	}

	if s.Items != nil {
		out.Items = c.schema(s.Items)
	}

	if len(s.OneOf) > 0 {
		titles := map[string]string{}
		if s.Discriminator != nil {
			out.DiscriminatorProp = s.Discriminator.PropertyName
			for value, target := range s.Discriminator.Mapping {
				titles[target] = value
			}
		}
		for _, br := range s.OneOf {
			b := c.schema(br)
			if v, ok := titles[br.Ref]; ok {
				b.Title = v
			}
			out.OneOf = append(out.OneOf, b)
		}
	}

	switch ap := s.AdditionalProperties; {
	case ap.Schema != nil:
		out.AdditionalProperties = c.schema(ap.Schema)
	case ap.Has != nil && *ap.Has:
		out.AdditionalProperties = &model.Schema{Type: model.TypeAny, IsPrimitive: true}
	}

	switch out.Type {
	case model.TypeString, model.TypeInteger, model.TypeNumber, model.TypeBoolean:
		out.IsPrimitive = true
	case model.TypeAny:
		out.IsPrimitive = len(out.Fields) == 0 && len(out.OneOf) == 0 && out.Items == nil
	}
	return out
}

// mergeAllOf folds the allOf members of s into one object schema.
func (c *converter) mergeAllOf(s *openapi3.Schema) *openapi3.Schema {
	merged := *s
	merged.AllOf = nil
	merged.Properties = openapi3.Schemas{}
	merged.Required = append([]string(nil), s.Required...)
	for name, p := range s.Properties {
		merged.Properties[name] = p
	}
	for _, m := range s.AllOf {
		if m == nil || m.Value == nil || c.stack[m.Value] {
			continue
		}
		v := m.Value
		if len(v.AllOf) > 0 {
			c.stack[v] = true
			v = c.mergeAllOf(v)
			delete(c.stack, m.Value)
		}
		for name, p := range v.Properties {
			if _, ok := merged.Properties[name]; !ok {
				merged.Properties[name] = p
			}
		}
		merged.Required = append(merged.Required, v.Required...)
		if merged.Title == "" {
			merged.Title = v.Title
		}
		if merged.Discriminator == nil {
			merged.Discriminator = v.Discriminator
		}
	}
	if merged.Type == nil {
		merged.Type = &openapi3.Types{openapi3.TypeObject}
	}
	return &merged
}

func typeOf(s *openapi3.Schema) model.SchemaType {
	if s.Type != nil {
		for _, t := range *s.Type {
			switch t {
			case openapi3.TypeString:
				return model.TypeString
			case openapi3.TypeInteger:
				return model.TypeInteger
			case openapi3.TypeNumber:
				return model.TypeNumber
			case openapi3.TypeBoolean:
				return model.TypeBoolean
			case openapi3.TypeArray:
				return model.TypeArray
			case openapi3.TypeObject:
				return model.TypeObject
			}
		}
	}
	switch {
	case len(s.Properties) > 0, len(s.OneOf) > 0, len(s.AllOf) > 0,
		s.AdditionalProperties.Schema != nil, s.AdditionalProperties.Has != nil && *s.AdditionalProperties.Has:
		return model.TypeObject
	case s.Items != nil:
		return model.TypeArray
	}
	return model.TypeAny
}

func refName(ref string) string {
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ""
}

// ExtractSecuritySchemes lists the document's security schemes by name.
func ExtractSecuritySchemes(doc *openapi3.T) []model.SecurityScheme {
	var out []model.SecurityScheme
	if doc == nil || doc.Components == nil {
		return out
	}
	for name, ref := range doc.Components.SecuritySchemes {
		if ref == nil || ref.Value == nil {
			continue
		}
		v := ref.Value
		ss := model.SecurityScheme{
			Name:        name,
			Type:        v.Type,
			Scheme:      strings.ToLower(v.Scheme),
			In:          v.In,
			ParamName:   v.Name,
			Description: strings.TrimSpace(v.Description),
		}
		if v.Flows != nil && v.Flows.Password != nil {
			ss.TokenURL = v.Flows.Password.TokenURL
		}
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BaseURL is the first server URL of doc with its variables set to their defaults.
func BaseURL(doc *openapi3.T) string {
	if doc == nil || len(doc.Servers) == 0 || doc.Servers[0] == nil {
		return ""
	}
	srv := doc.Servers[0]
	u := srv.URL
	for name, v := range srv.Variables {
		if v != nil {
			u = strings.ReplaceAll(u, "{"+name+"}", v.Default)
		}
	}
	return strings.TrimRight(u, "/")
}
