package payload

import "tryit/internal/model"

// DefaultDepth bounds how deep Defaults descends into nested objects.
const DefaultDepth = 8

// ZeroValue is the initial body for a schema of the given type.
func ZeroValue(s *model.Schema) any {
	if s == nil {
		return nil
	}
	switch s.Type {
	case model.TypeString:
		return ""
	case model.TypeInteger:
		return 0
	case model.TypeNumber:
		return float64(0)
	case model.TypeBoolean:
		return false
	case model.TypeArray:
		return []any{}
	default:
		return map[string]any{}
	}
}

// Defaults builds the initial body for s: the zero value with every
// schema-declared default filled in. Recursion stops at maxDepth and at
// circular nodes.
func Defaults(s *model.Schema, maxDepth int) any {
	if s == nil {
		return nil
	}
	if s.Default != nil {
		return Copy(s.Default)
	}
	fields := s.Fields
	if len(s.OneOf) > 0 {
		fields = s.ActiveFields()
	}
	if s.Type != model.TypeObject && len(s.OneOf) == 0 {
		return ZeroValue(s)
	}
	obj := map[string]any{}
	fillDefaults(obj, fields, maxDepth)
	return obj
}

func fillDefaults(obj map[string]any, fields []*model.Field, depth int) {
	if depth <= 0 {
		return
	}
	for _, f := range fields {
		if f.Schema == nil {
			continue
		}
		if f.Schema.Default != nil {
			obj[f.Name] = Copy(f.Schema.Default)
			continue
		}
		if f.Schema.IsCircular || f.Schema.IsPrimitive || f.Schema.Type != model.TypeObject {
			continue
		}
		nested := map[string]any{}
		fillDefaults(nested, f.Schema.ActiveFields(), depth-1)
		if len(nested) > 0 {
			obj[f.Name] = nested
		}
	}
}

// ParamDefaults returns the defaults of required parameters, keyed by name.
func ParamDefaults(params []*model.Field) map[string]any {
	out := map[string]any{}
	for _, p := range params {
		if p.Required && p.Schema != nil && p.Schema.Default != nil {
			out[p.Name] = p.Schema.Default
		}
	}
	return out
}
