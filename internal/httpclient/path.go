package httpclient

import (
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"tryit/internal/payload"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var placeholderRe = regexp.MustCompile(`\{([^{}]+)\}`)

// SubstitutePath replaces every {name} placeholder with the escaped value of
// pathParams[name]. Placeholders without a value are left untouched.
func SubstitutePath(tpl string, pathParams map[string]any) string {
	return placeholderRe.ReplaceAllStringFunc(tpl, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := pathParams[name]
		if !ok || v == nil || v == payload.Undefined {
			return m
		}
		return url.PathEscape(stringify(v))
	})
}

// AppendQuery appends queryParams to path as an encoded query string. Nested
// object values are flattened one level, nil values dropped and array values
// repeated per element. Keys are emitted in sorted order.
func AppendQuery(path string, queryParams map[string]any) string {
	q := encodeFlat(flattenParams(queryParams))
	if q == "" {
		return path
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + q
}

// AppendParamsToPath resolves path parameters first, then appends the query.
func AppendParamsToPath(path string, pathParams, queryParams map[string]any) string {
	return AppendQuery(SubstitutePath(path, pathParams), queryParams)
}

func flattenParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		if nested, ok := v.(map[string]any); ok {
			for nk, nv := range nested {
				if nv != nil && nv != payload.Undefined {
					out[nk] = nv
				}
			}
			continue
		}
		if v != nil && v != payload.Undefined {
			out[k] = v
		}
	}
	return out
}

func encodeFlat(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		if arr, ok := params[k].([]any); ok {
			for _, item := range arr {
				if item == nil || item == payload.Undefined {
					continue
				}
				parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(stringify(item)))
			}
			continue
		}
		parts = append(parts, url.QueryEscape(k)+"="+url.QueryEscape(stringify(params[k])))
	}
	return strings.Join(parts, "&")
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case RawBody:
		return string(t)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// encodeURIComponent escapes s the way browsers do for URI components.
func encodeURIComponent(s string) string {
	out := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	r := strings.NewReplacer("%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*")
	return r.Replace(out)
}
