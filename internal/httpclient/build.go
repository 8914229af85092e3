package httpclient

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Input is everything the request builder needs for one call.
type Input struct {
	Method  string
	BaseURL string
	Path    string

	PathParams  map[string]any
	QueryParams map[string]any
	Headers     map[string]string
	Cookies     map[string]string

	// Body is nil when the operation has no request body.
	Body any
	// ContentType is the active media type; empty means JSON.
	ContentType string
}

type RequestSpec struct {
	Method  string
	URL     string
	Headers map[string]string
	Cookies map[string]string
	// Body is nil for methods that never carry one.
	Body []byte
	// BodyContentType is set by the encoder for bodies whose Content-Type
	// the transport must fill in itself (multipart boundaries).
	BodyContentType string
}

// NoBodyMethod reports methods that never carry a request body.
func NoBodyMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

func BuildRequest(in Input) (RequestSpec, error) {
	path := AppendParamsToPath(in.Path, in.PathParams, in.QueryParams)
	u, err := url.Parse(strings.TrimRight(in.BaseURL, "/") + path)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("build url: %w", err)
	}

	headers := map[string]string{}
	for k, v := range in.Headers {
		headers[k] = v
	}

	formData := IsFormData(in.ContentType)
	if formData {
		for k := range headers {
			if strings.EqualFold(k, "Content-Type") {
				delete(headers, k)
			}
		}
	} else if !hasHeader(headers, "Content-Type") {
		ct := in.ContentType
		if ct == "" {
			ct = MimeJSON
		}
		headers["Content-Type"] = ct
	}

	cookies := map[string]string{}
	for k, v := range in.Cookies {
		cookies[k] = v
	}

	spec := RequestSpec{
		Method:  strings.ToUpper(in.Method),
		URL:     u.String(),
		Headers: headers,
		Cookies: cookies,
	}
	if NoBodyMethod(in.Method) || in.Body == nil {
		return spec, nil
	}

	enc, err := Encode(in.ContentType, in.Body)
	if err != nil {
		return RequestSpec{}, err
	}
	spec.Body = enc.Bytes
	if formData {
		spec.BodyContentType = enc.ContentType
	}
	return spec, nil
}

func hasHeader(h map[string]string, name string) bool {
	for k := range h {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}
