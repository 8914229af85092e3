package httpclient

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"sort"
	"strings"

	"tryit/internal/model"
	"tryit/internal/payload"
)

const (
	MimeJSON       = "application/json"
	MimeMultipart  = "multipart/form-data"
	MimeURLEncoded = "application/x-www-form-urlencoded"
	MimeText       = "text/plain"
)

// RawBody is a body typed by hand that is sent unchanged.
type RawBody string

type EncodedBody struct {
	Bytes []byte
	// ContentType is what the transport must send; for multipart bodies it
	// carries the generated boundary.
	ContentType string
}

// MediaType lowercases contentType and strips its parameters.
func MediaType(contentType string) string {
	mt, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

func IsFormData(contentType string) bool {
	return MediaType(contentType) == MimeMultipart
}

// Encode serializes body into the wire format of contentType.
func Encode(contentType string, body any) (EncodedBody, error) {
	mt := MediaType(contentType)
	if raw, ok := body.(RawBody); ok {
		return EncodedBody{Bytes: []byte(raw), ContentType: contentType}, nil
	}
	if f, ok := body.(model.File); ok {
		return EncodedBody{Bytes: f.Content, ContentType: contentType}, nil
	}

	switch mt {
	case MimeMultipart:
		return encodeMultipart(body)
	case MimeURLEncoded:
		obj, _ := body.(map[string]any)
		return EncodedBody{Bytes: []byte(encodeFlat(flattenParams(obj))), ContentType: contentType}, nil
	case MimeText:
		return EncodedBody{Bytes: []byte(stringify(body)), ContentType: contentType}, nil
	default:
		b, err := json.Marshal(body)
		if err != nil {
			return EncodedBody{}, fmt.Errorf("encode json body: %w", err)
		}
		if contentType == "" {
			contentType = MimeJSON
		}
		return EncodedBody{Bytes: b, ContentType: contentType}, nil
	}
}

func encodeMultipart(body any) (EncodedBody, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	obj, _ := body.(map[string]any)
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := obj[k]
		switch t := v.(type) {
		case nil:
			continue
		case model.File:
			fw, err := w.CreateFormFile(k, t.Name)
			if err != nil {
				return EncodedBody{}, fmt.Errorf("multipart file %s: %w", k, err)
			}
			if _, err := fw.Write(t.Content); err != nil {
				return EncodedBody{}, fmt.Errorf("multipart file %s: %w", k, err)
			}
		case map[string]any, []any:
			b, err := json.Marshal(t)
			if err != nil {
				return EncodedBody{}, fmt.Errorf("multipart field %s: %w", k, err)
			}
			if err := w.WriteField(k, string(b)); err != nil {
				return EncodedBody{}, err
			}
		default:
			if v == payload.Undefined {
				continue
			}
			if err := w.WriteField(k, stringify(v)); err != nil {
				return EncodedBody{}, err
			}
		}
	}
	if err := w.Close(); err != nil {
		return EncodedBody{}, err
	}
	return EncodedBody{Bytes: buf.Bytes(), ContentType: w.FormDataContentType()}, nil
}
