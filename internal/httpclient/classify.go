package httpclient

import (
	"strconv"
	"strings"
	"unicode/utf8"
)

type ResponseType string

const (
	ResponseInfo     ResponseType = "info"
	ResponseSuccess  ResponseType = "success"
	ResponseRedirect ResponseType = "redirect"
	ResponseError    ResponseType = "error"
	ResponseNone     ResponseType = ""
)

// MaxInlineContent is the longest response rendered inline; longer ones are
// offered as a download instead.
const MaxInlineContent = 10000

const (
	// ErrorCode is the code shown when a call never reached the server.
	ErrorCode = "Error"

	MismatchMessage = "The response could not be read. Its body does not match the declared content type."
)

// ResponseState is what the UI shows for the last completed call.
type ResponseState struct {
	Type    ResponseType
	Code    string
	Content any
	Format  string
}

func (r ResponseState) Empty() bool {
	return r.Code == ""
}

func Classify(code int) ResponseType {
	switch {
	case code >= 100 && code < 200:
		return ResponseInfo
	case code >= 200 && code < 300:
		return ResponseSuccess
	case code >= 300 && code < 400:
		return ResponseRedirect
	case code >= 400 && code < 600:
		return ResponseError
	default:
		return ResponseNone
	}
}

// FormatBody decodes raw as JSON when the response declares a JSON content
// type, falling back to the raw text when it does not parse.
func FormatBody(raw, contentType string) any {
	if !strings.Contains(strings.ToLower(contentType), MimeJSON) {
		return raw
	}
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// FromResult builds the response state of a completed call.
func FromResult(res Result) ResponseState {
	return ResponseState{
		Type:    Classify(res.StatusCode),
		Code:    strconv.Itoa(res.StatusCode),
		Content: FormatBody(res.Body, res.ContentType()),
		Format:  MediaType(res.ContentType()),
	}
}

// TransportFailure is the response state after a failed call. Without a
// status code for the call it is a synthetic error; with one (headers were
// received but the body was not) the code is kept and the content explains
// the mismatch.
func TransportFailure(prev ResponseState) ResponseState {
	if prev.Code == "" {
		return ResponseState{Type: ResponseError, Code: ErrorCode, Content: map[string]any{}}
	}
	return ResponseState{Type: prev.Type, Code: prev.Code, Content: MismatchMessage, Format: prev.Format}
}

// contentLength counts characters, not bytes.
func contentLength(content any) int {
	if s, ok := content.(string); ok {
		return utf8.RuneCountInString(s)
	}
	return utf8.RuneCountInString(stringify(content))
}

// Oversized reports content too long to render inline.
func Oversized(content any) bool {
	return contentLength(content) > MaxInlineContent
}

// DownloadURI offers content as a data URI. Only text/csv is kept as a
// format; everything else downloads as text/plain.
func DownloadURI(content any, format string) string {
	mime := "text/plain"
	if format == "text/csv" {
		mime = format
	}
	return "data:" + mime + ";charset=utf-8," + encodeURIComponent(stringify(content))
}
