package httpclient

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := map[int]ResponseType{
		101: ResponseInfo,
		201: ResponseSuccess,
		301: ResponseRedirect,
		404: ResponseError,
		503: ResponseError,
		0:   ResponseNone,
		-1:  ResponseNone,
		600: ResponseNone,
	}
	for code, want := range cases {
		assert.Equal(t, want, Classify(code), "code %d", code)
	}
}

func TestFormatBody(t *testing.T) {
	assert.Equal(t, map[string]any{"a": float64(1)}, FormatBody(`{"a":1}`, "application/json; charset=utf-8"))
	assert.Equal(t, `{"a":1}`, FormatBody(`{"a":1}`, "text/plain"))
	assert.Equal(t, "not json", FormatBody("not json", "application/json"))
}

func TestFromResult(t *testing.T) {
	st := FromResult(Result{
		StatusCode: 404,
		Headers:    map[string]string{"content-type": "application/json"},
		Body:       `{"error":"missing"}`,
	})
	assert.Equal(t, ResponseState{
		Type:    ResponseError,
		Code:    "404",
		Content: map[string]any{"error": "missing"},
		Format:  "application/json",
	}, st)
	assert.False(t, st.Empty())
}

func TestTransportFailure(t *testing.T) {
	assert.Equal(t, ResponseState{Type: ResponseError, Code: ErrorCode, Content: map[string]any{}}, TransportFailure(ResponseState{}))

	prev := ResponseState{Type: ResponseSuccess, Code: "200", Content: "partial"}
	got := TransportFailure(prev)
	assert.Equal(t, "200", got.Code)
	assert.Equal(t, ResponseSuccess, got.Type)
	assert.Equal(t, MismatchMessage, got.Content)
}

func TestOversizedAndDownload(t *testing.T) {
	big := strings.Repeat("x", MaxInlineContent+1)
	assert.True(t, Oversized(big))
	assert.False(t, Oversized(strings.Repeat("x", MaxInlineContent)))
	assert.True(t, Oversized(map[string]any{"k": big}))
	assert.False(t, Oversized(strings.Repeat("é", 6000)), "limit counts characters")
	assert.True(t, Oversized(strings.Repeat("é", MaxInlineContent+1)))

	assert.Equal(t, "data:text/csv;charset=utf-8,a%2Cb%0A1%2C2", DownloadURI("a,b\n1,2", "text/csv"))
	assert.Equal(t, "data:text/plain;charset=utf-8,%7B%22a%22%3A1%7D", DownloadURI(map[string]any{"a": 1}, "application/json"))
}

func TestPretty(t *testing.T) {
	assert.Equal(t, "plain", Pretty("plain", 2))

	out := Pretty(map[string]any{"b": true, "a": []any{float64(1), int64(7)}, "c": nil}, 2)
	assert.Less(t, strings.Index(out, `"a"`), strings.Index(out, `"b"`))
	assert.Contains(t, out, colorNumber+"1"+colorReset)
	assert.Contains(t, out, colorNumber+"7"+colorReset)
	assert.Contains(t, out, colorBool+"true"+colorReset)
	assert.Contains(t, out, colorNull+"null"+colorReset)
	assert.Contains(t, out, "\n  "+colorKey+`"a"`+colorReset)
}

func TestPrettyEscapesKeysAndStrings(t *testing.T) {
	out := Pretty(map[string]any{`say "hi"`: "a\"b <c>"}, 4)
	assert.Contains(t, out, "\n    "+colorKey+`"say \"hi\""`+colorReset)
	assert.Contains(t, out, colorString+`"a\"b <c>"`+colorReset)
}

func TestPrettyIndentWidth(t *testing.T) {
	out := Pretty(map[string]any{"k": 1}, 3)
	assert.Contains(t, out, "\n   "+colorKey)
	assert.NotContains(t, out, "\n    "+colorKey)

	assert.Contains(t, Pretty(map[string]any{"k": 1}, 0), "\n  "+colorKey)
}
