package httpclient

import (
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// ANSI colours of the JSON token kinds.
const (
	colorReset   = "\033[0m"
	colorKey     = "\033[36m"
	colorString  = "\033[32m"
	colorNumber  = "\033[33m"
	colorBool    = "\033[35m"
	colorNull    = "\033[90m"
	colorBracket = "\033[37m"
)

// DefaultIndent is the indent width used by the response screen.
const DefaultIndent = 2

// prettyJSON keeps <, > and & readable in response bodies.
var prettyJSON = jsoniter.Config{
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Pretty renders response content for the terminal. Decoded JSON is
// indented by indent spaces with coloured tokens; text is returned as is.
func Pretty(content any, indent int) string {
	if s, ok := content.(string); ok {
		return s
	}
	if indent <= 0 {
		indent = DefaultIndent
	}
	b, err := prettyJSON.MarshalIndent(content, "", strings.Repeat(" ", indent))
	if err != nil {
		return fmt.Sprint(content)
	}
	return colorTokens(b)
}

// colorTokens wraps each token of indented JSON in its colour. A string
// followed by a colon is an object key.
func colorTokens(src []byte) string {
	var sb strings.Builder
	paint := func(color string, tok []byte) {
		sb.WriteString(color)
		sb.Write(tok)
		sb.WriteString(colorReset)
	}
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"':
			j := i + 1
			for j < len(src) && src[j] != '"' {
				if src[j] == '\\' {
					j++
				}
				j++
			}
			j = min(j+1, len(src))
			k := j
			for k < len(src) && src[k] == ' ' {
				k++
			}
			if k < len(src) && src[k] == ':' {
				paint(colorKey, src[i:j])
			} else {
				paint(colorString, src[i:j])
			}
			i = j
		case strings.IndexByte("{}[]", c) >= 0:
			paint(colorBracket, src[i:i+1])
			i++
		case c == '-' || (c >= '0' && c <= '9'):
			j := i
			for j < len(src) && strings.IndexByte("+-.eE0123456789", src[j]) >= 0 {
				j++
			}
			paint(colorNumber, src[i:j])
			i = j
		case c == 't' || c == 'f' || c == 'n':
			j := i
			for j < len(src) && src[j] >= 'a' && src[j] <= 'z' {
				j++
			}
			if c == 'n' {
				paint(colorNull, src[i:j])
			} else {
				paint(colorBool, src[i:j])
			}
			i = j
		default:
			sb.WriteByte(c)
			i++
		}
	}
	return sb.String()
}
