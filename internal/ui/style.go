package ui

import (
	"regexp"
	"strings"

	"tryit/internal/httpclient"
)

// ansi colors
const (
	colorDim     = "\033[90m" // gray for placeholders
	colorReset   = "\033[0m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

var pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}

func colorizeMethod(method string) string {
	var color string
	switch strings.ToUpper(method) {
	case "GET":
		color = colorBlue
	case "POST":
		color = colorGreen
	case "PUT":
		color = colorYellow
	case "DELETE":
		color = colorRed
	case "PATCH":
		color = colorCyan
	case "HEAD", "OPTIONS":
		color = colorMagenta
	default:
		color = colorReset
	}
	return color + padRight(strings.ToUpper(method), 7) + colorReset
}

// colorizeStatus colours a response code by its class.
func colorizeStatus(r httpclient.ResponseState) string {
	var color string
	switch r.Type {
	case httpclient.ResponseSuccess:
		color = colorGreen
	case httpclient.ResponseInfo, httpclient.ResponseRedirect:
		color = colorCyan
	case httpclient.ResponseError:
		color = colorRed
		if strings.HasPrefix(r.Code, "4") {
			color = colorYellow
		}
	default:
		color = colorReset
	}
	return color + r.Code + colorReset
}

func highlightPathParams(path string) string {
	return pathParamRe.ReplaceAllString(path, colorCyan+"{$1}"+colorReset)
}

func dim(s string) string { return colorDim + s + colorReset }
