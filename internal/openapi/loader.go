// Package openapi loads OpenAPI 3 and Swagger 2 documents and normalizes
// their operations into the schema trees the try-out form is built from.
package openapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
)

// SpecError is a categorized loader error.
type SpecError struct {
	Code     ErrorCode
	Message  string
	Location string
	Cause    error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

type Settings struct {
	HTTPTimeout time.Duration
	// MaxRetries bounds attempts on 5xx, 429 and network errors.
	MaxRetries  int
	BackoffBase time.Duration
	// Strict rejects documents that fail validation instead of loading them
	// best-effort.
	Strict bool
}

func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
		Strict:      true,
	}
}

type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option  { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option             { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option  { return func(s *Settings) { s.BackoffBase = d } }
func WithStrict(strict bool) Option           { return func(s *Settings) { s.Strict = strict } }

// Load reads an OpenAPI 3 or Swagger 2 document from source and returns it
// as OpenAPI 3. source is an http(s) URL or a file path; a leading "@"
// forces a file path.
func Load(ctx context.Context, source string, opts ...Option) (*openapi3.T, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: source is empty"}
	}
	settings := DefaultSettings()
	for _, o := range opts {
		o(&settings)
	}

	if path, ok := strings.CutPrefix(source, "@"); ok {
		return loadFile(ctx, path, settings)
	}
	u, err := url.Parse(source)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return loadFile(ctx, source, settings)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q", u.Scheme), Location: source}
	}

	raw, err := fetchWithRetry(ctx, source, settings)
	if err != nil {
		return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", source, err), Location: source, Cause: err}
	}
	return loadData(ctx, raw, u, source, settings)
}

func loadFile(ctx context.Context, path string, settings Settings) (*openapi3.T, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: path, Cause: err}
	}
	raw, err := os.ReadFile(abs)
	if err != nil {
		return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
	}
	return loadData(ctx, raw, &url.URL{Path: filepath.ToSlash(abs)}, abs, settings)
}

func loadData(ctx context.Context, raw []byte, location *url.URL, display string, settings Settings) (*openapi3.T, error) {
	version, err := detectVersion(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: display, Cause: err}
	}

	loader := newLoader(ctx, settings)
	var doc *openapi3.T
	switch version {
	case 3:
		doc, err = loader.LoadFromDataWithPath(raw, location)
		if err != nil {
			return nil, &SpecError{Code: ParseError, Message: fmt.Sprintf("parse %s: %v", display, err), Location: display, Cause: err}
		}
	case 2:
		doc, err = convertV2(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert swagger 2 document: %v", err), Location: display, Cause: err}
		}
		if err := loader.ResolveRefsIn(doc, location); err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("resolve refs: %v", err), Location: display, Cause: err}
		}
	}

	if err := doc.Validate(ctx); err != nil && settings.Strict {
		return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("invalid document %s: %v", display, err), Location: display, Cause: err}
	}
	return doc, nil
}

func newLoader(ctx context.Context, settings Settings) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	loader.ReadFromURIFunc = func(_ *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			p := uri.Path
			if p == "" {
				p = uri.Opaque
			}
			return os.ReadFile(filepath.FromSlash(p))
		case "http", "https":
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
			if err != nil {
				return nil, err
			}
			resp, err := client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("GET %s: %s", uri, resp.Status)
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme %q", uri.Scheme)
		}
	}
	return loader
}

// detectVersion returns 3 for OpenAPI 3.x and 2 for Swagger 2.0.
func detectVersion(raw []byte) (int, error) {
	var head struct {
		OpenAPI string `yaml:"openapi"`
		Swagger string `yaml:"swagger"`
	}
	if err := yaml.Unmarshal(raw, &head); err != nil {
		return 0, fmt.Errorf("parse document: %w", err)
	}
	switch {
	case strings.HasPrefix(strings.TrimSpace(head.OpenAPI), "3."):
		return 3, nil
	case strings.HasPrefix(strings.TrimSpace(head.Swagger), "2."):
		return 2, nil
	}
	return 0, errors.New("missing or unknown version (expected 'openapi: 3.x' or 'swagger: 2.0')")
}

// convertV2 decodes a Swagger 2 document, YAML or JSON, and converts it.
func convertV2(raw []byte) (*openapi3.T, error) {
	var generic any
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	b, err := json.Marshal(generic)
	if err != nil {
		return nil, err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(b, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := max(settings.MaxRetries, 1)

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func fetchOnce(ctx context.Context, client *http.Client, rawURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	body, err := io.ReadAll(resp.Body)
	return body, false, err
}
