package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	// ErrTransport means the request never produced a response.
	ErrTransport = errors.New("transport failure")
	// ErrBodyRead means headers arrived but the body could not be consumed.
	ErrBodyRead = errors.New("response body could not be read")
)

const DefaultTimeout = 10 * time.Second

type Result struct {
	StatusCode int
	Status     string
	Elapsed    time.Duration
	Headers    map[string]string
	Body       string
}

func (r Result) ContentType() string {
	return r.Headers["content-type"]
}

func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

func Execute(ctx context.Context, client *http.Client, reqSpec RequestSpec) (Result, error) {
	if client == nil {
		client = NewClient(DefaultTimeout)
	}
	var body io.Reader
	if reqSpec.Body != nil {
		body = bytes.NewReader(reqSpec.Body)
	}

	req, err := http.NewRequestWithContext(ctx, reqSpec.Method, reqSpec.URL, body)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	for k, v := range reqSpec.Headers {
		if strings.TrimSpace(v) != "" {
			req.Header.Set(k, v)
		}
	}
	if reqSpec.BodyContentType != "" {
		req.Header.Set("Content-Type", reqSpec.BodyContentType)
	}
	names := make([]string, 0, len(reqSpec.Cookies))
	for name := range reqSpec.Cookies {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		req.AddCookie(&http.Cookie{Name: name, Value: reqSpec.Cookies[name]})
	}

	start := time.Now()
	resp, err := client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	headers := map[string]string{}
	for k := range resp.Header {
		headers[strings.ToLower(k)] = resp.Header.Get(k)
	}
	res := Result{StatusCode: resp.StatusCode, Status: resp.Status, Elapsed: elapsed, Headers: headers}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrBodyRead, err)
	}
	res.Body = string(b)
	return res, nil
}

type State int

const (
	StateIdle State = iota
	StateBuilding
	StateSent
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateSent:
		return "sent"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Call drives one request through Idle, Building, Sent and then Succeeded or
// Failed. Any HTTP status counts as success; only transport-level problems
// fail a call.
type Call struct {
	mu    sync.Mutex
	state State
	spec  RequestSpec
}

func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Call) set(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Call) Spec() RequestSpec {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.spec
}

func (c *Call) Build(in Input) (RequestSpec, error) {
	c.set(StateBuilding)
	spec, err := BuildRequest(in)
	if err != nil {
		c.set(StateFailed)
		return RequestSpec{}, err
	}
	c.mu.Lock()
	c.spec = spec
	c.mu.Unlock()
	return spec, nil
}

func (c *Call) Send(ctx context.Context, client *http.Client) (Result, error) {
	if c.State() != StateBuilding {
		return Result{}, fmt.Errorf("send: call is %s", c.State())
	}
	c.set(StateSent)
	res, err := Execute(ctx, client, c.Spec())
	if err != nil {
		c.set(StateFailed)
		return res, err
	}
	c.set(StateSucceeded)
	return res, nil
}
