// Package tryout drives one operation's "try it out" interaction: it owns the
// request state edited by the form, gates submission on required fields,
// builds and dispatches the call and keeps the response the UI shows.
package tryout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/mohae/deepcopy"

	"tryit/internal/httpclient"
	"tryit/internal/model"
	"tryit/internal/payload"
	"tryit/internal/required"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultMinPending keeps the busy indicator visible for at least this long.
const DefaultMinPending = time.Second

// InvalidJSONMessage is the inline text shown under JSON that does not parse.
const InvalidJSONMessage = "Invalid JSON Payload"

var (
	// ErrRequiredMissing is returned by Run when a required field is unset in form mode.
	ErrRequiredMissing = errors.New("required fields are missing")
	// ErrInvalidJSON is returned by Run when the JSON editor holds text that does not parse.
	ErrInvalidJSON = errors.New("invalid JSON payload")
)

// RequestState is what the user has entered so far.
type RequestState struct {
	PathParams   map[string]any
	QueryParams  map[string]any
	CookieParams map[string]any
	Headers      map[string]any
	Body         any
}

type Option func(*Session)

func WithBaseURL(u string) Option { return func(s *Session) { s.baseURL = u } }

func WithClient(c *http.Client) Option { return func(s *Session) { s.client = c } }

func WithMinPending(d time.Duration) Option { return func(s *Session) { s.minPending = d } }

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.log = l } }

// WithHeaders adds headers to every call, e.g. Authorization. Headers the
// operation declares win over these.
func WithHeaders(h map[string]string) Option {
	return func(s *Session) {
		for k, v := range h {
			s.headers[k] = v
		}
	}
}

// WithRequestID sends each call's correlation id as X-Request-ID.
func WithRequestID(on bool) Option { return func(s *Session) { s.requestID = on } }

type Session struct {
	op         *model.Operation
	baseURL    string
	client     *http.Client
	minPending time.Duration
	headers    map[string]string
	requestID  bool
	log        *slog.Logger

	mu        sync.Mutex
	state     RequestState
	tracker   *required.Tracker
	formMode  bool
	rawBody   string
	rawErr    string
	showError bool
	pending   bool
	token     uint64
	response  httpclient.ResponseState
	last      httpclient.RequestSpec
	onChange  func()
	inflight  sync.WaitGroup
}

func NewSession(op *model.Operation, opts ...Option) *Session {
	s := &Session{
		op:         op,
		minPending: DefaultMinPending,
		headers:    map[string]string{},
		formMode:   true,
		log:        slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.client == nil {
		s.client = httpclient.NewClient(httpclient.DefaultTimeout)
	}
	s.log = s.log.With("operation", op.ID, "method", op.Method, "path", op.Path)
	s.state = RequestState{
		PathParams:   payload.ParamDefaults(op.ParamsIn(model.ParamInPath)),
		QueryParams:  payload.ParamDefaults(op.ParamsIn(model.ParamInQuery)),
		CookieParams: payload.ParamDefaults(op.ParamsIn(model.ParamInCookie)),
		Headers:      payload.ParamDefaults(op.ParamsIn(model.ParamInHeader)),
	}
	s.resetBody()
	return s
}

func (s *Session) Operation() *model.Operation { return s.op }

// OnChange registers fn to be called after every state change, including
// the completion of a call on another goroutine.
func (s *Session) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func (s *Session) bodySchema() *model.Schema {
	if s.op.RequestBody == nil {
		return nil
	}
	if m := s.op.RequestBody.ActiveMedia(); m != nil {
		return m.Schema
	}
	return nil
}

func (s *Session) mediaType() string {
	if s.op.RequestBody == nil {
		return ""
	}
	if m := s.op.RequestBody.ActiveMedia(); m != nil {
		return m.Name
	}
	return ""
}

// resetBody reseeds the body for the active media type and recollects the
// required set. Callers hold mu or own s exclusively.
func (s *Session) resetBody() {
	schema := s.bodySchema()
	if s.op.RequestBody == nil {
		s.state.Body = nil
	} else {
		s.state.Body = payload.Defaults(schema, payload.DefaultDepth)
	}
	s.rawBody, s.rawErr = "", ""
	if !s.formMode && !payload.IsEmpty(s.state.Body) {
		if b, err := json.MarshalIndent(s.state.Body, "", "  "); err == nil {
			s.rawBody = string(b)
		}
	}
	s.tracker = required.Collect(s.op.Parameters, schema)
	s.revalidate()
}

// revalidate replays the values already in the state into the tracker.
func (s *Session) revalidate() {
	for _, f := range s.tracker.Fields() {
		if v, ok := s.lookup(f.Name, f.Ancestors, f.In); ok && payload.Truthy(v) {
			s.tracker.OnEdit(f.Name, v, nil, f.Ancestors, f.In)
		}
	}
}

// lookup reads the value of name under ancestors from the bucket of loc.
func (s *Session) lookup(name string, ancestors payload.Path, loc model.Location) (any, bool) {
	var cur map[string]any
	ok := true
	switch loc {
	case model.ParamInPath:
		cur = s.state.PathParams
	case model.ParamInQuery:
		cur = s.state.QueryParams
	case model.ParamInCookie:
		cur = s.state.CookieParams
	case model.ParamInHeader:
		cur = s.state.Headers
	default:
		cur, ok = s.state.Body.(map[string]any)
	}
	if !ok {
		return nil, false
	}
	for _, a := range ancestors {
		if cur, ok = cur[a].(map[string]any); !ok {
			return nil, false
		}
	}
	v, ok := cur[name]
	return v, ok
}

// Edit applies one form edit. It has the signature of form.EditFunc.
func (s *Session) Edit(field string, value any, index *int, ancestors payload.Path, loc model.Location) {
	s.mu.Lock()
	switch loc {
	case model.ParamInPath:
		s.state.PathParams = setParam(s.state.PathParams, field, value, index, ancestors)
	case model.ParamInQuery:
		s.state.QueryParams = setParam(s.state.QueryParams, field, value, index, ancestors)
	case model.ParamInCookie:
		s.state.CookieParams = setParam(s.state.CookieParams, field, value, index, ancestors)
	case model.ParamInHeader:
		s.state.Headers = setParam(s.state.Headers, field, value, index, ancestors)
	default:
		s.state.Body = payload.SetValue(s.state.Body, field, value, index, ancestors)
	}
	s.tracker.OnEdit(field, value, index, ancestors, loc)
	if s.showError && !s.tracker.AnyInvalid() {
		s.showError = false
	}
	s.mu.Unlock()
	s.notify()
}

func setParam(bucket map[string]any, field string, value any, index *int, ancestors payload.Path) map[string]any {
	if bucket == nil {
		bucket = map[string]any{}
	}
	out, _ := payload.SetValue(bucket, field, value, index, ancestors).(map[string]any)
	return out
}

func (s *Session) FormMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.formMode
}

// SetHeaders replaces the extra headers sent with every later call.
func (s *Session) SetHeaders(h map[string]string) {
	s.mu.Lock()
	s.headers = map[string]string{}
	for k, v := range h {
		s.headers[k] = v
	}
	s.mu.Unlock()
}

// SetFormMode switches between the form and the JSON editor. Either way the
// body starts over from the schema's defaults.
func (s *Session) SetFormMode(on bool) {
	s.mu.Lock()
	if s.formMode == on {
		s.mu.Unlock()
		return
	}
	s.formMode = on
	s.showError = false
	s.resetBody()
	s.mu.Unlock()
	s.notify()
}

// SwitchMediaType activates the i-th request media type and resets the body.
func (s *Session) SwitchMediaType(i int) bool {
	s.mu.Lock()
	rb := s.op.RequestBody
	if rb == nil || i < 0 || i >= len(rb.Content) || i == rb.Active {
		s.mu.Unlock()
		return false
	}
	rb.Active = i
	s.showError = false
	s.resetBody()
	s.mu.Unlock()
	s.notify()
	return true
}

// SwitchOneOf activates branch i of the top-level oneOf. The payload key of
// the previous branch is pruned (matching its title in any case) and the
// discriminator property is set to the new branch title. Nested oneOfs are
// switched by the form alone and leave the payload untouched.
func (s *Session) SwitchOneOf(i int) bool {
	s.mu.Lock()
	schema := s.bodySchema()
	prev := schema.ActiveBranch()
	if !schema.SetActiveOneOf(i) {
		s.mu.Unlock()
		return false
	}
	next := schema.ActiveBranch()
	if body, ok := s.state.Body.(map[string]any); ok && prev != nil {
		for k := range body {
			if strings.EqualFold(k, prev.Title) {
				delete(body, k)
			}
		}
	}
	s.tracker = required.Collect(s.op.Parameters, schema)
	if schema.DiscriminatorProp != "" && next != nil {
		s.state.Body = payload.SetValue(s.state.Body, schema.DiscriminatorProp, next.Title, nil, nil)
	}
	s.revalidate()
	s.mu.Unlock()
	s.notify()
	return true
}

// SetRawBody stores the JSON editor text. Text that does not parse is kept
// and reported by RawBody; Run refuses it.
func (s *Session) SetRawBody(text string) error {
	s.mu.Lock()
	s.rawBody = text
	s.rawErr = ""
	var err error
	if strings.TrimSpace(text) != "" && !json.Valid([]byte(text)) {
		s.rawErr = InvalidJSONMessage
		err = ErrInvalidJSON
	}
	s.mu.Unlock()
	s.notify()
	return err
}

// RawBody returns the JSON editor text and its inline error, if any.
func (s *Session) RawBody() (string, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rawBody, s.rawErr
}

// Request returns a copy of the current request state.
func (s *Session) Request() RequestState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepcopy.Copy(s.state).(RequestState)
}

func (s *Session) Response() httpclient.ResponseState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.response
}

// LastRequest is the request descriptor of the latest dispatched call.
func (s *Session) LastRequest() httpclient.RequestSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Session) ShowError() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showError
}

// Invalid lists required fields that are still unset.
func (s *Session) Invalid() []required.Field {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.Invalid()
}

func (s *Session) IsValid(name string, ancestors payload.Path, loc model.Location) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tracker.IsValid(name, ancestors, loc)
}

// Wait blocks until every dispatched call has completed.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// Run validates and dispatches the request. The call runs on its own
// goroutine; only the latest call may update the response.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.formMode && s.tracker.AnyInvalid() {
		s.showError = true
		invalid := s.tracker.Invalid()
		s.mu.Unlock()
		s.log.Info("run blocked by required fields", "missing", len(invalid))
		s.notify()
		return ErrRequiredMissing
	}
	if !s.formMode && s.rawErr != "" {
		s.mu.Unlock()
		return ErrInvalidJSON
	}
	s.showError = false

	in, id, err := s.input()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	call := &httpclient.Call{}
	spec, err := call.Build(in)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("build request: %w", err)
	}
	s.token++
	token := s.token
	s.pending = true
	s.last = spec
	s.mu.Unlock()
	s.notify()

	log := s.log.With("call_id", id)
	log.Info("dispatch", "url", spec.URL)
	s.inflight.Add(1)
	go s.complete(ctx, call, token, log)
	return nil
}

// input assembles the builder input from the cleaned state. Callers hold mu.
func (s *Session) input() (httpclient.Input, string, error) {
	id := uuid.NewString()
	headers := map[string]string{}
	for k, v := range s.headers {
		headers[k] = v
	}
	for k, v := range payload.CleanParams(asParams(payload.Clean(s.state.Headers))) {
		headers[k] = paramString(v)
	}
	if s.requestID {
		headers["X-Request-ID"] = id
	}
	cookies := map[string]string{}
	for k, v := range payload.CleanParams(asParams(payload.Clean(s.state.CookieParams))) {
		cookies[k] = paramString(v)
	}

	in := httpclient.Input{
		Method:      s.op.Method,
		BaseURL:     s.baseURL,
		Path:        s.op.Path,
		PathParams:  payload.CleanParams(asParams(payload.Clean(s.state.PathParams))),
		QueryParams: payload.CleanParams(asParams(payload.Clean(s.state.QueryParams))),
		Headers:     headers,
		Cookies:     cookies,
		ContentType: s.mediaType(),
	}
	if s.op.RequestBody == nil {
		return in, id, nil
	}
	if s.formMode {
		in.Body = payload.Clean(payload.Copy(s.state.Body))
		return in, id, nil
	}
	if strings.TrimSpace(s.rawBody) == "" {
		return in, id, nil
	}
	mt := httpclient.MediaType(in.ContentType)
	if mt == httpclient.MimeMultipart || mt == httpclient.MimeURLEncoded {
		var v any
		if err := json.Unmarshal([]byte(s.rawBody), &v); err != nil {
			return in, id, ErrInvalidJSON
		}
		in.Body = v
		return in, id, nil
	}
	in.Body = httpclient.RawBody(s.rawBody)
	return in, id, nil
}

func asParams(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

func paramString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func (s *Session) complete(ctx context.Context, call *httpclient.Call, token uint64, log *slog.Logger) {
	defer s.inflight.Done()
	start := time.Now()
	res, err := call.Send(ctx, s.client)

	var state httpclient.ResponseState
	switch {
	case err == nil:
		state = httpclient.FromResult(res)
		log.Info("response", "status", res.StatusCode, "elapsed", res.Elapsed)
	case errors.Is(err, httpclient.ErrBodyRead):
		prev := httpclient.ResponseState{Type: httpclient.Classify(res.StatusCode), Code: strconv.Itoa(res.StatusCode)}
		state = httpclient.TransportFailure(prev)
		log.Warn("response body unreadable", "status", res.StatusCode, "error", err)
	default:
		state = httpclient.TransportFailure(httpclient.ResponseState{})
		log.Warn("call failed", "error", err)
	}

	if wait := s.minPending - time.Since(start); wait > 0 {
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
		}
	}

	s.mu.Lock()
	if token != s.token {
		s.mu.Unlock()
		log.Debug("discarding stale response", "token", token)
		return
	}
	s.response = state
	s.pending = false
	s.mu.Unlock()
	s.notify()
}
