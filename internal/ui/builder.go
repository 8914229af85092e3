package ui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tryit/internal/form"
	"tryit/internal/model"
	"tryit/internal/payload"
	"tryit/internal/tryout"
)

type focusPane int

const (
	paneParams focusPane = iota
	paneBody
)

var paramLocations = []model.Location{model.ParamInPath, model.ParamInQuery, model.ParamInHeader, model.ParamInCookie}

var (
	errMaxItems = errors.New("maximum number of items reached")
	errMinItems = errors.New("minimum number of items reached")
)

type lineKind int

const (
	lineHeading lineKind = iota
	lineNote
	lineControl
	// lineItem is element index of an ArrayInput.
	lineItem
	// lineEntry is row index of a Dictionary.
	lineEntry
	// lineRaw is one line of the JSON editor text.
	lineRaw
)

// line is one selectable row of a builder pane.
type line struct {
	kind  lineKind
	depth int
	text  string
	ctrl  form.Control
	index int
}

// prompt asks the user for a value; apply receives what they typed.
type prompt struct {
	title string
	value string
	// external edits the value in $EDITOR instead of the inline modal.
	external bool
	apply    func(string) error
}

type paramSection struct {
	loc model.Location
	sec *form.Section
}

// builder holds the form of one operation. It knows nothing about the
// terminal; App draws its lines and forwards key presses to it.
type builder struct {
	op      *model.Operation
	session *tryout.Session
	params  []paramSection
	body    *form.Section
}

func newBuilder(op *model.Operation, opts ...tryout.Option) (*builder, error) {
	b := &builder{op: op, session: tryout.NewSession(op, opts...)}
	for _, loc := range paramLocations {
		fields := op.ParamsIn(loc)
		if len(fields) == 0 {
			continue
		}
		sec, err := form.RenderParams(fields, b.session.Edit)
		if err != nil {
			return nil, err
		}
		b.params = append(b.params, paramSection{loc: loc, sec: sec})
	}
	if err := b.renderBody(); err != nil {
		return nil, err
	}
	return b, nil
}

// renderBody rebuilds the body form for the active media type, branch and mode.
func (b *builder) renderBody() error {
	b.body = nil
	if b.op.RequestBody == nil || !b.session.FormMode() {
		return nil
	}
	sec, err := form.RenderBody(b.op.RequestBody.ActiveMedia(), b.session.Edit, b.switchOneOf)
	if err != nil {
		return err
	}
	b.body = sec
	return nil
}

// switchOneOf moves the body's top-level oneOf to branch idx and re-renders.
func (b *builder) switchOneOf(idx int) error {
	if b.session.SwitchOneOf(idx) {
		return b.renderBody()
	}
	return nil
}

func (b *builder) toggleMode() error {
	b.session.SetFormMode(!b.session.FormMode())
	return b.renderBody()
}

func (b *builder) cycleMedia() (bool, error) {
	rb := b.op.RequestBody
	if rb == nil || len(rb.Content) < 2 {
		return false, nil
	}
	if !b.session.SwitchMediaType((rb.Active + 1) % len(rb.Content)) {
		return false, nil
	}
	return true, b.renderBody()
}

// cycleBranch moves the oneOf under the cursor, or the body's own oneOf, to
// its next branch.
func (b *builder) cycleBranch(l line) (bool, error) {
	if o, ok := l.ctrl.(*form.Object); ok && l.kind == lineControl && len(o.Branches) > 1 {
		s := o.Field().Schema
		return true, o.SelectBranch((s.ActiveOneOf + 1) % len(s.OneOf))
	}
	m := b.op.RequestBody.ActiveMedia()
	if m == nil || m.Schema == nil || len(m.Schema.OneOf) < 2 || !b.session.FormMode() {
		return false, nil
	}
	return true, b.switchOneOf((m.Schema.ActiveOneOf + 1) % len(m.Schema.OneOf))
}

func (b *builder) lines(p focusPane) []line {
	var out []line
	switch p {
	case paneParams:
		for _, ps := range b.params {
			out = append(out, line{kind: lineHeading, text: string(ps.loc)})
			out = flatten(out, ps.sec, 1)
		}
		if len(out) == 0 {
			out = append(out, line{kind: lineNote, text: "(no parameters)"})
		}
	case paneBody:
		switch {
		case b.op.RequestBody == nil:
			out = append(out, line{kind: lineNote, text: "(no body)"})
		case !b.session.FormMode():
			text, _ := b.session.RawBody()
			if strings.TrimSpace(text) == "" {
				return append(out, line{kind: lineRaw})
			}
			for _, s := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
				out = append(out, line{kind: lineRaw, text: s})
			}
		default:
			out = flatten(out, b.body, 0)
		}
	}
	return out
}

func flatten(out []line, sec *form.Section, depth int) []line {
	if sec == nil {
		return out
	}
	for _, row := range sec.Rows {
		out = append(out, line{kind: lineControl, depth: depth, ctrl: row.Control})
		switch c := row.Control.(type) {
		case *form.Object:
			if c.Expanded() {
				out = flatten(out, c.Children, depth+1)
			}
		case *form.ArrayInput:
			for i := range c.Items {
				out = append(out, line{kind: lineItem, depth: depth + 1, ctrl: c, index: i})
			}
		case *form.Dictionary:
			for i := range c.Rows {
				out = append(out, line{kind: lineEntry, depth: depth + 1, ctrl: c, index: i})
			}
		}
	}
	if sec.Note != "" {
		out = append(out, line{kind: lineNote, depth: depth, text: sec.Note})
	}
	return out
}

func fieldLabel(f *model.Field) string {
	if f.Name == "" {
		return "body"
	}
	return f.Name
}

// activate handles enter on l. It either acts at once or returns a prompt
// for the value to apply.
func (b *builder) activate(l line) (*prompt, error) {
	switch l.kind {
	case lineRaw:
		text, _ := b.session.RawBody()
		return &prompt{title: "body", value: text, external: true, apply: b.session.SetRawBody}, nil
	case lineItem:
		a := l.ctrl.(*form.ArrayInput)
		i := l.index
		return &prompt{
			title: fmt.Sprintf("%s[%d]", fieldLabel(a.Field()), i),
			value: a.Items[i],
			apply: func(v string) error { a.Set(i, v); return nil },
		}, nil
	case lineEntry:
		d := l.ctrl.(*form.Dictionary)
		r := d.Rows[l.index]
		if r.Committed {
			return nil, form.ErrCommitted
		}
		value := ""
		if r.Key != "" {
			value = r.Key + "=" + r.Value
		}
		return &prompt{title: fieldLabel(d.Field()) + " entry (key=value)", value: value, apply: func(v string) error {
			k, val, _ := strings.Cut(v, "=")
			if err := r.SetKey(strings.TrimSpace(k)); err != nil {
				return err
			}
			if err := r.SetValue(strings.TrimSpace(val)); err != nil {
				return err
			}
			return r.Commit()
		}}, nil
	case lineControl:
	default:
		return nil, nil
	}

	name := fieldLabel(l.ctrl.Field())
	switch c := l.ctrl.(type) {
	case *form.TextInput:
		title := name
		if c.Hint != "" {
			title += " (" + c.Hint + ")"
		}
		return &prompt{title: title, value: c.Value, apply: func(v string) error { c.Set(v); return nil }}, nil
	case *form.NumberInput:
		return &prompt{title: name, value: c.Value, apply: func(v string) error { c.Set(v); return nil }}, nil
	case *form.BoolSelect:
		c.Select((c.Selected + 1) % len(c.Options))
	case *form.DiscriminatorSelect:
		if len(c.Options) == 0 {
			return nil, nil
		}
		return nil, c.Select((c.Selected + 1) % len(c.Options))
	case *form.FilePicker:
		return &prompt{title: name + " (file path)", apply: func(v string) error {
			return pickFile(c, v)
		}}, nil
	case *form.Object:
		return nil, c.Toggle()
	case *form.ArrayInput:
		if !c.Add() {
			return nil, errMaxItems
		}
	case *form.Dictionary:
		c.AddRow()
	case *form.JSONEditor:
		return &prompt{title: name, value: c.Text, external: true, apply: func(v string) error {
			c.SetText(v)
			if c.Err != "" {
				return errors.New(c.Err)
			}
			return nil
		}}, nil
	}
	return nil, nil
}

func pickFile(c *form.FilePicker, path string) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	c.Pick(model.File{Name: filepath.Base(path), Content: content})
	return nil
}

// remove handles the delete key on l: it drops array items and dictionary
// rows and clears leaf values.
func (b *builder) remove(l line) error {
	switch l.kind {
	case lineRaw:
		_ = b.session.SetRawBody("")
		return nil
	case lineItem:
		if !l.ctrl.(*form.ArrayInput).Remove() {
			return errMinItems
		}
		return nil
	case lineEntry:
		l.ctrl.(*form.Dictionary).RemoveRow(l.index)
		return nil
	case lineControl:
	default:
		return nil
	}
	switch c := l.ctrl.(type) {
	case *form.TextInput:
		c.Set("")
	case *form.NumberInput:
		c.Set("")
	case *form.BoolSelect:
		c.Select(0)
	case *form.JSONEditor:
		c.SetText("")
	case *form.ArrayInput:
		if !c.Remove() {
			return errMinItems
		}
	}
	return nil
}

// missing lists the required fields still unset, dotted from the payload root.
func (b *builder) missing() string {
	var names []string
	for _, f := range b.session.Invalid() {
		names = append(names, f.Key())
	}
	return strings.Join(names, ", ")
}

// text renders l for display. state is a snapshot of the request.
func (b *builder) text(l line, state tryout.RequestState) string {
	indent := strings.Repeat("  ", l.depth)
	switch l.kind {
	case lineHeading:
		return colorMagenta + l.text + colorReset
	case lineNote:
		return indent + dim(l.text)
	case lineRaw:
		if l.text == "" {
			return dim("(empty, enter: edit in $EDITOR)")
		}
		return l.text
	case lineItem:
		a := l.ctrl.(*form.ArrayInput)
		return fmt.Sprintf("%s[%d] = %s", indent, l.index, a.Items[l.index])
	case lineEntry:
		r := l.ctrl.(*form.Dictionary).Rows[l.index]
		s := indent
		switch {
		case r.Committed:
			s += r.Key + " = " + r.Value
		case r.Key != "":
			s += r.Key + " = " + r.Value + dim(" (uncommitted)")
		default:
			s += dim("(enter: key=value)")
		}
		if r.Err != "" {
			s += " " + colorRed + r.Err + colorReset
		}
		return s
	}

	f := l.ctrl.Field()
	name := fieldLabel(f)
	if f.Required {
		name = "*" + name
	}
	if b.session.ShowError() && !b.session.IsValid(f.Name, l.ctrl.Ancestors(), f.In) {
		name = colorRed + name + colorReset
	}
	return indent + name + " = " + b.value(l.ctrl, state)
}

func (b *builder) value(c form.Control, state tryout.RequestState) string {
	switch c := c.(type) {
	case *form.Object:
		marker := "+ "
		if c.Expanded() {
			marker = "- "
		}
		s := marker + colorCyan + c.Badge + colorReset
		if len(c.Branches) > 0 {
			if br := c.Field().Schema.ActiveBranch(); br != nil {
				s += dim(" oneOf: " + br.Title)
			}
		}
		return s
	case *form.ArrayInput:
		return dim(fmt.Sprintf("[%d items]", len(c.Items)))
	case *form.Dictionary:
		return dim(fmt.Sprintf("{%d entries}", len(c.Rows)))
	case *form.JSONEditor:
		s := strings.Join(strings.Fields(c.Text), " ")
		if s == "" {
			s = dim("(json, enter: edit in $EDITOR)")
		}
		if c.Err != "" {
			s += " " + colorRed + c.Err + colorReset
		}
		return s
	case *form.TextInput:
		if c.Value == "" {
			return b.fallback(c, c.Placeholder, state)
		}
		return colorGreen + c.Value + colorReset
	case *form.NumberInput:
		if c.Value == "" {
			return b.fallback(c, c.Placeholder, state)
		}
		return colorGreen + c.Value + colorReset
	}
	if s := c.Display(); s != "" {
		return colorGreen + s + colorReset
	}
	return dim("(unset)")
}

// fallback shows the value already in the request, such as a schema
// default, else the placeholder.
func (b *builder) fallback(c form.Control, placeholder string, state tryout.RequestState) string {
	if v, ok := lookup(state, c.Field().In, c.Field().Name, c.Ancestors()); ok && v != nil && v != payload.Undefined {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return dim(placeholder)
}

// lookup finds the value of field name under ancestors in state.
func lookup(state tryout.RequestState, loc model.Location, name string, ancestors payload.Path) (any, bool) {
	var cur any
	switch loc {
	case model.ParamInPath:
		cur = state.PathParams
	case model.ParamInQuery:
		cur = state.QueryParams
	case model.ParamInHeader:
		cur = state.Headers
	case model.ParamInCookie:
		cur = state.CookieParams
	default:
		cur = state.Body
	}
	for _, a := range ancestors {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur = m[a]
	}
	m, ok := cur.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[name]
	return v, ok
}
