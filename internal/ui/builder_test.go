package ui

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryit/internal/form"
	"tryit/internal/model"
	"tryit/internal/payload"
	"tryit/internal/tryout"
)

func prim(t model.SchemaType) *model.Schema {
	return &model.Schema{Type: t, IsPrimitive: true}
}

func orderOp() *model.Operation {
	return &model.Operation{
		ID:     "placeOrder",
		Method: http.MethodPost,
		Path:   "/stores/{storeId}/orders",
		Parameters: []*model.Field{
			{Name: "storeId", In: model.ParamInPath, Required: true, Schema: prim(model.TypeString)},
			{Name: "dryRun", In: model.ParamInQuery, Schema: prim(model.TypeBoolean)},
			{Name: "X-Tenant", In: model.ParamInHeader, Schema: prim(model.TypeString)},
		},
		RequestBody: &model.RequestBody{Content: []model.MediaType{
			{Name: "application/json", Schema: &model.Schema{Type: model.TypeObject, Fields: []*model.Field{
				{Name: "quantity", Required: true, Schema: &model.Schema{Type: model.TypeInteger, Default: 1, IsPrimitive: true}},
				{Name: "notes", Schema: prim(model.TypeString)},
				{Name: "tags", Schema: &model.Schema{Type: model.TypeArray, Items: prim(model.TypeString), MaxItems: 2}},
				{Name: "meta", Schema: &model.Schema{Type: model.TypeObject, AdditionalProperties: prim(model.TypeString)}},
				{Name: "shipTo", Schema: &model.Schema{Type: model.TypeObject, Title: "Address", Fields: []*model.Field{
					{Name: "city", Required: true, Schema: prim(model.TypeString)},
				}}},
			}}},
			{Name: "text/plain", Schema: prim(model.TypeString)},
		}},
	}
}

func newTestBuilder(t *testing.T, op *model.Operation) *builder {
	t.Helper()
	b, err := newBuilder(op, tryout.WithMinPending(0))
	require.NoError(t, err)
	return b
}

// find returns the first line in p whose control edits name.
func find(t *testing.T, b *builder, p focusPane, kind lineKind, name string) line {
	t.Helper()
	for _, l := range b.lines(p) {
		if l.kind == kind && l.ctrl != nil && l.ctrl.Field().Name == name {
			return l
		}
	}
	t.Fatalf("no %v line for %q", kind, name)
	return line{}
}

func apply(t *testing.T, b *builder, l line, value string) {
	t.Helper()
	p, err := b.activate(l)
	require.NoError(t, err)
	require.NotNil(t, p)
	require.NoError(t, p.apply(value))
}

func TestParamLines(t *testing.T) {
	b := newTestBuilder(t, orderOp())
	lines := b.lines(paneParams)

	var headings []string
	for _, l := range lines {
		if l.kind == lineHeading {
			headings = append(headings, l.text)
		}
	}
	assert.Equal(t, []string{"path", "query", "header"}, headings)

	apply(t, b, find(t, b, paneParams, lineControl, "storeId"), "s-1")
	apply(t, b, find(t, b, paneParams, lineControl, "X-Tenant"), "acme")
	_, err := b.activate(find(t, b, paneParams, lineControl, "dryRun"))
	require.NoError(t, err)

	req := b.session.Request()
	assert.Equal(t, "s-1", req.PathParams["storeId"])
	assert.Equal(t, "acme", req.Headers["X-Tenant"])
	assert.Equal(t, false, req.QueryParams["dryRun"])
}

func TestNoParameters(t *testing.T) {
	op := &model.Operation{ID: "ping", Method: http.MethodGet, Path: "/ping"}
	b := newTestBuilder(t, op)
	lines := b.lines(paneParams)
	require.Len(t, lines, 1)
	assert.Equal(t, lineNote, lines[0].kind)
	assert.Equal(t, lineNote, b.lines(paneBody)[0].kind)
}

func TestExpandObject(t *testing.T) {
	b := newTestBuilder(t, orderOp())
	before := len(b.lines(paneBody))

	obj := find(t, b, paneBody, lineControl, "shipTo")
	p, err := b.activate(obj)
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Len(t, b.lines(paneBody), before+1)

	city := find(t, b, paneBody, lineControl, "city")
	assert.Equal(t, obj.depth+1, city.depth)
	apply(t, b, city, "Oslo")
	assert.Equal(t, map[string]any{"city": "Oslo"}, b.session.Request().Body.(map[string]any)["shipTo"])

	_, err = b.activate(obj)
	require.NoError(t, err)
	assert.Len(t, b.lines(paneBody), before)
}

func TestArrayItems(t *testing.T) {
	b := newTestBuilder(t, orderOp())
	tags := find(t, b, paneBody, lineControl, "tags")

	for i := 0; i < 2; i++ {
		_, err := b.activate(tags)
		require.NoError(t, err)
	}
	_, err := b.activate(tags)
	assert.ErrorIs(t, err, errMaxItems)

	items := 0
	for _, l := range b.lines(paneBody) {
		if l.kind == lineItem {
			items++
			apply(t, b, l, "t"+string(rune('0'+l.index)))
		}
	}
	assert.Equal(t, 2, items)
	assert.Equal(t, []any{"t0", "t1"}, b.session.Request().Body.(map[string]any)["tags"])

	require.NoError(t, b.remove(find(t, b, paneBody, lineItem, "tags")))
	require.NoError(t, b.remove(tags))
	assert.ErrorIs(t, b.remove(tags), errMinItems)
}

func TestDictionaryEntries(t *testing.T) {
	b := newTestBuilder(t, orderOp())
	entry := find(t, b, paneBody, lineEntry, "meta")

	p, err := b.activate(entry)
	require.NoError(t, err)
	assert.ErrorIs(t, p.apply(" = v"), form.ErrEmptyKey)
	assert.Contains(t, b.text(entry, b.session.Request()), form.EmptyKeyMessage)

	require.NoError(t, p.apply("color=red"))
	assert.Equal(t, map[string]any{"color": "red"}, b.session.Request().Body.(map[string]any)["meta"])

	_, err = b.activate(entry)
	assert.ErrorIs(t, err, form.ErrCommitted)

	require.NoError(t, b.remove(entry))
	_, ok := lookup(b.session.Request(), model.InBody, "color", payload.Path{"meta"})
	assert.False(t, ok)
}

func TestRequiredHighlight(t *testing.T) {
	b := newTestBuilder(t, orderOp())
	err := b.session.Run(context.Background())
	require.ErrorIs(t, err, tryout.ErrRequiredMissing)
	assert.Equal(t, "storeId, shipTo.city", b.missing())

	text := b.text(find(t, b, paneParams, lineControl, "storeId"), b.session.Request())
	assert.Contains(t, text, colorRed+"*storeId")

	qty := b.text(find(t, b, paneBody, lineControl, "quantity"), b.session.Request())
	assert.Contains(t, qty, "*quantity = 1", "schema defaults are shown and satisfy required")
}

func TestJSONMode(t *testing.T) {
	b := newTestBuilder(t, orderOp())
	require.NoError(t, b.toggleMode())
	assert.Nil(t, b.body)

	lines := b.lines(paneBody)
	require.NotEmpty(t, lines)
	assert.Equal(t, lineRaw, lines[0].kind)
	assert.Equal(t, "{", lines[0].text)

	p, err := b.activate(lines[0])
	require.NoError(t, err)
	assert.True(t, p.external)
	assert.ErrorIs(t, p.apply("{oops"), tryout.ErrInvalidJSON)
	require.NoError(t, p.apply(`{"quantity": 3}`))
	text, msg := b.session.RawBody()
	assert.Equal(t, `{"quantity": 3}`, text)
	assert.Empty(t, msg)

	require.NoError(t, b.toggleMode())
	assert.NotNil(t, b.body)
}

func TestCycleMedia(t *testing.T) {
	b := newTestBuilder(t, orderOp())
	ok, err := b.cycleMedia()
	require.NoError(t, err)
	assert.True(t, ok)

	lines := b.lines(paneBody)
	require.Len(t, lines, 1)
	c, isText := lines[0].ctrl.(*form.TextInput)
	require.True(t, isText)
	assert.Equal(t, "body", fieldLabel(c.Field()))

	apply(t, b, lines[0], "hello")
	assert.Equal(t, "hello", b.session.Request().Body)
}

func petOp() *model.Operation {
	cat := &model.Schema{Type: model.TypeObject, Title: "Cat", Fields: []*model.Field{
		{Name: "petType", Required: true, Schema: prim(model.TypeString)},
		{Name: "claws", Schema: prim(model.TypeInteger)},
	}}
	dog := &model.Schema{Type: model.TypeObject, Title: "Dog", Fields: []*model.Field{
		{Name: "petType", Required: true, Schema: prim(model.TypeString)},
		{Name: "bark", Schema: prim(model.TypeBoolean)},
	}}
	return &model.Operation{
		ID: "addPet", Method: http.MethodPost, Path: "/pets",
		RequestBody: &model.RequestBody{Content: []model.MediaType{{
			Name:   "application/json",
			Schema: &model.Schema{Type: model.TypeObject, OneOf: []*model.Schema{cat, dog}, DiscriminatorProp: "petType"},
		}}},
	}
}

func TestDiscriminatorSwitchesBranch(t *testing.T) {
	b := newTestBuilder(t, petOp())
	find(t, b, paneBody, lineControl, "claws")

	// Cat is active, so the next option is Dog.
	_, err := b.activate(find(t, b, paneBody, lineControl, "petType"))
	require.NoError(t, err)

	find(t, b, paneBody, lineControl, "bark")
	assert.Equal(t, "Dog", b.session.Request().Body.(map[string]any)["petType"])

	ok, err := b.cycleBranch(line{})
	require.NoError(t, err)
	assert.True(t, ok)
	find(t, b, paneBody, lineControl, "claws")
}

func TestFilePicker(t *testing.T) {
	op := &model.Operation{
		ID: "upload", Method: http.MethodPost, Path: "/upload",
		RequestBody: &model.RequestBody{Content: []model.MediaType{{
			Name: "multipart/form-data",
			Schema: &model.Schema{Type: model.TypeObject, Fields: []*model.Field{
				{Name: "file", Schema: &model.Schema{Type: model.TypeString, Format: "binary", IsPrimitive: true}},
			}},
		}}},
	}
	b := newTestBuilder(t, op)
	path := filepath.Join(t.TempDir(), "a.png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0o600))

	l := find(t, b, paneBody, lineControl, "file")
	apply(t, b, l, path)
	assert.Equal(t, model.File{Name: "a.png", Content: []byte("png")}, b.session.Request().Body.(map[string]any)["file"])
	assert.True(t, strings.Contains(b.text(l, b.session.Request()), "a.png (3 bytes)"))

	p, err := b.activate(l)
	require.NoError(t, err)
	assert.Error(t, p.apply(filepath.Join(t.TempDir(), "missing")))
}

func TestLookup(t *testing.T) {
	state := tryout.RequestState{Body: map[string]any{"a": map[string]any{"b": 1}}}
	v, ok := lookup(state, model.InBody, "b", []string{"a"})
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = lookup(state, model.InBody, "b", []string{"x"})
	assert.False(t, ok)
	_, ok = lookup(state, model.ParamInQuery, "b", nil)
	assert.False(t, ok)
}

func TestBranchSwitchErrorIsReturned(t *testing.T) {
	op := petOp()
	dog := op.RequestBody.Content[0].Schema.OneOf[1]
	dog.Fields = append(dog.Fields, &model.Field{Name: "bad", Schema: &model.Schema{Type: "tuple"}})
	b := newTestBuilder(t, op)

	_, err := b.activate(find(t, b, paneBody, lineControl, "petType"))
	var se *form.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "bad", se.Field)
}
