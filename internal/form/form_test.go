package form

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tryit/internal/model"
	"tryit/internal/payload"
)

type edit struct {
	Field     string
	Value     any
	Index     *int
	Ancestors payload.Path
	Loc       model.Location
}

type recorder struct{ edits []edit }

func (r *recorder) fn(field string, value any, index *int, ancestors payload.Path, loc model.Location) {
	r.edits = append(r.edits, edit{field, value, index, ancestors, loc})
}

func (r *recorder) last() edit { return r.edits[len(r.edits)-1] }

func prim(t model.SchemaType) *model.Schema {
	return &model.Schema{Type: t, IsPrimitive: true}
}

func petSchema() *model.Schema {
	cat := &model.Schema{Type: model.TypeObject, Title: "Cat", Fields: []*model.Field{
		{Name: "petType", Required: true, Schema: prim(model.TypeString)},
		{Name: "claws", Schema: prim(model.TypeInteger)},
	}}
	dog := &model.Schema{Type: model.TypeObject, Title: "Dog", Fields: []*model.Field{
		{Name: "petType", Required: true, Schema: prim(model.TypeString)},
		{Name: "bark", Schema: prim(model.TypeBoolean)},
	}}
	return &model.Schema{Type: model.TypeObject, OneOf: []*model.Schema{cat, dog}, DiscriminatorProp: "petType"}
}

func control[T Control](t *testing.T, sec *Section, name string) T {
	t.Helper()
	for _, r := range sec.Rows {
		if r.Field.Name == name {
			c, ok := r.Control.(T)
			require.True(t, ok, "control for %q is %T", name, r.Control)
			return c
		}
	}
	t.Fatalf("no row %q", name)
	var zero T
	return zero
}

func TestRenderDispatch(t *testing.T) {
	fields := []*model.Field{
		{Name: "name", Schema: &model.Schema{Type: model.TypeString, Format: "email", IsPrimitive: true}},
		{Name: "photo", Schema: &model.Schema{Type: model.TypeString, Format: "binary", IsPrimitive: true}},
		{Name: "age", Schema: prim(model.TypeInteger)},
		{Name: "weight", Schema: prim(model.TypeNumber)},
		{Name: "alive", Schema: prim(model.TypeBoolean)},
		{Name: "tags", Schema: &model.Schema{Type: model.TypeArray, Items: prim(model.TypeString)}},
		{Name: "owners", Schema: &model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeObject}}},
		{Name: "owner", Schema: &model.Schema{Type: model.TypeObject}},
		{Name: "labels", Schema: &model.Schema{Type: model.TypeObject, AdditionalProperties: prim(model.TypeString)}},
		{Name: "extra", Schema: prim(model.TypeAny)},
	}
	sec, err := Render(fields, nil, nil, nil)
	require.NoError(t, err)
	require.Len(t, sec.Rows, len(fields))

	assert.Equal(t, "email", control[*TextInput](t, sec, "name").Hint)
	control[*FilePicker](t, sec, "photo")
	control[*NumberInput](t, sec, "age")
	control[*NumberInput](t, sec, "weight")
	control[*BoolSelect](t, sec, "alive")
	control[*ArrayInput](t, sec, "tags")
	control[*JSONEditor](t, sec, "owners")
	control[*Object](t, sec, "owner")
	control[*Dictionary](t, sec, "labels")
	control[*TextInput](t, sec, "extra")
}

func TestRenderUnsupportedType(t *testing.T) {
	_, err := Render([]*model.Field{{Name: "x", Schema: &model.Schema{Type: "tuple"}}}, nil, nil, nil)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "x", se.Field)

	_, err = Render([]*model.Field{{Name: "y"}}, nil, nil, nil)
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "y", se.Field)
}

func TestPlaceholder(t *testing.T) {
	f := &model.Field{Name: "a", Description: "the a", Schema: &model.Schema{Type: model.TypeString, Default: "x"}}
	assert.Equal(t, "the a", placeholder(f))
	f.Example = "ex"
	assert.Equal(t, "ex", placeholder(f))
	f.Example, f.Description = nil, ""
	assert.Equal(t, "x", placeholder(f))
}

func TestLeafEditsCarryLocation(t *testing.T) {
	rec := &recorder{}
	params := []*model.Field{
		{Name: "id", In: model.ParamInPath, Schema: prim(model.TypeString)},
		{Name: "limit", In: model.ParamInQuery, Schema: prim(model.TypeInteger)},
	}
	sec, err := RenderParams(params, rec.fn)
	require.NoError(t, err)

	control[*TextInput](t, sec, "id").Set("42")
	assert.Equal(t, edit{Field: "id", Value: "42", Loc: model.ParamInPath}, rec.last())

	control[*NumberInput](t, sec, "limit").Set("10")
	assert.Equal(t, edit{Field: "limit", Value: int64(10), Loc: model.ParamInQuery}, rec.last())
}

func TestNumberCoercion(t *testing.T) {
	assert.Equal(t, int64(3), coerceNumber("3"))
	assert.Equal(t, 2.5, coerceNumber("2.5"))
	assert.Equal(t, "abc", coerceNumber("abc"))
	assert.Equal(t, "", coerceNumber(""))
}

func TestBoolSelect(t *testing.T) {
	rec := &recorder{}
	f := &model.Field{Name: "on", Schema: &model.Schema{Type: model.TypeBoolean, Default: true}}
	sec, err := Render([]*model.Field{f}, nil, nil, rec.fn)
	require.NoError(t, err)

	c := control[*BoolSelect](t, sec, "on")
	assert.Equal(t, []string{"", "true", "false"}, c.Options)
	c.Select(1)
	assert.Equal(t, true, rec.last().Value)
	c.Select(0)
	assert.Equal(t, payload.Undefined, rec.last().Value)
	assert.Equal(t, "", c.Display())

	f.Schema.Default = nil
	assert.Equal(t, []string{"", "false", "true"}, newBoolSelect(base{field: f}).Options)
}

func TestArrayInputBounds(t *testing.T) {
	rec := &recorder{}
	f := &model.Field{Name: "tags", Required: true, Schema: &model.Schema{
		Type: model.TypeArray, Items: prim(model.TypeString), MaxItems: 2,
	}}
	sec, err := Render([]*model.Field{f}, payload.Path{"pet"}, nil, rec.fn)
	require.NoError(t, err)
	a := control[*ArrayInput](t, sec, "tags")

	assert.Len(t, a.Items, 1)
	assert.False(t, a.CanRemove())
	assert.True(t, a.Add())
	assert.False(t, a.CanAdd())
	assert.False(t, a.Add())

	a.Set(1, "b")
	got := rec.last()
	assert.Equal(t, "b", got.Value)
	require.NotNil(t, got.Index)
	assert.Equal(t, 1, *got.Index)
	assert.Equal(t, payload.Path{"pet"}, got.Ancestors)

	assert.True(t, a.Remove())
	got = rec.last()
	assert.Equal(t, payload.Undefined, got.Value)
	assert.Equal(t, 1, *got.Index)
	assert.False(t, a.Remove())
}

func TestArrayInputMinItems(t *testing.T) {
	f := &model.Field{Name: "n", Schema: &model.Schema{Type: model.TypeArray, Items: prim(model.TypeNumber), MinItems: 2}}
	a := newArrayInput(base{field: f})
	assert.Len(t, a.Items, 2)
	assert.Equal(t, 2, a.Min)
	assert.True(t, a.CanAdd())

	opt := &model.Field{Name: "o", Schema: &model.Schema{Type: model.TypeArray, Items: prim(model.TypeString)}}
	assert.Empty(t, newArrayInput(base{field: opt}).Items)
}

func TestJSONEditor(t *testing.T) {
	rec := &recorder{}
	f := &model.Field{Name: "owners", Schema: &model.Schema{Type: model.TypeArray, Items: &model.Schema{Type: model.TypeObject}}}
	sec, err := Render([]*model.Field{f}, nil, nil, rec.fn)
	require.NoError(t, err)
	e := control[*JSONEditor](t, sec, "owners")

	e.SetText(`[{"name":`)
	assert.Equal(t, invalidJSON, e.Err)
	assert.Empty(t, rec.edits)

	e.SetText(`[{"name":"ann"}]`)
	assert.Empty(t, e.Err)
	assert.Equal(t, []any{map[string]any{"name": "ann"}}, rec.last().Value)

	e.SetText("  ")
	assert.Equal(t, payload.Undefined, rec.last().Value)
}

func TestObjectExpandsNested(t *testing.T) {
	rec := &recorder{}
	address := &model.Field{Name: "address", Schema: &model.Schema{Type: model.TypeObject, Title: "Address", Fields: []*model.Field{
		{Name: "city", Schema: prim(model.TypeString)},
	}}}
	sec, err := Render([]*model.Field{address}, payload.Path{"owner"}, nil, rec.fn)
	require.NoError(t, err)
	o := control[*Object](t, sec, "address")

	assert.Equal(t, "object (Address)", o.Display())
	assert.Nil(t, o.Children)
	require.NoError(t, o.Toggle())
	require.NotNil(t, o.Children)
	assert.Equal(t, payload.Path{"owner", "address"}, o.Children.Ancestors)

	control[*TextInput](t, o.Children, "city").Set("Oslo")
	assert.Equal(t, edit{Field: "city", Value: "Oslo", Ancestors: payload.Path{"owner", "address"}}, rec.last())

	require.NoError(t, o.Toggle())
	assert.Nil(t, o.Children)
	assert.False(t, address.Expanded)
}

func TestCircularObjectNeverExpands(t *testing.T) {
	node := &model.Schema{Type: model.TypeObject, Title: "Node"}
	node.Fields = []*model.Field{{Name: "next", Schema: &model.Schema{Type: model.TypeObject, Title: "Node", IsCircular: true}}}
	f := &model.Field{Name: "root", Expanded: true, Schema: node}

	sec, err := Render([]*model.Field{f}, nil, nil, nil)
	require.NoError(t, err)
	root := control[*Object](t, sec, "root")
	require.NotNil(t, root.Children)

	next := control[*Object](t, root.Children, "next")
	assert.False(t, next.Expandable())
	require.NoError(t, next.Toggle())
	assert.Nil(t, next.Children)
	assert.Contains(t, next.Display(), "circular")
}

func TestNestedOneOfBranch(t *testing.T) {
	f := &model.Field{Name: "pet", Expanded: true, Schema: petSchema()}
	sec, err := Render([]*model.Field{f}, nil, nil, nil)
	require.NoError(t, err)
	o := control[*Object](t, sec, "pet")
	assert.Equal(t, []string{"Cat", "Dog"}, o.Branches)
	control[*NumberInput](t, o.Children, "claws")

	require.NoError(t, o.SelectBranch(1))
	control[*BoolSelect](t, o.Children, "bark")

	// The discriminator inside the nested object drives the same switch.
	d := control[*DiscriminatorSelect](t, o.Children, "petType")
	require.NoError(t, d.Select(0))
	control[*NumberInput](t, o.Children, "claws")
}

func TestNestedBranchSwitchError(t *testing.T) {
	schema := petSchema()
	schema.OneOf[1].Fields = append(schema.OneOf[1].Fields, &model.Field{Name: "bad", Schema: &model.Schema{Type: "tuple"}})
	f := &model.Field{Name: "pet", Expanded: true, Schema: schema}
	sec, err := Render([]*model.Field{f}, nil, nil, nil)
	require.NoError(t, err)
	o := control[*Object](t, sec, "pet")

	d := control[*DiscriminatorSelect](t, o.Children, "petType")
	var se *SchemaError
	require.ErrorAs(t, d.Select(1), &se)
	assert.Equal(t, "bad", se.Field)
	assert.False(t, o.Expanded(), "the previous branch is no longer shown")
}

func TestDiscriminatorSelect(t *testing.T) {
	rec := &recorder{}
	schema := petSchema()
	var switched []int
	sec, err := RenderBody(&model.MediaType{Name: "application/json", Schema: schema}, rec.fn, func(idx int) error {
		switched = append(switched, idx)
		return nil
	})
	require.NoError(t, err)

	d := control[*DiscriminatorSelect](t, sec, "petType")
	assert.Equal(t, []string{"Cat", "Dog"}, d.Options)
	assert.Equal(t, "Cat", d.Display())

	require.NoError(t, d.Select(1))
	assert.Equal(t, edit{Field: "petType", Value: "Dog"}, rec.last())
	assert.Equal(t, []int{1}, switched)
}

func TestDictionaryRows(t *testing.T) {
	rec := &recorder{}
	f := &model.Field{Name: "labels", Schema: &model.Schema{Type: model.TypeObject, AdditionalProperties: prim(model.TypeString)}}
	sec, err := Render([]*model.Field{f}, payload.Path{"meta"}, nil, rec.fn)
	require.NoError(t, err)
	d := control[*Dictionary](t, sec, "labels")
	require.Len(t, d.Rows, 1)

	row := d.Rows[0]
	require.NoError(t, row.SetValue("v"))
	assert.ErrorIs(t, row.Commit(), ErrEmptyKey)
	assert.Equal(t, EmptyKeyMessage, row.Err)
	assert.Empty(t, rec.edits)

	require.NoError(t, row.SetKey("env"))
	assert.Empty(t, row.Err)
	require.NoError(t, row.Commit())
	assert.Equal(t, edit{Field: "env", Value: "v", Ancestors: payload.Path{"meta", "labels"}}, rec.last())

	assert.ErrorIs(t, row.SetKey("other"), ErrCommitted)
	assert.ErrorIs(t, row.SetValue("other"), ErrCommitted)
	assert.Equal(t, "{env=v}", d.Display())

	d.AddRow()
	require.Len(t, d.Rows, 2)
	d.RemoveRow(0)
	require.Len(t, d.Rows, 1)
	assert.Equal(t, edit{Field: "env", Value: payload.Undefined, Ancestors: payload.Path{"meta", "labels"}}, rec.last())
}

func TestRenderBodyRoots(t *testing.T) {
	rec := &recorder{}

	sec, err := RenderBody(&model.MediaType{Name: "text/plain", Schema: prim(model.TypeString)}, rec.fn, nil)
	require.NoError(t, err)
	sec.Rows[0].Control.(*TextInput).Set("hello")
	assert.Equal(t, edit{Value: "hello"}, rec.last())

	sec, err = RenderBody(&model.MediaType{Name: "application/octet-stream", Schema: &model.Schema{Type: model.TypeString, Format: "binary"}}, rec.fn, nil)
	require.NoError(t, err)
	assert.Equal(t, noFieldsNote, sec.Note)
	fp := sec.Rows[0].Control.(*FilePicker)
	fp.Pick(model.File{Name: "a.png", Content: []byte{1, 2}})
	assert.Equal(t, model.File{Name: "a.png", Content: []byte{1, 2}}, rec.last().Value)
	assert.Equal(t, "a.png (2 bytes)", fp.Display())

	sec, err = RenderBody(&model.MediaType{Name: "application/json", Schema: &model.Schema{Type: model.TypeArray, Items: prim(model.TypeInteger)}}, rec.fn, nil)
	require.NoError(t, err)
	sec.Rows[0].Control.(*JSONEditor).SetText("[1,2]")
	assert.Equal(t, edit{Value: []any{float64(1), float64(2)}}, rec.last())

	sec, err = RenderBody(nil, rec.fn, nil)
	require.NoError(t, err)
	assert.Empty(t, sec.Rows)
}
