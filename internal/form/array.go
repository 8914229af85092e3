package form

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"tryit/internal/model"
	"tryit/internal/payload"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ArrayInput is a list of scalar inputs bounded by minItems/maxItems.
type ArrayInput struct {
	base
	Items []string
	Min   int
	// Max of 0 means unbounded.
	Max int
}

func newArrayInput(b base) *ArrayInput {
	s := b.field.Schema
	lo := s.MinItems
	if b.field.Required && lo < 1 {
		lo = 1
	}
	return &ArrayInput{base: b, Items: make([]string, lo), Min: lo, Max: s.MaxItems}
}

func (a *ArrayInput) CanAdd() bool    { return a.Max <= 0 || len(a.Items) < a.Max }
func (a *ArrayInput) CanRemove() bool { return len(a.Items) > a.Min }

// Add appends an empty input. It emits nothing until the input is edited.
func (a *ArrayInput) Add() bool {
	if !a.CanAdd() {
		return false
	}
	a.Items = append(a.Items, "")
	return true
}

// Remove drops the last input and clears its element.
func (a *ArrayInput) Remove() bool {
	if !a.CanRemove() {
		return false
	}
	last := len(a.Items) - 1
	a.Items = a.Items[:last]
	a.edit(payload.Undefined, payload.Index(last))
	return true
}

func (a *ArrayInput) Set(i int, v string) {
	if i < 0 || i >= len(a.Items) {
		return
	}
	a.Items[i] = v
	var value any = v
	if items := a.field.Schema.Items; items != nil && items.Type != model.TypeString {
		value = coerceNumber(v)
	}
	a.edit(value, payload.Index(i))
}

func (a *ArrayInput) Display() string {
	return "[" + strings.Join(a.Items, ", ") + "]"
}

const invalidJSON = "Invalid JSON Payload"

// JSONEditor edits a whole value as JSON text. Text that does not parse is
// reported in Err and never emitted.
type JSONEditor struct {
	base
	Text string
	Err  string
}

func (e *JSONEditor) SetText(text string) {
	e.Text = text
	if strings.TrimSpace(text) == "" {
		e.Err = ""
		if e.field.Name != "" {
			e.edit(payload.Undefined, nil)
		}
		return
	}
	var v any
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		e.Err = invalidJSON
		return
	}
	e.Err = ""
	e.edit(v, nil)
}

func (e *JSONEditor) Display() string { return e.Text }
