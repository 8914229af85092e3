package form

import (
	"fmt"
	"strconv"
	"strings"

	"tryit/internal/model"
	"tryit/internal/payload"
)

type TextInput struct {
	base
	// Hint is the schema format (date-time, email, ...).
	Hint        string
	Placeholder string
	Value       string
}

func (c *TextInput) Set(v string) {
	c.Value = v
	c.edit(v, nil)
}

func (c *TextInput) Display() string { return c.Value }

// NumberInput coerces its text to a number when it parses and passes the
// raw text through otherwise.
type NumberInput struct {
	base
	Placeholder string
	Value       string
}

func (c *NumberInput) Set(v string) {
	c.Value = v
	c.edit(coerceNumber(v), nil)
}

func (c *NumberInput) Display() string { return c.Value }

func coerceNumber(raw string) any {
	s := strings.TrimSpace(raw)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return raw
}

const unsetOption = ""

// BoolSelect is a tri-state dropdown: unset, then the schema default first.
type BoolSelect struct {
	base
	Options  []string
	Selected int
}

func newBoolSelect(b base) *BoolSelect {
	opts := []string{unsetOption, "false", "true"}
	if def, ok := b.field.Schema.Default.(bool); ok && def {
		opts = []string{unsetOption, "true", "false"}
	}
	return &BoolSelect{base: b, Options: opts}
}

func (c *BoolSelect) Select(i int) {
	if i < 0 || i >= len(c.Options) {
		return
	}
	c.Selected = i
	switch c.Options[i] {
	case "true":
		c.edit(true, nil)
	case "false":
		c.edit(false, nil)
	default:
		c.edit(payload.Undefined, nil)
	}
}

func (c *BoolSelect) Display() string { return c.Options[c.Selected] }

// DiscriminatorSelect is the closed dropdown of a discriminator property.
// Choosing a value also switches the parent's active oneOf branch.
type DiscriminatorSelect struct {
	base
	Options  []string
	Selected int
	disc     *Discriminator
}

func newDiscriminatorSelect(b base, disc *Discriminator) *DiscriminatorSelect {
	var opts []string
	for _, v := range b.field.Schema.Enum {
		opts = append(opts, fmt.Sprint(v))
	}
	if len(opts) == 0 && disc.Parent != nil {
		for _, br := range disc.Parent.OneOf {
			opts = append(opts, br.Title)
		}
	}
	sel := -1
	if disc.Parent != nil {
		if br := disc.Parent.ActiveBranch(); br != nil {
			for i, o := range opts {
				if strings.EqualFold(o, br.Title) {
					sel = i
				}
			}
		}
	}
	return &DiscriminatorSelect{base: b, Options: opts, Selected: sel, disc: disc}
}

// Select picks option i and switches the parent to the matching branch.
func (c *DiscriminatorSelect) Select(i int) error {
	if i < 0 || i >= len(c.Options) {
		return nil
	}
	c.Selected = i
	value := c.Options[i]
	c.edit(value, nil)
	if c.disc.Parent == nil || c.disc.OnSwitch == nil {
		return nil
	}
	if idx := c.disc.Parent.BranchIndex(value); idx >= 0 {
		return c.disc.OnSwitch(idx)
	}
	return nil
}

func (c *DiscriminatorSelect) Display() string {
	if c.Selected < 0 {
		return ""
	}
	return c.Options[c.Selected]
}

// FilePicker holds a `format: binary` value; the picked file is the field
// value verbatim.
type FilePicker struct {
	base
	File *model.File
}

func (c *FilePicker) Pick(f model.File) {
	c.File = &f
	c.edit(f, nil)
}

func (c *FilePicker) Display() string {
	if c.File == nil {
		return ""
	}
	return fmt.Sprintf("%s (%d bytes)", c.File.Name, len(c.File.Content))
}

// Object renders a type badge and, once expanded, a nested section over the
// object's active fields. Circular schemas never expand.
type Object struct {
	base
	Badge    string
	Children *Section
	// Branches lists the oneOf titles of the object, if any.
	Branches []string
	onEdit   EditFunc
}

func newObject(b base, onEdit EditFunc) (*Object, error) {
	o := &Object{base: b, Badge: b.field.Schema.DisplayType(), onEdit: onEdit}
	for _, br := range b.field.Schema.OneOf {
		o.Branches = append(o.Branches, br.Title)
	}
	if b.field.Schema.IsCircular {
		o.Badge += " (circular)"
	}
	if b.field.Expanded && b.field.Expandable() {
		if err := o.expand(); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Object) Expandable() bool { return o.field.Expandable() }

func (o *Object) Expanded() bool { return o.field.Expanded && o.Children != nil }

// Toggle opens or closes the nested section.
func (o *Object) Toggle() error {
	if !o.Expandable() {
		return nil
	}
	o.field.Toggle()
	if !o.field.Expanded {
		o.Children = nil
		return nil
	}
	return o.expand()
}

func (o *Object) expand() error {
	s := o.field.Schema
	// Nested branch switches only re-render; the payload is pruned for the
	// top-level oneOf alone.
	disc := &Discriminator{FieldName: s.DiscriminatorProp, Parent: s, OnSwitch: o.SelectBranch}
	sec, err := Render(s.ActiveFields(), o.ancestors.Child(o.field.Name), disc, o.onEdit)
	if err != nil {
		o.Children = nil
		return err
	}
	if len(sec.Rows) == 0 {
		sec.Note = noFieldsNote
	}
	o.Children = sec
	return nil
}

// SelectBranch switches the object's active oneOf branch and re-renders it.
func (o *Object) SelectBranch(idx int) error {
	if !o.field.Schema.SetActiveOneOf(idx) {
		return nil
	}
	if o.Children == nil {
		return nil
	}
	return o.expand()
}

func (o *Object) Display() string { return o.Badge }
