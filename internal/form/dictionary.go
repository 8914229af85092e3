package form

import (
	"errors"
	"fmt"
	"strings"

	"tryit/internal/payload"
)

// ErrEmptyKey is returned when a dictionary row is committed without a key.
var ErrEmptyKey = errors.New("key cannot be empty")

// EmptyKeyMessage is the inline text shown for ErrEmptyKey.
const EmptyKeyMessage = "Key cannot be empty"

// ErrCommitted is returned for edits to a row that was already committed.
var ErrCommitted = errors.New("row is committed, remove it and add a new one")

// Dictionary edits an additionalProperties object as key/value rows. Every
// row emits its entry under the dictionary's own path once committed.
type Dictionary struct {
	base
	Rows []*DictRow
}

func newDictionary(b base) *Dictionary {
	d := &Dictionary{base: b}
	d.AddRow()
	return d
}

func (d *Dictionary) AddRow() *DictRow {
	r := &DictRow{dict: d}
	d.Rows = append(d.Rows, r)
	return r
}

// RemoveRow drops row i and clears its entry from the payload.
func (d *Dictionary) RemoveRow(i int) {
	if i < 0 || i >= len(d.Rows) {
		return
	}
	r := d.Rows[i]
	d.Rows = append(d.Rows[:i], d.Rows[i+1:]...)
	if r.Committed && r.Key != "" {
		r.emit(payload.Undefined)
	}
}

func (d *Dictionary) path() payload.Path {
	return d.ancestors.Child(d.field.Name)
}

func (d *Dictionary) Display() string {
	var parts []string
	for _, r := range d.Rows {
		if r.Committed {
			parts = append(parts, fmt.Sprintf("%s=%s", r.Key, r.Value))
		}
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

type DictRow struct {
	Key       string
	Value     string
	Committed bool
	// Err is the inline validation message of the row.
	Err  string
	dict *Dictionary
}

func (r *DictRow) SetKey(k string) error {
	if r.Committed {
		return ErrCommitted
	}
	r.Key = k
	if strings.TrimSpace(k) != "" {
		r.Err = ""
	}
	return nil
}

func (r *DictRow) SetValue(v string) error {
	if r.Committed {
		return ErrCommitted
	}
	r.Value = v
	return nil
}

// Commit locks the row and emits its entry.
func (r *DictRow) Commit() error {
	if r.Committed {
		return nil
	}
	if strings.TrimSpace(r.Key) == "" {
		r.Err = EmptyKeyMessage
		return ErrEmptyKey
	}
	r.Err = ""
	r.Committed = true
	r.emit(r.Value)
	return nil
}

func (r *DictRow) emit(value any) {
	d := r.dict
	if d.emit != nil {
		d.emit(r.Key, value, nil, d.path(), d.field.In)
	}
}
