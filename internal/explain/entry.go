// Package explain decodes the documentation tree a project publishes under
// its explain attribute and renders it for the terminal.
package explain

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// ErrMalformed indicates an explain value does not have the expected shape.
var ErrMalformed = errors.New("malformed explain entry")

// Entry is one node of an explain tree.
type Entry struct {
	Name        string
	Description string
	Table       Table
	Children    []Entry
}

// Table is tabular data attached to an entry. Rows may be ragged; they are
// reconciled against Columns only when rendered.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Decode converts an evaluated explain value into an Entry tree. The name is
// required; description, data and entries are optional. Non-string table
// cells are converted to their string form.
func Decode(v cty.Value) (Entry, error) {
	return decode(v, "")
}

func decode(v cty.Value, at string) (Entry, error) {
	if !isObject(v) {
		return Entry{}, fmt.Errorf("%w: %sexpected an attribute set", ErrMalformed, at)
	}

	var e Entry
	name, ok := field(v, "name")
	if !ok || name.Type() != cty.String {
		return Entry{}, fmt.Errorf("%w: %smissing string attribute \"name\"", ErrMalformed, at)
	}
	e.Name = name.AsString()
	at = at + e.Name + ": "

	if desc, ok := field(v, "description"); ok {
		s, err := toString(desc)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %sdescription: %v", ErrMalformed, at, err)
		}
		e.Description = s
	}

	if data, ok := field(v, "data"); ok {
		t, err := decodeTable(data)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %sdata: %v", ErrMalformed, at, err)
		}
		e.Table = t
	}

	if children, ok := field(v, "entries"); ok {
		items, err := elements(children)
		if err != nil {
			return Entry{}, fmt.Errorf("%w: %sentries: %v", ErrMalformed, at, err)
		}
		for _, item := range items {
			child, err := decode(item, at)
			if err != nil {
				return Entry{}, err
			}
			e.Children = append(e.Children, child)
		}
	}
	return e, nil
}

func decodeTable(v cty.Value) (Table, error) {
	if !isObject(v) {
		return Table{}, errors.New("expected an attribute set")
	}
	var t Table
	if cols, ok := field(v, "columns"); ok {
		cells, err := stringList(cols)
		if err != nil {
			return Table{}, fmt.Errorf("columns: %w", err)
		}
		t.Columns = cells
	}
	if rows, ok := field(v, "rows"); ok {
		items, err := elements(rows)
		if err != nil {
			return Table{}, fmt.Errorf("rows: %w", err)
		}
		for i, item := range items {
			cells, err := stringList(item)
			if err != nil {
				return Table{}, fmt.Errorf("row %d: %w", i, err)
			}
			t.Rows = append(t.Rows, cells)
		}
	}
	return t, nil
}

func isObject(v cty.Value) bool {
	if v.IsNull() || !v.IsKnown() {
		return false
	}
	t := v.Type()
	return t.IsObjectType() || t.IsMapType()
}

// field returns a non-null attribute of an object or map value.
func field(v cty.Value, name string) (cty.Value, bool) {
	t := v.Type()
	var out cty.Value
	switch {
	case t.IsObjectType():
		if !t.HasAttribute(name) {
			return cty.NilVal, false
		}
		out = v.GetAttr(name)
	case t.IsMapType():
		key := cty.StringVal(name)
		if !v.HasIndex(key).True() {
			return cty.NilVal, false
		}
		out = v.Index(key)
	default:
		return cty.NilVal, false
	}
	if out.IsNull() {
		return cty.NilVal, false
	}
	return out, true
}

func elements(v cty.Value) ([]cty.Value, error) {
	t := v.Type()
	if !v.IsKnown() || !(t.IsTupleType() || t.IsListType() || t.IsSetType()) {
		return nil, fmt.Errorf("expected a list, got %s", t.FriendlyName())
	}
	return v.AsValueSlice(), nil
}

func stringList(v cty.Value) ([]string, error) {
	items, err := elements(v)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, err := toString(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = s
	}
	return out, nil
}

// toString converts primitive values to text. Null becomes "".
func toString(v cty.Value) (string, error) {
	if v.IsNull() {
		return "", nil
	}
	s, err := convert.Convert(v, cty.String)
	if err != nil {
		return "", fmt.Errorf("expected text, got %s", v.Type().FriendlyName())
	}
	if !s.IsKnown() || s.IsNull() {
		return "", nil
	}
	return s.AsString(), nil
}

// Reconcile fits row to n columns, padding with empty cells or truncating.
// row is not modified.
func Reconcile(row []string, n int) []string {
	out := make([]string, n)
	copy(out, row)
	return out
}
