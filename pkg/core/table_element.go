package core

import (
	"fmt"
	"maps"
	"strings"

	"github.com/go-drift/driftui/pkg/convert"
)

// TableElementName is the type tag of table elements.
const TableElementName = "driftui.elements.UITable"

// SortDirection is the sort order understood by the client grid.
type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

// TableElement wraps a live table with display hints. It offers an
// immutable fluent interface: every With method returns a new element.
type TableElement struct {
	Table any
	hints Props
}

// NewTableElement wraps table. Hint keys are given in snake_case and are
// sent to the client in camelCase.
func NewTableElement(table any, hints Props) TableElement {
	return TableElement{Table: table, hints: maps.Clone(hints)}
}

func (t TableElement) ElementName() string { return TableElementName }

// Render returns the table and its hints with client-side prop names.
func (t TableElement) Render(*Context) Props {
	props := Props(convert.DictToCamelCase(t.hints, true, convert.ToReactPropCase))
	props["table"] = t.Table
	return props
}

func (TableElement) element() {}

// With returns a copy of the element with the hint set.
func (t TableElement) With(key string, value any) TableElement {
	hints := maps.Clone(t.hints)
	if hints == nil {
		hints = Props{}
	}
	hints[key] = value
	return TableElement{Table: t.Table, hints: hints}
}

// Sort returns a copy of the element sorted by column.
func (t TableElement) Sort(column string, direction string) (TableElement, error) {
	dir, err := ParseSortDirection(direction)
	if err != nil {
		return t, err
	}
	return t.With("sorts", []map[string]any{{"column": column, "direction": string(dir)}}), nil
}

// OnRowPress returns a copy of the element with a row press callback.
func (t TableElement) OnRowPress(fn func(row int, data map[string]any)) TableElement {
	return t.With("on_row_press", fn)
}

// OnCellPress returns a copy of the element with a cell press callback.
func (t TableElement) OnCellPress(fn func(row int, column string, value any)) TableElement {
	return t.With("on_cell_press", fn)
}

// OnColumnPress returns a copy of the element with a column press callback.
func (t TableElement) OnColumnPress(fn func(column string)) TableElement {
	return t.With("on_column_press", fn)
}

// ParseSortDirection accepts the long and short spellings of a direction.
func ParseSortDirection(direction string) (SortDirection, error) {
	switch strings.ToUpper(direction) {
	case "ASC", "ASCENDING":
		return SortAscending, nil
	case "DESC", "DESCENDING":
		return SortDescending, nil
	}
	return "", fmt.Errorf("invalid table sort direction: %q", direction)
}
