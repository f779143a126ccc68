// Package source defines the live-data source contract used by the live
// hooks, with an in-memory table and a table backed by a watched YAML file.
package source

import (
	"fmt"
	"slices"
)

// Update describes one change notification. Listeners treat it as a
// signal that the table changed; the counts are informational.
type Update struct {
	Added    int
	Removed  int
	Modified int
	// Rows is the table size after the change.
	Rows int
}

func (u Update) merge(next Update) Update {
	return Update{
		Added:    u.Added + next.Added,
		Removed:  u.Removed + next.Removed,
		Modified: u.Modified + next.Modified,
		Rows:     next.Rows,
	}
}

// Subscription is a live registration of a listener.
type Subscription interface {
	// Unsubscribe releases the subscription. When it returns, the listener
	// is not running and will not be called again. It must not be called
	// from inside the listener.
	Unsubscribe()
}

// Table is a live two-dimensional data source.
type Table interface {
	Name() string
	Columns() []string
	Rows() int
	// Slice copies rows first through last (inclusive) of the given
	// columns. A negative last means through the final row; nil columns
	// means every column.
	Slice(first, last int, columns []string) (Frame, error)
	// Subscribe registers listener for change notifications. Listeners run
	// on a goroutine owned by the table, never on the caller's.
	Subscribe(listener func(Update)) (Subscription, error)
}

// Frame is an immutable copy of part of a table.
type Frame struct {
	Columns []string
	Rows    [][]any
	// Offset is the table row of Rows[0].
	Offset int
}

// Len returns the number of rows.
func (f Frame) Len() int {
	return len(f.Rows)
}

// Empty reports whether the frame has no cells.
func (f Frame) Empty() bool {
	return len(f.Rows) == 0 || len(f.Columns) == 0
}

// Value returns the cell at frame row row of column.
func (f Frame) Value(row int, column string) (any, bool) {
	col := slices.Index(f.Columns, column)
	if col < 0 || row < 0 || row >= len(f.Rows) {
		return nil, false
	}
	return f.Rows[row][col], true
}

// Records returns the rows as column-keyed maps.
func (f Frame) Records() []map[string]any {
	out := make([]map[string]any, len(f.Rows))
	for i, row := range f.Rows {
		rec := make(map[string]any, len(f.Columns))
		for j, column := range f.Columns {
			rec[column] = row[j]
		}
		out[i] = rec
	}
	return out
}

// ColumnError reports a column that the table does not have.
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("table %s has no column %q", e.Table, e.Column)
}

// RowError reports a row index outside the table.
type RowError struct {
	Table string
	Row   int
	Rows  int
}

func (e *RowError) Error() string {
	return fmt.Sprintf("table %s: row %d out of range [0, %d)", e.Table, e.Row, e.Rows)
}
