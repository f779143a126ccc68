// Package live provides hooks that bind a render context to live tables.
//
// Each hook owns one subscription, opened after the first pass that uses
// it and released synchronously when its context is torn down. Change
// notifications arrive on the table's goroutine; the hooks re-enter the
// tree's environment, recompute their value and store it through a state
// cell, which schedules a new pass. A notification whose recomputation
// fails is reported and dropped, so a broken update never reaches a pass.
package live

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/source"
)

type listenerBox struct {
	fn atomic.Pointer[func(source.Update)]
}

// UseTableListener calls listener with every change notification of
// table until the context is torn down or a pass supplies a different
// table. The most recent listener is always the one called.
func UseTableListener(c *core.Context, table source.Table, listener func(source.Update)) {
	box := core.UseRef[*listenerBox](c, nil)
	if box.Current == nil {
		box.Current = &listenerBox{}
	}
	current := box.Current
	current.fn.Store(&listener)
	run := core.UseExecutionContext(c, nil)

	core.UseEffect(c, func() func() {
		if table == nil {
			return nil
		}
		sub, err := table.Subscribe(func(u source.Update) {
			fn := current.fn.Load()
			if fn == nil {
				return
			}
			run(func() {
				guard("live.listener", table, func() { (*fn)(u) })
			})
		})
		if err != nil {
			errors.Report(&errors.Error{
				Op:   "live.subscribe",
				Kind: errors.KindSubscription,
				Err:  fmt.Errorf("table %s: %w", table.Name(), err),
			})
			return nil
		}
		return sub.Unsubscribe
	}, []any{table})
}

// guard runs fn, reporting a panic as a subscription error.
func guard(op string, table source.Table, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			errors.Report(&errors.Error{
				Op:   op,
				Kind: errors.KindSubscription,
				Err:  fmt.Errorf("table %s: listener panicked: %v", table.Name(), r),
			})
		}
	}()
	fn()
}

// Viewport bounds the part of a table a hook follows. Rows FirstRow
// through LastRow are included; a negative LastRow means through the
// final row. Nil Columns means every column.
type Viewport struct {
	FirstRow int
	LastRow  int
	Columns  []string
}

// All is the viewport covering the whole table.
var All = Viewport{FirstRow: 0, LastRow: -1}

func (v Viewport) key() string {
	if v.Columns == nil {
		return fmt.Sprintf("%d:%d:*", v.FirstRow, v.LastRow)
	}
	return fmt.Sprintf("%d:%d:%s", v.FirstRow, v.LastRow, strings.Join(v.Columns, "\x00"))
}

type viewportData struct {
	frame source.Frame
	ok    bool
}

type viewportTarget struct {
	table source.Table
	key   string
}

// UseTableData returns a copy of the whole table, refreshed on every
// change. ok is false until a copy has been taken successfully.
func UseTableData(c *core.Context, table source.Table) (source.Frame, bool) {
	return UseViewportData(c, table, All)
}

// UseViewportData returns a copy of the viewport of table, refreshed on
// every change.
func UseViewportData(c *core.Context, table source.Table, viewport Viewport) (source.Frame, bool) {
	load := func(op string) viewportData {
		if table == nil {
			return viewportData{}
		}
		frame, err := table.Slice(viewport.FirstRow, viewport.LastRow, viewport.Columns)
		if err != nil {
			errors.Report(&errors.Error{
				Op:   op,
				Kind: errors.KindSubscription,
				Err:  fmt.Errorf("table %s: %w", table.Name(), err),
			})
			return viewportData{}
		}
		return viewportData{frame: frame, ok: true}
	}

	data, setData := core.UseStateFunc(c, func() viewportData { return load("live.initial") })

	target := viewportTarget{table: table, key: viewport.key()}
	last := core.UseRef(c, target)
	if last.Current != target {
		last.Current = target
		data = load("live.viewport")
		setData(data)
	}

	UseTableListener(c, table, func(source.Update) {
		if next := load("live.update"); next.ok {
			setData(next)
		}
	})
	return data.frame, data.ok
}

// UseCellData returns one cell of table, refreshed on every change. ok is
// false when the cell does not exist, including for a negative row.
func UseCellData(c *core.Context, table source.Table, row int, column string) (any, bool) {
	if row < 0 {
		// Keep the hook's slots in place but follow nothing.
		UseViewportData(c, nil, Viewport{FirstRow: 0, LastRow: 0, Columns: []string{column}})
		return nil, false
	}
	frame, ok := UseViewportData(c, table, Viewport{FirstRow: row, LastRow: row, Columns: []string{column}})
	if !ok || frame.Empty() {
		return nil, false
	}
	return frame.Value(0, column)
}
