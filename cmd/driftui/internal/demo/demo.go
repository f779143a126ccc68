// Package demo is the sample app served by the driftui CLI: a quote board
// built from hooks and a live table.
package demo

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/live"
	"github.com/go-drift/driftui/pkg/source"
	"github.com/go-drift/driftui/pkg/stream"
)

// Columns of the quote table.
const (
	ColumnSymbol = "sym"
	ColumnPrice  = "price"
)

// NewQuotes returns an in-memory quote table with a few symbols.
func NewQuotes() *source.MemTable {
	t := source.NewMemTable("quotes", ColumnSymbol, ColumnPrice)
	t.Append(
		[]any{"AAPL", 189.5},
		[]any{"MSFT", 411.2},
		[]any{"NVDA", 875.0},
	)
	return t
}

// Tick nudges the price of a random row every interval until ctx is done.
func Tick(ctx context.Context, t *source.MemTable, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			rows := t.Rows()
			if rows == 0 {
				continue
			}
			row := rand.IntN(rows)
			frame, err := t.Slice(row, row, []string{ColumnPrice})
			if err != nil {
				continue
			}
			price, _ := frame.Value(0, ColumnPrice)
			p, ok := price.(float64)
			if !ok {
				continue
			}
			if err := t.SetCell(row, ColumnPrice, p*(1+(rand.Float64()-0.5)/50)); err != nil {
				return err
			}
		}
	}
}

// Source opens the demo table: the YAML file at path if set, otherwise a
// ticking in-memory table. run keeps the table live until its context is
// done.
func Source(path string, interval time.Duration) (table source.Table, run func(context.Context) error, err error) {
	if path != "" {
		ft, err := source.LoadFileTable(path)
		if err != nil {
			return nil, nil, err
		}
		return ft, ft.Watch, nil
	}
	mem := NewQuotes()
	return mem, func(ctx context.Context) error { return Tick(ctx, mem, interval) }, nil
}

// App renders a summary of the table, the selected row and the table
// itself.
//
// Props:
//   - "table": the [source.Table] to show
var App = core.Define("demo.App", func(c *core.Context, props core.Props) any {
	table, _ := props["table"].(source.Table)

	frame, ready := live.UseTableData(c, table)
	first, hasFirst := live.UseCellData(c, table, 0, ColumnPrice)
	selected, setSelected := core.UseState(c, "")
	presses, setPresses := core.UseState(c, 0)

	onRowPress := core.UseCallback(c, func(row int, data map[string]any) {
		sym, _ := data[ColumnSymbol].(string)
		setSelected(sym)
	}, []any{})
	onRefresh := core.UseCallback(c, func() { setPresses(presses + 1) }, []any{presses})

	status := "loading"
	if ready {
		status = fmt.Sprintf("%d rows", frame.Len())
	}
	lead := "-"
	if hasFirst {
		lead = fmt.Sprint(first)
	}
	selection := "Nothing selected"
	if selected != "" {
		selection = "Selected: " + selected
	}

	grid := core.NewTableElement(table, core.Props{"density": "compact"}).
		OnRowPress(onRowPress)
	if sorted, err := grid.Sort(ColumnSymbol, "asc"); err == nil {
		grid = sorted
	}

	return core.NewBase("ui.Flex", core.Props{"direction": "column"},
		core.NewBase("ui.Text", core.Props{"children": status}),
		core.NewBase("ui.Text", core.Props{"children": "Lead: " + lead}),
		core.NewBase("ui.Text", core.Props{"children": selection}),
		core.NewBase("ui.Button", core.Props{
			"children": fmt.Sprintf("Refreshed %d times", presses),
			"onPress":  onRefresh,
		}),
		grid,
	)
})

// Figure plots the price column of table.
func Figure(table source.Table) *stream.TableFigure {
	return &stream.TableFigure{
		Title:  "Quotes",
		Table:  table,
		Series: []stream.Series{{Type: "bar", X: ColumnSymbol, Y: ColumnPrice}},
	}
}
