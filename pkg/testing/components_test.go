package testing

import (
	"strconv"

	"github.com/go-drift/driftui/pkg/core"
)

// counter renders a label and a button that increments it.
var counter = core.Define("test.Counter", func(c *core.Context, props core.Props) any {
	initial, _ := props["initial"].(int)
	count, setCount := core.UseState(c, initial)
	return core.NewBase("ui.Flex", core.Props{"direction": "column"},
		core.NewBase("ui.Text", core.Props{"children": strconv.Itoa(count)}),
		core.NewBase("ui.Button", core.Props{
			"label":   "increment",
			"onPress": func() { setCount(count + 1) },
		}),
	)
})

// box renders a fixed panel.
func box(width, height int) core.Element {
	return core.NewBase("ui.View", core.Props{"width": width, "height": height})
}
