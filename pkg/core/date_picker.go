package core

import (
	"maps"

	"github.com/go-drift/driftui/pkg/convert"
)

// DatePickerName is the type tag of date pickers.
const DatePickerName = "driftui.components.DatePicker"

var datePickerDates = convert.DateProps{
	Simple:   []string{"placeholder_value", "value", "default_value", "min_value", "max_value"},
	List:     []string{"unavailable_dates"},
	Callable: []string{"on_change"},
	Priority: []string{"value", "default_value", "placeholder_value"},
}

// NewDatePicker creates a date picker. Date props accept anything
// [convert.ToDate] does; on_change receives dates of the same kind as the
// first of value, default_value or placeholder_value that is set.
func NewDatePicker(props Props) (Base, error) {
	converted := maps.Clone(props)
	if converted == nil {
		converted = Props{}
	}
	if err := convert.ConvertDateProps(converted, datePickerDates); err != nil {
		return Base{}, err
	}
	return Base{
		Name:  DatePickerName,
		Props: Props(convert.DictToCamelCase(converted, true, convert.ToReactPropCase)),
	}, nil
}
