package convert

import (
	"fmt"
	"reflect"

	"github.com/go-drift/driftui/pkg/errors"
)

// DateProps names the props of a component that hold dates.
type DateProps struct {
	// Simple props hold a single date.
	Simple []string
	// List props hold a list of dates.
	List []string
	// Callable props hold a callback taking a date. Callbacks may be
	// func(any) or func(); a func() drops the argument.
	Callable []string
	// Priority lists the simple props whose date kind decides what
	// callbacks receive. The first one set wins.
	Priority []string
	// Default converts callback arguments when no priority prop is set.
	// Nil means ToInstant.
	Default func(any) (any, error)
}

// ConvertDateProps converts date props in place. Simple and list props
// become Instant, ZonedDateTime or LocalDate values; callbacks are wrapped
// to convert their argument to the kind of the first set priority prop.
func ConvertDateProps(props map[string]any, fields DateProps) error {
	for _, key := range fields.Simple {
		value, ok := props[key]
		if !ok || value == nil {
			continue
		}
		date, err := ToDate(value)
		if err != nil {
			return err
		}
		props[key] = date
	}

	for _, key := range fields.List {
		value, ok := props[key]
		if !ok || value == nil {
			continue
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return &errors.Error{Op: "convert.ConvertDateProps", Kind: errors.KindConversion, Err: fmt.Errorf("%s must be a list of dates", key)}
		}
		dates := make([]any, rv.Len())
		for i := range dates {
			date, err := ToDate(rv.Index(i).Interface())
			if err != nil {
				return err
			}
			dates[i] = date
		}
		props[key] = dates
	}

	converter := fields.Default
	if converter == nil {
		converter = As("Instant", ToInstant).Convert
	}
	for _, key := range fields.Priority {
		if fn, ok := converterFor(props[key]); ok {
			converter = fn
			break
		}
	}

	for _, key := range fields.Callable {
		value, ok := props[key]
		if !ok || value == nil {
			continue
		}
		wrapped, err := wrapDateCallback(key, value, converter)
		if err != nil {
			return err
		}
		props[key] = wrapped
	}
	return nil
}

func wrapDateCallback(key string, callback any, converter func(any) (any, error)) (func(any), error) {
	switch fn := callback.(type) {
	case func():
		return func(any) { fn() }, nil
	case func(any):
		return func(value any) {
			date, err := converter(value)
			if err != nil {
				errors.Report(&errors.Error{Op: "convert." + key, Kind: errors.KindConversion, Err: err})
				return
			}
			fn(date)
		}, nil
	}
	return nil, &errors.Error{Op: "convert.ConvertDateProps", Kind: errors.KindConversion, Err: fmt.Errorf("%s must be a callable, got %T", key, callback)}
}
