// Package convert provides ordered conversion chains and the value and
// prop-name conversions applied to element props before they reach the
// client.
package convert

import (
	"fmt"
	"strings"
)

// Attempt is one typed conversion in an ordered chain.
type Attempt[T any] struct {
	Target  string
	Convert func(value any) (T, error)
}

// ConversionError reports that no attempt in a chain accepted a value.
type ConversionError struct {
	Value   any
	Targets []string
	Causes  []error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("could not convert %v (%T) to %s", e.Value, e.Value, oneOf(e.Targets))
}

func (e *ConversionError) Unwrap() []error {
	return e.Causes
}

func oneOf(targets []string) string {
	switch len(targets) {
	case 0:
		return "any target"
	case 1:
		return targets[0]
	case 2:
		return "one of " + targets[0] + " or " + targets[1]
	}
	return "one of " + strings.Join(targets[:len(targets)-1], ", ") + ", or " + targets[len(targets)-1]
}

// First runs attempts in order and returns the result of the first one
// that succeeds. When every attempt fails, the error is a
// *ConversionError naming each target.
func First[T any](value any, attempts ...Attempt[T]) (T, error) {
	targets := make([]string, 0, len(attempts))
	var causes []error
	for _, a := range attempts {
		out, err := a.Convert(value)
		if err == nil {
			return out, nil
		}
		targets = append(targets, a.Target)
		causes = append(causes, err)
	}
	var zero T
	return zero, &ConversionError{Value: value, Targets: targets, Causes: causes}
}

// As adapts a typed converter to an untyped Attempt.
func As[T any](target string, fn func(any) (T, error)) Attempt[any] {
	return Attempt[any]{
		Target: target,
		Convert: func(value any) (any, error) {
			out, err := fn(value)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
	}
}
