package document

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"reflect"

	"github.com/go-drift/driftui/pkg/errors"
)

// ErrUnknownCallable is returned for callable ids not in the document.
var ErrUnknownCallable = stderrors.New("unknown callable")

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Call invokes the callable registered under id with args decoded from
// JSON. Arguments are matched to parameters by position: missing
// arguments are zero values and surplus arguments are dropped, as a
// JavaScript caller expects. Each argument is converted to the parameter
// type, through JSON when no direct conversion exists. If the last result
// is a non-nil error, it is returned. A panicking callable is recovered and
// reported as an error.
func (c *Callables) Call(id string, args []any) (err error) {
	fn, ok := c.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownCallable, id)
	}
	return Invoke(fn, args)
}

// Invoke calls fn with args as described for [Callables.Call].
func Invoke(fn any, args []any) (err error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return fmt.Errorf("invoke %T: not a function", fn)
	}
	in, err := scanArgs(rv.Type(), args)
	if err != nil {
		return err
	}

	defer errors.RecoverInto("document.call", &err)

	var outs []reflect.Value
	if rv.Type().IsVariadic() {
		outs = rv.CallSlice(in)
	} else {
		outs = rv.Call(in)
	}
	if n := len(outs); n > 0 && outs[n-1].Type() == errorType && !outs[n-1].IsNil() {
		return outs[n-1].Interface().(error)
	}
	return nil
}

func scanArgs(t reflect.Type, args []any) ([]reflect.Value, error) {
	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}
	in := make([]reflect.Value, 0, t.NumIn())
	for i := range fixed {
		var arg any
		if i < len(args) {
			arg = args[i]
		}
		v, err := scanArg(arg, t.In(i))
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		in = append(in, v)
	}
	if t.IsVariadic() {
		sliceType := t.In(fixed)
		rest := reflect.MakeSlice(sliceType, 0, max(len(args)-fixed, 0))
		for i := fixed; i < len(args); i++ {
			v, err := scanArg(args[i], sliceType.Elem())
			if err != nil {
				return nil, fmt.Errorf("argument %d: %w", i+1, err)
			}
			rest = reflect.Append(rest, v)
		}
		in = append(in, rest)
	}
	return in, nil
}

func scanArg(arg any, t reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(t) {
		return v, nil
	}
	if isNumber(v.Kind()) && isNumber(t.Kind()) {
		return v.Convert(t), nil
	}
	data, err := json.Marshal(arg)
	if err != nil {
		return reflect.Value{}, err
	}
	ptr := reflect.New(t)
	if err := json.Unmarshal(data, ptr.Interface()); err != nil {
		return reflect.Value{}, fmt.Errorf("cannot use %v (%T) as %s: %w", arg, arg, t, err)
	}
	return ptr.Elem(), nil
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
