// Package errors provides structured error handling for the driftui runtime.
package errors

import (
	"fmt"
	"strings"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindRender indicates a failed render pass.
	KindRender
	// KindPanic indicates a recovered panic.
	KindPanic
	// KindContract indicates a hook call-order or slot-kind violation.
	KindContract
	// KindConversion indicates a value that could not be converted.
	KindConversion
	// KindProtocol indicates a malformed or unknown inbound message.
	KindProtocol
	// KindSubscription indicates a failing live-data callback.
	KindSubscription
	// KindTransport indicates a connection level failure.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindRender:
		return "render"
	case KindPanic:
		return "panic"
	case KindContract:
		return "contract"
	case KindConversion:
		return "conversion"
	case KindProtocol:
		return "protocol"
	case KindSubscription:
		return "subscription"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error represents a structured error in the runtime.
type Error struct {
	// Op is the operation that failed (e.g., "stream.processMessage").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "source.notify").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// RenderError represents a failure while rendering an element.
type RenderError struct {
	// Element is the name of the root element of the failed pass.
	Element string
	// Path is the key path of the context that was rendering.
	Path []string
	// Recovered is the panic value (nil for regular errors).
	Recovered any
	// Err is the underlying error (nil for plain panics).
	Err error
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *RenderError) Error() string {
	where := e.Element
	if len(e.Path) > 0 {
		where = fmt.Sprintf("%s at /%s", e.Element, strings.Join(e.Path, "/"))
	}
	if e.Err != nil {
		return fmt.Sprintf("error rendering %s: %v", where, e.Err)
	}
	if e.Recovered != nil {
		return fmt.Sprintf("panic rendering %s: %v", where, e.Recovered)
	}
	return fmt.Sprintf("unknown error rendering %s", where)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// ContractError reports a hook contract violation: slots requested in a
// different order, of a different kind, or in a different number than on
// the previous pass over the same context.
type ContractError struct {
	// Path is the key path of the offending context.
	Path []string
	// Slot is the slot index at which the violation was detected.
	Slot int
	// Expected is the slot kind recorded on the previous pass.
	Expected string
	// Actual is the slot kind requested on this pass.
	Actual string
	// Detail describes violations that are not a kind mismatch.
	Detail string
}

func (e *ContractError) Error() string {
	path := "/" + strings.Join(e.Path, "/")
	if e.Detail != "" {
		return fmt.Sprintf("hook contract violated at %s slot %d: %s", path, e.Slot, e.Detail)
	}
	return fmt.Sprintf("hook contract violated at %s slot %d: expected %s, got %s", path, e.Slot, e.Expected, e.Actual)
}

// ErrorHandler receives errors reported by the runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *Error)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
	// HandleRenderError is called when a render pass fails.
	HandleRenderError(err *RenderError)
}
