package errors

import (
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	// DefaultHandler is the global error handler. It defaults to a
	// LogHandler on slog.Default().
	DefaultHandler ErrorHandler = &LogHandler{}

	handlerMu sync.RWMutex
)

// SetHandler configures the global error handler.
// Pass nil to restore the default LogHandler.
func SetHandler(h ErrorHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	if h == nil {
		DefaultHandler = &LogHandler{}
	} else {
		DefaultHandler = h
	}
}

func getHandler() ErrorHandler {
	handlerMu.RLock()
	defer handlerMu.RUnlock()
	return DefaultHandler
}

// Report sends an error to the global handler and counts it by kind.
// If err.Timestamp is zero, it is set to the current time.
func Report(err *Error) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	reported.WithLabelValues(err.Kind.String()).Inc()
	if h := getHandler(); h != nil {
		h.HandleError(err)
	}
}

// ReportPanic sends a recovered panic to the global handler.
func ReportPanic(err *PanicError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	reported.WithLabelValues(KindPanic.String()).Inc()
	if h := getHandler(); h != nil {
		h.HandlePanic(err)
	}
}

// ReportRenderError sends a failed render pass to the global handler.
func ReportRenderError(err *RenderError) {
	if err == nil {
		return
	}
	stamp(&err.Timestamp)
	reported.WithLabelValues(KindRender.String()).Inc()
	if h := getHandler(); h != nil {
		h.HandleRenderError(err)
	}
}

func stamp(t *time.Time) {
	if t.IsZero() {
		*t = time.Now()
	}
}

// Recover reports a panic in progress and lets the caller continue.
// Usage: defer errors.Recover("source.listener")
func Recover(op string) {
	if r := recover(); r != nil {
		ReportPanic(newPanicError(op, r))
	}
}

// RecoverInto is like Recover but also stores the reported *PanicError in
// *err, for functions that turn a panic into their error result:
//
//	func call() (err error) {
//	    defer errors.RecoverInto("document.call", &err)
//	    ...
//	}
func RecoverInto(op string, err *error) {
	if r := recover(); r != nil {
		panicErr := newPanicError(op, r)
		ReportPanic(panicErr)
		if err != nil {
			*err = panicErr
		}
	}
}

func newPanicError(op string, r any) *PanicError {
	return &PanicError{
		Op:         op,
		Value:      r,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

// recoverFrames are the helpers between a recover and CaptureStack.
var recoverFrames = map[string]bool{
	"github.com/go-drift/driftui/pkg/errors.newPanicError": true,
	"github.com/go-drift/driftui/pkg/errors.Recover":       true,
	"github.com/go-drift/driftui/pkg/errors.RecoverInto":   true,
}

// CaptureStack returns the caller's stack, one "function\n\tfile:line"
// entry per frame. Frames inside the Go runtime, such as the panic
// machinery between a deferred recover and the faulting call, are left out.
func CaptureStack() string {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(2, pcs[:])
	if n == 0 {
		return ""
	}

	frames := runtime.CallersFrames(pcs[:n])
	var sb strings.Builder
	for {
		frame, more := frames.Next()
		if !strings.HasPrefix(frame.Function, "runtime.") && !recoverFrames[frame.Function] {
			sb.WriteString(frame.Function)
			sb.WriteString("\n\t")
			sb.WriteString(frame.File)
			sb.WriteString(":")
			sb.WriteString(strconv.Itoa(frame.Line))
			sb.WriteString("\n")
		}
		if !more {
			break
		}
	}
	return sb.String()
}
