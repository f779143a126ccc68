package core

import (
	"context"
	"sync"
	"testing"

	"github.com/go-drift/driftui/pkg/errors"
)

type recordingHandler struct {
	mu      sync.Mutex
	errs    []*errors.Error
	panics  []*errors.PanicError
	renders []*errors.RenderError
}

func (h *recordingHandler) HandleError(err *errors.Error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = append(h.errs, err)
}

func (h *recordingHandler) HandlePanic(err *errors.PanicError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.panics = append(h.panics, err)
}

func (h *recordingHandler) HandleRenderError(err *errors.RenderError) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.renders = append(h.renders, err)
}

func (h *recordingHandler) renderErrors() []*errors.RenderError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*errors.RenderError(nil), h.renders...)
}

func (h *recordingHandler) panicCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.panics)
}

// installHandler routes reports to a recording handler for the duration
// of the test.
func installHandler(t *testing.T) *recordingHandler {
	t.Helper()
	h := &recordingHandler{}
	errors.SetHandler(h)
	t.Cleanup(func() { errors.SetHandler(nil) })
	return h
}

// mustRender renders element into root and fails the test on error.
func mustRender(t *testing.T, r *Renderer, element Element) *RenderedNode {
	t.Helper()
	node, err := r.Render(context.Background(), element)
	if err != nil {
		t.Fatalf("Render(%s) error = %v", element.ElementName(), err)
	}
	return node
}

func withDebugMode(t *testing.T, debug bool) {
	t.Helper()
	prev := DebugMode
	SetDebugMode(debug)
	t.Cleanup(func() { SetDebugMode(prev) })
}
