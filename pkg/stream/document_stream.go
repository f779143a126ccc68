package stream

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/document"
	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/export"
)

// ErrClosed is returned by streams after Close.
var ErrClosed = stderrors.New("stream closed")

// DocumentStream renders an element tree and publishes a NEW_DOCUMENT
// message after every successful pass.
type DocumentStream struct {
	id    string
	owner *core.RenderOwner
	sink  Sink
	exp   *exporter

	// publishMu orders builds and sends. RETRIEVE reads the latest tree
	// while holding it, so a fresh snapshot is never older than a tree
	// already published.
	publishMu sync.Mutex
	callables *document.Callables
	closed    bool
}

// NewDocumentStream creates a stream for element that publishes to sink.
// Options configure the underlying [core.RenderOwner]. No pass runs until
// Run or Flush.
func NewDocumentStream(element core.Element, sink Sink, opts ...core.OwnerOption) *DocumentStream {
	s := &DocumentStream{
		id:   ulid.Make().String(),
		sink: sink,
		exp:  newExporter(),
	}
	opts = append(opts, core.WithOnRendered(s.rendered))
	s.owner = core.NewRenderOwner(element, opts...)
	return s
}

// ID returns the unique id of the stream.
func (s *DocumentStream) ID() string {
	return s.id
}

// Owner returns the render owner of the stream.
func (s *DocumentStream) Owner() *core.RenderOwner {
	return s.owner
}

// Run renders and publishes until ctx is done or the stream is closed.
func (s *DocumentStream) Run(ctx context.Context) error {
	err := s.owner.Run(ctx)
	if stderrors.Is(err, core.ErrDisposed) {
		return ErrClosed
	}
	return err
}

// Flush renders synchronously if the tree is dirty. A successful pass is
// published before Flush returns.
func (s *DocumentStream) Flush(ctx context.Context) error {
	_, err := s.owner.Flush(ctx)
	return err
}

func (s *DocumentStream) rendered(node *core.RenderedNode, err error) {
	if err != nil {
		return
	}
	s.publish(context.Background(), node, false)
}

func (s *DocumentStream) publish(ctx context.Context, node *core.RenderedNode, fresh bool) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	return s.publishLocked(ctx, node, fresh)
}

func (s *DocumentStream) publishLocked(ctx context.Context, node *core.RenderedNode, fresh bool) error {
	if s.closed {
		return ErrClosed
	}

	var callables *document.Callables
	msg := s.exp.build(ctx, TypeNewDocument, fresh, func(refs export.Referencer, p *payload) error {
		doc, err := document.Encode(refs, node)
		if err != nil {
			return err
		}
		p.Document = doc.Root
		callables = doc.Callables
		return nil
	})
	if callables != nil {
		s.callables = callables
	}
	return send(ctx, s.sink, msg)
}

// Handle processes one inbound message. RETRIEVE publishes the latest
// tree against a new registry; CALL invokes a callable of the most
// recently published document. Errors are reported and returned; the
// stream stays usable.
func (s *DocumentStream) Handle(ctx context.Context, data []byte) error {
	req, err := ParseRequest(data)
	if err != nil {
		requestsReceived.WithLabelValues("invalid", "rejected").Inc()
		errors.Report(err.(*errors.Error))
		return err
	}

	switch req.Type {
	case TypeRetrieve:
		err = s.retrieve(ctx)
	case TypeCall:
		err = s.call(req)
	}
	result := "ok"
	if err != nil {
		result = "failed"
	}
	requestsReceived.WithLabelValues(req.Type, result).Inc()
	return err
}

func (s *DocumentStream) retrieve(ctx context.Context) error {
	if node, _ := s.owner.Last(); node == nil {
		// Nothing published yet: render now. A successful pass publishes
		// through rendered before the snapshot below.
		if _, err := s.owner.Flush(ctx); err != nil {
			return err
		}
	}

	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	// A pass records its tree before publishing it, so the tree read here
	// is at least as new as any tree sent so far.
	node, _ := s.owner.Last()
	if node == nil {
		return fmt.Errorf("no rendered document")
	}
	return s.publishLocked(ctx, node, true)
}

func (s *DocumentStream) call(req Request) error {
	s.publishMu.Lock()
	callables := s.callables
	s.publishMu.Unlock()

	if err := callables.Call(req.Callable, req.Args); err != nil {
		e := protocolError("stream.call", err)
		errors.Report(e)
		return e
	}
	return nil
}

// Close tears down the tree and stops publishing.
func (s *DocumentStream) Close() {
	s.publishMu.Lock()
	s.closed = true
	s.exp.release()
	s.publishMu.Unlock()
	s.owner.Dispose()
	// Wakes Run so it observes the disposal.
	s.owner.ScheduleRender()
}
