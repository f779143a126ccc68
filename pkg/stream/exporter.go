package stream

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/export"
)

var tracer = otel.Tracer("github.com/go-drift/driftui/pkg/stream")

// exporter owns the registry of one stream and builds its messages.
type exporter struct {
	mu       sync.Mutex
	registry *export.Registry
	epoch    uint64
}

func newExporter() *exporter {
	return &exporter{registry: export.NewRegistry()}
}

// release drops the references of the current registry.
func (e *exporter) release() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Release()
}

// body fills the type-specific part of a payload.
type body func(refs export.Referencer, p *payload) error

// build encodes one message. With fresh set, the registry is first
// replaced by an empty one so that every referenced object is new again,
// and the epoch advances. A failed build still yields a message: an ERROR
// message at the revision the build consumed.
func (e *exporter) build(ctx context.Context, msgType string, fresh bool, fill body) Message {
	e.mu.Lock()
	if fresh {
		e.registry.Release()
		e.registry = export.NewRegistry()
		e.epoch++
	}
	registry, epoch := e.registry, e.epoch
	e.mu.Unlock()

	_, span := tracer.Start(ctx, "stream.Build")
	defer span.End()

	view := registry.View()
	span.SetAttributes(
		attribute.String("driftui.message", msgType),
		attribute.Int64("driftui.epoch", int64(epoch)),
		attribute.Int64("driftui.revision", int64(view.Revision())),
	)

	p := payload{Type: msgType}
	diff, err := view.Export(func(refs export.Referencer) error {
		return fill(refs, &p)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build failed")
		messagesFailed.WithLabelValues(msgType).Inc()
		reportBuildError(err)
		p = payload{Type: TypeError, Error: err.Error()}
		diff = export.Diff{}
	}
	p.NewReferences = nonNil(diff.NewReferences)
	p.RemovedReferences = nonNil(diff.RemovedReferences)

	data, err := json.Marshal(p)
	if err != nil {
		span.RecordError(err)
		reportBuildError(err)
		data, _ = json.Marshal(payload{
			Type:              TypeError,
			Error:             err.Error(),
			NewReferences:     p.NewReferences,
			RemovedReferences: p.RemovedReferences,
		})
		p.Type = TypeError
	}
	return Message{
		Epoch:    epoch,
		Revision: view.Revision(),
		Type:     p.Type,
		Payload:  data,
		Objects:  diff.NewObjects,
	}
}

func reportBuildError(err error) {
	var e *errors.Error
	if stderrors.As(err, &e) {
		errors.Report(e)
		return
	}
	errors.Report(protocolError("stream.build", err))
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

// send delivers msg and reports a failed delivery.
func send(ctx context.Context, sink Sink, msg Message) error {
	if err := sink.Send(ctx, msg); err != nil {
		errors.Report(&errors.Error{Op: "stream.send", Kind: errors.KindTransport, Err: err})
		return err
	}
	messagesSent.WithLabelValues(msg.Type).Inc()
	return nil
}
