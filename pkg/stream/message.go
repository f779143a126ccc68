// Package stream implements the message protocol between a server-side
// tree and one remote consumer.
//
// Outbound messages carry an encoded document or figure together with
// the reference delta of the stream's registry, and are stamped with an
// (epoch, revision) pair: the revision orders messages built from one
// registry, the epoch increments whenever a RETRIEVE request replaces the
// registry. Consumers apply messages through a [Reorderer].
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-drift/driftui/pkg/errors"
)

// Outbound message types.
const (
	TypeNewDocument = "NEW_DOCUMENT"
	TypeNewFigure   = "NEW_FIGURE"
	// TypeError replaces a message whose build failed, so that its
	// revision is still delivered.
	TypeError = "ERROR"
)

// Inbound message types.
const (
	TypeRetrieve = "RETRIEVE"
	TypeCall     = "CALL"
)

// Message is one outbound message.
type Message struct {
	Epoch    uint64
	Revision uint64
	Type     string
	// Payload is the JSON-encoded message body.
	Payload json.RawMessage
	// Objects are the objects first referenced by this message, in the
	// order of its new_references.
	Objects []any
}

// Sink receives the outbound messages of a stream. Send is called by one
// goroutine at a time per stream.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, msg Message) error

func (f SinkFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// payload is the body of an outbound message.
type payload struct {
	Type              string         `json:"type"`
	Document          map[string]any `json:"document,omitempty"`
	Figure            any            `json:"figure,omitempty"`
	Error             string         `json:"error,omitempty"`
	NewReferences     []int          `json:"new_references"`
	RemovedReferences []int          `json:"removed_references"`
}

// Request is an inbound message.
type Request struct {
	Type string `json:"type"`
	// Callable and Args are set for CALL requests.
	Callable string `json:"callable,omitempty"`
	Args     []any  `json:"args,omitempty"`
}

// ParseRequest decodes an inbound message. Malformed JSON, an unknown
// type, or a CALL without a callable id yield an error of kind
// [errors.KindProtocol].
func ParseRequest(data []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return Request{}, protocolError("stream.parse", fmt.Errorf("malformed message: %w", err))
	}
	switch req.Type {
	case TypeRetrieve:
	case TypeCall:
		if req.Callable == "" {
			return Request{}, protocolError("stream.parse", fmt.Errorf("CALL without callable"))
		}
	default:
		return Request{}, protocolError("stream.parse", fmt.Errorf("unknown message type %q", req.Type))
	}
	return req, nil
}

func protocolError(op string, err error) *errors.Error {
	return &errors.Error{Op: op, Kind: errors.KindProtocol, Err: err}
}
