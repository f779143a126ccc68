package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/export"
	"github.com/go-drift/driftui/pkg/stream"
)

// Envelope is the websocket frame of one outbound message.
type Envelope struct {
	Epoch    uint64             `json:"epoch"`
	Revision uint64             `json:"revision"`
	Payload  json.RawMessage    `json:"payload"`
	Objects  []ObjectDescriptor `json:"objects"`
}

// ObjectDescriptor describes a newly referenced server object. The
// consumer fetches object contents through its own channel; the
// descriptor tells it what kind of object the id stands for.
type ObjectDescriptor struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// Message converts the envelope back into a stream message.
func (e Envelope) Message() stream.Message {
	return stream.Message{Epoch: e.Epoch, Revision: e.Revision, Payload: e.Payload}
}

// EnvelopeOf wraps msg for the wire, describing its new objects.
func EnvelopeOf(msg stream.Message) Envelope {
	env := Envelope{
		Epoch:    msg.Epoch,
		Revision: msg.Revision,
		Payload:  msg.Payload,
		Objects:  make([]ObjectDescriptor, len(msg.Objects)),
	}
	for i, obj := range msg.Objects {
		env.Objects[i] = describe(obj)
	}
	return env
}

func describe(obj any) ObjectDescriptor {
	var d ObjectDescriptor
	if e, ok := obj.(export.Exportable); ok {
		d.Type = e.ExportType()
	} else {
		d.Type = fmt.Sprintf("%T", obj)
	}
	if n, ok := obj.(interface{ Name() string }); ok {
		d.Name = n.Name()
	}
	return d
}

// session is one websocket connection and the sink of its stream.
type session struct {
	id           string
	conn         *websocket.Conn
	stream       Stream
	writeTimeout time.Duration
	started      time.Time

	writeMu sync.Mutex
	sent    int
}

func (s *session) Send(_ context.Context, msg stream.Message) error {
	env := EnvelopeOf(msg)
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.writeTimeout > 0 {
		s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout))
	}
	if err := s.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("session %s: %w", s.id, err)
	}
	s.sent++
	framesSent.Inc()
	return nil
}

func (s *session) sentCount() int {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.sent
}

// readLoop hands inbound frames to the stream until the connection
// closes. Stream errors are reported by the stream and do not end the
// session.
func (s *session) readLoop(ctx context.Context, logger *slog.Logger) error {
	for {
		kind, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				errors.Report(&errors.Error{Op: "transport.read", Kind: errors.KindTransport, Err: err})
			}
			return nil
		}
		framesReceived.Inc()
		if kind != websocket.TextMessage {
			logger.Debug("ignoring non-text frame", "type", kind)
			continue
		}
		if err := s.stream.Handle(ctx, data); err != nil {
			logger.Debug("request failed", "error", err)
		}
	}
}
