package stream

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/go-drift/driftui/pkg/core"
	"github.com/go-drift/driftui/pkg/document"
	"github.com/go-drift/driftui/pkg/errors"
	"github.com/go-drift/driftui/pkg/export"
	"github.com/go-drift/driftui/pkg/source"
)

// Figure is a chart fed by live tables.
type Figure interface {
	// Tables returns the tables whose changes rebuild the figure.
	Tables() []source.Table
	// Encode returns the JSON-compatible figure, referencing tables and
	// other server objects through refs.
	Encode(refs export.Referencer) (any, error)
}

// FigureStream publishes a NEW_FIGURE message whenever one of the
// figure's tables changes. Table subscriptions belong to the stream's
// liveness scope and are released by Close.
type FigureStream struct {
	id     string
	figure Figure
	sink   Sink
	exp    *exporter
	scope  core.Scope

	publishMu sync.Mutex
	closed    bool
}

// NewFigureStream subscribes to the tables of figure. Nothing is sent
// until a table changes, Publish is called, or a RETRIEVE arrives.
func NewFigureStream(figure Figure, sink Sink) (*FigureStream, error) {
	s := &FigureStream{
		id:     ulid.Make().String(),
		figure: figure,
		sink:   sink,
		exp:    newExporter(),
	}
	for _, table := range figure.Tables() {
		sub, err := table.Subscribe(s.tableChanged)
		if err != nil {
			s.scope.Release()
			return nil, &errors.Error{
				Op:   "stream.figure",
				Kind: errors.KindSubscription,
				Err:  fmt.Errorf("subscribe to %s: %w", table.Name(), err),
			}
		}
		s.scope.Manage(sub.Unsubscribe)
	}
	return s, nil
}

// ID returns the unique id of the stream.
func (s *FigureStream) ID() string {
	return s.id
}

func (s *FigureStream) tableChanged(source.Update) {
	s.publish(context.Background(), false)
}

// Publish sends the current figure.
func (s *FigureStream) Publish(ctx context.Context) error {
	return s.publish(ctx, false)
}

func (s *FigureStream) publish(ctx context.Context, fresh bool) error {
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if s.closed {
		return ErrClosed
	}
	msg := s.exp.build(ctx, TypeNewFigure, fresh, func(refs export.Referencer, p *payload) error {
		fig, err := s.figure.Encode(refs)
		if err != nil {
			return err
		}
		p.Figure = fig
		return nil
	})
	return send(ctx, s.sink, msg)
}

// Handle processes one inbound message. Only RETRIEVE is meaningful for
// figures; CALL is rejected.
func (s *FigureStream) Handle(ctx context.Context, data []byte) error {
	req, err := ParseRequest(data)
	if err == nil && req.Type != TypeRetrieve {
		err = protocolError("stream.figure", fmt.Errorf("figures do not accept %s", req.Type))
	}
	if err != nil {
		requestsReceived.WithLabelValues("invalid", "rejected").Inc()
		errors.Report(err.(*errors.Error))
		return err
	}
	err = s.publish(ctx, true)
	result := "ok"
	if err != nil {
		result = "failed"
	}
	requestsReceived.WithLabelValues(req.Type, result).Inc()
	return err
}

// Close releases the table subscriptions. When it returns no further
// message is sent.
func (s *FigureStream) Close() {
	s.publishMu.Lock()
	s.closed = true
	s.exp.release()
	s.publishMu.Unlock()
	s.scope.Release()
}

// Series is one trace of a [TableFigure].
type Series struct {
	Type string
	X, Y string
}

// TableFigure is a figure plotting columns of one table.
type TableFigure struct {
	Title  string
	Table  source.Table
	Series []Series
}

func (f *TableFigure) Tables() []source.Table {
	return []source.Table{f.Table}
}

func (f *TableFigure) Encode(refs export.Referencer) (any, error) {
	ref, err := refs.Reference(f.Table)
	if err != nil {
		return nil, err
	}
	columns := f.Table.Columns()
	data := make([]any, 0, len(f.Series))
	for _, series := range f.Series {
		for _, col := range []string{series.X, series.Y} {
			if !slices.Contains(columns, col) {
				return nil, &source.ColumnError{Table: f.Table.Name(), Column: col}
			}
		}
		data = append(data, map[string]any{
			"type":  series.Type,
			"table": map[string]any{document.ObjectIDKey: ref.ID},
			"x":     series.X,
			"y":     series.Y,
		})
	}
	return map[string]any{
		"layout": map[string]any{"title": f.Title},
		"data":   data,
		"rows":   f.Table.Rows(),
	}, nil
}

