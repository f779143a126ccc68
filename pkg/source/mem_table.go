package source

import (
	stderrors "errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/go-drift/driftui/pkg/errors"
)

// ExportType is the export type of every table in this package.
const ExportType = "driftui.Table"

// ErrNilListener is returned when subscribing a nil listener.
var ErrNilListener = stderrors.New("source: nil listener")

// MemTable is an in-memory live table. Mutations notify subscribers
// asynchronously: each subscription has its own delivery goroutine, and
// notifications that pile up while a listener is busy are merged into one.
type MemTable struct {
	name string

	mu      sync.RWMutex
	columns []string
	rows    [][]any

	subsMu sync.Mutex
	subs   map[*memSubscription]struct{}
}

// NewMemTable creates an empty table with the given columns.
func NewMemTable(name string, columns ...string) *MemTable {
	return &MemTable{name: name, columns: slices.Clone(columns)}
}

func (t *MemTable) Name() string { return t.name }

// ExportType identifies tables to document encoders.
func (t *MemTable) ExportType() string { return ExportType }

func (t *MemTable) Columns() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.columns)
}

func (t *MemTable) Rows() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

func (t *MemTable) Slice(first, last int, columns []string) (Frame, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if columns == nil {
		columns = t.columns
	}
	indexes := make([]int, len(columns))
	for i, column := range columns {
		indexes[i] = slices.Index(t.columns, column)
		if indexes[i] < 0 {
			return Frame{}, &ColumnError{Table: t.name, Column: column}
		}
	}

	first = max(first, 0)
	if last < 0 || last >= len(t.rows) {
		last = len(t.rows) - 1
	}
	frame := Frame{Columns: slices.Clone(columns), Offset: first}
	for r := first; r <= last; r++ {
		row := make([]any, len(indexes))
		for i, c := range indexes {
			row[i] = t.rows[r][c]
		}
		frame.Rows = append(frame.Rows, row)
	}
	return frame, nil
}

// Append adds rows to the end of the table.
func (t *MemTable) Append(rows ...[]any) error {
	t.mu.Lock()
	for _, row := range rows {
		if len(row) != len(t.columns) {
			t.mu.Unlock()
			return fmt.Errorf("table %s: row has %d values, want %d", t.name, len(row), len(t.columns))
		}
	}
	for _, row := range rows {
		t.rows = append(t.rows, slices.Clone(row))
	}
	size := len(t.rows)
	t.mu.Unlock()

	t.notify(Update{Added: len(rows), Rows: size})
	return nil
}

// SetCell replaces one cell.
func (t *MemTable) SetCell(row int, column string, value any) error {
	t.mu.Lock()
	col := slices.Index(t.columns, column)
	if col < 0 {
		t.mu.Unlock()
		return &ColumnError{Table: t.name, Column: column}
	}
	if row < 0 || row >= len(t.rows) {
		size := len(t.rows)
		t.mu.Unlock()
		return &RowError{Table: t.name, Row: row, Rows: size}
	}
	t.rows[row][col] = value
	size := len(t.rows)
	t.mu.Unlock()

	t.notify(Update{Modified: 1, Rows: size})
	return nil
}

// RemoveRow deletes one row.
func (t *MemTable) RemoveRow(row int) error {
	t.mu.Lock()
	if row < 0 || row >= len(t.rows) {
		size := len(t.rows)
		t.mu.Unlock()
		return &RowError{Table: t.name, Row: row, Rows: size}
	}
	t.rows = slices.Delete(t.rows, row, row+1)
	size := len(t.rows)
	t.mu.Unlock()

	t.notify(Update{Removed: 1, Rows: size})
	return nil
}

// Reset replaces the columns and every row.
func (t *MemTable) Reset(columns []string, rows [][]any) error {
	copied := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return fmt.Errorf("table %s: row %d has %d values, want %d", t.name, i, len(row), len(columns))
		}
		copied[i] = slices.Clone(row)
	}

	t.mu.Lock()
	removed := len(t.rows)
	t.columns = slices.Clone(columns)
	t.rows = copied
	t.mu.Unlock()

	t.notify(Update{Removed: removed, Added: len(copied), Rows: len(copied)})
	return nil
}

func (t *MemTable) Subscribe(listener func(Update)) (Subscription, error) {
	if listener == nil {
		return nil, ErrNilListener
	}
	sub := &memSubscription{
		table:    t,
		listener: listener,
		signal:   make(chan struct{}, 1),
		done:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	t.subsMu.Lock()
	if t.subs == nil {
		t.subs = make(map[*memSubscription]struct{})
	}
	t.subs[sub] = struct{}{}
	t.subsMu.Unlock()
	subscriptionsActive.Inc()

	go sub.loop()
	return sub, nil
}

// SubscriberCount returns the number of live subscriptions.
func (t *MemTable) SubscriberCount() int {
	t.subsMu.Lock()
	defer t.subsMu.Unlock()
	return len(t.subs)
}

func (t *MemTable) notify(u Update) {
	t.subsMu.Lock()
	subs := make([]*memSubscription, 0, len(t.subs))
	for sub := range t.subs {
		subs = append(subs, sub)
	}
	t.subsMu.Unlock()

	for _, sub := range subs {
		sub.post(u)
	}
	updatesPublished.WithLabelValues(t.name).Inc()
}

func (t *MemTable) remove(sub *memSubscription) {
	t.subsMu.Lock()
	delete(t.subs, sub)
	t.subsMu.Unlock()
	subscriptionsActive.Dec()
}

type memSubscription struct {
	table    *MemTable
	listener func(Update)

	pendingMu  sync.Mutex
	pending    Update
	hasPending bool

	signal chan struct{}
	done   chan struct{}
	exited chan struct{}

	// deliverMu is held while the listener runs.
	deliverMu sync.Mutex
	canceled  atomic.Bool
	once      sync.Once
}

func (s *memSubscription) post(u Update) {
	if s.canceled.Load() {
		return
	}
	s.pendingMu.Lock()
	s.pending = s.pending.merge(u)
	s.hasPending = true
	s.pendingMu.Unlock()

	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *memSubscription) loop() {
	defer close(s.exited)
	for {
		select {
		case <-s.done:
			return
		case <-s.signal:
		}
		s.pendingMu.Lock()
		u, ok := s.pending, s.hasPending
		s.pending, s.hasPending = Update{}, false
		s.pendingMu.Unlock()
		if ok {
			s.deliver(u)
		}
	}
}

func (s *memSubscription) deliver(u Update) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	if s.canceled.Load() {
		return
	}
	defer errors.Recover("source.listener")
	s.listener(u)
}

func (s *memSubscription) Unsubscribe() {
	s.once.Do(func() {
		s.canceled.Store(true)
		// Wait out a delivery in progress; later ones see canceled.
		s.deliverMu.Lock()
		s.deliverMu.Unlock()
		close(s.done)
		<-s.exited
		s.table.remove(s)
	})
}
