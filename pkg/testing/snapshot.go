package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/go-drift/driftui/pkg/core"
)

// TestingT is the subset of *testing.T used by MatchesFile, allowing
// test doubles to intercept failures.
type TestingT interface {
	Helper()
	Fatalf(format string, args ...any)
	Errorf(format string, args ...any)
	Name() string
}

// Snapshot captures the structure of a rendered tree.
type Snapshot struct {
	Tree *SnapshotNode `json:"tree"`
}

// SnapshotNode represents a node in the serialized tree. Props holds the
// scalar props keyed by their path below the node; callbacks are recorded
// by type only.
type SnapshotNode struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Slot     string          `json:"slot,omitempty"`
	Props    map[string]any  `json:"props,omitempty"`
	Children []*SnapshotNode `json:"children,omitempty"`
}

// CaptureSnapshot captures the most recently rendered tree.
func (t *RenderTester) CaptureSnapshot() *Snapshot {
	snap := &Snapshot{}
	if t.last != nil {
		snap.Tree = captureNode(t.last, "", &nameCounter{})
	}
	return snap
}

// MatchesFile compares this snapshot against a golden file. On mismatch it
// reports a diff and instructions for updating. When
// DRIFTUI_UPDATE_SNAPSHOTS=1 is set, the file is silently updated instead.
func (s *Snapshot) MatchesFile(t TestingT, path string) {
	t.Helper()

	if os.Getenv("DRIFTUI_UPDATE_SNAPSHOTS") == "1" {
		if err := s.UpdateFile(path); err != nil {
			t.Fatalf("failed to update snapshot: %v", err)
		}
		return
	}

	expected, err := loadSnapshot(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("snapshot file missing: %s\n\nTo create: DRIFTUI_UPDATE_SNAPSHOTS=1 go test -run %s", path, t.Name())
			return
		}
		t.Fatalf("failed to load snapshot: %v", err)
		return
	}

	if diff := s.Diff(expected); diff != "" {
		t.Errorf("snapshot mismatch: %s\n%s\n\nTo update: DRIFTUI_UPDATE_SNAPSHOTS=1 go test -run %s", path, diff, t.Name())
	}
}

// UpdateFile writes this snapshot to the given path, creating directories
// as needed.
func (s *Snapshot) UpdateFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := marshalSnapshot(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Diff returns a line diff between this snapshot and other. Returns
// empty string if equal.
func (s *Snapshot) Diff(other *Snapshot) string {
	a, _ := marshalSnapshot(s)
	b, _ := marshalSnapshot(other)
	if bytes.Equal(a, b) {
		return ""
	}
	return unifiedDiff(string(b), string(a))
}

// --- Internal ---

// nameCounter assigns stable IDs like "ui.Text#0", "ui.Text#1".
type nameCounter struct {
	counts map[string]int
}

func (c *nameCounter) next(name string) string {
	if c.counts == nil {
		c.counts = make(map[string]int)
	}
	n := c.counts[name]
	c.counts[name] = n + 1
	return fmt.Sprintf("%s#%d", name, n)
}

func captureNode(n *core.RenderedNode, slot string, counter *nameCounter) *SnapshotNode {
	node := &SnapshotNode{ID: counter.next(n.Name), Name: n.Name, Slot: slot}
	for _, key := range slices.Sorted(maps.Keys(n.Props)) {
		node.capture(key, n.Props[key], counter)
	}
	return node
}

func (s *SnapshotNode) capture(path string, value any, counter *nameCounter) {
	switch v := value.(type) {
	case *core.RenderedNode:
		s.Children = append(s.Children, captureNode(v, path, counter))
		return
	case core.Props:
		for _, key := range slices.Sorted(maps.Keys(v)) {
			s.capture(path+"."+key, v[key], counter)
		}
		return
	case map[string]any:
		s.capture(path, core.Props(v), counter)
		return
	case []any:
		for i, item := range v {
			s.capture(path+"."+strconv.Itoa(i), item, counter)
		}
		return
	}
	if s.Props == nil {
		s.Props = make(map[string]any)
	}
	s.Props[path] = serializeValue(value)
}

func serializeValue(value any) any {
	if value == nil {
		return nil
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint())
	case reflect.Float32, reflect.Float64:
		return v.Float()
	case reflect.String:
		return v.String()
	case reflect.Bool:
		return v.Bool()
	case reflect.Func:
		return fmt.Sprintf("<%s>", v.Type())
	}
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("<%T>", value)
}

func loadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot JSON: %w", err)
	}
	return &snap, nil
}

func marshalSnapshot(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// unifiedDiff produces a simple line-oriented diff.
func unifiedDiff(expected, actual string) string {
	expectedLines := strings.Split(expected, "\n")
	actualLines := strings.Split(actual, "\n")

	var buf strings.Builder
	buf.WriteString("--- expected\n+++ actual\n")

	for i := range max(len(expectedLines), len(actualLines)) {
		var e, a string
		if i < len(expectedLines) {
			e = expectedLines[i]
		}
		if i < len(actualLines) {
			a = actualLines[i]
		}
		if e != a {
			if i < len(expectedLines) {
				fmt.Fprintf(&buf, "-%s\n", e)
			}
			if i < len(actualLines) {
				fmt.Fprintf(&buf, "+%s\n", a)
			}
		}
	}

	return buf.String()
}
