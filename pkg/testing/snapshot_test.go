package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-drift/driftui/pkg/core"
)

func TestCaptureSnapshot_Structure(t *testing.T) {
	tester := NewRenderTesterWithT(t)
	tester.Mount(counter(core.Props{"initial": 3}))

	snap := tester.CaptureSnapshot()
	root := snap.Tree
	if root == nil {
		t.Fatal("expected snapshot tree")
	}
	if root.ID != "test.Counter#0" {
		t.Errorf("root ID = %q, want test.Counter#0", root.ID)
	}
	if len(root.Children) != 1 || root.Children[0].Name != "ui.Flex" {
		t.Fatalf("root children = %+v, want one ui.Flex", root.Children)
	}
	flex := root.Children[0]
	if len(flex.Children) != 2 {
		t.Fatalf("flex children = %d, want 2", len(flex.Children))
	}
	text, button := flex.Children[0], flex.Children[1]
	if text.Slot != "children.0" || text.Props["children"] != "3" {
		t.Errorf("text = %+v", text)
	}
	if button.Props["onPress"] != "<func()>" {
		t.Errorf("onPress = %v, want <func()>", button.Props["onPress"])
	}
}

func TestSnapshot_Diff_Equal(t *testing.T) {
	tester := NewRenderTesterWithT(t)
	tester.Mount(box(50, 50))

	a := tester.CaptureSnapshot()
	b := tester.CaptureSnapshot()

	if diff := a.Diff(b); diff != "" {
		t.Errorf("expected no diff for identical snapshots, got:\n%s", diff)
	}
}

func TestSnapshot_Diff_Different(t *testing.T) {
	tester := NewRenderTesterWithT(t)

	tester.Mount(box(50, 50))
	a := tester.CaptureSnapshot()

	tester.Mount(box(100, 50))
	b := tester.CaptureSnapshot()

	if diff := a.Diff(b); diff == "" {
		t.Error("expected diff for different snapshots")
	}
}

func TestSnapshot_UpdateAndMatch(t *testing.T) {
	t.Setenv("DRIFTUI_UPDATE_SNAPSHOTS", "")
	tester := NewRenderTesterWithT(t)
	tester.Mount(counter(nil))

	snap := tester.CaptureSnapshot()

	dir := t.TempDir()
	path := filepath.Join(dir, "testdata", "counter.snapshot.json")

	if err := snap.UpdateFile(path); err != nil {
		t.Fatalf("UpdateFile failed: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("snapshot file should exist after UpdateFile")
	}

	// MatchesFile should pass now
	snap.MatchesFile(t, path)
}

func TestSnapshot_MatchesFile_MissingFile(t *testing.T) {
	t.Setenv("DRIFTUI_UPDATE_SNAPSHOTS", "")
	tester := NewRenderTesterWithT(t)
	tester.Mount(box(50, 50))
	snap := tester.CaptureSnapshot()

	// Use a recorder to intercept the Fatal
	failed := false
	sub := &fatalRecorder{name: t.Name(), onFatal: func() { failed = true }}
	snap.MatchesFile(sub, "/nonexistent/path/snap.json")

	if !failed {
		t.Error("expected MatchesFile to fail for missing file")
	}
}

func TestSnapshot_MatchesFile_Mismatch(t *testing.T) {
	t.Setenv("DRIFTUI_UPDATE_SNAPSHOTS", "")
	tester := NewRenderTesterWithT(t)

	tester.Mount(counter(nil))
	first := tester.CaptureSnapshot()

	dir := t.TempDir()
	path := filepath.Join(dir, "snap.json")
	first.UpdateFile(path)

	tester.Press(ByName("ui.Button"))
	tester.Pump()
	second := tester.CaptureSnapshot()

	errored := false
	sub := &errorRecorder{name: t.Name(), onError: func() { errored = true }}
	second.MatchesFile(sub, path)

	if !errored {
		t.Error("expected MatchesFile to report error for mismatch")
	}
}

func TestSnapshot_UpdateMode(t *testing.T) {
	tester := NewRenderTesterWithT(t)
	tester.Mount(box(60, 30))
	snap := tester.CaptureSnapshot()

	dir := t.TempDir()
	path := filepath.Join(dir, "update.snapshot.json")

	t.Setenv("DRIFTUI_UPDATE_SNAPSHOTS", "1")
	snap.MatchesFile(t, path)

	// File should now exist
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("snapshot file should be created in update mode")
	}
}

// fatalRecorder intercepts Fatalf calls for testing MatchesFile failures.
type fatalRecorder struct {
	name    string
	onFatal func()
}

func (r *fatalRecorder) Fatalf(format string, args ...any) { r.onFatal() }
func (r *fatalRecorder) Errorf(format string, args ...any) {}
func (r *fatalRecorder) Helper()                           {}
func (r *fatalRecorder) Name() string                      { return r.name }

// errorRecorder intercepts Errorf calls for testing MatchesFile mismatches.
type errorRecorder struct {
	name    string
	onError func()
}

func (r *errorRecorder) Fatalf(format string, args ...any) {}
func (r *errorRecorder) Errorf(format string, args ...any) { r.onError() }
func (r *errorRecorder) Helper()                           {}
func (r *errorRecorder) Name() string                      { return r.name }
