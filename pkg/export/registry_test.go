package export

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

type object struct{ name string }

type keyed struct {
	id   string
	rows []int
}

func (k keyed) RefKey() any { return k.id }

type nilKey struct{}

func (nilKey) RefKey() any { return nil }

func mustReference(t *testing.T, r Referencer, obj any) Reference {
	t.Helper()
	ref, err := r.Reference(obj)
	if err != nil {
		t.Fatalf("Reference(%v): %v", obj, err)
	}
	return ref
}

func TestReference_StableIDs(t *testing.T) {
	r := NewRegistry()
	a, b := &object{"a"}, &object{"b"}

	if got := mustReference(t, r, a).ID; got != 0 {
		t.Errorf("first id = %d, want 0", got)
	}
	if got := mustReference(t, r, b).ID; got != 1 {
		t.Errorf("second id = %d, want 1", got)
	}
	if got := mustReference(t, r, a).ID; got != 0 {
		t.Errorf("repeated reference id = %d, want 0", got)
	}

	same := &object{"a"}
	if got := mustReference(t, r, same).ID; got != 2 {
		t.Errorf("distinct pointer with equal contents id = %d, want 2", got)
	}
}

func TestReference_Keyed(t *testing.T) {
	r := NewRegistry()
	first := mustReference(t, r, keyed{id: "prices", rows: []int{1}})
	second := mustReference(t, r, keyed{id: "prices", rows: []int{1, 2}})
	if first.ID != second.ID {
		t.Errorf("keyed ids = %d, %d, want equal", first.ID, second.ID)
	}
}

func TestReference_Unreferenceable(t *testing.T) {
	r := NewRegistry()
	for _, obj := range []any{nil, []int{1}, map[string]int{}, nilKey{}} {
		if _, err := r.Reference(obj); !stderrors.Is(err, ErrUnreferenceable) {
			t.Errorf("Reference(%#v) error = %v, want ErrUnreferenceable", obj, err)
		}
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestSnapshot_Diff(t *testing.T) {
	r := NewRegistry()
	a, b, c := &object{"a"}, &object{"b"}, &object{"c"}

	mustReference(t, r, a)
	mustReference(t, r, b)
	diff, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want := Diff{NewObjects: []any{a, b}, NewReferences: []int{0, 1}}
	if d := cmp.Diff(want, diff, cmpopts.EquateEmpty(), cmp.AllowUnexported(object{})); d != "" {
		t.Errorf("first snapshot mismatch (-want +got):\n%s", d)
	}

	mustReference(t, r, b)
	mustReference(t, r, c)
	diff, err = r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	want = Diff{NewObjects: []any{c}, NewReferences: []int{2}, RemovedReferences: []int{0}}
	if d := cmp.Diff(want, diff, cmpopts.EquateEmpty(), cmp.AllowUnexported(object{})); d != "" {
		t.Errorf("second snapshot mismatch (-want +got):\n%s", d)
	}

	if got := mustReference(t, r, a).ID; got != 3 {
		t.Errorf("re-referenced retired object id = %d, want 3", got)
	}
}

func TestSnapshot_Idempotent(t *testing.T) {
	r := NewRegistry()
	mustReference(t, r, &object{"a"})
	if _, err := r.Snapshot(); err != nil {
		t.Fatal(err)
	}
	mustReference(t, r, &object{"b"})
	if _, err := r.Snapshot(); err != nil {
		t.Fatal(err)
	}

	// Nothing referenced since: everything is retired once, then the
	// registry stays empty.
	diff, _ := r.Snapshot()
	if len(diff.RemovedReferences) != 1 || diff.RemovedReferences[0] != 1 {
		t.Errorf("RemovedReferences = %v, want [1]", diff.RemovedReferences)
	}
	diff, _ = r.Snapshot()
	if !diff.Empty() {
		t.Errorf("repeated snapshot = %+v, want empty", diff)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
}

func TestSnapshot_RemovalOrder(t *testing.T) {
	r := NewRegistry()
	objs := make([]*object, 5)
	for i := range objs {
		objs[i] = &object{}
		mustReference(t, r, objs[i])
	}
	r.Snapshot()
	mustReference(t, r, objs[2])
	diff, _ := r.Snapshot()
	if d := cmp.Diff([]int{0, 1, 3, 4}, diff.RemovedReferences); d != "" {
		t.Errorf("RemovedReferences mismatch (-want +got):\n%s", d)
	}
}

func TestUninitialized(t *testing.T) {
	var r Registry
	if _, err := r.Snapshot(); !stderrors.Is(err, ErrUninitialized) {
		t.Errorf("zero registry Snapshot error = %v, want ErrUninitialized", err)
	}
	if _, err := r.Reference(&object{}); !stderrors.Is(err, ErrUninitialized) {
		t.Errorf("zero registry Reference error = %v, want ErrUninitialized", err)
	}

	var nilRegistry *Registry
	if _, err := nilRegistry.Snapshot(); !stderrors.Is(err, ErrUninitialized) {
		t.Errorf("nil registry Snapshot error = %v, want ErrUninitialized", err)
	}

	var v View
	if _, err := v.Snapshot(); !stderrors.Is(err, ErrUninitialized) {
		t.Errorf("detached view Snapshot error = %v, want ErrUninitialized", err)
	}
	if _, err := v.Export(func(Referencer) error { return nil }); !stderrors.Is(err, ErrUninitialized) {
		t.Errorf("detached view Export error = %v, want ErrUninitialized", err)
	}
}

func TestView_Revisions(t *testing.T) {
	r := NewRegistry()
	for i := range 3 {
		if got := r.View().Revision(); got != uint64(i) {
			t.Errorf("revision %d = %d", i, got)
		}
	}
}

func TestView_ConcurrentRevisionsAreUnique(t *testing.T) {
	r := NewRegistry()
	const n = 100

	revisions := make(chan uint64, n)
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v := r.View()
			v.Export(func(ref Referencer) error {
				_, err := ref.Reference(&object{})
				return err
			})
			revisions <- v.Revision()
		}()
	}
	wg.Wait()
	close(revisions)

	seen := make(map[uint64]bool)
	for rev := range revisions {
		if seen[rev] {
			t.Errorf("revision %d issued twice", rev)
		}
		seen[rev] = true
	}
	for i := range uint64(n) {
		if !seen[i] {
			t.Errorf("revision %d never issued", i)
		}
	}
}

func TestView_ExportIsAtomic(t *testing.T) {
	r := NewRegistry()
	a, b := &object{"a"}, &object{"b"}

	diff, err := r.View().Export(func(ref Referencer) error {
		mustReference(t, ref, a)
		mustReference(t, ref, b)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if d := cmp.Diff([]int{0, 1}, diff.NewReferences); d != "" {
		t.Errorf("NewReferences mismatch (-want +got):\n%s", d)
	}

	build := stderrors.New("build failed")
	if _, err := r.View().Export(func(Referencer) error { return build }); !stderrors.Is(err, build) {
		t.Errorf("Export error = %v, want %v", err, build)
	}
}

func TestView_FailedExportLeavesNoReferences(t *testing.T) {
	r := NewRegistry()
	a, b, c := &object{"a"}, &object{"b"}, &object{"c"}

	if _, err := r.View().Export(func(ref Referencer) error {
		mustReference(t, ref, a)
		mustReference(t, ref, b)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	build := stderrors.New("build failed")
	_, err := r.View().Export(func(ref Referencer) error {
		mustReference(t, ref, b)
		mustReference(t, ref, c)
		return build
	})
	if !stderrors.Is(err, build) {
		t.Fatalf("Export error = %v, want %v", err, build)
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len() after failed export = %d, want 2", got)
	}

	diff, err := r.View().Export(func(ref Referencer) error {
		mustReference(t, ref, a)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := Diff{RemovedReferences: []int{1}}
	if d := cmp.Diff(want, diff, cmpopts.EquateEmpty()); d != "" {
		t.Errorf("diff after failed export mismatch (-want +got):\n%s", d)
	}

	// The id handed out by the failed build is not reissued.
	if got := mustReference(t, r, c).ID; got != 3 {
		t.Errorf("id of c = %d, want 3", got)
	}
}

func TestRelease(t *testing.T) {
	r := NewRegistry()
	a, b := &object{"a"}, &object{"b"}
	mustReference(t, r, a)
	mustReference(t, r, b)

	r.Release()
	if got := r.Len(); got != 0 {
		t.Errorf("Len() after Release = %d, want 0", got)
	}
	diff, err := r.Snapshot()
	if err != nil {
		t.Fatal(err)
	}
	if !diff.Empty() {
		t.Errorf("Snapshot() after Release = %+v, want empty", diff)
	}

	// Ids are not reused after a release.
	if got := mustReference(t, r, a).ID; got != 2 {
		t.Errorf("id after Release = %d, want 2", got)
	}
	r.Release()
	r.Release()

	var nilRegistry *Registry
	nilRegistry.Release()
}
