// Package export tracks the server objects referenced by outbound messages.
//
// A Registry binds objects to integer ids that are valid on the wire. Each
// outbound message takes one Snapshot: the objects first referenced since
// the previous snapshot, their ids, and the ids no longer referenced, which
// are retired. Views give concurrently built messages strictly increasing
// revision numbers so that a consumer can apply them in order.
package export

import (
	stderrors "errors"
	"fmt"
	"maps"
	"reflect"
	"sync"
)

var (
	// ErrUnreferenceable is returned for objects that have no identity.
	ErrUnreferenceable = stderrors.New("export: object has no identity")
	// ErrUninitialized is returned by views that belong to no registry.
	ErrUninitialized = stderrors.New("export: registry not initialized")
)

// Keyed objects supply their own identity key. Objects that are not
// pointers, or that are recreated for every message, implement it so
// that the same logical object keeps one id.
type Keyed interface {
	RefKey() any
}

// Exportable objects are sent to the client by reference rather than by
// value.
type Exportable interface {
	ExportType() string
}

// Reference is the binding of an object to its wire id.
type Reference struct {
	ID     int
	Object any
}

// Referencer allocates references while a message is built.
type Referencer interface {
	Reference(obj any) (Reference, error)
}

// Diff is the result of one snapshot.
type Diff struct {
	// NewObjects are the objects first referenced since the previous
	// snapshot, in the order of NewReferences.
	NewObjects        []any
	NewReferences     []int
	RemovedReferences []int
}

// Empty reports whether the diff carries no changes.
func (d Diff) Empty() bool {
	return len(d.NewReferences) == 0 && len(d.RemovedReferences) == 0
}

type keyedIdentity struct {
	key any
}

type entry struct {
	key any
	ref Reference
}

// Registry maps objects to stable ids. Ids start at 0 and are never
// reused. The zero value is not ready to use; call NewRegistry.
type Registry struct {
	// mu guards reference state. It is held for each Reference and
	// Snapshot call, and by View.Export for a whole message.
	mu         sync.Mutex
	ready      bool
	nextID     int
	byKey      map[any]*entry
	entries    []*entry
	newIDs     []int
	newObjects []any
	used       map[int]struct{}

	// revMu guards revision issuance only, so a revision can be issued
	// while another view is building a message.
	revMu    sync.Mutex
	revision uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		ready: true,
		byKey: make(map[any]*entry),
		used:  make(map[int]struct{}),
	}
}

func identity(obj any) (any, error) {
	if obj == nil {
		return nil, ErrUnreferenceable
	}
	if k, ok := obj.(Keyed); ok {
		key := k.RefKey()
		if key == nil || !reflect.TypeOf(key).Comparable() {
			return nil, fmt.Errorf("%w: key %v of %T", ErrUnreferenceable, key, obj)
		}
		return keyedIdentity{key: key}, nil
	}
	if !reflect.TypeOf(obj).Comparable() {
		return nil, fmt.Errorf("%w: %T is not comparable", ErrUnreferenceable, obj)
	}
	return obj, nil
}

// Reference returns the reference of obj, allocating the next id if obj
// is not yet known. Either way obj is marked used for the current
// snapshot. Objects are identified by RefKey when they implement Keyed
// and by == otherwise, so pointers compare by identity.
func (r *Registry) Reference(obj any) (Reference, error) {
	if r == nil {
		return Reference{}, ErrUninitialized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reference(obj)
}

func (r *Registry) reference(obj any) (Reference, error) {
	if !r.ready {
		return Reference{}, ErrUninitialized
	}
	key, err := identity(obj)
	if err != nil {
		return Reference{}, err
	}
	e, ok := r.byKey[key]
	if !ok {
		e = &entry{key: key, ref: Reference{ID: r.nextID, Object: obj}}
		r.nextID++
		r.byKey[key] = e
		r.entries = append(r.entries, e)
		r.newIDs = append(r.newIDs, e.ref.ID)
		r.newObjects = append(r.newObjects, obj)
		referencesCreated.Inc()
		referencesLive.Inc()
	}
	r.used[e.ref.ID] = struct{}{}
	return e.ref, nil
}

// Snapshot drains the registry: it returns the references created since
// the previous snapshot, retires every known reference that was not used
// since then, and starts a new snapshot cycle. A second Snapshot with no
// Reference calls in between returns an empty diff.
func (r *Registry) Snapshot() (Diff, error) {
	if r == nil {
		return Diff{}, ErrUninitialized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Registry) snapshot() (Diff, error) {
	if !r.ready {
		return Diff{}, ErrUninitialized
	}
	var removed []int
	kept := r.entries[:0]
	for _, e := range r.entries {
		if _, ok := r.used[e.ref.ID]; ok {
			kept = append(kept, e)
			continue
		}
		removed = append(removed, e.ref.ID)
		delete(r.byKey, e.key)
	}
	clear(r.entries[len(kept):])
	r.entries = kept

	diff := Diff{
		NewObjects:        r.newObjects,
		NewReferences:     r.newIDs,
		RemovedReferences: removed,
	}
	r.newObjects, r.newIDs = nil, nil
	clear(r.used)

	referencesRemoved.Add(float64(len(removed)))
	referencesLive.Sub(float64(len(removed)))
	return diff, nil
}

// Release drops every reference. The registry stays usable and keeps
// issuing revisions; ids are never reused.
func (r *Registry) Release() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	referencesLive.Sub(float64(len(r.entries)))
	clear(r.byKey)
	clear(r.used)
	r.entries = nil
	r.newIDs, r.newObjects = nil, nil
}

// Len returns the number of live references.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// View issues the next revision. Revisions start at 0 and increase by
// one per view, also under concurrent callers.
func (r *Registry) View() *View {
	r.revMu.Lock()
	defer r.revMu.Unlock()
	v := &View{registry: r, revision: r.revision}
	r.revision++
	revisionsIssued.Inc()
	return v
}

// View is a handle for building one message at one revision. All views
// of a registry write through to the same references.
type View struct {
	registry *Registry
	revision uint64
}

// Revision returns the revision of the view.
func (v *View) Revision() uint64 {
	return v.revision
}

func (v *View) check() error {
	if v == nil || v.registry == nil {
		return ErrUninitialized
	}
	return nil
}

// Reference is Registry.Reference.
func (v *View) Reference(obj any) (Reference, error) {
	if err := v.check(); err != nil {
		return Reference{}, err
	}
	return v.registry.Reference(obj)
}

// Snapshot is Registry.Snapshot.
func (v *View) Snapshot() (Diff, error) {
	if err := v.check(); err != nil {
		return Diff{}, err
	}
	return v.registry.Snapshot()
}

// Export builds a message and drains the registry as one step: the
// registry is locked while build runs, so references made by another
// message cannot leak into this message's diff. build must only reference
// objects through the Referencer it is given.
func (v *View) Export(build func(Referencer) error) (Diff, error) {
	if err := v.check(); err != nil {
		return Diff{}, err
	}
	r := v.registry
	r.mu.Lock()
	defer r.mu.Unlock()
	mark := r.checkpoint()
	if err := build(lockedReferencer{r}); err != nil {
		r.restore(mark)
		return Diff{}, err
	}
	return r.snapshot()
}

// checkpoint records reference state so a failed build can be undone.
type checkpoint struct {
	entries    int
	newIDs     int
	newObjects int
	used       map[int]struct{}
}

func (r *Registry) checkpoint() checkpoint {
	return checkpoint{
		entries:    len(r.entries),
		newIDs:     len(r.newIDs),
		newObjects: len(r.newObjects),
		used:       maps.Clone(r.used),
	}
}

// restore forgets every reference made since c. Ids handed out in
// between are not reissued.
func (r *Registry) restore(c checkpoint) {
	if !r.ready || len(r.entries) < c.entries {
		return
	}
	added := r.entries[c.entries:]
	for _, e := range added {
		delete(r.byKey, e.key)
	}
	referencesLive.Sub(float64(len(added)))
	clear(added)
	r.entries = r.entries[:c.entries]
	r.newIDs = r.newIDs[:c.newIDs]
	clear(r.newObjects[c.newObjects:])
	r.newObjects = r.newObjects[:c.newObjects]
	r.used = c.used
}

// lockedReferencer references objects while the registry lock is held.
type lockedReferencer struct {
	r *Registry
}

func (l lockedReferencer) Reference(obj any) (Reference, error) {
	return l.r.reference(obj)
}
