// Package registry is the single source of truth mapping prototype handles
// and identifiers to their resolved trees. It tracks reverse dependencies so
// that a change to one prototype re-resolves exactly the trees that
// incorporated it, and it distinguishes "still loading" (queued) from
// "loaded but broken" (failed).
package registry

import (
	"fmt"
	"sync"

	"protoforge/internal/logging"
	"protoforge/internal/proto"
	"protoforge/internal/tree"
)

// AlreadyExistsError reports an identifier collision: two distinct handles
// claiming the same identifier. This is fatal, never resolved by picking a
// winner.
type AlreadyExistsError struct {
	ID       proto.ID
	Existing proto.Handle
	Handle   proto.Handle
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("prototype id %q is already registered to handle %s (refusing handle %s)",
		string(e.ID), e.Existing, e.Handle)
}

// Registry caches resolved prototype trees behind a single RWMutex. Write
// windows are one register/unregister call; the dependent-cascade runs
// sequentially inside that window and never re-enters the public API.
type Registry struct {
	mu         sync.RWMutex
	ids        map[proto.Handle]proto.ID
	handles    map[proto.ID]proto.Handle
	trees      map[proto.Handle]*tree.ProtoTree
	dependents map[proto.Handle]map[proto.Handle]struct{}
	failed     map[proto.Handle]struct{}
	queue      *LoadQueue
}

func New() *Registry {
	return &Registry{
		ids:        make(map[proto.Handle]proto.ID),
		handles:    make(map[proto.ID]proto.Handle),
		trees:      make(map[proto.Handle]*tree.ProtoTree),
		dependents: make(map[proto.Handle]map[proto.Handle]struct{}),
		failed:     make(map[proto.Handle]struct{}),
		queue:      NewLoadQueue(),
	}
}

// Queue returns the load queue tracking parsed-but-unregistered handles.
func (r *Registry) Queue() *LoadQueue {
	return r.queue
}

// Register resolves (or re-resolves) the handle's tree. On success the
// handle↔id pair is recorded and the handle leaves the load queue; on
// failure the handle is marked failed.
func (r *Registry) Register(handle proto.Handle, store proto.Store, config tree.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.register(handle, store, config)
}

func (r *Registry) register(handle proto.Handle, store proto.Store, config tree.Config) error {
	p, ok := store.Get(handle)
	if !ok {
		r.fail(handle)
		return &proto.MissingError{Handle: handle}
	}

	// A re-register is an unregister-then-register for the id mapping: if
	// the document's id changed, the old id must stop resolving to this
	// handle before the new id is claimed.
	if oldID, ok := r.ids[handle]; ok && oldID != p.ID {
		delete(r.ids, handle)
		if r.handles[oldID] == handle {
			delete(r.handles, oldID)
		}
	}

	if existing, ok := r.handles[p.ID]; ok && existing != handle {
		r.fail(handle)
		return &AlreadyExistsError{ID: p.ID, Existing: existing, Handle: handle}
	}

	// Drop any stale cached tree so the builder resolves fresh instead of
	// memo-hitting the previous registration.
	delete(r.trees, handle)

	builder := tree.NewBuilder(cacheView{r}, store, config)
	if err := builder.Build(handle); err != nil {
		r.fail(handle)
		return fmt.Errorf("register %q: %w", string(p.ID), err)
	}

	delete(r.failed, handle)
	r.ids[handle] = p.ID
	r.handles[p.ID] = handle
	r.queue.Dequeue(handle)

	logging.Get(logging.CategoryRegistry).Debugf("registered %q (%s)", string(p.ID), handle)
	return nil
}

// fail marks a handle broken and drops any registration it held, so a
// handle is never registered and failed at the same time.
func (r *Registry) fail(handle proto.Handle) {
	if id, ok := r.ids[handle]; ok {
		delete(r.ids, handle)
		if r.handles[id] == handle {
			delete(r.handles, id)
		}
	}
	r.failed[handle] = struct{}{}
}

// Unregister removes all cached state for a handle and re-registers every
// recorded dependent, best-effort. A dependent whose raw prototype no
// longer exists is silently skipped; unload ordering is not guaranteed, so
// a parent may be dropped before its children.
func (r *Registry) Unregister(handle proto.Handle, store proto.Store, config tree.Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.ids[handle]; ok {
		delete(r.ids, handle)
		if r.handles[id] == handle {
			delete(r.handles, id)
		}
	}
	delete(r.trees, handle)
	delete(r.failed, handle)
	r.queue.Dequeue(handle)

	r.cascade(handle, store, config, map[proto.Handle]struct{}{handle: {}})
}

// Reload re-resolves a handle whose raw prototype changed in place, then
// re-registers everything that depended on it.
func (r *Registry) Reload(handle proto.Handle, store proto.Store, config tree.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.register(handle, store, config)
	r.cascade(handle, store, config, map[proto.Handle]struct{}{handle: {}})
	return err
}

// cascade re-registers the dependents of handle, transitively. The visited
// set bounds the walk when ignored cycles leave mutually-dependent trees.
func (r *Registry) cascade(handle proto.Handle, store proto.Store, config tree.Config, visited map[proto.Handle]struct{}) {
	deps := r.dependents[handle]
	delete(r.dependents, handle)

	for dep := range deps {
		if _, seen := visited[dep]; seen {
			continue
		}
		visited[dep] = struct{}{}

		if _, ok := store.Get(dep); !ok {
			continue
		}
		if err := r.register(dep, store, config); err != nil {
			logging.Get(logging.CategoryRegistry).Warnf("re-register dependent %s: %v", dep, err)
		}
		r.cascade(dep, store, config, visited)
	}
}

// Contains reports whether a prototype with the given identifier is
// registered.
func (r *Registry) Contains(id proto.ID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handles[id]
	return ok
}

// ContainsHandle reports whether the handle is registered.
func (r *Registry) ContainsHandle(h proto.Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ids[h]
	return ok
}

// ContainsFailedHandle reports whether the handle's last registration
// attempt failed.
func (r *Registry) ContainsFailedHandle(h proto.Handle) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.failed[h]
	return ok
}

// Handle returns the canonical handle registered for an identifier.
func (r *Registry) Handle(id proto.ID) (proto.Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[id]
	return h, ok
}

// ID returns the identifier registered for a handle.
func (r *Registry) ID(h proto.Handle) (proto.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[h]
	return id, ok
}

// Tree returns a clone of the resolved tree cached for a handle. Cloning
// keeps the cached tree isolated from whatever the caller does with it.
func (r *Registry) Tree(h proto.Handle) (*tree.ProtoTree, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.trees[h]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// TreeByID is Tree keyed by identifier.
func (r *Registry) TreeByID(id proto.ID) (*tree.ProtoTree, bool) {
	r.mu.RLock()
	h, ok := r.handles[id]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return r.Tree(h)
}

// cacheView exposes the registry's cache and dependency index to the tree
// builder without re-locking; the registry's write lock is already held for
// the duration of the build.
type cacheView struct {
	r *Registry
}

func (c cacheView) Tree(h proto.Handle) (*tree.ProtoTree, bool) {
	t, ok := c.r.trees[h]
	return t, ok
}

func (c cacheView) InsertTree(h proto.Handle, t *tree.ProtoTree) {
	c.r.trees[h] = t
}

func (c cacheView) AddDependent(dependency, dependent proto.Handle) {
	set, ok := c.r.dependents[dependency]
	if !ok {
		set = make(map[proto.Handle]struct{})
		c.r.dependents[dependency] = set
	}
	set[dependent] = struct{}{}
}
