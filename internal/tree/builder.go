package tree

import (
	"protoforge/internal/cycles"
	"protoforge/internal/logging"
	"protoforge/internal/proto"
)

// Cache is the slice of the registry the builder needs: the per-handle tree
// cache and the reverse-dependency index. The registry implements it with
// its write lock already held, so these methods must not re-enter the
// registry's public API.
type Cache interface {
	// Tree returns the cached resolved tree for a handle, if present.
	Tree(h proto.Handle) (*ProtoTree, bool)
	// InsertTree caches the resolved tree for a handle.
	InsertTree(h proto.Handle, t *ProtoTree)
	// AddDependent records that dependent's resolved tree incorporated
	// dependency, so a change to dependency invalidates dependent.
	AddDependent(dependency, dependent proto.Handle)
}

// Config carries the host-tunable resolution behavior.
type Config struct {
	// OnCycle decides how a detected cycle is handled. Nil defaults to
	// cancel.
	OnCycle cycles.Policy
}

func (c Config) onCycle(cycle *cycles.Cycle) cycles.Response {
	if c.OnCycle == nil {
		return cycles.Cancel
	}
	return c.OnCycle(cycle)
}

// Builder transforms one raw prototype handle into a cached, fully-resolved
// ProtoTree, recursively resolving templates and children while guaranteeing
// termination on malformed cyclic input.
type Builder struct {
	cache  Cache
	store  proto.Store
	config Config
}

func NewBuilder(cache Cache, store proto.Store, config Config) *Builder {
	return &Builder{cache: cache, store: store, config: config}
}

// Build resolves the prototype behind the given handle into the cache.
func (b *Builder) Build(handle proto.Handle) error {
	prototype, ok := b.store.Get(handle)
	if !ok {
		return &proto.MissingError{Handle: handle}
	}

	checker := cycles.NewChecker(prototype.ID)
	_, err := b.recursiveBuild(prototype, handle, "", checker)
	return err
}

// recursiveBuild resolves one node. A memoized handle returns a clone of
// the cached tree so callers can merge into it without touching the cache.
func (b *Builder) recursiveBuild(prototype *proto.Prototype, handle proto.Handle, mergeKey string, checker *cycles.Checker) (*ProtoTree, error) {
	if cached, ok := b.cache.Tree(handle); ok {
		return cached.Clone(), nil
	}

	t := newProtoTree(handle, mergeKey, prototype)

	if err := b.recurseChildren(prototype, t, checker); err != nil {
		return nil, err
	}
	if err := b.recurseTemplates(prototype, t, checker); err != nil {
		return nil, err
	}

	if !t.RequiresEntity() && len(t.Children()) > 0 {
		return nil, &RequiresEntityError{ID: prototype.ID}
	}

	b.cache.InsertTree(handle, t)
	logging.Get(logging.CategoryTree).Debugf("resolved %q (%d prototypes, %d children)",
		string(prototype.ID), len(t.Prototypes()), len(t.Children()))
	return t.Clone(), nil
}

func (b *Builder) recurseChildren(prototype *proto.Prototype, t *ProtoTree, checker *cycles.Checker) error {
	for _, child := range prototype.Children {
		childProto, ok := b.store.Get(child.Handle)
		if !ok {
			return &proto.MissingError{Handle: child.Handle}
		}

		b.cache.AddDependent(child.Handle, t.Handle())

		if cycle := checker.TryPush(cycles.Child(childProto.ID)); cycle != nil {
			skip, err := b.handleCycle(cycle)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			return nil
		}

		childTree, err := b.recursiveBuild(childProto, child.Handle, child.MergeKey, checker)
		if err != nil {
			checker.Pop()
			return err
		}
		if childTree != nil {
			t.appendChild(childTree)
		}
		checker.Pop()
	}
	return nil
}

func (b *Builder) recurseTemplates(prototype *proto.Prototype, t *ProtoTree, checker *cycles.Checker) error {
	for _, templateHandle := range prototype.Templates {
		templateProto, ok := b.store.Get(templateHandle)
		if !ok {
			return &proto.MissingError{Handle: templateHandle}
		}

		b.cache.AddDependent(templateHandle, t.Handle())

		if cycle := checker.TryPush(cycles.Template(templateProto.ID)); cycle != nil {
			skip, err := b.handleCycle(cycle)
			if err != nil {
				return err
			}
			if skip {
				continue
			}
			return nil
		}

		templateTree, err := b.recursiveBuild(templateProto, templateHandle, "", checker)
		if err != nil {
			checker.Pop()
			return err
		}
		if templateTree != nil {
			t.inherit(templateTree)
		}
		checker.Pop()
	}
	return nil
}

// handleCycle consults the configured cycle policy. It returns true when
// the cyclic edge should be skipped and sibling resolution should continue.
func (b *Builder) handleCycle(cycle *cycles.Cycle) (bool, error) {
	switch b.config.onCycle(cycle) {
	case cycles.Ignore:
		logging.Get(logging.CategoryTree).Warnf("ignoring prototype cycle: %s", cycle)
		return true, nil
	case cycles.Escalate:
		return false, &CycleError{Cycle: cycle, Fatal: true}
	default:
		return false, &CycleError{Cycle: cycle}
	}
}
