package tree

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoforge/internal/cycles"
	"protoforge/internal/proto"
)

// graph builds small prototype stores by identifier.
type graph struct {
	store   *proto.MemStore
	handles map[string]proto.Handle
}

func newGraph() *graph {
	return &graph{
		store:   proto.NewMemStore(),
		handles: make(map[string]proto.Handle),
	}
}

func (g *graph) add(id string, requiresEntity bool) proto.Handle {
	h := proto.NewHandle()
	g.handles[id] = h
	g.store.Put(h, &proto.Prototype{
		ID:             proto.ID(id),
		RequiresEntity: requiresEntity,
		Schematics:     proto.NewSchematics(),
	})
	return h
}

func (g *graph) proto(id string) *proto.Prototype {
	p, ok := g.store.Get(g.handles[id])
	if !ok {
		panic("unknown prototype " + id)
	}
	return p
}

func (g *graph) template(id, templateID string) {
	p := g.proto(id)
	p.Templates = append(p.Templates, g.handles[templateID])
}

func (g *graph) child(id, childID, mergeKey string) {
	p := g.proto(id)
	p.Children = append(p.Children, proto.Child{MergeKey: mergeKey, Handle: g.handles[childID]})
}

func (g *graph) schematic(id string, sch proto.Schematic) {
	g.proto(id).Schematics.Insert(sch)
}

// mapCache is a standalone Cache for builder tests.
type mapCache struct {
	trees   map[proto.Handle]*ProtoTree
	deps    map[proto.Handle]map[proto.Handle]struct{}
	inserts map[proto.Handle]int
}

func newMapCache() *mapCache {
	return &mapCache{
		trees:   make(map[proto.Handle]*ProtoTree),
		deps:    make(map[proto.Handle]map[proto.Handle]struct{}),
		inserts: make(map[proto.Handle]int),
	}
}

func (c *mapCache) Tree(h proto.Handle) (*ProtoTree, bool) {
	t, ok := c.trees[h]
	return t, ok
}

func (c *mapCache) InsertTree(h proto.Handle, t *ProtoTree) {
	c.trees[h] = t
	c.inserts[h]++
}

func (c *mapCache) AddDependent(dependency, dependent proto.Handle) {
	set, ok := c.deps[dependency]
	if !ok {
		set = make(map[proto.Handle]struct{})
		c.deps[dependency] = set
	}
	set[dependent] = struct{}{}
}

func (g *graph) build(id string, config Config) (*mapCache, *ProtoTree, error) {
	cache := newMapCache()
	builder := NewBuilder(cache, g.store, config)
	if err := builder.Build(g.handles[id]); err != nil {
		return cache, nil, err
	}
	return cache, cache.trees[g.handles[id]], nil
}

func ignorePolicy(*cycles.Cycle) cycles.Response { return cycles.Ignore }

func escalatePolicy(*cycles.Cycle) cycles.Response { return cycles.Escalate }

func TestBuildSingle(t *testing.T) {
	g := newGraph()
	g.add("A", true)

	_, tr, err := g.build("A", Config{})
	require.NoError(t, err)

	assert.Equal(t, []proto.Handle{g.handles["A"]}, tr.Prototypes())
	assert.Empty(t, tr.Children())
	assert.True(t, tr.RequiresEntity())
}

func TestBuildTemplateClosure(t *testing.T) {
	t.Run("chain", func(t *testing.T) {
		g := newGraph()
		g.add("A", true)
		g.add("B", false)
		g.add("C", false)
		g.template("A", "B")
		g.template("B", "C")

		_, tr, err := g.build("A", Config{})
		require.NoError(t, err)

		want := []proto.Handle{g.handles["A"], g.handles["B"], g.handles["C"]}
		assert.Equal(t, want, tr.Prototypes())
	})

	t.Run("diamond has no duplicates", func(t *testing.T) {
		g := newGraph()
		g.add("A", true)
		g.add("B", false)
		g.add("C", false)
		g.add("D", false)
		g.template("A", "B")
		g.template("A", "C")
		g.template("B", "D")
		g.template("C", "D")

		_, tr, err := g.build("A", Config{})
		require.NoError(t, err)

		assert.Len(t, tr.Prototypes(), 4)
		assert.Equal(t, g.handles["A"], tr.Prototypes()[0])
	})
}

func TestBuildMergeKeyUnification(t *testing.T) {
	g := newGraph()
	g.add("A", true)
	g.add("B", true)
	g.add("C", true)
	g.add("D", true)
	g.template("A", "B")
	g.child("B", "C", "slot")
	g.child("A", "D", "slot")

	_, tr, err := g.build("A", Config{})
	require.NoError(t, err)

	// A's own child D claims the slot first (children resolve before
	// templates); B's child C merges into it.
	require.Len(t, tr.Children(), 1)
	merged := tr.Children()[0]
	assert.Equal(t, proto.ID("D"), merged.ID())
	assert.Contains(t, merged.Prototypes(), g.handles["D"])
	assert.Contains(t, merged.Prototypes(), g.handles["C"])
	assert.Equal(t, g.handles["D"], merged.Prototypes()[0])
}

func TestBuildCycleCancel(t *testing.T) {
	g := newGraph()
	g.add("A", true)
	g.add("B", true)
	g.add("C", true)
	g.template("A", "B")
	g.template("B", "C")
	g.template("C", "A")

	_, _, err := g.build("A", Config{})
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.False(t, cycleErr.Fatal)
	assert.Equal(t, []proto.ID{"A", "B", "C", "A"}, cycleErr.Cycle.IterFull())
	assert.Equal(t, `"A" inherits "B" which inherits "C" which inherits "A"`, cycleErr.Cycle.String())
}

func TestBuildCycleIgnore(t *testing.T) {
	t.Run("template cycle drops edge, keeps siblings", func(t *testing.T) {
		g := newGraph()
		g.add("A", true)
		g.add("B", false)
		g.add("D", false)
		g.template("A", "B")
		g.template("A", "D")
		g.template("B", "A")

		_, tr, err := g.build("A", Config{OnCycle: ignorePolicy})
		require.NoError(t, err)

		assert.Contains(t, tr.Prototypes(), g.handles["B"])
		assert.Contains(t, tr.Prototypes(), g.handles["D"])
	})

	t.Run("child cycle drops edge, keeps siblings", func(t *testing.T) {
		g := newGraph()
		g.add("A", true)
		g.add("B", true)
		g.add("C", true)
		g.child("A", "B", "")
		g.child("A", "C", "")
		g.child("B", "A", "")

		_, tr, err := g.build("A", Config{OnCycle: ignorePolicy})
		require.NoError(t, err)

		require.Len(t, tr.Children(), 2)
		assert.Equal(t, proto.ID("B"), tr.Children()[0].ID())
		assert.Equal(t, proto.ID("C"), tr.Children()[1].ID())
		assert.Empty(t, tr.Children()[0].Children())
	})
}

func TestBuildCycleEscalate(t *testing.T) {
	g := newGraph()
	g.add("A", true)
	g.add("B", true)
	g.template("A", "B")
	g.template("B", "A")

	_, _, err := g.build("A", Config{OnCycle: escalatePolicy})
	require.Error(t, err)

	var cycleErr *CycleError
	require.ErrorAs(t, err, &cycleErr)
	assert.True(t, cycleErr.Fatal)
}

func TestBuildMissingDependency(t *testing.T) {
	g := newGraph()
	g.add("A", true)
	g.proto("A").Templates = append(g.proto("A").Templates, proto.NewHandle())

	_, _, err := g.build("A", Config{})
	require.Error(t, err)

	var missing *proto.MissingError
	assert.ErrorAs(t, err, &missing)
}

func TestBuildRequiresEntityViolation(t *testing.T) {
	t.Run("non-materializing node with children fails", func(t *testing.T) {
		g := newGraph()
		g.add("A", false)
		g.add("C", true)
		g.child("A", "C", "")

		_, _, err := g.build("A", Config{})
		require.Error(t, err)

		var reqErr *RequiresEntityError
		require.ErrorAs(t, err, &reqErr)
		assert.Equal(t, proto.ID("A"), reqErr.ID)
	})

	t.Run("inherited requires-entity satisfies the invariant", func(t *testing.T) {
		g := newGraph()
		g.add("A", false)
		g.add("B", true)
		g.add("C", true)
		g.template("A", "B")
		g.child("A", "C", "")

		_, tr, err := g.build("A", Config{})
		require.NoError(t, err)
		assert.True(t, tr.RequiresEntity())
	})
}

func TestBuildMemoization(t *testing.T) {
	g := newGraph()
	g.add("A", true)
	g.add("E", true)
	g.child("A", "E", "")
	g.child("A", "E", "")

	cache, tr, err := g.build("A", Config{})
	require.NoError(t, err)

	assert.Len(t, tr.Children(), 2)
	assert.Equal(t, 1, cache.inserts[g.handles["E"]])
}

func TestBuildRegistersDependents(t *testing.T) {
	g := newGraph()
	g.add("A", true)
	g.add("B", false)
	g.add("C", true)
	g.template("A", "B")
	g.child("A", "C", "")

	cache, _, err := g.build("A", Config{})
	require.NoError(t, err)

	assert.Contains(t, cache.deps[g.handles["B"]], g.handles["A"])
	assert.Contains(t, cache.deps[g.handles["C"]], g.handles["A"])
}

func TestBuildUnknownHandle(t *testing.T) {
	g := newGraph()
	cache := newMapCache()
	builder := NewBuilder(cache, g.store, Config{})

	err := builder.Build(proto.NewHandle())
	require.Error(t, err)

	var missing *proto.MissingError
	assert.True(t, errors.As(err, &missing))
}
