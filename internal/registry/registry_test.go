package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoforge/internal/proto"
	"protoforge/internal/tree"
)

type fixture struct {
	store   *proto.MemStore
	handles map[string]proto.Handle
}

func newFixture() *fixture {
	return &fixture{
		store:   proto.NewMemStore(),
		handles: make(map[string]proto.Handle),
	}
}

func (f *fixture) add(id string, requiresEntity bool) proto.Handle {
	h := proto.NewHandle()
	f.handles[id] = h
	f.store.Put(h, &proto.Prototype{
		ID:             proto.ID(id),
		RequiresEntity: requiresEntity,
		Schematics:     proto.NewSchematics(),
	})
	return h
}

func (f *fixture) proto(id string) *proto.Prototype {
	p, _ := f.store.Get(f.handles[id])
	return p
}

func (f *fixture) template(id, templateID string) {
	p := f.proto(id)
	p.Templates = append(p.Templates, f.handles[templateID])
}

func TestRegisterAndQueries(t *testing.T) {
	f := newFixture()
	hA := f.add("A", true)
	hB := f.add("B", false)
	f.template("A", "B")

	r := New()
	r.Queue().Enqueue(hA, "A")

	require.NoError(t, r.Register(hA, f.store, tree.Config{}))

	assert.True(t, r.Contains("A"))
	assert.True(t, r.ContainsHandle(hA))
	assert.False(t, r.ContainsFailedHandle(hA))
	assert.False(t, r.Queue().IsQueuedHandle(hA))

	id, ok := r.ID(hA)
	require.True(t, ok)
	assert.Equal(t, proto.ID("A"), id)

	h, ok := r.Handle("A")
	require.True(t, ok)
	assert.Equal(t, hA, h)

	tr, ok := r.Tree(hA)
	require.True(t, ok)
	assert.Equal(t, []proto.Handle{hA, hB}, tr.Prototypes())

	trByID, ok := r.TreeByID("A")
	require.True(t, ok)
	assert.Equal(t, tr.Prototypes(), trByID.Prototypes())

	// Templates are resolved into the cache but not registered by id.
	assert.False(t, r.Contains("B"))
}

func TestRegisterMissingPrototype(t *testing.T) {
	f := newFixture()
	r := New()

	h := proto.NewHandle()
	err := r.Register(h, f.store, tree.Config{})
	require.Error(t, err)

	var missing *proto.MissingError
	assert.ErrorAs(t, err, &missing)
	assert.True(t, r.ContainsFailedHandle(h))
	assert.False(t, r.ContainsHandle(h))
}

func TestRegisterBrokenDependencyMarksFailed(t *testing.T) {
	f := newFixture()
	hA := f.add("A", true)
	f.proto("A").Templates = append(f.proto("A").Templates, proto.NewHandle())

	r := New()
	err := r.Register(hA, f.store, tree.Config{})
	require.Error(t, err)
	assert.True(t, r.ContainsFailedHandle(hA))

	// A successful re-register after the data is fixed clears the mark.
	f.proto("A").Templates = nil
	require.NoError(t, r.Register(hA, f.store, tree.Config{}))
	assert.False(t, r.ContainsFailedHandle(hA))
}

func TestRegisterIDCollision(t *testing.T) {
	f := newFixture()
	h1 := f.add("A", true)

	h2 := proto.NewHandle()
	f.store.Put(h2, &proto.Prototype{ID: "A", RequiresEntity: true, Schematics: proto.NewSchematics()})

	r := New()
	require.NoError(t, r.Register(h1, f.store, tree.Config{}))

	err := r.Register(h2, f.store, tree.Config{})
	require.Error(t, err)

	var collision *AlreadyExistsError
	require.ErrorAs(t, err, &collision)
	assert.Equal(t, proto.ID("A"), collision.ID)
	assert.Equal(t, h1, collision.Existing)
	assert.Equal(t, h2, collision.Handle)

	// The original registration is untouched; the loser is failed.
	assert.True(t, r.ContainsHandle(h1))
	assert.True(t, r.ContainsFailedHandle(h2))

	got, _ := r.Handle("A")
	assert.Equal(t, h1, got)
}

func TestReregisterSameHandle(t *testing.T) {
	f := newFixture()
	hA := f.add("A", true)

	r := New()
	require.NoError(t, r.Register(hA, f.store, tree.Config{}))

	// The same handle claiming the same id is a reload, not a collision.
	hB := f.add("B", false)
	f.template("A", "B")
	require.NoError(t, r.Register(hA, f.store, tree.Config{}))

	tr, ok := r.Tree(hA)
	require.True(t, ok)
	assert.Equal(t, []proto.Handle{hA, hB}, tr.Prototypes())
}

func TestReloadWithRenamedID(t *testing.T) {
	f := newFixture()
	hA := f.add("Old", true)

	r := New()
	require.NoError(t, r.Register(hA, f.store, tree.Config{}))
	require.True(t, r.Contains("Old"))

	// The document behind the handle is renamed in place.
	f.store.Put(hA, &proto.Prototype{ID: "New", RequiresEntity: true, Schematics: proto.NewSchematics()})
	require.NoError(t, r.Reload(hA, f.store, tree.Config{}))

	assert.False(t, r.Contains("Old"))
	assert.True(t, r.Contains("New"))

	id, ok := r.ID(hA)
	require.True(t, ok)
	assert.Equal(t, proto.ID("New"), id)

	_, ok = r.TreeByID("Old")
	assert.False(t, ok)

	// The vacated id is free for another handle to claim.
	hB := proto.NewHandle()
	f.store.Put(hB, &proto.Prototype{ID: "Old", RequiresEntity: true, Schematics: proto.NewSchematics()})
	require.NoError(t, r.Register(hB, f.store, tree.Config{}))
	assert.True(t, r.Contains("Old"))
}

func TestFailedReregisterClearsRegistration(t *testing.T) {
	f := newFixture()
	hA := f.add("A", true)

	r := New()
	require.NoError(t, r.Register(hA, f.store, tree.Config{}))

	// The prototype breaks in place; re-registration must not leave the
	// handle both registered and failed.
	f.proto("A").Templates = append(f.proto("A").Templates, proto.NewHandle())
	require.Error(t, r.Register(hA, f.store, tree.Config{}))

	assert.True(t, r.ContainsFailedHandle(hA))
	assert.False(t, r.ContainsHandle(hA))
	assert.False(t, r.Contains("A"))
}

func TestUnregisterCascade(t *testing.T) {
	t.Run("dependent is re-registered", func(t *testing.T) {
		f := newFixture()
		hA := f.add("A", true)
		hB := f.add("B", false)
		f.template("A", "B")

		r := New()
		require.NoError(t, r.Register(hB, f.store, tree.Config{}))
		require.NoError(t, r.Register(hA, f.store, tree.Config{}))

		r.Unregister(hB, f.store, tree.Config{})

		assert.False(t, r.ContainsHandle(hB))
		assert.False(t, r.Contains("B"))

		// A survives: its raw prototype still resolves B from the store.
		assert.True(t, r.ContainsHandle(hA))
		tr, ok := r.Tree(hA)
		require.True(t, ok)
		assert.Contains(t, tr.Prototypes(), hB)
	})

	t.Run("dependent with a dangling reference is failed, not dropped silently", func(t *testing.T) {
		f := newFixture()
		hA := f.add("A", true)
		hB := f.add("B", false)
		f.template("A", "B")

		r := New()
		require.NoError(t, r.Register(hB, f.store, tree.Config{}))
		require.NoError(t, r.Register(hA, f.store, tree.Config{}))

		f.store.Delete(hB)
		r.Unregister(hB, f.store, tree.Config{})

		assert.True(t, r.ContainsFailedHandle(hA))
	})

	t.Run("vanished dependent is skipped", func(t *testing.T) {
		f := newFixture()
		hA := f.add("A", true)
		hB := f.add("B", false)
		f.template("A", "B")

		r := New()
		require.NoError(t, r.Register(hB, f.store, tree.Config{}))
		require.NoError(t, r.Register(hA, f.store, tree.Config{}))

		f.store.Delete(hA)
		f.store.Delete(hB)
		r.Unregister(hB, f.store, tree.Config{})

		assert.False(t, r.ContainsFailedHandle(hA))
	})
}

func TestReloadPropagatesToDependents(t *testing.T) {
	f := newFixture()
	hA := f.add("A", true)
	hB := f.add("B", false)
	f.template("A", "B")

	r := New()
	require.NoError(t, r.Register(hB, f.store, tree.Config{}))
	require.NoError(t, r.Register(hA, f.store, tree.Config{}))

	// B grows a new template; A's cached tree must pick it up.
	hC := f.add("C", false)
	f.template("B", "C")
	require.NoError(t, r.Reload(hB, f.store, tree.Config{}))

	tr, ok := r.Tree(hA)
	require.True(t, ok)
	assert.Contains(t, tr.Prototypes(), hC)
}

func TestLoadQueue(t *testing.T) {
	q := NewLoadQueue()
	h1 := proto.NewHandle()
	h2 := proto.NewHandle()

	q.Enqueue(h1, "A")
	q.Enqueue(h1, "A") // duplicate is a no-op
	q.Enqueue(h2, "A") // second handle claiming the same id

	assert.Equal(t, 2, q.Len())
	assert.True(t, q.IsQueued("A"))
	assert.True(t, q.IsQueuedHandle(h1))

	q.Dequeue(h1)
	assert.True(t, q.IsQueued("A"))
	assert.False(t, q.IsQueuedHandle(h1))

	q.Dequeue(h2)
	assert.False(t, q.IsQueued("A"))
	assert.Equal(t, 0, q.Len())

	q.Dequeue(h2) // dequeueing an absent handle is fine
}
