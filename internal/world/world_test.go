package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"protoforge/internal/proto"
)

func TestSpawnAndHierarchy(t *testing.T) {
	w := New()

	parent := w.Spawn()
	child := w.Spawn()
	w.AddChild(parent, child)

	assert.True(t, w.Contains(parent))
	assert.True(t, w.Contains(child))
	assert.Equal(t, 2, w.Len())

	got, ok := w.Parent(child)
	require.True(t, ok)
	assert.Equal(t, parent, got)
	assert.Equal(t, child, w.Children(parent)[0])
}

func TestDespawnDetaches(t *testing.T) {
	w := New()

	parent := w.Spawn()
	child := w.Spawn()
	grandchild := w.Spawn()
	w.AddChild(parent, child)
	w.AddChild(child, grandchild)

	w.Despawn(child)

	assert.False(t, w.Contains(child))
	assert.Empty(t, w.Children(parent))

	// Orphaned, not removed.
	assert.True(t, w.Contains(grandchild))
	_, ok := w.Parent(grandchild)
	assert.False(t, ok)
}

func TestInstanceLookup(t *testing.T) {
	w := New()
	parent := w.Spawn()

	inst := Instance{Handle: proto.NewHandle(), ChildIndex: 0}
	child := w.SpawnInstance(inst)
	w.AddChild(parent, child)

	got, ok := w.InstanceOf(child)
	require.True(t, ok)
	assert.Equal(t, inst, got)

	_, ok = w.InstanceOf(parent)
	assert.False(t, ok)

	found, ok := w.FindInstance(parent, inst)
	require.True(t, ok)
	assert.Equal(t, child, found)

	// A different slot under the same parent is a different instance.
	_, ok = w.FindInstance(parent, Instance{Handle: inst.Handle, ChildIndex: 1})
	assert.False(t, ok)
}

func TestComponents(t *testing.T) {
	w := New()
	e := w.Spawn()

	w.SetComponent(e, "name", "turret")
	got, ok := w.Component(e, "name")
	require.True(t, ok)
	assert.Equal(t, "turret", got)

	all := w.Components(e)
	assert.Equal(t, map[string]any{"name": "turret"}, all)

	// The returned map is a copy.
	all["name"] = "mutated"
	got, _ = w.Component(e, "name")
	assert.Equal(t, "turret", got)

	w.RemoveComponent(e, "name")
	_, ok = w.Component(e, "name")
	assert.False(t, ok)
}
