package quadtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaStaleHandles(t *testing.T) {
	var a arena
	q := a.alloc()
	id := q.ID()
	require.True(t, id.Valid())
	require.Same(t, q, a.get(id))

	other := a.alloc()
	assert.Equal(t, 2, a.Len())

	a.release(id)
	assert.Nil(t, a.get(id))
	assert.Equal(t, 1, a.Len())

	reused := a.alloc()
	assert.Equal(t, id.slot, reused.ID().slot)
	assert.NotEqual(t, id, reused.ID())
	assert.Nil(t, a.get(id))
	assert.Same(t, reused, a.get(reused.ID()))

	assert.Equal(t, []QuadID{reused.ID(), other.ID()}, a.ids())
	assert.Nil(t, a.get(NoQuad))
	assert.Equal(t, "quad(none)", NoQuad.String())
}

func TestPatchPoolReuse(t *testing.T) {
	pool := NewPatchPool(1)

	p1 := pool.Get()
	p2 := pool.Get()
	assert.NotEqual(t, p1.ID, p2.ID)
	assert.Equal(t, 2, pool.Created())

	p1.Active = true
	p1.Triangles = []uint32{0, 1, 2}
	assert.True(t, pool.Put(p1))
	assert.False(t, pool.Put(p2))
	assert.Equal(t, 1, pool.Idle())

	again := pool.Get()
	assert.Same(t, p1, again)
	assert.False(t, again.Active)
	assert.Nil(t, again.Triangles)
	assert.Equal(t, 2, pool.Created())
	assert.Zero(t, pool.Idle())
}
