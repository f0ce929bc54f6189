package quadtree

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"github.com/Faultbox/quadsphere/internal/terrain/meshgen"
	"github.com/Faultbox/quadsphere/pkg/quadindex"
)

// Patch is the render resource of a visible quad. Patches are recycled through
// a PatchPool, so the same ID shows up for different quads over time.
type Patch struct {
	ID     uuid.UUID
	Quad   quadindex.Index
	Active bool

	// Position and Rotation place the mesh in world space: Position is the
	// mesh offset after the planet transform.
	Position mgl64.Vec3
	Rotation mgl64.Quat

	Mesh      *meshgen.MeshData
	Triangles []uint32
}

// Sink receives the render patches of a tree. Calls happen on the goroutine
// running Tick; the sink must not retain the mesh slices beyond Released.
type Sink interface {
	// PatchCreated binds a patch, new or recycled, to a quad. It starts inactive.
	PatchCreated(p *Patch)
	// PatchUpdated reports new triangles or mesh data.
	PatchUpdated(p *Patch)
	// PatchMoved reports a changed world transform.
	PatchMoved(p *Patch)
	// PatchActivated makes the patch visible.
	PatchActivated(p *Patch)
	// PatchReleased unbinds the patch from its quad and hides it.
	PatchReleased(p *Patch)
}

// NopSink discards every event.
type NopSink struct{}

func (NopSink) PatchCreated(*Patch)   {}
func (NopSink) PatchUpdated(*Patch)   {}
func (NopSink) PatchMoved(*Patch)     {}
func (NopSink) PatchActivated(*Patch) {}
func (NopSink) PatchReleased(*Patch)  {}

// DefaultPatchPoolSize bounds the number of idle patches kept for reuse.
const DefaultPatchPoolSize = 30

// PatchPool recycles patches. Idle patches beyond the size limit are dropped.
type PatchPool struct {
	size    int
	idle    []*Patch
	created int
}

// NewPatchPool creates a pool keeping at most size idle patches.
func NewPatchPool(size int) *PatchPool {
	if size < 0 {
		size = 0
	}
	return &PatchPool{size: size}
}

// Get returns an inactive patch, reusing the most recently released one.
func (p *PatchPool) Get() *Patch {
	if n := len(p.idle); n > 0 {
		patch := p.idle[n-1]
		p.idle = p.idle[:n-1]
		return patch
	}
	p.created++
	return &Patch{ID: uuid.New()}
}

// Put deactivates patch and keeps it for reuse if there is room. It reports
// whether the patch was kept.
func (p *PatchPool) Put(patch *Patch) bool {
	patch.Active = false
	patch.Mesh = nil
	patch.Triangles = nil
	patch.Quad = 0
	if len(p.idle) >= p.size {
		return false
	}
	p.idle = append(p.idle, patch)
	return true
}

// Idle returns the number of pooled patches.
func (p *PatchPool) Idle() int { return len(p.idle) }

// Created returns how many patches were ever allocated.
func (p *PatchPool) Created() int { return p.created }
