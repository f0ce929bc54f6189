// Package topology precomputes the index buffers of a quad patch: the regular
// grid triangulation and the fan variants that drop every other (or every fourth)
// vertex along edges shared with coarser neighbors, so neighboring patches of
// different levels meet without cracks.
package topology

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/pkg/quadindex"
)

// ErrInvalidSideLength is returned for grid sizes the fan construction cannot handle.
var ErrInvalidSideLength = errors.New("invalid quad side length")

// Table holds the vertex grid and every triangulation variant for one side length.
// It is immutable after NewTable and safe for concurrent use.
type Table struct {
	sideLength int
	doubleFans bool

	plane         []mgl64.Vec3
	extendedPlane []mgl64.Vec3
	extendedTris  []uint32
	base          []uint32
	variants      map[EdgeConfiguration][]uint32
}

// NewTable builds the triangulations for an n×n vertex grid. n must be odd and at
// least 3. With doubleFans, level differences of two are supported as well, which
// additionally requires every fourth edge vertex to land on a corner, n = 4k+1.
func NewTable(n int, doubleFans bool) (*Table, error) {
	if n < 3 || n%2 == 0 {
		return nil, fmt.Errorf("%w: %d, must be odd and at least 3", ErrInvalidSideLength, n)
	}
	if doubleFans && (n-1)%4 != 0 {
		return nil, fmt.Errorf("%w: %d, double fans need n = 4k+1", ErrInvalidSideLength, n)
	}

	t := &Table{sideLength: n, doubleFans: doubleFans}
	t.plane, t.base = generatePlane(n)
	t.extendedPlane = extendedPlaneVerts(n, t.plane)
	t.extendedTris = extendedPlaneTris(n, t.base)

	right, left := quadindex.Right, quadindex.Left
	down, up := quadindex.Down, quadindex.Up
	t.variants = make(map[EdgeConfiguration][]uint32)
	levels := []int{1}
	if doubleFans {
		levels = append(levels, 2)
	}
	for _, lvl := range levels {
		step, num := 2*lvl, lvl
		one := func(dir quadindex.Direction) EdgeConfiguration { return EdgeNone.With(dir, lvl) }

		t.variants[one(right)] = fanRight(n, t.base, step, num)
		t.variants[one(left)] = fanLeft(n, t.base, step, num)
		t.variants[one(down)] = fanBottom(n, t.base, step, num)
		t.variants[one(up)] = fanTop(n, t.base, step, num)

		t.variants[one(right)|one(down)] = fanRightBottom(n, t.base, step, num)
		t.variants[one(right)|one(up)] = fanRightTop(n, t.base, step, num)
		t.variants[one(left)|one(down)] = fanLeftBottom(n, t.base, step, num)
		t.variants[one(left)|one(up)] = fanLeftTop(n, t.base, step, num)
	}
	return t, nil
}

// SideLength returns the number of vertices along one edge.
func (t *Table) SideLength() int { return t.sideLength }

// DoubleFans reports whether level differences of two are supported.
func (t *Table) DoubleFans() bool { return t.doubleFans }

// VertexCount returns the number of visible vertices, n².
func (t *Table) VertexCount() int { return len(t.plane) }

// Plane returns a copy of the n×n grid in [-1,1]² on the XZ plane.
func (t *Table) Plane() []mgl64.Vec3 {
	return append([]mgl64.Vec3(nil), t.plane...)
}

// ExtendedPlane returns a copy of the grid followed by a ring of 4(n+1) skirt
// vertices one cell outside it. The skirt only feeds normal computation.
func (t *Table) ExtendedPlane() []mgl64.Vec3 {
	return append([]mgl64.Vec3(nil), t.extendedPlane...)
}

// Extended returns the triangulation of the extended plane. The returned slice is shared.
func (t *Table) Extended() []uint32 { return t.extendedTris }

// Base returns the regular grid triangulation. The returned slice is shared.
func (t *Table) Base() []uint32 { return t.base }

// Triangles returns the triangulation for conf. Configurations without a
// precomputed fan fall back to the base grid. The returned slice is shared.
func (t *Table) Triangles(conf EdgeConfiguration) []uint32 {
	if tris, ok := t.variants[conf]; ok {
		return tris
	}
	return t.base
}

// Supported reports whether conf has a dedicated fan variant.
func (t *Table) Supported(conf EdgeConfiguration) bool {
	if conf == EdgeNone {
		return true
	}
	_, ok := t.variants[conf]
	return ok
}
