package quadtree

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/terrain/meshgen"
	"github.com/Faultbox/quadsphere/internal/terrain/topology"
	"github.com/Faultbox/quadsphere/pkg/quadindex"
)

// State is the subdivision state of a quad.
type State int

const (
	// Leaf quads have no children.
	Leaf State = iota
	// Splitting quads own four children whose meshes are still generating.
	Splitting
	// Split quads have four initialized children and render nothing themselves.
	Split
)

func (s State) String() string {
	switch s {
	case Splitting:
		return "splitting"
	case Split:
		return "split"
	}
	return "leaf"
}

// Quad is one node of the forest. Fields are owned by the Tree and only change
// inside Tick; a *Quad obtained from the Tree is valid until the next Tick.
type Quad struct {
	id    QuadID
	index quadindex.Index
	level int

	plane       meshgen.Plane
	side        meshgen.Side
	scale       float64
	translation mgl64.Vec3
	rotation    mgl64.Quat

	parent   QuadID
	children *[4]QuadID
	// splitNext is the next child checked while splitting.
	splitNext int

	neighborIdx *[4]quadindex.Index
	neighbors   [4]QuadID
	edges       topology.EdgeConfiguration

	state       State
	initialized bool
	gen         meshgen.Handle
	mesh        *meshgen.MeshData

	distance float64
	visible  bool
	inQueue  bool
	patch    *Patch
}

func (q *Quad) ID() QuadID                       { return q.id }
func (q *Quad) Index() quadindex.Index           { return q.index }
func (q *Quad) Level() int                       { return q.level }
func (q *Quad) State() State                     { return q.state }
func (q *Quad) Parent() QuadID                   { return q.parent }
func (q *Quad) Initialized() bool                { return q.initialized }
func (q *Quad) Mesh() *meshgen.MeshData          { return q.mesh }
func (q *Quad) Edges() topology.EdgeConfiguration { return q.edges }
func (q *Quad) Visible() bool                    { return q.visible }
func (q *Quad) Patch() *Patch                    { return q.patch }
func (q *Quad) InQueue() bool                    { return q.inQueue }

// Distance is the squared distance from the viewer to the mesh bounds.
func (q *Quad) Distance() float64 { return q.distance }

// Children returns the four child handles, or false for a leaf.
func (q *Quad) Children() ([4]QuadID, bool) {
	if q.children == nil {
		return [4]QuadID{}, false
	}
	return *q.children, true
}

// Neighbors returns the neighbor handles found by the last refresh. Missing
// neighbors are NoQuad.
func (q *Quad) Neighbors() [4]QuadID { return q.neighbors }

func (q *Quad) job() meshgen.Job {
	return meshgen.Job{
		Index:       q.index,
		Level:       q.level,
		Plane:       q.plane,
		Side:        q.side,
		Scale:       q.scale,
		Translation: q.translation,
		Rotation:    q.rotation,
	}
}

// face places one root quad on the unit cube.
type face struct {
	index       quadindex.Index
	plane       meshgen.Plane
	side        meshgen.Side
	translation mgl64.Vec3
	rotation    mgl64.Quat
}

// euler builds a rotation applied about Z, then X, then Y, angles in degrees.
func euler(x, y, z float64) mgl64.Quat {
	qx := mgl64.QuatRotate(mgl64.DegToRad(x), mgl64.Vec3{1, 0, 0})
	qy := mgl64.QuatRotate(mgl64.DegToRad(y), mgl64.Vec3{0, 1, 0})
	qz := mgl64.QuatRotate(mgl64.DegToRad(z), mgl64.Vec3{0, 0, 1})
	return qy.Mul(qx).Mul(qz)
}

// faces lists the roots in the order of quadindex.Roots. Each rotation turns
// the +Y facing grid onto its face.
var faces = func() [6]face {
	roots := quadindex.Roots()
	return [6]face{
		{roots[0], meshgen.PlaneY, meshgen.Front, mgl64.Vec3{0, 1, 0}, euler(0, 180, 0)},
		{roots[1], meshgen.PlaneY, meshgen.Back, mgl64.Vec3{0, -1, 0}, euler(180, 180, 0)},
		{roots[2], meshgen.PlaneZ, meshgen.Front, mgl64.Vec3{0, 0, 1}, euler(270, 270, 270)},
		{roots[3], meshgen.PlaneZ, meshgen.Back, mgl64.Vec3{0, 0, -1}, euler(270, 0, 0)},
		{roots[4], meshgen.PlaneX, meshgen.Front, mgl64.Vec3{1, 0, 0}, euler(270, 0, 270)},
		{roots[5], meshgen.PlaneX, meshgen.Back, mgl64.Vec3{-1, 0, 0}, euler(270, 0, 90)},
	}
}()

// childOrder maps the k-th child position of childOffsets to its index digit,
// per plane and side.
var childOrder = [3][2][4]int{
	meshgen.PlaneX: {meshgen.Back: {3, 1, 0, 2}, meshgen.Front: {2, 0, 1, 3}},
	meshgen.PlaneY: {meshgen.Back: {3, 2, 0, 1}, meshgen.Front: {1, 0, 2, 3}},
	meshgen.PlaneZ: {meshgen.Back: {2, 3, 1, 0}, meshgen.Front: {3, 2, 0, 1}},
}

// childOffsets are the child centers in units of half the parent scale.
var childOffsets = [3][4]mgl64.Vec3{
	meshgen.PlaneX: {{0, -1, -1}, {0, 1, -1}, {0, 1, 1}, {0, -1, 1}},
	meshgen.PlaneY: {{-1, 0, -1}, {1, 0, -1}, {1, 0, 1}, {-1, 0, 1}},
	meshgen.PlaneZ: {{-1, -1, 0}, {1, -1, 0}, {1, 1, 0}, {-1, 1, 0}},
}

// childPlacement returns the translation of child digit d of a quad.
func childPlacement(plane meshgen.Plane, side meshgen.Side, translation mgl64.Vec3, scale float64, d int) mgl64.Vec3 {
	for k, digit := range childOrder[plane][side] {
		if digit == d {
			return translation.Add(childOffsets[plane][k].Mul(scale / 2))
		}
	}
	return translation
}

// Placement returns the plane, side, unit-cube translation and scale of the quad
// with the given index, without needing a live tree.
func Placement(i quadindex.Index) (meshgen.Plane, meshgen.Side, mgl64.Vec3, float64, bool) {
	digits := i.Digits()
	if len(digits) < 2 {
		return 0, 0, mgl64.Vec3{}, 0, false
	}
	root := quadindex.Encode(digits[0], digits[1])
	for _, f := range faces {
		if f.index != root {
			continue
		}
		tr, scale := f.translation, 1.0
		for _, d := range digits[2:] {
			tr = childPlacement(f.plane, f.side, tr, scale, d)
			scale /= 2
		}
		return f.plane, f.side, tr, scale, true
	}
	return 0, 0, mgl64.Vec3{}, 0, false
}

// DirFromLatLon converts latitude (0 at the south pole, 180 at the north pole)
// and longitude in degrees into a unit direction in planet space.
func DirFromLatLon(lat, lon float64) mgl64.Vec3 {
	lat, lon = mgl64.DegToRad(lat), mgl64.DegToRad(lon)
	return mgl64.Vec3{
		-math.Sin(lat) * math.Cos(lon),
		-math.Cos(lat),
		-math.Sin(lat) * math.Sin(lon),
	}
}
