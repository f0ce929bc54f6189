// Package quadtree maintains the level-of-detail forest of a quad sphere: six
// root quads, one per cube face, split and merged as a viewer moves around.
//
// A Tree is driven by Tick from a single goroutine. Mesh generation runs
// asynchronously on a meshgen.Generator; the tree polls it every tick and
// reports render patches to a Sink.
package quadtree

import (
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/terrain/meshgen"
	"github.com/Faultbox/quadsphere/internal/terrain/provider"
	"github.com/Faultbox/quadsphere/internal/terrain/topology"
	qmath "github.com/Faultbox/quadsphere/pkg/math"
	"github.com/Faultbox/quadsphere/pkg/quadindex"
)

// ErrInvalidOptions is returned by New for an unusable configuration.
var ErrInvalidOptions = errors.New("invalid quadtree options")

// LODMode selects how quads outside the view frustum are treated.
type LODMode int

const (
	// ComputeRender keeps detail around the viewer regardless of view direction.
	ComputeRender LODMode = iota
	// NotComputed only splits quads inside the view frustum.
	NotComputed
)

// ParseLODMode parses "compute-render" or "not-computed".
func ParseLODMode(s string) (LODMode, error) {
	switch s {
	case "", "compute-render":
		return ComputeRender, nil
	case "not-computed":
		return NotComputed, nil
	}
	return 0, fmt.Errorf("%w: unknown lod mode %q", ErrInvalidOptions, s)
}

func (m LODMode) String() string {
	if m == NotComputed {
		return "not-computed"
	}
	return "compute-render"
}

// idleTicksBeforeFinished is how many ticks the split queue must stay idle
// before the generation finished callback fires.
const idleTicksBeforeFinished = 30

// Options configures a Tree.
type Options struct {
	// Mesh is shared by every generation job.
	Mesh *meshgen.Settings

	// DetailDistances[l] is the viewer distance below which a level l quad
	// splits. Its length is the deepest level minus one.
	DetailDistances []float64
	// DetailMSD[l] is the mean squared deviation a level l quad needs to
	// split. Only used when Mesh.CalculateMSD is set.
	DetailMSD []float64

	LODMode LODMode
	// BehindCameraExtraRange lets boxes this far behind a frustum plane count
	// as visible.
	BehindCameraExtraRange float64
	// VisSphereRadiusMod scales the visibility sphere around the viewer.
	VisSphereRadiusMod float64

	// UpdateAllQuads recomputes every quad in the tick a sweep starts.
	// Otherwise at most MaxQuadsToUpdate quads are handled per tick.
	UpdateAllQuads   bool
	MaxQuadsToUpdate int
	// RecomputeThreshold is how far the viewer moves before a new sweep.
	RecomputeThreshold float64

	SplitsSimultaneously int
	PatchPoolSize        int
}

// DefaultOptions returns options for an earth-like planet of the given radius.
func DefaultOptions(mesh *meshgen.Settings) Options {
	return Options{
		Mesh: mesh,
		DetailDistances: []float64{
			50000, 25000, 12500, 6250, 3125, 1562.5, 781.25, 390.625, 195.3125,
		},
		LODMode:              ComputeRender,
		VisSphereRadiusMod:   1,
		MaxQuadsToUpdate:     250,
		RecomputeThreshold:   5,
		SplitsSimultaneously: 4,
		PatchPoolSize:        DefaultPatchPoolSize,
	}
}

// Validate checks o for consistency.
func (o *Options) Validate() error {
	if o.Mesh == nil {
		return fmt.Errorf("%w: no mesh settings", ErrInvalidOptions)
	}
	if err := o.Mesh.Validate(); err != nil {
		return err
	}
	if o.Mesh.CalculateMSD && len(o.DetailMSD) != len(o.DetailDistances) {
		return fmt.Errorf("%w: %d msd thresholds for %d detail distances",
			ErrInvalidOptions, len(o.DetailMSD), len(o.DetailDistances))
	}
	if len(o.DetailDistances)+3 > quadindex.MaxDigits {
		return fmt.Errorf("%w: %d detail levels exceed the quad index capacity",
			ErrInvalidOptions, len(o.DetailDistances))
	}
	if !o.UpdateAllQuads && o.MaxQuadsToUpdate <= 0 {
		return fmt.Errorf("%w: max quads to update must be positive", ErrInvalidOptions)
	}
	if o.SplitsSimultaneously < 1 {
		return fmt.Errorf("%w: splits simultaneously must be at least 1", ErrInvalidOptions)
	}
	if o.VisSphereRadiusMod <= 0 {
		return fmt.Errorf("%w: visibility sphere modifier must be positive", ErrInvalidOptions)
	}
	if o.RecomputeThreshold < 0 {
		return fmt.Errorf("%w: negative recompute threshold", ErrInvalidOptions)
	}
	return nil
}

// Streamer is a height provider that reloads data around the viewer.
type Streamer interface {
	Update(gate provider.SplitGate, viewer mgl64.Vec3)
}

// Option customizes a Tree.
type Option func(*Tree)

// WithLogger sets the tree logger.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tree) { t.log = l }
}

// WithStreaming lets s reload around the viewer at the start of each tick.
func WithStreaming(s Streamer) Option {
	return func(t *Tree) { t.streaming = s }
}

// OnGenerationFinished registers fn to run once the split queue has been idle
// for a while. It fires again after the next burst of splits.
func OnGenerationFinished(fn func()) Option {
	return func(t *Tree) { t.onFinished = fn }
}

// View is the viewer and planet pose for one tick. Zero rotations are treated
// as identity.
type View struct {
	Position       mgl64.Vec3
	Rotation       mgl64.Quat
	ViewProjection mgl64.Mat4

	PlanetPosition mgl64.Vec3
	PlanetRotation mgl64.Quat
}

func orIdentity(q mgl64.Quat) mgl64.Quat {
	if q == (mgl64.Quat{}) {
		return mgl64.QuatIdent()
	}
	return q
}

// Tree is the quad forest of one planet.
type Tree struct {
	opts       Options
	settings   *meshgen.Settings
	gen        meshgen.Generator
	sink       Sink
	log        *zap.Logger
	streaming  Streamer
	onFinished func()

	quads     arena
	roots     [6]QuadID
	rootsDone int
	// byIndex maps the index of every activated quad to its handle. Neighbor
	// lookups go through it.
	byIndex   map[quadindex.Index]QuadID
	queue     *SplitQueue
	patches   *PatchPool
	splitting []QuadID

	radiusSq    float64
	radiusMaxSq float64
	thresholdSq float64

	viewer    mgl64.Vec3
	visRadius float64
	planes    []qmath.Plane
	planetPos mgl64.Vec3
	planetRot mgl64.Quat

	ticked      bool
	lastRel     mgl64.Vec3
	lastViewRot mgl64.Quat
	sweep       []QuadID
	idleTicks   int
	closed      bool
}

// New creates the six root quads and starts generating their meshes.
func New(opts Options, gen meshgen.Generator, sink Sink, options ...Option) (*Tree, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if gen == nil {
		return nil, fmt.Errorf("%w: no generator", ErrInvalidOptions)
	}
	if sink == nil {
		sink = NopSink{}
	}

	s := opts.Mesh
	inv := s.HeightInv()
	radiusMax := s.Radius * (inv + 1) / inv
	t := &Tree{
		opts:        opts,
		settings:    s,
		gen:         gen,
		sink:        sink,
		log:         zap.NewNop(),
		byIndex:     make(map[quadindex.Index]QuadID),
		patches:     NewPatchPool(opts.PatchPoolSize),
		radiusSq:    s.Radius * s.Radius,
		radiusMaxSq: radiusMax * radiusMax,
		thresholdSq: opts.RecomputeThreshold * opts.RecomputeThreshold,
		planetRot:   mgl64.QuatIdent(),
		lastViewRot: mgl64.QuatIdent(),
	}
	for _, o := range options {
		o(t)
	}
	t.queue = newSplitQueue(t, opts.SplitsSimultaneously)

	for i, f := range faces {
		q := t.quads.alloc()
		q.index = f.index
		q.plane = f.plane
		q.side = f.side
		q.scale = 1
		q.translation = f.translation
		q.rotation = f.rotation
		t.byIndex[q.index] = q.id
		t.roots[i] = q.id
		q.gen = t.gen.Start(q.job())
	}

	t.log.Info("planet created",
		zap.Float64("radius", s.Radius),
		zap.Float64("heightScale", s.HeightScale),
		zap.Int("quadSize", s.Table.SideLength()),
		zap.Int("levels", len(opts.DetailDistances)+1),
	)
	return t, nil
}

// Tick advances the tree by one frame.
func (t *Tree) Tick(v View) {
	if t.closed {
		return
	}

	rot := orIdentity(v.PlanetRotation)
	viewRot := orIdentity(v.Rotation)
	rel := v.Position.Sub(v.PlanetPosition)
	local := rot.Inverse().Rotate(rel)

	if t.streaming != nil {
		t.streaming.Update(t.queue, local)
	}

	switch {
	case t.queue.Update():
		t.idleTicks = 0
	case t.idleTicks > idleTicksBeforeFinished:
		if t.onFinished != nil {
			t.onFinished()
		}
		t.idleTicks = -1
	case t.idleTicks != -1:
		t.idleTicks++
	}

	t.viewer = local
	t.visRadius = (rel.LenSqr() + t.radiusMaxSq - 2*t.radiusSq) * t.opts.VisSphereRadiusMod

	rotated := t.ticked && rot != t.planetRot
	moved := t.ticked && v.PlanetPosition != t.planetPos
	t.planetRot, t.planetPos = rot, v.PlanetPosition
	if rotated || moved {
		t.movePatches()
	}

	if t.opts.LODMode == NotComputed {
		planes := qmath.FrustumPlanes(v.ViewProjection)
		t.planes = planes[:]
	}

	changed := !t.ticked ||
		rel.Sub(t.lastRel).LenSqr() > t.thresholdSq ||
		rotated ||
		(t.opts.LODMode == NotComputed && viewRot != t.lastViewRot)
	t.ticked = true
	if changed {
		t.lastRel = rel
		t.lastViewRot = viewRot
		t.startSweep()
	}

	t.continueSweep()
	t.pollRoots()
	t.pollSplits()
	instrumentStats(t.Stats())
}

// startSweep schedules a distance update of every quad. A sweep requested
// while another is still running is done in full right away.
func (t *Tree) startSweep() {
	if t.sweep == nil && !t.opts.UpdateAllQuads {
		t.sweep = t.quads.ids()
		return
	}
	t.sweep = nil
	for _, id := range t.quads.ids() {
		if q := t.quads.get(id); q != nil && q.initialized {
			t.updateDistances(q)
		}
	}
}

func (t *Tree) continueSweep() {
	if t.sweep == nil {
		return
	}
	for n := 0; len(t.sweep) > 0 && n < t.opts.MaxQuadsToUpdate; n++ {
		id := t.sweep[0]
		t.sweep = t.sweep[1:]
		if q := t.quads.get(id); q != nil && q.initialized {
			t.updateDistances(q)
		}
	}
	if len(t.sweep) == 0 {
		t.sweep = nil
	}
}

// pollRoots commits root meshes in face order.
func (t *Tree) pollRoots() {
	for t.rootsDone < len(t.roots) {
		q := t.quads.get(t.roots[t.rootsDone])
		if !t.pollGeneration(q) {
			return
		}
		t.updateDistances(q)
		t.rootsDone++
	}
}

func (t *Tree) pollSplits() {
	t.splitting = slices.DeleteFunc(t.splitting, func(id QuadID) bool {
		q := t.quads.get(id)
		if q == nil || q.state != Splitting {
			return true
		}
		return t.progressSplit(q)
	})
}

// pollGeneration commits a finished mesh and reports whether q is initialized.
// A failed generation is started again.
func (t *Tree) pollGeneration(q *Quad) bool {
	if q.initialized {
		return true
	}
	if q.gen == nil {
		q.gen = t.gen.Start(q.job())
		return false
	}

	switch q.gen.Poll() {
	case meshgen.Pending:
		return false
	case meshgen.Failed:
		_, err := q.gen.Result()
		instrumentGenerationFailure()
		t.log.Warn("mesh generation failed, restarting", zap.Stringer("quad", q.index), zap.Error(err))
		q.gen = t.gen.Start(q.job())
		return false
	}

	mesh, _ := q.gen.Result()
	q.gen = nil
	q.mesh = mesh
	q.initialized = true
	return true
}

func (t *Tree) quad(id QuadID) *Quad { return t.quads.get(id) }

// startSplit creates the four children of q and starts their generation.
func (t *Tree) startSplit(q *Quad) {
	var children [4]QuadID
	for d := range 4 {
		c := t.quads.alloc()
		c.index = q.index.Append(d)
		c.level = q.level + 1
		c.plane = q.plane
		c.side = q.side
		c.scale = q.scale / 2
		c.translation = childPlacement(q.plane, q.side, q.translation, q.scale, d)
		c.rotation = q.rotation
		c.parent = q.id
		c.gen = t.gen.Start(c.job())
		children[d] = c.id
	}
	q.children = &children
	q.splitNext = 0
	q.state = Splitting
	t.splitting = append(t.splitting, q.id)
	t.log.Debug("split started", zap.Stringer("quad", q.index))
}

// progressSplit commits child meshes in order and finishes the split once all
// four are ready. It reports whether the split is done.
func (t *Tree) progressSplit(q *Quad) bool {
	for q.splitNext < 4 {
		c := t.quads.get(q.children[q.splitNext])
		if !t.pollGeneration(c) {
			return false
		}
		t.updateDistances(c)
		q.splitNext++
	}

	for _, id := range q.children {
		c := t.quads.get(id)
		if c.patch != nil {
			t.activate(c)
		}
	}
	for _, id := range q.children {
		t.refreshNeighbors(t.quads.get(id))
	}
	if q.patch != nil {
		t.releasePatch(q)
	}
	t.updateNeighbors(q)
	q.state = Split

	instrumentSplit()
	t.log.Debug("split finished", zap.Stringer("quad", q.index))
	return true
}

// updateDistances recomputes the distance and visibility of q and applies the
// split, merge and render patch rules.
func (t *Tree) updateDistances(q *Quad) {
	m := q.mesh
	q.distance = float64(m.Bounds.SqrDistance(qmath.Narrow(t.viewer.Sub(m.Offset))))
	q.visible = t.visibleToViewer(q)

	if q.visible && q.level < len(t.opts.DetailDistances) {
		d := t.opts.DetailDistances[q.level]
		wantSplit := q.distance < d*d
		if t.settings.CalculateMSD {
			wantSplit = wantSplit && m.MSD >= t.opts.DetailMSD[q.level]
		}
		if wantSplit {
			t.queue.Add(q)
		} else {
			t.queue.Remove(q)
			t.merge(q)
		}
	} else {
		t.queue.Remove(q)
		t.merge(q)
	}

	switch {
	case q.visible && q.state != Split && q.patch == nil:
		t.acquirePatch(q)
	case q.patch != nil && (!q.visible || q.state == Split):
		t.releasePatch(q)
		t.updateNeighbors(q)
	}

	if q.patch != nil && !q.patch.Active {
		if parent := t.quads.get(q.parent); q.level == 0 || (parent != nil && parent.state == Split) {
			t.activate(q)
			if q.neighborIdx == nil {
				t.refreshNeighbors(q)
			}
			t.updateNeighbors(q)
		}
	}
}

// visibleToViewer tests the mesh bounds against the visibility sphere and, in
// NotComputed mode, the view frustum.
func (t *Tree) visibleToViewer(q *Quad) bool {
	if q.distance > t.visRadius {
		return false
	}
	if t.opts.LODMode == ComputeRender {
		return true
	}
	b := q.mesh.Bounds
	var lo, hi mgl64.Vec3
	for i, corner := range [8]qmath.Vec3{
		{X: b.Min.X, Y: b.Min.Y, Z: b.Min.Z}, {X: b.Max.X, Y: b.Min.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Min.Z}, {X: b.Max.X, Y: b.Max.Y, Z: b.Min.Z},
		{X: b.Min.X, Y: b.Min.Y, Z: b.Max.Z}, {X: b.Max.X, Y: b.Min.Y, Z: b.Max.Z},
		{X: b.Min.X, Y: b.Max.Y, Z: b.Max.Z}, {X: b.Max.X, Y: b.Max.Y, Z: b.Max.Z},
	} {
		w := t.toWorld(corner.Wide().Add(q.mesh.Offset))
		if i == 0 {
			lo, hi = w, w
			continue
		}
		for a := range 3 {
			lo[a] = math.Min(lo[a], w[a])
			hi[a] = math.Max(hi[a], w[a])
		}
	}
	return qmath.TestPlanesAABB(t.planes, lo, hi, t.opts.BehindCameraExtraRange)
}

func (t *Tree) toWorld(p mgl64.Vec3) mgl64.Vec3 {
	return t.planetRot.Rotate(p).Add(t.planetPos)
}

// merge releases the subtree below q.
func (t *Tree) merge(q *Quad) {
	if q.state != Split {
		return
	}
	q.state = Leaf
	for _, id := range q.children {
		if c := t.quads.get(id); c != nil {
			t.merge(c)
			t.releaseQuad(c)
		}
	}
	q.children = nil
	instrumentMerge()
	t.log.Debug("merged", zap.Stringer("quad", q.index))
}

// releaseQuad frees q and everything below it.
func (t *Tree) releaseQuad(q *Quad) {
	if q.gen != nil {
		q.gen.Cancel()
		q.gen = nil
	}
	if q.children != nil {
		for _, id := range q.children {
			if c := t.quads.get(id); c != nil {
				t.releaseQuad(c)
			}
		}
		q.children = nil
	}
	if q.patch != nil {
		t.releasePatch(q)
	}
	t.queue.Remove(q)
	if id, ok := t.byIndex[q.index]; ok && id == q.id {
		delete(t.byIndex, q.index)
	}
	t.quads.release(q.id)
}

func (t *Tree) acquirePatch(q *Quad) {
	p := t.patches.Get()
	p.Quad = q.index
	p.Mesh = q.mesh
	p.Triangles = t.settings.Table.Triangles(q.edges)
	p.Rotation = t.planetRot
	p.Position = t.toWorld(q.mesh.Offset)
	q.patch = p
	t.sink.PatchCreated(p)
}

func (t *Tree) releasePatch(q *Quad) {
	p := q.patch
	q.patch = nil
	t.sink.PatchReleased(p)
	t.patches.Put(p)
}

// activate shows the patch of q and makes q findable by its neighbors.
func (t *Tree) activate(q *Quad) {
	q.patch.Active = true
	t.byIndex[q.index] = q.id
	t.sink.PatchActivated(q.patch)
}

func (t *Tree) movePatches() {
	for _, id := range t.quads.ids() {
		q := t.quads.get(id)
		if q.patch == nil {
			continue
		}
		q.patch.Rotation = t.planetRot
		q.patch.Position = t.toWorld(q.mesh.Offset)
		t.sink.PatchMoved(q.patch)
	}
}

// refreshNeighbors looks up the four neighbors of q and rebuilds its edge
// configuration from the ones that currently render coarser.
func (t *Tree) refreshNeighbors(q *Quad) {
	if q.neighborIdx == nil {
		var idx [4]quadindex.Index
		for d := range idx {
			idx[d] = quadindex.Neighbor(q.index, quadindex.Direction(d))
		}
		q.neighborIdx = &idx
	}

	var deltas [4]int
	for d, idx := range q.neighborIdx {
		q.neighbors[d] = NoQuad
		for k := 0; k < 3 && idx.Len() > 0; k++ {
			if id, ok := t.byIndex[idx]; ok {
				q.neighbors[d] = id
				break
			}
			idx = idx.Slice()
		}
		n := t.quads.get(q.neighbors[d])
		if n == nil || n.patch == nil {
			continue
		}
		deltas[d] = q.level - n.level
	}

	old := q.edges
	q.edges = topology.Compose(deltas)
	if q.edges != old && q.patch != nil {
		q.patch.Triangles = t.settings.Table.Triangles(q.edges)
		t.sink.PatchUpdated(q.patch)
	}
}

// updateNeighbors refreshes the neighbors of q and all their descendants.
func (t *Tree) updateNeighbors(q *Quad) {
	for _, id := range q.neighbors {
		if n := t.quads.get(id); n != nil {
			t.refreshSubtree(n)
		}
	}
}

func (t *Tree) refreshSubtree(q *Quad) {
	if !q.initialized {
		return
	}
	if q.children != nil {
		for _, id := range q.children {
			if c := t.quads.get(id); c != nil {
				t.refreshSubtree(c)
			}
		}
	}
	t.refreshNeighbors(q)
}

// Quad resolves a handle. It returns nil for released quads.
func (t *Tree) Quad(id QuadID) *Quad { return t.quads.get(id) }

// Roots returns the root handles in face order.
func (t *Tree) Roots() [6]QuadID { return t.roots }

// Find returns the live quad with the given index.
func (t *Tree) Find(i quadindex.Index) (*Quad, bool) {
	digits := i.Digits()
	if len(digits) < 2 {
		return nil, false
	}
	root := quadindex.Encode(digits[0], digits[1])
	var q *Quad
	for _, id := range t.roots {
		if r := t.quads.get(id); r.index == root {
			q = r
			break
		}
	}
	if q == nil {
		return nil, false
	}
	for _, d := range digits[2:] {
		if q.children == nil {
			return nil, false
		}
		q = t.quads.get(q.children[d])
	}
	return q, true
}

// Queue returns the split queue.
func (t *Tree) Queue() *SplitQueue { return t.queue }

// Ready reports whether all root meshes are committed.
func (t *Tree) Ready() bool { return t.rootsDone == len(t.roots) }

// SurfacePosition returns the world position of the terrain surface in the
// planet-space direction dir.
func (t *Tree) SurfacePosition(dir mgl64.Vec3) mgl64.Vec3 {
	dir = dir.Normalize()
	inv := t.settings.HeightInv()
	h := t.settings.Height.HeightAt(dir)
	return t.toWorld(dir.Mul(t.settings.Radius * (inv + h) / inv))
}

// Down returns the unit vector from a world position towards the planet
// center.
func (t *Tree) Down(world mgl64.Vec3) mgl64.Vec3 {
	return t.planetPos.Sub(world).Normalize()
}

// Close cancels all running generation and releases every patch. The tree
// ignores ticks afterwards.
func (t *Tree) Close() {
	if t.closed {
		return
	}
	t.closed = true
	for _, id := range t.quads.ids() {
		q := t.quads.get(id)
		if q.gen != nil {
			q.gen.Cancel()
			q.gen = nil
		}
		if q.patch != nil {
			t.releasePatch(q)
		}
	}
	t.queue.Stop(true)
	t.splitting = nil
	t.sweep = nil
}
