package quadtree

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/quadsphere/internal/terrain/meshgen"
	"github.com/Faultbox/quadsphere/internal/terrain/provider"
	"github.com/Faultbox/quadsphere/internal/terrain/topology"
	"github.com/Faultbox/quadsphere/pkg/quadindex"
)

const planetRadius = 1000

func meshSettings(t *testing.T) *meshgen.Settings {
	t.Helper()
	table, err := topology.NewTable(5, true)
	require.NoError(t, err)
	return &meshgen.Settings{
		Radius:      planetRadius,
		HeightScale: 0.02,
		Table:       table,
		Height:      &provider.Const{},
		UVScale:     1,
	}
}

func testOptions(t *testing.T) Options {
	opts := DefaultOptions(meshSettings(t))
	opts.DetailDistances = []float64{800, 400, 200}
	opts.UpdateAllQuads = true
	opts.RecomputeThreshold = 1
	return opts
}

var errBoom = errors.New("boom")

// syncGenerator finishes every generation inside Start.
type syncGenerator struct {
	settings *meshgen.Settings
	fail     map[quadindex.Index]int
	started  map[quadindex.Index]int
}

func newSyncGenerator(s *meshgen.Settings) *syncGenerator {
	return &syncGenerator{settings: s, fail: map[quadindex.Index]int{}, started: map[quadindex.Index]int{}}
}

func (g *syncGenerator) Start(job meshgen.Job) meshgen.Handle {
	g.started[job.Index]++
	if g.fail[job.Index] > 0 {
		g.fail[job.Index]--
		return &fixedHandle{err: errBoom}
	}
	md, err := meshgen.Generate(g.settings, job)
	return &fixedHandle{mesh: md, err: err}
}

func (g *syncGenerator) Close() {}

type fixedHandle struct {
	mesh     *meshgen.MeshData
	err      error
	pending  bool
	canceled bool
}

func (h *fixedHandle) Poll() meshgen.Status {
	switch {
	case h.pending:
		return meshgen.Pending
	case h.err != nil:
		return meshgen.Failed
	}
	return meshgen.Done
}

func (h *fixedHandle) Result() (*meshgen.MeshData, error) { return h.mesh, h.err }
func (h *fixedHandle) Cancel()                            { h.canceled = true }

// pendingGenerator never finishes.
type pendingGenerator struct{ handles []*fixedHandle }

func (g *pendingGenerator) Start(meshgen.Job) meshgen.Handle {
	h := &fixedHandle{pending: true}
	g.handles = append(g.handles, h)
	return h
}

func (g *pendingGenerator) Close() {}

// recordingSink mirrors the patch state the tree reports.
type recordingSink struct {
	t      *testing.T
	active map[uuid.UUID]bool
	moved  int
}

func newRecordingSink(t *testing.T) *recordingSink {
	return &recordingSink{t: t, active: map[uuid.UUID]bool{}}
}

func (s *recordingSink) PatchCreated(p *Patch) {
	_, ok := s.active[p.ID]
	assert.False(s.t, ok, "patch %s bound twice", p.ID)
	assert.False(s.t, p.Active)
	assert.NotNil(s.t, p.Mesh)
	s.active[p.ID] = false
}

func (s *recordingSink) PatchUpdated(p *Patch) {
	_, ok := s.active[p.ID]
	assert.True(s.t, ok, "update of unbound patch %s", p.ID)
}

func (s *recordingSink) PatchMoved(*Patch) { s.moved++ }

func (s *recordingSink) PatchActivated(p *Patch) {
	_, ok := s.active[p.ID]
	assert.True(s.t, ok, "activation of unbound patch %s", p.ID)
	s.active[p.ID] = true
}

func (s *recordingSink) PatchReleased(p *Patch) {
	_, ok := s.active[p.ID]
	assert.True(s.t, ok, "release of unbound patch %s", p.ID)
	delete(s.active, p.ID)
}

func (s *recordingSink) rendered() int {
	n := 0
	for _, a := range s.active {
		if a {
			n++
		}
	}
	return n
}

// above returns a view hovering height units over the +Y face center.
func above(height float64) View {
	return View{Position: mgl64.Vec3{0, planetRadius + height, 0}}
}

func tickN(tree *Tree, v View, n int) {
	for range n {
		tree.Tick(v)
	}
}

// checkInvariants walks every live quad.
func checkInvariants(t *testing.T, tree *Tree) {
	t.Helper()
	for _, id := range tree.quads.ids() {
		q := tree.Quad(id)
		children, hasChildren := q.Children()
		switch q.State() {
		case Leaf:
			assert.False(t, hasChildren, "leaf %s has children", q.Index())
		case Splitting:
			assert.True(t, hasChildren, "splitting %s without children", q.Index())
		case Split:
			require.True(t, hasChildren, "split %s without children", q.Index())
			assert.Nil(t, q.Patch(), "split %s still renders", q.Index())
			for d, cid := range children {
				c := tree.Quad(cid)
				require.NotNil(t, c)
				assert.True(t, c.Initialized())
				assert.Equal(t, q.Index().Append(d), c.Index())
				assert.Equal(t, q.Level()+1, c.Level())
			}
		}
		if q.Patch() != nil {
			assert.True(t, q.Visible(), "hidden %s holds a patch", q.Index())
		}
		if p := q.Patch(); p != nil && p.Active {
			assert.Equal(t, q.Index(), p.Quad)
			assert.Equal(t, tree.settings.Table.Triangles(q.Edges()), p.Triangles)
		}
	}
}

func TestNewValidates(t *testing.T) {
	gen := newSyncGenerator(meshSettings(t))

	opts := testOptions(t)
	opts.Mesh.CalculateMSD = true
	_, err := New(opts, gen, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	opts = testOptions(t)
	opts.SplitsSimultaneously = 0
	_, err = New(opts, gen, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	opts = testOptions(t)
	opts.Mesh.Radius = 0
	_, err = New(opts, gen, nil)
	assert.ErrorIs(t, err, meshgen.ErrInvalidSettings)

	opts = testOptions(t)
	opts.DetailDistances = make([]float64, quadindex.MaxDigits)
	_, err = New(opts, gen, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = New(testOptions(t), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestTreeSplitsAroundViewer(t *testing.T) {
	opts := testOptions(t)
	sink := newRecordingSink(t)
	tree, err := New(opts, newSyncGenerator(opts.Mesh), sink)
	require.NoError(t, err)

	tickN(tree, above(10), 10)
	require.True(t, tree.Ready())
	checkInvariants(t, tree)

	stats := tree.Stats()
	assert.Equal(t, []int{6, 4, 16, 16}, stats.PerLevel)
	assert.Equal(t, 42, stats.Quads)
	assert.Equal(t, 9, stats.Split)
	assert.Equal(t, stats.Rendered, sink.rendered())
	assert.Equal(t, stats.Bound, len(sink.active))
	assert.Zero(t, stats.Queued)

	// Ten units up the horizon is close: only the finest quads under the
	// viewer are inside the visibility sphere.
	for _, id := range tree.quads.ids() {
		if q := tree.Quad(id); q.Patch() != nil {
			assert.Equal(t, 3, q.Level(), "%s renders", q.Index())
		}
	}
	assert.GreaterOrEqual(t, stats.Rendered, 4)
	assert.LessOrEqual(t, stats.Rendered, 16)

	top, ok := tree.Find(quadindex.Encode(0, 1))
	require.True(t, ok)
	assert.Equal(t, Split, top.State())
	_, ok = tree.Find(quadindex.Encode(0, 2, 0))
	assert.False(t, ok)

	snap := tree.Snapshot()
	assert.Len(t, snap.Patches, stats.Rendered)
	assert.Equal(t, stats, snap.Stats)
}

func TestTreeRendersOnlyVisibleQuads(t *testing.T) {
	opts := testOptions(t)
	sink := newRecordingSink(t)
	tree, err := New(opts, newSyncGenerator(opts.Mesh), sink)
	require.NoError(t, err)

	bottom := tree.Roots()[1]
	for _, tc := range []struct {
		view     View
		perLevel []int
		rendered int
	}{
		{above(5000), []int{6, 0, 0, 0}, 5},
		{above(10), []int{6, 4, 16, 16}, -1},
		{above(5000), []int{6, 0, 0, 0}, 5},
	} {
		tickN(tree, tc.view, 10)
		checkInvariants(t, tree)

		visible := 0
		for _, id := range tree.quads.ids() {
			q := tree.Quad(id)
			if q.Visible() && q.State() != Split && q.Initialized() {
				visible++
				assert.NotNil(t, q.Patch(), "visible %s has no patch", q.Index())
			}
		}

		stats := tree.Stats()
		assert.Equal(t, tc.perLevel, stats.PerLevel)
		assert.Equal(t, visible, stats.Rendered)
		assert.Equal(t, visible, sink.rendered())
		assert.Len(t, sink.active, stats.Bound)
		if tc.rendered >= 0 {
			assert.Equal(t, tc.rendered, stats.Rendered)
		}

		// The far side of the planet never renders.
		q := tree.Quad(bottom)
		assert.False(t, q.Visible())
		assert.Nil(t, q.Patch())
	}
}

func TestTreeMergesWhenViewerLeaves(t *testing.T) {
	opts := testOptions(t)
	sink := newRecordingSink(t)
	tree, err := New(opts, newSyncGenerator(opts.Mesh), sink)
	require.NoError(t, err)

	tickN(tree, above(10), 10)
	require.Equal(t, 42, tree.Stats().Quads)

	tickN(tree, above(5000), 2)
	checkInvariants(t, tree)

	stats := tree.Stats()
	assert.Equal(t, []int{6, 0, 0, 0}, stats.PerLevel)
	assert.Equal(t, 5, stats.Rendered)
	assert.Equal(t, 5, sink.rendered())
	assert.Len(t, sink.active, 5)
	assert.LessOrEqual(t, stats.IdlePatches, DefaultPatchPoolSize)

	// and back again
	tickN(tree, above(10), 10)
	checkInvariants(t, tree)
	assert.Equal(t, []int{6, 4, 16, 16}, tree.Stats().PerLevel)
}

func TestTreeStitchesAcrossSeams(t *testing.T) {
	opts := testOptions(t)
	tree, err := New(opts, newSyncGenerator(opts.Mesh), newRecordingSink(t))
	require.NoError(t, err)

	// From 300 up the side faces are visible but too far to split, so the
	// level 2 quads along the top face border meet level 0 neighbors.
	tickN(tree, above(300), 10)
	checkInvariants(t, tree)
	require.Equal(t, []int{6, 4, 16, 0}, tree.Stats().PerLevel)

	stitched := 0
	for _, id := range tree.quads.ids() {
		q := tree.Quad(id)
		if q.Level() != 2 {
			continue
		}
		for _, dir := range quadindex.Directions {
			if q.Edges().Delta(dir) == 2 {
				assert.True(t, quadindex.AtSeam(q.Index(), dir), "%s %s", q.Index(), dir)
				stitched++
			}
		}
		assert.True(t, tree.settings.Table.Supported(q.Edges()), "%s %s", q.Index(), q.Edges())
	}
	// Four border quads per side, two sides for the corner ones.
	assert.Equal(t, 16, stitched)
}

func TestTreeBumpinessGate(t *testing.T) {
	for _, tc := range []struct {
		name     string
		msd      float64
		perLevel []int
	}{
		{"flat terrain stays coarse", 0.01, []int{6, 0, 0, 0}},
		{"zero threshold splits", 0, []int{6, 4, 16, 16}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions(t)
			opts.Mesh.CalculateMSD = true
			opts.DetailMSD = []float64{tc.msd, tc.msd, tc.msd}
			tree, err := New(opts, newSyncGenerator(opts.Mesh), nil)
			require.NoError(t, err)

			tickN(tree, above(10), 10)
			checkInvariants(t, tree)

			top, ok := tree.Find(quadindex.Encode(0, 1))
			require.True(t, ok)
			assert.InDelta(t, 0, top.Mesh().MSD, 1e-9)
			assert.Equal(t, tc.perLevel, tree.Stats().PerLevel)
		})
	}
}

func TestTreeIncrementalSweep(t *testing.T) {
	opts := testOptions(t)
	opts.UpdateAllQuads = false
	opts.MaxQuadsToUpdate = 3
	tree, err := New(opts, newSyncGenerator(opts.Mesh), nil)
	require.NoError(t, err)

	tickN(tree, above(10), 30)
	checkInvariants(t, tree)
	assert.Equal(t, []int{6, 4, 16, 16}, tree.Stats().PerLevel)
}

func TestTreeRestartsFailedGeneration(t *testing.T) {
	opts := testOptions(t)
	gen := newSyncGenerator(opts.Mesh)
	top := quadindex.Encode(0, 1)
	gen.fail[top] = 2

	tree, err := New(opts, gen, nil)
	require.NoError(t, err)

	tree.Tick(above(5000))
	assert.False(t, tree.Ready())

	tickN(tree, above(5000), 3)
	assert.True(t, tree.Ready())
	assert.Equal(t, 3, gen.started[top])
	checkInvariants(t, tree)
}

func TestTreeCloseCancelsGeneration(t *testing.T) {
	opts := testOptions(t)
	gen := &pendingGenerator{}
	tree, err := New(opts, gen, nil)
	require.NoError(t, err)

	tickN(tree, above(10), 3)
	assert.False(t, tree.Ready())
	require.Len(t, gen.handles, 6)

	tree.Close()
	for _, h := range gen.handles {
		assert.True(t, h.canceled)
	}
	tree.Tick(above(10))
	assert.Len(t, gen.handles, 6)
}

func TestTreeGenerationFinishedCallback(t *testing.T) {
	opts := testOptions(t)
	calls := 0
	tree, err := New(opts, newSyncGenerator(opts.Mesh), nil, OnGenerationFinished(func() { calls++ }))
	require.NoError(t, err)

	tickN(tree, above(5000), 20)
	assert.Zero(t, calls)
	tickN(tree, above(5000), 40)
	assert.Equal(t, 1, calls)
}

func TestTreeMovesPatchesWithPlanet(t *testing.T) {
	opts := testOptions(t)
	sink := newRecordingSink(t)
	tree, err := New(opts, newSyncGenerator(opts.Mesh), sink)
	require.NoError(t, err)

	v := above(5000)
	tickN(tree, v, 2)
	require.Zero(t, sink.moved)

	v.PlanetPosition = mgl64.Vec3{100, 0, 0}
	v.Position = v.Position.Add(v.PlanetPosition)
	tree.Tick(v)
	assert.Equal(t, 5, sink.moved)

	for _, id := range tree.Roots() {
		q := tree.Quad(id)
		if q.Patch() == nil {
			assert.Equal(t, quadindex.Encode(2, 1), q.Index())
			continue
		}
		assert.InDelta(t, 0, q.Patch().Position.Sub(q.Mesh().Offset.Add(v.PlanetPosition)).Len(), 1e-9)
	}
	assert.InDelta(t, 0, tree.Down(mgl64.Vec3{100, 10, 0}).Sub(mgl64.Vec3{0, -1, 0}).Len(), 1e-12)

	surface := tree.SurfacePosition(mgl64.Vec3{0, 0, 1})
	assert.InDelta(t, 0, surface.Sub(mgl64.Vec3{100, 0, planetRadius}).Len(), 1e-9)
}

func TestTreeFrustumCulling(t *testing.T) {
	eye := mgl64.Vec3{0, planetRadius + 10, 0}
	up := mgl64.Vec3{0, 0, 1}

	for _, tc := range []struct {
		name   string
		target mgl64.Vec3
		splits bool
	}{
		{"looking down", mgl64.Vec3{}, true},
		{"looking away", mgl64.Vec3{0, 2 * planetRadius, 0}, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			opts := testOptions(t)
			opts.LODMode = NotComputed
			tree, err := New(opts, newSyncGenerator(opts.Mesh), nil)
			require.NoError(t, err)

			tickN(tree, NewView(eye, tc.target, up, 60, 1, 0.1, 10*planetRadius), 10)
			checkInvariants(t, tree)
			assert.Equal(t, tc.splits, tree.Stats().Split > 0)
		})
	}
}

func TestFacesCoverCube(t *testing.T) {
	for _, f := range faces {
		normal := f.rotation.Rotate(mgl64.Vec3{0, 1, 0})
		assert.InDelta(t, 1, math.Abs(normal.Dot(f.translation)), 1e-9, "face %s", f.index)
	}
}

func TestPlacementNeighborsAdjacent(t *testing.T) {
	var walk func(i quadindex.Index, level int)
	walk = func(i quadindex.Index, level int) {
		_, _, center, scale, ok := Placement(i)
		require.True(t, ok)
		for d := range 4 {
			n := quadindex.Neighbor(i, quadindex.Direction(d))
			_, _, nc, nscale, ok := Placement(n)
			require.True(t, ok)
			require.Equal(t, scale, nscale)

			dist := center.Sub(nc).Len()
			want := 2 * scale
			if quadindex.AtSeam(i, quadindex.Direction(d)) {
				want = math.Sqrt2 * scale
			}
			assert.InDelta(t, want, dist, 1e-9, "%s %s -> %s", i, quadindex.Direction(d), n)
		}
		if level < 3 {
			for d := range 4 {
				walk(i.Append(d), level+1)
			}
		}
	}
	for _, root := range quadindex.Roots() {
		walk(root, 0)
	}
}

// cubePoints places the grid of the quad with index i on the unit cube.
func cubePoints(t *testing.T, i quadindex.Index, grid []mgl64.Vec3) []mgl64.Vec3 {
	t.Helper()
	_, _, translation, scale, ok := Placement(i)
	require.True(t, ok)
	digits := i.Digits()
	root := quadindex.Encode(digits[0], digits[1])
	for _, f := range faces {
		if f.index != root {
			continue
		}
		out := make([]mgl64.Vec3, len(grid))
		for k, v := range grid {
			out[k] = f.rotation.Rotate(v.Mul(scale)).Add(translation)
		}
		return out
	}
	t.Fatalf("no face for %s", i)
	return nil
}

func TestStitchedEdgesLeaveNoCracks(t *testing.T) {
	table := meshSettings(t).Table
	n := table.SideLength()
	grid := table.Plane()

	// edge vertex k along each side of the grid
	sides := [4]func(k int) int{
		quadindex.Right: func(k int) int { return k*n + n - 1 },
		quadindex.Left:  func(k int) int { return k * n },
		quadindex.Down:  func(k int) int { return k },
		quadindex.Up:    func(k int) int { return (n-1)*n + k },
	}

	checked := 0
	for _, root := range quadindex.Roots() {
		for a := range 4 {
			for b := range 4 {
				fine := root.Append(a).Append(b)
				finePts := cubePoints(t, fine, grid)
				for _, dir := range quadindex.Directions {
					coarse := quadindex.Neighbor(fine, dir).Slice()
					if coarse == fine.Slice() {
						continue
					}
					coarsePts := cubePoints(t, coarse, grid)
					refs := map[uint32]bool{}
					for _, v := range table.Triangles(topology.EdgeNone.With(dir, 1)) {
						refs[v] = true
					}

					for k := range n {
						v := sides[dir](k)
						if !refs[uint32(v)] {
							assert.Equal(t, 1, k%2, "%s %s: edge vertex %d dropped", fine, dir, k)
							continue
						}
						matched := false
						for _, c := range coarsePts {
							if c.Sub(finePts[v]).Len() < 1e-9 {
								matched = true
								break
							}
						}
						assert.True(t, matched, "%s %s -> %s: edge vertex %d is a T-junction", fine, dir, coarse, k)
						checked++
					}
				}
			}
		}
	}
	// Two outer edges per level 2 quad, (n+1)/2 kept vertices each.
	assert.Equal(t, 6*16*2*(n+1)/2, checked)
}

func TestDirFromLatLon(t *testing.T) {
	assert.InDelta(t, 0, DirFromLatLon(0, 0).Sub(mgl64.Vec3{0, -1, 0}).Len(), 1e-12)
	assert.InDelta(t, 0, DirFromLatLon(180, 0).Sub(mgl64.Vec3{0, 1, 0}).Len(), 1e-12)
	assert.InDelta(t, 0, DirFromLatLon(90, 90).Sub(mgl64.Vec3{0, 0, -1}).Len(), 1e-12)
}

func TestParseLODMode(t *testing.T) {
	m, err := ParseLODMode("not-computed")
	require.NoError(t, err)
	assert.Equal(t, NotComputed, m)
	assert.Equal(t, "not-computed", m.String())

	_, err = ParseLODMode("sometimes")
	assert.ErrorIs(t, err, ErrInvalidOptions)
}
