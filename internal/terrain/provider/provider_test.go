package provider

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/quadsphere/pkg/formats"
)

func TestToUV(t *testing.T) {
	tests := []struct {
		dir  mgl64.Vec3
		u, v float64
	}{
		{mgl64.Vec3{1, 0, 0}, 0.5, 0.5},
		{mgl64.Vec3{0, 0, 1}, 0.75, 0.5},
		{mgl64.Vec3{0, -1, 0}, 0.5, 0},
		{mgl64.Vec3{0, 1, 0}, 0.5, justBelowOne},
		{mgl64.Vec3{-1, 0, 0}, justBelowOne, 0.5},
	}
	for _, tt := range tests {
		u, v := ToUV(tt.dir)
		assert.InDelta(t, tt.u, u, 1e-12, "u of %v", tt.dir)
		assert.InDelta(t, tt.v, v, 1e-12, "v of %v", tt.dir)
	}

	dir := mgl64.Vec3{0.3, -0.5, 0.7}.Normalize()
	back := FromUV(ToUV(dir))
	require.True(t, back.ApproxEqualThreshold(dir, 1e-9), "%v != %v", back, dir)
}

func TestCubic(t *testing.T) {
	require.InDelta(t, 1.5, Cubic(0, 1, 2, 3, 0.5), 1e-12)
	require.InDelta(t, 1, Cubic(5, 1, 7, 2, 0), 1e-12)
	require.InDelta(t, 7, Cubic(5, 1, 7, 2, 1), 1e-12)
}

func stripes() *formats.Heightmap {
	hm := formats.NewHeightmap(2, 2, false)
	hm.Samples = []uint16{0, 255, 0, 255}
	return hm
}

func TestSamplerModes(t *testing.T) {
	bilinear := NewSampler(stripes(), Bilinear)
	require.InDelta(t, 0.5, bilinear.Sample(0.25, 0.25, true), 1e-12)
	require.InDelta(t, 0, bilinear.Sample(0, 0, true), 1e-12)

	// A region must not blend its last column or row with the first one.
	require.InDelta(t, 0.5, bilinear.Sample(0.75, 0, true), 1e-12)
	require.InDelta(t, 1, bilinear.Sample(0.75, 0, false), 1e-12)
	rows := formats.NewHeightmap(2, 2, false)
	rows.Samples = []uint16{0, 0, 255, 255}
	bands := NewSampler(rows, Bilinear)
	require.InDelta(t, 0.5, bands.Sample(0, 0.75, true), 1e-12)
	require.InDelta(t, 1, bands.Sample(0, 0.75, false), 1e-12)

	nearest := NewSampler(stripes(), Nearest)
	require.Equal(t, 0.0, nearest.Sample(0, 0, true))
	require.Equal(t, 1.0, nearest.Sample(0.3, 0, true))
	require.Equal(t, 0.0, nearest.Sample(0.8, 0, true))
	require.Equal(t, 1.0, nearest.Sample(0.8, 0, false))

	flat := formats.NewHeightmap(4, 4, true)
	for i := range flat.Samples {
		flat.Samples[i] = 32768
	}
	bicubic := NewSampler(flat, Bicubic)
	for _, uv := range [][2]float64{{0, 0}, {0.4, 0.9}, {0.99, 0.5}} {
		require.InDelta(t, 32768.0/65535, bicubic.Sample(uv[0], uv[1], true), 1e-9)
		require.InDelta(t, 32768.0/65535, bicubic.Sample(uv[0], uv[1], false), 1e-9)
	}
}

func TestParseInterpolation(t *testing.T) {
	for name, want := range map[string]Interpolation{"": Bilinear, "bilinear": Bilinear, "bicubic": Bicubic, "nearest": Nearest} {
		got, err := ParseInterpolation(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := ParseInterpolation("lanczos")
	require.Error(t, err)
}

func constHeightmap(w, h int, v uint16) *formats.Heightmap {
	hm := formats.NewHeightmap(w, h, false)
	for i := range hm.Samples {
		hm.Samples[i] = v
	}
	return hm
}

func TestHeightmapProvider(t *testing.T) {
	p := &Heightmap{Data: constHeightmap(8, 4, 51)}
	require.NoError(t, p.Init())
	require.InDelta(t, 0.2, p.HeightAt(mgl64.Vec3{0, 0, 1}), 1e-12)

	path := filepath.Join(t.TempDir(), "planet.raw")
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = constHeightmap(4, 2, 255).WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fromFile := &Heightmap{Path: path}
	require.NoError(t, fromFile.Init())
	require.InDelta(t, 1, fromFile.HeightAt(mgl64.Vec3{0, 1, 0}), 1e-12)

	require.Error(t, (&Heightmap{}).Init())
	require.Error(t, (&Heightmap{Path: filepath.Join(t.TempDir(), "missing.raw")}).Init())
}

func TestProvidersPanicBeforeInit(t *testing.T) {
	dir := mgl64.Vec3{0, 1, 0}
	for name, p := range map[string]HeightProvider{
		"heightmap": &Heightmap{Data: constHeightmap(4, 2, 255)},
		"noise":     NewNoise(1),
		"hybrid":    &Hybrid{Heightmap: &Heightmap{Data: constHeightmap(4, 2, 255)}, Noise: NewNoise(1)},
	} {
		t.Run(name, func(t *testing.T) {
			defer func() {
				err, ok := recover().(error)
				require.True(t, ok, "expected an error panic")
				require.ErrorIs(t, err, ErrNotInitialized)
			}()
			p.HeightAt(dir)
			t.Fatal("HeightAt returned before Init")
		})
	}
}

func TestHeightmapProviderResolutionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.raw")
	require.NoError(t, os.WriteFile(path, []byte{4, 0, 0, 0, 4, 0, 0, 0, 0, 1, 2, 3}, 0o644))
	err := (&Heightmap{Path: path}).Init()
	require.ErrorIs(t, err, formats.ErrHeightmapResolution)
}

func TestNoise(t *testing.T) {
	a := NewNoise(42)
	b := NewNoise(42)
	c := NewNoise(7)
	for _, n := range []*Noise{a, b, c} {
		require.NoError(t, n.Init())
	}

	differs := false
	for i := 0; i < 32; i++ {
		dir := FromUV(float64(i)/32, 0.1+0.8*float64(i%7)/7)
		h := a.HeightAt(dir)
		require.GreaterOrEqual(t, h, 0.0)
		require.LessOrEqual(t, h, 1.0)
		require.Equal(t, h, b.HeightAt(dir))
		if h != c.HeightAt(dir) {
			differs = true
		}
	}
	require.True(t, differs, "seeds 42 and 7 produced identical terrain")
}

func TestHybrid(t *testing.T) {
	h := &Hybrid{
		Heightmap: &Heightmap{Data: constHeightmap(4, 4, 255)},
		Noise:     NewNoise(3),
		NoiseDiv:  2,
	}
	require.NoError(t, h.Init())

	dir := mgl64.Vec3{0.2, 0.9, -0.1}.Normalize()
	n01 := (h.Noise.Eval(dir) + 1) / 2
	require.InDelta(t, (2-n01)/2, h.HeightAt(dir), 1e-12)
	got := h.HeightAt(dir)
	require.GreaterOrEqual(t, got, 0.5)
	require.LessOrEqual(t, got, 1.0)

	require.ErrorIs(t, (&Hybrid{}).Init(), ErrNotInitialized)
}

func TestConst(t *testing.T) {
	c := &Const{Height: 0.25}
	require.NoError(t, c.Init())
	require.Equal(t, 0.25, c.HeightAt(mgl64.Vec3{0, 1, 0}))
}

func TestGradient(t *testing.T) {
	g := NewGradient()
	require.NoError(t, g.Validate())

	w := g.Weights(0.5, mgl64.Vec3{})
	tt := float32((0.5 - 0.02) / (0.75 - 0.02))
	require.InDelta(t, 1-tt, w[2], 1e-6)
	require.InDelta(t, tt, w[3], 1e-6)

	require.Equal(t, Weights{4: 1}, g.Weights(1, mgl64.Vec3{}))
	require.Equal(t, Weights{4: 1}, g.Weights(3, mgl64.Vec3{}))
	require.Equal(t, Weights{0: 1}, g.Weights(0, mgl64.Vec3{}))

	bad := &Gradient{Heights: []float64{0, 1}, IDs: []int{0, 9}}
	require.Error(t, bad.Validate())
}

func TestRange(t *testing.T) {
	r := NewRange()
	w := r.Weights(0.5, mgl64.Vec3{})
	require.InDelta(t, 0.5, w[0], 1e-5)
	require.InDelta(t, 0.5, w[1], 1e-5)

	require.Equal(t, Weights{0: 1}, r.Weights(0.1, mgl64.Vec3{}))
	require.Equal(t, Weights{1: 1}, r.Weights(0.9, mgl64.Vec3{}))
	require.Equal(t, Weights{}, r.Weights(2, mgl64.Vec3{}))
}

func TestSplatmap(t *testing.T) {
	s := &Splatmap{
		Maps:     []*Heightmap{{Data: constHeightmap(2, 2, 255)}, {Data: constHeightmap(2, 2, 0)}},
		Textures: []int{3, 5},
	}
	require.NoError(t, s.Init())
	w := s.Weights(0.4, mgl64.Vec3{0, 0, 1})
	require.Equal(t, Weights{3: 1}, w)

	require.Error(t, (&Splatmap{Maps: []*Heightmap{{}}, Textures: nil}).Init())
	require.Equal(t, Weights{}, NoTexture{}.Weights(1, mgl64.Vec3{}))
}

type fakeGate struct {
	mu        sync.Mutex
	splitting bool
	stopped   bool
	calls     []bool
}

func (g *fakeGate) AnyCurrentlySplitting() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.splitting
}

func (g *fakeGate) Stop(stop bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = stop
	g.calls = append(g.calls, stop)
}

func (g *fakeGate) snapshot() (bool, []bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.stopped, append([]bool(nil), g.calls...)
}

func TestStreamingReloadProtocol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "detail.raw")
	f, err := os.Create(path)
	require.NoError(t, err)
	detail := formats.NewHeightmap(8, 4, true)
	for i := range detail.Samples {
		detail.Samples[i] = math.MaxUint16
	}
	_, err = detail.WriteTo(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	s := &Streaming{
		Path:            path,
		Base:            &Heightmap{Data: constHeightmap(4, 2, 0)},
		LoadSize:        [2]float64{0.25, 0.5},
		ReloadThreshold: 10,
	}
	require.NoError(t, s.Init())
	defer s.Close()

	viewer := mgl64.Vec3{1000, 0, 0}
	require.Equal(t, 0.0, s.HeightAt(mgl64.Vec3{1, 0, 0}))

	gate := &fakeGate{splitting: true}
	s.Update(gate, viewer)
	stopped, calls := gate.snapshot()
	require.True(t, stopped, "gate must be stopped while splits drain")
	require.Equal(t, []bool{true}, calls)
	require.False(t, s.Reloading())

	gate.mu.Lock()
	gate.splitting = false
	gate.mu.Unlock()
	s.Update(gate, viewer)
	s.Wait()

	stopped, calls = gate.snapshot()
	require.False(t, stopped)
	require.Equal(t, []bool{true, true, false}, calls)
	require.False(t, s.Reloading())

	require.InDelta(t, 1, s.HeightAt(mgl64.Vec3{1, 0, 0}), 1e-12)
	require.Equal(t, 0.0, s.HeightAt(mgl64.Vec3{-1, 0, 0}))

	// Small moves do not reload.
	s.Update(gate, viewer.Add(mgl64.Vec3{0, 5, 0}))
	_, calls = gate.snapshot()
	require.Len(t, calls, 3)
}
