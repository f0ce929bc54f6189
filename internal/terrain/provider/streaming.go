package provider

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/pkg/formats"
)

// SplitGate is the view of the split scheduler a streaming provider needs: a
// reload may only swap data while no split is generating meshes.
type SplitGate interface {
	AnyCurrentlySplitting() bool
	Stop(stop bool)
}

// region is a loaded window of the full resolution heightmap in uv space.
type region struct {
	u0, v0, u1, v1 float64
	sampler        *Sampler
}

func (r region) contains(u, v float64) bool {
	return u >= r.u0 && u <= r.u1 && v >= r.v0 && v <= r.v1
}

// Streaming samples a low resolution base heightmap everywhere and a window of a
// full resolution heightmap file around the viewer. The window is reloaded on a
// background goroutine when the viewer moves farther than ReloadThreshold.
type Streaming struct {
	Path          string
	Base          *Heightmap
	Interpolation Interpolation
	// LoadSize is the window size in uv units.
	LoadSize        [2]float64
	ReloadThreshold float64
	Log             *zap.Logger

	file      *os.File
	header    formats.HeightmapHeader
	regions   atomic.Pointer[[]region]
	reloading atomic.Bool
	lastPos   mgl64.Vec3
	wg        sync.WaitGroup
}

// Init implements HeightProvider. It opens the full resolution file but loads
// nothing until the first Update.
func (s *Streaming) Init() error {
	if s.Log == nil {
		s.Log = zap.NewNop()
	}
	if s.Base == nil {
		return fmt.Errorf("streaming provider: %w: no base heightmap", ErrNotInitialized)
	}
	if err := s.Base.Init(); err != nil {
		return err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return fmt.Errorf("streaming provider: %w", err)
	}
	hdr, err := formats.ReadHeightmapHeader(f)
	if err != nil {
		f.Close()
		return fmt.Errorf("streaming provider: %w", err)
	}
	s.file = f
	s.header = hdr
	inf := math.Inf(1)
	s.lastPos = mgl64.Vec3{inf, inf, inf}
	s.regions.Store(&[]region{})
	return nil
}

// HeightAt implements HeightProvider.
func (s *Streaming) HeightAt(dir mgl64.Vec3) float64 {
	u, v := ToUV(dir)
	if rs := s.regions.Load(); rs != nil {
		for _, r := range *rs {
			if r.contains(u, v) {
				return r.sampler.Sample((u-r.u0)/(r.u1-r.u0), (v-r.v0)/(r.v1-r.v0), false)
			}
		}
	}
	return s.Base.HeightAt(dir)
}

// Reloading reports whether a window load is in progress.
func (s *Streaming) Reloading() bool {
	return s.reloading.Load()
}

// Update starts a reload around viewer (planet-local position) once it moved
// far enough. The gate is stopped first; if splits are still in flight the load
// is deferred to a later Update and the gate stays stopped so they drain.
func (s *Streaming) Update(gate SplitGate, viewer mgl64.Vec3) {
	if s.file == nil || viewer.Sub(s.lastPos).Len() <= s.ReloadThreshold || s.reloading.Load() {
		return
	}
	if gate.AnyCurrentlySplitting() {
		gate.Stop(true)
		return
	}

	gate.Stop(true)
	s.reloading.Store(true)
	s.lastPos = viewer
	u, v := ToUV(viewer.Normalize())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.load(u, v); err != nil {
			s.Log.Error("streaming heightmap reload failed", zap.Error(err))
		}
		s.reloading.Store(false)
		gate.Stop(false)
	}()
}

// Wait blocks until a running reload finished.
func (s *Streaming) Wait() {
	s.wg.Wait()
}

// Close waits for a running reload and releases the file.
func (s *Streaming) Close() error {
	s.wg.Wait()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

// load reads the window centered on (u, v). Windows crossing the date line are
// split into two regions, the latitude range is clamped at the poles.
func (s *Streaming) load(u, v float64) error {
	hw, hh := s.LoadSize[0]/2, s.LoadSize[1]/2
	v0, v1 := max(v-hh, 0), min(v+hh, 1)

	type span struct{ u0, u1 float64 }
	var spans []span
	switch u0, u1 := u-hw, u+hw; {
	case s.LoadSize[0] >= 1:
		spans = []span{{0, 1}}
	case u0 < 0:
		spans = []span{{u0 + 1, 1}, {0, u1}}
	case u1 > 1:
		spans = []span{{u0, 1}, {0, u1 - 1}}
	default:
		spans = []span{{u0, u1}}
	}

	width, height := float64(s.header.Width), float64(s.header.Height)
	loaded := make([]region, 0, len(spans))
	for _, sp := range spans {
		x0 := int(math.Floor(sp.u0 * width))
		x1 := min(int(math.Ceil(sp.u1*width)), int(s.header.Width))
		y0 := int(math.Floor(v0 * height))
		y1 := min(int(math.Ceil(v1*height)), int(s.header.Height))
		if x1-x0 < 2 || y1-y0 < 2 {
			continue
		}
		hm, err := formats.ReadHeightmapRegion(s.file, x0, y0, x1-x0, y1-y0)
		if err != nil {
			return err
		}
		loaded = append(loaded, region{
			u0:      float64(x0) / width,
			v0:      float64(y0) / height,
			u1:      float64(x1) / width,
			v1:      float64(y1) / height,
			sampler: NewSampler(hm, s.Interpolation),
		})
	}
	s.regions.Store(&loaded)
	s.Log.Debug("streaming heightmap window loaded",
		zap.Float64("u", u), zap.Float64("v", v), zap.Int("regions", len(loaded)))
	return nil
}
