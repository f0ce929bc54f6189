package main

import (
	"context"
	"math"
	"os"
	"sync/atomic"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/segmentio/encoding/json"

	"github.com/Faultbox/quadsphere/internal/config"
	"github.com/Faultbox/quadsphere/internal/terrain/quadtree"
)

// flyby moves the viewer along a wavy orbit around the planet.
type flyby struct {
	tree   *quadtree.Tree
	radius float64
	sim    config.SimConfig
}

func newFlyby(tree *quadtree.Tree, radius float64, sim config.SimConfig) *flyby {
	return &flyby{tree: tree, radius: radius, sim: sim}
}

// viewAt returns the view for tick i: longitude advances by DegPerTick while
// latitude swings 40 degrees around the equator.
func (f *flyby) viewAt(i int) quadtree.View {
	lon := float64(i) * f.sim.DegPerTick
	lat := 90 + 40*math.Sin(mgl64.DegToRad(lon)*3)
	dir := quadtree.DirFromLatLon(lat, lon)

	eye := f.tree.SurfacePosition(dir).Add(dir.Mul(f.sim.Altitude))
	ahead := quadtree.DirFromLatLon(lat, lon+1)
	target := f.tree.SurfacePosition(ahead)
	return quadtree.NewView(eye, target, dir, 60, 16.0/9, 0.1, 4*f.radius)
}

func (f *flyby) run(ctx context.Context) error {
	var tick <-chan time.Time
	if f.sim.TickInterval > 0 {
		t := time.NewTicker(f.sim.TickInterval)
		defer t.Stop()
		tick = t.C
	}

	for i := 0; i < f.sim.Ticks; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.tree.Tick(f.viewAt(i))
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
			}
		}
	}
	return nil
}

// countingSink tracks patch events. A renderer would upload meshes here.
type countingSink struct {
	bound atomic.Int64
	total atomic.Int64
}

func (s *countingSink) PatchCreated(*quadtree.Patch) {
	s.bound.Add(1)
	s.total.Add(1)
}

func (s *countingSink) PatchUpdated(*quadtree.Patch)   { s.total.Add(1) }
func (s *countingSink) PatchMoved(*quadtree.Patch)     { s.total.Add(1) }
func (s *countingSink) PatchActivated(*quadtree.Patch) { s.total.Add(1) }

func (s *countingSink) PatchReleased(*quadtree.Patch) {
	s.bound.Add(-1)
	s.total.Add(1)
}

func (s *countingSink) live() int64   { return s.bound.Load() }
func (s *countingSink) events() int64 { return s.total.Load() }

func writeSnapshot(path string, snap quadtree.Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
