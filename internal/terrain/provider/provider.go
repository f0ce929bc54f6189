// Package provider defines the height and texture sources sampled by mesh
// generation, together with the bundled implementations: constant, procedural
// noise, equirectangular heightmaps, noise-modulated heightmaps and a streaming
// heightmap that keeps a high resolution window around the viewer in memory.
//
// Providers are initialized once and then sampled concurrently from generation
// workers, so HeightAt and Weights must not mutate shared state.
package provider

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrNotInitialized is returned when a provider is used before Init succeeded.
var ErrNotInitialized = errors.New("provider not initialized")

// MaxTextures is the number of blend weights per vertex.
const MaxTextures = 6

// Weights are per-texture blend intensities of one vertex.
type Weights [MaxTextures]float32

// HeightProvider returns a height in [0, 1] for a direction on the unit sphere.
type HeightProvider interface {
	Init() error
	HeightAt(dir mgl64.Vec3) float64
}

// TextureProvider classifies a vertex by its height and direction.
type TextureProvider interface {
	Weights(height float64, dir mgl64.Vec3) Weights
}

// ToUV maps a unit direction to equirectangular coordinates in [0, 1).
// u follows longitude, v follows latitude with v=0 at the south pole.
func ToUV(dir mgl64.Vec3) (u, v float64) {
	v = (math.Pi - math.Acos(clampUnit(dir[1]))) / math.Pi
	u = (math.Atan2(dir[2], dir[0]) + math.Pi) / (2 * math.Pi)
	return belowOne(u), belowOne(v)
}

// FromUV is the inverse of ToUV.
func FromUV(u, v float64) mgl64.Vec3 {
	lat := math.Pi - v*math.Pi
	lon := u*2*math.Pi - math.Pi
	s := math.Sin(lat)
	return mgl64.Vec3{s * math.Cos(lon), math.Cos(lat), s * math.Sin(lon)}
}

const justBelowOne = 0.999999999999999

func belowOne(x float64) float64 {
	if !(x < 1) {
		return justBelowOne
	}
	return x
}

func clampUnit(x float64) float64 {
	return min(max(x, -1), 1)
}

// Const returns the same height everywhere.
type Const struct {
	Height float64
}

// Init implements HeightProvider.
func (c *Const) Init() error { return nil }

// HeightAt implements HeightProvider.
func (c *Const) HeightAt(mgl64.Vec3) float64 { return c.Height }
