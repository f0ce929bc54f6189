package provider

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// NoTexture assigns zero weights everywhere.
type NoTexture struct{}

// Weights implements TextureProvider.
func (NoTexture) Weights(float64, mgl64.Vec3) Weights { return Weights{} }

// Gradient blends between texture ids keyed by ascending heights.
type Gradient struct {
	Heights []float64
	IDs     []int
}

// NewGradient returns the default five-key gradient: water, beach, lowland,
// highland and snow.
func NewGradient() *Gradient {
	return &Gradient{
		Heights: []float64{0, 0.01, 0.02, 0.75, 1},
		IDs:     []int{0, 1, 2, 3, 4, 5},
	}
}

// Validate checks key counts and id ranges.
func (g *Gradient) Validate() error {
	if len(g.Heights) == 0 || len(g.IDs) < len(g.Heights) {
		return fmt.Errorf("gradient: %d heights need as many ids, have %d", len(g.Heights), len(g.IDs))
	}
	for _, id := range g.IDs {
		if id < 0 || id >= MaxTextures {
			return fmt.Errorf("gradient: texture id %d out of range", id)
		}
	}
	return nil
}

// Weights implements TextureProvider.
func (g *Gradient) Weights(height float64, _ mgl64.Vec3) Weights {
	var w Weights
	height = min(max(height, 0), 1)

	i := 0
	for ; i < len(g.Heights); i++ {
		if height < g.Heights[i] {
			break
		}
	}
	last := len(g.Heights) - 1
	i1 := min(max(i-1, 0), last)
	i2 := min(i, last)

	if g.IDs[i1] == g.IDs[i2] {
		w[g.IDs[i1]] = 1
		return w
	}
	t := (height - g.Heights[i1]) / (g.Heights[i2] - g.Heights[i1])
	w[g.IDs[i1]] = float32(1 - t)
	w[g.IDs[i2]] = float32(t)
	return w
}

// HeightRange assigns Texture to heights in [Min, Max].
type HeightRange struct {
	Min, Max float64
	Texture  int
}

// Range blends textures whose height ranges overlap, weighted by how far the
// height is from the nearer range boundary.
type Range struct {
	Ranges []HeightRange
}

// NewRange returns two overlapping ranges, texture 0 below 2/3 and texture 1 above 1/3.
func NewRange() *Range {
	return &Range{Ranges: []HeightRange{
		{Min: 0, Max: 0.666667, Texture: 0},
		{Min: 0.333333, Max: 1, Texture: 1},
	}}
}

// Weights implements TextureProvider.
func (r *Range) Weights(height float64, _ mgl64.Vec3) Weights {
	var w Weights
	var hits []int
	for i, rg := range r.Ranges {
		if height >= rg.Min && height <= rg.Max {
			hits = append(hits, i)
		}
	}
	if len(hits) == 0 {
		return w
	}
	if len(hits) == 1 || r.Ranges[hits[0]].Texture == r.Ranges[hits[1]].Texture {
		w[r.Ranges[hits[0]].Texture] = 1
		return w
	}

	var sum float32
	for _, i := range hits {
		rg := r.Ranges[i]
		d := math.Min(math.Abs(rg.Min-height), math.Abs(rg.Max-height)) / math.Abs(rg.Min-rg.Max)
		w[rg.Texture] = float32(d)
		sum += float32(d)
	}
	if sum == 0 {
		return w
	}
	for i := range w {
		w[i] /= sum
	}
	return w
}

// Splatmap reads texture weights from per-texture heightmaps.
type Splatmap struct {
	Maps     []*Heightmap
	Textures []int
}

// Init loads every splat channel.
func (s *Splatmap) Init() error {
	if len(s.Maps) != len(s.Textures) {
		return fmt.Errorf("splatmap: %d maps for %d textures", len(s.Maps), len(s.Textures))
	}
	for i, m := range s.Maps {
		if s.Textures[i] < 0 || s.Textures[i] >= MaxTextures {
			return fmt.Errorf("splatmap: texture id %d out of range", s.Textures[i])
		}
		if err := m.Init(); err != nil {
			return fmt.Errorf("splatmap channel %d: %w", i, err)
		}
	}
	return nil
}

// Weights implements TextureProvider.
func (s *Splatmap) Weights(_ float64, dir mgl64.Vec3) Weights {
	var w Weights
	for i, m := range s.Maps {
		w[s.Textures[i]] = float32(m.HeightAt(dir))
	}
	return w
}
