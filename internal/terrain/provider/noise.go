package provider

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/ojrac/opensimplex-go"
)

// Noise is fractal simplex noise evaluated on the unit sphere.
type Noise struct {
	Seed        int64
	Frequency   float64
	Octaves     int
	Persistence float64
	Lacunarity  float64

	noise opensimplex.Noise
	norm  float64
}

// NewNoise returns a noise provider with common fractal defaults.
func NewNoise(seed int64) *Noise {
	return &Noise{Seed: seed, Frequency: 1, Octaves: 6, Persistence: 0.5, Lacunarity: 2}
}

// Init implements HeightProvider.
func (n *Noise) Init() error {
	if n.Octaves < 1 {
		n.Octaves = 1
	}
	if n.Frequency == 0 {
		n.Frequency = 1
	}
	if n.Lacunarity == 0 {
		n.Lacunarity = 2
	}
	n.noise = opensimplex.New(n.Seed)
	n.norm = 0
	amp := 1.0
	for i := 0; i < n.Octaves; i++ {
		n.norm += amp
		amp *= n.Persistence
	}
	return nil
}

// Eval returns the fractal noise value at dir in [-1, 1]. It panics before
// Init.
func (n *Noise) Eval(dir mgl64.Vec3) float64 {
	if n.noise == nil {
		panic(fmt.Errorf("noise provider: %w", ErrNotInitialized))
	}
	var sum float64
	freq, amp := n.Frequency, 1.0
	for i := 0; i < n.Octaves; i++ {
		sum += amp * n.noise.Eval3(dir[0]*freq, dir[1]*freq, dir[2]*freq)
		freq *= n.Lacunarity
		amp *= n.Persistence
	}
	return sum / n.norm
}

// HeightAt implements HeightProvider.
func (n *Noise) HeightAt(dir mgl64.Vec3) float64 {
	return (n.Eval(dir) + 1) * 0.5
}

// Hybrid lowers heightmap terrain by noise: h · (div − noise01) / div.
// Larger NoiseDiv values weaken the noise.
type Hybrid struct {
	Heightmap *Heightmap
	Noise     *Noise
	NoiseDiv  float64
}

// Init implements HeightProvider.
func (h *Hybrid) Init() error {
	if h.Heightmap == nil || h.Noise == nil {
		return ErrNotInitialized
	}
	if h.NoiseDiv == 0 {
		h.NoiseDiv = 1
	}
	if err := h.Heightmap.Init(); err != nil {
		return err
	}
	return h.Noise.Init()
}

// HeightAt implements HeightProvider.
func (h *Hybrid) HeightAt(dir mgl64.Vec3) float64 {
	noise01 := (h.Noise.Eval(dir) + 1) / 2
	return h.Heightmap.HeightAt(dir) * (h.NoiseDiv - noise01) / h.NoiseDiv
}
