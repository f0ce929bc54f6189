package provider

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/pkg/formats"
)

// LoadHeightmap reads a heightmap from disk. Files ending in .png, .tif or .tiff
// are decoded as images using channel, everything else is parsed as a raw
// heightmap file.
func LoadHeightmap(path string, channel int) (*formats.Heightmap, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".tif", ".tiff":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening heightmap image: %w", err)
		}
		defer f.Close()
		return formats.DecodeHeightmapImage(f, channel)
	}
	return formats.ParseHeightmapFile(path)
}

// Heightmap samples an equirectangular heightmap.
type Heightmap struct {
	// Path is loaded by Init when Data is nil.
	Path          string
	Data          *formats.Heightmap
	Interpolation Interpolation

	sampler *Sampler
}

// Init implements HeightProvider.
func (p *Heightmap) Init() error {
	if p.Data == nil {
		if p.Path == "" {
			return fmt.Errorf("heightmap provider: no data or path")
		}
		hm, err := LoadHeightmap(p.Path, formats.ChannelGray)
		if err != nil {
			return fmt.Errorf("heightmap provider: %w", err)
		}
		p.Data = hm
	}
	p.sampler = NewSampler(p.Data, p.Interpolation)
	return nil
}

// HeightAt implements HeightProvider. It panics before Init.
func (p *Heightmap) HeightAt(dir mgl64.Vec3) float64 {
	if p.sampler == nil {
		panic(fmt.Errorf("heightmap provider: %w", ErrNotInitialized))
	}
	u, v := ToUV(dir)
	return p.sampler.Sample(u, v, true)
}
