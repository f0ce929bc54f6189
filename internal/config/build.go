package config

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/quadsphere/internal/terrain/meshgen"
	"github.com/Faultbox/quadsphere/internal/terrain/provider"
	"github.com/Faultbox/quadsphere/internal/terrain/quadtree"
	"github.com/Faultbox/quadsphere/internal/terrain/topology"
	"github.com/Faultbox/quadsphere/pkg/formats"
)

// HeightProvider builds and initializes the configured height provider. A
// *provider.Streaming result also needs to be passed to the tree.
func (c *Config) HeightProvider(log *zap.Logger) (provider.HeightProvider, error) {
	h := c.Height
	interp, err := provider.ParseInterpolation(h.Interpolation)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	noise := func() *provider.Noise {
		return &provider.Noise{
			Seed:        h.Seed,
			Frequency:   h.Frequency,
			Octaves:     h.Octaves,
			Persistence: h.Persistence,
			Lacunarity:  h.Lacunarity,
		}
	}
	heightmap := func() *provider.Heightmap {
		return &provider.Heightmap{Path: h.Heightmap, Interpolation: interp}
	}

	var p provider.HeightProvider
	switch h.Provider {
	case "const":
		p = &provider.Const{Height: h.Const}
	case "noise":
		p = noise()
	case "heightmap":
		p = heightmap()
	case "hybrid":
		p = &provider.Hybrid{Heightmap: heightmap(), Noise: noise(), NoiseDiv: h.NoiseDiv}
	case "streaming":
		p = &provider.Streaming{
			Path:            h.Detail,
			Base:            heightmap(),
			Interpolation:   interp,
			LoadSize:        h.LoadSize,
			ReloadThreshold: h.ReloadThreshold,
			Log:             log,
		}
	default:
		return nil, fmt.Errorf("%w: unknown height.provider %q", ErrInvalidConfig, h.Provider)
	}
	if err := p.Init(); err != nil {
		return nil, err
	}
	return p, nil
}

// TextureProvider builds the configured texture provider.
func (c *Config) TextureProvider() (provider.TextureProvider, error) {
	t := c.Texture
	switch t.Provider {
	case "none":
		return provider.NoTexture{}, nil
	case "gradient":
		g := provider.NewGradient()
		if len(t.Heights) > 0 {
			g.Heights, g.IDs = t.Heights, t.IDs
		}
		if err := g.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
		return g, nil
	case "range":
		return provider.NewRange(), nil
	case "splatmap":
		s := &provider.Splatmap{Textures: t.IDs}
		for i, path := range t.Splatmaps {
			hm, err := provider.LoadHeightmap(path, formats.ChannelGray)
			if err != nil {
				return nil, fmt.Errorf("splatmap %d: %w", i, err)
			}
			s.Maps = append(s.Maps, &provider.Heightmap{Data: hm, Interpolation: provider.Bilinear})
		}
		if err := s.Init(); err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("%w: unknown texture.provider %q", ErrInvalidConfig, t.Provider)
}

// MeshSettings combines the planet and generation sections with the given
// providers.
func (c *Config) MeshSettings(height provider.HeightProvider, texture provider.TextureProvider) (*meshgen.Settings, error) {
	table, err := topology.NewTable(c.Planet.QuadSize, c.Planet.DoubleFans)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	uv, err := meshgen.ParseUVType(c.Generation.UV)
	if err != nil {
		return nil, err
	}
	slope, err := meshgen.ParseSlopeMode(c.Generation.Slope)
	if err != nil {
		return nil, err
	}

	s := &meshgen.Settings{
		Radius:       c.Planet.Radius,
		HeightScale:  c.Planet.HeightScale,
		Table:        table,
		Height:       height,
		Texture:      texture,
		UV:           uv,
		UVScale:      c.Generation.UVScale,
		DetailLevels: len(c.LOD.DetailDistances),
		Slope:        slope,
		SlopeAngle:   c.Generation.SlopeAngle,
		SlopeFadeIn:  c.Generation.SlopeFadeIn,
		SlopeTexture: c.Generation.SlopeTexture,
		CalculateMSD: c.LOD.CalculateMSD,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// TreeOptions returns the quadtree options for mesh.
func (c *Config) TreeOptions(mesh *meshgen.Settings) (quadtree.Options, error) {
	mode, err := quadtree.ParseLODMode(c.LOD.Mode)
	if err != nil {
		return quadtree.Options{}, err
	}
	opts := quadtree.Options{
		Mesh:                   mesh,
		DetailDistances:        c.LOD.DetailDistances,
		DetailMSD:              c.LOD.DetailMSD,
		LODMode:                mode,
		BehindCameraExtraRange: c.LOD.BehindCameraExtraRange,
		VisSphereRadiusMod:     c.LOD.VisSphereRadiusMod,
		UpdateAllQuads:         c.LOD.UpdateAllQuads,
		MaxQuadsToUpdate:       c.LOD.MaxQuadsToUpdate,
		RecomputeThreshold:     c.LOD.RecomputeThreshold,
		SplitsSimultaneously:   c.Generation.SplitsSimultaneously,
		PatchPoolSize:          c.Pools.Patches,
	}
	return opts, opts.Validate()
}

// Generator starts the configured mesh generator. Closing it also stops the
// device of the compute path.
func (c *Config) Generator(mesh *meshgen.Settings, log *zap.Logger) (meshgen.Generator, error) {
	switch c.Generation.Path {
	case "cpu":
		gen, err := meshgen.NewCPUGenerator(mesh, c.Generation.Workers)
		if err != nil {
			return nil, err
		}
		return gen, nil
	case "compute":
		device := meshgen.NewSoftwareDevice(c.Generation.Workers)
		gen, err := meshgen.NewComputeGenerator(mesh, device, c.Generation.Workers, log)
		if err != nil {
			device.Close()
			return nil, err
		}
		return &deviceGenerator{ComputeGenerator: gen, device: device}, nil
	}
	return nil, fmt.Errorf("%w: unknown generation.path %q", ErrInvalidConfig, c.Generation.Path)
}

// deviceGenerator closes the software device together with the generator.
type deviceGenerator struct {
	*meshgen.ComputeGenerator
	device *meshgen.SoftwareDevice
}

func (g *deviceGenerator) Close() {
	g.ComputeGenerator.Close()
	g.device.Close()
}
