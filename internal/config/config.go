// Package config handles terrain configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all planet and simulation settings.
type Config struct {
	Planet     PlanetConfig     `yaml:"planet"`
	LOD        LODConfig        `yaml:"lod"`
	Generation GenerationConfig `yaml:"generation"`
	Height     HeightConfig     `yaml:"height"`
	Texture    TextureConfig    `yaml:"texture"`
	Pools      PoolsConfig      `yaml:"pools"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Sim        SimConfig        `yaml:"sim"`
}

// PlanetConfig holds the planet shape.
type PlanetConfig struct {
	Radius      float64 `yaml:"radius"`
	HeightScale float64 `yaml:"height_scale"` // Terrain height as a fraction of the radius
	QuadSize    int     `yaml:"quad_size"`    // Vertices per quad edge
	DoubleFans  bool    `yaml:"double_fans"`  // Allow two level jumps between neighbors
}

// LODConfig holds split and merge settings.
type LODConfig struct {
	DetailDistances        []float64 `yaml:"detail_distances"`
	CalculateMSD           bool      `yaml:"calculate_msd"`
	DetailMSD              []float64 `yaml:"detail_msd"`
	Mode                   string    `yaml:"mode"` // compute-render, not-computed
	BehindCameraExtraRange float64   `yaml:"behind_camera_extra_range"`
	VisSphereRadiusMod     float64   `yaml:"vis_sphere_radius_mod"`
	UpdateAllQuads         bool      `yaml:"update_all_quads"`
	MaxQuadsToUpdate       int       `yaml:"max_quads_to_update"`
	RecomputeThreshold     float64   `yaml:"recompute_threshold"`
}

// GenerationConfig holds mesh generation settings.
type GenerationConfig struct {
	Path                 string  `yaml:"path"` // cpu, compute
	Workers              int     `yaml:"workers"`
	SplitsSimultaneously int     `yaml:"splits_simultaneously"`
	UV                   string  `yaml:"uv"` // cube, quad, legacy, legacy-continuous
	UVScale              float64 `yaml:"uv_scale"`
	Slope                string  `yaml:"slope"` // none, fade, threshold
	SlopeAngle           float64 `yaml:"slope_angle"`
	SlopeFadeIn          float64 `yaml:"slope_fade_in"`
	SlopeTexture         int     `yaml:"slope_texture"`
}

// HeightConfig selects and configures the height provider.
type HeightConfig struct {
	Provider string  `yaml:"provider"` // const, noise, heightmap, hybrid, streaming
	Const    float64 `yaml:"const"`

	Seed        int64   `yaml:"seed"`
	Frequency   float64 `yaml:"frequency"`
	Octaves     int     `yaml:"octaves"`
	Persistence float64 `yaml:"persistence"`
	Lacunarity  float64 `yaml:"lacunarity"`
	NoiseDiv    float64 `yaml:"noise_div"`

	Heightmap     string `yaml:"heightmap"`
	Interpolation string `yaml:"interpolation"` // nearest, bilinear, bicubic

	// Streaming only: full resolution file and window.
	Detail          string     `yaml:"detail"`
	LoadSize        [2]float64 `yaml:"load_size"`
	ReloadThreshold float64    `yaml:"reload_threshold"`
}

// TextureConfig selects the texture provider.
type TextureConfig struct {
	Provider  string    `yaml:"provider"` // none, gradient, range, splatmap
	Heights   []float64 `yaml:"heights"`
	IDs       []int     `yaml:"ids"`
	Splatmaps []string  `yaml:"splatmaps"`
}

// PoolsConfig holds object pool sizes.
type PoolsConfig struct {
	Patches int `yaml:"patches"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// MetricsConfig holds the admin endpoint settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Empty disables the endpoint
}

// SimConfig drives the headless viewer.
type SimConfig struct {
	Ticks        int           `yaml:"ticks"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Altitude     float64       `yaml:"altitude"`      // Viewer height above the surface
	DegPerTick   float64       `yaml:"deg_per_tick"`  // Orbit speed
	SnapshotPath string        `yaml:"snapshot_path"` // JSON dump written on exit
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Planet: PlanetConfig{
			Radius:      10000,
			HeightScale: 0.02,
			QuadSize:    17,
			DoubleFans:  true,
		},
		LOD: LODConfig{
			DetailDistances:    []float64{50000, 25000, 12500, 6250, 3125, 1562.5, 781.25, 390.625},
			Mode:               "compute-render",
			VisSphereRadiusMod: 1,
			MaxQuadsToUpdate:   250,
			RecomputeThreshold: 5,
		},
		Generation: GenerationConfig{
			Path:                 "cpu",
			Workers:              4,
			SplitsSimultaneously: 4,
			UV:                   "cube",
			UVScale:              1,
			Slope:                "none",
			SlopeAngle:           60,
			SlopeFadeIn:          10,
			SlopeTexture:         5,
		},
		Height: HeightConfig{
			Provider:        "noise",
			Seed:            1,
			Frequency:       1,
			Octaves:         6,
			Persistence:     0.5,
			Lacunarity:      2,
			NoiseDiv:        1,
			Interpolation:   "bilinear",
			LoadSize:        [2]float64{0.1, 0.1},
			ReloadThreshold: 1000,
		},
		Texture: TextureConfig{
			Provider: "gradient",
		},
		Pools: PoolsConfig{
			Patches: 30,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
		Metrics: MetricsConfig{
			Addr: "",
		},
		Sim: SimConfig{
			Ticks:        600,
			TickInterval: 16 * time.Millisecond,
			Altitude:     100,
			DegPerTick:   0.05,
		},
	}
}

// Validate checks settings that would otherwise fail deep inside generation.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
		}
	}

	check(c.Planet.Radius > 0, "planet.radius must be positive")
	check(c.Planet.HeightScale > 0, "planet.height_scale must be positive")
	check(c.Planet.QuadSize >= 3 && c.Planet.QuadSize%2 == 1, "planet.quad_size must be odd and at least 3, got %d", c.Planet.QuadSize)
	check(!c.Planet.DoubleFans || c.Planet.QuadSize%4 == 1, "planet.double_fans needs quad_size = 4k+1, got %d", c.Planet.QuadSize)

	check(!c.LOD.CalculateMSD || len(c.LOD.DetailMSD) == len(c.LOD.DetailDistances),
		"lod.detail_msd needs one entry per detail distance")
	check(c.LOD.VisSphereRadiusMod > 0, "lod.vis_sphere_radius_mod must be positive")
	check(c.LOD.UpdateAllQuads || c.LOD.MaxQuadsToUpdate > 0, "lod.max_quads_to_update must be positive")
	check(oneOf(c.LOD.Mode, "", "compute-render", "not-computed"), "unknown lod.mode %q", c.LOD.Mode)

	check(oneOf(c.Generation.Path, "cpu", "compute"), "unknown generation.path %q", c.Generation.Path)
	check(c.Generation.Workers > 0, "generation.workers must be positive")
	check(c.Generation.SplitsSimultaneously > 0, "generation.splits_simultaneously must be positive")

	switch c.Height.Provider {
	case "const", "noise":
	case "heightmap", "hybrid":
		check(c.Height.Heightmap != "", "height.heightmap is required for the %s provider", c.Height.Provider)
	case "streaming":
		check(c.Height.Heightmap != "", "height.heightmap is required for the streaming provider")
		check(c.Height.Detail != "", "height.detail is required for the streaming provider")
		check(c.Height.LoadSize[0] > 0 && c.Height.LoadSize[1] > 0, "height.load_size must be positive")
	default:
		check(false, "unknown height.provider %q", c.Height.Provider)
	}

	switch c.Texture.Provider {
	case "none", "range":
	case "gradient":
		check(len(c.Texture.IDs) >= len(c.Texture.Heights), "texture.ids needs one entry per height")
	case "splatmap":
		check(len(c.Texture.Splatmaps) > 0, "texture.splatmaps is empty")
		check(len(c.Texture.IDs) == len(c.Texture.Splatmaps), "texture.ids needs one entry per splatmap")
	default:
		check(false, "unknown texture.provider %q", c.Texture.Provider)
	}

	check(c.Pools.Patches >= 0, "pools.patches must not be negative")
	check(c.Sim.Ticks >= 0, "sim.ticks must not be negative")
	return errors.Join(errs...)
}

func oneOf(s string, options ...string) bool {
	for _, o := range options {
		if s == o {
			return true
		}
	}
	return false
}
