// Package meshgen turns a quad description into vertex data on the sphere.
//
// The pipeline runs in double precision: grid vertices are scaled, rotated onto
// the unit cube, projected onto the unit sphere, sampled by the height provider
// and displaced radially. Positions are stored relative to the first vertex
// (the mesh offset) and only then narrowed to float32, which keeps precision on
// planets with a large radius.
package meshgen

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/terrain/provider"
	"github.com/Faultbox/quadsphere/internal/terrain/topology"
	qmath "github.com/Faultbox/quadsphere/pkg/math"
	"github.com/Faultbox/quadsphere/pkg/quadindex"
)

// Errors returned by mesh generation.
var (
	ErrInvalidSettings = errors.New("invalid mesh settings")
	ErrCanceled        = errors.New("mesh generation canceled")
)

// Plane is the cube axis a face is perpendicular to.
type Plane int

const (
	PlaneX Plane = iota
	PlaneY
	PlaneZ
)

func (p Plane) String() string {
	switch p {
	case PlaneX:
		return "X"
	case PlaneY:
		return "Y"
	case PlaneZ:
		return "Z"
	}
	return fmt.Sprintf("Plane(%d)", int(p))
}

// Side tells which of the two faces on a plane a quad belongs to.
type Side int

const (
	Back Side = iota
	Front
)

func (s Side) String() string {
	if s == Front {
		return "front"
	}
	return "back"
}

// UVType selects how texture coordinates are laid out.
type UVType int

const (
	// UVCube tiles uvScale times per root face, continuous across levels.
	UVCube UVType = iota
	// UVQuad maps [0, 2^(levels-level)] onto every quad.
	UVQuad
	// UVLegacy uses the rotated, scaled grid coordinates of each quad.
	UVLegacy
	// UVLegacyContinuous uses unit-cube coordinates.
	UVLegacyContinuous
)

// ParseUVType parses a configuration value.
func ParseUVType(s string) (UVType, error) {
	switch s {
	case "", "cube":
		return UVCube, nil
	case "quad":
		return UVQuad, nil
	case "legacy":
		return UVLegacy, nil
	case "legacy-continuous":
		return UVLegacyContinuous, nil
	}
	return 0, fmt.Errorf("%w: unknown uv type %q", ErrInvalidSettings, s)
}

func (u UVType) legacy() bool { return u == UVLegacy || u == UVLegacyContinuous }

// SlopeMode selects the slope texturing post-pass.
type SlopeMode int

const (
	SlopeNone SlopeMode = iota
	// SlopeFade blends towards the slope texture over the fade-in range.
	SlopeFade
	// SlopeThreshold switches to the slope texture above the slope angle.
	SlopeThreshold
)

// ParseSlopeMode parses a configuration value.
func ParseSlopeMode(s string) (SlopeMode, error) {
	switch s {
	case "", "none":
		return SlopeNone, nil
	case "fade":
		return SlopeFade, nil
	case "threshold":
		return SlopeThreshold, nil
	}
	return 0, fmt.Errorf("%w: unknown slope mode %q", ErrInvalidSettings, s)
}

// Settings are shared by every job of one planet. They must not change while
// generation is running.
type Settings struct {
	Radius      float64
	HeightScale float64

	Table   *topology.Table
	Height  provider.HeightProvider
	Texture provider.TextureProvider

	UV      UVType
	UVScale float64
	// DetailLevels is the number of detail distances, used by UVQuad.
	DetailLevels int

	Slope        SlopeMode
	SlopeAngle   float64 // degrees
	SlopeFadeIn  float64 // degrees
	SlopeTexture int

	CalculateMSD bool
}

// Validate checks the settings before they are shared with workers.
func (s *Settings) Validate() error {
	switch {
	case s.Table == nil:
		return fmt.Errorf("%w: missing topology table", ErrInvalidSettings)
	case s.Height == nil:
		return fmt.Errorf("%w: missing height provider", ErrInvalidSettings)
	case s.Radius <= 0:
		return fmt.Errorf("%w: radius %v", ErrInvalidSettings, s.Radius)
	case s.HeightScale <= 0:
		return fmt.Errorf("%w: height scale %v", ErrInvalidSettings, s.HeightScale)
	case s.Slope != SlopeNone && (s.SlopeTexture < 0 || s.SlopeTexture >= provider.MaxTextures):
		return fmt.Errorf("%w: slope texture %d", ErrInvalidSettings, s.SlopeTexture)
	case s.Slope == SlopeFade && s.SlopeFadeIn >= s.SlopeAngle:
		return fmt.Errorf("%w: fade-in %v must be below slope angle %v", ErrInvalidSettings, s.SlopeFadeIn, s.SlopeAngle)
	}
	return nil
}

// HeightInv is the inverse height scale.
func (s *Settings) HeightInv() float64 { return 1 / s.HeightScale }

// texture returns the configured texture provider or the empty one.
func (s *Settings) texture() provider.TextureProvider {
	if s.Texture == nil {
		return provider.NoTexture{}
	}
	return s.Texture
}

// Job is an immutable snapshot of the quad being generated.
type Job struct {
	Index       quadindex.Index
	Level       int
	Plane       Plane
	Side        Side
	Scale       float64
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
}

// MeshData is the output of one generation. Positions are relative to Offset.
type MeshData struct {
	Positions []qmath.Vec3
	Normals   []qmath.Vec3
	UV        []qmath.Vec2
	Weights   []provider.Weights

	Offset mgl64.Vec3
	Bounds qmath.Bounds
	// Biome has bit j set when any vertex weights texture j above one half.
	Biome uint8
	// MSD is the mean squared deviation of the vertex heights, zero unless enabled.
	MSD float64
}
