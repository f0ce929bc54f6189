package provider

import (
	"fmt"

	"github.com/Faultbox/quadsphere/pkg/formats"
)

// Interpolation selects how heightmap pixels are blended.
type Interpolation int

const (
	Bilinear Interpolation = iota
	Bicubic
	Nearest
)

// ParseInterpolation maps a config name to an Interpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch s {
	case "", "bilinear":
		return Bilinear, nil
	case "bicubic":
		return Bicubic, nil
	case "nearest", "none":
		return Nearest, nil
	}
	return 0, fmt.Errorf("unknown interpolation %q", s)
}

// Sampler reads normalized values from a heightmap raster.
type Sampler struct {
	hm     *formats.Heightmap
	mode   Interpolation
	w, h   int
	maxVal float64
}

// NewSampler wraps hm.
func NewSampler(hm *formats.Heightmap, mode Interpolation) *Sampler {
	return &Sampler{hm: hm, mode: mode, w: int(hm.Width), h: int(hm.Height), maxVal: hm.Max()}
}

// Heightmap returns the wrapped raster.
func (s *Sampler) Heightmap() *formats.Heightmap { return s.hm }

func (s *Sampler) at(x, y int) float64 {
	return float64(s.hm.Samples[y*s.w+x])
}

// Sample returns the interpolated value at (u, v) in [0,1)², clamped to [0, 1].
// Without wrap both axes clamp at the border, which is what a region of a
// larger map needs. With wrap columns wrap around; rows clamp, except for
// bilinear sampling which wraps them too.
func (s *Sampler) Sample(u, v float64, wrap bool) float64 {
	x := belowOne(u) * float64(s.w)
	y := belowOne(v) * float64(s.h)

	var r float64
	switch s.mode {
	case Bicubic:
		x2 := int(x)
		x1 := s.col(x2-1, wrap)
		x3 := s.col(x2+1, wrap)
		x4 := s.col(x3+1, wrap)

		y2 := int(y)
		y1 := max(y2-1, 0)
		y3 := min(y2+1, s.h-1)
		y4 := min(y3+1, s.h-1)

		fx := x - float64(x2)
		row := func(yy int) float64 {
			return Cubic(s.at(x1, yy), s.at(x2, yy), s.at(x3, yy), s.at(x4, yy), fx)
		}
		r = Cubic(row(y1), row(y2), row(y3), row(y4), y-float64(y2))
	case Bilinear:
		x1, y1 := int(x), int(y)
		x2, y2 := s.col(x1+1, wrap), y1+1
		if y2 > s.h-1 {
			if wrap {
				y2 -= s.h
			} else {
				y2 = s.h - 1
			}
		}
		fx := x - float64(x1)
		a := s.at(x1, y1) + (s.at(x2, y1)-s.at(x1, y1))*fx
		b := s.at(x1, y2) + (s.at(x2, y2)-s.at(x1, y2))*fx
		r = a + (b-a)*(y-float64(y1))
	default:
		px, py := s.col(int(x+0.5), wrap), int(y+0.5)
		if py == s.h {
			py = 0
			if !wrap {
				py = s.h - 1
			}
		}
		r = s.at(px, py)
	}
	return min(max(r/s.maxVal, 0), 1)
}

func (s *Sampler) col(x int, wrap bool) int {
	switch {
	case x < 0 && wrap:
		return x + s.w
	case x < 0:
		return 0
	case x > s.w-1 && wrap:
		return x - s.w
	case x > s.w-1:
		return s.w - 1
	}
	return x
}

// Cubic is Catmull-Rom interpolation between n1 and n2 at a in [0, 1].
func Cubic(n0, n1, n2, n3, a float64) float64 {
	return n1 + 0.5*a*(n2-n0+a*(2*n0-5*n1+4*n2-n3+a*(3*(n1-n2)+n3-n0)))
}
