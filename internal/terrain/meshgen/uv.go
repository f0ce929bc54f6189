package meshgen

import (
	"math"

	qmath "github.com/Faultbox/quadsphere/pkg/math"
)

func uvs(s *Settings, job Job) []qmath.Vec2 {
	n := s.Table.SideLength()
	count := n * n
	out := make([]qmath.Vec2, count)

	if s.UV.legacy() {
		for i, v := range s.Table.Plane() {
			p := job.Rotation.Rotate(v.Mul(job.Scale))
			if s.UV == UVLegacyContinuous {
				p = p.Add(job.Translation)
			}
			switch job.Plane {
			case PlaneZ:
				out[i] = qmath.Vec2{X: float32(p[0]), Y: float32(p[1])}
			case PlaneY:
				out[i] = qmath.Vec2{X: float32(p[0]), Y: float32(p[2])}
			case PlaneX:
				out[i] = qmath.Vec2{X: float32(p[2]), Y: float32(p[1])}
			}
		}
		return out
	}

	side := float64(n - 1)
	switch s.UV {
	case UVCube:
		levelConst, offX, offY := cubeUVConstants(job, s.UVScale)
		scale := s.UVScale / float64(levelConst)
		for i := range count {
			x := float64(i/n)/side*scale + offX
			y := -(float64(i%n)/side*scale + offY)
			out[i] = rotateUV(job, qmath.Vec2{X: float32(x), Y: float32(y)})
		}
	case UVQuad:
		levelConst := float64(int(1) << max(s.DetailLevels-job.Level, 0))
		for i := range count {
			x := float64(i/n) / side * levelConst
			y := -float64(i%n) / side * levelConst
			out[i] = rotateUV(job, qmath.Vec2{X: float32(x), Y: float32(y)})
		}
	}
	return out
}

// cubeUVConstants returns 2^level and the offset of the quad inside the root
// face texture, so neighboring quads of any level continue the same tiling.
func cubeUVConstants(job Job, uvScale float64) (levelConst int, offX, offY float64) {
	levelConst = 1 << job.Level
	p := 0.5 * uvScale
	digits := job.Index.Digits()
	for _, d := range digits[min(2, len(digits)):] {
		switch d {
		case 0:
			offX += p
		case 1:
			offX += p
			offY += p
		case 3:
			offY += p
		}
		p *= 0.5
	}
	return levelConst, math.Mod(offX, 1), math.Mod(offY, 1)
}

// rotateUV aligns the texture orientation of the six faces.
func rotateUV(job Job, uv qmath.Vec2) qmath.Vec2 {
	if job.Side == Front {
		if job.Plane == PlaneX {
			return uv.Rotate90()
		}
		return uv
	}
	if job.Plane == PlaneX {
		return uv.Rotate270()
	}
	return uv.Rotate180()
}
