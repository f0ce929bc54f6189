package meshgen

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Faultbox/quadsphere/internal/terrain/provider"
	qmath "github.com/Faultbox/quadsphere/pkg/math"
)

// Generate runs the whole pipeline for one job on the calling goroutine.
func Generate(s *Settings, job Job) (*MeshData, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	grid := s.Table.ExtendedPlane()
	count := s.Table.VertexCount()

	positions := make([]mgl64.Vec3, len(grid))
	heights := make([]float64, count)
	dirs := make([]mgl64.Vec3, count)
	for i, v := range grid {
		dir := cubeToSphere(job, v)
		h := s.Height.HeightAt(dir)
		positions[i] = displace(s, dir, h)
		if i < count {
			heights[i] = h
			dirs[i] = dir
		}
	}
	return assemble(s, job, positions, heights, dirs), nil
}

// SamplePositions computes the displaced planet-space position of every vertex of
// the extended grid. It is the kernel run by compute devices.
func SamplePositions(s *Settings, job Job) []mgl64.Vec3 {
	grid := s.Table.ExtendedPlane()
	out := make([]mgl64.Vec3, len(grid))
	for i, v := range grid {
		dir := cubeToSphere(job, v)
		out[i] = displace(s, dir, s.Height.HeightAt(dir))
	}
	return out
}

// Finish builds mesh data from positions produced by SamplePositions. Heights and
// directions are recovered from the radial displacement.
func Finish(s *Settings, job Job, positions []mgl64.Vec3) (*MeshData, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if want := len(s.Table.ExtendedPlane()); len(positions) != want {
		return nil, fmt.Errorf("%w: got %d positions, want %d", ErrInvalidSettings, len(positions), want)
	}
	count := s.Table.VertexCount()
	heights := make([]float64, count)
	dirs := make([]mgl64.Vec3, count)
	inv := s.HeightInv()
	for i := range count {
		p := positions[i]
		heights[i] = (p.Len()/s.Radius - 1) * inv
		dirs[i] = p.Normalize()
	}
	return assemble(s, job, positions, heights, dirs), nil
}

// cubeToSphere maps a grid vertex onto the unit sphere.
func cubeToSphere(job Job, v mgl64.Vec3) mgl64.Vec3 {
	return job.Rotation.Rotate(v.Mul(job.Scale)).Add(job.Translation).Normalize()
}

// displace moves a unit direction out to the planet surface at height h.
func displace(s *Settings, dir mgl64.Vec3, h float64) mgl64.Vec3 {
	inv := s.HeightInv()
	return dir.Mul(s.Radius * (inv + h) / inv)
}

func assemble(s *Settings, job Job, positions []mgl64.Vec3, heights []float64, dirs []mgl64.Vec3) *MeshData {
	count := len(heights)
	offset := qmath.Narrow(positions[0]).Wide()
	down := qmath.Narrow(offset.Mul(-1).Normalize())

	ext := make([]qmath.Vec3, len(positions))
	for i, p := range positions {
		ext[i] = qmath.Narrow(p.Sub(offset))
	}

	md := &MeshData{
		Positions: ext[:count:count],
		Weights:   make([]provider.Weights, count),
		Offset:    offset,
	}

	tex := s.texture()
	for i := range count {
		w := tex.Weights(heights[i], dirs[i])
		md.Weights[i] = w
		for j, x := range w {
			if x > 0.5 {
				md.Biome |= 1 << j
			}
		}
	}

	md.Normals = normals(ext, s.Table.Extended(), count)
	applySlope(s, md, down)

	if s.CalculateMSD {
		md.MSD = meanSquaredDeviation(heights)
	}
	md.UV = uvs(s, job)
	md.Bounds = qmath.BoundsOf(md.Positions)
	return md
}

// normals accumulates face normals of the extended triangulation into the first
// count vertices. Skirt vertices only contribute to their neighbors.
func normals(verts []qmath.Vec3, tris []uint32, count int) []qmath.Vec3 {
	out := make([]qmath.Vec3, count)
	for i := 0; i+2 < len(tris); i += 3 {
		a, b, c := tris[i], tris[i+1], tris[i+2]
		p1 := verts[a]
		n := verts[b].Sub(p1).Cross(verts[c].Sub(p1))
		for _, v := range [3]uint32{a, b, c} {
			if int(v) < count {
				out[v] = out[v].Add(n)
			}
		}
	}
	for i := range out {
		out[i] = out[i].Normalize()
	}
	return out
}

func applySlope(s *Settings, md *MeshData, down qmath.Vec3) {
	if s.Slope == SlopeNone {
		return
	}
	up := down.Scale(-1)
	var slopeWeights provider.Weights
	slopeWeights[s.SlopeTexture] = 1

	for i, n := range md.Normals {
		angle := math.Acos(float64(min(max(up.Dot(n), -1), 1)))
		switch s.Slope {
		case SlopeFade:
			deg := mgl64.RadToDeg(angle)
			if deg <= s.SlopeAngle-s.SlopeFadeIn {
				continue
			}
			fade := float32(mgl64.Clamp((deg-s.SlopeFadeIn)/(s.SlopeAngle-s.SlopeFadeIn), 0, 1))
			for j := range md.Weights[i] {
				md.Weights[i][j] += (slopeWeights[j] - md.Weights[i][j]) * fade
			}
		case SlopeThreshold:
			if angle > mgl64.DegToRad(s.SlopeAngle) {
				md.Weights[i] = slopeWeights
			}
		}
	}
}

func meanSquaredDeviation(heights []float64) float64 {
	if len(heights) == 0 {
		return 0
	}
	var mean float64
	for _, h := range heights {
		mean += h
	}
	mean /= float64(len(heights))

	var sum float64
	for _, h := range heights {
		d := mean - h
		sum += d * d
	}
	return sum / float64(len(heights))
}
