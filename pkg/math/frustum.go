package math

import "github.com/go-gl/mathgl/mgl64"

// Plane is an oriented plane n·p + D = 0 with the normal pointing inside the frustum.
type Plane struct {
	Normal mgl64.Vec3
	D      float64
}

// Distance returns the signed distance of p to the plane.
func (p Plane) Distance(v mgl64.Vec3) float64 {
	return p.Normal.Dot(v) + p.D
}

// FrustumPlanes extracts the six clip planes (left, right, bottom, top, near, far)
// of a view-projection matrix.
func FrustumPlanes(viewProj mgl64.Mat4) [6]Plane {
	r0, r1, r2, r3 := viewProj.Row(0), viewProj.Row(1), viewProj.Row(2), viewProj.Row(3)
	raw := [6]mgl64.Vec4{
		r3.Add(r0),
		r3.Sub(r0),
		r3.Add(r1),
		r3.Sub(r1),
		r3.Add(r2),
		r3.Sub(r2),
	}
	var planes [6]Plane
	for i, v := range raw {
		n := v.Vec3()
		l := n.Len()
		if l == 0 {
			continue
		}
		planes[i] = Plane{Normal: n.Mul(1 / l), D: v[3] / l}
	}
	return planes
}

// TestPlanesAABB reports whether the box [lo, hi] is at least partially inside all
// planes. Boxes up to extraRange behind a plane still count as inside.
func TestPlanesAABB(planes []Plane, lo, hi mgl64.Vec3, extraRange float64) bool {
	if planes == nil {
		return false
	}
	for _, p := range planes {
		// Corner farthest along the normal.
		var far mgl64.Vec3
		for axis := 0; axis < 3; axis++ {
			if p.Normal[axis] < 0 {
				far[axis] = lo[axis]
			} else {
				far[axis] = hi[axis]
			}
		}
		if p.Distance(far) < -extraRange {
			return false
		}
	}
	return true
}
