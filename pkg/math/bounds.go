package math

// Bounds is an axis-aligned box in mesh space.
type Bounds struct {
	Min Vec3
	Max Vec3
}

// BoundsOf returns the smallest box containing points. An empty slice yields a zero box.
func BoundsOf(points []Vec3) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Encapsulate(p)
	}
	return b
}

// Encapsulate grows b to contain p.
func (b *Bounds) Encapsulate(p Vec3) {
	b.Min = b.Min.Min(p)
	b.Max = b.Max.Max(p)
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Size returns the box extents along each axis.
func (b Bounds) Size() Vec3 {
	return b.Max.Sub(b.Min)
}

// Contains reports whether p lies inside or on the box.
func (b Bounds) Contains(p Vec3) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X &&
		p.Y >= b.Min.Y && p.Y <= b.Max.Y &&
		p.Z >= b.Min.Z && p.Z <= b.Max.Z
}

// SqrDistance returns the squared distance from p to the closest point of the box,
// zero when p is inside.
func (b Bounds) SqrDistance(p Vec3) float32 {
	var d float32
	axis := func(v, lo, hi float32) {
		switch {
		case v < lo:
			d += (lo - v) * (lo - v)
		case v > hi:
			d += (v - hi) * (v - hi)
		}
	}
	axis(p.X, b.Min.X, b.Max.X)
	axis(p.Y, b.Min.Y, b.Max.Y)
	axis(p.Z, b.Min.Z, b.Max.Z)
	return d
}
