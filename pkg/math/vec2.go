package math

// Vec2 is a texture coordinate.
type Vec2 struct {
	X, Y float32
}

// Add returns v + other.
func (v Vec2) Add(other Vec2) Vec2 {
	return Vec2{v.X + other.X, v.Y + other.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{v.X * s, v.Y * s}
}

// Rotate90 returns v rotated a quarter turn clockwise, (y, -x).
func (v Vec2) Rotate90() Vec2 {
	return Vec2{v.Y, -v.X}
}

// Rotate180 returns -v.
func (v Vec2) Rotate180() Vec2 {
	return Vec2{-v.X, -v.Y}
}

// Rotate270 returns v rotated a quarter turn counter-clockwise, (-y, x).
func (v Vec2) Rotate270() Vec2 {
	return Vec2{-v.Y, v.X}
}
