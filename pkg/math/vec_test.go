package math

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestVec3Cross(t *testing.T) {
	x := Vec3{1, 0, 0}
	y := Vec3{0, 1, 0}
	got := x.Cross(y)
	want := Vec3{0, 0, 1}
	if got != want {
		t.Errorf("Vec3.Cross() = %v, want %v", got, want)
	}
}

func TestVec3Normalize(t *testing.T) {
	n := Vec3{3, 0, 4}.Normalize()
	l := n.Length()
	if l < 0.999 || l > 1.001 {
		t.Errorf("Vec3.Normalize().Length() = %v, want ~1", l)
	}
	if z := (Vec3{}).Normalize(); z != (Vec3{}) {
		t.Errorf("zero vector normalized to %v", z)
	}
}

func TestNarrowWide(t *testing.T) {
	v := mgl64.Vec3{1.5, -2, 0.25}
	if got := Narrow(v).Wide(); got != v {
		t.Errorf("Narrow(%v).Wide() = %v", v, got)
	}
}

func TestVec2Rotations(t *testing.T) {
	v := Vec2{1, 2}
	if got := v.Rotate90(); got != (Vec2{2, -1}) {
		t.Errorf("Rotate90() = %v", got)
	}
	if got := v.Rotate180(); got != (Vec2{-1, -2}) {
		t.Errorf("Rotate180() = %v", got)
	}
	if got := v.Rotate270(); got != (Vec2{-2, 1}) {
		t.Errorf("Rotate270() = %v", got)
	}
}

func TestBoundsSqrDistance(t *testing.T) {
	b := BoundsOf([]Vec3{{-1, -1, -1}, {1, 0, 2}, {0, 1, 0}})
	if b.Min != (Vec3{-1, -1, -1}) || b.Max != (Vec3{1, 1, 2}) {
		t.Fatalf("BoundsOf() = %+v", b)
	}
	tests := []struct {
		p    Vec3
		want float32
	}{
		{Vec3{0, 0, 0}, 0},
		{Vec3{3, 0, 0}, 4},
		{Vec3{2, 2, 0}, 2},
		{Vec3{0, 0, -4}, 9},
	}
	for _, tt := range tests {
		if got := b.SqrDistance(tt.p); got != tt.want {
			t.Errorf("SqrDistance(%v) = %v, want %v", tt.p, got, tt.want)
		}
	}
	if !b.Contains(b.Center()) {
		t.Errorf("box does not contain its center")
	}
}

func TestTestPlanesAABB(t *testing.T) {
	proj := mgl64.Perspective(mgl64.DegToRad(90), 1, 0.1, 100)
	view := mgl64.LookAtV(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0})
	planes := FrustumPlanes(proj.Mul4(view))

	ahead := TestPlanesAABB(planes[:], mgl64.Vec3{-1, -1, -11}, mgl64.Vec3{1, 1, -9}, 0)
	if !ahead {
		t.Errorf("box in front of the camera culled")
	}
	behind := TestPlanesAABB(planes[:], mgl64.Vec3{-1, -1, 9}, mgl64.Vec3{1, 1, 11}, 0)
	if behind {
		t.Errorf("box behind the camera visible")
	}
	if !TestPlanesAABB(planes[:], mgl64.Vec3{-1, -1, 9}, mgl64.Vec3{1, 1, 11}, 20) {
		t.Errorf("box behind the camera culled despite extra range")
	}
	if TestPlanesAABB(nil, mgl64.Vec3{}, mgl64.Vec3{}, 0) {
		t.Errorf("nil planes accepted a box")
	}
}
