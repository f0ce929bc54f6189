package quadtree

import "github.com/go-gl/mathgl/mgl64"

// NewView builds the view of a perspective camera at eye looking at target.
// fovy is in degrees. The planet sits at the origin without rotation.
func NewView(eye, target, up mgl64.Vec3, fovy, aspect, near, far float64) View {
	proj := mgl64.Perspective(mgl64.DegToRad(fovy), aspect, near, far)
	view := mgl64.LookAtV(eye, target, up)
	return View{
		Position:       eye,
		Rotation:       mgl64.QuatLookAtV(eye, target, up),
		ViewProjection: proj.Mul4(view),
		PlanetRotation: mgl64.QuatIdent(),
	}
}

// WithPlanet returns v with the planet placed at pos and rotated by rot.
func (v View) WithPlanet(pos mgl64.Vec3, rot mgl64.Quat) View {
	v.PlanetPosition = pos
	v.PlanetRotation = rot
	return v
}
