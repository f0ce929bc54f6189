package topology

import "github.com/go-gl/mathgl/mgl64"

type tris []uint32

func (t *tris) add(a, b, c int) {
	*t = append(*t, uint32(a), uint32(b), uint32(c))
}

// keep copies the triangles of src none of whose vertices match drop.
func keep(src []uint32, drop func(v int) bool) tris {
	out := make(tris, 0, len(src))
	for i := 0; i+2 < len(src); i += 3 {
		if drop(int(src[i])) || drop(int(src[i+1])) || drop(int(src[i+2])) {
			continue
		}
		out = append(out, src[i], src[i+1], src[i+2])
	}
	return out
}

func generatePlane(n int) ([]mgl64.Vec3, []uint32) {
	verts := make([]mgl64.Vec3, n*n)
	out := make(tris, 0, (n-1)*(n-1)*6)
	d := 1 / float64(n-1)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			i := y*n + x
			verts[i] = mgl64.Vec3{float64(x)*d*2 - 1, 0, float64(y)*d*2 - 1}
			if y < n-1 && x < n-1 {
				out.add(i, (y+1)*n+x, (y+1)*n+x+1)
				out.add(i, (y+1)*n+x+1, y*n+x+1)
			}
		}
	}
	return verts, out
}

func extendedPlaneVerts(n int, plane []mgl64.Vec3) []mgl64.Vec3 {
	out := make([]mgl64.Vec3, len(plane), len(plane)+4*(n+1))
	copy(out, plane)
	d := 2 / float64(n-1)
	for i := 0; i <= n; i++ {
		out = append(out, mgl64.Vec3{-1 + d*float64(i), 0, -1 - d})
	}
	for i := 0; i <= n; i++ {
		out = append(out, mgl64.Vec3{1 + d, 0, -1 + d*float64(i)})
	}
	for i := 0; i <= n; i++ {
		out = append(out, mgl64.Vec3{1 - d*float64(i), 0, 1 + d})
	}
	for i := 0; i <= n; i++ {
		out = append(out, mgl64.Vec3{-1 - d, 0, 1 - d*float64(i)})
	}
	return out
}

// extendedPlaneTris stitches the skirt ring to the outer grid vertices, side by
// side, closing each corner with two extra triangles.
func extendedPlaneTris(n int, base []uint32) []uint32 {
	out := append(tris(nil), base...)
	nn := n * n

	index := nn
	length := index + n + 1
	for i := index; i < length-2; i++ {
		out.add(i, i-nn, i-nn+1)
		out.add(i, i-nn+1, i+1)
	}
	out.add(index+n-1, index+n-1-nn, index+n+1)
	out.add(index+n-1, index+n+1, index+n)

	index += n + 1
	length += n + 1
	for i := index; i < length-2; i++ {
		edge := (i%n)*n - 1
		out.add(i, edge, i+1)
		out.add(edge, edge+n, i+1)
	}
	out.add(nn+2*n, nn-1, nn+2*n+1)
	out.add(nn+2*n+1, nn-1, nn+2*n+2)

	corner := length - 1
	index += n + 1
	length += n + 1
	for i := index; i < length-2; i++ {
		out.add(i, nn-(i-corner), nn-(i-corner+1))
		out.add(i, nn-(i-corner+1), i+1)
	}

	corner = n * (n - 1)
	out.add(length-2, corner, length)
	out.add(length-2, length, length-1)

	index += n + 1
	length += n + 1
	for i := index; i < length-2; i++ {
		out.add(i, corner-n*(i-index), i+1)
		out.add(i+1, corner-n*(i-index), corner-n*(i-index+1))
	}
	out.add(nn, nn+4*n+3, 0)
	out.add(nn+4*n+2, 0, nn+4*n+3)
	return out
}
