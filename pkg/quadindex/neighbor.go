package quadindex

// Direction is one of the four in-face directions of a quad.
type Direction int

// Directions in the order used by the rewrite tables and edge configurations.
const (
	Right Direction = 0
	Left  Direction = 1
	Down  Direction = 2
	Up    Direction = 3
)

// Directions lists all directions in table order.
var Directions = [4]Direction{Right, Left, Down, Up}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	return d ^ 1
}

func (d Direction) String() string {
	switch d {
	case Right:
		return "right"
	case Left:
		return "left"
	case Down:
		return "down"
	case Up:
		return "up"
	}
	return "invalid"
}

const stop = -1

// step is a digit rewrite: the new quadrant and the direction carried to the
// next digit, or stop.
type step struct {
	quad int8
	dir  int8
}

// steps is indexed by [direction][quadrant].
var steps = [4][4]step{
	{{1, stop}, {0, 0}, {3, stop}, {2, 0}},
	{{1, 1}, {0, stop}, {3, 1}, {2, stop}},
	{{2, stop}, {3, stop}, {0, 2}, {1, 2}},
	{{2, 3}, {3, 3}, {0, stop}, {1, stop}},
}

// seam rewrites a path that crosses between two faces of the unfolded cube.
// With mirror set the rewrite is a swap, because the two faces meet with
// reversed orientation along that edge.
type seam struct {
	ok          bool
	first       int8
	second      int8
	replace     int8
	replacement int8
	mirror      bool
}

func seamKey(dir Direction, d0, d1 int) int {
	return int(dir)<<4 | d0<<2 | d1
}

// seams is indexed by seamKey(direction, face digit 0, face digit 1).
var seams = func() [64]seam {
	var t [64]seam
	set := func(dir Direction, d0, d1 int, first, second, replace, replacement int8, mirror bool) {
		t[seamKey(dir, d0, d1)] = seam{true, first, second, replace, replacement, mirror}
	}
	set(Up, 1, 2, 0, 1, 0, 3, false)
	set(Right, 0, 1, 1, 2, 3, 0, false)

	set(Up, 0, 2, 0, 1, 1, 2, false)
	set(Left, 0, 1, 0, 2, 2, 1, false)

	set(Up, 1, 3, 0, 1, 0, 1, true)
	set(Up, 0, 1, 1, 3, 1, 0, true)

	set(Down, 0, 2, 2, 1, 3, 0, false)
	set(Left, 2, 1, 0, 2, 0, 3, false)

	set(Down, 1, 2, 2, 1, 2, 1, false)
	set(Right, 2, 1, 1, 2, 1, 2, false)

	// bottom and back face meet upside down
	set(Down, 1, 3, 2, 1, 2, 3, true)
	set(Down, 2, 1, 1, 3, 2, 3, true)
	return t
}()

// edgeDigits lists, per direction, the quadrants that are not on that side of their parent.
var edgeDigits = [4][2]int{
	Right: {0, 2},
	Left:  {1, 3},
	Down:  {0, 1},
	Up:    {2, 3},
}

// AtSeam reports whether every quadrant digit of i lies on the dir side of its
// parent, so the neighbor in dir belongs to another cube face.
func AtSeam(i Index, dir Direction) bool {
	a, b := edgeDigits[dir][0], edgeDigits[dir][1]
	for k := 2; k < i.Len(); k++ {
		d := i.Digit(k)
		if d == a || d == b {
			return false
		}
	}
	return true
}

// Neighbor returns the same-level neighbor of i in direction dir. The result
// may not exist in a tree that is coarser there; see NeighborCandidates.
func Neighbor(i Index, dir Direction) Index {
	digits := i.Digits()
	if len(digits) < 2 {
		return i
	}

	if s := seams[seamKey(dir, digits[0], digits[1])]; s.ok && AtSeam(i, dir) {
		digits[0], digits[1] = int(s.first), int(s.second)
		for k := 2; k < len(digits); k++ {
			switch {
			case digits[k] == int(s.replace):
				digits[k] = int(s.replacement)
			case s.mirror && digits[k] == int(s.replacement):
				digits[k] = int(s.replace)
			}
		}
		return Encode(digits...)
	}

	d := int(dir)
	for k := len(digits) - 1; k >= 0; k-- {
		st := steps[d][digits[k]]
		digits[k] = int(st.quad)
		d = int(st.dir)
		if d == stop {
			break
		}
	}
	return Encode(digits...)
}

// NeighborCandidates returns the lookup chain for the neighbor of i in dir:
// the same-level neighbor followed by up to two ancestors of it.
func NeighborCandidates(i Index, dir Direction) []Index {
	n := Neighbor(i, dir)
	out := make([]Index, 0, 3)
	for k := 0; k < 3 && n.Len() > 0; k++ {
		out = append(out, n)
		n = n.Slice()
	}
	return out
}
