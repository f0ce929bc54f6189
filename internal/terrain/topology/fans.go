package topology

// Fan builders. Each drops the triangles touching the outer num rows or columns
// of an edge and re-triangulates that strip so only every step-th vertex of the
// outermost line is referenced. num is 1 for a single level difference (step 2)
// and 2 for a double one (step 4); with two lines the inner line uses step/2.
//
// Grid vertex v sits at column v%n, row v/n. Row 0 is the down edge, row n-1 up,
// column 0 left and column n-1 right.

func fanBottom(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v/n < num })
	for yOff := 0; yOff < num; yOff++ {
		length := n * (yOff + 1)
		start := n * yOff
		for x := start; x < length; x += step {
			half := step / 2
			if x < length-step {
				out.add(x, n+x+half, x+step)
				out.add(x, n+x, n+x+half)
			}
			if x > start {
				out.add(x, n+x-half, n+x)
			}
		}
		step /= 2
	}
	return out
}

func fanTop(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v/n >= n-num })
	for yOff := 0; yOff < num; yOff++ {
		length := n*n - yOff*n
		b := n * (n - 1 - yOff)
		for x := b; x < length; x += step {
			half := step / 2
			if x < length-2 {
				out.add(x, x+step, x-n+half)
				out.add(x, x-n+half, x-n)
			}
			if x > b {
				out.add(x, x-n, x-half-n)
			}
		}
		step /= 2
	}
	return out
}

func fanLeft(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v%n < num })
	for xOff := 0; xOff < num; xOff++ {
		length := xOff + n*(n-1) + 1
		for y := xOff; y < length; y += n * step {
			half := step / 2
			if y < length-1 {
				out.add(y, y+n*step, y+n*half+1)
				out.add(y, y+n*half+1, y+1)
			}
			if y > xOff {
				out.add(y, y+1, y-n*half+1)
			}
		}
		step /= 2
	}
	return out
}

func fanRight(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v%n >= n-num })
	for xOff := 0; xOff < num; xOff++ {
		length := n*n - xOff
		b := n - xOff
		for y := n - 1 - xOff; y < length; y += n * step {
			half := step / 2
			if y < length-1 {
				out.add(y, y+n*half-1, y+n*step)
				out.add(y, y-1, y+n*half-1)
			}
			if y > b {
				out.add(y, y-n*half-1, y-1)
			}
		}
		step /= 2
	}
	return out
}

func fanRightBottom(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v%n >= n-num || v/n < num })

	s := step
	for xOff := 0; xOff < num; xOff++ {
		length := n*n - xOff
		for x := n - 1 - xOff; x < length; x += n * s {
			half := s / 2
			if x < length-1 {
				if xOff == 0 || x > n-xOff {
					out.add(x, x+n*half-1, x+n*s)
				}
				if x > n-xOff {
					out.add(x, x-1, x+n*half-1)
				}
			}
			if x > n-xOff {
				out.add(x, x-n*half-1, x-1)
			}
		}
		s /= 2
	}

	s = step
	for yOff := 0; yOff < num; yOff++ {
		length := n * (yOff + 1)
		start := n * yOff
		for x := start; x < length; x += s {
			half := s / 2
			if x < length-s {
				if yOff == 0 || x < length-2*s {
					out.add(x, n+x+half, x+s)
					out.add(x, n+x, n+x+half)
				}
				if x > start {
					out.add(x, n+x-half, n+x)
				}
			}
		}
		s /= 2
	}

	if num == 2 {
		out.add(n-1, n-3+n, n-2+2*n)
	}
	return out
}

func fanLeftBottom(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v%n < num || v/n < num })

	s := step
	for xOff := 0; xOff < num; xOff++ {
		length := xOff + n*(n-1) + 1
		for x := xOff; x < length; x += n * s {
			half := s / 2
			if x < length-1 {
				if xOff == 0 || x > xOff {
					out.add(x, x+n*s, x+n*half+1)
				}
				if x > xOff {
					out.add(x, x+n*half+1, x+1)
				}
			}
			if x > xOff {
				out.add(x, x+1, x-n*half+1)
			}
		}
		s /= 2
	}

	s = step
	for yOff := 0; yOff < num; yOff++ {
		length := n * (yOff + 1)
		start := n * yOff
		for x := start; x < length; x += s {
			half := s / 2
			if x < length-s {
				if yOff == 0 || x > start {
					out.add(x, n+x+half, x+s)
				}
				if x > start {
					out.add(x, n+x, n+x+half)
				}
			}
			if x > start && (yOff == 0 || x > start+s) {
				out.add(x, n+x-half, n+x)
			}
		}
		s /= 2
	}

	if num == 2 {
		out.add(0, 1+2*n, 2+n)
	}
	return out
}

func fanRightTop(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v%n >= n-num || v/n >= n-num })

	s := step
	for xOff := 0; xOff < num; xOff++ {
		length := n*n - xOff
		b := n - xOff
		for x := n - 1 - xOff; x < length; x += n * s {
			half := s / 2
			if x < length-1 {
				if xOff == 0 || x < length-1-2*n {
					out.add(x, x+n*half-1, x+n*s)
				}
				out.add(x, x-1, x+n*half-1)
				if x > b {
					out.add(x, x-n*half-1, x-1)
				}
			}
		}
		s /= 2
	}

	s = step
	for yOff := 0; yOff < num; yOff++ {
		length := n*n - yOff*n
		b := n * (n - 1 - yOff)
		for x := b; x < length; x += s {
			half := s / 2
			if x < length-2 {
				if yOff == 0 || x < length-4 {
					out.add(x, x+s, x-n+half)
					out.add(x, x-n+half, x-n)
				}
				if x > b {
					out.add(x, x-n, x-half-n)
				}
			}
		}
		s /= 2
	}

	if num == 2 {
		c := n*n - 1
		out.add(c, c-1-2*n, c-2-n)
	}
	return out
}

func fanLeftTop(n int, base []uint32, step, num int) []uint32 {
	out := keep(base, func(v int) bool { return v%n < num || v/n >= n-num })

	s := step
	for xOff := 0; xOff < num; xOff++ {
		length := xOff + n*(n-1) + 1
		for x := xOff; x < length; x += n * s {
			half := s / 2
			if x < length-1 {
				if xOff == 0 || x < length-1-2*n {
					out.add(x, x+n*s, x+n*half+1)
				}
				out.add(x, x+n*half+1, x+1)
				if x > xOff {
					out.add(x, x+1, x-n*half+1)
				}
			}
		}
		s /= 2
	}

	s = step
	for yOff := 0; yOff < num; yOff++ {
		length := n*n - yOff*n
		start := n * (n - 1 - yOff)
		for x := start; x < length; x += s {
			half := s / 2
			if x < length-2 {
				if yOff == 0 || x > start {
					out.add(x, x+s, x-n+half)
				}
				if x > start {
					out.add(x, x-n+half, x-n)
				}
			}
			if x > start && (yOff == 0 || x > start+s) {
				out.add(x, x-n, x-half-n)
			}
		}
		s /= 2
	}

	if num == 2 {
		c := (n - 1) * n
		out.add(c, c+2-n, c+1-2*n)
	}
	return out
}
