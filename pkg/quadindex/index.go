// Package quadindex implements the compact path encoding used to address quads
// of a cube-sphere quadtree, and the neighbor rewriting rules between them.
//
// An Index packs up to MaxDigits base-4 digits into a uint64. The low 6 bits hold
// the digit count, the remaining bits hold the digits with the first digit in the
// least significant position. The first two digits select one of the six cube
// faces, every following digit selects a child quadrant.
package quadindex

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// MaxDigits is the number of base-4 digits an Index can hold.
	MaxDigits = 29

	lenBits = 6
	lenMask = 1<<lenBits - 1
)

// ErrCapacity is reported when an index would exceed MaxDigits or a digit is out of range.
var ErrCapacity = errors.New("quad index capacity exceeded")

// Index is a packed quadtree path.
type Index uint64

// TryEncode packs digits into an Index.
func TryEncode(digits []int) (Index, error) {
	if len(digits) > MaxDigits {
		return 0, fmt.Errorf("%w: %d digits", ErrCapacity, len(digits))
	}
	var packed uint64
	for i := len(digits) - 1; i >= 0; i-- {
		d := digits[i]
		if d < 0 || d > 3 {
			return 0, fmt.Errorf("%w: digit %d at %d", ErrCapacity, d, i)
		}
		packed = packed<<2 | uint64(d)
	}
	return Index(packed<<lenBits | uint64(len(digits))), nil
}

// Encode packs digits into an Index. It panics if the digits do not fit.
func Encode(digits ...int) Index {
	idx, err := TryEncode(digits)
	if err != nil {
		panic(err)
	}
	return idx
}

// Len returns the number of digits.
func (i Index) Len() int {
	return int(uint64(i) & lenMask)
}

// Level returns the tree depth; the two face digits are level 0.
func (i Index) Level() int {
	return i.Len() - 2
}

// Digit returns digit n.
func (i Index) Digit(n int) int {
	return int(uint64(i)>>(lenBits+2*uint(n))) & 3
}

// Digits unpacks the index.
func (i Index) Digits() []int {
	n := i.Len()
	digits := make([]int, n)
	packed := uint64(i) >> lenBits
	for k := 0; k < n; k++ {
		digits[k] = int(packed & 3)
		packed >>= 2
	}
	return digits
}

// Append returns the index of child d.
func (i Index) Append(d int) Index {
	n := i.Len()
	if n >= MaxDigits {
		panic(fmt.Errorf("%w: append to %d digits", ErrCapacity, n))
	}
	if d < 0 || d > 3 {
		panic(fmt.Errorf("%w: digit %d", ErrCapacity, d))
	}
	packed := uint64(i)>>lenBits | uint64(d)<<(2*uint(n))
	return Index(packed<<lenBits | uint64(n+1))
}

// Slice returns the parent index by dropping the last digit.
func (i Index) Slice() Index {
	n := i.Len()
	if n == 0 {
		panic(fmt.Errorf("%w: slice of empty index", ErrCapacity))
	}
	packed := uint64(i) >> lenBits
	packed &^= 3 << (2 * uint(n-1))
	return Index(packed<<lenBits | uint64(n-1))
}

// String returns the digits as a compact decimal string, e.g. "01302".
func (i Index) String() string {
	var sb strings.Builder
	for _, d := range i.Digits() {
		sb.WriteByte(byte('0' + d))
	}
	return sb.String()
}

// Roots returns the indices of the six cube faces.
func Roots() [6]Index {
	return [6]Index{
		Encode(0, 1),
		Encode(2, 1),
		Encode(0, 3),
		Encode(1, 3),
		Encode(0, 2),
		Encode(1, 2),
	}
}
