package quadindex

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeLayout(t *testing.T) {
	// digits {0,1}: packed = 1*4 + 0, shifted past the 6 length bits.
	require.Equal(t, Index(4<<6|2), Encode(0, 1))
	require.Equal(t, Index(0), Encode())
}

func TestDecodeRoundTrip(t *testing.T) {
	tests := [][]int{
		{0, 1},
		{1, 3, 0, 2, 3},
		{2, 1, 3, 3, 3, 3, 0},
	}
	for _, digits := range tests {
		idx := Encode(digits...)
		assert.Equal(t, digits, idx.Digits())
		assert.Equal(t, len(digits), idx.Len())
		assert.Equal(t, len(digits)-2, idx.Level())
	}
}

func TestAppendAndSlice(t *testing.T) {
	idx := Encode(0, 3)
	child := idx.Append(2)
	require.Equal(t, []int{0, 3, 2}, child.Digits())
	require.Equal(t, 2, child.Digit(2))
	require.Equal(t, idx, child.Slice())

	grand := child.Append(1).Append(3)
	require.Equal(t, "03213", grand.String())
	require.Equal(t, child, grand.Slice().Slice())
}

func TestAppendFullCapacity(t *testing.T) {
	idx := Encode(1, 2)
	for idx.Len() < MaxDigits {
		idx = idx.Append(3)
	}
	require.Equal(t, MaxDigits, idx.Len())
	require.Equal(t, 3, idx.Digit(MaxDigits-1))
	require.Equal(t, []int{1, 2}, idx.Digits()[:2])

	require.Panics(t, func() { idx.Append(0) })
	require.Equal(t, MaxDigits-1, idx.Slice().Len())
}

func TestTryEncodeErrors(t *testing.T) {
	_, err := TryEncode(make([]int, MaxDigits+1))
	require.True(t, errors.Is(err, ErrCapacity))

	_, err = TryEncode([]int{0, 4})
	require.ErrorIs(t, err, ErrCapacity)

	require.Panics(t, func() { Index(0).Slice() })
}

func TestRoots(t *testing.T) {
	roots := Roots()
	seen := make(map[Index]bool)
	for _, r := range roots {
		require.Equal(t, 2, r.Len())
		require.False(t, seen[r])
		seen[r] = true
	}
	require.Equal(t, "01", roots[0].String())
	require.Equal(t, "12", roots[5].String())
}
