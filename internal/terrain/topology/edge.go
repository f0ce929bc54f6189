package topology

import (
	"fmt"

	"github.com/Faultbox/quadsphere/pkg/quadindex"
)

// EdgeConfiguration packs the level difference to the four neighbors of a quad
// into one byte per direction: right in bits 0-7, left 8-15, down 16-23, up 24-31.
// A zero byte means the neighbor is at the same level or finer.
type EdgeConfiguration uint32

// EdgeNone is the configuration of a quad without coarser neighbors.
const EdgeNone EdgeConfiguration = 0

// Compose builds a configuration from per-direction level differences, indexed by
// quadindex.Direction. Non-positive deltas are ignored, large ones saturate.
func Compose(deltas [4]int) EdgeConfiguration {
	var c EdgeConfiguration
	for dir, d := range deltas {
		c = c.With(quadindex.Direction(dir), d)
	}
	return c
}

// With returns c with the level difference for dir replaced.
func (c EdgeConfiguration) With(dir quadindex.Direction, delta int) EdgeConfiguration {
	delta = min(max(delta, 0), 0xFF)
	shift := 8 * uint(dir)
	return c&^(0xFF<<shift) | EdgeConfiguration(delta)<<shift
}

// Delta returns the level difference recorded for dir.
func (c EdgeConfiguration) Delta(dir quadindex.Direction) int {
	return int(c>>(8*uint(dir))) & 0xFF
}

func (c EdgeConfiguration) String() string {
	return fmt.Sprintf("R%d L%d D%d U%d",
		c.Delta(quadindex.Right), c.Delta(quadindex.Left), c.Delta(quadindex.Down), c.Delta(quadindex.Up))
}
