package quadtree

import "fmt"

// QuadID is a stable handle to a quad slot. A handle outlives the quad it
// names: once the quad is released the slot generation moves on and lookups
// through the old handle fail.
type QuadID struct {
	slot uint32
	gen  uint32
}

// NoQuad is the zero handle; it never resolves.
var NoQuad QuadID

// Valid reports whether id was ever issued.
func (id QuadID) Valid() bool { return id.gen != 0 }

func (id QuadID) String() string {
	if !id.Valid() {
		return "quad(none)"
	}
	return fmt.Sprintf("quad(%d/%d)", id.slot, id.gen)
}

type slot struct {
	gen  uint32
	used bool
	quad Quad
}

// arena owns every quad. Slots are heap allocated individually so *Quad stays
// valid while the slot table grows; released slots go to a free-list.
type arena struct {
	slots []*slot
	free  []uint32
	live  int
}

func (a *arena) alloc() *Quad {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, &slot{})
	}
	s := a.slots[idx]
	s.gen++
	s.used = true
	s.quad = Quad{id: QuadID{slot: idx, gen: s.gen}}
	a.live++
	return &s.quad
}

func (a *arena) get(id QuadID) *Quad {
	if !id.Valid() || int(id.slot) >= len(a.slots) {
		return nil
	}
	s := a.slots[id.slot]
	if !s.used || s.gen != id.gen {
		return nil
	}
	return &s.quad
}

func (a *arena) release(id QuadID) {
	if a.get(id) == nil {
		return
	}
	s := a.slots[id.slot]
	s.used = false
	s.quad = Quad{}
	a.free = append(a.free, id.slot)
	a.live--
}

// ids returns the handles of all live quads in slot order.
func (a *arena) ids() []QuadID {
	out := make([]QuadID, 0, a.live)
	for i, s := range a.slots {
		if s.used {
			out = append(out, QuadID{slot: uint32(i), gen: s.gen})
		}
	}
	return out
}

// Len returns the number of live quads.
func (a *arena) Len() int { return a.live }
