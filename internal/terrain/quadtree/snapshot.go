package quadtree

import (
	"cmp"
	"slices"
)

// Stats counts the quads of a tree.
type Stats struct {
	Quads     int `json:"quads"`
	Leaves    int `json:"leaves"`
	Splitting int `json:"splitting"`
	Split     int `json:"split"`
	// PerLevel[l] is the number of live quads at level l. It always covers
	// every level the options allow.
	PerLevel []int `json:"perLevel"`
	// Rendered is the number of active patches.
	Rendered int `json:"rendered"`
	// Bound is the number of patches bound to a quad, active or not.
	Bound       int `json:"bound"`
	IdlePatches int `json:"idlePatches"`
	Queued      int `json:"queued"`
	InFlight    int `json:"inFlight"`
}

// Stats walks the live quads.
func (t *Tree) Stats() Stats {
	s := Stats{
		PerLevel:    make([]int, len(t.opts.DetailDistances)+1),
		IdlePatches: t.patches.Idle(),
		Queued:      t.queue.Len(),
		InFlight:    t.queue.InFlight(),
	}
	for _, id := range t.quads.ids() {
		q := t.quads.get(id)
		s.Quads++
		switch q.state {
		case Leaf:
			s.Leaves++
		case Splitting:
			s.Splitting++
		case Split:
			s.Split++
		}
		if q.level < len(s.PerLevel) {
			s.PerLevel[q.level]++
		}
		if q.patch != nil {
			s.Bound++
			if q.patch.Active {
				s.Rendered++
			}
		}
	}
	return s
}

// PatchInfo describes one rendered quad.
type PatchInfo struct {
	Patch    string     `json:"patch"`
	Index    string     `json:"index"`
	Level    int        `json:"level"`
	Edges    string     `json:"edges"`
	Distance float64    `json:"distance"`
	Biome    uint8      `json:"biome"`
	MSD      float64    `json:"msd,omitempty"`
	Position [3]float64 `json:"position"`
}

// Snapshot is a serializable view of the tree.
type Snapshot struct {
	Stats   Stats       `json:"stats"`
	Patches []PatchInfo `json:"patches"`
}

// Snapshot lists the rendered quads ordered by index.
func (t *Tree) Snapshot() Snapshot {
	snap := Snapshot{Stats: t.Stats()}
	for _, id := range t.quads.ids() {
		q := t.quads.get(id)
		if q.patch == nil || !q.patch.Active {
			continue
		}
		snap.Patches = append(snap.Patches, PatchInfo{
			Patch:    q.patch.ID.String(),
			Index:    q.index.String(),
			Level:    q.level,
			Edges:    q.edges.String(),
			Distance: q.distance,
			Biome:    q.mesh.Biome,
			MSD:      q.mesh.MSD,
			Position: q.patch.Position,
		})
	}
	slices.SortFunc(snap.Patches, func(a, b PatchInfo) int {
		return cmp.Compare(a.Index, b.Index)
	})
	return snap
}
