package deform

// Submesh slots of a deformed mesh.
const (
	SubmeshPristine = 0
	SubmeshImpacted = 1
)

// PartitionState is the persistent record of every triangle an impact has
// touched. It only grows.
type PartitionState struct {
	impacted []Triangle
	set      map[Triangle]struct{}
	// Established is set once the two-way material split exists.
	Established bool
}

func NewPartitionState() *PartitionState {
	return &PartitionState{set: make(map[Triangle]struct{})}
}

func (s *PartitionState) Clone() *PartitionState {
	c := &PartitionState{
		impacted:    make([]Triangle, len(s.impacted)),
		set:         make(map[Triangle]struct{}, len(s.set)),
		Established: s.Established,
	}
	copy(c.impacted, s.impacted)
	for t := range s.set {
		c.set[t] = struct{}{}
	}
	return c
}

func (s *PartitionState) Len() int {
	return len(s.impacted)
}

func (s *PartitionState) Contains(t Triangle) bool {
	_, ok := s.set[t]
	return ok
}

// Impacted returns the impacted triangles in the order they were added.
func (s *PartitionState) Impacted() []Triangle {
	out := make([]Triangle, len(s.impacted))
	copy(out, s.impacted)
	return out
}

func (s *PartitionState) add(t Triangle) bool {
	if _, ok := s.set[t]; ok {
		return false
	}
	s.set[t] = struct{}{}
	s.impacted = append(s.impacted, t)
	return true
}

// SubmeshAssignment routes triangles to render submeshes. Before the first
// impact there is a single submesh; afterwards slot 0 holds the pristine
// triangles and slot 1 the impacted ones.
type SubmeshAssignment struct {
	Submeshes [][]Triangle
}

func (a SubmeshAssignment) Count() int {
	return len(a.Submeshes)
}

func (a SubmeshAssignment) Submesh(slot int) []Triangle {
	if slot < 0 || slot >= len(a.Submeshes) {
		return nil
	}
	return a.Submeshes[slot]
}

func (a SubmeshAssignment) Clone() SubmeshAssignment {
	c := SubmeshAssignment{Submeshes: make([][]Triangle, len(a.Submeshes))}
	for i, sm := range a.Submeshes {
		c.Submeshes[i] = append([]Triangle(nil), sm...)
	}
	return c
}

// singleSubmesh is the assignment of a mesh no impact has touched yet.
func singleSubmesh(triangles []Triangle) SubmeshAssignment {
	return SubmeshAssignment{Submeshes: [][]Triangle{append([]Triangle(nil), triangles...)}}
}

// Partition adds every triangle referencing a deformed vertex to state, then
// returns the two-way assignment and how many triangles were newly added.
// Membership is exact ordered-triple equality, so it stays correct only as long
// as the triangle buffer is never reordered; nothing in this package reorders it.
func Partition(triangles []Triangle, deformed IndexSet, state *PartitionState) (SubmeshAssignment, int) {
	added := 0
	if len(deformed) > 0 {
		for _, t := range triangles {
			if t.References(deformed) && state.add(t) {
				added++
			}
		}
		state.Established = true
	}

	if !state.Established {
		return singleSubmesh(triangles), added
	}

	pristine := make([]Triangle, 0, len(triangles))
	for _, t := range triangles {
		if !state.Contains(t) {
			pristine = append(pristine, t)
		}
	}
	return SubmeshAssignment{
		Submeshes: [][]Triangle{pristine, state.Impacted()},
	}, added
}
