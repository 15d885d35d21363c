package deform

import (
	"time"

	"github.com/google/uuid"
)

// Outcome tells how an impact that did not fail ended.
type Outcome int

const (
	// OutcomeCompleted means the mesh was deformed and committed.
	OutcomeCompleted Outcome = iota
	// OutcomeEmptyHitSet means no vertex was inside the impact volume.
	OutcomeEmptyHitSet
	// OutcomeNoCorrespondence means vertices were selected but no ray reached
	// the deformer surface.
	OutcomeNoCorrespondence
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeEmptyHitSet:
		return "empty_hit_set"
	case OutcomeNoCorrespondence:
		return "no_correspondence"
	default:
		return "unknown"
	}
}

// Changed reports whether the outcome modified the mesh.
func (o Outcome) Changed() bool {
	return o == OutcomeCompleted
}

type ImpactResult struct {
	ID      uuid.UUID
	Outcome Outcome
	// Selected is the number of vertices inside the impact volume.
	Selected int
	// Mapped is the number of vertices moved.
	Mapped int
	// NewlyImpacted is the number of triangles this impact added to the impacted set.
	NewlyImpacted int
	// ImpactedTotal is the size of the impacted set after the impact.
	ImpactedTotal int
	Duration      time.Duration
}
