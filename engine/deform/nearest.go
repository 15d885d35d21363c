package deform

import (
	"github.com/dhconnelly/rtreego"

	"github.com/spaghettifunk/dent/engine/math"
)

// nearestFinder returns the index of the target closest to a point. Equal
// distances resolve to the target listed first.
type nearestFinder interface {
	Nearest(p math.Vec3) int
}

func newNearestFinder(targets []math.Vec3, threshold int) nearestFinder {
	if threshold > 0 && len(targets) >= threshold {
		return newRtreeNearest(targets)
	}
	return linearNearest(targets)
}

type linearNearest []math.Vec3

func (l linearNearest) Nearest(p math.Vec3) int {
	best := -1
	bestDist := float32(0)
	for i, t := range l {
		d := p.DistanceSquared(t)
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

// targetEntry is one target stored in the R-tree.
type targetEntry struct {
	index int
	point rtreego.Point
}

func (e *targetEntry) Bounds() rtreego.Rect {
	return e.point.ToRect(pointTolerance)
}

const (
	pointTolerance = 1e-9
	// widening of the candidate box so float rounding never drops the true nearest
	candidateSlack = 1e-4
)

// rtreeNearest answers nearest lookups from an R-tree. It gathers every target
// within the nearest-neighbor distance and re-applies the linear tie-break, so
// it returns exactly what linearNearest would.
type rtreeNearest struct {
	targets []math.Vec3
	tree    *rtreego.Rtree
}

func newRtreeNearest(targets []math.Vec3) *rtreeNearest {
	entries := make([]rtreego.Spatial, len(targets))
	for i, t := range targets {
		entries[i] = &targetEntry{index: i, point: toPoint(t)}
	}
	return &rtreeNearest{
		targets: targets,
		tree:    rtreego.NewTree(3, 4, 16, entries...),
	}
}

func (r *rtreeNearest) Nearest(p math.Vec3) int {
	first, ok := r.tree.NearestNeighbor(toPoint(p)).(*targetEntry)
	if !ok {
		return linearNearest(r.targets).Nearest(p)
	}

	radius := float64(p.Distance(r.targets[first.index]))
	radius += candidateSlack * (1 + radius)
	box, err := rtreego.NewRectFromPoints(
		rtreego.Point{float64(p.X) - radius, float64(p.Y) - radius, float64(p.Z) - radius},
		rtreego.Point{float64(p.X) + radius, float64(p.Y) + radius, float64(p.Z) + radius},
	)
	if err != nil {
		return first.index
	}

	best := first.index
	bestDist := p.DistanceSquared(r.targets[best])
	for _, s := range r.tree.SearchIntersect(box) {
		e := s.(*targetEntry)
		d := p.DistanceSquared(r.targets[e.index])
		if d < bestDist || (d == bestDist && e.index < best) {
			best = e.index
			bestDist = d
		}
	}
	return best
}

func toPoint(v math.Vec3) rtreego.Point {
	return rtreego.Point{float64(v.X), float64(v.Y), float64(v.Z)}
}
