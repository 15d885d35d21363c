package physics

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
)

const InvalidID uint32 = 4294967295

var ErrUnknownCollider = errors.New("unknown collider")

// RayFilter restricts which colliders a world raycast considers.
type RayFilter struct {
	Mask LayerMask
	// MaxDistance of 0 means unbounded.
	MaxDistance  float32
	HitBackfaces bool
}

type idAssigner interface {
	setID(id uint32)
}

type layerOverride struct {
	previous Layer
	refs     int
}

// World is the registry every query runs against. It is safe for concurrent use.
type World struct {
	mu        sync.RWMutex
	ids       *core.IDPool
	colliders map[uint32]Collider
	layers    *LayerTable

	overrideMu sync.Mutex
	overrides  map[Collider]*layerOverride
}

func NewWorld(capacity int) *World {
	return &World{
		ids:       core.NewIDPool(capacity),
		colliders: make(map[uint32]Collider, capacity),
		layers:    NewLayerTable(),
		overrides: make(map[Collider]*layerOverride),
	}
}

func (w *World) Layers() *LayerTable {
	return w.layers
}

// Add registers a collider and returns its id.
func (w *World) Add(c Collider) uint32 {
	id := w.ids.Acquire(c)
	if a, ok := c.(idAssigner); ok {
		a.setID(id)
	}
	w.mu.Lock()
	w.colliders[id] = c
	w.mu.Unlock()
	core.LogDebug("collider '%s' registered with id %d (layer %d)", c.Name(), id, c.Layer())
	return id
}

func (w *World) Remove(c Collider) error {
	id := c.ID()
	w.mu.Lock()
	if existing, ok := w.colliders[id]; !ok || existing != c {
		w.mu.Unlock()
		return fmt.Errorf("%w: '%s'", ErrUnknownCollider, c.Name())
	}
	delete(w.colliders, id)
	w.mu.Unlock()

	if a, ok := c.(idAssigner); ok {
		a.setID(InvalidID)
	}
	return w.ids.Release(id)
}

func (w *World) Count() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.colliders)
}

// Contains tests p against the world bounds of volume.
func (w *World) Contains(volume Collider, p math.Vec3) bool {
	return volume.Bounds().Contains(p)
}

// Raycast returns the nearest hit among the colliders whose layer is in the
// filter mask. Equal distances resolve to the lower collider id.
func (w *World) Raycast(ray math.Ray, filter RayFilter) (RaycastHit, bool) {
	w.mu.RLock()
	candidates := make([]Collider, 0, len(w.colliders))
	for _, c := range w.colliders {
		candidates = append(candidates, c)
	}
	w.mu.RUnlock()

	var best RaycastHit
	found := false
	for _, c := range candidates {
		if !filter.Mask.Has(c.Layer()) {
			continue
		}
		hit, ok := c.Raycast(ray, filter.HitBackfaces)
		if !ok {
			continue
		}
		if filter.MaxDistance > 0 && hit.Distance > filter.MaxDistance {
			continue
		}
		if !found || hit.Distance < best.Distance ||
			(hit.Distance == best.Distance && c.ID() < best.Collider.ID()) {
			best = hit
			found = true
		}
	}
	return best, found
}

// OverrideLayer moves c onto layer until the returned release func is called.
// Overrides of the same collider nest: the original layer comes back when the
// last one is released. Calling release more than once is a no-op.
func (w *World) OverrideLayer(c Collider, layer Layer) (release func()) {
	w.overrideMu.Lock()
	o, ok := w.overrides[c]
	if !ok {
		o = &layerOverride{previous: c.Layer()}
		w.overrides[c] = o
	}
	o.refs++
	c.SetLayer(layer)
	w.overrideMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.overrideMu.Lock()
			defer w.overrideMu.Unlock()
			o.refs--
			if o.refs == 0 {
				c.SetLayer(o.previous)
				delete(w.overrides, c)
			}
		})
	}
}
