package physics

import (
	"sync"
	"sync/atomic"

	"github.com/spaghettifunk/dent/engine/math"
)

// Collider is a shape registered in a World. Layer reads and writes are safe
// while other goroutines raycast against the collider.
type Collider interface {
	ID() uint32
	Name() string
	Tag() string
	Layer() Layer
	SetLayer(l Layer)
	// Bounds is the world-space box enclosing the shape.
	Bounds() math.Extents3D
	// Raycast returns the nearest hit along the ray.
	Raycast(ray math.Ray, hitBackfaces bool) (RaycastHit, bool)
}

type RaycastHit struct {
	Collider Collider
	Point    math.Vec3
	Normal   math.Vec3
	Distance float32
	// Triangle is the index of the triangle hit on a MeshCollider, -1 otherwise.
	Triangle int
}

// colliderBase carries the identity shared by every collider.
type colliderBase struct {
	id    atomic.Uint32
	name  string
	tag   string
	layer atomic.Uint32
}

func (b *colliderBase) init(name, tag string, layer Layer) {
	b.name = name
	b.tag = tag
	b.id.Store(InvalidID)
	b.layer.Store(uint32(layer))
}

func (b *colliderBase) ID() uint32       { return b.id.Load() }
func (b *colliderBase) setID(id uint32)  { b.id.Store(id) }
func (b *colliderBase) Name() string     { return b.name }
func (b *colliderBase) Tag() string      { return b.tag }
func (b *colliderBase) Layer() Layer     { return Layer(b.layer.Load()) }
func (b *colliderBase) SetLayer(l Layer) { b.layer.Store(uint32(l)) }

// BoxCollider is an axis-aligned box in world space.
type BoxCollider struct {
	colliderBase

	mu     sync.RWMutex
	bounds math.Extents3D
}

func NewBoxCollider(name, tag string, layer Layer, center, size math.Vec3) *BoxCollider {
	b := &BoxCollider{
		bounds: math.NewExtentsFromCenterSize(center, size),
	}
	b.init(name, tag, layer)
	return b
}

func (b *BoxCollider) Bounds() math.Extents3D {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bounds
}

// MoveTo re-centers the box, keeping its size.
func (b *BoxCollider) MoveTo(center math.Vec3) {
	b.mu.Lock()
	b.bounds = math.NewExtentsFromCenterSize(center, b.bounds.Size())
	b.mu.Unlock()
}

func (b *BoxCollider) Resize(size math.Vec3) {
	b.mu.Lock()
	b.bounds = math.NewExtentsFromCenterSize(b.bounds.Center(), size)
	b.mu.Unlock()
}

// Raycast hits the entry face of the box. When the ray starts inside, the exit
// face counts as a back face.
func (b *BoxCollider) Raycast(ray math.Ray, hitBackfaces bool) (RaycastHit, bool) {
	bounds := b.Bounds()
	near, far, ok := ray.IntersectExtents(bounds)
	if !ok {
		return RaycastHit{}, false
	}
	dist := near
	if near < 0 {
		if !hitBackfaces {
			return RaycastHit{}, false
		}
		dist = far
	}
	point := ray.At(dist)
	return RaycastHit{
		Collider: b,
		Point:    point,
		Normal:   boxFaceNormal(bounds, point),
		Distance: dist,
		Triangle: -1,
	}, true
}

// boxFaceNormal picks the outward normal of the face closest to p.
func boxFaceNormal(e math.Extents3D, p math.Vec3) math.Vec3 {
	best := float32(math.K_INFINITY)
	var normal math.Vec3
	for axis := 0; axis < 3; axis++ {
		lo := p.Axis(axis) - e.Min.Axis(axis)
		hi := e.Max.Axis(axis) - p.Axis(axis)
		if lo < 0 {
			lo = -lo
		}
		if hi < 0 {
			hi = -hi
		}
		if lo < best {
			best = lo
			normal = unitAxis(axis, -1)
		}
		if hi < best {
			best = hi
			normal = unitAxis(axis, 1)
		}
	}
	return normal
}

func unitAxis(axis int, sign float32) math.Vec3 {
	switch axis {
	case 0:
		return math.NewVec3(sign, 0, 0)
	case 1:
		return math.NewVec3(0, sign, 0)
	default:
		return math.NewVec3(0, 0, sign)
	}
}
