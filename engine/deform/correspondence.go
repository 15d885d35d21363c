package deform

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
)

// CorrespondenceResolver maps selected vertices onto the deformer surface by
// casting a ray from each vertex against its rest normal.
type CorrespondenceResolver struct {
	geom     Geometry
	settings Settings
}

func NewCorrespondenceResolver(geom Geometry, settings Settings) *CorrespondenceResolver {
	return &CorrespondenceResolver{geom: geom, settings: settings}
}

// Resolve builds the replacement mapping for sel. For every ray that hits a
// collider tagged as deformer, the target nearest to the hit point becomes the
// vertex's new position, converted into toLocal's space. Vertices whose ray
// misses are left out. Nearest lookups scan targets linearly, which costs
// O(len(sel) * len(targets)) unless the R-tree threshold is reached.
//
// While resolving, proxy sits on the ignore layer so rays cannot hit the
// deformable itself. The previous layer is restored on every return path.
func (r *CorrespondenceResolver) Resolve(ctx context.Context, proxy physics.Collider, toLocal *math.Transform, targets []math.Vec3, sel Selection) (Mapping, error) {
	if len(targets) == 0 {
		return nil, core.ErrNoDeformationTargets
	}

	layers := r.geom.Layers()
	if proxy != nil {
		if ignore, ok := layers.NameToLayer(r.settings.IgnoreLayer); ok {
			release := r.geom.OverrideLayer(proxy, ignore)
			defer release()
		} else {
			core.LogWarn("layer '%s' does not exist, rays may hit '%s' itself", r.settings.IgnoreLayer, proxy.Name())
		}
	}

	filter := physics.RayFilter{
		Mask:         physics.DefaultRaycastLayers,
		HitBackfaces: r.settings.HitBackfaces,
	}
	if deformer, ok := layers.NameToLayer(r.settings.DeformerLayer); ok {
		filter.Mask = physics.MaskOf(deformer)
	} else {
		core.LogWarn("layer '%s' does not exist, casting against all raycast layers", r.settings.DeformerLayer)
	}

	nearest := newNearestFinder(targets, r.settings.NearestIndexThreshold)

	mapping := make(Mapping, 0, sel.Len())
	for i, idx := range sel.Indices {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrImpactCancelled, err)
		}

		ray := math.Ray{Origin: sel.Vertices[i], Direction: sel.Normals[i].Negate()}
		hit, ok := r.geom.Raycast(ray, filter)
		if !ok || hit.Collider == nil || hit.Collider.Tag() != r.settings.DeformerTag {
			continue
		}

		target := targets[nearest.Nearest(hit.Point)]
		mapping = append(mapping, Replacement{
			Index:    idx,
			Position: toLocal.InverseTransformPoint(target),
		})
	}
	return mapping, nil
}
