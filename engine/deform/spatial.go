package deform

import (
	"fmt"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/physics"
)

// Select returns the vertices whose world position lies inside volume, in
// ascending index order. Rest normals are carried along as world directions.
// An empty selection is not an error.
func Select(vertices, normals []math.Vec3, volume physics.Collider, toWorld *math.Transform, geom Geometry) (Selection, error) {
	if len(vertices) == 0 || len(vertices) != len(normals) {
		return Selection{}, fmt.Errorf("%w: %d vertices, %d normals", core.ErrInvalidMeshData, len(vertices), len(normals))
	}

	world := toWorld.GetWorld()
	rotation := toWorld.WorldRotation()

	sel := Selection{}
	for i, v := range vertices {
		p := v.Transform(world)
		if !geom.Contains(volume, p) {
			continue
		}
		sel.Vertices = append(sel.Vertices, p)
		sel.Indices = append(sel.Indices, i)
		sel.Normals = append(sel.Normals, rotation.Rotate(normals[i]).Normalized())
	}
	return sel, nil
}
