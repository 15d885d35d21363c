package metadata

import (
	"fmt"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
)

/** @brief The name of the default geometry. */
const DefaultGeometryName string = "default"

/**
 * @brief Represents the configuration for a geometry.
 */
type GeometryConfig struct {
	/** @brief An array of Vertices. */
	Vertices []math.Vertex3D
	/** @brief An array of Indices, three per triangle. */
	Indices []uint32

	Center     math.Vec3
	MinExtents math.Vec3
	MaxExtents math.Vec3

	/** @brief The Name of the geometry. */
	Name string
	/** @brief The name of the material used by the geometry. */
	MaterialName string
}

func (gc *GeometryConfig) VertexCount() int {
	return len(gc.Vertices)
}

func (gc *GeometryConfig) TriangleCount() int {
	return len(gc.Indices) / 3
}

// Positions copies the vertex positions out of the interleaved vertices.
func (gc *GeometryConfig) Positions() []math.Vec3 {
	out := make([]math.Vec3, len(gc.Vertices))
	for i, v := range gc.Vertices {
		out[i] = v.Position
	}
	return out
}

// Normals copies the vertex normals out of the interleaved vertices.
func (gc *GeometryConfig) Normals() []math.Vec3 {
	out := make([]math.Vec3, len(gc.Vertices))
	for i, v := range gc.Vertices {
		out[i] = v.Normal
	}
	return out
}

/**
 * @brief Recomputes Center, MinExtents and MaxExtents from the vertex positions.
 */
func (gc *GeometryConfig) UpdateExtents() {
	e := math.ExtentsFromPoints(gc.Positions())
	gc.MinExtents = e.Min
	gc.MaxExtents = e.Max
	gc.Center = e.Center()
}

/**
 * @brief Fills every vertex normal with smooth normals built from the triangles.
 */
func (gc *GeometryConfig) GenerateNormals() {
	normals := math.GeometryGenerateNormals(gc.Positions(), gc.Indices)
	for i := range gc.Vertices {
		gc.Vertices[i].Normal = normals[i]
	}
}

// Validate checks the index list is made of whole triangles that reference
// existing vertices.
func (gc *GeometryConfig) Validate() error {
	if len(gc.Vertices) == 0 {
		return fmt.Errorf("%w: geometry '%s' has no vertices", core.ErrInvalidMeshData, gc.Name)
	}
	if len(gc.Indices)%3 != 0 {
		return fmt.Errorf("%w: geometry '%s' has %d indices, not a multiple of 3", core.ErrInvalidMeshData, gc.Name, len(gc.Indices))
	}
	for _, idx := range gc.Indices {
		if int(idx) >= len(gc.Vertices) {
			return fmt.Errorf("%w: geometry '%s' index %d out of %d vertices", core.ErrInvalidMeshData, gc.Name, idx, len(gc.Vertices))
		}
	}
	return nil
}
