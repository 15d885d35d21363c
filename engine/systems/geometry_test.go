package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// faceNormal is the unnormalized normal implied by the triangle winding.
func faceNormal(gc *metadata.GeometryConfig, tri int) (math.Vec3, math.Vec3) {
	v0 := gc.Vertices[gc.Indices[tri*3]].Position
	v1 := gc.Vertices[gc.Indices[tri*3+1]].Position
	v2 := gc.Vertices[gc.Indices[tri*3+2]].Position
	centroid := v0.Add(v1).Add(v2).MulScalar(1.0 / 3.0)
	return v1.Sub(v0).Cross(v2.Sub(v0)), centroid
}

func TestGeneratePlane(t *testing.T) {
	gc := GeometrySystemGeneratePlaneConfig(2, 4, 2, 4, 1, 1, "floor", "")
	require.NoError(t, gc.Validate())

	assert.Equal(t, "floor", gc.Name)
	assert.Equal(t, metadata.DefaultMaterialName, gc.MaterialName)
	assert.Equal(t, 15, gc.VertexCount())
	assert.Equal(t, 16, gc.TriangleCount())
	assert.Equal(t, math.NewVec3(-1, -2, 0), gc.MinExtents)
	assert.Equal(t, math.NewVec3(1, 2, 0), gc.MaxExtents)

	for i := 0; i < gc.TriangleCount(); i++ {
		n, _ := faceNormal(gc, i)
		assert.Greater(t, n.Z, float32(0), "triangle %d faces away from +Z", i)
	}
}

func TestGeneratePlaneDefaultsDegenerateInput(t *testing.T) {
	gc := GeometrySystemGeneratePlaneConfig(0, 0, 0, 0, 0, 0, "", "")
	assert.Equal(t, metadata.DefaultGeometryName, gc.Name)
	assert.Equal(t, 4, gc.VertexCount())
	assert.Equal(t, 2, gc.TriangleCount())
}

func TestGenerateSphere(t *testing.T) {
	const rings, sectors = 6, 8
	gc := GeometrySystemGenerateSphereConfig(2, rings, sectors, "ball", "rubber")
	require.NoError(t, gc.Validate())

	assert.Equal(t, (rings+1)*(sectors+1), gc.VertexCount())
	assert.Equal(t, sectors*(2*rings-2), gc.TriangleCount())
	assert.Equal(t, "rubber", gc.MaterialName)

	for _, v := range gc.Vertices {
		assert.InDelta(t, 2, v.Position.Length(), 1e-4)
		assert.InDelta(t, 1, v.Normal.Length(), 1e-4)
	}
	for i := 0; i < gc.TriangleCount(); i++ {
		n, c := faceNormal(gc, i)
		assert.Greater(t, n.Dot(c), float32(0), "triangle %d winds inward", i)
	}
	assert.InDelta(t, -2, gc.MinExtents.Y, 1e-5)
	assert.InDelta(t, 2, gc.MaxExtents.Y, 1e-5)
}

func TestGenerateCube(t *testing.T) {
	gc := GeometrySystemGenerateCubeConfig(2, 4, 6, 1, 1, "crate", "")
	require.NoError(t, gc.Validate())

	assert.Equal(t, 24, gc.VertexCount())
	assert.Equal(t, 12, gc.TriangleCount())
	assert.Equal(t, math.NewVec3(-1, -2, -3), gc.MinExtents)
	assert.Equal(t, math.NewVec3(1, 2, 3), gc.MaxExtents)
	assert.Equal(t, math.NewVec3Zero(), gc.Center)

	for i := 0; i < gc.TriangleCount(); i++ {
		n, c := faceNormal(gc, i)
		assert.Greater(t, n.Dot(c), float32(0), "triangle %d winds inward", i)
		// flat faces: every corner carries the face normal
		vertexNormal := gc.Vertices[gc.Indices[i*3]].Normal
		assert.True(t, n.Normalized().Compare(vertexNormal, 1e-5))
	}
}
