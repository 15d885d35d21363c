package systems

import (
	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

/**
 * @brief Generates configuration for plane geometries given the provided parameters.
 * The plane lies in the XY plane facing +Z and neighbouring segments share
 * vertices, so a deformed vertex drags every triangle around it.
 *
 * @param width The overall width of the plane. Must be non-zero.
 * @param height The overall height of the plane. Must be non-zero.
 * @param xSegmentCount The number of segments along the x-axis in the plane. Must be non-zero.
 * @param ySegmentCount The number of segments along the y-axis in the plane. Must be non-zero.
 * @param tileX The number of times the texture should tile across the plane on the x-axis. Must be non-zero.
 * @param tileY The number of times the texture should tile across the plane on the y-axis. Must be non-zero.
 * @param name The name of the generated geometry.
 * @param materialName The name of the material to be used.
 */
func GeometrySystemGeneratePlaneConfig(width, height float32, xSegmentCount, ySegmentCount uint32, tileX, tileY float32, name, materialName string) *metadata.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if xSegmentCount < 1 {
		core.LogWarn("xSegmentCount must be a positive number. Defaulting to one.")
		xSegmentCount = 1
	}
	if ySegmentCount < 1 {
		core.LogWarn("ySegmentCount must be a positive number. Defaulting to one.")
		ySegmentCount = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	columns := xSegmentCount + 1
	rows := ySegmentCount + 1
	config := &metadata.GeometryConfig{
		Vertices: make([]math.Vertex3D, 0, columns*rows),
		Indices:  make([]uint32, 0, xSegmentCount*ySegmentCount*6),
	}

	segWidth := width / float32(xSegmentCount)
	segHeight := height / float32(ySegmentCount)
	halfWidth := width * 0.5
	halfHeight := height * 0.5
	for y := uint32(0); y < rows; y++ {
		for x := uint32(0); x < columns; x++ {
			config.Vertices = append(config.Vertices, math.Vertex3D{
				Position: math.NewVec3(float32(x)*segWidth-halfWidth, float32(y)*segHeight-halfHeight, 0),
				Normal:   math.NewVec3(0, 0, 1),
				Texcoord: math.NewVec2(float32(x)/float32(xSegmentCount)*tileX, float32(y)/float32(ySegmentCount)*tileY),
			})
		}
	}
	for y := uint32(0); y < ySegmentCount; y++ {
		for x := uint32(0); x < xSegmentCount; x++ {
			bottomLeft := y*columns + x
			topLeft := bottomLeft + columns
			config.Indices = append(config.Indices,
				bottomLeft, bottomLeft+1, topLeft+1,
				bottomLeft, topLeft+1, topLeft,
			)
		}
	}

	nameGeometry(config, name, materialName)
	config.UpdateExtents()
	return config
}

/**
 * @brief Generates a UV sphere centered at the origin with outward facing,
 * counter-clockwise triangles. Rings run pole to pole, sectors around Y.
 */
func GeometrySystemGenerateSphereConfig(radius float32, rings, sectors uint32, name, materialName string) *metadata.GeometryConfig {
	if radius <= 0 {
		core.LogWarn("radius must be positive. Defaulting to one.")
		radius = 1.0
	}
	if rings < 2 {
		core.LogWarn("rings must be at least 2. Defaulting to 2.")
		rings = 2
	}
	if sectors < 3 {
		core.LogWarn("sectors must be at least 3. Defaulting to 3.")
		sectors = 3
	}

	config := &metadata.GeometryConfig{
		Vertices: make([]math.Vertex3D, 0, (rings+1)*(sectors+1)),
	}
	for r := uint32(0); r <= rings; r++ {
		phi := math.K_PI * float32(r) / float32(rings)
		for s := uint32(0); s <= sectors; s++ {
			theta := math.K_PI_2 * float32(s) / float32(sectors)
			normal := sphericalDirection(phi, theta)
			config.Vertices = append(config.Vertices, math.Vertex3D{
				Position: normal.MulScalar(radius),
				Normal:   normal,
				Texcoord: math.NewVec2(float32(s)/float32(sectors), float32(r)/float32(rings)),
			})
		}
	}

	stride := sectors + 1
	for r := uint32(0); r < rings; r++ {
		for s := uint32(0); s < sectors; s++ {
			a := r*stride + s
			b := a + stride
			// the first and last rings collapse onto a pole
			if r != 0 {
				config.Indices = append(config.Indices, a, a+1, b)
			}
			if r != rings-1 {
				config.Indices = append(config.Indices, a+1, b+1, b)
			}
		}
	}

	nameGeometry(config, name, materialName)
	config.UpdateExtents()
	return config
}

/**
 * @brief Generates a box centered at the origin, four vertices per face so
 * every face keeps a flat normal.
 */
func GeometrySystemGenerateCubeConfig(width, height, depth, tileX, tileY float32, name, materialName string) *metadata.GeometryConfig {
	if width == 0 {
		core.LogWarn("Width must be nonzero. Defaulting to one.")
		width = 1.0
	}
	if height == 0 {
		core.LogWarn("Height must be nonzero. Defaulting to one.")
		height = 1.0
	}
	if depth == 0 {
		core.LogWarn("Depth must be nonzero. Defaulting to one.")
		depth = 1
	}
	if tileX == 0 {
		core.LogWarn("tileX must be nonzero. Defaulting to one.")
		tileX = 1.0
	}
	if tileY == 0 {
		core.LogWarn("tileY must be nonzero. Defaulting to one.")
		tileY = 1.0
	}

	half := math.NewVec3(width*0.5, height*0.5, depth*0.5)
	// each face: outward normal plus the two in-plane axes, u x v == normal
	faces := []struct{ normal, u, v math.Vec3 }{
		{math.NewVec3(0, 0, 1), math.NewVec3(1, 0, 0), math.NewVec3(0, 1, 0)},
		{math.NewVec3(0, 0, -1), math.NewVec3(-1, 0, 0), math.NewVec3(0, 1, 0)},
		{math.NewVec3(-1, 0, 0), math.NewVec3(0, 0, 1), math.NewVec3(0, 1, 0)},
		{math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1), math.NewVec3(0, 1, 0)},
		{math.NewVec3(0, -1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, 1)},
		{math.NewVec3(0, 1, 0), math.NewVec3(1, 0, 0), math.NewVec3(0, 0, -1)},
	}
	corners := []struct{ u, v float32 }{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}

	config := &metadata.GeometryConfig{
		Vertices: make([]math.Vertex3D, 0, 24),
		Indices:  make([]uint32, 0, 36),
	}
	for i, f := range faces {
		for _, c := range corners {
			p := f.normal.Add(f.u.MulScalar(c.u)).Add(f.v.MulScalar(c.v)).Mul(half)
			config.Vertices = append(config.Vertices, math.Vertex3D{
				Position: p,
				Normal:   f.normal,
				Texcoord: math.NewVec2((c.u+1)*0.5*tileX, (c.v+1)*0.5*tileY),
			})
		}
		offset := uint32(i * 4)
		config.Indices = append(config.Indices, offset, offset+1, offset+2, offset, offset+2, offset+3)
	}

	nameGeometry(config, name, materialName)
	config.UpdateExtents()
	return config
}

func sphericalDirection(phi, theta float32) math.Vec3 {
	sinPhi := math.Sin(phi)
	return math.NewVec3(sinPhi*math.Cos(theta), math.Cos(phi), sinPhi*math.Sin(theta))
}

func nameGeometry(config *metadata.GeometryConfig, name, materialName string) {
	if len(name) > 0 {
		config.Name = name
	} else {
		config.Name = metadata.DefaultGeometryName
	}
	if len(materialName) > 0 {
		config.MaterialName = materialName
	} else {
		config.MaterialName = metadata.DefaultMaterialName
	}
}
