package metadata

import "github.com/spaghettifunk/dent/engine/math"

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/**
 * @brief Material configuration typically loaded from
 * a file or created in code to load a material from.
 */
type MaterialConfig struct {
	/** @brief The name of the material. */
	Name string
	/** @brief The diffuse colour of the material. */
	DiffuseColour math.Vec4
	/** @brief The shininess of the material. */
	Shininess float32
	/** @brief The diffuse map name. */
	DiffuseMapName string
}

/**
 * @brief A material bound to one submesh of a deformable mesh.
 */
type Material struct {
	/** @brief The material name. */
	Name string
	/** @brief The diffuse colour. */
	DiffuseColour math.Vec4
	/** @brief The material shininess, determines how concentrated the specular lighting is. */
	Shininess float32
	/** @brief The diffuse map name, empty when untextured. */
	DiffuseMapName string
}

func NewMaterial(cfg MaterialConfig) Material {
	return Material{
		Name:           cfg.Name,
		DiffuseColour:  cfg.DiffuseColour,
		Shininess:      cfg.Shininess,
		DiffuseMapName: cfg.DiffuseMapName,
	}
}

// DefaultMaterial is plain white, used when no material file is configured.
func DefaultMaterial() Material {
	return Material{
		Name:          DefaultMaterialName,
		DiffuseColour: math.NewVec4One(),
		Shininess:     8.0,
	}
}
