package loaders

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

// ModelLoader reads Wavefront OBJ files into a metadata.Mesh, one geometry per
// object or group. Polygons are fan triangulated.
type ModelLoader struct{}

func (ml *ModelLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	name := resourceName(path, params)
	mesh, err := ParseOBJ(f, name)
	if err != nil {
		return nil, fmt.Errorf("model '%s': %w", path, err)
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeModel,
		Name:     name,
		FullPath: path,
		DataSize: uint64(info.Size()),
		Data:     mesh,
	}, nil
}

func (ml *ModelLoader) Unload(*metadata.Resource) error {
	return nil
}

const noIndex = -1

type objCorner struct {
	position, texcoord, normal int
}

type objGeometry struct {
	config  *metadata.GeometryConfig
	corners map[objCorner]uint32
	// missingNormals is set once any corner comes without a normal.
	missingNormals bool
}

type objDecoder struct {
	name      string
	line      int
	positions []math.Vec3
	normals   []math.Vec3
	texcoords []math.Vec2
	material  string

	geometries []*objGeometry
	current    *objGeometry
}

// ParseOBJ decodes the v, vn, vt, f, o, g and usemtl statements of an OBJ stream.
func ParseOBJ(r io.Reader, name string) (*metadata.Mesh, error) {
	dec := &objDecoder{name: name}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		dec.line++
		if err := dec.parseLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", dec.line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	mesh := &metadata.Mesh{Name: name}
	for _, g := range dec.geometries {
		if len(g.config.Indices) == 0 {
			continue
		}
		if g.missingNormals {
			g.config.GenerateNormals()
		}
		g.config.UpdateExtents()
		mesh.Geometries = append(mesh.Geometries, g.config)
	}
	if len(mesh.Geometries) == 0 {
		return nil, fmt.Errorf("%w: no faces", core.ErrInvalidMeshData)
	}
	return mesh, nil
}

func (dec *objDecoder) parseLine(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 || strings.HasPrefix(fields[0], "#") {
		return nil
	}
	switch fields[0] {
	case "v":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.positions = append(dec.positions, math.NewVec3(v[0], v[1], v[2]))
	case "vn":
		v, err := parseFloats(fields[1:], 3)
		if err != nil {
			return err
		}
		dec.normals = append(dec.normals, math.NewVec3(v[0], v[1], v[2]).Normalized())
	case "vt":
		v, err := parseFloats(fields[1:], 2)
		if err != nil {
			return err
		}
		dec.texcoords = append(dec.texcoords, math.NewVec2(v[0], v[1]))
	case "o", "g":
		name := dec.name
		if len(fields) > 1 {
			name = fields[1]
		}
		dec.startGeometry(name)
	case "usemtl":
		if len(fields) < 2 {
			return fmt.Errorf("usemtl with no name")
		}
		dec.material = fields[1]
		if dec.current != nil && len(dec.current.config.Indices) == 0 {
			dec.current.config.MaterialName = dec.material
		}
	case "f":
		return dec.parseFace(fields[1:])
	default:
		core.LogDebug("obj: statement '%s' not supported, skipped", fields[0])
	}
	return nil
}

func (dec *objDecoder) startGeometry(name string) {
	material := dec.material
	if material == "" {
		material = metadata.DefaultMaterialName
	}
	dec.current = &objGeometry{
		config: &metadata.GeometryConfig{
			Name:         name,
			MaterialName: material,
		},
		corners: make(map[objCorner]uint32),
	}
	dec.geometries = append(dec.geometries, dec.current)
}

// parseFace handles f v1[/vt1][/vn1] v2[/vt2][/vn2] v3[/vt3][/vn3] ...
func (dec *objDecoder) parseFace(fields []string) error {
	if len(fields) < 3 {
		return fmt.Errorf("face with %d corners", len(fields))
	}
	if dec.current == nil {
		dec.startGeometry(dec.name)
	}

	indices := make([]uint32, len(fields))
	for i, f := range fields {
		corner, err := dec.parseCorner(f)
		if err != nil {
			return err
		}
		indices[i] = dec.current.vertex(dec, corner)
	}
	for i := 1; i+1 < len(indices); i++ {
		dec.current.config.Indices = append(dec.current.config.Indices, indices[0], indices[i], indices[i+1])
	}
	return nil
}

func (dec *objDecoder) parseCorner(field string) (objCorner, error) {
	parts := strings.Split(field, "/")
	corner := objCorner{position: noIndex, texcoord: noIndex, normal: noIndex}

	var err error
	if corner.position, err = resolveIndex(parts[0], len(dec.positions)); err != nil {
		return corner, err
	}
	if len(parts) > 1 && parts[1] != "" {
		if corner.texcoord, err = resolveIndex(parts[1], len(dec.texcoords)); err != nil {
			return corner, err
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		if corner.normal, err = resolveIndex(parts[2], len(dec.normals)); err != nil {
			return corner, err
		}
	}
	return corner, nil
}

// resolveIndex turns a 1-based or negative relative OBJ index into a 0-based one.
func resolveIndex(s string, count int) (int, error) {
	val, err := strconv.Atoi(s)
	if err != nil {
		return noIndex, err
	}
	idx := val - 1
	if val < 0 {
		idx = count + val
	}
	if val == 0 || idx < 0 || idx >= count {
		return noIndex, fmt.Errorf("%w: index %d of %d", core.ErrInvalidMeshData, val, count)
	}
	return idx, nil
}

// vertex returns the geometry-local index of corner, adding it on first use.
func (g *objGeometry) vertex(dec *objDecoder, corner objCorner) uint32 {
	if idx, ok := g.corners[corner]; ok {
		return idx
	}
	v := math.Vertex3D{Position: dec.positions[corner.position]}
	if corner.normal != noIndex {
		v.Normal = dec.normals[corner.normal]
	} else {
		g.missingNormals = true
	}
	if corner.texcoord != noIndex {
		v.Texcoord = dec.texcoords[corner.texcoord]
	}
	idx := uint32(len(g.config.Vertices))
	g.config.Vertices = append(g.config.Vertices, v)
	g.corners[corner] = idx
	return idx
}

func parseFloats(fields []string, n int) ([]float32, error) {
	if len(fields) < n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(fields))
	}
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return nil, err
		}
		out[i] = float32(f)
	}
	return out, nil
}
