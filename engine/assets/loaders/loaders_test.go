package loaders

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/dent/engine/core"
	"github.com/spaghettifunk/dent/engine/math"
	"github.com/spaghettifunk/dent/engine/renderer/metadata"
)

func TestParseAMT(t *testing.T) {
	cfg, err := ParseAMT(strings.NewReader(`
# comment
name = impact
diffuse_colour = 0.5 0.25 0 1
shininess = 4
diffuse_map_name = scratches
not a pair
shader = Builtin.Material
`))
	require.NoError(t, err)
	assert.Equal(t, "impact", cfg.Name)
	assert.Equal(t, math.NewVec4(0.5, 0.25, 0, 1), cfg.DiffuseColour)
	assert.Equal(t, float32(4), cfg.Shininess)
	assert.Equal(t, "scratches", cfg.DiffuseMapName)
}

func TestParseAMTRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"no name", "shininess = 1"},
		{"short colour", "name = a\ndiffuse_colour = 1 1 1"},
		{"colour out of range", "name = a\ndiffuse_colour = 2 1 1 1"},
		{"bad shininess", "name = a\nshininess = shiny"},
		{"negative shininess", "name = a\nshininess = -1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAMT(strings.NewReader(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseOBJQuadFan(t *testing.T) {
	mesh, err := ParseOBJ(strings.NewReader(`
mtllib panel.mtl
o quad
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 2
vt 0 0
usemtl steel
f 1/1/1 2/1/1 3/1/1 4/1/1
`), "panel")
	require.NoError(t, err)
	require.Len(t, mesh.Geometries, 1)

	gc := mesh.Geometry("quad")
	require.NotNil(t, gc)
	assert.Equal(t, "steel", gc.MaterialName)
	assert.Equal(t, 4, gc.VertexCount())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, gc.Indices)
	assert.Equal(t, math.NewVec3(0, 0, 1), gc.Vertices[2].Normal)
	assert.Equal(t, math.NewVec3(1, 1, 0), gc.MaxExtents)
}

func TestParseOBJWithoutNormalsGeneratesThem(t *testing.T) {
	mesh, err := ParseOBJ(strings.NewReader(`
v 0 0 0
v 1 0 0
v 0 1 0
f -3 -2 -1
`), "tri")
	require.NoError(t, err)

	gc := mesh.Geometry("")
	require.NotNil(t, gc)
	assert.Equal(t, "tri", gc.Name)
	assert.Equal(t, metadata.DefaultMaterialName, gc.MaterialName)
	for _, v := range gc.Vertices {
		assert.True(t, v.Normal.Compare(math.NewVec3(0, 0, 1), 1e-5))
	}
}

func TestParseOBJSplitsGroupsAndSharesCorners(t *testing.T) {
	mesh, err := ParseOBJ(strings.NewReader(`
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
vn 0 0 1
g first
f 1//1 2//1 3//1
f 1//1 3//1 4//1
g second
f 1//1 2//1 3//1
`), "groups")
	require.NoError(t, err)
	require.Len(t, mesh.Geometries, 2)
	assert.Equal(t, 4, mesh.Geometries[0].VertexCount())
	assert.Equal(t, 2, mesh.Geometries[0].TriangleCount())
	assert.Equal(t, 3, mesh.Geometries[1].VertexCount())
	assert.Nil(t, mesh.Geometry("third"))
}

func TestParseOBJRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "# nothing"},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 0 1 2"},
		{"out of range", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 4"},
		{"two corners", "v 0 0 0\nv 1 0 0\nf 1 2"},
		{"bad float", "v 0 zero 0"},
		{"short vertex", "v 0 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseOBJ(strings.NewReader(tt.data), "bad")
			assert.Error(t, err)
		})
	}

	_, err := ParseOBJ(strings.NewReader("v 0 0 0\nf 1 1 2"), "bad")
	assert.ErrorIs(t, err, core.ErrInvalidMeshData)
}

func TestLoadersFromDisk(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		return path
	}

	res, err := (&MaterialLoader{}).Load(write("m.amt", "name = m\n"), metadata.ResourceTypeMaterial, nil)
	require.NoError(t, err)
	assert.Equal(t, "m", res.Data.(*metadata.MaterialConfig).Name)

	res, err = (&ModelLoader{}).Load(write("tri.obj", "v 0 0 0\nv 1 0 0\nv 0 1 0\nf 1 2 3\n"), metadata.ResourceTypeModel, nil)
	require.NoError(t, err)
	assert.Equal(t, "tri", res.Name)
	assert.Equal(t, metadata.ResourceTypeModel, res.Type)
	assert.Len(t, res.Data.(*metadata.Mesh).Geometries, 1)

	res, err = (&TextLoader{}).Load(write("notes.txt", "hello"), metadata.ResourceTypeText, map[string]string{"name": "readme"})
	require.NoError(t, err)
	assert.Equal(t, "readme", res.Name)
	assert.Equal(t, "hello", res.Data)
	assert.Equal(t, uint64(5), res.DataSize)

	_, err = (&ConfigLoader{}).Load(write("dent.toml", "[deformation]\nworkers = 2\n"), metadata.ResourceTypeConfig, nil)
	require.NoError(t, err)

	_, err = (&ModelLoader{}).Load(filepath.Join(dir, "missing.obj"), metadata.ResourceTypeModel, nil)
	assert.Error(t, err)
}
