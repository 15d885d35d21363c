package metadata

// Mesh is a named group of geometries loaded from one model file.
type Mesh struct {
	Name       string
	Geometries []*GeometryConfig
}

// Geometry returns the geometry with the given name, or the first one when
// name is empty.
func (m *Mesh) Geometry(name string) *GeometryConfig {
	if m == nil || len(m.Geometries) == 0 {
		return nil
	}
	if name == "" {
		return m.Geometries[0]
	}
	for _, g := range m.Geometries {
		if g.Name == name {
			return g
		}
	}
	return nil
}
