package physics

import (
	"fmt"
	"sync"
)

// Layer is a collision layer in the range [0, MaxLayers).
type Layer uint8

const MaxLayers = 32

const (
	LayerDefault       Layer = 0
	LayerIgnoreRaycast Layer = 2
	LayerDeformer      Layer = 8
	LayerDeformable    Layer = 9
)

// LayerMask selects a set of layers, one bit per layer.
type LayerMask uint32

const AllLayers LayerMask = ^LayerMask(0)

// DefaultRaycastLayers is every layer except the ignore-raycast one.
const DefaultRaycastLayers = AllLayers &^ (1 << LayerIgnoreRaycast)

func MaskOf(layers ...Layer) LayerMask {
	var m LayerMask
	for _, l := range layers {
		m |= 1 << l
	}
	return m
}

func (m LayerMask) Has(l Layer) bool {
	return l < MaxLayers && m&(1<<l) != 0
}

// LayerTable maps layer names to layers.
type LayerTable struct {
	mu    sync.RWMutex
	names [MaxLayers]string
}

func NewLayerTable() *LayerTable {
	t := &LayerTable{}
	t.names[LayerDefault] = "Default"
	t.names[LayerIgnoreRaycast] = "Ignore Raycast"
	t.names[LayerDeformer] = "Deformer"
	t.names[LayerDeformable] = "Deformable"
	return t
}

// Define names a layer, replacing any previous name it had.
func (t *LayerTable) Define(l Layer, name string) error {
	if l >= MaxLayers {
		return fmt.Errorf("layer %d out of range (max=%d)", l, MaxLayers-1)
	}
	if name == "" {
		return fmt.Errorf("layer %d needs a name", l)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, n := range t.names {
		if n == name && Layer(i) != l {
			return fmt.Errorf("layer name '%s' already used by layer %d", name, i)
		}
	}
	t.names[l] = name
	return nil
}

// Undefine removes the name of a layer. The layer itself stays usable.
func (t *LayerTable) Undefine(l Layer) {
	if l >= MaxLayers {
		return
	}
	t.mu.Lock()
	t.names[l] = ""
	t.mu.Unlock()
}

// NameToLayer resolves a layer by name. The second return is false when no
// layer carries that name.
func (t *LayerTable) NameToLayer(name string) (Layer, bool) {
	if name == "" {
		return 0, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i, n := range t.names {
		if n == name {
			return Layer(i), true
		}
	}
	return 0, false
}

func (t *LayerTable) LayerToName(l Layer) string {
	if l >= MaxLayers {
		return ""
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.names[l]
}
