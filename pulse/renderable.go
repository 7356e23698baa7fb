package pulse

import (
	"fmt"

	"github.com/oliverbestmann/prepass/glm"
)

// Layer is the index of a layer, in [0, 32).
type Layer uint8

// LayerMask is a bit set of layers.
type LayerMask uint32

const (
	LayerMaskNothing    LayerMask = 0
	LayerMaskEverything LayerMask = ^LayerMask(0)
)

func LayerMaskOf(layers ...Layer) LayerMask {
	var mask LayerMask
	for _, layer := range layers {
		mask |= 1 << layer
	}

	return mask
}

func (m LayerMask) Contains(layer Layer) bool {
	return layer < 32 && m&(1<<layer) != 0
}

// Renderable is an object of the scene that can be drawn.
type Renderable struct {
	Name     string
	Mesh     *Mesh
	Material *Material
	Layer    Layer

	LocalToWorld glm.Mat4f
}

func (r *Renderable) String() string {
	return fmt.Sprintf("Renderable(%s)", r.Name)
}

// WorldBounds returns the bounding box of the mesh in world space.
func (r *Renderable) WorldBounds() Bounds {
	return r.Mesh.Bounds().Transform(r.LocalToWorld)
}

// CullingResults contains the renderables that survived culling
// for a single camera.
type CullingResults struct {
	Visible []*Renderable
}
