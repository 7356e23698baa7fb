package gpu

import (
	"fmt"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/prepass/pulse"
	"github.com/oliverbestmann/webgpu/wgpu"
)

type meshBuffers struct {
	vertices   *wgpu.Buffer
	indices    *wgpu.Buffer
	indexCount uint32
}

func (m *meshBuffers) Release() {
	m.vertices.Release()
	m.indices.Release()
}

// meshCache uploads meshes once and keeps the buffers of the most recently
// drawn meshes. Meshes must not be modified after they were drawn.
type meshCache struct {
	ctx   *Context
	cache *lru.Cache[*pulse.Mesh, *meshBuffers]
}

func newMeshCache(ctx *Context, size int) *meshCache {
	cache, _ := lru.NewWithEvict[*pulse.Mesh, *meshBuffers](size, releaseMeshOnEviction)
	return &meshCache{ctx: ctx, cache: cache}
}

func (c *meshCache) Get(mesh *pulse.Mesh) (*meshBuffers, error) {
	if buffers, ok := c.cache.Get(mesh); ok {
		return buffers, nil
	}

	if err := mesh.Validate(); err != nil {
		return nil, err
	}

	vertices := make([]Vertex, len(mesh.Positions))
	for idx := range vertices {
		vertices[idx] = Vertex{
			Position: mesh.Positions[idx],
			Normal:   mesh.Normals[idx],
		}
	}

	bufVertices, err := c.ctx.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    mesh.Name + ".Vertices",
		Contents: wgpu.ToBytes(vertices),
		Usage:    wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, fmt.Errorf("create vertex buffer: %w", err)
	}

	verticesGuard := NewReleaseGuard(bufVertices)
	defer verticesGuard.Release()

	bufIndices, err := c.ctx.CreateBufferInit(&wgpu.BufferInitDescriptor{
		Label:    mesh.Name + ".Indices",
		Contents: wgpu.ToBytes(mesh.Indices),
		Usage:    wgpu.BufferUsageIndex,
	})
	if err != nil {
		return nil, fmt.Errorf("create index buffer: %w", err)
	}

	verticesGuard.Keep()

	buffers := &meshBuffers{
		vertices:   bufVertices,
		indices:    bufIndices,
		indexCount: uint32(len(mesh.Indices)),
	}

	c.cache.Add(mesh, buffers)

	return buffers, nil
}

func (c *meshCache) Purge() {
	c.cache.Purge()
}

func releaseMeshOnEviction(_ *pulse.Mesh, buffers *meshBuffers) {
	buffers.Release()
}
