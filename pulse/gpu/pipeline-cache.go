package gpu

import (
	"fmt"
	"log/slog"

	"github.com/hashicorp/golang-lru/v2"
	"github.com/oliverbestmann/webgpu/wgpu"
)

// PipelineConfig is the key of a cached pipeline.
type PipelineConfig interface {
	comparable

	// Specialize compiles the pipeline described by the config.
	Specialize(dev *wgpu.Device) (*wgpu.RenderPipeline, error)
}

// CachedPipeline is a compiled pipeline together with the layout of its
// per draw uniforms at group 0.
type CachedPipeline struct {
	Pipeline *wgpu.RenderPipeline
	Uniforms *wgpu.BindGroupLayout
}

func (pc CachedPipeline) release() {
	pc.Uniforms.Release()
	pc.Pipeline.Release()
}

// PipelineCache keeps the most recently drawn pipelines alive.
// Evicted pipelines are released.
type PipelineCache[C PipelineConfig] struct {
	device *wgpu.Device
	cache  *lru.Cache[C, CachedPipeline]

	hits   uint64
	builds uint64
}

func NewPipelineCache[C PipelineConfig](ctx *Context, size int) *PipelineCache[C] {
	cache, _ := lru.NewWithEvict[C, CachedPipeline](max(size, 1), func(_ C, pc CachedPipeline) {
		pc.release()
	})

	return &PipelineCache[C]{
		device: ctx.Device,
		cache:  cache,
	}
}

// Get returns the pipeline for conf, compiling it on first use.
func (p *PipelineCache[C]) Get(conf C) (CachedPipeline, error) {
	if cached, ok := p.cache.Get(conf); ok {
		p.hits++
		return cached, nil
	}

	pipeline, err := conf.Specialize(p.device)
	if err != nil {
		return CachedPipeline{}, fmt.Errorf("specialize pipeline: %w", err)
	}

	p.builds++

	slog.Debug("Cached pipeline",
		slog.Int("cached", p.cache.Len()+1),
		slog.Uint64("builds", p.builds),
		slog.Uint64("hits", p.hits),
	)

	pc := CachedPipeline{
		Pipeline: pipeline,
		Uniforms: pipeline.GetBindGroupLayout(0),
	}

	p.cache.Add(conf, pc)

	return pc, nil
}

func (p *PipelineCache[C]) Len() int {
	return p.cache.Len()
}

// Purge releases all cached pipelines.
func (p *PipelineCache[C]) Purge() {
	p.cache.Purge()
}
