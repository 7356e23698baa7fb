package depthnormals

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/oliverbestmann/prepass/orion"
	"github.com/oliverbestmann/prepass/pulse"
)

// Feature adds the depth normals Pass to a renderer. The destination target
// is allocated once and resized to the camera whenever its size changes.
type Feature struct {
	material *pulse.Material

	pool   *pulse.TargetPool
	pass   *Pass
	target *pulse.RenderTarget
}

var _ orion.Feature = (*Feature)(nil)

// NewFeature creates a feature using the given override material,
// use NewMaterial for the default one.
func NewFeature(material *pulse.Material) *Feature {
	return &Feature{material: material}
}

func (f *Feature) Name() string {
	return "DepthNormals"
}

// Pass returns the pass of the feature, nil before Create.
func (f *Feature) Pass() *Pass {
	return f.pass
}

// Target returns the persistent destination target, nil before Create.
func (f *Feature) Target() *pulse.RenderTarget {
	return f.target
}

// Create validates the material and allocates the destination target
// using a placeholder size. Errors are returned to the renderer.
func (f *Feature) Create(pool *pulse.TargetPool) error {
	if f.pass != nil {
		return errors.New("feature was already created")
	}

	pass, err := NewPass(f.material)
	if err != nil {
		return err
	}

	desc := TargetDescriptor(pulse.RenderTargetDescriptor{Width: 1, Height: 1})

	target, err := pool.Allocate(TextureName, desc)
	if err != nil {
		return fmt.Errorf("allocate destination: %w", err)
	}

	slog.Info("Created depth normals feature",
		slog.String("material", f.material.Name),
		slog.String("format", desc.ColorFormat.String()),
		slog.Int("depthBits", int(desc.DepthBits)),
	)

	f.pool = pool
	f.pass = pass
	f.target = target

	return nil
}

func (f *Feature) AddRenderPasses(renderer *orion.Renderer, data *orion.RenderingData) error {
	if f.pass == nil {
		return errors.New("feature was not created")
	}

	desc := data.TargetDescriptor()

	if _, err := f.pool.ReAllocateIfNeeded(f.target, TargetDescriptor(desc)); err != nil {
		return fmt.Errorf("resize destination: %w", err)
	}

	if err := f.pass.Setup(desc, f.target); err != nil {
		return err
	}

	renderer.EnqueuePass(f.pass)

	return nil
}

// Release drops the references to the pass and the target. The target
// is freed when the pool is released.
func (f *Feature) Release() {
	f.pool = nil
	f.pass = nil
	f.target = nil
}
