package orion

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/oliverbestmann/prepass/pulse"
)

type RendererOptions struct {
	Features []Feature

	// Drop features that fail to create instead of failing
	// to build the renderer.
	SkipFailedFeatures bool
}

// Renderer renders cameras by running the passes its features enqueue.
// Each renderer owns its render targets and its table of published
// textures. A renderer renders one camera at a time.
type Renderer struct {
	backend pulse.Backend
	pool    *pulse.TargetPool
	globals *pulse.Globals

	mu       sync.Mutex
	features []Feature
	queue    []Pass
	frame    uint64
	times    FrameTimes
}

func NewRenderer(backend pulse.Backend, opts RendererOptions) (*Renderer, error) {
	if backend == nil {
		return nil, errors.New("renderer requires a backend")
	}

	r := &Renderer{
		backend: backend,
		pool:    pulse.NewTargetPool(backend),
		globals: pulse.NewGlobals(),
	}

	for _, feature := range opts.Features {
		err := feature.Create(r.pool)
		if err == nil {
			r.features = append(r.features, feature)
			continue
		}

		if !opts.SkipFailedFeatures {
			r.Release()
			return nil, fmt.Errorf("create feature %q: %w", feature.Name(), err)
		}

		slog.Warn("Skip feature",
			slog.String("feature", feature.Name()),
			slog.String("err", err.Error()),
		)
	}

	return r, nil
}

func (r *Renderer) TargetPool() *pulse.TargetPool {
	return r.pool
}

// Globals returns the textures published in the most recent frame.
func (r *Renderer) Globals() *pulse.Globals {
	return r.globals
}

// Features returns the features that were created successfully.
func (r *Renderer) Features() []Feature {
	return slices.Clone(r.features)
}

func (r *Renderer) FrameTimes() FrameTimes {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.times
}

// EnqueuePass schedules a pass for the frame currently being rendered.
// It must only be called from Feature.AddRenderPasses.
func (r *Renderer) EnqueuePass(pass Pass) {
	r.queue = append(r.queue, pass)
}

// RenderCamera renders a single frame of the camera. The passes are executed
// ordered by their event and the frame is submitted to the backend at once.
func (r *Renderer) RenderCamera(ctx context.Context, camera *Camera, culling pulse.CullingResults) error {
	if err := camera.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	startTime := time.Now()

	r.frame++
	r.globals.BeginFrame(r.frame)

	data := &RenderingData{
		Camera:  camera,
		Culling: culling,
		Frame:   r.frame,
	}

	r.queue = r.queue[:0]

	for _, feature := range r.features {
		if err := feature.AddRenderPasses(r, data); err != nil {
			r.cleanup()
			return fmt.Errorf("add passes of %q: %w", feature.Name(), err)
		}
	}

	defer r.cleanup()

	// keep the enqueue order for passes of the same event
	slices.SortStableFunc(r.queue, func(a, b Pass) int {
		return cmp.Compare(a.Event(), b.Event())
	})

	rc := pulse.NewRenderContext(r.backend, r.globals, camera.FrameParams())

	desc := camera.TargetDescriptor()

	for _, pass := range r.queue {
		if err := r.runPass(rc, pass, desc, data); err != nil {
			rc.Discard()
			return fmt.Errorf("pass %q: %w", pass.Name(), err)
		}
	}

	if err := rc.Submit(ctx); err != nil {
		return fmt.Errorf("submit frame %d of %q: %w", r.frame, camera.Name, err)
	}

	r.times.Record(time.Since(startTime))

	return nil
}

func (r *Renderer) runPass(rc *pulse.RenderContext, pass Pass, desc pulse.RenderTargetDescriptor, data *RenderingData) error {
	cmd := pulse.GetCommandBuffer(pass.Name())
	defer pulse.ReleaseCommandBuffer(cmd)

	if err := pass.Configure(cmd, desc); err != nil {
		return fmt.Errorf("configure: %w", err)
	}

	rc.ExecuteCommandBuffer(cmd)

	if err := pass.Execute(rc, data); err != nil {
		return fmt.Errorf("execute: %w", err)
	}

	return nil
}

func (r *Renderer) cleanup() {
	for _, pass := range r.queue {
		pass.Cleanup()
	}

	clear(r.queue)
	r.queue = r.queue[:0]
}

// Release releases all features and frees the render targets.
func (r *Renderer) Release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, feature := range r.features {
		feature.Release()
	}

	r.features = nil
	r.pool.Release()
}
