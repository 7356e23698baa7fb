package orion

import (
	"errors"
	"fmt"

	"github.com/oliverbestmann/prepass/glm"
	"github.com/oliverbestmann/prepass/pulse"
)

var ErrInvalidCamera = errors.New("invalid camera")

// Camera describes the output and the projection of a single view.
type Camera struct {
	Name string

	// size and format of the cameras output target
	Width       uint32
	Height      uint32
	ColorFormat pulse.TextureFormat
	DepthBits   uint32
	MSAASamples uint32

	View       glm.Mat4f
	Projection glm.Mat4f

	Near float32
	Far  float32

	// set for devices that discard hidden fragments on their own,
	// sorting opaque objects by depth gives no benefit then.
	HiddenSurfaceRemoval bool
}

type NewPerspectiveCameraOptions struct {
	Name string

	Width  uint32
	Height uint32

	// vertical field of view, defaults to 60 degrees
	FieldOfView glm.Rad

	// defaults to 0.1 and 100
	Near float32
	Far  float32
}

func NewPerspectiveCamera(opts NewPerspectiveCameraOptions) (*Camera, error) {
	if opts.FieldOfView == 0 {
		opts.FieldOfView = glm.DegToRad(60)
	}

	if opts.Near == 0 {
		opts.Near = 0.1
	}

	if opts.Far == 0 {
		opts.Far = 100
	}

	camera := &Camera{
		Name:        opts.Name,
		Width:       opts.Width,
		Height:      opts.Height,
		ColorFormat: pulse.FormatBGRA8Unorm,
		DepthBits:   24,
		View:        glm.IdentityMat4[float32](),
		Near:        opts.Near,
		Far:         opts.Far,
	}

	if err := camera.Validate(); err != nil {
		return nil, err
	}

	aspect := float32(opts.Width) / float32(opts.Height)
	camera.Projection = glm.Perspective(opts.FieldOfView, aspect, opts.Near, opts.Far)

	return camera, nil
}

func (c *Camera) Validate() error {
	if c.Width == 0 || c.Height == 0 {
		return fmt.Errorf("%w %q: size %dx%d", ErrInvalidCamera, c.Name, c.Width, c.Height)
	}

	if c.Near <= 0 || c.Far <= c.Near {
		return fmt.Errorf("%w %q: clip planes %g..%g", ErrInvalidCamera, c.Name, c.Near, c.Far)
	}

	return nil
}

// LookAt places the camera at eye, looking at center.
func (c *Camera) LookAt(eye, center, up glm.Vec3f) {
	c.View = glm.LookAt(eye, center, up)
}

// Resize changes the output size and updates the aspect ratio of the
// projection. The field of view is kept.
func (c *Camera) Resize(width, height uint32) {
	if c.Width != 0 && c.Height != 0 && height != 0 {
		// scale x so that the vertical field of view stays the same
		oldAspect := float32(c.Width) / float32(c.Height)
		newAspect := float32(width) / float32(height)
		c.Projection[0] *= oldAspect / newAspect
	}

	c.Width = width
	c.Height = height
}

// TargetDescriptor describes the cameras output target.
func (c *Camera) TargetDescriptor() pulse.RenderTargetDescriptor {
	return pulse.RenderTargetDescriptor{
		Width:       c.Width,
		Height:      c.Height,
		ColorFormat: c.ColorFormat,
		DepthBits:   c.DepthBits,
		MSAASamples: c.MSAASamples,
	}
}

// OpaqueSortFlags returns the default order to draw opaque objects in.
func (c *Camera) OpaqueSortFlags() pulse.SortingCriteria {
	if c.HiddenSurfaceRemoval {
		return pulse.SortRenderQueue | pulse.SortOptimizeStateChanges
	}

	return pulse.SortCommonOpaque
}

func (c *Camera) FrameParams() pulse.FrameParams {
	return pulse.FrameParams{
		View:       c.View,
		Projection: c.Projection,
		Near:       c.Near,
		Far:        c.Far,
	}
}

// RenderingData holds everything passes need to know about the
// camera they render in the current frame.
type RenderingData struct {
	Camera  *Camera
	Culling pulse.CullingResults

	// index of the frame, starts at one
	Frame uint64
}

// TargetDescriptor returns the descriptor of the cameras output target.
func (d *RenderingData) TargetDescriptor() pulse.RenderTargetDescriptor {
	return d.Camera.TargetDescriptor()
}
