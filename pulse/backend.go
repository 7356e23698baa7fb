package pulse

import (
	"context"

	"github.com/oliverbestmann/prepass/glm"
)

// FrameParams holds the camera parameters commands of a frame are
// executed with.
type FrameParams struct {
	View       glm.Mat4f
	Projection glm.Mat4f

	Near float32
	Far  float32
}

// Backend executes recorded commands on some device.
type Backend interface {
	// AllocateTarget creates the storage for a render target. An error
	// is returned if the backend does not support the descriptor.
	AllocateTarget(name string, desc RenderTargetDescriptor) (TargetStorage, error)

	// Execute runs the commands in order. Implementations may return before
	// the device finished executing them.
	Execute(ctx context.Context, frame FrameParams, commands []Command) error
}
