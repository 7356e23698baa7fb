package orion

import (
	"fmt"

	"github.com/oliverbestmann/prepass/pulse"
)

// RenderPassEvent controls when a pass is executed within a frame.
// Passes with a lower event run first.
type RenderPassEvent int

const (
	BeforeRendering               RenderPassEvent = 0
	BeforeRenderingShadows        RenderPassEvent = 50
	AfterRenderingShadows         RenderPassEvent = 100
	BeforeRenderingPrePasses      RenderPassEvent = 150
	AfterRenderingPrePasses       RenderPassEvent = 200
	BeforeRenderingOpaques        RenderPassEvent = 250
	AfterRenderingOpaques         RenderPassEvent = 300
	BeforeRenderingSkybox         RenderPassEvent = 350
	AfterRenderingSkybox          RenderPassEvent = 400
	BeforeRenderingTransparents   RenderPassEvent = 450
	AfterRenderingTransparents    RenderPassEvent = 500
	BeforeRenderingPostProcessing RenderPassEvent = 550
	AfterRenderingPostProcessing  RenderPassEvent = 600
	AfterRendering                RenderPassEvent = 1000
)

var eventNames = map[RenderPassEvent]string{
	BeforeRendering:               "BeforeRendering",
	BeforeRenderingShadows:        "BeforeRenderingShadows",
	AfterRenderingShadows:         "AfterRenderingShadows",
	BeforeRenderingPrePasses:      "BeforeRenderingPrePasses",
	AfterRenderingPrePasses:       "AfterRenderingPrePasses",
	BeforeRenderingOpaques:        "BeforeRenderingOpaques",
	AfterRenderingOpaques:         "AfterRenderingOpaques",
	BeforeRenderingSkybox:         "BeforeRenderingSkybox",
	AfterRenderingSkybox:          "AfterRenderingSkybox",
	BeforeRenderingTransparents:   "BeforeRenderingTransparents",
	AfterRenderingTransparents:    "AfterRenderingTransparents",
	BeforeRenderingPostProcessing: "BeforeRenderingPostProcessing",
	AfterRenderingPostProcessing:  "AfterRenderingPostProcessing",
	AfterRendering:                "AfterRendering",
}

func (e RenderPassEvent) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}

	return fmt.Sprintf("RenderPassEvent(%d)", int(e))
}

// Pass is a single step of a frame. For every camera and frame the
// Renderer calls Configure, Execute and finally Cleanup.
type Pass interface {
	Name() string
	Event() RenderPassEvent

	// Configure records the target setup of the pass into cmd.
	// The commands run right before Execute.
	Configure(cmd *pulse.CommandBuffer, desc pulse.RenderTargetDescriptor) error

	// Execute schedules the work of the pass on the render context.
	Execute(ctx *pulse.RenderContext, data *RenderingData) error

	// Cleanup drops per frame state once the frame was submitted.
	Cleanup()
}

// Feature adds passes to a renderer. Persistent resources are created
// once in Create and reused in every frame.
type Feature interface {
	Name() string

	// Create is called once when the renderer is built.
	Create(pool *pulse.TargetPool) error

	// AddRenderPasses is called for every camera and frame.
	AddRenderPasses(renderer *Renderer, data *RenderingData) error

	Release()
}
