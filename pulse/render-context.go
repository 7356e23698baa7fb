package pulse

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
)

// RenderContext collects the commands of a single camera in a single frame
// and submits them to the backend.
type RenderContext struct {
	backend Backend
	globals *Globals
	frame   FrameParams

	queue []Command

	// publications applied by this context, undone if the frame fails
	published []publication
}

type publication struct {
	name     string
	previous *RenderTarget
	existed  bool
}

func NewRenderContext(backend Backend, globals *Globals, frame FrameParams) *RenderContext {
	return &RenderContext{
		backend: backend,
		globals: globals,
		frame:   frame,
	}
}

func (c *RenderContext) Frame() FrameParams {
	return c.frame
}

func (c *RenderContext) Globals() *Globals {
	return c.globals
}

// Pending returns the commands queued for the next Submit.
func (c *RenderContext) Pending() []Command {
	return c.queue
}

// ExecuteCommandBuffer schedules the commands currently recorded in cb.
// The buffer can be cleared or reused right after this call.
func (c *RenderContext) ExecuteCommandBuffer(cb *CommandBuffer) {
	for _, cmd := range cb.Commands() {
		c.enqueue(cmd)
	}
}

// DrawRenderers schedules a draw of all visible renderables matching the
// filtering settings into the currently bound render target.
func (c *RenderContext) DrawRenderers(culling CullingResults, drawing DrawingSettings, filtering FilteringSettings) {
	draws := BuildDrawCalls(culling.Visible, c.frame.View, c.frame.Far, drawing, filtering)
	c.enqueue(DrawRenderersCommand{Draws: draws})
}

func (c *RenderContext) enqueue(cmd Command) {
	for _, target := range cmd.targets() {
		if target != nil {
			target.pin()
		}
	}

	c.queue = append(c.queue, cmd)

	// publications are visible to every pass scheduled after this one
	if publish, ok := cmd.(SetGlobalTextureCommand); ok && publish.Target != nil {
		previous, existed := c.globals.swap(publish.Name, publish.Target)
		c.published = append(c.published, publication{name: publish.Name, previous: previous, existed: existed})
	}
}

// Submit hands all scheduled commands to the backend. Publications were
// applied when their commands were scheduled; they are rolled back if the
// commands are rejected.
func (c *RenderContext) Submit(ctx context.Context) error {
	queue := c.queue
	c.queue = nil

	defer unpinAll(queue)

	if len(queue) == 0 {
		c.published = nil
		return nil
	}

	if err := validateCommands(queue); err != nil {
		c.rollback()
		return err
	}

	slog.Debug("Submit commands", slog.Int("count", len(queue)))

	if err := c.backend.Execute(ctx, c.frame, queue); err != nil {
		c.rollback()
		return fmt.Errorf("execute commands: %w", err)
	}

	c.published = nil

	return nil
}

// Discard drops all scheduled commands without executing them and undoes
// their publications.
func (c *RenderContext) Discard() {
	unpinAll(c.queue)
	c.queue = nil
	c.rollback()
}

// rollback restores the resource table in reverse publication order.
func (c *RenderContext) rollback() {
	for idx := len(c.published) - 1; idx >= 0; idx-- {
		pub := c.published[idx]
		c.globals.restore(pub.name, pub.previous, pub.existed)
	}

	c.published = nil
}

func unpinAll(commands []Command) {
	for _, cmd := range commands {
		for _, target := range cmd.targets() {
			if target != nil {
				target.unpin()
			}
		}
	}
}

func validateCommands(commands []Command) error {
	var bound *RenderTarget

	for idx, cmd := range commands {
		if slices.ContainsFunc(cmd.targets(), isReleased) {
			return fmt.Errorf("command %d %s: %w", idx, cmd, ErrTargetReleased)
		}

		switch cmd := cmd.(type) {
		case SetRenderTargetCommand:
			bound = cmd.Target

		case SetGlobalTextureCommand:
			if cmd.Target == nil {
				return fmt.Errorf("command %d %s: publish without texture", idx, cmd)
			}

		case ClearRenderTargetCommand, DrawRenderersCommand:
			if bound == nil {
				return fmt.Errorf("command %d %s: %w", idx, cmd, ErrNoRenderTarget)
			}
		}
	}

	return nil
}

func isReleased(target *RenderTarget) bool {
	return target != nil && target.Released()
}
