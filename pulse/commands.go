package pulse

import (
	"fmt"
	"sync"
)

// Command is a single recorded graphics operation.
type Command interface {
	fmt.Stringer

	// targets returns the render targets the command references.
	targets() []*RenderTarget
}

type SetRenderTargetCommand struct {
	Target *RenderTarget
}

func (c SetRenderTargetCommand) String() string {
	return fmt.Sprintf("SetRenderTarget(%s)", c.Target)
}

func (c SetRenderTargetCommand) targets() []*RenderTarget {
	return []*RenderTarget{c.Target}
}

type ClearRenderTargetCommand struct {
	Flags   ClearFlags
	Color   Color
	Depth   float32
	Stencil uint32
}

func (c ClearRenderTargetCommand) String() string {
	return fmt.Sprintf("ClearRenderTarget(flags=%03b, depth=%g)", c.Flags, c.Depth)
}

func (c ClearRenderTargetCommand) targets() []*RenderTarget {
	return nil
}

type DrawRenderersCommand struct {
	Draws []DrawCall
}

func (c DrawRenderersCommand) String() string {
	return fmt.Sprintf("DrawRenderers(%d draws)", len(c.Draws))
}

func (c DrawRenderersCommand) targets() []*RenderTarget {
	return nil
}

// SetGlobalTextureCommand publishes a target in the named resource table.
// The publication is visible as soon as the command is scheduled.
type SetGlobalTextureCommand struct {
	Name   string
	Target *RenderTarget
}

func (c SetGlobalTextureCommand) String() string {
	return fmt.Sprintf("SetGlobalTexture(%q, %s)", c.Name, c.Target)
}

func (c SetGlobalTextureCommand) targets() []*RenderTarget {
	return []*RenderTarget{c.Target}
}

type BeginSampleCommand struct {
	Name string
}

func (c BeginSampleCommand) String() string {
	return fmt.Sprintf("BeginSample(%q)", c.Name)
}

func (c BeginSampleCommand) targets() []*RenderTarget {
	return nil
}

type EndSampleCommand struct {
	Name string
}

func (c EndSampleCommand) String() string {
	return fmt.Sprintf("EndSample(%q)", c.Name)
}

func (c EndSampleCommand) targets() []*RenderTarget {
	return nil
}

// CommandBuffer records commands on the calling goroutine. Nothing is
// executed until the buffer is handed to a RenderContext and submitted.
// A CommandBuffer must not be used from multiple goroutines at once.
type CommandBuffer struct {
	name     string
	commands []Command
}

func NewCommandBuffer(name string) *CommandBuffer {
	return &CommandBuffer{name: name}
}

func (cb *CommandBuffer) Name() string {
	return cb.name
}

// Commands returns the commands recorded so far.
func (cb *CommandBuffer) Commands() []Command {
	return cb.commands
}

func (cb *CommandBuffer) Len() int {
	return len(cb.commands)
}

// Clear drops all recorded commands.
func (cb *CommandBuffer) Clear() {
	clear(cb.commands)
	cb.commands = cb.commands[:0]
}

func (cb *CommandBuffer) SetRenderTarget(target *RenderTarget) {
	cb.commands = append(cb.commands, SetRenderTargetCommand{Target: target})
}

func (cb *CommandBuffer) ClearRenderTarget(flags ClearFlags, color Color, depth float32, stencil uint32) {
	cb.commands = append(cb.commands, ClearRenderTargetCommand{
		Flags:   flags,
		Color:   color,
		Depth:   depth,
		Stencil: stencil,
	})
}

func (cb *CommandBuffer) SetGlobalTexture(name string, target *RenderTarget) {
	cb.commands = append(cb.commands, SetGlobalTextureCommand{Name: name, Target: target})
}

func (cb *CommandBuffer) BeginSample(name string) {
	cb.commands = append(cb.commands, BeginSampleCommand{Name: name})
}

func (cb *CommandBuffer) EndSample(name string) {
	cb.commands = append(cb.commands, EndSampleCommand{Name: name})
}

var commandBufferPool = sync.Pool{
	New: func() any { return &CommandBuffer{} },
}

// GetCommandBuffer returns an empty, named CommandBuffer from a shared pool.
// Return it using ReleaseCommandBuffer once it was executed.
func GetCommandBuffer(name string) *CommandBuffer {
	cb := commandBufferPool.Get().(*CommandBuffer)
	cb.name = name
	return cb
}

func ReleaseCommandBuffer(cb *CommandBuffer) {
	cb.Clear()
	cb.name = ""
	commandBufferPool.Put(cb)
}
