// Package depthnormals implements a prepass that renders the view space
// normals and the linear depth of all opaque objects into a texture. The
// texture is published as TextureName for passes executed later in the
// same frame, e.g. an outline post process.
//
// Every texel stores the normal in rg, using a scaled stereographic
// projection, and the linear depth between camera and far plane in ba,
// split into two 8 bit fractions. Use DecodeDepthNormal to read it.
package depthnormals

import (
	"errors"

	"github.com/oliverbestmann/prepass/orion"
	"github.com/oliverbestmann/prepass/pulse"
)

const (
	// TextureName is the name the target is published under.
	TextureName = "_CameraDepthNormalsTexture"

	// PassTag selects the depth only program of each objects shader.
	PassTag pulse.PassTag = "DepthOnly"

	// ProfilerTag names the profiling scope around the recorded commands.
	ProfilerTag = "DepthNormals Prepass"

	// MaterialName is the name of the override material.
	MaterialName = "Hidden/Internal-DepthNormalsTexture"

	// format of the target, regardless of the camera's format
	ColorFormat = pulse.FormatRGBA8Unorm
	DepthBits   = 32

	// Event schedules the pass right after the other prepasses.
	Event = orion.AfterRenderingPrePasses
)

var ErrMissingMaterial = errors.New("depth normals material is missing")
var ErrPassBusy = errors.New("depth normals pass is already in use")
var ErrNotSetUp = errors.New("depth normals pass has no target, call Setup first")
