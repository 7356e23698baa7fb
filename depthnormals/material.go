package depthnormals

import (
	_ "embed"

	"github.com/oliverbestmann/prepass/pulse"
)

//go:embed depthnormals.wgsl
var shaderCode string

// NewShader returns the shader encoding depth and normals. It has a single
// pass, tagged PassTag.
func NewShader() *pulse.Shader {
	return &pulse.Shader{
		Name:        MaterialName,
		RenderQueue: pulse.RenderQueueGeometry,
		Passes: []pulse.ShaderPass{
			{
				Tag:           PassTag,
				Cull:          pulse.CullBack,
				Source:        shaderCode,
				VertexEntry:   "vs_main",
				FragmentEntry: "fs_main",
				Fragment:      Fragment,
			},
		},
	}
}

// NewMaterial returns the override material used by the pass.
func NewMaterial() *pulse.Material {
	material, _ := pulse.NewMaterial(MaterialName, NewShader())
	return material
}
