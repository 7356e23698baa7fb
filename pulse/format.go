package pulse

import "fmt"

type TextureFormat uint8

const (
	FormatUndefined TextureFormat = iota
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatRGBA16Float
	FormatDepth24Plus
	FormatDepth32Float
)

func (f TextureFormat) String() string {
	switch f {
	case FormatUndefined:
		return "Undefined"
	case FormatRGBA8Unorm:
		return "RGBA8Unorm"
	case FormatBGRA8Unorm:
		return "BGRA8Unorm"
	case FormatRGBA16Float:
		return "RGBA16Float"
	case FormatDepth24Plus:
		return "Depth24Plus"
	case FormatDepth32Float:
		return "Depth32Float"
	default:
		return fmt.Sprintf("TextureFormat(%d)", uint8(f))
	}
}

// IsColor reports whether the format can be used as a color attachment.
func (f TextureFormat) IsColor() bool {
	switch f {
	case FormatRGBA8Unorm, FormatBGRA8Unorm, FormatRGBA16Float:
		return true
	default:
		return false
	}
}

// IsDepth reports whether the format can be used as a depth attachment.
func (f TextureFormat) IsDepth() bool {
	return f == FormatDepth24Plus || f == FormatDepth32Float
}

// ClearFlags select which attachments a clear command touches.
type ClearFlags uint8

const (
	ClearColor ClearFlags = 1 << iota
	ClearDepth
	ClearStencil

	ClearNone ClearFlags = 0
	ClearAll             = ClearColor | ClearDepth | ClearStencil
)

func (c ClearFlags) Has(flag ClearFlags) bool {
	return c&flag == flag
}
