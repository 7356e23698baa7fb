package gpu

import "errors"

var ErrUnsupported = errors.New("not supported by the gpu backend")
var ErrForeignTarget = errors.New("render target was not allocated by the gpu backend")
