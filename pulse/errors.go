package pulse

import "errors"

var ErrTargetInUse = errors.New("render target is referenced by unsubmitted commands")
var ErrTargetReleased = errors.New("render target was released")
var ErrNoRenderTarget = errors.New("no render target bound")
var ErrInvalidDescriptor = errors.New("invalid render target descriptor")
var ErrInvalidMesh = errors.New("invalid mesh")
