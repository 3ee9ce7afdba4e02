package gpu

import "errors"

var (
	// ErrAllocation is returned when a texture or framebuffer cannot be
	// created: a dimension exceeds the device limits, the texel budget is
	// exhausted, or the framebuffer is incomplete.
	ErrAllocation = errors.New("gpu: allocation failed")
	// ErrShaderLink is returned when a program fails to compile or link.
	ErrShaderLink = errors.New("gpu: shader compile/link failed")
	// ErrUnknownHandle is returned for operations on released or foreign
	// handles.
	ErrUnknownHandle = errors.New("gpu: unknown handle")
	// ErrDataSize is returned when uploaded data does not match the
	// texture's texel and component count.
	ErrDataSize = errors.New("gpu: data size mismatch")
)
