// Package field holds the device-resident 3D grids the fluid solver
// works on: single volumes, ping-pong pairs and the full simulation state.
package field

import (
	"fmt"

	"github.com/pthm-cable/plume/gpu"
)

// Volume is a 3D float texture with 1 to 4 components per texel and the
// render target bound to it. Its size and component count never change.
type Volume struct {
	dev        gpu.Device
	size       gpu.Size
	components int
	tex        gpu.Texture
	fb         gpu.Framebuffer
}

// NewVolume allocates a zero-initialized volume. Allocation failures wrap
// gpu.ErrAllocation and no volume is returned.
func NewVolume(dev gpu.Device, size gpu.Size, components int) (*Volume, error) {
	if !size.Valid() {
		return nil, fmt.Errorf("%w: invalid volume size %s", gpu.ErrAllocation, size)
	}
	if components < 1 || components > 4 {
		return nil, fmt.Errorf("%w: %d components", gpu.ErrAllocation, components)
	}
	if limit := dev.Limits().MaxVolumeSize; limit > 0 && size.Max() > limit {
		return nil, fmt.Errorf("%w: volume %s exceeds device limit %d", gpu.ErrAllocation, size, limit)
	}

	tex, fb, err := dev.CreateVolume(size, components)
	if err != nil {
		return nil, fmt.Errorf("creating %s volume with %d components: %w", size, components, err)
	}
	return &Volume{
		dev:        dev,
		size:       size,
		components: components,
		tex:        tex,
		fb:         fb,
	}, nil
}

// Size is the volume's extent in texels.
func (v *Volume) Size() gpu.Size { return v.size }

// Components is the number of float channels per texel, 1 to 4.
func (v *Volume) Components() int { return v.components }

// Texture is the volume's storage, for binding as a sampler.
func (v *Volume) Texture() gpu.Texture { return v.tex }

// Framebuffer targets the volume's slices for rendering.
func (v *Volume) Framebuffer() gpu.Framebuffer { return v.fb }

// Clear sets every component of every texel to value.
func (v *Volume) Clear(value float32) {
	v.dev.Clear(v.fb, value)
}

// Read copies the volume back to host memory, x-fastest with components
// interleaved.
func (v *Volume) Read() ([]float32, error) {
	return v.dev.Download(v.tex)
}

// Write replaces the volume's contents. data must hold exactly
// Size().Texels() * Components() floats.
func (v *Volume) Write(data []float32) error {
	if want := v.size.Texels() * v.components; len(data) != want {
		return fmt.Errorf("%w: got %d floats for %s x %d", gpu.ErrDataSize, len(data), v.size, v.components)
	}
	return v.dev.Upload(v.tex, data)
}

// Release frees the device resources. The volume must not be used after.
func (v *Volume) Release() {
	v.dev.DeleteFramebuffer(v.fb)
	v.dev.DeleteTexture(v.tex)
}
