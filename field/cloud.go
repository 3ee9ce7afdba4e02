package field

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/pthm-cable/plume/gpu"
)

// ErrSizeMismatch is returned when host data does not match a grid.
var ErrSizeMismatch = errors.New("field: size mismatch")

// CloudVolume returns a Gaussian density blob centered in a grid of the
// given size, with sigma = 0.3 * width and zero outside one sigma. The
// layout is x-fastest, one float per texel.
func CloudVolume(size gpu.Size) []float32 {
	sigma := 0.3 * float32(size.W)
	cx := float32(size.W) * 0.5
	cy := float32(size.H) * 0.5
	cz := float32(size.D) * 0.5

	data := make([]float32, size.Texels())
	for z := 0; z < size.D; z++ {
		for y := 0; y < size.H; y++ {
			for x := 0; x < size.W; x++ {
				dx := float32(x) - cx
				dy := float32(y) - cy
				dz := float32(z) - cz
				dist := dx*dx + dy*dy + dz*dz
				if dist < sigma*sigma {
					data[(z*size.H+y)*size.W+x] = math32.Exp(-dist / (2 * sigma * sigma))
				}
			}
		}
	}
	return data
}

// CheckData verifies that data holds one float per texel of size.
func CheckData(size gpu.Size, data []float32) error {
	if len(data) != size.Texels() {
		return fmt.Errorf("%w: %d floats for a %s grid", ErrSizeMismatch, len(data), size)
	}
	return nil
}
