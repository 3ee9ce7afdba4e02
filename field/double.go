package field

import "github.com/pthm-cable/plume/gpu"

// Double is a ping-pong pair of volumes with identical shape. Passes read
// Current and write Previous, then Swap. Swapping flips an index; no data
// moves and each volume keeps its render target.
type Double struct {
	volumes [2]*Volume
	cur     int
}

// NewDouble allocates both volumes, releasing the first if the second
// fails.
func NewDouble(dev gpu.Device, size gpu.Size, components int) (*Double, error) {
	a, err := NewVolume(dev, size, components)
	if err != nil {
		return nil, err
	}
	b, err := NewVolume(dev, size, components)
	if err != nil {
		a.Release()
		return nil, err
	}
	return &Double{volumes: [2]*Volume{a, b}}, nil
}

// Current is the volume holding the latest values.
func (d *Double) Current() *Volume { return d.volumes[d.cur] }

// Previous is the scratch volume the next pass writes into.
func (d *Double) Previous() *Volume { return d.volumes[1-d.cur] }

// Swap exchanges the roles of the two volumes.
func (d *Double) Swap() { d.cur = 1 - d.cur }

// Clear sets both volumes to value.
func (d *Double) Clear(value float32) {
	d.volumes[0].Clear(value)
	d.volumes[1].Clear(value)
}

// Size is the extent shared by both volumes.
func (d *Double) Size() gpu.Size { return d.volumes[0].Size() }

// Components is the channel count shared by both volumes.
func (d *Double) Components() int { return d.volumes[0].Components() }

// Release frees both volumes.
func (d *Double) Release() {
	d.volumes[0].Release()
	d.volumes[1].Release()
}
