package field

import "github.com/pthm-cable/plume/gpu"

// State is the complete set of fields of one simulation, all sharing one
// grid size.
type State struct {
	Velocity    *Double // 3 components
	Density     *Double
	Temperature *Double
	Pressure    *Double
	Divergence  *Volume

	size gpu.Size
}

// NewState allocates every field, zero-initialized. On failure the
// fields allocated so far are released.
func NewState(dev gpu.Device, size gpu.Size) (*State, error) {
	s := &State{size: size}
	var err error
	alloc := func(dst **Double, components int) {
		if err != nil {
			return
		}
		*dst, err = NewDouble(dev, size, components)
	}
	alloc(&s.Velocity, 3)
	alloc(&s.Density, 1)
	alloc(&s.Temperature, 1)
	alloc(&s.Pressure, 1)
	if err == nil {
		s.Divergence, err = NewVolume(dev, size, 1)
	}
	if err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

// Size returns the grid size shared by all fields.
func (s *State) Size() gpu.Size { return s.size }

// Reset zeroes every field, then sets temperature to ambient.
func (s *State) Reset(ambientTemperature float32) {
	s.Velocity.Clear(0)
	s.Density.Clear(0)
	s.Temperature.Clear(ambientTemperature)
	s.Pressure.Clear(0)
	s.Divergence.Clear(0)
}

// Release frees every allocated field.
func (s *State) Release() {
	for _, d := range []*Double{s.Velocity, s.Density, s.Temperature, s.Pressure} {
		if d != nil {
			d.Release()
		}
	}
	if s.Divergence != nil {
		s.Divergence.Release()
	}
}
