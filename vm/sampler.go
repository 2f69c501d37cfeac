package vm

import "fmt"

// Sampler looks up a vec4 texel given a 1D/2D/3D coordinate. Grounded on
// SPEC_FULL.md section 4.8; this is a new component with no teacher
// analog (the teacher's vm/devices.go modeled async hardware buses, not a
// synchronous per-element lookup, and was dropped rather than adapted --
// see DESIGN.md).
type Sampler interface {
	Sample1D(u float32) (Vec4, error)
	Sample2D(u, v float32) (Vec4, error)
	Sample3D(u, v, w float32) (Vec4, error)
}

func sampleN(s Sampler, opName string, coord Vec4) (Vec4, error) {
	switch opName {
	case OpSample1D:
		return s.Sample1D(coord[0])
	case OpSample2D:
		return s.Sample2D(coord[0], coord[1])
	default:
		return s.Sample3D(coord[0], coord[1], coord[2])
	}
}

// ConstantSampler always returns the same value regardless of coordinate;
// useful for tests and for uniform-colored fill passes.
type ConstantSampler struct {
	Value Vec4
}

func (c ConstantSampler) Sample1D(float32) (Vec4, error)          { return c.Value, nil }
func (c ConstantSampler) Sample2D(float32, float32) (Vec4, error) { return c.Value, nil }
func (c ConstantSampler) Sample3D(float32, float32, float32) (Vec4, error) {
	return c.Value, nil
}

// LookupSampler resolves a coordinate to the nearest entry in a flat table,
// clamping out-of-range coordinates to the table edges. Coordinates are
// expected in [0, 1]; Width/Height/Depth describe the table's dimensions
// for 1D/2D/3D lookups respectively (unused dimensions must be 1).
type LookupSampler struct {
	Table                  []Vec4
	Width, Height, Depth   int
}

func clampIndex(f float32, n int) int {
	i := int(f * float32(n))
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (l LookupSampler) Sample1D(u float32) (Vec4, error) {
	if l.Width <= 0 || len(l.Table) < l.Width {
		return Vec4{}, fmt.Errorf("%w: lookup sampler table too small", errSamplingFailed)
	}
	return l.Table[clampIndex(u, l.Width)], nil
}

func (l LookupSampler) Sample2D(u, v float32) (Vec4, error) {
	if l.Width <= 0 || l.Height <= 0 || len(l.Table) < l.Width*l.Height {
		return Vec4{}, fmt.Errorf("%w: lookup sampler table too small", errSamplingFailed)
	}
	x := clampIndex(u, l.Width)
	y := clampIndex(v, l.Height)
	return l.Table[y*l.Width+x], nil
}

func (l LookupSampler) Sample3D(u, v, w float32) (Vec4, error) {
	if l.Width <= 0 || l.Height <= 0 || l.Depth <= 0 || len(l.Table) < l.Width*l.Height*l.Depth {
		return Vec4{}, fmt.Errorf("%w: lookup sampler table too small", errSamplingFailed)
	}
	x := clampIndex(u, l.Width)
	y := clampIndex(v, l.Height)
	z := clampIndex(w, l.Depth)
	return l.Table[(z*l.Height+y)*l.Width+x], nil
}
