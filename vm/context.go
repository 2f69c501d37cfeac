package vm

import (
	"fmt"
	"runtime/debug"
)

// ExecutionContext binds external stream/uniform/sampler storage to a
// compiled Bytecode artifact and drives batched execution over it.
// Grounded on original_source/include/vfvm.h's SetRegisterPointer/
// SetUniformValue binding API and the teacher's RunProgram, which disables
// the garbage collector for the duration of the tight execution loop and
// restores the prior setting via defer on return.
type ExecutionContext struct {
	bytecode     *Bytecode
	scratchBytes int

	// machine is allocated once, sized to the largest window scratchBytes
	// allows, and reused (via resizeWindow) for every window of every
	// Execute call — carving register storage out of the scratch budget
	// up front instead of calling make() per window.
	machine *VM

	streamData    map[int][]float32
	uniformValues []Vec4
	samplers      []Sampler
}

func NewExecutionContext(b *Bytecode, scratchBytes int) *ExecutionContext {
	return &ExecutionContext{
		bytecode:      b,
		scratchBytes:  scratchBytes,
		streamData:    make(map[int][]float32),
		uniformValues: make([]Vec4, len(b.Uniforms())),
		samplers:      make([]Sampler, len(b.Samplers())),
	}
}

// BindStream attaches an external, caller-owned float32 slice to a
// declared in/out/inout variable. Each element occupies one float for a
// float stream and one 16-byte slot (4 floats, of which only the type's
// lanes are read or written) for a vec2/vec3/vec4 stream, so its length
// must be elementCount*1 or elementCount*4 for the element count later
// passed to Execute — except for a variable
// declared `accumulate`, whose buffer is a single running total and so
// must be exactly width floats long, regardless of elementCount.
func (c *ExecutionContext) BindStream(name string, data []float32) error {
	idx := c.bytecode.StreamSlot(name)
	if idx == slotNotFound {
		return fmt.Errorf("%w: no stream named %q", errInvalidParameter, name)
	}
	c.streamData[idx] = data
	return nil
}

// SetUniform assigns a uniform's value for every subsequent Execute call
// until changed again. values must hold exactly one float per lane of the
// uniform's declared type.
func (c *ExecutionContext) SetUniform(name string, values ...float32) error {
	idx := c.bytecode.UniformSlot(name)
	if idx == slotNotFound {
		return fmt.Errorf("%w: no uniform named %q", errInvalidParameter, name)
	}
	if want := c.bytecode.Uniforms()[idx].Type.Width(); len(values) != want {
		return fmt.Errorf("%w: uniform %q takes %d values, got %d", errInvalidParameter, name, want, len(values))
	}
	var v Vec4
	copy(v[:], values)
	c.uniformValues[idx] = v
	return nil
}

// BindSampler attaches a Sampler implementation to a declared sampler slot.
func (c *ExecutionContext) BindSampler(name string, s Sampler) error {
	idx := c.bytecode.SamplerSlot(name)
	if idx == slotNotFound {
		return fmt.Errorf("%w: no sampler named %q", errInvalidParameter, name)
	}
	c.samplers[idx] = s
	return nil
}

// batchLimit computes the maximum number of elements that fit in one
// register window, per SPEC_FULL.md section 4.7's sizing rule: each element
// costs 16 bytes per register (I/O and temporary alike, since the register
// file holds both) plus one flag byte.
func (c *ExecutionContext) batchLimit() (int, error) {
	nTemps := c.bytecode.RegisterCount
	perElement := 16*nTemps + 1
	if c.scratchBytes < perElement {
		return 0, fmt.Errorf("%w: need at least %d bytes, have %d", errInsufficientMemory, perElement, c.scratchBytes)
	}
	return c.scratchBytes / perElement, nil
}

// Execute runs the named method over elementCount elements, windowing the
// work into batches sized by batchLimit. Plain in/inout streams are loaded
// into the register file before each window runs, and plain inout streams
// are written back after; plain out streams are zeroed before each window (nothing external backs
// them) and written back after. A variable declared `accumulate` never
// has its per-element registers loaded or stored directly: every
// window's per-element results are summed together and folded into the
// caller's single-slot buffer once per window, so the external buffer —
// not the register file — is what carries the running total across
// windows and across separate Execute calls, per spec.md section 8's
// "accumulate output equals initial + Sigma(expression) after k calls".
func (c *ExecutionContext) Execute(methodName string, elementCount int) error {
	mi := c.bytecode.MethodIndex(methodName)
	if mi == slotNotFound {
		return fmt.Errorf("%w: no method named %q", errInvalidParameter, methodName)
	}
	method := c.bytecode.Methods()[mi]

	limit, err := c.batchLimit()
	if err != nil {
		return err
	}

	if c.machine == nil {
		c.machine = newVM(c.bytecode.RegisterCount, limit, c.uniformValues, c.samplers)
	}
	m := c.machine

	prevGC := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(prevGC)

	for offset := 0; offset < elementCount; offset += limit {
		n := limit
		if offset+n > elementCount {
			n = elementCount - offset
		}
		m.resizeWindow(n)

		for _, s := range c.bytecode.Streams() {
			width := s.Type.Width()
			stride := width
			if width > 1 {
				stride = 4
			}
			switch {
			case s.Accumulate:
				if _, ok := c.streamData[s.Index]; !ok {
					return fmt.Errorf("%w: stream %q not bound", errUnassignedRegisterPointer, s.Name)
				}
				for e := 0; e < n; e++ {
					m.regs[m.regIndex(s.Index, e)] = Vec4{}
				}
			case s.Attribute == AttrOut:
				for e := 0; e < n; e++ {
					m.regs[m.regIndex(s.Index, e)] = Vec4{}
				}
			default:
				data, ok := c.streamData[s.Index]
				if !ok {
					return fmt.Errorf("%w: stream %q not bound", errUnassignedRegisterPointer, s.Name)
				}
				for e := 0; e < n; e++ {
					var v Vec4
					base := (offset + e) * stride
					copy(v[:width], data[base:base+width])
					m.regs[m.regIndex(s.Index, e)] = v
				}
			}
		}

		if err := m.run(method.Code); err != nil {
			return err
		}

		for _, s := range c.bytecode.Streams() {
			if s.Attribute == AttrIn {
				continue
			}
			data, ok := c.streamData[s.Index]
			if !ok {
				return fmt.Errorf("%w: stream %q not bound", errUnassignedRegisterPointer, s.Name)
			}
			width := s.Type.Width()

			if s.Accumulate {
				var sum Vec4
				for e := 0; e < n; e++ {
					v := m.regs[m.regIndex(s.Index, e)]
					for i := 0; i < width; i++ {
						sum[i] += v[i]
					}
				}
				for i := 0; i < width; i++ {
					data[i] += sum[i]
				}
				continue
			}

			stride := width
			if width > 1 {
				stride = 4
			}
			for e := 0; e < n; e++ {
				v := m.regs[m.regIndex(s.Index, e)]
				base := (offset + e) * stride
				copy(data[base:base+width], v[:width])
			}
		}
	}
	return nil
}
