package vm

import "github.com/google/uuid"

// StreamSlot is one entry of the artifact's input/output/inout table.
type StreamSlot struct {
	Name       string
	Index      int
	Type       Type
	Attribute  Attribute
	Accumulate bool
}

type UniformSlot struct {
	Name  string
	Index int
	Type  Type
}

type SamplerSlot struct {
	Name  string
	Index int
}

// CompiledMethod is a named, self-contained instruction stream: an ordered
// list of 32-bit words comprising instructions and their inlined
// constants, per SPEC_FULL.md section 3's Method definition.
type CompiledMethod struct {
	Name string
	Code []uint32
}

// Bytecode is the immutable compiled artifact produced by Compile. It owns
// the register count, the named stream/uniform/sampler tables with
// assigned slots, and the ordered method list, per SPEC_FULL.md section
// 4.6. Grounded on original_source/src/ByteCode.cpp's ByteCode class
// (m_InputOutput/m_Uniforms/m_Samplers maps plus name->slot lookups
// returning -1 on miss) and the teacher's fixed-layout-struct discipline.
type Bytecode struct {
	// ID is a process-lifetime identity for log/trace correlation only;
	// it is never persisted and never affects compiled semantics.
	ID uuid.UUID

	RegisterCount int

	streams  []StreamSlot
	uniforms []UniformSlot
	samplers []SamplerSlot
	methods  []CompiledMethod

	streamIndex  map[string]int
	uniformIndex map[string]int
	samplerIndex map[string]int
}

const slotNotFound = -1

func newBytecode() *Bytecode {
	return &Bytecode{
		ID:           uuid.New(),
		streamIndex:  make(map[string]int),
		uniformIndex: make(map[string]int),
		samplerIndex: make(map[string]int),
	}
}

func (b *Bytecode) addStream(s StreamSlot) {
	b.streamIndex[s.Name] = len(b.streams)
	b.streams = append(b.streams, s)
}

func (b *Bytecode) addUniform(u UniformSlot) {
	b.uniformIndex[u.Name] = len(b.uniforms)
	b.uniforms = append(b.uniforms, u)
}

func (b *Bytecode) addSampler(s SamplerSlot) {
	b.samplerIndex[s.Name] = len(b.samplers)
	b.samplers = append(b.samplers, s)
}

func (b *Bytecode) addMethod(m CompiledMethod) {
	b.methods = append(b.methods, m)
}

// StreamSlot returns the register index bound to name, or slotNotFound.
func (b *Bytecode) StreamSlot(name string) int {
	if i, ok := b.streamIndex[name]; ok {
		return b.streams[i].Index
	}
	return slotNotFound
}

// UniformSlot returns the uniform index bound to name, or slotNotFound.
func (b *Bytecode) UniformSlot(name string) int {
	if i, ok := b.uniformIndex[name]; ok {
		return b.uniforms[i].Index
	}
	return slotNotFound
}

// SamplerSlot returns the sampler index bound to name, or slotNotFound.
func (b *Bytecode) SamplerSlot(name string) int {
	if i, ok := b.samplerIndex[name]; ok {
		return b.samplers[i].Index
	}
	return slotNotFound
}

func (b *Bytecode) Streams() []StreamSlot   { return b.streams }
func (b *Bytecode) Uniforms() []UniformSlot { return b.uniforms }
func (b *Bytecode) Samplers() []SamplerSlot { return b.samplers }
func (b *Bytecode) Methods() []CompiledMethod { return b.methods }

// MethodIndex returns the index of the named method, or slotNotFound.
func (b *Bytecode) MethodIndex(name string) int {
	for i, m := range b.methods {
		if m.Name == name {
			return i
		}
	}
	return slotNotFound
}

func (b *Bytecode) streamByIndex(idx int) (StreamSlot, bool) {
	for _, s := range b.streams {
		if s.Index == idx {
			return s, true
		}
	}
	return StreamSlot{}, false
}
