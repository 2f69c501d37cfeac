package vm

import "fmt"

// Compile lexes, parses, type-checks and lowers source into a Bytecode
// artifact ready for execution, per SPEC_FULL.md section 4.6. Grounded on
// the teacher's NewVirtualMachine/CompileSourceFromBuffer shape: one entry
// point that either returns a fully-formed artifact or a single error.
func Compile(source string) (*Bytecode, error) {
	p := NewParser(source)
	methods, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, fmt.Errorf("%w: source defines no methods", errParse)
	}

	nIO := len(p.streamVars)
	compiled, maxTemp, err := compileMethods(nIO, methods)
	if err != nil {
		return nil, err
	}

	b := newBytecode()
	for _, v := range p.streamVars {
		b.addStream(StreamSlot{
			Name:       v.Name,
			Index:      int(v.Slot),
			Type:       v.Type,
			Attribute:  v.Attribute,
			Accumulate: v.Accumulate,
		})
	}
	for _, v := range p.uniformVars {
		b.addUniform(UniformSlot{Name: v.Name, Index: int(v.Slot), Type: v.Type})
	}
	for _, v := range p.samplerVars {
		b.addSampler(SamplerSlot{Name: v.Name, Index: int(v.Slot)})
	}
	for _, m := range compiled {
		b.addMethod(m)
	}
	b.RegisterCount = maxTemp

	return b, nil
}
