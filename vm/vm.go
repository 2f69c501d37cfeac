package vm

import (
	"errors"
	"fmt"
	"math"
)

// Vec4 is one register slot: always 4 lanes wide regardless of the value's
// declared type, so scalar/vec2/vec3 values simply leave trailing lanes
// unused. Exactly 16 bytes, matching SPEC_FULL.md section 4.7's register
// slot size.
type Vec4 = [4]float32

// VM holds the register file and flag buffer for one batch window and
// dispatches the instruction stream across every element in that window.
// Grounded on the teacher's execInstructions dispatch loop in the
// now-removed stack-machine main.go: one big switch keyed on the decoded
// opcode, operating on a fixed-size state blob rather than allocating per
// instruction.
type VM struct {
	regs      []Vec4 // len == registerCount*batchSize, index = reg*batchSize+elem
	flags     []byte // len == batchSize
	uniforms  []Vec4 // one slot per uniform, broadcast to every element
	samplers  []Sampler
	batchSize int
	regCount  int

	errcode error
}

// newVM allocates a register file and flag buffer sized for the largest
// window the caller's scratch budget allows. It is called once per
// ExecutionContext lifetime, not once per batch window: resizeWindow
// reslices these same backing arrays for every subsequent window instead
// of reallocating, per SPEC_FULL.md section 1's "no dynamic memory growth
// during execution" rule.
func newVM(regCount, maxBatchSize int, uniforms []Vec4, samplers []Sampler) *VM {
	return &VM{
		regs:      make([]Vec4, regCount*maxBatchSize),
		flags:     make([]byte, maxBatchSize),
		uniforms:  uniforms,
		samplers:  samplers,
		batchSize: maxBatchSize,
		regCount:  regCount,
	}
}

// resizeWindow reslices the register file and flag buffer down to exactly
// n elements without reallocating; n must not exceed the maxBatchSize the
// VM was constructed with.
func (vm *VM) resizeWindow(n int) {
	vm.regs = vm.regs[:vm.regCount*n]
	vm.flags = vm.flags[:n]
	vm.batchSize = n
}

func (vm *VM) regIndex(reg, elem int) int { return reg*vm.batchSize + elem }

// lane is one decoded instruction operand, per SPEC_FULL.md section 4.5's
// R/C operand model: an inline constant (constVal), a uniform-table slot,
// or a register. comp is the component selector from the operand byte's
// low two bits; laneValue returns a non-zero component as a scalar in
// lane 0.
type lane struct {
	isConst   bool
	constVal  Vec4
	isUniform bool
	uniform   int
	regIdx    int
	comp      int
}

func (vm *VM) laneValue(l lane, elem int) Vec4 {
	var v Vec4
	switch {
	case l.isConst:
		return l.constVal
	case l.isUniform:
		v = vm.uniforms[l.uniform]
	default:
		v = vm.regs[vm.regIndex(l.regIdx, elem)]
	}
	if l.comp != 0 {
		return Vec4{v[l.comp]}
	}
	return v
}

// decodeOperand turns one raw operand byte into a lane descriptor. asConst
// reports whether the family form marked this operand slot
// constant-or-uniform; when true, the sentinel byte distinguishes an
// inline literal (already parsed into constVal by the caller) from a
// uniform-table reference.
func decodeOperand(raw byte, asConst bool, inlineConst Vec4, haveInline bool) lane {
	if asConst {
		if haveInline {
			return lane{isConst: true, constVal: inlineConst}
		}
		idx, comp := DecodeRegisterOperand(raw)
		return lane{isUniform: true, uniform: idx, comp: comp}
	}
	idx, comp := DecodeRegisterOperand(raw)
	return lane{regIdx: idx, comp: comp}
}

// readInlineConst reads width float32 words starting at code[pos] and
// returns them zero-padded into a Vec4, plus the new stream position.
func readInlineConst(code []uint32, pos int, width int) (Vec4, int) {
	var v Vec4
	for i := 0; i < width; i++ {
		v[i] = math.Float32frombits(code[pos+i])
	}
	return v, pos + width
}

// run executes one compiled method's instruction stream across every
// element in the current batch window. Register indices in the stream
// that address I/O slots must already have been loaded into vm.regs by
// the caller (ExecutionContext.Execute) before run is invoked.
func (vm *VM) run(code []uint32) error {
	pos := 0
	for pos < len(code) {
		instr := Instruction(code[pos])
		pos++

		op := instr.Opcode()
		name, dim, form, ok := DecodeOpcode(op)
		if !ok {
			return fmt.Errorf("%w: unknown opcode %d at word %d", errInvalidBytecode, op, pos-1)
		}
		width := dim.Width()

		dstByte, src1Byte, src2Byte := instr.Dst(), instr.Src1(), instr.Src2()

		// Unary/assign families use FormRR/FormRC as a 2-slot R/C selector
		// on src1 only; src2 is unused. Sample families use the same
		// 2-slot selector but on src2 (the coordinate) since src1 always
		// holds the sampler table index. Binary families use
		// FormRR/RC/CR/CC across src1 and src2.
		var src1Const, src2Const bool
		switch name {
		case OpAssign, OpNeg, OpFloor, OpCeil, OpSqrt, OpInvSqrt, OpSin, OpCos,
			OpTan, OpAsin, OpAcos, OpAtan, OpLength, OpNormal:
			src1Const = form == FormRC
		case OpSample1D, OpSample2D, OpSample3D:
			src2Const = form == FormRC
		default:
			src1Const = form == FormCR || form == FormCC
			src2Const = form == FormRC || form == FormCC
		}

		var src1Inline, src2Inline Vec4
		haveSrc1Inline, haveSrc2Inline := false, false
		if src1Const && src1Byte == OperandConstSentinel {
			if pos+width > len(code) {
				return fmt.Errorf("%w: inline constant runs past end of stream at word %d", errInvalidBytecode, pos)
			}
			src1Inline, pos = readInlineConst(code, pos, width)
			haveSrc1Inline = true
		}
		if src2Const && src2Byte == OperandConstSentinel {
			if pos+width > len(code) {
				return fmt.Errorf("%w: inline constant runs past end of stream at word %d", errInvalidBytecode, pos)
			}
			src2Inline, pos = readInlineConst(code, pos, width)
			haveSrc2Inline = true
		}

		src1 := decodeOperand(src1Byte, src1Const, src1Inline, haveSrc1Inline)
		src2 := decodeOperand(src2Byte, src2Const, src2Inline, haveSrc2Inline)
		dstIdx, dstComp := DecodeRegisterOperand(dstByte)

		if isCompareOp(name) {
			for e := 0; e < vm.batchSize; e++ {
				vm.flags[e] = kernelCompare(name, vm.laneValue(src1, e)[0], vm.laneValue(src2, e)[0])
			}
			continue
		}

		if name == OpSample1D || name == OpSample2D || name == OpSample3D {
			samplerIdx, _ := DecodeRegisterOperand(src1Byte)
			s := vm.samplers[samplerIdx]
			for e := 0; e < vm.batchSize; e++ {
				coord := vm.laneValue(src2, e)
				result, err := sampleN(s, name, coord)
				if err != nil {
					if !errors.Is(err, errSamplingFailed) {
						err = fmt.Errorf("%w: %v", errSamplingFailed, err)
					}
					return err
				}
				vm.regs[vm.regIndex(dstIdx, e)] = result
			}
			continue
		}

		for e := 0; e < vm.batchSize; e++ {
			a := vm.laneValue(src1, e)
			var out Vec4
			if name == OpCond {
				b := vm.laneValue(src2, e)
				if vm.flags[e]&1 != 0 {
					out = a
				} else {
					out = b
				}
			} else if isBinaryFamily(name) {
				b := vm.laneValue(src2, e)
				out = kernelBinary(name, dim, a, b)
			} else {
				out = kernelUnary(name, dim, a)
			}

			if dstComp != 0 || width == 1 {
				vm.regs[vm.regIndex(dstIdx, e)][dstComp] = out[0]
			} else {
				dstReg := vm.regs[vm.regIndex(dstIdx, e)]
				for i := 0; i < width; i++ {
					dstReg[i] = out[i]
				}
				vm.regs[vm.regIndex(dstIdx, e)] = dstReg
			}
		}
	}
	return nil
}

func isCompareOp(name string) bool {
	switch name {
	case OpCmpLt, OpCmpGt, OpCmpLe, OpCmpGe, OpCmpEq:
		return true
	default:
		return false
	}
}

func isBinaryFamily(name string) bool {
	switch name {
	case OpAdd, OpSub, OpMul, OpDiv, OpDot, OpCross, OpMin, OpMax:
		return true
	default:
		return false
	}
}
