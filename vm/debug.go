package vm

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ListOpcodeNames returns every registered opcode family name in sorted
// order, for use by a disassembler legend or a `-list-ops` CLI mode.
// Grounded on the teacher's reliance on a stable, printable ordering for
// its own program listings (formatInstructionStr/printProgram); the
// family table itself is keyed by a map (see opcode.go's opBase), so a
// deterministic iteration order needs an explicit sort rather than
// relying on Go's randomized map order.
func ListOpcodeNames() []string {
	seen := make(map[string]bool)
	for key := range opBase {
		name := key[:strings.IndexByte(key, '#')]
		seen[name] = true
	}
	names := maps.Keys(seen)
	slices.Sort(names)
	return names
}

// formatInstruction renders one decoded instruction the way the teacher's
// formatInstructionStr rendered stack-machine instructions: mnemonic
// first, then operands in source order. pos is advanced past any inline
// constant words consumed, mirroring run()'s own decode.
func formatInstruction(code []uint32, pos int) (string, int) {
	instr := Instruction(code[pos])
	opPos := pos
	pos++

	op := instr.Opcode()
	name, dim, form, ok := DecodeOpcode(op)
	if !ok {
		return fmt.Sprintf("%d: <invalid opcode %d>", opPos, op), pos
	}
	width := dim.Width()

	dstByte, src1Byte, src2Byte := instr.Dst(), instr.Src1(), instr.Src2()

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

	describe := func(raw byte, isConst bool) string {
		if !isConst {
			idx, comp := DecodeRegisterOperand(raw)
			return fmt.Sprintf("r%d.%d", idx, comp)
		}
		if raw == OperandConstSentinel {
			vals := make([]string, width)
			for i := 0; i < width; i++ {
				vals[i] = fmt.Sprintf("%v", math.Float32frombits(code[pos+i]))
			}
			pos += width
			return "#{" + strings.Join(vals, ",") + "}"
		}
		idx, _ := DecodeRegisterOperand(raw)
		return fmt.Sprintf("u%d", idx)
	}

	dstIdx, dstComp := DecodeRegisterOperand(dstByte)
	src1Str := describe(src1Byte, src1Const)
	src2Str := ""
	if hasSrc2(name) {
		src2Str = " " + describe(src2Byte, src2Const)
	}

	return fmt.Sprintf("%d: %s.%s r%d.%d %s%s", opPos, name, dim, dstIdx, dstComp, src1Str, src2Str), pos
}

// hasSrc2 reports whether a family prints a second operand: true binary
// families and sample families (sampler index + coordinate) do, plain
// unary/assign families don't.
func hasSrc2(name string) bool {
	switch name {
	case OpNeg, OpFloor, OpCeil, OpSqrt, OpInvSqrt, OpSin, OpCos, OpTan,
		OpAsin, OpAcos, OpAtan, OpLength, OpNormal, OpAssign:
		return false
	default:
		return true
	}
}

// Disassemble renders every method in a compiled artifact as human-
// readable text, for the CLI driver's -disasm mode.
func Disassemble(b *Bytecode) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "; artifact %s, %d registers\n", b.ID, b.RegisterCount)
	for _, s := range b.Streams() {
		fmt.Fprintf(&sb, "; stream %s %s r%d (%s)\n", s.Type, s.Name, s.Index, s.Attribute)
	}
	for _, u := range b.Uniforms() {
		fmt.Fprintf(&sb, "; uniform %s %s u%d\n", u.Type, u.Name, u.Index)
	}
	for _, s := range b.Samplers() {
		fmt.Fprintf(&sb, "; sampler %s s%d\n", s.Name, s.Index)
	}
	for _, m := range b.Methods() {
		fmt.Fprintf(&sb, "\nmethod %s:\n", m.Name)
		pos := 0
		for pos < len(m.Code) {
			var line string
			line, pos = formatInstruction(m.Code, pos)
			fmt.Fprintf(&sb, "  %s\n", line)
		}
	}
	return sb.String()
}
