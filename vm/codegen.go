package vm

import "math"

// operand is the codegen-internal description of one instruction operand:
// either a plain register reference, a uniform-table reference, or an
// inline literal constant, per SPEC_FULL.md section 4.5.
type operand struct {
	isConst   bool
	isUniform bool
	constVal  []float32
	index     int
	component int
}

func (o operand) constOrUniform() bool { return o.isConst || o.isUniform }

func regOperand(index, component int) operand {
	return operand{index: index, component: component}
}

func uniformOperand(index int) operand {
	return operand{isUniform: true, index: index}
}

func constOperand(vals []float32) operand {
	return operand{isConst: true, constVal: vals}
}

// generator lowers one method body into a 32-bit instruction stream. It is
// constructed fresh per method; temp register allocation is monotonic
// within a method and never reused, per the Open Question resolution in
// SPEC_FULL.md section 9.
type generator struct {
	words    []uint32
	nextTemp int
	maxTemp  int
}

func newGenerator(nIO int) *generator {
	return &generator{nextTemp: nIO}
}

func (g *generator) allocTemp() int {
	idx := g.nextTemp
	g.nextTemp++
	if g.nextTemp > g.maxTemp {
		g.maxTemp = g.nextTemp
	}
	return idx
}

func (g *generator) emitWord(w uint32) { g.words = append(g.words, w) }

func (g *generator) emitConst(vals []float32) {
	for _, v := range vals {
		g.emitWord(math.Float32bits(v))
	}
}

// operandByte returns the wire byte for o without emitting its inline
// constant (that happens separately, after the instruction word, via
// emitTrailingConsts) so instruction word and its constants stay adjacent
// in stream order.
func operandByte(o operand) byte {
	if o.isConst {
		return OperandConstSentinel
	}
	return EncodeRegisterOperand(o.index, o.component)
}

func (g *generator) emitTrailingConsts(ops ...operand) {
	for _, o := range ops {
		if o.isConst {
			g.emitConst(o.constVal)
		}
	}
}

// emit packs and appends one instruction, followed by any inline
// constants belonging to src1/src2 (dst is always a plain register in
// this design).
func (g *generator) emit(op Opcode, dst operand, src1, src2 operand) {
	instr := EncodeInstruction(op, operandByte(dst), operandByte(src1), operandByte(src2))
	g.emitWord(uint32(instr))
	g.emitTrailingConsts(src1, src2)
}

// compileMethods lowers every parsed method into its own instruction
// stream, sharing the I/O register count across methods.
func compileMethods(nIO int, methods []*Method) ([]CompiledMethod, int, error) {
	out := make([]CompiledMethod, 0, len(methods))
	maxTemp := nIO
	for _, m := range methods {
		g := newGenerator(nIO)
		for _, stmt := range m.Body {
			if err := g.compileStmt(stmt); err != nil {
				return nil, 0, err
			}
		}
		out = append(out, CompiledMethod{Name: m.Str, Code: g.words})
		if g.maxTemp > maxTemp {
			maxTemp = g.maxTemp
		}
	}
	return out, maxTemp, nil
}

func (g *generator) compileStmt(s Stmt) error {
	switch st := s.(type) {
	case *VarDeclStmt:
		return g.compileVarDecl(st)
	case *AssignStmt:
		return g.compileAssign(st)
	default:
		return parseErrorf(s.Position(), "unsupported statement")
	}
}

func (g *generator) compileVarDecl(st *VarDeclStmt) error {
	val, err := g.compileExpr(st.Init)
	if err != nil {
		return err
	}
	_, isIdent := st.Init.(*IdentExpr)
	_, isMember := st.Init.(*MemberExpr)
	if !val.isConst && !val.isUniform && val.component == 0 && !isIdent && !isMember {
		// Initializer already lives in a fresh, whole register: adopt it
		// directly as the local's storage rather than emitting a
		// redundant assign.
		st.Var.Slot = int32(val.index)
		return nil
	}

	dim, err := st.Var.Type.Dim()
	if err != nil {
		return err
	}
	reg := g.allocTemp()
	st.Var.Slot = int32(reg)
	op, err := EncodeOpcode(OpAssign, dim, UnaryForm(val.constOrUniform()))
	if err != nil {
		return err
	}
	g.emit(op, regOperand(reg, 0), val, operand{})
	return nil
}

func (g *generator) compileAssign(st *AssignStmt) error {
	val, err := g.compileExpr(st.Value)
	if err != nil {
		return err
	}

	target := st.Target
	targetReg := int(target.Slot)

	if target.Accumulate {
		dim, err := target.Type.Dim()
		if err != nil {
			return err
		}
		op, err := EncodeOpcode(OpAdd, dim, BinaryForm(false, val.constOrUniform()))
		if err != nil {
			return err
		}
		dst := regOperand(targetReg, 0)
		g.emit(op, dst, regOperand(targetReg, 0), val)
		return nil
	}

	if len(st.Components) == 1 {
		op, err := EncodeOpcode(OpAssign, DimScalar, UnaryForm(val.constOrUniform()))
		if err != nil {
			return err
		}
		g.emit(op, regOperand(targetReg, st.Components[0]), val, operand{})
		return nil
	}

	width := target.Type.Width()
	if len(st.Components) > 0 {
		width = len(st.Components)
	}
	dim := dimFromWidth(width)
	op, err := EncodeOpcode(OpAssign, dim, UnaryForm(val.constOrUniform()))
	if err != nil {
		return err
	}
	g.emit(op, regOperand(targetReg, 0), val, operand{})
	return nil
}

func dimFromWidth(w int) Dim {
	switch w {
	case 1:
		return DimScalar
	case 2:
		return DimVec2
	case 3:
		return DimVec3
	default:
		return DimVec4
	}
}

func (g *generator) compileExpr(e Expr) (operand, error) {
	switch n := e.(type) {
	case *LiteralExpr:
		return constOperand(n.Value), nil
	case *IdentExpr:
		return g.compileIdent(n)
	case *MemberExpr:
		return g.compileMember(n)
	case *UnaryExpr:
		return g.compileUnary(n)
	case *BinaryExpr:
		return g.compileBinary(n)
	case *TernaryExpr:
		return g.compileTernary(n)
	case *CallExpr:
		return g.compileCall(n)
	default:
		return operand{}, parseErrorf(e.Position(), "unsupported expression")
	}
}

func (g *generator) compileIdent(n *IdentExpr) (operand, error) {
	v := n.Var
	switch v.Attribute {
	case AttrConst:
		return constOperand(v.ConstValue), nil
	case AttrUniform:
		return uniformOperand(int(v.Slot)), nil
	default:
		return regOperand(int(v.Slot), 0), nil
	}
}

func (g *generator) compileMember(n *MemberExpr) (operand, error) {
	base, err := g.compileExpr(n.Base)
	if err != nil {
		return operand{}, err
	}
	if base.isConst {
		vals := make([]float32, len(n.Components))
		for i, c := range n.Components {
			vals[i] = base.constVal[c]
		}
		return constOperand(vals), nil
	}
	if len(n.Components) == 1 {
		return operand{index: base.index, component: n.Components[0], isUniform: base.isUniform}, nil
	}
	// Multi-component prefix (xy/xyz/xyzw): same base pointer, narrower
	// type, always starting at component 0.
	return operand{index: base.index, component: 0, isUniform: base.isUniform}, nil
}

func (g *generator) compileUnary(n *UnaryExpr) (operand, error) {
	src, err := g.compileExpr(n.Expr)
	if err != nil {
		return operand{}, err
	}

	name, dim, err := unaryOpFamily(n.Op, n.Expr.ResultType())
	if err != nil {
		return operand{}, err
	}

	reg := g.allocTemp()
	op, err := EncodeOpcode(name, dim, UnaryForm(src.constOrUniform()))
	if err != nil {
		return operand{}, err
	}
	g.emit(op, regOperand(reg, 0), src, operand{})
	return regOperand(reg, 0), nil
}

func unaryOpFamily(op UnaryOp, operandType Type) (string, Dim, error) {
	switch op {
	case UnaryNeg:
		d, err := operandType.Dim()
		return OpNeg, d, err
	case UnaryFloor:
		d, err := operandType.Dim()
		return OpFloor, d, err
	case UnaryCeil:
		d, err := operandType.Dim()
		return OpCeil, d, err
	case UnarySqrt:
		return OpSqrt, DimScalar, nil
	case UnaryInvSqrt:
		return OpInvSqrt, DimScalar, nil
	case UnarySin:
		return OpSin, DimScalar, nil
	case UnaryCos:
		return OpCos, DimScalar, nil
	case UnaryTan:
		return OpTan, DimScalar, nil
	case UnaryAsin:
		return OpAsin, DimScalar, nil
	case UnaryAcos:
		return OpAcos, DimScalar, nil
	case UnaryAtan:
		return OpAtan, DimScalar, nil
	case UnaryLength:
		d, err := operandType.Dim()
		return OpLength, d, err
	case UnaryNormalize:
		d, err := operandType.Dim()
		return OpNormal, d, err
	default:
		return "", 0, parseErrorf(Pos{}, "unknown unary operator")
	}
}

func (g *generator) compileBinary(n *BinaryExpr) (operand, error) {
	left, right := n.Left, n.Right
	lhs, err := g.compileExpr(left)
	if err != nil {
		return operand{}, err
	}
	rhs, err := g.compileExpr(right)
	if err != nil {
		return operand{}, err
	}

	name, dim, err := binaryOpFamily(n.Op, left.ResultType(), right.ResultType())
	if err != nil {
		return operand{}, err
	}

	// Multiplication is commutative; the code generator always emits the
	// vector first when one side is scalar and the other a vector, per
	// SPEC_FULL.md section 4.5.
	if n.Op == BinMul && left.ResultType() == TypeFloat && right.ResultType().IsVector() {
		lhs, rhs = rhs, lhs
	}

	// The decoder reads dim.Width() words for every inline constant, so a
	// scalar literal operand of a vector*scalar or vector/scalar opcode is
	// inlined once per lane.
	if (n.Op == BinMul || n.Op == BinDiv) && rhs.isConst && len(rhs.constVal) < dim.Width() {
		wide := make([]float32, dim.Width())
		for i := range wide {
			wide[i] = rhs.constVal[0]
		}
		rhs = constOperand(wide)
	}

	reg := g.allocTemp()
	op, err := EncodeOpcode(name, dim, BinaryForm(lhs.constOrUniform(), rhs.constOrUniform()))
	if err != nil {
		return operand{}, err
	}
	g.emit(op, regOperand(reg, 0), lhs, rhs)
	return regOperand(reg, 0), nil
}

func binaryOpFamily(op BinaryOp, lt, rt Type) (string, Dim, error) {
	switch op {
	case BinAdd:
		d, err := lt.Dim()
		return OpAdd, d, err
	case BinSub:
		d, err := lt.Dim()
		return OpSub, d, err
	case BinMul:
		result := lt
		if lt == TypeFloat {
			result = rt
		}
		d, err := result.Dim()
		return OpMul, d, err
	case BinDiv:
		d, err := lt.Dim()
		return OpDiv, d, err
	case BinDot:
		d, err := lt.Dim()
		return OpDot, d, err
	case BinCross:
		return OpCross, DimVec3, nil
	case BinMin:
		d, err := lt.Dim()
		return OpMin, d, err
	case BinMax:
		d, err := lt.Dim()
		return OpMax, d, err
	default:
		return "", 0, parseErrorf(Pos{}, "unknown binary operator")
	}
}

func (g *generator) compileTernary(n *TernaryExpr) (operand, error) {
	cond := n.Cond
	lhs, err := g.compileExpr(cond.Left)
	if err != nil {
		return operand{}, err
	}
	rhs, err := g.compileExpr(cond.Right)
	if err != nil {
		return operand{}, err
	}
	cmpName := compareOpFamily(cond.Op)
	cmpOp, err := EncodeOpcode(cmpName, DimScalar, BinaryForm(lhs.constOrUniform(), rhs.constOrUniform()))
	if err != nil {
		return operand{}, err
	}
	g.emit(cmpOp, operand{}, lhs, rhs)

	thenOp, err := g.compileExpr(n.Then)
	if err != nil {
		return operand{}, err
	}
	elseOp, err := g.compileExpr(n.Else)
	if err != nil {
		return operand{}, err
	}

	dim, err := n.ResultType().Dim()
	if err != nil {
		return operand{}, err
	}
	reg := g.allocTemp()
	condOp, err := EncodeOpcode(OpCond, dim, BinaryForm(thenOp.constOrUniform(), elseOp.constOrUniform()))
	if err != nil {
		return operand{}, err
	}
	g.emit(condOp, regOperand(reg, 0), thenOp, elseOp)
	return regOperand(reg, 0), nil
}

func compareOpFamily(op CompareOp) string {
	switch op {
	case CmpLt:
		return OpCmpLt
	case CmpGt:
		return OpCmpGt
	case CmpLe:
		return OpCmpLe
	case CmpGe:
		return OpCmpGe
	default:
		return OpCmpEq
	}
}

func (g *generator) compileCall(n *CallExpr) (operand, error) {
	coord, err := g.compileExpr(n.Coord)
	if err != nil {
		return operand{}, err
	}

	var name string
	var dim Dim
	switch n.Coord.ResultType() {
	case TypeFloat:
		name, dim = OpSample1D, DimScalar
	case TypeVec2:
		name, dim = OpSample2D, DimVec2
	case TypeVec3:
		name, dim = OpSample3D, DimVec3
	default:
		return operand{}, parseErrorf(n.Position(), "invalid sampler coordinate type")
	}

	reg := g.allocTemp()
	op, err := EncodeOpcode(name, dim, UnaryForm(coord.constOrUniform()))
	if err != nil {
		return operand{}, err
	}
	samplerOperand := regOperand(int(n.Sampler.Slot), 0)
	instr := EncodeInstruction(op, operandByte(regOperand(reg, 0)), operandByte(samplerOperand), operandByte(coord))
	g.emitWord(uint32(instr))
	g.emitTrailingConsts(coord)
	return regOperand(reg, 0), nil
}
