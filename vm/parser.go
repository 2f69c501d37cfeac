package vm

import (
	"fmt"
	"strings"
)

// Parser is a recursive-descent parser producing a typed AST, per
// SPEC_FULL.md section 4.4. Grounded on original_source/src/parser.cpp's
// grammar shape (addsub/term/factor precedence climbing) and the
// teacher's CompileSource-style single entry point.
type Parser struct {
	lex  *Lexer
	syms *SymbolTable
	env  *Environment

	streamVars  []*Variable
	uniformVars []*Variable
	samplerVars []*Variable
	methods     []*Method

	sawFunctionDef bool
	ternaryDepth   int
}

func NewParser(source string) *Parser {
	return &Parser{
		lex:  NewLexer(source),
		syms: NewSymbolTable(),
		env:  NewEnvironment(),
	}
}

func (p *Parser) sym(name string) int32 { return p.syms.Insert(name, true) }

func (p *Parser) expectPunct(text string) (Token, error) {
	t := p.lex.Next()
	if t.Kind == TokFailure {
		return t, parseErrorf(t.Pos, "%s", t.Text)
	}
	if t.Kind != TokPunct || t.Text != text {
		return t, parseErrorf(t.Pos, "expected %q, got %q", text, t.String())
	}
	return t, nil
}

func (p *Parser) expectIdent() (Token, error) {
	t := p.lex.Next()
	if t.Kind == TokFailure {
		return t, parseErrorf(t.Pos, "%s", t.Text)
	}
	if t.Kind != TokIdent {
		return t, parseErrorf(t.Pos, "expected identifier, got %q", t.String())
	}
	return t, nil
}

func (p *Parser) peekIsKeyword(kw string) bool {
	t := p.lex.Peek()
	return t.Kind == TokKeyword && t.Text == kw
}

func (p *Parser) peekIsPunct(punct string) bool {
	t := p.lex.Peek()
	return t.Kind == TokPunct && t.Text == punct
}

// ParseProgram parses an entire source file into global declarations
// (recorded directly into the parser's symbol tables) and a list of typed
// methods ready for code generation.
func (p *Parser) ParseProgram() ([]*Method, error) {
	for {
		t := p.lex.Peek()
		if t.Kind == TokEOF {
			break
		}
		if t.Kind == TokKeyword && isTypeKeyword(t.Text) && !p.sawFunctionDef {
			// A type keyword at top level always starts a function-def:
			// every global declaration begins with in/out/inout/const/
			// uniform/sampler instead, so no further lookahead is needed.
		}
		if t.Kind != TokKeyword {
			return nil, parseErrorf(t.Pos, "expected declaration, got %q", t.String())
		}

		switch t.Text {
		case "in", "out", "inout":
			if p.sawFunctionDef {
				return nil, parseErrorf(t.Pos, "global declaration after function definition")
			}
			if err := p.parseIODecl(); err != nil {
				return nil, err
			}
			continue
		case "const":
			if p.sawFunctionDef {
				return nil, parseErrorf(t.Pos, "global declaration after function definition")
			}
			if err := p.parseConstDecl(); err != nil {
				return nil, err
			}
			continue
		case "uniform":
			if p.sawFunctionDef {
				return nil, parseErrorf(t.Pos, "global declaration after function definition")
			}
			if err := p.parseUniformDecl(); err != nil {
				return nil, err
			}
			continue
		case "sampler":
			if p.sawFunctionDef {
				return nil, parseErrorf(t.Pos, "global declaration after function definition")
			}
			if err := p.parseSamplerDecl(); err != nil {
				return nil, err
			}
			continue
		}

		if isTypeKeyword(t.Text) {
			m, err := p.parseFunctionDef()
			if err != nil {
				return nil, err
			}
			p.sawFunctionDef = true
			p.methods = append(p.methods, m)
			continue
		}

		return nil, parseErrorf(t.Pos, "unexpected token %q at top level", t.String())
	}
	return p.methods, nil
}

func isTypeKeyword(s string) bool {
	switch s {
	case "void", "float", "vec2", "vec3", "vec4":
		return true
	default:
		return false
	}
}

func (p *Parser) parseType() (Type, error) {
	t := p.lex.Next()
	if t.Kind != TokKeyword || !isTypeKeyword(t.Text) {
		return TypeVoid, parseErrorf(t.Pos, "expected a type, got %q", t.String())
	}
	switch t.Text {
	case "void":
		return TypeVoid, nil
	case "float":
		return TypeFloat, nil
	case "vec2":
		return TypeVec2, nil
	case "vec3":
		return TypeVec3, nil
	default:
		return TypeVec4, nil
	}
}

func (p *Parser) declareGlobal(name string, pos Pos, v *Variable) error {
	if !p.env.Declare(v) {
		return parseErrorf(pos, "%q already declared in this scope", name)
	}
	return nil
}

func (p *Parser) parseIODecl() error {
	kwTok := p.lex.Next()
	var attr Attribute
	switch kwTok.Text {
	case "in":
		attr = AttrIn
	case "out":
		attr = AttrOut
	case "inout":
		attr = AttrInout
	}

	accumulate := false
	if p.peekIsKeyword("accumulate") {
		p.lex.Next()
		accumulate = true
		if attr == AttrIn {
			return parseErrorf(kwTok.Pos, "accumulate is only valid on out/inout")
		}
	}

	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if typ == TypeVoid {
		return parseErrorf(kwTok.Pos, "void is not a valid stream type")
	}

	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}

	v := &Variable{
		Symbol:     p.sym(nameTok.Text),
		Name:       nameTok.Text,
		Type:       typ,
		Attribute:  attr,
		Accumulate: accumulate,
		Slot:       int32(len(p.streamVars)),
	}
	p.streamVars = append(p.streamVars, v)
	return p.declareGlobal(nameTok.Text, nameTok.Pos, v)
}

func (p *Parser) parseUniformDecl() error {
	kwTok := p.lex.Next()
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if !typ.IsNumeric() {
		return parseErrorf(kwTok.Pos, "uniform must have a numeric type")
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}
	v := &Variable{
		Symbol:    p.sym(nameTok.Text),
		Name:      nameTok.Text,
		Type:      typ,
		Attribute: AttrUniform,
		Slot:      int32(len(p.uniformVars)),
	}
	p.uniformVars = append(p.uniformVars, v)
	return p.declareGlobal(nameTok.Text, nameTok.Pos, v)
}

func (p *Parser) parseSamplerDecl() error {
	p.lex.Next() // consume 'sampler'
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}
	v := &Variable{
		Symbol:    p.sym(nameTok.Text),
		Name:      nameTok.Text,
		Type:      TypeSampler,
		Attribute: AttrSampler,
		Slot:      int32(len(p.samplerVars)),
	}
	p.samplerVars = append(p.samplerVars, v)
	return p.declareGlobal(nameTok.Text, nameTok.Pos, v)
}

func (p *Parser) parseConstDecl() error {
	kwTok := p.lex.Next()
	typ, err := p.parseType()
	if err != nil {
		return err
	}
	if !typ.IsNumeric() {
		return parseErrorf(kwTok.Pos, "const must have a numeric type")
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return err
	}
	if _, err := p.expectPunct("="); err != nil {
		return err
	}
	vals, err := p.parseConstValue(typ)
	if err != nil {
		return err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return err
	}
	v := &Variable{
		Symbol:     p.sym(nameTok.Text),
		Name:       nameTok.Text,
		Type:       typ,
		Attribute:  AttrConst,
		ConstValue: vals,
	}
	return p.declareGlobal(nameTok.Text, nameTok.Pos, v)
}

func (p *Parser) parseConstValue(want Type) ([]float32, error) {
	if p.peekIsPunct("{") {
		p.lex.Next()
		var vals []float32
		for {
			v, _, err := p.parseRealOrInt()
			if err != nil {
				return nil, err
			}
			vals = append(vals, v)
			if p.peekIsPunct(",") {
				p.lex.Next()
				continue
			}
			break
		}
		if _, err := p.expectPunct("}"); err != nil {
			return nil, err
		}
		if len(vals) != want.Width() {
			return nil, parseErrorf(p.lex.Peek().Pos, "const value has %d components, want %d for %s", len(vals), want.Width(), want)
		}
		return vals, nil
	}

	v, pos, err := p.parseRealOrInt()
	if err != nil {
		return nil, err
	}
	if want != TypeFloat {
		return nil, parseErrorf(pos, "scalar literal cannot initialize %s", want)
	}
	return []float32{v}, nil
}

func (p *Parser) parseRealOrInt() (float32, Pos, error) {
	t := p.lex.Next()
	switch t.Kind {
	case TokReal:
		return t.Real, t.Pos, nil
	case TokInt:
		return float32(t.Int), t.Pos, nil
	case TokFailure:
		return 0, t.Pos, parseErrorf(t.Pos, "%s", t.Text)
	default:
		return 0, t.Pos, parseErrorf(t.Pos, "expected a number, got %q", t.String())
	}
}

func (p *Parser) parseFunctionDef() (*Method, error) {
	retType, err := p.parseType()
	if err != nil {
		return nil, err
	}
	_ = retType // parameterless, return type not otherwise enforced

	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("{"); err != nil {
		return nil, err
	}

	p.env.Enter()
	defer p.env.Leave()

	var body []Stmt
	for !p.peekIsPunct("}") {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	if _, err := p.expectPunct("}"); err != nil {
		return nil, err
	}

	return &Method{Name: nameTok.Pos, Str: nameTok.Text, Body: body}, nil
}

func (p *Parser) parseStatement() (Stmt, error) {
	t := p.lex.Peek()
	if t.Kind == TokKeyword && isTypeKeyword(t.Text) {
		return p.parseVarDecl()
	}
	if t.Kind == TokIdent {
		return p.parseAssignment()
	}
	return nil, parseErrorf(t.Pos, "expected a statement, got %q", t.String())
}

func (p *Parser) parseVarDecl() (Stmt, error) {
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	init, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if init.ResultType() != typ {
		return nil, parseErrorf(nameTok.Pos, "cannot initialize %s %s with %s", typ, nameTok.Text, init.ResultType())
	}

	v := &Variable{
		Symbol:    p.sym(nameTok.Text),
		Name:      nameTok.Text,
		Type:      typ,
		Attribute: AttrLocal,
	}
	if !p.env.Declare(v) {
		return nil, parseErrorf(nameTok.Pos, "%q already declared in this scope", nameTok.Text)
	}

	return &VarDeclStmt{stmtBase: stmtBase{pos: nameTok.Pos}, Var: v, Init: init}, nil
}

func (p *Parser) parseAssignment() (Stmt, error) {
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	sym := p.sym(nameTok.Text)
	v, found := p.env.Lookup(sym)
	if !found {
		return nil, parseErrorf(nameTok.Pos, "undeclared identifier %q", nameTok.Text)
	}
	if v.Attribute == AttrIn {
		return nil, parseErrorf(nameTok.Pos, "cannot assign to input stream %q", nameTok.Text)
	}
	if v.Attribute == AttrConst {
		return nil, parseErrorf(nameTok.Pos, "cannot assign to const %q", nameTok.Text)
	}

	var components []int
	targetType := v.Type
	if p.peekIsPunct(".") {
		p.lex.Next()
		memberTok, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		width := 0
		if v.Type.IsVector() {
			width = v.Type.Width()
		}
		comps, memberType, err := memberComponents(memberTok.Text, width)
		if err != nil {
			return nil, parseErrorf(memberTok.Pos, "%s", err.Error())
		}
		components = comps
		targetType = memberType
	}

	if _, err := p.expectPunct("="); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(";"); err != nil {
		return nil, err
	}

	if value.ResultType() != targetType {
		return nil, parseErrorf(nameTok.Pos, "cannot assign %s to %s", value.ResultType(), targetType)
	}

	return &AssignStmt{stmtBase: stmtBase{pos: nameTok.Pos}, Target: v, Components: components, Value: value}, nil
}

func memberComponents(name string, vectorWidth int) ([]int, Type, error) {
	const letters = "xyzw"
	if len(name) == 0 || len(name) > 4 {
		return nil, TypeVoid, fmt.Errorf("invalid member %q", name)
	}
	if len(name) == 1 {
		idx := strings.IndexByte(letters, name[0])
		if idx < 0 || idx >= vectorWidth {
			return nil, TypeVoid, fmt.Errorf("invalid member %q", name)
		}
		return []int{idx}, TypeFloat, nil
	}
	if name != letters[:len(name)] {
		return nil, TypeVoid, fmt.Errorf("invalid member %q", name)
	}
	if len(name) > vectorWidth {
		return nil, TypeVoid, fmt.Errorf("member %q exceeds component count", name)
	}
	comps := make([]int, len(name))
	for i := range comps {
		comps[i] = i
	}
	return comps, typeFromWidth(len(name)), nil
}

func typeFromWidth(w int) Type {
	switch w {
	case 1:
		return TypeFloat
	case 2:
		return TypeVec2
	case 3:
		return TypeVec3
	default:
		return TypeVec4
	}
}

// expression ← comparison ['?' comparison ':' comparison]
func (p *Parser) parseExpression() (Expr, error) {
	cond, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if !p.peekIsPunct("?") {
		return cond, nil
	}
	if p.ternaryDepth > 0 {
		return nil, parseErrorf(p.lex.Peek().Pos, "nested ternary expressions are not allowed")
	}
	cmp, ok := cond.(*CompareExpr)
	if !ok {
		return nil, parseErrorf(cond.Position(), "ternary condition must be a comparison")
	}
	p.lex.Next()
	p.ternaryDepth++
	defer func() { p.ternaryDepth-- }()

	thenExpr, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	elseExpr, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	if thenExpr.ResultType() != elseExpr.ResultType() || !thenExpr.ResultType().IsNumeric() {
		return nil, parseErrorf(thenExpr.Position(), "ternary branches must share one numeric type")
	}
	return &TernaryExpr{
		exprBase: exprBase{typ: thenExpr.ResultType(), pos: cmp.pos},
		Cond:     cmp, Then: thenExpr, Else: elseExpr,
	}, nil
}

// comparison ← addsub [ (< > <= >= ==) addsub ]
func (p *Parser) parseComparison() (Expr, error) {
	left, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	t := p.lex.Peek()
	var op CompareOp
	switch {
	case t.Kind == TokPunct && t.Text == "<":
		op = CmpLt
	case t.Kind == TokPunct && t.Text == ">":
		op = CmpGt
	case t.Kind == TokPunct && t.Text == "<=":
		op = CmpLe
	case t.Kind == TokPunct && t.Text == ">=":
		op = CmpGe
	case t.Kind == TokPunct && t.Text == "==":
		op = CmpEq
	default:
		return left, nil
	}
	p.lex.Next()
	right, err := p.parseAddSub()
	if err != nil {
		return nil, err
	}
	if left.ResultType() != TypeFloat || right.ResultType() != TypeFloat {
		return nil, parseErrorf(left.Position(), "comparison operands must be scalar")
	}
	return &CompareExpr{
		exprBase: exprBase{typ: TypeBool, pos: left.Position()},
		Op:       op, Left: left, Right: right,
	}, nil
}

// addsub ← term ((+ -) term)*
func (p *Parser) parseAddSub() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t := p.lex.Peek()
		if t.Kind != TokPunct || (t.Text != "+" && t.Text != "-") {
			return left, nil
		}
		p.lex.Next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if left.ResultType() != right.ResultType() {
			return nil, parseErrorf(left.Position(), "%s requires matching types, got %s and %s", t.Text, left.ResultType(), right.ResultType())
		}
		op := BinAdd
		if t.Text == "-" {
			op = BinSub
		}
		left = &BinaryExpr{
			exprBase: exprBase{typ: left.ResultType(), pos: left.Position()},
			Op:       op, Left: left, Right: right,
		}
	}
}

// term ← factor ((* /) factor)*
func (p *Parser) parseTerm() (Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for {
		t := p.lex.Peek()
		if t.Kind != TokPunct || (t.Text != "*" && t.Text != "/") {
			return left, nil
		}
		p.lex.Next()
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		lt, rt := left.ResultType(), right.ResultType()
		var resultType Type
		if t.Text == "*" {
			switch {
			case lt == TypeFloat && rt == TypeFloat:
				resultType = TypeFloat
			case lt == TypeFloat && rt.IsVector():
				resultType = rt
			case lt.IsVector() && rt == TypeFloat:
				resultType = lt
			default:
				return nil, parseErrorf(left.Position(), "unsupported operand types for *: %s and %s", lt, rt)
			}
			left = &BinaryExpr{exprBase: exprBase{typ: resultType, pos: left.Position()}, Op: BinMul, Left: left, Right: right}
			continue
		}
		// division
		switch {
		case lt == TypeFloat && rt == TypeFloat:
			resultType = TypeFloat
		case lt.IsVector() && rt == TypeFloat:
			resultType = lt
		default:
			return nil, parseErrorf(left.Position(), "unsupported operand types for /: %s and %s", lt, rt)
		}
		left = &BinaryExpr{exprBase: exprBase{typ: resultType, pos: left.Position()}, Op: BinDiv, Left: left, Right: right}
	}
}

// factor ← real | integer | identifier ['.' member] | '(' expression ')' | '-' factor | builtin-call
func (p *Parser) parseFactor() (Expr, error) {
	t := p.lex.Peek()
	switch {
	case t.Kind == TokReal:
		p.lex.Next()
		return &LiteralExpr{exprBase: exprBase{typ: TypeFloat, pos: t.Pos}, Value: []float32{t.Real}}, nil
	case t.Kind == TokInt:
		p.lex.Next()
		return &LiteralExpr{exprBase: exprBase{typ: TypeFloat, pos: t.Pos}, Value: []float32{float32(t.Int)}}, nil
	case t.Kind == TokPunct && t.Text == "(":
		p.lex.Next()
		e, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return e, nil
	case t.Kind == TokPunct && t.Text == "-":
		p.lex.Next()
		e, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		if !e.ResultType().IsNumeric() {
			return nil, parseErrorf(t.Pos, "unary - requires a numeric operand")
		}
		return &UnaryExpr{exprBase: exprBase{typ: e.ResultType(), pos: t.Pos}, Op: UnaryNeg, Expr: e}, nil
	case t.Kind == TokKeyword && isBuiltinName(t.Text):
		return p.parseBuiltinCall()
	case t.Kind == TokIdent:
		return p.parseIdentFactor()
	default:
		return nil, parseErrorf(t.Pos, "unexpected token %q in expression", t.String())
	}
}

func isBuiltinName(s string) bool {
	switch s {
	case "dot", "cross", "length", "sin", "cos", "tan", "asin", "acos", "atan",
		"normalize", "sqrt", "invsqrt", "min", "max", "floor", "ceil",
		"sample1D", "sample2D", "sample3D":
		return true
	default:
		return false
	}
}

func (p *Parser) parseIdentFactor() (Expr, error) {
	nameTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	sym := p.sym(nameTok.Text)
	v, found := p.env.Lookup(sym)
	if !found {
		return nil, parseErrorf(nameTok.Pos, "undeclared identifier %q", nameTok.Text)
	}
	ident := &IdentExpr{exprBase: exprBase{typ: v.Type, pos: nameTok.Pos}, Var: v}

	if !p.peekIsPunct(".") {
		return ident, nil
	}
	p.lex.Next()
	memberTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	width := 0
	if v.Type.IsVector() {
		width = v.Type.Width()
	}
	comps, memberType, err := memberComponents(memberTok.Text, width)
	if err != nil {
		return nil, parseErrorf(memberTok.Pos, "%s", err.Error())
	}
	return &MemberExpr{exprBase: exprBase{typ: memberType, pos: memberTok.Pos}, Base: ident, Components: comps}, nil
}

func (p *Parser) parseBuiltinCall() (Expr, error) {
	nameTok := p.lex.Next()
	if _, err := p.expectPunct("("); err != nil {
		return nil, err
	}

	switch nameTok.Text {
	case "sample1D", "sample2D", "sample3D":
		return p.parseSamplerCall(nameTok)
	case "dot", "cross", "min", "max":
		a, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(","); err != nil {
			return nil, err
		}
		b, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return p.typeCheckBinaryBuiltin(nameTok, a, b)
	default:
		a, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(")"); err != nil {
			return nil, err
		}
		return p.typeCheckUnaryBuiltin(nameTok, a)
	}
}

func (p *Parser) typeCheckBinaryBuiltin(nameTok Token, a, b Expr) (Expr, error) {
	at, bt := a.ResultType(), b.ResultType()
	switch nameTok.Text {
	case "dot":
		if at != bt || !at.IsVector() {
			return nil, parseErrorf(nameTok.Pos, "dot requires two vectors of the same type")
		}
		return &BinaryExpr{exprBase: exprBase{typ: TypeFloat, pos: nameTok.Pos}, Op: BinDot, Left: a, Right: b}, nil
	case "cross":
		if at != TypeVec3 || bt != TypeVec3 {
			return nil, parseErrorf(nameTok.Pos, "cross requires two vec3 operands")
		}
		return &BinaryExpr{exprBase: exprBase{typ: TypeVec3, pos: nameTok.Pos}, Op: BinCross, Left: a, Right: b}, nil
	default: // min, max
		if at != bt || !at.IsNumeric() {
			return nil, parseErrorf(nameTok.Pos, "%s requires matching numeric operands", nameTok.Text)
		}
		op := BinMin
		if nameTok.Text == "max" {
			op = BinMax
		}
		return &BinaryExpr{exprBase: exprBase{typ: at, pos: nameTok.Pos}, Op: op, Left: a, Right: b}, nil
	}
}

func (p *Parser) typeCheckUnaryBuiltin(nameTok Token, a Expr) (Expr, error) {
	at := a.ResultType()
	scalarOnly := func() (Expr, error) {
		if at != TypeFloat {
			return nil, parseErrorf(nameTok.Pos, "%s requires a scalar operand", nameTok.Text)
		}
		return &UnaryExpr{exprBase: exprBase{typ: TypeFloat, pos: nameTok.Pos}, Op: unaryOpFor(nameTok.Text), Expr: a}, nil
	}
	switch nameTok.Text {
	case "sin", "cos", "tan", "asin", "acos", "atan", "sqrt", "invsqrt":
		return scalarOnly()
	case "length":
		if !at.IsVector() {
			return nil, parseErrorf(nameTok.Pos, "length requires a vector operand")
		}
		return &UnaryExpr{exprBase: exprBase{typ: TypeFloat, pos: nameTok.Pos}, Op: UnaryLength, Expr: a}, nil
	case "normalize":
		if !at.IsVector() {
			return nil, parseErrorf(nameTok.Pos, "normalize requires a vector operand")
		}
		return &UnaryExpr{exprBase: exprBase{typ: at, pos: nameTok.Pos}, Op: UnaryNormalize, Expr: a}, nil
	case "floor", "ceil":
		if !at.IsNumeric() {
			return nil, parseErrorf(nameTok.Pos, "%s requires a numeric operand", nameTok.Text)
		}
		return &UnaryExpr{exprBase: exprBase{typ: at, pos: nameTok.Pos}, Op: unaryOpFor(nameTok.Text), Expr: a}, nil
	default:
		return nil, parseErrorf(nameTok.Pos, "unknown builtin %q", nameTok.Text)
	}
}

func unaryOpFor(name string) UnaryOp {
	switch name {
	case "sqrt":
		return UnarySqrt
	case "invsqrt":
		return UnaryInvSqrt
	case "sin":
		return UnarySin
	case "cos":
		return UnaryCos
	case "tan":
		return UnaryTan
	case "asin":
		return UnaryAsin
	case "acos":
		return UnaryAcos
	case "atan":
		return UnaryAtan
	case "floor":
		return UnaryFloor
	case "ceil":
		return UnaryCeil
	default:
		return UnaryNeg
	}
}

func (p *Parser) parseSamplerCall(nameTok Token) (Expr, error) {
	samplerTok, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	sym := p.sym(samplerTok.Text)
	sv, found := p.env.Lookup(sym)
	if !found || sv.Attribute != AttrSampler {
		return nil, parseErrorf(samplerTok.Pos, "%q is not a declared sampler", samplerTok.Text)
	}
	if _, err := p.expectPunct(","); err != nil {
		return nil, err
	}
	coord, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(")"); err != nil {
		return nil, err
	}

	var want Type
	switch nameTok.Text {
	case "sample1D":
		want = TypeFloat
	case "sample2D":
		want = TypeVec2
	default:
		want = TypeVec3
	}
	if coord.ResultType() != want {
		return nil, parseErrorf(nameTok.Pos, "%s expects a %s coordinate, got %s", nameTok.Text, want, coord.ResultType())
	}
	return &CallExpr{exprBase: exprBase{typ: TypeVec4, pos: nameTok.Pos}, Sampler: sv, Coord: coord}, nil
}
