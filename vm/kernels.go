package vm

import "math"

// kernelUnary implements the per-element math for every unary and assign
// opcode family, per SPEC_FULL.md section 4.7. dim.Width() bounds how
// many lanes of a are meaningful; trailing lanes are ignored by callers.
func kernelUnary(name string, dim Dim, a Vec4) Vec4 {
	width := dim.Width()
	var out Vec4
	switch name {
	case OpAssign:
		return a
	case OpNeg:
		for i := 0; i < width; i++ {
			out[i] = -a[i]
		}
		return out
	case OpFloor:
		for i := 0; i < width; i++ {
			out[i] = float32(math.Floor(float64(a[i])))
		}
		return out
	case OpCeil:
		for i := 0; i < width; i++ {
			out[i] = float32(math.Ceil(float64(a[i])))
		}
		return out
	case OpSqrt:
		out[0] = float32(math.Sqrt(float64(a[0])))
		return out
	case OpInvSqrt:
		out[0] = 1 / float32(math.Sqrt(float64(a[0])))
		return out
	case OpSin:
		out[0] = float32(math.Sin(float64(a[0])))
		return out
	case OpCos:
		out[0] = float32(math.Cos(float64(a[0])))
		return out
	case OpTan:
		out[0] = float32(math.Tan(float64(a[0])))
		return out
	case OpAsin:
		out[0] = float32(math.Asin(float64(a[0])))
		return out
	case OpAcos:
		out[0] = float32(math.Acos(float64(a[0])))
		return out
	case OpAtan:
		out[0] = float32(math.Atan(float64(a[0])))
		return out
	case OpLength:
		var sum float64
		for i := 0; i < width; i++ {
			sum += float64(a[i]) * float64(a[i])
		}
		out[0] = float32(math.Sqrt(sum))
		return out
	case OpNormal:
		var sum float64
		for i := 0; i < width; i++ {
			sum += float64(a[i]) * float64(a[i])
		}
		if sum == 0 {
			// normalize(0) is defined as 0, not NaN, per the Open Question
			// resolution in SPEC_FULL.md section 9.
			return Vec4{}
		}
		inv := float32(1 / math.Sqrt(sum))
		for i := 0; i < width; i++ {
			out[i] = a[i] * inv
		}
		return out
	default:
		return a
	}
}

// kernelBinary implements every binary opcode family's per-element math.
// IEEE-754 semantics govern division by zero: the result is +/-Inf or NaN,
// never trapped, per SPEC_FULL.md section 4.7.
func kernelBinary(name string, dim Dim, a, b Vec4) Vec4 {
	width := dim.Width()
	var out Vec4
	switch name {
	case OpAdd:
		for i := 0; i < width; i++ {
			out[i] = a[i] + b[i]
		}
		return out
	case OpSub:
		for i := 0; i < width; i++ {
			out[i] = a[i] - b[i]
		}
		return out
	case OpMul:
		// Vector*scalar (the only mixed-arity case the type rules allow
		// for *) always arrives with the vector as a and the scalar's
		// single meaningful lane in b[0]; the codegen swap in
		// compileBinary guarantees this ordering, so width>1 always means
		// "broadcast b[0]" rather than an elementwise vector*vector.
		if width > 1 {
			for i := 0; i < width; i++ {
				out[i] = a[i] * b[0]
			}
			return out
		}
		out[0] = a[0] * b[0]
		return out
	case OpDiv:
		if width > 1 {
			for i := 0; i < width; i++ {
				out[i] = a[i] / b[0]
			}
			return out
		}
		out[0] = a[0] / b[0]
		return out
	case OpDot:
		var sum float32
		for i := 0; i < width; i++ {
			sum += a[i] * b[i]
		}
		out[0] = sum
		return out
	case OpCross:
		// Right-hand-rule cross product, vec3 only.
		out[0] = a[1]*b[2] - a[2]*b[1]
		out[1] = a[2]*b[0] - a[0]*b[2]
		out[2] = a[0]*b[1] - a[1]*b[0]
		return out
	case OpMin:
		for i := 0; i < width; i++ {
			out[i] = float32(math.Min(float64(a[i]), float64(b[i])))
		}
		return out
	case OpMax:
		for i := 0; i < width; i++ {
			out[i] = float32(math.Max(float64(a[i]), float64(b[i])))
		}
		return out
	default:
		return out
	}
}

// kernelCompare evaluates one scalar comparison and returns a flag byte
// with bit 0 set on true, matching the flag-buffer format the ternary
// lowering expects (see compileTernary in codegen.go).
func kernelCompare(name string, x, y float32) byte {
	var result bool
	switch name {
	case OpCmpLt:
		result = x < y
	case OpCmpGt:
		result = x > y
	case OpCmpLe:
		result = x <= y
	case OpCmpGe:
		result = x >= y
	case OpCmpEq:
		result = x == y
	}
	if result {
		return 1
	}
	return 0
}
