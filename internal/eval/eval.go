package eval

import (
	"math"
	"math/bits"

	"github.com/gnoswap-labs/unroll/internal/ast"
	"github.com/gnoswap-labs/unroll/internal/constant"
)

// Eval evaluates expr as a constant. Anything that cannot be determined at
// compile time yields constant.Invalid; Eval never panics on non-constant
// input.
func (c *Context) Eval(expr ast.Expr) constant.Value {
	ev := evaluator{ctx: c}
	return ev.eval(expr)
}

type evaluator struct {
	ctx *Context
}

func (ev *evaluator) eval(expr ast.Expr) constant.Value {
	switch e := expr.(type) {
	case *ast.IntegerLiteral:
		return constant.Int(e.Value)
	case *ast.RealLiteral:
		return constant.Real(e.Value)
	case *ast.StringLiteral:
		return constant.Str(e.Value)
	case *ast.NamedValue:
		return ev.evalNamed(e)
	case *ast.UnaryExpr:
		return ev.evalUnary(e)
	case *ast.BinaryExpr:
		if e.Op == ast.OpLogicalAnd || e.Op == ast.OpLogicalOr {
			return ev.evalLogical(e)
		}
		return binary(e.Op, ev.eval(e.Left), ev.eval(e.Right))
	case *ast.ConditionalExpr:
		truth, ok := ev.eval(e.Cond).Truth()
		if !ok {
			return constant.Value{}
		}
		if truth {
			return ev.eval(e.IfTrue)
		}
		return ev.eval(e.IfFalse)
	case *ast.AssignmentExpr:
		return ev.evalAssign(e)
	case *ast.AggregateExpr:
		elems := make([]constant.Value, len(e.Elements))
		for i, el := range e.Elements {
			elems[i] = ev.eval(el)
		}
		return constant.Agg(elems...)
	case *ast.ElementSelectExpr:
		idx, ok := ev.eval(e.Selector).AsInt()
		if !ok {
			return constant.Value{}
		}
		return ev.eval(e.Value).Index(idx)
	case *ast.CallExpr:
		return ev.evalCall(e)
	default:
		return constant.Value{}
	}
}

func (ev *evaluator) evalNamed(e *ast.NamedValue) constant.Value {
	switch sym := e.Symbol.(type) {
	case *ast.Parameter:
		return ev.evalParam(sym)
	case *ast.Variable:
		// only locals bound by the current walk have a known value
		if slot, ok := ev.ctx.FindLocal(sym); ok {
			return slot.Get()
		}
		return constant.Value{}
	default:
		return constant.Value{}
	}
}

// evalParam evaluates a parameter's value once per Context. A parameter
// reached again while its own value is being computed is Invalid.
func (ev *evaluator) evalParam(p *ast.Parameter) constant.Value {
	if p.Value == nil {
		return constant.Value{}
	}
	if v, ok := ev.ctx.params[p]; ok {
		return v
	}
	if ev.ctx.pending[p] {
		return constant.Value{}
	}
	ev.ctx.pending[p] = true
	v := ev.eval(p.Value)
	delete(ev.ctx.pending, p)
	ev.ctx.params[p] = v
	return v
}

func (ev *evaluator) evalLogical(e *ast.BinaryExpr) constant.Value {
	left, ok := ev.eval(e.Left).Truth()
	if !ok {
		return constant.Value{}
	}
	if e.Op == ast.OpLogicalAnd && !left {
		return constant.Bool(false)
	}
	if e.Op == ast.OpLogicalOr && left {
		return constant.Bool(true)
	}
	right, ok := ev.eval(e.Right).Truth()
	if !ok {
		return constant.Value{}
	}
	return constant.Bool(right)
}

func (ev *evaluator) evalUnary(e *ast.UnaryExpr) constant.Value {
	switch e.Op {
	case ast.OpPreincrement, ast.OpPredecrement, ast.OpPostincrement, ast.OpPostdecrement:
		slot, ok := ev.lvalue(e.Operand)
		if !ok {
			return constant.Value{}
		}
		old := slot.Get()
		delta := ast.OpAdd
		if e.Op == ast.OpPredecrement || e.Op == ast.OpPostdecrement {
			delta = ast.OpSub
		}
		updated := binary(delta, old, constant.Int(1))
		if updated.Bad() {
			return updated
		}
		slot.Set(updated)
		if e.Op.IsPostfix() {
			return old
		}
		return updated
	}

	v := ev.eval(e.Operand)
	switch e.Op {
	case ast.OpPlus:
		if v.IsNumeric() {
			return v
		}
	case ast.OpMinus:
		if i, ok := v.AsInt(); ok {
			if i == math.MinInt64 {
				return constant.Value{}
			}
			return constant.Int(-i)
		}
		if r, ok := v.AsReal(); ok {
			return constant.Real(-r)
		}
	case ast.OpLogicalNot:
		if truth, ok := v.Truth(); ok {
			return constant.Bool(!truth)
		}
	case ast.OpBitwiseNot:
		if i, ok := v.AsInt(); ok {
			return constant.Int(^i)
		}
	}
	return constant.Value{}
}

func (ev *evaluator) evalAssign(e *ast.AssignmentExpr) constant.Value {
	slot, ok := ev.lvalue(e.Left)
	if !ok {
		return constant.Value{}
	}
	rhs := ev.eval(e.Right)
	if e.Op != ast.OpNone {
		rhs = binary(e.Op, slot.Get(), rhs)
	}
	if rhs.Bad() {
		return rhs
	}
	slot.Set(rhs)
	return rhs
}

// lvalue resolves an assignment target to the slot of a bound local.
func (ev *evaluator) lvalue(target ast.Expr) (*Slot, bool) {
	nv, ok := target.(*ast.NamedValue)
	if !ok {
		return nil, false
	}
	v, ok := nv.Symbol.(*ast.Variable)
	if !ok {
		return nil, false
	}
	return ev.ctx.FindLocal(v)
}

func (ev *evaluator) evalCall(e *ast.CallExpr) constant.Value {
	args := make([]constant.Value, len(e.Args))
	for i, a := range e.Args {
		args[i] = ev.eval(a)
		if args[i].Bad() {
			return constant.Value{}
		}
	}

	switch e.Func {
	case "$clog2":
		if len(args) != 1 {
			break
		}
		n, ok := args[0].AsInt()
		if !ok || n < 0 {
			break
		}
		if n <= 1 {
			return constant.Int(0)
		}
		return constant.Int(int64(bits.Len64(uint64(n - 1))))
	case "$size":
		if len(args) != 1 {
			break
		}
		if s, ok := args[0].AsString(); ok {
			return constant.Int(int64(len(s)))
		}
		if n := args[0].Len(); n >= 0 {
			return constant.Int(int64(n))
		}
	case "$abs":
		if len(args) != 1 {
			break
		}
		if i, ok := args[0].AsInt(); ok && i != math.MinInt64 {
			if i < 0 {
				i = -i
			}
			return constant.Int(i)
		}
		if r, ok := args[0].AsReal(); ok {
			return constant.Real(math.Abs(r))
		}
	}
	// user functions are never invoked
	return constant.Value{}
}

func binary(op ast.BinaryOp, l, r constant.Value) constant.Value {
	if l.Bad() || r.Bad() {
		return constant.Value{}
	}

	switch op {
	case ast.OpEq, ast.OpNeq:
		if !equatable(l, r) {
			return constant.Value{}
		}
		eq := l.Equal(r)
		if op == ast.OpNeq {
			eq = !eq
		}
		return constant.Bool(eq)
	case ast.OpLt, ast.OpLte, ast.OpGt, ast.OpGte:
		cmp, ok := l.Compare(r)
		if !ok {
			return constant.Value{}
		}
		switch op {
		case ast.OpLt:
			return constant.Bool(cmp < 0)
		case ast.OpLte:
			return constant.Bool(cmp <= 0)
		case ast.OpGt:
			return constant.Bool(cmp > 0)
		default:
			return constant.Bool(cmp >= 0)
		}
	case ast.OpAdd:
		if ls, ok := l.AsString(); ok {
			if rs, ok := r.AsString(); ok {
				return constant.Str(ls + rs)
			}
			return constant.Value{}
		}
	}

	if li, ok := l.AsInt(); ok {
		if ri, ok := r.AsInt(); ok {
			return intBinary(op, li, ri)
		}
	}
	lf, lok := l.AsReal()
	rf, rok := r.AsReal()
	if lok && rok {
		return realBinary(op, lf, rf)
	}
	return constant.Value{}
}

func equatable(l, r constant.Value) bool {
	if l.IsNumeric() && r.IsNumeric() {
		return true
	}
	return l.Kind() == r.Kind()
}

func intBinary(op ast.BinaryOp, l, r int64) constant.Value {
	switch op {
	case ast.OpAdd:
		return constant.Int(l + r)
	case ast.OpSub:
		return constant.Int(l - r)
	case ast.OpMul:
		return constant.Int(l * r)
	case ast.OpDiv:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return constant.Value{}
		}
		return constant.Int(l / r)
	case ast.OpMod:
		if r == 0 || (l == math.MinInt64 && r == -1) {
			return constant.Value{}
		}
		return constant.Int(l % r)
	case ast.OpPow:
		return intPow(l, r)
	case ast.OpBitAnd:
		return constant.Int(l & r)
	case ast.OpBitOr:
		return constant.Int(l | r)
	case ast.OpBitXor:
		return constant.Int(l ^ r)
	case ast.OpShl:
		if r < 0 {
			return constant.Value{}
		}
		return constant.Int(l << uint64(r))
	case ast.OpShr:
		if r < 0 {
			return constant.Value{}
		}
		return constant.Int(l >> uint64(r))
	default:
		return constant.Value{}
	}
}

func intPow(base, exp int64) constant.Value {
	if exp < 0 {
		return constant.Value{}
	}
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		exp >>= 1
		if exp > 0 {
			base *= base
		}
	}
	return constant.Int(result)
}

func realBinary(op ast.BinaryOp, l, r float64) constant.Value {
	switch op {
	case ast.OpAdd:
		return constant.Real(l + r)
	case ast.OpSub:
		return constant.Real(l - r)
	case ast.OpMul:
		return constant.Real(l * r)
	case ast.OpDiv:
		if r == 0 {
			return constant.Value{}
		}
		return constant.Real(l / r)
	case ast.OpPow:
		return constant.Real(math.Pow(l, r))
	default:
		return constant.Value{}
	}
}
