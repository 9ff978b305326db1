package codegen

import (
	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"plcc/internal/ast"
	"plcc/internal/types"
)

func (fe *funcEmitter) statements(list []ast.Statement) {
	for _, s := range list {
		fe.statement(s)
	}
}

func (fe *funcEmitter) statement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.Assignment:
		fe.assign(n)
	case *ast.CallStatement:
		fe.call(n)
	case *ast.IfStatement:
		fe.ifStatement(n)
	case *ast.CaseStatement:
		fe.caseStatement(n)
	case *ast.ForLoop:
		fe.forLoop(n)
	case *ast.WhileLoop:
		fe.whileLoop(n)
	case *ast.RepeatLoop:
		fe.repeatLoop(n)
	case *ast.ExitStatement:
		fe.jump(fe.innermost(n).exit)
		fe.terminated()
	case *ast.ContinueStatement:
		fe.jump(fe.innermost(n).next)
		fe.terminated()
	case *ast.ReturnStatement:
		fe.jump(fe.ret)
		fe.terminated()
	case *ast.EmptyStatement:
	default:
		// a bare expression; evaluated for its side effects
		fe.emit(s)
	}
}

func (fe *funcEmitter) innermost(n ast.Node) loop {
	if len(fe.loops) == 0 {
		panic(internalf(n, "EXIT or CONTINUE outside of a loop"))
	}
	return fe.loops[len(fe.loops)-1]
}

func (fe *funcEmitter) body(list []ast.Statement, l loop) {
	fe.loops = append(fe.loops, l)
	fe.statements(list)
	fe.loops = fe.loops[:len(fe.loops)-1]
}

func (fe *funcEmitter) assign(n *ast.Assignment) {
	if ma, ok := n.Left.(*ast.MemberAccess); ok {
		if d, ok := ma.Member.(*ast.DirectAccess); ok {
			fe.bitWrite(ma, d, n.Right)
			return
		}
	}
	fe.store(fe.emit(n.Left), n.Right)
}

// bitWrite stores into a bit field of an integer: read, mask, write back.
func (fe *funcEmitter) bitWrite(ma *ast.MemberAccess, d *ast.DirectAccess, rhs ast.Statement) {
	e := fe.e
	base := fe.emit(ma.Base)
	ptr := fe.address(base)
	old := fe.load(base)
	it, ok := old.Type().(*irtypes.IntType)
	if !ok {
		panic(internalf(ma, "bit access on a non-integer"))
	}
	t := e.mustInfo(fe.ann(ma).Type)
	v := fe.resizeInt(fe.valueAs(rhs, t), it, false)
	width := uint64(d.Kind.Bits())
	if width >= it.BitSize {
		fe.cur.NewStore(v, ptr)
		return
	}
	shift := fe.bitShift(d, it)
	mask := value.Value(constant.NewInt(it, int64(1)<<width-1))
	if !isZeroShift(shift) {
		v = fe.cur.NewShl(v, shift)
		mask = fe.cur.NewShl(mask, shift)
	}
	cleared := fe.cur.NewAnd(old, fe.cur.NewXor(mask, allOnes(it)))
	fe.cur.NewStore(fe.cur.NewOr(cleared, v), ptr)
}

func (fe *funcEmitter) condition(s ast.Statement) value.Value {
	return fe.valueAs(s, fe.e.mustInfo(types.BOOL))
}

func (fe *funcEmitter) ifStatement(n *ast.IfStatement) {
	end := fe.newBlock("if.end")
	for _, arm := range n.Blocks {
		then, next := fe.newBlock("if.then"), fe.newBlock("if.else")
		fe.cur.NewCondBr(fe.condition(arm.Condition), then, next)
		fe.enter(then)
		fe.statements(arm.Body)
		fe.jump(end)
		fe.enter(next)
	}
	fe.statements(n.Else)
	fe.jump(end)
	fe.enter(end)
}

func (fe *funcEmitter) whileLoop(n *ast.WhileLoop) {
	cond, body, exit := fe.newBlock("while.cond"), fe.newBlock("while.body"), fe.newBlock("while.end")
	fe.jump(cond)
	fe.enter(cond)
	fe.cur.NewCondBr(fe.condition(n.Condition), body, exit)
	fe.enter(body)
	fe.body(n.Body, loop{exit: exit, next: cond})
	fe.jump(cond)
	fe.enter(exit)
}

// repeatLoop runs its body before the first test; UNTIL exits on TRUE.
func (fe *funcEmitter) repeatLoop(n *ast.RepeatLoop) {
	body, cond, exit := fe.newBlock("repeat.body"), fe.newBlock("repeat.cond"), fe.newBlock("repeat.end")
	fe.jump(body)
	fe.enter(body)
	fe.body(n.Body, loop{exit: exit, next: cond})
	fe.jump(cond)
	fe.enter(cond)
	fe.cur.NewCondBr(fe.condition(n.Condition), exit, body)
	fe.enter(exit)
}

// forLoop evaluates the end and step once. A step of unknown sign tests
// the direction on every iteration.
func (fe *funcEmitter) forLoop(n *ast.ForLoop) {
	counter := fe.emit(n.Counter)
	ptr := fe.address(counter)
	ct := counter.Type
	fe.store(counter, n.Start)
	end := fe.valueAs(n.End, ct)
	var step value.Value
	if n.By != nil {
		step = fe.valueAs(n.By, ct)
	} else {
		step = fe.one(ct)
	}
	signed := fe.e.signed(ct)

	cond, body, incr, exit := fe.newBlock("for.cond"), fe.newBlock("for.body"), fe.newBlock("for.incr"), fe.newBlock("for.end")
	fe.jump(cond)
	fe.enter(cond)
	c := fe.load(counter)
	var test value.Value
	switch dir := stepSign(step); {
	case dir > 0 || dir == 0 && !signed:
		test = fe.compare(ast.OpLessOrEqual, c, end, signed)
	case dir < 0:
		test = fe.compare(ast.OpGreaterOrEqual, c, end, signed)
	default:
		up := fe.compare(ast.OpGreaterOrEqual, step, fe.zeroOf(step), signed)
		test = fe.cur.NewSelect(up,
			fe.compare(ast.OpLessOrEqual, c, end, signed),
			fe.compare(ast.OpGreaterOrEqual, c, end, signed))
	}
	fe.cur.NewCondBr(test, body, exit)

	fe.enter(body)
	fe.body(n.Body, loop{exit: exit, next: incr})
	fe.jump(incr)

	fe.enter(incr)
	cur := fe.cur.NewLoad(fe.e.llType(ct), ptr)
	var next value.Value
	if _, ok := cur.Type().(*irtypes.FloatType); ok {
		next = fe.cur.NewFAdd(cur, step)
	} else {
		next = fe.cur.NewAdd(cur, step)
	}
	fe.cur.NewStore(next, ptr)
	fe.jump(cond)
	fe.enter(exit)
}

// stepSign is the sign of a constant step, 0 when it is not constant.
func stepSign(v value.Value) int {
	switch c := v.(type) {
	case *constant.Int:
		if c.X.Sign() < 0 {
			return -1
		}
		return 1
	case *constant.Float:
		if c.X.Sign() < 0 {
			return -1
		}
		return 1
	}
	return 0
}

func (fe *funcEmitter) one(t *types.Info) value.Value {
	switch typ := fe.e.llType(t).(type) {
	case *irtypes.IntType:
		return constant.NewInt(typ, 1)
	case *irtypes.FloatType:
		return constant.NewFloat(typ, 1)
	}
	panic(internalf(nil, "FOR counter of type %s", t.Name))
}

func (fe *funcEmitter) zeroOf(v value.Value) value.Value {
	switch typ := v.Type().(type) {
	case *irtypes.IntType:
		return constant.NewInt(typ, 0)
	case *irtypes.FloatType:
		return constant.NewFloat(typ, 0)
	}
	panic(internalf(nil, "no zero of %s", v.Type()))
}

// caseStatement uses a switch when every label is a single integer
// constant and a chain of comparisons otherwise.
func (fe *funcEmitter) caseStatement(n *ast.CaseStatement) {
	sel := fe.emit(n.Selector)
	st := sel.Type
	v := fe.load(sel)
	end, other := fe.newBlock("case.end"), fe.newBlock("case.else")
	arms := make([]*ir.Block, len(n.Blocks))
	for i := range arms {
		arms[i] = fe.newBlock("case.arm")
	}
	if cases, ok := fe.switchCases(n, st, arms); ok {
		fe.cur.NewSwitch(v, other, cases...)
	} else {
		for i, arm := range n.Blocks {
			for _, label := range arm.Labels {
				next := fe.newBlock("case.next")
				fe.cur.NewCondBr(fe.matches(v, st, label), arms[i], next)
				fe.enter(next)
			}
		}
		fe.jump(other)
	}
	for i, arm := range n.Blocks {
		fe.enter(arms[i])
		fe.statements(arm.Body)
		fe.jump(end)
	}
	fe.enter(other)
	fe.statements(n.Else)
	fe.jump(end)
	fe.enter(end)
}

func (fe *funcEmitter) switchCases(n *ast.CaseStatement, st *types.Info, arms []*ir.Block) ([]*ir.Case, bool) {
	if _, ok := fe.e.llType(st).(*irtypes.IntType); !ok {
		return nil, false
	}
	var cases []*ir.Case
	seen := map[string]bool{}
	for i, arm := range n.Blocks {
		for _, label := range arm.Labels {
			if _, isRange := label.(*ast.RangeStatement); isRange {
				return nil, false
			}
			c, ok := fe.e.constant(label, st, fe.pou.Name)
			if !ok {
				return nil, false
			}
			ci, ok := c.(*constant.Int)
			if !ok {
				return nil, false
			}
			// the first arm wins a duplicated label
			if k := ci.X.String(); !seen[k] {
				seen[k] = true
				cases = append(cases, ir.NewCase(ci, arms[i]))
			}
		}
	}
	return cases, true
}

// matches tests the selector v against one label.
func (fe *funcEmitter) matches(v value.Value, st *types.Info, label ast.Statement) value.Value {
	signed := fe.e.signed(st)
	if r, ok := label.(*ast.RangeStatement); ok {
		lo := fe.compare(ast.OpGreaterOrEqual, v, fe.valueAs(r.Start, st), signed)
		hi := fe.compare(ast.OpLessOrEqual, v, fe.valueAs(r.End, st), signed)
		return fe.cur.NewAnd(lo, hi)
	}
	return fe.compare(ast.OpEqual, v, fe.valueAs(label, st), signed)
}
