package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/llir/llvm/ir/value"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

// slot is the storage of a local: the address of its alloca, or of the
// caller's variable for function outputs.
type slot struct {
	ptr value.Value
	t   *types.Info
}

// loop holds the branch targets of the innermost loop.
type loop struct {
	exit, next *ir.Block
}

type funcEmitter struct {
	e   *Emitter
	pou *index.PouEntry
	fn  *ir.Func

	entry   *ir.Block
	cur     *ir.Block
	ret     *ir.Block
	allocas int
	blocks  int

	self   value.Value // instance pointer of stateful POUs and actions
	locals map[string]slot
	loops  []loop
	hints  hints
}

func (e *Emitter) emitBody(p *index.PouEntry, impl *ast.Implementation) {
	fe := &funcEmitter{
		e:      e,
		pou:    p,
		fn:     e.funcs[types.Key(p.Name)],
		locals: map[string]slot{},
	}
	fe.entry = fe.fn.NewBlock("entry")
	fe.cur = fe.entry
	fe.ret = ir.NewBlock("return")
	fe.prologue()
	if impl != nil {
		fe.statements(impl.Statements)
	}
	if fe.hints.Len() != 0 {
		panic(internalf(nil, "%s: %d type hints left on the stack", p.Name, fe.hints.Len()))
	}
	fe.epilogue()
	log.Debugf("emitted body of %s", p.Name)
}

// prologue binds parameters and allocates locals. Locals start from their
// declared initial value on every call; state lives in the instance.
func (fe *funcEmitter) prologue() {
	e := fe.e
	stateful := fe.pou.Kind.IsStateful() || fe.pou.Kind == ast.PouAction
	if stateful {
		fe.self = fe.fn.Params[0]
	}
	param := 0
	for _, v := range e.idx.Members(fe.pou.Name).Values() {
		t := e.mustInfo(v.Type)
		k := types.Key(v.Name)
		switch {
		case v.Kind == ast.VarExternal:
			continue
		case stateful && v.Kind != ast.VarTemp:
			continue
		case v.IsParameter():
			arg := fe.fn.Params[param]
			param++
			switch {
			case v.Kind == ast.VarOutput:
				fe.locals[k] = slot{ptr: arg, t: t}
			case v.Kind == ast.VarInput && byReference(t):
				a := fe.alloca(t, v.Name)
				fe.cur.NewStore(fe.cur.NewLoad(e.llType(t), arg), a)
				fe.locals[k] = slot{ptr: a, t: t}
			default:
				a := fe.alloca(t, v.Name)
				fe.cur.NewStore(arg, a)
				fe.locals[k] = slot{ptr: a, t: t}
			}
		default:
			a := fe.alloca(t, v.Name)
			fe.cur.NewStore(e.initialValue(v.Initial, t, fe.pou.Name), a)
			fe.locals[k] = slot{ptr: a, t: t}
		}
	}
}

// epilogue falls through into the return block and returns the result.
func (fe *funcEmitter) epilogue() {
	fe.jump(fe.ret)
	fe.enter(fe.ret)
	rv := fe.e.idx.ReturnVariable(fe.pou.Name)
	if rv == nil || fe.fn.Sig.RetType.Equal(voidType) {
		fe.cur.NewRet(nil)
		return
	}
	s, ok := fe.locals[types.Key(rv.Name)]
	if !ok {
		panic(internalf(nil, "%s has no return slot", fe.pou.Name))
	}
	fe.cur.NewRet(fe.cur.NewLoad(fe.e.llType(s.t), s.ptr))
}

// alloca reserves a stack slot in the entry block, ahead of any code.
func (fe *funcEmitter) alloca(t *types.Info, name string) *ir.InstAlloca {
	a := fe.allocaOf(fe.e.llType(t))
	if name != "" {
		a.SetName(name)
	}
	return a
}

func (fe *funcEmitter) allocaOf(typ irtypes.Type) *ir.InstAlloca {
	a := ir.NewAlloca(typ)
	insts := fe.entry.Insts
	insts = append(insts, nil)
	copy(insts[fe.allocas+1:], insts[fe.allocas:])
	insts[fe.allocas] = a
	fe.entry.Insts = insts
	fe.allocas++
	return a
}

// newBlock creates a block that is placed in the function once entered.
func (fe *funcEmitter) newBlock(prefix string) *ir.Block {
	fe.blocks++
	return ir.NewBlock(fmt.Sprintf("%s%d", prefix, fe.blocks))
}

func (fe *funcEmitter) enter(b *ir.Block) {
	b.Parent = fe.fn
	fe.fn.Blocks = append(fe.fn.Blocks, b)
	fe.cur = b
}

// jump branches to b unless the current block already ended.
func (fe *funcEmitter) jump(b *ir.Block) {
	if fe.cur.Term == nil {
		fe.cur.NewBr(b)
	}
}

// terminated moves emission into a fresh block after an unconditional
// jump, so that statements after EXIT or RETURN still have a home.
func (fe *funcEmitter) terminated() {
	fe.enter(fe.newBlock("dead"))
}

// ann is the annotation of a node the emitter cannot do without.
func (fe *funcEmitter) ann(n ast.Node) resolver.Annotation {
	a, ok := fe.e.m.Get(n)
	if !ok {
		panic(internalf(n, "%s has no annotation", describeNode(n)))
	}
	return a
}

func describeNode(n ast.Node) string {
	if s, ok := n.(ast.Statement); ok {
		return fmt.Sprintf("%q", ast.PrintStatement(s))
	}
	return fmt.Sprintf("node %d", n.GetID())
}
