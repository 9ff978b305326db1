// Package codegen emits LLVM IR for a lowered and validated project.
//
// The emitter reads the AST together with the annotations of the lowered
// project. Every expression becomes a GeneratedValue: an RValue holding a
// value, an LValue holding the address of storage, or NoValue. A node
// without an annotation, or an RValue where storage is required, is a
// compiler bug and panics with an *InternalError.
package codegen

import (
	"fmt"

	"github.com/llir/llvm/ir"
	"github.com/llir/llvm/ir/constant"
	irtypes "github.com/llir/llvm/ir/types"
	"github.com/tliron/commonlog"

	"plcc/internal/ast"
	"plcc/internal/index"
	"plcc/internal/resolver"
	"plcc/internal/types"
)

var log = commonlog.GetLogger("plcc.codegen")

// AddrSpace numbers the LLVM address spaces the emitter distinguishes.
type AddrSpace uint8

const (
	AddrGeneric AddrSpace = 0
	AddrGlobal  AddrSpace = 1
	AddrConst   AddrSpace = 4
)

// Sections that hold load-time constructors and destructors.
const (
	SectionInitArray = ".init_array"
	SectionFiniArray = ".fini_array"
	SectionCtors     = ".ctors"
	SectionDtors     = ".dtors"
)

// ConstructorSection selects the section constructors are registered in.
func ConstructorSection(useInitArray bool) string {
	if useInitArray {
		return SectionInitArray
	}
	return SectionCtors
}

// DestructorSection selects the section destructors are registered in.
func DestructorSection(useInitArray bool) string {
	if useInitArray {
		return SectionFiniArray
	}
	return SectionDtors
}

type Options struct {
	// ModuleName becomes the source_filename of the module.
	ModuleName string
	// Target is the target triple, "" leaves it unset.
	Target string
	// UseInitArray registers constructors in .init_array/.fini_array
	// instead of .ctors/.dtors.
	UseInitArray bool
	// Constructor and Destructor name functions to run at load and unload
	// time, "" for none.
	Constructor string
	Destructor  string
}

// Emitter translates one project into one module.
type Emitter struct {
	idx *index.Index
	m   *resolver.AnnotationMap
	opt Options
	mod *ir.Module

	structs    map[string]*irtypes.StructType
	funcs      map[string]*ir.Func
	globals    map[string]*ir.Global
	intrinsics map[string]*ir.Func
	bodies     []body
	strings    int
}

// body pairs a declared function with the implementation to emit into it.
type body struct {
	pou  *index.PouEntry
	impl *ast.Implementation
}

// Generate emits units. idx and m must describe the lowered units; the
// validator must have accepted them.
func Generate(units []*ast.CompilationUnit, idx *index.Index, m *resolver.AnnotationMap, opt Options) (*ir.Module, error) {
	e := &Emitter{
		idx:        idx,
		m:          m,
		opt:        opt,
		mod:        ir.NewModule(),
		structs:    map[string]*irtypes.StructType{},
		funcs:      map[string]*ir.Func{},
		globals:    map[string]*ir.Global{},
		intrinsics: map[string]*ir.Func{},
	}
	e.mod.SourceFilename = opt.ModuleName
	e.mod.TargetTriple = opt.Target

	e.declareTypes()
	if err := e.declareFunctions(units); err != nil {
		return nil, err
	}
	if err := e.emitGlobals(units); err != nil {
		return nil, err
	}
	for _, b := range e.bodies {
		e.emitBody(b.pou, b.impl)
	}
	if err := e.registerStructors(); err != nil {
		return nil, err
	}
	log.Infof("emitted %d functions, %d globals", len(e.mod.Funcs), len(e.mod.Globals))
	return e.mod, nil
}

// info finds the effective descriptor of a type name.
func (e *Emitter) info(name string) *types.Info {
	return e.idx.FindEffectiveTypeInfo(name)
}

// mustInfo is info for names the validator has already accepted.
func (e *Emitter) mustInfo(name string) *types.Info {
	t := e.info(name)
	if t == nil {
		panic(internalf(nil, "unknown type %q", name))
	}
	return t
}

// registerStructors puts the constructor and destructor into their
// sections through pointer globals kept alive by @llvm.used.
func (e *Emitter) registerStructors() error {
	var used []constant.Constant
	add := func(name, section, slot string) error {
		if name == "" {
			return nil
		}
		f, ok := e.funcs[types.Key(name)]
		if !ok {
			return fmt.Errorf("function %s to register in %s is not emitted", name, section)
		}
		g := e.mod.NewGlobalDef(slot, f)
		g.Section = section
		g.Linkage = enumInternal
		used = append(used, constant.NewBitCast(g, bytePtr))
		log.Debugf("registered %s in %s", name, section)
		return nil
	}
	if err := add(e.opt.Constructor, ConstructorSection(e.opt.UseInitArray), "__plcc_ctor"); err != nil {
		return err
	}
	if err := add(e.opt.Destructor, DestructorSection(e.opt.UseInitArray), "__plcc_dtor"); err != nil {
		return err
	}
	if len(used) == 0 {
		return nil
	}
	arr := constant.NewArray(irtypes.NewArray(uint64(len(used)), bytePtr), used...)
	g := e.mod.NewGlobalDef("llvm.used", arr)
	g.Linkage = enumAppending
	g.Section = "llvm.metadata"
	return nil
}
