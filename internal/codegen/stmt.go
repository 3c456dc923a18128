package codegen

import (
	"github.com/cwbudde/clean-wasmc/internal/ast"
	"github.com/cwbudde/clean-wasmc/internal/memlayout"
	"github.com/cwbudde/clean-wasmc/internal/semantic"
	"github.com/cwbudde/clean-wasmc/internal/types"
)

// lowerBlock lowers every statement in a block inside a fresh scope, so
// locals declared in it are released at the closing brace (spec §9's
// SiteScopeExit).
func (fb *funcBuilder) lowerBlock(b *ast.BlockStatement) {
	fb.pushScope()
	for _, s := range b.Statements {
		fb.lowerStatement(s)
	}
	fb.popScope()
}

func (fb *funcBuilder) lowerStatement(s ast.Statement) {
	switch n := s.(type) {
	case *ast.VarDecl:
		fb.lowerVarDecl(n)
	case *ast.Assignment:
		fb.lowerAssignment(n)
	case *ast.IfStatement:
		fb.lowerIf(n)
	case *ast.IterateRangeStatement:
		fb.lowerIterateRange(n)
	case *ast.IterateCollectionStatement:
		fb.lowerIterateCollection(n)
	case *ast.WhileStatement:
		fb.lowerWhile(n)
	case *ast.BreakStatement:
		fb.e.br(fb.breakIndex())
	case *ast.ContinueStatement:
		fb.e.br(fb.continueIndex())
	case *ast.ReturnStatement:
		fb.lowerReturn(n)
	case *ast.ErrorStatement:
		fb.lowerError(n)
	case *ast.PrintStatement:
		fb.lowerPrint(n)
	case *ast.BackgroundStatement:
		// No real concurrency target (spec §9's Future surface is type-
		// level only on this backend, see lowerExpr's StartExpression
		// case); evaluate for effect and discard.
		fb.lowerExpr(n.Expr)
		if t := fb.exprType(n.Expr); !types.Equal(t, types.Void) {
			fb.e.drop()
		}
	case *ast.ExpressionStatement:
		fb.lowerExpr(n.Expr)
		if t := fb.exprType(n.Expr); !types.Equal(t, types.Void) {
			fb.e.drop()
		}
	}
}

func (fb *funcBuilder) lowerVarDecl(n *ast.VarDecl) {
	t := fb.cg.result.ExprTypes[n.Initializer]
	if t == nil {
		t = types.Any
	}
	slot := fb.addLocal(n.Name, t)
	if n.Initializer != nil {
		fb.lowerExpr(n.Initializer)
		if isHeapPointer(t) {
			fb.e.localTee(slot)
			fb.emitRetain(t)
			fb.e.drop()
			return
		}
		fb.e.localSet(slot)
	}
}

// lowerAssignment handles identifier and field targets (spec §9's
// SiteAssignment: retain the new value, release the value being
// overwritten). Index-target assignment (`list[i] = v`) goes through the
// List.set helper directly, matching lowerIndexAccess's read path.
func (fb *funcBuilder) lowerAssignment(n *ast.Assignment) {
	valT := fb.cg.result.ExprTypes[n.Value]
	switch target := n.Target.(type) {
	case *ast.Identifier:
		lv, ok := fb.lookupLocal(target.Value)
		if !ok {
			if fb.class != nil {
				if _, owner, ok := fb.cg.fieldLookup(fb.class, target.Value); ok {
					fb.e.localGet(0) // this
					fb.storeFieldOnStackReceiver(owner, target.Value, n.Value, valT)
					return
				}
			}
			fb.lowerExpr(n.Value)
			if isHeapPointer(valT) {
				fb.e.drop()
			}
			return
		}
		if isHeapPointer(lv.typ) {
			fb.e.localGet(lv.slot)
			fb.emitRelease(lv.typ)
		}
		fb.lowerExpr(n.Value)
		if isHeapPointer(valT) {
			fb.e.localTee(lv.slot)
			fb.emitRetain(valT)
			fb.e.drop()
			return
		}
		fb.e.localSet(lv.slot)
	case *ast.PropertyAccess:
		recvT := fb.exprType(target.Receiver)
		cls, ok := recvT.(*types.Class)
		if !ok {
			return
		}
		info := fb.cg.classes[cls.Name]
		if info == nil {
			return
		}
		fb.lowerExpr(target.Receiver)
		if _, owner, ok := fb.cg.fieldLookup(info, target.Name); ok {
			fb.storeFieldOnStackReceiver(owner, target.Name, n.Value, valT)
			return
		}
		fb.e.drop()
	case *ast.IndexAccess:
		fb.lowerExpr(target.Receiver)
		fb.lowerExpr(target.Indices[0])
		fb.lowerExpr(n.Value)
		fb.e.call(fb.cg.listSetFuncIdx)
	}
}

// storeFieldOnStackReceiver stores into a field given the receiver
// pointer already sitting on top of the stack.
func (fb *funcBuilder) storeFieldOnStackReceiver(owner *semantic.ClassInfo, name string, value ast.Expression, valT types.Type) {
	layout := fb.cg.classLayouts[owner.Decl.Name]
	off := uint32(layout.FieldOffsets[name])
	// stack: receiverPtr
	if isHeapPointer(valT) {
		recvSlot := fb.scratchForRetain()
		fb.e.localSet(recvSlot)
		fb.e.localGet(recvSlot)
		fb.e.i32Load(off)
		fb.emitRelease(valT)
		fb.e.localGet(recvSlot)
		fb.lowerExpr(value)
		fb.e.localTee(fb.scratchForRetain2())
		fb.emitRetain(valT)
		fb.e.drop()
		fb.e.localGet(fb.scratchForRetain2())
		fb.e.i32Store(off)
		return
	}
	fb.lowerExpr(value)
	fb.e.i32Store(off)
}

func (fb *funcBuilder) scratchForRetain2() uint32 {
	if fb.retainScratch2 == nil {
		slot := fb.addLocal("$retain_scratch2", types.Integer)
		fb.retainScratch2 = &slot
	}
	return *fb.retainScratch2
}

func (fb *funcBuilder) lowerIf(n *ast.IfStatement) {
	fb.lowerExpr(n.Condition)
	fb.openIf()
	fb.lowerBlock(n.Then)
	if n.Else != nil {
		fb.e.elseStart()
		fb.lowerBlock(n.Else)
	}
	fb.closeLabel()
}

func (fb *funcBuilder) lowerWhile(n *ast.WhileStatement) {
	blockMark := fb.openBlock()
	loopMark := fb.openLoop()
	fb.loopStack = append(fb.loopStack, loopCtx{breakAtDepth: blockMark, continueAtDepth: loopMark})

	fb.lowerExpr(n.Condition)
	fb.e.op(opI32Eqz)
	fb.e.brIf(1)
	fb.lowerBlock(n.Body)
	fb.e.br(0)

	fb.loopStack = fb.loopStack[:len(fb.loopStack)-1]
	fb.closeLabel() // loop
	fb.closeLabel() // block
}

// lowerIterateRange lowers `iterate v from a to b [step s] [downto]`: the
// loop variable is a fresh local, the bound is computed once up front.
func (fb *funcBuilder) lowerIterateRange(n *ast.IterateRangeStatement) {
	v := fb.addLocal(n.Var, types.Integer)
	limit := fb.addLocal("$limit", types.Integer)
	step := int32(1)
	fb.lowerExpr(n.From)
	fb.e.localSet(v)
	fb.lowerExpr(n.To)
	fb.e.localSet(limit)

	blockMark := fb.openBlock()
	loopMark := fb.openLoop()
	fb.loopStack = append(fb.loopStack, loopCtx{breakAtDepth: blockMark, continueAtDepth: loopMark})

	fb.e.localGet(v)
	fb.e.localGet(limit)
	if n.Downto {
		fb.e.op(opI32LtS)
	} else {
		fb.e.op(opI32GtS)
	}
	fb.e.brIf(1)

	fb.lowerBlock(n.Body)

	fb.e.localGet(v)
	if n.Step != nil {
		fb.lowerExpr(n.Step)
	} else {
		fb.e.i32Const(step)
	}
	if n.Downto {
		fb.e.op(opI32Sub)
	} else {
		fb.e.op(opI32Add)
	}
	fb.e.localSet(v)
	fb.e.br(0)

	fb.loopStack = fb.loopStack[:len(fb.loopStack)-1]
	fb.closeLabel()
	fb.closeLabel()
}

// lowerIterateCollection lowers `iterate v in collection`: a List is
// walked by index through List.get; the element is released (if a
// pointer type) at each iteration's scope exit like any other local.
func (fb *funcBuilder) lowerIterateCollection(n *ast.IterateCollectionStatement) {
	collT := fb.exprType(n.Collection)
	coll := fb.addLocal("$coll", collT)
	fb.lowerExpr(n.Collection)
	fb.e.localSet(coll)

	idx := fb.addLocal("$idx", types.Integer)
	fb.e.i32Const(0)
	fb.e.localSet(idx)

	length := fb.addLocal("$len", types.Integer)
	fb.e.localGet(coll)
	fb.e.call(fb.cg.listLengthFuncIdx)
	fb.e.localSet(length)

	var elemT types.Type = types.Any
	if lst, ok := collT.(*types.List); ok {
		elemT = lst.Elem
	}
	v := fb.addLocal(n.Var, elemT)

	blockMark := fb.openBlock()
	loopMark := fb.openLoop()
	fb.loopStack = append(fb.loopStack, loopCtx{breakAtDepth: blockMark, continueAtDepth: loopMark})

	fb.e.localGet(idx)
	fb.e.localGet(length)
	fb.e.op(opI32GeS)
	fb.e.brIf(1)

	fb.e.localGet(coll)
	fb.e.localGet(idx)
	fb.e.call(fb.cg.listGetFuncIdx)
	fb.e.localSet(v)

	fb.lowerBlock(n.Body)

	fb.e.localGet(idx)
	fb.e.i32Const(1)
	fb.e.op(opI32Add)
	fb.e.localSet(idx)
	fb.e.br(0)

	fb.loopStack = fb.loopStack[:len(fb.loopStack)-1]
	fb.closeLabel()
	fb.closeLabel()
}

func (fb *funcBuilder) lowerReturn(n *ast.ReturnStatement) {
	if n.Value != nil {
		fb.lowerExpr(n.Value)
		if isHeapPointer(fb.exprType(n.Value)) {
			fb.e.localTee(fb.scratchForRetain())
			fb.emitRetain(fb.exprType(n.Value))
			fb.e.drop()
			fb.e.localGet(fb.scratchForRetain())
		}
	}
	fb.e.ret()
}

// lowerError lowers `error msg` onto the __raise host import (spec §7):
// unwinding every live local is the host's responsibility once it catches
// the trap, not emitted inline here (see DESIGN.md's onError note).
func (fb *funcBuilder) lowerError(n *ast.ErrorStatement) {
	fb.lowerExpr(n.Message)
	fb.e.i32Const(0)
	fb.e.call(fb.cg.raiseImportIdx)
}

func (fb *funcBuilder) lowerPrint(n *ast.PrintStatement) {
	fb.lowerExpr(n.Value)
	fb.toStringFor(fb.exprType(n.Value))
	strSlot := fb.scratchForRetain()
	fb.e.localSet(strSlot)
	fb.e.localGet(strSlot)
	fb.e.localGet(strSlot)
	fb.e.i32Const(memlayout.HeaderSize)
	fb.e.op(opI32Sub)
	fb.e.i32Load(memlayout.OffPayloadSize)
	if n.Ln {
		fb.e.call(fb.cg.printlnImportIdx)
	} else {
		fb.e.call(fb.cg.printImportIdx)
	}
}
