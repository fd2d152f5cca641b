package codegen

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/iley/lispc/internal/asm"
	"github.com/iley/lispc/internal/ast"
)

const wordSize = 8

func (c *Context) push(r Register) {
	c.emit(asm.Op1("push", r.Arg()))
	c.words++
	c.tracef("push %s words=%d", r, c.words)
}

func (c *Context) pop(r Register) {
	c.emit(asm.Op1("pop", r.Arg()))
	c.words--
	c.tracef("pop %s words=%d", r, c.words)
}

// saveLive pushes every live caller-saved register in inventory order.
// With release set the registers leave the live set until restore.
func (c *Context) saveLive(release bool) []Register {
	saved := c.alloc.Live().Intersect(CallerSaved).Registers()
	for _, r := range saved {
		c.push(r)
		if release {
			c.alloc.Release(r)
		}
	}
	return saved
}

// alignForCall pads the stack so that it is 16-byte aligned once
// extraWords more words have been pushed.
func (c *Context) alignForCall(extraWords int) bool {
	if (c.words+extraWords)%2 == 0 {
		return false
	}
	c.emit(asm.Op2("sub", asm.RSP, asm.Imm(wordSize)))
	c.words++
	c.tracef("pad words=%d", c.words)
	return true
}

func (c *Context) dropPadding(padded bool) {
	if !padded {
		return
	}
	c.emit(asm.Op2("add", asm.RSP, asm.Imm(wordSize)))
	c.words--
	c.tracef("unpad words=%d", c.words)
}

func (c *Context) emitCall(fn string) {
	c.callSites = append(c.callSites, CallSite{Func: fn, Words: c.words})
	c.externs = append(c.externs, fn)
	c.tracef("call %s words=%d", fn, c.words)
	c.emit(asm.Op1("call", asm.Ref(fn)))
}

// restore moves the call result out of rax when rax is about to be
// restored, then pops the saved registers in reverse order.
func (c *Context) restore(loc ast.Location, saved []Register) (Register, error) {
	result := ReturnRegister
	if lo.Contains(saved, ReturnRegister) {
		r, err := c.alloc.AllocateExcluding(SetOf(saved...).With(ReturnRegister))
		if err != nil {
			if exhausted, ok := err.(*ResourceExhaustionError); ok {
				exhausted.Loc = loc
			}
			return 0, err
		}
		c.emit(asm.Op2("mov", r.Arg(), ReturnRegister.Arg()))
		result = r
	}
	for i := len(saved) - 1; i >= 0; i-- {
		c.pop(saved[i])
		c.alloc.MarkLive(saved[i])
	}
	return result, nil
}

// moveArgs loads call arguments into rdi and rsi. Registers are moved as a
// parallel assignment so that an argument already sitting in rdi or rsi
// survives.
func (c *Context) moveArgs(args []asm.Arg) error {
	if len(args) > len(ArgRegisters) {
		return fmt.Errorf("too many register arguments: %d", len(args))
	}
	if len(args) == 2 && args[0].Reg == RSI.String() && args[1].Reg == RDI.String() {
		c.emit(asm.Op2("xchg", RDI.Arg(), RSI.Arg()))
		return nil
	}
	order := []int{0, 1}
	if len(args) == 2 && args[1].Reg == RDI.String() {
		order = []int{1, 0}
	}
	for _, i := range order {
		if i >= len(args) {
			continue
		}
		dst := ArgRegisters[i]
		if args[i].Reg == dst.String() {
			continue
		}
		c.emit(asm.Op2("mov", dst.Arg(), args[i]))
	}
	return nil
}

// Call emits a call into the runtime with up to two register or immediate
// arguments. floatLabel, when set, names a pool entry loaded into xmm0.
// The returned register holds the result and is not marked live.
func (c *Context) Call(loc ast.Location, fn string, args []asm.Arg, floatLabel string) (Register, error) {
	saved := c.saveLive(true)
	padded := c.alignForCall(0)

	if err := c.moveArgs(args); err != nil {
		return 0, err
	}
	if floatLabel != "" {
		c.emit(asm.Op2("movsd", asm.XMM0, asm.Mem(floatLabel)))
	}
	c.emitCall(fn)

	c.dropPadding(padded)
	return c.restore(loc, saved)
}

// CallStack emits a call whose arguments are passed on the stack: the count
// goes in rdi and the items sit at the stack pointer in source order.
// Items are generated between the save and the call, so saved registers stay
// live for their whole extent.
func (c *Context) CallStack(loc ast.Location, fn string, items []ast.Node) (Register, error) {
	saved := c.saveLive(false)
	padded := c.alignForCall(len(items))

	for i := len(items) - 1; i >= 0; i-- {
		r, err := c.Generate(items[i], nil)
		if err != nil {
			return 0, err
		}
		c.push(r)
	}

	c.emit(asm.Op2("mov", RDI.Arg(), asm.Imm(int64(len(items)))))
	c.emitCall(fn)

	// The items are dead after the call, so they are dropped rather than
	// popped into registers that would need allocating.
	if len(items) > 0 {
		c.emit(asm.Op2("add", asm.RSP, asm.Imm(int64(wordSize*len(items)))))
		c.words -= len(items)
		c.tracef("drop %d items words=%d", len(items), c.words)
	}
	c.dropPadding(padded)

	for _, r := range saved {
		c.alloc.Release(r)
	}
	return c.restore(loc, saved)
}
