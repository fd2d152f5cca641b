package codegen

import (
	"fmt"

	"github.com/iley/lispc/internal/asm"
	"github.com/iley/lispc/internal/ast"
)

// Generate emits code computing node. With a non-nil target the value ends up
// in *target and target is returned. Otherwise the value is left wherever it
// was produced, which may be a bound register that must not be written to.
func (c *Context) Generate(node ast.Node, target *Register) (Register, error) {
	var (
		out Register
		err error
	)
	switch n := node.(type) {
	case *ast.IntegerLiteral:
		out, err = c.Call(n.Loc, "newint", []asm.Arg{asm.Imm(n.Value)}, "")
	case *ast.FloatLiteral:
		var label string
		c.pool, label = c.pool.Add(n.Value)
		out, err = c.Call(n.Loc, "newfloat", nil, label)
	case *ast.Identifier:
		return c.generateIdentifier(n, target)
	case *ast.LetBinding:
		return c.generateLet(n, target)
	case *ast.Operation:
		return c.generateOperation(n, target)
	default:
		return 0, &UnsupportedOperatorError{Op: fmt.Sprintf("%T", node)}
	}
	if err != nil {
		return 0, err
	}
	return c.moveTo(out, target), nil
}

func (c *Context) moveTo(out Register, target *Register) Register {
	if target == nil {
		return out
	}
	if *target != out {
		c.emit(asm.Op2("mov", target.Arg(), out.Arg()))
	}
	return *target
}

func (c *Context) generateIdentifier(n *ast.Identifier, target *Register) (Register, error) {
	if n.Name == ast.True || n.Name == ast.False {
		var dest Register
		if target != nil {
			dest = *target
		} else {
			r, err := c.allocate(n.Loc)
			if err != nil {
				return 0, err
			}
			dest = r
		}
		var value int64
		if n.Name == ast.True {
			value = 1
		}
		c.emit(asm.Op2("mov", dest.Arg(), asm.Imm(value)))
		return dest, nil
	}

	r, ok := c.lookup(n.Name)
	if !ok {
		return 0, &UnboundNameError{Loc: n.Loc, Name: n.Name}
	}
	return c.moveTo(r, target), nil
}

func (c *Context) generateLet(n *ast.LetBinding, target *Register) (Register, error) {
	mark := len(c.env)
	var regs []Register
	defer func() {
		for _, r := range regs {
			c.alloc.Release(r)
		}
		c.env = c.env[:mark]
	}()

	for _, b := range n.Bindings {
		r, err := c.allocate(b.Loc)
		if err != nil {
			return 0, err
		}
		if _, err := c.Generate(b.Value, &r); err != nil {
			return 0, err
		}
		c.alloc.MarkLive(r)
		regs = append(regs, r)
		c.bind(b.Name, r)
	}

	return c.Generate(n.Body, target)
}

func (c *Context) generateOperation(n *ast.Operation, target *Register) (Register, error) {
	op, err := lookupOperator(n)
	if err != nil {
		return 0, err
	}

	var out Register
	switch {
	case op.name == "if":
		return c.generateIf(n, target)
	case op.arity == variadic:
		out, err = c.CallStack(n.Loc, op.fn, n.Params)
	case op.arity == 2:
		out, err = c.generateBinary(n, op)
	case op.arity == 1:
		var arg Register
		arg, err = c.Generate(n.Params[0], nil)
		if err != nil {
			return 0, err
		}
		out, err = c.Call(n.Loc, op.fn, []asm.Arg{arg.Arg()}, "")
	default:
		out, err = c.Call(n.Loc, op.fn, nil, "")
	}
	if err != nil {
		return 0, err
	}
	return c.moveTo(out, target), nil
}

func (c *Context) generateBinary(n *ast.Operation, op operator) (Register, error) {
	left, err := c.allocate(n.Loc)
	if err != nil {
		return 0, err
	}
	if _, err := c.Generate(n.Params[0], &left); err != nil {
		return 0, err
	}

	c.alloc.MarkLive(left)
	right, err := c.allocate(n.Loc)
	if err == nil {
		_, err = c.Generate(n.Params[1], &right)
	}
	c.alloc.Release(left)
	if err != nil {
		return 0, err
	}

	return c.Call(n.Loc, op.fn, []asm.Arg{left.Arg(), right.Arg()}, "")
}

// generateIf evaluates the condition into a register of its own so that a
// target holding a bound name is not overwritten before either branch runs.
// Both branches then write the join register.
func (c *Context) generateIf(n *ast.Operation, target *Register) (Register, error) {
	cond, err := c.allocate(n.Loc)
	if err != nil {
		return 0, err
	}
	if _, err := c.Generate(n.Params[0], &cond); err != nil {
		return 0, err
	}

	thenLabel := c.newLabel("then")
	elseLabel := c.newLabel("else")
	joinLabel := c.newLabel("join")

	join := cond
	if target != nil {
		join = *target
	}

	c.emit(
		asm.Op2("cmp", cond.Arg(), asm.Imm(0)),
		asm.Op1("je", asm.Ref(elseLabel)),
		asm.Label(thenLabel),
	)
	if _, err := c.Generate(n.Params[1], &join); err != nil {
		return 0, err
	}
	c.emit(
		asm.Op1("jmp", asm.Ref(joinLabel)),
		asm.Label(elseLabel),
	)
	if _, err := c.Generate(n.Params[2], &join); err != nil {
		return 0, err
	}
	c.emit(asm.Label(joinLabel))
	return join, nil
}
