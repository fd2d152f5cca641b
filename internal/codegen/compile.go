// Package codegen compiles one expression tree into x86-64 instructions that
// return the value in rax, tracking register liveness and stack alignment
// across calls into the runtime.
package codegen

import (
	"github.com/iley/lispc/internal/asm"
	"github.com/iley/lispc/internal/ast"
)

// Result is the output of compiling one top-level expression.
type Result struct {
	Lines     []asm.Line
	Pool      ConstantPool
	CallSites []CallSite
	Externs   []string
}

// Compile generates code that leaves the value of node in rax. The pool is
// threaded through: new float literals are added to the returned copy and
// the argument is left as it was. On error nothing is emitted.
func Compile(node ast.Node, pool ConstantPool, opts Options) (Result, error) {
	if err := Check(node); err != nil {
		return Result{Pool: pool}, err
	}

	c := NewContext(opts, pool)
	target := ReturnRegister
	if _, err := c.Generate(node, &target); err != nil {
		return Result{Pool: pool}, err
	}
	if err := c.verify(); err != nil {
		return Result{Pool: pool}, err
	}

	return Result{
		Lines:     c.Lines(),
		Pool:      c.Pool(),
		CallSites: c.CallSites(),
		Externs:   c.Externs(),
	}, nil
}
