// Package writer packages compiled expressions into a NASM unit. Each
// expression becomes a global function f0, f1, ... that returns its value in
// rax. All units share one float constant pool.
package writer

import (
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"

	"github.com/iley/lispc/internal/asm"
	"github.com/iley/lispc/internal/ast"
	"github.com/iley/lispc/internal/codegen"
)

// ScratchBytes is the stack space each unit reserves below its saved registers.
const ScratchBytes = 88

var calleeSaved = []asm.Arg{
	asm.Reg("rbx"), asm.Reg("r12"), asm.Reg("r13"), asm.Reg("r14"), asm.Reg("r15"),
}

// EntryWords is the stack depth in words when a unit's body starts: the
// return address, rbp, the callee-saved registers and the scratch area.
var EntryWords = 2 + len(calleeSaved) + ScratchBytes/8

type Options struct {
	// Main adds a main function that calls every unit in order and prints
	// each result with the runtime's display.
	Main  bool
	Trace io.Writer
}

func UnitName(i int) string {
	return fmt.Sprintf("f%d", i)
}

// Build compiles every node and assembles the program.
func Build(nodes []ast.Node, opts Options) (asm.Program, error) {
	var (
		program asm.Program
		pool    codegen.ConstantPool
		externs []string
	)
	for i, node := range nodes {
		res, err := codegen.Compile(node, pool, codegen.Options{EntryWords: EntryWords, Trace: opts.Trace})
		if err != nil {
			return asm.Program{}, fmt.Errorf("error when generating code for %s: %w", UnitName(i), err)
		}
		pool = res.Pool
		externs = append(externs, res.Externs...)

		var lines []asm.Line
		lines = append(lines, asm.Comment(node.String()))
		lines = append(lines, prologue()...)
		lines = append(lines, res.Lines...)
		lines = append(lines, epilogue()...)
		program.Functions = append(program.Functions, asm.Function{Name: UnitName(i), Lines: lines})
	}

	if opts.Main {
		program.Functions = append(program.Functions, mainFunction(len(nodes)))
		externs = append(externs, "display")
	}

	program.Externs = lo.Uniq(externs)
	slices.Sort(program.Externs)
	program.FloatLiterals = pool.Entries()
	return program, nil
}

func Write(out io.Writer, nodes []ast.Node, opts Options) error {
	program, err := Build(nodes, opts)
	if err != nil {
		return err
	}
	asm.FormatProgram(out, program)
	return nil
}

func prologue() []asm.Line {
	lines := []asm.Line{
		asm.Op1("push", asm.RBP),
		asm.Op2("mov", asm.RBP, asm.RSP),
	}
	for _, r := range calleeSaved {
		lines = append(lines, asm.Op1("push", r))
	}
	return append(lines, asm.Op2("sub", asm.RSP, asm.Imm(ScratchBytes)))
}

func epilogue() []asm.Line {
	lines := []asm.Line{asm.Op2("add", asm.RSP, asm.Imm(ScratchBytes))}
	for i := len(calleeSaved) - 1; i >= 0; i-- {
		lines = append(lines, asm.Op1("pop", calleeSaved[i]))
	}
	return append(lines,
		asm.Op1("pop", asm.RBP),
		asm.Op0("ret"),
	)
}

// mainFunction keeps the stack aligned by pushing rbp once; every call
// below happens two words deep.
func mainFunction(units int) asm.Function {
	lines := []asm.Line{
		asm.Op1("push", asm.RBP),
		asm.Op2("mov", asm.RBP, asm.RSP),
	}
	for i := 0; i < units; i++ {
		lines = append(lines,
			asm.Op1("call", asm.Ref(UnitName(i))),
			asm.Op2("mov", asm.RDI, asm.RAX),
			asm.Op1("call", asm.Ref("display")),
		)
	}
	lines = append(lines,
		asm.Op2("mov", asm.RAX, asm.Imm(0)),
		asm.Op1("pop", asm.RBP),
		asm.Op0("ret"),
	)
	return asm.Function{Name: "main", Lines: lines}
}
