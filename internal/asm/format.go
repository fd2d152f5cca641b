package asm

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// FormatProgram writes the program as a NASM source file for elf64.
func FormatProgram(out io.Writer, p Program) {
	fmt.Fprintf(out, "default rel\n\n")

	for _, name := range p.Externs {
		fmt.Fprintf(out, "extern %s\n", name)
	}
	if len(p.Externs) > 0 {
		fmt.Fprintf(out, "\n")
	}

	fmt.Fprintf(out, "section .text\n")
	for _, fn := range p.Functions {
		formatFunction(out, fn)
	}

	formatFloatLiterals(out, p.FloatLiterals)
}

func formatFunction(out io.Writer, fn Function) {
	fmt.Fprintf(out, "\nglobal %s\n", fn.Name)
	fmt.Fprintf(out, "%s:\n", fn.Name)

	for _, line := range fn.Lines {
		FormatLine(out, line)
	}
}

func FormatLine(out io.Writer, line Line) {
	if line.Label != "" {
		fmt.Fprintf(out, "%s:", line.Label)
	} else if line.Op != "" {
		fmt.Fprintf(out, "  %s", line.Op)

		if line.Arity >= 1 {
			fmt.Fprintf(out, " %s", argToString(line.Arg1))
		}
		if line.Arity >= 2 {
			fmt.Fprintf(out, ", %s", argToString(line.Arg2))
		}
	}

	if line.Comment != "" {
		if line.Label != "" || line.Op != "" {
			fmt.Fprintf(out, "  ")
		}
		fmt.Fprintf(out, "; %s", line.Comment)
	}

	fmt.Fprintf(out, "\n")
}

// FormatLines renders lines one per row, the way they appear inside a function body.
func FormatLines(lines []Line) string {
	var sb strings.Builder
	for _, line := range lines {
		FormatLine(&sb, line)
	}
	return sb.String()
}

func argToString(arg Arg) string {
	if arg.Deref {
		switch {
		case arg.Label != "":
			return fmt.Sprintf("[rel %s]", arg.Label)
		case arg.Reg != "" && arg.Offset > 0:
			return fmt.Sprintf("[%s+%d]", arg.Reg, arg.Offset)
		case arg.Reg != "" && arg.Offset < 0:
			return fmt.Sprintf("[%s-%d]", arg.Reg, -arg.Offset)
		case arg.Reg != "":
			return fmt.Sprintf("[%s]", arg.Reg)
		}
		panic(fmt.Errorf("invalid arg %#v. dereferencing needs a register or a label", arg))
	}

	switch {
	case arg.Reg != "":
		return arg.Reg
	case arg.Label != "":
		return arg.Label
	case arg.Imm != nil:
		return strconv.FormatInt(*arg.Imm, 10)
	}
	panic(fmt.Errorf("invalid arg %#v", arg))
}

func formatFloatLiterals(out io.Writer, floatLiterals []FloatLiteral) {
	if len(floatLiterals) == 0 {
		return
	}
	fmt.Fprintf(out, "\nsection .data\n")
	fmt.Fprintf(out, "align 8\n")
	for _, fl := range floatLiterals {
		fmt.Fprintf(out, "%s: dq %s\n", fl.Label, FormatFloat(fl.Value))
	}
}

// FormatFloat renders a value as a NASM floating-point constant. NASM only
// treats a number as floating point when it contains a decimal point.
func FormatFloat(value float64) string {
	switch {
	case math.IsNaN(value):
		return "__?QNaN?__"
	case math.IsInf(value, 1):
		return "__?Infinity?__"
	case math.IsInf(value, -1):
		return "-__?Infinity?__"
	}
	s := strconv.FormatFloat(value, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
