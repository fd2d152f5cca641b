package emu

import (
	"errors"
	"strings"
	"testing"

	"github.com/iley/lispc/internal/asm"
)

func TestExecArithmetic(t *testing.T) {
	lines := []asm.Line{
		asm.Op2("mov", asm.RDI, asm.Imm(40)),
		asm.Op1("call", asm.Ref("newint")),
		asm.Op2("mov", asm.Reg("rbx"), asm.RAX),
		asm.Op2("mov", asm.RDI, asm.Imm(2)),
		asm.Op1("call", asm.Ref("newint")),
		asm.Op2("mov", asm.RSI, asm.RAX),
		asm.Op2("mov", asm.RDI, asm.Reg("rbx")),
		asm.Op1("call", asm.Ref("madd")),
	}
	m := New(asm.Program{}, Config{})
	result, err := m.Exec(lines, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	value, err := m.Int(result)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if value != 42 {
		t.Errorf("expected 42, got %d", value)
	}
	if len(m.CallSites) != 3 {
		t.Errorf("expected 3 call sites, got %d", len(m.CallSites))
	}
}

func TestExecMisalignedCall(t *testing.T) {
	lines := []asm.Line{
		asm.Op1("push", asm.Reg("rbx")),
		asm.Op1("call", asm.Ref("empty")),
	}
	m := New(asm.Program{}, Config{})
	_, err := m.Exec(lines, 0)
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("expected misaligned call error, got %v", err)
	}
}

func TestCallerSavedClobbered(t *testing.T) {
	lines := []asm.Line{
		asm.Op2("mov", asm.Reg("rcx"), asm.Imm(7)),
		asm.Op2("mov", asm.Reg("rbx"), asm.Imm(8)),
		asm.Op1("call", asm.Ref("empty")),
	}
	m := New(asm.Program{}, Config{})
	if _, err := m.Exec(lines, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Reg("rcx") == 7 {
		t.Errorf("expected rcx to be clobbered by the call")
	}
	if m.Reg("rbx") != 8 {
		t.Errorf("expected rbx to survive the call, got %d", m.Reg("rbx"))
	}
}

func TestListFromStack(t *testing.T) {
	var lines []asm.Line
	lines = append(lines,
		asm.Op2("mov", asm.RDI, asm.Imm(3)),
		asm.Op1("call", asm.Ref("newint")),
		asm.Op2("mov", asm.Reg("r12"), asm.RAX),
		asm.Op2("mov", asm.RDI, asm.Imm(2)),
		asm.Op1("call", asm.Ref("newint")),
		asm.Op2("mov", asm.Reg("r13"), asm.RAX),
		asm.Op2("mov", asm.RDI, asm.Imm(1)),
		asm.Op1("call", asm.Ref("newint")),
		asm.Op2("sub", asm.RSP, asm.Imm(8)),
		asm.Op1("push", asm.Reg("r12")),
		asm.Op1("push", asm.Reg("r13")),
		asm.Op1("push", asm.RAX),
		asm.Op2("mov", asm.RDI, asm.Imm(3)),
		asm.Op1("call", asm.Ref("list")),
		asm.Op2("add", asm.RSP, asm.Imm(32)),
	)
	m := New(asm.Program{}, Config{})
	result, err := m.Exec(lines, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.Describe(result); got != "(1 2 3)" {
		t.Errorf("expected (1 2 3), got %s", got)
	}
	if m.Reg("rsp") != stackTop {
		t.Errorf("expected balanced stack, rsp=%#x", m.Reg("rsp"))
	}
}

func TestCallProgramFunction(t *testing.T) {
	p := asm.Program{
		Functions: []asm.Function{
			{
				Name: "f0",
				Lines: []asm.Line{
					asm.Op1("push", asm.RBP),
					asm.Op2("mov", asm.RBP, asm.RSP),
					asm.Op2("movsd", asm.XMM0, asm.Mem("flt0")),
					asm.Op1("call", asm.Ref("newfloat")),
					asm.Op1("pop", asm.RBP),
					asm.Op0("ret"),
				},
			},
			{
				Name: "main",
				Lines: []asm.Line{
					asm.Op1("push", asm.RBP),
					asm.Op2("mov", asm.RBP, asm.RSP),
					asm.Op1("call", asm.Ref("f0")),
					asm.Op2("mov", asm.RDI, asm.RAX),
					asm.Op1("call", asm.Ref("display")),
					asm.Op2("mov", asm.RAX, asm.Imm(0)),
					asm.Op1("pop", asm.RBP),
					asm.Op0("ret"),
				},
			},
		},
		FloatLiterals: []asm.FloatLiteral{{Label: "flt0", Value: 2.5}},
	}

	var out strings.Builder
	m := New(p, Config{Output: &out})
	result, err := m.Call("main")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 0 {
		t.Errorf("expected main to return 0, got %d", result)
	}
	if out.String() != "2.5\n" {
		t.Errorf("expected output %q, got %q", "2.5\n", out.String())
	}
}

func TestRetToWrongAddress(t *testing.T) {
	p := asm.Program{
		Functions: []asm.Function{
			{
				Name: "f0",
				Lines: []asm.Line{
					asm.Op1("push", asm.RBP),
					asm.Op0("ret"),
				},
			},
		},
	}
	m := New(p, Config{})
	if _, err := m.Call("f0"); err == nil || !strings.Contains(err.Error(), "expected return address") {
		t.Fatalf("expected unbalanced ret error, got %v", err)
	}
}

func TestBranches(t *testing.T) {
	lines := []asm.Line{
		asm.Op2("mov", asm.Reg("rbx"), asm.Imm(0)),
		asm.Op2("cmp", asm.Reg("rbx"), asm.Imm(0)),
		asm.Op1("je", asm.Ref(".L1_else")),
		asm.Label(".L0_then"),
		asm.Op2("mov", asm.RAX, asm.Imm(10)),
		asm.Op1("jmp", asm.Ref(".L2_join")),
		asm.Label(".L1_else"),
		asm.Op2("mov", asm.RAX, asm.Imm(20)),
		asm.Label(".L2_join"),
	}
	m := New(asm.Program{}, Config{})
	result, err := m.Exec(lines, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 20 {
		t.Errorf("expected 20, got %d", result)
	}
}

func TestRuntime(t *testing.T) {
	testCases := []struct {
		name     string
		fn       string
		a, b     func(m *Machine) int64
		expected string
	}{
		{"int division truncates", "mdiv", intValue(5), intValue(2), "2"},
		{"negative modulo", "mmod", intValue(-5), intValue(2), "-1"},
		{"float promotion", "madd", intValue(1), floatValue(0.5), "1.5"},
		{"mixed equality", "eq", intValue(2), floatValue(2), "#t"},
		{"inequality", "eq", intValue(2), intValue(3), "#f"},
		{"empty equality", "eq", emptyValue, emptyValue, "#t"},
		{"cons onto empty", "cons", intValue(1), emptyValue, "(1)"},
		{"dotted pair", "cons", intValue(1), intValue(2), "(1 . 2)"},
		{"append", "append", listValue(1), listValue(2, 3), "(1 2 3)"},
		{"append to empty", "append", emptyValue, listValue(2), "(2)"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(asm.Program{}, Config{})
			m.regs["rdi"] = tc.a(m)
			m.regs["rsi"] = tc.b(m)
			if err := runtimeFuncs[tc.fn](m); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := m.Describe(m.regs["rax"]); got != tc.expected {
				t.Errorf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestRuntimeErrors(t *testing.T) {
	testCases := []struct {
		name string
		fn   string
		a, b func(m *Machine) int64
		msg  string
	}{
		{"division by zero", "mdiv", intValue(1), intValue(0), "division by zero"},
		{"modulo by zero", "mmod", intValue(1), intValue(0), "division by zero"},
		{"float division by zero", "mdiv", floatValue(1), floatValue(0), "division by zero"},
		{"first of empty", "first", emptyValue, emptyValue, "first of ()"},
		{"rest of number", "rest", intValue(3), emptyValue, "rest of 3"},
		{"arithmetic on list", "madd", listValue(1), intValue(1), "not a number"},
		{"garbage pointer", "first", func(*Machine) int64 { return 12345 }, emptyValue, "invalid value"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := New(asm.Program{}, Config{})
			m.regs["rdi"] = tc.a(m)
			m.regs["rsi"] = tc.b(m)
			err := runtimeFuncs[tc.fn](m)
			if err == nil || !strings.Contains(err.Error(), tc.msg) {
				t.Errorf("expected error containing %q, got %v", tc.msg, err)
			}
		})
	}
}

func intValue(v int64) func(m *Machine) int64 {
	return func(m *Machine) int64 {
		return m.alloc(box{kind: kindInt, i: v})
	}
}

func floatValue(v float64) func(m *Machine) int64 {
	return func(m *Machine) int64 {
		return m.alloc(box{kind: kindFloat, f: v})
	}
}

func emptyValue(m *Machine) int64 {
	return m.nilHandle()
}

func listValue(values ...int64) func(m *Machine) int64 {
	return func(m *Machine) int64 {
		items := make([]int64, len(values))
		for i, v := range values {
			items[i] = intValue(v)(m)
		}
		return m.buildList(items, m.nilHandle())
	}
}
