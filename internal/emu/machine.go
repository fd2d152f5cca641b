// Package emu executes the x86-64 subset emitted by the code generator.
// Runtime entry points are implemented in Go on a private heap of boxed
// values, so compiled expressions can be evaluated without an assembler.
package emu

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/iley/lispc/internal/asm"
)

const (
	stackTop        int64 = 0x7ff0_0000
	returnMarker    int64 = 0x5245_5400_0000_0000
	garbageBase     int64 = -0x5a5a_0000
	defaultMaxSteps       = 1_000_000
)

var (
	ErrMisaligned    = errors.New("stack misaligned at call")
	ErrStepLimit     = errors.New("step limit exceeded")
	ErrUninitialized = errors.New("read of uninitialized stack slot")
)

var generalRegisters = []string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

var callerSaved = []string{"rcx", "rdx", "rsi", "rdi", "r8", "r9", "r10", "r11"}

type Config struct {
	// Output receives whatever display prints. Nil discards it.
	Output   io.Writer
	MaxSteps int
}

// CallSite is a call the machine executed, with the stack pointer at the call instruction.
type CallSite struct {
	Func string
	RSP  int64
}

type function struct {
	name   string
	lines  []asm.Line
	labels map[string]int
}

type frame struct {
	fn *function
	pc int
}

type Machine struct {
	regs      map[string]int64
	xmm0      float64
	zf        bool
	stack     map[int64]int64
	funcs     map[string]*function
	floats    map[string]float64
	heap      []box
	garbage   int64
	steps     int
	maxSteps  int
	output    io.Writer
	CallSites []CallSite
}

func New(p asm.Program, cfg Config) *Machine {
	m := &Machine{
		regs:     make(map[string]int64),
		stack:    make(map[int64]int64),
		funcs:    make(map[string]*function),
		floats:   make(map[string]float64),
		maxSteps: cfg.MaxSteps,
		output:   cfg.Output,
	}
	if m.maxSteps == 0 {
		m.maxSteps = defaultMaxSteps
	}
	if m.output == nil {
		m.output = io.Discard
	}
	for _, name := range generalRegisters {
		m.regs[name] = m.nextGarbage()
	}
	m.regs["rsp"] = stackTop
	for _, fn := range p.Functions {
		m.funcs[fn.Name] = newFunction(fn.Name, fn.Lines)
	}
	for _, fl := range p.FloatLiterals {
		m.floats[fl.Label] = fl.Value
	}
	m.heap = append(m.heap, box{kind: kindNil})
	return m
}

func newFunction(name string, lines []asm.Line) *function {
	fn := &function{name: name, lines: lines, labels: make(map[string]int)}
	for i, line := range lines {
		if line.Label != "" {
			fn.labels[line.Label] = i
		}
	}
	return fn
}

func (m *Machine) nextGarbage() int64 {
	m.garbage++
	return garbageBase - m.garbage
}

func (m *Machine) Reg(name string) int64 {
	return m.regs[name]
}

func (m *Machine) SetReg(name string, value int64) {
	m.regs[name] = value
}

func (m *Machine) Steps() int {
	return m.steps
}

// Call runs the named function the way a C caller would: the stack is
// 16-byte aligned before the return address is pushed. It returns rax.
func (m *Machine) Call(name string) (int64, error) {
	fn, ok := m.funcs[name]
	if !ok {
		return 0, fmt.Errorf("undefined function %s", name)
	}
	if m.regs["rsp"]%16 != 0 {
		return 0, fmt.Errorf("call %s: %w", name, ErrMisaligned)
	}
	m.push(returnMarker)
	if err := m.run(fn, false); err != nil {
		return 0, err
	}
	return m.regs["rax"], nil
}

// Exec runs lines inline until they fall off the end. entryWords words are
// pushed first, so the code sees the stack as it would inside a frame of
// that depth. It returns rax.
func (m *Machine) Exec(lines []asm.Line, entryWords int) (int64, error) {
	for i := 0; i < entryWords; i++ {
		m.push(m.nextGarbage())
	}
	if err := m.run(newFunction("<inline>", lines), true); err != nil {
		return 0, err
	}
	return m.regs["rax"], nil
}

func (m *Machine) push(value int64) {
	m.regs["rsp"] -= 8
	m.stack[m.regs["rsp"]] = value
}

func (m *Machine) pop() (int64, error) {
	value, err := m.load(m.regs["rsp"])
	if err != nil {
		return 0, err
	}
	m.regs["rsp"] += 8
	return value, nil
}

func (m *Machine) load(addr int64) (int64, error) {
	value, ok := m.stack[addr]
	if !ok {
		return 0, fmt.Errorf("address %#x: %w", addr, ErrUninitialized)
	}
	return value, nil
}

func (m *Machine) run(entry *function, inline bool) error {
	frames := []frame{{fn: entry}}
	for len(frames) > 0 {
		m.steps++
		if m.steps > m.maxSteps {
			return ErrStepLimit
		}

		top := &frames[len(frames)-1]
		if top.pc >= len(top.fn.lines) {
			if inline && len(frames) == 1 {
				return nil
			}
			return fmt.Errorf("%s: ran past the last instruction", top.fn.name)
		}
		line := top.fn.lines[top.pc]
		top.pc++
		if !line.IsInstruction() {
			continue
		}

		switch line.Op {
		case "call":
			name := line.Arg1.Label
			if m.regs["rsp"]%16 != 0 {
				return fmt.Errorf("%s: call %s with rsp=%#x: %w", top.fn.name, name, m.regs["rsp"], ErrMisaligned)
			}
			m.CallSites = append(m.CallSites, CallSite{Func: name, RSP: m.regs["rsp"]})
			if rt, ok := runtimeFuncs[name]; ok {
				if err := rt(m); err != nil {
					return fmt.Errorf("%s: %w", name, err)
				}
				m.clobber()
				continue
			}
			callee, ok := m.funcs[name]
			if !ok {
				return fmt.Errorf("%s: call to undefined symbol %s", top.fn.name, name)
			}
			m.push(returnMarker + int64(len(frames)))
			frames = append(frames, frame{fn: callee})
		case "ret":
			addr, err := m.pop()
			if err != nil {
				return err
			}
			want := returnMarker + int64(len(frames)-1)
			if addr != want {
				return fmt.Errorf("%s: ret to %#x, expected return address %#x", top.fn.name, addr, want)
			}
			frames = frames[:len(frames)-1]
		case "je", "jne", "jmp":
			if line.Op == "je" && !m.zf || line.Op == "jne" && m.zf {
				continue
			}
			target, ok := top.fn.labels[line.Arg1.Label]
			if !ok {
				return fmt.Errorf("%s: undefined label %s", top.fn.name, line.Arg1.Label)
			}
			top.pc = target
		default:
			if err := m.step(line); err != nil {
				return fmt.Errorf("%s: %s: %w", top.fn.name, formatLine(line), err)
			}
		}
	}
	return nil
}

// step executes an instruction that does not transfer control.
func (m *Machine) step(line asm.Line) error {
	switch line.Op {
	case "nop":
		return nil
	case "mov":
		value, err := m.read(line.Arg2)
		if err != nil {
			return err
		}
		return m.write(line.Arg1, value)
	case "push":
		value, err := m.read(line.Arg1)
		if err != nil {
			return err
		}
		m.push(value)
		return nil
	case "pop":
		value, err := m.pop()
		if err != nil {
			return err
		}
		return m.write(line.Arg1, value)
	case "add", "sub":
		a, err := m.read(line.Arg1)
		if err != nil {
			return err
		}
		b, err := m.read(line.Arg2)
		if err != nil {
			return err
		}
		if line.Op == "add" {
			return m.write(line.Arg1, a+b)
		}
		return m.write(line.Arg1, a-b)
	case "xchg":
		a, err := m.read(line.Arg1)
		if err != nil {
			return err
		}
		b, err := m.read(line.Arg2)
		if err != nil {
			return err
		}
		if err := m.write(line.Arg1, b); err != nil {
			return err
		}
		return m.write(line.Arg2, a)
	case "cmp":
		a, err := m.read(line.Arg1)
		if err != nil {
			return err
		}
		b, err := m.read(line.Arg2)
		if err != nil {
			return err
		}
		m.zf = a == b
		return nil
	case "movsd":
		if line.Arg1.Reg != "xmm0" || line.Arg2.Label == "" {
			return fmt.Errorf("unsupported movsd operands")
		}
		value, ok := m.floats[line.Arg2.Label]
		if !ok {
			return fmt.Errorf("undefined float literal %s", line.Arg2.Label)
		}
		m.xmm0 = value
		return nil
	}
	return fmt.Errorf("unsupported instruction %q", line.Op)
}

func (m *Machine) read(arg asm.Arg) (int64, error) {
	switch {
	case arg.Deref && arg.Reg != "":
		base, err := m.reg(arg.Reg)
		if err != nil {
			return 0, err
		}
		return m.load(base + int64(arg.Offset))
	case arg.Reg != "":
		return m.reg(arg.Reg)
	case arg.Imm != nil:
		return *arg.Imm, nil
	}
	return 0, fmt.Errorf("unsupported operand %#v", arg)
}

func (m *Machine) write(arg asm.Arg, value int64) error {
	switch {
	case arg.Deref && arg.Reg != "":
		base, err := m.reg(arg.Reg)
		if err != nil {
			return err
		}
		m.stack[base+int64(arg.Offset)] = value
		return nil
	case arg.Reg != "":
		if _, err := m.reg(arg.Reg); err != nil {
			return err
		}
		m.regs[arg.Reg] = value
		return nil
	}
	return fmt.Errorf("cannot write to operand %#v", arg)
}

func (m *Machine) reg(name string) (int64, error) {
	value, ok := m.regs[name]
	if !ok {
		return 0, fmt.Errorf("unknown register %s", name)
	}
	return value, nil
}

// clobber overwrites the registers a callee is free to change.
func (m *Machine) clobber() {
	for _, name := range callerSaved {
		m.regs[name] = m.nextGarbage()
	}
	m.xmm0 = float64(m.nextGarbage())
}

func formatLine(line asm.Line) string {
	return strings.TrimSpace(asm.FormatLines([]asm.Line{line}))
}
