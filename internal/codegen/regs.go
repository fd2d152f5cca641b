package codegen

import (
	"math/bits"
	"strings"

	"github.com/samber/lo"

	"github.com/iley/lispc/internal/asm"
)

// Register is one of the general-purpose registers available to generated code.
// rsp and rbp are reserved for the frame and never handed out.
type Register uint8

const (
	RAX Register = iota
	RBX
	RCX
	RDX
	RSI
	RDI
	R8
	R9
	R10
	R11
	R12
	R13
	R14
	R15

	numRegisters
)

var registerNames = [numRegisters]string{
	"rax", "rbx", "rcx", "rdx", "rsi", "rdi",
	"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15",
}

// AllRegisters lists the inventory in encoding order. Saves and restores use this order.
var AllRegisters = []Register{RAX, RBX, RCX, RDX, RSI, RDI, R8, R9, R10, R11, R12, R13, R14, R15}

func (r Register) String() string {
	if r >= numRegisters {
		return "invalid"
	}
	return registerNames[r]
}

func (r Register) Arg() asm.Arg {
	return asm.Reg(r.String())
}

// RegisterByName maps a physical register name back to the inventory.
func RegisterByName(name string) (Register, bool) {
	for i, n := range registerNames {
		if n == name {
			return Register(i), true
		}
	}
	return 0, false
}

// RegSet is a bitset over the register inventory.
type RegSet uint16

func SetOf(regs ...Register) RegSet {
	var s RegSet
	for _, r := range regs {
		s = s.With(r)
	}
	return s
}

func (s RegSet) Has(r Register) bool {
	return s&(1<<r) != 0
}

func (s RegSet) With(r Register) RegSet {
	return s | 1<<r
}

func (s RegSet) Without(r Register) RegSet {
	return s &^ (1 << r)
}

func (s RegSet) Union(other RegSet) RegSet {
	return s | other
}

func (s RegSet) Intersect(other RegSet) RegSet {
	return s & other
}

func (s RegSet) Len() int {
	return bits.OnesCount16(uint16(s))
}

func (s RegSet) IsEmpty() bool {
	return s == 0
}

// Registers returns the members in inventory order.
func (s RegSet) Registers() []Register {
	return lo.Filter(AllRegisters, func(r Register, _ int) bool {
		return s.Has(r)
	})
}

func (s RegSet) String() string {
	names := lo.Map(s.Registers(), func(r Register, _ int) string {
		return r.String()
	})
	return "{" + strings.Join(names, " ") + "}"
}

// System V AMD64 register classes.
var (
	CallerSaved = SetOf(RAX, RCX, RDX, RSI, RDI, R8, R9, R10, R11)
	CalleeSaved = SetOf(RBX, R12, R13, R14, R15)

	ArgRegisters   = []Register{RDI, RSI}
	ReturnRegister = RAX
)
