package emu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type kind int

const (
	kindNil kind = iota
	kindInt
	kindFloat
	kindCons
)

// Handles start well above 1 so that a boxed value never collides with the
// raw booleans 0 and 1.
const handleBase int64 = 0x10000

var ErrDivisionByZero = errors.New("division by zero")

type box struct {
	kind kind
	i    int64
	f    float64
	car  int64
	cdr  int64
}

type runtimeFunc func(m *Machine) error

var runtimeFuncs map[string]runtimeFunc

func init() {
	runtimeFuncs = map[string]runtimeFunc{
		"newint": func(m *Machine) error {
			m.regs["rax"] = m.alloc(box{kind: kindInt, i: m.regs["rdi"]})
			return nil
		},
		"newfloat": func(m *Machine) error {
			m.regs["rax"] = m.alloc(box{kind: kindFloat, f: m.xmm0})
			return nil
		},
		"madd":    arith(func(a, b int64) int64 { return a + b }, func(a, b float64) float64 { return a + b }, false),
		"msub":    arith(func(a, b int64) int64 { return a - b }, func(a, b float64) float64 { return a - b }, false),
		"mmul":    arith(func(a, b int64) int64 { return a * b }, func(a, b float64) float64 { return a * b }, false),
		"mdiv":    arith(func(a, b int64) int64 { return a / b }, func(a, b float64) float64 { return a / b }, true),
		"mmod":    arith(func(a, b int64) int64 { return a % b }, math.Mod, true),
		"eq":      (*Machine).rtEq,
		"empty":   (*Machine).rtEmpty,
		"isempty": (*Machine).rtIsEmpty,
		"first":   (*Machine).rtFirst,
		"rest":    (*Machine).rtRest,
		"cons":    (*Machine).rtCons,
		"append":  (*Machine).rtAppend,
		"list":    (*Machine).rtList,
		"display": (*Machine).rtDisplay,
	}
}

func (m *Machine) alloc(b box) int64 {
	m.heap = append(m.heap, b)
	return handleBase + 16*int64(len(m.heap)-1)
}

func (m *Machine) nilHandle() int64 {
	return handleBase
}

func (m *Machine) box(handle int64) (box, error) {
	off := handle - handleBase
	if off < 0 || off%16 != 0 || off/16 >= int64(len(m.heap)) {
		return box{}, fmt.Errorf("invalid value %#x", handle)
	}
	return m.heap[off/16], nil
}

func (b box) number() (int64, float64, bool, error) {
	switch b.kind {
	case kindInt:
		return b.i, float64(b.i), false, nil
	case kindFloat:
		return 0, b.f, true, nil
	}
	return 0, 0, false, fmt.Errorf("not a number")
}

// arith builds a binary operator on boxed numbers. The result is an integer
// when both operands are integers and a float otherwise.
func arith(ints func(a, b int64) int64, floats func(a, b float64) float64, checkZero bool) runtimeFunc {
	return func(m *Machine) error {
		x, err := m.box(m.regs["rdi"])
		if err != nil {
			return err
		}
		y, err := m.box(m.regs["rsi"])
		if err != nil {
			return err
		}
		xi, xf, xFloat, err := x.number()
		if err != nil {
			return err
		}
		yi, yf, yFloat, err := y.number()
		if err != nil {
			return err
		}
		if xFloat || yFloat {
			if checkZero && yf == 0 {
				return ErrDivisionByZero
			}
			m.regs["rax"] = m.alloc(box{kind: kindFloat, f: floats(xf, yf)})
			return nil
		}
		if checkZero && yi == 0 {
			return ErrDivisionByZero
		}
		m.regs["rax"] = m.alloc(box{kind: kindInt, i: ints(xi, yi)})
		return nil
	}
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (m *Machine) rtEq() error {
	a, b := m.regs["rdi"], m.regs["rsi"]
	if a == b {
		m.regs["rax"] = 1
		return nil
	}
	x, err := m.box(a)
	if err != nil {
		return err
	}
	y, err := m.box(b)
	if err != nil {
		return err
	}
	_, xf, _, xErr := x.number()
	_, yf, _, yErr := y.number()
	if xErr == nil && yErr == nil {
		if x.kind == kindInt && y.kind == kindInt {
			m.regs["rax"] = boolValue(x.i == y.i)
		} else {
			m.regs["rax"] = boolValue(xf == yf)
		}
		return nil
	}
	m.regs["rax"] = boolValue(x.kind == kindNil && y.kind == kindNil)
	return nil
}

func (m *Machine) rtEmpty() error {
	m.regs["rax"] = m.nilHandle()
	return nil
}

func (m *Machine) rtIsEmpty() error {
	b, err := m.box(m.regs["rdi"])
	if err != nil {
		return err
	}
	m.regs["rax"] = boolValue(b.kind == kindNil)
	return nil
}

func (m *Machine) cell(handle int64, op string) (box, error) {
	b, err := m.box(handle)
	if err != nil {
		return box{}, err
	}
	if b.kind != kindCons {
		return box{}, fmt.Errorf("%s of %s", op, m.Describe(handle))
	}
	return b, nil
}

func (m *Machine) rtFirst() error {
	b, err := m.cell(m.regs["rdi"], "first")
	if err != nil {
		return err
	}
	m.regs["rax"] = b.car
	return nil
}

func (m *Machine) rtRest() error {
	b, err := m.cell(m.regs["rdi"], "rest")
	if err != nil {
		return err
	}
	m.regs["rax"] = b.cdr
	return nil
}

func (m *Machine) rtCons() error {
	if _, err := m.box(m.regs["rsi"]); err != nil {
		return err
	}
	m.regs["rax"] = m.alloc(box{kind: kindCons, car: m.regs["rdi"], cdr: m.regs["rsi"]})
	return nil
}

// rtAppend copies the first list and attaches the second as its tail.
func (m *Machine) rtAppend() error {
	items, err := m.items(m.regs["rdi"])
	if err != nil {
		return err
	}
	if _, err := m.box(m.regs["rsi"]); err != nil {
		return err
	}
	m.regs["rax"] = m.buildList(items, m.regs["rsi"])
	return nil
}

// rtList reads rdi items from the stack, the first one at the stack pointer.
func (m *Machine) rtList() error {
	n := m.regs["rdi"]
	if n < 0 {
		return fmt.Errorf("negative item count %d", n)
	}
	items := make([]int64, n)
	for i := range items {
		v, err := m.load(m.regs["rsp"] + 8*int64(i))
		if err != nil {
			return err
		}
		items[i] = v
	}
	m.regs["rax"] = m.buildList(items, m.nilHandle())
	return nil
}

func (m *Machine) rtDisplay() error {
	_, err := fmt.Fprintln(m.output, m.Describe(m.regs["rdi"]))
	m.regs["rax"] = 0
	return err
}

func (m *Machine) buildList(items []int64, tail int64) int64 {
	result := tail
	for i := len(items) - 1; i >= 0; i-- {
		result = m.alloc(box{kind: kindCons, car: items[i], cdr: result})
	}
	return result
}

func (m *Machine) items(handle int64) ([]int64, error) {
	var result []int64
	for {
		b, err := m.box(handle)
		if err != nil {
			return nil, err
		}
		switch b.kind {
		case kindNil:
			return result, nil
		case kindCons:
			result = append(result, b.car)
			handle = b.cdr
		default:
			return nil, fmt.Errorf("not a list: %s", m.Describe(handle))
		}
	}
}

// Describe prints a value the way the runtime's display does.
func (m *Machine) Describe(value int64) string {
	switch value {
	case 0:
		return "#f"
	case 1:
		return "#t"
	}
	b, err := m.box(value)
	if err != nil {
		return fmt.Sprintf("<invalid %#x>", value)
	}
	switch b.kind {
	case kindNil:
		return "()"
	case kindInt:
		return strconv.FormatInt(b.i, 10)
	case kindFloat:
		return strconv.FormatFloat(b.f, 'g', 6, 64)
	}

	var parts []string
	for b.kind == kindCons {
		parts = append(parts, m.Describe(b.car))
		next, err := m.box(b.cdr)
		if err != nil || next.kind != kindCons && next.kind != kindNil {
			return "(" + strings.Join(parts, " ") + " . " + m.Describe(b.cdr) + ")"
		}
		b = next
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// Int unboxes an integer value.
func (m *Machine) Int(value int64) (int64, error) {
	b, err := m.box(value)
	if err != nil {
		return 0, err
	}
	if b.kind != kindInt {
		return 0, fmt.Errorf("%s is not an integer", m.Describe(value))
	}
	return b.i, nil
}

func (m *Machine) Float(value int64) (float64, error) {
	b, err := m.box(value)
	if err != nil {
		return 0, err
	}
	if b.kind != kindFloat {
		return 0, fmt.Errorf("%s is not a float", m.Describe(value))
	}
	return b.f, nil
}
