package asm

var (
	RAX  = Arg{Reg: "rax"}
	RDI  = Arg{Reg: "rdi"}
	RSI  = Arg{Reg: "rsi"}
	RSP  = Arg{Reg: "rsp"}
	RBP  = Arg{Reg: "rbp"}
	XMM0 = Arg{Reg: "xmm0"}
)

type Program struct {
	Externs       []string
	Functions     []Function
	FloatLiterals []FloatLiteral
}

type Function struct {
	Name  string
	Lines []Line
}

type Line struct {
	Comment string
	Label   string
	Op      string
	Arity   int
	Arg1    Arg
	Arg2    Arg
}

// IsInstruction reports whether the line carries an opcode rather than only a label or comment.
func (l Line) IsInstruction() bool {
	return l.Op != ""
}

type Arg struct {
	Reg    string
	Offset int
	Imm    *int64
	Label  string
	Deref  bool
}

func (a Arg) WithOffset(offset int) Arg {
	result := a
	result.Offset = offset
	return result
}

func (a Arg) AsDeref() Arg {
	result := a
	result.Deref = true
	return result
}

func (a Arg) IsReg() bool {
	return a.Reg != "" && !a.Deref
}

func (a Arg) IsImm() bool {
	return a.Imm != nil
}

type FloatLiteral struct {
	Label string
	Value float64
}

func Imm(value int64) Arg {
	return Arg{Imm: &value}
}

func DerefWithOffset(arg Arg, offset int) Arg {
	return arg.WithOffset(offset).AsDeref()
}

func Reg(reg string) Arg {
	return Arg{Reg: reg}
}

func Ref(label string) Arg {
	return Arg{Label: label}
}

// Mem addresses the data stored at a label.
func Mem(label string) Arg {
	return Arg{Label: label, Deref: true}
}

func Op0(op string) Line {
	return Line{Op: op}
}

func Op1(op string, arg Arg) Line {
	return Line{Op: op, Arity: 1, Arg1: arg}
}

func Op2(op string, arg1, arg2 Arg) Line {
	return Line{Op: op, Arity: 2, Arg1: arg1, Arg2: arg2}
}

func Comment(text string) Line {
	return Line{Comment: text}
}

func Label(text string) Line {
	return Line{Label: text}
}
