package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iley/lispc/internal/lexer"
)

type Location = lexer.Location

// Node is one of *Operation, *Identifier, *IntegerLiteral, *FloatLiteral or *LetBinding.
type Node interface {
	fmt.Stringer
	GetLocation() Location
	isNode()
}

// Operation is a prefix application such as (+ 1 2) or (if c t e).
type Operation struct {
	Loc    Location
	Op     string
	Params []Node
}

func (o *Operation) GetLocation() Location {
	return o.Loc
}

func (o *Operation) isNode() {}

func (o *Operation) String() string {
	var sb strings.Builder
	sb.WriteString("(")
	sb.WriteString(o.Op)
	for _, param := range o.Params {
		sb.WriteString(" ")
		sb.WriteString(param.String())
	}
	sb.WriteString(")")
	return sb.String()
}

type Identifier struct {
	Loc  Location
	Name string
}

func (i *Identifier) GetLocation() Location {
	return i.Loc
}

func (i *Identifier) isNode() {}

func (i *Identifier) String() string {
	return i.Name
}

type IntegerLiteral struct {
	Loc   Location
	Value int64
}

func (l *IntegerLiteral) GetLocation() Location {
	return l.Loc
}

func (l *IntegerLiteral) isNode() {}

func (l *IntegerLiteral) String() string {
	return strconv.FormatInt(l.Value, 10)
}

type FloatLiteral struct {
	Loc   Location
	Value float64
}

func (l *FloatLiteral) GetLocation() Location {
	return l.Loc
}

func (l *FloatLiteral) isNode() {}

func (l *FloatLiteral) String() string {
	s := strconv.FormatFloat(l.Value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEIN") {
		s += ".0"
	}
	return s
}

type Binding struct {
	Loc   Location
	Name  string
	Value Node
}

func (b Binding) String() string {
	return fmt.Sprintf("(%s %s)", b.Name, b.Value.String())
}

// LetBinding is a let* block. Each binding may refer to the ones before it.
type LetBinding struct {
	Loc      Location
	Bindings []Binding
	Body     Node
}

func (l *LetBinding) GetLocation() Location {
	return l.Loc
}

func (l *LetBinding) isNode() {}

func (l *LetBinding) String() string {
	var sb strings.Builder
	sb.WriteString("(let* (")
	for i, b := range l.Bindings {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(b.String())
	}
	sb.WriteString(") ")
	sb.WriteString(l.Body.String())
	sb.WriteString(")")
	return sb.String()
}

// Reserved identifiers for the raw boolean values.
const (
	True  = "#t"
	False = "#f"
)

func NewOperation(op string, params ...Node) *Operation {
	return &Operation{Op: op, Params: params}
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{Name: name}
}

func NewInt(value int64) *IntegerLiteral {
	return &IntegerLiteral{Value: value}
}

func NewFloat(value float64) *FloatLiteral {
	return &FloatLiteral{Value: value}
}

func NewLet(bindings []Binding, body Node) *LetBinding {
	return &LetBinding{Bindings: bindings, Body: body}
}

func Bind(name string, value Node) Binding {
	return Binding{Name: name, Value: value}
}
