package codegen

import (
	"fmt"
	"strings"

	"github.com/iley/lispc/internal/ast"
)

// Error is implemented by every error the code generator reports.
type Error interface {
	error
	Location() ast.Location
	Kind() string
	Message() string
}

func withLocation(loc ast.Location, msg string) string {
	if loc.IsZero() {
		return msg
	}
	return fmt.Sprintf("%s: %s", loc, msg)
}

// StructuralError reports an operator applied to the wrong number of operands.
type StructuralError struct {
	Loc  ast.Location
	Op   string
	Want string
	Got  int
}

func (e *StructuralError) Error() string          { return withLocation(e.Loc, e.Message()) }
func (e *StructuralError) Location() ast.Location { return e.Loc }
func (e *StructuralError) Kind() string           { return "Structural" }
func (e *StructuralError) Message() string {
	return fmt.Sprintf("%s expects %s, got %d", e.Op, e.Want, e.Got)
}

type UnsupportedOperatorError struct {
	Loc ast.Location
	Op  string
}

func (e *UnsupportedOperatorError) Error() string          { return withLocation(e.Loc, e.Message()) }
func (e *UnsupportedOperatorError) Location() ast.Location { return e.Loc }
func (e *UnsupportedOperatorError) Kind() string           { return "UnsupportedOperator" }
func (e *UnsupportedOperatorError) Message() string {
	return fmt.Sprintf("unsupported operator %q", e.Op)
}

type UnboundNameError struct {
	Loc  ast.Location
	Name string
}

func (e *UnboundNameError) Error() string          { return withLocation(e.Loc, e.Message()) }
func (e *UnboundNameError) Location() ast.Location { return e.Loc }
func (e *UnboundNameError) Kind() string           { return "UnboundName" }
func (e *UnboundNameError) Message() string {
	return fmt.Sprintf("unbound name %q", e.Name)
}

// ResourceExhaustionError is returned when every register is live. There is no spilling.
type ResourceExhaustionError struct {
	Loc  ast.Location
	Live RegSet
}

func (e *ResourceExhaustionError) Error() string          { return withLocation(e.Loc, e.Message()) }
func (e *ResourceExhaustionError) Location() ast.Location { return e.Loc }
func (e *ResourceExhaustionError) Kind() string           { return "ResourceExhaustion" }
func (e *ResourceExhaustionError) Message() string {
	return fmt.Sprintf("out of registers (live: %s)", e.Live)
}

// InternalError means the generator broke one of its own bookkeeping rules.
type InternalError struct {
	Problems []string
}

func (e *InternalError) Error() string          { return "internal error: " + e.Message() }
func (e *InternalError) Location() ast.Location { return ast.Location{} }
func (e *InternalError) Kind() string           { return "Internal" }
func (e *InternalError) Message() string        { return strings.Join(e.Problems, "; ") }
