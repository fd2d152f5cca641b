package codegen

import (
	"fmt"
	"io"
	"slices"

	"github.com/samber/lo"

	"github.com/iley/lispc/internal/asm"
	"github.com/iley/lispc/internal/ast"
)

type Options struct {
	// EntryWords is the number of 8-byte words on the stack when the first
	// generated instruction runs, counted from the last 16-byte aligned point.
	// It includes the return address and whatever the prologue pushed.
	EntryWords int

	// Trace receives one line per push, pop, padding adjustment and call.
	Trace io.Writer
}

// CallSite records the stack depth at a call instruction.
type CallSite struct {
	Func  string
	Words int
}

type binding struct {
	name string
	reg  Register
}

// Context holds the state of a single Compile call.
type Context struct {
	alloc      Allocator
	env        []binding
	words      int
	entryWords int
	labels     int
	pool       ConstantPool
	out        asm.Stream
	callSites  []CallSite
	externs    []string
	trace      io.Writer
}

func NewContext(opts Options, pool ConstantPool) *Context {
	return &Context{
		words:      opts.EntryWords,
		entryWords: opts.EntryWords,
		pool:       pool,
		trace:      opts.Trace,
	}
}

func (c *Context) emit(lines ...asm.Line) {
	c.out.Emit(lines...)
}

func (c *Context) tracef(format string, args ...any) {
	if c.trace == nil {
		return
	}
	fmt.Fprintf(c.trace, "codegen: "+format+"\n", args...)
}

func (c *Context) allocate(loc ast.Location) (Register, error) {
	r, err := c.alloc.Allocate()
	if err != nil {
		if exhausted, ok := err.(*ResourceExhaustionError); ok {
			exhausted.Loc = loc
		}
		return 0, err
	}
	return r, nil
}

func (c *Context) newLabel(kind string) string {
	label := fmt.Sprintf(".L%d_%s", c.labels, kind)
	c.labels++
	return label
}

func (c *Context) bind(name string, r Register) {
	c.env = append(c.env, binding{name: name, reg: r})
}

// lookup finds the innermost binding of name.
func (c *Context) lookup(name string) (Register, bool) {
	for i := len(c.env) - 1; i >= 0; i-- {
		if c.env[i].name == name {
			return c.env[i].reg, true
		}
	}
	return 0, false
}

func (c *Context) Live() RegSet {
	return c.alloc.Live()
}

func (c *Context) Words() int {
	return c.words
}

func (c *Context) Lines() []asm.Line {
	return c.out.Lines()
}

func (c *Context) Pool() ConstantPool {
	return c.pool
}

func (c *Context) CallSites() []CallSite {
	return slices.Clone(c.callSites)
}

// Externs returns the runtime symbols called so far, sorted.
func (c *Context) Externs() []string {
	result := lo.Uniq(c.externs)
	slices.Sort(result)
	return result
}

// verify reports bookkeeping that did not return to its entry state.
func (c *Context) verify() error {
	var problems []string
	if !c.alloc.Live().IsEmpty() {
		problems = append(problems, fmt.Sprintf("registers still live: %s", c.alloc.Live()))
	}
	if len(c.env) != 0 {
		names := lo.Map(c.env, func(b binding, _ int) string { return b.name })
		problems = append(problems, fmt.Sprintf("bindings still in scope: %v", names))
	}
	if c.words != c.entryWords {
		problems = append(problems, fmt.Sprintf("stack depth %d words, expected %d", c.words, c.entryWords))
	}
	for _, site := range c.callSites {
		if site.Words%2 != 0 {
			problems = append(problems, fmt.Sprintf("misaligned call to %s at depth %d", site.Func, site.Words))
		}
	}
	if len(problems) > 0 {
		return &InternalError{Problems: problems}
	}
	return nil
}
