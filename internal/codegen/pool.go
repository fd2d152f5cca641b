package codegen

import (
	"fmt"
	"math"

	"github.com/iley/lispc/internal/asm"
)

// ConstantPool holds float literals that need static storage. It is a value:
// Add returns a new pool and never changes the receiver's entries.
type ConstantPool struct {
	entries []asm.FloatLiteral
}

// Add returns the pool with value included and the label it lives at.
// Values are compared bit for bit, so 0.0 and -0.0 get separate labels.
func (p ConstantPool) Add(value float64) (ConstantPool, string) {
	if label, ok := p.Lookup(value); ok {
		return p, label
	}
	label := fmt.Sprintf("flt%d", len(p.entries))
	entries := make([]asm.FloatLiteral, len(p.entries), len(p.entries)+1)
	copy(entries, p.entries)
	entries = append(entries, asm.FloatLiteral{Label: label, Value: value})
	return ConstantPool{entries: entries}, label
}

func (p ConstantPool) Lookup(value float64) (string, bool) {
	bits := math.Float64bits(value)
	for _, e := range p.entries {
		if math.Float64bits(e.Value) == bits {
			return e.Label, true
		}
	}
	return "", false
}

// Entries returns the literals in label order.
func (p ConstantPool) Entries() []asm.FloatLiteral {
	result := make([]asm.FloatLiteral, len(p.entries))
	copy(result, p.entries)
	return result
}

func (p ConstantPool) Len() int {
	return len(p.entries)
}
