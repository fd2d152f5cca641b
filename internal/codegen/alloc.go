package codegen

// preferenceOrder lists callee-saved registers first so that values rarely need
// saving around runtime calls. Argument registers and rax come last.
var preferenceOrder = []Register{
	RBX, R12, R13, R14, R15,
	R10, R11, R8, R9, RCX, RDX,
	RSI, RDI,
	RAX,
}

// Allocator tracks which registers hold values that must survive.
type Allocator struct {
	live RegSet
}

// Allocate returns a register that is not live. The register is not marked live.
func (a *Allocator) Allocate() (Register, error) {
	return a.AllocateExcluding(0)
}

// AllocateExcluding is Allocate with extra registers ruled out.
func (a *Allocator) AllocateExcluding(exclude RegSet) (Register, error) {
	busy := a.live.Union(exclude)
	for _, r := range preferenceOrder {
		if !busy.Has(r) {
			return r, nil
		}
	}
	return 0, &ResourceExhaustionError{Live: busy}
}

func (a *Allocator) MarkLive(r Register) {
	a.live = a.live.With(r)
}

func (a *Allocator) Release(r Register) {
	a.live = a.live.Without(r)
}

func (a *Allocator) IsLive(r Register) bool {
	return a.live.Has(r)
}

func (a *Allocator) Live() RegSet {
	return a.live
}
