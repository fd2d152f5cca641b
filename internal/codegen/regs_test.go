package codegen

import (
	"errors"
	"math"
	"testing"
)

func TestRegSet(t *testing.T) {
	s := SetOf(RDI, RAX, R12)
	if s.Len() != 3 {
		t.Errorf("expected 3 members, got %d", s.Len())
	}
	if !s.Has(RAX) || !s.Has(RDI) || !s.Has(R12) || s.Has(RBX) {
		t.Errorf("unexpected membership in %s", s)
	}
	if got := s.String(); got != "{rax rdi r12}" {
		t.Errorf("expected {rax rdi r12}, got %s", got)
	}
	s = s.Without(RDI).With(RBX)
	if got := s.Registers(); len(got) != 3 || got[0] != RAX || got[1] != RBX || got[2] != R12 {
		t.Errorf("expected [rax rbx r12], got %v", got)
	}
	if got := s.Intersect(CallerSaved).Registers(); len(got) != 1 || got[0] != RAX {
		t.Errorf("expected only rax to be caller-saved, got %v", got)
	}
	if CallerSaved.Intersect(CalleeSaved) != 0 {
		t.Errorf("register classes overlap: %s", CallerSaved.Intersect(CalleeSaved))
	}
	if CallerSaved.Union(CalleeSaved).Len() != len(AllRegisters) {
		t.Errorf("register classes do not cover the inventory")
	}
}

func TestRegisterNames(t *testing.T) {
	for _, r := range AllRegisters {
		got, ok := RegisterByName(r.String())
		if !ok || got != r {
			t.Errorf("RegisterByName(%q) = %v, %v", r.String(), got, ok)
		}
	}
	if _, ok := RegisterByName("rsp"); ok {
		t.Errorf("rsp must not be part of the inventory")
	}
}

func TestAllocator(t *testing.T) {
	var a Allocator
	r, err := a.Allocate()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r != RBX {
		t.Errorf("expected rbx first, got %s", r)
	}
	if again, _ := a.Allocate(); again != r {
		t.Errorf("allocating without marking live must return the same register, got %s", again)
	}

	a.MarkLive(r)
	next, _ := a.Allocate()
	if next != R12 {
		t.Errorf("expected r12 after rbx is live, got %s", next)
	}

	excluded, _ := a.AllocateExcluding(SetOf(R12, R13))
	if excluded != R14 {
		t.Errorf("expected r14 when r12 and r13 are excluded, got %s", excluded)
	}

	a.Release(r)
	if a.IsLive(r) {
		t.Errorf("%s still live after release", r)
	}
}

func TestAllocatorExhaustion(t *testing.T) {
	var a Allocator
	for range AllRegisters {
		r, err := a.Allocate()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		a.MarkLive(r)
	}
	if a.Live().Len() != len(AllRegisters) {
		t.Fatalf("expected every register live, got %s", a.Live())
	}
	_, err := a.Allocate()
	var exhausted *ResourceExhaustionError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ResourceExhaustionError, got %v", err)
	}
}

func TestConstantPool(t *testing.T) {
	var empty ConstantPool
	p1, l1 := empty.Add(2.5)
	p2, l2 := p1.Add(1.5)
	p3, l3 := p2.Add(2.5)

	if l1 != "flt0" || l2 != "flt1" {
		t.Errorf("expected flt0 and flt1, got %s and %s", l1, l2)
	}
	if l3 != l1 {
		t.Errorf("expected duplicate value to reuse %s, got %s", l1, l3)
	}
	if p3.Len() != 2 {
		t.Errorf("expected 2 entries, got %d", p3.Len())
	}
	if empty.Len() != 0 || p1.Len() != 1 {
		t.Errorf("earlier pools changed: %d, %d", empty.Len(), p1.Len())
	}

	p4, zero := p3.Add(0)
	_, negZero := p4.Add(math.Copysign(0, -1))
	if zero == negZero {
		t.Errorf("0.0 and -0.0 must get separate labels")
	}

	entries := p3.Entries()
	if entries[0].Label != "flt0" || entries[0].Value != 2.5 || entries[1].Value != 1.5 {
		t.Errorf("unexpected entries %v", entries)
	}
}

func TestRuntimeSymbols(t *testing.T) {
	symbols := RuntimeSymbols()
	for _, want := range []string{"newint", "newfloat", "madd", "msub", "mmul", "mdiv", "mmod", "eq",
		"empty", "isempty", "first", "rest", "cons", "append", "list"} {
		found := false
		for _, s := range symbols {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing runtime symbol %s in %v", want, symbols)
		}
	}
}
