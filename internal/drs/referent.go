// Package drs implements discourse representation structures: referents,
// conditions and the boxes that scope them.
package drs

import (
	"fmt"
	"strings"
	"sync"
)

// Sort classifies what kind of entity a referent stands for.
type Sort byte

const (
	EventSort    Sort = 'e'
	SingularSort Sort = 's'
	PluralSort   Sort = 'p'
	MassSort     Sort = 'm'
)

// SortFromNumber maps a grammatical number feature to a referent sort.
func SortFromNumber(number string) Sort {
	switch number {
	case "pl":
		return PluralSort
	case "ms":
		return MassSort
	default:
		return SingularSort
	}
}

// Referent is a discourse entity. Its ID doubles as the constant symbol in
// rendered formulas, so sorts must never be one of the letters u-z which the
// prover reads as variables.
//
// Unnamed referents are compared by pointer. Named referents are interned by
// the Allocator, so a name always maps to a single *Referent.
type Referent struct {
	Sort  Sort
	Index int
	Name  string
}

// ID returns the identifier used in formulas and displays.
func (r *Referent) ID() string {
	if r.Name != "" {
		return string(r.Sort) + "_" + r.Name
	}
	return fmt.Sprintf("%c%d", r.Sort, r.Index)
}

func (r *Referent) String() string { return r.ID() }

// Named reports whether the referent is bound to a proper name.
func (r *Referent) Named() bool { return r.Name != "" }

// Pretty returns the display form of a named referent.
func (r *Referent) Pretty() string {
	if r.Name == "" {
		return r.ID()
	}
	return strings.ReplaceAll(r.Name, "_", " ")
}

// Allocator hands out referents with monotonically increasing indices. One
// allocator is shared by everything that builds boxes for the same discourse.
type Allocator struct {
	mu    sync.Mutex
	next  int
	named map[string]*Referent
}

// NewAllocator creates an allocator starting at index 1.
func NewAllocator() *Allocator {
	return &Allocator{next: 1, named: make(map[string]*Referent)}
}

// New allocates a fresh referent of the given sort.
func (a *Allocator) New(sort Sort) *Referent {
	a.mu.Lock()
	defer a.mu.Unlock()
	r := &Referent{Sort: sort, Index: a.next}
	a.next++
	return r
}

// Named returns the referent for a proper name, creating it on first use.
// The index records when the name was first mentioned.
func (a *Allocator) Named(name string) *Referent {
	a.mu.Lock()
	defer a.mu.Unlock()
	if r, ok := a.named[name]; ok {
		return r
	}
	r := &Referent{Sort: SingularSort, Index: a.next, Name: name}
	a.next++
	a.named[name] = r
	return r
}
