package drs

// link records where a nested box hangs in the tree.
type link struct {
	parent *Box
	owner  Condition
}

// ScopeIndex maps every nested box of a tree to its enclosing box, so
// accessibility questions can be answered without back-pointers.
type ScopeIndex struct {
	root  *Box
	links map[*Box]link
}

// IndexScopes builds the scope index of the tree rooted at root. The index
// goes stale when boxes are added or removed from the tree.
func IndexScopes(root *Box) *ScopeIndex {
	x := &ScopeIndex{root: root, links: make(map[*Box]link)}
	x.index(root)
	return x
}

func (x *ScopeIndex) index(b *Box) {
	for _, c := range b.conditions {
		for _, child := range c.Children() {
			x.links[child] = link{parent: b, owner: c}
			x.index(child)
		}
	}
}

// Root returns the box the index was built from.
func (x *ScopeIndex) Root() *Box { return x.root }

// Parent returns the box whose condition owns b.
func (x *ScopeIndex) Parent(b *Box) (*Box, bool) {
	l, ok := x.links[b]
	return l.parent, ok
}

// Owner returns the condition that owns b.
func (x *ScopeIndex) Owner(b *Box) (Condition, bool) {
	l, ok := x.links[b]
	return l.owner, ok
}

// Contains reports whether b belongs to the indexed tree.
func (x *ScopeIndex) Contains(b *Box) bool {
	_, ok := x.links[b]
	return ok || b == x.root
}

// Chain returns the boxes whose referents are visible from b, innermost
// first. The consequent of an implication continues through its antecedent.
func (x *ScopeIndex) Chain(b *Box) []*Box {
	var chain []*Box
	for cur := b; cur != nil; {
		chain = append(chain, cur)
		l, ok := x.links[cur]
		if !ok {
			break
		}
		if imp, isImp := l.owner.(*Implication); isImp && imp.Consequent == cur {
			cur = imp.Antecedent
			continue
		}
		cur = l.parent
	}
	return chain
}

// Accessible returns the referents visible from b.
func (x *ScopeIndex) Accessible(b *Box) *Accessibility {
	chain := x.Chain(b)
	acc := &Accessibility{owner: make(map[*Referent]*Box)}
	for i := len(chain) - 1; i >= 0; i-- {
		for _, r := range chain[i].referents {
			if _, seen := acc.owner[r]; !seen {
				acc.order = append(acc.order, r)
			}
			acc.owner[r] = chain[i]
		}
	}
	return acc
}

// Accessible is a shorthand for IndexScopes(root).Accessible(b).
func Accessible(root, b *Box) *Accessibility {
	return IndexScopes(root).Accessible(b)
}

// Accessibility is an ordered mapping from referent to the box declaring it.
// Outer scopes come first; a referent declared in several visible boxes maps
// to the innermost one.
type Accessibility struct {
	order []*Referent
	owner map[*Referent]*Box
}

func (a *Accessibility) Referents() []*Referent {
	return append([]*Referent(nil), a.order...)
}

func (a *Accessibility) Owner(r *Referent) (*Box, bool) {
	b, ok := a.owner[r]
	return b, ok
}

func (a *Accessibility) Contains(r *Referent) bool {
	_, ok := a.owner[r]
	return ok
}

func (a *Accessibility) Len() int { return len(a.order) }
