package drs

// Simplify folds every Equality outside negated and disjunctive scopes into
// a single referent. A named referent always survives the fold. Conditions
// made identical by the substitution are deduplicated afterwards.
func (b *Box) Simplify() error {
	replaced := make(map[*Referent]*Referent)
	resolve := func(r *Referent) *Referent {
		for {
			next, ok := replaced[r]
			if !ok {
				return r
			}
			r = next
		}
	}

	stack := []*Box{b}
	for len(stack) > 0 {
		box := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for _, c := range box.Conditions() {
			if eq, ok := c.(*Equality); ok {
				left, right := resolve(eq.Left), resolve(eq.Right)
				if left != right {
					survivor, gone := right, left
					if left.Named() {
						survivor, gone = left, right
					}
					if err := b.ReplaceReferent(gone, survivor); err != nil {
						return err
					}
					replaced[gone] = survivor
				}
				box.removeExact(c)
				continue
			}
			switch c.(type) {
			case *Negation, *Alternation:
			default:
				stack = append(stack, c.Children()...)
			}
		}
	}

	for _, box := range b.Walk() {
		box.dedupe()
	}
	return nil
}

func (b *Box) removeExact(c Condition) {
	for i, x := range b.conditions {
		if x == c {
			b.conditions = append(b.conditions[:i], b.conditions[i+1:]...)
			return
		}
	}
}

func (b *Box) dedupe() {
	conds := b.conditions
	b.conditions = nil
	for _, c := range conds {
		b.AddCondition(c)
	}
}

// RaiseNamedRefs moves every named referent declared anywhere in the tree
// to the root box.
func (b *Box) RaiseNamedRefs() {
	var named []*Referent
	for _, box := range b.Walk() {
		kept := box.referents[:0]
		for _, r := range box.referents {
			if r.Named() {
				named = append(named, r)
			} else {
				kept = append(kept, r)
			}
		}
		box.referents = kept
	}
	for _, r := range named {
		b.AddReferent(r)
	}
}

// EliminateResolutions turns every Resolution condition into a plain
// declaration of its referent in the box holding it.
func (b *Box) EliminateResolutions() {
	for _, box := range b.Walk() {
		for _, c := range box.Conditions() {
			if res, ok := c.(*Resolution); ok {
				box.AddReferent(res.Ref)
				box.removeExact(c)
			}
		}
	}
}

// Resolutions returns the unresolved conditions in the tree together with
// the box holding each, innermost first.
func (b *Box) Resolutions() []Pending {
	var out []Pending
	var visit func(box *Box)
	visit = func(box *Box) {
		for _, c := range box.conditions {
			for _, child := range c.Children() {
				visit(child)
			}
			if res, ok := c.(*Resolution); ok {
				out = append(out, Pending{Box: box, Cond: res})
			}
		}
	}
	visit(b)
	return out
}

// Pending pairs an unresolved condition with the box that holds it.
type Pending struct {
	Box  *Box
	Cond *Resolution
}
