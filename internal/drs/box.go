package drs

import (
	"fmt"
	"strings"
)

// Kind distinguishes plain boxes from the two question wrappers.
type Kind int

const (
	PlainBox Kind = iota
	PolarQuestion
	SubjectQuestion
)

// Box is a discourse representation: a set of referents and an ordered,
// deduplicated sequence of conditions. Boxes nest through the conditions that
// own them and every box has exactly one owner.
type Box struct {
	referents  []*Referent
	conditions []Condition
	kind       Kind
	target     *Referent
}

// New creates a plain box declaring refs.
func New(refs ...*Referent) *Box {
	b := &Box{}
	for _, r := range refs {
		b.AddReferent(r)
	}
	return b
}

// Wrap creates a plain box holding conds and no referents.
func Wrap(conds ...Condition) *Box {
	b := &Box{}
	for _, c := range conds {
		b.AddCondition(c)
	}
	return b
}

// With adds conds to b and returns it.
func (b *Box) With(conds ...Condition) *Box {
	for _, c := range conds {
		b.AddCondition(c)
	}
	return b
}

// PolarQuestionOf returns a yes/no question box with the content of b.
func PolarQuestionOf(b *Box) *Box {
	q := b.Copy()
	q.kind = PolarQuestion
	q.target = nil
	return q
}

// SubjectQuestionOf returns a wh-question box with the content of b asking
// for target.
func SubjectQuestionOf(b *Box, target *Referent) *Box {
	q := b.Copy()
	q.kind = SubjectQuestion
	q.target = target
	return q
}

// Plain returns a copy of b without any question tag.
func (b *Box) Plain() *Box {
	p := b.Copy()
	p.kind = PlainBox
	p.target = nil
	return p
}

func (b *Box) Kind() Kind        { return b.kind }
func (b *Box) Target() *Referent { return b.target }
func (b *Box) IsQuestion() bool  { return b.kind != PlainBox }
func (b *Box) Empty() bool       { return len(b.referents) == 0 && len(b.conditions) == 0 }
func (b *Box) Len() int          { return len(b.conditions) }

// Referents returns the declared referents in declaration order.
func (b *Box) Referents() []*Referent {
	return append([]*Referent(nil), b.referents...)
}

// Conditions returns a snapshot of the condition sequence.
func (b *Box) Conditions() []Condition {
	return append([]Condition(nil), b.conditions...)
}

func (b *Box) HasReferent(r *Referent) bool {
	return b.indexOfReferent(r) >= 0
}

func (b *Box) indexOfReferent(r *Referent) int {
	for i, x := range b.referents {
		if x == r {
			return i
		}
	}
	return -1
}

// AddReferent declares r in b. Declaring twice is a no-op.
func (b *Box) AddReferent(r *Referent) {
	if !b.HasReferent(r) {
		b.referents = append(b.referents, r)
	}
}

// RemoveReferent drops the declaration of r from b.
func (b *Box) RemoveReferent(r *Referent) {
	if i := b.indexOfReferent(r); i >= 0 {
		b.referents = append(b.referents[:i], b.referents[i+1:]...)
	}
}

// AddCondition appends c unless an equal condition is already present. An
// informative duplicate replaces the old occurrence and moves to the end; an
// uninformative duplicate is dropped.
func (b *Box) AddCondition(c Condition) {
	if i := b.indexOfCondition(c); i >= 0 {
		if !c.Informative() {
			return
		}
		b.conditions = append(b.conditions[:i], b.conditions[i+1:]...)
	}
	b.conditions = append(b.conditions, c)
}

// RemoveCondition removes the first condition equal to c and reports
// whether one was found.
func (b *Box) RemoveCondition(c Condition) bool {
	i := b.indexOfCondition(c)
	if i < 0 {
		return false
	}
	b.conditions = append(b.conditions[:i], b.conditions[i+1:]...)
	return true
}

// HasCondition reports whether a condition equal to c is present.
func (b *Box) HasCondition(c Condition) bool {
	return b.indexOfCondition(c) >= 0
}

func (b *Box) indexOfCondition(c Condition) int {
	for i, x := range b.conditions {
		if x == c || x.equal(c) {
			return i
		}
	}
	return -1
}

// Copy returns a deep copy of b. Referents are shared, conditions and nested
// boxes are copied.
func (b *Box) Copy() *Box {
	c := &Box{
		referents: append([]*Referent(nil), b.referents...),
		kind:      b.kind,
		target:    b.target,
	}
	for _, cond := range b.conditions {
		c.AddCondition(cond.Copy())
	}
	return c
}

// Merge adds the referents and copies of the conditions of other into b.
// If other is a wh-question, b becomes one with the same target.
func (b *Box) Merge(other *Box) *Box {
	for _, r := range other.referents {
		b.AddReferent(r)
	}
	for _, c := range other.conditions {
		b.AddCondition(c.Copy())
	}
	if other.kind == SubjectQuestion {
		b.kind = SubjectQuestion
		b.target = other.target
	}
	return b
}

// Merge combines boxes into a new box. The result keeps the kind of the
// first box unless a later one is a wh-question.
func Merge(boxes ...*Box) *Box {
	if len(boxes) == 0 {
		return New()
	}
	out := boxes[0].Copy()
	for _, b := range boxes[1:] {
		out.Merge(b)
	}
	return out
}

// Walk returns b and every nested box in pre-order.
func (b *Box) Walk() []*Box {
	out := []*Box{b}
	for _, c := range b.conditions {
		for _, child := range c.Children() {
			out = append(out, child.Walk()...)
		}
	}
	return out
}

// Equal reports structural equality: same referent set and equal
// conditions in the same order.
func (b *Box) Equal(o *Box) bool {
	if b == o {
		return true
	}
	if b.kind != o.kind || len(b.referents) != len(o.referents) || len(b.conditions) != len(o.conditions) {
		return false
	}
	for _, r := range b.referents {
		if !o.HasReferent(r) {
			return false
		}
	}
	for i := range b.conditions {
		if !b.conditions[i].equal(o.conditions[i]) {
			return false
		}
	}
	return true
}

// InformativeCopy returns a copy of b with every uninformative condition
// removed at every level.
func (b *Box) InformativeCopy() *Box {
	c := b.Copy()
	for _, box := range c.Walk() {
		kept := box.conditions[:0]
		for _, cond := range box.conditions {
			if cond.Informative() {
				kept = append(kept, cond)
			}
		}
		box.conditions = kept
	}
	return c
}

// ReplaceReferent substitutes new for old throughout the tree rooted at b.
// new is declared where old was, unless a box on the path already declares
// it, and redundant inner declarations of new are dropped.
func (b *Box) ReplaceReferent(old, new *Referent) error {
	if old.Named() && !new.Named() {
		return fmt.Errorf("%w: %s by %s", ErrNamedToUnnamed, old, new)
	}
	_, err := b.replaceReferent(old, new, false)
	return err
}

func (b *Box) replaceReferent(old, new *Referent, declared bool) (bool, error) {
	hasNew := b.HasReferent(new)
	if hasNew && declared {
		b.RemoveReferent(new)
		hasNew = false
	}
	if i := b.indexOfReferent(old); i >= 0 {
		if declared || hasNew {
			b.RemoveReferent(old)
		} else {
			b.referents[i] = new
			hasNew = true
		}
	}
	if b.target == old {
		b.target = new
	}
	here := declared || hasNew
	for _, c := range b.conditions {
		if err := c.replaceReferent(old, new, here); err != nil {
			return here, err
		}
	}
	return here, nil
}

func (b *Box) String() string {
	return b.label() + b.render(b.conditions, func(c Condition) string { return c.String() })
}

// Summary renders b with informative conditions only.
func (b *Box) Summary() string {
	var informative []Condition
	for _, c := range b.conditions {
		if c.Informative() {
			informative = append(informative, c)
		}
	}
	return b.label() + b.render(informative, func(c Condition) string { return c.Summary() })
}

func (b *Box) label() string {
	switch b.kind {
	case PolarQuestion:
		return "Yes/No Question: "
	case SubjectQuestion:
		return fmt.Sprintf("Question(%s): ", b.target)
	default:
		return ""
	}
}

func (b *Box) render(conds []Condition, show func(Condition) string) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = show(c)
	}
	body := strings.Join(parts, ", ")
	if len(b.referents) > 0 {
		ids := make([]string, len(b.referents))
		for i, r := range b.referents {
			ids[i] = r.ID()
		}
		return "[" + strings.Join(ids, ", ") + " | " + body + "]"
	}
	if len(conds) == 1 {
		return body
	}
	return "[" + body + "]"
}
