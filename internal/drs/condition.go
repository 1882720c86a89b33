package drs

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrUnresolved is returned when formulating a box that still holds a
	// Resolution condition.
	ErrUnresolved = errors.New("cannot formulate unresolved condition")
	// ErrRebindUnresolved is returned when substituting the referent that a
	// Resolution condition is still trying to bind.
	ErrRebindUnresolved = errors.New("cannot replace unresolved referent")
	// ErrNamedToUnnamed is returned when a named referent would be replaced
	// by an unnamed one.
	ErrNamedToUnnamed = errors.New("cannot replace named referent with unnamed referent")
)

// Condition is one of Predicate, Equality, Negation, Alternation,
// Implication or Resolution.
type Condition interface {
	// Informative reports whether the condition is surfaced in summaries
	// and answers. Uninformative conditions only constrain consistency.
	Informative() bool
	SetInformative(bool)
	// Children returns the boxes owned by the condition.
	Children() []*Box
	Copy() Condition
	Formulate() (string, error)
	String() string
	Summary() string

	equal(Condition) bool
	replaceReferent(old, new *Referent, declared bool) error
}

type flags struct{ hidden bool }

func (f *flags) Informative() bool     { return !f.hidden }
func (f *flags) SetInformative(v bool) { f.hidden = !v }

// Hidden marks c as uninformative and returns it.
func Hidden[C Condition](c C) C {
	c.SetInformative(false)
	return c
}

// Predicate applies a predicate symbol to one or more referents.
type Predicate struct {
	flags
	Name string
	Args []*Referent
}

func NewPredicate(name string, args ...*Referent) *Predicate {
	return &Predicate{Name: name, Args: args}
}

func (p *Predicate) Children() []*Box { return nil }

func (p *Predicate) Copy() Condition {
	return &Predicate{flags: p.flags, Name: p.Name, Args: append([]*Referent(nil), p.Args...)}
}

func (p *Predicate) String() string {
	ids := make([]string, len(p.Args))
	for i, a := range p.Args {
		ids[i] = a.ID()
	}
	return p.Name + "(" + strings.Join(ids, ", ") + ")"
}

func (p *Predicate) Summary() string { return p.String() }

var unsafeSymbol = regexp.MustCompile(`['"/-]`)

func (p *Predicate) Formulate() (string, error) {
	return unsafeSymbol.ReplaceAllString(strings.ReplaceAll(p.String(), ".", "_"), "__"), nil
}

func (p *Predicate) equal(other Condition) bool {
	o, ok := other.(*Predicate)
	if !ok || o.Name != p.Name || len(o.Args) != len(p.Args) {
		return false
	}
	for i := range p.Args {
		if p.Args[i] != o.Args[i] {
			return false
		}
	}
	return true
}

func (p *Predicate) replaceReferent(old, new *Referent, _ bool) error {
	for i, a := range p.Args {
		if a == old {
			p.Args[i] = new
		}
	}
	return nil
}

// Equality asserts that two referents denote the same individual.
type Equality struct {
	flags
	Left, Right *Referent
}

func NewEquality(left, right *Referent) *Equality {
	return &Equality{Left: left, Right: right}
}

func (e *Equality) Children() []*Box { return nil }
func (e *Equality) Copy() Condition  { c := *e; return &c }
func (e *Equality) String() string   { return fmt.Sprintf("(%s = %s)", e.Left, e.Right) }
func (e *Equality) Summary() string  { return e.String() }

func (e *Equality) Formulate() (string, error) { return e.String(), nil }

func (e *Equality) equal(other Condition) bool {
	o, ok := other.(*Equality)
	if !ok {
		return false
	}
	return (e.Left == o.Left && e.Right == o.Right) || (e.Left == o.Right && e.Right == o.Left)
}

func (e *Equality) replaceReferent(old, new *Referent, _ bool) error {
	if e.Left == old {
		e.Left = new
	}
	if e.Right == old {
		e.Right = new
	}
	return nil
}

// Negation wraps a box whose content is denied.
type Negation struct {
	flags
	Box *Box
}

func NewNegation(b *Box) *Negation { return &Negation{Box: b} }

func (n *Negation) Children() []*Box { return []*Box{n.Box} }
func (n *Negation) Copy() Condition  { return &Negation{flags: n.flags, Box: n.Box.Copy()} }
func (n *Negation) String() string   { return "-" + n.Box.String() }
func (n *Negation) Summary() string  { return "-" + n.Box.Summary() }

func (n *Negation) Formulate() (string, error) {
	inner, err := n.Box.Formulate(true)
	if err != nil {
		return "", err
	}
	return "-(" + inner + ")", nil
}

func (n *Negation) equal(other Condition) bool {
	o, ok := other.(*Negation)
	return ok && n.Box.Equal(o.Box)
}

func (n *Negation) replaceReferent(old, new *Referent, declared bool) error {
	_, err := n.Box.replaceReferent(old, new, declared)
	return err
}

// Alternation is the disjunction of two boxes.
type Alternation struct {
	flags
	Left, Right *Box
}

func NewAlternation(left, right *Box) *Alternation {
	return &Alternation{Left: left, Right: right}
}

func (a *Alternation) Children() []*Box { return []*Box{a.Left, a.Right} }

func (a *Alternation) Copy() Condition {
	return &Alternation{flags: a.flags, Left: a.Left.Copy(), Right: a.Right.Copy()}
}

func (a *Alternation) String() string { return fmt.Sprintf("(%s or %s)", a.Left, a.Right) }

func (a *Alternation) Summary() string {
	return fmt.Sprintf("(%s or %s)", a.Left.Summary(), a.Right.Summary())
}

func (a *Alternation) Formulate() (string, error) {
	left, err := a.Left.Formulate(true)
	if err != nil {
		return "", err
	}
	right, err := a.Right.Formulate(true)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("((%s) | (%s))", left, right), nil
}

func (a *Alternation) equal(other Condition) bool {
	o, ok := other.(*Alternation)
	if !ok {
		return false
	}
	return (a.Left.Equal(o.Left) && a.Right.Equal(o.Right)) ||
		(a.Left.Equal(o.Right) && a.Right.Equal(o.Left))
}

func (a *Alternation) replaceReferent(old, new *Referent, declared bool) error {
	if _, err := a.Left.replaceReferent(old, new, declared); err != nil {
		return err
	}
	_, err := a.Right.replaceReferent(old, new, declared)
	return err
}

// Implication states that the antecedent box implies the consequent box.
// Referents of the antecedent are universally quantified and visible in the
// consequent.
type Implication struct {
	flags
	Antecedent, Consequent *Box
}

func NewImplication(antecedent, consequent *Box) *Implication {
	return &Implication{Antecedent: antecedent, Consequent: consequent}
}

func (i *Implication) Children() []*Box { return []*Box{i.Antecedent, i.Consequent} }

func (i *Implication) Copy() Condition {
	return &Implication{flags: i.flags, Antecedent: i.Antecedent.Copy(), Consequent: i.Consequent.Copy()}
}

func (i *Implication) String() string {
	return fmt.Sprintf("(%s -> %s)", i.Antecedent, i.Consequent)
}

func (i *Implication) Summary() string {
	return fmt.Sprintf("(%s -> %s)", i.Antecedent.Summary(), i.Consequent.Summary())
}

func (i *Implication) Formulate() (string, error) {
	conds, err := i.Antecedent.FormulateConditions(true)
	if err != nil {
		return "", err
	}
	cons, err := i.Consequent.Formulate(true)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s ((%s) -> (%s)))", i.Antecedent.FormulateDomain(true), conds, cons), nil
}

func (i *Implication) equal(other Condition) bool {
	o, ok := other.(*Implication)
	return ok && i.Antecedent.Equal(o.Antecedent) && i.Consequent.Equal(o.Consequent)
}

func (i *Implication) replaceReferent(old, new *Referent, declared bool) error {
	seen, err := i.Antecedent.replaceReferent(old, new, declared)
	if err != nil {
		return err
	}
	_, err = i.Consequent.replaceReferent(old, new, seen)
	return err
}

// ResolutionKind tags what sort of expression introduced a Resolution.
type ResolutionKind string

const (
	Presuppose        ResolutionKind = "presuppose"
	PronounSubject    ResolutionKind = "pronoun-sbj"
	PronounObject     ResolutionKind = "pronoun-obj"
	PronounReflexive  ResolutionKind = "pronoun-rflx"
	PronounPossessive ResolutionKind = "pronoun-poss"
	PossessedPronoun  ResolutionKind = "pronoun-poss_main"
)

// Accommodates reports whether an unbound referent of this kind may be
// introduced as a new entity.
func (k ResolutionKind) Accommodates() bool { return k == Presuppose }

// Resolution is a referent still waiting to be bound. Requirements lists the
// conditions the eventual binding must satisfy.
type Resolution struct {
	Ref          *Referent
	Requirements *Box
	Kind         ResolutionKind
}

func NewResolution(ref *Referent, requirements *Box, kind ResolutionKind) *Resolution {
	return &Resolution{Ref: ref, Requirements: requirements, Kind: kind}
}

func (r *Resolution) Informative() bool          { return true }
func (r *Resolution) SetInformative(bool)        {}
func (r *Resolution) Children() []*Box           { return []*Box{r.Requirements} }
func (r *Resolution) Formulate() (string, error) { return "", ErrUnresolved }

func (r *Resolution) Copy() Condition {
	return &Resolution{Ref: r.Ref, Requirements: r.Requirements.Copy(), Kind: r.Kind}
}

func (r *Resolution) String() string {
	return fmt.Sprintf("%s ? {{%s}}", r.Ref, unbracket(r.Requirements.String()))
}

func (r *Resolution) Summary() string {
	return fmt.Sprintf("%s ? {{%s}}", r.Ref, unbracket(r.Requirements.Summary()))
}

func (r *Resolution) equal(other Condition) bool {
	o, ok := other.(*Resolution)
	return ok && o.Ref == r.Ref
}

func (r *Resolution) replaceReferent(old, new *Referent, declared bool) error {
	if r.Ref == old {
		return fmt.Errorf("%w: %s", ErrRebindUnresolved, old)
	}
	_, err := r.Requirements.replaceReferent(old, new, declared)
	return err
}

func unbracket(s string) string {
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		return s[1 : len(s)-1]
	}
	return s
}
