package logic

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"crystal/internal/drs"
)

// DefaultMaxGroundings bounds the number of variable assignments a single
// quantified box may expand to.
const DefaultMaxGroundings = 1 << 16

// SATModelFinder searches for a finite model in process. Referents of the
// root box and free referents become constants ranging over the domain;
// nested quantifiers are expanded over every domain element and the result
// is handed to a SAT solver. It decides the same question as mace4 with the
// same domain size.
type SATModelFinder struct {
	MaxGroundings int
}

// HasModel reports whether box has a model of size DomainSize(box).
func (f *SATModelFinder) HasModel(ctx context.Context, box *drs.Box) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	limit := f.MaxGroundings
	if limit <= 0 {
		limit = DefaultMaxGroundings
	}

	g := newGrounder(DomainSize(box), limit)
	formula, err := g.root(box)
	if err != nil {
		return false, err
	}

	// ToCnf only encodes gates that already exist, so the root comes first.
	root := g.c.Ands(append(g.axioms, formula)...)
	solver := gini.New()
	g.c.ToCnf(solver)
	solver.Assume(root)
	switch solver.Solve() {
	case 1:
		return true, nil
	case -1:
		return false, nil
	default:
		return false, &IntegrationError{Tool: "sat", Output: "solver returned unknown"}
	}
}

// constant is a referent whose value is one of the domain elements, encoded
// one-hot.
type constant struct {
	is []z.Lit
}

// term is either a bound domain element or a constant.
type term struct {
	elem  int
	konst *constant
}

type grounder struct {
	c      *logic.C
	n      int
	limit  int
	consts map[*drs.Referent]*constant
	atoms  map[string]z.Lit
	axioms []z.Lit
}

func newGrounder(n, limit int) *grounder {
	return &grounder{
		c:      logic.NewC(),
		n:      n,
		limit:  limit,
		consts: make(map[*drs.Referent]*constant),
		atoms:  make(map[string]z.Lit),
	}
}

type env map[*drs.Referent]int

func (e env) with(refs []*drs.Referent, values []int) env {
	out := make(env, len(e)+len(refs))
	for k, v := range e {
		out[k] = v
	}
	for i, r := range refs {
		out[r] = values[i]
	}
	return out
}

// root grounds the top-level box. Its referents are Skolem constants.
func (g *grounder) root(b *drs.Box) (z.Lit, error) {
	return g.conditions(b, env{})
}

func (g *grounder) constant(r *drs.Referent) *constant {
	if k, ok := g.consts[r]; ok {
		return k
	}
	k := &constant{is: make([]z.Lit, g.n)}
	for i := range k.is {
		k.is[i] = g.c.Lit()
	}
	g.axioms = append(g.axioms, g.c.Ors(k.is...))
	for i := range k.is {
		for j := i + 1; j < len(k.is); j++ {
			g.axioms = append(g.axioms, g.c.And(k.is[i], k.is[j]).Not())
		}
	}
	g.consts[r] = k
	return k
}

func (g *grounder) term(r *drs.Referent, e env) term {
	if v, ok := e[r]; ok {
		return term{elem: v}
	}
	return term{elem: -1, konst: g.constant(r)}
}

func (g *grounder) ands(lits []z.Lit) z.Lit {
	if len(lits) == 0 {
		return g.c.T
	}
	return g.c.Ands(lits...)
}

func (g *grounder) ors(lits []z.Lit) z.Lit {
	if len(lits) == 0 {
		return g.c.F
	}
	return g.c.Ors(lits...)
}

// conditions grounds the conjunction of the conditions of b together with
// distinctness of its referents.
func (g *grounder) conditions(b *drs.Box, e env) (z.Lit, error) {
	var lits []z.Lit
	for _, c := range b.Conditions() {
		lit, err := g.condition(c, e)
		if err != nil {
			return g.c.F, err
		}
		lits = append(lits, lit)
	}
	refs := b.Referents()
	for i, r := range refs {
		for _, s := range refs[i+1:] {
			lits = append(lits, g.equal(g.term(r, e), g.term(s, e)).Not())
		}
	}
	return g.ands(lits), nil
}

// assignments enumerates every mapping of k referents to domain elements.
func (g *grounder) assignments(k int, visit func([]int) error) error {
	total := 1
	for i := 0; i < k; i++ {
		total *= g.n
		if total > g.limit {
			return fmt.Errorf("grounding %d referents over %d elements exceeds limit %d", k, g.n, g.limit)
		}
	}
	values := make([]int, k)
	for i := 0; i < total; i++ {
		rest := i
		for j := range values {
			values[j] = rest % g.n
			rest /= g.n
		}
		if err := visit(values); err != nil {
			return err
		}
	}
	return nil
}

// exists grounds a nested box as an existential over its referents.
func (g *grounder) exists(b *drs.Box, e env) (z.Lit, error) {
	refs := b.Referents()
	var options []z.Lit
	err := g.assignments(len(refs), func(values []int) error {
		lit, err := g.conditions(b, e.with(refs, values))
		options = append(options, lit)
		return err
	})
	if err != nil {
		return g.c.F, err
	}
	return g.ors(options), nil
}

func (g *grounder) condition(c drs.Condition, e env) (z.Lit, error) {
	switch c := c.(type) {
	case *drs.Predicate:
		return g.predicate(c, e)
	case *drs.Equality:
		return g.equal(g.term(c.Left, e), g.term(c.Right, e)), nil
	case *drs.Negation:
		lit, err := g.exists(c.Box, e)
		return lit.Not(), err
	case *drs.Alternation:
		left, err := g.exists(c.Left, e)
		if err != nil {
			return g.c.F, err
		}
		right, err := g.exists(c.Right, e)
		return g.c.Or(left, right), err
	case *drs.Implication:
		refs := c.Antecedent.Referents()
		var cases []z.Lit
		err := g.assignments(len(refs), func(values []int) error {
			inner := e.with(refs, values)
			premise, err := g.conditions(c.Antecedent, inner)
			if err != nil {
				return err
			}
			conclusion, err := g.exists(c.Consequent, inner)
			if err != nil {
				return err
			}
			cases = append(cases, g.c.Implies(premise, conclusion))
			return nil
		})
		return g.ands(cases), err
	case *drs.Resolution:
		return g.c.F, drs.ErrUnresolved
	default:
		return g.c.F, fmt.Errorf("unsupported condition %T", c)
	}
}

func (g *grounder) equal(a, b term) z.Lit {
	switch {
	case a.konst == nil && b.konst == nil:
		if a.elem == b.elem {
			return g.c.T
		}
		return g.c.F
	case a.konst != nil && b.konst != nil:
		if a.konst == b.konst {
			return g.c.T
		}
		same := make([]z.Lit, g.n)
		for d := range same {
			same[d] = g.c.And(a.konst.is[d], b.konst.is[d])
		}
		return g.ors(same)
	case a.konst != nil:
		return a.konst.is[b.elem]
	default:
		return b.konst.is[a.elem]
	}
}

// predicate grounds an atom. Constant arguments are expanded over the
// domain: P(c) holds iff for some d, c = d and P(d).
func (g *grounder) predicate(p *drs.Predicate, e env) (z.Lit, error) {
	terms := make([]term, len(p.Args))
	var open []int
	for i, a := range p.Args {
		terms[i] = g.term(a, e)
		if terms[i].konst != nil {
			open = append(open, i)
		}
	}

	var options []z.Lit
	values := make([]int, len(terms))
	err := g.assignments(len(open), func(choice []int) error {
		guards := make([]z.Lit, 0, len(open)+1)
		for i, t := range terms {
			values[i] = t.elem
		}
		for j, idx := range open {
			values[idx] = choice[j]
			guards = append(guards, terms[idx].konst.is[choice[j]])
		}
		guards = append(guards, g.atom(p.Name, values))
		options = append(options, g.ands(guards))
		return nil
	})
	if err != nil {
		return g.c.F, err
	}
	return g.ors(options), nil
}

func (g *grounder) atom(name string, values []int) z.Lit {
	var sb strings.Builder
	sb.WriteString(name)
	sb.WriteByte('/')
	sb.WriteString(strconv.Itoa(len(values)))
	for _, v := range values {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(v))
	}
	key := sb.String()
	if lit, ok := g.atoms[key]; ok {
		return lit
	}
	lit := g.c.Lit()
	g.atoms[key] = lit
	return lit
}

// BoundedProver decides entailment with a model finder: the theorem follows
// when the assumptions together with its negation have no model. Only models
// of the finder's domain size are searched, so a proof holds up to that size.
type BoundedProver struct {
	Finder ModelFinder
}

// Prove reports whether no countermodel to theorem exists.
func (p *BoundedProver) Prove(ctx context.Context, assumptions, theorem *drs.Box) (bool, error) {
	counter := drs.Merge(assumptions.Plain(), drs.Wrap(drs.NewNegation(theorem.Plain())))
	found, err := p.Finder.HasModel(ctx, counter)
	if err != nil {
		return false, err
	}
	return !found, nil
}
