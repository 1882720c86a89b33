// Package resolve binds the referents an utterance leaves open (pronouns,
// definite descriptions, possessives) to referents of the utterance itself
// or of the discourse context.
//
// Open referents are discharged innermost first. Candidates are the
// referents accessible from the site of the open referent plus the
// top-level referents of the context, most recent first. A candidate must
// carry every informative requirement and the binding must leave the
// discourse consistent. Presuppositions without a candidate are
// accommodated as new entities at the outermost scope that can see
// everything their requirements mention; pronouns without a candidate fail.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"crystal/internal/drs"
	"crystal/internal/logic"
)

// ConsistencyError reports that a box cannot be resolved consistently. It
// disqualifies the interpretation being resolved.
type ConsistencyError struct {
	Ref    *drs.Referent
	Reason string
}

func (e *ConsistencyError) Error() string {
	if e.Ref == nil {
		return "consistency error: " + e.Reason
	}
	return fmt.Sprintf("consistency error: %s: %s", e.Ref, e.Reason)
}

// IsConsistencyError reports whether err is or wraps a ConsistencyError.
func IsConsistencyError(err error) bool {
	var ce *ConsistencyError
	return errors.As(err, &ce)
}

// Resolver resolves boxes, checking bindings through an inference bridge.
type Resolver struct {
	bridge logic.Bridge
	logger *zap.Logger
}

// New creates a resolver. A nil logger disables logging.
func New(bridge logic.Bridge, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{bridge: bridge, logger: logger}
}

// Resolve discharges every open referent of candidate against the
// discourse box, which may be nil. The result is a new, simplified box
// with named referents raised to its root; it is not merged with the
// discourse. For questions only the requirements of a binding are checked
// against the discourse and they are not copied into the question.
func (r *Resolver) Resolve(ctx context.Context, candidate, discourse *drs.Box, question bool) (*drs.Box, error) {
	return r.resolve(ctx, candidate, discourse, question)
}

// ResolveStatement resolves box against an already resolved antecedent,
// which may be nil.
func (r *Resolver) ResolveStatement(ctx context.Context, box, antecedent *drs.Box) (*drs.Box, error) {
	return r.resolve(ctx, box, antecedent, false)
}

// FragmentConsistent reports whether fragment is consistent on its own
// after resolution against antecedent (nil for none). Failure to resolve
// counts as inconsistency.
func (r *Resolver) FragmentConsistent(ctx context.Context, fragment, antecedent *drs.Box) (bool, error) {
	var base *drs.Box
	if antecedent != nil {
		resolved, err := r.ResolveStatement(ctx, antecedent, nil)
		if IsConsistencyError(err) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		base = resolved
	}

	resolved, err := r.ResolveStatement(ctx, fragment, base)
	if IsConsistencyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.bridge.IsConsistent(ctx, resolved)
}

func (r *Resolver) resolve(ctx context.Context, box, discourse *drs.Box, question bool) (*drs.Box, error) {
	work := box.Copy()
	for {
		pending := work.Resolutions()
		if len(pending) == 0 {
			break
		}
		if err := r.discharge(ctx, work, discourse, pending[0], question); err != nil {
			return nil, err
		}
	}

	if err := work.Simplify(); err != nil {
		return nil, &ConsistencyError{Reason: err.Error()}
	}
	work.RaiseNamedRefs()
	return work, nil
}

// discharge binds or accommodates one open referent in work.
func (r *Resolver) discharge(ctx context.Context, work, discourse *drs.Box, p drs.Pending, question bool) error {
	ref := p.Cond.Ref
	index := drs.IndexScopes(work)

	for _, cand := range candidates(index, p, discourse, work.Target()) {
		if !carriesRequirements(index, p, discourse, cand) {
			continue
		}
		ok, err := r.trialConsistent(ctx, work, discourse, question, func(trial *drs.Box, tp drs.Pending, _ *drs.Box) error {
			return bind(trial, tp, cand, true)
		})
		if err != nil {
			return err
		}
		if ok {
			r.logger.Debug("bound referent",
				zap.String("ref", ref.ID()),
				zap.String("kind", string(p.Cond.Kind)),
				zap.String("to", cand.ID()))
			return bind(work, p, cand, !question)
		}
	}

	if !p.Cond.Kind.Accommodates() {
		return &ConsistencyError{Ref: ref, Reason: fmt.Sprintf("no antecedent for %s", p.Cond.Kind)}
	}

	target := accommodationScope(index, p, discourse)
	ok, err := r.trialConsistent(ctx, work, discourse, question, func(trial *drs.Box, tp drs.Pending, scope *drs.Box) error {
		if scope == nil {
			scope = target.locate(trial)
		}
		accommodate(tp, scope)
		return nil
	})
	if err != nil {
		return err
	}
	if !ok {
		return &ConsistencyError{Ref: ref, Reason: "accommodation is inconsistent with the discourse"}
	}
	r.logger.Debug("accommodated referent", zap.String("ref", ref.ID()))
	accommodate(p, target.locate(work))
	return nil
}

// change applies a binding or an accommodation to root. scope, when not
// nil, overrides where an accommodated referent is declared.
type change func(root *drs.Box, p drs.Pending, scope *drs.Box) error

// trialConsistent applies apply to a copy of work and asks the bridge
// whether the outcome is consistent with the discourse. For statements the
// local context of the site is asserted; checking the whole box is not
// enough, since a conditional is satisfied vacuously by a binding its
// antecedent rules out. For questions only the discharged requirements
// are asserted.
func (r *Resolver) trialConsistent(ctx context.Context, work, discourse *drs.Box, question bool, apply change) (bool, error) {
	trial := work.Copy()
	tp := trial.Resolutions()[0]

	var check *drs.Box
	if question {
		reqs := tp.Cond.Requirements.Copy()
		holder := drs.New(reqs.Referents()...).With(reqs.Conditions()...).With(tp.Cond)
		if err := apply(holder, drs.Pending{Box: holder, Cond: tp.Cond}, holder); err != nil {
			return false, nil
		}
		check = holder.Plain()
	} else {
		if err := apply(trial, tp, nil); err != nil {
			return false, nil
		}
		check = localContext(trial, tp.Box)
	}

	check.EliminateResolutions()
	if discourse != nil {
		check = drs.Merge(discourse.Plain(), check)
	}
	return r.bridge.IsConsistent(ctx, check)
}

// localContext merges the boxes visible from site, leaving out the
// conditions that enclose site itself.
func localContext(root, site *drs.Box) *drs.Box {
	index := drs.IndexScopes(root)
	enclosing := map[*drs.Box]bool{site: true}
	for b, ok := index.Parent(site); ok; b, ok = index.Parent(b) {
		enclosing[b] = true
	}
	encloses := func(c drs.Condition) bool {
		return slices.ContainsFunc(c.Children(), func(child *drs.Box) bool { return enclosing[child] })
	}

	out := drs.New()
	for _, b := range index.Chain(site) {
		for _, x := range b.Referents() {
			out.AddReferent(x)
		}
		for _, c := range b.Conditions() {
			if !encloses(c) {
				out.AddCondition(c.Copy())
			}
		}
	}
	return out
}

// candidates lists the referents p may bind to, most recent first.
func candidates(index *drs.ScopeIndex, p drs.Pending, discourse *drs.Box, target *drs.Referent) []*drs.Referent {
	ref := p.Cond.Ref
	excluded := map[*drs.Referent]bool{ref: true}
	if target != nil {
		excluded[target] = true
	}
	for _, b := range p.Cond.Requirements.Walk() {
		for _, x := range b.Referents() {
			excluded[x] = true
		}
	}

	var out []*drs.Referent
	add := func(x *drs.Referent) {
		if !excluded[x] && x.Sort == ref.Sort {
			excluded[x] = true
			out = append(out, x)
		}
	}
	for _, x := range index.Accessible(p.Box).Referents() {
		add(x)
	}
	if discourse != nil {
		for _, x := range discourse.Referents() {
			add(x)
		}
	}

	slices.SortStableFunc(out, func(a, b *drs.Referent) int { return b.Index - a.Index })
	return out
}

// carriesRequirements reports whether every informative atomic requirement
// about the open referent already holds of cand in a visible scope.
func carriesRequirements(index *drs.ScopeIndex, p drs.Pending, discourse *drs.Box, cand *drs.Referent) bool {
	visible := index.Chain(p.Box)
	if discourse != nil {
		visible = append(visible, discourse)
	}
	for _, c := range p.Cond.Requirements.Conditions() {
		pred, ok := c.(*drs.Predicate)
		if !ok || !pred.Informative() || !slices.Contains(pred.Args, p.Cond.Ref) {
			continue
		}
		want := pred.Copy().(*drs.Predicate)
		for i, a := range want.Args {
			if a == p.Cond.Ref {
				want.Args[i] = cand
			}
		}
		found := false
		for _, b := range visible {
			if b.HasCondition(want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// bind replaces the open referent by cand. Unless keep is false, the
// requirements move into the box that held the open referent; a question
// does not assert what its referents were required to be.
func bind(work *drs.Box, p drs.Pending, cand *drs.Referent, keep bool) error {
	p.Box.RemoveCondition(p.Cond)
	if keep {
		for _, x := range p.Cond.Requirements.Referents() {
			p.Box.AddReferent(x)
		}
		p.Box.With(p.Cond.Requirements.Conditions()...)
	}
	return work.ReplaceReferent(p.Cond.Ref, cand)
}

// scopePath locates a box by its pre-order position, so the same scope can
// be found again in a copy.
type scopePath int

func (s scopePath) locate(root *drs.Box) *drs.Box {
	return root.Walk()[s]
}

// accommodationScope picks the outermost box visible from the site of p
// from which every referent the requirements mention is accessible.
func accommodationScope(index *drs.ScopeIndex, p drs.Pending, discourse *drs.Box) scopePath {
	internal := map[*drs.Referent]bool{p.Cond.Ref: true}
	for _, b := range p.Cond.Requirements.Walk() {
		for _, x := range b.Referents() {
			internal[x] = true
		}
	}
	var free []*drs.Referent
	for _, x := range mentioned(p.Cond.Requirements) {
		if !internal[x] && (discourse == nil || !discourse.HasReferent(x)) {
			free = append(free, x)
		}
	}

	chain := index.Chain(p.Box)
	target := p.Box
	for i := len(chain) - 1; i >= 0; i-- {
		acc := index.Accessible(chain[i])
		visible := true
		for _, x := range free {
			if !acc.Contains(x) {
				visible = false
				break
			}
		}
		if visible {
			target = chain[i]
			break
		}
	}

	for i, b := range index.Root().Walk() {
		if b == target {
			return scopePath(i)
		}
	}
	return 0
}

// accommodate declares the open referent in target together with its
// requirements.
func accommodate(p drs.Pending, target *drs.Box) {
	p.Box.RemoveCondition(p.Cond)
	target.AddReferent(p.Cond.Ref)
	for _, x := range p.Cond.Requirements.Referents() {
		target.AddReferent(x)
	}
	target.With(p.Cond.Requirements.Conditions()...)
}

// mentioned lists every referent occurring in conditions anywhere in b.
func mentioned(b *drs.Box) []*drs.Referent {
	seen := map[*drs.Referent]bool{}
	var out []*drs.Referent
	add := func(x *drs.Referent) {
		if !seen[x] {
			seen[x] = true
			out = append(out, x)
		}
	}
	for _, box := range b.Walk() {
		for _, c := range box.Conditions() {
			switch c := c.(type) {
			case *drs.Predicate:
				for _, a := range c.Args {
					add(a)
				}
			case *drs.Equality:
				add(c.Left)
				add(c.Right)
			case *drs.Resolution:
				add(c.Ref)
			}
		}
	}
	return out
}
