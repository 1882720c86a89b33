package discourse

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"crystal/internal/describe"
	"crystal/internal/drs"
)

// Answer answers a resolved question against the current context.
//
// A polar question is answered yes when its informative content is
// provable, no when its negation is, and unknown otherwise; if both are
// provable ErrContradiction is returned. A wh-question is answered with
// every context referent whose identity with the question target makes the
// question provable.
func (e *Engine) Answer(ctx context.Context, question, current *drs.Box) (describe.Answer, error) {
	if current == nil {
		current = drs.New()
	}
	switch question.Kind() {
	case drs.PolarQuestion:
		return e.answerPolar(ctx, question, current)
	case drs.SubjectQuestion:
		return e.answerSubject(ctx, question, current)
	default:
		return describe.Answer{}, fmt.Errorf("cannot answer a statement: %s", question)
	}
}

func (e *Engine) answerPolar(ctx context.Context, question, current *drs.Box) (describe.Answer, error) {
	assumptions := current.Plain()
	theorem := theoremOf(question, current)
	positive, err := e.bridge.IsProvable(ctx, assumptions, theorem.InformativeCopy())
	if err != nil {
		return describe.Answer{}, err
	}
	negative, err := e.bridge.IsProvable(ctx, assumptions, drs.Wrap(drs.NewNegation(theorem)))
	if err != nil {
		return describe.Answer{}, err
	}

	switch {
	case positive && negative:
		return describe.Answer{}, fmt.Errorf("%w: %s", ErrContradiction, question.Summary())
	case positive:
		return describe.Answer{Kind: describe.Yes}, nil
	case negative:
		return describe.Answer{Kind: describe.No}, nil
	default:
		return describe.Answer{Kind: describe.Unknown}, nil
	}
}

// answerSubject tries every context referent as the target. Up to
// e.workers proof attempts run at once; the answer keeps context order.
func (e *Engine) answerSubject(ctx context.Context, question, current *drs.Box) (describe.Answer, error) {
	target := question.Target()
	assumptions := current.Plain()
	candidates := current.Referents()
	proved := make([]bool, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, cand := range candidates {
		i := i
		theorem := theoremOf(question, current)
		theorem.AddCondition(drs.NewEquality(target, cand))
		theorem = theorem.InformativeCopy()
		g.Go(func() error {
			ok, err := e.bridge.IsProvable(gctx, assumptions, theorem)
			proved[i] = ok
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return describe.Answer{}, err
	}

	answer := describe.Answer{Kind: describe.Entities}
	for i, ok := range proved {
		if ok {
			answer.Referents = append(answer.Referents, candidates[i])
		}
	}
	e.logger.Debug("answered wh-question",
		zap.String("target", target.ID()),
		zap.Int("candidates", len(candidates)),
		zap.Int("answers", len(answer.Referents)))
	return answer, nil
}

// theoremOf returns a plain copy of question that no longer declares the
// referents of the context at its root, so they stay constants of the proof.
func theoremOf(question, current *drs.Box) *drs.Box {
	theorem := question.Plain()
	for _, r := range theorem.Referents() {
		if current.HasReferent(r) {
			theorem.RemoveReferent(r)
		}
	}
	return theorem
}

// Start processes input on a separate goroutine. The returned channel
// delivers the events of the utterance and is closed when processing ends
// or ctx is cancelled.
func (e *Engine) Start(ctx context.Context, input string, current *drs.Box) <-chan Event {
	events := make(chan Event, 8)
	go func() {
		defer close(events)
		_, _ = e.Process(ctx, input, current, func(ev Event) {
			select {
			case events <- ev:
			case <-ctx.Done():
			}
		})
	}()
	return events
}
