// Package discourse drives the interpretation of utterances: it parses,
// evaluates and resolves candidate trees, keeps the first consistent
// reading and either adds it to the discourse or answers it.
package discourse

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crystal/internal/describe"
	"crystal/internal/drs"
	"crystal/internal/lexicon"
	"crystal/internal/logic"
	"crystal/internal/parse"
	"crystal/internal/resolve"
	"crystal/internal/semantics"
	"crystal/internal/tokenizer"
	"crystal/internal/tree"
)

// ErrContradiction is returned when the context entails both a polar
// question and its negation.
var ErrContradiction = errors.New("context entails both the question and its negation")

// conditionTriggers mark inputs that may hold a conditional whose clauses
// need not be consistent on their own.
var conditionTriggers = map[string]bool{
	"if": true, "when": true, "whenever": true, "given": true, "as": true,
	"assuming": true, "provided": true, "proposing": true, "since": true,
	"supposing": true,
}

// Rephraser rewrites a plain answer into a more fluent sentence.
type Rephraser interface {
	Rephrase(ctx context.Context, answer, contextSummary string) (string, error)
}

// Options configures an Engine.
type Options struct {
	Oracle  parse.Oracle
	Lexicon *lexicon.Lexicon
	Bridge  logic.Bridge
	// Allocator is shared by every utterance of every discourse the engine
	// serves. A new one is created when nil.
	Allocator *drs.Allocator
	// Rephraser is optional.
	Rephraser Rephraser
	// Workers bounds concurrent proof attempts when answering a
	// wh-question. Values below 2 answer sequentially.
	Workers int
	Logger  *zap.Logger
}

// Engine processes utterances against a discourse context. It holds no
// per-discourse state, so one engine may serve several sessions.
type Engine struct {
	oracle    parse.Oracle
	bridge    logic.Bridge
	evaluator *semantics.Evaluator
	resolver  *resolve.Resolver
	describer *describe.Describer
	rephraser Rephraser
	workers   int
	logger    *zap.Logger
}

// NewEngine wires an engine from opts.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Oracle == nil {
		return nil, errors.New("engine needs a parser oracle")
	}
	if opts.Bridge == nil {
		return nil, errors.New("engine needs an inference bridge")
	}
	lex := opts.Lexicon
	if lex == nil {
		var err error
		if lex, err = lexicon.Default(); err != nil {
			return nil, fmt.Errorf("load default lexicon: %w", err)
		}
	}
	alloc := opts.Allocator
	if alloc == nil {
		alloc = drs.NewAllocator()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	resolver := resolve.New(opts.Bridge, logger.Named("resolve"))
	return &Engine{
		oracle:    opts.Oracle,
		bridge:    opts.Bridge,
		evaluator: semantics.New(lex, alloc, resolver),
		resolver:  resolver,
		describer: describe.New(lex),
		rephraser: opts.Rephraser,
		workers:   max(opts.Workers, 1),
		logger:    logger,
	}, nil
}

// Describer returns the describer used for answers.
func (e *Engine) Describer() *describe.Describer { return e.describer }

// Process interprets input against the current context, which may be nil,
// and reports progress through emit, which may be nil. Linguistic failures are
// reported in the outcome with a nil error. Prover integration failures,
// cancellation and contradictions are returned as errors after a problem
// event.
func (e *Engine) Process(ctx context.Context, input string, current *drs.Box, emit func(Event)) (*Outcome, error) {
	if emit == nil {
		emit = func(Event) {}
	}
	if current == nil {
		current = drs.New()
	}
	start := time.Now()

	out, err := e.process(ctx, input, current, emit)
	if err != nil {
		if errors.Is(err, ErrContradiction) {
			emit(Event{Kind: EventProblem, Text: MsgContradiction})
		} else {
			emit(Event{Kind: EventProblem, Text: MsgInternalError})
		}
		e.logger.Error("utterance failed", zap.String("input", input), zap.Error(err))
		return nil, err
	}

	fields := []zap.Field{
		zap.String("input", input),
		zap.String("outcome", string(out.Kind)),
		zap.Int("trees", out.Trees),
		zap.Int("interpretations", out.Interpretations),
		zap.Duration("elapsed", time.Since(start)),
	}
	if s, ok := e.bridge.(interface{ Stats() logic.Stats }); ok {
		stats := s.Stats()
		fields = append(fields,
			zap.Int("consistency_checks", stats.ConsistencyChecks),
			zap.Int("proof_attempts", stats.ProofAttempts),
			zap.Int("cache_hits", stats.CacheHits),
			zap.Duration("prover_time", stats.Elapsed))
	}
	e.logger.Info("processed utterance", fields...)
	return out, nil
}

func (e *Engine) process(ctx context.Context, input string, current *drs.Box, emit func(Event)) (*Outcome, error) {
	emit(Event{Kind: EventInput, Text: input})

	tokens, err := tokenizer.Tokenize(input)
	if err != nil {
		emit(Event{Kind: EventProblem, Text: MsgTokenizeFailed})
		return &Outcome{Kind: OutcomeUntokenizable, Context: current, Text: MsgTokenizeFailed}, nil
	}

	trees, err := e.oracle.Parse(ctx, tokens)
	if err != nil && !errors.Is(err, parse.ErrNoTrees) {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.logger.Warn("parser oracle failed", zap.Strings("tokens", tokens), zap.Error(err))
	}
	if len(trees) == 0 {
		emit(Event{Kind: EventProblem, Text: MsgNoParse})
		return &Outcome{Kind: OutcomeNoParse, Context: current, Tokens: tokens, Text: MsgNoParse}, nil
	}
	emit(Event{Kind: EventComment, Text: fmt.Sprintf(MsgFoundTrees, parse.CountLabel(len(trees)))})
	parse.Rank(trees)

	out := &Outcome{Kind: OutcomeNoInterpretation, Context: current, Tokens: tokens, Trees: len(trees)}
	var fallback *Outcome
	err = e.interpretations(ctx, trees, tokens, current, func(t *tree.Tree, box *drs.Box) (bool, error) {
		out.Interpretations++
		if !box.IsQuestion() {
			out.Kind, out.Tree, out.Box = OutcomeStatement, t, box
			return true, nil
		}

		answer, err := e.Answer(ctx, box, current)
		if err != nil {
			return true, err
		}
		if answer.Definite() {
			out.Kind, out.Tree, out.Box, out.Answer = OutcomeQuestion, t, box, answer
			return true, nil
		}
		if fallback == nil {
			fallback = &Outcome{Kind: OutcomeQuestion, Tree: t, Box: box, Answer: answer}
		}
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if out.Kind == OutcomeNoInterpretation && fallback != nil {
		out.Kind, out.Tree, out.Box, out.Answer = fallback.Kind, fallback.Tree, fallback.Box, fallback.Answer
	}

	if out.Interpretations == 1 {
		emit(Event{Kind: EventComment, Text: MsgOneEvaluated})
	} else {
		emit(Event{Kind: EventComment, Text: fmt.Sprintf(MsgManyEvaluated, out.Interpretations)})
	}
	best := out.Tree
	if best == nil {
		best = trees[0]
	}
	emit(Event{Kind: EventComment, Text: e.describer.TerminalDefinitions(best)})

	switch out.Kind {
	case OutcomeStatement:
		out.Context = drs.Merge(current, out.Box)
		out.Text = MsgStatementAdded
		emit(Event{Kind: EventResult, Text: out.Text})
		emit(Event{Kind: EventContext, Context: out.Context})
	case OutcomeQuestion:
		out.Text = e.answerText(ctx, out.Answer, current)
		emit(Event{Kind: EventResult, Text: out.Text})
	default:
		out.Tree = best
		out.Text = MsgNoInterpretation
		emit(Event{Kind: EventProblem, Text: out.Text})
	}
	return out, nil
}

// interpretations yields every valid (tree, box) pair in order: strict mode
// first, then relaxed mode when the input may hold a conditional. visit
// stops the scan by returning true.
func (e *Engine) interpretations(ctx context.Context, trees []*tree.Tree, tokens []string, current *drs.Box,
	visit func(*tree.Tree, *drs.Box) (bool, error)) error {
	modes := []bool{true}
	if tokenizer.Contains(tokens, conditionTriggers) {
		modes = append(modes, false)
	}

	for _, strict := range modes {
		e.logger.Debug("evaluating trees", zap.Bool("strict", strict), zap.Int("trees", len(trees)))
		for i, t := range trees {
			box, err := e.interpret(ctx, t, current, strict)
			if err != nil {
				if fatal(err) {
					return err
				}
				e.logger.Debug("skipping tree", zap.Int("rank", i), zap.Bool("strict", strict), zap.Error(err))
				continue
			}
			if box == nil {
				e.logger.Debug("skipping inconsistent tree", zap.Int("rank", i), zap.Bool("strict", strict))
				continue
			}
			stop, err := visit(t, box)
			if err != nil || stop {
				return err
			}
		}
	}
	return nil
}

// interpret evaluates, resolves and checks one tree. A nil box without an
// error means the reading is inconsistent.
func (e *Engine) interpret(ctx context.Context, t *tree.Tree, current *drs.Box, strict bool) (*drs.Box, error) {
	raw, err := e.evaluator.Evaluate(ctx, t, strict)
	if err != nil {
		return nil, err
	}
	question := raw.IsQuestion()
	box, err := e.resolver.Resolve(ctx, raw, current, question)
	if err != nil {
		return nil, err
	}

	check := box.Plain()
	if !question {
		check = drs.Merge(current.Plain(), check)
	}
	ok, err := e.bridge.IsConsistent(ctx, check)
	if err != nil || !ok {
		return nil, err
	}
	return box, nil
}

// fatal reports whether err must abort the utterance rather than disqualify
// one tree.
func fatal(err error) bool {
	var integration *logic.IntegrationError
	return errors.As(err, &integration) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func (e *Engine) answerText(ctx context.Context, answer describe.Answer, current *drs.Box) string {
	text := e.describer.Result(answer, current)
	if e.rephraser == nil || answer.Kind != describe.Entities || len(answer.Referents) == 0 {
		return text
	}
	fluent, err := e.rephraser.Rephrase(ctx, text, current.Summary())
	if err != nil || fluent == "" {
		e.logger.Warn("rephrasing failed", zap.Error(err))
		return text
	}
	return fluent
}
