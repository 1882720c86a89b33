// Package describe renders answers and discourse referents as English text.
package describe

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"crystal/internal/drs"
	"crystal/internal/lexicon"
	"crystal/internal/tree"
)

// MaxAdjectives bounds how many adjectives precede a head noun.
const MaxAdjectives = 3

// AnswerKind classifies the outcome of answering a question.
type AnswerKind int

const (
	Unknown AnswerKind = iota
	Yes
	No
	Entities
)

func (k AnswerKind) String() string {
	switch k {
	case Yes:
		return "yes"
	case No:
		return "no"
	case Entities:
		return "entities"
	default:
		return "unknown"
	}
}

// Answer is what question answering produces: a polar verdict, or the
// context referents satisfying a wh-question (possibly none).
type Answer struct {
	Kind      AnswerKind
	Referents []*drs.Referent
}

// Definite reports whether the answer settles the question: a yes, a no or
// at least one entity.
func (a Answer) Definite() bool {
	switch a.Kind {
	case Yes, No:
		return true
	case Entities:
		return len(a.Referents) > 0
	default:
		return false
	}
}

// Describer turns referents into noun phrases using the lexicon for lemmas
// and sense depths.
type Describer struct {
	lex *lexicon.Lexicon
}

func New(lex *lexicon.Lexicon) *Describer {
	return &Describer{lex: lex}
}

// Result renders an answer as a sentence.
func (d *Describer) Result(answer Answer, context *drs.Box) string {
	switch answer.Kind {
	case Yes:
		return "Yes."
	case No:
		return "No."
	case Entities:
	default:
		return "That is unknown."
	}

	refs := answer.Referents
	if len(refs) == 0 {
		return "No known entities match the query."
	}
	var text string
	if len(refs) == 1 {
		text = d.Referent(refs[0], context, true, false)
	} else {
		parts := make([]string, len(refs))
		for i, r := range refs {
			parts[i] = d.Referent(r, context, true, true)
		}
		text = strings.Join(parts[:len(parts)-1], ", ") + " and " + parts[len(parts)-1]
	}
	return capitalize(text) + "."
}

// Referent describes ref from the top-level informative conditions of box.
// Named referents print their name. A definite description is introduced
// by "the" or, unless short, by its owner's description.
func (d *Describer) Referent(ref *drs.Referent, box *drs.Box, definite, short bool) string {
	if ref.Named() {
		return ref.Pretty()
	}

	var nouns, adjectives []string
	var owner, modifier *drs.Referent
	for _, c := range box.Conditions() {
		p, ok := c.(*drs.Predicate)
		if !ok || !p.Informative() || !mentions(p, ref) {
			continue
		}
		switch {
		case len(p.Args) == 1 && strings.Contains(p.Name, ".n."):
			nouns = append(nouns, p.Name)
		case len(p.Args) == 1 && (strings.Contains(p.Name, ".a.") || strings.Contains(p.Name, ".s.")):
			adjectives = append(adjectives, p.Name)
		case p.Name == "_possess" && len(p.Args) == 2 && p.Args[1] == ref:
			owner = p.Args[0]
		case p.Name == "_modify" && len(p.Args) == 2 && p.Args[1] == ref:
			modifier = p.Args[0]
		}
	}

	head := "entity"
	if len(nouns) > 0 {
		best := nouns[0]
		for _, n := range nouns[1:] {
			if d.lex.Sense(n).MaxDepth() > d.lex.Sense(best).MaxDepth() {
				best = n
			}
		}
		head = d.lex.Lemma(best)
	}
	if ref.Sort == drs.PluralSort {
		head = Plural(head)
	}

	description := head
	if modifier != nil && modifier != ref {
		description = d.Referent(modifier, box, false, false) + " " + description
	}

	words := make([]string, 0, MaxAdjectives+1)
	for _, a := range adjectives[:min(len(adjectives), MaxAdjectives)] {
		words = append(words, d.lex.Lemma(a))
	}
	description = strings.Join(append(words, description), " ")

	if !definite {
		return description
	}
	if owner != nil && owner != ref && !short {
		possessor := d.Referent(owner, box, true, false)
		if strings.HasSuffix(possessor, "s") {
			return possessor + "' " + description
		}
		return possessor + "'s " + description
	}
	return "the " + description
}

// TerminalDefinitions lists the glosses of the senses chosen for the words
// of t.
func (d *Describer) TerminalDefinitions(t *tree.Tree) string {
	lines := []string{"Inferred word senses:"}
	var visit func(*tree.Tree)
	visit = func(n *tree.Tree) {
		if n.IsLeaf() {
			return
		}
		if sense := n.Feature(tree.FeatSense); sense != "" && n.Preterminal() {
			if def := d.lex.Definition(sense); def != "" {
				lines = append(lines, "  "+strings.Join(n.Leaves(), " ")+": "+def+".")
			}
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(t)
	return strings.Join(lines, "\n")
}

func mentions(p *drs.Predicate, ref *drs.Referent) bool {
	for _, a := range p.Args {
		if a == ref {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
