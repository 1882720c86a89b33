// Package parse obtains annotated parse trees for a token sequence from a
// parser oracle and ranks them.
package parse

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"crystal/internal/logic"
	"crystal/internal/tree"
)

// MaxTrees bounds the number of trees an oracle returns for one input.
const MaxTrees = 10000

// ErrNoTrees is returned when an oracle finds no parse for the input.
var ErrNoTrees = errors.New("no parse trees found")

// Oracle produces every parse tree for a token sequence, unranked.
type Oracle interface {
	Parse(ctx context.Context, tokens []string) ([]*tree.Tree, error)
}

// CountLabel renders a tree count, marking a count that hit MaxTrees as a
// lower bound.
func CountLabel(n int) string {
	if n >= MaxTrees {
		return fmt.Sprintf("%d+", MaxTrees)
	}
	return fmt.Sprint(n)
}

// Key joins tokens into the lookup key used by treebanks.
func Key(tokens []string) string {
	return strings.Join(tokens, " ")
}

// Treebank answers from a fixed table of pre-parsed sentences.
type Treebank struct {
	trees map[string][]*tree.Tree
}

// NewTreebank builds a treebank from sentence -> bracketed trees. Sentences
// are tokenized by the caller's convention: keys are compared after
// lower-casing and whitespace normalisation.
func NewTreebank(entries map[string][]string) (*Treebank, error) {
	tb := &Treebank{trees: make(map[string][]*tree.Tree, len(entries))}
	for sentence, sources := range entries {
		key := Key(strings.Fields(strings.ToLower(sentence)))
		for i, src := range sources {
			t, err := tree.ParseOne(src)
			if err != nil {
				return nil, fmt.Errorf("treebank entry %q tree %d: %w", sentence, i, err)
			}
			tb.trees[key] = append(tb.trees[key], t)
		}
	}
	return tb, nil
}

// LoadTreebank reads a YAML file mapping sentences to lists of trees.
func LoadTreebank(path string) (*Treebank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read treebank file: %w", err)
	}
	var entries map[string][]string
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse treebank YAML: %w", err)
	}
	return NewTreebank(entries)
}

// Len reports how many sentences the treebank knows.
func (tb *Treebank) Len() int { return len(tb.trees) }

// Parse returns copies of the stored trees, so callers may modify them.
func (tb *Treebank) Parse(ctx context.Context, tokens []string) ([]*tree.Tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	stored := tb.trees[Key(tokens)]
	if len(stored) == 0 {
		return nil, ErrNoTrees
	}
	out := make([]*tree.Tree, 0, min(len(stored), MaxTrees))
	for _, t := range stored {
		if len(out) == MaxTrees {
			break
		}
		out = append(out, t.Copy())
	}
	return out, nil
}

// CommandOracle runs an external parser. Tokens are written to its standard
// input on one line; it prints one bracketed tree per line.
type CommandOracle struct {
	Command string
	Runner  logic.Runner
}

func (c *CommandOracle) Parse(ctx context.Context, tokens []string) ([]*tree.Tree, error) {
	runner := c.Runner
	if runner == nil {
		runner = logic.ExecRunner{}
	}
	out, err := runner.Run(ctx, c.Command, Key(tokens)+"\n")
	if err != nil {
		return nil, fmt.Errorf("parser command: %w", err)
	}
	var trees []*tree.Tree
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(trees) == MaxTrees {
			break
		}
		t, err := tree.ParseOne(line)
		if err != nil {
			return nil, fmt.Errorf("parser command output: %w", err)
		}
		trees = append(trees, t)
	}
	if len(trees) == 0 {
		return nil, ErrNoTrees
	}
	return trees, nil
}

// Chain tries oracles in order and returns the first non-empty result.
type Chain []Oracle

func (c Chain) Parse(ctx context.Context, tokens []string) ([]*tree.Tree, error) {
	for _, o := range c {
		trees, err := o.Parse(ctx, tokens)
		if errors.Is(err, ErrNoTrees) {
			continue
		}
		return trees, err
	}
	return nil, ErrNoTrees
}
