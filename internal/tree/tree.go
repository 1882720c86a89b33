// Package tree holds annotated parse trees as produced by the parser oracle.
//
// A node carries a syntactic category and a feature structure flattened to
// string values (rule id, sense, number, gender, case, ...). Terminal nodes
// carry only the token.
package tree

import (
	"sort"
	"strconv"
	"strings"
)

// Well-known feature names.
const (
	FeatRule      = "RUL"
	FeatSense     = "SNS"
	FeatNumber    = "NUM"
	FeatSex       = "SEX"
	FeatCase      = "CASE"
	FeatDegree    = "DEG"
	FeatSemantics = "SEM"
	FeatClass     = "CLS"
	FeatType      = "TYP"
	FeatTarget    = "TRGT"
	FeatFrequency = "FRQ"
	FeatDefinite  = "definite"
)

// Features is a flat feature structure.
type Features map[string]string

// Get returns the value of key or "" when absent.
func (f Features) Get(key string) string { return f[key] }

// Has reports whether key is present.
func (f Features) Has(key string) bool {
	_, ok := f[key]
	return ok
}

// Bool interprets key as a boolean flag.
func (f Features) Bool(key string) bool {
	switch f[key] {
	case "true", "+", "1", "yes":
		return true
	default:
		return false
	}
}

// Int interprets key as an integer.
func (f Features) Int(key string) (int, bool) {
	v, ok := f[key]
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (f Features) clone() Features {
	if f == nil {
		return nil
	}
	out := make(Features, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Tree is a parse tree node. A node with an empty Category is a terminal
// holding Word.
type Tree struct {
	Category string
	Features Features
	Children []*Tree
	Word     string
}

// Leaf creates a terminal node.
func Leaf(word string) *Tree { return &Tree{Word: word} }

// Node creates a non-terminal node.
func Node(category string, features Features, children ...*Tree) *Tree {
	if features == nil {
		features = Features{}
	}
	return &Tree{Category: category, Features: features, Children: children}
}

// IsLeaf reports whether t is a terminal.
func (t *Tree) IsLeaf() bool { return t.Category == "" }

// Rule returns the dispatch key of the node: its rule id when annotated,
// otherwise its category.
func (t *Tree) Rule() string {
	if r := t.Features.Get(FeatRule); r != "" {
		return r
	}
	return t.Category
}

// Feature is a shorthand for t.Features.Get(key).
func (t *Tree) Feature(key string) string {
	return t.Features.Get(key)
}

// Len returns the number of children.
func (t *Tree) Len() int { return len(t.Children) }

// Child returns the i-th child. Negative indexes count from the end.
func (t *Tree) Child(i int) *Tree {
	if i < 0 {
		i += len(t.Children)
	}
	return t.Children[i]
}

// Copy returns a deep copy of t.
func (t *Tree) Copy() *Tree {
	c := &Tree{Category: t.Category, Features: t.Features.clone(), Word: t.Word}
	if t.Children != nil {
		c.Children = make([]*Tree, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = child.Copy()
		}
	}
	return c
}

// Leaves returns the terminal words under t in order.
func (t *Tree) Leaves() []string {
	if t.IsLeaf() {
		return []string{t.Word}
	}
	var out []string
	for _, c := range t.Children {
		out = append(out, c.Leaves()...)
	}
	return out
}

// Preterminal reports whether every child of t is a terminal.
func (t *Tree) Preterminal() bool {
	if t.IsLeaf() || len(t.Children) == 0 {
		return false
	}
	for _, c := range t.Children {
		if !c.IsLeaf() {
			return false
		}
	}
	return true
}

// String renders t in the bracketed form accepted by Parse.
func (t *Tree) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t *Tree) write(sb *strings.Builder) {
	if t.IsLeaf() {
		sb.WriteString(quoteIfNeeded(t.Word, " ()\"[]"))
		return
	}
	sb.WriteByte('(')
	sb.WriteString(t.Category)
	if len(t.Features) > 0 {
		keys := make([]string, 0, len(t.Features))
		for k := range t.Features {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('[')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(k)
			sb.WriteByte('=')
			sb.WriteString(quoteIfNeeded(t.Features[k], " ,[]()\"="))
		}
		sb.WriteByte(']')
	}
	for _, c := range t.Children {
		sb.WriteByte(' ')
		c.write(sb)
	}
	sb.WriteByte(')')
}

func quoteIfNeeded(s, special string) string {
	if s == "" || strings.ContainsAny(s, special) {
		return strconv.Quote(s)
	}
	return s
}
