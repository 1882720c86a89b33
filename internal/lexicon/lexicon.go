// Package lexicon holds the lexical knowledge the evaluator consults while
// building conditions: word senses with their hypernym paths, and verb
// classes with thematic-role restrictions and syntactic frames.
//
// Sense and class identifiers are the opaque keys baked into parse-tree
// annotations (for example "man.n.01" or "run-51.3.2").
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed data/lexicon.yaml
var defaultData []byte

// Sense is a word sense and its position in the hypernym hierarchy.
type Sense struct {
	Name       string `yaml:"name"`
	Lemma      string `yaml:"lemma,omitempty"`
	Definition string `yaml:"definition,omitempty"`
	// HypernymPaths lists every path from a root to the sense, root first
	// and ending with the sense itself.
	HypernymPaths [][]string `yaml:"hypernym_paths,omitempty"`
}

// MaxDepth is the length of the longest hypernym path minus one.
func (s *Sense) MaxDepth() int {
	depth := 0
	for _, p := range s.HypernymPaths {
		if len(p)-1 > depth {
			depth = len(p) - 1
		}
	}
	return depth
}

// Restriction is a selectional restriction on a thematic role. Type is "+"
// for a required category and "-" for an excluded one.
type Restriction struct {
	Value string `yaml:"value"`
	Type  string `yaml:"type"`
}

// Negated reports whether the restriction excludes its category.
func (r Restriction) Negated() bool { return r.Type == "-" }

// RoleRestrictions combines the restrictions of one role with Logic "and" or
// "or".
type RoleRestrictions struct {
	Logic        string        `yaml:"logic,omitempty"`
	Restrictions []Restriction `yaml:"restrictions"`
}

// SyntaxNode is one element of a frame's syntax: NP, VERB, PREP, LEX or ADV.
// For NP nodes Value names the thematic role.
type SyntaxNode struct {
	Tag   string `yaml:"tag"`
	Value string `yaml:"value,omitempty"`
}

// Frame is the syntax of one argument pattern of a verb class.
type Frame struct {
	Syntax []SyntaxNode `yaml:"syntax"`
}

// VerbClass is a verb class with its roles and frames keyed by pattern id.
type VerbClass struct {
	ID     string                      `yaml:"id"`
	Parent string                      `yaml:"parent,omitempty"`
	Roles  map[string]RoleRestrictions `yaml:"roles,omitempty"`
	Frames map[int]Frame               `yaml:"frames,omitempty"`
}

type document struct {
	Senses      []Sense     `yaml:"senses"`
	VerbClasses []VerbClass `yaml:"verb_classes"`
}

// Lexicon is a read-only table of senses and verb classes. It is safe for
// concurrent use.
type Lexicon struct {
	senses  map[string]*Sense
	classes map[string]*VerbClass
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
	defaultErr  error
)

// Default returns the embedded lexicon.
func Default() (*Lexicon, error) {
	defaultOnce.Do(func() {
		defaultLex, defaultErr = Parse(defaultData)
	})
	return defaultLex, defaultErr
}

// Load reads a lexicon from a YAML file. An empty path selects the embedded
// lexicon.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon file: %w", err)
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML.
func Parse(data []byte) (*Lexicon, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing lexicon YAML: %w", err)
	}

	l := &Lexicon{
		senses:  make(map[string]*Sense, len(doc.Senses)),
		classes: make(map[string]*VerbClass, len(doc.VerbClasses)),
	}
	for i := range doc.Senses {
		s := &doc.Senses[i]
		if s.Name == "" {
			return nil, fmt.Errorf("sense %d has no name", i)
		}
		for _, p := range s.HypernymPaths {
			if len(p) == 0 || p[len(p)-1] != s.Name {
				return nil, fmt.Errorf("sense %s: hypernym path must end with the sense", s.Name)
			}
		}
		if len(s.HypernymPaths) == 0 {
			s.HypernymPaths = [][]string{{s.Name}}
		}
		l.senses[s.Name] = s
	}
	for i := range doc.VerbClasses {
		c := &doc.VerbClasses[i]
		if c.ID == "" {
			return nil, fmt.Errorf("verb class %d has no id", i)
		}
		l.classes[c.ID] = c
	}
	for _, c := range l.classes {
		if c.Parent != "" {
			if _, ok := l.classes[c.Parent]; !ok {
				return nil, fmt.Errorf("verb class %s: unknown parent %s", c.ID, c.Parent)
			}
		}
	}
	return l, nil
}

// Sense returns the sense called name. Unknown senses are returned as a
// sense with a single path holding only themselves.
func (l *Lexicon) Sense(name string) *Sense {
	if s, ok := l.senses[name]; ok {
		return s
	}
	return &Sense{Name: name, HypernymPaths: [][]string{{name}}}
}

// Known reports whether name is in the sense table.
func (l *Lexicon) Known(name string) bool {
	_, ok := l.senses[name]
	return ok
}

// Lemma returns the display form of a sense: its lemma, or the first part
// of its identifier with underscores as spaces.
func (l *Lexicon) Lemma(name string) string {
	if s, ok := l.senses[name]; ok && s.Lemma != "" {
		return s.Lemma
	}
	head, _, _ := strings.Cut(name, ".")
	return strings.ReplaceAll(head, "_", " ")
}

// Definition returns the gloss of a sense, or "" if none is known.
func (l *Lexicon) Definition(name string) string {
	if s, ok := l.senses[name]; ok {
		return s.Definition
	}
	return ""
}

// VerbClass returns the class with the given id.
func (l *Lexicon) VerbClass(id string) (*VerbClass, error) {
	c, ok := l.classes[id]
	if !ok {
		return nil, fmt.Errorf("unknown verb class %s", id)
	}
	return c, nil
}

// ancestry returns the class and its parents, the class itself first.
func (l *Lexicon) ancestry(id string) ([]*VerbClass, error) {
	var chain []*VerbClass
	seen := map[string]bool{}
	for id != "" {
		if seen[id] {
			return nil, fmt.Errorf("verb class %s: parent cycle", id)
		}
		seen[id] = true
		c, err := l.VerbClass(id)
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
		id = c.Parent
	}
	return chain, nil
}

// Restrictions collects the role restrictions of a class walking up its
// parents. An entry on a subclass wins over its parents'.
func (l *Lexicon) Restrictions(id string) (map[string]RoleRestrictions, error) {
	chain, err := l.ancestry(id)
	if err != nil {
		return nil, err
	}
	out := make(map[string]RoleRestrictions)
	for _, c := range chain {
		for role, r := range c.Roles {
			if _, ok := out[role]; ok || len(r.Restrictions) == 0 {
				continue
			}
			if r.Logic == "" {
				r.Logic = "and"
			}
			out[role] = r
		}
	}
	return out, nil
}

// Frame returns the frame a class uses for an argument pattern, looking in
// parent classes when the class itself has none.
func (l *Lexicon) Frame(id string, pattern int) (Frame, error) {
	chain, err := l.ancestry(id)
	if err != nil {
		return Frame{}, err
	}
	for _, c := range chain {
		if f, ok := c.Frames[pattern]; ok {
			if len(f.Syntax) == 0 {
				return Frame{}, fmt.Errorf("verb class %s: frame %d is empty", c.ID, pattern)
			}
			return f, nil
		}
	}
	return Frame{}, fmt.Errorf("verb class %s has no frame for pattern %d", id, pattern)
}
