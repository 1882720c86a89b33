package tree

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Reader parses bracketed annotated trees:
//
//	(S[RUL=1] (NP[RUL=305,NUM=sg] (Noun[SNS=dog.n.01,NUM=sg] dogs)) ...)
//
// Features are key=value pairs or +flag / -flag booleans. Feature values and
// terminals may be double-quoted.
type Reader struct {
	input  string
	pos    int
	line   int
	column int
}

// NewReader creates a reader over input.
func NewReader(input string) *Reader {
	return &Reader{input: input, line: 1, column: 1}
}

// Parse reads every tree in input.
func Parse(input string) ([]*Tree, error) {
	r := NewReader(input)
	var trees []*Tree
	for {
		r.skipWhitespace()
		if r.isEOF() {
			return trees, nil
		}
		t, err := r.parseTree()
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
}

// ParseOne reads exactly one tree.
func ParseOne(input string) (*Tree, error) {
	trees, err := Parse(input)
	if err != nil {
		return nil, err
	}
	if len(trees) != 1 {
		return nil, fmt.Errorf("expected one tree, found %d", len(trees))
	}
	return trees[0], nil
}

// MustParse is like ParseOne but panics on error. It is meant for fixtures.
func MustParse(input string) *Tree {
	t, err := ParseOne(input)
	if err != nil {
		panic(err)
	}
	return t
}

func (r *Reader) parseTree() (*Tree, error) {
	if !r.match('(') {
		return nil, r.error("expected '(' at start of tree")
	}
	r.advance()

	category := r.readWhile(func(c rune) bool {
		return !unicode.IsSpace(c) && !strings.ContainsRune("()[]\"", c)
	})
	if category == "" {
		return nil, r.error("expected category")
	}
	node := Node(category, nil)

	if r.match('[') {
		if err := r.parseFeatures(node.Features); err != nil {
			return nil, err
		}
	}

	for {
		r.skipWhitespace()
		switch {
		case r.isEOF():
			return nil, r.error("unexpected EOF, expected ')' to close tree")
		case r.match(')'):
			r.advance()
			return node, nil
		case r.match('('):
			child, err := r.parseTree()
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		default:
			word, err := r.parseAtom(" \t\r\n()")
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, Leaf(word))
		}
	}
}

func (r *Reader) parseFeatures(into Features) error {
	r.advance() // consume '['
	for {
		r.skipWhitespace()
		if r.match(']') {
			r.advance()
			return nil
		}
		if r.isEOF() {
			return r.error("unexpected EOF in feature list")
		}

		if r.match('+') || r.match('-') {
			value := "true"
			if r.match('-') {
				value = "false"
			}
			r.advance()
			key := r.readWhile(isKeyChar)
			if key == "" {
				return r.error("expected feature name after sign")
			}
			into[key] = value
		} else {
			key := r.readWhile(isKeyChar)
			if key == "" {
				return r.error("expected feature name")
			}
			r.skipWhitespace()
			if !r.match('=') {
				return r.error(fmt.Sprintf("expected '=' after feature %s", key))
			}
			r.advance()
			r.skipWhitespace()
			value, err := r.parseAtom(",]")
			if err != nil {
				return err
			}
			into[key] = strings.TrimSpace(value)
		}

		r.skipWhitespace()
		if r.match(',') {
			r.advance()
		} else if !r.match(']') {
			return r.error("expected ',' or ']' in feature list")
		}
	}
}

// parseAtom reads a quoted string or a bare run of characters up to one of
// the stop characters.
func (r *Reader) parseAtom(stop string) (string, error) {
	if r.match('"') {
		return r.parseQuoted()
	}
	atom := r.readWhile(func(c rune) bool { return !strings.ContainsRune(stop, c) })
	if atom == "" {
		return "", r.error("expected value")
	}
	return atom, nil
}

func (r *Reader) parseQuoted() (string, error) {
	start := r.pos
	r.advance() // consume opening quote
	for !r.isEOF() {
		switch r.peek() {
		case '\\':
			r.advance()
			if r.isEOF() {
				return "", r.error("unexpected EOF in string escape sequence")
			}
		case '"':
			r.advance()
			s, err := strconv.Unquote(r.input[start:r.pos])
			if err != nil {
				return "", r.error("invalid quoted string")
			}
			return s, nil
		}
		r.advance()
	}
	return "", r.error("unterminated string literal")
}

func isKeyChar(c rune) bool {
	return unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_'
}

func (r *Reader) readWhile(ok func(rune) bool) string {
	start := r.pos
	for !r.isEOF() && ok(r.peek()) {
		r.advance()
	}
	return r.input[start:r.pos]
}

func (r *Reader) skipWhitespace() {
	for !r.isEOF() && unicode.IsSpace(r.peek()) {
		r.advance()
	}
}

func (r *Reader) peek() rune {
	if r.isEOF() {
		return 0
	}
	return rune(r.input[r.pos])
}

func (r *Reader) advance() {
	if !r.isEOF() {
		if r.peek() == '\n' {
			r.line++
			r.column = 1
		} else {
			r.column++
		}
		r.pos++
	}
}

func (r *Reader) match(c rune) bool { return r.peek() == c }

func (r *Reader) isEOF() bool { return r.pos >= len(r.input) }

func (r *Reader) error(message string) error {
	return fmt.Errorf("parse error at line %d, column %d: %s", r.line, r.column, message)
}
