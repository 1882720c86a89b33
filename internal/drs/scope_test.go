package drs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessibilityThroughImplication(t *testing.T) {
	alloc := NewAllocator()
	outer := alloc.New(SingularSort)
	man := alloc.New(SingularSort)
	event := alloc.New(EventSort)

	antecedent := New(man).With(NewPredicate("man.n.01", man))
	consequent := New(event).With(NewPredicate("walk.v.01", event), NewPredicate("_Agent", event, man))
	root := New(outer).With(NewImplication(antecedent, consequent))

	idx := IndexScopes(root)

	fromRoot := idx.Accessible(root)
	assert.Equal(t, []*Referent{outer}, fromRoot.Referents())
	assert.False(t, fromRoot.Contains(event))
	assert.False(t, fromRoot.Contains(man))

	fromAntecedent := idx.Accessible(antecedent)
	assert.Equal(t, []*Referent{outer, man}, fromAntecedent.Referents())
	assert.False(t, fromAntecedent.Contains(event))

	fromConsequent := idx.Accessible(consequent)
	assert.Equal(t, []*Referent{outer, man, event}, fromConsequent.Referents())
	owner, ok := fromConsequent.Owner(man)
	assert.True(t, ok)
	assert.Same(t, antecedent, owner)
}

func TestAccessibilityNegationAndAlternation(t *testing.T) {
	alloc := NewAllocator()
	x, y, z := alloc.New(SingularSort), alloc.New(SingularSort), alloc.New(SingularSort)

	negated := New(y).With(NewPredicate("cat.n.01", y))
	left := New(z).With(NewPredicate("dog.n.01", z))
	right := Wrap(NewPredicate("bird.n.01", x))
	root := New(x).With(NewNegation(negated), NewAlternation(left, right))

	idx := IndexScopes(root)
	assert.Equal(t, []*Referent{x}, idx.Accessible(root).Referents())
	assert.Equal(t, []*Referent{x, y}, idx.Accessible(negated).Referents())
	assert.Equal(t, []*Referent{x, z}, idx.Accessible(left).Referents())
	assert.Equal(t, []*Referent{x}, idx.Accessible(right).Referents())

	parent, ok := idx.Parent(left)
	assert.True(t, ok)
	assert.Same(t, root, parent)
}

func TestAccessibilityInnerDeclarationWins(t *testing.T) {
	alloc := NewAllocator()
	x := alloc.New(SingularSort)

	inner := New(x)
	root := New(x).With(NewNegation(inner))

	acc := Accessible(root, inner)
	assert.Equal(t, 1, acc.Len())
	owner, _ := acc.Owner(x)
	assert.Same(t, inner, owner)
}
