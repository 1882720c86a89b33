package drs

import (
	"fmt"
	"strings"
)

// Formulate renders b as a first-order formula in prover syntax. Referents
// are existentially quantified; with unique set, every pair of them is
// asserted distinct.
func (b *Box) Formulate(unique bool) (string, error) {
	conds, err := b.FormulateConditions(unique)
	if err != nil {
		return "", err
	}
	domain := b.FormulateDomain(false)
	if domain == "" {
		return "(" + conds + ")", nil
	}
	return fmt.Sprintf("%s (%s)", domain, conds), nil
}

// FormulateDomain renders the quantifier prefix for the box referents.
func (b *Box) FormulateDomain(forall bool) string {
	scope := "exists"
	if forall {
		scope = "all"
	}
	parts := make([]string, len(b.referents))
	for i, r := range b.referents {
		parts[i] = scope + " " + r.ID()
	}
	return strings.Join(parts, " ")
}

// FormulateConditions renders the conjunction of the conditions without any
// quantifiers. An empty conjunction renders as 1=1.
func (b *Box) FormulateConditions(unique bool) (string, error) {
	parts := make([]string, 0, len(b.conditions))
	for _, c := range b.conditions {
		f, err := c.Formulate()
		if err != nil {
			return "", err
		}
		parts = append(parts, f)
	}
	if unique {
		for i, r := range b.referents {
			for _, s := range b.referents[i+1:] {
				parts = append(parts, r.ID()+" != "+s.ID())
			}
		}
	}
	if len(parts) == 0 {
		return "1=1", nil
	}
	return "(" + strings.Join(parts, " & ") + ")", nil
}
