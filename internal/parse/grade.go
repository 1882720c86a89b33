package parse

import (
	"slices"

	"crystal/internal/tree"
)

// closedClass holds words that hand-written grammar rules cover. A content
// category over one of them is unlikely to be the intended reading.
var closedClass = map[string]bool{}

func init() {
	for _, w := range []string{
		"'re", "'s", "'t", "a", "about", "above", "across", "against", "all", "along",
		"alongside", "am", "ambassador", "amid", "among", "amongst", "an", "and",
		"another", "any", "are", "aren", "around", "assuming", "astride", "at",
		"athwart", "been", "being", "before", "behind", "below", "beneath", "beside",
		"between", "beyond", "but", "by", "capt", "captain", "certain", "cmdr",
		"coach", "col", "colonel", "commander", "corporal", "cpl", "did", "didn",
		"do", "doctor", "does", "doesn", "don", "down", "dr", "each", "every", "few",
		"for", "from", "front", "gen", "general", "given", "gov", "governor", "had",
		"have", "haven", "hasn", "has", "he", "her", "hers", "herself", "him",
		"himself", "his", "hon", "honorable", "i", "if", "in", "inside", "into",
		"is", "isn", "it", "its", "itself", "judge", "lieutenant", "little", "lot",
		"lt", "maj", "major", "many", "master", "me", "mine", "miss", "mister",
		"more", "most", "mr", "mrs", "ms", "much", "my", "myself", "near", "next",
		"no", "none", "not", "of", "ofc", "off", "officer", "on", "one", "oneself",
		"onto", "opposite", "or", "our", "ours", "ourself", "out", "outside", "over",
		"past", "pres", "president", "private", "prof", "professor", "pvt", "rep",
		"representative", "rev", "reverend", "round", "sargent", "sec", "secretary",
		"sen", "senator", "several", "sgt", "she", "sir", "some", "than", "that",
		"the", "their", "them", "themselves", "then", "these", "they", "this",
		"those", "through", "throughout", "to", "towards", "under", "underneath",
		"up", "upon", "us", "was", "wasn", "we", "were", "weren", "what", "which",
		"when", "whenever", "where", "who", "whom", "within", "you", "your", "yours",
		"yourself",
	} {
		closedClass[w] = true
	}
}

// Grade scores a tree; higher is more plausible. Clauses directly holding
// terminals or prepositions are preferred, content readings of closed-class
// words are penalised and frequency annotations are added.
func Grade(t *tree.Tree) int {
	if t == nil || t.IsLeaf() {
		return 0
	}

	score := 0
	if t.Category == "S" || t.Category == "VP" {
		for _, c := range t.Children {
			switch {
			case c.IsLeaf():
				score += 2000
			case c.Category == "Prep":
				score += 1000
			}
		}
	}

	if len(t.Children) == 1 && t.Children[0].IsLeaf() && closedClass[t.Children[0].Word] {
		switch t.Category {
		case "Noun", "Adj", "Verb":
			score -= 500
		}
	}

	if frq, ok := t.Features.Int(tree.FeatFrequency); ok {
		score += frq
	}

	for _, c := range t.Children {
		score += Grade(c)
	}
	return score
}

// Rank sorts trees by descending grade. Equal grades keep their order.
func Rank(trees []*tree.Tree) {
	grades := make(map[*tree.Tree]int, len(trees))
	for _, t := range trees {
		grades[t] = Grade(t)
	}
	slices.SortStableFunc(trees, func(a, b *tree.Tree) int {
		return grades[b] - grades[a]
	})
}
