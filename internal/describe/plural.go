package describe

import "strings"

var irregularPlurals = map[string]string{
	"man":    "men",
	"woman":  "women",
	"child":  "children",
	"person": "people",
	"foot":   "feet",
	"tooth":  "teeth",
	"mouse":  "mice",
	"goose":  "geese",
	"ox":     "oxen",
	"sheep":  "sheep",
	"fish":   "fish",
	"deer":   "deer",
}

// Plural returns the plural of an English noun phrase head. Only the last
// word is inflected.
func Plural(noun string) string {
	prefix, word := "", noun
	if i := strings.LastIndexByte(noun, ' '); i >= 0 {
		prefix, word = noun[:i+1], noun[i+1:]
	}
	if plural, ok := irregularPlurals[word]; ok {
		return prefix + plural
	}

	switch {
	case strings.HasSuffix(word, "s"), strings.HasSuffix(word, "x"), strings.HasSuffix(word, "z"),
		strings.HasSuffix(word, "ch"), strings.HasSuffix(word, "sh"):
		return prefix + word + "es"
	case strings.HasSuffix(word, "y") && len(word) > 1 && !strings.ContainsRune("aeiou", rune(word[len(word)-2])):
		return prefix + word[:len(word)-1] + "ies"
	case strings.HasSuffix(word, "fe"):
		return prefix + word[:len(word)-2] + "ves"
	case strings.HasSuffix(word, "lf"):
		return prefix + word[:len(word)-1] + "ves"
	default:
		return prefix + word + "s"
	}
}
