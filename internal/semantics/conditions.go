package semantics

import (
	"strings"

	"crystal/internal/drs"
	"crystal/internal/lexicon"
	"crystal/internal/tree"
)

const personSense = "person.n.01"

var (
	maleSenses   = []string{"male.n.02", "man.n.01", "guy.n.01", "chap.n.01"}
	femaleSenses = []string{"female.n.02", "woman.n.01", "girl.n.01", "girl.n.05", "lady.n.01"}
)

// restrictionSenses maps a selectional restriction to the senses a filler
// must have one of, and the senses it must not have.
var restrictionSenses = map[string]struct{ pos, neg []string }{
	"abstract":      {[]string{"abstraction.n.06"}, []string{"physical_entity.n.01"}},
	"animal":        {[]string{"animal.n.01"}, []string{"person.n.01", "natural_object.n.01", "item.n.03", "assembly.n.05", "artifact.n.01"}},
	"animate":       {[]string{"living_thing.n.01"}, []string{"abstraction.n.06", "natural_object.n.01", "item.n.03", "assembly.n.05", "artifact.n.01"}},
	"body_part":     {[]string{"body_part.n.01"}, []string{"abstraction.n.06", "living_thing.n.01"}},
	"comestible":    {[]string{"food.n.01"}, []string{"abstraction.n.06", "person.n.01", "artifact.n.01"}},
	"communication": {[]string{"communication.n.02"}, []string{"physical_entity.n.01"}},
	"concrete":      {[]string{"physical_entity.n.01"}, []string{"abstraction.n.06"}},
	"currency":      {[]string{"monetary_unit.n.01"}, []string{"physical_entity.n.01"}},
	"elongated":     {nil, []string{"abstraction.n.06", "living_thing.n.01"}},
	"force":         {[]string{"force.n.02"}, []string{"living_thing.n.01"}},
	"garment":       {[]string{"garment.n.01"}, []string{"abstraction.n.06", "living_thing.n.01"}},
	"human":         {[]string{"person.n.01"}, []string{"abstraction.n.06", "animal.n.01", "natural_object.n.01", "item.n.03", "assembly.n.05", "artifact.n.01"}},
	"int_control":   {[]string{"living_thing.n.01", "instrumentality.n.03", "force.n.02"}, nil},
	"machine":       {[]string{"instrumentality.n.03"}, []string{"abstraction.n.06", "living_thing.n.01"}},
	"nonrigid":      {nil, []string{"abstraction.n.06", "living_thing.n.01"}},
	"organization":  {[]string{"organization.n.01"}, []string{"physical_entity.n.01", "communication.n.02", "otherworld.n.01", "psychological_feature.n.01", "attribute.n.02", "set.n.02", "measure.n.02"}},
	"pointy":        {nil, []string{"abstraction.n.06", "living_thing.n.01"}},
	"shape":         {nil, []string{"abstraction.n.06", "living_thing.n.01"}},
	"solid":         {nil, []string{"abstraction.n.06", "living_thing.n.01"}},
	"sound":         {[]string{"auditory_communication.n.01", "sound.n.04"}, []string{"physical_entity.n.01", "otherworld.n.01", "group.n.01", "attribute.n.02", "set.n.02", "measure.n.02"}},
	"state":         {[]string{"state.n.02"}, []string{"physical_entity.n.01"}},
	"substance":     {[]string{"substance.n.01"}, []string{"abstraction.n.06", "living_thing.n.01"}},
	"time":          {[]string{"time_period.n.01", "clock_time.n.01"}, []string{"physical_entity.n.01", "otherworld.n.01", "group.n.01", "attribute.n.02", "set.n.02", "communication.n.02"}},
	"vehicle":       {[]string{"vehicle.n.01"}, []string{"abstraction.n.06", "living_thing.n.01"}},
}

// exclusion lists pairs of top-level categories: a path containing the
// first is known not to be any of the rest. The first matching entry of
// each group applies.
var exclusionGroups = [][]struct {
	has string
	not []string
}{
	{
		{"abstraction.n.06", []string{"physical_entity.n.01"}},
		{"physical_entity.n.01", []string{"abstraction.n.06"}},
	},
	{
		{"living_thing.n.01", []string{"natural_object.n.01", "artifact.n.01", "matter.n.03"}},
		{"natural_object.n.01", []string{"living_thing.n.01", "artifact.n.01", "matter.n.03"}},
		{"artifact.n.01", []string{"living_thing.n.01", "natural_object.n.01", "matter.n.03"}},
		{"matter.n.03", []string{"living_thing.n.01", "natural_object.n.01", "artifact.n.01"}},
	},
	{
		{"animal.n.01", []string{"person.n.01"}},
		{"person.n.01", []string{"animal.n.01"}},
	},
	{
		{"male.n.02", []string{"female.n.02"}},
		{"female.n.02", []string{"male.n.02"}},
	},
	{
		{"male.n.01", []string{"female.n.01"}},
		{"female.n.01", []string{"male.n.01"}},
	},
}

// deepSenseDepth is the depth beyond which a sense is assumed specific
// enough to rule out the living categories it does not descend from.
const deepSenseDepth = 4

func hiddenPredicate(name string, args ...*drs.Referent) *drs.Predicate {
	return drs.Hidden(drs.NewPredicate(name, args...))
}

func hiddenNegation(conds ...drs.Condition) *drs.Negation {
	return drs.Hidden(drs.NewNegation(drs.Wrap(conds...)))
}

// hypernymConditions asserts every hypernym of sense for ref, together with
// the negations of sibling top-level categories. Each hypernym path gives
// one alternative; several paths are chained into alternations.
func hypernymConditions(lex *lexicon.Lexicon, sense string, ref *drs.Referent) []drs.Condition {
	s := lex.Sense(sense)
	var alternatives [][]drs.Condition

	for _, path := range s.HypernymPaths {
		hypernyms := make(map[string]bool, len(path))
		var conds []drs.Condition
		for _, h := range path {
			if !hypernyms[h] {
				hypernyms[h] = true
				conds = append(conds, hiddenPredicate(h, ref))
			}
		}

		var negatives []string
		for _, group := range exclusionGroups {
			for _, rule := range group {
				if hypernyms[rule.has] {
					negatives = append(negatives, rule.not...)
					break
				}
			}
		}
		if s.MaxDepth() > deepSenseDepth {
			if !hypernyms["living_thing.n.01"] {
				negatives = append(negatives, "living_thing.n.01", "person.n.01", "animal.n.01")
			} else {
				if !hypernyms["person.n.01"] {
					negatives = append(negatives, "person.n.01")
				}
				if !hypernyms["animal.n.01"] {
					negatives = append(negatives, "animal.n.01")
				}
			}
		}

		seen := make(map[string]bool, len(negatives))
		for _, n := range negatives {
			if !seen[n] {
				seen[n] = true
				conds = append(conds, hiddenNegation(hiddenPredicate(n, ref)))
			}
		}
		alternatives = append(alternatives, conds)
	}

	for len(alternatives) > 1 {
		alt := drs.Hidden(drs.NewAlternation(drs.Wrap(alternatives[0]...), drs.Wrap(alternatives[1]...)))
		alternatives = append([][]drs.Condition{{alt}}, alternatives[2:]...)
	}
	if len(alternatives) == 0 {
		return nil
	}
	return alternatives[0]
}

// genderConditions derives conditions from the SEX feature of t: neuter
// excludes persons, masculine and feminine assert the matching person
// senses and exclude the others.
func genderConditions(lex *lexicon.Lexicon, t *tree.Tree, ref *drs.Referent) []drs.Condition {
	var matching, nonmatching []string
	switch t.Feature(tree.FeatSex) {
	case "n":
		return []drs.Condition{hiddenNegation(hiddenPredicate(personSense, ref))}
	case "m":
		matching, nonmatching = maleSenses, femaleSenses
	case "f":
		matching, nonmatching = femaleSenses, maleSenses
	default:
		return nil
	}

	conds := hypernymConditions(lex, personSense, ref)
	for _, name := range matching {
		conds = append(conds, hypernymConditions(lex, name, ref)...)
	}
	for _, name := range nonmatching {
		conds = append(conds, hiddenNegation(hiddenPredicate(name, ref)))
	}
	return conds
}

// restrictionBox encodes a selectional restriction on ref. A negated
// restriction denies the positive categories; otherwise the excluded
// categories are denied as well.
func restrictionBox(restriction string, ref *drs.Referent, negated bool) *drs.Box {
	box := drs.New()
	senses, ok := restrictionSenses[restriction]
	if !ok {
		return box
	}

	for _, name := range senses.pos {
		cond := hiddenPredicate(name, ref)
		if box.Len() > 0 {
			box = drs.Wrap(drs.Hidden(drs.NewAlternation(box, drs.Wrap(cond))))
		} else {
			box.AddCondition(cond)
		}
	}

	if negated {
		if !box.Empty() {
			box = drs.Wrap(drs.Hidden(drs.NewNegation(box)))
		}
		return box
	}
	for _, name := range senses.neg {
		box.AddCondition(hiddenNegation(hiddenPredicate(name, ref)))
	}
	return box
}

// possessionConditions states that owner possesses owned, and that nothing
// owns itself.
func possessionConditions(owner, owned *drs.Referent) []drs.Condition {
	return []drs.Condition{
		drs.NewPredicate(possessPredicate, owner, owned),
		drs.Hidden(drs.NewNegation(drs.Wrap(drs.Hidden(drs.NewEquality(owner, owned))))),
	}
}

const (
	possessPredicate = "_possess"
	modifyPredicate  = "_modify"
	agentRole        = "Agent"
)

// roleName turns a thematic role into its predicate symbol.
func roleName(role string) string {
	return "_" + strings.TrimRight(role, "0123456789")
}
