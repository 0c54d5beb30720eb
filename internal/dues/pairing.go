package dues

import (
	"tesouraria/internal/core"
)

// eligible reports whether m owes monthly dues at all.
func eligible(m core.Member) bool {
	return m.PaysMonthly && m.Status == core.StatusActive
}

// share splits a couple's flat amount between the partners. The titular
// takes the odd cent, so the two shares always add up to flat.
func share(m core.Member, flat core.Money) core.Money {
	hi := flat.Half()
	if m.Relationship == core.RelTitular {
		return hi
	}
	return flat.Sub(hi)
}

// sameMember reports whether a and b are the same record: equal IDs, or
// identical values when neither has an ID.
func sameMember(a, b core.Member) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a == b
}

// dedupe drops repeated IDs, keeping the first occurrence. Members without
// an ID are kept as distinct entries.
func dedupe(members []core.Member) []core.Member {
	seen := make(map[string]struct{}, len(members))
	out := make([]core.Member, 0, len(members))
	for _, m := range members {
		if m.ID != "" {
			if _, ok := seen[m.ID]; ok {
				continue
			}
			seen[m.ID] = struct{}{}
		}
		out = append(out, m)
	}
	return out
}

// couples returns, for every paired member index, the index of its partner.
//
// Family names are compared exactly; an empty name has no group.
// Within a family group a couple forms only when the group holds exactly one
// Titular and exactly one Spouse. Any other mix (two spouses, no titular, ...)
// leaves every member of the group unpaired, so the result never depends on
// input order and pairing is always mutual.
func couples(members []core.Member) map[int]int {
	type group struct {
		titulars []int
		spouses  []int
	}
	groups := make(map[string]*group)
	for i, m := range members {
		key := m.FamilyName
		if key == "" {
			continue
		}
		if m.Relationship != core.RelTitular && m.Relationship != core.RelSpouse {
			continue
		}
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
		}
		if m.Relationship == core.RelTitular {
			g.titulars = append(g.titulars, i)
		} else {
			g.spouses = append(g.spouses, i)
		}
	}

	partner := make(map[int]int)
	for _, g := range groups {
		if len(g.titulars) == 1 && len(g.spouses) == 1 {
			t, s := g.titulars[0], g.spouses[0]
			partner[t] = s
			partner[s] = t
		}
	}
	return partner
}

// payingSet filters members down to the deduplicated eligible set.
func payingSet(members []core.Member) []core.Member {
	out := make([]core.Member, 0, len(members))
	for _, m := range dedupe(members) {
		if eligible(m) {
			out = append(out, m)
		}
	}
	return out
}
