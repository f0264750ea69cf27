package injury

import "strings"

// Score accumulates keyword weights and context boosts for every category.
// Pure: the same signal always yields the same scores.
func Score(sig Signal) Scores {
	out := make(Scores, 0, len(AllCategories))
	for _, c := range AllCategories {
		cs := CategoryScore{Category: c}

		for _, kw := range lexicon[c] {
			for _, t := range sig.Tokens {
				if strings.Contains(strings.ToLower(t), kw.Word) {
					cs.Score += kw.Weight
					cs.Matched = appendUnique(cs.Matched, kw.Word)
				}
			}
		}

		if c.bloodRelated() {
			if sig.RedDominance {
				cs.Score += redDominanceBoost
			}
			if sig.BloodMentionCount > 0 {
				cs.Score += bloodMentionBoost * float64(sig.BloodMentionCount)
			}
			if sig.Violence >= Possible {
				cs.Score += violenceBoost
			}
		}
		if c == HeadInjury && sig.HasFace {
			cs.Score += faceBoost
		}

		out = append(out, cs)
	}
	return out
}

// Best picks the strictly greatest score; ties go to the earlier category.
func (s Scores) Best() CategoryScore {
	var best CategoryScore
	found := false
	for _, cs := range s {
		if !found || cs.Score > best.Score {
			best = cs
			found = true
		}
	}
	return best
}

func appendUnique(xs []string, x string) []string {
	for _, v := range xs {
		if v == x {
			return xs
		}
	}
	return append(xs, x)
}
