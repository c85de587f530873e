package retrieval

import "medkey/internal/textnorm"

func tokenSet(folded string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, tok := range textnorm.Tokens(folded) {
		set[tok] = struct{}{}
	}
	return set
}

// overlapScore is the share of query tokens present in the candidate text.
// Asymmetric on purpose: an incoming record name is usually the candidate's
// canonical name plus qualifiers, so containment matters more than Jaccard
// symmetry.
func overlapScore(query, candidate map[string]struct{}) float64 {
	if len(query) == 0 || len(candidate) == 0 {
		return 0
	}
	hits := 0
	for tok := range query {
		if _, ok := candidate[tok]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
