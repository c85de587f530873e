package masterkey

// Candidate is a single retrieval result referencing an existing master
// key. Score is the fused dense+lexical similarity; it is usually inside
// [0,1] but the policy does not assume a hard bound.
type Candidate struct {
	MasterKey string
	Score     float64
	Metadata  map[string]string
}

// Outcome is the decision for one incoming record.
type Outcome struct {
	// Reuse reports whether the record joins an existing master key group.
	Reuse bool
	// MasterKey is the group to reuse; empty when Reuse is false.
	MasterKey string
	// Score is the best candidate score, valid only when HasScore is set.
	// A below-threshold best score is still reported so callers can log
	// how close the nearest group was.
	Score    float64
	HasScore bool
}

// Policy centralizes assignment thresholds.
type Policy struct {
	// DecisionThreshold is the minimum fused score required to reuse an
	// existing master key. The bound is inclusive.
	DecisionThreshold float64
	// TopK is the number of candidates requested from the retriever. Only
	// the best candidate is consulted.
	TopK int
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() Policy {
	return Policy{
		DecisionThreshold: 0.85,
		TopK:              5,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()
	if p.DecisionThreshold <= 0 || p.DecisionThreshold > 1 {
		p.DecisionThreshold = d.DecisionThreshold
	}
	if p.TopK <= 0 {
		p.TopK = d.TopK
	}
	return p
}

// Decide interprets the retrieved candidates against the reuse threshold.
// An empty candidate list always yields a new-key outcome. The best
// candidate is found by scanning for the maximum score rather than
// trusting position 0, so retrievers without a total ordering guarantee
// degrade safely.
//
// Decide is a pure function of its inputs: identical candidates and
// threshold always produce the same outcome.
func Decide(candidates []Candidate, threshold float64) Outcome {
	best, ok := bestCandidate(candidates)
	if !ok {
		return Outcome{}
	}
	out := Outcome{Score: best.Score, HasScore: true}
	if best.Score >= threshold {
		out.Reuse = true
		out.MasterKey = best.MasterKey
	}
	return out
}

func bestCandidate(candidates []Candidate) (Candidate, bool) {
	if len(candidates) == 0 {
		return Candidate{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.Score > best.Score {
			best = c
		}
	}
	return best, true
}
