package matching

// Resolver selects one candidate from a scored pool. The automatic resolver
// picks the highest score; alternative implementations can prompt a user or
// apply site-specific policy without touching the scoring path.
type Resolver interface {
	Resolve(candidates []ScoredCandidate) (ScoredCandidate, bool)
}

// AutoResolver picks the highest-scoring candidate above the composite
// acceptance threshold. Ties keep the earliest candidate, which preserves
// the search result ordering from the metadata service.
type AutoResolver struct{}

func (AutoResolver) Resolve(candidates []ScoredCandidate) (ScoredCandidate, bool) {
	best := ScoredCandidate{Type: MatchNone}
	found := false
	for _, candidate := range candidates {
		if !found || candidate.Score > best.Score {
			best = candidate
			found = true
		}
	}
	if !found || best.Score <= compositeThreshold {
		return ScoredCandidate{Type: MatchNone}, false
	}
	return best, true
}
