package matching

import (
	"strings"

	"github.com/hbollon/go-edlib"

	"romdex/internal/gamedb"
)

// Blend weights for the standalone fuzzy score. Jaro-Winkler similarity
// dominates; substring containment and word-count parity reward titles
// that differ only in subtitles or edition suffixes.
const (
	fuzzySimilarityWeight  = 0.6
	fuzzyContainmentWeight = 0.2
	fuzzyParityWeight      = 0.2
)

// FuzzyScore computes a 0..1 similarity between a title and one candidate
// without any live lookup, maximized over every title variant paired with
// every candidate name. Jaro-Winkler is the base metric because game titles
// are short and usually correct at the prefix.
func FuzzyScore(variants []string, game gamedb.Game) float64 {
	best := 0.0
	for _, variant := range variants {
		for _, name := range candidateNames(game) {
			if score := fuzzyPair(variant, name); score > best {
				best = score
			}
		}
	}
	return best
}

// FuzzyMatch scores a candidate pool and returns the best candidate whose
// blended score strictly exceeds threshold. An empty pool or a pool with no
// candidate above threshold yields ok=false.
func FuzzyMatch(variants []string, pool []gamedb.Game, threshold float64) (ScoredCandidate, bool) {
	best := ScoredCandidate{Type: MatchNone}
	for _, game := range pool {
		score := FuzzyScore(variants, game)
		if score > best.Score {
			best = ScoredCandidate{Game: game, Score: score, Type: MatchFuzzy}
		}
	}
	if best.Type == MatchNone || best.Score <= threshold {
		return ScoredCandidate{Type: MatchNone}, false
	}
	return best, true
}

func fuzzyPair(a, b string) float64 {
	normA := normalizeForComparison(a)
	normB := normalizeForComparison(b)
	if normA == "" || normB == "" {
		return 0
	}
	if normA == normB {
		return 1
	}

	score := fuzzySimilarityWeight * float64(edlib.JaroWinklerSimilarity(normA, normB))

	if strings.Contains(normA, normB) || strings.Contains(normB, normA) {
		score += fuzzyContainmentWeight
	}

	wordsA := len(strings.Fields(strings.ToLower(a)))
	wordsB := len(strings.Fields(strings.ToLower(b)))
	if wordsA > 0 && wordsB > 0 {
		diff := wordsA - wordsB
		if diff < 0 {
			diff = -diff
		}
		max := wordsA
		if wordsB > max {
			max = wordsB
		}
		score += fuzzyParityWeight * (1 - float64(diff)/float64(max))
	}

	if score > 1 {
		score = 1
	}
	return score
}
