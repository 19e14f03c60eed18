package matching

import (
	"strings"
	"time"
	"unicode"

	"romdex/internal/gamedb"
	"romdex/internal/romfile"
)

// MatchType records which evidence produced a candidate's score.
type MatchType string

const (
	MatchExact     MatchType = "exact"
	MatchComposite MatchType = "composite"
	MatchFuzzy     MatchType = "fuzzy"
	MatchNone      MatchType = "none"
)

// Composite scoring weights. The exact-title bonus exceeds the sum of every
// other bonus so that an identical normalized title always outranks a
// non-identical one no matter how many secondary signals the latter collects.
const (
	exactTitleBonus   = 100.0
	platformBonus     = 20.0
	tokenOverlapScale = 30.0
	releaseYearBonus  = 10.0
	regionBonus       = 5.0
	companyBonus      = 5.0

	// highConfidenceScore short-circuits remaining query strategies.
	highConfidenceScore = 90.0

	// compositeThreshold is the minimum composite score for acceptance.
	compositeThreshold = 35.0
)

// ScoredCandidate pairs a search result with its composite score.
type ScoredCandidate struct {
	Game  gamedb.Game
	Score float64
	Type  MatchType
}

// ScoreInput carries the per-file context the scorer needs.
type ScoreInput struct {
	Variants   []string
	Tags       map[romfile.TagCategory][]string
	PlatformID int
	Year       int
}

// NewScoreInput derives scorer context from a normalized title.
func NewScoreInput(norm romfile.Normalized, platformID int) ScoreInput {
	return ScoreInput{
		Variants:   romfile.Variants(norm.Clean),
		Tags:       norm.Tags,
		PlatformID: platformID,
		Year:       TitleYear(norm.Clean),
	}
}

// ScoreCandidate computes the composite score for one candidate.
func ScoreCandidate(in ScoreInput, game gamedb.Game) ScoredCandidate {
	names := candidateNames(game)
	scored := ScoredCandidate{Game: game, Type: MatchComposite}

	exact := false
	for _, variant := range in.Variants {
		normVariant := normalizeForComparison(variant)
		if normVariant == "" {
			continue
		}
		for _, name := range names {
			if normVariant == normalizeForComparison(name) {
				exact = true
				break
			}
		}
		if exact {
			break
		}
	}
	if exact {
		scored.Score += exactTitleBonus
		scored.Type = MatchExact
	}

	if in.PlatformID > 0 && game.OnPlatform(in.PlatformID) {
		scored.Score += platformBonus
	}

	overlap := 0.0
	for _, variant := range in.Variants {
		for _, name := range names {
			if ratio := tokenOverlap(variant, name); ratio > overlap {
				overlap = ratio
			}
		}
	}
	scored.Score += overlap * tokenOverlapScale

	if in.Year > 0 && game.HasReleaseDate() {
		if time.Unix(game.FirstReleaseDate, 0).UTC().Year() == in.Year {
			scored.Score += releaseYearBonus
		}
	}

	if regionAgreement(in.Tags, game) {
		scored.Score += regionBonus
	}

	if companyInTitle(in.Variants, game) {
		scored.Score += companyBonus
	}

	return scored
}

// ScorePool scores every candidate and returns them in input order.
func ScorePool(in ScoreInput, pool []gamedb.Game) []ScoredCandidate {
	scored := make([]ScoredCandidate, 0, len(pool))
	for _, game := range pool {
		scored = append(scored, ScoreCandidate(in, game))
	}
	return scored
}

func candidateNames(game gamedb.Game) []string {
	names := make([]string, 0, 1+len(game.AlternativeNames))
	if game.Name != "" {
		names = append(names, game.Name)
	}
	names = append(names, game.AltNames()...)
	return names
}

// tokenOverlap returns |shared| / max(|a|, |b|) over the word sets of the
// two titles after comparison normalization.
func tokenOverlap(a, b string) float64 {
	tokensA := titleTokens(a)
	tokensB := titleTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}
	shared := 0
	for token := range tokensA {
		if tokensB[token] {
			shared++
		}
	}
	denom := len(tokensA)
	if len(tokensB) > denom {
		denom = len(tokensB)
	}
	return float64(shared) / float64(denom)
}

func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	for _, field := range strings.Fields(strings.ToLower(title)) {
		field = strings.Map(keepAlnum, field)
		if field != "" {
			tokens[field] = true
		}
	}
	return tokens
}

// regionAgreement reports whether a region tag from the filename shows up
// in any of the candidate's alternative names, e.g. a "(Japan)" dump
// matching an alt name like "Seiken Densetsu (Japan)".
func regionAgreement(tags map[romfile.TagCategory][]string, game gamedb.Game) bool {
	for _, region := range tags[romfile.TagRegion] {
		needle := normalizeForComparison(region)
		if needle == "" {
			continue
		}
		for _, alt := range game.AltNames() {
			if strings.Contains(normalizeForComparison(alt), needle) {
				return true
			}
		}
	}
	return false
}

// companyInTitle reports whether a developer or publisher name appears as a
// token of the title, which disambiguates licensed series entries.
func companyInTitle(variants []string, game gamedb.Game) bool {
	companies := game.CompanyNames()
	if len(companies) == 0 {
		return false
	}
	for _, variant := range variants {
		tokens := titleTokens(variant)
		for _, company := range companies {
			companyTokens := titleTokens(company)
			if len(companyTokens) == 0 {
				continue
			}
			all := true
			for token := range companyTokens {
				if !tokens[token] {
					all = false
					break
				}
			}
			if all {
				return true
			}
		}
	}
	return false
}

func normalizeForComparison(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func keepAlnum(r rune) rune {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return r
	}
	return -1
}
