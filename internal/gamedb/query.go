package gamedb

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// QueryKind identifies the search strategy that produced a query.
type QueryKind string

const (
	QueryExact  QueryKind = "exact"
	QuerySeries QueryKind = "series"
	QueryYear   QueryKind = "year"
	QueryFuzzy  QueryKind = "fuzzy"
)

// gameFields is the field list requested for every search. Expansions keep the
// response self-contained so scoring never needs follow-up calls.
const gameFields = "fields id, name, alternative_names.name, platforms, first_release_date, " +
	"summary, storyline, genres.id, genres.name, " +
	"involved_companies.company.id, involved_companies.company.name, " +
	"involved_companies.developer, involved_companies.publisher, " +
	"total_rating, total_rating_count, category, status, game_modes, keywords, age_ratings, " +
	"collection.id, collection.name, franchise.id, franchise.name, " +
	"cover.id, cover.url, screenshots.id, screenshots.url"

const searchLimit = 20

// SearchQuery is one query variant generated for a title. Ephemeral.
type SearchQuery struct {
	Kind           QueryKind
	Text           string
	PlatformFilter int
	// YearStart/YearEnd bound first_release_date for year-scoped queries
	// (unix seconds, inclusive).
	YearStart int64
	YearEnd   int64
}

// Body renders the structured filter/search request body. Quote characters in
// the query text are escaped so user-controlled titles cannot break the query
// syntax.
func (q SearchQuery) Body() string {
	var b strings.Builder
	b.WriteString(gameFields)
	b.WriteString("; ")

	text := escapeQuotes(strings.TrimSpace(q.Text))
	var where []string

	switch q.Kind {
	case QueryExact:
		where = append(where, fmt.Sprintf(`name = "%s"`, text))
	case QuerySeries:
		where = append(where, fmt.Sprintf(`collection.name = "%s"`, text))
	case QueryYear:
		b.WriteString(fmt.Sprintf(`search "%s"; `, text))
		if q.YearStart > 0 && q.YearEnd > 0 {
			where = append(where, fmt.Sprintf("first_release_date >= %d", q.YearStart))
			where = append(where, fmt.Sprintf("first_release_date <= %d", q.YearEnd))
		}
	default:
		b.WriteString(fmt.Sprintf(`search "%s"; `, text))
	}

	if q.PlatformFilter > 0 {
		where = append(where, fmt.Sprintf("platforms = (%d)", q.PlatformFilter))
	}
	if len(where) > 0 {
		b.WriteString("where ")
		b.WriteString(strings.Join(where, " & "))
		b.WriteString("; ")
	}
	b.WriteString(fmt.Sprintf("limit %d;", searchLimit))
	return b.String()
}

// Fingerprint returns a stable cache key derived from the endpoint and the
// normalized query body.
func (q SearchQuery) Fingerprint() string {
	sum := sha256.Sum256([]byte("games|" + strings.ToLower(q.Body())))
	return hex.EncodeToString(sum[:16])
}

func escapeQuotes(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
