package matching

import (
	"regexp"
	"strings"
	"time"

	"romdex/internal/gamedb"
)

var yearToken = regexp.MustCompile(`\b(19|20)\d{2}\b`)

// BuildQueries generates the ordered query variants for one title. Order is
// priority order: exact name (platform-scoped when known), series prefix for
// colon-delimited titles, year-bounded search when the title carries a
// plausible release year, and a free-text search as the catch-all.
func BuildQueries(title string, platformID int) []gamedb.SearchQuery {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil
	}

	queries := []gamedb.SearchQuery{{
		Kind:           gamedb.QueryExact,
		Text:           title,
		PlatformFilter: platformID,
	}}

	if prefix, _, found := strings.Cut(title, ":"); found {
		prefix = strings.TrimSpace(prefix)
		if prefix != "" && prefix != title {
			queries = append(queries, gamedb.SearchQuery{
				Kind:           gamedb.QuerySeries,
				Text:           prefix,
				PlatformFilter: platformID,
			})
		}
	}

	if year := TitleYear(title); year > 0 {
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		end := time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC).Add(-time.Second)
		text := strings.TrimSpace(spaceRun.ReplaceAllString(yearToken.ReplaceAllString(title, " "), " "))
		if text != "" {
			queries = append(queries, gamedb.SearchQuery{
				Kind:           gamedb.QueryYear,
				Text:           text,
				PlatformFilter: platformID,
				YearStart:      start.Unix(),
				YearEnd:        end.Unix(),
			})
		}
	}

	queries = append(queries, gamedb.SearchQuery{
		Kind:           gamedb.QueryFuzzy,
		Text:           title,
		PlatformFilter: platformID,
	})
	return queries
}

var spaceRun = regexp.MustCompile(`\s+`)

// TitleYear extracts a 4-digit 19xx/20xx token from a title, or 0.
func TitleYear(title string) int {
	match := yearToken.FindString(title)
	if match == "" {
		return 0
	}
	year := 0
	for _, r := range match {
		year = year*10 + int(r-'0')
	}
	return year
}
