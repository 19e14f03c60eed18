package library

import (
	"strings"
	"time"

	"romdex/internal/gamedb"
	"romdex/internal/romfile"
)

// FileRef is one file on disk belonging to a record.
type FileRef struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"size_bytes"`
}

// Record is one enriched library entry. Records are keyed by platform and
// normalized title so multi-file dumps of the same game collapse into one
// entry with every file attached.
type Record struct {
	Key         string    `json:"key"`
	PlatformKey string    `json:"platform"`
	Title       string    `json:"title"`
	GameID      int64     `json:"game_id"`
	Name        string    `json:"name"`
	Summary     string    `json:"summary,omitempty"`
	ReleaseDate int64     `json:"release_date,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Genres      []string  `json:"genres,omitempty"`
	Companies   []string  `json:"companies,omitempty"`
	CoverURL    string    `json:"cover_url,omitempty"`
	Screenshots []string  `json:"screenshots,omitempty"`
	Files       []FileRef `json:"files"`
	MatchType   string    `json:"match_type"`
	Score       float64   `json:"score"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Unmatched is an append-only entry for a file no candidate could be
// accepted for. It keeps the attempted title variations so a later manual
// pass can see what was tried.
type Unmatched struct {
	PlatformKey string    `json:"platform"`
	Title       string    `json:"title"`
	Path        string    `json:"path"`
	Reason      string    `json:"reason"`
	Attempted   []string  `json:"attempted,omitempty"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// RecordKey builds the canonical dedup key for a platform and title.
func RecordKey(platformKey, title string) string {
	return strings.ToLower(strings.TrimSpace(platformKey)) + ":" + strings.ToLower(strings.TrimSpace(title))
}

// NewRecord flattens a metadata result into a library record.
func NewRecord(platformKey, title string, game gamedb.Game, matchType string, score float64) Record {
	rec := Record{
		Key:         RecordKey(platformKey, title),
		PlatformKey: platformKey,
		Title:       title,
		GameID:      game.ID,
		Name:        game.Name,
		Summary:     game.Summary,
		Rating:      game.TotalRating,
		Companies:   game.CompanyNames(),
		Screenshots: game.ScreenshotURLs(),
		MatchType:   matchType,
		Score:       score,
	}
	if rec.Name == "" {
		rec.Name = romfile.DisplayTitle(title)
	}
	if game.HasReleaseDate() {
		rec.ReleaseDate = game.FirstReleaseDate
	}
	for _, genre := range game.Genres {
		if genre.Name != "" {
			rec.Genres = append(rec.Genres, genre.Name)
		}
	}
	if game.Cover != nil {
		rec.CoverURL = game.Cover.URL
	}
	return rec
}

// SizeBytes is the total size of every attached file.
func (r Record) SizeBytes() int64 {
	var total int64
	for _, file := range r.Files {
		total += file.SizeBytes
	}
	return total
}

// AddFile attaches a file, ignoring paths already present.
func (r *Record) AddFile(path string, sizeBytes int64) {
	for _, file := range r.Files {
		if file.Path == path {
			return
		}
	}
	r.Files = append(r.Files, FileRef{Path: path, SizeBytes: sizeBytes})
}

// Merge folds another record for the same key into this one. Files union
// by path and the metadata from the higher-scoring side wins.
func (r *Record) Merge(other Record) {
	if other.Key != r.Key {
		return
	}
	if other.Score > r.Score {
		files := r.Files
		*r = other
		r.Files = files
	}
	for _, file := range other.Files {
		r.AddFile(file.Path, file.SizeBytes)
	}
}
