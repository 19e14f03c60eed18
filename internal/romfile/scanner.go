package romfile

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"romdex/internal/logging"
)

// Entry describes a discovered ROM file. Immutable once discovered.
type Entry struct {
	Title       string
	PlatformKey string
	Path        string
	SizeBytes   int64
}

// Scanner walks a ROM directory and emits entries for files whose extension
// maps to a known platform.
type Scanner struct {
	root      string
	overrides map[string]string
	logger    *slog.Logger
}

// NewScanner builds a scanner rooted at dir. Overrides extend or replace the
// built-in extension table.
func NewScanner(dir string, overrides map[string]string, logger *slog.Logger) *Scanner {
	return &Scanner{
		root:      dir,
		overrides: overrides,
		logger:    logging.NewComponentLogger(logger, "scanner"),
	}
}

// Scan walks the ROM directory and returns entries ordered by path. Files
// with unrecognized extensions are skipped with a debug log; unreadable
// subdirectories are skipped with a warning rather than aborting the walk.
func (s *Scanner) Scan() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return fmt.Errorf("scan rom directory: %w", err)
			}
			s.logger.Warn("skipping unreadable path", logging.String("path", path), logging.Error(err))
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(d.Name()), "."))
		platformKey, ok := PlatformForExtension(ext, s.overrides)
		if !ok {
			s.logger.Debug("unrecognized extension", logging.String("path", path))
			return nil
		}
		info, err := d.Info()
		if err != nil {
			s.logger.Warn("stat failed", logging.String("path", path), logging.Error(err))
			return nil
		}
		title := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		entries = append(entries, Entry{
			Title:       title,
			PlatformKey: platformKey,
			Path:        path,
			SizeBytes:   info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	s.logger.Info("scan complete", logging.Int("entries", len(entries)))
	return entries, nil
}
