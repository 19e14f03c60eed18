package library

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// IndexPlatform is one platform line in the export index.
type IndexPlatform struct {
	PlatformKey string `json:"platform"`
	File        string `json:"file"`
	Records     int    `json:"records"`
}

// Index describes every export file written at a checkpoint.
type Index struct {
	GeneratedAt    time.Time       `json:"generated_at"`
	RunID          string          `json:"run_id"`
	Platforms      []IndexPlatform `json:"platforms"`
	UnmatchedFile  string          `json:"unmatched_file,omitempty"`
	UnmatchedCount int             `json:"unmatched_count"`
	TotalRecords   int             `json:"total_records"`
}

const (
	unmatchedFileName = "unmatched.jsonl"
	indexFileName     = "index.json"
)

// Export regenerates every export file from the store: one JSON file per
// platform sorted by title, the unmatched JSONL, and the index. Files are
// written via temp-and-rename so a crash mid-export never leaves a torn
// file, and the store remains the source of truth regardless.
func (s *Store) Export(ctx context.Context, outputDir, runID string) (Index, error) {
	index := Index{GeneratedAt: time.Now().UTC(), RunID: runID}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return index, fmt.Errorf("create output dir: %w", err)
	}

	grouped, err := s.RecordsByPlatform(ctx)
	if err != nil {
		return index, err
	}

	platforms := make([]string, 0, len(grouped))
	for platform := range grouped {
		platforms = append(platforms, platform)
	}
	sort.Strings(platforms)

	for _, platform := range platforms {
		records := grouped[platform]
		sort.Slice(records, func(i, j int) bool {
			return records[i].Title < records[j].Title
		})
		fileName := platform + ".json"
		if err := writeJSONFile(filepath.Join(outputDir, fileName), records); err != nil {
			return index, fmt.Errorf("export platform %s: %w", platform, err)
		}
		index.Platforms = append(index.Platforms, IndexPlatform{
			PlatformKey: platform,
			File:        fileName,
			Records:     len(records),
		})
		index.TotalRecords += len(records)
	}

	unmatched, err := s.AllUnmatched(ctx)
	if err != nil {
		return index, err
	}
	if len(unmatched) > 0 {
		if err := writeJSONLines(filepath.Join(outputDir, unmatchedFileName), unmatched); err != nil {
			return index, fmt.Errorf("export unmatched: %w", err)
		}
		index.UnmatchedFile = unmatchedFileName
	}
	index.UnmatchedCount = len(unmatched)

	if err := writeJSONFile(filepath.Join(outputDir, indexFileName), index); err != nil {
		return index, fmt.Errorf("export index: %w", err)
	}
	return index, nil
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')
	return writeFileAtomic(path, data)
}

func writeJSONLines(path string, entries []Unmatched) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, entry := range entries {
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("encode line: %w", err)
		}
	}
	return writeFileAtomic(path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
